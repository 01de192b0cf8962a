package intent

import (
	"context"
	"regexp"
	"strings"
)

var (
	stylePattern   = regexp.MustCompile(`(?i)\b(?:like|style of|similar to|sounds like)\s+(.+)$`)
	onlyPattern    = regexp.MustCompile(`(?i)\bonly\s+(.+?)(?:\s+songs)?$`)
	excludePattern = regexp.MustCompile(`(?i)\b(?:no|without|except|but not)\s+(.+)$`)
	listSeparator  = regexp.MustCompile(`\s*(?:,|&|\band\b|\bor\b)\s*`)
)

// PromptResolver builds an intent from the prompt text alone. It is used when
// no language model is configured. It recognizes "like X", "only X" and
// "no X" phrasings and otherwise searches for the prompt as typed.
type PromptResolver struct{}

// Resolve implements Resolver.
func (PromptResolver) Resolve(ctx context.Context, prompt string, target int) (*Intent, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	in := &Intent{}
	rest := prompt

	if m := excludePattern.FindStringSubmatchIndex(rest); m != nil {
		in.Exclusions.BannedArtists = splitList(rest[m[2]:m[3]])
		rest = strings.TrimSpace(rest[:m[0]])
	}
	if m := onlyPattern.FindStringSubmatch(rest); m != nil {
		in.OnlyArtists = splitList(m[1])
	}
	if m := stylePattern.FindStringSubmatch(rest); m != nil {
		in.PriorityArtists = splitList(m[1])
	}

	if rest != "" {
		in.SearchQueries = []string{rest}
	}
	in.Clean(prompt)
	return in, nil
}

func splitList(s string) []string {
	parts := listSeparator.Split(strings.TrimSpace(s), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
