package intent

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jfmyers9/crate/internal/catalog"
)

// ContextUnderground is the resolved musical context that enables the
// underground sampler.
const ContextUnderground = "underground"

// Intent is the structured reading of a free-text request. It is created
// once per request and not modified afterwards.
type Intent struct {
	ModeHint        string      `json:"mode_hint,omitempty"`
	SeedTracks      []SeedTrack `json:"seed_tracks"`
	SeedArtists     []string    `json:"seed_artists"`
	PriorityArtists []string    `json:"priority_artists"`
	OnlyArtists     []string    `json:"only_artists"`
	Exclusions      Exclusions  `json:"exclusions"`
	Canonical       *Canonical  `json:"canonical,omitempty"`
	SearchQueries   []string    `json:"search_queries"`
	Context         string      `json:"context,omitempty"`
	AllowedArtists  []string    `json:"allowed_artists"`
	Festival        string      `json:"festival,omitempty"`
}

// SeedTrack is a track suggested by the language model. It still has to be
// resolved against the catalog.
type SeedTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Exclusions lists artists and title terms that must never be emitted.
type Exclusions struct {
	BannedArtists []string `json:"banned_artists"`
	BannedTerms   []string `json:"banned_terms"`
}

// Canonical is the normalized lookup for festival and chart requests.
type Canonical struct {
	BaseQuery string `json:"base_query"`
	Year      int    `json:"year,omitempty"`
}

// Query returns the playlist search query for c, e.g. "coachella 2024".
func (c *Canonical) Query() string {
	if c == nil {
		return ""
	}
	if c.Year > 0 {
		return strings.TrimSpace(c.BaseQuery + " " + strconv.Itoa(c.Year))
	}
	return strings.TrimSpace(c.BaseQuery)
}

// Resolver turns a prompt into an Intent.
type Resolver interface {
	Resolve(ctx context.Context, prompt string, target int) (*Intent, error)
}

// ErrEmptyPrompt is returned for blank prompts.
var ErrEmptyPrompt = errors.New("intent: prompt is required")

// Clean trims every string, drops empty entries and case-insensitive
// duplicates, and fills festival data the model left out.
func (in *Intent) Clean(prompt string) {
	in.ModeHint = strings.TrimSpace(in.ModeHint)
	in.Context = strings.ToLower(strings.TrimSpace(in.Context))
	in.Festival = strings.TrimSpace(in.Festival)

	in.SeedArtists = uniqueNames(in.SeedArtists)
	in.PriorityArtists = uniqueNames(in.PriorityArtists)
	in.OnlyArtists = uniqueNames(in.OnlyArtists)
	in.AllowedArtists = uniqueNames(in.AllowedArtists)
	in.SearchQueries = uniqueNames(in.SearchQueries)
	in.Exclusions.BannedArtists = uniqueNames(in.Exclusions.BannedArtists)
	in.Exclusions.BannedTerms = uniqueNames(in.Exclusions.BannedTerms)

	seeds := in.SeedTracks[:0]
	seen := make(map[string]bool, len(in.SeedTracks))
	for _, s := range in.SeedTracks {
		s.Title = strings.TrimSpace(s.Title)
		s.Artist = strings.TrimSpace(s.Artist)
		if s.Title == "" {
			continue
		}
		key := catalog.NormalizeName(s.Title) + "\x00" + catalog.NormalizeName(s.Artist)
		if seen[key] {
			continue
		}
		seen[key] = true
		seeds = append(seeds, s)
	}
	in.SeedTracks = seeds

	if in.Canonical != nil {
		in.Canonical.BaseQuery = strings.TrimSpace(in.Canonical.BaseQuery)
		if in.Canonical.BaseQuery == "" {
			in.Canonical = nil
		}
	}

	if f, ok := DetectFestival(prompt); ok {
		if in.Festival == "" {
			in.Festival = f.Name
		}
		if in.Canonical == nil {
			in.Canonical = &Canonical{BaseQuery: strings.ToLower(f.Name), Year: f.Year}
		} else if in.Canonical.Year == 0 {
			in.Canonical.Year = f.Year
		}
	}
}

func uniqueNames(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := catalog.NormalizeName(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
