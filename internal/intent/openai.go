package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

// DefaultModel is used when OpenAIConfig.Model is empty.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You turn a music request into JSON for a playlist generator.
Reply with one JSON object and nothing else, using these keys:
  "mode_hint": optional, one of "viral", "festival", "single_artist", "artist_style", "underground", "normal"
  "seed_tracks": array of {"title", "artist"} of real released songs that fit the request
  "seed_artists": artists that fit the request
  "priority_artists": artists the user named for an "in the style of" request
  "only_artists": artists when the user asked for songs by them and nobody else
  "exclusions": {"banned_artists": [...], "banned_terms": [...]} for anything the user does not want
  "canonical": {"base_query", "year"} for festival or chart requests, e.g. {"base_query": "coachella", "year": 2024}
  "search_queries": short catalog search queries that describe the request
  "context": "underground" when the request is for underground or indie artists, else ""
  "allowed_artists": for underground requests, lesser-known artists that fit
  "festival": the festival name if one is mentioned
Suggest at least as many seed tracks as the target count. Never invent songs.`

// OpenAIConfig configures an OpenAIResolver.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible endpoints
	Model   string
}

// OpenAIResolver resolves intents with a chat completion.
type OpenAIResolver struct {
	client openai.Client
	model  string
	logger zerolog.Logger
}

// NewOpenAIResolver creates a resolver. Extra request options are appended
// after the ones derived from cfg.
func NewOpenAIResolver(cfg OpenAIConfig, logger zerolog.Logger, opts ...option.RequestOption) (*OpenAIResolver, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIResolver{
		client: openai.NewClient(reqOpts...),
		model:  model,
		logger: logger.With().Str("component", "intent").Logger(),
	}, nil
}

// Resolve asks the model for an intent and cleans the result.
func (r *OpenAIResolver) Resolve(ctx context.Context, prompt string, target int) (*Intent, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Request: %s\nTarget track count: %d", prompt, target)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0.4),
	}

	r.logger.Debug().Str("model", r.model).Str("prompt", prompt).Msg("Resolving intent")

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to call chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	in, err := ParseIntent(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	in.Clean(prompt)

	if limit := seedLimit(target); len(in.SeedTracks) > limit {
		in.SeedTracks = in.SeedTracks[:limit]
	}

	r.logger.Debug().
		Int("seed_tracks", len(in.SeedTracks)).
		Int("priority_artists", len(in.PriorityArtists)).
		Str("festival", in.Festival).
		Msg("Resolved intent")

	return in, nil
}

// ParseIntent decodes a model reply. Markdown code fences and text around
// the JSON object are ignored.
func ParseIntent(content string) (*Intent, error) {
	s := strings.TrimSpace(content)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("failed to find JSON object in model reply")
	}

	var in Intent
	if err := json.Unmarshal([]byte(s[start:end+1]), &in); err != nil {
		return nil, fmt.Errorf("failed to parse intent: %w", err)
	}
	return &in, nil
}

func seedLimit(target int) int {
	if target < 50 {
		target = 50
	}
	return target * 2
}
