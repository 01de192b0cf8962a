package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

var (
	// ErrUpstreamUnavailable wraps catalog failures. They are logged and
	// never abort a request on their own.
	ErrUpstreamUnavailable = errors.New("upstream catalog unavailable")

	// ErrIntentResolution is returned when the prompt could not be turned
	// into an intent.
	ErrIntentResolution = errors.New("intent resolution failed")

	// ErrDeadlineExceeded is returned when the request deadline passed
	// before any track was found.
	ErrDeadlineExceeded = errors.New("generation deadline exceeded")

	// ErrNoTracks is returned when a request finished without a track.
	ErrNoTracks = errors.New("no tracks found")
)

// ReasonDeadlineExceeded is the DONE reason for a request cut short by its
// deadline.
const ReasonDeadlineExceeded = "deadline_exceeded"

// Config tunes the engine. Zero fields take the defaults.
type Config struct {
	DefaultTarget     int
	MaxTarget         int
	MaxFillAttempts   int
	Tolerance         int // accepted shortfall before compensation runs, at least 1
	DeadlineBase      time.Duration
	DeadlinePerTrack  time.Duration
	DeadlineMax       time.Duration
	SeedWindow        time.Duration
	LookupConcurrency int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTarget:     50,
		MaxTarget:         250,
		MaxFillAttempts:   4,
		Tolerance:         3,
		DeadlineBase:      30 * time.Second,
		DeadlinePerTrack:  500 * time.Millisecond,
		DeadlineMax:       3 * time.Minute,
		SeedWindow:        6 * time.Hour,
		LookupConcurrency: 4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultTarget <= 0 {
		c.DefaultTarget = d.DefaultTarget
	}
	if c.MaxTarget <= 0 {
		c.MaxTarget = d.MaxTarget
	}
	if c.MaxFillAttempts <= 0 {
		c.MaxFillAttempts = d.MaxFillAttempts
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.DeadlineBase <= 0 {
		c.DeadlineBase = d.DeadlineBase
	}
	if c.DeadlinePerTrack <= 0 {
		c.DeadlinePerTrack = d.DeadlinePerTrack
	}
	if c.DeadlineMax <= 0 {
		c.DeadlineMax = d.DeadlineMax
	}
	if c.SeedWindow <= 0 {
		c.SeedWindow = d.SeedWindow
	}
	if c.LookupConcurrency <= 0 {
		c.LookupConcurrency = d.LookupConcurrency
	}
	return c
}

// deadlineFor returns the time budget for a request of target tracks.
func (c Config) deadlineFor(target int) time.Duration {
	d := c.DeadlineBase + time.Duration(target)*c.DeadlinePerTrack
	if d > c.DeadlineMax {
		d = c.DeadlineMax
	}
	return d
}

// Request is one generation request.
type Request struct {
	ID           string
	Prompt       string
	TargetTracks int
}

// Result is the outcome of a request.
type Result struct {
	ID         string
	Prompt     string
	Mode       Mode
	Tracks     []catalog.Track
	Target     int
	Partial    bool
	Reason     string
	Duration   time.Duration
	SeedTracks int // tracks contributed by the seed phase
	Attempts   int // fill attempts, compensation included
	Buckets    []Bucket
	Rejections map[Verdict]int
}

// Engine generates track lists from free-text prompts.
type Engine struct {
	catalog  catalog.Catalog
	resolver intent.Resolver
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an engine.
func New(cat catalog.Catalog, resolver intent.Resolver, cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		catalog:  cat,
		resolver: resolver,
		cfg:      cfg.withDefaults(),
		logger:   logger.With().Str("component", "generator").Logger(),
		now:      time.Now,
	}
}

// Config returns the effective configuration.
func (g *Engine) Config() Config {
	return g.cfg
}

// Target clamps a requested track count to the configured bounds.
func (g *Engine) Target(n int) int {
	if n <= 0 {
		return g.cfg.DefaultTarget
	}
	if n > g.cfg.MaxTarget {
		return g.cfg.MaxTarget
	}
	return n
}

// Generate runs one request, streaming progress to em. The stream ends with
// DONE, or ERROR when no track was found. If ctx is cancelled by the caller
// no terminal event is sent and ctx.Err() is returned.
func (g *Engine) Generate(ctx context.Context, req Request, em Emitter) (*Result, error) {
	if em == nil {
		em = discard{}
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, intent.ErrEmptyPrompt
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	target := g.Target(req.TargetTracks)
	budget := g.cfg.deadlineFor(target)
	start := g.now()
	deadline := start.Add(budget)

	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	logger := g.logger.With().
		Str("request_id", req.ID).
		Int("target", target).
		Logger()

	res := &Result{ID: req.ID, Prompt: prompt, Target: target}

	em.Emit(Event{Name: EventLLMStart, Data: LLMStart{Message: "Interpreting prompt"}})

	in, err := g.resolver.Resolve(runCtx, prompt, target)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		logger.Error().Err(err).Msg("Failed to resolve intent")
		em.Emit(Event{Name: EventError, Data: ErrorData{Error: "Failed to interpret prompt"}})
		return res, fmt.Errorf("%w: %v", ErrIntentResolution, err)
	}

	mode := Classify(in, prompt)
	res.Mode = mode
	logger = logger.With().Str("mode", string(mode)).Logger()

	s := g.newState(in, mode, prompt, target, start, deadline)
	e := &env{
		catalog: g.catalog,
		logger:  logger,
		cfg:     g.cfg,
		now:     start,
		prompt:  prompt,
	}

	logger.Info().
		Int("seed_tracks", len(in.SeedTracks)).
		Int("priority_artists", len(in.PriorityArtists)).
		Interface("caps", s.Caps).
		Msg("Generating")

	// Seed phase.
	if share := seedShare(mode, in, target); share > 0 && len(in.SeedTracks) > 0 {
		s.setFlush(func(batch []catalog.Track) {
			em.Emit(Event{Name: EventLLMChunk, Data: LLMChunk{
				Tracks:     batch,
				TotalSoFar: len(s.Tracks),
				Target:     target,
				Progress:   progress(len(s.Tracks), target),
			}})
		})
		res.SeedTracks = len(runSeedPhase(runCtx, e, in, s, share))
		s.Flush()
	}
	em.Emit(Event{Name: EventLLMDone, Data: LLMDone{TotalSoFar: len(s.Tracks), Target: target}})

	// Fill phase.
	strategy := strategyFor(mode, in, e)
	attempt := 0
	for attempt < g.cfg.MaxFillAttempts && !s.Full() && !expired(runCtx) {
		attempt++
		added := g.runAttempt(em, s, attempt, "Searching catalog", func() []catalog.Track {
			return strategy.Collect(runCtx, in, s.Remaining(), s)
		})
		logger.Debug().
			Str("strategy", strategy.Name()).
			Int("attempt", attempt).
			Int("added", added).
			Int("total", len(s.Tracks)).
			Msg("Fill attempt finished")
		if added == 0 {
			break
		}
	}

	if s.Remaining() > g.cfg.Tolerance && !expired(runCtx) {
		attempt++
		comp := newCompensator(e, mode)
		g.runAttempt(em, s, attempt, "Filling remaining tracks", func() []catalog.Track {
			return comp.run(runCtx, s)
		})
	}
	s.setFlush(nil)

	tracks := DedupeByID(s.Tracks)
	if len(tracks) > target {
		tracks = tracks[:target]
	}

	res.Tracks = tracks
	res.Attempts = attempt
	res.Buckets = s.Plan.Snapshot()
	res.Rejections = s.Rejections
	res.Duration = g.now().Sub(start)

	if ctx.Err() != nil {
		logger.Info().Int("tracks", len(tracks)).Msg("Request cancelled")
		return res, ctx.Err()
	}

	deadlineHit := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	if len(tracks) == 0 {
		err := ErrNoTracks
		if deadlineHit {
			err = ErrDeadlineExceeded
		}
		logger.Warn().Err(err).Msg("Request produced no tracks")
		em.Emit(Event{Name: EventError, Data: ErrorData{Error: capitalize(err.Error())}})
		return res, err
	}

	if deadlineHit {
		res.Partial = true
		res.Reason = ReasonDeadlineExceeded
	}

	logger.Info().
		Int("tracks", len(tracks)).
		Int("attempts", attempt).
		Bool("partial", res.Partial).
		Dur("duration", res.Duration).
		Msg("Generation finished")

	em.Emit(Event{Name: EventDone, Data: Done{
		Tracks:     tracks,
		TotalSoFar: len(tracks),
		Partial:    res.Partial,
		Reason:     res.Reason,
		Duration:   res.Duration.Milliseconds(),
	}})
	return res, nil
}

// newState builds the caps and directives for a resolved intent.
func (g *Engine) newState(in *intent.Intent, mode Mode, prompt string, target int, start, deadline time.Time) *State {
	special := Special{Exclusion: NewExclusion(in.Exclusions)}
	for _, a := range in.OnlyArtists {
		if n := catalog.NormalizeName(a); n != "" {
			special.OnlyArtists = append(special.OnlyArtists, n)
		}
	}

	var priority []string
	for _, a := range in.PriorityArtists {
		if !special.Exclusion.BannedName(a) {
			priority = append(priority, a)
		}
	}

	if mode == ModeSingleArtist {
		name := singleArtistName(in, prompt)
		caps := ComputeCaps(target, 1, special)
		caps.Priority = Unlimited
		s := NewState(target, caps, special, start, deadline)
		s.SetPriority(name)
		s.RequireCredit(name)
		return s
	}

	s := NewState(target, ComputeCaps(target, len(priority), special), special, start, deadline)
	s.SetPriority(priority...)
	if mode == ModeUnderground {
		s.RestrictTo(undergroundArtists(in, special.Exclusion)...)
	}
	return s
}

// runAttempt wraps one catalog attempt in SPOTIFY_START, SPOTIFY_CHUNK and
// SPOTIFY_DONE events and returns how many tracks it added.
func (g *Engine) runAttempt(em Emitter, s *State, attempt int, msg string, collect func() []catalog.Track) int {
	em.Emit(Event{Name: EventSpotifyStart, Data: SpotifyStart{
		Message:   msg,
		Remaining: s.Remaining(),
		Attempt:   attempt,
		Target:    s.Target,
	}})
	s.setFlush(func(batch []catalog.Track) {
		em.Emit(Event{Name: EventSpotifyChunk, Data: SpotifyChunk{
			Tracks:     batch,
			TotalSoFar: len(s.Tracks),
			Target:     s.Target,
			Progress:   progress(len(s.Tracks), s.Target),
			Attempt:    attempt,
		}})
	})

	added := len(collect())
	s.Flush()

	em.Emit(Event{Name: EventSpotifyDone, Data: SpotifyDone{
		TotalSoFar: len(s.Tracks),
		Attempt:    attempt,
		Target:     s.Target,
	}})
	return added
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
