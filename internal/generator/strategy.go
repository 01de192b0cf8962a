package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

// FillStrategy collects tracks for the fill phase of one mode. Collect is
// called once per attempt; implementations keep their own cursor so a later
// attempt continues where the previous one stopped. Accepted tracks are
// admitted into s as they are found and also returned.
type FillStrategy interface {
	Name() string
	Collect(ctx context.Context, in *intent.Intent, remaining int, s *State) []catalog.Track
}

// env is what strategies need besides the request state.
type env struct {
	catalog catalog.Catalog
	logger  zerolog.Logger
	cfg     Config
	now     time.Time
	prompt  string
}

// strategyFor picks the fill strategy for mode.
func strategyFor(mode Mode, in *intent.Intent, e *env) FillStrategy {
	switch mode {
	case ModeViral, ModeFestival:
		return newPlaylistConsensus(e)
	case ModeUnderground:
		return newUndergroundSampler(e)
	case ModeSingleArtist:
		return newSingleArtist(e, singleArtistName(in, e.prompt))
	case ModeArtistStyle:
		if len(in.PriorityArtists) > 0 {
			return newBucketFanOut(e)
		}
	}
	return newRadioExpansion(e)
}

// singleArtistName picks the artist a single-artist request is about.
func singleArtistName(in *intent.Intent, prompt string) string {
	for _, list := range [][]string{in.OnlyArtists, in.PriorityArtists, in.SeedArtists} {
		if len(list) > 0 {
			return list[0]
		}
	}
	return prompt
}

func artistQuery(name string) string {
	return fmt.Sprintf("artist:%q", name)
}

// The catalog helpers below log failures and return what they have. A
// failed call yields no tracks and the caller moves on to its next source.

func (e *env) failed(ctx context.Context, err error, call, arg string) {
	if ctx.Err() != nil {
		return
	}
	e.logger.Warn().Err(fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)).
		Str("call", call).
		Str("arg", arg).
		Msg("Catalog call failed")
}

func (e *env) search(ctx context.Context, query string, limit, offset int) []catalog.Track {
	tracks, err := e.catalog.SearchTracks(ctx, query, catalog.SearchOptions{Limit: limit, Offset: offset})
	if err != nil {
		e.failed(ctx, err, "search_tracks", query)
	}
	return tracks
}

func (e *env) topTracks(ctx context.Context, artist catalog.ArtistRef, limit int) []catalog.Track {
	tracks, err := e.catalog.ArtistTopTracks(ctx, artist, limit)
	if err != nil {
		e.failed(ctx, err, "artist_top_tracks", artist.Name)
	}
	return tracks
}

func (e *env) related(ctx context.Context, seeds []string, limit int) []catalog.Track {
	if len(seeds) == 0 {
		return nil
	}
	tracks, err := e.catalog.RelatedTracks(ctx, seeds, limit)
	if err != nil {
		e.failed(ctx, err, "related_tracks", seeds[0])
	}
	return tracks
}

func (e *env) playlists(ctx context.Context, query string, limit int) []catalog.Playlist {
	playlists, err := e.catalog.SearchPlaylists(ctx, query, limit)
	if err != nil {
		e.failed(ctx, err, "search_playlists", query)
	}
	return playlists
}

func (e *env) playlistTracks(ctx context.Context, p catalog.Playlist, limit int) []catalog.Track {
	tracks, err := e.catalog.PlaylistTracks(ctx, p, limit)
	if err != nil {
		e.failed(ctx, err, "playlist_tracks", p.ID)
	}
	return tracks
}

func (e *env) resolveArtist(ctx context.Context, name string) catalog.ArtistRef {
	ref, err := e.catalog.ResolveArtist(ctx, name)
	if err != nil {
		e.failed(ctx, err, "resolve_artist", name)
		return catalog.ArtistRef{Name: name}
	}
	return ref
}

// fetchAll runs fn for 0..n-1 with bounded concurrency and returns the
// results in index order.
func (e *env) fetchAll(ctx context.Context, n int, fn func(ctx context.Context, i int) []catalog.Track) [][]catalog.Track {
	out := make([][]catalog.Track, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.LookupConcurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			out[i] = fn(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// admitEach passes tracks to admit until the target is reached and returns
// the accepted ones.
func admitEach(s *State, tracks []catalog.Track, admit func(catalog.Track) Verdict) []catalog.Track {
	var accepted []catalog.Track
	for _, t := range tracks {
		if s.Full() {
			break
		}
		if admit(t) == VerdictOK {
			accepted = append(accepted, t)
		}
	}
	return accepted
}
