package generator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

const (
	fanOutTopTracks  = 10
	fanOutPool       = 30
	fanOutRelated    = 30
	fanOutSearchPage = 50
)

// bucketFanOut fills one bucket per named artist, then hands the rest of the
// target to related-track expansion seeded from the bucket tracks.
type bucketFanOut struct {
	e *env

	planned bool
	offsets map[*Bucket]int
	radio   *radioExpansion
}

func newBucketFanOut(e *env) *bucketFanOut {
	return &bucketFanOut{
		e:       e,
		offsets: make(map[*Bucket]int),
		radio:   newRadioExpansion(e),
	}
}

func (f *bucketFanOut) Name() string { return "bucket_fan_out" }

func (f *bucketFanOut) Collect(ctx context.Context, in *intent.Intent, remaining int, s *State) []catalog.Track {
	var accepted []catalog.Track

	if !f.planned {
		f.planned = true
		refs := f.resolve(ctx, in.PriorityArtists, s)
		s.Plan = PlanBuckets(s.Target, refs, s.Caps)

		f.e.logger.Debug().
			Int("buckets", len(s.Plan.Buckets)).
			Bool("rotation", s.Plan.Rotation).
			Msg("Planned artist buckets")

		if s.Plan.Rotation {
			accepted = f.rotate(ctx, s)
		} else {
			for _, b := range s.Plan.Buckets {
				if s.Full() || expired(ctx) {
					break
				}
				accepted = append(accepted, f.fillSequential(ctx, s, b)...)
			}
		}
	} else {
		accepted = f.topUp(ctx, s)
	}

	if !s.Full() && !expired(ctx) {
		accepted = append(accepted, f.radio.Collect(ctx, in, s.Remaining(), s)...)
	}
	return accepted
}

// resolve looks up every named artist that is not excluded.
func (f *bucketFanOut) resolve(ctx context.Context, names []string, s *State) []catalog.ArtistRef {
	var kept []string
	for _, n := range names {
		if !s.Special.Exclusion.BannedName(n) {
			kept = append(kept, n)
		}
	}

	refs := make([]catalog.ArtistRef, len(kept))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.e.cfg.LookupConcurrency)
	for i, n := range kept {
		i, n := i, n
		g.Go(func() error {
			refs[i] = f.e.resolveArtist(gctx, n)
			return nil
		})
	}
	_ = g.Wait()
	return refs
}

// fillSequential fills b from top tracks, then related tracks, then a
// direct search, stopping as soon as the bucket is full.
func (f *bucketFanOut) fillSequential(ctx context.Context, s *State, b *Bucket) []catalog.Track {
	ref := catalog.ArtistRef{ID: b.ArtistID, Name: b.ArtistName}
	admit := func(t catalog.Track) Verdict {
		if b.Full() {
			return VerdictTargetFull
		}
		return s.AdmitFor(t, b)
	}

	top := f.e.topTracks(ctx, ref, fanOutTopTracks)
	accepted := admitEach(s, top, admit)

	if !b.Full() && !expired(ctx) {
		seeds := make([]string, 0, radioSeeds)
		for _, t := range top {
			if len(seeds) == radioSeeds {
				break
			}
			seeds = append(seeds, t.ID)
		}
		accepted = append(accepted, admitEach(s, f.e.related(ctx, seeds, fanOutRelated), admit)...)
	}

	if !b.Full() && !expired(ctx) {
		page := f.e.search(ctx, artistQuery(b.ArtistName), fanOutSearchPage, 0)
		f.offsets[b] = fanOutSearchPage
		accepted = append(accepted, admitEach(s, page, admit)...)
	}

	s.Flush()
	return accepted
}

// rotate pre-fetches a pool per artist, then takes one accepted track per
// artist per round so every named artist shows up early.
func (f *bucketFanOut) rotate(ctx context.Context, s *State) []catalog.Track {
	buckets := s.Plan.Buckets
	pools := f.e.fetchAll(ctx, len(buckets), func(ctx context.Context, i int) []catalog.Track {
		b := buckets[i]
		ref := catalog.ArtistRef{ID: b.ArtistID, Name: b.ArtistName}
		pool := f.e.topTracks(ctx, ref, fanOutTopTracks)
		pool = append(pool, f.e.search(ctx, artistQuery(b.ArtistName), fanOutPool, 0)...)
		return DedupeByID(pool)
	})
	for _, b := range buckets {
		f.offsets[b] = fanOutPool
	}

	var accepted []catalog.Track
	next := make([]int, len(buckets))
	for !s.Full() && !expired(ctx) {
		progressed := false
		for i, b := range buckets {
			if b.Full() || s.Full() {
				continue
			}
			for next[i] < len(pools[i]) {
				t := pools[i][next[i]]
				next[i]++
				if s.AdmitFor(t, b) == VerdictOK {
					accepted = append(accepted, t)
					progressed = true
					break
				}
			}
		}
		s.Flush()
		if !progressed {
			break
		}
	}
	return accepted
}

// topUp searches the next page for every bucket still short.
func (f *bucketFanOut) topUp(ctx context.Context, s *State) []catalog.Track {
	var accepted []catalog.Track
	for _, b := range s.Plan.Buckets {
		if b.Full() || s.Full() || expired(ctx) {
			continue
		}
		b := b
		page := f.e.search(ctx, artistQuery(b.ArtistName), fanOutSearchPage, f.offsets[b])
		f.offsets[b] += fanOutSearchPage
		accepted = append(accepted, admitEach(s, page, func(t catalog.Track) Verdict {
			if b.Full() {
				return VerdictTargetFull
			}
			return s.AdmitFor(t, b)
		})...)
	}
	s.Flush()
	return accepted
}
