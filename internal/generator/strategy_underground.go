package generator

import (
	"context"
	"math/rand/v2"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

const (
	undergroundCap       = 3
	undergroundBatch     = 6
	undergroundTopTracks = 10
)

// undergroundSampler draws tracks from a fixed list of allowed artists in a
// shuffled order that is stable within a time window. The state is
// restricted to the same list, so tracks led by anyone else are rejected.
type undergroundSampler struct {
	e *env

	artists []string
	next    int
	rng     *rand.Rand
}

func newUndergroundSampler(e *env) *undergroundSampler {
	return &undergroundSampler{e: e}
}

func (u *undergroundSampler) Name() string { return "underground_sampler" }

func (u *undergroundSampler) Collect(ctx context.Context, in *intent.Intent, remaining int, s *State) []catalog.Track {
	if u.artists == nil {
		u.init(in, s)
	}

	var accepted []catalog.Track
	for !s.Full() && u.next < len(u.artists) && !expired(ctx) {
		end := u.next + undergroundBatch
		if end > len(u.artists) {
			end = len(u.artists)
		}
		batch := u.artists[u.next:end]
		u.next = end

		lists := u.e.fetchAll(ctx, len(batch), func(ctx context.Context, i int) []catalog.Track {
			return u.e.topTracks(ctx, catalog.ArtistRef{Name: batch[i]}, undergroundTopTracks)
		})
		for _, tracks := range lists {
			tracks = append([]catalog.Track(nil), tracks...)
			u.rng.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
			accepted = append(accepted, admitEach(s, tracks, func(t catalog.Track) Verdict {
				return s.AdmitCapped(t, undergroundCap)
			})...)
		}
		s.Flush()
	}
	return accepted
}

func (u *undergroundSampler) init(in *intent.Intent, s *State) {
	u.artists = append([]string{}, undergroundArtists(in, s.Special.Exclusion)...)

	u.rng = NewRand(WindowSeed(u.e.prompt, u.e.now, u.e.cfg.SeedWindow))
	u.rng.Shuffle(len(u.artists), func(i, j int) {
		u.artists[i], u.artists[j] = u.artists[j], u.artists[i]
	})
}

// undergroundArtists returns the artists an underground request may draw
// from: the allowed list, or the seed artists when there is none, minus
// banned names.
func undergroundArtists(in *intent.Intent, ex *Exclusion) []string {
	source := in.AllowedArtists
	if len(source) == 0 {
		source = in.SeedArtists
	}
	var out []string
	for _, a := range source {
		if !ex.BannedName(a) {
			out = append(out, a)
		}
	}
	return out
}
