package generator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

const (
	seedBatch       = 10
	seedLookupLimit = 5
	minSeedShare    = 50
	seedShareRatio  = 0.70
)

// seedShare returns how many tracks the seed phase may contribute. NORMAL is
// seed dominant; ARTIST_STYLE without named artists relies on seeds alone;
// every other mode skips the phase.
func seedShare(mode Mode, in *intent.Intent, target int) int {
	switch mode {
	case ModeNormal:
		share := int(math.Ceil(seedShareRatio * float64(target)))
		if share < minSeedShare {
			share = minSeedShare
		}
		if share > target {
			share = target
		}
		return share
	case ModeArtistStyle:
		if len(in.PriorityArtists) == 0 {
			return target
		}
	}
	return 0
}

// runSeedPhase resolves the suggested tracks against the catalog and admits
// them in suggestion order until share tracks are accepted. Lookups within a
// batch run concurrently.
func runSeedPhase(ctx context.Context, e *env, in *intent.Intent, s *State, share int) []catalog.Track {
	limit := len(s.Tracks) + share
	var accepted []catalog.Track

	for start := 0; start < len(in.SeedTracks); start += seedBatch {
		if len(s.Tracks) >= limit || s.Full() || expired(ctx) {
			break
		}
		end := start + seedBatch
		if end > len(in.SeedTracks) {
			end = len(in.SeedTracks)
		}
		batch := in.SeedTracks[start:end]

		found := e.fetchAll(ctx, len(batch), func(ctx context.Context, i int) []catalog.Track {
			if t, ok := e.lookupSeed(ctx, batch[i]); ok {
				return []catalog.Track{t}
			}
			return nil
		})

		for _, f := range found {
			if len(f) == 0 {
				continue
			}
			if len(s.Tracks) >= limit {
				break
			}
			if s.Admit(f[0]) == VerdictOK {
				accepted = append(accepted, f[0])
			}
		}
		s.Flush()
	}
	return accepted
}

// lookupSeed finds the catalog track for a suggestion, trying a fielded
// search before a plain one.
func (e *env) lookupSeed(ctx context.Context, seed intent.SeedTrack) (catalog.Track, bool) {
	queries := []string{fmt.Sprintf("track:%q", seed.Title)}
	if seed.Artist != "" {
		queries = []string{
			fmt.Sprintf("track:%q artist:%q", seed.Title, seed.Artist),
			seed.Title + " " + seed.Artist,
		}
	}

	for _, q := range queries {
		if expired(ctx) {
			break
		}
		if t, ok := matchSeed(e.search(ctx, q, seedLookupLimit, 0), seed); ok {
			return t, true
		}
	}
	return catalog.Track{}, false
}

// matchSeed picks the first candidate whose title matches the suggestion
// (allowing suffixes such as "feat. ..." or "- Remastered") and that credits
// the suggested artist.
func matchSeed(candidates []catalog.Track, seed intent.SeedTrack) (catalog.Track, bool) {
	title := catalog.NormalizeName(seed.Title)
	artist := catalog.NormalizeName(seed.Artist)
	if title == "" {
		return catalog.Track{}, false
	}

	for _, c := range candidates {
		ct := catalog.NormalizeName(c.Title)
		if ct != title && !strings.HasPrefix(ct, title+" ") && !strings.HasPrefix(title, ct+" ") {
			continue
		}
		if artist == "" {
			return c, true
		}
		for _, a := range c.Artists {
			if catalog.NamesMatch(catalog.NormalizeName(a), artist) {
				return c, true
			}
		}
	}
	return catalog.Track{}, false
}
