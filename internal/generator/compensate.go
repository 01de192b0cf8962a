package generator

import (
	"context"
	"sort"
	"strings"

	"github.com/jfmyers9/crate/internal/catalog"
)

const (
	compensationTopTracks = 20
	compensationSearch    = 20
	compensationArtists   = 10

	// relaxGap is the largest shortfall that may be closed over the caps.
	relaxGap = 5
)

// placeholderArtists are catalog credits that do not name a real artist.
var placeholderArtists = map[string]bool{
	"various artists": true,
	"various":         true,
	"unknown artist":  true,
	"unknown":         true,
	"anonymous":       true,
	"traditional":     true,
}

// compensator closes the gap between the accepted tracks and the target in
// tiers: short buckets first, then collaborators of accepted tracks, then
// (outside ARTIST_STYLE) artists already in the set, finally over the caps
// when the gap is small. Only artist searches are used; it never searches
// genre or mood terms. UNDERGROUND keeps its own cap and never goes over it.
type compensator struct {
	e        *env
	mode     Mode
	searched map[string]bool
	pools    [][]catalog.Track
}

func newCompensator(e *env, mode Mode) *compensator {
	return &compensator{e: e, mode: mode, searched: make(map[string]bool)}
}

func (c *compensator) run(ctx context.Context, s *State) []catalog.Track {
	accepted := c.topUpBuckets(ctx, s)

	if !s.Full() && !expired(ctx) {
		accepted = append(accepted, c.searchArtists(ctx, s, c.collaborators(s))...)
	}

	if c.mode != ModeArtistStyle && !s.Full() && !expired(ctx) {
		accepted = append(accepted, c.searchArtists(ctx, s, c.presentArtists(s))...)

		if c.mode != ModeUnderground && !s.Full() && s.Remaining() <= relaxGap {
			for _, pool := range c.pools {
				accepted = append(accepted, admitEach(s, pool, s.AdmitIgnoringCap)...)
			}
			s.Flush()
		}
	}

	c.e.logger.Debug().
		Int("accepted", len(accepted)).
		Int("remaining", s.Remaining()).
		Msg("Compensation finished")

	return accepted
}

// topUpBuckets fills buckets still below their own target.
func (c *compensator) topUpBuckets(ctx context.Context, s *State) []catalog.Track {
	if s.Plan == nil {
		return nil
	}
	var accepted []catalog.Track
	for _, b := range s.Plan.Buckets {
		if b.Full() || s.Full() || expired(ctx) {
			continue
		}
		b := b
		ref := catalog.ArtistRef{ID: b.ArtistID, Name: b.ArtistName}
		pool := c.e.topTracks(ctx, ref, compensationTopTracks)
		pool = append(pool, c.e.search(ctx, artistQuery(b.ArtistName), compensationSearch*2, 0)...)
		c.searched[catalog.NormalizeName(b.ArtistName)] = true

		accepted = append(accepted, admitEach(s, pool, func(t catalog.Track) Verdict {
			if b.Full() {
				return VerdictTargetFull
			}
			return s.AdmitFor(t, b)
		})...)
	}
	s.Flush()
	return accepted
}

// collaborators returns featured artists of accepted tracks that still have
// room under the non-priority cap, most frequent first.
func (c *compensator) collaborators(s *State) []string {
	counts := make(map[string]int)
	names := make(map[string]string)
	var order []string
	for _, t := range s.Tracks {
		if len(t.Artists) < 2 {
			continue
		}
		for _, a := range t.Artists[1:] {
			n := catalog.NormalizeName(a)
			if _, ok := names[n]; !ok {
				names[n] = a
				order = append(order, n)
			}
			counts[n]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	var out []string
	for _, n := range order {
		if len(out) == compensationArtists {
			break
		}
		if !c.searchable(n, s) {
			continue
		}
		if limit := s.Caps.NonPriority; limit != Unlimited && s.Counters[n] >= limit {
			continue
		}
		out = append(out, names[n])
	}
	return out
}

// presentArtists returns primary artists of accepted tracks, those with the
// most headroom first.
func (c *compensator) presentArtists(s *State) []string {
	names := make(map[string]string)
	var order []string
	for _, t := range s.Tracks {
		n := catalog.NormalizeName(t.PrimaryArtist())
		if _, ok := names[n]; !ok {
			names[n] = t.PrimaryArtist()
			order = append(order, n)
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return s.Counters[order[i]] < s.Counters[order[j]] })

	var out []string
	for _, n := range order {
		if len(out) == compensationArtists {
			break
		}
		if c.searchable(n, s) {
			out = append(out, names[n])
		}
	}
	return out
}

// searchArtists searches each artist concurrently and admits the results in
// order under the normal caps. Results are kept for the over-cap pass.
func (c *compensator) searchArtists(ctx context.Context, s *State, artists []string) []catalog.Track {
	if len(artists) == 0 {
		return nil
	}
	for _, a := range artists {
		c.searched[catalog.NormalizeName(a)] = true
	}

	pools := c.e.fetchAll(ctx, len(artists), func(ctx context.Context, i int) []catalog.Track {
		return c.e.search(ctx, artistQuery(artists[i]), compensationSearch, 0)
	})
	c.pools = append(c.pools, pools...)

	var accepted []catalog.Track
	for _, pool := range pools {
		if s.Full() {
			break
		}
		accepted = append(accepted, admitEach(s, pool, func(t catalog.Track) Verdict {
			return c.admit(s, t)
		})...)
	}
	s.Flush()
	return accepted
}

// admit applies the mode's cap to one compensation candidate.
func (c *compensator) admit(s *State, t catalog.Track) Verdict {
	if c.mode == ModeUnderground {
		return s.AdmitCapped(t, undergroundCap)
	}
	return s.Admit(t)
}

// searchable reports whether the normalized name n is worth a search.
func (c *compensator) searchable(n string, s *State) bool {
	if n == "" || c.searched[n] || placeholderArtists[n] || isGenericPhrase(n) {
		return false
	}
	return s.Allows(n) && !s.Special.Exclusion.BannedName(n)
}

// isGenericPhrase reports whether every word of the normalized phrase is a
// genre, mood or number word.
func isGenericPhrase(n string) bool {
	words := strings.Fields(n)
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !genericWords[w] && !isNumber(w) {
			return false
		}
	}
	return true
}
