package generator

import (
	"context"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

const (
	radioSeeds       = 5
	radioLimit       = 50
	radioSearchPage  = 50
	radioMaxOffset   = 150
	radioCallsPerTry = 6
)

// radioExpansion grows the accepted set with related tracks seeded from it,
// then falls back to the intent's search queries, seed artists and finally
// the prompt itself.
type radioExpansion struct {
	e *env

	seedCursor  int
	queries     []string
	queryIdx    int
	queryOffset int
}

func newRadioExpansion(e *env) *radioExpansion {
	return &radioExpansion{e: e}
}

func (r *radioExpansion) Name() string { return "radio_expansion" }

func (r *radioExpansion) Collect(ctx context.Context, in *intent.Intent, remaining int, s *State) []catalog.Track {
	if r.queries == nil {
		r.queries = radioQueries(in, r.e.prompt)
	}

	var accepted []catalog.Track
	calls := 0

	for !s.Full() && calls < radioCallsPerTry && r.seedCursor < len(s.Tracks) && !expired(ctx) {
		end := r.seedCursor + radioSeeds
		if end > len(s.Tracks) {
			end = len(s.Tracks)
		}
		seeds := make([]string, 0, end-r.seedCursor)
		for _, t := range s.Tracks[r.seedCursor:end] {
			seeds = append(seeds, t.ID)
		}
		r.seedCursor = end
		calls++

		accepted = append(accepted, admitEach(s, r.e.related(ctx, seeds, radioLimit), s.Admit)...)
		s.Flush()
	}

	for !s.Full() && calls < radioCallsPerTry && r.queryIdx < len(r.queries) && !expired(ctx) {
		page := r.e.search(ctx, r.queries[r.queryIdx], radioSearchPage, r.queryOffset)
		calls++
		r.queryOffset += radioSearchPage
		if len(page) < radioSearchPage || r.queryOffset > radioMaxOffset {
			r.queryIdx++
			r.queryOffset = 0
		}

		accepted = append(accepted, admitEach(s, page, s.Admit)...)
		s.Flush()
	}

	return accepted
}

// radioQueries lists the searches used once related tracks run out. Only
// queries derived from the request are used.
func radioQueries(in *intent.Intent, prompt string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(q string) {
		n := catalog.NormalizeName(q)
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, q)
	}
	for _, q := range in.SearchQueries {
		add(q)
	}
	for _, a := range in.SeedArtists {
		add(artistQuery(a))
	}
	add(prompt)
	return out
}
