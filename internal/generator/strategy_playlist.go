package generator

import (
	"context"
	"math/rand/v2"
	"sort"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

const (
	playlistSearchLimit = 20
	playlistsPerAttempt = 5
	playlistTrackLimit  = 100
	playlistJitter      = 0.05

	// A track is a consensus pick when it appears in at least
	// consensusMinLists playlists. Consensus picks are capped per artist.
	consensusMinLists = 2
	consensusCap      = 3
)

// playlistConsensus fills chart and festival requests from the most
// followed playlists for the canonical query. Tracks shared by several
// playlists go first, then whole playlists most popular first.
type playlistConsensus struct {
	e *env

	queries   []string
	nextQuery int
	rng       *rand.Rand

	ranked []catalog.Playlist
	seen   map[string]bool
	loaded int
	pool   [][]catalog.Track
}

func newPlaylistConsensus(e *env) *playlistConsensus {
	return &playlistConsensus{e: e, seen: make(map[string]bool)}
}

func (p *playlistConsensus) Name() string { return "playlist_consensus" }

func (p *playlistConsensus) Collect(ctx context.Context, in *intent.Intent, remaining int, s *State) []catalog.Track {
	if p.queries == nil {
		p.queries = playlistQueries(in, p.e.prompt)
		p.rng = NewRand(WindowSeed(p.queries[0], p.e.now, p.e.cfg.SeedWindow))
	}

	for p.loaded >= len(p.ranked) && p.nextQuery < len(p.queries) && !expired(ctx) {
		p.searchNext(ctx)
	}

	end := p.loaded + playlistsPerAttempt
	if end > len(p.ranked) {
		end = len(p.ranked)
	}
	batch := p.ranked[p.loaded:end]
	p.loaded = end
	if len(batch) == 0 {
		return nil
	}

	lists := p.e.fetchAll(ctx, len(batch), func(ctx context.Context, i int) []catalog.Track {
		return p.e.playlistTracks(ctx, batch[i], playlistTrackLimit)
	})
	p.pool = append(p.pool, lists...)

	accepted := admitEach(s, consensus(p.pool, consensusMinLists), func(t catalog.Track) Verdict {
		return s.AdmitCapped(t, consensusCap)
	})
	s.Flush()

	var fresh []catalog.Track
	for _, l := range lists {
		fresh = append(fresh, l...)
	}
	accepted = append(accepted, admitEach(s, byPopularity(DedupeAgainstUsed(fresh, s.Used)), s.Admit)...)
	s.Flush()

	p.e.logger.Debug().
		Int("playlists", len(batch)).
		Int("accepted", len(accepted)).
		Msg("Collected from playlists")

	return accepted
}

// searchNext searches the next query and appends its unseen playlists to
// the ranking, highest jittered follower count first.
func (p *playlistConsensus) searchNext(ctx context.Context) {
	q := p.queries[p.nextQuery]
	p.nextQuery++

	type scored struct {
		playlist catalog.Playlist
		score    float64
	}
	var found []scored
	for _, pl := range p.e.playlists(ctx, q, playlistSearchLimit) {
		if p.seen[pl.ID] {
			continue
		}
		p.seen[pl.ID] = true
		found = append(found, scored{pl, float64(pl.Followers) * jitter(p.rng, playlistJitter)})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].score > found[j].score })
	for _, f := range found {
		p.ranked = append(p.ranked, f.playlist)
	}
}

// playlistQueries lists the playlist searches to try, most specific first.
func playlistQueries(in *intent.Intent, prompt string) []string {
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
	add(in.Canonical.Query())
	for _, q := range in.SearchQueries {
		add(q)
	}
	add(prompt)
	if len(out) == 0 {
		out = append(out, prompt)
	}
	return out
}

// consensus returns the tracks found in at least minLists of lists, most shared
// first, then most popular, then in order of first appearance.
func consensus(lists [][]catalog.Track, minLists int) []catalog.Track {
	type entry struct {
		track catalog.Track
		count int
	}
	entries := make(map[string]*entry)
	var order []*entry
	for _, l := range lists {
		inList := make(map[string]bool, len(l))
		for _, t := range l {
			if inList[t.ID] {
				continue
			}
			inList[t.ID] = true
			e, ok := entries[t.ID]
			if !ok {
				e = &entry{track: t}
				entries[t.ID] = e
				order = append(order, e)
			}
			e.count++
		}
	}

	var shared []*entry
	for _, e := range order {
		if e.count >= minLists {
			shared = append(shared, e)
		}
	}
	sort.SliceStable(shared, func(i, j int) bool {
		if shared[i].count != shared[j].count {
			return shared[i].count > shared[j].count
		}
		return shared[i].track.Popularity > shared[j].track.Popularity
	})

	out := make([]catalog.Track, len(shared))
	for i, e := range shared {
		out[i] = e.track
	}
	return out
}

// byPopularity returns a copy of tracks sorted most popular first.
func byPopularity(tracks []catalog.Track) []catalog.Track {
	out := make([]catalog.Track, len(tracks))
	copy(out, tracks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Popularity > out[j].Popularity })
	return out
}
