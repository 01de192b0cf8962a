package generator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

// fakeCatalog is an in-memory catalog. Every method returns copies so the
// engine can never alias the universe.
type fakeCatalog struct {
	mu        sync.Mutex
	tracks    []fakeTrack
	playlists []fakePlaylist
	calls     int

	// block makes every call after the first blockAfter calls wait for ctx.
	blockAfter int
}

type fakeTrack struct {
	catalog.Track
	genre string
}

type fakePlaylist struct {
	catalog.Playlist
	trackIDs []string
}

var fieldPattern = regexp.MustCompile(`(\w+):"([^"]*)"`)

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{}
}

// addArtist adds n tracks by artist in genre, most popular first. Extra
// artists are credited as features.
func (f *fakeCatalog) addArtist(genre, artist string, n int, features ...string) []catalog.Track {
	var out []catalog.Track
	for i := 1; i <= n; i++ {
		out = append(out, f.addTrack(genre, fmt.Sprintf("%s Song %d", artist, i), 100-i, append([]string{artist}, features...)...))
	}
	return out
}

func (f *fakeCatalog) addTrack(genre, title string, popularity int, artists ...string) catalog.Track {
	ids := make([]string, len(artists))
	for i, a := range artists {
		ids[i] = "ar-" + catalog.NormalizeName(a)
	}
	t := catalog.Track{
		ID:         fmt.Sprintf("tr-%d", len(f.tracks)+1),
		Title:      title,
		Artists:    artists,
		ArtistIDs:  ids,
		Popularity: popularity,
	}
	f.tracks = append(f.tracks, fakeTrack{Track: t, genre: genre})
	return t
}

func (f *fakeCatalog) addPlaylist(name string, followers int, tracks []catalog.Track) {
	p := fakePlaylist{Playlist: catalog.Playlist{
		ID:         fmt.Sprintf("pl-%d", len(f.playlists)+1),
		Name:       name,
		Followers:  followers,
		TrackCount: len(tracks),
	}}
	for _, t := range tracks {
		p.trackIDs = append(p.trackIDs, t.ID)
	}
	f.playlists = append(f.playlists, p)
}

func (f *fakeCatalog) enter(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if f.blockAfter > 0 && n > f.blockAfter {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

func (f *fakeCatalog) SearchTracks(ctx context.Context, query string, opts catalog.SearchOptions) ([]catalog.Track, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	for _, m := range fieldPattern.FindAllStringSubmatch(query, -1) {
		fields[m[1]] = catalog.NormalizeName(m[2])
	}
	plain := strings.Fields(catalog.NormalizeName(fieldPattern.ReplaceAllString(query, " ")))

	var matched []catalog.Track
	for _, t := range f.tracks {
		if title, ok := fields["track"]; ok && !strings.HasPrefix(catalog.NormalizeName(t.Title), title) {
			continue
		}
		if artist, ok := fields["artist"]; ok && !credits(t.Track, artist) {
			continue
		}
		hay := " " + catalog.NormalizeName(t.genre+" "+t.Title+" "+strings.Join(t.Artists, " ")) + " "
		ok := true
		for _, w := range plain {
			if !strings.Contains(hay, " "+w+" ") {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, copyTrack(t.Track))
		}
	}
	return page(matched, opts.Offset, opts.Limit), nil
}

func (f *fakeCatalog) ArtistTopTracks(ctx context.Context, artist catalog.ArtistRef, limit int) ([]catalog.Track, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	name := catalog.NormalizeName(artist.Name)
	var out []catalog.Track
	for _, t := range f.tracks {
		if catalog.NormalizeName(t.PrimaryArtist()) == name {
			out = append(out, copyTrack(t.Track))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Popularity > out[j].Popularity })
	return page(out, 0, limit), nil
}

func (f *fakeCatalog) RelatedTracks(ctx context.Context, seeds []string, limit int) ([]catalog.Track, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	genres := make(map[string]bool)
	isSeed := make(map[string]bool)
	for _, id := range seeds {
		isSeed[id] = true
		for _, t := range f.tracks {
			if t.ID == id {
				genres[t.genre] = true
			}
		}
	}
	var out []catalog.Track
	for _, t := range f.tracks {
		if genres[t.genre] && !isSeed[t.ID] {
			out = append(out, copyTrack(t.Track))
		}
	}
	return page(out, 0, limit), nil
}

func (f *fakeCatalog) SearchPlaylists(ctx context.Context, query string, limit int) ([]catalog.Playlist, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	words := strings.Fields(catalog.NormalizeName(query))
	var out []catalog.Playlist
	for _, p := range f.playlists {
		name := " " + catalog.NormalizeName(p.Name) + " "
		ok := true
		for _, w := range words {
			if !strings.Contains(name, " "+w+" ") {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, p.Playlist)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) PlaylistTracks(ctx context.Context, p catalog.Playlist, limit int) ([]catalog.Track, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	for _, fp := range f.playlists {
		if fp.ID != p.ID {
			continue
		}
		var out []catalog.Track
		for _, id := range fp.trackIDs {
			for _, t := range f.tracks {
				if t.ID == id {
					out = append(out, copyTrack(t.Track))
				}
			}
		}
		return page(out, 0, limit), nil
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) ResolveArtist(ctx context.Context, name string) (catalog.ArtistRef, error) {
	if err := f.enter(ctx); err != nil {
		return catalog.ArtistRef{}, err
	}
	n := catalog.NormalizeName(name)
	for _, t := range f.tracks {
		for i, a := range t.Artists {
			if catalog.NormalizeName(a) == n {
				return catalog.ArtistRef{ID: t.ArtistIDs[i], Name: a}, nil
			}
		}
	}
	return catalog.ArtistRef{}, fmt.Errorf("artist %q: %w", name, catalog.ErrNotFound)
}

func credits(t catalog.Track, artist string) bool {
	for _, a := range t.Artists {
		if catalog.NamesMatch(catalog.NormalizeName(a), artist) {
			return true
		}
	}
	return false
}

func copyTrack(t catalog.Track) catalog.Track {
	t.Artists = append([]string(nil), t.Artists...)
	t.ArtistIDs = append([]string(nil), t.ArtistIDs...)
	return t
}

func page(tracks []catalog.Track, offset, limit int) []catalog.Track {
	if offset >= len(tracks) {
		return nil
	}
	tracks = tracks[offset:]
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks
}

// staticResolver returns a copy of in for every prompt.
type staticResolver struct {
	in  intent.Intent
	err error
}

func (r staticResolver) Resolve(ctx context.Context, prompt string, target int) (*intent.Intent, error) {
	if r.err != nil {
		return nil, r.err
	}
	in := r.in
	in.SeedTracks = append([]intent.SeedTrack(nil), r.in.SeedTracks...)
	in.Clean(prompt)
	return &in, nil
}

// resolverFunc adapts a function to intent.Resolver.
type resolverFunc func(ctx context.Context, prompt string, target int) (*intent.Intent, error)

func (f resolverFunc) Resolve(ctx context.Context, prompt string, target int) (*intent.Intent, error) {
	return f(ctx, prompt, target)
}
