package generator

import (
	"context"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/intent"
)

const (
	singleArtistPage      = 50
	singleArtistMaxPages  = 4 // per attempt
	singleArtistTopTracks = 10
)

// singleArtist fills a request for one artist: top tracks first, then pages
// of an artist search, then a plain search on the name for features. The
// engine restricts the request to tracks crediting the artist.
type singleArtist struct {
	e    *env
	name string

	ref          catalog.ArtistRef
	resolved     bool
	topDone      bool
	artistOffset int
	artistDone   bool
	plainOffset  int
	plainDone    bool
}

func newSingleArtist(e *env, name string) *singleArtist {
	return &singleArtist{e: e, name: name}
}

func (a *singleArtist) Name() string { return "single_artist" }

func (a *singleArtist) Collect(ctx context.Context, in *intent.Intent, remaining int, s *State) []catalog.Track {
	if !a.resolved {
		a.ref = a.e.resolveArtist(ctx, a.name)
		a.resolved = true
	}

	var accepted []catalog.Track
	if !a.topDone {
		a.topDone = true
		accepted = append(accepted, admitEach(s, a.e.topTracks(ctx, a.ref, singleArtistTopTracks), s.Admit)...)
		s.Flush()
	}

	for pages := 0; pages < singleArtistMaxPages && !s.Full() && !expired(ctx); pages++ {
		var page []catalog.Track
		switch {
		case !a.artistDone:
			page = a.e.search(ctx, artistQuery(a.ref.Name), singleArtistPage, a.artistOffset)
			a.artistOffset += singleArtistPage
			a.artistDone = len(page) < singleArtistPage
		case !a.plainDone:
			page = a.e.search(ctx, a.ref.Name, singleArtistPage, a.plainOffset)
			a.plainOffset += singleArtistPage
			a.plainDone = len(page) < singleArtistPage
		default:
			return accepted
		}
		accepted = append(accepted, admitEach(s, page, s.Admit)...)
		s.Flush()
	}
	return accepted
}
