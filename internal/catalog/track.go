package catalog

import (
	"context"
	"errors"
)

// Track is a normalized catalog track. Two tracks are the same track when
// their IDs are equal.
type Track struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artists    []string `json:"artistNames"`         // primary artist first
	ArtistIDs  []string `json:"artistIds,omitempty"` // parallel to Artists when known
	Popularity int      `json:"popularity,omitempty"`
}

// PrimaryArtist returns the first credited artist, or "" if none.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// PrimaryArtistID returns the catalog id of the first credited artist, or ""
// when unknown.
func (t Track) PrimaryArtistID() string {
	if len(t.ArtistIDs) == 0 {
		return ""
	}
	return t.ArtistIDs[0]
}

// Playlist is a catalog playlist with the metadata used for ranking.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner,omitempty"`
	Followers  int    `json:"followers"`
	TrackCount int    `json:"trackCount"`
}

// ArtistRef identifies an artist. ID is empty when the catalog could not
// resolve the name.
type ArtistRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// SearchOptions controls paging for track searches.
type SearchOptions struct {
	Limit  int
	Offset int
}

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("catalog: not found")

// Catalog is the set of catalog operations the generator depends on.
// Implementations must be safe for concurrent use.
type Catalog interface {
	SearchTracks(ctx context.Context, query string, opts SearchOptions) ([]Track, error)
	ArtistTopTracks(ctx context.Context, artist ArtistRef, limit int) ([]Track, error)
	RelatedTracks(ctx context.Context, seedTrackIDs []string, limit int) ([]Track, error)
	SearchPlaylists(ctx context.Context, query string, limit int) ([]Playlist, error)
	PlaylistTracks(ctx context.Context, playlist Playlist, limit int) ([]Track, error)
	ResolveArtist(ctx context.Context, name string) (ArtistRef, error)
}
