package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jfmyers9/crate/pkg/spotify"
)

const (
	defaultSearchLimit   = 20
	defaultPlaylistLimit = 100
	maxTrackResults      = 200
	maxPlaylistTracks    = 500
	followerConcurrency  = 4
)

// Spotify implements Catalog on top of the Spotify Web API.
type Spotify struct {
	client *spotify.Client
	logger zerolog.Logger
}

// NewSpotify wraps client as a Catalog.
func NewSpotify(client *spotify.Client, logger zerolog.Logger) *Spotify {
	return &Spotify{
		client: client,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// SearchTracks pages through track search results until opts.Limit tracks
// are collected or results run out.
func (s *Spotify) SearchTracks(ctx context.Context, query string, opts SearchOptions) ([]Track, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxTrackResults {
		limit = maxTrackResults
	}

	var out []Track
	offset := opts.Offset
	for len(out) < limit {
		pageSize := limit - len(out)
		if pageSize > spotify.MaxSearchLimit {
			pageSize = spotify.MaxSearchLimit
		}
		page, err := s.client.Search().Tracks(ctx, query, pageSize, offset)
		if err != nil {
			return out, fmt.Errorf("failed to search tracks: %w", err)
		}
		out = append(out, fromSpotifyAll(page.Items)...)
		if !page.HasNext() || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ArtistTopTracks returns the artist's top tracks. The top-tracks endpoint
// stops at ten, so larger limits are completed with an artist search.
func (s *Spotify) ArtistTopTracks(ctx context.Context, artist ArtistRef, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 10
	}
	if artist.ID == "" {
		resolved, err := s.ResolveArtist(ctx, artist.Name)
		if err != nil {
			return nil, err
		}
		artist = resolved
	}

	top, err := s.client.Artists().TopTracks(ctx, artist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get top tracks for %s: %w", artist.Name, err)
	}
	out := fromSpotifyAll(top)

	if len(out) < limit && artist.Name != "" {
		more, err := s.SearchTracks(ctx, fmt.Sprintf("artist:%q", artist.Name), SearchOptions{Limit: limit})
		if err != nil {
			s.logger.Debug().Err(err).Str("artist", artist.Name).Msg("Artist search fallback failed")
		}
		seen := make(map[string]bool, len(out))
		for _, t := range out {
			seen[t.ID] = true
		}
		for _, t := range more {
			if len(out) >= limit {
				break
			}
			if !seen[t.ID] && credits(t, artist) {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RelatedTracks returns recommendation tracks seeded by seedTrackIDs.
func (s *Spotify) RelatedTracks(ctx context.Context, seedTrackIDs []string, limit int) ([]Track, error) {
	if len(seedTrackIDs) == 0 {
		return nil, nil
	}
	recs, err := s.client.Recommendations().Get(ctx, seedTrackIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get related tracks: %w", err)
	}
	return fromSpotifyAll(recs), nil
}

// SearchPlaylists searches playlists and fills in follower counts, which
// search results omit. A failed follower lookup leaves the count at zero.
func (s *Spotify) SearchPlaylists(ctx context.Context, query string, limit int) ([]Playlist, error) {
	if limit <= 0 {
		limit = 10
	}
	page, err := s.client.Search().Playlists(ctx, query, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to search playlists: %w", err)
	}

	out := make([]Playlist, 0, len(page.Items))
	for _, p := range page.Items {
		if p == nil || p.ID == "" {
			continue
		}
		out = append(out, Playlist{
			ID:         p.ID,
			Name:       p.Name,
			Owner:      p.Owner.DisplayName,
			TrackCount: p.Tracks.Total,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(followerConcurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			full, err := s.client.Playlists().Get(gctx, out[i].ID)
			if err != nil {
				s.logger.Debug().Err(err).Str("playlist", out[i].ID).Msg("Failed to fetch playlist followers")
				return nil
			}
			out[i].Followers = full.Followers.Total
			return nil
		})
	}
	_ = g.Wait()

	return out, ctx.Err()
}

// PlaylistTracks loads up to limit tracks from playlist in playlist order.
func (s *Spotify) PlaylistTracks(ctx context.Context, playlist Playlist, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = defaultPlaylistLimit
	}
	if limit > maxPlaylistTracks {
		limit = maxPlaylistTracks
	}

	var out []Track
	offset := 0
	for len(out) < limit {
		page, err := s.client.Playlists().Tracks(ctx, playlist.ID, spotify.MaxPlaylistPage, offset)
		if err != nil {
			if len(out) > 0 {
				s.logger.Debug().Err(err).Str("playlist", playlist.ID).Msg("Stopping playlist paging early")
				break
			}
			return nil, fmt.Errorf("failed to load playlist %s: %w", playlist.ID, err)
		}
		for _, item := range page.Items {
			if item.Track == nil {
				continue
			}
			if t, ok := FromSpotify(*item.Track); ok {
				out = append(out, t)
			}
		}
		if !page.HasNext() || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ResolveArtist finds the catalog artist for name. An exact normalized match
// wins, then the first hit NamesMatch accepts. Unrelated hits are not
// returned; the caller gets ErrNotFound instead.
func (s *Spotify) ResolveArtist(ctx context.Context, name string) (ArtistRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ArtistRef{}, fmt.Errorf("artist name is required")
	}

	page, err := s.client.Search().Artists(ctx, fmt.Sprintf("artist:%q", name), 5)
	if err != nil {
		return ArtistRef{Name: name}, fmt.Errorf("failed to resolve artist %s: %w", name, err)
	}
	if len(page.Items) == 0 {
		return ArtistRef{Name: name}, fmt.Errorf("artist %s: %w", name, ErrNotFound)
	}

	want := NormalizeName(name)
	for _, a := range page.Items {
		if NormalizeName(a.Name) == want {
			return ArtistRef{ID: a.ID, Name: a.Name}, nil
		}
	}
	for _, a := range page.Items {
		if NamesMatch(NormalizeName(a.Name), want) {
			return ArtistRef{ID: a.ID, Name: a.Name}, nil
		}
	}
	return ArtistRef{Name: name}, fmt.Errorf("artist %s: %w", name, ErrNotFound)
}

// credits reports whether t credits artist in any position.
func credits(t Track, artist ArtistRef) bool {
	want := NormalizeName(artist.Name)
	for i, name := range t.Artists {
		if artist.ID != "" && i < len(t.ArtistIDs) && t.ArtistIDs[i] == artist.ID {
			return true
		}
		if NormalizeName(name) == want {
			return true
		}
	}
	return false
}

// DebugLogger adapts a zerolog logger to the spotify.Logger interface.
func DebugLogger(logger zerolog.Logger) spotify.Logger {
	return debugLogger{logger: logger.With().Str("component", "spotify").Logger()}
}

type debugLogger struct {
	logger zerolog.Logger
}

func (l debugLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
