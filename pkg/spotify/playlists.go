package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// PlaylistService provides playlist lookups.
type PlaylistService struct {
	client *Client
}

const (
	// MaxPlaylistPage is the largest page size for playlist items.
	MaxPlaylistPage = 100

	playlistFields = "id,name,description,owner(id,display_name),followers(total),tracks(total)"
)

// Get returns a playlist's metadata including its follower count.
func (s *PlaylistService) Get(ctx context.Context, playlistID string) (*Playlist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("spotify: playlist id is required")
	}

	params := url.Values{}
	params.Set("fields", playlistFields)
	if s.client.market != "" {
		params.Set("market", s.client.market)
	}

	var p Playlist
	if err := s.client.get(ctx, "/playlists/"+url.PathEscape(playlistID), params, &p); err != nil {
		return nil, fmt.Errorf("spotify: get playlist failed: %w", err)
	}
	return &p, nil
}

// Tracks returns one page of a playlist's items.
func (s *PlaylistService) Tracks(ctx context.Context, playlistID string, limit, offset int) (*Page[PlaylistItem], error) {
	if playlistID == "" {
		return nil, fmt.Errorf("spotify: playlist id is required")
	}
	if limit <= 0 || limit > MaxPlaylistPage {
		limit = MaxPlaylistPage
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	if s.client.market != "" {
		params.Set("market", s.client.market)
	}

	var page Page[PlaylistItem]
	if err := s.client.get(ctx, "/playlists/"+url.PathEscape(playlistID)+"/tracks", params, &page); err != nil {
		return nil, fmt.Errorf("spotify: playlist tracks failed: %w", err)
	}
	return &page, nil
}
