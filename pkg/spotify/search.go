package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// SearchService provides catalog search operations.
type SearchService struct {
	client *Client
}

const (
	// MaxSearchLimit is the largest page size the search endpoint accepts.
	MaxSearchLimit = 50
)

// Tracks searches the catalog for tracks matching query.
//
// The query supports Spotify field filters such as artist:, track: and year:.
//
// Example:
//
//	page, err := client.Search().Tracks(ctx, `track:"Yesterday" artist:"The Beatles"`, 5, 0)
func (s *SearchService) Tracks(ctx context.Context, query string, limit, offset int) (*Page[Track], error) {
	var resp struct {
		Tracks Page[Track] `json:"tracks"`
	}
	if err := s.do(ctx, query, "track", limit, offset, &resp); err != nil {
		return nil, err
	}
	return &resp.Tracks, nil
}

// Playlists searches the catalog for playlists matching query.
//
// Items may contain nil entries; the API returns null for playlists that
// were removed after indexing.
func (s *SearchService) Playlists(ctx context.Context, query string, limit, offset int) (*Page[*Playlist], error) {
	var resp struct {
		Playlists Page[*Playlist] `json:"playlists"`
	}
	if err := s.do(ctx, query, "playlist", limit, offset, &resp); err != nil {
		return nil, err
	}
	return &resp.Playlists, nil
}

// Artists searches the catalog for artists matching query.
func (s *SearchService) Artists(ctx context.Context, query string, limit int) (*Page[Artist], error) {
	var resp struct {
		Artists Page[Artist] `json:"artists"`
	}
	if err := s.do(ctx, query, "artist", limit, 0, &resp); err != nil {
		return nil, err
	}
	return &resp.Artists, nil
}

func (s *SearchService) do(ctx context.Context, query, kind string, limit, offset int, out interface{}) error {
	if query == "" {
		return fmt.Errorf("spotify: search query is required")
	}
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", kind)
	params.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	if s.client.market != "" {
		params.Set("market", s.client.market)
	}

	if err := s.client.get(ctx, "/search", params, out); err != nil {
		return fmt.Errorf("spotify: %s search failed: %w", kind, err)
	}
	return nil
}
