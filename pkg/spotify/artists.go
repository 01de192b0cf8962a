package spotify

import (
	"context"
	"fmt"
	"net/url"
)

// ArtistService provides artist lookups.
type ArtistService struct {
	client *Client
}

// TopTracks returns an artist's most popular tracks in the client market.
//
// The API returns at most 10 tracks. When no market is configured "US" is
// used, since the endpoint requires one.
func (s *ArtistService) TopTracks(ctx context.Context, artistID string) ([]Track, error) {
	if artistID == "" {
		return nil, fmt.Errorf("spotify: artist id is required")
	}

	market := s.client.market
	if market == "" {
		market = "US"
	}
	params := url.Values{}
	params.Set("market", market)

	var resp struct {
		Tracks []Track `json:"tracks"`
	}
	if err := s.client.get(ctx, "/artists/"+url.PathEscape(artistID)+"/top-tracks", params, &resp); err != nil {
		return nil, fmt.Errorf("spotify: top tracks failed: %w", err)
	}
	return resp.Tracks, nil
}
