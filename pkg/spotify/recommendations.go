package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RecommendationService provides seed-based track recommendations.
type RecommendationService struct {
	client *Client
}

const (
	// MaxSeeds is the maximum number of seeds accepted per request.
	MaxSeeds = 5

	// MaxRecommendations is the maximum number of tracks returned per request.
	MaxRecommendations = 100
)

// Get returns tracks related to the given seed track ids.
//
// At most MaxSeeds seeds are sent; extra seeds are ignored.
func (s *RecommendationService) Get(ctx context.Context, seedTrackIDs []string, limit int) ([]Track, error) {
	if len(seedTrackIDs) == 0 {
		return nil, fmt.Errorf("spotify: at least one seed track is required")
	}
	if len(seedTrackIDs) > MaxSeeds {
		seedTrackIDs = seedTrackIDs[:MaxSeeds]
	}
	if limit <= 0 || limit > MaxRecommendations {
		limit = MaxRecommendations
	}

	params := url.Values{}
	params.Set("seed_tracks", strings.Join(seedTrackIDs, ","))
	params.Set("limit", strconv.Itoa(limit))
	if s.client.market != "" {
		params.Set("market", s.client.market)
	}

	var resp struct {
		Tracks []Track `json:"tracks"`
	}
	if err := s.client.get(ctx, "/recommendations", params, &resp); err != nil {
		return nil, fmt.Errorf("spotify: recommendations failed: %w", err)
	}
	return resp.Tracks, nil
}
