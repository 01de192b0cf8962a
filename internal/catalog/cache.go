package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "crate:catalog:"

// Cached is a Catalog that stores results of another Catalog in redis.
// Redis failures are logged and the call falls through to the wrapped
// catalog. Errors and empty results are never cached.
type Cached struct {
	next   Catalog
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCached wraps next with a redis cache whose entries live for ttl.
func NewCached(next Catalog, rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *Cached {
	return &Cached{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "catalog_cache").Logger(),
	}
}

func (c *Cached) SearchTracks(ctx context.Context, query string, opts SearchOptions) ([]Track, error) {
	key := cacheKey("search_tracks", NormalizeName(query), strconv.Itoa(opts.Limit), strconv.Itoa(opts.Offset))
	return cached(ctx, c, key, func() ([]Track, error) {
		return c.next.SearchTracks(ctx, query, opts)
	})
}

func (c *Cached) ArtistTopTracks(ctx context.Context, artist ArtistRef, limit int) ([]Track, error) {
	key := cacheKey("top_tracks", artist.ID, NormalizeName(artist.Name), strconv.Itoa(limit))
	return cached(ctx, c, key, func() ([]Track, error) {
		return c.next.ArtistTopTracks(ctx, artist, limit)
	})
}

func (c *Cached) RelatedTracks(ctx context.Context, seedTrackIDs []string, limit int) ([]Track, error) {
	key := cacheKey("related", strings.Join(seedTrackIDs, ","), strconv.Itoa(limit))
	return cached(ctx, c, key, func() ([]Track, error) {
		return c.next.RelatedTracks(ctx, seedTrackIDs, limit)
	})
}

func (c *Cached) SearchPlaylists(ctx context.Context, query string, limit int) ([]Playlist, error) {
	key := cacheKey("search_playlists", NormalizeName(query), strconv.Itoa(limit))
	return cached(ctx, c, key, func() ([]Playlist, error) {
		return c.next.SearchPlaylists(ctx, query, limit)
	})
}

func (c *Cached) PlaylistTracks(ctx context.Context, playlist Playlist, limit int) ([]Track, error) {
	key := cacheKey("playlist_tracks", playlist.ID, strconv.Itoa(limit))
	return cached(ctx, c, key, func() ([]Track, error) {
		return c.next.PlaylistTracks(ctx, playlist, limit)
	})
}

func (c *Cached) ResolveArtist(ctx context.Context, name string) (ArtistRef, error) {
	key := cacheKey("artist", NormalizeName(name))
	ref, err := cached(ctx, c, key, func() ([]ArtistRef, error) {
		ref, err := c.next.ResolveArtist(ctx, name)
		if err != nil {
			return nil, err
		}
		return []ArtistRef{ref}, nil
	})
	if err != nil {
		return ArtistRef{Name: name}, err
	}
	if len(ref) == 0 {
		return ArtistRef{Name: name}, ErrNotFound
	}
	return ref[0], nil
}

// cached returns the value stored under key, or calls fetch and stores a
// non-empty result.
func cached[T any](ctx context.Context, c *Cached, key string, fetch func() ([]T, error)) ([]T, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []T
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		c.logger.Warn().Str("key", key).Msg("Dropping undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Debug().Err(err).Msg("Cache read failed")
	}

	out, err := fetch()
	if err != nil || len(out) == 0 {
		return out, err
	}

	data, err = json.Marshal(out)
	if err != nil {
		return out, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("Cache write failed")
	}
	return out, nil
}

// cacheKey builds a fixed-length key from kind and parts.
func cacheKey(kind string, parts ...string) string {
	h := sha1.Sum([]byte(strings.Join(parts, "\x1f")))
	return cacheKeyPrefix + kind + ":" + hex.EncodeToString(h[:])
}

var _ Catalog = (*Cached)(nil)
var _ Catalog = (*Spotify)(nil)
