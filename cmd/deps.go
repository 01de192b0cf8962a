package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/config"
	"github.com/jfmyers9/crate/internal/generator"
	"github.com/jfmyers9/crate/internal/history"
	"github.com/jfmyers9/crate/internal/intent"
	"github.com/jfmyers9/crate/pkg/spotify"
)

// components are the long-lived pieces shared by serve and generate.
type components struct {
	engine  *generator.Engine
	history *history.Store
	redis   *redis.Client
}

func (c *components) Close() error {
	var firstErr error
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			firstErr = err
		}
	}
	if c.history != nil {
		if err := c.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildComponents wires the catalog, intent resolver, engine and history
// store from cfg. dataDir overrides the configured history location.
func buildComponents(ctx context.Context, cfg *config.Config, dataDir string, logger zerolog.Logger) (*components, error) {
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return nil, fmt.Errorf("Spotify credentials not configured. Run 'crate setup' first")
	}

	client, err := spotify.NewClient(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		Market:       cfg.Spotify.Market,
		RateLimit:    cfg.Spotify.RateLimit,
		HTTPClient:   &http.Client{Timeout: 15 * time.Second},
		Logger:       catalog.DebugLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify client: %w", err)
	}

	c := &components{}

	var cat catalog.Catalog = catalog.NewSpotify(client, logger)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// The cache is optional; run without it
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, catalog cache disabled")
			_ = rdb.Close()
		} else {
			c.redis = rdb
			cat = catalog.NewCached(cat, rdb, cfg.Redis.TTL, logger)
			logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("Catalog cache enabled")
		}
	}

	var resolver intent.Resolver = intent.PromptResolver{}
	if cfg.OpenAI.APIKey != "" {
		r, err := intent.NewOpenAIResolver(intent.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}, logger)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to create intent resolver: %w", err)
		}
		resolver = r
	} else {
		logger.Warn().Msg("No OpenAI API key configured, using the built-in prompt parser")
	}

	c.engine = generator.New(cat, resolver, generator.Config{
		DefaultTarget:    cfg.Generator.DefaultTarget,
		MaxTarget:        cfg.Generator.MaxTarget,
		MaxFillAttempts:  cfg.Generator.MaxFillAttempts,
		DeadlineBase:     cfg.Generator.DeadlineBase,
		DeadlinePerTrack: cfg.Generator.DeadlinePerTrack,
		DeadlineMax:      cfg.Generator.DeadlineMax,
	}, logger)

	dbPath, err := historyPath(cfg, dataDir)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	c.history = store
	logger.Debug().Str("path", dbPath).Msg("Using history database")

	return c, nil
}

// historyPath resolves the history database location and makes sure its
// directory exists.
func historyPath(cfg *config.Config, dataDir string) (string, error) {
	if dataDir == "" && cfg.History.DBPath != "" {
		return cfg.History.DBPath, nil
	}
	if dataDir == "" {
		dir, err := config.DataDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = dir
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dataDir, "history.db"), nil
}
