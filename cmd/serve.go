package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/config"
	"github.com/jfmyers9/crate/internal/history"
	"github.com/jfmyers9/crate/internal/server"
)

var (
	serveAddr    string
	serveDataDir string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playlist generation API",
	Long: `Run the HTTP API that generates playlists from prompts.

Endpoints:
  POST /api/v1/generate   stream a generation as server-sent events
  GET  /api/v1/runs       list recently generated playlists
  GET  /health            liveness check

The server runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a rotated file.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "Data directory for the history database (default: ~/.local/share/crate)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger := setupLogger(logFile, logLevel)

	logger.Info().
		Str("version", version).
		Msg("Starting crate server")

	c, err := buildComponents(cmd.Context(), cfg, serveDataDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	quota := history.NewQuota(c.history, cfg.Usage.DailyLimit, cfg.Usage.Plan)

	srv := server.New(server.Config{
		Addr:              cfg.Server.Addr,
		HeartbeatInterval: cfg.Server.HeartbeatInterval,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		ClientHeader:      cfg.Server.ClientHeader,
	}, c.engine, quota, c.history, logger)

	// Run server (blocks until shutdown signal)
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	if cfg.History.Retention > 0 {
		deleted, err := c.history.Cleanup(context.Background(), cfg.History.Retention)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to prune history")
		} else if deleted > 0 {
			logger.Info().Int64("deleted", deleted).Msg("Pruned old runs")
		}
	}

	logger.Info().Msg("Server stopped")
	return nil
}
