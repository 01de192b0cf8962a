package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/generator"
	"github.com/jfmyers9/crate/internal/history"
)

// Generator runs generation requests.
type Generator interface {
	Generate(ctx context.Context, req generator.Request, em generator.Emitter) (*generator.Result, error)
	Target(n int) int
}

// Meter enforces and records per-client usage. Reserve fails with
// history.ErrQuotaExceeded when the client has nothing left; Release hands
// back a reservation whose generation failed.
type Meter interface {
	Reserve(ctx context.Context, client string) (history.Usage, error)
	Release(ctx context.Context, client string) error
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, run history.Run) error
	ListRuns(ctx context.Context, limit int) ([]history.Run, error)
}

// Config holds server configuration
type Config struct {
	Addr              string        // Listen address, e.g. ":8080"
	HeartbeatInterval time.Duration // How often HEARTBEAT is sent on open streams
	ShutdownTimeout   time.Duration // How long in-flight requests get on shutdown
	ClientHeader      string        // Header identifying the client for metering
}

// Server serves the generation API over HTTP
type Server struct {
	config Config
	gen    Generator
	meter  Meter
	runs   RunRecorder
	logger zerolog.Logger
}

// New creates a server. meter and runs may be nil.
func New(cfg Config, gen Generator, meter Meter, runs RunRecorder, logger zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ClientHeader == "" {
		cfg.ClientHeader = "X-Client-ID"
	}
	return &Server{
		config: cfg,
		gen:    gen,
		meter:  meter,
		runs:   runs,
		logger: logger.With().Str("component", "server").Logger(),
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/runs", s.handleRuns)
	})

	return r
}

// Run serves until SIGINT or SIGTERM. A second signal forces exit.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		s.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		s.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return s.Serve(ctx)
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting server")
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

// requestLogger logs every request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

// clientID identifies the caller for metering: the configured header when
// present, otherwise the remote address.
func (s *Server) clientID(r *http.Request) string {
	if id := r.Header.Get(s.config.ClientHeader); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
