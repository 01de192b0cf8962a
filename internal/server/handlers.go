package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jfmyers9/crate/internal/generator"
	"github.com/jfmyers9/crate/internal/history"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200

	// recordTimeout bounds the bookkeeping done after a stream finished.
	recordTimeout = 5 * time.Second
)

type generateRequest struct {
	Prompt       string `json:"prompt"`
	TargetTracks int    `json:"target_tracks"`
}

type errorResponse struct {
	Error string         `json:"error"`
	Usage *history.Usage `json:"usage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Prompt = strings.TrimSpace(body.Prompt)
	if body.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if body.TargetTracks < 0 {
		writeError(w, http.StatusBadRequest, "target_tracks must not be negative")
		return
	}

	client := s.clientID(r)
	var usage history.Usage
	if s.meter != nil {
		u, err := s.meter.Reserve(r.Context(), client)
		if errors.Is(err, history.ErrQuotaExceeded) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "daily quota exceeded", Usage: &u})
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Str("client", client).Msg("Failed to reserve usage")
			writeError(w, http.StatusInternalServerError, "failed to check usage")
			return
		}
		usage = u
	}
	consumed := false
	defer func() {
		if s.meter != nil && !consumed {
			s.release(r.Context(), client)
		}
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	req := generator.Request{
		ID:           uuid.NewString(),
		Prompt:       body.Prompt,
		TargetTracks: s.gen.Target(body.TargetTracks),
	}
	logger := s.logger.With().Str("request_id", req.ID).Str("client", client).Logger()

	st := newStream(w, flusher, logger)
	defer st.close()

	stop := make(chan struct{})
	hbDone := st.heartbeat(s.config.HeartbeatInterval, stop)

	res, err := s.gen.Generate(r.Context(), req, st)

	close(stop)
	<-hbDone

	if err != nil {
		if r.Context().Err() != nil {
			logger.Info().Msg("Client disconnected")
		} else {
			logger.Warn().Err(err).Msg("Generation failed")
		}
		return
	}
	if res == nil || len(res.Tracks) == 0 {
		return
	}

	consumed = true

	if s.runs != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), recordTimeout)
		defer cancel()
		if err := s.runs.SaveRun(ctx, runFromResult(res)); err != nil {
			logger.Error().Err(err).Msg("Failed to record run")
		}
	}

	if s.meter != nil {
		st.Emit(generator.Event{Name: generator.EventUsageUpdate, Data: generator.UsageUpdate{
			Used:      usage.Used,
			Remaining: usage.Remaining,
			Limit:     usage.Limit,
			Unlimited: usage.Unlimited,
			Plan:      usage.Plan,
		}})
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusOK, []history.Run{})
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list runs")
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func runFromResult(res *generator.Result) history.Run {
	return history.Run{
		ID:       res.ID,
		Prompt:   res.Prompt,
		Mode:     string(res.Mode),
		Target:   res.Target,
		Partial:  res.Partial,
		Reason:   res.Reason,
		Duration: res.Duration,
		Tracks:   res.Tracks,
	}
}

// release returns a reservation. It runs after the request may have been
// cancelled, so it gets its own deadline.
func (s *Server) release(parent context.Context, client string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), recordTimeout)
	defer cancel()
	if err := s.meter.Release(ctx, client); err != nil {
		s.logger.Error().Err(err).Str("client", client).Msg("Failed to release usage")
	}
}
