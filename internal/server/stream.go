package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/generator"
)

// stream writes generator events to a response as server-sent events. Emit
// may be called from several goroutines; writes are serialized and every
// event is flushed immediately.
type stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	logger  zerolog.Logger
	closed  bool
	failed  bool
}

func newStream(w http.ResponseWriter, flusher http.Flusher, logger zerolog.Logger) *stream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &stream{w: w, flusher: flusher, logger: logger}
}

// Emit implements generator.Emitter.
func (s *stream) Emit(ev generator.Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		s.logger.Error().Err(err).Str("event", string(ev.Name)).Msg("Failed to encode event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.failed {
		return
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
		// The client went away; the request context is cancelled as well.
		s.failed = true
		s.logger.Debug().Err(err).Msg("Failed to write event")
		return
	}
	s.flusher.Flush()
}

// close stops all further writes. The response writer must not be used
// after the handler returns.
func (s *stream) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// heartbeat emits HEARTBEAT every interval until stop is closed. It returns
// a channel that is closed once the goroutine exited.
func (s *stream) heartbeat(interval time.Duration, stop <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if interval <= 0 {
			<-stop
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case t := <-ticker.C:
				s.Emit(generator.Event{
					Name: generator.EventHeartbeat,
					Data: generator.Heartbeat{Timestamp: t.UnixMilli()},
				})
			}
		}
	}()
	return done
}
