package generator

import (
	"sync"

	"github.com/jfmyers9/crate/internal/catalog"
)

// EventName is the name of a streamed event.
type EventName string

const (
	EventLLMStart     EventName = "LLM_START"
	EventLLMChunk     EventName = "LLM_CHUNK"
	EventLLMDone      EventName = "LLM_DONE"
	EventSpotifyStart EventName = "SPOTIFY_START"
	EventSpotifyChunk EventName = "SPOTIFY_CHUNK"
	EventSpotifyDone  EventName = "SPOTIFY_DONE"
	EventHeartbeat    EventName = "HEARTBEAT"
	EventUsageUpdate  EventName = "USAGE_UPDATE"
	EventDone         EventName = "DONE"
	EventError        EventName = "ERROR"
)

// Event is one named event with its JSON payload.
type Event struct {
	Name EventName
	Data interface{}
}

// Emitter receives events as a request progresses.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Recorder is an Emitter that keeps every event. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records ev.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

type discard struct{}

func (discard) Emit(Event) {}

// LLMStart is sent once before the prompt is interpreted.
type LLMStart struct {
	Message string `json:"message"`
}

// LLMChunk carries tracks accepted from the model's suggestions.
type LLMChunk struct {
	Tracks     []catalog.Track `json:"tracks"`
	TotalSoFar int             `json:"totalSoFar"`
	Target     int             `json:"target"`
	Progress   int             `json:"progress"`
}

// LLMDone closes the seed phase, even when it added nothing.
type LLMDone struct {
	TotalSoFar int `json:"totalSoFar"`
	Target     int `json:"target"`
}

// SpotifyStart opens one catalog attempt.
type SpotifyStart struct {
	Message   string `json:"message"`
	Remaining int    `json:"remaining"`
	Attempt   int    `json:"attempt"`
	Target    int    `json:"target"`
}

// SpotifyChunk carries tracks accepted during a catalog attempt.
type SpotifyChunk struct {
	Tracks     []catalog.Track `json:"tracks"`
	TotalSoFar int             `json:"totalSoFar"`
	Target     int             `json:"target"`
	Progress   int             `json:"progress"`
	Attempt    int             `json:"attempt"`
}

// SpotifyDone closes a catalog attempt.
type SpotifyDone struct {
	TotalSoFar int `json:"totalSoFar"`
	Attempt    int `json:"attempt"`
	Target     int `json:"target"`
}

// Heartbeat carries no data beyond the time it was sent, in unix millis.
type Heartbeat struct {
	Timestamp int64 `json:"timestamp"`
}

// UsageUpdate reports the caller's quota after a generation was counted.
type UsageUpdate struct {
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Unlimited bool   `json:"unlimited"`
	Plan      string `json:"plan"`
}

// Done is the terminal event of a successful request and holds the final
// track list.
type Done struct {
	Tracks     []catalog.Track `json:"tracks"`
	TotalSoFar int             `json:"totalSoFar"`
	Partial    bool            `json:"partial"`
	Reason     string          `json:"reason,omitempty"`
	Duration   int64           `json:"duration"` // milliseconds
}

// ErrorData is the terminal event of a failed request.
type ErrorData struct {
	Error      string `json:"error"`
	TotalSoFar int    `json:"totalSoFar"`
}

// progress returns the completion percentage, capped at 100.
func progress(have, target int) int {
	if target <= 0 {
		return 100
	}
	p := have * 100 / target
	if p > 100 {
		return 100
	}
	return p
}
