package spotify

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a Spotify Web API error.
//
// The Error type carries the HTTP status and the message returned by the
// API. It implements error, and provides additional methods for retry logic.
type Error struct {
	Status  int    // HTTP status code
	Message string // Error message from Spotify
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("spotify: error %d: %s", e.Status, e.Message)
}

// Is checks if the target error is a Spotify error with the same status.
//
// This allows errors.Is() to work with *Error types.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// Temporary returns true if the error is temporary and the request
// should be retried.
//
// The following statuses are considered temporary:
//   - 429: Too Many Requests
//   - 500, 502, 503, 504: server side failures
func (e *Error) Temporary() bool {
	switch e.Status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Predefined errors for common cases.
var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = &Error{Status: http.StatusNotFound, Message: "not found"}

	// ErrUnauthorized is returned when the access token is rejected.
	ErrUnauthorized = &Error{Status: http.StatusUnauthorized, Message: "unauthorized"}

	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("spotify: invalid configuration")
)

// IsTemporary reports whether err is a temporary Spotify error.
func IsTemporary(err error) bool {
	var spotifyErr *Error
	if errors.As(err, &spotifyErr) {
		return spotifyErr.Temporary()
	}
	return false
}
