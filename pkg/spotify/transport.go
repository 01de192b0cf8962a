package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// apiError is the JSON error envelope returned by the Web API.
type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

const maxRetries = 3

// get makes a GET request to the Web API with retry logic and decodes the
// JSON response into out.
//
// It handles:
// - Rate limiting (when configured)
// - Bearer token acquisition and refresh on 401
// - Retry with exponential backoff on network errors, 429 and 5xx
// - Context cancellation
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	refreshed := false

	for i := 0; i < maxRetries; i++ {
		c.logDebugf("spotify: GET %s (attempt %d/%d)", path, i+1, maxRetries)

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to get access token: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "crate/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if shouldRetryNetworkError(err) && i < maxRetries-1 {
				c.logDebugf("spotify: network error, retrying: %v", err)
				if !sleep(ctx, backoff) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return fmt.Errorf("http request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to parse JSON response: %w", err)
			}
			c.logDebugf("spotify: GET %s succeeded", path)
			return nil
		}

		spotifyErr := parseError(resp.StatusCode, body)

		// Expired token: refresh once and retry immediately
		if resp.StatusCode == http.StatusUnauthorized && !refreshed {
			refreshed = true
			c.tokens.Invalidate()
			lastErr = spotifyErr
			continue
		}

		if spotifyErr.Temporary() && i < maxRetries-1 {
			lastErr = spotifyErr
			wait := backoff
			if ra := retryAfter(resp.Header.Get("Retry-After")); ra > 0 {
				wait = ra
			}
			c.logDebugf("spotify: temporary error, retrying in %s: %v", wait, spotifyErr)
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}

		return spotifyErr
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// parseError builds an *Error from a non-200 response.
func parseError(status int, body []byte) *Error {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error.Message != "" {
		return &Error{Status: status, Message: ae.Error.Message}
	}
	return &Error{Status: status, Message: http.StatusText(status)}
}

// retryAfter parses a Retry-After header in seconds.
// Values are capped at 30 seconds.
func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

// shouldRetryNetworkError checks if a network error is retryable.
func shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff calculates the next backoff duration with exponential increase.
// Maximum backoff is capped at 10 seconds.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 10*time.Second {
		return 10 * time.Second
	}
	return next
}
