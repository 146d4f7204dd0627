package extraction

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"borderdesk/internal/domain"
)

// RateLimitError indicates an extraction provider returned HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

func (e *RateLimitError) Is(target error) bool { return target == domain.ErrModelUnavailable }

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// ProviderError is a transport or HTTP-level failure talking to a provider.
// StatusCode is 0 when no response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
	Transient  bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s unavailable (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == domain.ErrModelUnavailable }

// MalformedResponseError means the provider answered but the content was not a
// single JSON object.
type MalformedResponseError struct {
	Provider string
	Reason   string
	Raw      string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s returned malformed content: %s (raw: %s)", e.Provider, e.Reason, truncate(e.Raw, 500))
}

func (e *MalformedResponseError) Is(target error) bool { return target == domain.ErrMalformedResponse }

// IsTransient reports whether a failed call is worth repeating.
func IsTransient(err error) bool {
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
