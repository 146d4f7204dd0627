package extraction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"borderdesk/internal/domain"
	"borderdesk/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackExtractor tries providers in order, skipping those with open circuits.
// Only ModelUnavailable failures fall through to the next provider; a
// malformed response is returned as is.
type FallbackExtractor struct {
	extractors []port.StructuredExtractor
	circuits   []*circuitState
	names      []string
	now        func() time.Time
}

// NewFallbackExtractor creates a FallbackExtractor from an ordered list of extractors and their names.
func NewFallbackExtractor(extractors []port.StructuredExtractor, names []string) *FallbackExtractor {
	circuits := make([]*circuitState, len(extractors))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackExtractor{
		extractors: extractors,
		circuits:   circuits,
		names:      names,
		now:        time.Now,
	}
}

func (f *FallbackExtractor) Extract(ctx context.Context, prompt port.Prompt) (*domain.ExtractedManifest, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, ex := range f.extractors {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("extraction.FallbackExtractor: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := ex.Extract(ctx, prompt)
		if err == nil {
			return out, nil
		}

		log.Printf("extraction.FallbackExtractor: %s failed: %v", f.names[i], err)
		if !errors.Is(err, domain.ErrModelUnavailable) {
			return nil, err
		}
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all providers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
