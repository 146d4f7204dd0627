package extraction

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"borderdesk/internal/config"
	"borderdesk/internal/domain"
)

const (
	defaultMaxAttempts    = 3
	defaultBaseDelay      = time.Second
	defaultAttemptTimeout = 30 * time.Second
)

// RetryPolicy bounds how a provider call is repeated after transient failures.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

// PolicyFromConfig builds a RetryPolicy, falling back to defaults for unset values.
func PolicyFromConfig(cfg *config.ExtractorProviderConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts:    cfg.MaxRetries,
		BaseDelay:      cfg.RetryBaseDelay,
		AttemptTimeout: time.Duration(cfg.TimeoutSecs) * time.Second,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = defaultAttemptTimeout
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.BaseDelay << 4
	b.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Attempt performs one provider call under the given context.
type Attempt func(ctx context.Context) (*domain.ExtractedManifest, error)

// Retry runs call until it succeeds, fails permanently or the policy is
// exhausted. Each attempt gets its own timeout derived from ctx.
func Retry(ctx context.Context, policy RetryPolicy, provider string, call Attempt) (*domain.ExtractedManifest, error) {
	var out *domain.ExtractedManifest
	attempt := 0

	op := func() error {
		attempt++
		attemptCtx := ctx
		if policy.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
			defer cancel()
		}

		res, err := call(attemptCtx)
		if err != nil {
			if !IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Printf("extraction.Retry: %s attempt %d failed, retrying in %s: %v", provider, attempt, wait, err)
	}

	if err := backoff.RetryNotify(op, policy.backOff(ctx), notify); err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) || errors.Is(err, domain.ErrMalformedResponse) {
			return nil, err
		}
		return nil, &ProviderError{Provider: provider, Err: err, Transient: IsTransient(err)}
	}
	return out, nil
}
