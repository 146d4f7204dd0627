// Package filing builds BorderConnect submissions and interprets the replies.
package filing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"borderdesk/internal/config"
	"borderdesk/internal/domain"
	"borderdesk/internal/port"
)

const defaultTimeout = 15 * time.Second

// Exchange is everything one filing attempt produced.
type Exchange struct {
	Request  *domain.SubmissionRequest
	Response []byte
	Result   *domain.SubmissionResult
}

// Coordinator drives a validated manifest through one filing attempt.
type Coordinator struct {
	client     port.FilingClient
	companyKey string
	timeout    time.Duration
	autoSend   bool
	newID      func() string
	now        func() time.Time
}

// NewCoordinator creates a Coordinator. cfg.TimeoutSecs bounds each filing call.
func NewCoordinator(client port.FilingClient, cfg *config.FilingConfig) *Coordinator {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Coordinator{
		client:     client,
		companyKey: cfg.CompanyKey,
		timeout:    timeout,
		autoSend:   cfg.AutoSend,
		newID:      func() string { return uuid.New().String() },
		now:        time.Now,
	}
}

// WithClock replaces the id generator and clock.
func (c *Coordinator) WithClock(newID func() string, now func() time.Time) *Coordinator {
	c.newID = newID
	c.now = now
	return c
}

// WithTimeout replaces the per-call timeout.
func (c *Coordinator) WithTimeout(d time.Duration) *Coordinator {
	c.timeout = d
	return c
}

// Submit files vm and returns the interpreted result. vm.Status moves from
// validated through submitting to a terminal state. On rejection or
// unavailability the result is returned alongside the error.
func (c *Coordinator) Submit(ctx context.Context, vm *domain.ValidatedManifest, manifestType domain.ManifestType, trip domain.TripMetadata) (*domain.SubmissionResult, error) {
	ex, err := c.SubmitExchange(ctx, vm, manifestType, trip)
	if ex == nil {
		return nil, err
	}
	return ex.Result, err
}

// SubmitExchange is Submit that also returns the request sent and the raw reply.
func (c *Coordinator) SubmitExchange(ctx context.Context, vm *domain.ValidatedManifest, manifestType domain.ManifestType, trip domain.TripMetadata) (*Exchange, error) {
	if vm == nil {
		return nil, fmt.Errorf("%w: no manifest", domain.ErrNotComplete)
	}
	if err := Transition(vm.Status, domain.ManifestStatusSubmitting); err != nil {
		return nil, err
	}
	trip.AutoSend = trip.AutoSend || c.autoSend

	req, err := BuildRequest(vm, manifestType, trip, c.companyKey, c.newID)
	if err != nil {
		return nil, err
	}
	vm.Status = domain.ManifestStatusSubmitting

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	resp, sendErr := c.client.Send(callCtx, req)

	ex := &Exchange{Request: req}
	result := &domain.SubmissionResult{SendID: req.SendID}

	if sendErr != nil {
		result.Status = domain.SubmissionStatusError
		result.Message = "filing system unreachable"
		if errors.Is(sendErr, context.DeadlineExceeded) {
			result.Message = fmt.Sprintf("filing request timed out after %s", c.timeout)
		}
		result.Timestamp = c.now()
		ex.Result = result
		vm.Status = domain.ManifestStatusError
		log.Printf("filing.Coordinator.Submit: send %s failed: %v", req.SendID, sendErr)
		return ex, &domain.FilingUnavailableError{Err: sendErr}
	}

	ex.Response = resp.Body
	status, details, msg, err := interpret(resp.StatusCode, resp.Body)
	result.Status = status
	result.Errors = details
	result.Message = msg
	result.StatusCode = resp.StatusCode
	result.Timestamp = c.now()
	ex.Result = result
	vm.Status = terminalStatus(status)

	log.Printf("filing.Coordinator.Submit: send %s -> %s (http %d, %s)", req.SendID, status, resp.StatusCode, result.Timestamp.Sub(start))
	return ex, err
}

func terminalStatus(s domain.SubmissionStatus) domain.ManifestStatus {
	switch s {
	case domain.SubmissionStatusAccepted:
		return domain.ManifestStatusAccepted
	case domain.SubmissionStatusRejected:
		return domain.ManifestStatusRejected
	default:
		return domain.ManifestStatusError
	}
}
