package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnsupportedKind   = errors.New("unsupported file kind")
	ErrFileTooLarge      = errors.New("file exceeds maximum allowed size")
	ErrExtractionFailure = errors.New("text extraction failed")
	ErrInvalidContext    = errors.New("invalid manifest context")
	ErrModelUnavailable  = errors.New("language model unavailable")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrSchemaViolation   = errors.New("manifest violates schema")
	ErrNotComplete       = errors.New("manifest is not complete")
	ErrInvalidTrip       = errors.New("invalid trip metadata")
	ErrFilingUnavailable = errors.New("filing system unavailable")
	ErrFilingRejected    = errors.New("filing rejected")
	ErrInvalidTransition = errors.New("invalid manifest status transition")
)

// FieldError describes one offending field. Field uses dotted paths with
// bracketed indexes, e.g. "commodities[0].quantity".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + ": " + f.Message
}

func joinFieldErrors(errs []FieldError) string {
	parts := make([]string, len(errs))
	for i, fe := range errs {
		parts[i] = fe.String()
	}
	return strings.Join(parts, "; ")
}

// ExtractionError wraps a failure while turning document bytes into text.
type ExtractionError struct {
	Kind FileKind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s text: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtractionFailure }

// SchemaViolationError carries every field that failed validation.
type SchemaViolationError struct {
	FieldErrors []FieldError
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("%s (%d field errors): %s", ErrSchemaViolation, len(e.FieldErrors), joinFieldErrors(e.FieldErrors))
}

func (e *SchemaViolationError) Is(target error) bool { return target == ErrSchemaViolation }

// ContextError is returned when the caller-supplied manifest context is unusable.
type ContextError struct {
	FieldErrors []FieldError
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidContext, joinFieldErrors(e.FieldErrors))
}

func (e *ContextError) Is(target error) bool { return target == ErrInvalidContext }

// TripError is returned when trip metadata is missing required values.
type TripError struct {
	FieldErrors []FieldError
}

func (e *TripError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidTrip, joinFieldErrors(e.FieldErrors))
}

func (e *TripError) Is(target error) bool { return target == ErrInvalidTrip }

// FilingRejectedError is a caller-actionable terminal rejection by the filing system.
type FilingRejectedError struct {
	StatusCode int
	Details    []FieldError
}

func (e *FilingRejectedError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", ErrFilingRejected, e.StatusCode, joinFieldErrors(e.Details))
}

func (e *FilingRejectedError) Is(target error) bool { return target == ErrFilingRejected }

// FilingUnavailableError covers transport failures and upstream responses that
// could not be interpreted. StatusCode is 0 when no response was received.
type FilingUnavailableError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *FilingUnavailableError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", ErrFilingUnavailable, e.Err)
	}
	return fmt.Sprintf("%s (status %d): %s", ErrFilingUnavailable, e.StatusCode, e.Body)
}

func (e *FilingUnavailableError) Unwrap() error { return e.Err }

func (e *FilingUnavailableError) Is(target error) bool { return target == ErrFilingUnavailable }
