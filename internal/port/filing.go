package port

import (
	"context"

	"borderdesk/internal/domain"
)

// FilingResponse is the raw upstream answer to a filing call.
type FilingResponse struct {
	StatusCode int
	Body       []byte
}

// FilingClient posts a submission to the border filing system. It returns an
// error only when no HTTP response was received.
type FilingClient interface {
	Send(ctx context.Context, req *domain.SubmissionRequest) (*FilingResponse, error)
}
