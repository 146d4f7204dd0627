package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"borderdesk/internal/domain"
	"borderdesk/internal/port"
)

// MockFilingClient is a mock implementation of port.FilingClient.
type MockFilingClient struct {
	mock.Mock
}

func (m *MockFilingClient) Send(ctx context.Context, req *domain.SubmissionRequest) (*port.FilingResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.FilingResponse), args.Error(1)
}
