package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"borderdesk/internal/domain"
	"borderdesk/internal/port"
)

// MockStructuredExtractor is a mock implementation of port.StructuredExtractor.
type MockStructuredExtractor struct {
	mock.Mock
}

func (m *MockStructuredExtractor) Extract(ctx context.Context, prompt port.Prompt) (*domain.ExtractedManifest, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedManifest), args.Error(1)
}
