package mocks

import (
	"github.com/stretchr/testify/mock"

	"borderdesk/internal/domain"
)

// MockTextExtractor is a mock implementation of port.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractDocument(doc domain.RawDocument) (string, error) {
	args := m.Called(doc)
	return args.String(0), args.Error(1)
}
