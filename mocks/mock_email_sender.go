package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"borderdesk/internal/port"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendFilingRejected(ctx context.Context, toEmail string, notice port.RejectionNotice) error {
	args := m.Called(ctx, toEmail, notice)
	return args.Error(0)
}
