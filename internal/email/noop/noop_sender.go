package noop

import (
	"context"
	"log"

	"borderdesk/internal/email"
	"borderdesk/internal/port"
)

type noopSender struct{}

// NewNoopSender creates a no-op EmailSender that logs notices to stdout.
func NewNoopSender() port.EmailSender {
	return &noopSender{}
}

func (s *noopSender) SendFilingRejected(_ context.Context, toEmail string, notice port.RejectionNotice) error {
	log.Printf("[NOOP EMAIL] %s to %s (send %s, %d errors)", email.RejectionSubject(notice), toEmail, notice.SendID, len(notice.Errors))
	return nil
}
