package port

import (
	"context"

	"borderdesk/internal/domain"
)

// RejectionNotice summarizes a rejected filing for the operations mailbox.
type RejectionNotice struct {
	ManifestID            string
	ShipmentControlNumber string
	TripNumber            string
	SendID                string
	Errors                []domain.FieldError
}

// EmailSender defines the contract for sending operational emails.
type EmailSender interface {
	SendFilingRejected(ctx context.Context, toEmail string, notice RejectionNotice) error
}
