package port

import (
	"context"

	"github.com/google/uuid"

	"borderdesk/internal/domain"
)

// ManifestRepository defines the contract for manifest persistence.
type ManifestRepository interface {
	Create(ctx context.Context, m *domain.Manifest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Manifest, error)
	List(ctx context.Context, status domain.ManifestStatus, offset, limit int) ([]domain.Manifest, int, error)
	UpdateData(ctx context.Context, m *domain.Manifest) error
	UpdateStatus(ctx context.Context, m *domain.Manifest) error
	// ClaimForSubmission moves a manifest to submitting only if its stored
	// status is still from. It returns ErrInvalidTransition otherwise.
	ClaimForSubmission(ctx context.Context, id uuid.UUID, from domain.ManifestStatus) error
}

// SubmissionRepository defines the contract for filing attempt persistence.
type SubmissionRepository interface {
	Create(ctx context.Context, attempt *domain.SubmissionAttempt) error
	ListByManifest(ctx context.Context, manifestID uuid.UUID) ([]domain.SubmissionAttempt, error)
}
