package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"borderdesk/internal/domain"
	"borderdesk/internal/port"
)

type submissionRepo struct {
	db *sqlx.DB
}

// NewSubmissionRepo creates a new PostgreSQL-backed SubmissionRepository.
func NewSubmissionRepo(db *sqlx.DB) port.SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, a *domain.SubmissionAttempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	errs := a.Errors
	if len(errs) == 0 {
		errs = []byte("[]")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submission_attempts
			(id, manifest_id, send_id, status, status_code, errors, archive_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ManifestID, a.SendID, a.Status, a.StatusCode, errs, a.ArchiveKey, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("submissionRepo.Create: %w", err)
	}
	return nil
}

func (r *submissionRepo) ListByManifest(ctx context.Context, manifestID uuid.UUID) ([]domain.SubmissionAttempt, error) {
	attempts := []domain.SubmissionAttempt{}
	err := r.db.SelectContext(ctx, &attempts,
		`SELECT * FROM submission_attempts
		 WHERE manifest_id = $1
		 ORDER BY created_at DESC`, manifestID)
	if err != nil {
		return nil, fmt.Errorf("submissionRepo.ListByManifest: %w", err)
	}
	return attempts, nil
}
