package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"borderdesk/internal/domain"
	"borderdesk/internal/port"
)

type manifestRepo struct {
	db *sqlx.DB
}

// NewManifestRepo creates a new PostgreSQL-backed ManifestRepository.
func NewManifestRepo(db *sqlx.DB) port.ManifestRepository {
	return &manifestRepo{db: db}
}

func (r *manifestRepo) Create(ctx context.Context, m *domain.Manifest) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	query := `INSERT INTO manifests
		(id, manifest_type, border_crossing, crossing_time, data, complete,
		 missing_fields, status, trip_number, last_send_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ManifestType, m.BorderCrossing, m.CrossingTime, m.Data, m.Complete,
		missingOrEmpty(m), m.Status, m.TripNumber, m.LastSendID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("manifestRepo.Create: %w", err)
	}
	return nil
}

func (r *manifestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Manifest, error) {
	var m domain.Manifest
	err := r.db.GetContext(ctx, &m, "SELECT * FROM manifests WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("manifestRepo.GetByID: %w", err)
	}
	return &m, nil
}

// List returns manifests newest first. An empty status matches every status.
func (r *manifestRepo) List(ctx context.Context, status domain.ManifestStatus, offset, limit int) ([]domain.Manifest, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM manifests WHERE ($1 = '' OR status = $1)", string(status))
	if err != nil {
		return nil, 0, fmt.Errorf("manifestRepo.List count: %w", err)
	}

	manifests := []domain.Manifest{}
	err = r.db.SelectContext(ctx, &manifests,
		`SELECT * FROM manifests
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("manifestRepo.List: %w", err)
	}
	return manifests, total, nil
}

func (r *manifestRepo) UpdateData(ctx context.Context, m *domain.Manifest) error {
	m.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE manifests SET
			data = $1, complete = $2, missing_fields = $3, status = $4, updated_at = $5
		 WHERE id = $6`,
		m.Data, m.Complete, missingOrEmpty(m), m.Status, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("manifestRepo.UpdateData: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *manifestRepo) UpdateStatus(ctx context.Context, m *domain.Manifest) error {
	m.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE manifests SET
			status = $1, trip_number = $2, last_send_id = $3, updated_at = $4
		 WHERE id = $5`,
		m.Status, m.TripNumber, m.LastSendID, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("manifestRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *manifestRepo) ClaimForSubmission(ctx context.Context, id uuid.UUID, from domain.ManifestStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE manifests SET status = $1, updated_at = $2
		 WHERE id = $3 AND status = $4`,
		domain.ManifestStatusSubmitting, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("manifestRepo.ClaimForSubmission: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: manifest %s is no longer %s", domain.ErrInvalidTransition, id, from)
	}
	return nil
}

func missingOrEmpty(m *domain.Manifest) []byte {
	if len(m.MissingFields) == 0 {
		return []byte("[]")
	}
	return m.MissingFields
}
