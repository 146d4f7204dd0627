package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"borderdesk/internal/domain"
)

// MockManifestRepo is a mock implementation of port.ManifestRepository.
type MockManifestRepo struct {
	mock.Mock
}

func (m *MockManifestRepo) Create(ctx context.Context, manifest *domain.Manifest) error {
	args := m.Called(ctx, manifest)
	return args.Error(0)
}

func (m *MockManifestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Manifest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manifest), args.Error(1)
}

func (m *MockManifestRepo) List(ctx context.Context, status domain.ManifestStatus, offset, limit int) ([]domain.Manifest, int, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Manifest), args.Int(1), args.Error(2)
}

func (m *MockManifestRepo) UpdateData(ctx context.Context, manifest *domain.Manifest) error {
	args := m.Called(ctx, manifest)
	return args.Error(0)
}

func (m *MockManifestRepo) UpdateStatus(ctx context.Context, manifest *domain.Manifest) error {
	args := m.Called(ctx, manifest)
	return args.Error(0)
}

func (m *MockManifestRepo) ClaimForSubmission(ctx context.Context, id uuid.UUID, from domain.ManifestStatus) error {
	args := m.Called(ctx, id, from)
	return args.Error(0)
}

// MockSubmissionRepo is a mock implementation of port.SubmissionRepository.
type MockSubmissionRepo struct {
	mock.Mock
}

func (m *MockSubmissionRepo) Create(ctx context.Context, attempt *domain.SubmissionAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockSubmissionRepo) ListByManifest(ctx context.Context, manifestID uuid.UUID) ([]domain.SubmissionAttempt, error) {
	args := m.Called(ctx, manifestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SubmissionAttempt), args.Error(1)
}
