package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"borderdesk/internal/domain"
	"borderdesk/internal/export"
	"borderdesk/internal/service"
)

// MockManifestService is a mock implementation of service.ManifestService.
type MockManifestService struct {
	mock.Mock
}

func (m *MockManifestService) Extract(ctx context.Context, input *service.ExtractInput) (*service.ExtractOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractOutput), args.Error(1)
}

func (m *MockManifestService) ExtractBatch(ctx context.Context, inputs []service.ExtractInput) []service.BatchItem {
	args := m.Called(ctx, inputs)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]service.BatchItem)
}

func (m *MockManifestService) CreateManifest(ctx context.Context, input *service.CreateManifestInput) (*domain.Manifest, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manifest), args.Error(1)
}

func (m *MockManifestService) UpdateManifest(ctx context.Context, input *service.UpdateManifestInput) (*domain.Manifest, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manifest), args.Error(1)
}

func (m *MockManifestService) GetManifest(ctx context.Context, id uuid.UUID) (*domain.Manifest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Manifest), args.Error(1)
}

func (m *MockManifestService) ListManifests(ctx context.Context, status domain.ManifestStatus, offset, limit int) ([]domain.Manifest, int, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Manifest), args.Int(1), args.Error(2)
}

func (m *MockManifestService) Submit(ctx context.Context, input *service.SubmitInput) (*service.SubmitOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitOutput), args.Error(1)
}

func (m *MockManifestService) ListSubmissions(ctx context.Context, manifestID uuid.UUID) ([]service.SubmissionView, error) {
	args := m.Called(ctx, manifestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.SubmissionView), args.Error(1)
}

func (m *MockManifestService) Export(ctx context.Context, manifestID uuid.UUID, format export.Format) (*service.ExportOutput, error) {
	args := m.Called(ctx, manifestID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportOutput), args.Error(1)
}
