//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"borderdesk/internal/domain"
	"borderdesk/internal/port"
	"borderdesk/internal/repository/postgres"
)

type RepoSuite struct {
	suite.Suite

	container   testcontainers.Container
	db          *sqlx.DB
	manifests   port.ManifestRepository
	submissions port.SubmissionRepository
}

func TestRepoSuite(t *testing.T) {
	suite.Run(t, new(RepoSuite))
}

func (s *RepoSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("borderdesk"),
		tcpostgres.WithUsername("borderdesk"),
		tcpostgres.WithPassword("borderdesk"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err, "starting postgres container")
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	m, err := migrate.New("file://../../../db/migrations", dsn)
	s.Require().NoError(err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		s.Require().NoError(err, "applying migrations")
	}
	_, _ = m.Close()

	s.db, err = sqlx.Connect("pgx", dsn)
	s.Require().NoError(err)
	s.manifests = postgres.NewManifestRepo(s.db)
	s.submissions = postgres.NewSubmissionRepo(s.db)
}

func (s *RepoSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *RepoSuite) SetupTest() {
	_, err := s.db.Exec("TRUNCATE submission_attempts, manifests")
	s.Require().NoError(err)
}

func (s *RepoSuite) newManifest(status domain.ManifestStatus) *domain.Manifest {
	return &domain.Manifest{
		ID:             uuid.New(),
		ManifestType:   "ACE",
		BorderCrossing: "Ambassador Bridge",
		CrossingTime:   "2026-06-02 09:30",
		Data:           json.RawMessage(`{"shipment":{"shipment_control_number":"S1"},"commodities":[]}`),
		Complete:       status == domain.ManifestStatusValidated,
		MissingFields:  json.RawMessage(`["shipment.type"]`),
		Status:         status,
	}
}

func (s *RepoSuite) TestCreateAndGet() {
	ctx := context.Background()
	m := s.newManifest(domain.ManifestStatusDraft)
	s.Require().NoError(s.manifests.Create(ctx, m))

	got, err := s.manifests.GetByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(m.ID, got.ID)
	s.Equal("ACE", got.ManifestType)
	s.Equal(domain.ManifestStatusDraft, got.Status)
	s.JSONEq(string(m.Data), string(got.Data))
	s.JSONEq(`["shipment.type"]`, string(got.MissingFields))
	s.Nil(got.TripNumber)
}

func (s *RepoSuite) TestGetByID_NotFound() {
	_, err := s.manifests.GetByID(context.Background(), uuid.New())
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *RepoSuite) TestList_FilterAndPaginate() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.manifests.Create(ctx, s.newManifest(domain.ManifestStatusDraft)))
		time.Sleep(5 * time.Millisecond)
	}
	s.Require().NoError(s.manifests.Create(ctx, s.newManifest(domain.ManifestStatusValidated)))

	all, total, err := s.manifests.List(ctx, "", 0, 10)
	s.Require().NoError(err)
	s.Equal(4, total)
	s.Len(all, 4)
	s.Equal(domain.ManifestStatusValidated, all[0].Status)

	drafts, total, err := s.manifests.List(ctx, domain.ManifestStatusDraft, 1, 1)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(drafts, 1)
}

func (s *RepoSuite) TestUpdateDataAndStatus() {
	ctx := context.Background()
	m := s.newManifest(domain.ManifestStatusDraft)
	s.Require().NoError(s.manifests.Create(ctx, m))

	m.Data = json.RawMessage(`{"shipment":{"shipment_control_number":"S2"},"commodities":[]}`)
	m.MissingFields = json.RawMessage(`[]`)
	m.Complete = true
	m.Status = domain.ManifestStatusValidated
	s.Require().NoError(s.manifests.UpdateData(ctx, m))

	trip, sendID := "TRIP-1", "send-1"
	m.Status = domain.ManifestStatusAccepted
	m.TripNumber = &trip
	m.LastSendID = &sendID
	s.Require().NoError(s.manifests.UpdateStatus(ctx, m))

	got, err := s.manifests.GetByID(ctx, m.ID)
	s.Require().NoError(err)
	s.True(got.Complete)
	s.Equal(domain.ManifestStatusAccepted, got.Status)
	s.Equal("TRIP-1", *got.TripNumber)
	s.Equal("send-1", *got.LastSendID)
	s.Contains(string(got.Data), "S2")
}

func (s *RepoSuite) TestClaimForSubmission_OnlyOnce() {
	ctx := context.Background()
	m := s.newManifest(domain.ManifestStatusValidated)
	s.Require().NoError(s.manifests.Create(ctx, m))

	s.Require().NoError(s.manifests.ClaimForSubmission(ctx, m.ID, domain.ManifestStatusValidated))

	got, err := s.manifests.GetByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(domain.ManifestStatusSubmitting, got.Status)

	err = s.manifests.ClaimForSubmission(ctx, m.ID, domain.ManifestStatusValidated)
	s.ErrorIs(err, domain.ErrInvalidTransition)
}

func (s *RepoSuite) TestClaimForSubmission_StaleStatus() {
	ctx := context.Background()
	m := s.newManifest(domain.ManifestStatusValidated)
	s.Require().NoError(s.manifests.Create(ctx, m))

	s.ErrorIs(s.manifests.ClaimForSubmission(ctx, m.ID, domain.ManifestStatusRejected), domain.ErrInvalidTransition)
	s.ErrorIs(s.manifests.ClaimForSubmission(ctx, uuid.New(), domain.ManifestStatusValidated), domain.ErrInvalidTransition)

	got, err := s.manifests.GetByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(domain.ManifestStatusValidated, got.Status)
}

func (s *RepoSuite) TestUpdate_NotFound() {
	m := s.newManifest(domain.ManifestStatusDraft)
	s.ErrorIs(s.manifests.UpdateStatus(context.Background(), m), domain.ErrNotFound)
	s.ErrorIs(s.manifests.UpdateData(context.Background(), m), domain.ErrNotFound)
}

func (s *RepoSuite) TestSubmissionAttempts() {
	ctx := context.Background()
	m := s.newManifest(domain.ManifestStatusValidated)
	s.Require().NoError(s.manifests.Create(ctx, m))

	key := fmt.Sprintf("submissions/%s/send-2.json", m.ID)
	first := &domain.SubmissionAttempt{
		ID: uuid.New(), ManifestID: m.ID, SendID: "send-1",
		Status: domain.SubmissionStatusError, CreatedAt: time.Now().UTC().Add(-time.Minute),
	}
	second := &domain.SubmissionAttempt{
		ID: uuid.New(), ManifestID: m.ID, SendID: "send-2",
		Status: domain.SubmissionStatusRejected, StatusCode: 422,
		Errors:     json.RawMessage(`[{"field":"tripNumber","message":"duplicate"}]`),
		ArchiveKey: &key,
	}
	s.Require().NoError(s.submissions.Create(ctx, first))
	s.Require().NoError(s.submissions.Create(ctx, second))

	attempts, err := s.submissions.ListByManifest(ctx, m.ID)
	s.Require().NoError(err)
	s.Require().Len(attempts, 2)
	s.Equal("send-2", attempts[0].SendID)
	s.Equal(422, attempts[0].StatusCode)
	s.Equal(key, *attempts[0].ArchiveKey)
	s.JSONEq(`[]`, string(attempts[1].Errors))

	none, err := s.submissions.ListByManifest(ctx, uuid.New())
	s.Require().NoError(err)
	s.Empty(none)
}
