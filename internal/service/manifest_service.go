package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"borderdesk/internal/config"
	"borderdesk/internal/domain"
	"borderdesk/internal/export"
	"borderdesk/internal/extraction"
	"borderdesk/internal/filing"
	"borderdesk/internal/metrics"
	"borderdesk/internal/port"
	"borderdesk/internal/validator"
)

const (
	defaultBatchConcurrency = 4
	archiveURLExpirySeconds = 3600
)

// ExtractInput is the DTO for extracting a manifest from one uploaded document.
type ExtractInput struct {
	Filename string
	Content  []byte
	Context  domain.ManifestContext
}

// ExtractOutput is the outcome of one extraction. Manifest is nil when the model
// output violated the schema; Violations then lists every offending field.
type ExtractOutput struct {
	Result     domain.ExtractionResult   `json:"result"`
	Manifest   *domain.ValidatedManifest `json:"manifest,omitempty"`
	Violations []domain.FieldError       `json:"violations,omitempty"`
}

// BatchItem is one document's outcome inside a batch extraction.
type BatchItem struct {
	Filename string
	Output   *ExtractOutput
	Err      error
}

// CreateManifestInput is the DTO for storing reviewed manifest data.
type CreateManifestInput struct {
	Context domain.ManifestContext
	Data    json.RawMessage
}

// UpdateManifestInput is the DTO for replacing a stored manifest's data.
type UpdateManifestInput struct {
	ManifestID uuid.UUID
	Data       json.RawMessage
}

// SubmitInput is the DTO for filing a stored manifest.
type SubmitInput struct {
	ManifestID uuid.UUID
	Trip       domain.TripMetadata
}

// SubmitOutput carries the updated manifest and the interpreted filing result.
type SubmitOutput struct {
	Manifest *domain.Manifest         `json:"manifest"`
	Result   *domain.SubmissionResult `json:"result"`
}

// SubmissionView is a recorded attempt plus a short-lived link to its archive.
type SubmissionView struct {
	domain.SubmissionAttempt
	ArchiveURL string `json:"archive_url,omitempty"`
}

// ExportOutput is a rendered export file.
type ExportOutput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ManifestService defines the manifest pipeline contract.
type ManifestService interface {
	Extract(ctx context.Context, input *ExtractInput) (*ExtractOutput, error)
	ExtractBatch(ctx context.Context, inputs []ExtractInput) []BatchItem
	CreateManifest(ctx context.Context, input *CreateManifestInput) (*domain.Manifest, error)
	UpdateManifest(ctx context.Context, input *UpdateManifestInput) (*domain.Manifest, error)
	GetManifest(ctx context.Context, id uuid.UUID) (*domain.Manifest, error)
	ListManifests(ctx context.Context, status domain.ManifestStatus, offset, limit int) ([]domain.Manifest, int, error)
	Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error)
	ListSubmissions(ctx context.Context, manifestID uuid.UUID) ([]SubmissionView, error)
	Export(ctx context.Context, manifestID uuid.UUID, format export.Format) (*ExportOutput, error)
}

type manifestService struct {
	texts          port.TextExtractor
	extractor      port.StructuredExtractor
	coordinator    *filing.Coordinator
	manifestRepo   port.ManifestRepository
	submissionRepo port.SubmissionRepository
	storage        port.ObjectStorage
	emailSender    port.EmailSender
	metrics        *metrics.Metrics

	maxFileSize   int64
	concurrency   int
	deadline      time.Duration
	bucket        string
	archivePrefix string
	notifyAddress string
	now           func() time.Time
}

// NewManifestService creates a new ManifestService implementation. storage and
// emailSender may be nil, which disables archiving and rejection notices.
func NewManifestService(
	texts port.TextExtractor,
	extractor port.StructuredExtractor,
	coordinator *filing.Coordinator,
	manifestRepo port.ManifestRepository,
	submissionRepo port.SubmissionRepository,
	storage port.ObjectStorage,
	emailSender port.EmailSender,
	m *metrics.Metrics,
	cfg *config.Config,
) ManifestService {
	concurrency := cfg.Batch.Concurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	return &manifestService{
		texts:          texts,
		extractor:      extractor,
		coordinator:    coordinator,
		manifestRepo:   manifestRepo,
		submissionRepo: submissionRepo,
		storage:        storage,
		emailSender:    emailSender,
		metrics:        m,
		maxFileSize:    cfg.Upload.MaxFileSizeMB * 1024 * 1024,
		concurrency:    concurrency,
		deadline:       cfg.Extractor.Deadline,
		bucket:         cfg.S3.Bucket,
		archivePrefix:  cfg.S3.ArchivePrefix,
		notifyAddress:  cfg.Email.NotifyAddress,
		now:            time.Now,
	}
}

func (s *manifestService) Extract(ctx context.Context, input *ExtractInput) (*ExtractOutput, error) {
	if err := input.Context.Validate(); err != nil {
		return nil, err
	}
	if s.maxFileSize > 0 && int64(len(input.Content)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, len(input.Content))
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	start := s.now()
	defer func() { s.metrics.ObserveExtractionLatency(s.now().Sub(start)) }()

	text, err := s.texts.ExtractDocument(domain.RawDocument{Filename: input.Filename, Content: input.Content})
	if err != nil {
		s.metrics.IncrementExtraction("unknown", "failed")
		return nil, err
	}

	prompt := extraction.BuildPrompt(text, input.Context)
	raw, err := s.extractor.Extract(ctx, prompt)
	if err != nil {
		s.metrics.IncrementExtraction("unknown", "failed")
		log.Printf("service.manifestService.Extract: %s: model extraction failed: %v", input.Filename, err)
		return nil, err
	}

	out := &ExtractOutput{Result: domain.ExtractionResult{
		Filename:       input.Filename,
		ParsedData:     raw.Data,
		ManifestType:   string(input.Context.Type()),
		BorderCrossing: input.Context.BorderCrossing,
		CrossingTime:   input.Context.CrossingTime,
		ModelUsed:      raw.ModelUsed,
	}}

	vm, err := validator.Validate(raw)
	if err != nil {
		var sv *domain.SchemaViolationError
		if errors.As(err, &sv) {
			out.Violations = sv.FieldErrors
		}
		s.metrics.IncrementExtraction(raw.ModelUsed, "invalid")
		return out, err
	}

	normalized, err := json.Marshal(vm.Data)
	if err != nil {
		return nil, fmt.Errorf("service.manifestService.Extract: encoding manifest: %w", err)
	}
	out.Result.ParsedData = normalized
	out.Manifest = vm

	if vm.Complete {
		s.metrics.IncrementExtraction(raw.ModelUsed, "complete")
	} else {
		s.metrics.IncrementExtraction(raw.ModelUsed, "incomplete")
	}
	return out, nil
}

// ExtractBatch extracts documents concurrently. Each item keeps its own result
// or error; one failure does not cancel the others. The whole batch shares one
// extraction deadline since it is answered in a single response.
func (s *manifestService) ExtractBatch(ctx context.Context, inputs []ExtractInput) []BatchItem {
	items := make([]BatchItem, len(inputs))

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range inputs {
		g.Go(func() error {
			out, err := s.Extract(gctx, &inputs[i])
			items[i] = BatchItem{Filename: inputs[i].Filename, Output: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// withDeadline bounds an extraction across every provider attempt. A zero
// deadline leaves ctx as is.
func (s *manifestService) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deadline <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.deadline)
}

func (s *manifestService) CreateManifest(ctx context.Context, input *CreateManifestInput) (*domain.Manifest, error) {
	if err := input.Context.Validate(); err != nil {
		return nil, err
	}
	vm, err := validator.ValidateJSON(input.Data)
	if err != nil {
		return nil, err
	}

	m := &domain.Manifest{
		ID:             uuid.New(),
		ManifestType:   string(input.Context.Type()),
		BorderCrossing: input.Context.BorderCrossing,
		CrossingTime:   input.Context.CrossingTime,
	}
	if err := applyValidated(m, vm); err != nil {
		return nil, err
	}
	if err := s.manifestRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("creating manifest: %w", err)
	}
	log.Printf("service.manifestService.CreateManifest: manifest %s stored as %s", m.ID, m.Status)
	return m, nil
}

func (s *manifestService) UpdateManifest(ctx context.Context, input *UpdateManifestInput) (*domain.Manifest, error) {
	m, err := s.manifestRepo.GetByID(ctx, input.ManifestID)
	if err != nil {
		return nil, err
	}
	vm, err := validator.ValidateJSON(input.Data)
	if err != nil {
		return nil, err
	}
	if err := filing.Transition(m.Status, vm.Status); err != nil {
		return nil, err
	}
	if err := applyValidated(m, vm); err != nil {
		return nil, err
	}
	if err := s.manifestRepo.UpdateData(ctx, m); err != nil {
		return nil, fmt.Errorf("updating manifest: %w", err)
	}
	return m, nil
}

func (s *manifestService) GetManifest(ctx context.Context, id uuid.UUID) (*domain.Manifest, error) {
	return s.manifestRepo.GetByID(ctx, id)
}

func (s *manifestService) ListManifests(ctx context.Context, status domain.ManifestStatus, offset, limit int) ([]domain.Manifest, int, error) {
	return s.manifestRepo.List(ctx, status, offset, limit)
}

// Submit re-validates the stored data, files it once and records the attempt.
// On rejection or unavailability the output is returned alongside the error.
func (s *manifestService) Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
	m, err := s.manifestRepo.GetByID(ctx, input.ManifestID)
	if err != nil {
		return nil, err
	}
	vm, err := validator.ValidateJSON(m.Data)
	if err != nil {
		return nil, err
	}
	if m.Status == domain.ManifestStatusAccepted || m.Status == domain.ManifestStatusSubmitting {
		vm.Status = m.Status
	}
	if err := filing.Transition(vm.Status, domain.ManifestStatusSubmitting); err != nil {
		return nil, err
	}
	if err := input.Trip.Validate(); err != nil {
		return nil, err
	}

	// Only one caller may hold the stored manifest in submitting; a concurrent
	// submit loses here before anything is sent upstream.
	prior := m.Status
	if err := s.manifestRepo.ClaimForSubmission(ctx, m.ID, prior); err != nil {
		return nil, err
	}

	mtype := m.Context().Type()
	start := s.now()
	ex, submitErr := s.coordinator.SubmitExchange(ctx, vm, mtype, input.Trip)
	if ex == nil {
		m.Status = prior
		if err := s.manifestRepo.UpdateStatus(ctx, m); err != nil {
			log.Printf("service.manifestService.Submit: releasing manifest %s: %v", m.ID, err)
		}
		return nil, submitErr
	}
	s.metrics.ObserveFilingLatency(s.now().Sub(start))
	s.metrics.IncrementSubmission(string(mtype), string(ex.Result.Status))

	attempt := &domain.SubmissionAttempt{
		ID:         uuid.New(),
		ManifestID: m.ID,
		SendID:     ex.Result.SendID,
		Status:     ex.Result.Status,
		StatusCode: ex.Result.StatusCode,
		Errors:     fieldErrorsJSON(ex.Result.Errors),
		CreatedAt:  ex.Result.Timestamp,
	}
	if key, err := s.archive(ctx, m.ID, ex); err != nil {
		log.Printf("service.manifestService.Submit: archiving send %s: %v", ex.Result.SendID, err)
	} else if key != "" {
		attempt.ArchiveKey = &key
	}
	if err := s.submissionRepo.Create(ctx, attempt); err != nil {
		log.Printf("service.manifestService.Submit: recording attempt %s: %v", attempt.SendID, err)
	}

	tripNumber := input.Trip.TripNumber
	sendID := ex.Result.SendID
	m.Status = vm.Status
	m.TripNumber = &tripNumber
	m.LastSendID = &sendID
	if err := s.manifestRepo.UpdateStatus(ctx, m); err != nil {
		return nil, fmt.Errorf("updating manifest status: %w", err)
	}

	if ex.Result.Status == domain.SubmissionStatusRejected {
		s.notifyRejected(ctx, m, vm, ex.Result)
	}

	return &SubmitOutput{Manifest: m, Result: ex.Result}, submitErr
}

func (s *manifestService) ListSubmissions(ctx context.Context, manifestID uuid.UUID) ([]SubmissionView, error) {
	if _, err := s.manifestRepo.GetByID(ctx, manifestID); err != nil {
		return nil, err
	}
	attempts, err := s.submissionRepo.ListByManifest(ctx, manifestID)
	if err != nil {
		return nil, err
	}

	views := make([]SubmissionView, len(attempts))
	for i := range attempts {
		views[i] = SubmissionView{SubmissionAttempt: attempts[i]}
		if attempts[i].ArchiveKey == nil || s.storage == nil {
			continue
		}
		url, err := s.storage.GetPresignedURL(ctx, s.bucket, *attempts[i].ArchiveKey, archiveURLExpirySeconds)
		if err != nil {
			log.Printf("service.manifestService.ListSubmissions: presigning %s: %v", *attempts[i].ArchiveKey, err)
			continue
		}
		views[i].ArchiveURL = url
	}
	return views, nil
}

func (s *manifestService) Export(ctx context.Context, manifestID uuid.UUID, format export.Format) (*ExportOutput, error) {
	m, err := s.manifestRepo.GetByID(ctx, manifestID)
	if err != nil {
		return nil, err
	}

	name := m.ID.String()
	var md domain.ManifestData
	if json.Unmarshal(m.Data, &md) == nil && md.Shipment.ShipmentControlNumber != "" {
		name = md.Shipment.ShipmentControlNumber
	}
	out := &ExportOutput{
		Filename:    export.BuildFilename(name, format, s.now()),
		ContentType: format.ContentType(),
	}

	manifests := []domain.Manifest{*m}
	switch format {
	case export.FormatXLSX:
		data, err := export.WriteXLSX(manifests)
		if err != nil {
			return nil, err
		}
		out.Data = data
	default:
		var buf bytes.Buffer
		buf.Write(export.BOM)
		w := export.NewWriter(&buf)
		if err := w.WriteHeader(); err != nil {
			return nil, fmt.Errorf("writing export header: %w", err)
		}
		if err := w.WriteManifests(manifests); err != nil {
			return nil, fmt.Errorf("writing export rows: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("flushing export: %w", err)
		}
		out.Data = buf.Bytes()
	}
	return out, nil
}

// archive stores the request/response pair under {prefix}/{manifestID}/{sendID}.json.
// It returns an empty key when archiving is disabled.
func (s *manifestService) archive(ctx context.Context, manifestID uuid.UUID, ex *filing.Exchange) (string, error) {
	if s.storage == nil || s.bucket == "" {
		return "", nil
	}

	record := struct {
		Request  *domain.SubmissionRequest `json:"request"`
		Response string                    `json:"response"`
		Result   *domain.SubmissionResult  `json:"result"`
	}{ex.Request, string(ex.Response), ex.Result}

	body, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding archive: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s.json", s.archivePrefix, manifestID, ex.Result.SendID)
	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.bucket,
		Key:         key,
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Size:        int64(len(body)),
		Metadata: map[string]string{
			"manifest-id": manifestID.String(),
			"send-id":     ex.Result.SendID,
			"status":      string(ex.Result.Status),
		},
	}); err != nil {
		return "", err
	}
	return key, nil
}

func (s *manifestService) notifyRejected(ctx context.Context, m *domain.Manifest, vm *domain.ValidatedManifest, result *domain.SubmissionResult) {
	if s.emailSender == nil || s.notifyAddress == "" {
		return
	}
	notice := port.RejectionNotice{
		ManifestID:            m.ID.String(),
		ShipmentControlNumber: vm.Data.Shipment.ShipmentControlNumber,
		TripNumber:            derefString(m.TripNumber),
		SendID:                result.SendID,
		Errors:                result.Errors,
	}
	if err := s.emailSender.SendFilingRejected(ctx, s.notifyAddress, notice); err != nil {
		log.Printf("service.manifestService.Submit: rejection notice for %s: %v", m.ID, err)
	}
}

func applyValidated(m *domain.Manifest, vm *domain.ValidatedManifest) error {
	data, err := json.Marshal(vm.Data)
	if err != nil {
		return fmt.Errorf("encoding manifest data: %w", err)
	}
	missing, err := json.Marshal(vm.MissingFields)
	if err != nil {
		return fmt.Errorf("encoding missing fields: %w", err)
	}
	m.Data = data
	m.MissingFields = missing
	m.Complete = vm.Complete
	m.Status = vm.Status
	return nil
}

func fieldErrorsJSON(errs []domain.FieldError) json.RawMessage {
	if len(errs) == 0 {
		return json.RawMessage(`[]`)
	}
	data, err := json.Marshal(errs)
	if err != nil {
		return json.RawMessage(`[]`)
	}
	return data
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
