package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"borderdesk/internal/domain"
	"borderdesk/internal/export"
	"borderdesk/internal/service"
)

const maxBatchFiles = 20

// ManifestHandler handles document upload, manifest review and filing endpoints.
type ManifestHandler struct {
	manifestService service.ManifestService
	maxUploadBytes  int64
}

// NewManifestHandler creates a new ManifestHandler.
func NewManifestHandler(manifestService service.ManifestService, maxUploadBytes int64) *ManifestHandler {
	return &ManifestHandler{manifestService: manifestService, maxUploadBytes: maxUploadBytes}
}

// CreateManifestRequest is the body of POST /manifests.
type CreateManifestRequest struct {
	ManifestType   string          `json:"manifest_type" binding:"required"`
	BorderCrossing string          `json:"border_crossing" binding:"required"`
	CrossingTime   string          `json:"crossing_time" binding:"required"`
	Data           json.RawMessage `json:"data" binding:"required"`
}

// UpdateManifestRequest is the body of PUT /manifests/:id.
type UpdateManifestRequest struct {
	Data json.RawMessage `json:"data" binding:"required"`
}

// SubmitRequest is the body of POST /manifests/:id/submit.
type SubmitRequest struct {
	TripNumber       string `json:"trip_number" binding:"required"`
	PortOfEntry      string `json:"port_of_entry" binding:"required"`
	EstimatedArrival string `json:"estimated_arrival" binding:"required"`
	Operation        string `json:"operation"`
	AutoSend         bool   `json:"auto_send"`
}

// BatchItemResponse is one document's outcome in a batch upload.
type BatchItemResponse struct {
	Filename string                 `json:"filename"`
	Success  bool                   `json:"success"`
	Output   *service.ExtractOutput `json:"output,omitempty"`
	Error    *APIError              `json:"error,omitempty"`
}

// Upload handles POST /api/v1/upload
func (h *ManifestHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := h.readUpload(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "READ_FAILED", "could not read uploaded file")
		return
	}

	out, err := h.manifestService.Extract(c.Request.Context(), &service.ExtractInput{
		Filename: header.Filename,
		Content:  content,
		Context:  formContext(c),
	})
	if err != nil {
		HandleErrorWithData(c, err, out)
		return
	}
	RespondOK(c, out)
}

// UploadBatch handles POST /api/v1/upload/batch. Every file shares the form's
// manifest context; each succeeds or fails on its own.
func (h *ManifestHandler) UploadBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "at least one files field is required")
		return
	}
	headers := form.File["files"]
	if len(headers) > maxBatchFiles {
		RespondError(c, http.StatusBadRequest, "TOO_MANY_FILES", fmt.Sprintf("at most %d files per batch", maxBatchFiles))
		return
	}

	mctx := formContext(c)
	if err := mctx.Validate(); err != nil {
		HandleError(c, err)
		return
	}

	inputs := make([]service.ExtractInput, 0, len(headers))
	for _, fh := range headers {
		content, err := h.readHeader(fh)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "READ_FAILED", "could not read uploaded file "+fh.Filename)
			return
		}
		inputs = append(inputs, service.ExtractInput{Filename: fh.Filename, Content: content, Context: mctx})
	}

	items := h.manifestService.ExtractBatch(c.Request.Context(), inputs)
	resp := make([]BatchItemResponse, len(items))
	for i, item := range items {
		resp[i] = BatchItemResponse{Filename: item.Filename, Success: item.Err == nil, Output: item.Output}
		if item.Err != nil {
			_, code, msg := MapDomainError(item.Err)
			resp[i].Error = &APIError{Code: code, Message: msg, Details: ErrorDetails(item.Err)}
		}
	}
	RespondOK(c, resp)
}

// CreateManifest handles POST /api/v1/manifests
func (h *ManifestHandler) CreateManifest(c *gin.Context) {
	var req CreateManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	m, err := h.manifestService.CreateManifest(c.Request.Context(), &service.CreateManifestInput{
		Context: domain.ManifestContext{
			ManifestType:   req.ManifestType,
			BorderCrossing: req.BorderCrossing,
			CrossingTime:   req.CrossingTime,
		},
		Data: req.Data,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, m)
}

// ListManifests handles GET /api/v1/manifests
func (h *ManifestHandler) ListManifests(c *gin.Context) {
	status := domain.ManifestStatus(c.Query("status"))
	if status != "" && !validStatus(status) {
		RespondError(c, http.StatusBadRequest, "INVALID_STATUS", "unknown manifest status")
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	manifests, total, err := h.manifestService.ListManifests(c.Request.Context(), status, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, manifests, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetManifest handles GET /api/v1/manifests/:id
func (h *ManifestHandler) GetManifest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := h.manifestService.GetManifest(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, m)
}

// UpdateManifest handles PUT /api/v1/manifests/:id
func (h *ManifestHandler) UpdateManifest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	m, err := h.manifestService.UpdateManifest(c.Request.Context(), &service.UpdateManifestInput{ManifestID: id, Data: req.Data})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, m)
}

// Submit handles POST /api/v1/manifests/:id/submit
func (h *ManifestHandler) Submit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	eta, err := time.Parse(time.RFC3339, req.EstimatedArrival)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "estimated_arrival must be an RFC 3339 timestamp")
		return
	}

	out, err := h.manifestService.Submit(c.Request.Context(), &service.SubmitInput{
		ManifestID: id,
		Trip: domain.TripMetadata{
			TripNumber:       req.TripNumber,
			PortOfEntry:      req.PortOfEntry,
			EstimatedArrival: eta,
			Operation:        domain.FilingOperation(req.Operation),
			AutoSend:         req.AutoSend,
		},
	})
	if err != nil {
		HandleErrorWithData(c, err, out)
		return
	}
	RespondOK(c, out)
}

// ListSubmissions handles GET /api/v1/manifests/:id/submissions
func (h *ManifestHandler) ListSubmissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	views, err := h.manifestService.ListSubmissions(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, views)
}

// Export handles GET /api/v1/manifests/:id/export?format=csv|xlsx
func (h *ManifestHandler) Export(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	out, err := h.manifestService.Export(c.Request.Context(), id, format)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func (h *ManifestHandler) readUpload(r io.Reader) ([]byte, error) {
	if h.maxUploadBytes > 0 {
		// One byte past the limit lets the service report ErrFileTooLarge.
		r = io.LimitReader(r, h.maxUploadBytes+1)
	}
	return io.ReadAll(r)
}

func (h *ManifestHandler) readHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return h.readUpload(f)
}

func formContext(c *gin.Context) domain.ManifestContext {
	return domain.ManifestContext{
		ManifestType:   c.PostForm("manifest_type"),
		BorderCrossing: c.PostForm("border_crossing"),
		CrossingTime:   c.PostForm("crossing_time"),
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid manifest ID")
		return uuid.Nil, false
	}
	return id, true
}

func validStatus(s domain.ManifestStatus) bool {
	switch s {
	case domain.ManifestStatusDraft, domain.ManifestStatusValidated, domain.ManifestStatusSubmitting,
		domain.ManifestStatusAccepted, domain.ManifestStatusRejected, domain.ManifestStatusError:
		return true
	}
	return false
}
