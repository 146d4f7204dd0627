package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"borderdesk/internal/domain"
	"borderdesk/internal/export"
	"borderdesk/internal/handler"
	"borderdesk/internal/service"
	"borderdesk/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func multipartBody(t *testing.T, field string, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func contextFields() map[string]string {
	return map[string]string{
		"manifest_type":   "ACE",
		"border_crossing": "Ambassador Bridge",
		"crossing_time":   "2024-06-01T10:00",
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func newContext(method, target string, body *bytes.Buffer) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		body = &bytes.Buffer{}
	}
	c.Request, _ = http.NewRequest(method, target, body)
	return c, w
}

func TestManifestHandler_Upload_Success(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	svc.On("Extract", mock.Anything, mock.MatchedBy(func(in *service.ExtractInput) bool {
		return in.Filename == "bol.txt" && string(in.Content) == "bill of lading" &&
			in.Context.ManifestType == "ACE" && in.Context.BorderCrossing == "Ambassador Bridge"
	})).Return(&service.ExtractOutput{}, nil)

	body, ct := multipartBody(t, "file", map[string]string{"bol.txt": "bill of lading"}, contextFields())
	c, w := newContext(http.MethodPost, "/api/v1/upload", body)
	c.Request.Header.Set("Content-Type", ct)

	h.Upload(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
	svc.AssertExpectations(t)
}

func TestManifestHandler_Upload_NoFile(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	c, w := newContext(http.MethodPost, "/api/v1/upload", nil)

	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", decode(t, w).Error.Code)
	svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestManifestHandler_Upload_ReadIsCappedOnePastLimit(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 4)

	svc.On("Extract", mock.Anything, mock.MatchedBy(func(in *service.ExtractInput) bool {
		return len(in.Content) == 5
	})).Return(nil, domain.ErrFileTooLarge)

	body, ct := multipartBody(t, "file", map[string]string{"big.txt": strings.Repeat("x", 64)}, contextFields())
	c, w := newContext(http.MethodPost, "/api/v1/upload", body)
	c.Request.Header.Set("Content-Type", ct)

	h.Upload(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decode(t, w).Error.Code)
	svc.AssertExpectations(t)
}

func TestManifestHandler_Upload_SchemaViolationReturnsDetailsAndData(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	violation := &domain.SchemaViolationError{FieldErrors: []domain.FieldError{
		{Field: "commodities", Message: "must contain at least 1 item(s)", Code: "min_items"},
	}}
	svc.On("Extract", mock.Anything, mock.Anything).
		Return(&service.ExtractOutput{Violations: violation.FieldErrors}, violation)

	body, ct := multipartBody(t, "file", map[string]string{"bol.txt": "text"}, contextFields())
	c, w := newContext(http.MethodPost, "/api/v1/upload", body)
	c.Request.Header.Set("Content-Type", ct)

	h.Upload(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.NotNil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SCHEMA_VIOLATION", resp.Error.Code)
	assert.Equal(t, violation.FieldErrors, resp.Error.Details)
}

func TestManifestHandler_Upload_ModelUnavailable(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	svc.On("Extract", mock.Anything, mock.Anything).
		Return(nil, errors.Join(domain.ErrModelUnavailable, context.DeadlineExceeded))

	body, ct := multipartBody(t, "file", map[string]string{"bol.txt": "text"}, contextFields())
	c, w := newContext(http.MethodPost, "/api/v1/upload", body)
	c.Request.Header.Set("Content-Type", ct)

	h.Upload(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "MODEL_UNAVAILABLE", decode(t, w).Error.Code)
}

func TestManifestHandler_UploadBatch_MixedResults(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	svc.On("ExtractBatch", mock.Anything, mock.MatchedBy(func(in []service.ExtractInput) bool {
		return len(in) == 2 && in[0].Context.ManifestType == "ACE" && in[1].Context.ManifestType == "ACE"
	})).Return([]service.BatchItem{
		{Filename: "a.txt", Output: &service.ExtractOutput{}},
		{Filename: "b.exe", Err: domain.ErrUnsupportedKind},
	})

	body, ct := multipartBody(t, "files", map[string]string{"a.txt": "one", "b.exe": "two"}, contextFields())
	c, w := newContext(http.MethodPost, "/api/v1/upload/batch", body)
	c.Request.Header.Set("Content-Type", ct)

	h.UploadBatch(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                        `json:"success"`
		Data    []handler.BatchItemResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.True(t, resp.Data[0].Success)
	assert.False(t, resp.Data[1].Success)
	require.NotNil(t, resp.Data[1].Error)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", resp.Data[1].Error.Code)
	svc.AssertExpectations(t)
}

func TestManifestHandler_UploadBatch_InvalidContext(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	fields := contextFields()
	fields["manifest_type"] = "XYZ"
	body, ct := multipartBody(t, "files", map[string]string{"a.txt": "one"}, fields)
	c, w := newContext(http.MethodPost, "/api/v1/upload/batch", body)
	c.Request.Header.Set("Content-Type", ct)

	h.UploadBatch(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "INVALID_CONTEXT", resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "manifest_type", resp.Error.Details[0].Field)
	svc.AssertNotCalled(t, "ExtractBatch", mock.Anything, mock.Anything)
}

func TestManifestHandler_CreateManifest(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	created := &domain.Manifest{ID: uuid.New(), Status: domain.ManifestStatusValidated}
	svc.On("CreateManifest", mock.Anything, mock.MatchedBy(func(in *service.CreateManifestInput) bool {
		return in.Context.ManifestType == "ACI" && string(in.Data) == `{"shipment":{}}`
	})).Return(created, nil)

	body := bytes.NewBufferString(`{"manifest_type":"ACI","border_crossing":"Peace Bridge","crossing_time":"noon","data":{"shipment":{}}}`)
	c, w := newContext(http.MethodPost, "/api/v1/manifests", body)
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateManifest(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestManifestHandler_CreateManifest_MissingData(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	body := bytes.NewBufferString(`{"manifest_type":"ACI"}`)
	c, w := newContext(http.MethodPost, "/api/v1/manifests", body)
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateManifest(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w).Error.Code)
}

func TestManifestHandler_ListManifests_Pagination(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	svc.On("ListManifests", mock.Anything, domain.ManifestStatusRejected, 10, 20).
		Return([]domain.Manifest{{ID: uuid.New()}}, 11, nil)

	c, w := newContext(http.MethodGet, "/api/v1/manifests?status=rejected&offset=10&limit=500", nil)

	h.ListManifests(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 11, resp.Meta.Total)
	assert.Equal(t, 20, resp.Meta.Limit)
	svc.AssertExpectations(t)
}

func TestManifestHandler_ListManifests_UnknownStatus(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)

	c, w := newContext(http.MethodGet, "/api/v1/manifests?status=lost", nil)

	h.ListManifests(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestManifestHandler_GetManifest(t *testing.T) {
	tests := []struct {
		name       string
		param      string
		svcErr     error
		wantStatus int
	}{
		{"found", uuid.New().String(), nil, http.StatusOK},
		{"not found", uuid.New().String(), domain.ErrNotFound, http.StatusNotFound},
		{"invalid id", "not-a-uuid", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.MockManifestService)
			h := handler.NewManifestHandler(svc, 1024)

			if id, err := uuid.Parse(tt.param); err == nil {
				if tt.svcErr != nil {
					svc.On("GetManifest", mock.Anything, id).Return(nil, tt.svcErr)
				} else {
					svc.On("GetManifest", mock.Anything, id).Return(&domain.Manifest{ID: id}, nil)
				}
			}

			c, w := newContext(http.MethodGet, "/api/v1/manifests/"+tt.param, nil)
			c.Params = gin.Params{{Key: "id", Value: tt.param}}

			h.GetManifest(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestManifestHandler_UpdateManifest_InvalidTransition(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)
	id := uuid.New()

	svc.On("UpdateManifest", mock.Anything, mock.MatchedBy(func(in *service.UpdateManifestInput) bool {
		return in.ManifestID == id
	})).Return(nil, domain.ErrInvalidTransition)

	c, w := newContext(http.MethodPut, "/api/v1/manifests/"+id.String(), bytes.NewBufferString(`{"data":{}}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.UpdateManifest(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode(t, w).Error.Code)
}

func TestManifestHandler_Submit_Accepted(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)
	id := uuid.New()
	eta := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)

	svc.On("Submit", mock.Anything, mock.MatchedBy(func(in *service.SubmitInput) bool {
		return in.ManifestID == id && in.Trip.TripNumber == "T-100" && in.Trip.PortOfEntry == "3801" &&
			in.Trip.EstimatedArrival.Equal(eta) && in.Trip.AutoSend
	})).Return(&service.SubmitOutput{
		Manifest: &domain.Manifest{ID: id, Status: domain.ManifestStatusAccepted},
		Result:   &domain.SubmissionResult{Status: domain.SubmissionStatusAccepted, SendID: "send-1"},
	}, nil)

	body := bytes.NewBufferString(`{"trip_number":"T-100","port_of_entry":"3801","estimated_arrival":"2024-06-01T14:00:00Z","auto_send":true}`)
	c, w := newContext(http.MethodPost, "/api/v1/manifests/"+id.String()+"/submit", body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Submit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestManifestHandler_Submit_RejectedCarriesResult(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)
	id := uuid.New()

	details := []domain.FieldError{{Field: "shipper.name", Message: "unknown shipper"}}
	svc.On("Submit", mock.Anything, mock.Anything).Return(&service.SubmitOutput{
		Manifest: &domain.Manifest{ID: id, Status: domain.ManifestStatusRejected},
		Result:   &domain.SubmissionResult{Status: domain.SubmissionStatusRejected, Errors: details, SendID: "send-1"},
	}, &domain.FilingRejectedError{Details: details})

	body := bytes.NewBufferString(`{"trip_number":"T-100","port_of_entry":"3801","estimated_arrival":"2024-06-01T14:00:00Z"}`)
	c, w := newContext(http.MethodPost, "/api/v1/manifests/"+id.String()+"/submit", body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Submit(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "FILING_REJECTED", resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)
	assert.NotNil(t, resp.Data)
}

func TestManifestHandler_Submit_BadArrival(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)
	id := uuid.New()

	body := bytes.NewBufferString(`{"trip_number":"T-100","port_of_entry":"3801","estimated_arrival":"tomorrow"}`)
	c, w := newContext(http.MethodPost, "/api/v1/manifests/"+id.String()+"/submit", body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestManifestHandler_ListSubmissions(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)
	id := uuid.New()

	svc.On("ListSubmissions", mock.Anything, id).Return([]service.SubmissionView{
		{SubmissionAttempt: domain.SubmissionAttempt{ManifestID: id, SendID: "send-1"}, ArchiveURL: "https://example.com/a"},
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/manifests/"+id.String()+"/submissions", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.ListSubmissions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"archive_url":"https://example.com/a"`)
}

func TestManifestHandler_Export(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)
	id := uuid.New()

	svc.On("Export", mock.Anything, id, export.FormatXLSX).Return(&service.ExportOutput{
		Filename:    "manifest_S1_2024-06-01.xlsx",
		ContentType: export.FormatXLSX.ContentType(),
		Data:        []byte("PK"),
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/manifests/"+id.String()+"/export?format=xlsx", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="manifest_S1_2024-06-01.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, export.FormatXLSX.ContentType(), w.Header().Get("Content-Type"))
	assert.Equal(t, "PK", w.Body.String())
}

func TestManifestHandler_Export_UnknownFormat(t *testing.T) {
	svc := new(mocks.MockManifestService)
	h := handler.NewManifestHandler(svc, 1024)
	id := uuid.New()

	c, w := newContext(http.MethodGet, "/api/v1/manifests/"+id.String()+"/export?format=pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FORMAT", decode(t, w).Error.Code)
}
