package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"borderdesk/internal/domain"
	"borderdesk/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response. Details lists offending
// fields for validation and filing rejections.
type APIError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnsupportedKind):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, docx, txt"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrExtractionFailure):
		return http.StatusUnprocessableEntity, "EXTRACTION_FAILED", "could not extract text from the document"
	case errors.Is(err, domain.ErrInvalidContext):
		return http.StatusBadRequest, "INVALID_CONTEXT", "manifest context is invalid"
	case errors.Is(err, domain.ErrInvalidTrip):
		return http.StatusBadRequest, "INVALID_TRIP", "trip metadata is invalid"
	case errors.Is(err, domain.ErrSchemaViolation):
		return http.StatusUnprocessableEntity, "SCHEMA_VIOLATION", "manifest does not match the expected schema"
	case errors.Is(err, domain.ErrNotComplete):
		return http.StatusConflict, "NOT_COMPLETE", "manifest is not complete and validated"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", "manifest cannot change to that status"
	case errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway, "MALFORMED_MODEL_RESPONSE", "language model returned an unusable response"
	case errors.Is(err, domain.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "language model is unavailable; try again later"
	case errors.Is(err, domain.ErrFilingRejected):
		return http.StatusUnprocessableEntity, "FILING_REJECTED", "filing was rejected by BorderConnect"
	case errors.Is(err, domain.ErrFilingUnavailable):
		return http.StatusBadGateway, "FILING_UNAVAILABLE", "BorderConnect is unavailable; try again later"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// ErrorDetails extracts per-field details carried by typed domain errors.
func ErrorDetails(err error) []domain.FieldError {
	var sv *domain.SchemaViolationError
	if errors.As(err, &sv) {
		return sv.FieldErrors
	}
	var ce *domain.ContextError
	if errors.As(err, &ce) {
		return ce.FieldErrors
	}
	var te *domain.TripError
	if errors.As(err, &te) {
		return te.FieldErrors
	}
	var fr *domain.FilingRejectedError
	if errors.As(err, &fr) {
		return fr.Details
	}
	return nil
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	HandleErrorWithData(c, err, nil)
}

// HandleErrorWithData is HandleError that also returns partial results, such as
// the filing result of a rejected submission.
func HandleErrorWithData(c *gin.Context, err error, data interface{}) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get(middleware.ContextKeyRequestID)
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	c.JSON(status, APIResponse{
		Success: false,
		Data:    data,
		Error:   &APIError{Code: code, Message: msg, Details: ErrorDetails(err)},
	})
}
