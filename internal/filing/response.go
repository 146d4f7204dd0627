package filing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"borderdesk/internal/domain"
)

const malformedDetail = "malformed upstream response"

// upstreamBody is the subset of a BorderConnect reply we interpret.
type upstreamBody struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeBody(body []byte) (*upstreamBody, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var ub upstreamBody
	if err := json.Unmarshal(trimmed, &ub); err != nil {
		return nil, false
	}
	return &ub, true
}

// fieldErrors accepts the error shapes seen from the filing system: a list of
// {field, message, code} objects, a list of strings, or a field-to-message map.
func (b *upstreamBody) fieldErrors() []domain.FieldError {
	var out []domain.FieldError

	if len(b.Errors) > 0 {
		var objs []struct {
			Field   string `json:"field"`
			Path    string `json:"path"`
			Message string `json:"message"`
			Error   string `json:"error"`
			Code    string `json:"code"`
		}
		var strs []string
		var byField map[string]json.RawMessage

		switch {
		case json.Unmarshal(b.Errors, &objs) == nil:
			for _, o := range objs {
				fe := domain.FieldError{Field: o.Field, Message: o.Message, Code: o.Code}
				if fe.Field == "" {
					fe.Field = o.Path
				}
				if fe.Message == "" {
					fe.Message = o.Error
				}
				out = append(out, fe)
			}
		case json.Unmarshal(b.Errors, &strs) == nil:
			for _, s := range strs {
				out = append(out, domain.FieldError{Message: s})
			}
		case json.Unmarshal(b.Errors, &byField) == nil:
			keys := make([]string, 0, len(byField))
			for k := range byField {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				for _, msg := range messages(byField[k]) {
					out = append(out, domain.FieldError{Field: k, Message: msg})
				}
			}
		}
	}

	if len(out) == 0 && strings.TrimSpace(b.Message) != "" {
		out = append(out, domain.FieldError{Message: b.Message})
	}
	return out
}

func messages(raw json.RawMessage) []string {
	var one string
	if json.Unmarshal(raw, &one) == nil {
		return []string{one}
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		return many
	}
	return []string{string(raw)}
}

// interpret maps one upstream reply to a result status and, for anything but
// acceptance, the typed error to return.
func interpret(statusCode int, body []byte) (domain.SubmissionStatus, []domain.FieldError, string, error) {
	ub, ok := decodeBody(body)

	switch {
	case statusCode >= 200 && statusCode <= 299:
		if !ok {
			return rejectedMalformed(statusCode)
		}
		switch strings.ToLower(strings.TrimSpace(ub.Status)) {
		case "accepted":
			return domain.SubmissionStatusAccepted, nil, ub.Message, nil
		case "rejected":
			details := ub.fieldErrors()
			if len(details) == 0 {
				details = []domain.FieldError{{Message: "rejected without details"}}
			}
			return domain.SubmissionStatusRejected, details, ub.Message, &domain.FilingRejectedError{StatusCode: statusCode, Details: details}
		default:
			return rejectedMalformed(statusCode)
		}

	case statusCode >= 400 && statusCode <= 499 && ok:
		details := ub.fieldErrors()
		if len(details) == 0 {
			details = []domain.FieldError{{Message: http.StatusText(statusCode)}}
		}
		return domain.SubmissionStatusRejected, details, ub.Message, &domain.FilingRejectedError{StatusCode: statusCode, Details: details}

	default:
		// Field detail from a structured error body is kept even though the
		// outcome stays unavailable.
		var details []domain.FieldError
		if ok {
			details = ub.fieldErrors()
		}
		msg := fmt.Sprintf("filing system returned status %d", statusCode)
		return domain.SubmissionStatusError, details, msg, &domain.FilingUnavailableError{StatusCode: statusCode, Body: truncate(string(body), 500)}
	}
}

func rejectedMalformed(statusCode int) (domain.SubmissionStatus, []domain.FieldError, string, error) {
	details := []domain.FieldError{{Message: malformedDetail}}
	return domain.SubmissionStatusRejected, details, malformedDetail, &domain.FilingRejectedError{StatusCode: statusCode, Details: details}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
