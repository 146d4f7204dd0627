package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// PostJSON sends payload to a provider endpoint and returns the body of a 2xx
// response. Failures are classified into RateLimitError or ProviderError.
func PostJSON(ctx context.Context, client *http.Client, provider, endpoint string, headers map[string]string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("calling %s API: %w", provider, err), Transient: true}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err), Transient: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		baseErr := fmt.Errorf("%s API error (status %d): %s", provider, resp.StatusCode, truncate(string(respBody), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, NewRateLimitError(provider, baseErr, retryAfter)
		}
		return nil, &ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Err:        baseErr,
			Transient:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout,
		}
	}

	return respBody, nil
}

// DecodeObject parses model output as exactly one JSON object. A surrounding
// markdown code fence is tolerated; anything else is a MalformedResponseError.
func DecodeObject(provider, content string) (json.RawMessage, error) {
	text := stripCodeFence(strings.TrimSpace(content))
	if text == "" {
		return nil, &MalformedResponseError{Provider: provider, Reason: "empty content", Raw: content}
	}
	if text[0] != '{' {
		return nil, &MalformedResponseError{Provider: provider, Reason: "content is not a JSON object", Raw: content}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, &MalformedResponseError{Provider: provider, Reason: err.Error(), Raw: content}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &MalformedResponseError{Provider: provider, Reason: "trailing data after JSON object", Raw: content}
	}
	return obj, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// Unmarshal decodes a provider response envelope; an undecodable envelope is a
// MalformedResponseError.
func Unmarshal(provider string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &MalformedResponseError{Provider: provider, Reason: "unmarshaling response: " + err.Error(), Raw: string(body)}
	}
	return nil
}
