package filing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"borderdesk/internal/config"
	"borderdesk/internal/domain"
	"borderdesk/internal/port"
)

const (
	sendPath        = "/api/send/jones"
	maxResponseSize = 1 << 20
)

// HTTPClient posts submissions to the BorderConnect API. It implements port.FilingClient.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClient creates a filing client from config.
func NewHTTPClient(cfg *config.FilingConfig) *HTTPClient {
	return NewHTTPClientWithEndpoint(cfg, strings.TrimRight(cfg.BaseURL, "/")+sendPath)
}

// NewHTTPClientWithEndpoint creates a client posting to an explicit URL (for testing).
func NewHTTPClientWithEndpoint(cfg *config.FilingConfig, endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{},
	}
}

// Send performs exactly one POST. The caller's context bounds the call.
func (c *HTTPClient) Send(ctx context.Context, sub *domain.SubmissionRequest) (*port.FilingResponse, error) {
	bodyBytes, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("filing.HTTPClient.Send: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("filing.HTTPClient.Send: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("filing.HTTPClient.Send: calling filing API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("filing.HTTPClient.Send: reading response: %w", err)
	}

	return &port.FilingResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}
