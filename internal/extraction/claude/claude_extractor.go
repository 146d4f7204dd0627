package claude

import (
	"context"
	"net/http"

	"borderdesk/internal/config"
	"borderdesk/internal/domain"
	"borderdesk/internal/extraction"
	"borderdesk/internal/port"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"

	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 3000
	providerName     = "claude"
)

// Register adds the "claude" provider to the extraction registry.
func Register() {
	extraction.RegisterProvider(providerName, func(cfg *config.ExtractorProviderConfig) (port.StructuredExtractor, error) {
		return NewExtractor(cfg), nil
	})
}

// Extractor implements port.StructuredExtractor using the Anthropic Messages API.
// The API has no JSON mode, so the prompt alone asks for a bare object.
type Extractor struct {
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	temperature float64
	policy      extraction.RetryPolicy
	client      *http.Client
}

// NewExtractor creates a Claude-based extractor from a provider config.
func NewExtractor(cfg *config.ExtractorProviderConfig) *Extractor {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	return newExtractor(cfg, endpoint)
}

// NewExtractorWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewExtractorWithEndpoint(cfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	return newExtractor(cfg, endpoint)
}

func newExtractor(cfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Extractor{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    endpoint,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		policy:      extraction.PolicyFromConfig(cfg),
		client:      &http.Client{},
	}
}

// WithRetryPolicy replaces the retry policy.
func (e *Extractor) WithRetryPolicy(p extraction.RetryPolicy) *Extractor {
	e.policy = p
	return e
}

func (e *Extractor) Extract(ctx context.Context, prompt port.Prompt) (*domain.ExtractedManifest, error) {
	reqBody := map[string]interface{}{
		"model":       e.model,
		"max_tokens":  e.maxTokens,
		"temperature": e.temperature,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt.Text,
			},
		},
	}
	headers := map[string]string{
		"x-api-key":         e.apiKey,
		"anthropic-version": apiVersion,
	}

	return extraction.Retry(ctx, e.policy, providerName, func(ctx context.Context) (*domain.ExtractedManifest, error) {
		respBody, err := extraction.PostJSON(ctx, e.client, providerName, e.endpoint, headers, reqBody)
		if err != nil {
			return nil, err
		}
		return e.parseResponse(respBody, prompt.Text)
	})
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (e *Extractor) parseResponse(body []byte, prompt string) (*domain.ExtractedManifest, error) {
	var resp apiResponse
	if err := extraction.Unmarshal(providerName, body, &resp); err != nil {
		return nil, err
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, &extraction.MalformedResponseError{Provider: providerName, Reason: "no text content", Raw: string(body)}
	}

	if resp.StopReason == "max_tokens" {
		return nil, &extraction.MalformedResponseError{Provider: providerName, Reason: "output truncated (stop_reason: max_tokens)", Raw: text}
	}

	data, err := extraction.DecodeObject(providerName, text)
	if err != nil {
		return nil, err
	}

	return &domain.ExtractedManifest{
		Data:       data,
		ModelUsed:  e.model,
		PromptUsed: prompt,
	}, nil
}
