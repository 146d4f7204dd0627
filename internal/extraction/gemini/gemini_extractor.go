package gemini

import (
	"context"
	"fmt"
	"net/http"

	"borderdesk/internal/config"
	"borderdesk/internal/domain"
	"borderdesk/internal/extraction"
	"borderdesk/internal/port"
)

const (
	apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 3000
	providerName     = "gemini"
)

// Register adds the "gemini" provider to the extraction registry.
func Register() {
	extraction.RegisterProvider(providerName, func(cfg *config.ExtractorProviderConfig) (port.StructuredExtractor, error) {
		return NewExtractor(cfg), nil
	})
}

// Extractor implements port.StructuredExtractor using Google's Gemini API.
type Extractor struct {
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	temperature float64
	policy      extraction.RetryPolicy
	client      *http.Client
}

// NewExtractor creates a Gemini-based extractor.
func NewExtractor(cfg *config.ExtractorProviderConfig) *Extractor {
	return newExtractor(cfg, cfg.Endpoint)
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
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": prompt.Text},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"maxOutputTokens":  e.maxTokens,
			"temperature":      e.temperature,
		},
	}
	headers := map[string]string{"x-goog-api-key": e.apiKey}

	return extraction.Retry(ctx, e.policy, providerName, func(ctx context.Context) (*domain.ExtractedManifest, error) {
		respBody, err := extraction.PostJSON(ctx, e.client, providerName, e.endpoint, headers, reqBody)
		if err != nil {
			return nil, err
		}
		return e.parseResponse(respBody, prompt.Text)
	})
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (e *Extractor) parseResponse(body []byte, prompt string) (*domain.ExtractedManifest, error) {
	var resp geminiResponse
	if err := extraction.Unmarshal(providerName, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, &extraction.MalformedResponseError{Provider: providerName, Reason: "no candidates", Raw: string(body)}
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &extraction.MalformedResponseError{Provider: providerName, Reason: "no parts", Raw: string(body)}
	}
	if resp.Candidates[0].FinishReason == "MAX_TOKENS" {
		return nil, &extraction.MalformedResponseError{Provider: providerName, Reason: "output truncated (finishReason: MAX_TOKENS)", Raw: resp.Candidates[0].Content.Parts[0].Text}
	}

	data, err := extraction.DecodeObject(providerName, resp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}

	return &domain.ExtractedManifest{
		Data:       data,
		ModelUsed:  e.model,
		PromptUsed: prompt,
	}, nil
}
