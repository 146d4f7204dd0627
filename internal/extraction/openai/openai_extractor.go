package openai

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
	openAIURL = "https://api.openai.com/v1/chat/completions"
	groqURL   = "https://api.groq.com/openai/v1/chat/completions"

	defaultOpenAIModel = "gpt-4o-mini"
	defaultGroqModel   = "llama-3.3-70b-versatile"
	defaultMaxTokens   = 3000
)

// Register adds the "openai" and "groq" providers to the extraction registry.
func Register() {
	extraction.RegisterProvider("openai", func(cfg *config.ExtractorProviderConfig) (port.StructuredExtractor, error) {
		return NewExtractor(cfg), nil
	})
	extraction.RegisterProvider("groq", func(cfg *config.ExtractorProviderConfig) (port.StructuredExtractor, error) {
		return NewExtractor(cfg), nil
	})
}

// Extractor implements port.StructuredExtractor against any OpenAI-compatible
// Chat Completions API (OpenAI, Groq).
type Extractor struct {
	name        string
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	temperature float64
	policy      extraction.RetryPolicy
	client      *http.Client
}

// NewExtractor creates an extractor from a provider config. The endpoint and
// default model follow cfg.Provider unless cfg.Endpoint or cfg.Model override them.
func NewExtractor(cfg *config.ExtractorProviderConfig) *Extractor {
	return newExtractor(cfg, cfg.Endpoint)
}

// NewExtractorWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewExtractorWithEndpoint(cfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	return newExtractor(cfg, endpoint)
}

func newExtractor(cfg *config.ExtractorProviderConfig, endpoint string) *Extractor {
	name := cfg.Provider
	if name == "" {
		name = "openai"
	}
	model := cfg.Model
	if endpoint == "" {
		endpoint = openAIURL
		if name == "groq" {
			endpoint = groqURL
		}
	}
	if model == "" {
		model = defaultOpenAIModel
		if name == "groq" {
			model = defaultGroqModel
		}
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Extractor{
		name:        name,
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
		"response_format": map[string]interface{}{
			"type": "json_object",
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + e.apiKey}

	return extraction.Retry(ctx, e.policy, e.name, func(ctx context.Context) (*domain.ExtractedManifest, error) {
		respBody, err := extraction.PostJSON(ctx, e.client, e.name, e.endpoint, headers, reqBody)
		if err != nil {
			return nil, err
		}
		return e.parseResponse(respBody, prompt.Text)
	})
}

// apiResponse models the Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (e *Extractor) parseResponse(body []byte, prompt string) (*domain.ExtractedManifest, error) {
	var resp apiResponse
	if err := extraction.Unmarshal(e.name, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, &extraction.MalformedResponseError{Provider: e.name, Reason: "no choices", Raw: string(body)}
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, &extraction.MalformedResponseError{
			Provider: e.name,
			Reason:   fmt.Sprintf("output truncated at %d tokens", e.maxTokens),
			Raw:      resp.Choices[0].Message.Content,
		}
	}

	data, err := extraction.DecodeObject(e.name, resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return &domain.ExtractedManifest{
		Data:       data,
		ModelUsed:  e.model,
		PromptUsed: prompt,
	}, nil
}
