package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"borderdesk/internal/config"
	"borderdesk/internal/domain"
	"borderdesk/internal/extraction"
	"borderdesk/internal/extraction/openai"
	"borderdesk/internal/port"
)

const manifestJSON = `{"shipment":{"shipment_control_number":"ABCD1234","shipper":{"name":"Acme Steel"},"consignee":{"name":"Northern Fab"}},"commodities":[{"description":"Steel coils","quantity":12}]}`

func newTestExtractor(provider, serverURL string) *openai.Extractor {
	cfg := &config.ExtractorProviderConfig{
		Provider:  provider,
		APIKey:    "test-key",
		MaxTokens: 3000,
	}
	return openai.NewExtractorWithEndpoint(cfg, serverURL).WithRetryPolicy(extraction.RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		AttemptTimeout: 2 * time.Second,
	})
}

func chatResponse(content, finishReason string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": finishReason,
			},
		},
	}
}

func TestExtractor_Extract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "llama-3.3-70b-versatile", reqBody["model"])
		assert.Equal(t, float64(3000), reqBody["max_tokens"])
		assert.Equal(t, float64(0), reqBody["temperature"])
		assert.Equal(t, map[string]interface{}{"type": "json_object"}, reqBody["response_format"])

		messages := reqBody["messages"].([]interface{})
		require.Len(t, messages, 1)
		msg := messages[0].(map[string]interface{})
		assert.Equal(t, "user", msg["role"])
		assert.Equal(t, "the prompt", msg["content"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(chatResponse(manifestJSON, "stop"))
	}))
	defer server.Close()

	ex := newTestExtractor("groq", server.URL)

	out, err := ex.Extract(context.Background(), port.Prompt{Text: "the prompt"})

	require.NoError(t, err)
	assert.JSONEq(t, manifestJSON, string(out.Data))
	assert.Equal(t, "llama-3.3-70b-versatile", out.ModelUsed)
	assert.Equal(t, "the prompt", out.PromptUsed)
}

func TestExtractor_Extract_OpenAIDefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "gpt-4o-mini", reqBody["model"])
		_ = json.NewEncoder(w).Encode(chatResponse(manifestJSON, "stop"))
	}))
	defer server.Close()

	out, err := newTestExtractor("openai", server.URL).Extract(context.Background(), port.Prompt{Text: "p"})

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", out.ModelUsed)
}

func TestExtractor_Extract_ProseIsMalformedAndNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(chatResponse("I could not find a manifest in this document.", "stop"))
	}))
	defer server.Close()

	_, err := newTestExtractor("groq", server.URL).Extract(context.Background(), port.Prompt{Text: "p"})

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestExtractor_Extract_TruncatedOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"shipment":{"shipment_con`, "length"))
	}))
	defer server.Close()

	_, err := newTestExtractor("groq", server.URL).Extract(context.Background(), port.Prompt{Text: "p"})

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	assert.Contains(t, err.Error(), "truncated")
}

func TestExtractor_Extract_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestExtractor("groq", server.URL).Extract(context.Background(), port.Prompt{Text: "p"})

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestExtractor_Extract_RetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse(manifestJSON, "stop"))
	}))
	defer server.Close()

	out, err := newTestExtractor("groq", server.URL).Extract(context.Background(), port.Prompt{Text: "p"})

	require.NoError(t, err)
	assert.NotEmpty(t, out.Data)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestExtractor_Extract_GivesUpAfterThreeAttempts(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestExtractor("groq", server.URL).Extract(context.Background(), port.Prompt{Text: "p"})

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestExtractor_Extract_UnauthorizedNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	_, err := newTestExtractor("groq", server.URL).Extract(context.Background(), port.Prompt{Text: "p"})

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	var pe *extraction.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestExtractor_Extract_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestExtractor("groq", server.URL).Extract(context.Background(), port.Prompt{Text: "p"})

	var rl *extraction.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "groq", rl.Provider)
	assert.Equal(t, 5*time.Second, rl.RetryAfter)
}

func TestExtractor_Extract_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestExtractor("groq", server.URL).Extract(ctx, port.Prompt{Text: "p"})

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}
