package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

func completionJSON(content, usage string) string {
	return fmt.Sprintf(`{
		"id": "cmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "test-model",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %q}}],
		"usage": %s
	}`, content, usage)
}

func testConfig(baseURL string) ProviderConfig {
	return ProviderConfig{
		Provider:    suggest.ProviderDeepSeek,
		APIKey:      "sk-test-key-123456",
		BaseURL:     baseURL,
		Model:       "test-model",
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
	}
}

func TestNewClientUnavailable(t *testing.T) {
	_, err := NewClient(ProviderConfig{Provider: suggest.ProviderOpenAI, Model: "m"})
	require.Error(t, err)
	assert.Equal(t, KindUnavailable, KindOf(err))

	_, err = NewClient(ProviderConfig{Provider: suggest.ProviderOpenAI, APIKey: "k"})
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestCompleteParsesContentAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test-key-123456", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON(`{"results":[]}`,
			`{"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150, "prompt_cache_hit_tokens": 100, "prompt_cache_miss_tokens": 20}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), Request{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, `{"results":[]}`, resp.Content)
	assert.Equal(t, int64(120), resp.Usage.PromptTokens)
	assert.Equal(t, int64(30), resp.Usage.CompletionTokens)
	assert.Equal(t, int64(150), resp.Usage.TotalTokens)
	assert.Equal(t, int64(100), resp.Usage.CacheHitTokens)
	assert.Equal(t, int64(20), resp.Usage.CacheMissTokens)
}

func TestCompleteUsesOpenAICachedTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("ok",
			`{"prompt_tokens": 200, "completion_tokens": 10, "total_tokens": 210, "prompt_tokens_details": {"cached_tokens": 50}}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), Request{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, int64(50), resp.Usage.CacheHitTokens)
	assert.Equal(t, int64(150), resp.Usage.CacheMissTokens)
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}
		fmt.Fprint(w, completionJSON("ok", `{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), Request{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteTimeoutExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{User: "u"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteDoesNotRetryAuthErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{User: "u"})
	require.Error(t, err)
	assert.Equal(t, KindFatal, KindOf(err))
	assert.Equal(t, int32(1), calls.Load())

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
}

func TestCompleteEmptyContentIsSchemaError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("   ", `{"prompt_tokens": 1, "completion_tokens": 0, "total_tokens": 1}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{User: "u"})
	assert.Equal(t, KindSchema, KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackoff(t *testing.T) {
	c := &Client{cfg: ProviderConfig{BackoffBase: time.Second, BackoffMax: 5 * time.Second}}
	assert.Equal(t, time.Second, c.backoff(1))
	assert.Equal(t, 2*time.Second, c.backoff(2))
	assert.Equal(t, 4*time.Second, c.backoff(3))
	assert.Equal(t, 5*time.Second, c.backoff(4))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindTransient, classify("p", context.DeadlineExceeded).Kind)
	assert.Equal(t, KindFatal, classify("p", errors.New("boom")).Kind)

	pe := schemaError("p", errors.New("bad"))
	assert.Same(t, pe, classify("p", fmt.Errorf("wrapped: %w", pe)))
}

func TestRedact(t *testing.T) {
	msg := "request failed: Authorization: Bearer sk-abcdef1234567890 api_key=supersecret key sk-live-ABCDEFGH1234"
	out := Redact(msg, "supersecret")

	assert.NotContains(t, out, "sk-abcdef1234567890")
	assert.NotContains(t, out, "supersecret")
	assert.NotContains(t, out, "sk-live-ABCDEFGH1234")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "", Redact("", "x"))
}
