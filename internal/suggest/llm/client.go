// Package llm talks to OpenAI-compatible chat completion providers with
// rate limiting, classified errors and an explicit retry loop.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"golang.org/x/time/rate"

	"github.com/killallgit/sermon-clips/internal/suggest"
)

const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoffBase = time.Second
	DefaultBackoffMax  = 30 * time.Second
)

// ProviderConfig is passed explicitly into every run.
type ProviderConfig struct {
	Provider          suggest.Provider
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	RequestsPerMinute int
	Temperature       float64
	JSONMode          bool
}

// Configured reports whether credentials are present.
func (c ProviderConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	return c
}

// Request is a single system + user prompt exchange.
type Request struct {
	System string
	User   string
	// Timeout overrides the provider timeout for this call.
	Timeout time.Duration
}

// Response carries the assistant content and the usage the provider reported.
type Response struct {
	Content string
	Usage   suggest.Usage
}

// ChatClient is what strategies call.
type ChatClient interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Client implements ChatClient over the openai-go SDK. SDK retries are
// disabled; Complete runs its own loop so failures can be classified.
type Client struct {
	cfg     ProviderConfig
	api     openai.Client
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewClient returns a KindUnavailable error when the provider has no
// credentials or model.
func NewClient(cfg ProviderConfig, opts ...option.RequestOption) (*Client, error) {
	if !cfg.Configured() {
		return nil, unavailable(string(cfg.Provider), "no api key configured")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, unavailable(string(cfg.Provider), "no model configured")
	}
	cfg = cfg.withDefaults()

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		burst := max(1, min(cfg.RequestsPerMinute/10, 5))
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), burst)
	}

	return &Client{
		cfg:     cfg,
		api:     openai.NewClient(clientOpts...),
		limiter: limiter,
		sleep:   sleepContext,
	}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() ProviderConfig {
	return c.cfg
}

// Complete sends req, retrying transient failures with exponential backoff.
// The returned error is always a *ProviderError.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	provider := string(c.cfg.Provider)
	var lastErr *ProviderError

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, classify(provider, err)
		}

		resp, err := c.once(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = classify(provider, err)
		if lastErr.Kind != KindTransient || attempt == c.cfg.MaxAttempts || ctx.Err() != nil {
			break
		}

		delay := c.backoff(attempt)
		log.Printf("[WARN] %s call failed (attempt %d/%d), retrying in %s: %s",
			provider, attempt, c.cfg.MaxAttempts, delay, Redact(lastErr.Error(), c.cfg.APIKey))
		if err := c.sleep(ctx, delay); err != nil {
			break
		}
	}
	return Response{}, lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.BackoffBase << (attempt - 1)
	if d <= 0 || d > c.cfg.BackoffMax {
		return c.cfg.BackoffMax
	}
	return d
}

func (c *Client) once(ctx context.Context, req Request) (Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(c.cfg.Temperature),
	}
	if c.cfg.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}

	completion, err := c.api.Chat.Completions.New(callCtx, params)
	if err != nil {
		return Response{}, err
	}
	if len(completion.Choices) == 0 {
		return Response{}, schemaError(string(c.cfg.Provider), errors.New("no choices in response"))
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return Response{}, schemaError(string(c.cfg.Provider), errors.New("empty content"))
	}

	u := suggest.Usage{
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		CacheHitTokens:   completion.Usage.PromptTokensDetails.CachedTokens,
	}
	u.CacheMissTokens = max(0, u.PromptTokens-u.CacheHitTokens)
	applyProviderCacheCounters(&u, completion.RawJSON())
	u.TotalTokens = u.PromptTokens + u.CompletionTokens

	return Response{Content: content, Usage: u}, nil
}

// DeepSeek reports cache counters outside the OpenAI usage schema.
type cacheCounters struct {
	Usage struct {
		PromptCacheHitTokens  *int64 `json:"prompt_cache_hit_tokens"`
		PromptCacheMissTokens *int64 `json:"prompt_cache_miss_tokens"`
	} `json:"usage"`
}

func applyProviderCacheCounters(u *suggest.Usage, raw string) {
	if raw == "" {
		return
	}
	var cc cacheCounters
	if err := json.Unmarshal([]byte(raw), &cc); err != nil {
		return
	}
	if cc.Usage.PromptCacheHitTokens != nil {
		u.CacheHitTokens = max(0, *cc.Usage.PromptCacheHitTokens)
	}
	if cc.Usage.PromptCacheMissTokens != nil {
		u.CacheMissTokens = max(0, *cc.Usage.PromptCacheMissTokens)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
