// Package anthropic wraps the official anthropic-sdk-go behind the narrow
// completion interface the refinement engine consumes.
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/resumewise/refine-cli/internal/resilience"
)

// Completer is the text-generation capability: one prompt in, generated text
// out, with per-call temperature and an optional output token cap.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest describes a single generation call.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int64

	// CacheSystem marks the system block for ephemeral prompt caching.
	// Useful for the fixed anti-fabrication rule block repeated every call.
	CacheSystem bool

	// Phase labels the call for cost attribution logs.
	Phase string
}

// MalformedResponseError indicates the service answered but the response
// could not be used (empty content, refusal, truncation). Not retryable.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "anthropic: malformed response: " + e.Reason
}

// IsMalformed reports whether err is a MalformedResponseError.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// modelPricing holds per-million-token pricing for known models.
var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-6":            {15.00, 75.00},
}

// EstimateCost computes an estimated cost in USD from a TokenUsage and model ID.
// Returns 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	inCost := (float64(u.InputTokens) / 1e6) * pricing[0]
	outCost := (float64(u.OutputTokens) / 1e6) * pricing[1]
	cacheWriteCost := (float64(u.CacheCreationInputTokens) / 1e6) * pricing[0] * 1.25
	cacheReadCost := (float64(u.CacheReadInputTokens) / 1e6) * pricing[0] * 0.1
	return inCost + outCost + cacheWriteCost + cacheReadCost
}

// LogCost logs token usage and estimated cost with structured zap fields.
func (u TokenUsage) LogCost(model, phase string) {
	cost := u.EstimateCost(model)
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", cost),
	)
}

// ClientOption configures the SDK-backed client.
type ClientOption func(*sdkClient)

// WithRetry sets the retry policy for transient failures (429, 5xx, network).
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *sdkClient) { c.retry = cfg }
}

// WithRateLimit installs an inter-call limiter shared by all completions.
// Generation providers rate-limit aggressively; pacing calls with a small
// delay avoids 429 churn across a whole session.
func WithRateLimit(l *rate.Limiter) ClientOption {
	return func(c *sdkClient) { c.limiter = l }
}

// sdkClient implements Completer using the official anthropic-sdk-go.
type sdkClient struct {
	client  sdk.Client
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// NewClient creates a Completer backed by the SDK.
func NewClient(apiKey string, opts ...ClientOption) Completer {
	c := &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sdkClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "anthropic: rate limit wait")
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(req.Model),
		MaxTokens:   maxTokens,
		Temperature: sdk.Float(req.Temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		block := sdk.TextBlockParam{Text: req.System}
		if req.CacheSystem {
			block.CacheControl = sdk.NewCacheControlEphemeralParam()
		}
		params.System = []sdk.TextBlockParam{block}
	}

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("anthropic", req.Phase)

	msg, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*sdk.Message, error) {
		m, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return nil, classifyError(err)
		}
		return m, nil
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: complete")
	}

	usage := TokenUsage{
		InputTokens:              msg.Usage.InputTokens,
		OutputTokens:             msg.Usage.OutputTokens,
		CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
	}
	usage.LogCost(req.Model, req.Phase)

	text := extractText(msg)
	if text == "" {
		return "", &MalformedResponseError{Reason: "no text content in response"}
	}
	return text, nil
}

// classifyError wraps SDK errors so transient failures are retried and
// permanent ones surface immediately.
func classifyError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}

func extractText(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
