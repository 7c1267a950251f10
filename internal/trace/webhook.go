package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/resumewise/refine-cli/internal/resilience"
)

// WebhookSink delivers trace events to an external HTTP endpoint as JSON.
// Deliveries are retried on transient failures; a non-2xx response other
// than 408/429/5xx is treated as permanent. A circuit breaker skips
// deliveries entirely while the endpoint keeps failing.
type WebhookSink struct {
	url     string
	client  *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewWebhookSink creates a sink posting to the given URL.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
}

type webhookEnvelope struct {
	Kind     string `json:"kind"`
	Decision any    `json:"decision,omitempty"`
	Metric   any    `json:"metric,omitempty"`
}

// RecordDecision posts a decision event to the webhook.
func (w *WebhookSink) RecordDecision(ctx context.Context, ev DecisionEvent) error {
	return w.post(ctx, webhookEnvelope{Kind: "decision", Decision: ev})
}

// RecordMetric posts a metric event to the webhook.
func (w *WebhookSink) RecordMetric(ctx context.Context, ev MetricEvent) error {
	return w.post(ctx, webhookEnvelope{Kind: "metric", Metric: ev})
}

func (w *WebhookSink) post(ctx context.Context, env webhookEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return eris.Wrap(err, "trace: marshal webhook payload")
	}

	cfg := w.retry
	cfg.OnRetry = resilience.RetryLogger("trace", "webhook")
	return w.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Do(ctx, cfg, w.send(payload))
	})
}

func (w *WebhookSink) send(payload []byte) func(context.Context) error {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
		if err != nil {
			return eris.Wrap(err, "trace: create webhook request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return eris.Wrap(err, "trace: webhook request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode >= 400 {
			err := eris.Errorf("trace: webhook returned status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(err, resp.StatusCode)
			}
			return err
		}
		return nil
	}
}
