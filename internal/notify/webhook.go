package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WebhookConfig configures the relay client.
type WebhookConfig struct {
	URL            string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

// WebhookSender POSTs each notification as JSON to the relay. Calls go through a
// circuit breaker so a dead relay fails fast instead of stalling requests.
type WebhookSender struct {
	url    string
	cfg    WebhookConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

type payload struct {
	Kind      Kind           `json:"kind"`
	Recipient string         `json:"recipient"`
	Data      map[string]any `json:"data,omitempty"`
}

// permanentError is not retried (4xx from the relay).
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func NewWebhookSender(cfg WebhookConfig) *WebhookSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	return &WebhookSender{
		url: cfg.URL,
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb: newCircuitBreaker("notify-webhook"),
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

func (s *WebhookSender) Send(ctx context.Context, kind Kind, recipient string, data map[string]any) error {
	if recipient == "" {
		return ErrNoRecipient
	}
	body, err := json.Marshal(payload{Kind: kind, Recipient: recipient, Data: data})
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", kind, err)
	}

	_, err = s.cb.Execute(func() (interface{}, error) {
		return nil, retryWithBackoff(ctx, s.cfg.MaxRetries, s.cfg.InitialBackoff, func() error {
			return s.post(ctx, body)
		})
	})
	if err != nil {
		return fmt.Errorf("notify: send %s: %w", kind, err)
	}
	return nil
}

func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &permanentError{err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call relay: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return &permanentError{err: fmt.Errorf("relay rejected notification: status %d", resp.StatusCode)}
	default:
		return fmt.Errorf("relay unavailable: status %d", resp.StatusCode)
	}
}

// retryWithBackoff runs fn up to maxRetries+1 times with exponential backoff and
// jitter, stopping early on a permanent error or context cancellation.
func retryWithBackoff(ctx context.Context, maxRetries int, initial time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return lastErr
		}

		if attempt < maxRetries {
			wait := time.Duration(math.Pow(2, float64(attempt))) * initial
			if half := int64(wait / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}
