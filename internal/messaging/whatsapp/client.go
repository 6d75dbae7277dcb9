// Package whatsapp delivers text replies through the WhatsApp provider API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/wpchat-gateway/internal/observability/metrics"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

const (
	DefaultURL         = "https://api.aoc-portal.com/v1/whatsapp"
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3
	defaultBackoff     = time.Second
	maxErrorBody       = 2048
)

// Delivery statuses reported in Response.Status.
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
)

// ErrMissingAPIKey is returned when the tenant has no provider credential.
var ErrMissingAPIKey = errors.New("whatsapp: API key not provided")

var tracer = otel.Tracer("wpchat.internal.messaging.whatsapp")

// Config controls how the delivery client behaves. Zero values select the
// defaults: 10s per attempt, 3 attempts, 1s base backoff.
type Config struct {
	URL         string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	HTTPClient  *http.Client
	Logger      *logging.Logger
	Metrics     *metrics.GatewayMetrics
}

// Client posts text envelopes to the provider with bounded retries.
type Client struct {
	url         string
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	logger      *logging.Logger
	metrics     *metrics.GatewayMetrics
}

// Response describes one delivery. Body holds the provider's reply when sent.
type Response struct {
	Status   string          `json:"status"`
	Reason   string          `json:"reason,omitempty"`
	Attempts int             `json:"attempts,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
}

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("whatsapp: provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("whatsapp: provider returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports false only for 4xx other than 429.
func (e *APIError) Retryable() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode < 400 || e.StatusCode >= 500
}

type envelope struct {
	RecipientType string      `json:"recipient_type"`
	From          string      `json:"from"`
	To            string      `json:"to"`
	Type          string      `json:"type"`
	Text          textPayload `json:"text"`
}

type textPayload struct {
	Body string `json:"body"`
}

func New(cfg Config) *Client {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = DefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		url:         url,
		httpClient:  httpClient,
		timeout:     timeout,
		maxAttempts: attempts,
		backoff:     backoff,
		logger:      logger,
		metrics:     cfg.Metrics,
	}
}

// Deliver sends text from one address to another using the tenant's apiKey.
// Blank text is skipped without a network call. 4xx responses other than 429
// fail immediately; everything else is retried with exponential backoff and
// the last error is returned once attempts run out.
func (c *Client) Deliver(ctx context.Context, from, to, text, apiKey string) (*Response, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(text) == "" {
		c.metrics.ObserveDeliveryAttempt("skipped")
		c.logger.Warn("empty reply, skipping delivery", "to", to)
		return &Response{Status: StatusSkipped, Reason: "empty_message"}, nil
	}

	ctx, span := tracer.Start(ctx, "whatsapp.deliver")
	defer span.End()

	body, err := json.Marshal(envelope{
		RecipientType: "individual",
		From:          from,
		To:            to,
		Type:          "text",
		Text:          textPayload{Body: text},
	})
	if err != nil {
		return nil, fmt.Errorf("whatsapp: marshal envelope: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		span.SetAttributes(attribute.Int("whatsapp.attempts", attempt))
		data, err := c.post(ctx, body, apiKey)
		if err == nil {
			c.metrics.ObserveDeliveryAttempt("ok")
			c.logger.Info("reply delivered", "to", to, "attempt", attempt, "length", len(text))
			return &Response{Status: StatusSent, Attempts: attempt, Body: jsonOrNil(data)}, nil
		}
		lastErr = err

		if !c.shouldRetry(ctx, err) || attempt == c.maxAttempts {
			c.metrics.ObserveDeliveryAttempt("error")
			break
		}
		c.metrics.ObserveDeliveryAttempt("retry")
		delay := c.backoff * time.Duration(1<<(attempt-1))
		c.logger.Warn("whatsapp delivery retry",
			"to", to,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "delivery failed")
	c.logger.Error("whatsapp delivery failed", "to", to, "error", lastErr)
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, body []byte, apiKey string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// shouldRetry treats every failure except a 4xx other than 429 as transient.
// A cancelled caller context stops retries; a per-attempt timeout does not.
func (c *Client) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jsonOrNil(data []byte) json.RawMessage {
	if len(bytes.TrimSpace(data)) == 0 || !json.Valid(data) {
		return nil
	}
	return json.RawMessage(data)
}
