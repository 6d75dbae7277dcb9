package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, server *httptest.Server, cfg Config) *Client {
	t.Helper()
	cfg.URL = server.URL
	cfg.HTTPClient = server.Client()
	if cfg.Backoff == 0 {
		cfg.Backoff = 5 * time.Millisecond
	}
	return New(cfg)
}

func TestDeliverSendsEnvelope(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "tenant-key", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message_id":"wamid.123"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server, Config{}).Deliver(context.Background(), "+15551230000", "+15550001111", "Hello!", "tenant-key")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, resp.Status)
	assert.Equal(t, 1, resp.Attempts)
	assert.JSONEq(t, `{"message_id":"wamid.123"}`, string(resp.Body))

	assert.Equal(t, map[string]any{
		"recipient_type": "individual",
		"from":           "+15551230000",
		"to":             "+15550001111",
		"type":           "text",
		"text":           map[string]any{"body": "Hello!"},
	}, got)
}

func TestDeliverMissingAPIKey(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	_, err := newTestClient(t, server, Config{}).Deliver(context.Background(), "+1", "+2", "hi", " ")
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
	assert.Zero(t, calls.Load())
}

func TestDeliverSkipsBlankText(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	resp, err := newTestClient(t, server, Config{}).Deliver(context.Background(), "+1", "+2", " \n\t", "key")
	require.NoError(t, err)
	assert.Equal(t, &Response{Status: StatusSkipped, Reason: "empty_message"}, resp)
	assert.Zero(t, calls.Load())
}

func TestDeliverRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	start := time.Now()
	resp, err := newTestClient(t, server, Config{Backoff: 20 * time.Millisecond}).Deliver(context.Background(), "+1", "+2", "hi", "key")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Attempts)
	assert.EqualValues(t, 3, calls.Load())
	// 20ms before attempt 2, 40ms before attempt 3.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestDeliverClientErrorIsFatal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"unknown number"}`))
	}))
	defer server.Close()

	start := time.Now()
	_, err := newTestClient(t, server, Config{Backoff: time.Second}).Deliver(context.Background(), "+1", "+2", "hi", "key")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, apiErr.Retryable())
	assert.Contains(t, apiErr.Body, "unknown number")
	assert.EqualValues(t, 1, calls.Load())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDeliverExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t, server, Config{}).Deliver(context.Background(), "+1", "+2", "hi", "key")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDeliverPerAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := newTestClient(t, server, Config{Timeout: 30 * time.Millisecond}).Deliver(context.Background(), "+1", "+2", "hi", "key")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Attempts)
}

func TestDeliverStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, server, Config{Backoff: time.Second})
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Deliver(ctx, "+1", "+2", "hi", "key")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultURL, c.url)
	assert.Equal(t, 10*time.Second, c.timeout)
	assert.Equal(t, 3, c.maxAttempts)
	assert.Equal(t, time.Second, c.backoff)
}

func TestAPIErrorRetryable(t *testing.T) {
	cases := map[int]bool{
		http.StatusNotModified:         true,
		http.StatusBadRequest:          false,
		http.StatusUnauthorized:        false,
		http.StatusNotFound:            false,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
	}
	for status, want := range cases {
		assert.Equal(t, want, (&APIError{StatusCode: status}).Retryable(), "status %d", status)
	}
}

func TestDeliverRetriesNonErrorStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := newTestClient(t, server, Config{}).Deliver(context.Background(), "+1", "+2", "hi", "key")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Attempts)
	assert.EqualValues(t, 2, calls.Load())
}
