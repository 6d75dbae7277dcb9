package conversation

import (
	"context"
	"errors"
	"testing"
)

func TestFallbackLLMClient(t *testing.T) {
	ctx := context.Background()
	req := LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}}

	t.Run("primary succeeds", func(t *testing.T) {
		primary := &stubLLM{resp: LLMResponse{Text: "primary"}}
		fallback := &stubLLM{resp: LLMResponse{Text: "fallback"}}
		resp, err := NewFallbackLLMClient(primary, fallback, nil).Complete(ctx, req)
		if err != nil || resp.Text != "primary" {
			t.Fatalf("got %q, %v", resp.Text, err)
		}
		if len(fallback.calls) != 0 {
			t.Fatalf("fallback should not be called")
		}
	})

	t.Run("fallback after primary error", func(t *testing.T) {
		primary := &stubLLM{err: errors.New("rate limited")}
		fallback := &stubLLM{resp: LLMResponse{Text: "fallback"}}
		resp, err := NewFallbackLLMClient(primary, fallback, nil).Complete(ctx, req)
		if err != nil || resp.Text != "fallback" {
			t.Fatalf("got %q, %v", resp.Text, err)
		}
	})

	t.Run("both fail", func(t *testing.T) {
		fallbackErr := errors.New("fallback down")
		_, err := NewFallbackLLMClient(&stubLLM{err: errors.New("primary down")}, &stubLLM{err: fallbackErr}, nil).Complete(ctx, req)
		if !errors.Is(err, fallbackErr) {
			t.Fatalf("expected fallback error, got %v", err)
		}
	})

	t.Run("no fallback configured", func(t *testing.T) {
		primaryErr := errors.New("primary down")
		_, err := NewFallbackLLMClient(&stubLLM{err: primaryErr}, nil, nil).Complete(ctx, req)
		if !errors.Is(err, primaryErr) {
			t.Fatalf("expected primary error, got %v", err)
		}
	})
}
