package conversation

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/wpchat-gateway/internal/observability/metrics"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

var summarizerTracer = otel.Tracer("wpchat.internal.conversation.summarizer")

const (
	summaryTemperature = 0.3
	summaryMaxTokens   = 300
)

// Summarizer compacts an overflowing history into a single paragraph.
type Summarizer struct {
	llm     LLMClient
	model   string
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics
	timeout time.Duration
}

type SummarizerOption func(*Summarizer)

func WithSummarizerMetrics(m *metrics.GatewayMetrics) SummarizerOption {
	return func(s *Summarizer) {
		s.metrics = m
	}
}

// WithSummaryTimeout bounds the summary completion call.
func WithSummaryTimeout(d time.Duration) SummarizerOption {
	return func(s *Summarizer) { s.timeout = d }
}

func NewSummarizer(llm LLMClient, model string, logger *logging.Logger, opts ...SummarizerOption) *Summarizer {
	if llm == nil {
		panic("conversation: summarizer llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Summarizer{llm: llm, model: model, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize returns the new summary text. It never fails: on any error it
// returns existing, or SummaryUnavailable when there is no existing summary.
func (s *Summarizer) Summarize(ctx context.Context, messages []Message, existing string) string {
	ctx, span := summarizerTracer.Start(ctx, "conversation.summarize")
	defer span.End()
	span.SetAttributes(attribute.Int("conversation.messages", len(messages)))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:       s.model,
		System:      []string{SummarizationPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: summaryTranscript(messages, existing)}},
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err == nil && strings.TrimSpace(resp.Text) != "" {
		s.metrics.ObserveCompletion("summary", "ok")
		s.metrics.ObserveSummarization("ok")
		return resp.Text
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "summarization failed")
		s.metrics.ObserveCompletion("summary", "error")
		s.logger.Error("summarization failed", "error", err, "messages", len(messages))
	} else {
		s.metrics.ObserveCompletion("summary", "empty")
		s.logger.Warn("summarization returned empty text", "messages", len(messages))
	}
	s.metrics.ObserveSummarization("fallback")
	if strings.TrimSpace(existing) != "" {
		return existing
	}
	return SummaryUnavailable
}

func summaryTranscript(messages []Message, existing string) string {
	var b strings.Builder
	if strings.TrimSpace(existing) != "" {
		b.WriteString("Previous summary:\n")
		b.WriteString(existing)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation:\n")
	for _, msg := range messages {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}
