package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/wpchat-gateway/internal/observability/metrics"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

var generatorTracer = otel.Tracer("wpchat.internal.conversation.generator")

const (
	historyWindow         = 10
	generationTemperature = 0.3
	defaultMaxTokens      = 500
)

var errNoChoices = errors.New("conversation: completion returned no choices")

// ToolRouter exposes the tool catalog offered on the first completion and
// executes the calls the model makes. Invoke never fails; errors come back as
// JSON payloads for the model to read.
type ToolRouter interface {
	Tools() []openai.Tool
	Invoke(ctx context.Context, name, arguments string) string
}

// KnowledgeSource returns a block of live domain facts for the system prompt,
// or "" when nothing is available.
type KnowledgeSource interface {
	Knowledge(ctx context.Context) string
}

// GenerateRequest carries everything one reply is built from.
type GenerateRequest struct {
	// SystemPrompt overrides DefaultSystemPrompt when non-empty.
	SystemPrompt string
	Summary      string
	History      []Message
	Message      string
}

// Reply is the cleaned text plus the names of the tools that ran.
type Reply struct {
	Text  string
	Tools []string
}

// Generator drives one turn of the tool-calling exchange: a first completion
// with tools, at most one dispatch round, and a tool-free second completion.
type Generator struct {
	client    chatClient
	model     string
	router    ToolRouter
	knowledge KnowledgeSource
	maxTokens int
	timeout   time.Duration
	logger    *logging.Logger
	metrics   *metrics.GatewayMetrics
}

type GeneratorOption func(*Generator)

func WithToolRouter(router ToolRouter) GeneratorOption {
	return func(g *Generator) { g.router = router }
}

func WithKnowledgeSource(source KnowledgeSource) GeneratorOption {
	return func(g *Generator) { g.knowledge = source }
}

func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithCompletionTimeout bounds each completion call.
func WithCompletionTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

func WithGeneratorMetrics(m *metrics.GatewayMetrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

func NewGenerator(client chatClient, model string, logger *logging.Logger, opts ...GeneratorOption) *Generator {
	if client == nil {
		panic("conversation: generator chat client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	g := &Generator{
		client:    client,
		model:     model,
		maxTokens: defaultMaxTokens,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces the reply text for req. It never returns an error; LLM
// and tool failures are replaced with fixed user-facing strings.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) Reply {
	ctx, span := generatorTracer.Start(ctx, "conversation.generate")
	defer span.End()

	messages := g.buildContext(ctx, req)
	span.SetAttributes(attribute.Int("conversation.context_messages", len(messages)))

	var tools []openai.Tool
	if g.router != nil {
		tools = g.router.Tools()
	}

	first, err := g.complete(ctx, "first", messages, tools)
	if err != nil {
		return g.failed(span, err, nil)
	}
	if len(first.ToolCalls) == 0 {
		return Reply{Text: cleanReply(first.Content)}
	}

	// A model that asks for tools without a router gets an error payload per call.
	messages = append(messages, first)
	invoked := make([]string, 0, len(first.ToolCalls))
	for _, call := range first.ToolCalls {
		name := call.Function.Name
		invoked = append(invoked, name)
		var result string
		if g.router != nil {
			result = g.router.Invoke(ctx, name, call.Function.Arguments)
		} else {
			result = fmt.Sprintf(`{"error":"unknown tool: %s"}`, name)
		}
		g.logger.Debug("tool dispatched", "tool", name, "tool_call_id", call.ID, "result_len", len(result))
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    result,
			Name:       name,
			ToolCallID: call.ID,
		})
	}
	span.SetAttributes(attribute.StringSlice("conversation.tools", invoked))

	second, err := g.complete(ctx, "second", messages, nil)
	if err != nil {
		return g.failed(span, err, invoked)
	}
	return Reply{Text: cleanReply(second.Content), Tools: invoked}
}

func (g *Generator) failed(span trace.Span, err error, tools []string) Reply {
	if errors.Is(err, errNoChoices) {
		g.logger.Warn("completion returned no content", "tools", tools)
		return Reply{Text: ReplyNoContent, Tools: tools}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "generation failed")
	g.logger.Error("response generation failed", "error", err, "tools", tools)
	return Reply{Text: ReplyTechnicalIssue, Tools: tools}
}

func (g *Generator) buildContext(ctx context.Context, req GenerateRequest) []openai.ChatCompletionMessage {
	system := strings.TrimSpace(req.SystemPrompt)
	if system == "" {
		system = DefaultSystemPrompt
	}
	if g.knowledge != nil {
		if block := g.knowledge.Knowledge(ctx); block != "" {
			system += "\n\n" + block
		}
	}
	if summary := strings.TrimSpace(req.Summary); summary != "" {
		system += "\n\n" + summaryPromptPrefix + summary
	}

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleBot {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})
}

// complete issues one completion and returns the first choice's message.
// errNoChoices covers both an empty choice list and a choice with neither
// content nor tool calls.
func (g *Generator) complete(ctx context.Context, stage string, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	ctx, span := generatorTracer.Start(ctx, "conversation.completion")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.stage", stage),
		attribute.String("llm.model", g.model),
		attribute.Int("llm.tools", len(tools)),
	)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: generationTemperature,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		g.metrics.ObserveCompletion(stage, "error")
		return openai.ChatCompletionMessage{}, fmt.Errorf("conversation: %s completion: %w", stage, err)
	}
	g.logger.Debug("completion finished",
		"stage", stage,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	if len(resp.Choices) == 0 {
		g.metrics.ObserveCompletion(stage, "empty")
		return openai.ChatCompletionMessage{}, errNoChoices
	}
	msg := resp.Choices[0].Message
	if msg.Content == "" && len(msg.ToolCalls) == 0 {
		g.metrics.ObserveCompletion(stage, "empty")
		return openai.ChatCompletionMessage{}, errNoChoices
	}
	g.metrics.ObserveCompletion(stage, "ok")
	return msg, nil
}

func cleanReply(content string) string {
	text := StripReasoning(content)
	if text == "" {
		return ReplyRephrase
	}
	return text
}
