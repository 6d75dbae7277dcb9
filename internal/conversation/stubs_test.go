package conversation

import (
	"context"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

type stubLLM struct {
	mu    sync.Mutex
	resp  LLMResponse
	err   error
	calls []LLMRequest
}

func (s *stubLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	return s.resp, s.err
}

type chatResult struct {
	resp openai.ChatCompletionResponse
	err  error
}

// stubChatClient replays results in order and records every request.
type stubChatClient struct {
	results  []chatResult
	requests []openai.ChatCompletionRequest
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.results) == 0 {
		return openai.ChatCompletionResponse{}, nil
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next.resp, next.err
}

func textCompletion(content string) chatResult {
	return chatResult{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
	}}
}

func toolCompletion(calls ...openai.ToolCall) chatResult {
	return chatResult{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls},
			FinishReason: openai.FinishReasonToolCalls,
		}},
	}}
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

type invocation struct {
	name string
	args string
}

type stubRouter struct {
	results     map[string]string
	invocations []invocation
}

func (r *stubRouter) Tools() []openai.Tool {
	return []openai.Tool{{
		Type:     openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{Name: "get_clinics", Description: "Search clinics"},
	}}
}

func (r *stubRouter) Invoke(_ context.Context, name, args string) string {
	r.invocations = append(r.invocations, invocation{name: name, args: args})
	if out, ok := r.results[name]; ok {
		return out
	}
	return `{"error":"unknown tool: ` + name + `"}`
}

type staticKnowledge string

func (k staticKnowledge) Knowledge(context.Context) string { return string(k) }
