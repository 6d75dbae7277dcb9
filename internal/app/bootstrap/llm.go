package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	openai "github.com/sashabaranov/go-openai"

	appconfig "github.com/wolfman30/wpchat-gateway/internal/config"
	"github.com/wolfman30/wpchat-gateway/internal/conversation"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

const (
	FallbackGemini  = "gemini"
	FallbackBedrock = "bedrock"
)

// BuildChatClient returns the OpenAI-compatible client used by the generator
// and as the summarizer's primary provider.
func BuildChatClient(cfg *appconfig.Config) (*openai.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		return nil, fmt.Errorf("bootstrap: GROQ_API_KEY is required")
	}
	return conversation.NewOpenAICompatibleClient(cfg.LLMAPIKey, cfg.LLMBaseURL, nil), nil
}

// BuildSummarizerLLM wraps primary with the configured fallback provider.
// awsCfg is only consulted for the bedrock fallback.
func BuildSummarizerLLM(ctx context.Context, cfg *appconfig.Config, primary conversation.LLMClient, awsCfg *aws.Config, logger *logging.Logger) (conversation.LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if primary == nil {
		return nil, fmt.Errorf("bootstrap: primary llm client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.SummaryFallbackProvider {
	case "":
		return primary, nil
	case FallbackGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, fmt.Errorf("bootstrap: GEMINI_API_KEY is required for the gemini fallback")
		}
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		logger.Info("summarizer fallback enabled", "provider", FallbackGemini, "model", cfg.GeminiModel)
		return conversation.NewFallbackLLMClient(primary, gemini, logger), nil
	case FallbackBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for the bedrock fallback")
		}
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: aws config is required for the bedrock fallback")
		}
		bedrock := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID)
		logger.Info("summarizer fallback enabled", "provider", FallbackBedrock, "model", cfg.BedrockModelID)
		return conversation.NewFallbackLLMClient(primary, bedrock, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown summary fallback provider %q", cfg.SummaryFallbackProvider)
	}
}

// NeedsAWS reports whether any configured component talks to AWS.
func NeedsAWS(cfg *appconfig.Config) bool {
	return cfg != nil && (cfg.SummaryFallbackProvider == FallbackBedrock || strings.TrimSpace(cfg.ArchiveBucket) != "")
}
