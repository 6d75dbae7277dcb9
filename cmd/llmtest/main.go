package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/wpchat-gateway/cmd/mainconfig"
	"github.com/wolfman30/wpchat-gateway/internal/app/bootstrap"
	appconfig "github.com/wolfman30/wpchat-gateway/internal/config"
	"github.com/wolfman30/wpchat-gateway/internal/conversation"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

// llmtest sends one message through the reply generator (without booking
// tools) and a short history through the summarizer, using the configured
// providers.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := appconfig.Load()
	logger := logging.New("warn")

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	chat, err := bootstrap.BuildChatClient(cfg)
	if err != nil {
		log.Fatal(err)
	}

	message := "Hi, which clinics do you have in Jakarta?"
	if len(os.Args) > 1 {
		message = os.Args[1]
	}

	generator := conversation.NewGenerator(chat, cfg.LLMModel, logger,
		conversation.WithMaxTokens(cfg.MaxResponseTokens),
		conversation.WithCompletionTimeout(cfg.LLMTimeout),
	)
	fmt.Printf("[1] generator (%s @ %s)\n", cfg.LLMModel, cfg.LLMBaseURL)
	start := time.Now()
	reply := generator.Generate(ctx, conversation.GenerateRequest{Message: message})
	fmt.Printf("    %s\n    (%v)\n", reply.Text, time.Since(start).Round(time.Millisecond))

	history := []conversation.Message{
		{Role: conversation.RoleUser, Content: "I need a dermatologist next week."},
		{Role: conversation.RoleBot, Content: "Sure, which city are you in?"},
		{Role: conversation.RoleUser, Content: message},
		{Role: conversation.RoleBot, Content: reply.Text},
	}

	var awsCfg *aws.Config
	if bootstrap.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			log.Fatalf("load aws config: %v", err)
		}
		awsCfg = &loaded
	}
	summaryLLM, err := bootstrap.BuildSummarizerLLM(ctx, cfg, conversation.NewOpenAILLMClient(chat, cfg.LLMModel), awsCfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	fallback := cfg.SummaryFallbackProvider
	if fallback == "" {
		fallback = "none"
	}
	fmt.Printf("\n[2] summarizer (fallback: %s)\n", fallback)
	start = time.Now()
	summary := conversation.NewSummarizer(summaryLLM, cfg.LLMModel, logger).Summarize(ctx, history, "")
	fmt.Printf("    %s\n    (%v)\n", summary, time.Since(start).Round(time.Millisecond))
}
