package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/Enes830/testagentset/internal/models"
	"github.com/Enes830/testagentset/pkg/apierr"
)

const serviceName = "openai"

// DefaultSystemPrompt is used when no custom prompt is configured. The %s
// placeholder receives the retrieved context block.
const DefaultSystemPrompt = "You are a helpful assistant. Answer questions based on the following context.\n" +
	"If you cannot find the answer in the context, say so clearly.\n\nContext:\n%s"

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	BaseURL      string // optional OpenAI-compatible endpoint
}

// ChatEngine is an engine that uses an LLM to generate answers grounded in
// retrieved context passages.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.APIKey == "" {
		return nil, &apierr.AuthenticationError{Service: serviceName, Message: "missing API key"}
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Complete generates an answer to the question using the passages as context.
func (ce *ChatEngine) Complete(ctx context.Context, question string, passages []models.Passage) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.systemPrompt(passages)),
		llms.TextParts(schema.ChatMessageTypeHuman, question),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", mapError(err)
	}

	if response == nil || len(response.Choices) == 0 {
		return "", &apierr.ServiceError{Service: serviceName, Message: "no completion choices returned"}
	}
	return response.Choices[0].Content, nil
}

func (ce *ChatEngine) systemPrompt(passages []models.Passage) string {
	var contextBuilder strings.Builder
	for _, p := range passages {
		contextBuilder.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", p.Source, p.Text))
	}

	prompt := ce.config.SystemPrompt
	if strings.Contains(prompt, "%s") {
		return fmt.Sprintf(prompt, contextBuilder.String())
	}
	return prompt + "\n\n" + contextBuilder.String()
}

// mapError translates OpenAI client failures onto the shared error taxonomy.
// The langchaingo client only exposes the API error as text, so matching is
// on the status code and the well-known message fragments.
func mapError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "Incorrect API key") ||
		strings.Contains(msg, "invalid_api_key"):
		return &apierr.AuthenticationError{Service: serviceName, Message: msg}
	case strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit"):
		return &apierr.RateLimitError{Service: serviceName}
	default:
		return &apierr.ServiceError{Service: serviceName, Message: msg}
	}
}
