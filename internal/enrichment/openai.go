package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"

	systemPrompt = "You are a financial document analysis assistant. Always respond with a single JSON object and nothing else."
)

// OpenAICompleter sends prompts as chat completions.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	configured  bool
}

// OpenAIOption configures an OpenAICompleter.
type OpenAIOption func(*openai.ClientConfig)

// WithOpenAIBaseURL points the client at another endpoint (tests, proxies).
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(cfg *openai.ClientConfig) {
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
	}
}

// NewOpenAICompleter creates a completer using apiKey and model.
func NewOpenAICompleter(apiKey, model string, opts ...OpenAIOption) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: 0.1,
		maxTokens:   1000,
		configured:  apiKey != "",
	}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	const op = "OpenAICompleter.Complete"

	if !c.configured {
		return "", fmt.Errorf("%s: %w", op, ErrMissingAPIKey)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: OpenAI API call failed: %w", op, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
