// Package groq wraps the Groq OpenAI-compatible chat completion endpoint.
package groq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.groq.com/openai/v1"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"llama-3.3-70b-versatile"`
	MaxTokens   int64         `envconfig:"MAX_TOKENS" split_words:"true" default:"500"`
	Temperature float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.1"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

type Client struct {
	client      openaisdk.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("groq api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:      openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}, nil
}

// Generate runs one system+user completion and returns the text. It
// satisfies the completion-service contract used for phrasing tool results.
func (c *Client) Generate(ctx context.Context, prompt string, userContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(prompt),
			openaisdk.UserMessage(userContext),
		},
		MaxTokens:   openaisdk.Int(c.maxTokens),
		Temperature: openaisdk.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("groq completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("groq completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
