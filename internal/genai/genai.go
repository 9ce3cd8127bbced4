// Package genai lets the chat assistant fall back to an OpenAI model when no
// canned reply fits the farmer's question.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoChoicesReturned is returned when the model answers with no choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 20 * time.Second

// SystemPrompt frames the model as the FarmGenius assistant.
const SystemPrompt = `You are FarmGenius, an assistant for small farmers in India.
Answer in at most three short sentences using simple words.
Prefer practical advice about crops, weather, soil, irrigation, market prices and government schemes.
If the question is not about farming, politely steer back to farming topics.`

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

type completions struct {
	svc *openai.ChatCompletionService
}

func (c completions) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := c.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds client configuration.
type Opts struct {
	APIKey  string
	Model   openai.ChatModel
	Timeout time.Duration
}

// Option configures the client.
type Option func(*Opts)

// WithAPIKey sets the API key instead of reading OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = openai.ChatModel(model) }
}

// WithTimeout bounds each completion call.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat    chatService
	model   openai.ChatModel
	timeout time.Duration
}

// NewClient creates a client. Without WithAPIKey the OPENAI_API_KEY
// environment variable is used; a missing key is an error.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   openai.ChatModelGPT4oMini,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewClient: client created", "model", cfg.Model)
	return &Client{chat: completions{svc: &cli.Chat.Completions}, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// GeneratePrompt returns the model's answer to userPrompt under systemPrompt.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		slog.Warn("Client.GeneratePrompt: completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Answer replies to a farmer's question with the FarmGenius system prompt.
func (c *Client) Answer(ctx context.Context, question string) (string, error) {
	return c.GeneratePrompt(ctx, SystemPrompt, question)
}
