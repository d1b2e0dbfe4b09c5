package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1/"
	anthropicBaseURL   = "https://api.anthropic.com/"
	mistralBaseURL     = "https://api.mistral.ai/v1/"
	anthropicMaxTokens = 4096
)

var ErrEmptyResponse = errors.New("empty ai response")

// Completer sends one system prompt and one user message, returning the text.
type Completer interface {
	Complete(ctx context.Context, model, systemPrompt, userMessage string) (string, error)
}

type clientOptions struct {
	baseURL string
}

type Option func(*clientOptions)

// WithBaseURL points the provider SDK at another API root.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) { o.baseURL = url }
}

type completeFunc func(ctx context.Context, model, systemPrompt, userMessage string) (string, error)

// Client wraps the provider SDK. Mistral speaks the OpenAI chat API and goes
// through the OpenAI SDK with its own base URL.
type Client struct {
	provider Provider
	complete completeFunc
}

func NewClient(provider Provider, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	httpClient := &http.Client{Timeout: timeout}

	c := &Client{provider: provider}
	switch provider {
	case ProviderOpenAI:
		c.complete = openAIChat(apiKey, baseURLOr(o.baseURL, openAIBaseURL), httpClient)
	case ProviderMistral:
		c.complete = openAIChat(apiKey, baseURLOr(o.baseURL, mistralBaseURL), httpClient)
	case ProviderAnthropic:
		c.complete = anthropicMessages(apiKey, baseURLOr(o.baseURL, anthropicBaseURL), httpClient)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	return c, nil
}

func baseURLOr(url, fallback string) string {
	if url == "" {
		return fallback
	}
	return url
}

func openAIChat(apiKey, baseURL string, httpClient *http.Client) completeFunc {
	client := openai.NewClient(
		openaioption.WithAPIKey(apiKey),
		openaioption.WithBaseURL(baseURL),
		openaioption.WithHTTPClient(httpClient),
	)
	return func(ctx context.Context, model, systemPrompt, userMessage string) (string, error) {
		resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userMessage),
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	}
}

func anthropicMessages(apiKey, baseURL string, httpClient *http.Client) completeFunc {
	client := anthropic.NewClient(
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithBaseURL(baseURL),
		anthropicoption.WithHTTPClient(httpClient),
	)
	return func(ctx context.Context, model, systemPrompt, userMessage string) (string, error) {
		resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: anthropicMaxTokens,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
			},
		})
		if err != nil {
			return "", err
		}
		for _, block := range resp.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		return "", nil
	}
}

func (c *Client) Complete(ctx context.Context, model, systemPrompt, userMessage string) (string, error) {
	start := time.Now()
	text, err := c.complete(ctx, model, systemPrompt, userMessage)

	log.Debug().
		Str("provider", string(c.provider)).
		Str("model", model).
		Bool("ok", err == nil).
		Dur("duration", time.Since(start)).
		Msg("ai provider call")

	if err != nil {
		return "", fmt.Errorf("call %s: %w", c.provider, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
