package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
)

// OpenAIClient calls the chat completions API with a single user message.
type OpenAIClient struct {
	client  openai.Client
	timeout time.Duration
}

func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrNotConfigured)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		timeout: timeout,
	}, nil
}

func (c *OpenAIClient) Provider() ProviderType { return ProviderOpenAI }

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: param.NewOpt(req.Temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		contextLength := errors.As(err, &apiErr) &&
			(apiErr.Code == "context_length_exceeded" || apiErr.StatusCode == http.StatusRequestEntityTooLarge)
		return "", classifyError(ctx, ProviderOpenAI, err, contextLength)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: openai returned no content", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
