package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeClient calls the Anthropic Messages API.
type ClaudeClient struct {
	client    anthropic.Client
	maxTokens int64
	timeout   time.Duration
}

// maxClaudeTemperature is the upper bound the Messages API accepts.
const maxClaudeTemperature = 1.0

func NewClaudeClient(apiKey string, maxTokens int, timeout time.Duration) (*ClaudeClient, error) {
	return newClaudeClient(apiKey, maxTokens, timeout)
}

func newClaudeClient(apiKey string, maxTokens int, timeout time.Duration, opts ...option.RequestOption) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrNotConfigured)
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &ClaudeClient{
		client: anthropic.NewClient(append([]option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		}, opts...)...),
		maxTokens: int64(maxTokens),
		timeout:   timeout,
	}, nil
}

func (c *ClaudeClient) Provider() ProviderType { return ProviderClaude }

func (c *ClaudeClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(claudeTemperature(req.Temperature)),
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		contextLength := errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusRequestEntityTooLarge
		return "", classifyError(ctx, ProviderClaude, err, contextLength)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: claude returned no text blocks", ErrEmptyResponse)
	}
	return text.String(), nil
}

// claudeTemperature clamps the shared 0-2 temperature range to what Claude accepts.
func claudeTemperature(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > maxClaudeTemperature:
		return maxClaudeTemperature
	default:
		return t
	}
}
