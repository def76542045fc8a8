// internal/llm/client.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrContextLengthExceeded = errors.New("CONTEXT_LENGTH_EXCEEDED")
	ErrTimeout               = errors.New("LLM_TIMEOUT")
	ErrEmptyResponse         = errors.New("EMPTY_RESPONSE")
	ErrNotConfigured         = errors.New("LLM_NOT_CONFIGURED")
)

// Request is a single-turn generation request.
type Request struct {
	Model       string
	Temperature float64
	Prompt      string
}

// Client sends one prompt to a language model and returns the generated text.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Provider() ProviderType
}

// FuncClient adapts a function to the Client interface.
type FuncClient func(ctx context.Context, req Request) (string, error)

func (f FuncClient) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func (f FuncClient) Provider() ProviderType { return ProviderStatic }

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

var contextLengthPhrases = []string{
	"context_length_exceeded",
	"maximum context length",
	"context window",
	"prompt is too long",
	"input token count",
	"exceeds the maximum number of tokens",
	"too many tokens",
}

func isContextLengthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range contextLengthPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// classifyError maps provider errors onto the package sentinels, keeping the cause in the chain.
func classifyError(ctx context.Context, provider ProviderType, err error, contextLength bool) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %w", ErrTimeout, provider, err)
	case contextLength || isContextLengthMessage(err.Error()):
		return fmt.Errorf("%w: %s: %w", ErrContextLengthExceeded, provider, err)
	default:
		return fmt.Errorf("%s generation failed: %w", provider, err)
	}
}
