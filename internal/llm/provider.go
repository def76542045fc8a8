package llm

import (
	"context"
	"fmt"
	"strings"

	"financial-analyst/internal/common/config"
)

type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
	ProviderClaude ProviderType = "claude"
	ProviderStatic ProviderType = "static"
)

// DetectProvider picks the provider for a model name. Unknown names go to OpenAI.
func DetectProvider(model string) ProviderType {
	model = strings.ToLower(strings.TrimSpace(model))

	switch {
	case strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/"):
		return ProviderGemini
	case strings.HasPrefix(model, "openai/"):
		return ProviderOpenAI
	case strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	default:
		return ProviderOpenAI
	}
}

// NormalizeModel strips an explicit provider prefix from the model name.
func NormalizeModel(model string) string {
	model = strings.TrimSpace(model)
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/", "openai/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// Factory builds model clients from the LLM configuration.
type Factory struct {
	cfg config.LLMConfig
}

func NewFactory(cfg config.LLMConfig) *Factory {
	return &Factory{cfg: cfg}
}

// NewClient returns a client for the provider serving model.
func (f *Factory) NewClient(ctx context.Context, model string) (Client, error) {
	timeout := config.GetDuration(f.cfg.Timeout)

	switch provider := DetectProvider(model); provider {
	case ProviderClaude:
		return NewClaudeClient(f.cfg.Anthropic.APIKey, f.cfg.Anthropic.MaxTokens, timeout)
	case ProviderGemini:
		return NewGeminiClient(ctx, f.cfg.Gemini.APIKey, timeout)
	case ProviderOpenAI:
		return NewOpenAIClient(f.cfg.OpenAI.APIKey, f.cfg.OpenAI.BaseURL, timeout)
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrNotConfigured, provider)
	}
}
