package financialdataanalyst

import (
	"context"
	"time"

	"financial-analyst/internal/common/logger"
	"financial-analyst/internal/common/observability"
	"financial-analyst/internal/llm"
	"financial-analyst/internal/marketdata"
	"financial-analyst/internal/models"
)

// InputSchema is the named-tool envelope a run request may arrive in.
type InputSchema struct {
	ToolName      string                 `json:"tool_name"`
	ToolInputData models.AnalysisRequest `json:"tool_input_data"`
}

// ModelConfig selects the language model for one run.
type ModelConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// LLMConfig is a per-run override of the deployment's model selection.
// Unset fields keep the deployment value.
type LLMConfig struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Apply returns base with the override's fields laid over it.
func (c *LLMConfig) Apply(base ModelConfig) ModelConfig {
	if c == nil {
		return base
	}
	if c.Model != "" {
		base.Model = c.Model
	}
	if c.Temperature != nil {
		base.Temperature = *c.Temperature
	}
	return base
}

// RunInput is everything one analysis run needs from its host.
// Inputs takes any form ResolveRequest accepts.
type RunInput struct {
	Inputs    interface{}
	LLMConfig *LLMConfig
}

type Output struct {
	Result      *models.AnalysisResult `json:"analysisResult"`
	Symbols     []string               `json:"analyzedSymbols"`
	Model       string                 `json:"analysisModel"`
	RunID       string                 `json:"runId"`
	CompletedAt time.Time              `json:"completedAt"`
}

// ClientFactory builds the model client used for a run.
type ClientFactory interface {
	NewClient(ctx context.Context, model string) (llm.Client, error)
}

// ClientFactoryFunc adapts a function to ClientFactory.
type ClientFactoryFunc func(ctx context.Context, model string) (llm.Client, error)

func (f ClientFactoryFunc) NewClient(ctx context.Context, model string) (llm.Client, error) {
	return f(ctx, model)
}

type ServiceDependencies struct {
	Logger        logger.Logger
	Provider      marketdata.Provider
	LLM           ClientFactory
	Observability *observability.Observability
}
