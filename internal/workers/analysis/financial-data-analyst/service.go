package financialdataanalyst

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"financial-analyst/internal/common/errors"
	"financial-analyst/internal/common/logger"
	"financial-analyst/internal/common/metrics"
	"financial-analyst/internal/common/observability"
	"financial-analyst/internal/llm"
	"financial-analyst/internal/marketdata"
	"financial-analyst/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	provider marketdata.Provider
	llm      ClientFactory
	obs      *observability.Observability
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		config:   config,
		logger:   log,
		provider: deps.Provider,
		llm:      deps.LLM,
		obs:      deps.Observability,
	}
}

// Execute resolves the run inputs, analyzes every requested symbol and wraps the result
// with run details.
func (s *Service) Execute(ctx context.Context, in RunInput) (*Output, error) {
	runID := uuid.NewString()
	log := s.logger.With(map[string]interface{}{"runId": runID})

	req, err := ResolveRequest(in.Inputs)
	if err != nil {
		log.Error("Invalid analysis request", map[string]interface{}{
			"stage": errors.StageValidate,
			"error": err.Error(),
		})
		metrics.PipelineStageFailures.WithLabelValues(errors.StageValidate, errorCode(err)).Inc()
		return nil, err
	}

	model := in.LLMConfig.Apply(s.config.ModelConfig())
	result, err := s.analyze(ctx, log, req, model)
	if err != nil {
		return nil, err
	}

	return &Output{
		Result:      result,
		Symbols:     result.Symbols(),
		Model:       model.Model,
		RunID:       runID,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// Run is Execute without the run details.
func (s *Service) Run(ctx context.Context, in RunInput) (*models.AnalysisResult, error) {
	out, err := s.Execute(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Analyze runs fetch, extract, compose and generate for each symbol in request order.
// The first failure aborts the run and no partial result is returned.
func (s *Service) Analyze(ctx context.Context, req *models.AnalysisRequest, model ModelConfig) (*models.AnalysisResult, error) {
	log := s.logger.With(map[string]interface{}{"runId": uuid.NewString()})
	return s.analyze(ctx, log, req, model)
}

func (s *Service) analyze(ctx context.Context, log logger.Logger, req *models.AnalysisRequest, model ModelConfig) (*models.AnalysisResult, error) {
	log = log.With(map[string]interface{}{
		"model":        model.Model,
		"timePeriod":   req.TimePeriod,
		"analysisType": req.AnalysisType,
	})

	ctx, span := s.obs.StartSpan(ctx, "analysis.run",
		attribute.StringSlice("symbols", req.TickerSymbols),
		attribute.String("model", model.Model),
	)
	defer span.End()

	if s.provider == nil {
		return nil, errors.NewInternalError(fmt.Errorf("no market data provider configured"))
	}

	client, err := s.newClient(ctx, model.Model)
	if err != nil {
		log.Error("Language model client unavailable", map[string]interface{}{
			"stage": errors.StageAnalyze,
			"error": err.Error(),
		})
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	log.Info("Starting financial analysis", map[string]interface{}{
		"symbols":  req.TickerSymbols,
		"metrics":  req.SpecificMetrics,
		"provider": string(client.Provider()),
	})

	result := models.NewAnalysisResult()
	for _, symbol := range req.TickerSymbols {
		symbolResult, err := s.analyzeSymbol(ctx, log.With(map[string]interface{}{"symbol": symbol}), client, req, model, symbol)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		result.Set(symbol, symbolResult)
		metrics.SymbolsAnalyzed.Inc()
	}

	log.Info("Financial analysis completed", map[string]interface{}{
		"symbols": result.Len(),
	})
	return result, nil
}

func (s *Service) analyzeSymbol(
	ctx context.Context,
	log logger.Logger,
	client llm.Client,
	req *models.AnalysisRequest,
	model ModelConfig,
	symbol string,
) (models.SymbolResult, error) {
	var data *models.RawFinancialData
	err := s.stage(ctx, log, symbol, errors.StageFetch, func(ctx context.Context) error {
		fetched, err := s.provider.Fetch(ctx, symbol, req.TimePeriod)
		if err != nil {
			return errors.NewDataFetchError(symbol, err).WithMetadata(map[string]interface{}{
				"provider": s.provider.Name(),
			})
		}
		data = fetched
		return nil
	})
	if err != nil {
		return models.SymbolResult{}, err
	}

	var extracted models.MetricAnalysis
	_ = s.stage(ctx, log, symbol, errors.StageExtract, func(context.Context) error {
		extracted = ExtractMetrics(data.Info, req.SpecificMetrics)
		return nil
	})
	log.Debug("Metrics extracted", map[string]interface{}{
		"requested": len(req.SpecificMetrics),
		"found":     extracted.Names(),
	})

	var prompt Prompt
	err = s.stage(ctx, log, symbol, errors.StagePrompt, func(context.Context) error {
		var err error
		prompt, err = ComposePrompt(symbol, extracted, data.IncomeStatement, data.BalanceSheet, req.AnalysisType, s.config.PromptMaxChars)
		metrics.PromptChars.Observe(float64(prompt.Chars()))
		if prompt.DroppedPeriods > 0 {
			metrics.PromptTruncations.Inc()
			log.Warn("Statements truncated to fit prompt limit", map[string]interface{}{
				"droppedPeriods": prompt.DroppedPeriods,
				"promptChars":    prompt.Chars(),
				"limit":          s.config.PromptMaxChars,
			})
		}
		return err
	})
	if err != nil {
		return models.SymbolResult{}, err
	}

	var analysis string
	err = s.stage(ctx, log, symbol, errors.StageAnalyze, func(ctx context.Context) error {
		text, err := client.Generate(ctx, llm.Request{
			Model:       llm.NormalizeModel(model.Model),
			Temperature: model.Temperature,
			Prompt:      prompt.Text,
		})
		if err != nil {
			return classifyGenerateError(symbol, err)
		}
		analysis = text
		return nil
	})
	if err != nil {
		return models.SymbolResult{}, err
	}

	return models.SymbolResult{Metrics: extracted, Analysis: analysis}, nil
}

// stage runs one pipeline step under its own span, records its duration and logs its failure.
func (s *Service) stage(ctx context.Context, log logger.Logger, symbol, name string, fn func(context.Context) error) error {
	ctx, span := s.obs.StartSpan(ctx, "analysis."+name,
		attribute.String("symbol", symbol),
		attribute.String("stage", name),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	metrics.PipelineStageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	status := "success"
	if err != nil {
		status = "failed"
		code := errorCode(err)
		metrics.PipelineStageFailures.WithLabelValues(name, code).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		log.Error("Analysis stage failed", map[string]interface{}{
			"stage":     name,
			"errorCode": code,
			"error":     err.Error(),
		})
	}
	s.obs.RecordStage(ctx, name, elapsed, status)
	return err
}

func (s *Service) newClient(ctx context.Context, model string) (llm.Client, error) {
	if s.llm == nil {
		return nil, errors.NewLLMNotConfiguredError("no language model client factory")
	}
	client, err := s.llm.NewClient(ctx, model)
	if err != nil {
		if stderrors.Is(err, llm.ErrNotConfigured) {
			return nil, errors.NewLLMNotConfiguredError(err.Error())
		}
		return nil, errors.NewAnalysisError("", fmt.Errorf("create client for %s: %w", model, err))
	}
	return client, nil
}

// CheckModel verifies a client can be built for the configured model.
func (s *Service) CheckModel(ctx context.Context) error {
	_, err := s.newClient(ctx, s.config.Model)
	return err
}

// ExtractMetrics keeps the requested metrics that are keys of info, in request order.
func ExtractMetrics(info map[string]interface{}, names []string) models.MetricAnalysis {
	var out models.MetricAnalysis
	for _, name := range names {
		if value, ok := info[name]; ok {
			out.Set(name, value)
		}
	}
	return out
}

func classifyGenerateError(symbol string, err error) *errors.StandardError {
	switch {
	case stderrors.Is(err, llm.ErrContextLengthExceeded):
		return errors.NewPromptRejectedError(symbol, err)
	case stderrors.Is(err, llm.ErrTimeout):
		return errors.NewLLMTimeoutError(symbol, err)
	default:
		return errors.NewAnalysisError(symbol, err)
	}
}

func errorCode(err error) string {
	if stdErr, ok := errors.As(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}
