package financialdataanalyst

import (
	"context"
	"fmt"
	"time"

	"financial-analyst/internal/common/camunda"
	"financial-analyst/internal/common/config"
	"financial-analyst/internal/common/errors"
	"financial-analyst/internal/common/logger"
	"financial-analyst/internal/common/metrics"
	"financial-analyst/internal/common/observability"
	"financial-analyst/internal/llm"
	"financial-analyst/internal/marketdata"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType   = "financial-data-analyst"
	WorkerName = "financial-data-analyst"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	service      *Service
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	jobWorker    *camunda.CamundaWorker
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Camunda       *camunda.Client
	CustomConfig  *Config
	Logger        logger.Logger
	Provider      marketdata.Provider
	LLM           ClientFactory
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.With(map[string]interface{}{"worker": TaskType})

	appConfig := opts.AppConfig
	if appConfig == nil {
		appConfig = config.Default()
	}

	provider := opts.Provider
	if provider == nil {
		yahoo, err := marketdata.NewYahooProvider(appConfig.MarketData, loggerInstance)
		if err != nil {
			return nil, fmt.Errorf("failed to create market data provider: %w", err)
		}
		provider = yahoo
	}

	factory := opts.LLM
	if factory == nil {
		factory = llm.NewFactory(appConfig.LLM)
	}

	handler := &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		camunda:      opts.Camunda,
		obs:          opts.Observability,
		errorHandler: errors.NewErrorHandler(loggerInstance),
	}

	handler.service = NewService(ServiceDependencies{
		Logger:        loggerInstance,
		Provider:      provider,
		LLM:           factory,
		Observability: opts.Observability,
	}, handler.config)

	return handler, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	log := h.logger.With(map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})
	log.Info("Processing financial analysis job", nil)

	if !h.config.Enabled {
		log.Info("Worker disabled by configuration", nil)
		h.complete(ctx, client, job, map[string]interface{}{"analysisSkipped": true})
		return
	}

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "completed")
}

func (h *Handler) Execute(ctx context.Context, input RunInput) (*Output, error) {
	return h.service.Execute(ctx, input)
}

// parseInput reads the run request from the job variables. The request may sit under
// "inputs" or be the variables themselves; "llm_config" overrides the model selection.
func (h *Handler) parseInput(job entities.Job) (RunInput, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return RunInput{}, errors.NewInputParsingError(err)
	}

	var inputs interface{} = variables
	if nested, ok := variables["inputs"]; ok {
		inputs = nested
	}

	req, err := ResolveRequest(inputs)
	if err != nil {
		return RunInput{}, err
	}

	override, err := parseLLMConfig(variables["llm_config"])
	if err != nil {
		return RunInput{}, err
	}

	return RunInput{Inputs: req, LLMConfig: override}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	result, err := output.Result.ToVariables()
	if err != nil {
		h.failJob(ctx, client, job, errors.NewInternalError(err), time.Now())
		return
	}

	variables := map[string]interface{}{
		"analysisResult":  result,
		"analyzedSymbols": output.Symbols,
		"analysisModel":   output.Model,
		"runId":           output.RunID,
	}

	if h.complete(ctx, client, job, variables) {
		h.logger.Info("Financial analysis job completed", map[string]interface{}{
			"jobKey":  job.GetKey(),
			"runId":   output.RunID,
			"symbols": output.Symbols,
		})
	}
}

func (h *Handler) complete(ctx context.Context, client worker.JobClient, job entities.Job, variables map[string]interface{}) bool {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return false
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
	h.obs.RecordJobProcessed(ctx, "failed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "failed")

	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", nil)
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("camunda client is required to register %s", TaskType)
	}

	h.jobWorker = camunda.NewWorker(h.camunda.GetClient(), camunda.WorkerOptions{
		TaskType:      TaskType,
		Name:          fmt.Sprintf("%s-worker", TaskType),
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h, h.logger)

	return nil
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.camunda != nil {
		if err := h.camunda.HealthCheck(ctx); err != nil {
			return fmt.Errorf("camunda health check failed: %w", err)
		}
	}

	if err := h.service.CheckModel(ctx); err != nil {
		return fmt.Errorf("language model check failed: %w", err)
	}

	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

// Service exposes the pipeline for callers outside the job worker.
func (h *Handler) Service() *Service {
	return h.service
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[WorkerName]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = config.GetDuration(workerCfg.Timeout)
			}
		}

		if appConfig.LLM.Model != "" {
			cfg.Model = appConfig.LLM.Model
		}
		cfg.Temperature = appConfig.LLM.Temperature
		if appConfig.Prompt.MaxChars > 0 {
			cfg.PromptMaxChars = appConfig.Prompt.MaxChars
		}
	}

	return cfg
}
