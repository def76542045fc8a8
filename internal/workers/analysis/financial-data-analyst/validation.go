package financialdataanalyst

import (
	"encoding/json"
	"fmt"
	"strings"

	"financial-analyst/internal/common/errors"
	"financial-analyst/internal/common/validation"
	"financial-analyst/internal/models"
	"financial-analyst/pkg/registry"
)

const (
	ToolName            = "analyze"
	DefaultAnalysisType = "brief"
)

// DefaultMetrics are analyzed when a request names none.
var DefaultMetrics = []string{"PE", "Revenue Growth", "Profit Margins"}

// ResolveRequest turns run inputs into one canonical AnalysisRequest. It accepts the tool
// envelope or a bare request, typed or as decoded JSON (map, string or bytes).
func ResolveRequest(inputs interface{}) (*models.AnalysisRequest, error) {
	switch in := inputs.(type) {
	case nil:
		return nil, errors.NewValidationError("inputs are required")
	case *InputSchema:
		if in == nil {
			return nil, errors.NewValidationError("inputs are required")
		}
		return resolveEnvelope(*in)
	case InputSchema:
		return resolveEnvelope(in)
	case *models.AnalysisRequest:
		if in == nil {
			return nil, errors.NewValidationError("inputs are required")
		}
		return normalizeRequest(*in)
	case models.AnalysisRequest:
		return normalizeRequest(in)
	case map[string]interface{}:
		return resolveMap(in)
	case string:
		return resolveJSON([]byte(in))
	case []byte:
		return resolveJSON(in)
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported input type %T", inputs))
	}
}

func resolveEnvelope(env InputSchema) (*models.AnalysisRequest, error) {
	if env.ToolName != "" && env.ToolName != ToolName {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown tool_name %q, expected %q", env.ToolName, ToolName))
	}
	return normalizeRequest(env.ToolInputData)
}

func resolveJSON(raw []byte) (*models.AnalysisRequest, error) {
	var vars map[string]interface{}
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	return resolveMap(vars)
}

func resolveMap(vars map[string]interface{}) (*models.AnalysisRequest, error) {
	payload := vars

	_, hasName := vars["tool_name"]
	data, hasData := vars["tool_input_data"]
	if hasName || hasData {
		if hasName {
			name, ok := vars["tool_name"].(string)
			if !ok {
				return nil, errors.NewValidationError("tool_name: must be a string")
			}
			if name != "" && name != ToolName {
				return nil, errors.NewValidationError(fmt.Sprintf("unknown tool_name %q, expected %q", name, ToolName))
			}
		}
		nested, ok := data.(map[string]interface{})
		if !ok {
			return nil, errors.NewValidationError("tool_input_data: must be an object")
		}
		payload = nested
	}

	result, err := validation.ValidateInput(payload, GetInputSchema())
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewValidationError(result.Error())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	var req models.AnalysisRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	return normalizeRequest(req)
}

// normalizeRequest checks required fields, applies defaults and returns a fresh copy.
// Repeated symbols keep their first occurrence.
func normalizeRequest(req models.AnalysisRequest) (*models.AnalysisRequest, error) {
	if len(req.TickerSymbols) == 0 {
		return nil, errors.NewValidationError("ticker_symbols: at least one symbol is required")
	}
	if strings.TrimSpace(req.TimePeriod) == "" {
		return nil, errors.NewValidationError("time_period: is required")
	}

	seen := make(map[string]bool, len(req.TickerSymbols))
	symbols := make([]string, 0, len(req.TickerSymbols))
	for i, symbol := range req.TickerSymbols {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("ticker_symbols.%d: must not be empty", i))
		}
		if seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}

	out := &models.AnalysisRequest{
		TickerSymbols: symbols,
		TimePeriod:    strings.TrimSpace(req.TimePeriod),
		AnalysisType:  req.AnalysisType,
	}
	if out.AnalysisType == "" {
		out.AnalysisType = DefaultAnalysisType
	}
	if req.SpecificMetrics == nil {
		out.SpecificMetrics = append([]string(nil), DefaultMetrics...)
	} else {
		out.SpecificMetrics = append([]string{}, req.SpecificMetrics...)
	}
	return out, nil
}

// parseLLMConfig reads the optional llm_config job variable.
func parseLLMConfig(v interface{}) (*LLMConfig, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.NewValidationError("llm_config: must be an object")
	}

	result, err := validation.ValidateInput(raw, GetLLMConfigSchema())
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewValidationError("llm_config: " + result.Error())
	}

	out := &LLMConfig{}
	if model, ok := raw["model"].(string); ok {
		out.Model = model
	}
	if temp, ok := raw["temperature"].(float64); ok {
		out.Temperature = &temp
	}
	return out, nil
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"ticker_symbols", "time_period"},
		Properties: map[string]validation.Property{
			"ticker_symbols": {
				Type:        "array",
				Description: "Ticker symbols to analyze, in order",
				MinItems:    validation.IntPtr(1),
				Items: &validation.Property{
					Type:      "string",
					MinLength: validation.IntPtr(1),
				},
			},
			"time_period": {
				Type:        "string",
				Description: "Price history period understood by the market data provider, e.g. 1y",
				MinLength:   validation.IntPtr(1),
			},
			"analysis_type": {
				Type:        "string",
				Description: "Style or depth of the analysis passed to the model",
				Default:     DefaultAnalysisType,
			},
			"specific_metrics": {
				Type:        "array",
				Description: "Company info metrics to extract",
				Items:       &validation.Property{Type: "string"},
				Default:     DefaultMetrics,
			},
		},
	}
}

func GetLLMConfigSchema() validation.JSONSchema {
	minTemp, maxTemp := 0.0, 2.0
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"model": {
				Type:        "string",
				Description: "Model name, optionally prefixed with openai/, google/ or anthropic/",
			},
			"temperature": {
				Type:    "number",
				Minimum: &minTemp,
				Maximum: &maxTemp,
			},
		},
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"analysisResult": {
				Type:        "object",
				Description: "Per-symbol results keyed by ticker symbol, in request order",
				AdditionalProperties: &validation.Property{
					Type:     "object",
					Required: []string{"metrics", "analysis"},
					Properties: map[string]validation.Property{
						"metrics":  {Type: "object", Description: "Requested metrics present in company info"},
						"analysis": {Type: "string", Description: "Model-generated analysis"},
					},
				},
			},
			"analyzedSymbols": {
				Type:  "array",
				Items: &validation.Property{Type: "string"},
			},
			"analysisModel": {
				Type:        "string",
				Description: "Model that produced the analyses",
			},
			"runId": {
				Type: "string",
			},
		},
		AdditionalProperties: validation.BoolPtr(false),
	}
}

// Activity describes the worker for the activity registry.
func Activity() registry.Activity {
	defaults := DefaultConfig()
	return registry.Activity{
		ID:                   WorkerName,
		DisplayName:          "Financial Data Analyst",
		Description:          "Fetches company info and financial statements per ticker symbol and has a language model analyze them",
		Category:             "analysis",
		Version:              "1.0.0",
		TaskType:             TaskType,
		ImplementationStatus: "completed",
		InputSchema:          GetInputSchema().ToMap(),
		OutputSchema:         GetOutputSchema().ToMap(),
		ErrorCodes: []string{
			string(errors.ErrCodeValidationFailed),
			string(errors.ErrCodeDataFetchFailed),
			string(errors.ErrCodeAnalysisFailed),
			string(errors.ErrCodePromptTooLarge),
			string(errors.ErrCodeLLMTimeout),
			string(errors.ErrCodeLLMNotConfigured),
		},
		Timeout:  defaults.Timeout.String(),
		Retries:  errors.GetRetryCount(errors.ErrCodeDataFetchFailed),
		Defaults: defaults.registryDefaults(),
		Tags:     []string{"finance", "llm", "market-data"},
	}
}
