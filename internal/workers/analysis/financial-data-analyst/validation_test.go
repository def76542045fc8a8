package financialdataanalyst

import (
	"testing"

	"financial-analyst/internal/common/errors"
	"financial-analyst/internal/common/validation"
	"financial-analyst/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRequest_Defaults(t *testing.T) {
	inputs := []struct {
		name  string
		input interface{}
	}{
		{"bare map", map[string]interface{}{"ticker_symbols": []interface{}{"AAPL"}, "time_period": "1y"}},
		{"envelope map", map[string]interface{}{
			"tool_name":       "analyze",
			"tool_input_data": map[string]interface{}{"ticker_symbols": []interface{}{"AAPL"}, "time_period": "1y"},
		}},
		{"json string", `{"ticker_symbols": ["AAPL"], "time_period": "1y"}`},
		{"json bytes", []byte(`{"tool_input_data": {"ticker_symbols": ["AAPL"], "time_period": "1y"}}`)},
		{"typed request", models.AnalysisRequest{TickerSymbols: []string{"AAPL"}, TimePeriod: "1y"}},
		{"typed request pointer", &models.AnalysisRequest{TickerSymbols: []string{"AAPL"}, TimePeriod: "1y"}},
		{"typed envelope", InputSchema{ToolName: ToolName, ToolInputData: models.AnalysisRequest{TickerSymbols: []string{"AAPL"}, TimePeriod: "1y"}}},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ResolveRequest(tt.input)
			require.NoError(t, err)

			assert.Equal(t, []string{"AAPL"}, req.TickerSymbols)
			assert.Equal(t, "1y", req.TimePeriod)
			assert.Equal(t, "brief", req.AnalysisType)
			assert.Equal(t, []string{"PE", "Revenue Growth", "Profit Margins"}, req.SpecificMetrics)
		})
	}
}

func TestResolveRequest_KeepsGivenValues(t *testing.T) {
	req, err := ResolveRequest(map[string]interface{}{
		"ticker_symbols":   []interface{}{"MSFT", "AAPL", "MSFT"},
		"time_period":      "5y",
		"analysis_type":    "comprehensive",
		"specific_metrics": []interface{}{"Beta"},
		"unrelated":        "process variable",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"MSFT", "AAPL"}, req.TickerSymbols)
	assert.Equal(t, "comprehensive", req.AnalysisType)
	assert.Equal(t, []string{"Beta"}, req.SpecificMetrics)
}

func TestResolveRequest_TrimsSymbols(t *testing.T) {
	inputs := []struct {
		name  string
		input interface{}
	}{
		{"map", map[string]interface{}{"ticker_symbols": []interface{}{" AAPL", "MSFT\t", "AAPL "}, "time_period": " 1y "}},
		{"json", `{"tool_name": "analyze", "tool_input_data": {"ticker_symbols": [" AAPL", "MSFT\t", "AAPL "], "time_period": " 1y "}}`},
		{"typed", models.AnalysisRequest{TickerSymbols: []string{" AAPL", "MSFT\t", "AAPL "}, TimePeriod: " 1y "}},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ResolveRequest(tt.input)
			require.NoError(t, err)
			assert.Equal(t, []string{"AAPL", "MSFT"}, req.TickerSymbols)
			assert.Equal(t, "1y", req.TimePeriod)
		})
	}
}

func TestResolveRequest_ExplicitEmptyMetrics(t *testing.T) {
	req, err := ResolveRequest(`{"ticker_symbols": ["AAPL"], "time_period": "1y", "specific_metrics": []}`)
	require.NoError(t, err)
	assert.NotNil(t, req.SpecificMetrics)
	assert.Empty(t, req.SpecificMetrics)
}

func TestResolveRequest_DoesNotAliasInput(t *testing.T) {
	in := &models.AnalysisRequest{TickerSymbols: []string{"AAPL"}, TimePeriod: "1y", SpecificMetrics: []string{"PE"}}
	req, err := ResolveRequest(in)
	require.NoError(t, err)

	req.TickerSymbols[0] = "MSFT"
	req.SpecificMetrics[0] = "Beta"
	assert.Equal(t, "AAPL", in.TickerSymbols[0])
	assert.Equal(t, "PE", in.SpecificMetrics[0])

	again, err := ResolveRequest(models.AnalysisRequest{TickerSymbols: []string{"AAPL"}, TimePeriod: "1y"})
	require.NoError(t, err)
	again.SpecificMetrics[0] = "changed"
	assert.Equal(t, "PE", DefaultMetrics[0])
}

func TestResolveRequest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		code   errors.ErrorCode
		errMsg string
	}{
		{"nil", nil, errors.ErrCodeValidationFailed, "inputs are required"},
		{"nil typed pointer", (*models.AnalysisRequest)(nil), errors.ErrCodeValidationFailed, "inputs are required"},
		{"missing symbols", map[string]interface{}{"time_period": "1y"}, errors.ErrCodeValidationFailed, "ticker_symbols"},
		{"missing period", map[string]interface{}{"ticker_symbols": []interface{}{"AAPL"}}, errors.ErrCodeValidationFailed, "time_period"},
		{"empty symbol list", map[string]interface{}{"ticker_symbols": []interface{}{}, "time_period": "1y"}, errors.ErrCodeValidationFailed, "ticker_symbols"},
		{"symbols not a list", map[string]interface{}{"ticker_symbols": "AAPL", "time_period": "1y"}, errors.ErrCodeValidationFailed, "ticker_symbols"},
		{"symbol not a string", map[string]interface{}{"ticker_symbols": []interface{}{42.0}, "time_period": "1y"}, errors.ErrCodeValidationFailed, "ticker_symbols"},
		{"period not a string", map[string]interface{}{"ticker_symbols": []interface{}{"AAPL"}, "time_period": 1.0}, errors.ErrCodeValidationFailed, "time_period"},
		{"metrics not strings", map[string]interface{}{"ticker_symbols": []interface{}{"AAPL"}, "time_period": "1y", "specific_metrics": []interface{}{true}}, errors.ErrCodeValidationFailed, "specific_metrics"},
		{"blank symbol in typed request", models.AnalysisRequest{TickerSymbols: []string{"AAPL", " "}, TimePeriod: "1y"}, errors.ErrCodeValidationFailed, "ticker_symbols.1"},
		{"typed request without period", models.AnalysisRequest{TickerSymbols: []string{"AAPL"}}, errors.ErrCodeValidationFailed, "time_period"},
		{"unknown tool", map[string]interface{}{"tool_name": "summarize", "tool_input_data": map[string]interface{}{}}, errors.ErrCodeValidationFailed, "summarize"},
		{"unknown typed tool", InputSchema{ToolName: "summarize"}, errors.ErrCodeValidationFailed, "summarize"},
		{"envelope without data", map[string]interface{}{"tool_name": "analyze"}, errors.ErrCodeValidationFailed, "tool_input_data"},
		{"malformed json", `{"ticker_symbols": [`, errors.ErrCodeInputParsingFailed, ""},
		{"unsupported type", 42, errors.ErrCodeValidationFailed, "unsupported input type int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ResolveRequest(tt.input)
			require.Error(t, err)
			assert.Nil(t, req)

			stdErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, errors.KindValidation, stdErr.Kind())
			assert.False(t, stdErr.Retryable)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseLLMConfig(t *testing.T) {
	override, err := parseLLMConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, override)

	override, err = parseLLMConfig(map[string]interface{}{"model": "gemini-2.0-flash", "temperature": 0.0})
	require.NoError(t, err)
	require.NotNil(t, override.Temperature)
	assert.Equal(t, "gemini-2.0-flash", override.Model)
	assert.Zero(t, *override.Temperature)

	applied := override.Apply(ModelConfig{Model: "gpt-4o", Temperature: 0.7})
	assert.Equal(t, ModelConfig{Model: "gemini-2.0-flash", Temperature: 0}, applied)

	partial, err := parseLLMConfig(map[string]interface{}{"model": "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.Equal(t, ModelConfig{Model: "claude-3-5-haiku-latest", Temperature: 0.7},
		partial.Apply(ModelConfig{Model: "gpt-4o", Temperature: 0.7}))

	_, err = parseLLMConfig(map[string]interface{}{"temperature": 3.5})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))

	_, err = parseLLMConfig("gpt-4o")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestSchemas(t *testing.T) {
	input := GetInputSchema()
	assert.ElementsMatch(t, []string{"ticker_symbols", "time_period"}, input.Required)

	output := GetOutputSchema()
	result, err := validation.ValidateInput(map[string]interface{}{
		"analysisResult": map[string]interface{}{
			"AAPL": map[string]interface{}{"metrics": map[string]interface{}{"PE": 28.5}, "analysis": "OK"},
		},
		"analyzedSymbols": []interface{}{"AAPL"},
		"analysisModel":   "gpt-4o",
		"runId":           "run-1",
	}, output)
	require.NoError(t, err)
	assert.True(t, result.Valid, result.Error())
}

func TestActivity(t *testing.T) {
	activity := Activity()
	assert.Equal(t, TaskType, activity.TaskType)
	assert.Equal(t, WorkerName, activity.ID)
	assert.Contains(t, activity.ErrorCodes, "PROMPT_TOO_LARGE")
	assert.Equal(t, "object", activity.InputSchema["type"])
	assert.Equal(t, 3, activity.Retries)
	assert.Equal(t, "5m0s", activity.Timeout)
	assert.Equal(t, "gpt-4o", activity.Defaults["model"])
	assert.Equal(t, 60000, activity.Defaults["prompt_max_chars"])
}
