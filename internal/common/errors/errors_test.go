package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_Kind(t *testing.T) {
	cause := stderrors.New("boom")

	tests := []struct {
		name string
		err  *StandardError
		kind Kind
	}{
		{"validation", NewValidationError("ticker_symbols is required"), KindValidation},
		{"input parsing", NewInputParsingError(cause), KindValidation},
		{"data fetch", NewDataFetchError("AAPL", cause), KindDataFetch},
		{"analysis", NewAnalysisError("AAPL", cause), KindAnalysis},
		{"prompt too large", NewPromptTooLargeError("AAPL", 90000, 60000), KindAnalysis},
		{"llm timeout", NewLLMTimeoutError("AAPL", cause), KindAnalysis},
		{"llm not configured", NewLLMNotConfiguredError("missing key"), KindAnalysis},
		{"internal", NewInternalError(cause), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind())
		})
	}
}

func TestStandardError_UnwrapAndAs(t *testing.T) {
	cause := stderrors.New("connection refused")
	fetchErr := NewDataFetchError("MSFT", cause)
	wrapped := fmt.Errorf("pipeline: %w", fetchErr)

	assert.True(t, stderrors.Is(wrapped, cause))

	stdErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeDataFetchFailed, stdErr.Code)
	assert.Equal(t, "MSFT", stdErr.Symbol)
	assert.Equal(t, StageFetch, stdErr.Stage)
	assert.Contains(t, stdErr.Error(), "MSFT")
	assert.Contains(t, stdErr.Error(), "connection refused")

	assert.True(t, HasCode(wrapped, ErrCodeDataFetchFailed))
	assert.False(t, HasCode(wrapped, ErrCodeAnalysisFailed))
	assert.Equal(t, KindDataFetch, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(cause))
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeDataFetchFailed))
	assert.Equal(t, 1, GetRetryCount(ErrCodeAnalysisFailed))
	assert.Equal(t, 1, GetRetryCount(ErrCodeLLMTimeout))
	assert.Equal(t, 0, GetRetryCount(ErrCodeValidationFailed))
	assert.Equal(t, 0, GetRetryCount(ErrCodePromptTooLarge))
	assert.False(t, IsRetryableErrorCode(ErrCodeLLMNotConfigured))
}

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewDataFetchError("AAPL", stderrors.New("timeout"))

	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "DATA_FETCH_FAILED", bpmnErr.Code)
	assert.Equal(t, 3, bpmnErr.Retries)
	assert.True(t, bpmnErr.Retryable)

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "DATA_FETCH_FAILED", vars["errorCode"])
	assert.Equal(t, "AAPL", vars["errorSymbol"])
	assert.Equal(t, "fetch", vars["errorStage"])
	assert.Equal(t, "data_fetch", vars["errorKind"])
}

func TestConvertToBPMNError_NonRetryable(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewValidationError("time_period is required"))

	assert.Equal(t, "VALIDATION_FAILED", bpmnErr.Code)
	assert.Equal(t, 0, bpmnErr.Retries)
	assert.False(t, bpmnErr.Retryable)
	assert.NotContains(t, bpmnErr.ToErrorVariables(), "errorSymbol")
}

func TestRemainingRetries(t *testing.T) {
	tests := []struct {
		policy     int
		jobRetries int32
		expected   int32
	}{
		{policy: 3, jobRetries: 3, expected: 2},
		{policy: 3, jobRetries: 10, expected: 3},
		{policy: 1, jobRetries: 3, expected: 1},
		{policy: 3, jobRetries: 1, expected: 0},
		{policy: 0, jobRetries: 3, expected: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("policy=%d/job=%d", tt.policy, tt.jobRetries), func(t *testing.T) {
			assert.Equal(t, tt.expected, RemainingRetries(tt.policy, tt.jobRetries))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "MARKET_DATA", GetErrorCategory(ErrCodeDataFetchFailed))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodePromptTooLarge))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
