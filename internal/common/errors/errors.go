// internal/common/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ============================================================================
// ERROR CODES
// ============================================================================

type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"

	ErrCodeDataFetchFailed ErrorCode = "DATA_FETCH_FAILED"

	ErrCodeAnalysisFailed   ErrorCode = "ANALYSIS_FAILED"
	ErrCodePromptTooLarge   ErrorCode = "PROMPT_TOO_LARGE"
	ErrCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMNotConfigured ErrorCode = "LLM_NOT_CONFIGURED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Kind groups error codes by the pipeline stage family that raised them.
type Kind string

const (
	KindValidation Kind = "validation"
	KindDataFetch  Kind = "data_fetch"
	KindAnalysis   Kind = "analysis"
	KindInternal   Kind = "internal"
)

// Pipeline stages recorded on errors and log lines.
const (
	StageValidate = "validate"
	StageFetch    = "fetch"
	StageExtract  = "extract"
	StagePrompt   = "prompt"
	StageAnalyze  = "analyze"
)

// StandardError is the error type returned by every pipeline stage.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Symbol    string                 `json:"symbol,omitempty"`
	Stage     string                 `json:"stage,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Kind reports the family of the error code.
func (e *StandardError) Kind() Kind {
	switch e.Code {
	case ErrCodeValidationFailed, ErrCodeInputParsingFailed:
		return KindValidation
	case ErrCodeDataFetchFailed:
		return KindDataFetch
	case ErrCodeAnalysisFailed, ErrCodePromptTooLarge, ErrCodeLLMTimeout, ErrCodeLLMNotConfigured:
		return KindAnalysis
	default:
		return KindInternal
	}
}

// WithStage records the pipeline stage on the error and returns it.
func (e *StandardError) WithStage(stage string) *StandardError {
	e.Stage = stage
	return e
}

// WithMetadata merges key/value pairs into the error metadata and returns it.
func (e *StandardError) WithMetadata(kv map[string]interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{}, len(kv))
	}
	for k, v := range kv {
		e.Metadata[k] = v
	}
	return e
}

// ============================================================================
// BPMN ERROR
// ============================================================================

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the process variables attached to a failed or thrown job.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ============================================================================
// CONSTRUCTORS
// ============================================================================

func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Stage:     StageValidate,
		Timestamp: time.Now().UTC(),
	}
}

func NewInputParsingError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Failed to parse input",
		Details:   err.Error(),
		Retryable: false,
		Stage:     StageValidate,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewDataFetchError(symbol string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataFetchFailed,
		Message:   fmt.Sprintf("Failed to fetch financial data for %s", symbol),
		Details:   err.Error(),
		Retryable: true,
		Symbol:    symbol,
		Stage:     StageFetch,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewAnalysisError(symbol string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisFailed,
		Message:   fmt.Sprintf("Language model analysis failed for %s", symbol),
		Details:   err.Error(),
		Retryable: true,
		Symbol:    symbol,
		Stage:     StageAnalyze,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewPromptTooLargeError(symbol string, size, limit int) *StandardError {
	return &StandardError{
		Code:      ErrCodePromptTooLarge,
		Message:   fmt.Sprintf("Analysis prompt for %s exceeds the model input limit", symbol),
		Details:   fmt.Sprintf("promptChars: %d, limit: %d", size, limit),
		Retryable: false,
		Symbol:    symbol,
		Stage:     StagePrompt,
		Metadata:  map[string]interface{}{"promptChars": size, "limit": limit},
		Timestamp: time.Now().UTC(),
	}
}

// NewPromptRejectedError is raised when the model provider rejects a prompt as too long.
func NewPromptRejectedError(symbol string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePromptTooLarge,
		Message:   fmt.Sprintf("Analysis prompt for %s exceeds the model input limit", symbol),
		Details:   err.Error(),
		Retryable: false,
		Symbol:    symbol,
		Stage:     StageAnalyze,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewLLMTimeoutError(symbol string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   fmt.Sprintf("Language model call timed out for %s", symbol),
		Details:   err.Error(),
		Retryable: true,
		Symbol:    symbol,
		Stage:     StageAnalyze,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewLLMNotConfiguredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMNotConfigured,
		Message:   "Language model client is not configured",
		Details:   details,
		Retryable: false,
		Stage:     StageAnalyze,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ============================================================================
// HELPERS
// ============================================================================

// As returns the StandardError in err's chain, if any.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// KindOf reports the error family of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if stdErr, ok := As(err); ok {
		return stdErr.Kind()
	}
	return KindInternal
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:   "VALIDATION_FAILED",
	ErrCodeInputParsingFailed: "VALIDATION_FAILED",
	ErrCodeDataFetchFailed:    "DATA_FETCH_FAILED",
	ErrCodeAnalysisFailed:     "ANALYSIS_FAILED",
	ErrCodePromptTooLarge:     "PROMPT_TOO_LARGE",
	ErrCodeLLMTimeout:         "LLM_TIMEOUT",
	ErrCodeLLMNotConfigured:   "LLM_NOT_CONFIGURED",
}

// GetRetryCount is the number of job retries the orchestrator grants per code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDataFetchFailed:
		return 3
	case ErrCodeAnalysisFailed, ErrCodeLLMTimeout:
		return 1
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorKind":         string(stdErr.Kind()),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if stdErr.Symbol != "" {
		vars["errorSymbol"] = stdErr.Symbol
	}
	if stdErr.Stage != "" {
		vars["errorStage"] = stdErr.Stage
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	switch (&StandardError{Code: code}).Kind() {
	case KindValidation:
		return "VALIDATION"
	case KindDataFetch:
		return "MARKET_DATA"
	case KindAnalysis:
		return "AI"
	default:
		return "OTHER"
	}
}
