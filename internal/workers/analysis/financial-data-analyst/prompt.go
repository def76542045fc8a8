package financialdataanalyst

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"financial-analyst/internal/common/errors"
	"financial-analyst/internal/models"
)

var focusAreas = []string{
	"Key financial metrics and their trends",
	"Financial statement analysis",
	"Notable changes or anomalies",
	"Financial health indicators",
}

// Prompt is a composed analysis prompt.
type Prompt struct {
	Text string
	// DroppedPeriods counts statement periods left out to fit the size limit.
	DroppedPeriods int
}

func (p Prompt) Chars() int {
	return utf8.RuneCountInString(p.Text)
}

// BuildPrompt renders the full analysis prompt for one symbol. Statements are embedded
// as JSON objects keyed by period end date.
func BuildPrompt(symbol string, metrics models.MetricAnalysis, income, balance models.Statement, analysisType string) string {
	return renderPrompt(symbol, metrics, income, balance, analysisType, 0)
}

// ComposePrompt builds the prompt and, when it exceeds maxChars, drops the oldest statement
// periods (balance sheet and income statement in turn) until it fits. Each statement keeps
// at least its newest period; a prompt that still does not fit is PROMPT_TOO_LARGE.
// A non-positive maxChars disables the limit.
func ComposePrompt(symbol string, metrics models.MetricAnalysis, income, balance models.Statement, analysisType string, maxChars int) (Prompt, error) {
	prompt := Prompt{Text: BuildPrompt(symbol, metrics, income, balance, analysisType)}
	if maxChars <= 0 || prompt.Chars() <= maxChars {
		return prompt, nil
	}

	dropBalance := true
	for len(income.Periods) > 1 || len(balance.Periods) > 1 {
		if (dropBalance && len(balance.Periods) > 1) || len(income.Periods) <= 1 {
			balance = balance.DropOldest()
		} else {
			income = income.DropOldest()
		}
		dropBalance = !dropBalance

		prompt.DroppedPeriods++
		prompt.Text = renderPrompt(symbol, metrics, income, balance, analysisType, prompt.DroppedPeriods)
		if prompt.Chars() <= maxChars {
			return prompt, nil
		}
	}

	return prompt, errors.NewPromptTooLargeError(symbol, prompt.Chars(), maxChars)
}

func renderPrompt(symbol string, metrics models.MetricAnalysis, income, balance models.Statement, analysisType string, dropped int) string {
	parts := []string{
		fmt.Sprintf("Analyze the following financial data for %s:", symbol),
		"Financial Metrics: " + toJSON(metrics),
		"Income Statement: " + toJSON(income.ByPeriod()),
		"Balance Sheet: " + toJSON(balance.ByPeriod()),
	}

	if dropped > 0 {
		parts = append(parts, fmt.Sprintf(
			"Note: the %d oldest reporting periods were left out of the statements above to fit the input limit.", dropped))
	}

	parts = append(parts, "", fmt.Sprintf("Provide a %s analysis focusing on:", analysisType))
	for i, area := range focusAreas {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, area))
	}

	return strings.Join(parts, "\n")
}

func toJSON(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
