// internal/models/financial_data.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisRequest is the canonical, validated request handled by the analysis pipeline.
type AnalysisRequest struct {
	TickerSymbols   []string `json:"ticker_symbols"`
	TimePeriod      string   `json:"time_period"`
	AnalysisType    string   `json:"analysis_type"`
	SpecificMetrics []string `json:"specific_metrics"`
}

// RawFinancialData is everything fetched for one symbol. It lives for a single symbol's processing.
type RawFinancialData struct {
	Symbol          string                 `json:"symbol"`
	Info            map[string]interface{} `json:"info"`
	IncomeStatement Statement              `json:"income_stmt"`
	BalanceSheet    Statement              `json:"balance_sheet"`
	Calendar        map[string]interface{} `json:"calendar,omitempty"`
	History         []PriceBar             `json:"history,omitempty"`
}

// Statement is a financial statement table: one column of line items per reporting period,
// newest period first.
type Statement struct {
	Periods []StatementPeriod `json:"periods"`
}

type StatementPeriod struct {
	EndDate string                 `json:"end_date"`
	Items   map[string]interface{} `json:"items"`
}

func (s Statement) IsEmpty() bool {
	return len(s.Periods) == 0
}

// ByPeriod renders the statement as period end date -> line items. A period without an end
// date is keyed by its position ("period 2"); a repeated key gets a "#n" suffix so no period
// is overwritten.
func (s Statement) ByPeriod() map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(s.Periods))
	for i, p := range s.Periods {
		base := strings.TrimSpace(p.EndDate)
		if base == "" {
			base = fmt.Sprintf("period %d", i+1)
		}
		key := base
		for n := 2; ; n++ {
			if _, taken := out[key]; !taken {
				break
			}
			key = fmt.Sprintf("%s#%d", base, n)
		}
		out[key] = p.Items
	}
	return out
}

// DropOldest returns a copy of the statement without its oldest period.
func (s Statement) DropOldest() Statement {
	if len(s.Periods) == 0 {
		return s
	}
	periods := make([]StatementPeriod, len(s.Periods)-1)
	copy(periods, s.Periods[:len(s.Periods)-1])
	return Statement{Periods: periods}
}

type PriceBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close,omitempty"`
	Volume   int64     `json:"volume"`
}
