// internal/marketdata/provider.go
package marketdata

import (
	"context"
	"errors"

	"financial-analyst/internal/models"
)

var (
	ErrSymbolNotFound = errors.New("SYMBOL_NOT_FOUND")
	ErrRateLimited    = errors.New("RATE_LIMITED")
	ErrUnauthorized   = errors.New("UNAUTHORIZED")
	ErrUpstream       = errors.New("UPSTREAM_ERROR")
	ErrMalformed      = errors.New("MALFORMED_RESPONSE")
)

// Provider fetches the raw financial data for one ticker symbol.
type Provider interface {
	Fetch(ctx context.Context, symbol, period string) (*models.RawFinancialData, error)
	Name() string
}

// metricAliases maps display metric names to the provider info keys they read.
var metricAliases = map[string]string{
	"PE":                "trailingPE",
	"Forward PE":        "forwardPE",
	"PEG":               "pegRatio",
	"EPS":               "trailingEps",
	"Revenue Growth":    "revenueGrowth",
	"Earnings Growth":   "earningsGrowth",
	"Profit Margins":    "profitMargins",
	"Gross Margins":     "grossMargins",
	"Operating Margins": "operatingMargins",
	"Market Cap":        "marketCap",
	"Beta":              "beta",
	"Dividend Yield":    "dividendYield",
	"Debt to Equity":    "debtToEquity",
	"ROE":               "returnOnEquity",
	"ROA":               "returnOnAssets",
	"Current Ratio":     "currentRatio",
	"Price to Book":     "priceToBook",
}

// AddMetricAliases copies known info keys under their display names without overwriting existing keys.
func AddMetricAliases(info map[string]interface{}) {
	for alias, key := range metricAliases {
		if _, exists := info[alias]; exists {
			continue
		}
		if v, ok := info[key]; ok {
			info[alias] = v
		}
	}
}
