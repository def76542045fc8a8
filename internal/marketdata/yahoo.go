// internal/marketdata/yahoo.go
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"financial-analyst/internal/common/config"
	httpclient "financial-analyst/internal/common/http"
	"financial-analyst/internal/common/logger"
	"financial-analyst/internal/common/metrics"
	"financial-analyst/internal/models"
)

var infoModules = []string{
	"price",
	"summaryDetail",
	"defaultKeyStatistics",
	"financialData",
	"assetProfile",
}

const (
	incomeModule   = "incomeStatementHistory"
	balanceModule  = "balanceSheetHistory"
	calendarModule = "calendarEvents"
)

// YahooProvider fetches company info, statements and price history from Yahoo Finance.
type YahooProvider struct {
	client *httpclient.Client
	cfg    config.MarketDataConfig
	logger logger.Logger

	mu    sync.Mutex
	crumb string
}

func NewYahooProvider(cfg config.MarketDataConfig, log logger.Logger) (*YahooProvider, error) {
	client, err := httpclient.NewClientWithOptions(httpclient.Options{
		Timeout:   config.GetDuration(cfg.Timeout),
		Proxy:     cfg.Proxy,
		UserAgent: cfg.UserAgent,
		Cookies:   true,
	})
	if err != nil {
		return nil, err
	}
	return &YahooProvider{
		client: client,
		cfg:    cfg,
		logger: log,
	}, nil
}

func (p *YahooProvider) Name() string { return "yahoo" }

// Fetch retrieves info, income statement, balance sheet and calendar from quoteSummary, then
// price history for period from the chart endpoint.
func (p *YahooProvider) Fetch(ctx context.Context, symbol, period string) (*models.RawFinancialData, error) {
	summary, err := p.quoteSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}

	history, err := p.history(ctx, symbol, period)
	if err != nil {
		return nil, err
	}

	info := map[string]interface{}{}
	for _, module := range infoModules {
		flattenInto(info, summary[module])
	}
	AddMetricAliases(info)

	data := &models.RawFinancialData{
		Symbol:          symbol,
		Info:            info,
		IncomeStatement: parseStatement(summary[incomeModule], "incomeStatementHistory"),
		BalanceSheet:    parseStatement(summary[balanceModule], "balanceSheetStatements"),
		History:         history,
	}
	if cal, ok := unwrapValue(summary[calendarModule]).(map[string]interface{}); ok {
		data.Calendar = cal
	}

	p.logger.Debug("Fetched market data", map[string]interface{}{
		"symbol":         symbol,
		"period":         period,
		"infoKeys":       len(info),
		"incomePeriods":  len(data.IncomeStatement.Periods),
		"balancePeriods": len(data.BalanceSheet.Periods),
		"historyBars":    len(history),
	})
	return data, nil
}

// ============================================================================
// QUOTE SUMMARY
// ============================================================================

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]interface{} `json:"result"`
		Error  *yahooError              `json:"error"`
	} `json:"quoteSummary"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (p *YahooProvider) quoteSummary(ctx context.Context, symbol string) (map[string]interface{}, error) {
	var resp quoteSummaryResponse
	for attempt := 0; attempt < 2; attempt++ {
		crumb, err := p.ensureCrumb(ctx, attempt > 0)
		if err != nil {
			return nil, err
		}

		modules := append(append([]string{}, infoModules...), incomeModule, balanceModule, calendarModule)
		q := url.Values{}
		q.Set("modules", strings.Join(modules, ","))
		q.Set("formatted", "true")
		if crumb != "" {
			q.Set("crumb", crumb)
		}
		endpoint := fmt.Sprintf("%s/%s?%s", strings.TrimRight(p.cfg.SummaryBaseURL, "/"), url.PathEscape(symbol), q.Encode())

		err = p.getJSON(ctx, "quoteSummary", endpoint, &resp)
		if err == ErrUnauthorized && attempt == 0 {
			p.logger.Warn("Yahoo crumb rejected, refreshing", map[string]interface{}{"symbol": symbol})
			continue
		}
		if err != nil && resp.QuoteSummary.Error == nil {
			return nil, fmt.Errorf("quoteSummary %s: %w", symbol, err)
		}
		break
	}

	if e := resp.QuoteSummary.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s: %s", ErrSymbolNotFound, symbol, e.Description)
		}
		return nil, fmt.Errorf("%w: quoteSummary %s: %s: %s", ErrUpstream, symbol, e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s: empty quoteSummary result", ErrSymbolNotFound, symbol)
	}
	return resp.QuoteSummary.Result[0], nil
}

// ensureCrumb returns the cached crumb, performing the cookie and crumb handshake when needed.
func (p *YahooProvider) ensureCrumb(ctx context.Context, refresh bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.crumb != "" && !refresh {
		return p.crumb, nil
	}
	if p.cfg.CrumbURL == "" {
		return "", nil
	}

	if p.cfg.CookieURL != "" {
		resp, err := p.client.Get(ctx, p.cfg.CookieURL)
		if err != nil {
			return "", fmt.Errorf("%w: cookie handshake: %v", ErrUpstream, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	resp, err := p.client.Get(ctx, p.cfg.CrumbURL)
	if err != nil {
		return "", fmt.Errorf("%w: crumb request: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("%w: crumb body: %v", ErrUpstream, err)
	}
	crumb := strings.TrimSpace(string(body))
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: crumb request", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK || crumb == "" || strings.Contains(crumb, "<") {
		return "", fmt.Errorf("%w: crumb request returned status %d", ErrUnauthorized, resp.StatusCode)
	}

	p.crumb = crumb
	return crumb, nil
}

// ============================================================================
// CHART
// ============================================================================

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

func (p *YahooProvider) history(ctx context.Context, symbol, period string) ([]models.PriceBar, error) {
	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", "1d")
	endpoint := fmt.Sprintf("%s/%s?%s", strings.TrimRight(p.cfg.ChartBaseURL, "/"), url.PathEscape(symbol), q.Encode())

	var resp chartResponse
	if err := p.getJSON(ctx, "chart", endpoint, &resp); err != nil && resp.Chart.Error == nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s: %s", ErrSymbolNotFound, symbol, e.Description)
		}
		return nil, fmt.Errorf("%w: chart %s: %s: %s", ErrUpstream, symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := floatAt(quote.Close, i)
		if closePrice == nil {
			continue
		}
		bar := models.PriceBar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *closePrice,
		}
		if v := floatAt(quote.Open, i); v != nil {
			bar.Open = *v
		}
		if v := floatAt(quote.High, i); v != nil {
			bar.High = *v
		}
		if v := floatAt(quote.Low, i); v != nil {
			bar.Low = *v
		}
		if v := floatAt(adj, i); v != nil {
			bar.AdjClose = *v
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func floatAt(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

// getJSON decodes the response body into out even for error statuses, since Yahoo reports
// errors inside the JSON envelope.
func (p *YahooProvider) getJSON(ctx context.Context, endpointName, endpoint string, out interface{}) error {
	resp, err := p.client.Get(ctx, endpoint)
	if err != nil {
		metrics.MarketDataRequests.WithLabelValues(endpointName, "error").Inc()
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	metrics.MarketDataRequests.WithLabelValues(endpointName, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	}

	decodeErr := json.NewDecoder(resp.Body).Decode(out)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, decodeErr)
	}
	return nil
}

// ============================================================================
// VALUE FLATTENING
// ============================================================================

// unwrapValue replaces {raw, fmt} envelopes with their raw value, recursively.
func unwrapValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if raw, ok := t["raw"]; ok {
			return raw
		}
		if len(t) == 0 {
			return nil
		}
		if f, ok := t["fmt"]; ok && len(t) <= 2 {
			return f
		}
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			if k == "maxAge" {
				continue
			}
			if u := unwrapValue(inner); u != nil {
				out[k] = u
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, inner := range t {
			if u := unwrapValue(inner); u != nil {
				out = append(out, u)
			}
		}
		return out
	default:
		return v
	}
}

// flattenInto copies the scalar attributes of a quoteSummary module into info. Existing keys win.
func flattenInto(info map[string]interface{}, module interface{}) {
	m, ok := module.(map[string]interface{})
	if !ok {
		return
	}
	for k, v := range m {
		if k == "maxAge" {
			continue
		}
		if _, exists := info[k]; exists {
			continue
		}
		switch u := unwrapValue(v).(type) {
		case nil, map[string]interface{}, []interface{}:
		default:
			info[k] = u
		}
	}
}

func parseStatement(module interface{}, listKey string) models.Statement {
	m, ok := module.(map[string]interface{})
	if !ok {
		return models.Statement{}
	}
	rows, ok := m[listKey].([]interface{})
	if !ok {
		return models.Statement{}
	}

	var stmt models.Statement
	for _, row := range rows {
		entry, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		period := models.StatementPeriod{
			EndDate: periodEndDate(entry["endDate"]),
			Items:   map[string]interface{}{},
		}
		for k, v := range entry {
			if k == "endDate" || k == "maxAge" {
				continue
			}
			switch u := unwrapValue(v).(type) {
			case nil, map[string]interface{}, []interface{}:
			default:
				period.Items[k] = u
			}
		}
		stmt.Periods = append(stmt.Periods, period)
	}
	return stmt
}

func periodEndDate(v interface{}) string {
	env, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	if f, ok := env["fmt"].(string); ok && f != "" {
		return f
	}
	if raw, ok := env["raw"].(float64); ok {
		return time.Unix(int64(raw), 0).UTC().Format("2006-01-02")
	}
	return ""
}
