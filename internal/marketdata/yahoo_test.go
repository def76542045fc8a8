package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"financial-analyst/internal/common/config"
	"financial-analyst/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summaryAAPL = `{
  "quoteSummary": {
    "result": [{
      "price": {"maxAge": 1, "symbol": "AAPL", "currency": "USD", "regularMarketPrice": {"raw": 227.52, "fmt": "227.52"}},
      "summaryDetail": {"trailingPE": {"raw": 28.5, "fmt": "28.50"}, "beta": {"raw": 1.24, "fmt": "1.24"}, "dividendYield": {}},
      "defaultKeyStatistics": {"trailingEps": {"raw": 6.08, "fmt": "6.08"}},
      "financialData": {"revenueGrowth": {"raw": 0.061, "fmt": "6.10%"}, "profitMargins": {"raw": 0.2397, "fmt": "23.97%"}},
      "assetProfile": {"sector": "Technology", "companyOfficers": [{"name": "Tim Cook"}]},
      "incomeStatementHistory": {"incomeStatementHistory": [
        {"maxAge": 1, "endDate": {"raw": 1727481600, "fmt": "2024-09-28"}, "totalRevenue": {"raw": 391035000000, "fmt": "391.04B"}, "netIncome": {"raw": 93736000000, "fmt": "93.74B"}},
        {"maxAge": 1, "endDate": {"raw": 1696032000, "fmt": "2023-09-30"}, "totalRevenue": {"raw": 383285000000, "fmt": "383.29B"}, "netIncome": {"raw": 96995000000, "fmt": "97B"}}
      ]},
      "balanceSheetHistory": {"balanceSheetStatements": [
        {"endDate": {"raw": 1727481600, "fmt": "2024-09-28"}, "totalAssets": {"raw": 364980000000, "fmt": "364.98B"}}
      ]},
      "calendarEvents": {"earnings": {"earningsDate": [{"raw": 1738195200, "fmt": "2025-01-30"}]}, "exDividendDate": {"raw": 1731283200, "fmt": "2024-11-11"}}
    }],
    "error": null
  }
}`

const chartAAPL = `{
  "chart": {
    "result": [{
      "timestamp": [1704205800, 1704292200, 1704378600],
      "indicators": {
        "quote": [{"open": [187.15, 184.22, null], "high": [188.44, 185.88, null], "low": [183.89, 183.43, null], "close": [185.64, 184.25, null], "volume": [82488700, 58414500, null]}],
        "adjclose": [{"adjclose": [184.73, 183.35, null]}]
      }
    }],
    "error": null
  }
}`

type yahooStub struct {
	server        *httptest.Server
	crumbRequests int32
	rejectFirst   int32
	lastCrumb     atomic.Value
	lastRange     atomic.Value
}

func newYahooStub(t *testing.T) *yahooStub {
	t.Helper()
	stub := &yahooStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/crumb", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&stub.crumbRequests, 1)
		if _, err := r.Cookie("A3"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if n == 1 {
			_, _ = w.Write([]byte("crumb-1"))
			return
		}
		_, _ = w.Write([]byte("crumb-2"))
	})
	mux.HandleFunc("/summary/", func(w http.ResponseWriter, r *http.Request) {
		stub.lastCrumb.Store(r.URL.Query().Get("crumb"))
		if atomic.CompareAndSwapInt32(&stub.rejectFirst, 1, 0) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch strings.TrimPrefix(r.URL.Path, "/summary/") {
		case "AAPL":
			_, _ = w.Write([]byte(summaryAAPL))
		case "LIMIT":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for symbol"}}}`))
		}
	})
	mux.HandleFunc("/chart/", func(w http.ResponseWriter, r *http.Request) {
		stub.lastRange.Store(r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(chartAAPL))
	})
	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *yahooStub) provider(t *testing.T) *YahooProvider {
	t.Helper()
	cfg := config.Default().MarketData
	cfg.SummaryBaseURL = s.server.URL + "/summary"
	cfg.ChartBaseURL = s.server.URL + "/chart"
	cfg.CookieURL = s.server.URL + "/cookie"
	cfg.CrumbURL = s.server.URL + "/crumb"

	p, err := NewYahooProvider(cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	return p
}

func TestYahooProvider_Fetch(t *testing.T) {
	stub := newYahooStub(t)
	p := stub.provider(t)

	data, err := p.Fetch(context.Background(), "AAPL", "1y")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", data.Symbol)
	assert.Equal(t, "1y", stub.lastRange.Load())
	assert.Equal(t, "crumb-1", stub.lastCrumb.Load())

	// info
	assert.Equal(t, 28.5, data.Info["trailingPE"])
	assert.Equal(t, 28.5, data.Info["PE"])
	assert.Equal(t, 0.061, data.Info["Revenue Growth"])
	assert.Equal(t, 0.2397, data.Info["Profit Margins"])
	assert.Equal(t, "Technology", data.Info["sector"])
	assert.Equal(t, 227.52, data.Info["regularMarketPrice"])
	assert.NotContains(t, data.Info, "maxAge")
	assert.NotContains(t, data.Info, "dividendYield")
	assert.NotContains(t, data.Info, "companyOfficers")

	// statements
	require.Len(t, data.IncomeStatement.Periods, 2)
	assert.Equal(t, "2024-09-28", data.IncomeStatement.Periods[0].EndDate)
	assert.Equal(t, 391035000000.0, data.IncomeStatement.Periods[0].Items["totalRevenue"])
	assert.NotContains(t, data.IncomeStatement.Periods[0].Items, "maxAge")
	require.Len(t, data.BalanceSheet.Periods, 1)
	assert.Equal(t, 364980000000.0, data.BalanceSheet.Periods[0].Items["totalAssets"])

	// calendar
	assert.Equal(t, 1731283200.0, data.Calendar["exDividendDate"])
	require.Contains(t, data.Calendar, "earnings")

	// history skips bars without a close
	require.Len(t, data.History, 2)
	assert.Equal(t, 185.64, data.History[0].Close)
	assert.Equal(t, 184.73, data.History[0].AdjClose)
	assert.Equal(t, int64(82488700), data.History[0].Volume)
	assert.Equal(t, 2024, data.History[0].Date.Year())
}

func TestYahooProvider_ReusesCrumb(t *testing.T) {
	stub := newYahooStub(t)
	p := stub.provider(t)

	_, err := p.Fetch(context.Background(), "AAPL", "1y")
	require.NoError(t, err)
	_, err = p.Fetch(context.Background(), "AAPL", "6mo")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.crumbRequests))
	assert.Equal(t, "6mo", stub.lastRange.Load())
}

func TestYahooProvider_RefreshesRejectedCrumb(t *testing.T) {
	stub := newYahooStub(t)
	p := stub.provider(t)
	atomic.StoreInt32(&stub.rejectFirst, 1)

	_, err := p.Fetch(context.Background(), "AAPL", "1y")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.crumbRequests))
	assert.Equal(t, "crumb-2", stub.lastCrumb.Load())
}

func TestYahooProvider_UnknownSymbol(t *testing.T) {
	stub := newYahooStub(t)
	p := stub.provider(t)

	_, err := p.Fetch(context.Background(), "NOPE", "1y")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSymbolNotFound)
	assert.Contains(t, err.Error(), "NOPE")
}

func TestYahooProvider_RateLimited(t *testing.T) {
	stub := newYahooStub(t)
	p := stub.provider(t)

	_, err := p.Fetch(context.Background(), "LIMIT", "1y")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestUnwrapValue(t *testing.T) {
	assert.Equal(t, 1.5, unwrapValue(map[string]interface{}{"raw": 1.5, "fmt": "1.50"}))
	assert.Equal(t, "2024-01-01", unwrapValue(map[string]interface{}{"fmt": "2024-01-01"}))
	assert.Nil(t, unwrapValue(map[string]interface{}{}))
	assert.Equal(t, "USD", unwrapValue("USD"))
	assert.Equal(t,
		[]interface{}{2.0},
		unwrapValue([]interface{}{map[string]interface{}{"raw": 2.0}, map[string]interface{}{}}))
}

func TestAddMetricAliases_DoesNotOverwrite(t *testing.T) {
	info := map[string]interface{}{"trailingPE": 30.0, "PE": 12.0, "beta": 1.1}
	AddMetricAliases(info)

	assert.Equal(t, 12.0, info["PE"])
	assert.Equal(t, 1.1, info["Beta"])
	assert.NotContains(t, info, "Revenue Growth")
}
