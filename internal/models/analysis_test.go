package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricAnalysis_MarshalKeepsOrder(t *testing.T) {
	var m MetricAnalysis
	m.Set("Revenue Growth", 0.08)
	m.Set("PE", 28.5)
	m.Set("Profit Margins", 0.25)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"Revenue Growth":0.08,"PE":28.5,"Profit Margins":0.25}`, string(raw))
}

func TestMetricAnalysis_SetReplacesInPlace(t *testing.T) {
	var m MetricAnalysis
	m.Set("PE", 1)
	m.Set("Beta", 2)
	m.Set("PE", 3)

	assert.Equal(t, []string{"PE", "Beta"}, m.Names())
	v, ok := m.Get("PE")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestMetricAnalysis_EmptyMarshalsToObject(t *testing.T) {
	raw, err := json.Marshal(MetricAnalysis{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}

func TestAnalysisResult_MarshalInInsertionOrder(t *testing.T) {
	result := NewAnalysisResult()

	var msft MetricAnalysis
	msft.Set("PE", 35.1)
	result.Set("MSFT", SymbolResult{Metrics: msft, Analysis: "steady"})

	var aapl MetricAnalysis
	aapl.Set("PE", 28.5)
	result.Set("AAPL", SymbolResult{Metrics: aapl, Analysis: "OK"})

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"MSFT":{"metrics":{"PE":35.1},"analysis":"steady"},"AAPL":{"metrics":{"PE":28.5},"analysis":"OK"}}`,
		string(raw))
	assert.Equal(t, []string{"MSFT", "AAPL"}, result.Symbols())
	assert.Equal(t, 2, result.Len())
}

func TestAnalysisResult_UnmarshalKeepsOrder(t *testing.T) {
	input := `{"TSLA":{"metrics":{"Beta":2.1,"PE":60},"analysis":"volatile"},"AAPL":{"metrics":{},"analysis":"OK"}}`

	var result AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(input), &result))

	assert.Equal(t, []string{"TSLA", "AAPL"}, result.Symbols())
	tsla, ok := result.Get("TSLA")
	require.True(t, ok)
	assert.Equal(t, []string{"Beta", "PE"}, tsla.Metrics.Names())
	assert.Equal(t, "volatile", tsla.Analysis)
}

func TestAnalysisResult_UnmarshalRejectsNonObject(t *testing.T) {
	var result AnalysisResult
	assert.Error(t, json.Unmarshal([]byte(`["AAPL"]`), &result))
}

func TestAnalysisResult_ToVariables(t *testing.T) {
	result := NewAnalysisResult()
	var m MetricAnalysis
	m.Set("PE", 28.5)
	result.Set("AAPL", SymbolResult{Metrics: m, Analysis: "OK"})

	vars, err := result.ToVariables()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"AAPL": map[string]interface{}{
			"metrics":  map[string]interface{}{"PE": 28.5},
			"analysis": "OK",
		},
	}, vars)
}

func TestStatement_DropOldest(t *testing.T) {
	s := Statement{Periods: []StatementPeriod{
		{EndDate: "2024-09-28", Items: map[string]interface{}{"totalRevenue": 391035000000.0}},
		{EndDate: "2023-09-30", Items: map[string]interface{}{"totalRevenue": 383285000000.0}},
	}}

	trimmed := s.DropOldest()

	require.Len(t, trimmed.Periods, 1)
	assert.Equal(t, "2024-09-28", trimmed.Periods[0].EndDate)
	assert.Len(t, s.Periods, 2)
	assert.True(t, Statement{}.DropOldest().IsEmpty())
	assert.Contains(t, s.ByPeriod(), "2023-09-30")
}

func TestStatement_ByPeriodKeepsEveryPeriod(t *testing.T) {
	s := Statement{Periods: []StatementPeriod{
		{EndDate: "2024-09-28", Items: map[string]interface{}{"totalRevenue": 1.0}},
		{EndDate: "2024-09-28", Items: map[string]interface{}{"totalRevenue": 2.0}},
		{EndDate: "", Items: map[string]interface{}{"totalRevenue": 3.0}},
		{EndDate: "  ", Items: map[string]interface{}{"totalRevenue": 4.0}},
		{EndDate: "2023-09-30", Items: map[string]interface{}{"totalRevenue": 5.0}},
	}}

	byPeriod := s.ByPeriod()

	assert.Equal(t, map[string]map[string]interface{}{
		"2024-09-28":   {"totalRevenue": 1.0},
		"2024-09-28#2": {"totalRevenue": 2.0},
		"period 3":     {"totalRevenue": 3.0},
		"period 4":     {"totalRevenue": 4.0},
		"2023-09-30":   {"totalRevenue": 5.0},
	}, byPeriod)
}
