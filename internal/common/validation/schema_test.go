package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"ticker_symbols": {
				Type:     "array",
				MinItems: IntPtr(1),
				Items:    &Property{Type: "string", MinLength: IntPtr(1)},
			},
			"time_period": {Type: "string", MinLength: IntPtr(1)},
		},
		Required: []string{"ticker_symbols", "time_period"},
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name        string
		input       map[string]interface{}
		valid       bool
		errorFields []string
	}{
		{
			name:  "valid",
			input: map[string]interface{}{"ticker_symbols": []interface{}{"AAPL"}, "time_period": "1y"},
			valid: true,
		},
		{
			name:        "missing time period",
			input:       map[string]interface{}{"ticker_symbols": []interface{}{"AAPL"}},
			valid:       false,
			errorFields: []string{"(root)"},
		},
		{
			name:        "empty symbol list",
			input:       map[string]interface{}{"ticker_symbols": []interface{}{}, "time_period": "1y"},
			valid:       false,
			errorFields: []string{"ticker_symbols"},
		},
		{
			name:        "symbol of wrong type",
			input:       map[string]interface{}{"ticker_symbols": []interface{}{42}, "time_period": "1y"},
			valid:       false,
			errorFields: []string{"ticker_symbols.0"},
		},
		{
			name:        "symbols not a list",
			input:       map[string]interface{}{"ticker_symbols": "AAPL", "time_period": "1y"},
			valid:       false,
			errorFields: []string{"ticker_symbols"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateInput(tt.input, testSchema())
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid)

			fields := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				fields = append(fields, e.Field)
			}
			for _, f := range tt.errorFields {
				assert.Contains(t, fields, f)
			}
			if !tt.valid {
				assert.NotEmpty(t, result.Error())
			}
		})
	}
}

func TestJSONSchema_ToMap(t *testing.T) {
	m := testSchema().ToMap()

	assert.Equal(t, "object", m["type"])
	assert.ElementsMatch(t, []interface{}{"ticker_symbols", "time_period"}, m["required"])
	props, ok := m["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "ticker_symbols")
}
