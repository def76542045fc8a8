package marketdata

import (
	"context"
	"errors"
	"testing"

	"financial-analyst/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	boom := errors.New("boom")
	p := NewStaticProvider().
		WithData("AAPL", &models.RawFinancialData{Info: map[string]interface{}{"PE": 28.5}}).
		WithError("MSFT", boom)

	data, err := p.Fetch(context.Background(), "AAPL", "1y")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", data.Symbol)
	assert.Equal(t, 28.5, data.Info["PE"])

	_, err = p.Fetch(context.Background(), "MSFT", "1y")
	assert.ErrorIs(t, err, boom)

	_, err = p.Fetch(context.Background(), "TSLA", "1y")
	assert.ErrorIs(t, err, ErrSymbolNotFound)

	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, p.Fetched())
	assert.Equal(t, "static", p.Name())
}
