package marketdata

import (
	"context"
	"fmt"
	"sync"

	"financial-analyst/internal/models"
)

// StaticProvider serves canned data per symbol. It is used for dry runs and tests.
type StaticProvider struct {
	mu      sync.Mutex
	data    map[string]*models.RawFinancialData
	errs    map[string]error
	fetched []string
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		data: map[string]*models.RawFinancialData{},
		errs: map[string]error{},
	}
}

func (p *StaticProvider) Name() string { return "static" }

// WithData registers the data returned for symbol.
func (p *StaticProvider) WithData(symbol string, data *models.RawFinancialData) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[symbol] = data
	return p
}

// WithError makes fetches for symbol fail with err.
func (p *StaticProvider) WithError(symbol string, err error) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[symbol] = err
	return p
}

func (p *StaticProvider) Fetch(ctx context.Context, symbol, period string) (*models.RawFinancialData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fetched = append(p.fetched, symbol)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := p.errs[symbol]; ok {
		return nil, err
	}
	data, ok := p.data[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	out := *data
	out.Symbol = symbol
	if out.Info == nil {
		out.Info = map[string]interface{}{}
	}
	return &out, nil
}

// Fetched lists the symbols requested so far, in call order.
func (p *StaticProvider) Fetched() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.fetched))
	copy(out, p.fetched)
	return out
}
