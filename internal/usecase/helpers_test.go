package usecase

import (
	"context"
	"sync"
	"time"

	"StockHolo/internal/domain/models"
	"StockHolo/internal/services/encoder"
	"StockHolo/internal/services/market"
	"StockHolo/pkg/logger"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type recMetrics struct {
	mu         sync.Mutex
	errors     map[string]int
	lastPrice  map[string]float64
	forgotten  []string
	aggregates int
}

func newRecMetrics() *recMetrics {
	return &recMetrics{errors: map[string]int{}, lastPrice: map[string]float64{}}
}

func (m *recMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *recMetrics) RecordLatency(string, float64) {}

func (m *recMetrics) RecordLastPrice(symbol string, price float64) {
	m.mu.Lock()
	m.lastPrice[symbol] = price
	m.mu.Unlock()
}

func (m *recMetrics) RecordAggregate(models.MarketAggregate) {
	m.mu.Lock()
	m.aggregates++
	m.mu.Unlock()
}

func (m *recMetrics) RecordFrame(string, int) {}

func (m *recMetrics) ForgetSymbol(symbol string) {
	m.mu.Lock()
	m.forgotten = append(m.forgotten, symbol)
	m.mu.Unlock()
}

func (m *recMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type fakeSource struct {
	mu    sync.Mutex
	quote func(symbol string) (models.Quote, error)
	calls int
}

func (f *fakeSource) FetchQuote(_ context.Context, symbol string) (models.Quote, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.quote(symbol)
}

func (f *fakeSource) SearchSymbol(context.Context, string) ([]models.SymbolMatch, error) {
	return nil, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func goodQuote(symbol string) (models.Quote, error) {
	return models.Quote{
		Symbol:        symbol,
		Price:         200,
		ChangePercent: 1.5,
		High:          204,
		Low:           196,
		Open:          200,
		PrevClose:     197,
		Volume:        2_000_000,
	}, nil
}

func newStore(m *recMetrics, opts ...StoreOption) *MarketStore {
	agg := market.NewAggregator(market.Config{}, encoder.Default())
	opts = append([]StoreOption{WithSeed(7), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewMarketStore(agg, m, logger.Nop(), opts...)
}
