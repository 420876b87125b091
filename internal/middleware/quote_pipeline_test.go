package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockHolo/internal/domain/models"
	"StockHolo/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	quotes []models.Quote
	ticks  []models.Tick
	err    error
}

func (f *fakeSink) ApplyQuote(symbol string, q models.Quote) error {
	if f.err != nil {
		return f.err
	}
	f.quotes = append(f.quotes, q)
	return nil
}

func (f *fakeSink) ApplyTick(t models.Tick) error {
	if f.err != nil {
		return f.err
	}
	f.ticks = append(f.ticks, t)
	return nil
}

func goodQuote(sym string) models.Quote {
	return models.Quote{Symbol: sym, Price: 110, ChangePercent: 10, High: 110, Low: 90, Open: 100}
}

func TestProcessQuoteForwardsNormalizedSymbol(t *testing.T) {
	sink := &fakeSink{}
	p := NewQuotePipeline(sink, metrics.Noop{}, WithMaxRPS(0))

	require.NoError(t, p.ProcessQuote(context.Background(), goodQuote(" aapl")))
	require.Len(t, sink.quotes, 1)
	assert.Equal(t, "AAPL", sink.quotes[0].Symbol)
}

func TestProcessQuoteRejectsMalformed(t *testing.T) {
	sink := &fakeSink{}
	p := NewQuotePipeline(sink, metrics.Noop{})

	q := goodQuote("AAPL")
	q.Price = 0
	err := p.ProcessQuote(context.Background(), q)
	require.ErrorIs(t, err, models.ErrMalformedQuote)
	assert.Empty(t, sink.quotes)
}

func TestProcessQuoteThrottlesPerSymbol(t *testing.T) {
	sink := &fakeSink{}
	p := NewQuotePipeline(sink, metrics.Noop{}, WithMaxRPS(0.01))

	require.NoError(t, p.ProcessQuote(context.Background(), goodQuote("AAPL")))
	assert.ErrorIs(t, p.ProcessQuote(context.Background(), goodQuote("AAPL")), ErrThrottled)
	require.NoError(t, p.ProcessQuote(context.Background(), goodQuote("MSFT")))
	assert.Len(t, sink.quotes, 2)
}

func TestProcessQuoteTransform(t *testing.T) {
	sink := &fakeSink{}
	p := NewQuotePipeline(sink, metrics.Noop{}, WithTransform(func(q models.Quote) models.Quote {
		q.Symbol = "BRK.B"
		return q
	}))
	require.NoError(t, p.ProcessQuote(context.Background(), goodQuote("x")))
	assert.Equal(t, "BRK.B", sink.quotes[0].Symbol)
}

func TestProcessQuoteWrapsSinkError(t *testing.T) {
	sink := &fakeSink{err: models.ErrSymbolNotFound}
	p := NewQuotePipeline(sink, metrics.Noop{})
	err := p.ProcessQuote(context.Background(), goodQuote("GONE"))
	assert.True(t, errors.Is(err, models.ErrSymbolNotFound))
}

func TestProcessTick(t *testing.T) {
	sink := &fakeSink{}
	p := NewQuotePipeline(sink, metrics.Noop{}, WithMaxRPS(0))

	now := time.Now()
	require.NoError(t, p.ProcessTick(context.Background(), models.Tick{Symbol: "tsla", Price: 250, Volume: 3, Timestamp: now}))
	assert.Equal(t, "TSLA", sink.ticks[0].Symbol)

	assert.ErrorIs(t, p.ProcessTick(context.Background(), models.Tick{Symbol: "TSLA", Price: 250}), models.ErrMalformedQuote)
	assert.ErrorIs(t, p.ProcessTick(context.Background(), models.Tick{Symbol: "TSLA", Price: -1, Timestamp: now}), models.ErrMalformedQuote)
	assert.Len(t, sink.ticks, 1)
}
