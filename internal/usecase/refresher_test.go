package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"StockHolo/internal/domain/models"
	mid "StockHolo/internal/middleware"
	"StockHolo/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRefresher(s *MarketStore, src *fakeSource, m *recMetrics, cfg RefresherConfig) *Refresher {
	pipe := mid.NewQuotePipeline(s, m, mid.WithMaxRPS(0))
	if src == nil {
		return NewRefresher(s, nil, pipe, m, logger.Nop(), cfg)
	}
	return NewRefresher(s, src, pipe, m, logger.Nop(), cfg)
}

func TestRefreshNowAppliesQuotes(t *testing.T) {
	m := newRecMetrics()
	s := newStore(m)
	_, err := s.Toggle("TSLA")
	require.NoError(t, err)
	src := &fakeSource{quote: goodQuote}
	r := newRefresher(s, src, m, RefresherConfig{})

	f := r.RefreshNow(context.Background())
	assert.Equal(t, 7, src.callCount())
	for _, v := range f.Visuals {
		st, _ := s.Get(v.Symbol)
		assert.Equal(t, 200.0, st.Price, v.Symbol)
		assert.Equal(t, models.SourceQuote, st.Source)
	}
	tsla, _ := s.Get("TSLA")
	assert.Equal(t, 248.15, tsla.Price)
}

func TestRefreshNowKeepsPreviousOnFailure(t *testing.T) {
	m := newRecMetrics()
	s := newStore(m)
	src := &fakeSource{quote: func(sym string) (models.Quote, error) {
		if sym == "AAPL" {
			return models.Quote{}, models.ErrDataSourceUnavailable
		}
		if sym == "MSFT" {
			return models.Quote{Price: 10, Open: 0, High: 1, Low: 2}, nil
		}
		return goodQuote(sym)
	}}
	r := newRefresher(s, src, m, RefresherConfig{})

	r.RefreshNow(context.Background())

	aapl, _ := s.Get("AAPL")
	assert.Equal(t, 175.32, aapl.Price)
	msft, _ := s.Get("MSFT")
	assert.Equal(t, 342.89, msft.Price)
	nvda, _ := s.Get("NVDA")
	assert.Equal(t, 200.0, nvda.Price)
	assert.Equal(t, 1, m.errorCount("quote_fetch"))
}

func TestRefreshNowDriftsWithoutSource(t *testing.T) {
	s := newStore(newRecMetrics())
	r := newRefresher(s, nil, newRecMetrics(), RefresherConfig{})

	f := r.RefreshNow(context.Background())
	assert.EqualValues(t, 2, f.Seq)
}

func TestRefresherStartStop(t *testing.T) {
	s := newStore(newRecMetrics())
	var frames atomic.Int32
	s.Subscribe(func(context.Context, models.Frame) { frames.Add(1) })
	r := newRefresher(s, nil, newRecMetrics(), RefresherConfig{DriftInterval: 5 * time.Millisecond})

	r.Start(context.Background())
	r.Start(context.Background())
	assert.True(t, r.Running())
	require.Eventually(t, func() bool { return frames.Load() >= 3 }, time.Second, 5*time.Millisecond)

	r.Stop()
	assert.False(t, r.Running())
	after := frames.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, frames.Load())

	r.Stop()
}

func TestRefresherPollsImmediately(t *testing.T) {
	m := newRecMetrics()
	s := newStore(m)
	src := &fakeSource{quote: goodQuote}
	r := newRefresher(s, src, m, RefresherConfig{DriftInterval: time.Hour, QuoteInterval: time.Hour})

	r.Start(context.Background())
	require.Eventually(t, func() bool { return src.callCount() == 8 }, time.Second, 5*time.Millisecond)
	r.Stop()

	nflx, _ := s.Get("NFLX")
	assert.Equal(t, 200.0, nflx.Price)
}
