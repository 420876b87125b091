package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockHolo/internal/domain/models"
	"StockHolo/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNews struct {
	mu      sync.Mutex
	agg     models.AggregateSentiment
	err     error
	block   chan struct{}
	entered chan struct{}
	calls   int
}

func (f *fakeNews) Summary(ctx context.Context, symbol string, days int) (*models.NewsSummary, error) {
	f.mu.Lock()
	f.calls++
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.NewsSummary{Symbol: symbol, DaysAnalyzed: days, Aggregate: f.agg}, nil
}

func (f *fakeNews) Articles(context.Context, string, int, int) ([]models.Article, error) {
	return nil, nil
}

func (f *fakeNews) Trends(context.Context, string, int) (*models.SentimentTrend, error) {
	return nil, nil
}

func newUpdater(s *MarketStore, news *fakeNews, cfg NewsUpdaterConfig) *NewsUpdater {
	u := NewNewsUpdater(s, news, newRecMetrics(), logger.Nop(), cfg)
	u.now = func() time.Time { return fixedNow }
	return u
}

func TestUpdateSymbolBlendsNews(t *testing.T) {
	s := newStore(newRecMetrics())
	news := &fakeNews{agg: models.AggregateSentiment{AverageSentiment: 0.5, TotalArticles: 10, Confidence: 0.9}}
	u := newUpdater(s, news, NewsUpdaterConfig{})

	require.NoError(t, u.UpdateSymbol(context.Background(), "aapl"))

	got, _ := s.Get("AAPL")
	assert.InDelta(t, 0.8*0.5+0.2*0.7, got.Sentiment.Score, 1e-9)
	assert.Equal(t, 10, got.Sentiment.Sources)
	assert.Equal(t, 10, got.NewsCount)
	assert.InDelta(t, 0.9, got.Sentiment.Confidence, 1e-9)
	assert.Equal(t, models.TrendVeryBullish, got.Sentiment.Trend)

	h := u.History("AAPL")
	require.Len(t, h, 1)
	assert.Equal(t, fixedNow, h[0].Timestamp)
	assert.Equal(t, 10, h[0].NewsCount)

	latest, ok := u.Latest("AAPL")
	require.True(t, ok)
	assert.Equal(t, "AAPL", latest.Symbol)
}

func TestUpdateSymbolWithoutArticles(t *testing.T) {
	s := newStore(newRecMetrics())
	u := newUpdater(s, &fakeNews{}, NewsUpdaterConfig{})

	require.NoError(t, u.UpdateSymbol(context.Background(), "TSLA"))

	got, _ := s.Get("TSLA")
	assert.GreaterOrEqual(t, got.Sentiment.Score, -1.0)
	assert.LessOrEqual(t, got.Sentiment.Score, 1.0)
	assert.Equal(t, 25, got.Sentiment.Sources)
	assert.Equal(t, 23, got.NewsCount)
	assert.InDelta(t, 0.5, got.Sentiment.Confidence, 1e-9)
}

func TestUpdateSymbolErrors(t *testing.T) {
	s := newStore(newRecMetrics())
	boom := errors.New("boom")
	u := newUpdater(s, &fakeNews{err: boom}, NewsUpdaterConfig{})
	assert.ErrorIs(t, u.UpdateSymbol(context.Background(), "AAPL"), boom)

	u = newUpdater(s, &fakeNews{}, NewsUpdaterConfig{})
	assert.ErrorIs(t, u.UpdateSymbol(context.Background(), "NOPE"), models.ErrSymbolNotFound)
	assert.Empty(t, u.History("NOPE"))
}

func TestHistoryIsBounded(t *testing.T) {
	s := newStore(newRecMetrics())
	news := &fakeNews{agg: models.AggregateSentiment{AverageSentiment: 0.1, TotalArticles: 3}}
	u := newUpdater(s, news, NewsUpdaterConfig{HistorySize: 3})

	for i := 0; i < 5; i++ {
		require.NoError(t, u.UpdateSymbol(context.Background(), "MSFT"))
	}
	assert.Len(t, u.History("MSFT"), 3)
}

func TestUpdateNowSkipsInactive(t *testing.T) {
	s := newStore(newRecMetrics())
	_, err := s.Toggle("NFLX")
	require.NoError(t, err)
	news := &fakeNews{agg: models.AggregateSentiment{AverageSentiment: 1, TotalArticles: 5}}
	u := newUpdater(s, news, NewsUpdaterConfig{})

	assert.True(t, u.UpdateNow(context.Background()))
	assert.Equal(t, 7, news.calls)
	assert.Empty(t, u.History("NFLX"))
	assert.Len(t, u.History("NVDA"), 1)
}

func TestUpdateNowIsSingleFlight(t *testing.T) {
	s := newStore(newRecMetrics())
	s.SetAllActive(false)
	require.NoError(t, s.SetActive("AAPL", true))
	news := &fakeNews{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	u := newUpdater(s, news, NewsUpdaterConfig{})

	done := make(chan bool)
	go func() { done <- u.UpdateNow(context.Background()) }()
	<-news.entered

	assert.False(t, u.UpdateNow(context.Background()))
	close(news.block)
	assert.True(t, <-done)
}

func TestMarketNews(t *testing.T) {
	s := newStore(newRecMetrics())
	u := newUpdater(s, &fakeNews{}, NewsUpdaterConfig{})

	mn, ok := u.MarketNews()
	require.True(t, ok)
	assert.Equal(t, 8, mn.StocksTracked)
	assert.Equal(t, 102, mn.TotalNews)
	assert.InDelta(t, 0.025, mn.OverallSentiment, 1e-9)
	assert.Equal(t, fixedNow, mn.LastUpdate)

	s.SetAllActive(false)
	_, ok = u.MarketNews()
	assert.False(t, ok)
}

func TestNewsUpdaterStartRunsImmediately(t *testing.T) {
	s := newStore(newRecMetrics())
	news := &fakeNews{agg: models.AggregateSentiment{AverageSentiment: 0.2, TotalArticles: 2}}
	u := newUpdater(s, news, NewsUpdaterConfig{Interval: time.Hour})

	u.Start(context.Background())
	require.Eventually(t, func() bool { return len(u.History("AAPL")) == 1 }, time.Second, 5*time.Millisecond)
	u.Stop()
	u.Stop()
}
