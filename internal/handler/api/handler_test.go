package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StockHolo/internal/domain/models"
	domrepo "StockHolo/internal/domain/repository"
	"StockHolo/internal/services/encoder"
	"StockHolo/internal/services/market"
	"StockHolo/internal/services/sentiment"
	"StockHolo/internal/usecase"
	"StockHolo/pkg/logger"
	"StockHolo/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	quote   models.Quote
	err     error
	matches []models.SymbolMatch
	breaker string
}

func (f *fakeSource) BreakerState() string { return f.breaker }

func (f *fakeSource) FetchQuote(_ context.Context, _ string) (models.Quote, error) {
	return f.quote, f.err
}

func (f *fakeSource) SearchSymbol(_ context.Context, _ string) ([]models.SymbolMatch, error) {
	return f.matches, f.err
}

type watcher struct {
	added, removed []string
}

func (w *watcher) Track(_ context.Context, added, removed []string) {
	w.added = append(w.added, added...)
	w.removed = append(w.removed, removed...)
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type fixture struct {
	e       *echo.Echo
	store   *usecase.MarketStore
	watcher *watcher
}

func newFixture(t *testing.T, src *fakeSource) *fixture {
	t.Helper()
	enc := encoder.Default()
	agg := market.NewAggregator(market.Config{}, enc)
	clock := func() time.Time { return fixedNow }
	opts := []usecase.StoreOption{usecase.WithSeed(1), usecase.WithClock(clock)}
	var search domrepo.MarketDataSource
	if src != nil {
		search = src
		opts = append(opts, usecase.WithDataSource(src))
	}
	store := usecase.NewMarketStore(agg, metrics.Noop{}, logger.Nop(), opts...)
	svc := sentiment.NewService(nil, logger.Nop(), metrics.Noop{}, sentiment.WithClock(clock))
	refresher := usecase.NewRefresher(store, nil, nil, metrics.Noop{}, logger.Nop(), usecase.RefresherConfig{})
	news := usecase.NewNewsUpdater(store, svc, metrics.Noop{}, logger.Nop(), usecase.NewsUpdaterConfig{})
	w := &watcher{}

	e := echo.New()
	NewMarketEchoHandler(logger.Nop(), store, refresher, news, enc, search, w).RegisterRoutes(e)
	NewSentimentEchoHandler(logger.Nop(), svc).RegisterRoutes(e)
	return &fixture{e: e, store: store, watcher: w}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestListStocks(t *testing.T) {
	f := newFixture(t, nil)
	rec, env := f.do(t, http.MethodGet, "/api/stocks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Rows  []stockView `json:"rows"`
		Total int64       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 8, list.Total)
	assert.Equal(t, "AAPL", list.Rows[0].Symbol)
	assert.Equal(t, "45.2M", list.Rows[0].VolumeLabel)
}

func TestGetStock(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodGet, "/api/stocks/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s stockView
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, 175.32, s.Price)

	rec, _ = f.do(t, http.MethodGet, "/api/stocks/ZZZZ", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddAndRemoveStock(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodPost, "/api/stocks", `{"symbol":" ibm "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var s stockView
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, "IBM", s.Symbol)
	assert.True(t, s.Active)
	assert.Equal(t, []string{"IBM"}, f.watcher.added)

	rec, _ = f.do(t, http.MethodPost, "/api/stocks", `{"symbol":"IBM"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/stocks", `{"symbol":"WAYTOOLONGSYM"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/stocks", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, "/api/stocks/IBM", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"IBM"}, f.watcher.removed)
	_, ok := f.store.Get("IBM")
	assert.False(t, ok)

	rec, _ = f.do(t, http.MethodDelete, "/api/stocks/IBM", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, f.watcher.removed, 1)
}

func TestAddStockFromLiveQuote(t *testing.T) {
	src := &fakeSource{quote: models.Quote{Symbol: "IBM", Price: 180, Open: 178, High: 182, Low: 177, PrevClose: 178, ChangePercent: 1.1, Volume: 5_000_000}}
	f := newFixture(t, src)

	rec, env := f.do(t, http.MethodPost, "/api/stocks", `{"symbol":"IBM"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var s stockView
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, 180.0, s.Price)
	assert.Equal(t, models.SourceQuote, s.Source)
}

func TestToggleAndSetActive(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodPost, "/api/stocks/TSLA/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Symbol string `json:"symbol"`
		Active bool   `json:"active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "TSLA", out.Symbol)
	assert.False(t, out.Active)
	assert.Equal(t, 7, f.store.Aggregate().ActiveCount)

	rec, _ = f.do(t, http.MethodPut, "/api/stocks/TSLA/active", `{"active":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, f.store.Aggregate().ActiveCount)

	rec, _ = f.do(t, http.MethodPut, "/api/stocks/TSLA/active", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/stocks/NOPE/toggle", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectAllAndDeselectAll(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodPost, "/api/stocks/deselect-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view models.MarketView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Zero(t, view.ActiveCount)
	assert.Zero(t, view.OverallSentiment)
	assert.Equal(t, "NEUTRAL", view.Mood)
	assert.Empty(t, f.store.Frame().Visuals)

	rec, _ = f.do(t, http.MethodGet, "/api/news/market", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/api/stocks/select-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 8, view.ActiveCount)
}

func TestMarketAndFrame(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodGet, "/api/market", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view models.MarketView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 8, view.ActiveCount)
	assert.Equal(t, 102, view.NewsVolume)

	rec, env = f.do(t, http.MethodGet, "/api/frame", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
	var frame models.Frame
	require.NoError(t, json.Unmarshal(env.Data, &frame))
	require.Len(t, frame.Visuals, 8)
	assert.Equal(t, "AAPL $175.32 +2.40%", frame.Visuals[0].Label)
}

func TestRefreshDriftsWithoutSource(t *testing.T) {
	f := newFixture(t, nil)
	before := f.store.Frame().Seq

	rec, env := f.do(t, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var frame models.Frame
	require.NoError(t, json.Unmarshal(env.Data, &frame))
	assert.Greater(t, frame.Seq, before)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, nil)
	rec, _ := f.do(t, http.MethodGet, "/api/search?q=app", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	src := &fakeSource{matches: []models.SymbolMatch{{Symbol: "AAPL", Description: "APPLE INC"}}}
	f = newFixture(t, src)
	rec, env := f.do(t, http.MethodGet, "/api/search?q=app", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "APPLE INC")

	rec, _ = f.do(t, http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	src.err = models.ErrDataSourceUnavailable
	rec, _ = f.do(t, http.MethodGet, "/api/search?q=app", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchIsRateLimited(t *testing.T) {
	f := newFixture(t, &fakeSource{})
	codes := map[int]int{}
	for i := 0; i < 10; i++ {
		rec, _ := f.do(t, http.MethodGet, "/api/search?q=a", "")
		codes[rec.Code]++
	}
	assert.Positive(t, codes[http.StatusTooManyRequests])
}

func TestEncodePreview(t *testing.T) {
	f := newFixture(t, nil)
	rec, env := f.do(t, http.MethodGet, "/api/encode?score=0.7&volatility=0.3&price=150", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var v models.Visual
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, "#4dff4d", v.Hex)
	assert.InDelta(t, 1.5, v.SizeScale, 1e-9)
	assert.Equal(t, models.TrendVeryBullish, v.Trend)
	assert.Equal(t, 150, v.Particles)
}

func TestNewsUpdateAndHistory(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.do(t, http.MethodPost, "/api/news/update", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := f.do(t, http.MethodGet, "/api/news/history/AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows []models.SentimentPoint `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Rows, 1)

	rec, env = f.do(t, http.MethodGet, "/api/news/market", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mn models.MarketNews
	require.NoError(t, json.Unmarshal(env.Data, &mn))
	assert.Equal(t, 8, mn.StocksTracked)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec, env := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"status":"healthy"`)
	assert.Contains(t, string(env.Data), `"liveQuotes":false`)
	assert.NotContains(t, string(env.Data), "sourceBreaker")
}

func TestHealthReportsSourceBreaker(t *testing.T) {
	f := newFixture(t, &fakeSource{breaker: "open"})
	rec, env := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"liveQuotes":true`)
	assert.Contains(t, string(env.Data), `"sourceBreaker":"open"`)
}

func TestSentimentSummary(t *testing.T) {
	f := newFixture(t, nil)
	rec, env := f.do(t, http.MethodGet, "/api/sentiment/aapl?days=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var s models.NewsSummary
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, 3, s.DaysAnalyzed)
	assert.True(t, s.Simulated)

	rec, _ = f.do(t, http.MethodGet, "/api/sentiment/aapl?days=99", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSentimentArticles(t *testing.T) {
	f := newFixture(t, nil)
	rec, env := f.do(t, http.MethodGet, "/api/sentiment/MSFT/articles?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out articlesResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "MSFT", out.Symbol)
	assert.Equal(t, 7, out.DaysAnalyzed)
	assert.LessOrEqual(t, out.ReturnedArticles, 2)
	assert.Len(t, out.Articles, out.ReturnedArticles)
	assert.GreaterOrEqual(t, out.TotalArticles, out.ReturnedArticles)
}

func TestSentimentBatch(t *testing.T) {
	f := newFixture(t, nil)
	rec, env := f.do(t, http.MethodPost, "/api/sentiment/batch", `{"symbols":["aapl","TSLA"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Results      map[string]json.RawMessage `json:"batch_results"`
		TotalSymbols int                        `json:"total_symbols"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 2, out.TotalSymbols)
	assert.Contains(t, out.Results, "AAPL")
	assert.Contains(t, out.Results, "TSLA")

	rec, _ = f.do(t, http.MethodPost, "/api/sentiment/batch",
		`{"symbols":["A","B","C","D","E","F","G","H","I","J","K"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/sentiment/batch", `{"symbols":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSentimentTrends(t *testing.T) {
	f := newFixture(t, nil)
	rec, env := f.do(t, http.MethodGet, "/api/sentiment/trends/NVDA?days=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out trendsResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "NVDA", out.Symbol)
	assert.Contains(t, []string{"improving", "declining", "stable"}, out.TrendAnalysis.Direction)
}

func TestAnalyzeTrend(t *testing.T) {
	a := analyze(&models.SentimentTrend{Days: 3, Series: []models.DailySentiment{
		{Sentiment: -0.2}, {Sentiment: 0}, {Sentiment: 0.4},
	}})
	assert.Equal(t, "improving", a.Direction)
	assert.InDelta(t, 0.6, a.Change, 1e-9)
	assert.InDelta(t, 0.2/3, a.Average, 1e-9)

	assert.Equal(t, "stable", analyze(&models.SentimentTrend{}).Direction)
}
