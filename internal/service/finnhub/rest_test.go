package finnhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"StockHolo/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithBaseURL(srv.URL), WithRateLimit(1000, 1000)}, opts...)
	return NewClient("test-key", opts...)
}

func TestFetchQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.Header.Get("X-Finnhub-Token"))
		_, _ = w.Write([]byte(`{"c":110,"d":10,"dp":10,"h":110,"l":90,"o":100,"pc":100,"t":1700000000}`))
	})

	q, err := c.FetchQuote(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 110.0, q.Price)
	assert.Equal(t, 10.0, q.ChangePercent)
	assert.Equal(t, 100.0, q.Open)
	assert.Equal(t, int64(1700000000), q.Timestamp.Unix())
}

func TestFetchQuoteUnknownSymbol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
	})

	_, err := c.FetchQuote(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMalformedQuote))
}

func TestFetchQuoteServerErrorIsSourceFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchQuote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, models.IsSourceFailure(err))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, WithBreaker(2, time.Minute))

	for i := 0; i < 4; i++ {
		_, err := c.FetchQuote(context.Background(), "AAPL")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrDataSourceUnavailable))
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, "open", c.BreakerState())
}

func TestMalformedQuoteDoesNotTripBreaker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c":0,"t":0}`))
	}, WithBreaker(1, time.Minute))

	for i := 0; i < 3; i++ {
		_, err := c.FetchQuote(context.Background(), "NOPE")
		require.ErrorIs(t, err, models.ErrMalformedQuote)
	}
	assert.Equal(t, "closed", c.BreakerState())
}

func TestSearchSymbol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"count":2,"result":[
			{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"},
			{"description":"APPLE HOSPITALITY","displaySymbol":"APLE","symbol":"APLE","type":"REIT"}]}`))
	})

	out, err := c.SearchSymbol(context.Background(), " apple ")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, models.SymbolMatch{Symbol: "AAPL", DisplaySymbol: "AAPL", Description: "APPLE INC", Type: "Common Stock"}, out[0])
}

func TestCompanyNews(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-news", r.URL.Path)
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-03-08", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`[{"datetime":1709500000,"headline":"Apple beats estimates","source":"Reuters","summary":"Strong growth","url":"https://x"}]`))
	})

	out, err := c.CompanyNews(context.Background(), "aapl", from, to)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Apple beats estimates", out[0].Title)
	assert.Equal(t, "Strong growth", out[0].Description)
	assert.Equal(t, "Reuters", out[0].Source)
	assert.Equal(t, int64(1709500000), out[0].PublishedAt.Unix())
}

func TestRateLimitHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"c":1,"t":1}`))
	}, WithRateLimit(0.001, 1))
	_, err := c.FetchQuote(context.Background(), "A")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.FetchQuote(ctx, "A")
	require.Error(t, err)
	assert.True(t, models.IsSourceFailure(err))
}
