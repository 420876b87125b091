package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"StockHolo/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreCommitsFirstFrame(t *testing.T) {
	s := newStore(newRecMetrics())

	f := s.Frame()
	assert.EqualValues(t, 1, f.Seq)
	require.Len(t, f.Visuals, 8)
	assert.Equal(t, "AAPL", f.Visuals[0].Symbol)
	assert.Equal(t, 7, f.Visuals[7].Index)

	agg := s.Aggregate()
	assert.Equal(t, 8, agg.ActiveCount)
	assert.Equal(t, 102, agg.NewsVolume)
	assert.InDelta(t, 0.025, agg.OverallSentiment, 1e-9)
	assert.InDelta(t, 0.5125, agg.RiskLevel, 1e-9)
}

func TestWithInitialStocksClones(t *testing.T) {
	in := []*models.StockSnapshot{{Symbol: "AAA", Price: 10, ReferencePrice: 10, Active: true}}
	s := newStore(newRecMetrics(), WithInitialStocks(in))

	in[0].Price = 99
	got, ok := s.Get("aaa")
	require.True(t, ok)
	assert.Equal(t, 10.0, got.Price)
}

func TestReadsReturnCopies(t *testing.T) {
	s := newStore(newRecMetrics())

	stocks := s.Stocks()
	stocks[0].Price = -1
	stocks[0].Active = false

	got, _ := s.Get("AAPL")
	assert.Equal(t, 175.32, got.Price)
	assert.True(t, got.Active)
}

func TestMutationsNotifyWithIncreasingSeq(t *testing.T) {
	s := newStore(newRecMetrics())
	var seqs []uint64
	s.Subscribe(func(_ context.Context, f models.Frame) { seqs = append(seqs, f.Seq) })

	_, err := s.Toggle("TSLA")
	require.NoError(t, err)
	require.NoError(t, s.SetActive("TSLA", true))
	s.Drift(context.Background())
	s.SetAllActive(false)

	assert.Equal(t, []uint64{2, 3, 4, 5}, seqs)
	assert.Empty(t, s.Frame().Visuals)
}

func TestToggleAndSetActive(t *testing.T) {
	s := newStore(newRecMetrics())

	active, err := s.Toggle("tsla")
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, 7, s.Aggregate().ActiveCount)
	assert.NotContains(t, s.ActiveSymbols(), "TSLA")

	_, err = s.Toggle("NOPE")
	assert.ErrorIs(t, err, models.ErrSymbolNotFound)
	assert.ErrorIs(t, s.SetActive("NOPE", true), models.ErrSymbolNotFound)
}

func TestDeselectAllZeroesAggregate(t *testing.T) {
	s := newStore(newRecMetrics())
	s.SetAllActive(false)

	agg := s.Aggregate()
	assert.Zero(t, agg.ActiveCount)
	assert.Zero(t, agg.OverallSentiment)
	assert.Zero(t, agg.RiskLevel)
	assert.Zero(t, agg.NewsVolume)
	assert.Empty(t, s.ActiveStocks())

	s.SetAllActive(true)
	assert.Equal(t, 8, s.Aggregate().ActiveCount)
}

func TestApplyQuote(t *testing.T) {
	m := newRecMetrics()
	s := newStore(m)
	q, _ := goodQuote("AAPL")

	require.NoError(t, s.ApplyQuote("AAPL", q))
	got, _ := s.Get("AAPL")
	assert.Equal(t, 200.0, got.Price)
	assert.Equal(t, 1.5, got.ChangePercent)
	assert.Equal(t, int64(2_000_000), got.Volume)
	assert.InDelta(t, 0.2, got.Volatility, 1e-9)
	assert.Equal(t, models.SourceQuote, got.Source)
	assert.Equal(t, 200.0, m.lastPrice["AAPL"])
	assert.EqualValues(t, 2, s.Frame().Seq)

	err := s.ApplyQuote("ZZZ", q)
	assert.ErrorIs(t, err, models.ErrSymbolNotFound)
}

func TestApplyQuoteMalformedLeavesStore(t *testing.T) {
	s := newStore(newRecMetrics())
	before, _ := s.Get("MSFT")

	err := s.ApplyQuote("MSFT", models.Quote{Price: 0, Open: 1, High: 1, Low: 1})
	require.Error(t, err)
	assert.True(t, models.IsSourceFailure(err))

	after, _ := s.Get("MSFT")
	assert.Equal(t, before, after)
	assert.EqualValues(t, 1, s.Frame().Seq)
}

func TestApplyTick(t *testing.T) {
	s := newStore(newRecMetrics())

	err := s.ApplyTick(models.Tick{Symbol: "NVDA", Price: 460, Volume: 10, Timestamp: fixedNow})
	require.NoError(t, err)
	got, _ := s.Get("NVDA")
	assert.Equal(t, 460.0, got.Price)
	assert.Equal(t, models.SourceStream, got.Source)

	assert.ErrorIs(t, s.ApplyTick(models.Tick{Symbol: "NOPE", Price: 1, Timestamp: fixedNow}), models.ErrSymbolNotFound)
}

func TestApplySentiment(t *testing.T) {
	s := newStore(newRecMetrics())

	require.NoError(t, s.ApplySentiment("AMZN", models.SentimentUpdate{Score: -0.9, Sources: 40, NewsCount: 12, Confidence: 0.7}))
	got, _ := s.Get("AMZN")
	assert.Equal(t, -0.9, got.Sentiment.Score)
	assert.Equal(t, models.TrendVeryBearish, got.Sentiment.Trend)
	assert.Equal(t, 40, got.Sentiment.Sources)
	assert.Equal(t, 12, got.NewsCount)

	assert.ErrorIs(t, s.ApplySentiment("NOPE", models.SentimentUpdate{}), models.ErrSymbolNotFound)
}

func TestAddSymbolSimulated(t *testing.T) {
	s := newStore(newRecMetrics())

	st, err := s.AddSymbol(context.Background(), " ibm ")
	require.NoError(t, err)
	assert.Equal(t, "IBM", st.Symbol)
	assert.True(t, st.Active)
	assert.Equal(t, models.SourceSimulated, st.Source)
	assert.Equal(t, st.Price, st.ReferencePrice)
	assert.Len(t, s.Stocks(), 9)
	assert.Len(t, s.Frame().Visuals, 9)

	_, err = s.AddSymbol(context.Background(), "IBM")
	assert.ErrorIs(t, err, models.ErrInvalidSymbol)
	_, err = s.AddSymbol(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrInvalidSymbol)
	_, err = s.AddSymbol(context.Background(), "ABCDEFGHIJK")
	assert.ErrorIs(t, err, models.ErrInvalidSymbol)
	assert.Len(t, s.Stocks(), 9)
}

func TestAddSymbolFromSource(t *testing.T) {
	src := &fakeSource{quote: goodQuote}
	s := newStore(newRecMetrics(), WithDataSource(src))

	st, err := s.AddSymbol(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, models.SourceQuote, st.Source)
	assert.Equal(t, 200.0, st.Price)
	assert.Equal(t, 200.0, st.ReferencePrice)
	assert.Equal(t, 1, src.callCount())
}

func TestAddSymbolFallsBackWhenSourceFails(t *testing.T) {
	m := newRecMetrics()
	src := &fakeSource{quote: func(string) (models.Quote, error) {
		return models.Quote{}, models.ErrDataSourceUnavailable
	}}
	s := newStore(m, WithDataSource(src))

	st, err := s.AddSymbol(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSimulated, st.Source)
	assert.Equal(t, 1, m.errorCount("add_symbol_quote"))

	src.quote = func(string) (models.Quote, error) { return models.Quote{Price: -3}, nil }
	st, err = s.AddSymbol(context.Background(), "ORCL")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSimulated, st.Source)
}

func TestRemoveSymbol(t *testing.T) {
	m := newRecMetrics()
	s := newStore(m)

	assert.True(t, s.RemoveSymbol("meta"))
	_, ok := s.Get("META")
	assert.False(t, ok)
	assert.Equal(t, []string{"META"}, m.forgotten)
	assert.Len(t, s.Frame().Visuals, 7)

	seq := s.Frame().Seq
	assert.False(t, s.RemoveSymbol("META"))
	assert.Equal(t, seq, s.Frame().Seq)
}

func TestArrangeFollowsGivenOrder(t *testing.T) {
	s := newStore(newRecMetrics())
	seq := s.Frame().Seq

	s.Arrange([]string{"nflx", "TSLA", "nflx", "AAPL"})

	var got []string
	for _, st := range s.Stocks() {
		got = append(got, st.Symbol)
	}
	assert.Equal(t, []string{"NFLX", "TSLA", "AAPL", "GOOGL", "MSFT", "AMZN", "META", "NVDA"}, got)
	f := s.Frame()
	assert.Equal(t, seq+1, f.Seq)
	assert.Equal(t, "NFLX", f.Visuals[0].Symbol)
	assert.Equal(t, 0, f.Visuals[0].Index)
}

func TestElapsedNeverGoesBack(t *testing.T) {
	now := fixedNow
	s := newStore(newRecMetrics(), WithClock(func() time.Time { return now }))

	now = now.Add(10 * time.Second)
	f1 := s.Drift(context.Background())
	assert.InDelta(t, 10, f1.Elapsed, 1e-9)

	now = now.Add(-5 * time.Second)
	f2 := s.Drift(context.Background())
	assert.InDelta(t, 10, f2.Elapsed, 1e-9)
}

func TestDriftIsReproducibleWithSeed(t *testing.T) {
	a := newStore(newRecMetrics())
	b := newStore(newRecMetrics())
	for i := 0; i < 5; i++ {
		a.Drift(context.Background())
		b.Drift(context.Background())
	}
	assert.Equal(t, a.Stocks(), b.Stocks())
}

func TestConcurrentMutations(t *testing.T) {
	s := newStore(newRecMetrics())
	var (
		mu   sync.Mutex
		seen = map[uint64]bool{}
	)
	s.Subscribe(func(_ context.Context, f models.Frame) {
		mu.Lock()
		seen[f.Seq] = true
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Drift(context.Background())
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Toggle("AAPL")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 41, s.Frame().Seq)
	assert.Len(t, seen, 40)
	got, _ := s.Get("AAPL")
	assert.True(t, got.Active)
}
