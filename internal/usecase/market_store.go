package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"StockHolo/internal/domain/models"
	drepo "StockHolo/internal/domain/repository"
	"StockHolo/internal/services/encoder"
	"StockHolo/internal/services/market"
	applogger "StockHolo/pkg/logger"
)

// Listener receives every frame after a mutation. Frames may arrive out of
// order across goroutines; Seq orders them.
type Listener func(ctx context.Context, f models.Frame)

// MarketStore owns the snapshot list and the market aggregate. Every mutation
// is serialized, recomputes the aggregate, re-encodes the active stocks and
// notifies listeners outside the lock.
type MarketStore struct {
	agg     *market.Aggregator
	enc     *encoder.Encoder
	source  drepo.MarketDataSource
	metrics drepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time

	mu        sync.Mutex
	rng       *rand.Rand
	stocks    []*models.StockSnapshot
	aggregate models.MarketAggregate
	frame     models.Frame
	seq       uint64
	started   time.Time

	lmu       sync.RWMutex
	listeners []Listener
}

type StoreOption func(*MarketStore)

// WithSeed makes drift and simulated symbols reproducible.
func WithSeed(seed int64) StoreOption {
	return func(s *MarketStore) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *MarketStore) { s.now = now }
}

// WithInitialStocks replaces the default seed list.
func WithInitialStocks(stocks []*models.StockSnapshot) StoreOption {
	return func(s *MarketStore) {
		s.stocks = make([]*models.StockSnapshot, 0, len(stocks))
		for _, st := range stocks {
			s.stocks = append(s.stocks, st.Clone())
		}
	}
}

// WithDataSource lets AddSymbol seed new snapshots from a live quote.
func WithDataSource(src drepo.MarketDataSource) StoreOption {
	return func(s *MarketStore) { s.source = src }
}

// NewMarketStore creates a store holding the seed stocks unless
// WithInitialStocks is given.
func NewMarketStore(agg *market.Aggregator, metrics drepo.Metrics, logger *applogger.Logger, opts ...StoreOption) *MarketStore {
	s := &MarketStore{
		agg:     agg,
		enc:     agg.Encoder(),
		metrics: metrics,
		logger:  logger.With("market_store"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.started = s.now()
	if s.stocks == nil {
		s.stocks = agg.SeedStocks(s.started)
	}
	s.mu.Lock()
	s.commitLocked()
	s.mu.Unlock()
	return s
}

// Subscribe registers a frame listener.
func (s *MarketStore) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.lmu.Lock()
	s.listeners = append(s.listeners, l)
	s.lmu.Unlock()
}

// Stocks returns copies of every snapshot in order.
func (s *MarketStore) Stocks() []models.StockSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyStocks(s.stocks)
}

// ActiveStocks returns copies of the active snapshots in order.
func (s *MarketStore) ActiveStocks() []models.StockSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyStocks(s.agg.ActiveStocks(s.stocks))
}

// ActiveSymbols lists the active symbols in order.
func (s *MarketStore) ActiveSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.agg.ActiveStocks(s.stocks)
	out := make([]string, len(active))
	for i, st := range active {
		out[i] = st.Symbol
	}
	return out
}

// Aggregate returns the current market aggregate.
func (s *MarketStore) Aggregate() models.MarketAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregate
}

// Frame returns the latest frame.
func (s *MarketStore) Frame() models.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Get returns a copy of the snapshot for symbol.
func (s *MarketStore) Get(symbol string) (models.StockSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := market.IndexOf(s.stocks, symbol)
	if idx < 0 {
		return models.StockSnapshot{}, false
	}
	return *s.stocks[idx].Clone(), true
}

// Drift applies one simulated step to every stock.
func (s *MarketStore) Drift(ctx context.Context) models.Frame {
	s.mu.Lock()
	now := s.now()
	for _, st := range s.stocks {
		s.agg.ApplySimulatedDrift(st, s.rng, now)
	}
	f := s.commitLocked()
	s.mu.Unlock()
	s.notify(ctx, f)
	return f
}

// ApplyQuote overwrites one symbol from a live quote. Malformed quotes and
// unknown symbols leave the store untouched.
func (s *MarketStore) ApplyQuote(symbol string, q models.Quote) error {
	s.mu.Lock()
	idx := market.IndexOf(s.stocks, symbol)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	}
	st := s.stocks[idx]
	if err := s.agg.ApplyExternalQuote(st, q, s.rng, s.now()); err != nil {
		s.mu.Unlock()
		return err
	}
	price := st.Price
	f := s.commitLocked()
	s.mu.Unlock()

	s.metrics.RecordLastPrice(st.Symbol, price)
	s.notify(context.Background(), f)
	return nil
}

// ApplyTick moves one symbol to a streamed trade price.
func (s *MarketStore) ApplyTick(t models.Tick) error {
	s.mu.Lock()
	idx := market.IndexOf(s.stocks, t.Symbol)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrSymbolNotFound, t.Symbol)
	}
	st := s.stocks[idx]
	if err := s.agg.ApplyTick(st, t); err != nil {
		s.mu.Unlock()
		return err
	}
	price := st.Price
	f := s.commitLocked()
	s.mu.Unlock()

	s.metrics.RecordLastPrice(st.Symbol, price)
	s.notify(context.Background(), f)
	return nil
}

// ApplySentiment sets one symbol's news-derived sentiment.
func (s *MarketStore) ApplySentiment(symbol string, u models.SentimentUpdate) error {
	s.mu.Lock()
	idx := market.IndexOf(s.stocks, symbol)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	}
	s.agg.ApplySentiment(s.stocks[idx], u, s.now())
	f := s.commitLocked()
	s.mu.Unlock()
	s.notify(context.Background(), f)
	return nil
}

// AddSymbol appends a new active snapshot. With a data source configured the
// snapshot starts from a live quote; any source failure falls back to a
// simulated snapshot.
func (s *MarketStore) AddSymbol(ctx context.Context, symbol string) (models.StockSnapshot, error) {
	s.mu.Lock()
	sym, err := s.agg.NormalizeNewSymbol(symbol, s.stocks)
	s.mu.Unlock()
	if err != nil {
		return models.StockSnapshot{}, err
	}

	var (
		quote    models.Quote
		hasQuote bool
	)
	if s.source != nil {
		q, err := s.source.FetchQuote(ctx, sym)
		if err != nil {
			s.metrics.RecordError("add_symbol_quote")
			s.logger.Warn("quote for new symbol failed, using simulated data",
				applogger.String("symbol", sym), applogger.Error(err))
		} else {
			quote, hasQuote = q, true
		}
	}

	s.mu.Lock()
	now := s.now()
	var st *models.StockSnapshot
	if hasQuote {
		st, err = s.agg.NewSnapshotFromQuote(sym, quote, s.stocks, s.rng, now)
		if err != nil && !models.IsSourceFailure(err) {
			s.mu.Unlock()
			return models.StockSnapshot{}, err
		}
	}
	if st == nil {
		st, err = s.agg.AddSymbol(sym, s.stocks, s.rng, now)
		if err != nil {
			s.mu.Unlock()
			return models.StockSnapshot{}, err
		}
	}
	s.stocks = append(s.stocks, st)
	out := *st.Clone()
	f := s.commitLocked()
	s.mu.Unlock()

	s.logger.Info("symbol added", applogger.String("symbol", sym), applogger.String("source", out.Source))
	s.notify(ctx, f)
	return out, nil
}

// RemoveSymbol drops symbol. Absent symbols are a no-op and report false.
func (s *MarketStore) RemoveSymbol(symbol string) bool {
	s.mu.Lock()
	before := len(s.stocks)
	s.stocks = s.agg.RemoveSymbol(symbol, s.stocks)
	if len(s.stocks) == before {
		s.mu.Unlock()
		return false
	}
	f := s.commitLocked()
	s.mu.Unlock()

	if fm, ok := s.metrics.(interface{ ForgetSymbol(string) }); ok {
		fm.ForgetSymbol(models.NormalizeSymbol(symbol))
	}
	s.logger.Info("symbol removed", applogger.String("symbol", models.NormalizeSymbol(symbol)))
	s.notify(context.Background(), f)
	return true
}

// SetActive shows or hides one symbol.
func (s *MarketStore) SetActive(symbol string, active bool) error {
	s.mu.Lock()
	idx := market.IndexOf(s.stocks, symbol)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	}
	s.stocks[idx].Active = active
	f := s.commitLocked()
	s.mu.Unlock()
	s.notify(context.Background(), f)
	return nil
}

// Toggle flips one symbol's visibility and returns the new state.
func (s *MarketStore) Toggle(symbol string) (bool, error) {
	s.mu.Lock()
	idx := market.IndexOf(s.stocks, symbol)
	if idx < 0 {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", models.ErrSymbolNotFound, symbol)
	}
	st := s.stocks[idx]
	st.Active = !st.Active
	active := st.Active
	f := s.commitLocked()
	s.mu.Unlock()
	s.notify(context.Background(), f)
	return active, nil
}

// SetAllActive selects or deselects every symbol.
func (s *MarketStore) SetAllActive(active bool) {
	s.mu.Lock()
	for _, st := range s.stocks {
		st.Active = active
	}
	f := s.commitLocked()
	s.mu.Unlock()
	s.notify(context.Background(), f)
}

// Arrange reorders the stocks to follow symbols. Stocks not named keep their
// relative order after the named ones.
func (s *MarketStore) Arrange(symbols []string) {
	rank := make(map[string]int, len(symbols))
	for i, sym := range symbols {
		sym = models.NormalizeSymbol(sym)
		if _, ok := rank[sym]; !ok {
			rank[sym] = i
		}
	}
	pos := func(st *models.StockSnapshot) int {
		if r, ok := rank[st.Symbol]; ok {
			return r
		}
		return len(symbols)
	}

	s.mu.Lock()
	sort.SliceStable(s.stocks, func(i, j int) bool { return pos(s.stocks[i]) < pos(s.stocks[j]) })
	f := s.commitLocked()
	s.mu.Unlock()
	s.notify(context.Background(), f)
}

// commitLocked recomputes the aggregate and the frame. Caller holds mu.
func (s *MarketStore) commitLocked() models.Frame {
	now := s.now()
	active := s.agg.ActiveStocks(s.stocks)
	s.aggregate = s.agg.RecomputeAggregate(active, now)

	elapsed := now.Sub(s.started).Seconds()
	if elapsed < s.frame.Elapsed {
		elapsed = s.frame.Elapsed
	}
	s.seq++
	s.frame = models.Frame{
		Seq:         s.seq,
		GeneratedAt: now,
		Elapsed:     elapsed,
		Aggregate:   s.aggregate,
		Visuals:     s.enc.EncodeAll(active, elapsed),
	}
	return s.frame
}

func (s *MarketStore) notify(ctx context.Context, f models.Frame) {
	s.metrics.RecordAggregate(f.Aggregate)
	s.lmu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.lmu.RUnlock()
	for _, l := range listeners {
		l(ctx, f)
	}
}

func copyStocks(in []*models.StockSnapshot) []models.StockSnapshot {
	out := make([]models.StockSnapshot, len(in))
	for i, st := range in {
		out[i] = *st.Clone()
	}
	return out
}
