package usecase

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"StockHolo/internal/domain/models"
	drepo "StockHolo/internal/domain/repository"
	dsvc "StockHolo/internal/domain/service"
	applogger "StockHolo/pkg/logger"
)

const defaultConfidence = 0.5

// NewsUpdaterConfig holds the news blend settings.
type NewsUpdaterConfig struct {
	Interval    time.Duration
	Days        int
	BlendWeight float64
	HistorySize int
}

// NewsUpdater periodically blends news sentiment into the active stocks.
type NewsUpdater struct {
	store   *MarketStore
	news    dsvc.NewsSentiment
	metrics drepo.Metrics
	logger  *applogger.Logger
	cfg     NewsUpdaterConfig
	now     func() time.Time

	updating atomic.Bool

	mu      sync.Mutex
	rng     *rand.Rand
	history map[string][]models.SentimentPoint
	latest  map[string]*models.NewsSummary

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNewsUpdater creates an updater.
func NewNewsUpdater(store *MarketStore, news dsvc.NewsSentiment, metrics drepo.Metrics, logger *applogger.Logger, cfg NewsUpdaterConfig) *NewsUpdater {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Days <= 0 {
		cfg.Days = 7
	}
	if cfg.BlendWeight <= 0 || cfg.BlendWeight > 1 {
		cfg.BlendWeight = 0.8
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 20
	}
	return &NewsUpdater{
		store:   store,
		news:    news,
		metrics: metrics,
		logger:  logger.With("news_updater"),
		cfg:     cfg,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		history: make(map[string][]models.SentimentPoint),
		latest:  make(map[string]*models.NewsSummary),
	}
}

// Start runs an update immediately and then every interval until Stop.
func (u *NewsUpdater) Start(ctx context.Context) {
	u.lifeMu.Lock()
	defer u.lifeMu.Unlock()
	u.stopLocked()

	cctx, cancel := context.WithCancel(ctx)
	u.cancel = cancel
	u.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		u.UpdateNow(cctx)
		t := time.NewTicker(u.cfg.Interval)
		defer t.Stop()
		for {
			select {
			case <-cctx.Done():
				return
			case <-t.C:
				u.UpdateNow(cctx)
			}
		}
	}(u.done)
}

// Stop halts periodic updates.
func (u *NewsUpdater) Stop() {
	u.lifeMu.Lock()
	defer u.lifeMu.Unlock()
	u.stopLocked()
}

func (u *NewsUpdater) stopLocked() {
	if u.cancel == nil {
		return
	}
	u.cancel()
	<-u.done
	u.cancel, u.done = nil, nil
}

// UpdateNow updates every active stock concurrently. It returns false when an
// update is already in flight.
func (u *NewsUpdater) UpdateNow(ctx context.Context) bool {
	if !u.updating.CompareAndSwap(false, true) {
		return false
	}
	defer u.updating.Store(false)

	start := time.Now()
	var wg sync.WaitGroup
	for _, sym := range u.store.ActiveSymbols() {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			if err := u.UpdateSymbol(ctx, sym); err != nil && ctx.Err() == nil {
				u.metrics.RecordError("news_update")
				u.logger.Warn("news update failed", applogger.String("symbol", sym), applogger.Error(err))
			}
		}(sym)
	}
	wg.Wait()
	u.metrics.RecordLatency("news_update", time.Since(start).Seconds())
	return true
}

// UpdateSymbol fetches one summary and blends it into the stock.
func (u *NewsUpdater) UpdateSymbol(ctx context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	summary, err := u.news.Summary(ctx, symbol, u.cfg.Days)
	if err != nil {
		return err
	}
	cur, ok := u.store.Get(symbol)
	if !ok {
		return models.ErrSymbolNotFound
	}

	agg := summary.Aggregate
	var score float64
	if agg.TotalArticles == 0 {
		u.mu.Lock()
		score = (u.rng.Float64() - 0.5) * 2
		u.mu.Unlock()
	} else {
		score = agg.AverageSentiment*u.cfg.BlendWeight + cur.Sentiment.Score*(1-u.cfg.BlendWeight)
	}
	score = clampUnit(score)

	update := models.SentimentUpdate{
		Score:      score,
		Sources:    cur.Sentiment.Sources,
		NewsCount:  cur.NewsCount,
		Confidence: agg.Confidence,
	}
	if agg.TotalArticles > 0 {
		update.Sources = agg.TotalArticles
		update.NewsCount = agg.TotalArticles
	}
	if update.Confidence == 0 {
		update.Confidence = defaultConfidence
	}
	if err := u.store.ApplySentiment(symbol, update); err != nil {
		return err
	}

	u.mu.Lock()
	u.latest[symbol] = summary
	h := append(u.history[symbol], models.SentimentPoint{
		Timestamp: u.now(),
		Sentiment: score,
		NewsCount: agg.TotalArticles,
	})
	if len(h) > u.cfg.HistorySize {
		h = append([]models.SentimentPoint(nil), h[len(h)-u.cfg.HistorySize:]...)
	}
	u.history[symbol] = h
	u.mu.Unlock()
	return nil
}

// History returns the recorded sentiment points for symbol, oldest first.
func (u *NewsUpdater) History(symbol string) []models.SentimentPoint {
	u.mu.Lock()
	defer u.mu.Unlock()
	h := u.history[models.NormalizeSymbol(symbol)]
	out := make([]models.SentimentPoint, len(h))
	copy(out, h)
	return out
}

// Latest returns the last summary fetched for symbol.
func (u *NewsUpdater) Latest(symbol string) (*models.NewsSummary, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.latest[models.NormalizeSymbol(symbol)]
	return s, ok
}

// MarketNews summarizes sentiment over the active stocks. ok is false when
// nothing is active.
func (u *NewsUpdater) MarketNews() (models.MarketNews, bool) {
	active := u.store.ActiveStocks()
	if len(active) == 0 {
		return models.MarketNews{}, false
	}
	var sum float64
	var news int
	for _, s := range active {
		sum += s.Sentiment.Score
		news += s.NewsCount
	}
	return models.MarketNews{
		OverallSentiment: sum / float64(len(active)),
		TotalNews:        news,
		StocksTracked:    len(active),
		LastUpdate:       u.now(),
	}, true
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < -1:
		return -1
	case v > 1:
		return 1
	}
	return v
}
