package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"StockHolo/internal/domain/models"
	drepo "StockHolo/internal/domain/repository"
	mid "StockHolo/internal/middleware"
	applogger "StockHolo/pkg/logger"
)

// RefresherConfig holds the refresh cadence.
type RefresherConfig struct {
	DriftInterval time.Duration
	QuoteInterval time.Duration
	QuoteTimeout  time.Duration
}

// Refresher drives simulated drift and live quote polling on timers.
type Refresher struct {
	store    *MarketStore
	source   drepo.MarketDataSource
	pipeline *mid.QuotePipeline
	metrics  drepo.Metrics
	logger   *applogger.Logger
	cfg      RefresherConfig

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	fetches sync.WaitGroup
}

// NewRefresher creates a refresher. source may be nil, in which case only
// drift runs.
func NewRefresher(store *MarketStore, source drepo.MarketDataSource, pipeline *mid.QuotePipeline, metrics drepo.Metrics, logger *applogger.Logger, cfg RefresherConfig) *Refresher {
	if cfg.DriftInterval <= 0 {
		cfg.DriftInterval = 3 * time.Second
	}
	if cfg.QuoteInterval <= 0 {
		cfg.QuoteInterval = 30 * time.Second
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 8 * time.Second
	}
	return &Refresher{
		store:    store,
		source:   source,
		pipeline: pipeline,
		metrics:  metrics,
		logger:   logger.With("refresher"),
		cfg:      cfg,
	}
}

// Start cancels any running cycle, waits for it to exit, then starts a new one.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(cctx, r.done)
	r.logger.Info("started",
		applogger.Duration("drift_interval", r.cfg.DriftInterval),
		applogger.Duration("quote_interval", r.cfg.QuoteInterval),
		applogger.Bool("live_quotes", r.source != nil))
}

// Stop cancels the running cycle and waits for in-flight fetches.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Refresher) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.fetches.Wait()
	r.cancel, r.done = nil, nil
}

// Running reports whether a cycle is active.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	drift := time.NewTicker(r.cfg.DriftInterval)
	defer drift.Stop()

	var quotes <-chan time.Time
	if r.source != nil {
		qt := time.NewTicker(r.cfg.QuoteInterval)
		defer qt.Stop()
		quotes = qt.C
		r.pollQuotes(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-drift.C:
			r.store.Drift(ctx)
		case <-quotes:
			r.pollQuotes(ctx)
		}
	}
}

// pollQuotes fires one fetch per active symbol without waiting for them.
func (r *Refresher) pollQuotes(ctx context.Context) {
	for _, sym := range r.store.ActiveSymbols() {
		r.fetches.Add(1)
		go func(sym string) {
			defer r.fetches.Done()
			r.fetchOne(ctx, sym)
		}(sym)
	}
}

func (r *Refresher) fetchOne(ctx context.Context, symbol string) {
	start := time.Now()
	fctx, cancel := context.WithTimeout(ctx, r.cfg.QuoteTimeout)
	defer cancel()

	q, err := r.source.FetchQuote(fctx, symbol)
	r.metrics.RecordLatency("quote_fetch", time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.metrics.RecordError("quote_fetch")
		r.logger.Warn("quote fetch failed", applogger.String("symbol", symbol), applogger.Error(err))
		return
	}
	q.Symbol = symbol
	if err := r.pipeline.ProcessQuote(ctx, q); err != nil {
		if errors.Is(err, mid.ErrThrottled) || errors.Is(err, models.ErrSymbolNotFound) {
			r.logger.Debug("quote dropped", applogger.String("symbol", symbol), applogger.Error(err))
			return
		}
		r.logger.Warn("quote rejected", applogger.String("symbol", symbol), applogger.Error(err))
	}
}

// RefreshNow fetches every active quote and waits for them. Without a data
// source it applies one drift step instead. It returns the latest frame.
func (r *Refresher) RefreshNow(ctx context.Context) models.Frame {
	if r.source == nil {
		return r.store.Drift(ctx)
	}
	var wg sync.WaitGroup
	for _, sym := range r.store.ActiveSymbols() {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			r.fetchOne(ctx, sym)
		}(sym)
	}
	wg.Wait()
	return r.store.Frame()
}
