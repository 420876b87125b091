package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"StockHolo/internal/domain/models"
	domrepo "StockHolo/internal/domain/repository"
	"StockHolo/internal/service/ratelimit"
	"StockHolo/internal/services/market"
)

// QuoteSink is the store side of the pipeline.
type QuoteSink interface {
	ApplyQuote(symbol string, q models.Quote) error
	ApplyTick(t models.Tick) error
}

// QuotePipeline sits between market data sources (REST poller, trade stream,
// Kafka quotes topic) and the store. It validates, throttles per symbol and
// forwards.
type QuotePipeline struct {
	sink      QuoteSink
	metrics   domrepo.Metrics
	limiter   *ratelimit.Limiter
	transform func(models.Quote) models.Quote
}

type PipelineOption func(*QuotePipeline)

// WithMaxRPS sets the max updates per second per symbol. Zero disables
// throttling.
func WithMaxRPS(n float64) PipelineOption {
	return func(p *QuotePipeline) {
		if n > 0 {
			p.limiter = ratelimit.New(n, 1)
		} else {
			p.limiter = nil
		}
	}
}

// WithTransform sets a hook applied to quotes before validation.
func WithTransform(fn func(models.Quote) models.Quote) PipelineOption {
	return func(p *QuotePipeline) { p.transform = fn }
}

// NewQuotePipeline creates a pipeline feeding sink.
func NewQuotePipeline(sink QuoteSink, metrics domrepo.Metrics, opts ...PipelineOption) *QuotePipeline {
	p := &QuotePipeline{
		sink:    sink,
		metrics: metrics,
		limiter: ratelimit.New(20, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ErrThrottled is returned when an update is dropped by the per-symbol limit.
var ErrThrottled = errors.New("update throttled")

// ProcessQuote validates q and applies it to its symbol.
func (p *QuotePipeline) ProcessQuote(ctx context.Context, q models.Quote) error {
	start := time.Now()
	if p.transform != nil {
		q = p.transform(q)
	}
	q.Symbol = models.NormalizeSymbol(q.Symbol)
	if err := market.ValidateQuote(q); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(q.Symbol) {
		p.metrics.RecordError("pipeline_throttle")
		return ErrThrottled
	}
	if err := p.sink.ApplyQuote(q.Symbol, q); err != nil {
		p.metrics.RecordError("pipeline_apply")
		return fmt.Errorf("pipeline apply %s: %w", q.Symbol, err)
	}
	p.metrics.RecordLatency("pipeline_quote", time.Since(start).Seconds())
	return nil
}

// ProcessTick validates a last-trade tick and applies it.
func (p *QuotePipeline) ProcessTick(ctx context.Context, t models.Tick) error {
	start := time.Now()
	t.Symbol = models.NormalizeSymbol(t.Symbol)
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(t.Symbol) {
		p.metrics.RecordError("pipeline_throttle")
		return ErrThrottled
	}
	if err := p.sink.ApplyTick(t); err != nil {
		p.metrics.RecordError("pipeline_apply")
		return fmt.Errorf("pipeline apply %s: %w", t.Symbol, err)
	}
	p.metrics.RecordLatency("pipeline_tick", time.Since(start).Seconds())
	return nil
}

func validateTick(t models.Tick) error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: symbol empty", models.ErrMalformedQuote)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp missing", models.ErrMalformedQuote)
	}
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price <= 0 || t.Volume < 0 {
		return fmt.Errorf("%w: bad price/volume", models.ErrMalformedQuote)
	}
	return nil
}

func (p *QuotePipeline) allow(symbol string) bool {
	if p.limiter == nil {
		return true
	}
	return p.limiter.Allow(symbol)
}
