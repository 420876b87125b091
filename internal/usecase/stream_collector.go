package usecase

import (
	"context"
	"errors"

	"StockHolo/internal/domain/models"
	drepo "StockHolo/internal/domain/repository"
	mid "StockHolo/internal/middleware"
	applogger "StockHolo/pkg/logger"
)

// StreamCollector pumps last-trade ticks from a market stream into the quote
// pipeline and keeps the stream's subscriptions in step with the store.
type StreamCollector struct {
	stream  drepo.MarketStream
	pipe    *mid.QuotePipeline
	metrics drepo.Metrics
	logger  *applogger.Logger
}

// NewStreamCollector creates a collector.
func NewStreamCollector(stream drepo.MarketStream, pipe *mid.QuotePipeline, metrics drepo.Metrics, logger *applogger.Logger) *StreamCollector {
	return &StreamCollector{stream: stream, pipe: pipe, metrics: metrics, logger: logger.With("stream_collector")}
}

// IsConnected reports the stream state.
func (c *StreamCollector) IsConnected() bool { return c.stream.IsConnected() }

// Start connects, subscribes symbols and consumes until ctx ends.
func (c *StreamCollector) Start(ctx context.Context, symbols []string) error {
	if err := c.stream.Subscribe(ctx, symbols...); err != nil {
		return err
	}
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	go c.run(ctx)
	return nil
}

func (c *StreamCollector) run(ctx context.Context) {
	for {
		ticks, errs := c.stream.Read(ctx)
		err := c.consume(ctx, ticks, errs)
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("stream")
		c.logger.Warn("stream lost, reconnecting", applogger.Error(err))
		if err := c.stream.Reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("reconnect failed", applogger.Error(err))
		}
	}
}

func (c *StreamCollector) consume(ctx context.Context, ticks <-chan models.Tick, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				return err
			}
			if !ok {
				errs = nil
			}
		case t, ok := <-ticks:
			if !ok {
				return errors.New("tick channel closed")
			}
			if err := c.pipe.ProcessTick(ctx, t); err != nil && !errors.Is(err, mid.ErrThrottled) {
				c.logger.Debug("tick dropped", applogger.String("symbol", t.Symbol), applogger.Error(err))
			}
		}
	}
}

// Track follows store membership: added symbols are subscribed and removed
// ones unsubscribed.
func (c *StreamCollector) Track(ctx context.Context, added, removed []string) {
	if len(added) > 0 {
		if err := c.stream.Subscribe(ctx, added...); err != nil {
			c.logger.Warn("subscribe failed", applogger.Strings("symbols", added), applogger.Error(err))
		}
	}
	if len(removed) > 0 {
		if err := c.stream.Unsubscribe(ctx, removed...); err != nil {
			c.logger.Warn("unsubscribe failed", applogger.Strings("symbols", removed), applogger.Error(err))
		}
	}
}

// Shutdown closes the stream.
func (c *StreamCollector) Shutdown(ctx context.Context) error { return c.stream.Close() }
