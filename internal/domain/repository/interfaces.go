package repository

import (
	"context"
	"time"

	"StockHolo/internal/domain/models"
)

// MarketDataSource answers live quotes and symbol searches.
type MarketDataSource interface {
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
	SearchSymbol(ctx context.Context, query string) ([]models.SymbolMatch, error)
}

// NewsSource returns raw company news for a symbol.
type NewsSource interface {
	CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.Article, error)
}

// MarketStream delivers last-trade ticks for subscribed symbols.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols ...string) error
	Unsubscribe(ctx context.Context, symbols ...string) error
	Read(ctx context.Context) (<-chan models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// RenderSurface consumes full frames of encoded visuals.
type RenderSurface interface {
	Name() string
	Render(ctx context.Context, f models.Frame) error
}

// FramePublisher ships frames to an external bus.
type FramePublisher interface {
	RenderSurface
	Close() error
}

type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordLastPrice(symbol string, price float64)
	RecordAggregate(a models.MarketAggregate)
	RecordFrame(surface string, visuals int)
}
