package service

import (
	"context"

	"StockHolo/internal/domain/models"
)

// NewsSentiment produces per-symbol news sentiment summaries.
type NewsSentiment interface {
	Summary(ctx context.Context, symbol string, days int) (*models.NewsSummary, error)
	Articles(ctx context.Context, symbol string, days, limit int) ([]models.Article, error)
	Trends(ctx context.Context, symbol string, days int) (*models.SentimentTrend, error)
}
