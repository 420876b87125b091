package sentiment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"StockHolo/internal/domain/models"
	"StockHolo/internal/domain/repository"
	dsvc "StockHolo/internal/domain/service"
	"StockHolo/internal/service/cache"
	applogger "StockHolo/pkg/logger"
)

const (
	defaultCacheTTL = 30 * time.Second
	recentArticles  = 10
)

// Service scores company news per symbol, falling back to simulated
// summaries when the news source is missing, failing or empty.
type Service struct {
	news    repository.NewsSource
	cache   cache.BytesCache
	ttl     time.Duration
	logger  *applogger.Logger
	metrics repository.Metrics
	now     func() time.Time
}

type Option func(*Service)

// WithCache caches summaries and article lists for ttl.
func WithCache(c cache.BytesCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the service. news may be nil.
func NewService(news repository.NewsSource, logger *applogger.Logger, metrics repository.Metrics, opts ...Option) *Service {
	s := &Service{news: news, ttl: defaultCacheTTL, logger: logger, metrics: metrics, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ dsvc.NewsSentiment = (*Service)(nil)

// Summary returns the aggregate news sentiment for symbol over days.
func (s *Service) Summary(ctx context.Context, symbol string, days int) (*models.NewsSummary, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty", models.ErrInvalidSymbol)
	}
	key := fmt.Sprintf("sentiment:%s:%d", symbol, days)

	var cached models.NewsSummary
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	articles, err := s.fetch(ctx, symbol, days)
	s.metrics.RecordLatency("news_summary", time.Since(start).Seconds())

	var summary *models.NewsSummary
	if err != nil || len(articles) == 0 {
		summary = Simulated(symbol, days, s.now())
	} else {
		summary = &models.NewsSummary{
			Symbol:           symbol,
			AnalysisDate:     s.now(),
			DaysAnalyzed:     days,
			ArticlesAnalyzed: len(articles),
			Aggregate:        Aggregate(articles),
			RecentArticles:   articles[:min(len(articles), recentArticles)],
		}
	}
	s.setCached(ctx, key, summary)
	return summary, nil
}

// Articles returns up to limit scored articles, newest first.
func (s *Service) Articles(ctx context.Context, symbol string, days, limit int) ([]models.Article, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty", models.ErrInvalidSymbol)
	}
	key := fmt.Sprintf("articles:%s:%d:%d", symbol, days, limit)

	var cached []models.Article
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}

	articles, err := s.fetch(ctx, symbol, days)
	if err != nil || len(articles) == 0 {
		articles = Simulated(symbol, days, s.now()).RecentArticles
	}
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	s.setCached(ctx, key, articles)
	return articles, nil
}

// Trends buckets the symbol's articles by day.
func (s *Service) Trends(ctx context.Context, symbol string, days int) (*models.SentimentTrend, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty", models.ErrInvalidSymbol)
	}
	articles, err := s.fetch(ctx, symbol, days)
	if err != nil || len(articles) == 0 {
		return simulatedTrend(symbol, days, s.now()), nil
	}
	return dailyTrend(symbol, days, articles), nil
}

func (s *Service) fetch(ctx context.Context, symbol string, days int) ([]models.Article, error) {
	if s.news == nil {
		return nil, models.ErrDataSourceUnavailable
	}
	to := s.now()
	from := to.AddDate(0, 0, -days)
	raw, err := s.news.CompanyNews(ctx, symbol, from, to)
	if err != nil {
		s.metrics.RecordError("news_fetch")
		s.logger.Warn("news fetch failed, using simulated sentiment",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, err
	}
	for i := range raw {
		ScoreArticle(&raw[i])
	}
	articles := Dedupe(raw)
	SortRecent(articles)
	return articles, nil
}

func (s *Service) getCached(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := cache.GetJSON(ctx, s.cache, key, dest)
	if err != nil {
		s.metrics.RecordError("cache_get")
		s.logger.Warn("sentiment cache read failed", applogger.String("key", key), applogger.Error(err))
		return false
	}
	return ok
}

func (s *Service) setCached(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, s.ttl); err != nil {
		s.metrics.RecordError("cache_set")
		s.logger.Warn("sentiment cache write failed", applogger.String("key", key), applogger.Error(err))
	}
}

func dailyTrend(symbol string, days int, articles []models.Article) *models.SentimentTrend {
	type bucket struct {
		sum           float64
		count, pos, n int
	}
	buckets := make(map[string]*bucket)
	for _, a := range articles {
		day := a.PublishedAt.UTC().Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &bucket{}
			buckets[day] = b
		}
		b.sum += a.SentimentScore
		b.count++
		switch a.SentimentLabel {
		case models.LabelPositive:
			b.pos++
		case models.LabelNegative:
			b.n++
		}
	}

	series := make([]models.DailySentiment, 0, len(buckets))
	for day, b := range buckets {
		c := float64(b.count)
		series = append(series, models.DailySentiment{
			Date:          day,
			Sentiment:     b.sum / c,
			ArticleCount:  b.count,
			PositiveRatio: float64(b.pos) / c,
			NegativeRatio: float64(b.n) / c,
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return &models.SentimentTrend{Symbol: symbol, Days: days, Series: series}
}
