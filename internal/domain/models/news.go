package models

import "time"

// Sentiment labels for articles.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Article is a scored news item.
type Article struct {
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	URL            string    `json:"url,omitempty"`
	Source         string    `json:"source,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
	SentimentScore float64   `json:"sentiment_score"`
	SentimentLabel string    `json:"sentiment_label"`
}

// AggregateSentiment summarizes a set of scored articles.
type AggregateSentiment struct {
	AverageSentiment float64 `json:"average_sentiment"`
	PositiveCount    int     `json:"positive_count"`
	NegativeCount    int     `json:"negative_count"`
	NeutralCount     int     `json:"neutral_count"`
	TotalArticles    int     `json:"total_articles"`
	Confidence       float64 `json:"confidence"`
}

// NewsSummary is the per-symbol news sentiment response.
type NewsSummary struct {
	Symbol           string             `json:"symbol"`
	AnalysisDate     time.Time          `json:"analysis_date"`
	DaysAnalyzed     int                `json:"days_analyzed"`
	ArticlesAnalyzed int                `json:"articles_analyzed"`
	Aggregate        AggregateSentiment `json:"aggregate_sentiment"`
	RecentArticles   []Article          `json:"recent_articles"`
	Simulated        bool               `json:"simulated"`
}

// SentimentPoint is one entry of a symbol's sentiment history.
type SentimentPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Sentiment float64   `json:"sentiment"`
	NewsCount int       `json:"newsCount"`
}

// DailySentiment is one day of a sentiment trend series.
type DailySentiment struct {
	Date          string  `json:"date"`
	Sentiment     float64 `json:"sentiment"`
	ArticleCount  int     `json:"article_count"`
	PositiveRatio float64 `json:"positive_ratio"`
	NegativeRatio float64 `json:"negative_ratio"`
}

// SentimentTrend is the per-day series for a symbol.
type SentimentTrend struct {
	Symbol string           `json:"symbol"`
	Days   int              `json:"days"`
	Series []DailySentiment `json:"trend_data"`
}

// MarketNews summarizes news sentiment over the active stocks.
type MarketNews struct {
	OverallSentiment float64   `json:"overallSentiment"`
	TotalNews        int       `json:"totalNews"`
	StocksTracked    int       `json:"stocksTracked"`
	LastUpdate       time.Time `json:"lastUpdate"`
}
