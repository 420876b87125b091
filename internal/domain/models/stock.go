package models

import (
	"fmt"
	"strings"
	"time"
)

// Trend is the coarse sentiment bucket derived from a sentiment score.
type Trend string

const (
	TrendVeryBearish Trend = "very_bearish"
	TrendBearish     Trend = "bearish"
	TrendNeutral     Trend = "neutral"
	TrendBullish     Trend = "bullish"
	TrendVeryBullish Trend = "very_bullish"
)

// Rank orders trends from most bearish (0) to most bullish (4).
func (t Trend) Rank() int {
	switch t {
	case TrendVeryBearish:
		return 0
	case TrendBearish:
		return 1
	case TrendBullish:
		return 3
	case TrendVeryBullish:
		return 4
	default:
		return 2
	}
}

// Snapshot sources.
const (
	SourceSeed      = "seed"
	SourceSimulated = "simulated"
	SourceQuote     = "quote"
	SourceNews      = "news"
	SourceStream    = "stream"
)

// Sentiment carries the score and its derived trend.
type Sentiment struct {
	Score      float64 `json:"score"`
	Sources    int     `json:"sources"`
	Trend      Trend   `json:"trend"`
	Confidence float64 `json:"confidence,omitempty"`
}

// StockSnapshot is the per-symbol state held by the market store.
type StockSnapshot struct {
	Symbol         string    `json:"symbol"`
	ChangePercent  float64   `json:"change"`
	Price          float64   `json:"price"`
	ReferencePrice float64   `json:"referencePrice"`
	Volume         int64     `json:"volume"`
	Sentiment      Sentiment `json:"sentiment"`
	Volatility     float64   `json:"volatility"`
	NewsCount      int       `json:"newsCount"`
	Active         bool      `json:"active"`
	Source         string    `json:"source,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Clone returns a copy safe to hand out of the store.
func (s *StockSnapshot) Clone() *StockSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// VolumeLabel formats the raw share volume for display.
func (s *StockSnapshot) VolumeLabel() string { return FormatVolume(s.Volume) }

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// FormatVolume renders a share count as 45.2M / 980K / 1.1B.
func FormatVolume(v int64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(v)/1e9)
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(v)/1e6)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", float64(v)/1e3)
	default:
		return fmt.Sprintf("%d", v)
	}
}

// Quote is a live quote returned by a market data source.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"changePercent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PrevClose     float64   `json:"prevClose"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// Tick is a single last-trade print from a streaming source.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// SymbolMatch is one result of a symbol search.
type SymbolMatch struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Description   string `json:"description"`
	Type          string `json:"type"`
}

// SentimentUpdate is a news-derived change applied to one snapshot.
type SentimentUpdate struct {
	Score      float64
	Sources    int
	NewsCount  int
	Confidence float64
}
