package sentiment

import (
	"fmt"
	"math"
	"time"

	"StockHolo/internal/domain/models"
)

var headlineTemplates = []string{
	"%s stock shows strong performance in recent trading",
	"Analysts upgrade %s following positive earnings report",
	"%s faces headwinds in current market conditions",
	"Investors remain bullish on %s long-term prospects",
	"%s volatility increases amid market uncertainty",
	"Breaking: %s announces major partnership deal",
	"%s stock price target raised by major investment bank",
	"Concerns grow over %s market position",
	"%s demonstrates resilience in challenging market",
	"Market experts divided on %s future outlook",
}

var simulatedSources = []string{"Reuters", "Bloomberg", "MarketWatch", "CNBC", "Yahoo Finance"}

// symbolSeed is the 31-multiplier string hash, made non-negative.
func symbolSeed(symbol string) int64 {
	var h int32
	for _, r := range symbol {
		h = h*31 + int32(r)
	}
	if h < 0 {
		return -int64(h)
	}
	return int64(h)
}

// seeded returns a stable pseudo-random value in [0,1) for seed.
func seeded(seed int64) float64 {
	x := math.Sin(float64(seed)) * 10000
	return x - math.Floor(x)
}

// Simulated builds a summary that is stable per symbol and drifts slowly
// with time. Used when no news source answers.
func Simulated(symbol string, days int, now time.Time) *models.NewsSummary {
	seed := symbolSeed(symbol)
	drift := math.Sin(float64(now.UnixMilli())/10000+float64(seed)) * 0.3
	base := math.Max(-1, math.Min(1, seeded(seed)*2-1+drift))
	count := int(seeded(seed+1)*20) + 5

	positive := int(float64(count) * (0.3 + seeded(seed+2)*0.4))
	negative := int(float64(count) * (0.1 + seeded(seed+3)*0.3))
	if positive+negative > count {
		negative = count - positive
	}

	recent := make([]models.Article, 0, min(count, 10))
	for i := 0; i < min(count, 10); i++ {
		k := seed + 10 + int64(i)
		score := seeded(k)*2 - 1
		recent = append(recent, models.Article{
			Title:          fmt.Sprintf(headlineTemplates[int(seeded(k+100)*float64(len(headlineTemplates)))], symbol),
			Source:         simulatedSources[i%len(simulatedSources)],
			PublishedAt:    now.Add(-time.Duration(i) * 3 * time.Hour),
			SentimentScore: score,
			SentimentLabel: Label(score),
		})
	}

	return &models.NewsSummary{
		Symbol:           symbol,
		AnalysisDate:     now,
		DaysAnalyzed:     days,
		ArticlesAnalyzed: count,
		Aggregate: models.AggregateSentiment{
			AverageSentiment: base,
			PositiveCount:    positive,
			NegativeCount:    negative,
			NeutralCount:     count - positive - negative,
			TotalArticles:    count,
			Confidence:       0.6 + seeded(seed+4)*0.3,
		},
		RecentArticles: recent,
		Simulated:      true,
	}
}

// simulatedTrend builds a per-day series around the symbol's base sentiment.
func simulatedTrend(symbol string, days int, now time.Time) *models.SentimentTrend {
	seed := symbolSeed(symbol)
	base := seeded(seed)*2 - 1
	series := make([]models.DailySentiment, 0, days)
	for d := days - 1; d >= 0; d-- {
		day := now.AddDate(0, 0, -d)
		k := seed + int64(day.YearDay())
		count := int(seeded(k)*8) + 1
		pos := 0.3 + seeded(k+1)*0.4
		neg := math.Min(1-pos, 0.1+seeded(k+2)*0.3)
		series = append(series, models.DailySentiment{
			Date:          day.Format("2006-01-02"),
			Sentiment:     math.Max(-1, math.Min(1, base+(seeded(k+3)-0.5)*0.4)),
			ArticleCount:  count,
			PositiveRatio: pos,
			NegativeRatio: neg,
		})
	}
	return &models.SentimentTrend{Symbol: symbol, Days: days, Series: series}
}
