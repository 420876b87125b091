package sentiment

import (
	"math"
	"sort"
	"strings"

	"StockHolo/internal/domain/models"
)

var (
	positiveWords = []string{"good", "great", "excellent", "positive", "bullish", "up", "rise", "gain", "profit", "success"}
	negativeWords = []string{"bad", "terrible", "negative", "bearish", "down", "fall", "loss", "decline", "failure", "crash"}
)

const labelThreshold = 0.05

// Score is a keyword polarity score in [-1,1]: (positive hits - negative hits)
// over the word count. Each keyword counts once if it appears anywhere.
func Score(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	return math.Max(-1, math.Min(1, float64(pos-neg)/float64(words)))
}

// Label buckets a compound score.
func Label(score float64) string {
	switch {
	case score >= labelThreshold:
		return models.LabelPositive
	case score <= -labelThreshold:
		return models.LabelNegative
	default:
		return models.LabelNeutral
	}
}

// ScoreArticle fills the sentiment fields from title and description.
func ScoreArticle(a *models.Article) {
	a.SentimentScore = Score(strings.TrimSpace(a.Title + " " + a.Description))
	a.SentimentLabel = Label(a.SentimentScore)
}

// Dedupe drops repeated titles (case-insensitive) and titles of ten
// characters or fewer, keeping first occurrences.
func Dedupe(articles []models.Article) []models.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		key := strings.ToLower(strings.TrimSpace(a.Title))
		if len(key) <= 10 {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// SortRecent orders articles newest first.
func SortRecent(articles []models.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}

// Aggregate summarizes scored articles. Confidence is 1 minus the score
// variance, floored at 0.
func Aggregate(articles []models.Article) models.AggregateSentiment {
	agg := models.AggregateSentiment{TotalArticles: len(articles)}
	if len(articles) == 0 {
		return agg
	}
	var sum float64
	for _, a := range articles {
		sum += a.SentimentScore
		switch a.SentimentLabel {
		case models.LabelPositive:
			agg.PositiveCount++
		case models.LabelNegative:
			agg.NegativeCount++
		default:
			agg.NeutralCount++
		}
	}
	n := float64(len(articles))
	agg.AverageSentiment = sum / n

	var variance float64
	for _, a := range articles {
		d := a.SentimentScore - agg.AverageSentiment
		variance += d * d
	}
	agg.Confidence = math.Max(0, 1-variance/n)
	return agg
}
