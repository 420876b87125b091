package market

import (
	"time"

	"StockHolo/internal/domain/models"
)

type seedRow struct {
	symbol     string
	change     float64
	price      float64
	volume     int64
	score      float64
	sources    int
	volatility float64
	newsCount  int
}

var seedRows = []seedRow{
	{"AAPL", 2.4, 175.32, 45_200_000, 0.7, 15, 0.3, 8},
	{"GOOGL", -1.8, 135.67, 28_100_000, -0.3, 12, 0.5, 5},
	{"MSFT", 1.2, 342.89, 32_500_000, 0.4, 18, 0.2, 12},
	{"TSLA", -3.1, 248.15, 67_800_000, -0.8, 25, 0.9, 23},
	{"AMZN", 0.8, 142.78, 38_900_000, 0.1, 14, 0.4, 7},
	{"META", -2.2, 298.45, 22_300_000, -0.6, 20, 0.7, 15},
	{"NVDA", 4.5, 456.23, 89_100_000, 0.9, 30, 0.8, 28},
	{"NFLX", -1.1, 378.92, 15_700_000, -0.2, 9, 0.3, 4},
}

// SeedStocks returns the initial watchlist, all active, with trends derived
// by the aggregator's encoder. When symbols is non-empty only those seeds are
// kept, in the given order; unknown and repeated symbols are skipped.
func (a *Aggregator) SeedStocks(now time.Time, symbols ...string) []*models.StockSnapshot {
	rows := seedRows
	if len(symbols) > 0 {
		bySymbol := make(map[string]seedRow, len(seedRows))
		for _, r := range seedRows {
			bySymbol[r.symbol] = r
		}
		rows = make([]seedRow, 0, len(symbols))
		for _, s := range symbols {
			r, ok := bySymbol[models.NormalizeSymbol(s)]
			if !ok {
				continue
			}
			rows = append(rows, r)
			delete(bySymbol, r.symbol)
		}
	}

	out := make([]*models.StockSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.StockSnapshot{
			Symbol:         r.symbol,
			ChangePercent:  r.change,
			Price:          r.price,
			ReferencePrice: r.price,
			Volume:         r.volume,
			Sentiment: models.Sentiment{
				Score:   r.score,
				Sources: r.sources,
				Trend:   a.enc.TrendForSentiment(r.score),
			},
			Volatility: r.volatility,
			NewsCount:  r.newsCount,
			Active:     true,
			Source:     models.SourceSeed,
			UpdatedAt:  now,
		})
	}
	return out
}
