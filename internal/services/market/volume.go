package market

import (
	"math/rand"

	"StockHolo/internal/domain/models"
)

// baseVolumes are typical daily share volumes for widely traded tickers.
var baseVolumes = map[string]int64{
	"AAPL":  55_000_000,
	"MSFT":  25_000_000,
	"GOOGL": 28_000_000,
	"GOOG":  22_000_000,
	"AMZN":  45_000_000,
	"META":  18_000_000,
	"NVDA":  250_000_000,
	"TSLA":  95_000_000,
	"NFLX":  4_000_000,
	"AMD":   60_000_000,
	"INTC":  40_000_000,
	"SPY":   75_000_000,
	"QQQ":   45_000_000,
	"BAC":   38_000_000,
	"JPM":   9_000_000,
	"F":     50_000_000,
	"PLTR":  70_000_000,
}

const defaultBaseVolume int64 = 8_000_000

// SynthesizeVolume estimates a plausible volume for a symbol whose quote
// carried none: a per-symbol base times a multiplier in [1-jitter, 1+jitter].
func (a *Aggregator) SynthesizeVolume(symbol string, rng *rand.Rand) int64 {
	base, ok := baseVolumes[models.NormalizeSymbol(symbol)]
	if !ok {
		base = defaultBaseVolume
	}
	mult := 1 + (rng.Float64()*2-1)*a.cfg.VolumeJitter
	v := int64(float64(base) * mult)
	if v < a.cfg.VolumeFloor {
		v = a.cfg.VolumeFloor
	}
	return v
}

// BaseVolume exposes the heuristic base for a symbol.
func BaseVolume(symbol string) int64 {
	if v, ok := baseVolumes[models.NormalizeSymbol(symbol)]; ok {
		return v
	}
	return defaultBaseVolume
}
