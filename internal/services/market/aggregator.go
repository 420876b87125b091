package market

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"StockHolo/internal/domain/models"
	"StockHolo/internal/services/encoder"
)

const (
	minPrice      = 1.0
	minVolatility = 0.1
	maxVolatility = 1.0
	minSources    = 1
)

// Config tunes snapshot mutations.
type Config struct {
	// VolatilityScale converts a quote's (high-low)/open into the volatility scale.
	VolatilityScale float64 `yaml:"volatility_scale" default:"5" validate:"gt=0"`
	// VolumeFloor is the minimum quote volume trusted as real.
	VolumeFloor     int64   `yaml:"volume_floor" default:"1000" validate:"gte=0"`
	MaxSymbolLength int     `yaml:"max_symbol_length" default:"10" validate:"gte=1,lte=16"`
	VolumeJitter    float64 `yaml:"volume_jitter" default:"0.2" validate:"gte=0,lt=1"`
}

func (c Config) withDefaults() Config {
	if c.VolatilityScale <= 0 {
		c.VolatilityScale = 5
	}
	if c.VolumeFloor <= 0 {
		c.VolumeFloor = 1000
	}
	if c.MaxSymbolLength <= 0 {
		c.MaxSymbolLength = 10
	}
	if c.VolumeJitter < 0 || c.VolumeJitter >= 1 {
		c.VolumeJitter = 0.2
	}
	return c
}

// Aggregator holds the pure snapshot operations. Callers serialize access to
// the snapshots they pass in.
type Aggregator struct {
	cfg Config
	enc *encoder.Encoder
}

// NewAggregator creates an aggregator deriving trends with enc.
func NewAggregator(cfg Config, enc *encoder.Encoder) *Aggregator {
	if enc == nil {
		enc = encoder.Default()
	}
	return &Aggregator{cfg: cfg.withDefaults(), enc: enc}
}

// Encoder returns the encoder used for trend derivation.
func (a *Aggregator) Encoder() *encoder.Encoder { return a.enc }

// Config returns the effective configuration.
func (a *Aggregator) Config() Config { return a.cfg }

// ActiveStocks filters the active snapshots, preserving order.
func (a *Aggregator) ActiveStocks(all []*models.StockSnapshot) []*models.StockSnapshot {
	out := make([]*models.StockSnapshot, 0, len(all))
	for _, s := range all {
		if s != nil && s.Active {
			out = append(out, s)
		}
	}
	return out
}

// RecomputeAggregate derives the market aggregate from the active stocks.
// An empty set yields zeros.
func (a *Aggregator) RecomputeAggregate(active []*models.StockSnapshot, now time.Time) models.MarketAggregate {
	agg := models.MarketAggregate{ActiveCount: len(active), LastUpdate: now}
	if len(active) == 0 {
		return agg
	}
	var sentiment, volatility float64
	for _, s := range active {
		sentiment += finite(s.Sentiment.Score)
		volatility += finite(s.Volatility)
		agg.NewsVolume += s.NewsCount
	}
	n := float64(len(active))
	agg.OverallSentiment = sentiment / n
	agg.RiskLevel = volatility / n
	agg.VolatilityIndex = agg.RiskLevel
	return agg
}

// ApplySimulatedDrift nudges a snapshot by small random steps.
func (a *Aggregator) ApplySimulatedDrift(s *models.StockSnapshot, rng *rand.Rand, now time.Time) {
	priceChange := (rng.Float64() - 0.5) * 0.5
	s.ChangePercent = finite(s.ChangePercent) + priceChange
	s.Price = math.Max(minPrice, finite(s.Price)*(1+priceChange/100))

	s.Sentiment.Score = clamp(finite(s.Sentiment.Score)+(rng.Float64()-0.5)*0.2, -1, 1)
	s.Sentiment.Sources = max(minSources, s.Sentiment.Sources+int(math.Floor((rng.Float64()-0.5)*5)))
	s.Volatility = clamp(finite(s.Volatility)+(rng.Float64()-0.5)*0.1, minVolatility, maxVolatility)

	s.Sentiment.Trend = a.enc.TrendForSentiment(s.Sentiment.Score)
	s.Source = models.SourceSimulated
	s.UpdatedAt = now
}

// ValidateQuote rejects quotes that cannot be applied.
func ValidateQuote(q models.Quote) error {
	switch {
	case !isFinite(q.Price) || q.Price <= 0:
		return fmt.Errorf("%w: price %v", models.ErrMalformedQuote, q.Price)
	case !isFinite(q.Open) || q.Open <= 0:
		return fmt.Errorf("%w: open %v", models.ErrMalformedQuote, q.Open)
	case !isFinite(q.High) || !isFinite(q.Low) || q.High < q.Low:
		return fmt.Errorf("%w: range %v..%v", models.ErrMalformedQuote, q.Low, q.High)
	case !isFinite(q.ChangePercent):
		return fmt.Errorf("%w: change %v", models.ErrMalformedQuote, q.ChangePercent)
	}
	return nil
}

// ApplyExternalQuote overwrites price, change, volatility and volume from a
// live quote. A malformed quote leaves the snapshot untouched.
func (a *Aggregator) ApplyExternalQuote(s *models.StockSnapshot, q models.Quote, rng *rand.Rand, now time.Time) error {
	if err := ValidateQuote(q); err != nil {
		return err
	}
	s.Price = math.Max(minPrice, q.Price)
	s.ChangePercent = q.ChangePercent
	s.Volatility = a.QuoteVolatility(q)
	if q.Volume < a.cfg.VolumeFloor {
		s.Volume = a.SynthesizeVolume(s.Symbol, rng)
	} else {
		s.Volume = q.Volume
	}
	s.Source = models.SourceQuote
	s.UpdatedAt = now
	return nil
}

// QuoteVolatility is |high-low|/open scaled into the volatility range.
func (a *Aggregator) QuoteVolatility(q models.Quote) float64 {
	if q.Open <= 0 {
		return 0
	}
	return math.Abs(q.High-q.Low) / q.Open * a.cfg.VolatilityScale
}

// ApplyTick moves the price to a streamed last trade, shifting the change
// percent by the same relative move.
func (a *Aggregator) ApplyTick(s *models.StockSnapshot, t models.Tick) error {
	if !isFinite(t.Price) || t.Price <= 0 {
		return fmt.Errorf("%w: tick price %v", models.ErrMalformedQuote, t.Price)
	}
	prev := s.Price
	s.Price = math.Max(minPrice, t.Price)
	if prev > 0 {
		s.ChangePercent += (s.Price - prev) / prev * 100
	}
	s.Source = models.SourceStream
	s.UpdatedAt = t.Timestamp
	return nil
}

// ApplySentiment sets a news-derived score and re-derives the trend.
func (a *Aggregator) ApplySentiment(s *models.StockSnapshot, u models.SentimentUpdate, now time.Time) {
	s.Sentiment.Score = clamp(finite(u.Score), -1, 1)
	s.Sentiment.Sources = max(0, u.Sources)
	s.Sentiment.Confidence = clamp(finite(u.Confidence), 0, 1)
	s.Sentiment.Trend = a.enc.TrendForSentiment(s.Sentiment.Score)
	s.NewsCount = max(0, u.NewsCount)
	s.Source = models.SourceNews
	s.UpdatedAt = now
}

// NormalizeNewSymbol validates a symbol against the existing set.
func (a *Aggregator) NormalizeNewSymbol(symbol string, existing []*models.StockSnapshot) (string, error) {
	sym := models.NormalizeSymbol(symbol)
	if sym == "" {
		return "", fmt.Errorf("%w: empty", models.ErrInvalidSymbol)
	}
	if len(sym) > a.cfg.MaxSymbolLength {
		return "", fmt.Errorf("%w: %q longer than %d characters", models.ErrInvalidSymbol, sym, a.cfg.MaxSymbolLength)
	}
	if IndexOf(existing, sym) >= 0 {
		return "", fmt.Errorf("%w: %s already tracked", models.ErrInvalidSymbol, sym)
	}
	return sym, nil
}

// AddSymbol builds a new simulated snapshot for symbol. The caller appends it.
func (a *Aggregator) AddSymbol(symbol string, existing []*models.StockSnapshot, rng *rand.Rand, now time.Time) (*models.StockSnapshot, error) {
	sym, err := a.NormalizeNewSymbol(symbol, existing)
	if err != nil {
		return nil, err
	}
	price := rng.Float64()*500 + 50
	score := (rng.Float64() - 0.5) * 1.8
	return &models.StockSnapshot{
		Symbol:         sym,
		ChangePercent:  (rng.Float64() - 0.5) * 6,
		Price:          price,
		ReferencePrice: price,
		Volume:         a.SynthesizeVolume(sym, rng),
		Sentiment: models.Sentiment{
			Score:   score,
			Sources: int(rng.Float64()*30) + 5,
			Trend:   a.enc.TrendForSentiment(score),
		},
		Volatility: rng.Float64()*0.8 + 0.1,
		NewsCount:  int(rng.Float64()*25) + 1,
		Active:     true,
		Source:     models.SourceSimulated,
		UpdatedAt:  now,
	}, nil
}

// NewSnapshotFromQuote builds a new snapshot seeded from a live quote, with
// simulated sentiment until news arrives.
func (a *Aggregator) NewSnapshotFromQuote(symbol string, q models.Quote, existing []*models.StockSnapshot, rng *rand.Rand, now time.Time) (*models.StockSnapshot, error) {
	if err := ValidateQuote(q); err != nil {
		return nil, err
	}
	s, err := a.AddSymbol(symbol, existing, rng, now)
	if err != nil {
		return nil, err
	}
	s.ReferencePrice = math.Max(minPrice, q.Price)
	if err := a.ApplyExternalQuote(s, q, rng, now); err != nil {
		return nil, err
	}
	return s, nil
}

// RemoveSymbol returns the snapshots without symbol. Absent symbols are a no-op.
func (a *Aggregator) RemoveSymbol(symbol string, existing []*models.StockSnapshot) []*models.StockSnapshot {
	idx := IndexOf(existing, symbol)
	if idx < 0 {
		return existing
	}
	out := make([]*models.StockSnapshot, 0, len(existing)-1)
	out = append(out, existing[:idx]...)
	return append(out, existing[idx+1:]...)
}

// IndexOf finds a symbol case-insensitively, or -1.
func IndexOf(stocks []*models.StockSnapshot, symbol string) int {
	sym := strings.TrimSpace(symbol)
	for i, s := range stocks {
		if strings.EqualFold(s.Symbol, sym) {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(f float64) float64 {
	if !isFinite(f) {
		return 0
	}
	return f
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
