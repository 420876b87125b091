package encoder

import (
	"fmt"
	"math"

	"StockHolo/internal/domain/models"
)

// Trend policies.
const (
	PolicyFiveBucket = "five_bucket"
	PolicyFourBucket = "four_bucket"
)

const (
	minScale      = 0.3
	maxScale      = 3.0
	baseParticles = 150
	labelAlpha    = 0.3
)

// Config tunes the encoder. The zero value is the default encoder.
type Config struct {
	// NeutralBandWidth is the |score| below which a stock renders white.
	NeutralBandWidth float64 `yaml:"neutral_band_width" validate:"gte=0,lt=1"`
	TrendPolicy      string  `yaml:"trend_policy" default:"five_bucket" validate:"oneof=five_bucket four_bucket"`
}

// Encoder maps stock state to render-ready visual values. It is pure and safe
// for concurrent use.
type Encoder struct {
	band   float64
	policy string
}

// New creates an encoder. Invalid settings fall back to defaults.
func New(cfg Config) *Encoder {
	band := finite(cfg.NeutralBandWidth)
	if band < 0 || band >= 1 {
		band = 0
	}
	policy := cfg.TrendPolicy
	if policy != PolicyFourBucket {
		policy = PolicyFiveBucket
	}
	return &Encoder{band: band, policy: policy}
}

// Default returns the five-bucket encoder with no neutral band.
func Default() *Encoder { return New(Config{}) }

// Policy returns the active trend policy name.
func (e *Encoder) Policy() string { return e.policy }

// ColorForSentiment maps a score in [-1,1] to a red/white/green color.
func (e *Encoder) ColorForSentiment(score float64) models.Color {
	s := clamp(sanitize(score), -1, 1)
	abs := math.Abs(s)
	if abs == 0 || abs <= e.band {
		return models.White
	}
	intensity := abs
	if e.band > 0 {
		intensity = (abs - e.band) / (1 - e.band)
	}
	fade := 1 - intensity
	if s < 0 {
		return models.Color{R: 1, G: fade, B: fade}
	}
	return models.Color{R: fade, G: 1, B: fade}
}

// TrendForSentiment buckets a score with the configured policy.
func (e *Encoder) TrendForSentiment(score float64) models.Trend {
	s := sanitize(score)
	if e.policy == PolicyFourBucket {
		switch {
		case s > 0.5:
			return models.TrendVeryBullish
		case s > 0:
			return models.TrendBullish
		case s > -0.5:
			return models.TrendNeutral
		default:
			return models.TrendBearish
		}
	}
	switch {
	case s > 0.3:
		return models.TrendVeryBullish
	case s > 0.1:
		return models.TrendBullish
	case s > -0.1:
		return models.TrendNeutral
	case s > -0.3:
		return models.TrendBearish
	default:
		return models.TrendVeryBearish
	}
}

// ScaleForPriceRatio is current/reference clamped to [0.3, 3.0].
func (e *Encoder) ScaleForPriceRatio(current, reference float64) float64 {
	current, reference = sanitize(current), sanitize(reference)
	ratio := current / reference
	if reference <= 0 || math.IsNaN(ratio) {
		return 1
	}
	return clamp(ratio, minScale, maxScale)
}

// MaxPulse is the pulse envelope for a volatility: v*(0.1+0.2v), at most 0.3.
func (e *Encoder) MaxPulse(volatility float64) float64 {
	v := clamp(sanitize(volatility), 0, 1)
	return v * (0.1 + v*0.2)
}

// PulseAmplitude is the signed pulse offset at time t (seconds) for a stock
// whose phase is usually its position index.
func (e *Encoder) PulseAmplitude(volatility, t, phase float64) float64 {
	v := clamp(sanitize(volatility), 0, 1)
	if v == 0 {
		return 0
	}
	return math.Sin(finite(t)*(2.5+v*2.5)+finite(phase)) * e.MaxPulse(v)
}

// Particles is the particle budget for a stock's aura.
func (e *Encoder) Particles(sources int) int {
	if sources < 0 {
		sources = 0
	}
	return baseParticles + sources*3
}

// Encode derives the full visual for a stock at position index and time t.
func (e *Encoder) Encode(s *models.StockSnapshot, index int, t float64) models.Visual {
	color := e.ColorForSentiment(s.Sentiment.Score)
	return models.Visual{
		Index:          index,
		Symbol:         s.Symbol,
		Color:          color,
		RGB:            color.RGB255(),
		Hex:            color.Hex(),
		LabelBG:        color.CSS(labelAlpha),
		SizeScale:      e.ScaleForPriceRatio(s.Price, s.ReferencePrice),
		PulseAmplitude: e.PulseAmplitude(s.Volatility, t, float64(index)),
		MaxPulse:       e.MaxPulse(s.Volatility),
		Particles:      e.Particles(s.Sentiment.Sources),
		Trend:          e.TrendForSentiment(s.Sentiment.Score),
		Label:          Label(s),
	}
}

// EncodeAll encodes the given stocks in order.
func (e *Encoder) EncodeAll(stocks []*models.StockSnapshot, t float64) []models.Visual {
	out := make([]models.Visual, 0, len(stocks))
	for i, s := range stocks {
		out = append(out, e.Encode(s, i, t))
	}
	return out
}

// Label is the text drawn under a stock.
func Label(s *models.StockSnapshot) string {
	sign := ""
	if s.ChangePercent >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s $%.2f %s%.2f%%", s.Symbol, s.Price, sign, s.ChangePercent)
}

// sanitize maps NaN to zero; infinities are left for clamp.
func sanitize(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
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
