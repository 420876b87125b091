package metrics

import (
	"StockHolo/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	market       *prometheus.GaugeVec
	framesTotal  *prometheus.CounterVec
	frameVisuals *prometheus.GaugeVec
}

// New registers the collectors with reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockholo_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockholo_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockholo_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		market: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockholo_market",
				Help: "Market aggregate values",
			},
			[]string{"field"},
		),
		framesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockholo_frames_rendered_total",
				Help: "Frames delivered per render surface",
			},
			[]string{"surface"},
		),
		frameVisuals: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockholo_frame_visuals",
				Help: "Visuals in the last frame per render surface",
			},
			[]string{"surface"},
		),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordAggregate(a models.MarketAggregate) {
	r.market.WithLabelValues("overall_sentiment").Set(a.OverallSentiment)
	r.market.WithLabelValues("risk_level").Set(a.RiskLevel)
	r.market.WithLabelValues("news_volume").Set(float64(a.NewsVolume))
	r.market.WithLabelValues("active_stocks").Set(float64(a.ActiveCount))
}

func (r *Recorder) RecordFrame(surface string, visuals int) {
	r.framesTotal.WithLabelValues(surface).Inc()
	r.frameVisuals.WithLabelValues(surface).Set(float64(visuals))
}

// ForgetSymbol drops the per-symbol series of a removed stock.
func (r *Recorder) ForgetSymbol(symbol string) {
	r.lastPrice.DeleteLabelValues(symbol)
}
