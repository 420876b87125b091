package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"StockHolo/internal/domain/models"
	domrepo "StockHolo/internal/domain/repository"
	mid "StockHolo/internal/middleware"
	pkgkafka "StockHolo/pkg/kafka"
)

// QuotesHandler feeds quotes from a Kafka topic into the quote pipeline.
type QuotesHandler struct {
	topic    string
	pipeline *mid.QuotePipeline
	metrics  domrepo.Metrics
}

func NewQuotesHandler(topic string, pipeline *mid.QuotePipeline, metrics domrepo.Metrics) *QuotesHandler {
	return &QuotesHandler{topic: topic, pipeline: pipeline, metrics: metrics}
}

func (h *QuotesHandler) Topic() string { return h.topic }

// quoteMessage is the wire schema of the quotes topic. t is unix seconds or
// milliseconds.
type quoteMessage struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PrevClose     float64 `json:"prevClose"`
	Volume        int64   `json:"volume"`
	T             int64   `json:"t"`
}

// Handle decodes one quote. Throttled updates are dropped; every other
// failure is permanent.
func (h *QuotesHandler) Handle(ctx context.Context, b []byte) error {
	var m quoteMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	}
	ts := time.Now()
	if m.T > 0 {
		if m.T > 1e11 { // ms
			ts = time.UnixMilli(m.T)
		} else {
			ts = time.Unix(m.T, 0)
		}
		h.metrics.RecordLatency("quote_e2e", time.Since(ts).Seconds())
	}

	err := h.pipeline.ProcessQuote(ctx, models.Quote{
		Symbol:        m.Symbol,
		Price:         m.Price,
		ChangePercent: m.ChangePercent,
		High:          m.High,
		Low:           m.Low,
		Open:          m.Open,
		PrevClose:     m.PrevClose,
		Volume:        m.Volume,
		Timestamp:     ts,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mid.ErrThrottled):
		return nil
	default:
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	}
}

var _ pkgkafka.MessageHandler = (*QuotesHandler)(nil)
