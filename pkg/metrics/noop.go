package metrics

import "StockHolo/internal/domain/models"

// Noop discards all measurements.
type Noop struct{}

func (Noop) RecordError(string) {}
func (Noop) RecordLatency(string, float64) {}
func (Noop) RecordLastPrice(string, float64) {}
func (Noop) RecordAggregate(models.MarketAggregate) {}
func (Noop) RecordFrame(string, int) {}
