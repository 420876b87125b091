package models

import "time"

// MarketAggregate summarizes the active stocks.
type MarketAggregate struct {
	OverallSentiment float64   `json:"overallSentiment"`
	RiskLevel        float64   `json:"riskLevel"`
	VolatilityIndex  float64   `json:"volatilityIndex"`
	NewsVolume       int       `json:"newsVolume"`
	ActiveCount      int       `json:"activeCount"`
	LastUpdate       time.Time `json:"lastUpdate"`
}

// Mood labels the overall sentiment.
func (a MarketAggregate) Mood() string {
	switch {
	case a.OverallSentiment > 0.3:
		return "BULLISH"
	case a.OverallSentiment < -0.3:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

// RiskLabel labels the risk level.
func (a MarketAggregate) RiskLabel() string {
	switch {
	case a.RiskLevel > 0.7:
		return "HIGH"
	case a.RiskLevel > 0.4:
		return "MODERATE"
	default:
		return "LOW"
	}
}

// MarketView is the aggregate plus its display labels.
type MarketView struct {
	MarketAggregate
	Mood      string `json:"mood"`
	RiskLabel string `json:"riskLabel"`
}

// View attaches the display labels.
func (a MarketAggregate) View() MarketView {
	return MarketView{MarketAggregate: a, Mood: a.Mood(), RiskLabel: a.RiskLabel()}
}
