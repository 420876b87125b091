package models

import (
	"fmt"
	"math"
	"time"
)

// Color is a normalized RGB triple, each channel in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// White is the neutral color.
var White = Color{R: 1, G: 1, B: 1}

// RGB255 converts to 0-255 channels by rounding.
func (c Color) RGB255() [3]uint8 {
	return [3]uint8{to255(c.R), to255(c.G), to255(c.B)}
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	rgb := c.RGB255()
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

// CSS renders the color as an rgba() string.
func (c Color) CSS(alpha float64) string {
	rgb := c.RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", rgb[0], rgb[1], rgb[2], alpha)
}

func to255(f float64) uint8 {
	if f <= 0 || math.IsNaN(f) {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(math.Round(f * 255))
}

// Visual is the per-stock payload consumed by render surfaces.
type Visual struct {
	Index          int      `json:"positionIndex"`
	Symbol         string   `json:"symbol"`
	Color          Color    `json:"color"`
	RGB            [3]uint8 `json:"rgb"`
	Hex            string   `json:"hex"`
	LabelBG        string   `json:"labelBackground"`
	SizeScale      float64  `json:"sizeScale"`
	PulseAmplitude float64  `json:"pulseAmplitude"`
	MaxPulse       float64  `json:"maxPulse"`
	Particles      int      `json:"particles"`
	Trend          Trend    `json:"trend"`
	Label          string   `json:"labelText"`
}

// Frame is one full re-derivation of every active stock's visual.
type Frame struct {
	Seq         uint64          `json:"seq"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Elapsed     float64         `json:"t"`
	Aggregate   MarketAggregate `json:"aggregate"`
	Visuals     []Visual        `json:"visuals"`
}
