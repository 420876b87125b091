package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"StockHolo/internal/domain/models"
	drepo "StockHolo/internal/domain/repository"

	"github.com/charmbracelet/lipgloss"
)

var (
	borderColor = lipgloss.Color("#374151")
	titleColor  = lipgloss.Color("#7C3AED")
	mutedColor  = lipgloss.Color("#9CA3AF")
	bullColor   = lipgloss.Color("#10B981")
	bearColor   = lipgloss.Color("#EF4444")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(titleColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mutedColor)
)

// Console renders frames as a lipgloss table to a writer, at most once per
// interval.
type Console struct {
	w        io.Writer
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	last    time.Time
	lastSeq uint64
}

// NewConsole creates a console surface.
func NewConsole(w io.Writer, interval time.Duration) *Console {
	return &Console{w: w, interval: interval, now: time.Now}
}

var _ drepo.RenderSurface = (*Console)(nil)

func (c *Console) Name() string { return "console" }

// Render draws f unless it is stale or the interval has not elapsed.
func (c *Console) Render(_ context.Context, f models.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if f.Seq <= c.lastSeq || (!c.last.IsZero() && now.Sub(c.last) < c.interval) {
		return nil
	}
	c.last, c.lastSeq = now, f.Seq
	_, err := fmt.Fprintln(c.w, RenderFrame(f))
	return err
}

// RenderFrame draws the market header and one row per visual.
func RenderFrame(f models.Frame) string {
	view := f.Aggregate.View()
	moodColor := mutedColor
	switch view.Mood {
	case "BULLISH":
		moodColor = bullColor
	case "BEARISH":
		moodColor = bearColor
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("StockHolo #%d", f.Seq)))
	b.WriteString("  ")
	b.WriteString(lipgloss.NewStyle().Foreground(moodColor).Bold(true).Render(view.Mood))
	b.WriteString(headerStyle.Render(fmt.Sprintf("  risk %s  news %d  active %d",
		view.RiskLabel, f.Aggregate.NewsVolume, f.Aggregate.ActiveCount)))
	b.WriteString("\n\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-3s %-24s %-6s %-14s %s", "", "LABEL", "SCALE", "TREND", "PARTICLES")))
	for _, v := range f.Visuals {
		b.WriteString("\n")
		b.WriteString(Swatch(v))
	}
	return panelStyle.Render(b.String())
}

// Swatch is one colored row for a visual.
func Swatch(v models.Visual) string {
	block := lipgloss.NewStyle().Background(lipgloss.Color(v.Hex)).Render("   ")
	label := lipgloss.NewStyle().Foreground(lipgloss.Color(v.Hex)).Render(fmt.Sprintf("%-24s", v.Label))
	return fmt.Sprintf("%s %s %-6.2f %-14s %d", block, label, v.SizeScale, v.Trend, v.Particles)
}
