package replay

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/history"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/rules"
	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/smoothing"
)

var sparkBlocks = []rune{'\u2581', '\u2582', '\u2583', '\u2584', '\u2585', '\u2586', '\u2587', '\u2588'}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78"))
)

// SignalColor picks the display color of an escalation level.
func SignalColor(s rules.Signal) lipgloss.Color {
	switch s {
	case rules.SignalCritical:
		return lipgloss.Color("196") // red
	case rules.SignalSuboptimal:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// Sparkline renders values scaled to [lo, hi], keeping the newest width points.
func Sparkline(values []float64, width int, lo, hi float64) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return dimStyle.Render(strings.Repeat("\u254C", width))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	var sb strings.Builder
	for _, v := range values {
		norm := math.Max(0, math.Min(1, (v-lo)/span))
		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}
		sb.WriteRune(sparkBlocks[idx])
	}
	return sb.String()
}

func cell(s string, w int) string {
	return lipgloss.NewStyle().Width(w).MaxWidth(w).Render(s)
}

// Render draws the decision table followed by the moisture, SMA and EMA
// sparklines of the final history window.
func Render(steps []Step, h history.Snapshot, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Replayed %d snapshots", len(steps))))
	b.WriteString("\n\n")

	widths := []int{6, 32, 22, 7, 12, 8, 8}
	heads := []string{"line", "watering", "shading", "alert", "escalation", "sma", "ema"}
	row := make([]string, len(heads))
	for i, hd := range heads {
		row[i] = headerStyle.Render(cell(hd, widths[i]))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
	b.WriteString("\n")

	for _, s := range steps {
		if s.Err != nil {
			b.WriteString(cell(fmt.Sprint(s.Line), widths[0]))
			b.WriteString(errStyle.Render("rejected: " + s.Err.Error()))
			b.WriteString("\n")
			continue
		}
		alert := fmt.Sprintf("%v/%d", s.Evaluation.Alert, s.Evaluation.AlertCount)
		esc := lipgloss.NewStyle().Foreground(SignalColor(s.Escalation)).Render(cell(string(s.Escalation), widths[4]))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			cell(fmt.Sprint(s.Line), widths[0]),
			cell(s.Evaluation.Watering.Message, widths[1]),
			cell(string(s.Evaluation.Shading), widths[2]),
			cell(alert, widths[3]),
			esc,
			cell(fmt.Sprintf("%.2f", s.SMA), widths[5]),
			cell(fmt.Sprintf("%.2f", s.EMA), widths[6]),
		))
		b.WriteString("\n")
	}

	sma := smoothing.SimpleMovingAverage(h.Moisture)
	ema := smoothing.ExponentialMovingAverage(h.Moisture)
	b.WriteString("\n")
	for _, line := range []struct {
		name string
		vals []float64
	}{{"moisture", h.Moisture}, {"sma", sma}, {"ema", ema}} {
		b.WriteString(cell(line.name, 10))
		b.WriteString(Sparkline(line.vals, width, 0, 100))
		b.WriteString("\n")
	}
	return b.String()
}
