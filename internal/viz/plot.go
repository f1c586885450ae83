package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	plotTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	summaryStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 2)
)

// PlotSeries renders a time series as a terminal chart with a styled title.
func PlotSeries(title string, series []float64, width, height int) string {
	if len(series) < 2 {
		return ""
	}
	chart := asciigraph.Plot(series, asciigraph.Width(width), asciigraph.Height(height))
	return plotTitleStyle.Render(title) + "\n" + chart + "\n"
}

// Summary renders labeled values in a bordered block.
func Summary(rows [][2]string) string {
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(labelStyle.Render(r[0]))
		b.WriteString(valueStyle.Render(r[1]))
	}
	return summaryStyle.Render(b.String())
}
