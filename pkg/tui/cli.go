// Package tui renders report sections to the terminal.
// Simple streaming output - clean styles, no interactive TUI.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/schedlens/schedlens/pkg/report"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF6600")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// NewProgress creates a spinner-style progress indicator for an
// analysis pass where the total line count is unknown upfront.
func NewProgress(label string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription(mutedStyle.Render(label)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

// RenderSections prints the report to the terminal in section order.
func RenderSections(sections []report.Section) {
	for _, s := range sections {
		fmt.Println()
		fmt.Println(accentStyle.Render("▸ " + strings.ToUpper(s.Title)))

		switch s.Kind {
		case report.KindNarrative:
			fmt.Println(wrapIndent(s.Text))
		case report.KindTable:
			renderTable(s.Table)
		case report.KindChartData:
			renderChart(s.Chart)
		case report.KindImageRef:
			fmt.Printf("  %s %s\n", mutedStyle.Render("image:"), s.Image.Path)
			fmt.Printf("  %s %s\n", mutedStyle.Render("captured:"),
				s.Image.CapturedAt.Format("2006-01-02 15:04:05"))
		}
	}
	fmt.Println()
}

// Success prints a completion message.
func Success(msg string) {
	fmt.Println(successStyle.Render("✓ " + msg))
}

func renderTable(t *report.Table) {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	for _, row := range t.Rows {
		for i, v := range row {
			if i < len(widths) && len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var header strings.Builder
	header.WriteString("  ")
	for i, c := range t.Columns {
		header.WriteString(pad(c, widths[i]))
		header.WriteString("  ")
	}
	fmt.Println(titleStyle.Render(header.String()))

	for _, row := range t.Rows {
		var line strings.Builder
		line.WriteString("  ")
		for i, v := range row {
			line.WriteString(pad(v, widths[i]))
			line.WriteString("  ")
		}
		fmt.Println(line.String())
	}
}

// renderChart draws a modest unicode bar chart of the trend series.
func renderChart(c *report.ChartSeries) {
	if len(c.Points) == 0 {
		fmt.Println(mutedStyle.Render("  (no data)"))
		return
	}
	var max int64
	for _, pt := range c.Points {
		if pt.Count > max {
			max = pt.Count
		}
	}
	const barWidth = 40
	for _, pt := range c.Points {
		n := int(pt.Count * barWidth / max)
		fmt.Printf("  %12d %s %d\n", pt.Bucket,
			accentStyle.Render(strings.Repeat("█", n)), pt.Count)
	}
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func wrapIndent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
