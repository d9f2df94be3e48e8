package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/moneyshape/internal/tui/theme"
)

// ColorForShare returns the bar color for how much of an item is allocated:
// orange while money is left, green when complete, red when over.
func ColorForShare(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct > 1.0001:
		return t.Red
	case pct >= 0.9999:
		return t.Green
	default:
		return t.Orange
	}
}

// ShareBar renders a labeled allocation bar.
func ShareBar(label string, pct float64, labelW, barWidth int) string {
	t := theme.Active
	color := ColorForShare(pct)
	shown := min(max(pct, 0), 1)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) + " " +
		bar.ViewAs(shown) + " " +
		pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100))
}
