// Package components provides reusable TUI widgets for the moneyshape dashboard.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/moneyshape/internal/tui/theme"
)

// minCardWidth keeps narrow terminals from collapsing a card's border.
const minCardWidth = 10

// LayoutRow splits total into n column widths that add up to total.
// Leading columns take the remainder.
func LayoutRow(total, n int) []int {
	if n <= 0 {
		return nil
	}
	widths := make([]int, n)
	for i := range widths {
		widths[i] = total / n
	}
	for i := 0; i < total%n; i++ {
		widths[i]++
	}
	return widths
}

// frame is the rounded border shared by every card. outer includes the border.
func frame(border lipgloss.Color, outer int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(max(outer-2, minCardWidth)).
		Padding(0, 1)
}

// Metric is one headline figure on the overview.
type Metric struct {
	Label string
	Value string
	Hint  string         // optional muted line under the value
	Color lipgloss.Color // empty means primary text
}

func (m Metric) render(outer int) string {
	t := theme.Active
	color := m.Color
	if color == "" {
		color = t.TextPrimary
	}
	lines := []string{
		lipgloss.NewStyle().Foreground(t.TextMuted).Render(m.Label),
		lipgloss.NewStyle().Foreground(color).Bold(true).Render(m.Value),
	}
	if m.Hint != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.TextDim).Render(m.Hint))
	}
	return frame(t.Border, outer).Render(strings.Join(lines, "\n"))
}

// MetricRow lays metrics out side by side across total columns. Cards in a
// row share the height of the tallest one.
func MetricRow(metrics []Metric, total int) string {
	if len(metrics) == 0 {
		return ""
	}
	widths := LayoutRow(total, len(metrics))
	cells := make([]string, len(metrics))
	tallest := 0
	for i, m := range metrics {
		cells[i] = m.render(widths[i])
		tallest = max(tallest, lipgloss.Height(cells[i]))
	}
	for i, m := range metrics {
		if lipgloss.Height(cells[i]) < tallest {
			pad := m
			pad.Hint = " "
			cells[i] = pad.render(widths[i])
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// ContentCard renders body in a titled card. A focused card uses the
// accent border.
func ContentCard(title, body string, outer int, focused bool) string {
	t := theme.Active
	border := t.Border
	if focused {
		border = t.BorderAccent
	}
	if title != "" {
		body = lipgloss.NewStyle().Foreground(t.TextMuted).Bold(true).Render(title) + "\n" + body
	}
	return frame(border, outer).Render(body)
}

// CardRow joins rendered cards left to right.
func CardRow(cards []string) string {
	if len(cards) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// CardInnerWidth is the text width left inside a card of the given outer width.
func CardInnerWidth(outer int) int {
	return max(outer-4, minCardWidth)
}
