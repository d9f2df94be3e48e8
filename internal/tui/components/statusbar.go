package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/moneyshape/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar with left and right text.
func RenderStatusBar(width int, left, right string) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Active.TextMuted).
		Width(width)

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return style.Render(left + strings.Repeat(" ", padding) + right)
}
