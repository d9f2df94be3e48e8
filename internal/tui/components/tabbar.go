package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/moneyshape/internal/tui/theme"
)

// Tab is one dashboard view. Key selects it directly.
type Tab struct {
	Name string
	Key  rune
}

// Tab indexes, in display order.
const (
	TabOverview = iota
	TabItems
	TabAllocation
)

// Tabs lists the dashboard views.
var Tabs = []Tab{
	TabOverview:   {Name: "Overview", Key: 'o'},
	TabItems:      {Name: "Items", Key: 'i'},
	TabAllocation: {Name: "Allocation", Key: 'a'},
}

// RenderTabBar draws the tab strip. badges maps a tab index to a count shown
// after its name; zero counts are hidden.
func RenderTabBar(active, width int, badges map[int]int) string {
	t := theme.Active
	name := lipgloss.NewStyle().Foreground(t.TextMuted)
	key := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	bracket := lipgloss.NewStyle().Foreground(t.TextDim)
	badge := lipgloss.NewStyle().Foreground(t.Orange).Bold(true)

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		var s string
		if i == active {
			s = lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Underline(true).Render(tab.Name)
		} else {
			s = bracket.Render("[") + key.Render(tab.Name[:1]) + bracket.Render("]") + name.Render(tab.Name[1:])
		}
		if n := badges[i]; n > 0 {
			s += " " + badge.Render(fmt.Sprintf("(%d)", n))
		}
		parts = append(parts, s)
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(" " + strings.Join(parts, "  "))
}

// TabIdxByKey maps a shortcut key to its tab, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
