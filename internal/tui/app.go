// Package tui provides the interactive Bubble Tea dashboard for a board.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/moneyshape/internal/cli"
	"github.com/theirongolddev/moneyshape/internal/model"
	"github.com/theirongolddev/moneyshape/internal/tui/components"
	"github.com/theirongolddev/moneyshape/internal/tui/theme"
)

// LoadFunc opens, settles and captures the board.
type LoadFunc func() (Board, error)

// BoardLoadedMsg is sent when a load finishes.
type BoardLoadedMsg struct {
	Board Board
	Err   error
}

// BoardChangedMsg is sent when the board file changed on disk.
type BoardChangedMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	load    LoadFunc
	changes <-chan struct{}

	board   Board
	loaded  bool
	loading bool
	err     error

	width     int
	height    int
	activeTab int
	cursor    int
	showHelp  bool

	keys    keyMap
	help    help.Model
	spinner spinner.Model
}

const (
	minContentWidth = 40
	maxContentWidth = 140
)

// NewApp returns the dashboard. changes, when non-nil, triggers a reload
// every time it delivers.
func NewApp(load LoadFunc, changes <-chan struct{}) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	return App{
		load:    load,
		changes: changes,
		loading: true,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.loadCmd(), a.spinner.Tick}
	if a.changes != nil {
		cmds = append(cmds, a.waitForChange())
	}
	return tea.Batch(cmds...)
}

func (a App) loadCmd() tea.Cmd {
	load := a.load
	return func() tea.Msg {
		start := time.Now()
		b, err := load()
		b.LoadTime = time.Since(start)
		return BoardLoadedMsg{Board: b, Err: err}
	}
}

func (a App) waitForChange() tea.Cmd {
	ch := a.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return BoardChangedMsg{}
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case BoardLoadedMsg:
		a.loading = false
		a.err = msg.Err
		if msg.Err == nil {
			a.board = msg.Board
			a.loaded = true
			a.cursor = min(a.cursor, max(len(a.board.Items)-1, 0))
		}
		return a, nil

	case BoardChangedMsg:
		if a.loading {
			return a, a.waitForChange()
		}
		a.loading = true
		return a, tea.Batch(a.loadCmd(), a.spinner.Tick, a.waitForChange())

	case tea.KeyMsg:
		return a.updateKey(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
		return a, nil
	case key.Matches(msg, a.keys.Reload):
		if a.loading {
			return a, nil
		}
		a.loading = true
		return a, tea.Batch(a.loadCmd(), a.spinner.Tick)
	case key.Matches(msg, a.keys.NextTab):
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case key.Matches(msg, a.keys.PrevTab):
		a.activeTab = (a.activeTab + len(components.Tabs) - 1) % len(components.Tabs)
		return a, nil
	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.board.Items)-1 {
			a.cursor++
		}
		return a, nil
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil
	}
	if r := msg.Runes; len(r) == 1 {
		if idx := components.TabIdxByKey(r[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) contentWidth() int {
	w := a.width
	if w == 0 {
		w = 100
	}
	return min(max(w-2, minContentWidth), maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	t := theme.Active
	w := a.contentWidth()

	if !a.loaded {
		if a.err != nil {
			return "\n  " + lipgloss.NewStyle().Foreground(t.Red).Render("Error: "+a.err.Error()) +
				"\n\n  " + a.help.View(a.keys) + "\n"
		}
		return fmt.Sprintf("\n  %s Settling board...\n", a.spinner.View())
	}

	var body string
	switch a.activeTab {
	case components.TabOverview:
		body = a.renderOverview(w)
	case components.TabItems:
		body = a.renderItems(w)
	case components.TabAllocation:
		body = a.renderAllocation(w)
	}

	var b strings.Builder
	b.WriteString(components.RenderTabBar(a.activeTab, w, map[int]int{components.TabAllocation: len(a.board.Gaps)}))
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n")
	if a.err != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(t.Red).Render("  reload failed: "+a.err.Error()) + "\n")
	}
	b.WriteString(a.statusBar(w))
	b.WriteString("\n")
	b.WriteString(" " + a.help.View(a.keys))
	return b.String()
}

func (a App) statusBar(w int) string {
	left := " " + a.board.Name
	if a.loading {
		left += " " + a.spinner.View()
	}
	right := fmt.Sprintf("%d passes · loaded %s ", a.board.Passes, a.board.LoadedAt.Format("15:04:05"))
	return components.RenderStatusBar(w, left, right)
}

func (a App) renderOverview(w int) string {
	t := theme.Active
	var total model.Summary
	currency := ""
	for i, s := range a.board.Summaries {
		total.IncomeTotal += s.IncomeTotal
		total.ExpenseTotal += s.ExpenseTotal
		total.SavingsTotal += s.SavingsTotal
		if i == 0 {
			currency = s.Currency
		} else if s.Currency != currency {
			currency = ""
		}
	}

	left := t.TextPrimary
	if total.Left() < 0 {
		left = t.Orange
	}
	metrics := components.MetricRow([]components.Metric{
		{Label: "Income", Value: cli.FormatMoney(total.IncomeTotal, currency), Color: t.Kind(model.KindIncome)},
		{Label: "Expenses", Value: cli.FormatMoney(total.ExpenseTotal, currency), Color: t.Kind(model.KindExpense)},
		{Label: "Savings", Value: cli.FormatMoney(total.SavingsTotal, currency), Color: t.Kind(model.KindSavings)},
		{Label: "Left", Value: cli.FormatMoney(total.Left(), currency), Hint: leftHint(total), Color: left},
	}, w)

	if len(a.board.Summaries) == 0 {
		return metrics + "\n" + lipgloss.NewStyle().Foreground(t.TextMuted).Render("  No containers on this board.")
	}

	perRow := max(w/34, 1)
	widths := components.LayoutRow(w, min(perRow, len(a.board.Summaries)))
	var rows []string
	var row []string
	for i, s := range a.board.Summaries {
		row = append(row, components.ContentCard(summaryTitle(s), summaryBody(s), widths[len(row)], false))
		if len(row) == len(widths) || i == len(a.board.Summaries)-1 {
			rows = append(rows, components.CardRow(row))
			row = nil
		}
	}
	return metrics + "\n" + strings.Join(rows, "\n")
}

func summaryTitle(s model.Summary) string {
	if s.ContainerName != "" {
		return s.ContainerName
	}
	return s.ContainerID
}

func summaryBody(s model.Summary) string {
	t := theme.Active
	cur := s.Currency
	if s.Mixed {
		cur = ""
	}
	line := func(label string, v float64, c lipgloss.Color) string {
		return fmt.Sprintf("%-9s%s", label, lipgloss.NewStyle().Foreground(c).Render(cli.FormatMoney(v, cur)))
	}
	var lines []string
	if s.HasIncome {
		lines = append(lines, line("Income", s.IncomeTotal, t.Kind(model.KindIncome)))
	}
	if s.HasExpense {
		lines = append(lines, line("Expenses", s.ExpenseTotal, t.Kind(model.KindExpense)))
	}
	if s.HasSavings {
		lines = append(lines, line("Savings", s.SavingsTotal, t.Kind(model.KindSavings)))
	}
	left := t.TextPrimary
	if s.Left() < 0 {
		left = t.Orange
	}
	lines = append(lines, line("Left", s.Left(), left))
	if s.Mixed {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.TextDim).Render("mixed currencies"))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderItems(w int) string {
	t := theme.Active
	if len(a.board.Items) == 0 {
		return components.ContentCard("Items", "No budget items.", w, true)
	}

	inner := components.CardInnerWidth(w)
	nameW := max(inner-44, 10)
	header := lipgloss.NewStyle().Foreground(t.TextMuted).Render(
		fmt.Sprintf("%-*s %-16s %-8s %16s", nameW, "Item", "Container", "Kind", "Amount"))

	lines := []string{header}
	for i, it := range a.board.Items {
		amount := lipgloss.NewStyle().Foreground(t.Kind(it.Kind)).Render(fmt.Sprintf("%16s", cli.FormatMoney(it.Amount, it.Currency)))
		text := fmt.Sprintf("%-*s %-16s %-8s ", nameW, truncate(it.Name, nameW), truncate(it.Container, 16), it.Kind) + amount
		if i == a.cursor {
			text = lipgloss.NewStyle().Background(t.SurfaceHover).Render(text)
		}
		lines = append(lines, text)
	}
	return components.ContentCard(fmt.Sprintf("Items (%d)", len(a.board.Items)), strings.Join(lines, "\n"), w, true)
}

func (a App) renderAllocation(w int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)

	var lines []string
	if len(a.board.Savings) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.TextMuted).Render("No savings items."))
	}
	for _, s := range a.board.Savings {
		label := fmt.Sprintf("%s (%d links)", truncate(s.Name, 18), s.Links)
		lines = append(lines, components.ShareBar(label, s.Share(), 28, max(inner-36, 10)))
	}
	card := components.ContentCard("Allocation", strings.Join(lines, "\n"), w, true)

	if len(a.board.Gaps) == 0 {
		return card
	}
	warn := lipgloss.NewStyle().Foreground(t.Orange)
	var gaps []string
	for _, g := range a.board.Gaps {
		gaps = append(gaps, warn.Render("! "+g))
	}
	return card + "\n" + components.ContentCard("Needs attention", strings.Join(gaps, "\n"), w, false)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// leftHint states what is left as a share of income.
func leftHint(s model.Summary) string {
	if s.IncomeTotal <= 0 {
		return ""
	}
	return fmt.Sprintf("%.0f%% of income", 100*s.Left()/s.IncomeTotal)
}
