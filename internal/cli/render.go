package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/moneyshape/internal/model"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	incomeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	expenseStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	savingsStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Separator is a row value that draws a rule across the table.
const Separator = "---"

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table. The first column is left aligned,
// the others, which hold amounts, right aligned.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		measure := func(row []string) {
			for i, cell := range row {
				if i < numCols && lipgloss.Width(cell) > widths[i] {
					widths[i] = lipgloss.Width(cell)
				}
			}
		}
		measure(t.Headers)
		for _, row := range t.Rows {
			if !isSeparator(row) {
				measure(row)
			}
		}
	}

	rule := func(left, mid, right string) string {
		parts := make([]string, numCols)
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return dimStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
	}
	line := func(row []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pad := strings.Repeat(" ", max(widths[i]-lipgloss.Width(cell), 0))
			if i == 0 {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			b.WriteString(dimStyle.Render("│"))
		}
		return b.String() + "\n"
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, headerStyle))
		b.WriteString(rule("├", "┼", "┤"))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			b.WriteString(rule("├", "┼", "┤"))
			continue
		}
		b.WriteString(line(row, valueStyle))
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == Separator
}

// SummaryTable lays out container summaries with a totals row when there
// is more than one.
func SummaryTable(sums []model.Summary) Table {
	t := Table{Headers: []string{"Container", "Income", "Expense", "Savings", "Left"}}
	var total model.Summary
	currencies := map[string]bool{}
	for _, s := range sums {
		name := s.ContainerName
		if name == "" {
			name = s.ContainerID
		}
		cur := s.Currency
		if s.Mixed {
			cur = ""
		}
		t.Rows = append(t.Rows, []string{
			name,
			FormatMoney(s.IncomeTotal, cur),
			FormatMoney(s.ExpenseTotal, cur),
			FormatMoney(s.SavingsTotal, cur),
			FormatMoney(s.Left(), cur),
		})
		total.IncomeTotal += s.IncomeTotal
		total.ExpenseTotal += s.ExpenseTotal
		total.SavingsTotal += s.SavingsTotal
		currencies[cur] = true
	}
	if len(sums) > 1 {
		cur := ""
		if len(currencies) == 1 {
			for c := range currencies {
				cur = c
			}
		}
		t.Rows = append(t.Rows, []string{Separator}, []string{
			"Total",
			FormatMoney(total.IncomeTotal, cur),
			FormatMoney(total.ExpenseTotal, cur),
			FormatMoney(total.SavingsTotal, cur),
			FormatMoney(total.Left(), cur),
		})
	}
	return t
}

// RenderSummaryCard renders one summary the way it sits on the board.
func RenderSummaryCard(s model.Summary) string {
	cur := s.Currency
	if s.Mixed {
		cur = ""
	}
	name := s.ContainerName
	if name == "" {
		name = s.ContainerID
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(name) + "\n")
	if s.HasIncome {
		b.WriteString(fmt.Sprintf("%-9s %s\n", "Income", incomeStyle.Render(FormatMoney(s.IncomeTotal, cur))))
	}
	if s.HasExpense {
		b.WriteString(fmt.Sprintf("%-9s %s\n", "Expenses", expenseStyle.Render(FormatMoney(s.ExpenseTotal, cur))))
	}
	if s.HasSavings {
		b.WriteString(fmt.Sprintf("%-9s %s\n", "Savings", savingsStyle.Render(FormatMoney(s.SavingsTotal, cur))))
	}
	left := s.Left()
	style := valueStyle
	if left < 0 {
		style = warnStyle
	}
	b.WriteString(fmt.Sprintf("%-9s %s", "Left", style.Render(FormatMoney(left, cur))))
	if s.Mixed {
		b.WriteString("\n" + mutedStyle.Render("mixed currencies"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		Render(b.String())
}

// RenderWarnings renders one highlighted line per message.
func RenderWarnings(msgs []string) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString("  " + warnStyle.Render("! "+m) + "\n")
	}
	return b.String()
}

// RenderMuted renders s in the muted text color.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}

// RenderProgressBar renders a simple text progress bar.
func RenderProgressBar(current, total int, width int) string {
	if total <= 0 {
		return ""
	}

	pct := min(float64(current)/float64(total), 1)
	filled := min(int(pct*float64(width)), width)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s/%s",
		mutedStyle.Render(bar),
		FormatNumber(int64(current)),
		FormatNumber(int64(total)),
	)
}
