package model

import (
	"math"
	"sort"
	"strings"
)

// Aggregate holds the totals of one container subtree.
type Aggregate struct {
	Total        float64
	Count        int
	IncomeTotal  float64
	ExpenseTotal float64
	SavingsTotal float64
	IncomeCount  int
	ExpenseCount int
	SavingsCount int
	// Currencies is the sorted set of distinct non-blank currency tags, trimmed.
	Currencies []string
}

// Add folds amount of the given kind into the totals. Negative and
// non-finite amounts count as zero.
func (a *Aggregate) Add(kind Kind, amount float64, currency string) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	switch kind {
	case KindIncome:
		a.IncomeTotal += amount
		a.IncomeCount++
	case KindExpense:
		a.ExpenseTotal += amount
		a.ExpenseCount++
	case KindSavings:
		a.SavingsTotal += amount
		a.SavingsCount++
	default:
		return
	}
	a.Total += amount
	a.Count++
	a.addCurrency(currency)
}

func (a *Aggregate) addCurrency(c string) {
	c = strings.TrimSpace(c)
	if c == "" {
		return
	}
	i := sort.SearchStrings(a.Currencies, c)
	if i < len(a.Currencies) && a.Currencies[i] == c {
		return
	}
	a.Currencies = append(a.Currencies, "")
	copy(a.Currencies[i+1:], a.Currencies[i:])
	a.Currencies[i] = c
}

// Currency returns the single currency tag seen. mixed is true when more
// than one distinct tag was seen, in which case tag is empty.
func (a Aggregate) Currency() (tag string, mixed bool) {
	switch len(a.Currencies) {
	case 0:
		return "", false
	case 1:
		return a.Currencies[0], false
	}
	return "", true
}

// Left returns savings + income - expense.
func (a Aggregate) Left() float64 {
	return a.SavingsTotal + a.IncomeTotal - a.ExpenseTotal
}

// HasContent reports whether any budget item contributed.
func (a Aggregate) HasContent() bool { return a.Count > 0 }

// Summary converts the totals into summary props for containerID.
func (a Aggregate) Summary(containerID, containerName string) Summary {
	tag, mixed := a.Currency()
	return Summary{
		ContainerID:   containerID,
		ContainerName: containerName,
		IncomeTotal:   a.IncomeTotal,
		ExpenseTotal:  a.ExpenseTotal,
		SavingsTotal:  a.SavingsTotal,
		Currency:      tag,
		Mixed:         mixed,
		HasIncome:     a.IncomeCount > 0,
		HasExpense:    a.ExpenseCount > 0,
		HasSavings:    a.SavingsCount > 0,
	}
}
