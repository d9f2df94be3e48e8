// Package model defines the board objects shared by the moneyshape engine and its hosts.
package model

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// Type identifies what an object on a board represents.
type Type string

const (
	TypeItem      Type = "budget-item"
	TypeContainer Type = "container"
	TypeLink      Type = "allocation-link"
	TypeSummary   Type = "summary"
)

// Kind is the money direction of a budget item.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
	KindSavings Kind = "savings"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindSavings:
		return true
	}
	return false
}

// Bounds is an axis-aligned page-space rectangle.
type Bounds struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// MaxX returns the right edge.
func (b Bounds) MaxX() float64 { return b.X + b.W }

// MaxY returns the bottom edge.
func (b Bounds) MaxY() float64 { return b.Y + b.H }

// Area returns W*H.
func (b Bounds) Area() float64 { return b.W * b.H }

// Same reports whether two rectangles are equal within Epsilon.
func (b Bounds) Same(o Bounds) bool {
	return Same(b.X, o.X) && Same(b.Y, o.Y) && Same(b.W, o.W) && Same(b.H, o.H)
}

// Item holds the props of a budget block.
type Item struct {
	Amount            float64 `json:"amount" yaml:"amount"`
	Currency          string  `json:"currency,omitempty" yaml:"currency,omitempty"`
	Kind              Kind    `json:"kind" yaml:"kind"`
	Name              string  `json:"name,omitempty" yaml:"name,omitempty"`
	SourceContainerID string  `json:"sourceContainerId,omitempty" yaml:"sourceContainerId,omitempty"`
}

// Container holds the props of a grouping frame.
type Container struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Link is a directed allocation edge. A remainder link is managed by the
// engine; it starts at its item and has no target.
type Link struct {
	From      string `json:"from" yaml:"from"`
	To        string `json:"to,omitempty" yaml:"to,omitempty"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	Remainder bool   `json:"remainder,omitempty" yaml:"remainder,omitempty"`
}

// Summary is the derived totals display attached to one container.
type Summary struct {
	ContainerID        string  `json:"containerId" yaml:"containerId"`
	ContainerName      string  `json:"containerName,omitempty" yaml:"containerName,omitempty"`
	IncomeTotal        float64 `json:"incomeTotal" yaml:"incomeTotal"`
	ExpenseTotal       float64 `json:"expenseTotal" yaml:"expenseTotal"`
	SavingsTotal       float64 `json:"savingsTotal" yaml:"savingsTotal"`
	Currency           string  `json:"currency,omitempty" yaml:"currency,omitempty"`
	Mixed              bool    `json:"mixed,omitempty" yaml:"mixed,omitempty"`
	HasIncome          bool    `json:"hasIncome,omitempty" yaml:"hasIncome,omitempty"`
	HasExpense         bool    `json:"hasExpense,omitempty" yaml:"hasExpense,omitempty"`
	HasSavings         bool    `json:"hasSavings,omitempty" yaml:"hasSavings,omitempty"`
	ManuallyPositioned bool    `json:"manuallyPositioned,omitempty" yaml:"manuallyPositioned,omitempty"`
}

// Left is what remains after expenses: savings + income - expense.
func (s Summary) Left() float64 {
	return s.SavingsTotal + s.IncomeTotal - s.ExpenseTotal
}

// SameTotals compares everything the engine derives, ignoring placement state.
func (s Summary) SameTotals(o Summary) bool {
	return s.ContainerID == o.ContainerID &&
		s.ContainerName == o.ContainerName &&
		Same(s.IncomeTotal, o.IncomeTotal) &&
		Same(s.ExpenseTotal, o.ExpenseTotal) &&
		Same(s.SavingsTotal, o.SavingsTotal) &&
		s.Currency == o.Currency &&
		s.Mixed == o.Mixed &&
		s.HasIncome == o.HasIncome &&
		s.HasExpense == o.HasExpense &&
		s.HasSavings == o.HasSavings
}

// Object is one node of the board tree. Exactly one of the prop pointers
// matching Type is set.
type Object struct {
	ID        string     `json:"id" yaml:"id"`
	Type      Type       `json:"type" yaml:"type"`
	ParentID  string     `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Bounds    Bounds     `json:"bounds" yaml:"bounds"`
	Item      *Item      `json:"item,omitempty" yaml:"item,omitempty"`
	Container *Container `json:"container,omitempty" yaml:"container,omitempty"`
	Link      *Link      `json:"link,omitempty" yaml:"link,omitempty"`
	Summary   *Summary   `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Clone returns a deep copy.
func (o Object) Clone() Object {
	c := o
	if o.Item != nil {
		v := *o.Item
		c.Item = &v
	}
	if o.Container != nil {
		v := *o.Container
		c.Container = &v
	}
	if o.Link != nil {
		v := *o.Link
		c.Link = &v
	}
	if o.Summary != nil {
		v := *o.Summary
		c.Summary = &v
	}
	return c
}

// IsSavings reports whether o is a savings budget item.
func (o Object) IsSavings() bool {
	return o.Type == TypeItem && o.Item != nil && o.Item.Kind == KindSavings
}

// Name returns a display name for items and containers.
func (o Object) Name() string {
	switch {
	case o.Item != nil:
		return o.Item.Name
	case o.Container != nil:
		return o.Container.Name
	case o.Summary != nil:
		return o.Summary.ContainerName
	}
	return ""
}

var idPrefixes = map[Type]string{
	TypeItem:      "item",
	TypeContainer: "container",
	TypeLink:      "link",
	TypeSummary:   "summary",
}

// NewID returns a fresh id such as "item:<uuid>".
func NewID(t Type) string {
	prefix, ok := idPrefixes[t]
	if !ok {
		prefix = strings.ReplaceAll(string(t), "-", "")
	}
	return prefix + ":" + uuid.NewString()
}

// Epsilon is the tolerance used when comparing derived amounts and lengths.
const Epsilon = 1e-6

// Same reports whether a and b differ by less than Epsilon.
func Same(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}
