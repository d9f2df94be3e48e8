package tui

import (
	"sort"
	"time"

	"github.com/theirongolddev/moneyshape/internal/allocation"
	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/model"
	"github.com/theirongolddev/moneyshape/internal/pipeline"
)

// Board is the immutable state the dashboard renders.
type Board struct {
	Name      string
	Path      string
	Summaries []model.Summary
	Items     []ItemRow
	Savings   []SavingsRow
	Gaps      []string
	Passes    int
	LoadedAt  time.Time
	LoadTime  time.Duration
}

// ItemRow is one budget item.
type ItemRow struct {
	ID        string
	Name      string
	Container string
	Kind      model.Kind
	Amount    float64
	Currency  string
}

// SavingsRow is a savings item and how its amount is allocated.
type SavingsRow struct {
	Name      string
	Amount    float64
	Currency  string
	Allocated float64
	Links     int
	Open      bool
}

// Share returns the allocated fraction of the amount.
func (r SavingsRow) Share() float64 {
	if r.Amount <= 0 {
		return 0
	}
	return r.Allocated / r.Amount
}

// FromSession captures what the dashboard shows from an open board.
func FromSession(s *pipeline.Session) Board {
	v := s.Store.Snapshot()
	b := Board{
		Name:      s.Name,
		Path:      s.Path,
		Summaries: s.Summaries(),
		Passes:    s.Passes(),
		LoadedAt:  time.Now(),
	}
	for _, g := range s.Gaps() {
		b.Gaps = append(b.Gaps, g.String())
	}

	for _, id := range document.OfType(v, model.TypeItem) {
		obj, ok := v.Object(id)
		if !ok || obj.Item == nil {
			continue
		}
		row := ItemRow{
			ID:       id,
			Name:     displayName(obj),
			Kind:     obj.Item.Kind,
			Amount:   obj.Item.Amount,
			Currency: obj.Item.Currency,
		}
		if parent, ok := v.Object(obj.ParentID); ok {
			row.Container = displayName(parent)
		}
		b.Items = append(b.Items, row)

		if obj.IsSavings() {
			res := allocation.Resolve(v, id)
			allocated, _ := res.Allocated.Float64()
			b.Savings = append(b.Savings, SavingsRow{
				Name:      row.Name,
				Amount:    row.Amount,
				Currency:  row.Currency,
				Allocated: allocated,
				Links:     res.Links(),
				Open:      res.Open(),
			})
		}
	}
	sort.SliceStable(b.Items, func(i, j int) bool {
		if b.Items[i].Container != b.Items[j].Container {
			return b.Items[i].Container < b.Items[j].Container
		}
		return b.Items[i].Amount > b.Items[j].Amount
	})
	return b
}

func displayName(o model.Object) string {
	if n := o.Name(); n != "" {
		return n
	}
	return o.ID
}
