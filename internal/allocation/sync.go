package allocation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/model"
)

// Gap is a savings item whose allocation cannot be completed automatically.
type Gap struct {
	ItemID string
	// Unresolved lists unlabeled links competing for the same money.
	Unresolved []string
	// Excess is how far explicit labels exceed the amount.
	Excess decimal.Decimal
}

func (g Gap) String() string {
	switch {
	case len(g.Unresolved) > 0 && g.Excess.IsPositive():
		return fmt.Sprintf("%s: %d unlabeled links, over-allocated by %s", g.ItemID, len(g.Unresolved), FormatAmount(g.Excess))
	case len(g.Unresolved) > 0:
		return fmt.Sprintf("%s: %d unlabeled links", g.ItemID, len(g.Unresolved))
	}
	return fmt.Sprintf("%s: over-allocated by %s", g.ItemID, FormatAmount(g.Excess))
}

// Report describes one synchronization pass.
type Report struct {
	// Redistributed lists items whose labels were rewritten after the user
	// removed their remainder link.
	Redistributed []string
	Gaps          []Gap
}

// Synchronizer keeps one remainder link per partially allocated savings
// item. It remembers, per item, whether it left a remainder link in place on
// the previous pass, which is how a user deletion is told apart from a link
// that never existed.
type Synchronizer struct {
	log     *zap.Logger
	existed map[string]bool
}

// NewSynchronizer returns a synchronizer with empty state. A nil logger
// disables logging.
func NewSynchronizer(log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{log: log, existed: map[string]bool{}}
}

// State returns a copy of the per-item remainder bookkeeping.
func (s *Synchronizer) State() map[string]bool {
	out := make(map[string]bool, len(s.existed))
	for id, ok := range s.existed {
		if ok {
			out[id] = true
		}
	}
	return out
}

// Restore replaces the bookkeeping, typically with a State saved by an
// earlier process.
func (s *Synchronizer) Restore(state map[string]bool) {
	s.existed = make(map[string]bool, len(state))
	for id, ok := range state {
		if ok {
			s.existed[id] = true
		}
	}
}

// Sync runs one pass over every savings item of v, writing through m. v must
// observe m's writes.
func (s *Synchronizer) Sync(v document.View, m document.Mutator) (Report, error) {
	var rep Report
	seen := map[string]bool{}

	for _, id := range v.IDs() {
		obj, ok := v.Object(id)
		if !ok || obj.Type != model.TypeItem {
			continue
		}
		if !obj.IsSavings() {
			if err := s.dropRemainders(v, m, id); err != nil {
				return rep, err
			}
			continue
		}
		seen[id] = true

		res := Resolve(v, id)
		if s.existed[id] && len(res.Remainders) == 0 && res.Links() > 0 && res.Open() {
			delete(s.existed, id)
			done, err := s.redistribute(m, res)
			if err != nil {
				return rep, err
			}
			if done {
				s.log.Info("remainder removed, allocation finalized",
					zap.String("item_id", id), zap.String("amount", FormatAmount(res.Amount)))
				rep.Redistributed = append(rep.Redistributed, id)
				res = Resolve(v, id)
			}
		}

		if err := s.settle(m, obj, res); err != nil {
			return rep, err
		}
		if gap, ok := gapOf(res); ok {
			rep.Gaps = append(rep.Gaps, gap)
		}
	}

	for id := range s.existed {
		if !seen[id] {
			delete(s.existed, id)
		}
	}
	return rep, nil
}

// dropRemainders removes remainder links left on an item that is no longer
// a savings item.
func (s *Synchronizer) dropRemainders(v document.View, m document.Mutator, itemID string) error {
	for _, lid := range Resolve(v, itemID).Remainders {
		if err := m.Delete(lid); err != nil {
			return fmt.Errorf("removing remainder of %s: %w", itemID, err)
		}
	}
	return nil
}

// settle creates, relabels or removes the remainder link of one item.
func (s *Synchronizer) settle(m document.Mutator, item model.Object, res Resolution) error {
	if !res.Open() || res.Links() == 0 {
		for _, lid := range res.Remainders {
			if err := m.Delete(lid); err != nil {
				return fmt.Errorf("removing remainder of %s: %w", item.ID, err)
			}
		}
		delete(s.existed, item.ID)
		return nil
	}

	label := FormatAmount(res.Remainder())
	if len(res.Remainders) == 0 {
		_, err := m.Create(model.Object{
			ID:       model.NewID(model.TypeLink),
			Type:     model.TypeLink,
			ParentID: item.ParentID,
			Bounds:   model.Bounds{X: item.Bounds.MaxX(), Y: item.Bounds.Y + item.Bounds.H/2},
			Link:     &model.Link{From: item.ID, Label: label, Remainder: true},
		})
		if err != nil {
			return fmt.Errorf("creating remainder of %s: %w", item.ID, err)
		}
	} else {
		var p model.Patch
		if res.remainderLabel != label {
			p.Label = &label
		}
		if res.remainderParent != item.ParentID {
			p.ParentID = model.Ptr(item.ParentID)
		}
		if !p.Empty() {
			if err := m.Update(res.Remainders[0], p); err != nil {
				return fmt.Errorf("relabeling remainder of %s: %w", item.ID, err)
			}
		}
		for _, extra := range res.Remainders[1:] {
			if err := m.Delete(extra); err != nil {
				return fmt.Errorf("removing duplicate remainder of %s: %w", item.ID, err)
			}
		}
	}
	s.existed[item.ID] = true
	return nil
}

// redistribute finalizes an allocation after its remainder link was removed.
// A single unlabeled link takes the remainder. Without unlabeled links the
// explicit labels are scaled to the full amount. It reports false, leaving
// everything untouched, when several unlabeled links compete.
func (s *Synchronizer) redistribute(m document.Mutator, res Resolution) (bool, error) {
	switch len(res.Unresolved) {
	case 0:
	case 1:
		label := FormatAmount(res.Remainder())
		if err := m.Update(res.Unresolved[0], model.Patch{Label: &label}); err != nil {
			return false, fmt.Errorf("labeling %s: %w", res.Unresolved[0], err)
		}
		return true, nil
	default:
		return false, nil
	}

	labels := scale(res.Shares, res.Allocated, res.Amount)
	for i, sh := range res.Shares {
		label := labels[i]
		if sh.Label == label {
			continue
		}
		if err := m.Update(sh.LinkID, model.Patch{Label: &label}); err != nil {
			return false, fmt.Errorf("relabeling %s: %w", sh.LinkID, err)
		}
	}
	return len(res.Shares) > 0, nil
}

// scale spreads total over shares in proportion to their current amounts,
// in cents, the last share absorbing rounding. Zero-sum shares split evenly.
func scale(shares []Share, sum, total decimal.Decimal) []string {
	out := make([]string, len(shares))
	if len(shares) == 0 {
		return out
	}
	n := decimal.NewFromInt(int64(len(shares)))
	given := decimal.Zero
	for i, sh := range shares {
		var part decimal.Decimal
		switch {
		case i == len(shares)-1:
			part = total.Sub(given)
		case sum.IsZero():
			part = total.Div(n).Round(2)
		default:
			part = sh.Amount.Mul(total).Div(sum).Round(2)
		}
		given = given.Add(part)
		out[i] = FormatAmount(part)
	}
	return out
}

func gapOf(res Resolution) (Gap, bool) {
	g := Gap{ItemID: res.ItemID, Excess: decimal.Zero}
	if len(res.Unresolved) > 0 {
		g.Unresolved = append([]string(nil), res.Unresolved...)
		sort.Strings(g.Unresolved)
	}
	if rem := res.Remainder(); rem.IsNegative() {
		g.Excess = rem.Neg()
	}
	return g, len(g.Unresolved) > 0 || g.Excess.IsPositive()
}
