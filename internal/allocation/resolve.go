package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/model"
)

// Share is the resolved allocation of one non-remainder link.
type Share struct {
	LinkID   string
	To       string
	Amount   decimal.Decimal
	Explicit bool
	Label    string
}

// Resolution is how one item's amount is currently split.
type Resolution struct {
	ItemID string
	Amount decimal.Decimal
	// Shares lists the links whose allocation is known.
	Shares []Share
	// Unresolved lists unlabeled links sharing the item with other links.
	Unresolved []string
	// Remainders lists the engine-managed remainder links, oldest first.
	Remainders []string
	Allocated  decimal.Decimal

	remainderLabel  string
	remainderParent string
}

// Links counts the item's non-remainder links.
func (r Resolution) Links() int { return len(r.Shares) + len(r.Unresolved) }

// Remainder is the amount no link accounts for. It is negative when the
// item is over-allocated.
func (r Resolution) Remainder() decimal.Decimal { return r.Amount.Sub(r.Allocated) }

// Open reports whether at least a cent is left unallocated.
func (r Resolution) Open() bool { return r.Remainder().Round(2).IsPositive() }

// ShareOf returns the resolved allocation of linkID.
func (r Resolution) ShareOf(linkID string) (decimal.Decimal, bool) {
	for _, s := range r.Shares {
		if s.LinkID == linkID {
			return s.Amount, true
		}
	}
	return decimal.Zero, false
}

// Resolve splits itemID's amount over its outgoing links. A labeled link
// claims its label. An unlabeled link claims the whole amount when it is the
// item's only non-remainder link and is unresolved otherwise.
func Resolve(v document.View, itemID string) Resolution {
	r := Resolution{ItemID: itemID, Amount: decimal.Zero, Allocated: decimal.Zero}
	if obj, ok := v.Object(itemID); ok && obj.Item != nil {
		r.Amount = Amount(obj.Item.Amount)
	}

	var plain []model.Object
	for _, id := range v.LinksFrom(itemID) {
		l, ok := v.Object(id)
		if !ok || l.Link == nil {
			continue
		}
		if l.Link.Remainder {
			if len(r.Remainders) == 0 {
				r.remainderLabel = l.Link.Label
				r.remainderParent = l.ParentID
			}
			r.Remainders = append(r.Remainders, id)
			continue
		}
		plain = append(plain, l)
	}

	for _, l := range plain {
		if d, ok := ParseLabel(l.Link.Label); ok {
			r.Shares = append(r.Shares, Share{LinkID: l.ID, To: l.Link.To, Amount: d, Explicit: true, Label: l.Link.Label})
			r.Allocated = r.Allocated.Add(d)
			continue
		}
		if len(plain) == 1 {
			r.Shares = append(r.Shares, Share{LinkID: l.ID, To: l.Link.To, Amount: r.Amount, Label: l.Link.Label})
			r.Allocated = r.Allocated.Add(r.Amount)
			continue
		}
		r.Unresolved = append(r.Unresolved, l.ID)
	}
	return r
}
