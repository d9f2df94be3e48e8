package document

import (
	"fmt"
	"reflect"

	"github.com/theirongolddev/moneyshape/internal/model"
)

// Tx is an open transaction. It reads its own writes and implements both
// View and Mutator. A Tx is only valid inside the Transact callback.
type Tx struct {
	state   *state
	changes []Change
	closed  bool
}

var (
	_ View    = (*Tx)(nil)
	_ Mutator = (*Tx)(nil)
)

func newTx(base *state) *Tx {
	return &Tx{state: base.clone()}
}

func (tx *Tx) Object(id string) (model.Object, bool) { return tx.state.Object(id) }
func (tx *Tx) Children(parentID string) []string     { return tx.state.Children(parentID) }
func (tx *Tx) LinksFrom(id string) []string          { return tx.state.LinksFrom(id) }
func (tx *Tx) LinksTo(id string) []string            { return tx.state.LinksTo(id) }
func (tx *Tx) IDs() []string                         { return tx.state.IDs() }

// Changes returns what the transaction has written so far.
func (tx *Tx) Changes() []Change {
	out := make([]Change, len(tx.changes))
	copy(out, tx.changes)
	return out
}

func (tx *Tx) Create(obj model.Object) (string, error) {
	if tx.closed {
		return "", ErrClosed
	}
	obj = obj.Clone()
	if obj.ID == "" {
		obj.ID = model.NewID(obj.Type)
	}
	if _, ok := tx.state.objects[obj.ID]; ok {
		return "", fmt.Errorf("create %s: %w", obj.ID, ErrExists)
	}
	if err := tx.state.check(obj); err != nil {
		return "", fmt.Errorf("create %s: %w", obj.ID, err)
	}
	tx.state.put(obj)
	after := obj.Clone()
	tx.changes = append(tx.changes, Change{Kind: Created, ID: obj.ID, Type: obj.Type, After: &after})
	return obj.ID, nil
}

func (tx *Tx) Update(id string, p model.Patch) error {
	if tx.closed {
		return ErrClosed
	}
	before, ok := tx.state.objects[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	after := before.Clone()
	p.Apply(&after)
	if reflect.DeepEqual(before, after) {
		return nil
	}
	if err := tx.state.check(after); err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	tx.state.put(after)
	b, a := before.Clone(), after.Clone()
	tx.changes = append(tx.changes, Change{Kind: Updated, ID: id, Type: after.Type, Before: &b, After: &a})
	return nil
}

func (tx *Tx) Delete(id string) error {
	if tx.closed {
		return ErrClosed
	}
	if _, ok := tx.state.objects[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	doomed := map[string]bool{id: true}
	for _, d := range Descendants(tx.state, id) {
		doomed[d] = true
	}
	for _, oid := range tx.state.order {
		obj := tx.state.objects[oid]
		if obj.Type == model.TypeLink && obj.Link != nil && (doomed[obj.Link.From] || doomed[obj.Link.To]) {
			doomed[oid] = true
		}
	}

	for _, oid := range tx.state.order {
		if !doomed[oid] {
			continue
		}
		before := tx.state.objects[oid].Clone()
		tx.changes = append(tx.changes, Change{Kind: Deleted, ID: oid, Type: before.Type, Before: &before})
	}
	tx.state.remove(doomed)
	return nil
}
