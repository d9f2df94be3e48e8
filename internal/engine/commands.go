package engine

import (
	"fmt"

	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/geometry"
	"github.com/theirongolddev/moneyshape/internal/model"
	"github.com/theirongolddev/moneyshape/internal/treemap"
)

// The commands below are user edits. Each commits one user transaction;
// derived state follows through Attach or a later Converge.

func itemOf(v document.View, id string) (model.Object, error) {
	obj, ok := v.Object(id)
	if !ok {
		return obj, fmt.Errorf("item %s: %w", id, document.ErrNotFound)
	}
	if obj.Type != model.TypeItem {
		return obj, fmt.Errorf("%s is a %s, not a budget item: %w", id, obj.Type, document.ErrInvalid)
	}
	return obj, nil
}

// SetAmount changes an item's amount and resizes it, keeping its aspect ratio.
func (e *Engine) SetAmount(s *document.Store, id string, amount float64) error {
	_, err := s.Transact(OriginUser, func(tx *document.Tx) error {
		obj, err := itemOf(tx, id)
		if err != nil {
			return err
		}
		if amount < 0 {
			amount = 0
		}
		size := geometry.DimensionsForAmount(amount, obj.Bounds.W, obj.Bounds.H)
		b := obj.Bounds
		b.W, b.H = size.W, size.H
		return tx.Update(id, model.Patch{Amount: &amount, Bounds: &b})
	})
	return err
}

// ResizeItem applies a resize drag by scaleX/scaleY to an item.
func (e *Engine) ResizeItem(s *document.Store, id string, scaleX, scaleY float64) (geometry.Block, error) {
	var out geometry.Block
	_, err := s.Transact(OriginUser, func(tx *document.Tx) error {
		obj, err := itemOf(tx, id)
		if err != nil {
			return err
		}
		out = geometry.Resize(geometry.Block{W: obj.Bounds.W, H: obj.Bounds.H, Amount: obj.Item.Amount}, scaleX, scaleY)
		b := obj.Bounds
		b.W, b.H = out.W, out.H
		return tx.Update(id, model.Patch{Bounds: &b, Amount: &out.Amount})
	})
	return out, err
}

// Squarify turns each item into a square of its exact area.
func (e *Engine) Squarify(s *document.Store, ids []string) error {
	_, err := s.Transact(OriginUser, func(tx *document.Tx) error {
		for _, id := range ids {
			obj, err := itemOf(tx, id)
			if err != nil {
				return err
			}
			size := geometry.DimensionsForAmount(obj.Item.Amount, 1, 1)
			b := obj.Bounds
			b.W, b.H = size.W, size.H
			if err := tx.Update(id, model.Patch{Bounds: &b}); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// ArrangeTreemap lays the items out as a treemap over their current
// footprint and fits each block to its cell. It needs at least two items;
// fewer, or a degenerate layout, changes nothing.
func (e *Engine) ArrangeTreemap(s *document.Store, ids []string) ([]treemap.Item, error) {
	var placed []treemap.Item
	_, err := s.Transact(OriginUser, func(tx *document.Tx) error {
		items := make([]treemap.Item, 0, len(ids))
		for _, id := range ids {
			obj, err := itemOf(tx, id)
			if err != nil {
				return err
			}
			items = append(items, treemap.Item{
				ID: id, Amount: obj.Item.Amount,
				X: obj.Bounds.X, Y: obj.Bounds.Y, W: obj.Bounds.W, H: obj.Bounds.H,
			})
		}
		if len(items) < 2 {
			return nil
		}
		cells := treemap.Layout(items, e.opts.Treemap)
		if len(cells) == 0 {
			return nil
		}
		placed = treemap.Fit(cells)
		for _, p := range placed {
			b := model.Bounds{X: p.X, Y: p.Y, W: p.W, H: p.H}
			if err := tx.Update(p.ID, model.Patch{Bounds: &b}); err != nil {
				return err
			}
		}
		return nil
	})
	return placed, err
}

// AddSavingsBlock adds a savings item holding what containerID has left.
func (e *Engine) AddSavingsBlock(s *document.Store, containerID string) (string, error) {
	var id string
	_, err := s.Transact(OriginUser, func(tx *document.Tx) error {
		var err error
		id, err = e.rec.AddSavingsBlock(tx, tx, containerID)
		return err
	})
	return id, err
}

// MoveSummary places a summary by hand. The engine stops repositioning it.
func (e *Engine) MoveSummary(s *document.Store, id string, x, y float64) error {
	_, err := s.Transact(OriginUser, func(tx *document.Tx) error {
		obj, ok := tx.Object(id)
		if !ok || obj.Type != model.TypeSummary {
			return fmt.Errorf("summary %s: %w", id, document.ErrNotFound)
		}
		b := obj.Bounds
		b.X, b.Y = x, y
		pinned := *obj.Summary
		pinned.ManuallyPositioned = true
		return tx.Update(id, model.Patch{Bounds: &b, Summary: &pinned})
	})
	return err
}

// DrawItem creates a budget item from a rectangle dragged between two
// corners, inside parentID when it is set.
func (e *Engine) DrawItem(s *document.Store, parentID string, kind model.Kind, x0, y0, x1, y1 float64) (string, error) {
	x, y, blk := geometry.Drawn(x0, y0, x1, y1)
	var id string
	_, err := s.Transact(OriginUser, func(tx *document.Tx) error {
		var err error
		id, err = tx.Create(model.Object{
			Type:     model.TypeItem,
			ParentID: parentID,
			Bounds:   model.Bounds{X: x, Y: y, W: blk.W, H: blk.H},
			Item:     &model.Item{Kind: kind, Amount: blk.Amount},
		})
		return err
	})
	return id, err
}

// Link creates an allocation link from a savings item to a destination.
func (e *Engine) Link(s *document.Store, from, to, label string) (string, error) {
	var id string
	_, err := s.Transact(OriginUser, func(tx *document.Tx) error {
		src, err := itemOf(tx, from)
		if err != nil {
			return err
		}
		if !src.IsSavings() {
			return fmt.Errorf("%s is not a savings item: %w", from, document.ErrInvalid)
		}
		id, err = tx.Create(model.Object{
			Type:     model.TypeLink,
			ParentID: src.ParentID,
			Link:     &model.Link{From: from, To: to, Label: label},
		})
		return err
	})
	return id, err
}
