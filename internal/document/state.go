package document

import (
	"fmt"
	"sync"

	"github.com/theirongolddev/moneyshape/internal/model"
)

// state is one version of the board. Committed states are never mutated,
// so they can be shared as read-only snapshots.
type state struct {
	objects map[string]model.Object
	order   []string

	idxMu sync.Mutex
	idx   *index
}

type index struct {
	children map[string][]string
	from     map[string][]string
	to       map[string][]string
}

func newState() *state {
	return &state{objects: map[string]model.Object{}}
}

func (s *state) clone() *state {
	c := &state{
		objects: make(map[string]model.Object, len(s.objects)),
		order:   make([]string, len(s.order)),
	}
	for id, obj := range s.objects {
		c.objects[id] = obj
	}
	copy(c.order, s.order)
	return c
}

func (s *state) index() *index {
	s.idxMu.Lock()
	defer s.idxMu.Unlock()
	if s.idx != nil {
		return s.idx
	}
	idx := &index{
		children: map[string][]string{},
		from:     map[string][]string{},
		to:       map[string][]string{},
	}
	for _, id := range s.order {
		obj := s.objects[id]
		idx.children[obj.ParentID] = append(idx.children[obj.ParentID], id)
		if obj.Type == model.TypeLink && obj.Link != nil {
			idx.from[obj.Link.From] = append(idx.from[obj.Link.From], id)
			if obj.Link.To != "" {
				idx.to[obj.Link.To] = append(idx.to[obj.Link.To], id)
			}
		}
	}
	s.idx = idx
	return idx
}

func (s *state) invalidate() {
	s.idxMu.Lock()
	s.idx = nil
	s.idxMu.Unlock()
}

func (s *state) Object(id string) (model.Object, bool) {
	obj, ok := s.objects[id]
	if !ok {
		return model.Object{}, false
	}
	return obj.Clone(), true
}

func (s *state) Children(parentID string) []string {
	return cloneIDs(s.index().children[parentID])
}

func (s *state) LinksFrom(id string) []string {
	return cloneIDs(s.index().from[id])
}

func (s *state) LinksTo(id string) []string {
	return cloneIDs(s.index().to[id])
}

func (s *state) IDs() []string {
	return cloneIDs(s.order)
}

func (s *state) put(obj model.Object) {
	if _, ok := s.objects[obj.ID]; !ok {
		s.order = append(s.order, obj.ID)
	}
	s.objects[obj.ID] = obj
	s.invalidate()
}

func (s *state) remove(ids map[string]bool) {
	kept := s.order[:0:0]
	for _, id := range s.order {
		if ids[id] {
			delete(s.objects, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	s.invalidate()
}

// check validates obj against the rest of the state.
func (s *state) check(obj model.Object) error {
	if obj.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalid)
	}
	switch obj.Type {
	case model.TypeItem:
		if obj.Item == nil {
			return fmt.Errorf("%w: %s has no item props", ErrInvalid, obj.ID)
		}
		if !obj.Item.Kind.Valid() {
			return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalid, obj.ID, obj.Item.Kind)
		}
	case model.TypeContainer:
		if obj.Container == nil {
			return fmt.Errorf("%w: %s has no container props", ErrInvalid, obj.ID)
		}
	case model.TypeLink:
		if obj.Link == nil {
			return fmt.Errorf("%w: %s has no link props", ErrInvalid, obj.ID)
		}
		if _, ok := s.objects[obj.Link.From]; !ok {
			return fmt.Errorf("%w: link %s starts at missing %q", ErrInvalid, obj.ID, obj.Link.From)
		}
		if obj.Link.To != "" {
			if _, ok := s.objects[obj.Link.To]; !ok {
				return fmt.Errorf("%w: link %s ends at missing %q", ErrInvalid, obj.ID, obj.Link.To)
			}
		}
	case model.TypeSummary:
		if obj.Summary == nil {
			return fmt.Errorf("%w: %s has no summary props", ErrInvalid, obj.ID)
		}
	default:
		return fmt.Errorf("%w: %s has unknown type %q", ErrInvalid, obj.ID, obj.Type)
	}

	if obj.ParentID == "" {
		return nil
	}
	parent, ok := s.objects[obj.ParentID]
	if !ok {
		return fmt.Errorf("%w: %s has missing parent %q", ErrInvalid, obj.ID, obj.ParentID)
	}
	if parent.Type != model.TypeContainer {
		return fmt.Errorf("%w: parent %s of %s is not a container", ErrInvalid, parent.ID, obj.ID)
	}
	steps := 0
	for p := obj.ParentID; p != ""; p = s.objects[p].ParentID {
		if p == obj.ID || steps > len(s.objects) {
			return fmt.Errorf("%w: %s would contain itself", ErrInvalid, obj.ID)
		}
		steps++
	}
	return nil
}

func cloneIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
