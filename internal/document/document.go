// Package document holds a board's object tree in memory. Writes happen in
// atomic transactions and committed change sets are dispatched to listeners
// one at a time, in commit order.
package document

import (
	"errors"

	"github.com/theirongolddev/moneyshape/internal/model"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrExists   = errors.New("object already exists")
	ErrInvalid  = errors.New("invalid object")
	ErrClosed   = errors.New("transaction closed")
)

// View is read access to a board.
type View interface {
	// Object returns a copy of the object with id.
	Object(id string) (model.Object, bool)
	// Children lists the direct children of parentID in insertion order.
	// An empty parentID lists top-level objects.
	Children(parentID string) []string
	// LinksFrom lists the allocation links starting at id.
	LinksFrom(id string) []string
	// LinksTo lists the allocation links ending at id.
	LinksTo(id string) []string
	// IDs lists every object in insertion order.
	IDs() []string
}

// Mutator is batched write access to a board.
type Mutator interface {
	// Create adds obj and returns its id, generating one when obj.ID is empty.
	Create(obj model.Object) (string, error)
	// Update applies p to the object with id.
	Update(id string, p model.Patch) error
	// Delete removes the object with id, its descendants and every link
	// touching any of them.
	Delete(id string) error
}

// ChangeKind says what happened to an object.
type ChangeKind string

const (
	Created ChangeKind = "created"
	Updated ChangeKind = "updated"
	Deleted ChangeKind = "deleted"
)

// Change records one object write. Before is nil for creations and After is
// nil for deletions.
type Change struct {
	Kind   ChangeKind
	ID     string
	Type   model.Type
	Before *model.Object
	After  *model.Object
}

// ChangeSet is everything one transaction committed.
type ChangeSet struct {
	Version uint64
	Origin  string
	Changes []Change
}

// Empty reports whether nothing was committed.
func (cs ChangeSet) Empty() bool { return len(cs.Changes) == 0 }

// Listener receives committed change sets.
type Listener func(ChangeSet)

// Objects returns copies of every object of v in insertion order.
func Objects(v View) []model.Object {
	ids := v.IDs()
	out := make([]model.Object, 0, len(ids))
	for _, id := range ids {
		if obj, ok := v.Object(id); ok {
			out = append(out, obj)
		}
	}
	return out
}

// OfType returns the ids of every object of type t in insertion order.
func OfType(v View, t model.Type) []string {
	var out []string
	for _, id := range v.IDs() {
		if obj, ok := v.Object(id); ok && obj.Type == t {
			out = append(out, id)
		}
	}
	return out
}

// Descendants returns every object below id, depth first.
func Descendants(v View, id string) []string {
	var out []string
	var walk func(string)
	walk = func(parent string) {
		for _, c := range v.Children(parent) {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// IsDescendant reports whether id sits anywhere below ancestor.
func IsDescendant(v View, id, ancestor string) bool {
	seen := map[string]bool{}
	for {
		obj, ok := v.Object(id)
		if !ok || obj.ParentID == "" || seen[id] {
			return false
		}
		if obj.ParentID == ancestor {
			return true
		}
		seen[id] = true
		id = obj.ParentID
	}
}
