// Package aggregate totals the budget items of container subtrees.
package aggregate

import (
	"github.com/theirongolddev/moneyshape/internal/allocation"
	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/model"
)

// Container totals every budget item below containerID, then folds in the
// savings sent to it through allocation links from outside the subtree.
//
// A savings item sourced from containerID is left out of containerID's own
// totals but still counts toward every other container holding it. The same
// holds for a savings item whose source reads containerID back through a
// chain of sourced savings: its amount would feed itself.
func Container(v document.View, containerID string) model.Aggregate {
	return newSourceGraph(v).total(containerID)
}

// All totals every container of v, keyed by container id.
func All(v document.View) map[string]model.Aggregate {
	g := newSourceGraph(v)
	out := map[string]model.Aggregate{}
	for _, id := range document.OfType(v, model.TypeContainer) {
		out[id] = g.total(id)
	}
	return out
}

// sourceGraph maps each container to the source containers of the sourced
// savings items its totals read.
type sourceGraph struct {
	v     document.View
	reads map[string][]string
}

func newSourceGraph(v document.View) *sourceGraph {
	return &sourceGraph{v: v, reads: map[string][]string{}}
}

func (g *sourceGraph) sources(containerID string) []string {
	if src, ok := g.reads[containerID]; ok {
		return src
	}
	var src []string
	inside := map[string]bool{}
	collect(g.v, containerID, containerID, inside, func(obj model.Object) {
		if obj.IsSavings() && obj.Item.SourceContainerID != "" {
			src = append(src, obj.Item.SourceContainerID)
		}
	})
	eachInbound(g.v, containerID, inside, func(from model.Object, _ string) {
		if from.Item.SourceContainerID != "" {
			src = append(src, from.Item.SourceContainerID)
		}
	})
	g.reads[containerID] = src
	return src
}

// feeds reports whether the totals of from depend on target.
func (g *sourceGraph) feeds(from, target string) bool {
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, g.sources(id)...)
	}
	return false
}

// circular reports whether a savings item's amount already depends on
// containerID.
func (g *sourceGraph) circular(obj model.Object, containerID string) bool {
	s := obj.Item.SourceContainerID
	return s != "" && g.feeds(s, containerID)
}

func (g *sourceGraph) total(containerID string) model.Aggregate {
	var agg model.Aggregate
	if obj, ok := g.v.Object(containerID); !ok || obj.Type != model.TypeContainer {
		return agg
	}

	inside := map[string]bool{}
	collect(g.v, containerID, containerID, inside, func(obj model.Object) {
		if obj.IsSavings() && g.circular(obj, containerID) {
			return
		}
		agg.Add(obj.Item.Kind, obj.Item.Amount, obj.Item.Currency)
	})

	res := map[string]allocation.Resolution{}
	eachInbound(g.v, containerID, inside, func(from model.Object, linkID string) {
		if g.circular(from, containerID) {
			return
		}
		r, ok := res[from.ID]
		if !ok {
			r = allocation.Resolve(g.v, from.ID)
			res[from.ID] = r
		}
		if share, ok := r.ShareOf(linkID); ok {
			agg.Add(model.KindSavings, share.InexactFloat64(), from.Item.Currency)
		}
	})
	return agg
}

// collect visits every budget item below parentID, skipping savings sourced
// from root. inside records every object seen.
func collect(v document.View, root, parentID string, inside map[string]bool, fn func(model.Object)) {
	for _, id := range v.Children(parentID) {
		obj, ok := v.Object(id)
		if !ok {
			continue
		}
		inside[id] = true
		switch obj.Type {
		case model.TypeContainer:
			collect(v, root, id, inside, fn)
		case model.TypeItem:
			if obj.IsSavings() && obj.Item.SourceContainerID == root {
				continue
			}
			fn(obj)
		}
	}
}

// eachInbound calls fn for every allocation link into containerID from a
// savings item outside the subtree, except those sourced from containerID.
func eachInbound(v document.View, containerID string, inside map[string]bool, fn func(from model.Object, linkID string)) {
	for _, lid := range v.LinksTo(containerID) {
		l, ok := v.Object(lid)
		if !ok || l.Link == nil || l.Link.Remainder {
			continue
		}
		from, ok := v.Object(l.Link.From)
		if !ok || !from.IsSavings() || inside[from.ID] {
			continue
		}
		if from.Item.SourceContainerID == containerID {
			continue
		}
		fn(from, lid)
	}
}
