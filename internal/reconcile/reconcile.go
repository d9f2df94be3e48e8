// Package reconcile keeps derived board objects in step with the budget
// items they describe: one summary per container with content, and
// savings items whose amount follows the container they were taken from.
package reconcile

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/theirongolddev/moneyshape/internal/aggregate"
	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/geometry"
	"github.com/theirongolddev/moneyshape/internal/model"
)

// Options place derived objects.
type Options struct {
	// SummaryOffset is the gap between a container's right edge and its summary.
	SummaryOffset float64
	SummaryWidth  float64
	SummaryHeight float64
	// SavingsGap is the gap between a summary and a savings block added below it.
	SavingsGap float64
}

// DefaultOptions matches the stock board layout.
func DefaultOptions() Options {
	return Options{SummaryOffset: 200, SummaryWidth: 300, SummaryHeight: 200, SavingsGap: 20}
}

// Report counts what one pass changed.
type Report struct {
	SummariesCreated int
	SummariesUpdated int
	SummariesDeleted int
	// SavingsUpdated lists sourced savings items whose amount was rewritten.
	SavingsUpdated []string
}

// Changed reports whether the pass wrote anything.
func (r Report) Changed() bool {
	return r.SummariesCreated+r.SummariesUpdated+r.SummariesDeleted+len(r.SavingsUpdated) > 0
}

// Reconciler derives summaries and sourced savings amounts.
type Reconciler struct {
	opts Options
	log  *zap.Logger
}

// New returns a Reconciler. Zero option fields take their defaults.
func New(opts Options, log *zap.Logger) *Reconciler {
	def := DefaultOptions()
	if opts.SummaryOffset == 0 {
		opts.SummaryOffset = def.SummaryOffset
	}
	if opts.SummaryWidth <= 0 {
		opts.SummaryWidth = def.SummaryWidth
	}
	if opts.SummaryHeight <= 0 {
		opts.SummaryHeight = def.SummaryHeight
	}
	if opts.SavingsGap == 0 {
		opts.SavingsGap = def.SavingsGap
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{opts: opts, log: log}
}

// Options returns the effective options.
func (r *Reconciler) Options() Options { return r.opts }

// Reconcile runs one pass. v must observe m's writes. Every write is
// conditional on the stored value differing, so a settled board sees none.
func (r *Reconciler) Reconcile(v document.View, m document.Mutator) (Report, error) {
	var rep Report
	if err := r.syncSavings(v, m, &rep); err != nil {
		return rep, err
	}
	if err := r.syncSummaries(v, m, aggregate.All(v), &rep); err != nil {
		return rep, err
	}
	return rep, nil
}

// syncSavings sets each sourced savings item to what its source container
// has left. A savings item may sit inside another item's source, so the
// walk repeats until nothing moves, at most once per sourced item.
func (r *Reconciler) syncSavings(v document.View, m document.Mutator, rep *Report) error {
	var sourced []string
	for _, id := range document.OfType(v, model.TypeItem) {
		if obj, ok := v.Object(id); ok && obj.IsSavings() && obj.Item.SourceContainerID != "" {
			sourced = append(sourced, id)
		}
	}

	updated := map[string]bool{}
	for round := 0; round <= len(sourced); round++ {
		moved := false
		for _, id := range sourced {
			obj, ok := v.Object(id)
			if !ok || !obj.IsSavings() {
				continue
			}
			src, ok := v.Object(obj.Item.SourceContainerID)
			if !ok || src.Type != model.TypeContainer {
				continue
			}
			left := aggregate.Container(v, src.ID).Left()
			if left < 0 {
				left = 0
			}
			if model.Same(left, obj.Item.Amount) {
				continue
			}
			size := geometry.DimensionsForAmount(left, obj.Bounds.W, obj.Bounds.H)
			b := obj.Bounds
			b.W, b.H = size.W, size.H
			if err := m.Update(id, model.Patch{Amount: &left, Bounds: &b}); err != nil {
				return fmt.Errorf("updating savings %s: %w", id, err)
			}
			r.log.Debug("sourced savings updated",
				zap.String("item_id", id), zap.String("container_id", src.ID),
				zap.Float64("from", obj.Item.Amount), zap.Float64("to", left))
			if !updated[id] {
				updated[id] = true
				rep.SavingsUpdated = append(rep.SavingsUpdated, id)
			}
			moved = true
		}
		if !moved {
			return nil
		}
	}
	r.log.Warn("sourced savings did not settle", zap.Int("items", len(sourced)))
	return nil
}

func (r *Reconciler) syncSummaries(v document.View, m document.Mutator, aggs map[string]model.Aggregate, rep *Report) error {
	existing := map[string]model.Object{}
	for _, id := range document.OfType(v, model.TypeSummary) {
		obj, ok := v.Object(id)
		if !ok {
			continue
		}
		cid := obj.Summary.ContainerID
		agg, wanted := aggs[cid]
		_, dup := existing[cid]
		if !wanted || !agg.HasContent() || dup {
			if err := m.Delete(id); err != nil {
				return fmt.Errorf("deleting summary %s: %w", id, err)
			}
			rep.SummariesDeleted++
			continue
		}
		existing[cid] = obj
	}

	for _, cid := range document.OfType(v, model.TypeContainer) {
		agg := aggs[cid]
		if !agg.HasContent() {
			continue
		}
		c, _ := v.Object(cid)
		want := agg.Summary(cid, c.Name())

		cur, ok := existing[cid]
		if !ok {
			_, err := m.Create(model.Object{
				ID:      model.NewID(model.TypeSummary),
				Type:    model.TypeSummary,
				Bounds:  r.place(c.Bounds, r.opts.SummaryWidth, r.opts.SummaryHeight),
				Summary: &want,
			})
			if err != nil {
				return fmt.Errorf("creating summary for %s: %w", cid, err)
			}
			rep.SummariesCreated++
			continue
		}

		var p model.Patch
		if !cur.Summary.SameTotals(want) {
			want.ManuallyPositioned = cur.Summary.ManuallyPositioned
			p.Summary = &want
		}
		if !cur.Summary.ManuallyPositioned {
			w, h := cur.Bounds.W, cur.Bounds.H
			if w <= 0 || h <= 0 {
				w, h = r.opts.SummaryWidth, r.opts.SummaryHeight
			}
			if b := r.place(c.Bounds, w, h); !b.Same(cur.Bounds) {
				p.Bounds = &b
			}
		}
		if cur.ParentID != "" {
			p.ParentID = model.Ptr("")
		}
		if p.Empty() {
			continue
		}
		if err := m.Update(cur.ID, p); err != nil {
			return fmt.Errorf("updating summary %s: %w", cur.ID, err)
		}
		rep.SummariesUpdated++
	}
	return nil
}

// place puts a w x h summary to the right of a container, top-aligned.
func (r *Reconciler) place(container model.Bounds, w, h float64) model.Bounds {
	return model.Bounds{X: container.MaxX() + r.opts.SummaryOffset, Y: container.Y, W: w, H: h}
}
