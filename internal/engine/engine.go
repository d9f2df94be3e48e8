// Package engine runs the budget consistency pass (aggregation, allocation
// fix-up, reconciliation) against a board and drives it to a fixed point
// whenever the board changes.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/theirongolddev/moneyshape/internal/aggregate"
	"github.com/theirongolddev/moneyshape/internal/allocation"
	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/model"
	"github.com/theirongolddev/moneyshape/internal/reconcile"
	"github.com/theirongolddev/moneyshape/internal/treemap"
)

// Transaction origins.
const (
	OriginUser   = "user"
	OriginEngine = "engine"
)

// DefaultMaxPasses bounds consecutive engine passes on one change.
const DefaultMaxPasses = 8

// ErrNoFixedPoint is returned by Converge when passes keep writing.
var ErrNoFixedPoint = errors.New("board did not settle")

// Options configure an Engine.
type Options struct {
	MaxPasses int
	Reconcile reconcile.Options
	Treemap   treemap.Options
	// OnPass, when set, sees every pass report.
	OnPass func(PassReport)
}

// PassReport describes one synchronization pass.
type PassReport struct {
	Created int
	Updated int
	Deleted int

	Allocation allocation.Report
	Reconcile  reconcile.Report

	// Aggregates holds every container's totals as of the end of the pass.
	Aggregates map[string]model.Aggregate
}

// Mutations counts every write the pass made.
func (r PassReport) Mutations() int { return r.Created + r.Updated + r.Deleted }

// Gaps returns the allocation problems left for the user to resolve.
func (r PassReport) Gaps() []allocation.Gap { return r.Allocation.Gaps }

// Engine keeps derived board state consistent.
type Engine struct {
	opts Options
	sync *allocation.Synchronizer
	rec  *reconcile.Reconciler
	log  *zap.Logger
}

// New returns an Engine. A nil logger disables logging.
func New(opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}
	return &Engine{
		opts: opts,
		sync: allocation.NewSynchronizer(log.Named("allocation")),
		rec:  reconcile.New(opts.Reconcile, log.Named("reconcile")),
		log:  log,
	}
}

// Synchronizer exposes the allocation bookkeeping so hosts can persist it.
func (e *Engine) Synchronizer() *allocation.Synchronizer { return e.sync }

// Synchronize runs one pass. v must observe m's writes, as a document.Tx
// does for itself. A failed pass leaves the allocation bookkeeping unchanged.
func (e *Engine) Synchronize(v document.View, m document.Mutator) (PassReport, error) {
	cm := &countingMutator{next: m}
	var rep PassReport
	state := e.sync.State()

	before := aggregate.All(v)
	e.log.Debug("pass started", zap.Int("containers", len(before)))

	arep, err := e.sync.Sync(v, cm)
	if err != nil {
		e.sync.Restore(state)
		return rep, fmt.Errorf("allocation: %w", err)
	}
	rrep, err := e.rec.Reconcile(v, cm)
	if err != nil {
		e.sync.Restore(state)
		return rep, fmt.Errorf("reconcile: %w", err)
	}

	rep = PassReport{
		Created:    cm.created,
		Updated:    cm.updated,
		Deleted:    cm.deleted,
		Allocation: arep,
		Reconcile:  rrep,
		Aggregates: before,
	}
	if rep.Mutations() > 0 {
		rep.Aggregates = aggregate.All(v)
	}
	if e.opts.OnPass != nil {
		e.opts.OnPass(rep)
	}
	return rep, nil
}

// Attach runs a pass after every change committed to s, including the
// engine's own, until a pass writes nothing. More than MaxPasses engine
// passes in a row are cut off with a warning. The returned func detaches.
func (e *Engine) Attach(s *document.Store) func() {
	streak := 0
	return s.Subscribe(func(cs document.ChangeSet) {
		if cs.Origin == OriginEngine {
			streak++
			if streak >= e.opts.MaxPasses {
				e.log.Warn("pass limit reached, board left unsettled",
					zap.Int("passes", streak), zap.Uint64("version", cs.Version))
				streak = 0
				return
			}
		} else {
			streak = 0
		}

		var rep PassReport
		_, err := s.Transact(OriginEngine, func(tx *document.Tx) error {
			if cs.Origin != OriginEngine {
				if err := pinMovedSummaries(cs, tx); err != nil {
					return err
				}
			}
			var err error
			rep, err = e.Synchronize(tx, tx)
			return err
		})
		if err != nil {
			e.log.Error("pass failed", zap.Error(err), zap.String("origin", cs.Origin))
			return
		}
		if rep.Mutations() > 0 {
			e.log.Debug("pass committed",
				zap.Int("created", rep.Created), zap.Int("updated", rep.Updated),
				zap.Int("deleted", rep.Deleted), zap.Int("pass", streak+1))
		}
	})
}

// Converge runs passes on s until one writes nothing. It is the
// synchronous counterpart of Attach for hosts that load, fix and save.
func (e *Engine) Converge(s *document.Store) ([]PassReport, error) {
	var reports []PassReport
	for i := 0; i < e.opts.MaxPasses; i++ {
		var rep PassReport
		cs, err := s.Transact(OriginEngine, func(tx *document.Tx) error {
			var err error
			rep, err = e.Synchronize(tx, tx)
			return err
		})
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
		if cs.Empty() {
			return reports, nil
		}
	}
	return reports, fmt.Errorf("%w after %d passes", ErrNoFixedPoint, e.opts.MaxPasses)
}

// pinMovedSummaries marks summaries a user moved so later passes leave
// their position alone.
func pinMovedSummaries(cs document.ChangeSet, tx *document.Tx) error {
	for _, c := range cs.Changes {
		if c.Kind != document.Updated || c.Type != model.TypeSummary || c.Before == nil || c.After == nil {
			continue
		}
		if c.After.Summary.ManuallyPositioned {
			continue
		}
		if model.Same(c.Before.Bounds.X, c.After.Bounds.X) && model.Same(c.Before.Bounds.Y, c.After.Bounds.Y) {
			continue
		}
		cur, ok := tx.Object(c.ID)
		if !ok || cur.Summary.ManuallyPositioned {
			continue
		}
		pinned := *cur.Summary
		pinned.ManuallyPositioned = true
		if err := tx.Update(c.ID, model.Patch{Summary: &pinned}); err != nil {
			return fmt.Errorf("pinning summary %s: %w", c.ID, err)
		}
	}
	return nil
}

type countingMutator struct {
	next    document.Mutator
	created int
	updated int
	deleted int
}

func (c *countingMutator) Create(obj model.Object) (string, error) {
	id, err := c.next.Create(obj)
	if err == nil {
		c.created++
	}
	return id, err
}

func (c *countingMutator) Update(id string, p model.Patch) error {
	err := c.next.Update(id, p)
	if err == nil {
		c.updated++
	}
	return err
}

func (c *countingMutator) Delete(id string) error {
	err := c.next.Delete(id)
	if err == nil {
		c.deleted++
	}
	return err
}
