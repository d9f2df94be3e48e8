// Package pipeline loads board files, drives the engine to a fixed point
// over them and writes the result back along with the engine's bookkeeping.
package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/theirongolddev/moneyshape/internal/allocation"
	"github.com/theirongolddev/moneyshape/internal/docfile"
	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/engine"
	"github.com/theirongolddev/moneyshape/internal/model"
	"github.com/theirongolddev/moneyshape/internal/store"
)

// Options configure how boards are opened.
type Options struct {
	Engine engine.Options
	// DB, when set, supplies and records allocation state per board.
	DB  *store.DB
	Log *zap.Logger
}

// Session is one open board.
type Session struct {
	Path   string
	Name   string
	Store  *document.Store
	Engine *engine.Engine

	db         *store.DB
	log        *zap.Logger
	hash       uint64
	saved      uint64
	lastReport engine.PassReport
	passes     int
	mutations  int
}

// Open loads the board at path, restores its allocation state and runs the
// engine until the board settles.
func Open(path string, opts Options) (*Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("board", abs))

	b, hash, err := docfile.Load(abs)
	if err != nil {
		return nil, err
	}
	st, err := b.Store()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", abs, err)
	}

	eng := engine.New(opts.Engine, log.Named("engine"))
	if opts.DB != nil {
		state, err := opts.DB.AllocationState(abs)
		if err != nil {
			return nil, fmt.Errorf("reading allocation state: %w", err)
		}
		eng.Synchronizer().Restore(state)
	}

	s := &Session{
		Path:   abs,
		Name:   b.Name,
		Store:  st,
		Engine: eng,
		db:     opts.DB,
		log:    log,
		hash:   hash,
	}
	if _, err := s.Converge(); err != nil {
		return s, err
	}
	return s, nil
}

// Converge runs engine passes until the board settles.
func (s *Session) Converge() ([]engine.PassReport, error) {
	reports, err := s.Engine.Converge(s.Store)
	s.passes += len(reports)
	for _, r := range reports {
		s.mutations += r.Mutations()
	}
	if len(reports) > 0 {
		s.lastReport = reports[len(reports)-1]
	}
	if err != nil {
		s.log.Warn("board did not settle", zap.Int("passes", len(reports)), zap.Error(err))
		return reports, err
	}
	return reports, nil
}

// Do runs a host command against the board and converges afterwards.
func (s *Session) Do(fn func(e *engine.Engine, st *document.Store) error) error {
	if err := fn(s.Engine, s.Store); err != nil {
		return err
	}
	_, err := s.Converge()
	return err
}

// Dirty reports whether the board changed since it was loaded or saved.
func (s *Session) Dirty() bool {
	return s.Store.Version() != s.saved
}

// Passes returns the number of engine passes run so far.
func (s *Session) Passes() int { return s.passes }

// Mutations returns the number of engine writes made so far.
func (s *Session) Mutations() int { return s.mutations }

// Hash returns the content hash of the file as last read or written.
func (s *Session) Hash() uint64 { return s.hash }

// Gaps returns the allocation problems found by the latest pass.
func (s *Session) Gaps() []allocation.Gap { return s.lastReport.Gaps() }

// Aggregates returns every container's totals as of the latest pass.
func (s *Session) Aggregates() map[string]model.Aggregate { return s.lastReport.Aggregates }

// Summaries returns the board's summaries ordered by container name.
func (s *Session) Summaries() []model.Summary {
	v := s.Store.Snapshot()
	var out []model.Summary
	for _, id := range document.OfType(v, model.TypeSummary) {
		if obj, ok := v.Object(id); ok && obj.Summary != nil {
			out = append(out, *obj.Summary)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ContainerName != out[j].ContainerName {
			return out[i].ContainerName < out[j].ContainerName
		}
		return out[i].ContainerID < out[j].ContainerID
	})
	return out
}

// Save writes the board back when it changed and records the sync. It
// reports whether the file was rewritten.
func (s *Session) Save() (bool, error) {
	written := false
	if s.Dirty() {
		h, err := docfile.Save(s.Path, docfile.FromView(s.Name, s.Store.Snapshot()))
		if err != nil {
			return false, err
		}
		s.hash = h
		s.saved = s.Store.Version()
		written = true
		s.log.Info("board saved", zap.Uint64("version", s.saved))
	}
	if s.db == nil {
		return written, nil
	}
	err := s.db.SaveSync(store.Sync{
		Board: store.BoardInfo{
			Path:        s.Path,
			Name:        s.Name,
			ContentHash: s.hash,
			Objects:     len(s.Store.Snapshot().IDs()),
			Gaps:        len(s.Gaps()),
		},
		Existed:   s.Engine.Synchronizer().State(),
		Summaries: s.Summaries(),
	})
	if err != nil {
		return written, fmt.Errorf("recording sync: %w", err)
	}
	return written, nil
}
