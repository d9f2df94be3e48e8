package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/moneyshape/internal/docfile"
)

// ProgressFunc is called as boards finish loading.
type ProgressFunc func(current, total int)

// BoardResult is the outcome of opening one board.
type BoardResult struct {
	Board   docfile.DiscoveredBoard
	Session *Session
	Err     error
}

// LoadDir opens every board under dir in parallel. A board that fails to
// open is reported in its result and does not stop the others. When save
// is set each settled board is written back.
func LoadDir(ctx context.Context, dir string, opts Options, save bool, progressFn ProgressFunc) ([]BoardResult, error) {
	boards, err := docfile.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(boards) == 0 {
		return nil, nil
	}

	results := make([]BoardResult, len(boards))
	var processed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(runtime.GOMAXPROCS(0), 1))
	for i, b := range boards {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = open(b, opts, save)
			n := processed.Add(1)
			if progressFn != nil {
				progressFn(int(n), len(boards))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func open(b docfile.DiscoveredBoard, opts Options, save bool) BoardResult {
	r := BoardResult{Board: b}
	s, err := Open(b.Path, opts)
	r.Session = s
	if err != nil {
		r.Err = err
		return r
	}
	if save {
		if _, err := s.Save(); err != nil {
			r.Err = err
		}
	}
	return r
}
