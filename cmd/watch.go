package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/moneyshape/internal/config"
	"github.com/theirongolddev/moneyshape/internal/logging"
	"github.com/theirongolddev/moneyshape/internal/pipeline"
	"github.com/theirongolddev/moneyshape/internal/watch"
)

var flagWatchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Settle boards every time they change on disk",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchDir, "dir", "", "Watch every board in this directory instead of one board")
	rootCmd.AddCommand(watchCmd)
}

// watchTargets returns the directory given with dir, or else the board.
func (e *env) watchTargets(dir string) ([]string, error) {
	if dir != "" {
		return []string{dir}, nil
	}
	if flagBoard == "" && config.BoardPath(e.cfg) == "" && e.cfg.General.BoardsDir != "" {
		return []string{e.cfg.General.BoardsDir}, nil
	}
	p, err := e.boardPath()
	if err != nil {
		return nil, err
	}
	return []string{p}, nil
}

func runWatch(_ *cobra.Command, _ []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	targets, err := e.watchTargets(flagWatchDir)
	if err != nil {
		return err
	}
	log := logging.Component(e.log, "watch")
	w, err := watch.New(targets, time.Duration(e.cfg.Daemon.DebounceMS)*time.Millisecond, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := e.pipelineOptions()
	written := map[string]uint64{}
	syncOne := func(path string) {
		sess, err := pipeline.Open(path, opts)
		if err != nil {
			log.Error("board failed to settle", zap.String("board", path), zap.Error(err))
			progress("  %s: %v\n", path, err)
			return
		}
		if h, ok := written[sess.Path]; ok && h == sess.Hash() && !sess.Dirty() {
			return
		}
		if err := saveAndReport(sess); err != nil {
			log.Error("saving board", zap.String("board", path), zap.Error(err))
			return
		}
		written[sess.Path] = sess.Hash()
	}

	for _, t := range targets {
		if info, err := os.Stat(t); err == nil && !info.IsDir() {
			syncOne(t)
		}
	}
	progress("  Watching %v (Ctrl-C to stop)\n", targets)

	// Run calls back from a single goroutine, so written needs no lock.
	if err := w.Run(ctx, syncOne); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
