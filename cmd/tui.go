package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/moneyshape/internal/logging"
	"github.com/theirongolddev/moneyshape/internal/pipeline"
	"github.com/theirongolddev/moneyshape/internal/tui"
	"github.com/theirongolddev/moneyshape/internal/tui/theme"
	"github.com/theirongolddev/moneyshape/internal/watch"
)

var flagTUINoWatch bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive board dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagTUINoWatch, "no-watch", false, "Do not reload when the board file changes")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()
	// Logs would tear the alt screen.
	e.log = zap.NewNop()

	path, err := e.boardPath()
	if err != nil {
		return err
	}
	theme.SetActive(e.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	opts := e.pipelineOptions()
	load := func() (tui.Board, error) {
		sess, err := pipeline.Open(path, opts)
		if err != nil {
			return tui.Board{}, err
		}
		return tui.FromSession(sess), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes chan struct{}
	if !flagTUINoWatch {
		w, err := watch.New([]string{path}, time.Duration(e.cfg.Daemon.DebounceMS)*time.Millisecond, logging.Component(e.log, "watch"))
		if err != nil {
			return err
		}
		changes = make(chan struct{}, 1)
		go func() {
			_ = w.Run(ctx, func(string) {
				select {
				case changes <- struct{}{}:
				default:
				}
			})
		}()
	}

	p := tea.NewProgram(tui.NewApp(load, changes), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
