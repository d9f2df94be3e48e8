package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/moneyshape/internal/cli"
	"github.com/theirongolddev/moneyshape/internal/config"
	"github.com/theirongolddev/moneyshape/internal/engine"
	"github.com/theirongolddev/moneyshape/internal/logging"
	"github.com/theirongolddev/moneyshape/internal/pipeline"
	"github.com/theirongolddev/moneyshape/internal/reconcile"
	"github.com/theirongolddev/moneyshape/internal/store"
	"github.com/theirongolddev/moneyshape/internal/treemap"
)

var (
	flagBoard    string
	flagStateDB  string
	flagNoState  bool
	flagQuiet    bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "moneyshape",
	Short: "Keep budget boards consistent",
	Long:  "Settle budget boards: container summaries, savings allocations and block sizes.",
	RunE:  runSummary,

	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagBoard, "board", "b", "", "Board file (default from config or MONEYSHAPE_BOARD)")
	rootCmd.PersistentFlags().StringVar(&flagStateDB, "state-db", "", "State database path")
	rootCmd.PersistentFlags().BoolVar(&flagNoState, "no-state", false, "Do not read or record allocation state")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// env bundles what every board command needs.
type env struct {
	cfg config.Config
	log *zap.Logger
	db  *store.DB
}

func (e *env) close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	_ = e.log.Sync()
}

// setup loads config, builds the logger and, unless --no-state, opens the
// state database.
func setup(withState bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.General.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log, err := logging.New(logging.Options{Level: level, JSON: cfg.General.LogJSON})
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log}

	if withState && !flagNoState {
		path := flagStateDB
		if path == "" {
			path = config.StateDBPath(cfg)
		}
		db, err := store.Open(path)
		if err != nil {
			// State is bookkeeping; boards still settle without it.
			log.Warn("state database unavailable", zap.String("path", path), zap.Error(err))
		} else {
			e.db = db
		}
	}
	return e, nil
}

func (e *env) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Engine: engineOptions(e.cfg),
		DB:     e.db,
		Log:    e.log,
	}
}

func engineOptions(cfg config.Config) engine.Options {
	return engine.Options{
		MaxPasses: cfg.Engine.MaxPasses,
		Reconcile: reconcile.Options{
			SummaryOffset: cfg.Engine.SummaryOffset,
			SummaryWidth:  cfg.Engine.SummaryWidth,
			SummaryHeight: cfg.Engine.SummaryHeight,
			SavingsGap:    cfg.Engine.SavingsGap,
		},
		Treemap: treemap.Options{
			Padding: cfg.Treemap.Padding,
			Aspect:  treemap.AspectBounds{Min: cfg.Treemap.MinAspect, Max: cfg.Treemap.MaxAspect},
			Round:   cfg.Treemap.Round,
		},
	}
}

func (e *env) boardPath() (string, error) {
	if flagBoard != "" {
		return flagBoard, nil
	}
	if p := config.BoardPath(e.cfg); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("no board given: pass --board, set MONEYSHAPE_BOARD or run `moneyshape setup`")
}

// openBoard opens and settles the selected board.
func (e *env) openBoard() (*pipeline.Session, error) {
	path, err := e.boardPath()
	if err != nil {
		return nil, err
	}
	return pipeline.Open(path, e.pipelineOptions())
}

func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}
