package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/moneyshape/internal/config"
	"github.com/theirongolddev/moneyshape/internal/docfile"
	"github.com/theirongolddev/moneyshape/internal/tui/theme"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

type setupValues struct {
	board     string
	boardsDir string
	theme     string
	logLevel  string
	stateDB   string
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := config.Load()

	vals := setupValues{
		board:     cfg.General.Board,
		boardsDir: cfg.General.BoardsDir,
		theme:     cfg.Appearance.Theme,
		logLevel:  cfg.General.LogLevel,
		stateDB:   config.StateDBPath(cfg),
	}

	fmt.Println()
	fmt.Println("  Welcome to moneyshape!")
	if vals.boardsDir != "" {
		if boards, err := docfile.ScanDir(vals.boardsDir); err == nil && len(boards) > 0 {
			fmt.Printf("  Found %s boards in %s (%d groups)\n",
				formatNumber(int64(len(boards))), vals.boardsDir, docfile.CountGroups(boards))
		}
	}
	fmt.Println()

	if err := newSetupForm(&vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup canceled, nothing saved.")
			return nil
		}
		return err
	}

	applySetup(&cfg, vals)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `moneyshape setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func newSetupForm(v *setupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.Names()))
	for _, name := range theme.Names() {
		themes = append(themes, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Default board").
				Description("Board file used when --board is not given.").
				Placeholder("~/budgets/household.json").
				Validate(validBoardPath).
				Value(&v.board),
			huh.NewInput().
				Title("Boards directory").
				Description("Scanned by `boards` and watched by `daemon --dir`.").
				Value(&v.boardsDir),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&v.theme),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("warn", "warn"),
					huh.NewOption("info", "info"),
					huh.NewOption("debug", "debug"),
					huh.NewOption("error", "error"),
				).
				Value(&v.logLevel),
			huh.NewInput().
				Title("State database").
				Description("Allocation bookkeeping and last synced totals.").
				Value(&v.stateDB),
		),
	)
}

func validBoardPath(p string) error {
	if p == "" || docfile.IsBoardFile(p) {
		return nil
	}
	return errors.New("board files end in .json, .yaml or .yml")
}

func applySetup(cfg *config.Config, v setupValues) {
	cfg.General.Board = expandHome(v.board)
	cfg.General.BoardsDir = expandHome(v.boardsDir)
	cfg.Appearance.Theme = v.theme
	cfg.General.LogLevel = v.logLevel

	stateDB := expandHome(v.stateDB)
	if stateDB == filepath.Join(config.DataDir(), "state.db") {
		stateDB = ""
	}
	cfg.General.StateDB = stateDB
}

func expandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
