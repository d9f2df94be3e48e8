// Package cmd implements the moneyshape CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/moneyshape/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Board:          %s\n", orUnset(config.BoardPath(cfg)))
	fmt.Printf("    Boards dir:     %s\n", orUnset(cfg.General.BoardsDir))
	fmt.Printf("    State database: %s\n", config.StateDBPath(cfg))
	fmt.Printf("    Log level:      %s (json: %v)\n", cfg.General.LogLevel, cfg.General.LogJSON)
	fmt.Println()

	fmt.Println("  [Engine]")
	fmt.Printf("    Max passes:     %d\n", cfg.Engine.MaxPasses)
	fmt.Printf("    Summary:        %gx%g, %g right of its container\n",
		cfg.Engine.SummaryWidth, cfg.Engine.SummaryHeight, cfg.Engine.SummaryOffset)
	fmt.Printf("    Savings gap:    %g\n", cfg.Engine.SavingsGap)
	fmt.Println()

	fmt.Println("  [Treemap]")
	fmt.Printf("    Aspect bounds:  %g to %g\n", cfg.Treemap.MinAspect, cfg.Treemap.MaxAspect)
	fmt.Printf("    Padding:        %g (round: %v)\n", cfg.Treemap.Padding, cfg.Treemap.Round)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:        %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Events buffer:  %d\n", cfg.Daemon.EventsBuffer)
	fmt.Printf("    Debounce:       %dms\n", cfg.Daemon.DebounceMS)
	fmt.Println()

	fmt.Println("  Run `moneyshape setup` to reconfigure.")
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}
