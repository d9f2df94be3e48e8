package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/moneyshape/internal/cli"
	"github.com/theirongolddev/moneyshape/internal/docfile"
	"github.com/theirongolddev/moneyshape/internal/pipeline"
)

var (
	flagBoardsDir  string
	flagBoardsSync bool
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "Summarize every board in a directory",
	RunE:  runBoards,
}

func init() {
	boardsCmd.Flags().StringVar(&flagBoardsDir, "dir", "", "Boards directory (default from config)")
	boardsCmd.Flags().BoolVar(&flagBoardsSync, "sync", false, "Write each settled board back and record its state")
	rootCmd.AddCommand(boardsCmd)
}

func runBoards(_ *cobra.Command, _ []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	dir := flagBoardsDir
	if dir == "" {
		dir = e.cfg.General.BoardsDir
	}
	if dir == "" {
		return errors.New("no boards directory: pass --dir or set general.boards_dir")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	progress("  Scanning boards...\n")
	results, err := pipeline.LoadDir(ctx, dir, e.pipelineOptions(), flagBoardsSync, func(current, total int) {
		progress("\r  Settling %s", cli.RenderProgressBar(current, total, 20))
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Printf("\n  No boards found in %s\n", dir)
		return nil
	}
	groups := make([]docfile.DiscoveredBoard, len(results))
	for i, r := range results {
		groups[i] = r.Board
	}
	progress("\r  Settled %d boards in %d groups    \n", len(results), docfile.CountGroups(groups))

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("BOARDS  %s", dir)))
	fmt.Println()

	rows, failed := boardRows(results)
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Board", "Group", "Containers", "Left", "Gaps"},
		Rows:    rows,
	}))
	if len(failed) > 0 {
		fmt.Println()
		fmt.Print(cli.RenderWarnings(failed))
	}
	return nil
}

func boardRows(results []pipeline.BoardResult) (rows [][]string, failed []string) {
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", r.Board.Path, r.Err))
		}
		if r.Session == nil {
			continue
		}
		sums := r.Session.Summaries()
		var left float64
		currencies := map[string]bool{}
		for _, s := range sums {
			left += s.Left()
			currencies[currencyOf(s)] = true
		}
		group := r.Board.Group
		if group == "" {
			group = "-"
		}
		rows = append(rows, []string{
			r.Session.Name,
			group,
			formatNumber(int64(len(sums))),
			cli.FormatMoney(left, soleCurrency(currencies)),
			formatNumber(int64(len(r.Session.Gaps()))),
		})
	}
	return rows, failed
}

func soleCurrency(set map[string]bool) string {
	if len(set) != 1 {
		return ""
	}
	for c := range set {
		return c
	}
	return ""
}
