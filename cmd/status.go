package cmd

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/moneyshape/internal/cli"
	"github.com/theirongolddev/moneyshape/internal/model"
	"github.com/theirongolddev/moneyshape/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Compare the board with what the last sync recorded",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	if flagNoState {
		return errors.New("status needs the state database; drop --no-state")
	}
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()
	if e.db == nil {
		return errors.New("state database unavailable")
	}

	sess, err := e.openBoard()
	if err != nil {
		return err
	}

	info, ok, err := e.db.Board(sess.Path)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("STATUS  %s", sess.Name)))
	fmt.Println()
	if !ok {
		fmt.Println("  Never synced. Run `moneyshape sync` to record a baseline.")
		return nil
	}

	last, err := e.db.LastSummaries(sess.Path)
	if err != nil {
		return err
	}

	fmt.Printf("  Last sync:  %s\n", info.SyncedAt.Local().Format(time.RFC3339))
	switch {
	case info.ContentHash != sess.Hash():
		fmt.Println("  File:       changed on disk since the last sync")
	case sess.Dirty():
		fmt.Println("  File:       needs a sync")
	default:
		fmt.Println("  File:       in sync")
	}
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Container", "Left", "At sync", "Change"},
		Rows:    statusRows(sess.Summaries(), last),
	}))
	printGaps(sess.Gaps())
	return nil
}

// statusRows lines up current summaries against the recorded ones,
// including containers that have since disappeared.
func statusRows(current []model.Summary, last map[string]store.Recorded) [][]string {
	var rows [][]string
	seen := make(map[string]bool, len(current))
	for _, s := range current {
		seen[s.ContainerID] = true
		cur := currencyOf(s)
		r, ok := last[s.ContainerID]
		if !ok {
			rows = append(rows, []string{nameOf(s), cli.FormatMoney(s.Left(), cur), "-", "new"})
			continue
		}
		change := "-"
		if delta := s.Left() - r.Summary.Left(); !model.Same(delta, 0) {
			change = cli.FormatSigned(delta, cur)
		}
		rows = append(rows, []string{
			nameOf(s),
			cli.FormatMoney(s.Left(), cur),
			cli.FormatMoney(r.Summary.Left(), currencyOf(r.Summary)),
			change,
		})
	}

	var gone []model.Summary
	for id, r := range last {
		if !seen[id] {
			gone = append(gone, r.Summary)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].ContainerID < gone[j].ContainerID })
	for _, s := range gone {
		rows = append(rows, []string{nameOf(s), "-", cli.FormatMoney(s.Left(), currencyOf(s)), "removed"})
	}
	return rows
}

func nameOf(s model.Summary) string {
	if s.ContainerName != "" {
		return s.ContainerName
	}
	return s.ContainerID
}

func currencyOf(s model.Summary) string {
	if s.Mixed {
		return ""
	}
	return s.Currency
}
