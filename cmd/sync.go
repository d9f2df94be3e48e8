package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/moneyshape/internal/pipeline"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Settle the board, write it back and record its state",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, _ []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	sess, err := e.openBoard()
	if err != nil {
		return err
	}
	return saveAndReport(sess)
}

// saveAndReport writes a settled board and prints what the engine did.
func saveAndReport(sess *pipeline.Session) error {
	written, err := sess.Save()
	if err != nil {
		return err
	}

	verb := "unchanged"
	if written {
		verb = "written"
	}
	progress("  %s: %s passes, %s changes, board %s\n",
		sess.Name, formatNumber(int64(sess.Passes())), formatNumber(int64(sess.Mutations())), verb)
	if !flagQuiet {
		printBoard(sess)
	} else {
		printGaps(sess.Gaps())
	}
	fmt.Println()
	return nil
}
