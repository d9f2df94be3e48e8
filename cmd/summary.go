package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/moneyshape/internal/allocation"
	"github.com/theirongolddev/moneyshape/internal/cli"
	"github.com/theirongolddev/moneyshape/internal/pipeline"
)

var flagSummaryCards bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show container totals without writing anything",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&flagSummaryCards, "cards", false, "Render each summary as a card")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	sess, err := e.openBoard()
	if err != nil {
		return err
	}
	printBoard(sess)
	return nil
}

func printBoard(sess *pipeline.Session) {
	sums := sess.Summaries()

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("BUDGET  %s", sess.Name)))
	fmt.Println()

	if len(sums) == 0 {
		fmt.Println("  No containers with budget items found.")
		return
	}

	if flagSummaryCards {
		for _, s := range sums {
			fmt.Println(cli.RenderSummaryCard(s))
		}
	} else {
		fmt.Print(cli.RenderTable(cli.SummaryTable(sums)))
	}
	printGaps(sess.Gaps())
}

func printGaps(gaps []allocation.Gap) {
	if len(gaps) == 0 {
		return
	}
	msgs := make([]string, len(gaps))
	for i, g := range gaps {
		msgs[i] = g.String()
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprint(os.Stderr, cli.RenderWarnings(msgs))
}
