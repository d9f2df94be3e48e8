package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/moneyshape/internal/allocation"
	"github.com/theirongolddev/moneyshape/internal/cli"
	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/engine"
	"github.com/theirongolddev/moneyshape/internal/model"
)

var (
	flagScaleX        float64
	flagScaleY        float64
	flagTreemapParent string
	flagSquarify      bool
	flagDrawParent    string
	flagDrawKind      string
)

var setAmountCmd = &cobra.Command{
	Use:   "set-amount <item-id> <amount>",
	Short: "Change an item's amount and resize its block",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		return editBoard(func(e *engine.Engine, st *document.Store) error {
			return e.SetAmount(st, args[0], amount)
		})
	},
}

var resizeCmd = &cobra.Command{
	Use:   "resize <item-id>",
	Short: "Resize an item's block; the amount follows the new area",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if flagScaleX <= 0 || flagScaleY <= 0 {
			return errors.New("--scale-x and --scale-y must be positive")
		}
		return editBoard(func(e *engine.Engine, st *document.Store) error {
			blk, err := e.ResizeItem(st, args[0], flagScaleX, flagScaleY)
			if err != nil {
				return err
			}
			progress("  %s is now %s, amount %s\n", args[0], cli.FormatSize(blk.W, blk.H), cli.FormatMoney(blk.Amount, ""))
			return nil
		})
	},
}

var treemapCmd = &cobra.Command{
	Use:   "treemap [item-id...]",
	Short: "Arrange items as a treemap over their current footprint",
	RunE: func(_ *cobra.Command, args []string) error {
		return editBoard(func(e *engine.Engine, st *document.Store) error {
			ids := args
			if flagTreemapParent != "" {
				ids = append(ids, itemsIn(st.Snapshot(), flagTreemapParent)...)
			}
			if len(ids) == 0 {
				return errors.New("no items given: pass item ids or --container")
			}
			if flagSquarify {
				return e.Squarify(st, ids)
			}
			placed, err := e.ArrangeTreemap(st, ids)
			if err != nil {
				return err
			}
			if len(placed) == 0 {
				progress("  nothing to arrange (need at least two items)\n")
			}
			return nil
		})
	},
}

var addSavingsCmd = &cobra.Command{
	Use:   "add-savings <container-id>",
	Short: "Add a savings block holding what a container has left",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return editBoard(func(e *engine.Engine, st *document.Store) error {
			id, err := e.AddSavingsBlock(st, args[0])
			if err != nil {
				return err
			}
			progress("  added %s\n", id)
			return nil
		})
	},
}

var moveSummaryCmd = &cobra.Command{
	Use:   "move-summary <summary-id> <x> <y>",
	Short: "Place a summary by hand; the engine stops moving it",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		x, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("x: %w", err)
		}
		y, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("y: %w", err)
		}
		return editBoard(func(e *engine.Engine, st *document.Store) error {
			return e.MoveSummary(st, args[0], x, y)
		})
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <savings-id> <target-id> [label]",
	Short: "Allocate part of a savings item to another item",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(_ *cobra.Command, args []string) error {
		label := ""
		if len(args) == 3 {
			label = args[2]
		}
		return editBoard(func(e *engine.Engine, st *document.Store) error {
			id, err := e.Link(st, args[0], args[1], label)
			if err != nil {
				return err
			}
			progress("  added %s\n", id)
			return nil
		})
	},
}

var drawCmd = &cobra.Command{
	Use:   "draw <x0> <y0> <x1> <y1>",
	Short: "Create an item from a dragged rectangle",
	Args:  cobra.ExactArgs(4),
	RunE: func(_ *cobra.Command, args []string) error {
		var pts [4]float64
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("coordinate %d: %w", i+1, err)
			}
			pts[i] = v
		}
		kind := model.Kind(flagDrawKind)
		if !kind.Valid() {
			return fmt.Errorf("unknown kind %q: want income, expense or savings", flagDrawKind)
		}
		return editBoard(func(e *engine.Engine, st *document.Store) error {
			id, err := e.DrawItem(st, flagDrawParent, kind, pts[0], pts[1], pts[2], pts[3])
			if err != nil {
				return err
			}
			progress("  added %s\n", id)
			return nil
		})
	},
}

func init() {
	resizeCmd.Flags().Float64Var(&flagScaleX, "scale-x", 1, "Horizontal scale factor")
	resizeCmd.Flags().Float64Var(&flagScaleY, "scale-y", 1, "Vertical scale factor")
	treemapCmd.Flags().StringVar(&flagTreemapParent, "container", "", "Arrange every item directly inside this container")
	treemapCmd.Flags().BoolVar(&flagSquarify, "squarify", false, "Turn each item into a square instead")
	drawCmd.Flags().StringVar(&flagDrawParent, "container", "", "Container to draw into")
	drawCmd.Flags().StringVar(&flagDrawKind, "kind", string(model.KindExpense), "Item kind")

	rootCmd.AddCommand(setAmountCmd, resizeCmd, treemapCmd, addSavingsCmd, moveSummaryCmd, linkCmd, drawCmd)
}

// editBoard applies one user command to the selected board, settles it and
// saves it.
func editBoard(fn func(e *engine.Engine, st *document.Store) error) error {
	h, err := setup(true)
	if err != nil {
		return err
	}
	defer h.close()

	sess, err := h.openBoard()
	if err != nil && !errors.Is(err, engine.ErrNoFixedPoint) {
		return err
	}
	if err := sess.Do(fn); err != nil {
		return err
	}
	return saveAndReport(sess)
}

func parseAmount(s string) (float64, error) {
	d, ok := allocation.ParseLabel(s)
	if !ok {
		return 0, fmt.Errorf("amount %q must be a non-negative number", s)
	}
	return d.InexactFloat64(), nil
}

// itemsIn lists the budget items directly inside a container.
func itemsIn(v document.View, containerID string) []string {
	var ids []string
	for _, id := range v.Children(containerID) {
		if obj, ok := v.Object(id); ok && obj.Type == model.TypeItem {
			ids = append(ids, id)
		}
	}
	return ids
}
