package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/elements/internal/structure"
	"github.com/aidanlsb/elements/internal/ui"
)

var (
	moveBefore    int64
	moveAfter     int64
	movePrependTo int64
	moveAppendTo  int64
	moveToRoot    bool
)

var moveCmd = &cobra.Command{
	Use:   "move <id>",
	Short: "Move an element within its structure",
	Long: `Move an entry or category within its structure.

Exactly one placement is required. Moving recomputes the URI of the element
and of every descendant. Categories that were already in the structure also
pass their incoming relations up to their new ancestors.

Examples:
  elq move 12 --append-to 4        # last child of 4
  elq move 12 --prepend-to 4       # first child of 4
  elq move 12 --before 9
  elq move 12 --root               # last element at the top level`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("invalid element id '%s'", args[0]), "")
		}
		pos, target, err := movePlacement(cmd)
		if err != nil {
			return handleError(ErrInvalidInput, err, "Use one of --before, --after, --prepend-to, --append-to or --root")
		}

		engine, db, err := openEngine()
		if err != nil {
			return handleSetupError(err)
		}
		defer db.Close()

		env, err := newEnv(engine)
		if err != nil {
			return handleSetupError(err)
		}

		res, err := engine.Move(env, id, pos, target)
		if err != nil {
			if errors.Is(err, structure.ErrInvalidMove) || errors.Is(err, structure.ErrNotInStructure) {
				return handleError(ErrInvalidMove, err, "")
			}
			return handleEngineError(err)
		}

		if isJSONOutput() {
			outputSuccess(res, nil)
			return nil
		}
		if !res.Moved {
			fmt.Fprintln(stdout, ui.Info("Element is already in place"))
			return nil
		}
		fmt.Fprintln(stdout, ui.Successf("Moved #%d (%s %d)", id, pos, target))
		fmt.Fprintln(stdout, ui.Hint(fmt.Sprintf("  %s updated, %s added",
			ui.Count(res.URIsUpdated, "URI", "URIs"),
			ui.Count(res.RelationsAdded, "relation", "relations"))))
		return nil
	},
}

// movePlacement reads the one placement flag that was set.
func movePlacement(cmd *cobra.Command) (structure.Position, int64, error) {
	type placement struct {
		flag   string
		pos    structure.Position
		target int64
	}
	candidates := []placement{
		{"before", structure.Before, moveBefore},
		{"after", structure.After, moveAfter},
		{"prepend-to", structure.PrependTo, movePrependTo},
		{"append-to", structure.AppendTo, moveAppendTo},
		{"root", structure.AppendTo, 0},
	}
	var chosen []placement
	for _, p := range candidates {
		if p.flag == "root" && !moveToRoot {
			continue
		}
		if cmd.Flags().Changed(p.flag) {
			chosen = append(chosen, p)
		}
	}
	if len(chosen) != 1 {
		return 0, 0, fmt.Errorf("expected exactly one placement, got %d", len(chosen))
	}
	return chosen[0].pos, chosen[0].target, nil
}

func init() {
	moveCmd.Flags().Int64Var(&moveBefore, "before", 0, "Place immediately before this element")
	moveCmd.Flags().Int64Var(&moveAfter, "after", 0, "Place immediately after this element")
	moveCmd.Flags().Int64Var(&movePrependTo, "prepend-to", 0, "Make the first child of this element (0 for the top level)")
	moveCmd.Flags().Int64Var(&moveAppendTo, "append-to", 0, "Make the last child of this element (0 for the top level)")
	moveCmd.Flags().BoolVar(&moveToRoot, "root", false, "Make the last element at the top level")
	rootCmd.AddCommand(moveCmd)
}
