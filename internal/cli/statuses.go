package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/elements/internal/elements"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/ui"
)

var statusesParams []string

// StatusCount is one row of elq statuses.
type StatusCount struct {
	elements.StatusOption
	Count int `json:"count"`
}

var statusesCmd = &cobra.Command{
	Use:   "statuses <kind>",
	Short: "List the statuses of a kind with element counts",
	Long: `List the status tokens a kind understands, in display order, with the number
of elements in each. Every element falls in exactly one status.

Examples:
  elq statuses entries
  elq statuses entries --param section=news
  elq statuses users --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := elements.ParseKind(args[0])
		if err != nil {
			return handleEngineError(err)
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

		counts := make([]StatusCount, 0, len(kind.Statuses()))
		for _, s := range kind.Statuses() {
			c, err := buildCriteria(env, kind, statusesParams, nil)
			if err != nil {
				return handleEngineError(err)
			}
			if err := c.Set("status", s.Token); err != nil {
				return handleEngineError(err)
			}
			n, err := elements.Count(env, kind, c)
			if err != nil {
				return handleEngineError(err)
			}
			counts = append(counts, StatusCount{StatusOption: s, Count: n})
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"kind": kind.Type(), "statuses": counts}, &Meta{Count: len(counts)})
			return nil
		}
		if len(counts) == 0 {
			fmt.Fprintln(stdout, ui.Hint(fmt.Sprintf("%s elements have no statuses.", kind.Type())))
			return nil
		}
		tbl := ui.NewTable(3)
		for _, s := range counts {
			tbl.AddRow(ui.Status(s.Token), s.Label, strconv.Itoa(s.Count))
		}
		fmt.Fprint(stdout, tbl.String())
		return nil
	},
}

var setStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Enable, disable, lock, suspend or activate an element",
	Long: `Change an element's status.

Users accept active, pending, locked and suspended. Every other kind with
statuses accepts enabled and disabled.

Examples:
  elq set-status 12 disabled
  elq set-status 7 suspended`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("invalid element id '%s'", args[0]), "")
		}
		token := args[1]

		engine, db, err := openEngine()
		if err != nil {
			return handleSetupError(err)
		}
		defer db.Close()

		env, err := newEnv(engine)
		if err != nil {
			return handleSetupError(err)
		}

		el, kind, err := elements.ByID(env, id, "")
		if err != nil {
			return handleEngineError(err)
		}

		switch {
		case el.Type == model.TypeUser:
			err = engine.SetUserStatus(env, id, token)
		case token == "enabled" || token == "disabled":
			err = engine.SetEnabled(env, id, token == "enabled")
		default:
			return handleErrorMsg(ErrInvalidValue,
				fmt.Sprintf("%s elements cannot be set to '%s'", el.Type, token),
				"Use enabled or disabled")
		}
		if err != nil {
			return handleEngineError(err)
		}

		updated, _, err := elements.ByID(env, id, "")
		if err != nil {
			return handleEngineError(err)
		}
		status := elements.Status(env, kind, updated)
		if isJSONOutput() {
			outputSuccess(map[string]any{"id": id, "status": status}, nil)
			return nil
		}
		fmt.Fprintln(stdout, ui.Successf("#%d is now %s", id, status))
		return nil
	},
}

func init() {
	statusesCmd.Flags().StringArrayVarP(&statusesParams, "param", "p", nil, "Criteria parameter as key=value (repeatable)")
	rootCmd.AddCommand(statusesCmd)
	rootCmd.AddCommand(setStatusCmd)
}
