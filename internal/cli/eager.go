package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/elements/internal/elements"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/ui"
)

var eagerIDs []string

// EagerResult is the JSON payload of elq eager.
type EagerResult struct {
	Kind    model.ElementType   `json:"kind"`
	Handle  string              `json:"handle"`
	Handled bool                `json:"handled"`
	Map     *model.EagerLoadMap `json:"map,omitempty"`
	Loaded  map[int64][]int64   `json:"loaded"`
}

var eagerCmd = &cobra.Command{
	Use:   "eager <kind> <handle>",
	Short: "Show how an eager-loading handle maps source elements to targets",
	Long: `Resolve one eager-loading handle for the given source elements, print the
source-to-target map and load the targets.

Examples:
  elq eager entries author --id 3,4
  elq eager matrixblocks quote:author --id 10 --id 11
  elq eager categories children --id 2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := elements.ParseKind(args[0])
		if err != nil {
			return handleEngineError(err)
		}
		handle := strings.TrimSpace(args[1])
		if strings.Contains(handle, ".") {
			return handleErrorMsg(ErrInvalidInput,
				fmt.Sprintf("'%s' is a nested path", handle),
				"Pass a single handle here, or use 'elq query --with' for nested paths")
		}
		ids, err := parseIDs(eagerIDs)
		if err != nil {
			return handleError(ErrInvalidInput, err, "")
		}
		if len(ids) == 0 {
			return handleErrorMsg(ErrMissingArgument, "at least one --id is required", "")
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

		c := elements.NewCriteria(env, kind)
		if err := c.Apply(map[string]any{
			"id":         toAnyIDs(ids),
			"status":     "",
			"fixedOrder": true,
			"limit":      int64(-1),
		}); err != nil {
			return handleEngineError(err)
		}
		sources, err := elements.Find(env, kind, c)
		if err != nil {
			return handleEngineError(err)
		}
		if len(sources) == 0 {
			return handleErrorMsg(ErrElementNotFound,
				fmt.Sprintf("no %s with ids %v", args[0], ids), "")
		}

		m, handled, err := elements.EagerLoadingMap(env, kind, sources, handle)
		if err != nil {
			return handleEngineError(err)
		}
		if handled {
			if err := elements.EagerLoad(env, kind, sources, elements.Path{Handle: handle}); err != nil {
				return handleEngineError(err)
			}
		}

		result := EagerResult{Kind: kind.Type(), Handle: handle, Handled: handled, Map: m, Loaded: map[int64][]int64{}}
		for _, el := range sources {
			targets, _ := el.EagerLoaded(handle)
			result.Loaded[el.ID] = model.IDs(targets)
		}

		if isJSONOutput() {
			outputSuccess(result, &Meta{Count: len(sources)})
			return nil
		}

		if !handled {
			fmt.Fprintln(stdout, ui.Warning(fmt.Sprintf("handle '%s' means nothing for %s", handle, kind.Type())))
			return nil
		}
		fmt.Fprintf(stdout, "%s %s\n", ui.Header(handle), ui.Hint("→ "+string(m.Type)))
		tbl := ui.NewTable(3)
		for _, el := range sources {
			targets, _ := el.EagerLoaded(handle)
			titles := make([]string, 0, len(targets))
			for _, t := range targets {
				titles = append(titles, fmt.Sprintf("%s %s", ui.ID(t.ID), t.Title))
			}
			if len(titles) == 0 {
				titles = append(titles, ui.Hint("(none)"))
			}
			tbl.AddRow(ui.ID(el.ID), el.Title, strings.Join(titles, ", "))
		}
		fmt.Fprint(stdout, tbl.String())
		return nil
	},
}

func toAnyIDs(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func init() {
	eagerCmd.Flags().StringArrayVar(&eagerIDs, "id", nil, "Source element id (repeatable or comma-separated)")
	rootCmd.AddCommand(eagerCmd)
}
