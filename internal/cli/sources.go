package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/elements/internal/elements"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/ui"
)

var sourcesContext string

var sourcesCmd = &cobra.Command{
	Use:   "sources <kind>",
	Short: "List the sources of a kind as a tree",
	Long: `List the navigable sources of a kind: sections, groups or asset folders.

The modal context ignores edit permissions. The settings context lists one
non-nested node per asset source.

Examples:
  elq sources entries
  elq sources assets --context settings
  elq sources entries --user 7 --json`,
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

		sources, err := elements.Sources(env, kind, sourcesContext)
		if err != nil {
			return handleError(ErrInvalidInput, err, "Contexts: index, modal, settings")
		}

		if isJSONOutput() {
			if sources == nil {
				sources = []*model.Source{}
			}
			outputSuccess(map[string]any{"kind": kind.Type(), "context": sourcesContext, "sources": sources},
				&Meta{Count: len(model.Keys(sources))})
			return nil
		}

		if len(sources) == 0 {
			fmt.Fprintln(stdout, ui.Hint("No sources."))
			return nil
		}
		fmt.Fprint(stdout, ui.RenderTree(treeOf(sources)))
		return nil
	},
}

var sourceCmd = &cobra.Command{
	Use:   "source <kind> <key>",
	Short: "Show one source and the criteria it applies",
	Args:  cobra.ExactArgs(2),
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

		src, err := elements.GetSource(env, kind, sourcesContext, args[1])
		if err != nil {
			return handleError(ErrInvalidInput, err, "Contexts: index, modal, settings")
		}
		if src == nil {
			return handleErrorMsg(ErrSourceNotFound,
				fmt.Sprintf("source '%s' not found for %s", args[1], args[0]),
				fmt.Sprintf("Run 'elq sources %s' to list sources", args[0]))
		}

		attrs := elements.TableAttributes(env, kind, src.Key)
		if isJSONOutput() {
			outputSuccess(map[string]any{"source": src, "table_attributes": attrs}, nil)
			return nil
		}

		tbl := ui.NewTable(2)
		tbl.AddRow(ui.Muted.Render("key"), ui.Key(src.Key))
		tbl.AddRow(ui.Muted.Render("label"), src.Label)
		if len(src.Criteria) > 0 {
			crit, _ := json.Marshal(src.Criteria)
			tbl.AddRow(ui.Muted.Render("criteria"), string(crit))
		}
		if src.StructureID != 0 {
			tbl.AddRow(ui.Muted.Render("structure"), fmt.Sprintf("%d (editable: %t)", src.StructureID, src.StructureEditable))
		}
		if len(src.Data) > 0 {
			data, _ := json.Marshal(src.Data)
			tbl.AddRow(ui.Muted.Render("data"), string(data))
		}
		list := make([]string, len(attrs))
		for i, a := range attrs {
			list[i] = a.Label
		}
		tbl.AddRow(ui.Muted.Render("columns"), fmt.Sprint(list))
		fmt.Fprint(stdout, tbl.String())
		return nil
	},
}

func treeOf(sources []*model.Source) []*ui.TreeNode {
	nodes := make([]*ui.TreeNode, 0, len(sources))
	for _, s := range sources {
		n := &ui.TreeNode{Label: s.Label, Heading: s.Heading, Children: treeOf(s.Nested)}
		if !s.Heading {
			n.Detail = s.Key
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func init() {
	sourcesCmd.Flags().StringVar(&sourcesContext, "context", elements.ContextIndex, "Source context: index, modal or settings")
	sourceCmd.Flags().StringVar(&sourcesContext, "context", elements.ContextIndex, "Source context: index, modal or settings")
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(sourceCmd)
}
