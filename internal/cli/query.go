package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/elements/internal/elements"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/ui"
)

var (
	queryParams  []string
	queryFields  []string
	queryWith    []string
	querySource  string
	queryContext string
	queryCount   bool
	queryIDs     bool
)

// QueryResult is the JSON payload of elq query.
type QueryResult struct {
	Kind     model.ElementType `json:"kind"`
	Source   string            `json:"source,omitempty"`
	Elements []ElementView     `json:"elements"`
}

// ElementView is an element plus its computed status and table values.
type ElementView struct {
	*model.Element
	Status     string            `json:"status,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

var queryCmd = &cobra.Command{
	Use:   "query <kind>",
	Short: "Find elements of a kind matching criteria",
	Long: `Find elements of a kind matching criteria parameters.

Values that look like flow lists or maps decode as YAML, so list criteria and
relatedTo maps can be written inline. Unknown parameters are ignored unless
strict_criteria is set in the config.

Examples:
  elq query entries --param section=news --param order="postDate desc"
  elq query entries --param status=[live,pending] --with author
  elq query categories --param descendantOf=12 --param descendantDist=1
  elq query entries --param relatedTo="{sourceElement: 4, field: topics}"
  elq query entries --field summary="gophers*" --ids
  elq query assets --source folder:3 --param kind=image`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

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

		c, err := buildCriteria(env, kind, queryParams, queryFields)
		if err != nil {
			return handleEngineError(err)
		}
		if len(queryWith) > 0 {
			if err := c.Set("with", toAnySlice(queryWith)); err != nil {
				return handleEngineError(err)
			}
		}

		source := "*"
		if querySource != "" {
			src, err := elements.GetSource(env, kind, queryContext, querySource)
			if err != nil {
				return handleEngineError(err)
			}
			if src == nil {
				return handleErrorMsg(ErrSourceNotFound,
					fmt.Sprintf("source '%s' not found for %s", querySource, args[0]),
					fmt.Sprintf("Run 'elq sources %s' to list sources", args[0]))
			}
			if err := elements.ScopeToSource(c, src); err != nil {
				return handleEngineError(err)
			}
			source = src.Key
		}

		warnings := ignoredWarnings(c.Ignored())

		if queryCount {
			n, err := elements.Count(env, kind, c)
			if err != nil {
				return handleEngineError(err)
			}
			warnings = append(warnings, noticeWarnings(env.Notices())...)
			if isJSONOutput() {
				outputSuccessWithWarnings(map[string]int{"count": n}, warnings, &Meta{Count: n, QueryTimeMs: time.Since(start).Milliseconds()})
				return nil
			}
			printWarnings(warnings)
			fmt.Fprintln(stdout, n)
			return nil
		}

		if queryIDs {
			ids, err := elements.FindIDs(env, kind, c)
			if err != nil {
				return handleEngineError(err)
			}
			warnings = append(warnings, noticeWarnings(env.Notices())...)
			if isJSONOutput() {
				outputSuccessWithWarnings(map[string][]int64{"ids": ids}, warnings, &Meta{Count: len(ids), QueryTimeMs: time.Since(start).Milliseconds()})
				return nil
			}
			printWarnings(warnings)
			for _, id := range ids {
				fmt.Fprintln(stdout, id)
			}
			return nil
		}

		found, err := elements.Find(env, kind, c)
		if err != nil {
			return handleEngineError(err)
		}
		warnings = append(warnings, noticeWarnings(env.Notices())...)

		attrs := elements.TableAttributes(env, kind, source)
		if isJSONOutput() {
			result := QueryResult{Kind: kind.Type(), Elements: make([]ElementView, 0, len(found))}
			if querySource != "" {
				result.Source = source
			}
			for _, el := range found {
				result.Elements = append(result.Elements, viewOf(env, kind, el, attrs))
			}
			outputSuccessWithWarnings(result, warnings, &Meta{Count: len(found), QueryTimeMs: time.Since(start).Milliseconds()})
			return nil
		}

		printWarnings(warnings)
		if len(found) == 0 {
			fmt.Fprintln(stdout, ui.Hint("No elements found."))
			return nil
		}
		fmt.Fprint(stdout, renderElements(env, kind, found, attrs))
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, ui.Hint(ui.Count(len(found), "element", "elements")))
		return nil
	},
}

func viewOf(env *elements.Env, kind elements.Kind, el *model.Element, attrs []elements.Attribute) ElementView {
	v := ElementView{Element: el, Attributes: make(map[string]string, len(attrs))}
	if kind.HasStatuses() {
		v.Status = elements.Status(env, kind, el)
	}
	for _, a := range attrs {
		v.Attributes[a.Key] = elements.AttributeValue(env, kind, el, a.Key)
	}
	return v
}

func renderElements(env *elements.Env, kind elements.Kind, found []*model.Element, attrs []elements.Attribute) string {
	labels := make([]string, len(attrs))
	for i, a := range attrs {
		labels[i] = a.Label
	}
	tbl := elementsTable(labels, kind.HasStatuses())
	for i, el := range found {
		cells := []string{strconv.FormatInt(el.ID, 10)}
		if kind.HasStatuses() {
			cells = append(cells, ui.Status(elements.Status(env, kind, el)))
		}
		for _, a := range attrs {
			cells = append(cells, elements.AttributeValue(env, kind, el, a.Key))
		}
		tbl.AddRow(ui.ResultRow{Num: i + 1, Cells: cells})
	}
	return tbl.Render()
}

func elementsTable(labels []string, withStatus bool) *ui.ResultsTable {
	return ui.NewResultsTable(ui.NewDisplayContext(), ui.AttributeLayout(labels, withStatus)).ShowHeaders()
}

func ignoredWarnings(ignored []string) []Warning {
	var out []Warning
	for _, name := range ignored {
		out = append(out, Warning{
			Code:    WarnIgnoredAttribute,
			Message: fmt.Sprintf("criteria attribute '%s' is not defined for this kind and was ignored", name),
			Ref:     name,
		})
	}
	return out
}

func printWarnings(warnings []Warning) {
	for _, w := range warnings {
		fmt.Fprintln(stdout, ui.Warning(w.Message))
	}
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func init() {
	queryCmd.Flags().StringArrayVarP(&queryParams, "param", "p", nil, "Criteria parameter as key=value (repeatable)")
	queryCmd.Flags().StringArrayVarP(&queryFields, "field", "f", nil, "Custom field condition as handle=value (repeatable)")
	queryCmd.Flags().StringSliceVarP(&queryWith, "with", "w", nil, "Eager-load paths such as author or body.quote:author (comma-separated)")
	queryCmd.Flags().StringVarP(&querySource, "source", "s", "", "Scope the query to a source key")
	queryCmd.Flags().StringVar(&queryContext, "context", elements.ContextIndex, "Source context: index, modal or settings")
	queryCmd.Flags().BoolVar(&queryCount, "count", false, "Print only the number of matches")
	queryCmd.Flags().BoolVar(&queryIDs, "ids", false, "Print only matching ids")
	queryCmd.MarkFlagsMutuallyExclusive("count", "ids")
	rootCmd.AddCommand(queryCmd)
}
