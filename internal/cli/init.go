package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/elements/internal/catalog"
	"github.com/aidanlsb/elements/internal/config"
	"github.com/aidanlsb/elements/internal/elements"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/ui"
)

var initProject string

// InitResult is the JSON payload of elq init.
type InitResult struct {
	Config     string               `json:"config,omitempty"`
	Database   string               `json:"database"`
	Project    string               `json:"project,omitempty"`
	Applied    *catalog.ApplyResult `json:"applied,omitempty"`
	GlobalSets []string             `json:"global_sets_created,omitempty"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and apply a project layout",
	Long: `Create the element database (and a commented config file if none exists),
then apply a project.yaml declaring sections, entry types, groups, asset
sources, fields and global sets.

Applying is idempotent: everything is matched by handle, so running init
again after editing project.yaml only adds or updates what changed.

Examples:
  elq init
  elq init --project project.yaml
  elq --db ./site.db init --project project.yaml --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result := InitResult{}
		if configPath == "" && cfg.Path() == "" {
			path, err := config.CreateDefault("")
			if err != nil {
				return handleError(ErrConfigInvalid, err, "")
			}
			result.Config = path
			if cfg, err = config.LoadFrom(path); err != nil {
				return handleError(ErrConfigInvalid, err, "")
			}
			if dbPathFlag != "" {
				cfg.Database = dbPathFlag
			}
		}

		var project *catalog.Project
		if initProject != "" {
			var err error
			project, err = catalog.LoadProject(initProject)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return handleError(ErrProjectNotFound, err, "")
				}
				return handleError(ErrProjectInvalid, err, "")
			}
			result.Project = initProject
		}

		engine, db, err := openEngine()
		if err != nil {
			return handleSetupError(err)
		}
		defer db.Close()
		result.Database = getConfig().Database

		if project != nil {
			result.Applied, err = catalog.New(db).Apply(project)
			if err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
			result.GlobalSets, err = createGlobalSets(engine, project.GlobalSets)
			if err != nil {
				return handleEngineError(err)
			}
		}

		if isJSONOutput() {
			outputSuccess(result, nil)
			return nil
		}

		if result.Config != "" {
			fmt.Fprintln(stdout, ui.Successf("Config: %s", ui.Key(result.Config)))
		}
		fmt.Fprintln(stdout, ui.Successf("Database: %s", ui.Key(result.Database)))
		if a := result.Applied; a != nil {
			fmt.Fprintln(stdout, ui.Successf("Applied %s", initProject))
			tbl := ui.NewTable(2)
			tbl.AddRow("  sections", fmt.Sprintf("%d (%d entry types)", a.Sections, a.EntryTypes))
			tbl.AddRow("  category groups", fmt.Sprint(a.CategoryGroups))
			tbl.AddRow("  tag groups", fmt.Sprint(a.TagGroups))
			tbl.AddRow("  user groups", fmt.Sprint(a.UserGroups))
			tbl.AddRow("  asset sources", fmt.Sprintf("%d (%d folders)", a.AssetSources, a.Folders))
			tbl.AddRow("  fields", fmt.Sprintf("%d (%d block types)", a.Fields, a.BlockTypes))
			tbl.AddRow("  global sets", fmt.Sprintf("%d new", len(result.GlobalSets)))
			fmt.Fprint(stdout, tbl.String())
		}
		return nil
	},
}

// createGlobalSets saves the declared global sets that do not exist yet.
// Global sets are elements, so they go through the save pipeline rather
// than the catalog.
func createGlobalSets(engine *elements.Engine, specs []catalog.GroupSpec) ([]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	env, err := newEnv(engine)
	if err != nil {
		return nil, err
	}

	var created []string
	for _, spec := range specs {
		c := elements.NewCriteria(env, elements.GlobalSets)
		if err := c.Set("handle", spec.Handle); err != nil {
			return nil, err
		}
		n, err := elements.Count(env, elements.GlobalSets, c)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			continue
		}

		el := &model.Element{
			Type:    model.TypeGlobalSet,
			Enabled: true,
			Record:  &model.GlobalSetRecord{Name: spec.Name, Handle: spec.Handle},
		}
		ok, err := engine.Save(env, el)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("global set %s: %v", spec.Handle, el.Errors())
		}
		created = append(created, spec.Handle)
	}
	return created, nil
}

func init() {
	initCmd.Flags().StringVar(&initProject, "project", "", "Project file to apply (project.yaml)")
	rootCmd.AddCommand(initCmd)
}
