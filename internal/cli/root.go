// Package cli implements the elq command-line interface.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/elements/internal/config"
	"github.com/aidanlsb/elements/internal/logging"
	"github.com/aidanlsb/elements/internal/ui"
)

var (
	// Global flags
	configPath string
	dbPathFlag string
	userFlag   string
	localeFlag string

	// Resolved values
	cfg    *config.Config
	logger *logging.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "elq",
	Short: "elq - query and inspect a CMS element store",
	Long: `elq runs element queries against a CMS element store: entries, assets,
categories, tags, users, Matrix blocks and global sets.

Queries are described by criteria parameters (--param section=news), custom
field conditions (--field summary=gophers*) and eager-loading paths
(--with author,topics). Results print as a table, or as a JSON envelope
with --json.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "completion", "help", "version":
			return nil
		}
		if cmd.Parent() != nil && cmd.Parent().Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = loadGlobalConfig()
		if err != nil {
			return handleError(ErrConfigInvalid, fmt.Errorf("failed to load config: %w", err), "Check the file named by --config or $"+config.EnvPath)
		}
		if dbPathFlag != "" {
			cfg.Database = dbPathFlag
		}
		if localeFlag != "" && !cfg.HasLocale(strings.ToLower(localeFlag)) {
			return handleErrorMsg(ErrInvalidInput,
				fmt.Sprintf("locale '%s' is not a site locale", localeFlag),
				"Add it to locales in the config file")
		}
		ui.ConfigureTheme(cfg.UI.Accent)

		logger, err = logging.New(logging.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			File:   cfg.Log.File,
		})
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			return nil
		}
		return logger.Close()
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Path to the SQLite database (overrides database in config)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "Act as this user id, or \"anonymous\" (default: console admin)")
	rootCmd.PersistentFlags().StringVar(&localeFlag, "locale", "", "Query this site locale instead of the primary one")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

func loadGlobalConfig() (*config.Config, error) {
	if strings.TrimSpace(configPath) != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}
