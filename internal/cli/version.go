package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/elements/internal/buildinfo"
	"github.com/aidanlsb/elements/internal/ui"
)

const defaultModulePath = "github.com/aidanlsb/elements"

type versionInfo struct {
	Version    string `json:"version"`
	ModulePath string `json:"module_path"`
	Commit     string `json:"commit,omitempty"`
	CommitTime string `json:"commit_time,omitempty"`
	Modified   bool   `json:"modified"`
	GoVersion  string `json:"go_version"`
	GOOS       string `json:"goos"`
	GOARCH     string `json:"goarch"`
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show elq version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersionInfo()
		if isJSONOutput() {
			outputSuccess(info, nil)
			return nil
		}

		fmt.Fprintln(stdout, ui.AccentBold.Render("elq "+info.Version))
		tbl := ui.NewTable(2)
		tbl.AddRow(ui.Muted.Render("module"), info.ModulePath)
		if info.Commit != "" {
			tbl.AddRow(ui.Muted.Render("commit"), info.Commit)
		}
		if info.CommitTime != "" {
			tbl.AddRow(ui.Muted.Render("built"), info.CommitTime)
		}
		tbl.AddRow(ui.Muted.Render("go"), info.GoVersion)
		tbl.AddRow(ui.Muted.Render("platform"), info.GOOS+"/"+info.GOARCH)
		tbl.AddRow(ui.Muted.Render("modified"), strconv.FormatBool(info.Modified))
		fmt.Fprint(stdout, tbl.String())
		return nil
	},
}

// currentVersionInfo prefers module build info and falls back to the
// values stamped into buildinfo by ldflags.
func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:    "devel",
		ModulePath: defaultModulePath,
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}

	if bi, ok := readBuildInfo(); ok && bi != nil {
		settings := make(map[string]string, len(bi.Settings))
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
		info.Version = normalizeVersion(bi.Main.Version)
		info.ModulePath = firstNonEmpty(bi.Main.Path, info.ModulePath)
		info.GoVersion = firstNonEmpty(bi.GoVersion, info.GoVersion)
		info.GOOS = firstNonEmpty(settings["GOOS"], info.GOOS)
		info.GOARCH = firstNonEmpty(settings["GOARCH"], info.GOARCH)
		info.Commit = settings["vcs.revision"]
		info.CommitTime = settings["vcs.time"]
		info.Modified = settings["vcs.modified"] == "true"
	}

	if info.Version == "devel" {
		info.Version = normalizeVersion(buildinfo.Version)
	}
	info.Commit = firstNonEmpty(info.Commit, buildinfo.Commit)
	info.CommitTime = firstNonEmpty(info.CommitTime, buildinfo.Date)
	return info
}

func normalizeVersion(version string) string {
	if version == "" || version == "(devel)" {
		return "devel"
	}
	return version
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
