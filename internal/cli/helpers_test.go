package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/elements/internal/config"
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/elements"
	"github.com/aidanlsb/elements/internal/model"
)

const testProject = `
sections:
  - handle: news
    name: News
    type: channel
    uri_format: "news/{slug}"
    entry_types:
      - handle: article
        name: Article
  - handle: pages
    name: Pages
    type: structure
    uri_format: "{parent.uri}/{slug}"
category_groups:
  - handle: topics
    name: Topics
    uri_format: "{parent.uri}/{slug}"
tag_groups:
  - handle: keywords
    name: Keywords
asset_sources:
  - handle: uploads
    name: Uploads
    folders:
      - name: photos
fields:
  - handle: topics
    type: Categories
global_sets:
  - handle: footer
    name: Footer
`

type cliFixture struct {
	t       *testing.T
	dir     string
	config  string
	project string
}

// plainOutput disables ANSI styling so text output can be matched.
func plainOutput(t *testing.T) {
	t.Helper()
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })
}

// newCLI writes a config and project into a temp dir and runs elq init.
func newCLI(t *testing.T) *cliFixture {
	t.Helper()
	plainOutput(t)
	dir := t.TempDir()
	f := &cliFixture{
		t:       t,
		dir:     dir,
		config:  filepath.Join(dir, "config.toml"),
		project: filepath.Join(dir, "project.yaml"),
	}
	require.NoError(t, os.WriteFile(f.config, []byte(`database = "site.db"

[audit]
enabled = true

[ui]
accent = "none"
`), 0o644))
	require.NoError(t, os.WriteFile(f.project, []byte(testProject), 0o644))

	f.ok("init", "--project", f.project)
	return f
}

// run executes elq with --config and --json and returns stdout.
func (f *cliFixture) run(args ...string) (string, error) {
	f.t.Helper()
	return f.exec(append([]string{"--json"}, args...)...)
}

// runText executes elq with human-readable output.
func (f *cliFixture) runText(args ...string) (string, error) {
	f.t.Helper()
	return f.exec(args...)
}

func (f *cliFixture) exec(args ...string) (string, error) {
	resetCommands(rootCmd)
	cfg, logger = nil, nil

	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	defer func() { stdout = prev }()

	rootCmd.SetArgs(append([]string{"--config", f.config}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

// ok runs elq and decodes a successful envelope.
func (f *cliFixture) ok(args ...string) envelope {
	f.t.Helper()
	out, err := f.run(args...)
	require.NoError(f.t, err, out)
	resp := decodeEnvelope(f.t, out)
	require.True(f.t, resp.OK, out)
	return resp
}

// fail runs elq and decodes an error envelope.
func (f *cliFixture) fail(args ...string) envelope {
	f.t.Helper()
	out, err := f.run(args...)
	require.Error(f.t, err)
	assert.True(f.t, IsSilent(err), "error should already be reported: %v", err)
	resp := decodeEnvelope(f.t, out)
	require.False(f.t, resp.OK, out)
	require.NotNil(f.t, resp.Error)
	return resp
}

// seed saves elements through an engine on the fixture database.
func (f *cliFixture) seed(fn func(engine *elements.Engine, env *elements.Env)) {
	f.t.Helper()
	c, err := config.LoadFrom(f.config)
	require.NoError(f.t, err)
	cfg, logger = c, nil
	userFlag, localeFlag = "", ""

	engine, db, err := openEngine()
	require.NoError(f.t, err)
	defer db.Close()
	env, err := newEnv(engine)
	require.NoError(f.t, err)
	fn(engine, env)
}

func (f *cliFixture) save(engine *elements.Engine, env *elements.Env, el *model.Element) *model.Element {
	f.t.Helper()
	ok, err := engine.Save(env, el)
	require.NoError(f.t, err)
	require.True(f.t, ok, "%v", el.Errors())
	return el
}

func (f *cliFixture) entry(engine *elements.Engine, env *elements.Env, title string, post time.Time) *model.Element {
	f.t.Helper()
	news, err := env.Catalog.SectionByHandle("news")
	require.NoError(f.t, err)
	return f.save(engine, env, &model.Element{
		Type:    model.TypeEntry,
		Enabled: true,
		Title:   title,
		Record:  &model.EntryRecord{SectionID: news.ID, PostDate: &post},
	})
}

func (f *cliFixture) category(engine *elements.Engine, env *elements.Env, title string) *model.Element {
	f.t.Helper()
	ids, err := env.Catalog.GroupIDsByHandle("categorygroups", []string{"topics"})
	require.NoError(f.t, err)
	require.Len(f.t, ids, 1)
	return f.save(engine, env, &model.Element{
		Type:    model.TypeCategory,
		Enabled: true,
		Title:   title,
		Record:  &model.CategoryRecord{GroupID: ids[0]},
	})
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

type envelope struct {
	OK       bool            `json:"ok"`
	Data     json.RawMessage `json:"data"`
	Error    *ErrorInfo      `json:"error"`
	Warnings []Warning       `json:"warnings"`
	Meta     *Meta           `json:"meta"`
}

func decodeEnvelope(t *testing.T, out string) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func (e envelope) into(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, v), string(e.Data))
}

// resetCommands puts every flag back to its default so commands can run
// repeatedly in one process.
func resetCommands(cmd *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetCommands(sub)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		typ  criteria.AttrType
		raw  string
		want any
	}{
		{"number", criteria.Number, "42", int64(42)},
		{"number with operator", criteria.Number, ">= 3", ">= 3"},
		{"mixed id", criteria.Mixed, "7", int64(7)},
		{"bool", criteria.Bool, "true", true},
		{"string stays string", criteria.String, "42", "42"},
		{"date operator", criteria.DateTime, ">= 2024-01-01", ">= 2024-01-01"},
		{"flow list", criteria.String, "[news, pages]", []any{"news", "pages"}},
		{"flow map", criteria.Mixed, "{sourceElement: 4, field: topics}", map[string]any{"sourceElement": int64(4), "field": "topics"}},
		{"and list", criteria.Number, "[and, 1, 2]", []any{"and", int64(1), int64(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValue(tt.typ, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseValue(criteria.String, "[unterminated")
	assert.Error(t, err)
}

func TestParseAssignments(t *testing.T) {
	pairs, err := parseAssignments("param", []string{"section=news", "order=title asc", "title=a=b"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"section", "news"}, {"order", "title asc"}, {"title", "a=b"}}, pairs)

	_, err = parseAssignments("param", []string{"novalue"})
	assert.Error(t, err)
	_, err = parseAssignments("field", []string{"=x"})
	assert.Error(t, err)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"3,4", " 5 ", ""})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, ids)

	_, err = parseIDs([]string{"x"})
	assert.Error(t, err)
}
