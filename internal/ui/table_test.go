package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainOutput(t *testing.T) {
	t.Helper()
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })
}

func TestTableAlignsColumns(t *testing.T) {
	plainOutput(t)
	tbl := NewTable(3)
	tbl.AddRow("live", "Hello", "news/hello")
	tbl.AddRow("pending", "A longer title", "news/a-longer-title")

	lines := strings.Split(strings.TrimRight(tbl.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "live     Hello           news/hello", lines[0])
	assert.Equal(t, "pending  A longer title  news/a-longer-title", lines[1])
	assert.Empty(t, NewTable(2).String())
}

func TestRenderTree(t *testing.T) {
	plainOutput(t)
	out := RenderTree([]*TreeNode{
		{Label: "All entries", Detail: "*"},
		{Label: "Channels", Heading: true},
		{Label: "News", Detail: "section:1"},
		{Label: "Uploads", Detail: "folder:1", Children: []*TreeNode{
			{Label: "docs", Detail: "folder:2"},
			{Label: "photos", Detail: "folder:3", Children: []*TreeNode{
				{Label: "2024", Detail: "folder:4"},
			}},
		}},
	})

	assert.Equal(t, strings.Join([]string{
		"All entries  *",
		"Channels",
		"News  section:1",
		"Uploads  folder:1",
		"├── docs  folder:2",
		"└── photos  folder:3",
		"    └── 2024  folder:4",
		"",
	}, "\n"), out)
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a title that runs long", 12, "a title..."},
		{"abcdefghij", 3, "abc"},
		{"unbounded", 0, "unbounded"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateWithEllipsis(tt.in, tt.max), tt.in)
	}
}

func TestResultsTableWidths(t *testing.T) {
	display := NewDisplayContextWithWidth(100)
	tbl := NewResultsTable(display, AttributeLayout([]string{"Title", "URI"}, true))
	widths := tbl.calculateWidths()

	// num, id and status are fixed; the title gets twice the URI's share.
	require.Len(t, widths, 5)
	assert.Equal(t, []int{4, 6, 10}, widths[:3])
	assert.Equal(t, 46, widths[3])
	assert.Equal(t, 23, widths[4])

	assert.Empty(t, tbl.Render())
	tbl.AddRow(ResultRow{Num: 1, Cells: []string{"1", "live", "Hello", "news/hello"}})
	assert.Equal(t, 1, tbl.Len())
	assert.Contains(t, tbl.Render(), "Hello")
}

func TestFormatRowNum(t *testing.T) {
	assert.Equal(t, " 3", FormatRowNum(3, 9))
	assert.Equal(t, "  7", FormatRowNum(7, 120))
}
