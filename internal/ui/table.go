package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table is a borderless two-or-more column listing aligned with spaces.
type Table struct {
	rows       [][]string
	colWidths  []int
	colPadding int
}

// NewTable creates a new table with the specified number of columns
func NewTable(cols int) *Table {
	return &Table{
		colWidths:  make([]int, cols),
		colPadding: 2,
	}
}

// AddRow adds a row to the table. Widths are measured on the rendered
// text so styled cells still align.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.colWidths))
	for i := 0; i < len(t.colWidths) && i < len(cells); i++ {
		row[i] = cells[i]
		if w := lipgloss.Width(cells[i]); w > t.colWidths[i] {
			t.colWidths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// String renders the table as a string
func (t *Table) String() string {
	if len(t.rows) == 0 {
		return ""
	}

	var sb strings.Builder
	padding := strings.Repeat(" ", t.colPadding)

	for _, row := range t.rows {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString(padding)
			}
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", t.colWidths[i]-lipgloss.Width(cell)))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// TreeNode is one line of a rendered tree. Headings are printed flush left
// in bold and do not get a connector.
type TreeNode struct {
	Label    string
	Detail   string
	Heading  bool
	Children []*TreeNode
}

// RenderTree draws nodes with box-drawing connectors:
//
//	Uploads  folder:1
//	├── docs  folder:2
//	└── photos  folder:3
//	    └── 2024  folder:4
func RenderTree(nodes []*TreeNode) string {
	var sb strings.Builder
	for _, n := range nodes {
		if n.Heading {
			sb.WriteString(Header(n.Label))
			sb.WriteString("\n")
		} else {
			writeNode(&sb, n)
		}
		renderChildren(&sb, n.Children, "")
	}
	return sb.String()
}

func renderChildren(sb *strings.Builder, children []*TreeNode, prefix string) {
	for i, c := range children {
		connector, indent := "├── ", "│   "
		if i == len(children)-1 {
			connector, indent = "└── ", "    "
		}
		sb.WriteString(Muted.Render(prefix + connector))
		writeNode(sb, c)
		renderChildren(sb, c.Children, prefix+indent)
	}
}

func writeNode(sb *strings.Builder, n *TreeNode) {
	sb.WriteString(n.Label)
	if n.Detail != "" {
		sb.WriteString("  ")
		sb.WriteString(Key(n.Detail))
	}
	sb.WriteString("\n")
}
