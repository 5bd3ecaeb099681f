package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Alignment represents column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// ColumnDef defines a column in a ResultsTable.
type ColumnDef struct {
	Name       string         // Header text
	WidthRatio float64        // Proportion of available width (0.0-1.0), 0 means fixed width
	MinWidth   int            // Minimum width in characters
	MaxWidth   int            // Maximum width (0 = no limit)
	Align      Alignment      // Text alignment
	Style      lipgloss.Style // Style to apply to cells in this column
}

// ResultRow represents a single row in the results table.
type ResultRow struct {
	Num   int      // Row number (1-indexed)
	Cells []string // Cell values for each column after the number
}

// ResultsTable renders element query results.
type ResultsTable struct {
	display *DisplayContext
	columns []ColumnDef
	rows    []ResultRow
	headers bool
}

const (
	columnPadding = 2
	leftMargin    = 2
)

// Standard column definitions.
var (
	// ColNum is the row number column (fixed width, right-aligned, muted).
	ColNum = ColumnDef{
		Name:     "#",
		MinWidth: 4,
		MaxWidth: 6,
		Align:    AlignRight,
		Style:    Muted,
	}

	// ColID is the element id column.
	ColID = ColumnDef{
		Name:     "id",
		MinWidth: 6,
		MaxWidth: 10,
		Align:    AlignRight,
		Style:    Muted,
	}

	// ColStatus is the element status column.
	ColStatus = ColumnDef{
		Name:     "status",
		MinWidth: 10,
		MaxWidth: 12,
		Align:    AlignLeft,
	}
)

// AttributeLayout builds [num, id, status?, attributes...]. The first
// attribute gets twice the share of the others since it is usually the title.
func AttributeLayout(labels []string, withStatus bool) []ColumnDef {
	cols := []ColumnDef{ColNum, ColID}
	if withStatus {
		cols = append(cols, ColStatus)
	}
	for i, label := range labels {
		col := ColumnDef{
			Name:       label,
			WidthRatio: 1,
			MinWidth:   10,
			MaxWidth:   60,
			Align:      AlignLeft,
		}
		if i == 0 {
			col.WidthRatio = 2
			col.MaxWidth = 80
		} else {
			col.Style = Muted
		}
		cols = append(cols, col)
	}
	return cols
}

// NewResultsTable creates a new ResultsTable with the given display context and column layout.
func NewResultsTable(display *DisplayContext, columns []ColumnDef) *ResultsTable {
	return &ResultsTable{
		display: display,
		columns: columns,
		rows:    make([]ResultRow, 0),
	}
}

// ShowHeaders renders the column names above the rows.
func (t *ResultsTable) ShowHeaders() *ResultsTable {
	t.headers = true
	return t
}

// AddRow adds a row to the table.
func (t *ResultsTable) AddRow(row ResultRow) {
	t.rows = append(t.rows, row)
}

// Len returns the number of rows added.
func (t *ResultsTable) Len() int {
	return len(t.rows)
}

// calculateWidths computes column widths based on terminal size and column definitions.
func (t *ResultsTable) calculateWidths() []int {
	widths := make([]int, len(t.columns))

	// First pass: fixed widths and total ratio
	var totalRatio float64
	var fixedWidth int

	for i, col := range t.columns {
		if col.WidthRatio == 0 {
			widths[i] = col.MinWidth
			if col.MaxWidth > 0 && widths[i] > col.MaxWidth {
				widths[i] = col.MaxWidth
			}
			fixedWidth += widths[i]
		} else {
			totalRatio += col.WidthRatio
		}
	}

	totalPadding := (len(t.columns) - 1) * columnPadding
	available := t.display.AvailableWidth(leftMargin) - fixedWidth - totalPadding
	if available < 0 {
		available = 0
	}

	// Second pass: distribute available space by ratio
	for i, col := range t.columns {
		if col.WidthRatio > 0 {
			width := int(float64(available) * col.WidthRatio / totalRatio)
			if width < col.MinWidth {
				width = col.MinWidth
			}
			if col.MaxWidth > 0 && width > col.MaxWidth {
				width = col.MaxWidth
			}
			widths[i] = width
		}
	}

	return widths
}

// Render generates the table output as a string.
func (t *ResultsTable) Render() string {
	if len(t.rows) == 0 {
		return ""
	}

	widths := t.calculateWidths()
	maxNum := 0
	for _, row := range t.rows {
		if row.Num > maxNum {
			maxNum = row.Num
		}
	}

	tableRows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		tableRow := make([]string, len(t.columns))
		tableRow[0] = FormatRowNum(row.Num, maxNum)
		for j := 1; j < len(t.columns); j++ {
			if j-1 < len(row.Cells) {
				tableRow[j] = TruncateWithEllipsis(row.Cells[j-1], widths[j])
			}
		}
		tableRows[i] = tableRow
	}

	tbl := table.New().
		Border(lipgloss.Border{
			Top:    "─",
			Bottom: "─",
			Left:   "",
			Right:  "",
			Middle: "─",
		}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderRow(false).
		BorderColumn(false).
		BorderHeader(t.headers).
		BorderStyle(Muted).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col >= len(t.columns) {
				return lipgloss.NewStyle()
			}

			colDef := t.columns[col]
			style := colDef.Style
			if row == table.HeaderRow {
				style = Bold
			} else if style.Value() == "" {
				style = lipgloss.NewStyle()
			}

			style = style.Width(widths[col])

			switch colDef.Align {
			case AlignRight:
				style = style.Align(lipgloss.Right)
			case AlignCenter:
				style = style.Align(lipgloss.Center)
			default:
				style = style.Align(lipgloss.Left)
			}

			if col < len(t.columns)-1 {
				style = style.PaddingRight(columnPadding)
			}

			return style
		}).
		Rows(tableRows...)

	if t.headers {
		names := make([]string, len(t.columns))
		for i, col := range t.columns {
			names[i] = col.Name
		}
		tbl = tbl.Headers(names...)
	}

	return tbl.Render()
}

// TruncateWithEllipsis truncates a string to maxLen, adding ellipsis if needed.
// It tries to break at word boundaries.
func TruncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}

	truncated := s[:maxLen-3]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxLen/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}

// FormatRowNum formats a row number with consistent width.
func FormatRowNum(num, maxNum int) string {
	width := len(fmt.Sprintf("%d", maxNum))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("%*d", width, num)
}
