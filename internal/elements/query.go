package elements

import (
	"fmt"
	"strings"

	"github.com/aidanlsb/elements/internal/params"
)

// Query is an element SELECT under construction. Kinds and extensions add
// selects, joins and conditions; values are always bound.
type Query struct {
	kind       Kind
	locale     string
	selects    []string
	joins      []string
	joinArgs   []any
	conditions []string
	args       []any
	order      string
	orderArgs  []any
	limit      int64
	offset     int64
}

func newQuery(kind Kind, locale string) *Query {
	return &Query{kind: kind, locale: locale, limit: -1}
}

// Kind returns the kind being queried.
func (q *Query) Kind() Kind { return q.kind }

// Locale returns the locale rows are fetched in.
func (q *Query) Locale() string { return q.locale }

// Select adds result columns.
func (q *Query) Select(cols ...string) {
	q.selects = append(q.selects, cols...)
}

// Join adds a join clause.
func (q *Query) Join(clause string, args ...any) {
	q.joins = append(q.joins, clause)
	q.joinArgs = append(q.joinArgs, args...)
}

// Where adds a condition ANDed with the others.
func (q *Query) Where(cond string, args ...any) {
	if cond == "" {
		return
	}
	q.conditions = append(q.conditions, cond)
	q.args = append(q.args, args...)
}

// WhereParam parses a criteria value against col and adds the result.
func (q *Query) WhereParam(col params.Expr, value any) error {
	cond, args, err := params.Parse(col, value)
	if err != nil {
		return err
	}
	q.Where(cond, args...)
	return nil
}

// WhereDate is WhereParam for date columns.
func (q *Query) WhereDate(col params.Expr, value any) error {
	cond, args, err := params.ParseDate(col, value)
	if err != nil {
		return err
	}
	q.Where(cond, args...)
	return nil
}

// Conditions returns the WHERE conditions added so far.
func (q *Query) Conditions() []string {
	return append([]string(nil), q.conditions...)
}

// SQL renders the full query with its arguments in placeholder order.
func (q *Query) SQL() (string, []any) {
	var b strings.Builder
	args := q.body(&b, strings.Join(q.selects, ", "))
	if q.order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.order)
		args = append(args, q.orderArgs...)
	}
	if q.limit >= 0 || q.offset > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.limit)
		if q.offset > 0 {
			b.WriteString(" OFFSET ?")
			args = append(args, q.offset)
		}
	}
	return b.String(), args
}

// CountSQL renders a COUNT over the matching rows, ignoring order and paging.
func (q *Query) CountSQL() (string, []any) {
	var b strings.Builder
	args := q.body(&b, "COUNT(*)")
	return b.String(), args
}

// IDSQL renders the query selecting only element ids.
func (q *Query) IDSQL() (string, []any) {
	c := *q
	c.selects = []string{"elements.id"}
	return c.SQL()
}

func (q *Query) body(b *strings.Builder, selects string) []any {
	fmt.Fprintf(b, "SELECT %s FROM elements", selects)
	for _, j := range q.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	args := append([]any(nil), q.joinArgs...)
	if len(q.conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.conditions, " AND "))
		args = append(args, q.args...)
	}
	return args
}
