// Package params translates criteria values into parameterized SQL predicates.
//
// Value grammar:
//
//	5, "foo", true        equality
//	"not foo", "!= foo"   not equal (also matches NULL)
//	">= 5", "< 2024-01-01" comparison
//	"foo*"                LIKE with * as wildcard
//	":empty:", ":notempty:"
//	[1, 2, 3]             IN
//	["not", 1, 2]         NOT IN
//	["or", a, b, ...]     OR-group of recursively parsed values
//	["and", a, b, ...]    AND-group of recursively parsed values
//
// Literal values are always bound. Column expressions are built only from
// validated identifiers.
package params

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	identRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	handleRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Expr is a trusted SQL column expression with its own bound args.
type Expr struct {
	sql  string
	args []any
	// text expressions bind numeric-looking strings as strings.
	text bool
}

// Ident validates a plain or table-qualified column name.
func Ident(name string) (Expr, error) {
	if !identRe.MatchString(name) {
		return Expr{}, fmt.Errorf("invalid column identifier %q", name)
	}
	return Expr{sql: name}, nil
}

// Col is Ident for compile-time constants; it panics on an invalid name.
func Col(name string) Expr {
	e, err := Ident(name)
	if err != nil {
		panic(err)
	}
	return e
}

// JSONField addresses a key of a JSON column. The path is bound, not
// interpolated. json_extract has no column affinity, so string literals are
// bound as given; use Numeric for keys that hold JSON numbers.
func JSONField(column, handle string) (Expr, error) {
	if !identRe.MatchString(column) {
		return Expr{}, fmt.Errorf("invalid column identifier %q", column)
	}
	if !handleRe.MatchString(handle) {
		return Expr{}, fmt.Errorf("invalid field handle %q", handle)
	}
	return Expr{sql: fmt.Sprintf("json_extract(%s, ?)", column), args: []any{"$." + handle}, text: true}, nil
}

// Numeric returns e with integer-looking string literals bound as integers.
func (e Expr) Numeric() Expr {
	e.text = false
	return e
}

// IsValidHandle reports whether s can be used as a field handle.
func IsValidHandle(s string) bool {
	return handleRe.MatchString(s)
}

// SQL returns the expression text.
func (e Expr) SQL() string { return e.sql }

// Args returns the expression's bound args.
func (e Expr) Args() []any { return e.args }

func (e Expr) String() string { return e.sql }

// bound wraps a literal that must be emitted as a placeholder.
type bound struct{ v any }

// build concatenates SQL pieces. Expr pieces contribute their own args,
// bound pieces become "?".
func build(parts ...any) (string, []any) {
	var sb strings.Builder
	var args []any
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			sb.WriteString(v)
		case Expr:
			sb.WriteString(v.sql)
			args = append(args, v.args...)
		case bound:
			sb.WriteString("?")
			args = append(args, v.v)
		default:
			panic(fmt.Sprintf("params: unexpected sql part %T", p))
		}
	}
	return sb.String(), args
}
