package params

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/aidanlsb/elements/internal/dates"
)

const (
	opEq  = "="
	opNeq = "!="

	tokenEmpty    = ":empty:"
	tokenNotEmpty = ":notempty:"
)

var operatorPrefixes = []string{"!=", "<>", ">=", "<=", ">", "<", "="}

type parser struct {
	col  Expr
	date bool
}

// Parse compiles value against col. An empty fragment means the value adds
// no condition.
func Parse(col Expr, value any) (string, []any, error) {
	return parser{col: col}.parse(value)
}

// ParseDate is Parse with every literal normalized to the stored date format.
func ParseDate(col Expr, value any) (string, []any, error) {
	return parser{col: col, date: true}.parse(value)
}

func (p parser) parse(value any) (string, []any, error) {
	if value == nil {
		return "", nil, nil
	}
	if list, ok := asList(value); ok {
		return p.list(list)
	}
	return p.scalar(value)
}

func (p parser) list(items []any) (string, []any, error) {
	if len(items) == 0 {
		return "", nil, nil
	}
	if marker, ok := items[0].(string); ok {
		switch strings.ToLower(strings.TrimSpace(marker)) {
		case "or":
			return p.group(" OR ", items[1:])
		case "and":
			return p.group(" AND ", items[1:])
		case "not":
			return p.notIn(items[1:])
		}
	}

	for _, item := range items {
		if !isPlain(item) {
			return p.group(" OR ", items)
		}
	}
	if len(items) == 1 {
		return p.scalar(items[0])
	}
	vals, err := p.values(items)
	if err != nil {
		return "", nil, err
	}
	return p.in(" IN ", vals)
}

func (p parser) group(sep string, items []any) (string, []any, error) {
	var conds []string
	var args []any
	for _, item := range items {
		cond, a, err := p.parse(item)
		if err != nil {
			return "", nil, err
		}
		if cond == "" {
			continue
		}
		conds = append(conds, cond)
		args = append(args, a...)
	}
	switch len(conds) {
	case 0:
		return "", nil, nil
	case 1:
		return conds[0], args, nil
	default:
		return "(" + strings.Join(conds, sep) + ")", args, nil
	}
}

func (p parser) notIn(items []any) (string, []any, error) {
	if len(items) == 0 {
		return "", nil, nil
	}
	for _, item := range items {
		if !isPlain(item) {
			return "", nil, fmt.Errorf("operator value %v not allowed in a negated set", item)
		}
	}
	if len(items) == 1 {
		if s, ok := items[0].(string); ok {
			return p.scalar("not " + s)
		}
		v, err := p.bindValue(items[0])
		if err != nil {
			return "", nil, err
		}
		sql, args := build("(", p.col, " != ", bound{v}, " OR ", p.col, " IS NULL)")
		return sql, args, nil
	}
	vals, err := p.values(items)
	if err != nil {
		return "", nil, err
	}
	cond, args, err := p.in(" NOT IN ", vals)
	if err != nil {
		return "", nil, err
	}
	nullSQL, nullArgs := build(p.col, " IS NULL")
	return "(" + cond + " OR " + nullSQL + ")", append(args, nullArgs...), nil
}

func (p parser) in(op string, vals []any) (string, []any, error) {
	parts := []any{p.col, op + "("}
	for i, v := range vals {
		if i > 0 {
			parts = append(parts, ", ")
		}
		parts = append(parts, bound{v})
	}
	parts = append(parts, ")")
	sql, args := build(parts...)
	return sql, args, nil
}

func (p parser) values(items []any) ([]any, error) {
	vals := make([]any, 0, len(items))
	for _, item := range items {
		v, err := p.bindValue(item)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (p parser) scalar(value any) (string, []any, error) {
	s, isString := value.(string)
	if !isString {
		v, err := p.bindValue(value)
		if err != nil {
			return "", nil, err
		}
		sql, args := build(p.col, " = ", bound{v})
		return sql, args, nil
	}

	op, rest := splitOperator(s)

	switch strings.ToLower(rest) {
	case tokenEmpty, tokenNotEmpty:
		empty := strings.ToLower(rest) == tokenEmpty
		switch op {
		case opEq:
		case opNeq:
			empty = !empty
		default:
			return "", nil, fmt.Errorf("operator %q cannot be combined with %s", op, rest)
		}
		var sql string
		var args []any
		if empty {
			sql, args = build("(", p.col, " IS NULL OR ", p.col, " = '')")
		} else {
			sql, args = build("(", p.col, " IS NOT NULL AND ", p.col, " != '')")
		}
		return sql, args, nil
	}

	if !p.date && strings.Contains(rest, "*") && (op == opEq || op == opNeq) {
		pattern := strings.ReplaceAll(escapeLike(rest), "*", "%")
		var sql string
		var args []any
		if op == opEq {
			sql, args = build(p.col, " LIKE ", bound{pattern}, ` ESCAPE '\'`)
		} else {
			sql, args = build("(", p.col, " NOT LIKE ", bound{pattern}, ` ESCAPE '\' OR `, p.col, " IS NULL)")
		}
		return sql, args, nil
	}

	v, err := p.bindValue(rest)
	if err != nil {
		return "", nil, err
	}
	var sql string
	var args []any
	switch op {
	case opEq:
		sql, args = build(p.col, " = ", bound{v})
	case opNeq:
		sql, args = build("(", p.col, " != ", bound{v}, " OR ", p.col, " IS NULL)")
	default:
		sql, args = build(p.col, " "+op+" ", bound{v})
	}
	return sql, args, nil
}

// bindValue converts a literal to its bound form.
func (p parser) bindValue(value any) (any, error) {
	switch v := value.(type) {
	case string:
		if p.date {
			norm, err := dates.Normalize(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.col.sql, err)
			}
			return norm, nil
		}
		if p.col.text {
			return v, nil
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && strconv.FormatInt(n, 10) == v {
			return n, nil
		}
		return v, nil
	case time.Time:
		return dates.FormatDB(v), nil
	case *time.Time:
		if v == nil {
			return nil, fmt.Errorf("%s: nil time", p.col.sql)
		}
		return dates.FormatDB(*v), nil
	case bool:
		if p.date {
			return nil, fmt.Errorf("%s: bool is not a date", p.col.sql)
		}
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		return p.number(int64(v))
	case int8:
		return p.number(int64(v))
	case int16:
		return p.number(int64(v))
	case int32:
		return p.number(int64(v))
	case int64:
		return p.number(v)
	case uint:
		return p.unsigned(uint64(v))
	case uint8:
		return p.number(int64(v))
	case uint16:
		return p.number(int64(v))
	case uint32:
		return p.number(int64(v))
	case uint64:
		return p.unsigned(v)
	case float32:
		return p.number(float64(v))
	case float64:
		return p.number(v)
	default:
		return nil, fmt.Errorf("%s: unsupported value type %T", p.col.sql, value)
	}
}

func (p parser) number(v any) (any, error) {
	if p.date {
		return nil, fmt.Errorf("%s: number %v is not a date", p.col.sql, v)
	}
	return v, nil
}

func (p parser) unsigned(v uint64) (any, error) {
	if v > math.MaxInt64 {
		return nil, fmt.Errorf("%s: %d overflows int64", p.col.sql, v)
	}
	return p.number(int64(v))
}

func splitOperator(s string) (op, rest string) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > 4 && strings.EqualFold(trimmed[:4], "not ") {
		return opNeq, strings.TrimSpace(trimmed[4:])
	}
	for _, prefix := range operatorPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			op = prefix
			if op == "<>" {
				op = opNeq
			}
			return op, strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return opEq, trimmed
}

// isPlain reports whether value is a bare equality literal.
func isPlain(value any) bool {
	if _, ok := asList(value); ok {
		return false
	}
	s, ok := value.(string)
	if !ok {
		return true
	}
	op, rest := splitOperator(s)
	if op != opEq || strings.Contains(rest, "*") {
		return false
	}
	lower := strings.ToLower(rest)
	return lower != tokenEmpty && lower != tokenNotEmpty
}

// asList normalizes any slice or array except []byte to []any.
func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// AsList exposes list normalization to callers that accept scalar-or-array values.
func AsList(value any) []any {
	if value == nil {
		return nil
	}
	if list, ok := asList(value); ok {
		return list
	}
	return []any{value}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
