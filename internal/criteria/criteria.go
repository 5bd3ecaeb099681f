package criteria

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aidanlsb/elements/internal/dates"
)

var localeRe = regexp.MustCompile(`^[a-z]{2,3}([_-][a-zA-Z]{2,4})?$`)

// Criteria is a validated attribute bag bound to one schema.
type Criteria struct {
	schema  Schema
	strict  bool
	values  map[string]any
	fields  map[string]any
	ignored []string
}

// New returns empty criteria for schema. When strict is true, setting an
// undeclared attribute is an error; otherwise it is ignored and recorded.
func New(schema Schema, strict bool) *Criteria {
	return &Criteria{
		schema: schema,
		strict: strict,
		values: make(map[string]any),
		fields: make(map[string]any),
	}
}

// Schema returns the schema the criteria validates against.
func (c *Criteria) Schema() Schema { return c.schema }

// Strict reports whether unknown attributes are rejected.
func (c *Criteria) Strict() bool { return c.strict }

// Set validates and stores value. A nil value unsets the attribute.
func (c *Criteria) Set(name string, value any) error {
	attr, ok := c.schema[name]
	if !ok {
		if c.strict {
			return &ValidationError{Attribute: name, Message: "not defined for this element type", err: ErrUnknownAttribute}
		}
		c.ignored = append(c.ignored, name)
		return nil
	}
	if value == nil {
		delete(c.values, name)
		return nil
	}
	norm, err := normalize(name, attr, value)
	if err != nil {
		return err
	}
	c.values[name] = norm
	return nil
}

// Apply sets every pair of values in sorted key order, stopping at the
// first error.
func (c *Criteria) Apply(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.Set(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// Unset removes an explicitly set attribute so its default applies again.
func (c *Criteria) Unset(name string) {
	delete(c.values, name)
}

// Ignored returns the unknown attribute names dropped by a lenient criteria.
func (c *Criteria) Ignored() []string { return c.ignored }

// IsSet reports whether name was set explicitly.
func (c *Criteria) IsSet(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Value returns the explicit value, else the declared default. ok is false
// when neither exists.
func (c *Criteria) Value(name string) (any, bool) {
	if v, ok := c.values[name]; ok {
		return v, true
	}
	if attr, ok := c.schema[name]; ok && attr.Default != nil {
		return attr.Default, true
	}
	return nil, false
}

// Get is Value without the presence flag.
func (c *Criteria) Get(name string) any {
	v, _ := c.Value(name)
	return v
}

// String returns a string-valued attribute or "".
func (c *Criteria) String(name string) string {
	v, ok := c.Value(name)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns an integer-valued attribute.
func (c *Criteria) Int(name string) (int64, bool) {
	v, ok := c.Value(name)
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// Flag returns a bool-valued attribute.
func (c *Criteria) Flag(name string) (value bool, ok bool) {
	v, ok := c.Value(name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// SetField stores a custom field condition by handle. A nil value removes it.
func (c *Criteria) SetField(handle string, value any) {
	if value == nil {
		delete(c.fields, handle)
		return
	}
	c.fields[handle] = value
}

// Fields returns custom field handles in sorted order with their values.
func (c *Criteria) Fields() ([]string, map[string]any) {
	handles := make([]string, 0, len(c.fields))
	for h := range c.fields {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles, c.fields
}

// Clone returns an independent copy.
func (c *Criteria) Clone() *Criteria {
	out := New(c.schema, c.strict)
	for k, v := range c.values {
		out.values[k] = v
	}
	for k, v := range c.fields {
		out.fields[k] = v
	}
	out.ignored = append([]string(nil), c.ignored...)
	return out
}

// Values returns a copy of the explicitly set attributes.
func (c *Criteria) Values() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func normalize(name string, attr Attribute, value any) (any, error) {
	switch attr.Type {
	case Number:
		return normalizeNumber(name, value)
	case String:
		return normalizeStrings(name, value)
	case Bool:
		return normalizeBool(name, value)
	case Enum:
		return normalizeEnum(name, attr, value)
	case DateTime:
		return normalizeDateTime(name, value)
	case Locale:
		s, ok := value.(string)
		if !ok || !localeRe.MatchString(s) {
			return nil, invalid(name, "%v is not a locale id", value)
		}
		return s, nil
	default:
		return value, nil
	}
}

func normalizeNumber(name string, value any) (any, error) {
	if list, ok := listOf(value); ok {
		out := make([]any, 0, len(list))
		for i, item := range list {
			if i == 0 && isSetMarker(item) {
				out = append(out, item)
				continue
			}
			v, err := normalizeNumber(name, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	if n, ok := toInt(value); ok {
		if _, isString := value.(string); !isString {
			return n, nil
		}
	}
	switch v := value.(type) {
	case float32, float64:
		return v, nil
	case string:
		rest := stripOperator(v)
		if isEmptyToken(rest) {
			return v, nil
		}
		if _, err := strconv.ParseFloat(rest, 64); err != nil {
			return nil, invalid(name, "%q is not numeric", v)
		}
		return v, nil
	}
	return nil, invalid(name, "expected a number, got %T", value)
}

func normalizeStrings(name string, value any) (any, error) {
	if list, ok := listOf(value); ok {
		out := make([]any, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, invalid(name, "expected strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, invalid(name, "expected a string, got %T", value)
	}
	return s, nil
}

func normalizeBool(name string, value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, invalid(name, "%q is not a boolean", v)
		}
		return b, nil
	}
	if n, ok := toInt(value); ok && (n == 0 || n == 1) {
		return n == 1, nil
	}
	return nil, invalid(name, "expected a boolean, got %T", value)
}

func normalizeEnum(name string, attr Attribute, value any) (any, error) {
	allowed := make(map[string]bool, len(attr.Values))
	for _, v := range attr.Values {
		allowed[v] = true
	}
	check := func(item any) (string, error) {
		s, ok := item.(string)
		if !ok {
			return "", invalid(name, "expected one of %s, got %T", strings.Join(attr.Values, ", "), item)
		}
		if !allowed[stripOperator(s)] {
			return "", invalid(name, "%q is not one of %s", s, strings.Join(attr.Values, ", "))
		}
		return s, nil
	}
	if list, ok := listOf(value); ok {
		out := make([]any, 0, len(list))
		for i, item := range list {
			if i == 0 && isSetMarker(item) {
				out = append(out, item)
				continue
			}
			s, err := check(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	return check(value)
}

func normalizeDateTime(name string, value any) (any, error) {
	if list, ok := listOf(value); ok {
		out := make([]any, 0, len(list))
		for i, item := range list {
			if i == 0 && isSetMarker(item) {
				out = append(out, item)
				continue
			}
			v, err := normalizeDateTime(name, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return nil, invalid(name, "nil time")
		}
		return *v, nil
	case string:
		rest := stripOperator(v)
		if isEmptyToken(rest) {
			return v, nil
		}
		if !dates.IsValidDatetime(rest) {
			return nil, invalid(name, "%q is not a date", v)
		}
		return v, nil
	}
	return nil, invalid(name, "expected a date, got %T", value)
}

func isSetMarker(item any) bool {
	s, ok := item.(string)
	if !ok {
		return false
	}
	switch strings.ToLower(s) {
	case "or", "and", "not":
		return true
	}
	return false
}

func isEmptyToken(s string) bool {
	s = strings.ToLower(s)
	return s == ":empty:" || s == ":notempty:"
}

func stripOperator(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 4 && strings.EqualFold(s[:4], "not ") {
		return strings.TrimSpace(s[4:])
	}
	for _, p := range []string{"!=", "<>", ">=", "<=", ">", "<", "="} {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

func listOf(value any) ([]any, bool) {
	if v, ok := value.([]any); ok {
		return v, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
