package elements

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aidanlsb/elements/internal/field"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/structure"
)

// Status tokens shared by kinds with enabled/disabled semantics.
const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
)

func defaultStatuses() []StatusOption {
	return []StatusOption{
		{Token: StatusEnabled, Label: "Enabled"},
		{Token: StatusDisabled, Label: "Disabled"},
	}
}

func defaultStatusCondition(kind Kind, status string) (string, []any, error) {
	switch status {
	case StatusEnabled:
		return "elements.enabled = 1 AND elements_i18n.enabled = 1", nil, nil
	case StatusDisabled:
		return "(elements.enabled = 0 OR elements_i18n.enabled = 0)", nil, nil
	}
	return "", nil, unknownStatus(kind, status)
}

func unknownStatus(kind Kind, status string) *SchemaError {
	return schemaErrorf("status", "unknown status %q for %s", status, kind.Type())
}

func defaultStatusOf(el *model.Element) string {
	if el.Enabled && el.LocaleEnabled {
		return StatusEnabled
	}
	return StatusDisabled
}

// defaultEagerLoadingMap resolves structure handles for structured kinds and
// otherwise looks handle up as a global custom field.
func defaultEagerLoadingMap(env *Env, kind Kind, sources []*model.Element, handle string) (*model.EagerLoadMap, bool, error) {
	if _, ok := kind.(structured); ok {
		if dist, ok := structureHandle(handle); ok {
			edges, err := structure.DescendantEdges(env.DB, model.IDs(sources), dist)
			if err != nil {
				return nil, false, err
			}
			return &model.EagerLoadMap{Type: kind.Type(), Edges: edges}, true, nil
		}
	}

	f, ok := env.Fields.Lookup(field.GlobalContext, handle)
	if !ok {
		return nil, false, nil
	}
	return f.EagerLoadingMap(env.DB, model.IDs(sources), localeOf(env, sources))
}

// structureHandle parses "children", "descendants" and "descendants:<n>".
func structureHandle(handle string) (dist int, ok bool) {
	switch {
	case handle == "children":
		return 1, true
	case handle == "descendants":
		return 0, true
	case strings.HasPrefix(handle, "descendants:"):
		n, err := strconv.Atoi(strings.TrimPrefix(handle, "descendants:"))
		if err != nil || n < 1 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func localeOf(env *Env, elements []*model.Element) string {
	for _, el := range elements {
		if el.Locale != "" {
			return el.Locale
		}
	}
	return env.Locale
}

func defaultTableAttributes(kind Kind) []Attribute {
	var attrs []Attribute
	if kind.HasTitles() {
		attrs = append(attrs, Attribute{Key: "title", Label: "Title"})
	}
	return attrs
}

// defaultAttributeValue renders the generic attributes and custom fields.
func defaultAttributeValue(env *Env, kind Kind, el *model.Element, attr string) string {
	switch attr {
	case "id":
		return strconv.FormatInt(el.ID, 10)
	case "uid":
		return el.UID
	case "title":
		return el.Title
	case "slug":
		return el.Slug
	case "uri":
		return el.URI
	case "locale":
		return el.Locale
	case "status":
		return kind.statusOf(env, el)
	case "dateCreated":
		return formatTime(el.DateCreated)
	case "dateUpdated":
		return formatTime(el.DateUpdated)
	}
	return formatValue(el.Field(attr))
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+formatValue(t[k]))
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func noSources() ([]*model.Source, error) {
	return nil, nil
}
