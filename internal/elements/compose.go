package elements

import (
	"fmt"
	"strings"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/field"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
	"github.com/aidanlsb/elements/internal/search"
	"github.com/aidanlsb/elements/internal/sqlutil"
)

var genericColumns = map[string]string{
	"id":            "elements.id",
	"uid":           "elements.uid",
	"enabled":       "elements.enabled",
	"archived":      "elements.archived",
	"dateCreated":   "elements.dateCreated",
	"dateUpdated":   "elements.dateUpdated",
	"locale":        "elements_i18n.locale",
	"localeEnabled": "elements_i18n.enabled",
	"slug":          "elements_i18n.slug",
	"uri":           "elements_i18n.uri",
}

var structureColumns = map[string]string{
	"lft":   "structureelements.lft",
	"rgt":   "structureelements.rgt",
	"level": "structureelements.level",
}

// Compose builds the SQL for c. It returns false without error when no
// element can match, in which case no query should run. c is not modified.
func Compose(env *Env, kind Kind, c *criteria.Criteria) (*Query, bool, error) {
	c = c.Clone()
	for _, name := range c.Ignored() {
		env.Log.Debug().Str("kind", string(kind.Type())).Str("attribute", name).Msg("ignoring unknown criteria attribute")
	}

	locale := env.Locale
	if kind.IsLocalized() {
		if l := c.String("locale"); l != "" {
			locale = l
		}
	}

	q := baseQuery(kind, locale)
	ok, err := applyGeneric(env, kind, q, c)
	if err != nil || !ok {
		return shortCircuit(env, kind, "generic criteria", ok, err)
	}

	ok, err = kind.ModifyQuery(env, q, c)
	if err != nil || !ok {
		return shortCircuit(env, kind, "kind criteria", ok, err)
	}

	for i, hook := range env.Extensions().queries {
		ok, err = hook(env, kind, q, c)
		if err != nil {
			return nil, false, fmt.Errorf("query hook %d: %w", i, err)
		}
		if !ok {
			return shortCircuit(env, kind, "query hook", false, nil)
		}
	}

	ok, err = applyFields(env, kind, q, c)
	if err != nil || !ok {
		return shortCircuit(env, kind, "field criteria", ok, err)
	}

	if err := applyStatus(env, kind, q, c); err != nil {
		return nil, false, err
	}

	ok, err = applyOrder(env, kind, q, c)
	if err != nil || !ok {
		return shortCircuit(env, kind, "order", ok, err)
	}

	applyPaging(env, q, c)
	return q, true, nil
}

func shortCircuit(env *Env, kind Kind, stage string, ok bool, err error) (*Query, bool, error) {
	if err != nil {
		return nil, false, err
	}
	env.Log.Debug().Str("kind", string(kind.Type())).Str("stage", stage).Msg("query short-circuited")
	return nil, false, nil
}

func baseQuery(kind Kind, locale string) *Query {
	q := newQuery(kind, locale)
	q.Select(
		"elements.id AS id",
		"elements.uid AS uid",
		"elements.type AS type",
		"elements.enabled AS enabled",
		"elements.archived AS archived",
		"elements.dateCreated AS dateCreated",
		"elements.dateUpdated AS dateUpdated",
		"elements_i18n.locale AS locale",
		"elements_i18n.slug AS slug",
		"elements_i18n.uri AS uri",
		"elements_i18n.enabled AS localeEnabled",
	)
	q.Join("JOIN elements_i18n ON elements_i18n.elementId = elements.id AND elements_i18n.locale = ?", locale)
	if kind.HasContent() {
		q.Select("content.title AS title", "content.fields AS fields")
		q.Join("LEFT JOIN content ON content.elementId = elements.id AND content.locale = elements_i18n.locale")
	}
	q.Where("elements.type = ?", string(kind.Type()))
	return q
}

func applyGeneric(env *Env, kind Kind, q *Query, c *criteria.Criteria) (bool, error) {
	for _, name := range []string{"id", "uid", "slug", "uri"} {
		if v, ok := c.Value(name); ok {
			if err := q.WhereParam(params.Col(genericColumns[name]), v); err != nil {
				return false, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	for _, name := range []string{"dateCreated", "dateUpdated"} {
		if v, ok := c.Value(name); ok {
			if err := q.WhereDate(params.Col(genericColumns[name]), v); err != nil {
				return false, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	if archived, ok := c.Flag("archived"); ok {
		q.Where(boolCondition("elements.archived", archived))
	}
	if enabled, ok := c.Flag("localeEnabled"); ok && enabled {
		q.Where("elements_i18n.enabled = 1")
	}
	if kind.HasTitles() {
		if v, ok := c.Value("title"); ok {
			if err := applyTitle(q, v); err != nil {
				return false, err
			}
		}
	}
	if s := strings.TrimSpace(c.String("search")); s != "" {
		cond, args := search.Condition(s, q.locale)
		q.Where(cond, args...)
	}
	if v, ok := c.Value("relatedTo"); ok {
		return applyRelatedTo(env, q, v)
	}
	return true, nil
}

func applyTitle(q *Query, value any) error {
	if err := q.WhereParam(params.Col("content.title"), value); err != nil {
		return fmt.Errorf("title: %w", err)
	}
	return nil
}

func boolCondition(col string, v bool) string {
	if v {
		return col + " = 1"
	}
	return col + " = 0"
}

// applyFields adds custom field conditions. Relational fields filter by
// target id; other fields compare their stored JSON value.
func applyFields(env *Env, kind Kind, q *Query, c *criteria.Criteria) (bool, error) {
	handles, values := c.Fields()
	if len(handles) == 0 {
		return true, nil
	}
	contexts := fieldContextsOf(env, kind, c)
	for _, handle := range handles {
		f, ok := lookupField(env, contexts, handle)
		if !ok {
			if env.Strict {
				return false, &criteria.ValidationError{Attribute: handle, Message: "unknown field"}
			}
			env.Log.Debug().Str("kind", string(kind.Type())).Str("field", handle).Msg("ignoring unknown field criteria")
			continue
		}
		value := values[handle]
		if f.IsRelational() {
			cond, args, err := params.Parse(params.Col("relations.targetId"), value)
			if err != nil {
				return false, fmt.Errorf("field %s: %w", handle, err)
			}
			if cond == "" {
				continue
			}
			q.Where(
				"elements.id IN (SELECT relations.sourceId FROM relations WHERE relations.fieldId = ? AND "+cond+")",
				append([]any{f.ID}, args...)...,
			)
			continue
		}
		if !kind.HasContent() {
			return false, fmt.Errorf("field %s: %s elements have no content", handle, kind.Type())
		}
		col, err := params.JSONField("content.fields", handle)
		if err != nil {
			return false, err
		}
		if f.Type == field.TypeNumber || f.Type == field.TypeLightswitch {
			col = col.Numeric()
		}
		if f.Type == field.TypeDate {
			err = q.WhereDate(col, value)
		} else {
			err = q.WhereParam(col, value)
		}
		if err != nil {
			return false, fmt.Errorf("field %s: %w", handle, err)
		}
	}
	return true, nil
}

func lookupField(env *Env, contexts []string, handle string) (*field.Field, bool) {
	for _, ctx := range contexts {
		if f, ok := env.Fields.Lookup(ctx, handle); ok {
			return f, true
		}
	}
	return nil, false
}

// applyStatus ORs the predicates of the requested status tokens. An empty
// status means no status filter.
func applyStatus(env *Env, kind Kind, q *Query, c *criteria.Criteria) error {
	if !kind.HasStatuses() {
		return nil
	}
	tokens := statusTokens(c.Get("status"))
	if len(tokens) == 0 {
		return nil
	}
	var conds []string
	var args []any
	for _, token := range tokens {
		cond, a, err := kind.StatusCondition(env, token)
		if err != nil {
			return err
		}
		conds = append(conds, "("+cond+")")
		args = append(args, a...)
	}
	q.Where("("+strings.Join(conds, " OR ")+")", args...)
	return nil
}

func statusTokens(value any) []string {
	var tokens []string
	for i, item := range params.AsList(value) {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if i == 0 && strings.EqualFold(s, "or") {
			continue
		}
		for _, part := range strings.Split(s, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				tokens = append(tokens, part)
			}
		}
	}
	return tokens
}

// applyOrder translates the order attribute. fixedOrder keeps the order of
// the id list and short-circuits when no ids were given.
func applyOrder(env *Env, kind Kind, q *Query, c *criteria.Criteria) (bool, error) {
	if fixed, _ := c.Flag("fixedOrder"); fixed {
		ids := params.AsList(c.Get("id"))
		if len(ids) == 0 {
			return false, nil
		}
		var b strings.Builder
		b.WriteString("CASE elements.id")
		for i, id := range ids {
			b.WriteString(" WHEN ? THEN ")
			fmt.Fprintf(&b, "%d", i)
			q.orderArgs = append(q.orderArgs, id)
		}
		fmt.Fprintf(&b, " ELSE %d END", len(ids))
		q.order = b.String()
		return true, nil
	}

	order := strings.TrimSpace(c.String("order"))
	if order == "" {
		return true, nil
	}
	var terms []string
	for _, term := range strings.Split(order, ",") {
		parts := strings.Fields(term)
		if len(parts) == 0 || len(parts) > 2 {
			return false, schemaErrorf("order", "invalid order term %q", strings.TrimSpace(term))
		}
		dir := ""
		if len(parts) == 2 {
			switch strings.ToLower(parts[1]) {
			case "asc":
				dir = " ASC"
			case "desc":
				dir = " DESC"
			default:
				return false, schemaErrorf("order", "invalid order direction %q", parts[1])
			}
		}
		col, args, err := orderColumn(env, kind, parts[0])
		if err != nil {
			return false, err
		}
		terms = append(terms, col+dir)
		q.orderArgs = append(q.orderArgs, args...)
	}
	q.order = strings.Join(terms, ", ")
	return true, nil
}

func orderColumn(env *Env, kind Kind, name string) (string, []any, error) {
	if col, ok := genericColumns[name]; ok {
		return col, nil, nil
	}
	if name == "title" && kind.HasTitles() {
		return "content.title", nil, nil
	}
	if _, ok := kind.(structured); ok {
		if col, ok := structureColumns[name]; ok {
			return col, nil, nil
		}
	}
	if col, ok := kind.column(name); ok {
		return col, nil, nil
	}
	if strings.Contains(name, ".") {
		e, err := params.Ident(name)
		if err != nil {
			return "", nil, schemaErrorf("order", "%v", err)
		}
		return e.SQL(), nil, nil
	}
	if kind.HasContent() {
		if _, ok := lookupField(env, fieldContextsOf(env, kind, nil), name); ok {
			e, err := params.JSONField("content.fields", name)
			if err != nil {
				return "", nil, schemaErrorf("order", "%v", err)
			}
			return e.SQL(), e.Args(), nil
		}
	}
	return "", nil, schemaErrorf("order", "unknown order column %q for %s", name, kind.Type())
}

func applyPaging(env *Env, q *Query, c *criteria.Criteria) {
	limit := int64(env.DefaultLimit)
	if c.IsSet("limit") {
		limit, _ = c.Int("limit")
	}
	if limit <= 0 {
		limit = -1
	}
	q.limit = limit
	if offset, ok := c.Int("offset"); ok && offset > 0 {
		q.offset = offset
	}
}

// applyRelatedTo filters by relations. Each criterion is an element id, a
// list of ids, or a map with one of element, sourceElement or targetElement
// and an optional field handle. Criteria are ORed unless the list starts
// with "and".
func applyRelatedTo(env *Env, q *Query, value any) (bool, error) {
	items := params.AsList(value)
	if _, isMap := value.(map[string]any); isMap {
		items = []any{value}
	}
	glue := " OR "
	if len(items) > 0 {
		if s, ok := items[0].(string); ok && strings.EqualFold(s, "and") {
			glue = " AND "
			items = items[1:]
		}
	}
	if len(items) == 0 {
		return true, nil
	}
	if _, isMap := items[0].(map[string]any); !isMap {
		items = []any{map[string]any{"element": items}}
	}

	var conds []string
	var args []any
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return false, &criteria.ValidationError{Attribute: "relatedTo", Message: fmt.Sprintf("invalid criterion %v", item)}
		}
		cond, a, ok, err := relationCondition(env, q.locale, m)
		if err != nil {
			return false, err
		}
		if !ok {
			if glue == " AND " {
				return false, nil
			}
			continue
		}
		conds = append(conds, cond)
		args = append(args, a...)
	}
	if len(conds) == 0 {
		return false, nil
	}
	q.Where("("+strings.Join(conds, glue)+")", args...)
	return true, nil
}

func relationCondition(env *Env, locale string, m map[string]any) (string, []any, bool, error) {
	var fieldCond string
	var fieldArgs []any
	if h, ok := m["field"].(string); ok && h != "" {
		f, found := env.Fields.Lookup(field.GlobalContext, h)
		if !found || !f.IsRelational() {
			return "", nil, false, nil
		}
		fieldCond = " AND relations.fieldId = ?"
		fieldArgs = []any{f.ID}
	}
	localeCond := " AND (relations.sourceLocale IS NULL OR relations.sourceLocale = ?)"

	sub := func(selectCol, matchCol string, ids []any) (string, []any) {
		ph, idArgs := sqlutil.InClauseArgs(ids)
		cond := fmt.Sprintf("elements.id IN (SELECT relations.%s FROM relations WHERE relations.%s IN (%s)%s%s)",
			selectCol, matchCol, ph, fieldCond, localeCond)
		args := append(idArgs, fieldArgs...)
		return cond, append(args, locale)
	}

	switch {
	case m["sourceElement"] != nil:
		cond, args := sub("targetId", "sourceId", relationIDs(m["sourceElement"]))
		return cond, args, true, nil
	case m["targetElement"] != nil:
		cond, args := sub("sourceId", "targetId", relationIDs(m["targetElement"]))
		return cond, args, true, nil
	case m["element"] != nil:
		ids := relationIDs(m["element"])
		c1, a1 := sub("targetId", "sourceId", ids)
		c2, a2 := sub("sourceId", "targetId", ids)
		return "(" + c1 + " OR " + c2 + ")", append(a1, a2...), true, nil
	}
	return "", nil, false, &criteria.ValidationError{Attribute: "relatedTo", Message: "expected element, sourceElement or targetElement"}
}

func relationIDs(v any) []any {
	var ids []any
	for _, item := range params.AsList(v) {
		if el, ok := item.(*model.Element); ok {
			ids = append(ids, el.ID)
			continue
		}
		ids = append(ids, item)
	}
	return ids
}
