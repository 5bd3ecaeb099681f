package elements

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
)

var tagSchema = criteria.Base().Merge(criteria.Schema{
	"title":   {Type: criteria.String},
	"group":   {Type: criteria.String},
	"groupId": {Type: criteria.Number},
	// name is the old spelling of title.
	"name":  {Type: criteria.String},
	"order": {Type: criteria.String, Default: "title asc"},
})

type tagKind struct{}

func (tagKind) Type() model.ElementType { return model.TypeTag }
func (tagKind) Table() string           { return "tags" }
func (tagKind) HasContent() bool        { return true }
func (tagKind) HasTitles() bool         { return true }
func (tagKind) IsLocalized() bool       { return true }
func (tagKind) HasStatuses() bool       { return false }

func (tagKind) Statuses() []StatusOption        { return nil }
func (tagKind) CriteriaSchema() criteria.Schema { return tagSchema }

func (tagKind) column(name string) (string, bool) {
	if name == "groupId" {
		return "tags.groupId", true
	}
	return "", false
}

func (k tagKind) StatusCondition(env *Env, status string) (string, []any, error) {
	return "", nil, unknownStatus(k, status)
}

func (tagKind) statusOf(env *Env, el *model.Element) string { return defaultStatusOf(el) }

// ModifyQuery rewrites the deprecated name parameter and "name" order terms
// to their title equivalents, recording a notice for each.
func (tagKind) ModifyQuery(env *Env, q *Query, c *criteria.Criteria) (bool, error) {
	q.Select("tags.groupId AS groupId")
	q.Join("JOIN tags ON tags.id = elements.id")
	q.Join("JOIN taggroups ON taggroups.id = tags.groupId")

	if v, ok := c.Value("name"); ok {
		env.Deprecated("tag_name_param", "The tag name parameter is deprecated, use title instead.")
		if err := applyTitle(q, v); err != nil {
			return false, err
		}
		c.Unset("name")
	}
	if order, changed := renameOrderTerm(c.String("order"), "name", "title"); changed {
		env.Deprecated("tag_orderby_name", "Ordering tags by name is deprecated, order by title instead.")
		if err := c.Set("order", order); err != nil {
			return false, err
		}
	}

	if v, ok := c.Value("group"); ok {
		if err := q.WhereParam(params.Col("taggroups.handle"), v); err != nil {
			return false, fmt.Errorf("group: %w", err)
		}
	}
	if v, ok := c.Value("groupId"); ok {
		if err := q.WhereParam(params.Col("tags.groupId"), v); err != nil {
			return false, fmt.Errorf("groupId: %w", err)
		}
	}
	return true, nil
}

// renameOrderTerm replaces the column of every order term named from.
func renameOrderTerm(order, from, to string) (string, bool) {
	terms := strings.Split(order, ",")
	changed := false
	for i, term := range terms {
		parts := strings.Fields(term)
		if len(parts) > 0 && parts[0] == from {
			parts[0] = to
			terms[i] = strings.Join(parts, " ")
			changed = true
		}
	}
	if !changed {
		return order, false
	}
	for i := range terms {
		terms[i] = strings.TrimSpace(terms[i])
	}
	return strings.Join(terms, ", "), true
}

func (tagKind) Sources(env *Env, context string) ([]*model.Source, error) {
	groups, err := env.Catalog.TagGroups()
	if err != nil {
		return nil, err
	}
	var out []*model.Source
	for _, g := range groups {
		out = append(out, &model.Source{
			Key:      "taggroup:" + strconv.FormatInt(g.ID, 10),
			Label:    g.Name,
			Criteria: map[string]any{"groupId": g.ID},
		})
	}
	return out, nil
}

func (k tagKind) EagerLoadingMap(env *Env, sources []*model.Element, handle string) (*model.EagerLoadMap, bool, error) {
	return defaultEagerLoadingMap(env, k, sources, handle)
}

func (tagKind) Populate(row Row) (model.Record, error) {
	return &model.TagRecord{GroupID: row.Int64("groupId")}, nil
}

func (k tagKind) TableAttributes(source string) []Attribute {
	return defaultTableAttributes(k)
}

func (k tagKind) AttributeValue(env *Env, el *model.Element, attr string) string {
	if attr == "name" {
		return el.Title
	}
	return defaultAttributeValue(env, k, el, attr)
}

// validate requires a title unique within the tag's group and locale.
func (tagKind) validate(env *Env, el *model.Element) error {
	rec, ok := el.Record.(*model.TagRecord)
	if !ok {
		return fmt.Errorf("tag %d: record is %T", el.ID, el.Record)
	}
	groups, err := env.Catalog.TagGroups()
	if err != nil {
		return err
	}
	found := false
	for _, g := range groups {
		found = found || g.ID == rec.GroupID
	}
	if !found {
		el.AddError("groupId", "Group is invalid.")
		return nil
	}
	title := strings.TrimSpace(el.Title)
	if title == "" {
		el.AddError("title", "Title cannot be blank.")
		return nil
	}
	var n int
	err = env.DB.QueryRow(`
		SELECT COUNT(*) FROM tags
		JOIN content ON content.elementId = tags.id AND content.locale = ?
		WHERE tags.groupId = ? AND content.title = ? AND tags.id != ?`,
		el.Locale, rec.GroupID, title, el.ID,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("check tag title: %w", err)
	}
	if n > 0 {
		el.AddError("title", fmt.Sprintf("Title %q has already been taken.", title))
	}
	return nil
}

func (tagKind) beforeSave(*Env, *model.Element, bool) (func() error, error) {
	return nil, nil
}

func (tagKind) saveRecord(env *Env, el *model.Element, isNew bool) error {
	rec := el.Record.(*model.TagRecord)
	_, err := env.DB.Exec(`
		INSERT INTO tags (id, groupId) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET groupId = excluded.groupId`,
		el.ID, rec.GroupID,
	)
	if err != nil {
		return fmt.Errorf("save tag record: %w", err)
	}
	return nil
}

func (tagKind) afterSave(*Env, *model.Element, bool) error { return nil }

func (tagKind) uriFormat(*Env, *model.Element) (string, error) { return "", nil }

