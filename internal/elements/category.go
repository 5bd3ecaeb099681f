package elements

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aidanlsb/elements/internal/catalog"
	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
)

var categorySchema = criteria.Base().Merge(structureSchema).Merge(criteria.Schema{
	"title":   {Type: criteria.String},
	"group":   {Type: criteria.String},
	"groupId": {Type: criteria.Number},
	"status":  {Type: criteria.Mixed, Default: StatusEnabled},
	"order":   {Type: criteria.String, Default: "lft"},
})

type categoryKind struct{}

func (categoryKind) Type() model.ElementType { return model.TypeCategory }
func (categoryKind) Table() string           { return "categories" }
func (categoryKind) HasContent() bool        { return true }
func (categoryKind) HasTitles() bool         { return true }
func (categoryKind) IsLocalized() bool       { return true }
func (categoryKind) HasStatuses() bool       { return true }

func (categoryKind) Statuses() []StatusOption        { return defaultStatuses() }
func (categoryKind) CriteriaSchema() criteria.Schema { return categorySchema }

func (categoryKind) column(name string) (string, bool) {
	if name == "groupId" {
		return "categories.groupId", true
	}
	return "", false
}

func (k categoryKind) StatusCondition(env *Env, status string) (string, []any, error) {
	return defaultStatusCondition(k, status)
}

func (categoryKind) statusOf(env *Env, el *model.Element) string { return defaultStatusOf(el) }

func (categoryKind) ModifyQuery(env *Env, q *Query, c *criteria.Criteria) (bool, error) {
	q.Select("categories.groupId AS groupId")
	q.Join("JOIN categories ON categories.id = elements.id")
	q.Join("JOIN categorygroups ON categorygroups.id = categories.groupId")
	joinStructure(q)

	if v, ok := c.Value("group"); ok {
		if err := q.WhereParam(params.Col("categorygroups.handle"), v); err != nil {
			return false, fmt.Errorf("group: %w", err)
		}
	}
	if v, ok := c.Value("groupId"); ok {
		if err := q.WhereParam(params.Col("categories.groupId"), v); err != nil {
			return false, fmt.Errorf("groupId: %w", err)
		}
	}
	return applyStructureCriteria(env, q, c)
}

// Sources lists one source per category group. In the index context only
// groups the user can edit are listed.
func (categoryKind) Sources(env *Env, context string) ([]*model.Source, error) {
	groups, err := env.Catalog.CategoryGroups()
	if err != nil {
		return nil, err
	}
	var out []*model.Source
	for _, g := range groups {
		editable := env.User.Can(permission("editcategories", g.ID))
		if context == ContextIndex && !editable {
			continue
		}
		src := &model.Source{
			Key:               "group:" + strconv.FormatInt(g.ID, 10),
			Label:             g.Name,
			Criteria:          map[string]any{"groupId": g.ID},
			StructureEditable: editable,
		}
		if g.StructureID != nil {
			src.StructureID = *g.StructureID
		}
		out = append(out, src)
	}
	return out, nil
}

func (k categoryKind) EagerLoadingMap(env *Env, sources []*model.Element, handle string) (*model.EagerLoadMap, bool, error) {
	return defaultEagerLoadingMap(env, k, sources, handle)
}

func (categoryKind) Populate(row Row) (model.Record, error) {
	return &model.CategoryRecord{GroupID: row.Int64("groupId")}, nil
}

func (k categoryKind) TableAttributes(source string) []Attribute {
	return append(defaultTableAttributes(k), Attribute{Key: "uri", Label: "URI"})
}

func (k categoryKind) AttributeValue(env *Env, el *model.Element, attr string) string {
	if rec, ok := el.Record.(*model.CategoryRecord); ok && attr == "group" {
		if g, err := env.Catalog.CategoryGroup(rec.GroupID); err == nil {
			return g.Name
		}
		return ""
	}
	return defaultAttributeValue(env, k, el, attr)
}

func (categoryKind) validate(env *Env, el *model.Element) error {
	rec, ok := el.Record.(*model.CategoryRecord)
	if !ok {
		return fmt.Errorf("category %d: record is %T", el.ID, el.Record)
	}
	if _, err := env.Catalog.CategoryGroup(rec.GroupID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			el.AddError("groupId", "Group is invalid.")
			return nil
		}
		return err
	}
	if el.Title == "" {
		el.AddError("title", "Title cannot be blank.")
	}
	return nil
}

func (categoryKind) beforeSave(*Env, *model.Element, bool) (func() error, error) {
	return nil, nil
}

func (categoryKind) saveRecord(env *Env, el *model.Element, isNew bool) error {
	rec := el.Record.(*model.CategoryRecord)
	_, err := env.DB.Exec(`
		INSERT INTO categories (id, groupId) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET groupId = excluded.groupId`,
		el.ID, rec.GroupID,
	)
	if err != nil {
		return fmt.Errorf("save category record: %w", err)
	}
	return nil
}

func (k categoryKind) afterSave(env *Env, el *model.Element, isNew bool) error {
	sid, err := k.structureID(env, el)
	if err != nil || sid == 0 {
		return err
	}
	return placeInStructure(env, sid, el.ID, el.Record.(*model.CategoryRecord).ParentID)
}

func (categoryKind) uriFormat(env *Env, el *model.Element) (string, error) {
	g, err := env.Catalog.CategoryGroup(el.Record.(*model.CategoryRecord).GroupID)
	if err != nil {
		return "", err
	}
	if !g.HasURLs {
		return "", nil
	}
	return g.URIFormat, nil
}

func (categoryKind) structureID(env *Env, el *model.Element) (int64, error) {
	rec, ok := el.Record.(*model.CategoryRecord)
	if !ok {
		return 0, nil
	}
	g, err := env.Catalog.CategoryGroup(rec.GroupID)
	if err != nil {
		return 0, err
	}
	if g.StructureID == nil {
		return 0, nil
	}
	return *g.StructureID, nil
}

func (categoryKind) propagatesToAncestors() bool { return true }
