package elements

import (
	"fmt"
	"strings"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
)

var globalSetSchema = criteria.Base().Merge(criteria.Schema{
	"handle": {Type: criteria.String},
	"order":  {Type: criteria.String, Default: "name"},
})

type globalSetKind struct{}

func (globalSetKind) Type() model.ElementType { return model.TypeGlobalSet }
func (globalSetKind) Table() string           { return "globalsets" }
func (globalSetKind) HasContent() bool        { return true }
func (globalSetKind) HasTitles() bool         { return false }
func (globalSetKind) IsLocalized() bool       { return true }
func (globalSetKind) HasStatuses() bool       { return false }

func (globalSetKind) Statuses() []StatusOption        { return nil }
func (globalSetKind) CriteriaSchema() criteria.Schema { return globalSetSchema }

func (globalSetKind) column(name string) (string, bool) {
	switch name {
	case "name":
		return "globalsets.name", true
	case "handle":
		return "globalsets.handle", true
	}
	return "", false
}

func (k globalSetKind) StatusCondition(env *Env, status string) (string, []any, error) {
	return "", nil, unknownStatus(k, status)
}

func (globalSetKind) statusOf(env *Env, el *model.Element) string { return defaultStatusOf(el) }

func (globalSetKind) ModifyQuery(env *Env, q *Query, c *criteria.Criteria) (bool, error) {
	q.Select("globalsets.name AS name", "globalsets.handle AS handle")
	q.Join("JOIN globalsets ON globalsets.id = elements.id")
	if v, ok := c.Value("handle"); ok {
		if err := q.WhereParam(params.Col("globalsets.handle"), v); err != nil {
			return false, fmt.Errorf("handle: %w", err)
		}
	}
	return true, nil
}

func (globalSetKind) Sources(*Env, string) ([]*model.Source, error) { return noSources() }

func (k globalSetKind) EagerLoadingMap(env *Env, sources []*model.Element, handle string) (*model.EagerLoadMap, bool, error) {
	return defaultEagerLoadingMap(env, k, sources, handle)
}

func (globalSetKind) Populate(row Row) (model.Record, error) {
	return &model.GlobalSetRecord{Name: row.String("name"), Handle: row.String("handle")}, nil
}

func (globalSetKind) TableAttributes(source string) []Attribute {
	return []Attribute{{Key: "name", Label: "Name"}, {Key: "handle", Label: "Handle"}}
}

func (k globalSetKind) AttributeValue(env *Env, el *model.Element, attr string) string {
	if rec, ok := el.Record.(*model.GlobalSetRecord); ok {
		switch attr {
		case "name":
			return rec.Name
		case "handle":
			return rec.Handle
		}
	}
	return defaultAttributeValue(env, k, el, attr)
}

func (globalSetKind) validate(env *Env, el *model.Element) error {
	rec, ok := el.Record.(*model.GlobalSetRecord)
	if !ok {
		return fmt.Errorf("global set %d: record is %T", el.ID, el.Record)
	}
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		el.AddError("name", "Name cannot be blank.")
	}
	if !params.IsValidHandle(rec.Handle) {
		el.AddError("handle", fmt.Sprintf("%q is not a valid handle.", rec.Handle))
		return nil
	}
	var n int
	err := env.DB.QueryRow("SELECT COUNT(*) FROM globalsets WHERE handle = ? AND id != ?", rec.Handle, el.ID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check handle: %w", err)
	}
	if n > 0 {
		el.AddError("handle", fmt.Sprintf("Handle %q has already been taken.", rec.Handle))
	}
	return nil
}

func (globalSetKind) beforeSave(*Env, *model.Element, bool) (func() error, error) {
	return nil, nil
}

func (globalSetKind) saveRecord(env *Env, el *model.Element, isNew bool) error {
	rec := el.Record.(*model.GlobalSetRecord)
	_, err := env.DB.Exec(`
		INSERT INTO globalsets (id, name, handle) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, handle = excluded.handle`,
		el.ID, rec.Name, rec.Handle,
	)
	if err != nil {
		return fmt.Errorf("save global set record: %w", err)
	}
	return nil
}

func (globalSetKind) afterSave(*Env, *model.Element, bool) error { return nil }

func (globalSetKind) uriFormat(*Env, *model.Element) (string, error) { return "", nil }
