package elements

import (
	"fmt"
	"strings"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/field"
	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/params"
	"github.com/aidanlsb/elements/internal/sqlutil"
)

var matrixBlockSchema = criteria.Base().Merge(criteria.Schema{
	"fieldId":     {Type: criteria.Number},
	"ownerId":     {Type: criteria.Number},
	"ownerLocale": {Type: criteria.Locale},
	"type":        {Type: criteria.String},
	"order":       {Type: criteria.String, Default: "matrixblocks.sortOrder"},
})

var matrixBlockColumns = map[string]string{
	"fieldId":   "matrixblocks.fieldId",
	"ownerId":   "matrixblocks.ownerId",
	"typeId":    "matrixblocks.typeId",
	"sortOrder": "matrixblocks.sortOrder",
}

type matrixBlockKind struct{}

func (matrixBlockKind) Type() model.ElementType { return model.TypeMatrixBlock }
func (matrixBlockKind) Table() string           { return "matrixblocks" }
func (matrixBlockKind) HasContent() bool        { return true }
func (matrixBlockKind) HasTitles() bool         { return false }
func (matrixBlockKind) IsLocalized() bool       { return true }
func (matrixBlockKind) HasStatuses() bool       { return false }

func (matrixBlockKind) Statuses() []StatusOption        { return nil }
func (matrixBlockKind) CriteriaSchema() criteria.Schema { return matrixBlockSchema }

func (matrixBlockKind) column(name string) (string, bool) {
	col, ok := matrixBlockColumns[name]
	return col, ok
}

func (k matrixBlockKind) StatusCondition(env *Env, status string) (string, []any, error) {
	return "", nil, unknownStatus(k, status)
}

func (matrixBlockKind) statusOf(env *Env, el *model.Element) string { return defaultStatusOf(el) }

func (matrixBlockKind) ModifyQuery(env *Env, q *Query, c *criteria.Criteria) (bool, error) {
	q.Select(
		"matrixblocks.fieldId AS fieldId",
		"matrixblocks.ownerId AS ownerId",
		"matrixblocks.ownerLocale AS ownerLocale",
		"matrixblocks.typeId AS typeId",
		"matrixblocks.sortOrder AS sortOrder",
	)
	q.Join("JOIN matrixblocks ON matrixblocks.id = elements.id")

	for _, name := range []string{"fieldId", "ownerId"} {
		if v, ok := c.Value(name); ok {
			if err := q.WhereParam(params.Col(matrixBlockColumns[name]), v); err != nil {
				return false, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	if locale := c.String("ownerLocale"); locale != "" {
		q.Where("(matrixblocks.ownerLocale IS NULL OR matrixblocks.ownerLocale = ?)", locale)
	}
	if v, ok := c.Value("type"); ok {
		ids := blockTypeIDs(env, c, plainStrings(v))
		if len(ids) == 0 {
			return false, nil
		}
		ph, args := sqlutil.InClauseArgs(ids)
		q.Where("matrixblocks.typeId IN ("+ph+")", args...)
	}
	return true, nil
}

// blockTypeIDs resolves block type handles, within the queried field when
// fieldId is a single id.
func blockTypeIDs(env *Env, c *criteria.Criteria, handles []string) []int64 {
	want := make(map[string]bool, len(handles))
	for _, h := range handles {
		want[h] = true
	}
	var ids []int64
	for _, bt := range blockTypesFor(env, c) {
		if want[bt.Handle] {
			ids = append(ids, bt.ID)
		}
	}
	return ids
}

func blockTypesFor(env *Env, c *criteria.Criteria) []*field.BlockType {
	if c != nil {
		if fid, ok := c.Int("fieldId"); ok {
			return env.Fields.BlockTypes(fid)
		}
	}
	return env.Fields.AllBlockTypes()
}

func (matrixBlockKind) fieldContexts(env *Env, c *criteria.Criteria) []string {
	types := blockTypesFor(env, c)
	out := make([]string, 0, len(types))
	for _, bt := range types {
		out = append(out, field.BlockTypeContext(bt.ID))
	}
	return out
}

func (matrixBlockKind) fieldContext(el *model.Element) string {
	if rec, ok := el.Record.(*model.MatrixBlockRecord); ok {
		return field.BlockTypeContext(rec.TypeID)
	}
	return field.GlobalContext
}

func (matrixBlockKind) Sources(*Env, string) ([]*model.Source, error) { return noSources() }

// EagerLoadingMap resolves "<blockType>:<field>" handles against the fields
// of that block type. Only blocks of the named type contribute sources.
func (k matrixBlockKind) EagerLoadingMap(env *Env, sources []*model.Element, handle string) (*model.EagerLoadMap, bool, error) {
	if !strings.Contains(handle, ":") {
		return defaultEagerLoadingMap(env, k, sources, handle)
	}
	typeHandle, fieldHandle, err := splitMatrixHandle(handle)
	if err != nil {
		return nil, false, err
	}

	// block type id -> sources of that type
	byType := map[int64][]*model.Element{}
	var order []int64
	for _, el := range sources {
		rec, ok := el.Record.(*model.MatrixBlockRecord)
		if !ok {
			continue
		}
		bt, ok := env.Fields.BlockTypeByHandle(rec.FieldID, typeHandle)
		if !ok || bt.ID != rec.TypeID {
			continue
		}
		if _, seen := byType[bt.ID]; !seen {
			order = append(order, bt.ID)
		}
		byType[bt.ID] = append(byType[bt.ID], el)
	}

	var merged *model.EagerLoadMap
	for _, btID := range order {
		f, ok := env.Fields.Lookup(field.BlockTypeContext(btID), fieldHandle)
		if !ok {
			continue
		}
		blocks := byType[btID]
		m, handled, err := f.EagerLoadingMap(env.DB, model.IDs(blocks), localeOf(env, blocks))
		if err != nil {
			return nil, false, err
		}
		if !handled {
			continue
		}
		if merged == nil {
			merged = m
			continue
		}
		if m.Type != merged.Type {
			return nil, false, schemaErrorf("eager load", "Matrix handle %q targets both %s and %s", handle, merged.Type, m.Type)
		}
		merged.Edges = append(merged.Edges, m.Edges...)
	}
	if merged == nil {
		return nil, false, nil
	}
	return merged, true, nil
}

func (matrixBlockKind) checkEagerHandle(handle string) error {
	if !strings.Contains(handle, ":") {
		return nil
	}
	_, _, err := splitMatrixHandle(handle)
	return err
}

func splitMatrixHandle(handle string) (typeHandle, fieldHandle string, err error) {
	parts := strings.Split(handle, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", schemaErrorf("eager load", "invalid Matrix handle %q, expected <blockType>:<field>", handle)
	}
	return parts[0], parts[1], nil
}

func (matrixBlockKind) Populate(row Row) (model.Record, error) {
	return &model.MatrixBlockRecord{
		OwnerID:     row.Int64("ownerId"),
		OwnerLocale: row.StringPtr("ownerLocale"),
		FieldID:     row.Int64("fieldId"),
		TypeID:      row.Int64("typeId"),
		SortOrder:   int(row.Int64("sortOrder")),
	}, nil
}

func (matrixBlockKind) TableAttributes(source string) []Attribute {
	return []Attribute{{Key: "type", Label: "Block Type"}}
}

func (k matrixBlockKind) AttributeValue(env *Env, el *model.Element, attr string) string {
	if rec, ok := el.Record.(*model.MatrixBlockRecord); ok && attr == "type" {
		if bt, ok := env.Fields.BlockType(rec.TypeID); ok {
			return bt.Name
		}
		return ""
	}
	return defaultAttributeValue(env, k, el, attr)
}

func (matrixBlockKind) validate(env *Env, el *model.Element) error {
	rec, ok := el.Record.(*model.MatrixBlockRecord)
	if !ok {
		return fmt.Errorf("matrix block %d: record is %T", el.ID, el.Record)
	}
	f, ok := env.Fields.ByID(rec.FieldID)
	if !ok || f.Type != field.TypeMatrix {
		el.AddError("fieldId", "Field is not a Matrix field.")
		return nil
	}
	if bt, ok := env.Fields.BlockType(rec.TypeID); !ok || bt.FieldID != f.ID {
		el.AddError("typeId", "Block type is invalid.")
	}
	var n int
	if err := env.DB.QueryRow("SELECT COUNT(*) FROM elements WHERE id = ?", rec.OwnerID).Scan(&n); err != nil {
		return fmt.Errorf("check owner: %w", err)
	}
	if n == 0 {
		el.AddError("ownerId", "Owner is invalid.")
	}
	return nil
}

func (matrixBlockKind) beforeSave(*Env, *model.Element, bool) (func() error, error) {
	return nil, nil
}

func (matrixBlockKind) saveRecord(env *Env, el *model.Element, isNew bool) error {
	rec := el.Record.(*model.MatrixBlockRecord)
	var ownerLocale any
	if rec.OwnerLocale != nil {
		ownerLocale = *rec.OwnerLocale
	}
	_, err := env.DB.Exec(`
		INSERT INTO matrixblocks (id, ownerId, ownerLocale, fieldId, typeId, sortOrder) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ownerId = excluded.ownerId, ownerLocale = excluded.ownerLocale,
			fieldId = excluded.fieldId, typeId = excluded.typeId, sortOrder = excluded.sortOrder`,
		el.ID, rec.OwnerID, ownerLocale, rec.FieldID, rec.TypeID, rec.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("save matrix block record: %w", err)
	}
	return nil
}

func (matrixBlockKind) afterSave(*Env, *model.Element, bool) error { return nil }

func (matrixBlockKind) uriFormat(*Env, *model.Element) (string, error) { return "", nil }
