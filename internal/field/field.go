// Package field holds custom field definitions and the registry that
// resolves them by handle within a field context.
package field

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aidanlsb/elements/internal/model"
	"github.com/aidanlsb/elements/internal/sqlutil"
)

// GlobalContext is the context of fields attached directly to element layouts.
const GlobalContext = "global"

// Field types.
const (
	TypePlainText   = "PlainText"
	TypeRichText    = "RichText"
	TypeNumber      = "Number"
	TypeLightswitch = "Lightswitch"
	TypeDate        = "Date"
	TypeEntries     = "Entries"
	TypeCategories  = "Categories"
	TypeAssets      = "Assets"
	TypeTags        = "Tags"
	TypeUsers       = "Users"
	TypeMatrix      = "Matrix"
)

var relationTargets = map[string]model.ElementType{
	TypeEntries:    model.TypeEntry,
	TypeCategories: model.TypeCategory,
	TypeAssets:     model.TypeAsset,
	TypeTags:       model.TypeTag,
	TypeUsers:      model.TypeUser,
}

var knownTypes = map[string]bool{
	TypePlainText: true, TypeRichText: true, TypeNumber: true, TypeLightswitch: true, TypeDate: true,
	TypeEntries: true, TypeCategories: true, TypeAssets: true, TypeTags: true, TypeUsers: true, TypeMatrix: true,
}

// BlockTypeContext is the field context of fields owned by a Matrix block type.
func BlockTypeContext(blockTypeID int64) string {
	return fmt.Sprintf("matrixBlockType:%d", blockTypeID)
}

// Field is one custom field definition.
type Field struct {
	ID           int64          `json:"id" yaml:"-"`
	Context      string         `json:"context" yaml:"-"`
	Handle       string         `json:"handle" yaml:"handle"`
	Name         string         `json:"name" yaml:"name"`
	Type         string         `json:"type" yaml:"type"`
	Translatable bool           `json:"translatable" yaml:"translatable,omitempty"`
	Settings     map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// BlockType is a Matrix block type; its fields live in BlockTypeContext(ID).
type BlockType struct {
	ID        int64  `json:"id"`
	FieldID   int64  `json:"field_id"`
	Name      string `json:"name"`
	Handle    string `json:"handle"`
	SortOrder int    `json:"sort_order"`
}

// IsKnownType reports whether t is a supported field type.
func IsKnownType(t string) bool {
	return knownTypes[t]
}

// IsRelational reports whether the field stores its value in the relations table.
func (f *Field) IsRelational() bool {
	_, ok := relationTargets[f.Type]
	return ok
}

// TargetType returns the element type a relational or Matrix field points at.
func (f *Field) TargetType() (model.ElementType, bool) {
	if f.Type == TypeMatrix {
		return model.TypeMatrixBlock, true
	}
	t, ok := relationTargets[f.Type]
	return t, ok
}

// SupportsEagerLoading reports whether EagerLoadingMap can map this field.
func (f *Field) SupportsEagerLoading() bool {
	_, ok := f.TargetType()
	return ok
}

// EagerLoadingMap maps the given sources to their targets through this field.
// handled is false for field types without eager loading.
func (f *Field) EagerLoadingMap(db sqlutil.DBTX, sourceIDs []int64, locale string) (*model.EagerLoadMap, bool, error) {
	target, ok := f.TargetType()
	if !ok {
		return nil, false, nil
	}

	ph, args := sqlutil.InClauseArgs(sourceIDs)
	var query string
	var criteria map[string]any
	if f.Type == TypeMatrix {
		query = fmt.Sprintf(`
			SELECT ownerId, id FROM matrixblocks
			WHERE fieldId = ? AND ownerId IN (%s) AND (ownerLocale IS NULL OR ownerLocale = ?)
			ORDER BY ownerId, sortOrder`, ph)
		criteria = map[string]any{"fieldId": f.ID}
	} else {
		query = fmt.Sprintf(`
			SELECT sourceId, targetId FROM relations
			WHERE fieldId = ? AND sourceId IN (%s) AND (sourceLocale IS NULL OR sourceLocale = ?)
			ORDER BY sourceId, sortOrder`, ph)
	}
	args = append([]any{f.ID}, append(args, locale)...)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("eager load field %s: %w", f.Handle, err)
	}
	edges, err := sqlutil.ScanRows(rows, func(r *sql.Rows) (model.Edge, error) {
		var e model.Edge
		err := r.Scan(&e.Source, &e.Target)
		return e, err
	})
	if err != nil {
		return nil, false, fmt.Errorf("eager load field %s: %w", f.Handle, err)
	}
	return &model.EagerLoadMap{Type: target, Edges: edges, Criteria: criteria}, true, nil
}

func (f *Field) settingsJSON() (string, error) {
	if len(f.Settings) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(f.Settings)
	if err != nil {
		return "", fmt.Errorf("marshal settings for field %s: %w", f.Handle, err)
	}
	return string(data), nil
}

// Registry indexes field definitions by context and handle.
type Registry struct {
	byContext  map[string]map[string]*Field
	byID       map[int64]*Field
	blockTypes map[int64][]*BlockType
	blockByID  map[int64]*BlockType
}

// NewRegistry builds a registry from in-memory definitions.
func NewRegistry(fields []*Field, blockTypes []*BlockType) *Registry {
	r := &Registry{
		byContext:  make(map[string]map[string]*Field),
		byID:       make(map[int64]*Field),
		blockTypes: make(map[int64][]*BlockType),
		blockByID:  make(map[int64]*BlockType),
	}
	for _, f := range fields {
		ctx := f.Context
		if ctx == "" {
			ctx = GlobalContext
		}
		if r.byContext[ctx] == nil {
			r.byContext[ctx] = make(map[string]*Field)
		}
		r.byContext[ctx][f.Handle] = f
		r.byID[f.ID] = f
	}
	for _, bt := range blockTypes {
		r.blockTypes[bt.FieldID] = append(r.blockTypes[bt.FieldID], bt)
		r.blockByID[bt.ID] = bt
	}
	for id := range r.blockTypes {
		list := r.blockTypes[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].SortOrder < list[j].SortOrder })
	}
	return r
}

// Load reads every field and Matrix block type.
func Load(db sqlutil.DBTX) (*Registry, error) {
	rows, err := db.Query("SELECT id, context, handle, name, type, translatable, settings FROM fields")
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}
	fields, err := sqlutil.ScanRows(rows, func(r *sql.Rows) (*Field, error) {
		f := &Field{}
		var settings string
		if err := r.Scan(&f.ID, &f.Context, &f.Handle, &f.Name, &f.Type, &f.Translatable, &settings); err != nil {
			return nil, err
		}
		if settings != "" && settings != "{}" {
			if err := json.Unmarshal([]byte(settings), &f.Settings); err != nil {
				return nil, fmt.Errorf("field %s settings: %w", f.Handle, err)
			}
		}
		return f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}

	rows, err = db.Query("SELECT id, fieldId, name, handle, sortOrder FROM matrixblocktypes")
	if err != nil {
		return nil, fmt.Errorf("load block types: %w", err)
	}
	blockTypes, err := sqlutil.ScanRows(rows, func(r *sql.Rows) (*BlockType, error) {
		bt := &BlockType{}
		err := r.Scan(&bt.ID, &bt.FieldID, &bt.Name, &bt.Handle, &bt.SortOrder)
		return bt, err
	})
	if err != nil {
		return nil, fmt.Errorf("load block types: %w", err)
	}
	return NewRegistry(fields, blockTypes), nil
}

// Lookup resolves handle within context.
func (r *Registry) Lookup(context, handle string) (*Field, bool) {
	f, ok := r.byContext[context][handle]
	return f, ok
}

// ByID returns the field with id.
func (r *Registry) ByID(id int64) (*Field, bool) {
	f, ok := r.byID[id]
	return f, ok
}

// Fields lists a context's fields sorted by handle.
func (r *Registry) Fields(context string) []*Field {
	out := make([]*Field, 0, len(r.byContext[context]))
	for _, f := range r.byContext[context] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// BlockTypes lists a Matrix field's block types in sort order.
func (r *Registry) BlockTypes(fieldID int64) []*BlockType {
	return r.blockTypes[fieldID]
}

// AllBlockTypes lists every block type ordered by id.
func (r *Registry) AllBlockTypes() []*BlockType {
	out := make([]*BlockType, 0, len(r.blockByID))
	for _, bt := range r.blockByID {
		out = append(out, bt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BlockType returns the block type with id.
func (r *Registry) BlockType(id int64) (*BlockType, bool) {
	bt, ok := r.blockByID[id]
	return bt, ok
}

// BlockTypeByHandle finds a block type of one Matrix field.
func (r *Registry) BlockTypeByHandle(fieldID int64, handle string) (*BlockType, bool) {
	for _, bt := range r.blockTypes[fieldID] {
		if bt.Handle == handle {
			return bt, true
		}
	}
	return nil, false
}

// Create inserts or updates f by (context, handle) and sets f.ID.
func Create(db sqlutil.DBTX, f *Field) error {
	if f.Context == "" {
		f.Context = GlobalContext
	}
	if !IsKnownType(f.Type) {
		return fmt.Errorf("field %s: unknown field type %q (known: %s)", f.Handle, f.Type, knownTypeList())
	}
	settings, err := f.settingsJSON()
	if err != nil {
		return err
	}
	err = db.QueryRow(`
		INSERT INTO fields (context, handle, name, type, translatable, settings)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(context, handle) DO UPDATE SET
			name = excluded.name, type = excluded.type,
			translatable = excluded.translatable, settings = excluded.settings
		RETURNING id`,
		f.Context, f.Handle, f.Name, f.Type, f.Translatable, settings,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("save field %s: %w", f.Handle, err)
	}
	return nil
}

// CreateBlockType inserts or updates bt by (fieldId, handle) and sets bt.ID.
func CreateBlockType(db sqlutil.DBTX, bt *BlockType) error {
	err := db.QueryRow(`
		INSERT INTO matrixblocktypes (fieldId, name, handle, sortOrder)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fieldId, handle) DO UPDATE SET name = excluded.name, sortOrder = excluded.sortOrder
		RETURNING id`,
		bt.FieldID, bt.Name, bt.Handle, bt.SortOrder,
	).Scan(&bt.ID)
	if err != nil {
		return fmt.Errorf("save block type %s: %w", bt.Handle, err)
	}
	return nil
}

func knownTypeList() string {
	names := make([]string, 0, len(knownTypes))
	for t := range knownTypes {
		names = append(names, t)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
