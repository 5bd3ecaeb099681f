// Package elements queries, eager loads and saves elements of every kind
// through one API.
//
// Each kind (Entry, Asset, Category, Tag, User, MatrixBlock, GlobalSet) is a
// value implementing Kind. The set is closed: Kind has unexported methods, so
// only this package defines kinds. Behavior shared by several kinds lives in
// free functions the kinds call explicitly.
package elements

import (
	"fmt"
	"strings"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/field"
	"github.com/aidanlsb/elements/internal/model"
)

// Source contexts.
const (
	ContextIndex    = "index"
	ContextModal    = "modal"
	ContextSettings = "settings"
)

// StatusOption is one status token a kind understands.
type StatusOption struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

// Attribute is a table column a presenter can show for a source.
type Attribute struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Kind is the capability table every element kind implements.
type Kind interface {
	Type() model.ElementType
	// Table is the kind's own record table, joined 1:1 on elements.id.
	Table() string

	HasContent() bool
	HasTitles() bool
	IsLocalized() bool
	HasStatuses() bool

	// Statuses lists the status tokens in display order.
	Statuses() []StatusOption
	// CriteriaSchema is the generic schema merged with the kind's attributes.
	CriteriaSchema() criteria.Schema

	// ModifyQuery joins the kind table and applies the kind's criteria.
	// Returning false means no element can match.
	ModifyQuery(env *Env, q *Query, c *criteria.Criteria) (bool, error)
	// StatusCondition maps a status token to a predicate evaluated at
	// env.Now. An unknown token is a *SchemaError.
	StatusCondition(env *Env, status string) (string, []any, error)
	// Sources returns the navigable groupings for context.
	Sources(env *Env, context string) ([]*model.Source, error)
	// EagerLoadingMap maps sources to targets for handle. handled is false
	// when handle means nothing for this kind.
	EagerLoadingMap(env *Env, sources []*model.Element, handle string) (m *model.EagerLoadMap, handled bool, err error)
	// Populate builds the kind record from a query row.
	Populate(row Row) (model.Record, error)

	TableAttributes(source string) []Attribute
	AttributeValue(env *Env, el *model.Element, attr string) string

	persister
}

// persister is the save pipeline of a kind.
type persister interface {
	// column maps a criteria or order name to a kind table column.
	column(name string) (string, bool)
	// statusOf computes the element's status in Go.
	statusOf(env *Env, el *model.Element) string
	// validate records errors on el.
	validate(env *Env, el *model.Element) error
	// beforeSave runs kind side effects outside the database. The returned
	// undo reverts them if the rest of the save fails.
	beforeSave(env *Env, el *model.Element, isNew bool) (undo func() error, err error)
	saveRecord(env *Env, el *model.Element, isNew bool) error
	afterSave(env *Env, el *model.Element, isNew bool) error
	// uriFormat returns the format the element's URI renders from, or "".
	uriFormat(env *Env, el *model.Element) (string, error)
}

// structured is implemented by kinds whose elements can live in a structure.
type structured interface {
	structureID(env *Env, el *model.Element) (int64, error)
}

// fieldContexter is implemented by kinds whose custom fields are not in the
// global field context.
type fieldContexter interface {
	fieldContexts(env *Env, c *criteria.Criteria) []string
	fieldContext(el *model.Element) string
}

// Built-in kinds.
var (
	Entries      Kind = entryKind{}
	Assets       Kind = assetKind{}
	Categories   Kind = categoryKind{}
	Tags         Kind = tagKind{}
	Users        Kind = userKind{}
	MatrixBlocks Kind = matrixBlockKind{}
	GlobalSets   Kind = globalSetKind{}
)

var allKinds = []Kind{Entries, Assets, Categories, Tags, Users, MatrixBlocks, GlobalSets}

// Kinds lists the built-in kinds.
func Kinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// KindOf returns the kind registered for t.
func KindOf(t model.ElementType) (Kind, error) {
	for _, k := range allKinds {
		if k.Type() == t {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, t)
}

// ParseKind resolves a kind by name, case-insensitively. Plural names such
// as "entries" and "categories" are accepted.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, k := range allKinds {
		t := strings.ToLower(string(k.Type()))
		if n == t || n == t+"s" || n == strings.TrimSuffix(t, "y")+"ies" || n == t+"es" {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
}

func fieldContextsOf(env *Env, kind Kind, c *criteria.Criteria) []string {
	if fc, ok := kind.(fieldContexter); ok {
		return fc.fieldContexts(env, c)
	}
	return []string{field.GlobalContext}
}

func fieldContextOf(kind Kind, el *model.Element) string {
	if fc, ok := kind.(fieldContexter); ok {
		return fc.fieldContext(el)
	}
	return field.GlobalContext
}
