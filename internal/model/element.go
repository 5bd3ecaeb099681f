// Package model defines the element records shared by the query engine,
// its storage helpers and the CLI.
package model

import (
	"sort"
	"time"
)

// ElementType tags an element row with the kind that owns it.
type ElementType string

const (
	TypeEntry       ElementType = "Entry"
	TypeAsset       ElementType = "Asset"
	TypeCategory    ElementType = "Category"
	TypeTag         ElementType = "Tag"
	TypeUser        ElementType = "User"
	TypeMatrixBlock ElementType = "MatrixBlock"
	TypeGlobalSet   ElementType = "GlobalSet"
)

// Element is the generic element record. Kind-specific columns live in Record.
type Element struct {
	ID            int64          `json:"id"`
	UID           string         `json:"uid"`
	Type          ElementType    `json:"type"`
	Locale        string         `json:"locale"`
	Enabled       bool           `json:"enabled"`
	Archived      bool           `json:"archived"`
	LocaleEnabled bool           `json:"locale_enabled"`
	Slug          string         `json:"slug,omitempty"`
	URI           string         `json:"uri,omitempty"`
	Title         string         `json:"title,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
	DateCreated   time.Time      `json:"date_created"`
	DateUpdated   time.Time      `json:"date_updated"`

	// Record holds the kind-specific row joined 1:1 on ID.
	Record Record `json:"record,omitempty"`

	// Structure is set when the element was fetched with structure data.
	Structure *StructurePosition `json:"structure,omitempty"`

	// Eager holds elements attached by eager loading, keyed by handle.
	Eager map[string][]*Element `json:"eager,omitempty"`

	// Conflict is set when a save was refused because of a naming collision
	// that needs a caller decision.
	Conflict *Conflict `json:"conflict,omitempty"`

	errors map[string][]string
}

// StructurePosition is an element's nested-set coordinates in one structure.
type StructurePosition struct {
	StructureID int64 `json:"structure_id"`
	Lft         int64 `json:"lft"`
	Rgt         int64 `json:"rgt"`
	Level       int   `json:"level"`
}

// Conflict describes an asset filename collision.
type Conflict struct {
	Filename  string `json:"filename"`
	Suggested string `json:"suggested"`
}

// AddError records a validation error for attr.
func (e *Element) AddError(attr, message string) {
	if e.errors == nil {
		e.errors = make(map[string][]string)
	}
	e.errors[attr] = append(e.errors[attr], message)
}

// HasErrors reports whether any validation error was recorded.
func (e *Element) HasErrors() bool {
	return len(e.errors) > 0
}

// Errors returns recorded validation errors.
func (e *Element) Errors() map[string][]string {
	return e.errors
}

// ErrorAttributes returns the attributes with errors, sorted.
func (e *Element) ErrorAttributes() []string {
	keys := make([]string, 0, len(e.errors))
	for k := range e.errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClearErrors drops validation errors and any conflict.
func (e *Element) ClearErrors() {
	e.errors = nil
	e.Conflict = nil
}

// SetEager attaches eager-loaded targets for handle.
func (e *Element) SetEager(handle string, targets []*Element) {
	if e.Eager == nil {
		e.Eager = make(map[string][]*Element)
	}
	e.Eager[handle] = targets
}

// EagerLoaded reports whether handle has been eager loaded, even if empty.
func (e *Element) EagerLoaded(handle string) ([]*Element, bool) {
	targets, ok := e.Eager[handle]
	return targets, ok
}

// Field returns a custom field value.
func (e *Element) Field(handle string) any {
	if e.Fields == nil {
		return nil
	}
	return e.Fields[handle]
}

// SetField sets a custom field value.
func (e *Element) SetField(handle string, value any) {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[handle] = value
}

// IDs collects element ids preserving order.
func IDs(elements []*Element) []int64 {
	ids := make([]int64, 0, len(elements))
	for _, el := range elements {
		ids = append(ids, el.ID)
	}
	return ids
}
