package elements

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind indicates an element type name no kind is registered for.
	ErrUnknownKind = errors.New("unknown element type")
	// ErrNotFound indicates no element matched.
	ErrNotFound = errors.New("element not found")
	// ErrNotStructured indicates a structure operation on an element that has
	// no structure.
	ErrNotStructured = errors.New("element does not belong to a structure")
	// ErrNoVolume indicates no file storage is configured for assets.
	ErrNoVolume = errors.New("no asset volume configured")

	// errInvalid rolls back a save that recorded validation errors.
	errInvalid = errors.New("element has validation errors")
)

// SchemaError reports a defect in calling code: an unrecognized status token,
// a malformed eager-loading handle or an invalid order term. It is never
// swallowed by the engine.
type SchemaError struct {
	Op     string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func schemaErrorf(op, format string, args ...any) *SchemaError {
	return &SchemaError{Op: op, Detail: fmt.Sprintf(format, args...)}
}
