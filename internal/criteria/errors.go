package criteria

import (
	"errors"
	"fmt"
)

// ErrUnknownAttribute is wrapped when a strict criteria receives an
// attribute its schema does not declare.
var ErrUnknownAttribute = errors.New("unknown criteria attribute")

// ValidationError reports an invalid attribute value.
type ValidationError struct {
	Attribute string
	Message   string
	err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("criteria attribute %q: %s", e.Attribute, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.err }

func invalid(attr, format string, args ...any) *ValidationError {
	return &ValidationError{Attribute: attr, Message: fmt.Sprintf(format, args...)}
}
