package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	ErrConfigInvalid = "CONFIG_INVALID"

	// Project errors
	ErrProjectNotFound = "PROJECT_NOT_FOUND"
	ErrProjectInvalid  = "PROJECT_INVALID"

	// Element errors
	ErrKindNotFound    = "KIND_NOT_FOUND"
	ErrElementNotFound = "ELEMENT_NOT_FOUND"
	ErrElementInvalid  = "ELEMENT_INVALID"
	ErrSourceNotFound  = "SOURCE_NOT_FOUND"
	ErrNotStructured   = "NOT_STRUCTURED"
	ErrInvalidMove     = "INVALID_MOVE"
	ErrUserNotFound    = "USER_NOT_FOUND"

	// Database errors
	ErrDatabaseError   = "DATABASE_ERROR"
	ErrDatabaseVersion = "DATABASE_VERSION_MISMATCH"

	// Query errors
	ErrSchemaInvalid = "SCHEMA_ERROR"
	ErrInvalidValue  = "INVALID_VALUE"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnDeprecated       = "DEPRECATED"
	WarnIgnoredAttribute = "IGNORED_ATTRIBUTE"
)
