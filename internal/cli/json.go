package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aidanlsb/elements/internal/criteria"
	"github.com/aidanlsb/elements/internal/elements"
)

// Global JSON output flag
var jsonOutput bool

// stdout is where command output goes; tests swap it out.
var stdout io.Writer = os.Stdout

// Response is the standard JSON envelope for all CLI output.
type Response struct {
	OK       bool       `json:"ok"`
	Data     any        `json:"data,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
	Warnings []Warning  `json:"warnings,omitempty"`
	Meta     *Meta      `json:"meta,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Warning represents a non-fatal warning.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// Meta contains metadata about the response.
type Meta struct {
	Count       int   `json:"count,omitempty"`
	QueryTimeMs int64 `json:"query_time_ms,omitempty"`
}

// outputJSON writes the response as indented JSON.
func outputJSON(resp Response) {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

// outputSuccess outputs a successful JSON response.
func outputSuccess(data any, meta *Meta) {
	outputJSON(Response{
		OK:   true,
		Data: data,
		Meta: meta,
	})
}

// outputSuccessWithWarnings outputs a successful JSON response with warnings.
func outputSuccessWithWarnings(data any, warnings []Warning, meta *Meta) {
	outputJSON(Response{
		OK:       true,
		Data:     data,
		Warnings: warnings,
		Meta:     meta,
	})
}

// outputError outputs an error JSON response.
func outputError(code, message string, details any, suggestion string) {
	outputJSON(Response{
		OK: false,
		Error: &ErrorInfo{
			Code:       code,
			Message:    message,
			Details:    details,
			Suggestion: suggestion,
		},
	})
}

// isJSONOutput returns true if JSON output is enabled.
func isJSONOutput() bool {
	return jsonOutput
}

// errSilent tells main to exit non-zero without printing: the JSON error
// envelope has already been written.
var errSilent = errors.New("error reported as JSON")

// IsSilent reports whether err was already reported on stdout.
func IsSilent(err error) bool {
	return errors.Is(err, errSilent)
}

// handleError handles an error appropriately based on output mode.
// In JSON mode, outputs a JSON error. In text mode, returns the error for Cobra.
func handleError(code string, err error, suggestion string) error {
	if jsonOutput {
		outputError(code, err.Error(), nil, suggestion)
		return errSilent
	}
	return err
}

// handleErrorMsg handles an error message appropriately based on output mode.
func handleErrorMsg(code, message, suggestion string) error {
	if jsonOutput {
		outputError(code, message, nil, suggestion)
		return errSilent
	}
	return fmt.Errorf("%s", message)
}

// handleErrorWithDetails handles an error with structured details.
func handleErrorWithDetails(code, message, suggestion string, details any) error {
	if jsonOutput {
		outputError(code, message, details, suggestion)
		return errSilent
	}
	return fmt.Errorf("%s", message)
}

// handleEngineError maps engine errors to stable error codes.
func handleEngineError(err error) error {
	var se *elements.SchemaError
	var ve *criteria.ValidationError
	switch {
	case errors.As(err, &se):
		return handleErrorWithDetails(ErrSchemaInvalid, err.Error(), "", map[string]string{"op": se.Op, "detail": se.Detail})
	case errors.As(err, &ve):
		return handleErrorWithDetails(ErrInvalidValue, err.Error(), "", map[string]string{"attribute": ve.Attribute})
	case errors.Is(err, elements.ErrUnknownKind):
		return handleError(ErrKindNotFound, err, "Kinds: entries, assets, categories, tags, users, matrixblocks, globalsets")
	case errors.Is(err, elements.ErrNotFound):
		return handleError(ErrElementNotFound, err, "")
	case errors.Is(err, elements.ErrNotStructured):
		return handleError(ErrNotStructured, err, "Only entries in structure sections and categories can be moved")
	default:
		return handleError(ErrDatabaseError, err, "")
	}
}

func noticeWarnings(notices []elements.Notice) []Warning {
	if len(notices) == 0 {
		return nil
	}
	out := make([]Warning, 0, len(notices))
	for _, n := range notices {
		out = append(out, Warning{Code: WarnDeprecated, Message: n.Message, Ref: n.Code})
	}
	return out
}
