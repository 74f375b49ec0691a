package validation

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaError is the common interface for schema validation failures.
type SchemaError interface {
	error
	schemaError()
}

// InvalidRequestPayloadError reports a payload that is missing entirely
// or is not a JSON object.
type InvalidRequestPayloadError struct{}

func (e *InvalidRequestPayloadError) Error() string {
	return "invalid request payload: expected a JSON object"
}

func (e *InvalidRequestPayloadError) schemaError() {}

// MissingParametersError reports every required parameter that is absent
// or null, so a caller can fix all problems from one error.
type MissingParametersError struct {
	Names []string
}

func NewMissingParametersError(names []string) *MissingParametersError {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return &MissingParametersError{Names: sorted}
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("missing required parameters: %s", strings.Join(e.Names, ", "))
}

func (e *MissingParametersError) schemaError() {}

// ConversionError reports the first field whose value could not be
// converted to its declared type.
type ConversionError struct {
	Field string
	Value interface{}
	Type  ParamType
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("parameter %q value %v is not a valid %s: %v", e.Field, e.Value, e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *ConversionError) schemaError() {}
