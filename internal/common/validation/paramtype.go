// Package validation implements the typed request-parameter system used
// by the query resources: a closed set of parameter types, named
// parameter declarations, and schema-driven payload validation that
// converts raw JSON values to their canonical in-memory form.
package validation

import (
	"context"
	"fmt"
	"time"
)

// UserValidator is the external identity-validation collaborator. It
// resolves a username to its canonical form, failing if the user is
// unknown or the caller is not authorized to query that user's data.
type UserValidator interface {
	ValidateUser(ctx context.Context, username string) (string, error)
}

// ParamType enumerates the supported parameter types.
type ParamType int

const (
	TypeString ParamType = iota
	TypeJSON
	TypeDate
	TypeUser
)

// String returns the canonical display name used in error messages.
func (t ParamType) String() string {
	switch t {
	case TypeString:
		return "STRING"
	case TypeJSON:
		return "JSON"
	case TypeDate:
		return "DATE"
	case TypeUser:
		return "USER"
	default:
		return fmt.Sprintf("ParamType(%d)", int(t))
	}
}

// convertFunc converts a raw payload value to its canonical form.
type convertFunc func(ctx context.Context, value interface{}, users UserValidator) (interface{}, error)

// converters is the static dispatch table mapping each type tag to its
// conversion function. Adding a type means adding a tag and one entry.
var converters = map[ParamType]convertFunc{
	TypeString: convertString,
	TypeJSON:   convertJSON,
	TypeDate:   convertDate,
	TypeUser:   convertUser,
}

// Convert converts value to the canonical form for the type. Conversion
// functions accept their own output, so converting an already-converted
// value is a no-op.
func (t ParamType) Convert(ctx context.Context, value interface{}, users UserValidator) (interface{}, error) {
	fn, ok := converters[t]
	if !ok {
		return nil, fmt.Errorf("no converter registered for %s", t)
	}
	return fn(ctx, value, users)
}

func convertString(_ context.Context, value interface{}, _ UserValidator) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value is not a string")
	}
	return s, nil
}

// convertJSON requires the value to already be structured data (an
// object or array); a string that happens to contain encoded JSON is
// rejected rather than decoded.
func convertJSON(_ context.Context, value interface{}, _ UserValidator) (interface{}, error) {
	switch value.(type) {
	case map[string]interface{}, []interface{}:
		return value, nil
	default:
		return nil, fmt.Errorf("value is not a JSON object or array")
	}
}

// dateLayouts are the accepted ISO-8601 date and date-time shapes,
// probed in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date or date-time string, rejecting
// syntactically invalid calendar values.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid date/time string", s)
}

func convertDate(_ context.Context, value interface{}, _ UserValidator) (interface{}, error) {
	if ts, ok := value.(time.Time); ok {
		return ts, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value is not a date string")
	}
	ts, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func convertUser(ctx context.Context, value interface{}, users UserValidator) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value is not a username string")
	}
	if users == nil {
		return nil, fmt.Errorf("no user validator configured")
	}
	canonical, err := users.ValidateUser(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", s, err)
	}
	return canonical, nil
}
