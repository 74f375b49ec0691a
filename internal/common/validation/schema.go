package validation

import (
	"context"
	"fmt"
)

// Parameter declares one named, typed, optionally-required payload field.
// Parameters are constructed once per resource and never mutated.
type Parameter struct {
	Name     string
	Type     ParamType
	Required bool
}

// Param constructs an optional parameter declaration.
func Param(name string, ptype ParamType) Parameter {
	return Parameter{Name: name, Type: ptype}
}

// RequiredParam constructs a required parameter declaration.
func RequiredParam(name string, ptype ParamType) Parameter {
	return Parameter{Name: name, Type: ptype, Required: true}
}

// Invalid reports whether the payload violates this parameter's
// requirement: a required parameter is invalid when its key is absent
// or its value is null. Optional parameters are never invalid.
func (p Parameter) Invalid(payload map[string]interface{}) bool {
	if !p.Required {
		return false
	}
	v, ok := payload[p.Name]
	return !ok || v == nil
}

// Schema is an ordered collection of uniquely named Parameters bound to
// the identity-validation collaborator needed by USER conversions.
// Schemas are immutable after construction and safe for concurrent use.
type Schema struct {
	order  []Parameter
	byName map[string]Parameter
	users  UserValidator
}

// NewSchema builds a Schema. Duplicate or empty parameter names are
// construction-time programming errors and panic.
func NewSchema(users UserValidator, params ...Parameter) *Schema {
	byName := make(map[string]Parameter, len(params))
	for _, p := range params {
		if p.Name == "" {
			panic("validation: parameter with empty name")
		}
		if _, dup := byName[p.Name]; dup {
			panic(fmt.Sprintf("validation: duplicate parameter %q", p.Name))
		}
		byName[p.Name] = p
	}
	return &Schema{order: params, byName: byName, users: users}
}

// Get returns the declaration for name, if present.
func (s *Schema) Get(name string) (Parameter, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Parameters returns the declarations in declaration order.
func (s *Schema) Parameters() []Parameter {
	return s.order
}

// Validate checks payload against the schema and converts each present
// non-null declared field to its canonical form in place.
//
// Required-parameter violations are batched into one error; conversion
// stops at the first failing field, since later conversions after one
// malformed value tend to produce misleading secondary errors. Fields
// not declared in the schema are ignored.
func (s *Schema) Validate(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	if payload == nil {
		return nil, &InvalidRequestPayloadError{}
	}

	var missing []string
	for _, p := range s.order {
		if p.Invalid(payload) {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return nil, NewMissingParametersError(missing)
	}

	for _, p := range s.order {
		raw, ok := payload[p.Name]
		if !ok || raw == nil {
			continue
		}
		converted, err := p.Type.Convert(ctx, raw, s.users)
		if err != nil {
			return nil, &ConversionError{Field: p.Name, Value: raw, Type: p.Type, Err: err}
		}
		payload[p.Name] = converted
	}

	return payload, nil
}
