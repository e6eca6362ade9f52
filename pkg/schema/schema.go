// Package schema validates tool input against JSON Schema documents.
//
// Schemas are runtime artifacts: tools either declare them by hand or derive
// them from their Go input structs with Reflect. Validation never panics and
// never returns an error from Check; malformed input simply fails.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schema is the JSON Schema document type accepted by this package.
type Schema = jsonschema.Schema

// DatePattern constrains a string to the YYYY-MM-DD form.
const DatePattern = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`

// ErrInvalidSchema reports a schema that cannot be resolved.
var ErrInvalidSchema = errors.New("invalid schema")

// Validator checks values against one resolved schema. A Validator is safe
// for concurrent use.
type Validator struct {
	resolved *jsonschema.Resolved
}

// Compile resolves s into a Validator. A nil schema accepts every value.
func Compile(s *Schema) (*Validator, error) {
	if s == nil {
		return &Validator{}, nil
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return &Validator{resolved: resolved}, nil
}

// MustCompile is like Compile but panics on an unresolvable schema. It is
// intended for schemas declared as package-level values.
func MustCompile(s *Schema) *Validator {
	v, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate reports why value does not conform, or nil when it does.
func (v *Validator) Validate(value any) (err error) {
	if v == nil || v.resolved == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validate: %v", r)
		}
	}()

	instance, err := normalize(value)
	if err != nil {
		return err
	}
	return v.resolved.Validate(instance)
}

// Check reports whether value conforms to the schema.
func (v *Validator) Check(value any) bool {
	return v.Validate(value) == nil
}

// Check compiles s and validates value against it in one step. An
// unresolvable schema rejects every value.
func Check(s *Schema, value any) bool {
	v, err := Compile(s)
	if err != nil {
		return false
	}
	return v.Check(value)
}

// normalize turns Go typed values into the generic shapes produced by
// encoding/json so maps built in code validate the same as decoded input.
func normalize(value any) (any, error) {
	if isGeneric(value) {
		return value, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode instance: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode instance: %w", err)
	}
	return out, nil
}

func isGeneric(value any) bool {
	switch t := value.(type) {
	case nil, bool, string, float64:
		return true
	case map[string]any:
		for _, v := range t {
			if !isGeneric(v) {
				return false
			}
		}
		return true
	case []any:
		for _, v := range t {
			if !isGeneric(v) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of s.
func Clone(s *Schema) *Schema {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var out Schema
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}
