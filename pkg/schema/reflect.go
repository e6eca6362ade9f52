package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
)

// Reflect derives the schema for input struct T from its json and jsonschema
// tags. Fields without omitempty are required.
func Reflect[T any]() (*Schema, error) {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	var zero T
	reflected := r.Reflect(&zero)

	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("encode reflected schema: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode reflected schema: %w", err)
	}
	// The reflector stamps a draft URI and a Go-derived id; neither belongs
	// in a tool schema.
	delete(doc, "$schema")
	delete(doc, "$id")

	raw, err = json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	var out Schema
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &out, nil
}

// MustReflect is like Reflect but panics on failure.
func MustReflect[T any]() *Schema {
	s, err := Reflect[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Describe attaches descriptions to top-level properties. Unknown names are
// ignored.
func Describe(s *Schema, descriptions map[string]string) *Schema {
	if s == nil {
		return nil
	}
	for name, text := range descriptions {
		if prop, ok := s.Properties[name]; ok && prop != nil {
			prop.Description = text
		}
	}
	return s
}

// Properties returns the sorted top-level property names declared by s.
func Properties(s *Schema) []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
