package types

import (
	"encoding/json"
	"fmt"
)

// SchemaType represents JSON Schema types.
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeInteger SchemaType = "integer"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeNull    SchemaType = "null"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// JSONSchema represents a JSON Schema definition.
type JSONSchema struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type     SchemaType `json:"type,omitempty"`
	Nullable bool       `json:"nullable,omitempty"`

	// Object properties. AdditionalProperties holds either a bool or a *JSONSchema.
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties any                    `json:"additionalProperties,omitempty"`

	// Array items
	Items    *JSONSchema `json:"items,omitempty"`
	MinItems *uint64     `json:"minItems,omitempty"`
	MaxItems *uint64     `json:"maxItems,omitempty"`

	// Composition
	AllOf []*JSONSchema `json:"allOf,omitempty"`
	AnyOf []*JSONSchema `json:"anyOf,omitempty"`
	OneOf []*JSONSchema `json:"oneOf,omitempty"`

	Enum []any `json:"enum,omitempty"`

	// String constraints
	MinLength *uint64 `json:"minLength,omitempty"`
	MaxLength *uint64 `json:"maxLength,omitempty"`
	Pattern   string  `json:"pattern,omitempty"`
	Format    string  `json:"format,omitempty"`

	// Numeric constraints
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	Default any `json:"default,omitempty"`
	Example any `json:"example,omitempty"`
}

// NewObjectSchema creates a new object schema.
func NewObjectSchema() *JSONSchema {
	return &JSONSchema{
		Type:       SchemaTypeObject,
		Properties: make(map[string]*JSONSchema),
	}
}

// AddProperty adds a property to an object schema.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired adds required field names, skipping ones already listed.
func (s *JSONSchema) AddRequired(names ...string) *JSONSchema {
	for _, name := range names {
		if !s.IsRequired(name) {
			s.Required = append(s.Required, name)
		}
	}
	return s
}

// IsRequired reports whether name is listed as required.
func (s *JSONSchema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// ToJSON serializes the schema to JSON.
func (s *JSONSchema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// parameterSchema shadows Properties and Required so that empty values are
// still emitted.
type parameterSchema struct {
	*JSONSchema
	Properties map[string]*JSONSchema `json:"properties"`
	Required   []string               `json:"required"`
}

// ParametersJSON serializes the schema as a function-calling parameter
// object. The "properties" and "required" keys are always present.
func (s *JSONSchema) ParametersJSON() (json.RawMessage, error) {
	props := s.Properties
	if props == nil {
		props = map[string]*JSONSchema{}
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	data, err := json.Marshal(parameterSchema{JSONSchema: s, Properties: props, Required: required})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameter schema: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a schema from JSON.
func FromJSON(data []byte) (*JSONSchema, error) {
	var schema JSONSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON schema: %w", err)
	}
	return &schema, nil
}
