package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/BaSui01/plugstore/types"
)

// schemaConverter inlines resolved schema references into plain JSON Schema.
// Recursive references are cut at the second visit of the same schema.
type schemaConverter struct {
	visiting map[*openapi3.Schema]bool
}

func newSchemaConverter() *schemaConverter {
	return &schemaConverter{visiting: make(map[*openapi3.Schema]bool)}
}

func (c *schemaConverter) convert(ref *openapi3.SchemaRef) *types.JSONSchema {
	if ref == nil || ref.Value == nil {
		return &types.JSONSchema{}
	}
	s := ref.Value
	if c.visiting[s] {
		return &types.JSONSchema{Type: schemaType(s), Description: s.Description}
	}
	c.visiting[s] = true
	defer delete(c.visiting, s)

	out := &types.JSONSchema{
		Title:       s.Title,
		Description: s.Description,
		Type:        schemaType(s),
		Nullable:    s.Nullable,
		Format:      s.Format,
		Pattern:     s.Pattern,
		Enum:        s.Enum,
		Default:     s.Default,
		Example:     s.Example,
		Minimum:     s.Min,
		Maximum:     s.Max,
		MaxLength:   s.MaxLength,
		MaxItems:    s.MaxItems,
	}
	if s.MinLength > 0 {
		v := s.MinLength
		out.MinLength = &v
	}
	if s.MinItems > 0 {
		v := s.MinItems
		out.MinItems = &v
	}

	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*types.JSONSchema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = c.convert(prop)
		}
	}
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}
	if s.Items != nil {
		out.Items = c.convert(s.Items)
	}
	switch ap := s.AdditionalProperties; {
	case ap.Schema != nil:
		out.AdditionalProperties = c.convert(ap.Schema)
	case ap.Has != nil:
		out.AdditionalProperties = *ap.Has
	}

	out.AllOf = c.convertAll(s.AllOf)
	out.AnyOf = c.convertAll(s.AnyOf)
	out.OneOf = c.convertAll(s.OneOf)
	return out
}

func (c *schemaConverter) convertAll(refs openapi3.SchemaRefs) []*types.JSONSchema {
	if len(refs) == 0 {
		return nil
	}
	out := make([]*types.JSONSchema, 0, len(refs))
	for _, ref := range refs {
		out = append(out, c.convert(ref))
	}
	return out
}

// schemaType picks the first non-null type of a possibly multi-typed schema.
func schemaType(s *openapi3.Schema) types.SchemaType {
	if s == nil || s.Type == nil {
		return ""
	}
	list := s.Type.Slice()
	for _, t := range list {
		if t != openapi3.TypeNull {
			return types.SchemaType(t)
		}
	}
	if len(list) > 0 {
		return types.SchemaType(list[0])
	}
	return ""
}

// bodyArgument is the property a non-object JSON request body is passed under.
const bodyArgument = "body"

// requestBodySchema converts the JSON request body schema of op, if any.
func requestBodySchema(op Operation) *types.JSONSchema {
	if op.RequestBody == nil {
		return nil
	}
	media := op.RequestBody.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return newSchemaConverter().convert(media.Schema)
}

// wrapsBody reports whether body cannot be the parameter object itself.
func wrapsBody(body *types.JSONSchema) bool {
	return body != nil && body.Type != "" && body.Type != types.SchemaTypeObject
}

// parameterSchema builds the function-calling parameter object for op: the
// JSON request body schema when there is one, otherwise an empty object, with
// query and path parameters merged in as top-level properties. A body that is
// not an object (an array, say) becomes the bodyArgument property.
func parameterSchema(op Operation) *types.JSONSchema {
	params := requestBodySchema(op)
	switch {
	case params == nil:
		params = types.NewObjectSchema()
	case wrapsBody(params):
		body := params
		params = types.NewObjectSchema()
		params.AddProperty(bodyArgument, body)
		if op.RequestBody.Required {
			params.AddRequired(bodyArgument)
		}
	}
	if params.Required == nil {
		params.Required = []string{}
	}

	for _, p := range op.Parameters {
		if p.In != openapi3.ParameterInQuery && p.In != openapi3.ParameterInPath {
			continue
		}
		prop := &types.JSONSchema{Description: p.Description}
		if p.Schema != nil && p.Schema.Value != nil {
			prop.Type = schemaType(p.Schema.Value)
			prop.Enum = p.Schema.Value.Enum
			if prop.Type == types.SchemaTypeArray && p.Schema.Value.Items != nil {
				prop.Items = newSchemaConverter().convert(p.Schema.Value.Items)
			}
		}
		params.AddProperty(p.Name, prop)
		if p.Required {
			params.AddRequired(p.Name)
		}
	}
	return params
}
