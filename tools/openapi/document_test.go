package openapi

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseDocument_OpenAPI3YAML(t *testing.T) {
	doc, err := ParseDocument([]byte(petstoreYAML))
	require.NoError(t, err)

	assert.Equal(t, "Petstore", doc.Title)
	assert.Equal(t, "2.1.0", doc.Version)
	assert.Equal(t, "https://eu.pets.example.com/v1", doc.ServerURL)
	require.NotNil(t, doc.Spec())

	names := make([]string, 0, len(doc.Operations))
	for _, op := range doc.Operations {
		names = append(names, op.Name)
	}
	assert.Equal(t, []string{"listPets", "createPet", "GET_pets_petId", "DELETE_pets_petId"}, names)
}

func TestParseDocument_MergesPathLevelParameters(t *testing.T) {
	doc, err := ParseDocument([]byte(petstoreYAML))
	require.NoError(t, err)

	show := doc.Operations[2]
	require.Len(t, show.Parameters, 2)
	assert.Equal(t, "petId", show.Parameters[0].Name)
	assert.Equal(t, "X-Trace", show.Parameters[1].Name)
	assert.Equal(t, "Show a pet", show.ToolDescription())
	assert.Equal(t, "Create a pet", doc.Operations[1].ToolDescription())
}

func TestParseDocument_Swagger2(t *testing.T) {
	doc, err := ParseDocument([]byte(swaggerJSON))
	require.NoError(t, err)

	assert.Equal(t, "Legacy", doc.Title)
	assert.Equal(t, "https://legacy.example.com/api", doc.ServerURL)
	require.Len(t, doc.Operations, 1)

	op := doc.Operations[0]
	assert.Equal(t, "addItem", op.Name)
	assert.Equal(t, "POST", op.Method)
	require.NotNil(t, op.RequestBody)
	assert.NotNil(t, op.RequestBody.Content.Get("application/json"))
}

func TestParseDocument_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t"},
		{"no version", `{"info": {"title": "x"}}`},
		{"not yaml", "::: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.content))
			assert.Error(t, err)
			assert.Nil(t, doc)
		})
	}
}

func TestParseDocument_ErrorsWrapUnsupported(t *testing.T) {
	_, err := ParseDocument(nil)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestOperationName(t *testing.T) {
	assert.Equal(t, "getThing", operationName("get", "/things/{id}", "getThing"))
	assert.Equal(t, "GET_things_id", operationName("get", "/things/{id}", ""))
	assert.Equal(t, "POST_", operationName("post", "/", ""))
	assert.Equal(t, "PUT_a-b_c", operationName("PUT", "/a-b/c", ""))
}

// The number of descriptors always equals the number of declared operations.
func TestGenerate_DescriptorCountMatchesOperations(t *testing.T) {
	gen := NewGenerator(DefaultConfig(), nil)
	methods := []string{"get", "put", "post", "delete", "patch", "head", "options", "trace"}

	rapid.Check(t, func(rt *rapid.T) {
		pathCount := rapid.IntRange(0, 6).Draw(rt, "paths")
		paths := make(map[string]map[string]any, pathCount)
		declared := 0
		for i := 0; i < pathCount; i++ {
			ops := make(map[string]any)
			for _, m := range methods {
				if rapid.Bool().Draw(rt, fmt.Sprintf("p%d-%s", i, m)) {
					op := map[string]any{"responses": map[string]any{"200": map[string]any{"description": "ok"}}}
					if rapid.Bool().Draw(rt, fmt.Sprintf("p%d-%s-id", i, m)) {
						op["operationId"] = fmt.Sprintf("op_%d_%s", i, m)
					}
					ops[m] = op
					declared++
				}
			}
			paths[fmt.Sprintf("/r%d/{id}", i)] = ops
		}
		doc := map[string]any{
			"openapi": "3.0.0",
			"info":    map[string]any{"title": "gen", "version": "1"},
			"servers": []any{map[string]any{"url": "https://example.com"}},
			"paths":   paths,
		}
		data, err := json.Marshal(doc)
		require.NoError(rt, err)

		entry := gen.Generate(pluginWithContent(string(data)))
		require.NoError(rt, entry.Err)
		assert.Equal(rt, declared, entry.Length)
		assert.Len(rt, entry.Tools, declared)
	})
}
