package types

import (
	"context"
	"encoding/json"
)

// ToolTypeFunction is the only descriptor kind produced for plugins.
const ToolTypeFunction = "function"

// ToolSchema defines a tool's interface for LLM function calling.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// FunctionTool is the function-calling descriptor handed to a language model.
type FunctionTool struct {
	Type     string     `json:"type"`
	Function ToolSchema `json:"function"`
}

// NewFunctionTool wraps a schema into a function descriptor.
func NewFunctionTool(name, description string, parameters json.RawMessage) FunctionTool {
	return FunctionTool{
		Type: ToolTypeFunction,
		Function: ToolSchema{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ToolResponse is the outcome of a dispatched plugin operation.
type ToolResponse struct {
	StatusCode int               `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Data       json.RawMessage   `json:"data,omitempty"`
}

// ToolFunc invokes one plugin operation with model-supplied arguments.
// Arguments that name declared operation parameters are routed to their
// declared location; anything left over becomes the JSON request body. When
// the request body is not an object it is passed whole as the "body"
// argument. GET and HEAD operations send no body.
type ToolFunc func(ctx context.Context, args map[string]any) (*ToolResponse, error)

// ToolSet is the merged view of several plugins' tools.
type ToolSet struct {
	Tools []FunctionTool
	Funcs map[string]ToolFunc
}

// NewToolSet returns an empty, non-nil ToolSet.
func NewToolSet() ToolSet {
	return ToolSet{
		Tools: make([]FunctionTool, 0),
		Funcs: make(map[string]ToolFunc),
	}
}

// Names returns the dispatcher names in descriptor order.
func (s ToolSet) Names() []string {
	names := make([]string, 0, len(s.Tools))
	for _, t := range s.Tools {
		names = append(names, t.Function.Name)
	}
	return names
}
