package openapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/tidwall/gjson"
	"sigs.k8s.io/yaml"
)

// ErrUnsupportedDocument is returned for content that is neither OpenAPI 3 nor Swagger 2.
var ErrUnsupportedDocument = errors.New("unsupported API description")

// methodOrder is the order operations are emitted within a single path.
var methodOrder = []string{"GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE"}

// Document is a parsed API description.
type Document struct {
	Title      string
	Version    string
	ServerURL  string
	Operations []Operation

	spec *openapi3.T
}

// Operation is one HTTP operation declared by a document.
type Operation struct {
	Name        string
	Method      string
	Path        string
	Summary     string
	Description string
	// Parameters merges path-item and operation level declarations; the
	// operation wins when both declare the same (in, name) pair.
	Parameters  []*openapi3.Parameter
	RequestBody *openapi3.RequestBody
}

// ParseDocument parses YAML or JSON content into a Document. Swagger 2.0
// descriptions are converted to OpenAPI 3 first.
func ParseDocument(content []byte) (*Document, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrUnsupportedDocument)
	}

	raw, err := yaml.YAMLToJSON(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode API description: %w", err)
	}

	var spec *openapi3.T
	switch {
	case gjson.GetBytes(raw, "swagger").Exists():
		var v2 openapi2.T
		if err := json.Unmarshal(raw, &v2); err != nil {
			return nil, fmt.Errorf("failed to parse swagger document: %w", err)
		}
		spec, err = openapi2conv.ToV3(&v2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert swagger document: %w", err)
		}
	case gjson.GetBytes(raw, "openapi").Exists():
		loader := openapi3.NewLoader()
		spec, err = loader.LoadFromData(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse openapi document: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: missing openapi or swagger version field", ErrUnsupportedDocument)
	}

	doc := &Document{
		ServerURL:  serverURL(spec),
		Operations: collectOperations(spec),
		spec:       spec,
	}
	if spec.Info != nil {
		doc.Title = spec.Info.Title
		doc.Version = spec.Info.Version
	}
	return doc, nil
}

// Spec returns the underlying kin-openapi document.
func (d *Document) Spec() *openapi3.T {
	return d.spec
}

// serverURL returns the first declared server with variables set to their defaults.
func serverURL(spec *openapi3.T) string {
	if len(spec.Servers) == 0 || spec.Servers[0] == nil {
		return ""
	}
	server := spec.Servers[0]
	u := server.URL
	for name, v := range server.Variables {
		if v == nil {
			continue
		}
		u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
	}
	return u
}

func collectOperations(spec *openapi3.T) []Operation {
	if spec.Paths == nil {
		return nil
	}
	items := spec.Paths.Map()
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var ops []Operation
	for _, path := range paths {
		item := items[path]
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			ops = append(ops, newOperation(method, path, item, op))
		}
	}
	return ops
}

func newOperation(method, path string, item *openapi3.PathItem, op *openapi3.Operation) Operation {
	o := Operation{
		Name:        operationName(method, path, op.OperationID),
		Method:      method,
		Path:        path,
		Summary:     op.Summary,
		Description: op.Description,
		Parameters:  mergeParameters(item.Parameters, op.Parameters),
	}
	if op.RequestBody != nil {
		o.RequestBody = op.RequestBody.Value
	}
	return o
}

func mergeParameters(shared, own openapi3.Parameters) []*openapi3.Parameter {
	type key struct{ in, name string }
	index := make(map[key]int)
	var out []*openapi3.Parameter
	for _, list := range []openapi3.Parameters{shared, own} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			k := key{ref.Value.In, ref.Value.Name}
			if i, ok := index[k]; ok {
				out[i] = ref.Value
				continue
			}
			index[k] = len(out)
			out = append(out, ref.Value)
		}
	}
	return out
}

var nameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// operationName returns the explicit operation id, or METHOD plus the path
// with separators turned into underscores.
func operationName(method, path, operationID string) string {
	if operationID != "" {
		return operationID
	}
	return nameSanitizer.ReplaceAllString(strings.ToUpper(method)+strings.ReplaceAll(path, "/", "_"), "")
}

// ToolDescription returns the description shown to the model.
func (o Operation) ToolDescription() string {
	if o.Description != "" {
		return o.Description
	}
	return o.Summary
}
