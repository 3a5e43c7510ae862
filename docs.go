package apidec

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/zoobzio/capitan"
)

// GenerateSpec walks the route tree and derives the OpenAPI document from
// the adapter metadata every endpoint carries. Given the same tree and
// configuration the output is value-identical on every call, which is what
// the schema-file drift check relies on.
func GenerateSpec(routes *Routes, cfg *Config) (*OpenAPI, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if len(cfg.IncludeTags) > 0 && len(cfg.ExcludeTags) > 0 {
		return nil, fmt.Errorf("IncludeTags and ExcludeTags are mutually exclusive")
	}

	doc := &OpenAPI{
		OpenAPI: "3.1.0",
		Info: Info{
			Title:   cfg.SchemaTitle,
			Version: cfg.SchemaVersion,
		},
		Paths: map[string]PathItem{},
	}
	if routes == nil {
		return doc, nil
	}

	excluded := make(map[string]bool, len(cfg.ExcludeNamespaces))
	for _, ns := range cfg.ExcludeNamespaces {
		excluded[ns] = true
	}

	schemas := map[string]*Schema{}
	ctx := context.Background()

	for _, r := range resolveRoutes(routes, excluded) {
		switch r.kind {
		case routeHTTP:
			capitan.Debug(ctx, RouteSkipped,
				PathKey.Field(r.url),
				ReasonKey.Field("no endpoint metadata"),
			)
			continue
		case routeRegex:
			capitan.Debug(ctx, RouteSkipped,
				PathKey.Field(r.url),
				ReasonKey.Field("regex pattern"),
			)
			continue
		}

		if group, ok := r.endpoint.(methodGroup); ok {
			children := group.children()
			methods := make([]string, 0, len(children))
			for method := range children {
				methods = append(methods, method)
			}
			sort.Strings(methods)
			for _, method := range methods {
				spec := children[method].Spec()
				opID := strings.ToLower(method) + "-" + spec.Name
				if err := addOperation(doc, schemas, cfg, children[method], r, opID); err != nil {
					return nil, err
				}
			}
			continue
		}

		if err := addOperation(doc, schemas, cfg, r.endpoint, r, r.endpoint.Spec().Name); err != nil {
			return nil, err
		}
	}

	if len(schemas) > 0 {
		doc.Components = &Components{Schemas: schemas}
	}

	capitan.Emit(ctx, SchemaGenerated,
		PathCountKey.Field(len(doc.Paths)),
		SchemaCountKey.Field(len(schemas)),
	)
	return doc, nil
}

// addOperation builds the operation for one (endpoint, URL) pair and merges
// it into the document's path item for that URL.
func addOperation(doc *OpenAPI, schemas map[string]*Schema, cfg *Config, endpoint Endpoint, r resolvedRoute, opID string) error {
	carrier, ok := endpoint.(metadataCarrier)
	if !ok {
		capitan.Debug(context.Background(), RouteSkipped,
			PathKey.Field(r.url),
			ReasonKey.Field("no adapter metadata"),
		)
		return nil
	}

	spec := endpoint.Spec()
	if !tagsIncluded(spec.Tags, cfg) {
		return nil
	}

	meta := carrier.metadata()
	url, pathParams := openapiPath(r.url)

	op := &Operation{
		Tags:        operationTags(spec.Tags, r.namespace),
		Summary:     spec.Summary,
		Description: spec.Description,
		OperationID: opID,
		Parameters:  pathParams,
		Responses:   map[string]ResponseSpec{},
	}

	for _, f := range meta.query.fields {
		schema := scalarSchema(scalarOf(f.shape))
		if f.hasDef {
			schema.Default = f.def.Interface()
		}
		op.Parameters = append(op.Parameters, Parameter{
			Name:     f.alias,
			In:       "query",
			Required: f.required,
			Schema:   schema,
		})
	}

	if meta.body != nil {
		bodySchema := schemaForType(meta.body.elem, schemas)
		if meta.body.isList {
			bodySchema = &Schema{Type: "array", Items: bodySchema}
		}
		op.RequestBody = &RequestBody{
			Required: true,
			Content:  map[string]MediaType{"application/json": {Schema: bodySchema}},
		}
	}

	status := fmt.Sprintf("%d", spec.ResponseStatus)
	if meta.out != nil {
		op.Responses[status] = ResponseSpec{
			Description: "Successful response",
			Content: map[string]MediaType{
				"application/json": {Schema: schemaForType(meta.out, schemas)},
			},
		}
	} else {
		op.Responses["200"] = ResponseSpec{Description: "Successful response"}
	}

	item := doc.Paths[url]
	if !item.set(spec.Method, op) {
		return fmt.Errorf("endpoint %q: cannot document method %q", spec.Name, spec.Method)
	}
	doc.Paths[url] = item
	return nil
}

// tagsIncluded applies the configured allow/deny lists. An exclude list
// never drops untagged operations; an include list keeps only operations
// with an intersecting tag.
func tagsIncluded(tags []string, cfg *Config) bool {
	if len(cfg.IncludeTags) > 0 {
		return tagsIntersect(tags, cfg.IncludeTags)
	}
	if len(cfg.ExcludeTags) > 0 {
		return !tagsIntersect(tags, cfg.ExcludeTags)
	}
	return true
}

func tagsIntersect(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// operationTags is the endpoint's declared tags plus the owning namespace,
// used for grouping in client-code generation.
func operationTags(tags []string, namespace string) []string {
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	if namespace != "" {
		out = append(out, namespace)
	}
	return out
}

// openapiPath converts placeholder segments to {name} templates, producing
// one typed path parameter per placeholder.
func openapiPath(url string) (string, []Parameter) {
	var params []Parameter
	converted := placeholderPattern.ReplaceAllStringFunc(url, func(m string) string {
		parts := placeholderPattern.FindStringSubmatch(m)
		kind, name := parts[1], parts[2]

		schema := &Schema{Type: "string"}
		if kind == "int" {
			schema = &Schema{Type: "integer"}
		}
		params = append(params, Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   schema,
		})
		return "{" + name + "}"
	})
	return converted, params
}

func scalarSchema(kind scalarKind) *Schema {
	switch kind {
	case scalarInt:
		return &Schema{Type: "integer"}
	case scalarFloat:
		return &Schema{Type: "number"}
	case scalarBool:
		return &Schema{Type: "boolean"}
	case scalarDate:
		return &Schema{Type: "string", Format: "date"}
	default:
		return &Schema{Type: "string"}
	}
}

// schemaForType derives the JSON schema for t. Named struct types are
// hoisted into the shared component map and referenced by pointer; the
// traversal mirrors the shapes the adapters accept, so the documented
// schema always matches what the runtime actually decodes and encodes.
func schemaForType(t reflect.Type, schemas map[string]*Schema) *Schema {
	switch {
	case t == timeType:
		return &Schema{Type: "string", Format: "date-time"}
	case t.Kind() == reflect.Pointer:
		inner := schemaForType(t.Elem(), schemas)
		return &Schema{OneOf: []*Schema{inner, {Type: "null"}}}
	case isListType(t):
		return &Schema{Type: "array", Items: schemaForType(t.Elem(), schemas)}
	case t.Kind() == reflect.Slice: // []byte
		return &Schema{Type: "string"}
	case t.Kind() == reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: schemaForType(t.Elem(), schemas)}
	case t.Kind() == reflect.Struct:
		return structSchema(t, schemas)
	case t.Kind() == reflect.Interface:
		return &Schema{}
	}

	if kind, ok := classifyScalar(t); ok {
		return scalarSchema(kind)
	}
	return &Schema{}
}

// structSchema builds the object schema for a struct type. Named types are
// registered once under components.schemas and referenced thereafter;
// reserving the slot before recursing keeps self-referential types from
// looping.
func structSchema(t reflect.Type, schemas map[string]*Schema) *Schema {
	name := t.Name()
	if name != "" {
		ref := &Schema{Ref: "#/components/schemas/" + name}
		if _, ok := schemas[name]; ok {
			return ref
		}
		schemas[name] = &Schema{}
		*schemas[name] = *objectSchema(t, schemas)
		return ref
	}
	return objectSchema(t, schemas)
}

func objectSchema(t reflect.Type, schemas map[string]*Schema) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		wireName := exposedFieldName(field)
		if wireName == "" {
			continue
		}
		schema.Properties[wireName] = schemaForType(field.Type, schemas)
		if field.Type.Kind() != reflect.Pointer {
			schema.Required = append(schema.Required, wireName)
		}
	}
	sort.Strings(schema.Required)
	return schema
}
