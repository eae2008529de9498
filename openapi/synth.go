package openapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kilnhq/kiln/httproute"
	"github.com/kilnhq/kiln/pathmatch"
	"github.com/kilnhq/kiln/schema"
)

// Config carries the document-level metadata the synthesizer can't
// derive from route definitions.
type Config struct {
	Title       string
	Version     string
	Description string
	Servers     []Server
}

// Synthesize projects every non-excluded route in reg into an OpenAPI
// 3.1 Document, using adapter to describe each route's schema types.
func Synthesize(reg *httproute.Registry, adapter *schema.Adapter, cfg Config) *Document {
	doc := &Document{
		OpenAPI: "3.1.0",
		Info:    Info{Title: cfg.Title, Version: cfg.Version, Description: cfg.Description},
		Servers: cfg.Servers,
		Paths:   map[string]*PathItem{},
		Components: Components{
			Schemas: map[string]*schema.OpenAPISchema{},
		},
	}

	seenTags := map[string]bool{}

	for _, def := range reg.GetAll() {
		if def.ExcludeFromDocs {
			continue
		}
		op := buildOperation(def, adapter, doc)
		openAPIPath := toOpenAPIPath(def.Path)
		item := doc.Paths[openAPIPath]
		if item == nil {
			item = &PathItem{}
			doc.Paths[openAPIPath] = item
		}
		attachOperation(item, def.Method, op)

		for _, tag := range def.Metadata.Tags {
			if !seenTags[tag] {
				seenTags[tag] = true
				doc.Tags = append(doc.Tags, Tag{Name: tag})
			}
		}
	}

	return doc
}

func buildOperation(def *httproute.Definition, adapter *schema.Adapter, doc *Document) *Operation {
	op := &Operation{
		OperationID: def.Metadata.OperationID,
		Summary:     def.Metadata.Summary,
		Description: def.Metadata.Description,
		Tags:        def.Metadata.Tags,
		Deprecated:  def.Metadata.Deprecated,
		Responses:   map[string]Response{},
	}

	for _, name := range pathParamNames(def.Path) {
		op.Parameters = append(op.Parameters, Parameter{Name: name, In: "path", Required: true, Schema: &schema.OpenAPISchema{Type: "string"}})
	}

	if def.QueryType != nil {
		s, err := adapter.DescribeOpenAPI(def.QueryType)
		if err == nil {
			for name, prop := range s.Properties {
				required := contains(s.Required, name)
				op.Parameters = append(op.Parameters, Parameter{Name: name, In: "query", Required: required, Schema: prop})
			}
		}
	}

	if def.BodyType != nil {
		if s, err := adapter.DescribeOpenAPI(def.BodyType); err == nil {
			op.RequestBody = &RequestBody{
				Required: true,
				Content:  map[string]MediaType{"application/json": {Schema: s}},
			}
		}
	}

	for _, sec := range def.Security {
		m := map[string][]string{}
		for scheme, scopes := range sec {
			m[scheme] = scopes
		}
		op.Security = append(op.Security, m)
	}

	if def.Success != nil {
		op.Responses[strconv.Itoa(def.Success.Status)] = buildResponse(def.Success, adapter)
	}
	for status, spec := range def.Errors {
		op.Responses[strconv.Itoa(status)] = buildResponse(spec, adapter)
	}

	addDefaultResponse := func(status int) {
		key := strconv.Itoa(status)
		if _, ok := op.Responses[key]; !ok {
			op.Responses[key] = Response{Description: fmt.Sprintf("%d response", status)}
		}
	}
	// Per spec §4.11: 400 only when there's something to validate, 401
	// only when the operation declares a security requirement, 500
	// unconditionally (a handler can always fail).
	if def.QueryType != nil || def.BodyType != nil {
		addDefaultResponse(400)
	}
	if len(def.Security) > 0 {
		addDefaultResponse(401)
	}
	addDefaultResponse(500)

	return op
}

func buildResponse(spec *httproute.ResponseSpec, adapter *schema.Adapter) Response {
	r := Response{Description: spec.Description}
	if spec.SchemaType != nil {
		if s, err := adapter.DescribeOpenAPI(spec.SchemaType); err == nil {
			r.Content = map[string]MediaType{"application/json": {Schema: s}}
		}
	}
	return r
}

func attachOperation(item *PathItem, method httproute.Method, op *Operation) {
	switch method {
	case httproute.GET:
		item.Get = op
	case httproute.POST:
		item.Post = op
	case httproute.PUT:
		item.Put = op
	case httproute.PATCH:
		item.Patch = op
	case httproute.DELETE:
		item.Delete = op
	case httproute.HEAD:
		item.Head = op
	}
}

// toOpenAPIPath rewrites `:name`/`:name*` segments into OpenAPI's
// `{name}` placeholder syntax.
func toOpenAPIPath(path string) string {
	segments := pathmatch.Split(path)
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			segments[i] = "{" + strings.TrimSuffix(strings.TrimPrefix(seg, ":"), "*") + "}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func pathParamNames(path string) []string {
	var names []string
	for _, seg := range pathmatch.Split(path) {
		if strings.HasPrefix(seg, ":") {
			names = append(names, strings.TrimSuffix(strings.TrimPrefix(seg, ":"), "*"))
		}
	}
	return names
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
