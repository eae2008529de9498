// Package openapi defines an OpenAPI 3.1 document model (grounded on the
// teacher's own openapi.go types, trimmed to what the synthesizer
// actually emits) and the synthesizer that projects registered HTTP
// routes into one (spec §4.11).
package openapi

import "github.com/kilnhq/kiln/schema"

// Document is the root of an OpenAPI 3.1 document.
type Document struct {
	OpenAPI    string                `json:"openapi"`
	Info       Info                  `json:"info"`
	Servers    []Server              `json:"servers,omitempty"`
	Paths      map[string]*PathItem  `json:"paths"`
	Components Components            `json:"components"`
	Tags       []Tag                 `json:"tags,omitempty"`
}

// Info carries document-level metadata.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Server is one entry of the document's `servers` array.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Tag groups operations under a named section.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Components holds reusable schema objects, keyed by name and referenced
// via `#/components/schemas/<name>`.
type Components struct {
	Schemas map[string]*schema.OpenAPISchema `json:"schemas"`
}

// PathItem groups the operations available at one path.
type PathItem struct {
	Get     *Operation `json:"get,omitempty"`
	Post    *Operation `json:"post,omitempty"`
	Put     *Operation `json:"put,omitempty"`
	Patch   *Operation `json:"patch,omitempty"`
	Delete  *Operation `json:"delete,omitempty"`
	Head    *Operation `json:"head,omitempty"`
}

// Operation describes one HTTP operation.
type Operation struct {
	OperationID string                `json:"operationId,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Description string                `json:"description,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Deprecated  bool                  `json:"deprecated,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty"`
	Responses   map[string]Response   `json:"responses"`
	Security    []map[string][]string `json:"security,omitempty"`
}

// Parameter describes a path or query parameter.
type Parameter struct {
	Name     string                  `json:"name"`
	In       string                  `json:"in"`
	Required bool                    `json:"required"`
	Schema   *schema.OpenAPISchema   `json:"schema,omitempty"`
}

// RequestBody describes an operation's request body.
type RequestBody struct {
	Required bool                          `json:"required"`
	Content  map[string]MediaType          `json:"content"`
}

// MediaType associates a schema with a media type key ("application/json").
type MediaType struct {
	Schema *schema.OpenAPISchema `json:"schema,omitempty"`
}

// Response describes one status code's response.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}
