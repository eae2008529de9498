// Package clienttypes implements the WebSocket Client Type Generator
// (spec §4.12): it walks a registry of WebSocket routes and renders a
// language-neutral (TypeScript-flavored) type descriptor per route, so a
// frontend client can be typed against the server's message contract
// without sharing Go code.
package clienttypes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilnhq/kiln/pathmatch"
	"github.com/kilnhq/kiln/schema"
	"github.com/kilnhq/kiln/wsroute"
)

// Generate renders one namespaced TypeScript block per registered
// WebSocket route: a discriminated union of its client->server message
// types, and the server->client message type (or "unknown" if the route
// never declared one).
func Generate(reg *wsroute.Registry) string {
	defs := reg.GetAll()
	sort.Slice(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })

	var b strings.Builder
	for _, def := range defs {
		b.WriteString(generateNamespace(def))
		b.WriteString("\n")
	}
	return b.String()
}

func generateNamespace(def *wsroute.Definition) string {
	name := namespaceName(def.Path)
	var b strings.Builder
	fmt.Fprintf(&b, "export namespace %s {\n", name)

	if len(def.Handlers) == 0 {
		b.WriteString("  export type ClientMessage = unknown;\n")
	} else {
		variantNames := make([]string, 0, len(def.Handlers))
		for _, h := range def.Handlers {
			variantName := name + "_" + exportName(h.Type)
			variantNames = append(variantNames, variantName)
			spec := schema.FromType(h.Schema)
			fmt.Fprintf(&b, "  export type %s = { type: %q } & %s;\n", variantName, h.Type, schema.SpecToTypeString(spec, 1))
		}
		fmt.Fprintf(&b, "  export type ClientMessage = %s;\n", strings.Join(variantNames, " | "))
	}

	if def.ServerMessageType != nil {
		spec := schema.FromType(def.ServerMessageType)
		fmt.Fprintf(&b, "  export type ServerMessage = %s;\n", schema.SpecToTypeString(spec, 1))
	} else {
		b.WriteString("  export type ServerMessage = unknown;\n")
	}

	b.WriteString("}\n")
	return b.String()
}

// namespaceName derives an UpperCamelCase namespace from a route path,
// dropping parameter/wildcard segments and appending "WebSocket" (spec
// §4.12).
func namespaceName(path string) string {
	segments := pathmatch.Split(path)
	var parts []string
	for _, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			continue
		}
		parts = append(parts, exportName(seg))
	}
	base := strings.Join(parts, "")
	if base == "" {
		base = "Root"
	}
	return base + "WebSocket"
}

// exportName converts a snake_case or kebab-case token into
// UpperCamelCase.
func exportName(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	var b strings.Builder
	for _, f := range fields {
		if f == "" {
			continue
		}
		b.WriteString(strings.ToUpper(f[:1]))
		b.WriteString(f[1:])
	}
	if b.Len() == 0 {
		return "Root"
	}
	return b.String()
}
