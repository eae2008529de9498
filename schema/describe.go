package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// OpenAPISchema is a JSON-serializable OpenAPI 3.1 schema fragment,
// intentionally narrow — it covers exactly the constructs Spec can
// produce, not the full OpenAPI schema object grammar.
type OpenAPISchema struct {
	Type                 string                    `json:"type,omitempty"`
	Format               string                    `json:"format,omitempty"`
	Properties           map[string]*OpenAPISchema `json:"properties,omitempty"`
	Required             []string                  `json:"required,omitempty"`
	Items                *OpenAPISchema            `json:"items,omitempty"`
	AdditionalProperties *OpenAPISchema            `json:"additionalProperties,omitempty"`
	Enum                 []any                     `json:"enum,omitempty"`
	Const                any                       `json:"const,omitempty"`
	OneOf                []*OpenAPISchema          `json:"oneOf,omitempty"`
	PrefixItems          []*OpenAPISchema          `json:"prefixItems,omitempty"`
	Nullable             bool                      `json:"-"`
}

// DescribeOpenAPI implements Describer for the Reflector, by deriving a
// Spec from t and rendering it.
func (rf *Reflector) DescribeOpenAPI(t reflect.Type) (*OpenAPISchema, error) {
	return SpecToOpenAPI(FromType(t)), nil
}

// DescribeTypeString implements Describer.
func (rf *Reflector) DescribeTypeString(t reflect.Type, indent int) string {
	return SpecToTypeString(FromType(t), indent)
}

// SpecToOpenAPI renders a Spec tree as an OpenAPI 3.1 schema fragment.
// Unknown/unsupported constructs degrade to an empty schema (OpenAPI's
// "anything goes") rather than erroring, per spec §4.2.
func SpecToOpenAPI(s *Spec) *OpenAPISchema {
	if s == nil {
		return &OpenAPISchema{}
	}
	switch s.Kind {
	case KindString:
		return &OpenAPISchema{Type: "string"}
	case KindNumber:
		return &OpenAPISchema{Type: "number"}
	case KindBoolean:
		return &OpenAPISchema{Type: "boolean"}
	case KindNull:
		return &OpenAPISchema{Type: "null"}
	case KindDate:
		return &OpenAPISchema{Type: "string", Format: "date-time"}
	case KindUndefined, KindUnknown:
		return &OpenAPISchema{}
	case KindLiteral:
		return &OpenAPISchema{Const: s.LiteralValue}
	case KindArray:
		return &OpenAPISchema{Type: "array", Items: SpecToOpenAPI(s.Element)}
	case KindOptional:
		return SpecToOpenAPI(s.Element)
	case KindNullable:
		inner := SpecToOpenAPI(s.Element)
		inner.Nullable = true
		if inner.Type != "" && !strings.Contains(inner.Type, "null") {
			inner.Type = inner.Type + "|null"
		}
		return inner
	case KindRecord:
		return &OpenAPISchema{Type: "object", AdditionalProperties: SpecToOpenAPI(s.Record)}
	case KindObject:
		props := map[string]*OpenAPISchema{}
		required := []string{}
		for _, name := range s.FieldOrder {
			f := s.Fields[name]
			props[name] = SpecToOpenAPI(f.Spec)
			if !f.Optional {
				required = append(required, name)
			}
		}
		return &OpenAPISchema{Type: "object", Properties: props, Required: required}
	case KindUnion:
		variants := make([]*OpenAPISchema, 0, len(s.Variants))
		for _, v := range s.Variants {
			variants = append(variants, SpecToOpenAPI(v))
		}
		return &OpenAPISchema{OneOf: variants}
	case KindEnum:
		values := make([]any, 0, len(s.EnumValues))
		for _, v := range s.EnumValues {
			values = append(values, v)
		}
		return &OpenAPISchema{Type: "string", Enum: values}
	case KindTuple:
		prefix := make([]*OpenAPISchema, 0, len(s.Variants))
		for _, v := range s.Variants {
			prefix = append(prefix, SpecToOpenAPI(v))
		}
		return &OpenAPISchema{Type: "array", PrefixItems: prefix}
	default:
		return &OpenAPISchema{}
	}
}

// SpecToTypeString renders a Spec tree as a best-effort, target-language
// neutral type string (TypeScript-flavored, since that's the generator's
// historical target per spec §4.12, but treated here as a plain textual
// descriptor any target language generator could reinterpret).
func SpecToTypeString(s *Spec, indent int) string {
	if s == nil {
		return "unknown"
	}
	pad := strings.Repeat("  ", indent)
	innerPad := strings.Repeat("  ", indent+1)
	switch s.Kind {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	case KindDate:
		return "Date"
	case KindUndefined:
		return "undefined"
	case KindUnknown:
		return "unknown"
	case KindLiteral:
		switch v := s.LiteralValue.(type) {
		case string:
			return fmt.Sprintf("%q", v)
		default:
			return fmt.Sprintf("%v", v)
		}
	case KindArray:
		return SpecToTypeString(s.Element, indent) + "[]"
	case KindOptional:
		return SpecToTypeString(s.Element, indent) + " | undefined"
	case KindNullable:
		return SpecToTypeString(s.Element, indent) + " | null"
	case KindRecord:
		return fmt.Sprintf("Record<string, %s>", SpecToTypeString(s.Record, indent))
	case KindObject:
		if len(s.FieldOrder) == 0 {
			return "Record<string, never>"
		}
		var b strings.Builder
		b.WriteString("{\n")
		for _, name := range s.FieldOrder {
			f := s.Fields[name]
			opt := ""
			if f.Optional {
				opt = "?"
			}
			fmt.Fprintf(&b, "%s%s%s: %s;\n", innerPad, name, opt, SpecToTypeString(f.Spec, indent+1))
		}
		fmt.Fprintf(&b, "%s}", pad)
		return b.String()
	case KindUnion:
		parts := make([]string, 0, len(s.Variants))
		for _, v := range s.Variants {
			parts = append(parts, SpecToTypeString(v, indent))
		}
		return strings.Join(parts, " | ")
	case KindEnum:
		parts := make([]string, 0, len(s.EnumValues))
		for _, v := range s.EnumValues {
			parts = append(parts, fmt.Sprintf("%q", v))
		}
		return strings.Join(parts, " | ")
	case KindTuple:
		parts := make([]string, 0, len(s.Variants))
		for _, v := range s.Variants {
			parts = append(parts, SpecToTypeString(v, indent))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "unknown"
	}
}
