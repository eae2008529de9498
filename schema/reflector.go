package schema

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"reflect"
	"strconv"
	"strings"

	"github.com/kilnhq/kiln/result"
)

// Reflector is the framework's built-in Validator+Describer, grounded in
// the teacher's own reflect/struct-tag approach (no third-party JSON
// Schema library exists anywhere in the retrieved pack, so the default
// adapter is homegrown; see DESIGN.md). It understands two struct tags
// beyond the standard `json` tag:
//
//	required:"true|false"   — defaults to true for non-pointer fields
//	validate:"rule,rule..."  — rule is one of:
//	    nonzero                non-empty string / non-zero number
//	    email                  RFC 5322 mailbox syntax
//	    min=N                  string length / numeric value >= N
//	    max=N                  string length / numeric value <= N
type Reflector struct{}

// Validate implements Validator. data may be a []byte of raw JSON, or an
// already-decoded Go value (map[string]any, []any, string, float64,
// bool, nil — the shapes json.Unmarshal produces into `any`).
func (rf *Reflector) Validate(schemaType reflect.Type, data any) result.Result[any] {
	if schemaType == nil {
		return result.Ok[any](nil)
	}

	raw, err := toJSON(data)
	if err != nil {
		return result.Err[any](err)
	}

	target := reflect.New(schemaType)
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	if err := dec.Decode(target.Interface()); err != nil {
		return result.Err[any](fmt.Errorf("decode error: %v", err))
	}

	var issues []Issue
	walkValidate(schemaType, target.Elem(), nil, &issues)
	if len(issues) > 0 {
		return result.Err[any](&ValidationError{Issues: issues})
	}
	return result.Ok[any](target.Elem().Interface())
}

// ValidationError carries the structured issue list produced by Validate.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Issues[0].DottedField(), e.Issues[0].Message)
}

func toJSON(data any) ([]byte, error) {
	switch v := data.(type) {
	case nil:
		return []byte("null"), nil
	case []byte:
		if len(v) == 0 {
			return []byte("null"), nil
		}
		return v, nil
	case string:
		if v == "" {
			return []byte("null"), nil
		}
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

func walkValidate(t reflect.Type, v reflect.Value, path []string, issues *[]Issue) {
	if t.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		walkValidate(t.Elem(), v.Elem(), path, issues)
		return
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := jsonFieldName(f)
		if skip {
			continue
		}
		fv := v.Field(i)
		fieldPath := append(append([]string{}, path...), name)

		required := requiredTag(f, f.Type.Kind() != reflect.Pointer)
		isZero := fv.IsZero()
		if required && isZero {
			*issues = append(*issues, Issue{Path: fieldPath, Message: fmt.Sprintf("%s is required", name)})
			continue
		}
		if isZero {
			continue
		}

		rules := f.Tag.Get("validate")
		if rules != "" {
			validateRules(rules, name, fv, fieldPath, issues)
		}

		ft := f.Type
		fval := fv
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
			fval = fv.Elem()
		}
		if ft.Kind() == reflect.Struct {
			walkValidate(ft, fval, fieldPath, issues)
		}
	}
}

func validateRules(rules, name string, v reflect.Value, path []string, issues *[]Issue) {
	for _, rule := range strings.Split(rules, ",") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		key, arg, _ := strings.Cut(rule, "=")
		switch key {
		case "nonzero":
			if v.IsZero() {
				*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("%s must not be empty", name)})
			}
		case "email":
			if v.Kind() == reflect.String {
				if _, err := mail.ParseAddress(v.String()); err != nil {
					*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("%s must be a valid email address", name)})
				}
			}
		case "min":
			n, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				continue
			}
			if !meetsBound(v, n, true) {
				*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("%s must be at least %s", name, arg)})
			}
		case "max":
			n, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				continue
			}
			if !meetsBound(v, n, false) {
				*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("%s must be at most %s", name, arg)})
			}
		}
	}
}

func meetsBound(v reflect.Value, bound float64, isMin bool) bool {
	var actual float64
	switch v.Kind() {
	case reflect.String:
		actual = float64(len(v.String()))
	case reflect.Slice, reflect.Array, reflect.Map:
		actual = float64(v.Len())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		actual = float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		actual = float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		actual = v.Float()
	default:
		return true
	}
	if isMin {
		return actual >= bound
	}
	return actual <= bound
}
