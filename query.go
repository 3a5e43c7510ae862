package apidec

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// queryField describes one declared query parameter: the Go struct field it
// binds to, the kebab-case alias clients use, its shape and its
// required/default semantics. Built once at registration.
type queryField struct {
	name     string
	alias    string
	index    int
	shape    *paramShape
	required bool
	def      reflect.Value // valid when hasDefault
	hasDef   bool
}

// queryModel is the synthetic structured type assembled from a handler's
// query struct. It exists even when the struct has no fields.
type queryModel struct {
	typ    reflect.Type
	fields []queryField
}

// NoQuery declares that a handler exposes no query parameters.
type NoQuery struct{}

// buildQueryModel assembles the query model for t. t must be a struct type;
// every exported field must have a supported scalar (or optional scalar)
// type. A field is optional when it is a pointer or carries a default tag;
// otherwise it is required.
func buildQueryModel(t reflect.Type) (*queryModel, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("query parameter type must be a struct, got %s", t)
	}

	model := &queryModel{typ: t}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		shape, err := classifyShape(field.Type)
		if err != nil {
			return nil, fmt.Errorf("query parameter %s: %w", field.Name, err)
		}
		switch shape.kind {
		case shapeScalar:
		case shapeOptional:
			if shape.elem.kind != shapeScalar {
				return nil, fmt.Errorf("query parameter %s: optional must wrap a scalar type", field.Name)
			}
		default:
			return nil, fmt.Errorf("query parameter %s: unsupported type %s", field.Name, field.Type)
		}

		alias := field.Tag.Get("query")
		if alias == "" {
			alias = kebabCase(field.Name)
		}

		qf := queryField{
			name:     field.Name,
			alias:    alias,
			index:    i,
			shape:    shape,
			required: shape.kind == shapeScalar,
		}

		if def, ok := field.Tag.Lookup("default"); ok {
			val, ferr := parseScalarInto(scalarOf(shape), def, field.Type)
			if ferr != nil {
				return nil, fmt.Errorf("query parameter %s: bad default %q: %s", field.Name, def, ferr.Message)
			}
			qf.def = val
			qf.hasDef = true
			qf.required = false
		}

		model.fields = append(model.fields, qf)
	}
	return model, nil
}

// paramNames returns the exposed aliases in declaration order.
func (m *queryModel) paramNames() []string {
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.alias
	}
	return names
}

// parse validates raw query values against the model and produces a struct
// value of the model type. Fields without a supplied value stay at their
// declared default (or zero value for optionals), so handler-side defaults
// apply. All offending parameters are reported, not just the first.
func (m *queryModel) parse(values url.Values) (reflect.Value, *ValidationError) {
	out := reflect.New(m.typ).Elem()
	verr := newValidationError()

	for _, f := range m.fields {
		raw, present := values[f.alias]
		if !present || len(raw) == 0 {
			if f.required {
				verr.addFieldError(f.alias, "Query parameter "+f.alias+" must be specified", codeMissing)
			} else if f.hasDef {
				out.Field(f.index).Set(f.def)
			}
			continue
		}

		// A repeated key keeps its first value; query parameters are
		// scalar by construction.
		fieldType := m.typ.Field(f.index).Type
		val, ferr := parseScalarInto(scalarOf(f.shape), raw[0], fieldType)
		if ferr != nil {
			verr.addFieldError(f.alias, ferr.Message, ferr.Code)
			continue
		}
		out.Field(f.index).Set(val)
	}

	if !verr.empty() {
		return reflect.Value{}, verr
	}
	return out, nil
}

func scalarOf(shape *paramShape) scalarKind {
	if shape.kind == shapeOptional {
		return shape.elem.scalar
	}
	return shape.scalar
}

// parseScalarInto converts one raw string into a value of fieldType, which
// may be an optional (pointer) wrapper around the scalar.
func parseScalarInto(kind scalarKind, raw string, fieldType reflect.Type) (reflect.Value, *FieldError) {
	target := fieldType
	optional := target.Kind() == reflect.Pointer
	if optional {
		target = target.Elem()
	}

	var parsed reflect.Value
	switch kind {
	case scalarString:
		parsed = reflect.ValueOf(raw).Convert(target)
	case scalarInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, &FieldError{Message: "must be an integer", Code: codeIntParsing}
		}
		parsed = reflect.ValueOf(n).Convert(target)
	case scalarFloat:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return reflect.Value{}, &FieldError{Message: "must be a number", Code: codeFloatParsing}
		}
		parsed = reflect.ValueOf(n).Convert(target)
	case scalarBool:
		b, ok := parseQueryBool(raw)
		if !ok {
			return reflect.Value{}, &FieldError{Message: "must be a boolean", Code: codeBoolParsing}
		}
		parsed = reflect.ValueOf(b).Convert(target)
	case scalarDate:
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return reflect.Value{}, &FieldError{Message: "must be a valid date", Code: codeDateParsing}
		}
		parsed = reflect.ValueOf(d)
	}

	if optional {
		ptr := reflect.New(target)
		ptr.Elem().Set(parsed)
		return ptr, nil
	}
	return parsed, nil
}

// parseQueryBool implements the boolean coercion table for query values. A
// bare flag arrives as the empty string and counts as true.
func parseQueryBool(raw string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "yes", "on", "true", "1":
		return true, true
	case "no", "off", "false", "0":
		return false, true
	default:
		return false, false
	}
}

// kebabCase derives the exposed parameter name from a Go field name:
// OptNum -> opt-num, UserID -> user-id.
func kebabCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
