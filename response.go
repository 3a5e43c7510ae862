package apidec

import (
	"encoding"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// Response is a complete protocol-level response. A handler declared to
// return *Response bypasses serialization entirely; the pipeline writes it
// verbatim.
type Response struct {
	Status      int
	Header      http.Header
	ContentType string
	Body        []byte
}

// NewResponse creates a raw response with the given status and body.
func NewResponse(status int, contentType string, body []byte) *Response {
	return &Response{
		Status:      status,
		Header:      http.Header{},
		ContentType: contentType,
		Body:        body,
	}
}

var rawResponseType = reflect.TypeOf(&Response{})

// responseEncoder serializes a handler's return value into a JSON payload.
// A nil encoder is the pass-through sentinel for handlers that return raw
// responses.
type responseEncoder struct {
	typ reflect.Type
}

// newResponseEncoder builds the encoder for the declared return type t, or
// returns nil when t is the raw response type.
func newResponseEncoder(t reflect.Type) *responseEncoder {
	if t == rawResponseType || t == rawResponseType.Elem() {
		return nil
	}
	return &responseEncoder{typ: t}
}

// encode produces the JSON payload for v. When byAlias is set, struct
// fields carrying an alias tag are written under that name instead of
// their json name.
func (e *responseEncoder) encode(v any, byAlias bool) ([]byte, error) {
	if byAlias {
		return json.Marshal(aliasValue(reflect.ValueOf(v)))
	}
	return json.Marshal(v)
}

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// aliasValue rewrites v into a JSON-encodable value with alias field names
// applied recursively. Types with their own marshaling stay untouched.
func aliasValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Type().Implements(jsonMarshalerType) || v.Type().Implements(textMarshalerType) {
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return aliasValue(v.Elem())
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface()
		}
		out := make(map[string]any, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			name, omitEmpty := aliasFieldName(field)
			if name == "" {
				continue
			}
			fv := v.Field(i)
			if omitEmpty && fv.IsZero() {
				continue
			}
			out[name] = aliasValue(fv)
		}
		return out
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = aliasValue(v.Index(i))
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = aliasValue(iter.Value())
		}
		return out
	default:
		return v.Interface()
	}
}

// aliasFieldName resolves the serialized name for a struct field: the alias
// tag wins, then the json tag, then the field name. An empty result means
// the field is skipped.
func aliasFieldName(field reflect.StructField) (name string, omitEmpty bool) {
	jsonTag := field.Tag.Get("json")
	parts := strings.Split(jsonTag, ",")
	if parts[0] == "-" && len(parts) == 1 {
		return "", false
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	if alias := field.Tag.Get("alias"); alias != "" {
		return alias, omitEmpty
	}
	if parts[0] != "" && parts[0] != "-" {
		return parts[0], omitEmpty
	}
	return field.Name, omitEmpty
}
