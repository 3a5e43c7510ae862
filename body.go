package apidec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorilla/schema"
)

// NoBody declares that a handler takes no request body.
type NoBody struct{}

var noBodyType = reflect.TypeOf(NoBody{})

// bodyAdapter validates raw request input (JSON or form-encoded) into typed
// model instances. Built once at registration; safe for concurrent use.
type bodyAdapter struct {
	elem   reflect.Type // the model struct type
	isList bool
	// listFields holds exposed names of the model's list-valued fields.
	// Form decoding needs it to know which repeated keys collect into
	// lists rather than collapsing to a single value.
	listFields map[string]bool
}

// newBodyAdapter builds the adapter for t, which must be a struct type or a
// slice of structs.
func newBodyAdapter(t reflect.Type) (*bodyAdapter, error) {
	a := &bodyAdapter{elem: t}
	if isListType(t) {
		elem, err := unwrapListElem(t)
		if err != nil {
			return nil, err
		}
		a.elem = elem
		a.isList = true
	}
	if !isModelType(a.elem) {
		return nil, fmt.Errorf("body type must be a struct or a slice of structs, got %s", t)
	}

	a.listFields = make(map[string]bool)
	for i := 0; i < a.elem.NumField(); i++ {
		field := a.elem.Field(i)
		if !field.IsExported() {
			continue
		}
		if isListType(field.Type) {
			a.listFields[exposedFieldName(field)] = true
		}
	}
	return a, nil
}

// exposedFieldName is the wire name of a model field: the json tag when
// present, the Go field name otherwise. The form decoder aliases on the
// same tag, so both decode paths agree on naming.
func exposedFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

// parse reads and validates the request body into target, a pointer to the
// declared body type. Dispatch is on Content-Type: form-encoded bodies go
// through the form decoder, everything else is treated as JSON.
func (a *bodyAdapter) parse(r *http.Request, maxBody int64, target any) *ValidationError {
	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return newValidationError("Invalid form data")
		}
		return a.parseForm(r.PostForm, target)
	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(maxBody); err != nil {
			return newValidationError("Invalid form data")
		}
		return a.parseForm(r.PostForm, target)
	default:
		var reader io.Reader = r.Body
		if maxBody > 0 {
			reader = io.LimitReader(r.Body, maxBody)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return newValidationError("Unable to read request body")
		}
		return a.parseJSON(data, target)
	}
}

// parseJSON validates a JSON payload (object, or array of objects for list
// bodies) against the model. An empty body is accepted as the empty JSON
// equivalent of the declared shape.
func (a *bodyAdapter) parseJSON(data []byte, target any) *ValidationError {
	if len(bytes.TrimSpace(data)) == 0 {
		if a.isList {
			data = []byte("[]")
		} else {
			data = []byte("{}")
		}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return newValidationError("Invalid JSON")
	}

	if a.isList {
		items, ok := raw.([]any)
		if !ok {
			return newValidationError("Expected request body to be a list")
		}
		return a.decodeList(items, target)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return newValidationError("Expected request body to be an object")
	}
	if verr := decodeModel(obj, target, ""); verr != nil {
		return verr
	}
	return validateModel(target, "")
}

// decodeList validates every element independently and reports errors with
// a positional path prefix ("<index>.<field>"). An empty list is valid.
func (a *bodyAdapter) decodeList(items []any, target any) *ValidationError {
	slice := reflect.MakeSlice(reflect.SliceOf(a.elem), 0, len(items))
	verr := newValidationError()

	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			verr.Errors = append(verr.Errors, fmt.Sprintf("Expected list element %d to be an object", i))
			continue
		}
		prefix := strconv.Itoa(i)
		elemPtr := reflect.New(a.elem)
		if dverr := decodeModel(obj, elemPtr.Interface(), prefix); dverr != nil {
			verr.merge(dverr)
			continue
		}
		if vverr := validateModel(elemPtr.Interface(), prefix); vverr != nil {
			verr.merge(vverr)
			continue
		}
		slice = reflect.Append(slice, elemPtr.Elem())
	}

	if !verr.empty() {
		return verr
	}
	reflect.ValueOf(target).Elem().Set(slice)
	return nil
}

// parseForm validates a decoded form field mapping against the model.
// Repeated keys collapse to their first value unless the field is
// list-valued, in which case all values are kept.
func (a *bodyAdapter) parseForm(form url.Values, target any) *ValidationError {
	if a.isList {
		return newValidationError("Expected request body to be a list")
	}

	values := make(url.Values, len(form))
	for key, vals := range form {
		if a.listFields[key] {
			values[key] = vals
		} else if len(vals) > 0 {
			values[key] = vals[:1]
		}
	}

	if err := formDecoder.Decode(target, values); err != nil {
		var multi schema.MultiError
		if errors.As(err, &multi) {
			return validationErrorFromForm(multi)
		}
		return newValidationError(err.Error())
	}
	return validateModel(target, "")
}

// decodeModel binds a semi-structured map onto the model struct,
// accumulating errors for every offending field rather than stopping at
// the first one.
func decodeModel(input map[string]any, target any, prefix string) *ValidationError {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.OrComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.DateOnly),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return newValidationError(err.Error())
	}
	if err := dec.Decode(input); err != nil {
		return validationErrorFromDecode(err, prefix)
	}
	return nil
}

// validateModel runs declared validation rules against a decoded instance.
func validateModel(target any, prefix string) *ValidationError {
	if err := validate.Struct(target); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			return validationErrorFromValidator(ves, prefix)
		}
		return newValidationError(err.Error())
	}
	return nil
}

var (
	validate    = newValidate()
	formDecoder = newFormDecoder()
)

// newValidate builds the shared validator. Field names in validation errors
// use json tag names so error paths match the wire format.
func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// newFormDecoder builds the shared form decoder. It aliases on json tags so
// form keys match the JSON wire names, and parses dates in either ISO date
// or RFC 3339 form.
func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.SetAliasTag("json")
	d.RegisterConverter(time.Time{}, func(value string) reflect.Value {
		if t, err := time.Parse(time.DateOnly, value); err == nil {
			return reflect.ValueOf(t)
		}
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return reflect.ValueOf(t)
		}
		return reflect.Value{}
	})
	return d
}
