package apidec

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorilla/schema"
)

// ErrNotFound signals that a looked-up resource does not exist. Handlers
// return it (or wrap it) to produce a uniform 404 response; the original
// message is never exposed to the client.
var ErrNotFound = errors.New("not found")

// FieldError carries the human message and machine code for one offending
// field in a validation failure.
type FieldError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationError is the unified input-validation failure shape. Both the
// query adapter and the body adapter produce it, regardless of which
// underlying decoder reported the failure. The pipeline renders it as a 400
// response with this exact JSON layout.
type ValidationError struct {
	Errors      []string              `json:"errors"`
	FieldErrors map[string]FieldError `json:"field_errors"`
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// newValidationError creates a ValidationError carrying message-only errors
// with no field association.
func newValidationError(messages ...string) *ValidationError {
	return &ValidationError{
		Errors:      messages,
		FieldErrors: map[string]FieldError{},
	}
}

// addFieldError records an error for the given field path and keeps the
// Errors list in sync.
func (e *ValidationError) addFieldError(path, message, code string) {
	if e.FieldErrors == nil {
		e.FieldErrors = map[string]FieldError{}
	}
	e.FieldErrors[path] = FieldError{Message: message, Code: code}
	e.Errors = append(e.Errors, path+": "+message)
}

// merge folds other's errors into e.
func (e *ValidationError) merge(other *ValidationError) {
	if other == nil {
		return
	}
	e.Errors = append(e.Errors, other.Errors...)
	for path, fe := range other.FieldErrors {
		if e.FieldErrors == nil {
			e.FieldErrors = map[string]FieldError{}
		}
		e.FieldErrors[path] = fe
	}
}

func (e *ValidationError) empty() bool {
	return len(e.Errors) == 0 && len(e.FieldErrors) == 0
}

// PublicError is an application-declared error whose status code and
// messages are propagated verbatim to the client.
type PublicError struct {
	StatusCode int
	Messages   []string
}

func (e *PublicError) Error() string {
	return fmt.Sprintf("public api error (%d): %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// NewPublicError creates a client-facing error with an explicit status code.
func NewPublicError(status int, messages ...string) *PublicError {
	if len(messages) == 0 {
		messages = []string{""}
	}
	return &PublicError{StatusCode: status, Messages: messages}
}

// Machine codes attached to field errors. The parsing codes are stable
// identifiers clients match on; "missing" marks an absent required value.
const (
	codeMissing      = "missing"
	codeIntParsing   = "int_parsing"
	codeFloatParsing = "float_parsing"
	codeBoolParsing  = "bool_parsing"
	codeDateParsing  = "date_parsing"
	codeInvalid      = "invalid"
)

// validationErrorFromValidator converts validator field errors into the
// unified shape. Paths use json tag names (see newValidate) with the struct
// type prefix stripped; prefix, when non-empty, is prepended to every path
// (used for list-body element indexes).
func validationErrorFromValidator(ves validator.ValidationErrors, prefix string) *ValidationError {
	out := newValidationError()
	for _, ve := range ves {
		path := validatorFieldPath(ve)
		if prefix != "" {
			path = prefix + "." + path
		}
		out.addFieldError(path, describeValidation(ve), validationCode(ve))
	}
	return out
}

// validatorFieldPath strips the leading struct type segment from the
// validator namespace, leaving the dotted json-name path.
func validatorFieldPath(ve validator.FieldError) string {
	ns := ve.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationCode(ve validator.FieldError) string {
	if ve.Tag() == "required" {
		return codeMissing
	}
	return ve.Tag()
}

// describeValidation renders a field-level violation as a human message.
func describeValidation(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "Field required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

// validationErrorFromDecode converts a mapstructure decode failure into the
// unified shape. mapstructure reports every failing field rather than
// stopping at the first, joining the per-field errors; flattening the join
// is what lets a single 400 response carry all offending keys.
func validationErrorFromDecode(err error, prefix string) *ValidationError {
	fieldErrs := collectDecodeErrors(err)
	if len(fieldErrs) == 0 {
		return newValidationError(err.Error())
	}
	sort.Slice(fieldErrs, func(i, j int) bool {
		return fieldErrs[i].Name() < fieldErrs[j].Name()
	})
	out := newValidationError()
	for _, de := range fieldErrs {
		path := strings.TrimPrefix(de.Name(), ".")
		if path == "" {
			out.Errors = append(out.Errors, de.Error())
			continue
		}
		if prefix != "" {
			path = prefix + "." + path
		}
		cause := de.Unwrap()
		code := decodeCode(cause)
		out.addFieldError(path, decodeMessage(code, cause), code)
	}
	return out
}

// collectDecodeErrors flattens the error tree Decoder.Decode produces (a
// single *DecodeError, or joined per-field errors wrapped once at the top)
// into the individual field failures.
func collectDecodeErrors(err error) []*mapstructure.DecodeError {
	var out []*mapstructure.DecodeError
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *mapstructure.DecodeError:
			out = append(out, e)
		case interface{ Unwrap() []error }:
			for _, sub := range e.Unwrap() {
				walk(sub)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return out
}

// decodeCode classifies the cause of one field's decode failure. Type
// mismatches carry the target type; date failures from the decode hook only
// survive as the time package's message, so those fall back to it.
func decodeCode(err error) string {
	var unconv *mapstructure.UnconvertibleTypeError
	if errors.As(err, &unconv) {
		return conversionCode(derefType(unconv.Expected.Type()))
	}
	var parse *mapstructure.ParseError
	if errors.As(err, &parse) {
		return conversionCode(derefType(parse.Expected.Type()))
	}
	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return codeDateParsing
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		switch numErr.Func {
		case "ParseFloat":
			return codeFloatParsing
		case "ParseBool":
			return codeBoolParsing
		default:
			return codeIntParsing
		}
	}
	if err != nil && strings.Contains(err.Error(), "parsing time") {
		return codeDateParsing
	}
	return codeInvalid
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// decodeMessage renders a field's decode failure as a stable client-facing
// message.
func decodeMessage(code string, cause error) string {
	switch code {
	case codeIntParsing:
		return "Input should be a valid integer"
	case codeFloatParsing:
		return "Input should be a valid number"
	case codeBoolParsing:
		return "Input should be a valid boolean"
	case codeDateParsing:
		return "Input should be a valid date"
	default:
		// Keep the decoder's own wording for shape mismatches.
		if cause != nil {
			return cause.Error()
		}
		return "Invalid value"
	}
}

// validationErrorFromForm converts the legacy per-key form decoding error
// shape (gorilla/schema MultiError) into the unified shape.
func validationErrorFromForm(errs schema.MultiError) *ValidationError {
	out := newValidationError()
	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		err := errs[key]
		var conv schema.ConversionError
		if errors.As(err, &conv) {
			out.addFieldError(key, conversionMessage(conv.Type), conversionCode(conv.Type))
			continue
		}
		out.addFieldError(key, err.Error(), codeInvalid)
	}
	return out
}

func conversionCode(t reflect.Type) string {
	if t == timeType {
		return codeDateParsing
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return codeIntParsing
	case reflect.Float32, reflect.Float64:
		return codeFloatParsing
	case reflect.Bool:
		return codeBoolParsing
	default:
		return codeInvalid
	}
}

func conversionMessage(t reflect.Type) string {
	switch conversionCode(t) {
	case codeIntParsing:
		return "Input should be a valid integer"
	case codeFloatParsing:
		return "Input should be a valid number"
	case codeBoolParsing:
		return "Input should be a valid boolean"
	case codeDateParsing:
		return "Input should be a valid date"
	default:
		return "Invalid value"
	}
}
