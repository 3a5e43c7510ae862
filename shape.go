package apidec

import (
	"fmt"
	"reflect"
	"time"
)

// shapeKind discriminates the closed set of parameter shapes the adapters
// understand. Shapes are derived from reflect.Type once at registration time
// and pattern-matched afterwards; nothing re-inspects types per request.
type shapeKind int

const (
	shapeScalar shapeKind = iota
	shapeOptional
	shapeList
	shapeModel
)

// scalarKind enumerates the scalar types supported by the query adapter.
type scalarKind int

const (
	scalarString scalarKind = iota
	scalarInt
	scalarFloat
	scalarBool
	scalarDate
)

var timeType = reflect.TypeOf(time.Time{})

// paramShape is a tagged variant describing a declared parameter type:
// Scalar(kind), Optional(inner), List(inner) or Model(struct).
type paramShape struct {
	kind   shapeKind
	scalar scalarKind   // set when kind == shapeScalar
	elem   *paramShape  // set when kind == shapeOptional or shapeList
	model  reflect.Type // set when kind == shapeModel
}

// isListType reports whether t is a slice or array type. Byte slices are
// treated as opaque blobs, not lists.
func isListType(t reflect.Type) bool {
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return false
	}
	return t.Elem().Kind() != reflect.Uint8
}

// isOptionalType reports whether t is an optional (pointer) type.
func isOptionalType(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer
}

// unwrapOptional returns the non-absence member of an optional type.
func unwrapOptional(t reflect.Type) (reflect.Type, error) {
	if !isOptionalType(t) {
		return nil, fmt.Errorf("type %s is not optional", t)
	}
	return t.Elem(), nil
}

// unwrapListElem returns the element type of a list type.
func unwrapListElem(t reflect.Type) (reflect.Type, error) {
	if !isListType(t) {
		return nil, fmt.Errorf("type %s is not a list", t)
	}
	return t.Elem(), nil
}

// isModelType reports whether t is a structured model (a struct that is not
// a recognized scalar such as time.Time).
func isModelType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t != timeType
}

// classifyScalar maps t to a scalar kind, if it has one.
func classifyScalar(t reflect.Type) (scalarKind, bool) {
	if t == timeType {
		return scalarDate, true
	}
	switch t.Kind() {
	case reflect.String:
		return scalarString, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalarInt, true
	case reflect.Float32, reflect.Float64:
		return scalarFloat, true
	case reflect.Bool:
		return scalarBool, true
	default:
		return 0, false
	}
}

// classifyShape derives the paramShape for t. Returns an error for types
// outside the closed set (maps, channels, functions, nested lists of
// unsupported element types and so on).
func classifyShape(t reflect.Type) (*paramShape, error) {
	if isOptionalType(t) {
		inner, err := unwrapOptional(t)
		if err != nil {
			return nil, err
		}
		elem, err := classifyShape(inner)
		if err != nil {
			return nil, err
		}
		return &paramShape{kind: shapeOptional, elem: elem}, nil
	}

	if isListType(t) {
		inner, err := unwrapListElem(t)
		if err != nil {
			return nil, err
		}
		elem, err := classifyShape(inner)
		if err != nil {
			return nil, err
		}
		return &paramShape{kind: shapeList, elem: elem}, nil
	}

	if kind, ok := classifyScalar(t); ok {
		return &paramShape{kind: shapeScalar, scalar: kind}, nil
	}

	if isModelType(t) {
		return &paramShape{kind: shapeModel, model: t}, nil
	}

	return nil, fmt.Errorf("unsupported parameter type %s", t)
}
