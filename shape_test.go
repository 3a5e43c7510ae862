package apidec

import (
	"reflect"
	"testing"
	"time"
)

func TestClassifyScalar(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want scalarKind
		ok   bool
	}{
		{"string", reflect.TypeOf(""), scalarString, true},
		{"int", reflect.TypeOf(0), scalarInt, true},
		{"int64", reflect.TypeOf(int64(0)), scalarInt, true},
		{"float64", reflect.TypeOf(0.0), scalarFloat, true},
		{"bool", reflect.TypeOf(false), scalarBool, true},
		{"time", reflect.TypeOf(time.Time{}), scalarDate, true},
		{"struct", reflect.TypeOf(struct{}{}), 0, false},
		{"map", reflect.TypeOf(map[string]int{}), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classifyScalar(tt.typ)
			if ok != tt.ok {
				t.Fatalf("classifyScalar(%s) ok = %v, want %v", tt.typ, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("classifyScalar(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestClassifyShape(t *testing.T) {
	type model struct{ Name string }

	shape, err := classifyShape(reflect.TypeOf(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shape.kind != shapeScalar || shape.scalar != scalarInt {
		t.Errorf("expected scalar int shape, got %+v", shape)
	}

	shape, err = classifyShape(reflect.TypeOf((*int)(nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shape.kind != shapeOptional || shape.elem.kind != shapeScalar {
		t.Errorf("expected optional scalar shape, got %+v", shape)
	}

	shape, err = classifyShape(reflect.TypeOf([]model{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shape.kind != shapeList || shape.elem.kind != shapeModel {
		t.Errorf("expected list of model shape, got %+v", shape)
	}
	if shape.elem.model != reflect.TypeOf(model{}) {
		t.Errorf("expected model type %s, got %s", reflect.TypeOf(model{}), shape.elem.model)
	}

	if _, err := classifyShape(reflect.TypeOf(map[string]int{})); err == nil {
		t.Error("expected error for map type")
	}
	if _, err := classifyShape(reflect.TypeOf(make(chan int))); err == nil {
		t.Error("expected error for chan type")
	}
}

func TestIsListType(t *testing.T) {
	if !isListType(reflect.TypeOf([]string{})) {
		t.Error("expected []string to be a list type")
	}
	if isListType(reflect.TypeOf([]byte{})) {
		t.Error("expected []byte to be treated as a blob, not a list")
	}
	if isListType(reflect.TypeOf("")) {
		t.Error("expected string not to be a list type")
	}
}

func TestUnwrapMismatch(t *testing.T) {
	if _, err := unwrapOptional(reflect.TypeOf(0)); err == nil {
		t.Error("expected error unwrapping optional from int")
	}
	if _, err := unwrapListElem(reflect.TypeOf(0)); err == nil {
		t.Error("expected error unwrapping list element from int")
	}

	elem, err := unwrapListElem(reflect.TypeOf([]int{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elem.Kind() != reflect.Int {
		t.Errorf("expected int element, got %s", elem)
	}
}

func TestIsModelType(t *testing.T) {
	if !isModelType(reflect.TypeOf(struct{ A int }{})) {
		t.Error("expected struct to be a model type")
	}
	if isModelType(reflect.TypeOf(time.Time{})) {
		t.Error("expected time.Time not to be a model type")
	}
}
