package apidec

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"
)

type orderIn struct {
	Num int       `json:"num"`
	D   time.Time `json:"d"`
}

type articleIn struct {
	Title string   `json:"title" validate:"required"`
	Tags  []string `json:"tags"`
}

func mustBodyAdapter(t *testing.T, typ reflect.Type) *bodyAdapter {
	t.Helper()
	a, err := newBodyAdapter(typ)
	if err != nil {
		t.Fatalf("newBodyAdapter(%s): %v", typ, err)
	}
	return a
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestNewBodyAdapter(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf(articleIn{}))
	if a.isList {
		t.Error("expected non-list adapter")
	}
	if !a.listFields["tags"] {
		t.Errorf("expected tags to be tracked as a list field, got %v", a.listFields)
	}

	a = mustBodyAdapter(t, reflect.TypeOf([]orderIn{}))
	if !a.isList {
		t.Error("expected list adapter")
	}
	if a.elem != reflect.TypeOf(orderIn{}) {
		t.Errorf("expected element type orderIn, got %s", a.elem)
	}
}

func TestNewBodyAdapter_Errors(t *testing.T) {
	if _, err := newBodyAdapter(reflect.TypeOf(0)); err == nil {
		t.Error("expected error for int body type")
	}
	if _, err := newBodyAdapter(reflect.TypeOf([]int{})); err == nil {
		t.Error("expected error for slice of non-struct")
	}
}

func TestBodyJSON_Object(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf(orderIn{}))

	var got orderIn
	verr := a.parse(jsonRequest(`{"num": 3, "d": "2022-01-01"}`), 0, &got)
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if got.Num != 3 {
		t.Errorf("Num = %d, want 3", got.Num)
	}
	if got.D.Format(time.DateOnly) != "2022-01-01" {
		t.Errorf("D = %v, want 2022-01-01", got.D)
	}
}

func TestBodyJSON_InvalidField(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf(orderIn{}))

	var got orderIn
	verr := a.parse(jsonRequest(`{"num": "x", "d": "2022-01-01"}`), 0, &got)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.FieldErrors) != 1 {
		t.Fatalf("expected exactly one field error, got %v", verr.FieldErrors)
	}
	fe, ok := verr.FieldErrors["num"]
	if !ok {
		t.Fatalf("expected field error for num, got %v", verr.FieldErrors)
	}
	if fe.Code != "int_parsing" {
		t.Errorf("num code = %q, want int_parsing", fe.Code)
	}
}

func TestBodyJSON_AllFieldsReported(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf(orderIn{}))

	var got orderIn
	verr := a.parse(jsonRequest(`{"num": "x", "d": "zzz"}`), 0, &got)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := verr.FieldErrors["num"]; !ok {
		t.Errorf("expected field error for num, got %v", verr.FieldErrors)
	}
	if _, ok := verr.FieldErrors["d"]; !ok {
		t.Errorf("expected field error for d, got %v", verr.FieldErrors)
	}
}

func TestBodyJSON_InvalidSyntax(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf(orderIn{}))

	var got orderIn
	verr := a.parse(jsonRequest(`{"num": `), 0, &got)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.Errors) != 1 || verr.Errors[0] != "Invalid JSON" {
		t.Errorf("Errors = %v, want [Invalid JSON]", verr.Errors)
	}
}

func TestBodyJSON_WrongTopLevelShape(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf(orderIn{}))
	var got orderIn
	verr := a.parse(jsonRequest(`[1, 2]`), 0, &got)
	if verr == nil || verr.Errors[0] != "Expected request body to be an object" {
		t.Errorf("unexpected error for list payload: %v", verr)
	}

	la := mustBodyAdapter(t, reflect.TypeOf([]orderIn{}))
	var list []orderIn
	verr = la.parse(jsonRequest(`{"num": 1}`), 0, &list)
	if verr == nil || verr.Errors[0] != "Expected request body to be a list" {
		t.Errorf("unexpected error for object payload: %v", verr)
	}
}

func TestBodyJSON_EmptyBody(t *testing.T) {
	// An empty body is treated as the empty JSON equivalent of the
	// declared shape.
	la := mustBodyAdapter(t, reflect.TypeOf([]orderIn{}))
	var list []orderIn
	if verr := la.parse(jsonRequest(""), 0, &list); verr != nil {
		t.Errorf("unexpected validation error for empty list body: %v", verr)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %v", list)
	}

	a := mustBodyAdapter(t, reflect.TypeOf(orderIn{}))
	var got orderIn
	if verr := a.parse(jsonRequest(""), 0, &got); verr != nil {
		t.Errorf("unexpected validation error for empty object body: %v", verr)
	}
}

func TestBodyList_EmptyArrayValid(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf([]orderIn{}))

	var got []orderIn
	if verr := a.parse(jsonRequest(`[]`), 0, &got); verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if len(got) != 0 {
		t.Errorf("expected empty list, got %v", got)
	}
}

func TestBodyList_ElementErrorsIndexed(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf([]orderIn{}))

	var got []orderIn
	verr := a.parse(jsonRequest(`[{"num": 1, "d": "2022-01-01"}, {"num": "x", "d": "2022-01-01"}]`), 0, &got)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	fe, ok := verr.FieldErrors["1.num"]
	if !ok {
		t.Fatalf("expected field error for 1.num, got %v", verr.FieldErrors)
	}
	if fe.Code != "int_parsing" {
		t.Errorf("1.num code = %q, want int_parsing", fe.Code)
	}
}

func TestBodyList_NonObjectElement(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf([]orderIn{}))

	var got []orderIn
	verr := a.parse(jsonRequest(`[42]`), 0, &got)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	want := "Expected list element 0 to be an object"
	found := false
	for _, msg := range verr.Errors {
		if msg == want {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want to contain %q", verr.Errors, want)
	}
}

func TestBodyForm_Urlencoded(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf(articleIn{}))

	form := url.Values{
		"title": {"first", "second"},
		"tags":  {"go", "http"},
	}
	r := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var got articleIn
	if verr := a.parse(r, 0, &got); verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if got.Title != "first" {
		t.Errorf("Title = %q, want first value %q", got.Title, "first")
	}
	if !reflect.DeepEqual(got.Tags, []string{"go", "http"}) {
		t.Errorf("Tags = %v, want [go http]", got.Tags)
	}
}

func TestBodyForm_ConversionError(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf(orderIn{}))

	form := url.Values{"num": {"x"}, "d": {"2022-01-01"}}
	r := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var got orderIn
	verr := a.parse(r, 0, &got)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	fe, ok := verr.FieldErrors["num"]
	if !ok {
		t.Fatalf("expected field error for num, got %v", verr.FieldErrors)
	}
	if fe.Code != "int_parsing" {
		t.Errorf("num code = %q, want int_parsing", fe.Code)
	}
}

func TestBodyForm_ListBodyRejected(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf([]orderIn{}))

	r := httptest.NewRequest("POST", "/", strings.NewReader("num=1"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var got []orderIn
	verr := a.parse(r, 0, &got)
	if verr == nil || verr.Errors[0] != "Expected request body to be a list" {
		t.Errorf("unexpected error: %v", verr)
	}
}

func TestBodyValidateTags(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf(articleIn{}))

	var got articleIn
	verr := a.parse(jsonRequest(`{"tags": ["go"]}`), 0, &got)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	fe, ok := verr.FieldErrors["title"]
	if !ok {
		t.Fatalf("expected field error for title, got %v", verr.FieldErrors)
	}
	if fe.Code != "missing" {
		t.Errorf("title code = %q, want missing", fe.Code)
	}
	if fe.Message != "Field required" {
		t.Errorf("title message = %q, want 'Field required'", fe.Message)
	}
}

func TestBodyList_ValidateTagsIndexed(t *testing.T) {
	a := mustBodyAdapter(t, reflect.TypeOf([]articleIn{}))

	var got []articleIn
	verr := a.parse(jsonRequest(`[{"title": "ok"}, {"tags": []}]`), 0, &got)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := verr.FieldErrors["1.title"]; !ok {
		t.Errorf("expected field error for 1.title, got %v", verr.FieldErrors)
	}
}
