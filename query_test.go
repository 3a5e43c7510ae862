package apidec

import (
	"net/url"
	"reflect"
	"testing"
	"time"
)

type searchQuery struct {
	Q       string
	Limit   int `default:"20"`
	OptNum  *int
	Page    int  `query:"p" default:"1"`
	ShowAll bool `default:"false"`
	Since   time.Time
}

func TestBuildQueryModel(t *testing.T) {
	model, err := buildQueryModel(reflect.TypeOf(searchQuery{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := model.paramNames()
	want := []string{"q", "limit", "opt-num", "p", "show-all", "since"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("paramNames() = %v, want %v", names, want)
	}

	byAlias := map[string]queryField{}
	for _, f := range model.fields {
		byAlias[f.alias] = f
	}
	if !byAlias["q"].required {
		t.Error("expected q to be required")
	}
	if byAlias["limit"].required {
		t.Error("expected limit to be optional (has default)")
	}
	if !byAlias["limit"].hasDef || byAlias["limit"].def.Interface() != 20 {
		t.Errorf("expected limit default 20, got %v", byAlias["limit"].def)
	}
	if byAlias["opt-num"].required {
		t.Error("expected opt-num (pointer) to be optional")
	}
}

func TestBuildQueryModel_Empty(t *testing.T) {
	model, err := buildQueryModel(reflect.TypeOf(NoQuery{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.fields) != 0 {
		t.Errorf("expected zero fields, got %d", len(model.fields))
	}
	if _, verr := model.parse(url.Values{"anything": {"x"}}); verr != nil {
		t.Errorf("unexpected validation error: %v", verr)
	}
}

func TestBuildQueryModel_Errors(t *testing.T) {
	if _, err := buildQueryModel(reflect.TypeOf(0)); err == nil {
		t.Error("expected error for non-struct type")
	}

	type badField struct {
		M map[string]int
	}
	if _, err := buildQueryModel(reflect.TypeOf(badField{})); err == nil {
		t.Error("expected error for unsupported field type")
	}

	type badOptional struct {
		P *struct{ A int }
	}
	if _, err := buildQueryModel(reflect.TypeOf(badOptional{})); err == nil {
		t.Error("expected error for optional wrapping a non-scalar")
	}

	type badDefault struct {
		N int `default:"abc"`
	}
	if _, err := buildQueryModel(reflect.TypeOf(badDefault{})); err == nil {
		t.Error("expected error for unparseable default literal")
	}
}

func TestQueryParse_RequiredMissing(t *testing.T) {
	model, err := buildQueryModel(reflect.TypeOf(searchQuery{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, verr := model.parse(url.Values{"since": {"2022-01-01"}})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	fe, ok := verr.FieldErrors["q"]
	if !ok {
		t.Fatalf("expected field error for q, got %v", verr.FieldErrors)
	}
	if fe.Code != "missing" {
		t.Errorf("expected code 'missing', got %q", fe.Code)
	}
	if fe.Message != "Query parameter q must be specified" {
		t.Errorf("unexpected message %q", fe.Message)
	}
}

func TestQueryParse_Success(t *testing.T) {
	model, err := buildQueryModel(reflect.TypeOf(searchQuery{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, verr := model.parse(url.Values{
		"q":       {"hello"},
		"opt-num": {"7"},
		"p":       {"2"},
		"since":   {"2022-01-01"},
	})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}

	got := val.Interface().(searchQuery)
	if got.Q != "hello" {
		t.Errorf("Q = %q, want %q", got.Q, "hello")
	}
	if got.Limit != 20 {
		t.Errorf("Limit = %d, want default 20", got.Limit)
	}
	if got.OptNum == nil || *got.OptNum != 7 {
		t.Errorf("OptNum = %v, want 7", got.OptNum)
	}
	if got.Page != 2 {
		t.Errorf("Page = %d, want 2", got.Page)
	}
	if got.Since.Format(time.DateOnly) != "2022-01-01" {
		t.Errorf("Since = %v, want 2022-01-01", got.Since)
	}
}

func TestQueryParse_OptionalAbsent(t *testing.T) {
	model, err := buildQueryModel(reflect.TypeOf(searchQuery{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, verr := model.parse(url.Values{"q": {"x"}, "since": {"2022-01-01"}})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	got := val.Interface().(searchQuery)
	if got.OptNum != nil {
		t.Errorf("expected nil OptNum, got %v", *got.OptNum)
	}
}

func TestQueryParse_RepeatedKeyUsesFirst(t *testing.T) {
	type q struct {
		N int
	}
	model, err := buildQueryModel(reflect.TypeOf(q{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, verr := model.parse(url.Values{"n": {"1", "2"}})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if got := val.Interface().(q).N; got != 1 {
		t.Errorf("N = %d, want first value 1", got)
	}
}

func TestQueryParse_AllErrorsReported(t *testing.T) {
	type q struct {
		A int
		B time.Time
	}
	model, err := buildQueryModel(reflect.TypeOf(q{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, verr := model.parse(url.Values{"a": {"x"}, "b": {"not-a-date"}})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.FieldErrors) != 2 {
		t.Fatalf("expected 2 field errors, got %v", verr.FieldErrors)
	}
	if verr.FieldErrors["a"].Code != "int_parsing" {
		t.Errorf("a code = %q, want int_parsing", verr.FieldErrors["a"].Code)
	}
	if verr.FieldErrors["b"].Code != "date_parsing" {
		t.Errorf("b code = %q, want date_parsing", verr.FieldErrors["b"].Code)
	}
}

func TestParseQueryBool(t *testing.T) {
	truthy := []string{"", "yes", "on", "true", "1", "YES", "On", "TRUE"}
	for _, raw := range truthy {
		v, ok := parseQueryBool(raw)
		if !ok || !v {
			t.Errorf("parseQueryBool(%q) = %v, %v; want true, true", raw, v, ok)
		}
	}

	falsy := []string{"no", "off", "false", "0", "NO", "Off", "FALSE"}
	for _, raw := range falsy {
		v, ok := parseQueryBool(raw)
		if !ok || v {
			t.Errorf("parseQueryBool(%q) = %v, %v; want false, true", raw, v, ok)
		}
	}

	for _, raw := range []string{"maybe", "2", "truex"} {
		if _, ok := parseQueryBool(raw); ok {
			t.Errorf("parseQueryBool(%q) should fail", raw)
		}
	}
}

func TestQueryParse_BareFlagIsTrue(t *testing.T) {
	type q struct {
		Flag bool `default:"false"`
	}
	model, err := buildQueryModel(reflect.TypeOf(q{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// ?flag with no value arrives as an empty string.
	val, verr := model.parse(url.Values{"flag": {""}})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if !val.Interface().(q).Flag {
		t.Error("expected bare flag to parse as true")
	}

	val, verr = model.parse(url.Values{})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if val.Interface().(q).Flag {
		t.Error("expected absent flag to keep its false default")
	}
}

func TestKebabCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"OptNum", "opt-num"},
		{"UserID", "user-id"},
		{"Q", "q"},
		{"ShowAll", "show-all"},
		{"HTTPTimeout", "http-timeout"},
		{"Limit", "limit"},
	}
	for _, tt := range tests {
		if got := kebabCase(tt.in); got != tt.want {
			t.Errorf("kebabCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
