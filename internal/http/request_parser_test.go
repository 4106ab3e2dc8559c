package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"dorm/internal/core"
	"dorm/internal/roster"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"id": "123", "name": "test", "amount": 42.5}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if id := parser.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}
	if amount := parser.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "id=456&name=form+test%01&value=100"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want control characters stripped", name)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := "name=" + strings.Repeat("a", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))

	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Error("Expected an error for an oversized body")
	}
}

func TestRequestBodyParser_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"name":`))
	if _, resp := parseBody(req); resp == nil {
		t.Error("Expected an error response for malformed JSON")
	}
}

func TestStudentInput(t *testing.T) {
	form := url.Values{
		"name":        {"  Layla "},
		"department":  {string(core.DeptArts)},
		"studyLevel":  {string(core.LevelThird)},
		"birthPlace":  {"Taif"},
		"roomNumber":  {"12B"},
		"floorNumber": {"1"},
	}
	req := httptest.NewRequest(http.MethodPost, "/students/add", strings.NewReader(form.Encode()))
	p, resp := parseBody(req)
	if resp != nil {
		t.Fatal("unexpected error response")
	}

	got := studentInput(p)
	if got.Name != "Layla" || got.Department != core.DeptArts || got.RoomNumber != "12B" {
		t.Errorf("studentInput() = %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"300", 30000, false},
		{"12,5", 1250, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseAmount(%q) expected error", tt.in)
				}
				return
			}
			if err != nil || got.Cents != tt.want {
				t.Errorf("parseAmount(%q) = %d, %v; want %d", tt.in, got.Cents, err, tt.want)
			}
		})
	}
}

func TestRosterQueryRoundTrip(t *testing.T) {
	q := parseRosterQuery(url.Values{
		"q":       {"هندسة"},
		"sort":    {"ROOM"},
		"order":   {"desc"},
		"deleted": {"true"},
	})
	want := roster.Query{Term: "هندسة", Field: roster.SortByRoom, Order: roster.Desc, Deleted: true}
	if q != want {
		t.Fatalf("parseRosterQuery() = %+v, want %+v", q, want)
	}

	v, err := url.ParseQuery(encodeRosterQuery(q))
	if err != nil {
		t.Fatal(err)
	}
	if back := parseRosterQuery(v); back != q {
		t.Errorf("round trip = %+v, want %+v", back, q)
	}

	defaults := parseRosterQuery(url.Values{"sort": {"nonsense"}})
	if defaults.Field != roster.SortByName || defaults.Order != roster.Asc || defaults.Deleted {
		t.Errorf("defaults = %+v", defaults)
	}
}

func TestValidationMessage(t *testing.T) {
	for _, err := range []error{core.ErrEmptyName, core.ErrInvalidDepartment, core.ErrInvalidAmount} {
		wrapped := fmt.Errorf("validate student: %w", err)
		if validationMessage(wrapped) == validationMessage(errors.New("other")) {
			t.Errorf("validationMessage(%v) fell back to the generic message", err)
		}
	}
}
