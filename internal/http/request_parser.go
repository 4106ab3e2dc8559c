// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dorm/internal/core"
	"dorm/internal/roster"
)

// maxBodyBytes bounds form and JSON bodies.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if p.err == nil && len(p.body) > maxBodyBytes {
			p.err = errors.New("request body too large")
		}
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody reads and parses the request body, returning an error response
// when it is malformed.
func parseBody(r *http.Request) (*RequestBodyParser, *HTMXResponseBuilder) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, BadRequestError(msgInvalidRequest)
	}
	return p, nil
}

// studentInput collects the editable student fields from p.
func studentInput(p *RequestBodyParser) core.StudentInput {
	return core.StudentInput{
		Name:        p.Get("name"),
		Department:  core.Department(p.Get("department")),
		StudyLevel:  core.StudyLevel(p.Get("studyLevel")),
		BirthPlace:  p.Get("birthPlace"),
		RoomNumber:  p.Get("roomNumber"),
		FloorNumber: p.Get("floorNumber"),
	}
}

// parseAmount converts a user-entered decimal amount into Money.
func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// parseRosterQuery reads the list parameters q, sort, order and deleted.
func parseRosterQuery(v url.Values) roster.Query {
	deleted, _ := strconv.ParseBool(strings.TrimSpace(v.Get("deleted")))
	return roster.Query{
		Term:    sanitizeInput(v.Get("q")),
		Field:   roster.ParseSortField(v.Get("sort")),
		Order:   roster.ParseSortOrder(v.Get("order")),
		Deleted: deleted,
	}
}

// encodeRosterQuery is the inverse of parseRosterQuery.
func encodeRosterQuery(q roster.Query) string {
	v := url.Values{}
	if q.Term != "" {
		v.Set("q", q.Term)
	}
	v.Set("sort", string(q.Field))
	v.Set("order", string(q.Order))
	if q.Deleted {
		v.Set("deleted", "true")
	}
	return v.Encode()
}

// validationMessage maps input validation errors to the Arabic messages shown
// next to the form.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyName):
		return "الاسم مطلوب."
	case errors.Is(err, core.ErrInvalidDepartment):
		return "الكلية غير صالحة."
	case errors.Is(err, core.ErrInvalidStudyLevel):
		return "المرحلة الدراسية غير صالحة."
	case errors.Is(err, core.ErrEmptyRoom):
		return "رقم الغرفة مطلوب."
	case errors.Is(err, core.ErrEmptyFloor):
		return "رقم الطابق مطلوب."
	case errors.Is(err, core.ErrFieldTooLong):
		return "أحد الحقول طويل جداً."
	case errors.Is(err, core.ErrInvalidAmount):
		return msgInvalidAmount
	default:
		return "البيانات غير صالحة."
	}
}
