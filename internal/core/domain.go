package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DeptMedicine    Department = "كلية الطب"
	DeptEngineering Department = "كلية الهندسة"
	DeptScience     Department = "كلية العلوم"
	DeptArts        Department = "كلية الآداب"
	DeptBusiness    Department = "كلية إدارة الأعمال"
)

const (
	LevelFirst  StudyLevel = "السنة الأولى"
	LevelSecond StudyLevel = "السنة الثانية"
	LevelThird  StudyLevel = "السنة الثالثة"
	LevelFourth StudyLevel = "السنة الرابعة"
	LevelFifth  StudyLevel = "السنة الخامسة"
)

// Departments lists every department in display order.
var Departments = []Department{DeptMedicine, DeptEngineering, DeptScience, DeptArts, DeptBusiness}

// StudyLevels lists every study level in display order.
var StudyLevels = []StudyLevel{LevelFirst, LevelSecond, LevelThird, LevelFourth, LevelFifth}

const dateLayout = "2006-01-02"

type (
	Department string
	StudyLevel string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Payment belongs to exactly one student. Month and Year are derived from Date.
	Payment struct {
		ID        string `json:"id"`
		Amount    Money  `json:"amount"`
		Date      Date   `json:"date"`
		Month     string `json:"month"`
		Year      int    `json:"year"`
		Confirmed bool   `json:"confirmed"`
	}

	Student struct {
		ID          string     `json:"id"`
		Name        string     `json:"name"`
		Department  Department `json:"department"`
		StudyLevel  StudyLevel `json:"studyLevel"`
		BirthPlace  string     `json:"birthPlace"`
		RoomNumber  string     `json:"roomNumber"`
		FloorNumber string     `json:"floorNumber"`
		DateAdded   Date       `json:"dateAdded"`
		Payments    []Payment  `json:"payments"`
	}

	// StudentInput carries the editable fields of a student.
	StudentInput struct {
		Name        string     `json:"name" validate:"required,max=120"`
		Department  Department `json:"department" validate:"department"`
		StudyLevel  StudyLevel `json:"studyLevel" validate:"studylevel"`
		BirthPlace  string     `json:"birthPlace" validate:"max=120"`
		RoomNumber  string     `json:"roomNumber" validate:"required,max=16"`
		FloorNumber string     `json:"floorNumber" validate:"required,max=16"`
	}
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyRoom         = errors.New("empty room number")
	ErrEmptyFloor        = errors.New("empty floor number")
	ErrInvalidDepartment = errors.New("invalid department")
	ErrInvalidStudyLevel = errors.New("invalid study level")
	ErrFieldTooLong      = errors.New("field too long")
)

// IsValid reports whether d is one of the known departments.
func (d Department) IsValid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// IsValid reports whether l is one of the known study levels.
func (l StudyLevel) IsValid() bool {
	for _, known := range StudyLevels {
		if l == known {
			return true
		}
	}
	return false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// SameDay reports whether d falls on the calendar day of t.
func (d Date) SameDay(t time.Time) bool {
	y1, m1, d1 := d.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MaxAmountCents caps a single payment so that roster totals cannot overflow.
const MaxAmountCents int64 = 1_000_000_000_000

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of m and o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cents)
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Cents)
}

// NewPayment builds an unconfirmed payment dated on day with derived month and year.
func NewPayment(id string, amount Money, day Date) Payment {
	return Payment{
		ID:     id,
		Amount: amount,
		Date:   day,
		Month:  day.Time.Month().String(),
		Year:   day.Time.Year(),
	}
}

// Matches reports whether p is a confirmed payment for the given month name and year.
func (p Payment) Matches(month string, year int) bool {
	return p.Confirmed && p.Month == month && p.Year == year
}

// Apply overwrites the editable fields of s with in.
func (s Student) Apply(in StudentInput) Student {
	s.Name = in.Name
	s.Department = in.Department
	s.StudyLevel = in.StudyLevel
	s.BirthPlace = in.BirthPlace
	s.RoomNumber = in.RoomNumber
	s.FloorNumber = in.FloorNumber
	return s
}

// Input returns the editable fields of s.
func (s Student) Input() StudentInput {
	return StudentInput{
		Name:        s.Name,
		Department:  s.Department,
		StudyLevel:  s.StudyLevel,
		BirthPlace:  s.BirthPlace,
		RoomNumber:  s.RoomNumber,
		FloorNumber: s.FloorNumber,
	}
}

// Clone returns a copy of s that shares no payment storage with it. The
// copy's payments are never nil.
func (s Student) Clone() Student {
	s.Payments = append(make([]Payment, 0, len(s.Payments)), s.Payments...)
	return s
}

// ConfirmedTotal sums the amounts of all confirmed payments of s.
func (s Student) ConfirmedTotal() Money {
	var total Money
	for _, p := range s.Payments {
		if p.Confirmed {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// PaymentByID returns the payment with the given id.
func (s Student) PaymentByID(id string) (Payment, bool) {
	for _, p := range s.Payments {
		if p.ID == id {
			return p, true
		}
	}
	return Payment{}, false
}
