package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	in := NewDate(2023, 9, 1)
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2023-09-01"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var out Date
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Equal(in.Time) {
		t.Fatalf("got %v want %v", out, in)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: MaxAmountCents}).Validate(); err != nil {
		t.Fatalf("expected ok at the cap, got %v", err)
	}
	if err := (Money{Cents: MaxAmountCents + 1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount above the cap, got %v", err)
	}
}

func TestLargestPaymentsDoNotOverflowTotal(t *testing.T) {
	big, err := ParseDecimalToCents("10000000000")
	if err != nil {
		t.Fatal(err)
	}
	s := Student{Payments: []Payment{
		{Amount: Money{Cents: big}, Confirmed: true},
		{Amount: Money{Cents: big}, Confirmed: true},
	}}
	if got := s.ConfirmedTotal().Cents; got != 2*MaxAmountCents {
		t.Fatalf("expected %d, got %d", 2*MaxAmountCents, got)
	}
}

func TestNewPaymentDerivesMonthAndYear(t *testing.T) {
	p := NewPayment("payment-1", MoneyFromUnits(300), NewDate(2026, 10, 18))
	if p.Month != "October" || p.Year != 2026 {
		t.Fatalf("got month=%q year=%d", p.Month, p.Year)
	}
	if p.Confirmed {
		t.Fatal("new payments must start unconfirmed")
	}
	if p.Matches("October", 2026) {
		t.Fatal("unconfirmed payment must not match")
	}
	p.Confirmed = true
	if !p.Matches("October", 2026) || p.Matches("September", 2026) || p.Matches("October", 2025) {
		t.Fatal("confirmed payment matching is wrong")
	}
}

func TestStudentInputValidate(t *testing.T) {
	good := StudentInput{
		Name:        "Test",
		Department:  DeptEngineering,
		StudyLevel:  LevelThird,
		BirthPlace:  "الرياض",
		RoomNumber:  "101",
		FloorNumber: "1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*StudentInput)
		want   error
	}{
		{"empty name", func(in *StudentInput) { in.Name = "" }, ErrEmptyName},
		{"unknown department", func(in *StudentInput) { in.Department = "كلية الفلك" }, ErrInvalidDepartment},
		{"unknown level", func(in *StudentInput) { in.StudyLevel = "السنة السابعة" }, ErrInvalidStudyLevel},
		{"empty room", func(in *StudentInput) { in.RoomNumber = "" }, ErrEmptyRoom},
		{"empty floor", func(in *StudentInput) { in.FloorNumber = "" }, ErrEmptyFloor},
		{"long room", func(in *StudentInput) { in.RoomNumber = "12345678901234567" }, ErrFieldTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := good
			tc.mutate(&in)
			if err := in.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v want %v", err, tc.want)
			}
		})
	}
}

func TestStudentCloneDoesNotShareConfirmedFlags(t *testing.T) {
	s := Student{ID: "1", Payments: []Payment{{ID: "p1"}}}
	c := s.Clone()
	c.Payments[0].Confirmed = true
	if s.Payments[0].Confirmed {
		t.Fatal("clone aliases payment storage")
	}
}

func TestStudentCloneKeepsEmptyPaymentsNonNil(t *testing.T) {
	for _, in := range [][]Payment{nil, {}} {
		c := Student{ID: "1", Payments: in}.Clone()
		if c.Payments == nil {
			t.Fatal("clone returned nil payments")
		}
		b, err := json.Marshal(c)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(b), `"payments":[]`) {
			t.Fatalf("expected empty payments array, got %s", b)
		}
	}
}

func TestConfirmedTotal(t *testing.T) {
	s := Student{Payments: []Payment{
		{Amount: MoneyFromUnits(100), Confirmed: true},
		{Amount: MoneyFromUnits(50)},
		{Amount: MoneyFromUnits(25), Confirmed: true},
	}}
	if got := s.ConfirmedTotal(); got.Cents != 12500 {
		t.Fatalf("got %d cents", got.Cents)
	}
}

func TestMonthLabel(t *testing.T) {
	got := MonthLabel(time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC))
	if got != "أكتوبر 2026" {
		t.Fatalf("got %q", got)
	}
}
