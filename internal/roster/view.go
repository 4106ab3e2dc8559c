package roster

import (
	"sort"
	"strings"
	"unicode"

	"dorm/internal/core"
)

// SortField names a column the students list can be ordered by.
type SortField string

const (
	SortByName   SortField = "name"
	SortByDate   SortField = "date"
	SortByRoom   SortField = "room"
	SortByFloor  SortField = "floor"
	SortByAmount SortField = "amount"
)

// SortOrder is either ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Query describes a filtered and sorted students list.
type Query struct {
	Term    string
	Field   SortField
	Order   SortOrder
	Deleted bool
}

// ParseSortField maps user input to a SortField, defaulting to name.
func ParseSortField(s string) SortField {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortByName, SortByDate, SortByRoom, SortByFloor, SortByAmount:
		return f
	default:
		return SortByName
	}
}

// ParseSortOrder maps user input to a SortOrder, defaulting to ascending.
func ParseSortOrder(s string) SortOrder {
	if SortOrder(strings.ToLower(strings.TrimSpace(s))) == Desc {
		return Desc
	}
	return Asc
}

// Toggle returns the opposite order.
func (o SortOrder) Toggle() SortOrder {
	if o == Desc {
		return Asc
	}
	return Desc
}

// View returns the students of snap matching q, in a new slice.
//
// The term matches name or department case-insensitively, or the room number
// as typed. Room and floor sort numerically on their leading integer; values
// without one compare equal to everything.
func View(snap Snapshot, q Query) []core.Student {
	source := snap.Active
	if q.Deleted {
		source = snap.Deleted
	}

	term := strings.ToLower(q.Term)
	out := make([]core.Student, 0, len(source))
	for _, st := range source {
		if strings.Contains(strings.ToLower(st.Name), term) ||
			strings.Contains(strings.ToLower(string(st.Department)), term) ||
			strings.Contains(st.RoomNumber, q.Term) {
			out = append(out, st)
		}
	}

	cmp := comparator(q.Field)
	desc := q.Order == Desc
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func comparator(field SortField) func(a, b core.Student) int {
	switch field {
	case SortByDate:
		return func(a, b core.Student) int {
			return a.DateAdded.Compare(b.DateAdded.Time)
		}
	case SortByRoom:
		return func(a, b core.Student) int {
			return compareLeadingInts(a.RoomNumber, b.RoomNumber)
		}
	case SortByFloor:
		return func(a, b core.Student) int {
			return compareLeadingInts(a.FloorNumber, b.FloorNumber)
		}
	case SortByAmount:
		return func(a, b core.Student) int {
			return compareInt64(a.ConfirmedTotal().Cents, b.ConfirmedTotal().Cents)
		}
	default:
		return func(a, b core.Student) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	}
}

func compareLeadingInts(a, b string) int {
	av, aok := leadingInt(a)
	bv, bok := leadingInt(b)
	if !aok || !bok {
		return 0
	}
	return compareInt64(av, bv)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// leadingInt parses an optional sign and the digits at the start of s, after
// leading whitespace. "12B" yields 12; "B12" yields no value.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		if n > (1<<62)/10 {
			break
		}
		n = n*10 + int64(s[digits]-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
