package roster

import (
	"os"
	"testing"

	"dorm/internal/core"

	"github.com/stretchr/testify/assert"
)

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}

func viewFixture() Snapshot {
	return Snapshot{
		Active: []core.Student{
			{ID: "a", Name: "Zed", Department: core.DeptMedicine, RoomNumber: "10", FloorNumber: "2", DateAdded: core.NewDate(2024, 3, 1),
				Payments: []core.Payment{{Amount: core.MoneyFromUnits(500), Confirmed: true}}},
			{ID: "b", Name: "amy", Department: core.DeptArts, RoomNumber: "9", FloorNumber: "10", DateAdded: core.NewDate(2024, 1, 1)},
			{ID: "c", Name: "Bob", Department: core.DeptEngineering, RoomNumber: "101", FloorNumber: "1", DateAdded: core.NewDate(2024, 2, 1),
				Payments: []core.Payment{{Amount: core.MoneyFromUnits(100), Confirmed: true}, {Amount: core.MoneyFromUnits(900)}}},
		},
		Deleted: []core.Student{
			{ID: "d", Name: "Gone", Department: core.DeptScience, RoomNumber: "5", FloorNumber: "1"},
		},
	}
}

func TestViewSort(t *testing.T) {
	snap := viewFixture()
	cases := []struct {
		name  string
		query Query
		want  []string
	}{
		{"name asc is case-insensitive", Query{Field: SortByName, Order: Asc}, []string{"b", "c", "a"}},
		{"name desc", Query{Field: SortByName, Order: Desc}, []string{"a", "c", "b"}},
		{"room numeric", Query{Field: SortByRoom, Order: Asc}, []string{"b", "a", "c"}},
		{"floor numeric", Query{Field: SortByFloor, Order: Asc}, []string{"c", "a", "b"}},
		{"date", Query{Field: SortByDate, Order: Asc}, []string{"b", "c", "a"}},
		{"amount desc counts confirmed only", Query{Field: SortByAmount, Order: Desc}, []string{"a", "c", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(View(snap, tc.query)))
		})
	}
}

func TestViewRoomNineBeforeTen(t *testing.T) {
	snap := Snapshot{Active: []core.Student{
		{ID: "ten", RoomNumber: "10"},
		{ID: "nine", RoomNumber: "9"},
	}}
	assert.Equal(t, []string{"nine", "ten"}, ids(View(snap, Query{Field: SortByRoom})))
}

func TestViewFilter(t *testing.T) {
	snap := viewFixture()
	assert.Equal(t, []string{"b"}, ids(View(snap, Query{Term: "AMY"})))
	assert.Equal(t, []string{"c"}, ids(View(snap, Query{Term: "الهندسة"})))
	assert.ElementsMatch(t, []string{"a", "c"}, ids(View(snap, Query{Term: "10"})))
	assert.Len(t, View(snap, Query{}), 3)
	assert.Equal(t, []string{"d"}, ids(View(snap, Query{Deleted: true})))
}

func TestViewDoesNotReorderSnapshot(t *testing.T) {
	snap := viewFixture()
	View(snap, Query{Field: SortByRoom})
	assert.Equal(t, []string{"a", "b", "c"}, ids(snap.Active))
}

func TestLeadingInt(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"101", 101, true},
		{" 12B", 12, true},
		{"-3", -3, true},
		{"B12", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := leadingInt(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseSortInputs(t *testing.T) {
	assert.Equal(t, SortByRoom, ParseSortField("Room"))
	assert.Equal(t, SortByName, ParseSortField("bogus"))
	assert.Equal(t, Desc, ParseSortOrder("DESC"))
	assert.Equal(t, Asc, ParseSortOrder(""))
	assert.Equal(t, Asc, Desc.Toggle())
}
