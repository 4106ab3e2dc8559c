package report

import (
	"strings"
	"testing"

	"dorm/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterCSV(t *testing.T) {
	roster := fixtureRoster()
	roster[0].Name = "Test"
	roster[0].BirthPlace = "جدة"

	lines := strings.Split(RosterCSV(roster, fixedNow), "\n")
	require.Len(t, lines, len(roster)+1)

	assert.Equal(t, strings.Join(RosterHeader, ","), lines[0])
	assert.Equal(t, "Test,كلية الهندسة,السنة الأولى,جدة,101,1,450,نشط", lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",250,غير نشط"))
	assert.True(t, strings.HasSuffix(lines[3], ",0,غير نشط"))
}

func TestRosterCSV_NewStudentIsInactive(t *testing.T) {
	st := student("new", core.DeptScience)
	st.Name = "Test"

	rows := RosterRows([]core.Student{st}, fixedNow)
	require.Len(t, rows, 2)
	assert.Equal(t, StatusInactive, rows[1][len(rows[1])-1])
}

func TestRosterCSV_CommaInValueIsNotQuoted(t *testing.T) {
	st := student("1", core.DeptScience)
	st.BirthPlace = "القاهرة, مصر"

	lines := strings.Split(RosterCSV([]core.Student{st}, fixedNow), "\n")
	assert.Len(t, strings.Split(lines[1], ","), len(RosterHeader)+1)
	assert.NotContains(t, lines[1], `"`)
}

func TestRosterCSV_FractionalTotal(t *testing.T) {
	p := core.NewPayment("p", core.Money{Cents: 123450}, core.DateOf(fixedNow))
	p.Confirmed = true
	st := student("1", core.DeptScience, p)

	rows := RosterRows([]core.Student{st}, fixedNow)
	assert.Equal(t, "1234.5", rows[1][6])
}

func TestDetailedCSVFilename(t *testing.T) {
	assert.Equal(t, "تقرير_مفصل_2026-10-18.csv", DetailedCSVFilename(fixedNow))
}

func TestDetailedRows(t *testing.T) {
	rep := Compute(fixtureRoster(), fixedNow)
	rows := DetailedRows(rep)

	assert.Equal(t, []string{"تقرير شامل عن الطلاب"}, rows[0])
	assert.Equal(t, []string{"تم إنشاؤه في:", "18/10/2026"}, rows[1])
	assert.Equal(t, []string{""}, rows[2])
	assert.Equal(t, []string{"إجمالي الطلاب:", "4"}, rows[4])
	assert.Equal(t, []string{"الطلاب المتأخرون في الدفع:", "2"}, rows[7])
	assert.Equal(t, []string{"إجمالي المبلغ المحصل (عام):", "1,200"}, rows[10])
	assert.Equal(t, []string{"إجمالي المبلغ (الشهر الحالي):", "800"}, rows[11])
	assert.Equal(t, []string{"إجمالي المبلغ (اليوم):", "500"}, rows[12])

	monthHeader := 15
	assert.Equal(t, []string{"الشهر", "إجمالي المبلغ", "الطلاب النشطون"}, rows[monthHeader])
	assert.Equal(t, []string{"أكتوبر 2026", "800", "2"}, rows[monthHeader+BreakdownMonths])

	deptHeader := monthHeader + BreakdownMonths + 3
	assert.Equal(t, []string{"تفصيل الكليات"}, rows[deptHeader-1])
	assert.Equal(t, []string{string(core.DeptEngineering), "2", "450", "1"}, rows[deptHeader+1])
	assert.Len(t, rows, deptHeader+1+len(rep.Departments))
}

func TestDetailedCSV_GroupedAmountsSplitColumns(t *testing.T) {
	rep := Compute(fixtureRoster(), fixedNow)
	lines := strings.Split(DetailedCSV(rep), "\n")
	assert.Equal(t, "إجمالي المبلغ المحصل (عام):,1,200", lines[10])
}
