package report

import (
	"strconv"
	"strings"
	"time"

	"dorm/internal/core"
)

// Status labels used by the roster export and the students table.
const (
	StatusActive   = "نشط"
	StatusInactive = "غير نشط"
)

// RosterCSVFilename is the download name of the roster export.
const RosterCSVFilename = "بيانات_الطلاب.csv"

// RosterHeader is the header row of the roster export.
var RosterHeader = []string{"الاسم", "الكلية", "المرحلة الدراسية", "مكان الميلاد", "الغرفة", "الطابق", "إجمالي المدفوع", "الحالة"}

// Status returns the activity label of st for now's calendar month.
func Status(st core.Student, now time.Time) string {
	if IsActive(st, now.Month().String(), now.Year()) {
		return StatusActive
	}
	return StatusInactive
}

// RosterRows returns the header followed by one row per student.
func RosterRows(roster []core.Student, now time.Time) [][]string {
	rows := make([][]string, 0, len(roster)+1)
	rows = append(rows, RosterHeader)
	for _, st := range roster {
		rows = append(rows, []string{
			st.Name,
			string(st.Department),
			string(st.StudyLevel),
			st.BirthPlace,
			st.RoomNumber,
			st.FloorNumber,
			core.FormatPlain(st.ConfirmedTotal()),
			Status(st, now),
		})
	}
	return rows
}

// RosterCSV renders the roster export.
//
// Cells are joined with commas and rows with newlines without quoting, so a
// comma inside a value shifts the remaining columns. Spreadsheets built on
// earlier exports expect exactly this layout.
func RosterCSV(roster []core.Student, now time.Time) string {
	return joinRows(RosterRows(roster, now))
}

// DetailedCSVFilename returns the download name of the detailed report for now.
func DetailedCSVFilename(now time.Time) string {
	return "تقرير_مفصل_" + now.Format("2006-01-02") + ".csv"
}

// DetailedRows lays out rep as the sections of the detailed report.
func DetailedRows(rep core.Report) [][]string {
	blank := []string{""}
	rows := [][]string{
		{"تقرير شامل عن الطلاب"},
		{"تم إنشاؤه في:", rep.GeneratedAt.Format("02/01/2006")},
		blank,
		{"إحصائيات موجزة"},
		{"إجمالي الطلاب:", strconv.Itoa(rep.Summary.Total)},
		{"الطلاب النشطون (الشهر الحالي):", strconv.Itoa(rep.Summary.Active)},
		{"الطلاب غير النشطين:", strconv.Itoa(rep.Summary.Inactive)},
		{"الطلاب المتأخرون في الدفع:", strconv.Itoa(rep.Summary.Behind)},
		blank,
		{"الملخص المالي"},
		{"إجمالي المبلغ المحصل (عام):", core.FormatAmount(rep.Totals.Lifetime)},
		{"إجمالي المبلغ (الشهر الحالي):", core.FormatAmount(rep.Totals.Month)},
		{"إجمالي المبلغ (اليوم):", core.FormatAmount(rep.Totals.Day)},
		blank,
		{"التفصيل الشهري"},
		{"الشهر", "إجمالي المبلغ", "الطلاب النشطون"},
	}
	for _, m := range rep.Months {
		rows = append(rows, []string{m.Label, core.FormatAmount(m.Total), strconv.Itoa(m.Active)})
	}
	rows = append(rows,
		blank,
		[]string{"تفصيل الكليات"},
		[]string{"الكلية", "عدد الطلاب", "إجمالي المدفوع", "الطلاب النشطون"},
	)
	for _, d := range rep.Departments {
		rows = append(rows, []string{string(d.Department), strconv.Itoa(d.Count), core.FormatAmount(d.TotalPaid), strconv.Itoa(d.Active)})
	}
	return rows
}

// DetailedCSV renders the detailed report with the same unquoted joining as RosterCSV.
func DetailedCSV(rep core.Report) string {
	return joinRows(DetailedRows(rep))
}

func joinRows(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, ",")
	}
	return strings.Join(lines, "\n")
}
