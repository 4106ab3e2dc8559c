package core

import "time"

var arabicMonths = [...]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

// ArabicMonth returns the Arabic long name of m.
func ArabicMonth(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return arabicMonths[m-1]
}

// MonthLabel returns the Arabic month name followed by the year, e.g. "أكتوبر 2026".
func MonthLabel(t time.Time) string {
	return ArabicMonth(t.Month()) + " " + t.Format("2006")
}

// Summary holds head counts for the current month.
// Behind always equals Inactive.
type Summary struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Behind   int `json:"behind"`
}

// Totals holds confirmed payment sums.
type Totals struct {
	Lifetime Money `json:"lifetime"`
	Month    Money `json:"month"`
	Day      Money `json:"day"`
}

// MonthBreakdown is one entry of the trailing twelve-month table.
type MonthBreakdown struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Label  string     `json:"label"`
	Total  Money      `json:"total"`
	Active int        `json:"active"`
}

// DepartmentStats is the rollup for a single department.
type DepartmentStats struct {
	Department Department `json:"department"`
	Count      int        `json:"count"`
	TotalPaid  Money      `json:"totalPaid"`
	Active     int        `json:"active"`
}

// Report is the complete derived view of a roster at a point in time.
type Report struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Summary     Summary           `json:"summary"`
	Totals      Totals            `json:"totals"`
	Months      []MonthBreakdown  `json:"months"`
	Departments []DepartmentStats `json:"departments"`
}
