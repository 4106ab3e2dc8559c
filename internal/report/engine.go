// Package report derives read-only views from a roster: head counts,
// payment totals, the trailing twelve-month table, per-department rollups and
// the CSV, XLSX and receipt documents built from them.
//
// Every function is a pure function of its inputs. Callers sample "now" once
// and pass the same value to every function of one pass.
package report

import (
	"time"

	"dorm/internal/core"
)

// BreakdownMonths is the length of the trailing month table.
const BreakdownMonths = 12

// IsActive reports whether st has a confirmed payment for the given month name and year.
func IsActive(st core.Student, month string, year int) bool {
	for _, p := range st.Payments {
		if p.Matches(month, year) {
			return true
		}
	}
	return false
}

// CountActive counts the students active in the given month and year.
func CountActive(roster []core.Student, month string, year int) int {
	n := 0
	for _, st := range roster {
		if IsActive(st, month, year) {
			n++
		}
	}
	return n
}

// Summarize computes head counts for now's calendar month.
func Summarize(roster []core.Student, now time.Time) core.Summary {
	active := CountActive(roster, now.Month().String(), now.Year())
	inactive := len(roster) - active
	return core.Summary{
		Total:    len(roster),
		Active:   active,
		Inactive: inactive,
		Behind:   inactive,
	}
}

// LifetimeTotal sums every confirmed payment of every student.
func LifetimeTotal(roster []core.Student) core.Money {
	var total core.Money
	for _, st := range roster {
		total = total.Add(st.ConfirmedTotal())
	}
	return total
}

// MonthTotal sums, per student, the first confirmed payment matching month
// and year. Further matching payments of the same student are not counted;
// published figures have always been computed this way.
func MonthTotal(roster []core.Student, month string, year int) core.Money {
	var total core.Money
	for _, st := range roster {
		for _, p := range st.Payments {
			if p.Matches(month, year) {
				total = total.Add(p.Amount)
				break
			}
		}
	}
	return total
}

// DailyTotal sums every confirmed payment dated on now's calendar day.
func DailyTotal(roster []core.Student, now time.Time) core.Money {
	var total core.Money
	for _, st := range roster {
		for _, p := range st.Payments {
			if p.Confirmed && p.Date.SameDay(now) {
				total = total.Add(p.Amount)
			}
		}
	}
	return total
}

// ComputeTotals returns the lifetime, current-month and current-day totals.
func ComputeTotals(roster []core.Student, now time.Time) core.Totals {
	return core.Totals{
		Lifetime: LifetimeTotal(roster),
		Month:    MonthTotal(roster, now.Month().String(), now.Year()),
		Day:      DailyTotal(roster, now),
	}
}

// Breakdown returns the twelve calendar months ending with now's month,
// oldest first.
func Breakdown(roster []core.Student, now time.Time) []core.MonthBreakdown {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]core.MonthBreakdown, 0, BreakdownMonths)
	for i := BreakdownMonths - 1; i >= 0; i-- {
		m := first.AddDate(0, -i, 0)
		name := m.Month().String()
		out = append(out, core.MonthBreakdown{
			Year:   m.Year(),
			Month:  m.Month(),
			Label:  core.MonthLabel(m),
			Total:  MonthTotal(roster, name, m.Year()),
			Active: CountActive(roster, name, m.Year()),
		})
	}
	return out
}

// Departments groups the roster by department in order of first appearance.
func Departments(roster []core.Student, now time.Time) []core.DepartmentStats {
	month, year := now.Month().String(), now.Year()
	index := make(map[core.Department]int)
	var out []core.DepartmentStats
	for _, st := range roster {
		i, ok := index[st.Department]
		if !ok {
			i = len(out)
			index[st.Department] = i
			out = append(out, core.DepartmentStats{Department: st.Department})
		}
		out[i].Count++
		out[i].TotalPaid = out[i].TotalPaid.Add(st.ConfirmedTotal())
		if IsActive(st, month, year) {
			out[i].Active++
		}
	}
	return out
}

// Compute builds the complete report for roster at now.
func Compute(roster []core.Student, now time.Time) core.Report {
	return core.Report{
		GeneratedAt: now,
		Summary:     Summarize(roster, now),
		Totals:      ComputeTotals(roster, now),
		Months:      Breakdown(roster, now),
		Departments: Departments(roster, now),
	}
}
