package http

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"dorm/internal/core"
	applog "dorm/internal/log"
	"dorm/internal/report"
)

const utf8BOM = "\ufeff"

type monthRow struct {
	Label  string
	Total  string
	Active int
	Width  int
}

type departmentCard struct {
	Department core.Department
	Count      int
	Active     int
	TotalPaid  string
}

type reportsPageData struct {
	GeneratedAt string
	Summary     core.Summary
	Lifetime    string
	Month       string
	Day         string
	Months      []monthRow
	Departments []departmentCard
}

func (s *Server) handleReportsPage(w http.ResponseWriter, r *http.Request) {
	rep := s.reports.Report(s.opts.Now())

	var maxCents int64
	for _, m := range rep.Months {
		if m.Total.Cents > maxCents {
			maxCents = m.Total.Cents
		}
	}
	months := make([]monthRow, 0, len(rep.Months))
	for _, m := range rep.Months {
		width := 0
		if maxCents > 0 {
			width = int(float64(m.Total.Cents) / float64(maxCents) * 100)
		}
		months = append(months, monthRow{
			Label:  m.Label,
			Total:  core.FormatAmount(m.Total),
			Active: m.Active,
			Width:  width,
		})
	}

	depts := make([]departmentCard, 0, len(rep.Departments))
	for _, d := range rep.Departments {
		depts = append(depts, departmentCard{
			Department: d.Department,
			Count:      d.Count,
			Active:     d.Active,
			TotalPaid:  core.FormatAmount(d.TotalPaid),
		})
	}

	s.render(w, r, http.StatusOK, "reports.html", reportsPageData{
		GeneratedAt: rep.GeneratedAt.Format("02/01/2006 15:04"),
		Summary:     rep.Summary,
		Lifetime:    core.FormatAmount(rep.Totals.Lifetime),
		Month:       core.FormatAmount(rep.Totals.Month),
		Day:         core.FormatAmount(rep.Totals.Day),
		Months:      months,
		Departments: depts,
	})
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	now := s.opts.Now()
	rep := s.reports.Report(now)
	s.logExport(r, "detailed_csv", rep.Summary.Total)
	writeCSV(w, "report_"+now.Format("2006-01-02")+".csv", report.DetailedCSVFilename(now), report.DetailedCSV(rep))
}

func (s *Server) handleRosterCSV(w http.ResponseWriter, r *http.Request) {
	now := s.opts.Now()
	students := s.roster.Snapshot().Active
	s.logExport(r, "roster_csv", len(students))
	writeCSV(w, "students.csv", report.RosterCSVFilename, report.RosterCSV(students, now))
}

// handleRosterXLSX serves the roster export as a workbook. The list follows
// the page's current search and sort.
func (s *Server) handleRosterXLSX(w http.ResponseWriter, r *http.Request) {
	q := parseRosterQuery(r.URL.Query())
	q.Deleted = false
	students := s.roster.List(q)

	var buf bytes.Buffer
	if err := report.WriteRosterXLSX(&buf, students, s.opts.Now()); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Workbook export failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpExport)
		InternalServerError(msgExportFailed).TriggerErrorNotification(msgExportFailed).Write(w)
		return
	}
	s.logExport(r, "roster_xlsx", len(students))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment("students.xlsx", report.RosterXLSXFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) logExport(r *http.Request, kind string, rows int) {
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Export generated",
		applog.FieldOperation, applog.OpExport,
		"export", kind,
		"rows", rows)
}

// writeCSV serves body with a byte order mark so spreadsheet programs detect
// UTF-8 and render Arabic text.
func writeCSV(w http.ResponseWriter, fallback, name, body string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(fallback, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(utf8BOM + body))
}

// attachment builds a Content-Disposition value carrying an ASCII fallback
// and the real UTF-8 file name (RFC 6266).
func attachment(fallback, name string) string {
	encoded := strings.ReplaceAll(url.PathEscape(name), "+", "%2B")
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, encoded)
}
