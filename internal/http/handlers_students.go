package http

import (
	"errors"
	"html/template"
	"net/http"

	"dorm/internal/core"
	applog "dorm/internal/log"
	"dorm/internal/report"
	"dorm/internal/roster"
	"dorm/internal/services"
)

type sortOption struct {
	Value roster.SortField
	Label string
}

var sortOptions = []sortOption{
	{roster.SortByName, "ترتيب حسب الاسم"},
	{roster.SortByDate, "ترتيب حسب التاريخ"},
	{roster.SortByRoom, "ترتيب حسب الغرفة"},
	{roster.SortByFloor, "ترتيب حسب الطابق"},
	{roster.SortByAmount, "ترتيب حسب المبلغ"},
}

type paymentView struct {
	ID        string
	Amount    string
	Date      string
	Period    string
	Confirmed bool
}

type studentView struct {
	core.Student
	Active   bool
	Status   string
	Total    string
	Payments []paymentView
}

type studentsPageData struct {
	Query        roster.Query
	QueryString  template.URL
	NextOrder    roster.SortOrder
	Summary      core.Summary
	MonthTotal   string
	DeletedCount int
	Students     []studentView
	Choices      []core.Student
	Departments  []core.Department
	StudyLevels  []core.StudyLevel
	SortOptions  []sortOption
}

func (s *Server) studentsData(r *http.Request) studentsPageData {
	now := s.opts.Now()
	q := parseRosterQuery(r.URL.Query())
	rep := s.reports.Report(now)
	month, year := now.Month().String(), now.Year()

	snap := s.roster.Snapshot()
	list := s.roster.List(q)
	views := make([]studentView, 0, len(list))
	for _, st := range list {
		v := studentView{
			Student: st,
			Active:  report.IsActive(st, month, year),
			Status:  report.Status(st, now),
			Total:   core.FormatAmount(st.ConfirmedTotal()),
		}
		for _, p := range st.Payments {
			v.Payments = append(v.Payments, paymentView{
				ID:        p.ID,
				Amount:    core.FormatAmount(p.Amount),
				Date:      p.Date.Format("02/01/2006"),
				Period:    core.MonthLabel(p.Date.Time),
				Confirmed: p.Confirmed,
			})
		}
		views = append(views, v)
	}

	return studentsPageData{
		Query:        q,
		QueryString:  template.URL(encodeRosterQuery(q)),
		NextOrder:    q.Order.Toggle(),
		Summary:      rep.Summary,
		MonthTotal:   core.FormatAmount(rep.Totals.Month),
		DeletedCount: len(snap.Deleted),
		Students:     views,
		Choices:      snap.Active,
		Departments:  core.Departments,
		StudyLevels:  core.StudyLevels,
		SortOptions:  sortOptions,
	}
}

func (s *Server) handleStudentsPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "students.html", s.studentsData(r))
}

// handleStudentsPartial renders the summary cards and the student list, the
// part of the page htmx swaps after every change.
func (s *Server) handleStudentsPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "students_list", s.studentsData(r))
}

// mutated answers a successful change: htmx gets triggers, plain form posts
// are redirected back to the students page.
func (s *Server) mutated(w http.ResponseWriter, r *http.Request, message string, closeForm bool) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/students", http.StatusSeeOther)
		return
	}
	b := NewHTMXResponse().
		TriggerRosterChanged(s.roster.Snapshot().Version).
		TriggerSuccessNotification(message)
	if closeForm {
		b.TriggerFormReset().TriggerModalClose()
	}
	b.BodyHTML(`<div class="success">` + message + `</div>`).Write(w)
}

func invalid(err error) *HTMXResponseBuilder {
	msg := validationMessage(err)
	return UnprocessableEntityError(msg).TriggerErrorNotification(msg)
}

func notFound(msg string) *HTMXResponseBuilder {
	return NotFoundError(msg).TriggerErrorNotification(msg)
}

func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	st, err := s.roster.AddStudent(r.Context(), studentInput(p))
	if err != nil {
		invalid(err).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Student added",
		applog.FieldStudentID, st.ID,
		applog.FieldStudentName, st.Name)
	s.mutated(w, r, msgStudentAdded, true)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	_, ok, err := s.roster.UpdateStudent(r.Context(), p.Get("id"), studentInput(p))
	if err != nil {
		invalid(err).Write(w)
		return
	}
	if !ok {
		notFound(msgStudentNotFound).Write(w)
		return
	}
	s.mutated(w, r, msgStudentUpdated, true)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	if !s.roster.DeleteStudent(r.Context(), p.Get("id")) {
		notFound(msgStudentNotFound).Write(w)
		return
	}
	s.mutated(w, r, msgStudentDeleted, false)
}

func (s *Server) handleRestoreStudent(w http.ResponseWriter, r *http.Request) {
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	if _, err := s.roster.RestoreStudent(r.Context(), p.Get("id")); err != nil {
		if errors.Is(err, services.ErrStudentNotFound) {
			notFound(msgStudentNotFound).Write(w)
			return
		}
		InternalServerError(err.Error()).Write(w)
		return
	}
	s.mutated(w, r, msgStudentRestored, false)
}
