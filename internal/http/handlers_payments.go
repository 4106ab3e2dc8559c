package http

import (
	"bytes"
	"errors"
	"net/http"

	"dorm/internal/core"
	applog "dorm/internal/log"
	"dorm/internal/report"
	"dorm/internal/services"
)

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	amount, err := parseAmount(p.Get("amount"))
	if err != nil {
		invalid(core.ErrInvalidAmount).Write(w)
		return
	}

	payment, err := s.roster.AddPayment(r.Context(), p.Get("studentId"), amount)
	switch {
	case errors.Is(err, services.ErrStudentNotFound):
		notFound(msgStudentNotFound).Write(w)
		return
	case err != nil:
		invalid(err).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Payment added",
		applog.FieldPaymentID, payment.ID,
		applog.FieldAmountCents, payment.Amount.Cents)
	s.mutated(w, r, msgPaymentAdded, true)
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	if !s.roster.ConfirmPayment(r.Context(), p.Get("studentId"), p.Get("paymentId")) {
		notFound(msgPaymentNotFound).Write(w)
		return
	}
	s.mutated(w, r, msgPaymentConfirmed, false)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	if !s.roster.DeletePayment(r.Context(), p.Get("studentId"), p.Get("paymentId")) {
		notFound(msgPaymentNotFound).Write(w)
		return
	}
	s.mutated(w, r, msgPaymentDeleted, false)
}

// handleReceipt renders the printable two-copy receipt for the student's
// latest confirmed payment. Deleted students keep their receipts.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.URL.Query().Get("id"))
	snap := s.roster.Snapshot()
	st, ok := snap.Find(id)
	if !ok {
		st, ok = snap.FindDeleted(id)
	}
	if !ok {
		notFound(msgStudentNotFound).Write(w)
		return
	}

	var buf bytes.Buffer
	err := report.RenderReceipt(&buf, st, s.opts.Now())
	switch {
	case errors.Is(err, report.ErrNoConfirmedPayment):
		UnprocessableEntityError(msgNoConfirmedPayment).
			TriggerErrorNotification(msgNoConfirmedPayment).
			Write(w)
		return
	case err != nil:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Receipt rendering failed",
			applog.FieldError, err,
			applog.FieldStudentID, st.ID,
			applog.FieldOperation, applog.OpRender)
		InternalServerError(msgExportFailed).Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
