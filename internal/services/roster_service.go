// Package services orchestrates roster mutations across the in-memory store,
// SQLite persistence and AMQP event publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"dorm/internal/amqp"
	"dorm/internal/core"
	applog "dorm/internal/log"
	"dorm/internal/roster"
)

// ErrStudentNotFound is returned when an operation needs a student record
// that does not exist.
var ErrStudentNotFound = errors.New("student not found")

type (
	// Persister stores a complete roster snapshot.
	Persister interface {
		SaveSnapshot(ctx context.Context, snap roster.Snapshot) error
	}

	// Publisher announces roster changes.
	Publisher interface {
		PublishRosterEvent(ctx context.Context, msg *amqp.RosterEvent) error
	}
)

// MutationStats counts roster changes and side-effect failures.
type MutationStats struct {
	Mutations       uint64
	PersistFailures uint64
	PublishFailures uint64
}

// RosterService applies roster mutations. Each changing mutation is followed
// by a snapshot save and an event; failures of either are logged and never
// fail the mutation itself.
type RosterService struct {
	store     *roster.Store
	persister Persister
	publisher Publisher
	logger    *applog.Logger
	audit     *applog.StructuredLogger

	mutations       atomic.Uint64
	persistFailures atomic.Uint64
	publishFailures atomic.Uint64
}

// NewRosterService wires the store to its optional side effects. persister
// and publisher may be nil.
func NewRosterService(store *roster.Store, persister Persister, publisher Publisher, logger *applog.Logger) *RosterService {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentRoster)
	return &RosterService{
		store:     store,
		persister: persister,
		publisher: publisher,
		logger:    logger,
		audit:     applog.NewStructuredLogger(logger),
	}
}

// Snapshot returns the current rosters.
func (s *RosterService) Snapshot() roster.Snapshot {
	return s.store.Snapshot()
}

// List returns the filtered and sorted students for q.
func (s *RosterService) List(q roster.Query) []core.Student {
	return roster.View(s.store.Snapshot(), q)
}

// Find returns the active student with id.
func (s *RosterService) Find(id string) (core.Student, bool) {
	return s.store.Snapshot().Find(id)
}

// Stats returns mutation counters.
func (s *RosterService) Stats() MutationStats {
	return MutationStats{
		Mutations:       s.mutations.Load(),
		PersistFailures: s.persistFailures.Load(),
		PublishFailures: s.publishFailures.Load(),
	}
}

// AddStudent validates in and appends a new student.
func (s *RosterService) AddStudent(ctx context.Context, in core.StudentInput) (core.Student, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Student{}, fmt.Errorf("validate student: %w", err)
	}
	st, snap := s.store.AddStudent(in)
	s.changed(ctx, snap, applog.OpCreate, amqp.NewRosterEvent(amqp.EventStudentAdded, st.ID, snap.Version))
	return st, nil
}

// UpdateStudent replaces the editable fields of the student with id. Unknown
// ids are a no-op and report false.
func (s *RosterService) UpdateStudent(ctx context.Context, id string, in core.StudentInput) (core.Student, bool, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Student{}, false, fmt.Errorf("validate student: %w", err)
	}
	st, ok, snap := s.store.EditStudent(id, in)
	if !ok {
		return core.Student{}, false, nil
	}
	s.changed(ctx, snap, applog.OpUpdate, amqp.NewRosterEvent(amqp.EventStudentUpdated, id, snap.Version))
	return st, true, nil
}

// DeleteStudent moves the student to the deleted roster. Unknown ids are a
// no-op and report false.
func (s *RosterService) DeleteStudent(ctx context.Context, id string) bool {
	before := s.store.Snapshot().Version
	snap := s.store.DeleteStudent(id)
	if snap.Version == before {
		return false
	}
	s.changed(ctx, snap, applog.OpDelete, amqp.NewRosterEvent(amqp.EventStudentDeleted, id, snap.Version))
	return true
}

// RestoreStudent moves the deleted student with id back to the active roster.
func (s *RosterService) RestoreStudent(ctx context.Context, id string) (core.Student, error) {
	st, ok := s.store.Snapshot().FindDeleted(id)
	if !ok {
		return core.Student{}, ErrStudentNotFound
	}
	snap := s.store.RestoreStudent(st)
	s.changed(ctx, snap, applog.OpRestore, amqp.NewRosterEvent(amqp.EventStudentRestored, id, snap.Version))
	return st, nil
}

// AddPayment records an unconfirmed payment for the student.
func (s *RosterService) AddPayment(ctx context.Context, studentID string, amount core.Money) (core.Payment, error) {
	if err := amount.Validate(); err != nil {
		return core.Payment{}, err
	}
	p, snap := s.store.AddPayment(studentID, amount)
	if p.ID == "" {
		return core.Payment{}, ErrStudentNotFound
	}
	ev := amqp.NewRosterEvent(amqp.EventPaymentAdded, studentID, snap.Version).WithPayment(p.ID, amount.Cents)
	s.changed(ctx, snap, applog.OpCreate, ev)
	return p, nil
}

// ConfirmPayment marks the payment as confirmed. It reports whether the
// payment was found.
func (s *RosterService) ConfirmPayment(ctx context.Context, studentID, paymentID string) bool {
	before := s.store.Snapshot().Version
	snap := s.store.ConfirmPayment(studentID, paymentID)
	if snap.Version == before {
		return false
	}
	ev := amqp.NewRosterEvent(amqp.EventPaymentConfirmed, studentID, snap.Version).WithPayment(paymentID, 0)
	if st, ok := snap.Find(studentID); ok {
		if p, ok := st.PaymentByID(paymentID); ok {
			ev.AmountCents = p.Amount.Cents
		}
	}
	s.changed(ctx, snap, applog.OpConfirm, ev)
	return true
}

// DeletePayment removes the payment. It reports whether the payment was found.
func (s *RosterService) DeletePayment(ctx context.Context, studentID, paymentID string) bool {
	var amount int64
	if st, ok := s.store.Snapshot().Find(studentID); ok {
		if p, ok := st.PaymentByID(paymentID); ok {
			amount = p.Amount.Cents
		}
	}
	before := s.store.Snapshot().Version
	snap := s.store.DeletePayment(studentID, paymentID)
	if snap.Version == before {
		return false
	}
	ev := amqp.NewRosterEvent(amqp.EventPaymentDeleted, studentID, snap.Version).WithPayment(paymentID, amount)
	s.changed(ctx, snap, applog.OpDelete, ev)
	return true
}

func (s *RosterService) changed(ctx context.Context, snap roster.Snapshot, op string, ev *amqp.RosterEvent) {
	s.mutations.Add(1)
	s.audit.LogMutation(ctx, op, ev.StudentID, ev.PaymentID, snap.Version)

	if s.persister != nil {
		if err := s.persister.SaveSnapshot(ctx, snap); err != nil {
			s.persistFailures.Add(1)
			s.logger.ErrorContext(ctx, "Failed to persist roster snapshot",
				applog.FieldVersion, snap.Version,
				applog.FieldError, err)
		}
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRosterEvent(ctx, ev); err != nil {
		s.publishFailures.Add(1)
		s.logger.ErrorContext(ctx, "Failed to publish roster event",
			applog.FieldEventType, ev.Type,
			applog.FieldStudentID, ev.StudentID,
			applog.FieldError, err)
	}
}

// Close closes the persister and publisher when they hold connections.
func (s *RosterService) Close() error {
	var errs []error

	if c, ok := s.persister.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close roster service: %w", err)
	}
	return nil
}
