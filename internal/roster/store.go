// Package roster holds the authoritative student rosters.
//
// The Store keeps an active roster and a parallel deleted roster. Every
// mutation that changes state builds new slices and publishes a new Snapshot
// with a higher Version; operations that reference unknown ids are silent
// no-ops and return the current snapshot unchanged. Snapshots are immutable by
// contract: callers must not modify the slices they receive.
package roster

import (
	"sync"
	"time"

	"dorm/internal/core"

	"github.com/google/uuid"
)

// Snapshot is an immutable view of both rosters.
type Snapshot struct {
	Active  []core.Student
	Deleted []core.Student
	Version uint64
}

// Find returns the active student with the given id.
func (s Snapshot) Find(id string) (core.Student, bool) {
	return find(s.Active, id)
}

// FindDeleted returns the deleted student with the given id.
func (s Snapshot) FindDeleted(id string) (core.Student, bool) {
	return find(s.Deleted, id)
}

func find(list []core.Student, id string) (core.Student, bool) {
	for _, st := range list {
		if st.ID == id {
			return st, true
		}
	}
	return core.Student{}, false
}

// Store owns the rosters and serializes mutations.
type Store struct {
	mu    sync.Mutex
	snap  Snapshot
	now   func() time.Time
	newID func(prefix string) string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for creation and payment dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the id source. The generator receives "student"
// or "payment" and must return ids that are never reused.
func WithIDGenerator(gen func(prefix string) string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates a store holding the given active students.
func New(active []core.Student, opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: timeOrderedID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap = Snapshot{Active: cloneAll(active), Deleted: []core.Student{}}
	return s
}

// FromSnapshot creates a store holding a persisted snapshot. The version is
// kept so that versions stay monotonic across restarts.
func FromSnapshot(snap Snapshot, opts ...Option) *Store {
	s := New(snap.Active, opts...)
	s.snap.Deleted = cloneAll(snap.Deleted)
	s.snap.Version = snap.Version
	return s
}

// timeOrderedID returns prefix-<uuid v7>. Version 7 UUIDs are ordered by
// creation time and unique within the same millisecond.
func timeOrderedID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "-" + id.String()
}

func cloneAll(list []core.Student) []core.Student {
	out := make([]core.Student, len(list))
	for i, st := range list {
		out[i] = st.Clone()
	}
	return out
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// commit publishes a new snapshot. Callers hold mu.
func (s *Store) commit(active, deleted []core.Student) Snapshot {
	s.snap = Snapshot{Active: active, Deleted: deleted, Version: s.snap.Version + 1}
	return s.snap
}

func (s *Store) today() core.Date {
	return core.DateOf(s.now())
}

// AddStudent appends a new student with a fresh id, no payments and today's date.
func (s *Store) AddStudent(in core.StudentInput) (core.Student, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := core.Student{
		ID:        s.newID("student"),
		DateAdded: s.today(),
		Payments:  []core.Payment{},
	}.Apply(in)

	active := make([]core.Student, 0, len(s.snap.Active)+1)
	active = append(active, s.snap.Active...)
	active = append(active, st)
	return st, s.commit(active, s.snap.Deleted)
}

// UpdateStudent replaces the active student carrying st.ID. Unknown ids are ignored.
func (s *Store) UpdateStudent(st core.Student) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.snap.Active, st.ID)
	if idx < 0 {
		return s.snap
	}
	active := append([]core.Student(nil), s.snap.Active...)
	active[idx] = st.Clone()
	return s.commit(active, s.snap.Deleted)
}

// EditStudent applies the editable fields in to the active student with id.
// Payments and creation date are kept. It reports whether the student exists.
func (s *Store) EditStudent(id string, in core.StudentInput) (core.Student, bool, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.snap.Active, id)
	if idx < 0 {
		return core.Student{}, false, s.snap
	}
	st := s.snap.Active[idx].Apply(in)
	active := append([]core.Student(nil), s.snap.Active...)
	active[idx] = st
	return st, true, s.commit(active, s.snap.Deleted)
}

// DeleteStudent moves the student from the active to the deleted roster.
func (s *Store) DeleteStudent(id string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.snap.Active, id)
	if idx < 0 {
		return s.snap
	}
	st := s.snap.Active[idx]
	deleted := make([]core.Student, 0, len(s.snap.Deleted)+1)
	deleted = append(deleted, s.snap.Deleted...)
	deleted = append(deleted, st)
	return s.commit(without(s.snap.Active, id), deleted)
}

// RestoreStudent removes st from the deleted roster and appends it to the
// active roster. The append happens even when st.ID is not in the deleted
// roster, so restoring an already active record duplicates it. Existing
// clients depend on this.
func (s *Store) RestoreStudent(st core.Student) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]core.Student, 0, len(s.snap.Active)+1)
	active = append(active, s.snap.Active...)
	active = append(active, st.Clone())
	return s.commit(active, without(s.snap.Deleted, st.ID))
}

// AddPayment appends an unconfirmed payment dated today to the student.
// The zero Payment is returned when the student is unknown.
func (s *Store) AddPayment(studentID string, amount core.Money) (core.Payment, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.snap.Active, studentID)
	if idx < 0 {
		return core.Payment{}, s.snap
	}
	p := core.NewPayment(s.newID("payment"), amount, s.today())

	st := s.snap.Active[idx]
	payments := make([]core.Payment, 0, len(st.Payments)+1)
	payments = append(payments, st.Payments...)
	st.Payments = append(payments, p)

	active := append([]core.Student(nil), s.snap.Active...)
	active[idx] = st
	return p, s.commit(active, s.snap.Deleted)
}

// ConfirmPayment marks the payment as confirmed.
func (s *Store) ConfirmPayment(studentID, paymentID string) Snapshot {
	return s.updatePayments(studentID, paymentID, func(payments []core.Payment, i int) []core.Payment {
		payments[i].Confirmed = true
		return payments
	})
}

// DeletePayment removes the payment from the student.
func (s *Store) DeletePayment(studentID, paymentID string) Snapshot {
	return s.updatePayments(studentID, paymentID, func(payments []core.Payment, i int) []core.Payment {
		return append(payments[:i], payments[i+1:]...)
	})
}

// updatePayments applies fn to a private copy of the student's payments.
func (s *Store) updatePayments(studentID, paymentID string, fn func([]core.Payment, int) []core.Payment) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.snap.Active, studentID)
	if idx < 0 {
		return s.snap
	}
	st := s.snap.Active[idx].Clone()
	pidx := -1
	for i, p := range st.Payments {
		if p.ID == paymentID {
			pidx = i
			break
		}
	}
	if pidx < 0 {
		return s.snap
	}
	st.Payments = fn(st.Payments, pidx)

	active := append([]core.Student(nil), s.snap.Active...)
	active[idx] = st
	return s.commit(active, s.snap.Deleted)
}

func indexOf(list []core.Student, id string) int {
	for i, st := range list {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func without(list []core.Student, id string) []core.Student {
	out := make([]core.Student, 0, len(list))
	for _, st := range list {
		if st.ID != id {
			out = append(out, st)
		}
	}
	return out
}
