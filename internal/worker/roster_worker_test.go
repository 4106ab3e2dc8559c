package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"dorm/internal/amqp"
	"dorm/internal/core"
	"dorm/internal/report"
	"dorm/internal/roster"
	"dorm/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 18, 10, 30, 0, 0, time.UTC)

type fakeEvents struct {
	seen    map[string]bool
	records []storage.EventRecord
	err     error
}

func (f *fakeEvents) RecordEvent(_ context.Context, ev storage.EventRecord) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[ev.EventID] {
		return false, nil
	}
	f.seen[ev.EventID] = true
	f.records = append(f.records, ev)
	return true, nil
}

type fakeSnapshots struct {
	snap roster.Snapshot
	err  error
}

func (f *fakeSnapshots) LoadSnapshot(context.Context) (roster.Snapshot, error) {
	return f.snap, f.err
}

type fakeExporter struct {
	exports [][][]string
	err     error
}

func (f *fakeExporter) ExportRoster(_ context.Context, rows [][]string) error {
	if f.err != nil {
		return f.err
	}
	f.exports = append(f.exports, rows)
	return nil
}

func newTestWorker(snap roster.Snapshot) (*RosterWorker, *fakeEvents, *fakeSnapshots, *fakeExporter) {
	events := &fakeEvents{}
	snaps := &fakeSnapshots{snap: snap}
	exp := &fakeExporter{}
	w := NewRosterWorker(events, snaps, exp)
	w.now = func() time.Time { return fixedNow }
	return w, events, snaps, exp
}

func demoSnapshot(version uint64) roster.Snapshot {
	return roster.Snapshot{Active: roster.DemoStudents(fixedNow, 1), Deleted: []core.Student{}, Version: version}
}

func TestHandleRosterEvent_RecordsAndExports(t *testing.T) {
	snap := demoSnapshot(2)
	w, events, _, exp := newTestWorker(snap)
	msg := amqp.NewRosterEvent(amqp.EventPaymentAdded, "1", 2).WithPayment("payment-9", 30000)

	require.NoError(t, w.HandleRosterEvent(context.Background(), msg))

	require.Len(t, events.records, 1)
	rec := events.records[0]
	assert.Equal(t, msg.ID, rec.EventID)
	assert.Equal(t, "payment.added", rec.Type)
	assert.Equal(t, "payment-9", rec.PaymentID)
	assert.Contains(t, rec.Payload, `"amount_cents":30000`)

	require.Len(t, exp.exports, 1)
	assert.Equal(t, report.RosterRows(snap.Active, fixedNow), exp.exports[0])
}

func TestHandleRosterEvent_RedeliverySkipsExport(t *testing.T) {
	w, events, _, exp := newTestWorker(demoSnapshot(2))
	msg := amqp.NewRosterEvent(amqp.EventStudentDeleted, "3", 2)

	require.NoError(t, w.HandleRosterEvent(context.Background(), msg))
	require.NoError(t, w.HandleRosterEvent(context.Background(), msg))

	assert.Len(t, events.records, 1)
	assert.Len(t, exp.exports, 1)
}

func TestHandleRosterEvent_SameVersionExportsOnce(t *testing.T) {
	w, _, snaps, exp := newTestWorker(demoSnapshot(4))
	ctx := context.Background()

	require.NoError(t, w.HandleRosterEvent(ctx, amqp.NewRosterEvent(amqp.EventStudentAdded, "a", 3)))
	require.NoError(t, w.HandleRosterEvent(ctx, amqp.NewRosterEvent(amqp.EventStudentAdded, "b", 4)))
	assert.Len(t, exp.exports, 1)

	snaps.snap.Version = 5
	require.NoError(t, w.HandleRosterEvent(ctx, amqp.NewRosterEvent(amqp.EventStudentUpdated, "b", 5)))
	assert.Len(t, exp.exports, 2)
}

func TestHandleRosterEvent_RecordError(t *testing.T) {
	w, events, _, exp := newTestWorker(demoSnapshot(1))
	events.err = errors.New("disk full")

	err := w.HandleRosterEvent(context.Background(), amqp.NewRosterEvent(amqp.EventStudentAdded, "a", 1))
	assert.Error(t, err)
	assert.Empty(t, exp.exports)
}

func TestHandleRosterEvent_ExportErrorRequeues(t *testing.T) {
	w, _, _, exp := newTestWorker(demoSnapshot(1))
	exp.err = errors.New("quota exceeded")

	err := w.HandleRosterEvent(context.Background(), amqp.NewRosterEvent(amqp.EventStudentAdded, "a", 1))
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestExport_NoSnapshot(t *testing.T) {
	w, _, snaps, exp := newTestWorker(roster.Snapshot{})
	snaps.err = storage.ErrNoSnapshot

	done, err := w.Export(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, exp.exports)
}

func TestExport_Force(t *testing.T) {
	w, _, _, exp := newTestWorker(demoSnapshot(1))
	ctx := context.Background()

	done, err := w.Export(ctx, false)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = w.Export(ctx, false)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = w.Export(ctx, true)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Len(t, exp.exports, 2)
}

func TestExport_WithoutExporter(t *testing.T) {
	w := NewRosterWorker(&fakeEvents{}, &fakeSnapshots{snap: demoSnapshot(1)}, nil)
	require.NoError(t, w.HandleRosterEvent(context.Background(), amqp.NewRosterEvent(amqp.EventStudentAdded, "a", 1)))
}

func TestRunPeriodicExport_StopsOnCancel(t *testing.T) {
	w, _, _, _ := newTestWorker(demoSnapshot(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.RunPeriodicExport(ctx, time.Hour), context.Canceled)
}
