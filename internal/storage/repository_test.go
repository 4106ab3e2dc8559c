package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dorm/internal/core"
	"dorm/internal/roster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "dorm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLoadSnapshot_Empty(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	active := roster.DemoStudents(now, 7)
	deleted := []core.Student{active[0].Clone()}
	// duplicate ids must survive persistence
	active = append(active, active[1].Clone())
	snap := roster.Snapshot{Active: active, Deleted: deleted, Version: 3}

	require.NoError(t, repo.SaveSnapshot(ctx, snap))

	got, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, got.Version)
	assert.Equal(t, snap.Active, got.Active)
	assert.Equal(t, snap.Deleted, got.Deleted)
}

func TestSaveSnapshot_SkipsStale(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	students := roster.DemoStudents(now, 1)

	require.NoError(t, repo.SaveSnapshot(ctx, roster.Snapshot{Active: students, Deleted: []core.Student{}, Version: 5}))
	require.NoError(t, repo.SaveSnapshot(ctx, roster.Snapshot{Active: students[:1], Deleted: []core.Student{}, Version: 4}))

	got, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Version)
	assert.Len(t, got.Active, len(students))
	assert.Empty(t, got.Deleted)
}

func TestRecordEvent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	at := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	ev := EventRecord{
		EventID:    "ev-1",
		Type:       "payment.added",
		StudentID:  "1",
		PaymentID:  "payment-9",
		OccurredAt: at,
		Payload:    `{"amount":30000}`,
	}
	inserted, err := repo.RecordEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.RecordEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = repo.RecordEvent(ctx, EventRecord{EventID: "ev-2", Type: "student.deleted", StudentID: "2", OccurredAt: at.Add(time.Minute)})
	require.NoError(t, err)

	events, err := repo.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ev-2", events[0].EventID)
	assert.Equal(t, "{}", events[0].Payload)
	assert.Equal(t, "payment-9", events[1].PaymentID)
	assert.True(t, at.Equal(events[1].OccurredAt))
	assert.False(t, events[1].RecordedAt.IsZero())
}

func TestPing(t *testing.T) {
	assert.NoError(t, newTestRepo(t).Ping(context.Background()))
}
