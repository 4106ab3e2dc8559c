// Package worker consumes roster change events: it keeps the audit log and
// mirrors the roster into an external spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dorm/internal/amqp"
	"dorm/internal/report"
	"dorm/internal/roster"
	"dorm/internal/sheets"
	"dorm/internal/storage"
)

type (
	EventRecorder interface {
		RecordEvent(ctx context.Context, ev storage.EventRecord) (bool, error)
	}

	SnapshotLoader interface {
		LoadSnapshot(ctx context.Context) (roster.Snapshot, error)
	}
)

// RosterWorker records roster events and re-exports the roster after each
// new event.
type RosterWorker struct {
	events    EventRecorder
	snapshots SnapshotLoader
	exporter  sheets.RosterExporter
	now       func() time.Time

	mu           sync.Mutex
	lastExported uint64
	exported     bool
}

// NewRosterWorker creates a worker. exporter may be nil, in which case events
// are only recorded.
func NewRosterWorker(events EventRecorder, snapshots SnapshotLoader, exporter sheets.RosterExporter) *RosterWorker {
	return &RosterWorker{
		events:    events,
		snapshots: snapshots,
		exporter:  exporter,
		now:       time.Now,
	}
}

// HandleRosterEvent processes a single roster event from AMQP. Redelivered
// events are acknowledged without a second export.
func (w *RosterWorker) HandleRosterEvent(ctx context.Context, msg *amqp.RosterEvent) error {
	payload, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}

	inserted, err := w.events.RecordEvent(ctx, storage.EventRecord{
		EventID:    msg.ID,
		Type:       string(msg.Type),
		StudentID:  msg.StudentID,
		PaymentID:  msg.PaymentID,
		OccurredAt: msg.Timestamp,
		Payload:    string(payload),
	})
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	if !inserted {
		slog.InfoContext(ctx, "Skipping already recorded roster event", "event_id", msg.ID, "type", msg.Type)
		return nil
	}

	slog.InfoContext(ctx, "Recorded roster event",
		"event_id", msg.ID,
		"type", msg.Type,
		"student_id", msg.StudentID,
		"version", msg.Version)

	if _, err := w.Export(ctx, false); err != nil {
		return fmt.Errorf("export roster: %w", err)
	}
	return nil
}

// Export mirrors the persisted roster into the spreadsheet. Unless force is
// set, a snapshot version that was already exported is skipped. It reports
// whether an export happened.
func (w *RosterWorker) Export(ctx context.Context, force bool) (bool, error) {
	if w.exporter == nil {
		return false, nil
	}

	snap, err := w.snapshots.LoadSnapshot(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		slog.InfoContext(ctx, "No persisted roster yet, nothing to export")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !force && w.exported && snap.Version <= w.lastExported {
		return false, nil
	}

	if err := w.exporter.ExportRoster(ctx, report.RosterRows(snap.Active, w.now())); err != nil {
		return false, err
	}
	w.lastExported = snap.Version
	w.exported = true
	return true, nil
}

// RunPeriodicExport forces a full export every interval until ctx is done.
// Activity status depends on the current month, so the mirror is refreshed
// even without new events.
func (w *RosterWorker) RunPeriodicExport(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Export(ctx, true); err != nil {
				slog.ErrorContext(ctx, "Periodic roster export failed", "error", err)
			}
		}
	}
}
