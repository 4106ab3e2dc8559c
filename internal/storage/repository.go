// Package storage persists roster snapshots and the roster event audit log in
// SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dorm/internal/core"
	"dorm/internal/roster"

	_ "modernc.org/sqlite"
)

const (
	rosterActive  = "active"
	rosterDeleted = "deleted"

	metaVersion = "version"
	metaSavedAt = "saved_at"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing was persisted yet.
var ErrNoSnapshot = errors.New("no persisted snapshot")

// EventRecord is one row of the roster_events audit log.
type EventRecord struct {
	Seq        int64
	EventID    string
	Type       string
	StudentID  string
	PaymentID  string
	OccurredAt time.Time
	Payload    string
	RecordedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer keeps snapshot transactions from tripping SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveSnapshot replaces the persisted rosters with snap in one transaction.
// Older versions never overwrite newer ones.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap roster.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	var stored string
	err = tx.QueryRowContext(ctx, `SELECT value FROM roster_meta WHERE key = ?`, metaVersion).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read snapshot version: %w", err)
	default:
		if v, perr := strconv.ParseUint(stored, 10, 64); perr == nil && v > snap.Version {
			slog.WarnContext(ctx, "Skipping stale roster snapshot", "version", snap.Version, "stored_version", v)
			return nil
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments`); err != nil {
		return fmt.Errorf("clear payments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM students`); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}

	insStudent, err := tx.PrepareContext(ctx, `INSERT INTO students
		(roster, position, id, name, department, study_level, birth_place, room_number, floor_number, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare student insert: %w", err)
	}
	defer insStudent.Close()

	insPayment, err := tx.PrepareContext(ctx, `INSERT INTO payments
		(roster, student_position, position, id, amount_cents, date, month, year, confirmed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare payment insert: %w", err)
	}
	defer insPayment.Close()

	for _, part := range []struct {
		name     string
		students []core.Student
	}{{rosterActive, snap.Active}, {rosterDeleted, snap.Deleted}} {
		for pos, st := range part.students {
			if _, err := insStudent.ExecContext(ctx, part.name, pos, st.ID, st.Name, string(st.Department),
				string(st.StudyLevel), st.BirthPlace, st.RoomNumber, st.FloorNumber, st.DateAdded.String()); err != nil {
				return fmt.Errorf("insert student %s: %w", st.ID, err)
			}
			for ppos, p := range st.Payments {
				if _, err := insPayment.ExecContext(ctx, part.name, pos, ppos, p.ID, p.Amount.Cents,
					p.Date.String(), p.Month, p.Year, p.Confirmed); err != nil {
					return fmt.Errorf("insert payment %s: %w", p.ID, err)
				}
			}
		}
	}

	if err := setMeta(ctx, tx, metaVersion, strconv.FormatUint(snap.Version, 10)); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, metaSavedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Roster snapshot saved",
		"version", snap.Version,
		"active", len(snap.Active),
		"deleted", len(snap.Deleted))
	return nil
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO roster_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// LoadSnapshot reads the persisted rosters. ErrNoSnapshot is returned when
// SaveSnapshot never ran.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context) (roster.Snapshot, error) {
	var stored string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM roster_meta WHERE key = ?`, metaVersion).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return roster.Snapshot{}, fmt.Errorf("read snapshot version: %w", err)
	}
	version, err := strconv.ParseUint(stored, 10, 64)
	if err != nil {
		return roster.Snapshot{}, fmt.Errorf("parse snapshot version %q: %w", stored, err)
	}

	active, err := r.loadRoster(ctx, rosterActive)
	if err != nil {
		return roster.Snapshot{}, err
	}
	deleted, err := r.loadRoster(ctx, rosterDeleted)
	if err != nil {
		return roster.Snapshot{}, err
	}
	return roster.Snapshot{Active: active, Deleted: deleted, Version: version}, nil
}

func (r *SQLiteRepository) loadRoster(ctx context.Context, name string) ([]core.Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, department, study_level, birth_place,
		room_number, floor_number, date_added
		FROM students WHERE roster = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("query %s students: %w", name, err)
	}
	defer rows.Close()

	students := []core.Student{}
	for rows.Next() {
		var (
			st                core.Student
			dept, level, date string
		)
		if err := rows.Scan(&st.ID, &st.Name, &dept, &level, &st.BirthPlace,
			&st.RoomNumber, &st.FloorNumber, &date); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		st.Department = core.Department(dept)
		st.StudyLevel = core.StudyLevel(level)
		if date != "" {
			if st.DateAdded, err = core.ParseDate(date); err != nil {
				return nil, fmt.Errorf("student %s: %w", st.ID, err)
			}
		}
		st.Payments = []core.Payment{}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	prows, err := r.db.QueryContext(ctx, `SELECT student_position, id, amount_cents, date, month, year, confirmed
		FROM payments WHERE roster = ? ORDER BY student_position, position`, name)
	if err != nil {
		return nil, fmt.Errorf("query %s payments: %w", name, err)
	}
	defer prows.Close()

	for prows.Next() {
		var (
			pos  int
			p    core.Payment
			date string
		)
		if err := prows.Scan(&pos, &p.ID, &p.Amount.Cents, &date, &p.Month, &p.Year, &p.Confirmed); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if pos < 0 || pos >= len(students) {
			return nil, fmt.Errorf("payment %s references missing student position %d", p.ID, pos)
		}
		if p.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		students[pos].Payments = append(students[pos].Payments, p)
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return students, nil
}

// RecordEvent appends ev to the audit log. Redelivered events with an already
// recorded EventID are ignored.
func (r *SQLiteRepository) RecordEvent(ctx context.Context, ev EventRecord) (bool, error) {
	if ev.Payload == "" {
		ev.Payload = "{}"
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO roster_events
		(event_id, type, student_id, payment_id, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING`,
		ev.EventID, ev.Type, ev.StudentID, ev.PaymentID, ev.OccurredAt.UTC().Format(time.RFC3339Nano), ev.Payload)
	if err != nil {
		return false, fmt.Errorf("insert roster event %s: %w", ev.EventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// ListEvents returns the most recent events, newest first.
func (r *SQLiteRepository) ListEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq, event_id, type, student_id, payment_id,
		occurred_at, payload, recorded_at
		FROM roster_events ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query roster events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			ev                   EventRecord
			occurred, recordedAt string
		)
		if err := rows.Scan(&ev.Seq, &ev.EventID, &ev.Type, &ev.StudentID, &ev.PaymentID,
			&occurred, &ev.Payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan roster event: %w", err)
		}
		if ev.OccurredAt, err = time.Parse(time.RFC3339Nano, occurred); err != nil {
			return nil, fmt.Errorf("event %s occurred_at: %w", ev.EventID, err)
		}
		if ev.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("event %s recorded_at: %w", ev.EventID, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster events: %w", err)
	}
	return out, nil
}
