// Package sink persists alert events in SQLite. The store is append-only
// with a single time-based retention policy; nothing in the core loops ever
// reads it back, so failures here are logged by callers and swallowed.
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/factory-sim/factory-sim/monitor"
)

// Store is the SQLite-backed event sink. Safe for concurrent use; writes go
// through database/sql's pool with WAL mode enabled.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database and initializes the schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open event db: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate event db: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		ts         REAL NOT NULL,
		machine_id TEXT NOT NULL,
		type       TEXT NOT NULL,
		severity   TEXT NOT NULL,
		message    TEXT NOT NULL,
		details    TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	CREATE INDEX IF NOT EXISTS idx_events_machine ON events(machine_id);`
	_, err := s.db.Exec(schema)
	return err
}

// Append records one alert-creation event.
func (s *Store) Append(ctx context.Context, e monitor.SinkEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (ts, machine_id, type, severity, message, details)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Timestamp, e.MachineID, e.Type, e.Severity, e.Message, e.Details)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// PruneBefore deletes every event older than the cutoff timestamp.
func (s *Store) PruneBefore(ctx context.Context, cutoff float64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE ts < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("prune events: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		// Reclaim space only when something was actually dropped.
		_, _ = s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	}
	return nil
}

// Count returns the number of stored events; used by retention tests and
// operational checks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Recent returns up to limit most recent events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]monitor.SinkEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, machine_id, type, severity, message, details
		 FROM events ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []monitor.SinkEvent
	for rows.Next() {
		var e monitor.SinkEvent
		if err := rows.Scan(&e.Timestamp, &e.MachineID, &e.Type, &e.Severity, &e.Message, &e.Details); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
