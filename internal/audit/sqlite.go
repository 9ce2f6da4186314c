// Package audit persists the reconciler's action log so start/stop decisions
// can be reviewed after the fact.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded reconciliation outcome.
type Entry struct {
	ID        int64     `json:"id"`
	PassID    string    `json:"pass_id"`
	Timestamp time.Time `json:"timestamp"`
	Mode      string    `json:"mode"`
	Observed  string    `json:"observed"`
	Desired   string    `json:"desired"`
	Action    string    `json:"action"` // start|stop|none
	Outcome   string    `json:"outcome"`
}

// SQLiteLog implements the audit log using SQLite.
type SQLiteLog struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteLog opens (or creates) the audit database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteLog(dbPath string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	log := &SQLiteLog{db: db}
	if err := log.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return log, nil
}

func (l *SQLiteLog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reconcile_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pass_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		mode TEXT NOT NULL,
		observed TEXT NOT NULL,
		desired TEXT NOT NULL,
		action TEXT NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reconcile_timestamp ON reconcile_actions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_reconcile_action ON reconcile_actions(action);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Append records one reconciliation outcome.
func (l *SQLiteLog) Append(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO reconcile_actions (pass_id, timestamp, mode, observed, desired, action, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.PassID, e.Timestamp.Unix(), e.Mode, e.Observed, e.Desired, e.Action, e.Outcome)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (l *SQLiteLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, pass_id, timestamp, mode, observed, desired, action, outcome
		 FROM reconcile_actions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.PassID, &ts, &e.Mode, &e.Observed, &e.Desired, &e.Action, &e.Outcome); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
