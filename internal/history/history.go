// Package history keeps a SQLite log of completed messages.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/san-kum/punchcard/internal/pipeline"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL DEFAULT 0,
	text       TEXT NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	outcome    TEXT NOT NULL DEFAULT '',
	generation INTEGER NOT NULL DEFAULT 0,
	frames     INTEGER NOT NULL DEFAULT 0,
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);
`

// DefaultLimit caps Recent when the caller passes no limit.
const DefaultLimit = 50

// DB records pipeline entries.
type DB struct {
	conn *sql.DB
}

var _ pipeline.History = (*DB)(nil)

// Open opens (or creates) the database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Record(ctx context.Context, e pipeline.Entry) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO messages (session_id, text, kind, outcome, generation, frames, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Text, e.Kind, e.Outcome, e.Generation, e.Frames, e.Elapsed.Milliseconds(), e.At.UTC())
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (db *DB) Recent(ctx context.Context, limit int) ([]pipeline.Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT session_id, text, kind, outcome, generation, frames, elapsed_ms, created_at
		FROM messages
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []pipeline.Entry
	for rows.Next() {
		var (
			e       pipeline.Entry
			elapsed int64
		)
		if err := rows.Scan(&e.ID, &e.Text, &e.Kind, &e.Outcome, &e.Generation, &e.Frames, &elapsed, &e.At); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Elapsed = time.Duration(elapsed) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of recorded messages.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}
