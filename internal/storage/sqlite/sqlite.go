// Package sqlite stores the chat log in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FranksOps/gleaner/internal/storage"
	_ "modernc.org/sqlite"
)

var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_log (
	session_id TEXT PRIMARY KEY,
	ts_unix_nano INTEGER NOT NULL,
	query TEXT NOT NULL,
	user_id TEXT NOT NULL,
	response TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_log_user_ts ON chat_log (user_id, ts_unix_nano);
`

// New opens the database at dsn and ensures the chat_log table exists.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Append(ctx context.Context, entry *storage.ChatLogEntry) error {
	const query = `
	INSERT INTO chat_log (session_id, ts_unix_nano, query, user_id, response)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		entry.SessionID,
		entry.Timestamp.UnixNano(),
		entry.Query,
		entry.UserID,
		entry.Response,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.ChatLogEntry, error) {
	query := `SELECT session_id, ts_unix_nano, query, user_id, response FROM chat_log WHERE 1=1`
	args := []any{}

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Since != nil {
		query += ` AND ts_unix_nano >= ?`
		args = append(args, filter.Since.UnixNano())
	}

	query += ` ORDER BY ts_unix_nano DESC`

	// SQLite requires LIMIT before OFFSET
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat log: %w", err)
	}
	defer rows.Close()

	results := []*storage.ChatLogEntry{}
	for rows.Next() {
		var e storage.ChatLogEntry
		var ts int64
		if err := rows.Scan(&e.SessionID, &ts, &e.Query, &e.UserID, &e.Response); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		results = append(results, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat log: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
