// Package postgres stores the chat log in PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/gleaner/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chat_log (
		session_id TEXT PRIMARY KEY,
		ts TIMESTAMPTZ NOT NULL,
		query TEXT NOT NULL,
		user_id TEXT NOT NULL,
		response TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS chat_log_user_ts ON chat_log (user_id, ts)`,
}

// New connects to dsn and ensures the chat_log table exists.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Append(ctx context.Context, entry *storage.ChatLogEntry) error {
	const query = `
	INSERT INTO chat_log (session_id, ts, query, user_id, response)
	VALUES ($1, $2, $3, $4, $5)
	`

	_, err := b.pool.Exec(ctx, query,
		entry.SessionID,
		entry.Timestamp,
		entry.Query,
		entry.UserID,
		entry.Response,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.ChatLogEntry, error) {
	query := `SELECT session_id, ts, query, user_id, response FROM chat_log WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, paramCount)
		args = append(args, filter.UserID)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND ts >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY ts DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat log: %w", err)
	}
	defer rows.Close()

	results := []*storage.ChatLogEntry{}
	for rows.Next() {
		var e storage.ChatLogEntry
		if err := rows.Scan(&e.SessionID, &e.Timestamp, &e.Query, &e.UserID, &e.Response); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		results = append(results, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat log: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
