package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/FranksOps/gleaner/internal/storage/storagetest"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if GLEANER_TEST_PG_DSN is set
	dsn := os.Getenv("GLEANER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: GLEANER_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	if _, err := b.(*postgresBackend).pool.Exec(ctx, `TRUNCATE chat_log`); err != nil {
		t.Fatalf("Failed to reset chat_log: %v", err)
	}

	storagetest.Run(t, b)
}

func TestPostgresBackend_BadDSN(t *testing.T) {
	if _, err := New(context.Background(), "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"); err == nil {
		t.Error("expected connection error")
	}
}
