// Package storagetest holds the behavior every chat log backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/FranksOps/gleaner/internal/storage"
)

// Run appends three entries to b and checks filtering and ordering. b must
// start empty.
func Run(t *testing.T, b storage.Backend) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	entries := []*storage.ChatLogEntry{
		{SessionID: "session-1", Timestamp: now.Add(-2 * time.Hour), Query: "solar eclipse", UserID: "alice", Response: "first\n\nSource: https://a.example/"},
		{SessionID: "session-2", Timestamp: now.Add(-1 * time.Hour), Query: "comet, \"tails\"", UserID: "bob", Response: "second"},
		{SessionID: "session-3", Timestamp: now, Query: "lunar eclipse", UserID: "alice", Response: "third"},
	}
	for _, e := range entries {
		if err := b.Append(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.SessionID, err)
		}
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].SessionID != "session-3" || all[2].SessionID != "session-1" {
		t.Errorf("expected newest first, got %s..%s", all[0].SessionID, all[2].SessionID)
	}

	first := all[2]
	if first.Query != entries[0].Query || first.UserID != "alice" || first.Response != entries[0].Response {
		t.Errorf("entry did not round trip: %+v", first)
	}
	if !first.Timestamp.Equal(entries[0].Timestamp) {
		t.Errorf("timestamp = %v, want %v", first.Timestamp, entries[0].Timestamp)
	}
	if all[1].Query != entries[1].Query {
		t.Errorf("quoted query did not round trip: %q", all[1].Query)
	}

	alice, err := b.Query(ctx, storage.Filter{UserID: "alice"})
	if err != nil {
		t.Fatalf("query alice: %v", err)
	}
	if len(alice) != 2 {
		t.Errorf("expected 2 entries for alice, got %d", len(alice))
	}

	since := now.Add(-90 * time.Minute)
	recent, err := b.Query(ctx, storage.Filter{Since: &since, Limit: 1})
	if err != nil {
		t.Fatalf("query since: %v", err)
	}
	if len(recent) != 1 || recent[0].SessionID != "session-3" {
		t.Errorf("expected [session-3], got %d entries", len(recent))
	}

	paged, err := b.Query(ctx, storage.Filter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("query page: %v", err)
	}
	if len(paged) != 1 || paged[0].SessionID != "session-2" {
		t.Errorf("expected [session-2] for offset 1, got %d entries", len(paged))
	}
}
