package storage

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewEntry(t *testing.T) {
	e := NewEntry("solar eclipse", "u1", "answer")

	if !strings.HasPrefix(e.SessionID, "session-") || len(e.SessionID) != len("session-")+36 {
		t.Errorf("unexpected session id %q", e.SessionID)
	}
	if e.Timestamp.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", e.Timestamp.Location())
	}
	if e.Query != "solar eclipse" || e.UserID != "u1" || e.Response != "answer" {
		t.Errorf("unexpected entry %+v", e)
	}
	if NewEntry("q", "u", "r").SessionID == e.SessionID {
		t.Error("session ids must be unique")
	}
}

func TestMemory_QueryFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, user := range []string{"a", "b", "a", "a"} {
		e := &ChatLogEntry{SessionID: string(rune('0' + i)), UserID: user, Timestamp: base.Add(time.Duration(i) * time.Hour)}
		if err := m.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, _ := m.Query(ctx, Filter{UserID: "a"})
	if len(got) != 3 || got[0].SessionID != "3" || got[2].SessionID != "0" {
		t.Errorf("expected newest-first entries for a, got %v", ids(got))
	}

	since := base.Add(90 * time.Minute)
	got, _ = m.Query(ctx, Filter{Since: &since})
	if len(got) != 2 {
		t.Errorf("expected 2 entries since %v, got %v", since, ids(got))
	}

	got, _ = m.Query(ctx, Filter{Limit: 1, Offset: 1})
	if len(got) != 1 || got[0].SessionID != "2" {
		t.Errorf("expected window [2], got %v", ids(got))
	}

	got, _ = m.Query(ctx, Filter{Offset: 10})
	if len(got) != 0 {
		t.Errorf("expected empty window, got %v", ids(got))
	}
}

func TestMemory_ConcurrentAppend(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Append(context.Background(), NewEntry("q", "u", "r"))
		}()
	}
	wg.Wait()

	if m.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", m.Len())
	}
}

func ids(entries []*ChatLogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.SessionID
	}
	return out
}
