// Package storage defines the append-only chat log and its backends.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChatLogEntry records one answered search request.
type ChatLogEntry struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	UserID    string    `json:"user_id"`
	Response  string    `json:"response"`
}

// NewEntry stamps a ChatLogEntry with a fresh session ID and the current UTC
// time.
func NewEntry(query, userID, response string) *ChatLogEntry {
	return &ChatLogEntry{
		SessionID: "session-" + uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Query:     query,
		UserID:    userID,
		Response:  response,
	}
}

// Filter selects chat log entries, newest first.
type Filter struct {
	UserID string
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether e passes the filter's predicates.
func (f Filter) Match(e *ChatLogEntry) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	return true
}

// Window reverses oldest-first entries and applies Offset and Limit. Backends
// without a query engine use it after matching.
func (f Filter) Window(entries []*ChatLogEntry) []*ChatLogEntry {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if f.Offset > 0 {
		if f.Offset >= len(entries) {
			return []*ChatLogEntry{}
		}
		entries = entries[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(entries) {
		entries = entries[:f.Limit]
	}
	return entries
}

// Backend appends chat log entries. Appends are single-document inserts and
// safe for concurrent use.
type Backend interface {
	Append(ctx context.Context, entry *ChatLogEntry) error
	Query(ctx context.Context, filter Filter) ([]*ChatLogEntry, error)
	Close() error
}

var _ Backend = (*Memory)(nil)

// Memory keeps entries in process. It backs the "memory" chat log setting
// and tests.
type Memory struct {
	mu      sync.Mutex
	entries []*ChatLogEntry
}

// NewMemory returns an empty in-memory Backend.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, entry *ChatLogEntry) error {
	cp := *entry
	m.mu.Lock()
	m.entries = append(m.entries, &cp)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Query(_ context.Context, filter Filter) ([]*ChatLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*ChatLogEntry
	for _, e := range m.entries {
		if filter.Match(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return filter.Window(out), nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }
