// Package csvbackend stores the chat log as CSV rows.
package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/FranksOps/gleaner/internal/storage"
)

var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order.
var headers = []string{
	"session_id",
	"timestamp",
	"query",
	"user_id",
	"response",
}

// New opens (or creates) a CSV chat log at filePath, writing the header row
// to empty files.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open chat log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat chat log: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		_ = w.Write(headers)
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Append(_ context.Context, entry *storage.ChatLogEntry) error {
	record := []string{
		entry.SessionID,
		entry.Timestamp.Format(time.RFC3339Nano),
		entry.Query,
		entry.UserID,
		entry.Response,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	w := csv.NewWriter(b.file)
	_ = w.Write(record)
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

func (b *csvBackend) Query(_ context.Context, filter storage.Filter) ([]*storage.ChatLogEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek chat log: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)
	r.FieldsPerRecord = len(headers)

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.ChatLogEntry{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var matched []*storage.ChatLogEntry
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read entry: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, record[1])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}

		e := &storage.ChatLogEntry{
			SessionID: record[0],
			Timestamp: ts,
			Query:     record[2],
			UserID:    record[3],
			Response:  record[4],
		}
		if filter.Match(e) {
			matched = append(matched, e)
		}
	}

	return filter.Window(matched), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
