// Package corpus maintains the prompt corpus file: a single-column CSV with
// a "Prompt" header that is always replaced as a whole.
package corpus

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Header is the first row of every corpus file.
const Header = "Prompt"

// ErrCorpusUnavailable reports a missing or unreadable corpus file.
var ErrCorpusUnavailable = errors.New("corpus unavailable")

// File reads and atomically replaces the corpus at one path. Writers are
// serialized; readers always observe a complete file.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a File for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the corpus location.
func (f *File) Path() string { return f.path }

// Exists reports whether the corpus file is present.
func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Write replaces the corpus with phrases in order. The new content is
// written to a temporary file in the same directory and renamed over the old
// one.
func (f *File) Write(phrases []string) error {
	data, err := Encode(phrases)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".corpus-*.csv")
	if err != nil {
		return fmt.Errorf("create temp corpus: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp corpus: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp corpus: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp corpus: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp corpus: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace corpus: %w", err)
	}
	return nil
}

// Read returns the corpus file verbatim.
func (f *File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorpusUnavailable, err)
	}
	return data, nil
}

// Phrases parses the corpus back into its phrase rows.
func (f *File) Phrases() ([]string, error) {
	data, err := f.Read()
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}

// Encode renders phrases as corpus CSV. Empty phrases are written as a
// quoted empty field so they survive a round trip.
func Encode(phrases []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{Header})
	for _, p := range phrases {
		if p == "" {
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		_ = w.Write([]string{p})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode corpus: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses corpus CSV, validating the header.
func Decode(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 1

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorpusUnavailable, err)
	}
	if head[0] != Header {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrCorpusUnavailable, head[0])
	}

	phrases := []string{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return phrases, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorpusUnavailable, err)
		}
		phrases = append(phrases, rec[0])
	}
}
