package phrase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/FranksOps/gleaner/internal/oracle"
)

// ErrCountMismatch reports an oracle batch whose line count differs from the
// number of headlines. The oracle's lines are still returned.
var ErrCountMismatch = errors.New("phrase count mismatch")

// A marker only counts when whitespace or the end of line follows it, so
// leading numbers such as "1.5" survive.
var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])(?:\s+|$)`)

// Batch reduces all headlines in a single oracle call.
type Batch struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

// NewBatch returns a Batch reducer backed by o.
func NewBatch(o oracle.Oracle, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{oracle: o, logger: logger}
}

// Reduce asks the oracle for one reduced line per headline. On oracle
// failure the headlines are returned unchanged alongside the error. On a
// count mismatch the oracle's lines are returned with ErrCountMismatch.
func (b *Batch) Reduce(ctx context.Context, headlines []string) ([]string, error) {
	if len(headlines) == 0 {
		return []string{}, nil
	}

	resp, err := b.oracle.Complete(ctx, reducePrompt(headlines))
	if err != nil {
		b.logger.Warn("phrase oracle failed, keeping headlines", "count", len(headlines), "err", err)
		return append([]string(nil), headlines...), err
	}

	lines := ParseLines(resp)
	if len(lines) != len(headlines) {
		b.logger.Warn("phrase oracle returned wrong line count", "want", len(headlines), "got", len(lines))
		return lines, fmt.Errorf("%w: want %d, got %d", ErrCountMismatch, len(headlines), len(lines))
	}
	return lines, nil
}

// Rewrite asks the oracle for free-form generative prompts inspired by
// phrases. The result is not count-validated. On failure phrases are
// returned unchanged alongside the error.
func (b *Batch) Rewrite(ctx context.Context, phrases []string) ([]string, error) {
	if len(phrases) == 0 {
		return []string{}, nil
	}

	resp, err := b.oracle.Complete(ctx, rewritePrompt(phrases))
	if err != nil {
		b.logger.Warn("rewrite oracle failed, keeping phrases", "count", len(phrases), "err", err)
		return append([]string(nil), phrases...), err
	}

	lines := ParseLines(resp)
	if len(lines) == 0 {
		return append([]string(nil), phrases...), nil
	}
	return lines, nil
}

// ParseLines splits an oracle response into lines, stripping leading bullet
// or numbering markers and dropping blank lines.
func ParseLines(resp string) []string {
	var out []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func reducePrompt(headlines []string) string {
	var b strings.Builder
	b.WriteString("Reduce each headline below to a short keyword phrase of at most three words.\n")
	b.WriteString("Return exactly one line per headline, in the same order, with no numbering or bullets.\n\n")
	for _, h := range headlines {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	return b.String()
}

func rewritePrompt(phrases []string) string {
	var b strings.Builder
	b.WriteString("Write one short, vivid image-generation prompt for each topic below.\n")
	b.WriteString("Return one prompt per line with no numbering or extra text.\n\n")
	for _, p := range phrases {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}
