// Package news harvests headline text from a news listing page.
package news

import "strings"

// HeadlineRecord is one harvested headline and the selector that found it.
type HeadlineRecord struct {
	RawText        string `json:"raw_text"`
	SourceSelector string `json:"source_selector"`
}

// HeadlineSet deduplicates headlines by exact normalized text and keeps
// first-seen order. It never shrinks.
type HeadlineSet struct {
	seen    map[string]struct{}
	records []HeadlineRecord
}

// NewHeadlineSet returns an empty set.
func NewHeadlineSet() *HeadlineSet {
	return &HeadlineSet{seen: make(map[string]struct{})}
}

// Add inserts rec unless a headline with the same normalized text is already
// present. It reports whether rec was inserted.
func (s *HeadlineSet) Add(rec HeadlineRecord) bool {
	rec.RawText = Normalize(rec.RawText)
	if rec.RawText == "" {
		return false
	}
	if _, ok := s.seen[rec.RawText]; ok {
		return false
	}
	s.seen[rec.RawText] = struct{}{}
	s.records = append(s.records, rec)
	return true
}

// Len returns the number of distinct headlines.
func (s *HeadlineSet) Len() int { return len(s.records) }

// Records returns up to n headlines in first-seen order; n <= 0 returns all.
func (s *HeadlineSet) Records(n int) []HeadlineRecord {
	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}
	out := make([]HeadlineRecord, n)
	copy(out, s.records[:n])
	return out
}

// Texts returns the headline strings of recs.
func Texts(recs []HeadlineRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.RawText
	}
	return out
}

// Normalize collapses internal whitespace and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncated reports labels cut short by the listing, which end in an
// ellipsis.
func truncated(label string) bool {
	return strings.HasSuffix(label, "...") || strings.HasSuffix(label, "…")
}
