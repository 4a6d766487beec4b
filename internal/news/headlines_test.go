package news

import "testing"

func TestHeadlineSet(t *testing.T) {
	s := NewHeadlineSet()

	if !s.Add(HeadlineRecord{RawText: "  Solar  eclipse\ttonight "}) {
		t.Fatal("expected first insert to succeed")
	}
	if s.Add(HeadlineRecord{RawText: "Solar eclipse tonight", SourceSelector: "other"}) {
		t.Error("normalized duplicate should be rejected")
	}
	if s.Add(HeadlineRecord{RawText: "   "}) {
		t.Error("blank headline should be rejected")
	}
	s.Add(HeadlineRecord{RawText: "solar eclipse tonight"})

	if s.Len() != 2 {
		t.Errorf("expected case-sensitive dedup with 2 entries, got %d", s.Len())
	}

	recs := s.Records(0)
	if recs[0].RawText != "Solar eclipse tonight" || recs[1].RawText != "solar eclipse tonight" {
		t.Errorf("expected first-seen order, got %q", Texts(recs))
	}
	if got := s.Records(1); len(got) != 1 {
		t.Errorf("expected 1 record, got %d", len(got))
	}
}

func TestTruncated(t *testing.T) {
	for label, want := range map[string]bool{
		"Senate debates the budget...": true,
		"Storm heads north…":           true,
		"Complete headline":            false,
		"Ends with a period.":          false,
	} {
		if got := truncated(label); got != want {
			t.Errorf("truncated(%q) = %v, want %v", label, got, want)
		}
	}
}
