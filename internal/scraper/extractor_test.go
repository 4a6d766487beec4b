package scraper

import (
	"errors"
	"strings"
	"testing"
)

const articleHTML = `<html><body>
<p>One</p><p>Two &amp; more</p><p>Three</p><p>Four</p><p>Five</p><p>Six</p>
</body></html>`

func TestExtractor_FirstParagraphs(t *testing.T) {
	ex := NewExtractor(0, "", nil)

	got := ex.Extract(&Page{URL: "http://example.com", Body: []byte(articleHTML)})
	want := "One\nTwo & more\nThree\nFour\nFive"
	if got != want {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestExtractor_FewerParagraphs(t *testing.T) {
	ex := NewExtractor(10, ModeParagraphs, nil)

	got := ex.Extract(&Page{Body: []byte(`<p>only</p><div>ignored</div>`)})
	if got != "only" {
		t.Errorf("Extract() = %q, want %q", got, "only")
	}

	if got := ex.Extract(&Page{Body: []byte(`<div>no paragraphs</div>`)}); got != "" {
		t.Errorf("expected empty content, got %q", got)
	}
}

func TestExtractor_NoTruncation(t *testing.T) {
	long := strings.Repeat("word ", 2000)
	ex := NewExtractor(1, ModeParagraphs, nil)

	if got := ex.Extract(&Page{Body: []byte("<p>" + long + "</p>")}); got != long {
		t.Errorf("expected paragraph kept verbatim, got %d chars", len(got))
	}
}

func TestExtractor_FailedFetch(t *testing.T) {
	ex := NewExtractor(5, ModeParagraphs, nil)

	got := ex.Extract(&Page{Err: errors.New("request failed: timeout")})
	if got != "⚠️ Error fetching content: request failed: timeout" {
		t.Errorf("unexpected placeholder %q", got)
	}
	if !IsErrorContent(got) {
		t.Error("IsErrorContent should recognize the placeholder")
	}
	if IsErrorContent("regular text") {
		t.Error("IsErrorContent should not match regular text")
	}
}

func TestExtractor_ReadabilityFallsBack(t *testing.T) {
	ex := NewExtractor(5, ModeReadability, nil)

	got := ex.Extract(&Page{URL: "http://example.com/a", Body: []byte(`<p>short</p>`)})
	if !strings.Contains(got, "short") {
		t.Errorf("expected text from readability or paragraph fallback, got %q", got)
	}
}

func TestParseExtractMode(t *testing.T) {
	if m, err := ParseExtractMode(""); err != nil || m != ModeParagraphs {
		t.Errorf("empty mode = %q, %v", m, err)
	}
	if m, err := ParseExtractMode("Readability"); err != nil || m != ModeReadability {
		t.Errorf("readability mode = %q, %v", m, err)
	}
	if _, err := ParseExtractMode("pdf"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
