package scraper

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ErrorContentPrefix starts the content of every failed fetch.
const ErrorContentPrefix = "⚠️ Error fetching content: "

// DefaultMaxParagraphs is the number of <p> blocks kept per page.
const DefaultMaxParagraphs = 5

// ExtractMode selects how text is pulled from markup.
type ExtractMode string

const (
	ModeParagraphs  ExtractMode = "paragraphs"
	ModeReadability ExtractMode = "readability"
)

// ParseExtractMode maps a config value onto an ExtractMode. Empty selects
// ModeParagraphs.
func ParseExtractMode(s string) (ExtractMode, error) {
	switch m := ExtractMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeParagraphs, nil
	case ModeParagraphs, ModeReadability:
		return m, nil
	}
	return "", fmt.Errorf("scraper: unknown extract mode %q", s)
}

// ErrorContent renders the content placeholder for a failed fetch.
func ErrorContent(err error) string {
	return ErrorContentPrefix + err.Error()
}

// IsErrorContent reports whether content is a failed-fetch placeholder.
func IsErrorContent(content string) bool {
	return strings.HasPrefix(content, ErrorContentPrefix)
}

// Extractor turns fetched markup into plain text.
type Extractor struct {
	maxParagraphs int
	mode          ExtractMode
	logger        *slog.Logger
}

// NewExtractor returns an Extractor keeping up to maxParagraphs blocks.
// Non-positive values use DefaultMaxParagraphs.
func NewExtractor(maxParagraphs int, mode ExtractMode, logger *slog.Logger) *Extractor {
	if maxParagraphs <= 0 {
		maxParagraphs = DefaultMaxParagraphs
	}
	if mode == "" {
		mode = ModeParagraphs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{maxParagraphs: maxParagraphs, mode: mode, logger: logger}
}

// Extract returns the page text, or the error placeholder when the fetch
// failed.
func (e *Extractor) Extract(page *Page) string {
	if page == nil {
		return ErrorContent(fmt.Errorf("no page"))
	}
	if page.Err != nil {
		return ErrorContent(page.Err)
	}

	if e.mode == ModeReadability {
		if text, ok := e.readable(page); ok {
			return text
		}
	}
	return e.paragraphs(page.Body)
}

// paragraphs joins the text of the first N <p> elements with newlines.
// Paragraph text is kept verbatim.
func (e *Extractor) paragraphs(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		e.logger.Debug("failed to parse markup", "err", err)
		return ""
	}

	blocks := make([]string, 0, e.maxParagraphs)
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		blocks = append(blocks, s.Text())
		return len(blocks) < e.maxParagraphs
	})

	return strings.Join(blocks, "\n")
}

// readable falls back to paragraph extraction when readability finds no
// article text.
func (e *Extractor) readable(page *Page) (string, bool) {
	u, err := url.Parse(page.URL)
	if err != nil {
		return "", false
	}

	article, err := readability.FromReader(bytes.NewReader(page.Body), u)
	if err != nil {
		e.logger.Debug("readability failed, using paragraphs", "url", page.URL, "err", err)
		return "", false
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", false
	}
	return text, true
}
