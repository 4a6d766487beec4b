// Package analyzer locates query terms inside extracted page text.
package analyzer

import (
	"strings"
	"unicode"
)

// DefaultExcerptRunes bounds the length of an Excerpt.
const DefaultExcerptRunes = 600

// TermMatch represents occurrences of a query term within a page.
type TermMatch struct {
	Term      string   `json:"term"`
	URL       string   `json:"url"`
	Count     int      `json:"count"`
	Sentences []string `json:"sentences"`
}

// Terms splits a query into lower-cased words of at least three runes, in
// query order, without duplicates.
func Terms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// FindTermMatches scans content for each term (case-insensitive) and returns
// the count and enclosing sentences of every term that occurs.
func FindTermMatches(content, url string, terms []string) []TermMatch {
	if content == "" || len(terms) == 0 {
		return nil
	}

	lowerContent := strings.ToLower(content)
	sentences := splitIntoSentences(content)

	results := make([]TermMatch, 0, len(terms))
	for _, term := range terms {
		lowerTerm := strings.ToLower(term)
		count := strings.Count(lowerContent, lowerTerm)
		if count == 0 {
			continue
		}

		var matched []string
		for _, sd := range sentences {
			if strings.Contains(sd.lower, lowerTerm) {
				matched = append(matched, sd.original)
			}
		}

		results = append(results, TermMatch{
			Term:      term,
			URL:       url,
			Count:     count,
			Sentences: matched,
		})
	}
	return results
}

// Excerpt returns the sentences of content that mention any query term, in
// document order, capped at maxRunes. Content without matches falls back to
// its leading text.
func Excerpt(content, query string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultExcerptRunes
	}

	terms := Terms(query)
	var b strings.Builder
	for _, sd := range splitIntoSentences(content) {
		if !containsAny(sd.lower, terms) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sd.original)
	}

	excerpt := b.String()
	if excerpt == "" {
		excerpt = strings.TrimSpace(content)
	}
	return truncate(excerpt, maxRunes)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(r[:maxRunes])) + "…"
}

type sentenceData struct {
	original string
	lower    string
}

// splitIntoSentences splits on '.', '!', '?' and newlines, keeping the
// delimiter and dropping empty pieces.
func splitIntoSentences(text string) []sentenceData {
	if text == "" {
		return nil
	}

	estimated := len(text) / 50
	if estimated < 1 {
		estimated = 1
	}
	sentences := make([]sentenceData, 0, estimated)

	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, sentenceData{original: s, lower: strings.ToLower(s)})
		}
	}

	start := 0
	for i, r := range text {
		if i < start {
			continue
		}
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			end := i + 1
			for end < len(text) && unicode.IsSpace(rune(text[end])) {
				end++
			}
			add(text[start:end])
			start = end
		}
	}
	if start < len(text) {
		add(text[start:])
	}

	return sentences
}
