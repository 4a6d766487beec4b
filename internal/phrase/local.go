// Package phrase reduces headlines to short keyword phrases.
package phrase

import (
	"context"
	"strings"
	"unicode"
)

// MaxWords is the number of content words kept per phrase.
const MaxWords = 3

// Reducer turns headlines into phrases.
type Reducer interface {
	Reduce(ctx context.Context, headlines []string) ([]string, error)
}

// Local reduces headlines without any external call.
type Local struct{}

// Reduce maps every headline through ReduceHeadline. It never fails and
// keeps empty phrases so output aligns with input.
func (Local) Reduce(_ context.Context, headlines []string) ([]string, error) {
	out := make([]string, len(headlines))
	for i, h := range headlines {
		out[i] = ReduceHeadline(h)
	}
	return out, nil
}

// ReduceHeadline keeps the first MaxWords purely alphabetic tokens of h that
// are not stopwords, joined by single spaces. It is a pure function of h.
func ReduceHeadline(h string) string {
	tokens := strings.FieldsFunc(h, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	kept := make([]string, 0, MaxWords)
	for _, tok := range tokens {
		if len(kept) == MaxWords {
			break
		}
		if !isAlpha(tok) {
			continue
		}
		if _, stop := stopwords[strings.ToLower(tok)]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
