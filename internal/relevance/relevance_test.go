package relevance

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/FranksOps/gleaner/internal/oracle"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		content, query string
		want           float64
	}{
		{"solar eclipse", "solar eclipse", 1},
		{"SOLAR ECLIPSE", "solar eclipse", 1},
		{"abcd", "wxyz", 0},
		// 2*13 / (21+13)
		{"Solar eclipse tonight", "solar eclipse", 26.0 / 34.0},
		{"", "", 1},
	}
	for _, tt := range tests {
		if got := Ratio(tt.content, tt.query); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Ratio(%q, %q) = %f, want %f", tt.content, tt.query, got, tt.want)
		}
	}
}

func TestRatio_Unicode(t *testing.T) {
	if got := Ratio("éclipse", "ÉCLIPSE"); got != 1 {
		t.Errorf("expected case-insensitive rune match, got %f", got)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyAdvisory {
		t.Errorf("empty policy = %q, %v", p, err)
	}
	if p, err := ParsePolicy("Advisory"); err != nil || p != PolicyAdvisory {
		t.Errorf("advisory policy = %q, %v", p, err)
	}
	if _, err := ParsePolicy("lenient"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestFilter_StrictLexical(t *testing.T) {
	f := NewFilter(Config{Policy: PolicyStrict}, nil, nil)
	ctx := context.Background()

	if v := f.Judge(ctx, "solar eclipse", "Solar eclipse tonight"); !v.Accepted || v.DecidedBy != StageLexical {
		t.Errorf("expected lexical accept, got %+v", v)
	}

	long := "Quarterly earnings beat expectations across the retail sector."
	if v := f.Judge(ctx, "solar eclipse", long); v.Accepted {
		t.Errorf("expected lexical reject, got %+v", v)
	}

	if v := f.Judge(ctx, "solar eclipse", "   "); v.Accepted {
		t.Error("empty content must never be accepted")
	}
}

func TestFilter_AdvisoryNeverRejectsLexically(t *testing.T) {
	f := NewFilter(Config{Policy: PolicyAdvisory}, nil, nil)

	v := f.Judge(context.Background(), "solar eclipse", "Quarterly earnings beat expectations across the retail sector.")
	if !v.Accepted {
		t.Errorf("advisory policy should accept, got %+v", v)
	}
	if v.LexicalScore >= DefaultThreshold {
		t.Errorf("expected a low score to be recorded, got %f", v.LexicalScore)
	}
}

func TestFilter_DefaultAcceptsParagraphContent(t *testing.T) {
	content := "A total solar eclipse will cross North America this spring. " +
		"Millions are expected to travel into the path of the solar eclipse to watch it."

	v := NewFilter(Config{}, nil, nil).Judge(context.Background(), "solar eclipse", content)
	if !v.Accepted || v.DecidedBy != StageLexical {
		t.Errorf("default filter should accept on-topic paragraph, got %+v", v)
	}
	if v.LexicalScore >= DefaultThreshold {
		t.Errorf("expected paragraph ratio below the strict threshold, got %f", v.LexicalScore)
	}
}

func TestFilter_OracleIsAuthoritative(t *testing.T) {
	var prompts []string
	o := oracle.Func(func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		if strings.Contains(prompt, "tonight") {
			return "  YES\n", nil
		}
		return "NO", nil
	})
	f := NewFilter(Config{Policy: PolicyAdvisory}, o, nil)
	ctx := context.Background()

	if v := f.Judge(ctx, "solar eclipse", "Solar eclipse tonight"); !v.Accepted || v.DecidedBy != StageOracle {
		t.Errorf("expected oracle accept, got %+v", v)
	}
	if v := f.Judge(ctx, "solar eclipse", "Solar eclipse yesterday"); v.Accepted {
		t.Errorf("expected oracle reject, got %+v", v)
	}
	if len(prompts) != 2 || !strings.Contains(prompts[0], `"solar eclipse"`) {
		t.Errorf("unexpected prompts %q", prompts)
	}
}

func TestFilter_StrictPrefiltersBeforeOracle(t *testing.T) {
	calls := 0
	o := oracle.Func(func(context.Context, string) (string, error) {
		calls++
		return "YES", nil
	})
	f := NewFilter(Config{Policy: PolicyStrict}, o, nil)

	if v := f.Judge(context.Background(), "solar eclipse", "Quarterly earnings beat expectations across the retail sector."); v.Accepted {
		t.Errorf("expected lexical reject, got %+v", v)
	}
	if calls != 0 {
		t.Errorf("oracle should not be consulted after a strict lexical reject, got %d calls", calls)
	}
}

func TestFilter_OracleFailureRejects(t *testing.T) {
	boom := errors.New("connection refused")
	o := oracle.Func(func(context.Context, string) (string, error) {
		return "", boom
	})
	f := NewFilter(Config{}, o, nil)

	v := f.Judge(context.Background(), "solar eclipse", "Solar eclipse tonight")
	if v.Accepted {
		t.Error("oracle failure must reject")
	}
	if !errors.Is(v.Err, boom) {
		t.Errorf("expected oracle error recorded, got %v", v.Err)
	}
}

func TestPrompt_TruncatesContent(t *testing.T) {
	p := Prompt("q", strings.Repeat("é", maxPromptRunes+10))
	if n := strings.Count(p, "é"); n != maxPromptRunes {
		t.Errorf("expected %d runes of content, got %d", maxPromptRunes, n)
	}
}
