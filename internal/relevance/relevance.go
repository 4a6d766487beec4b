// Package relevance decides whether extracted page content is relevant to a
// search query.
package relevance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/gleaner/internal/metrics"
	"github.com/FranksOps/gleaner/internal/oracle"
	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the lexical ratio a page must exceed under PolicyStrict.
// The ratio is bounded by 2*len(query)/(len(content)+len(query)), so strict
// gating only suits short snippets.
const DefaultThreshold = 0.3

// maxPromptRunes caps the content embedded in an oracle prompt.
const maxPromptRunes = 4000

// Policy controls how the lexical stage gates results.
type Policy string

const (
	// PolicyStrict rejects content at or below the lexical threshold.
	PolicyStrict Policy = "strict"
	// PolicyAdvisory computes the lexical ratio but never rejects on it.
	PolicyAdvisory Policy = "advisory"
)

// ParsePolicy maps a config value onto a Policy. Empty selects
// PolicyAdvisory.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAdvisory, nil
	case PolicyStrict, PolicyAdvisory:
		return p, nil
	}
	return "", fmt.Errorf("relevance: unknown policy %q", s)
}

// Stage names the step that produced a Verdict.
type Stage string

const (
	StageLexical Stage = "lexical"
	StageOracle  Stage = "oracle"
)

// Verdict is the outcome of judging one piece of content.
type Verdict struct {
	Accepted     bool
	LexicalScore float64
	DecidedBy    Stage
	Err          error
}

// Config tunes a Filter.
type Config struct {
	Policy    Policy
	Threshold float64
}

// Filter composes the lexical ratio with an optional oracle judgment.
type Filter struct {
	policy    Policy
	threshold float64
	oracle    oracle.Oracle
	logger    *slog.Logger
}

// NewFilter builds a Filter. A nil oracle leaves the lexical stage in charge.
// The zero Config is advisory.
func NewFilter(cfg Config, o oracle.Oracle, logger *slog.Logger) *Filter {
	if cfg.Policy == "" {
		cfg.Policy = PolicyAdvisory
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{policy: cfg.Policy, threshold: cfg.Threshold, oracle: o, logger: logger}
}

// Ratio is the character-level similarity of content and query, both
// lower-cased, as 2*M/T over matching blocks.
func Ratio(content, query string) float64 {
	a := strings.Split(strings.ToLower(content), "")
	b := strings.Split(strings.ToLower(query), "")
	if len(a)+len(b) == 0 {
		return 1
	}
	return difflib.NewMatcher(a, b).Ratio()
}

// Judge runs the lexical stage, then the oracle when one is configured.
// Empty content is never accepted. Oracle failures reject.
func (f *Filter) Judge(ctx context.Context, query, content string) Verdict {
	if strings.TrimSpace(content) == "" {
		metrics.RelevanceDecisions.WithLabelValues(string(StageLexical), "reject").Inc()
		return Verdict{DecidedBy: StageLexical}
	}

	v := Verdict{LexicalScore: Ratio(content, query), DecidedBy: StageLexical}
	passed := v.LexicalScore > f.threshold
	f.logger.Debug("lexical ratio", "query", query, "ratio", v.LexicalScore, "passed", passed, "policy", f.policy)

	if f.policy == PolicyStrict && !passed {
		metrics.RelevanceDecisions.WithLabelValues(string(StageLexical), "reject").Inc()
		return v
	}

	if f.oracle == nil {
		v.Accepted = f.policy == PolicyAdvisory || passed
		metrics.RelevanceDecisions.WithLabelValues(string(StageLexical), verdictLabel(v.Accepted)).Inc()
		return v
	}

	v.DecidedBy = StageOracle
	resp, err := f.oracle.Complete(ctx, Prompt(query, content))
	if err != nil {
		f.logger.Warn("relevance oracle failed, rejecting", "query", query, "err", err)
		v.Err = err
		metrics.RelevanceDecisions.WithLabelValues(string(StageOracle), "error").Inc()
		return v
	}

	v.Accepted = strings.Contains(strings.TrimSpace(resp), "YES")
	metrics.RelevanceDecisions.WithLabelValues(string(StageOracle), verdictLabel(v.Accepted)).Inc()
	return v
}

// Prompt renders the strict YES/NO instruction for the oracle.
func Prompt(query, content string) string {
	if r := []rune(content); len(r) > maxPromptRunes {
		content = string(r[:maxPromptRunes])
	}
	return fmt.Sprintf("Answer with exactly one word, YES or NO.\n"+
		"Is the following content relevant to the keyword %q?\n\n"+
		"Content:\n%s", query, content)
}

func verdictLabel(accepted bool) string {
	if accepted {
		return "accept"
	}
	return "reject"
}
