// Package report renders search responses and chat-log history for the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/FranksOps/gleaner/internal/search"
	"github.com/FranksOps/gleaner/internal/storage"
)

// Format selects an output rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates an output format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

const responseTmpl = `Query:    {{.Query}}
Links:    {{.Links}} (failed {{.Failed}}, rejected {{.Rejected}}, skipped {{.Skipped}})
{{- if .SessionID}}
Session:  {{.SessionID}}
{{- end}}
{{if .Message}}
{{.Message}}
{{- else}}
{{- range $i, $r := .Results}}
[{{inc $i}}] {{$r.URL}} (score {{printf "%.3f" $r.LexicalScore}})
    {{excerpt $r.Content}}
{{- end}}
{{- end}}
{{- range .Failures}}
[failed] {{.URL}}
    {{.Content}}
{{- end}}
`

// WriteResponse renders resp in the given format. Text output shows one
// excerpt of at most excerptRunes per accepted result, then failed links.
func WriteResponse(w io.Writer, resp *search.Response, format Format, excerptRunes int) error {
	if format == FormatJSON {
		return WriteJSON(w, resp)
	}

	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"excerpt": func(content string) string {
			return strings.ReplaceAll(truncate(content, excerptRunes), "\n", "\n    ")
		},
	}
	t, err := template.New("response").Funcs(funcs).Parse(responseTmpl)
	if err != nil {
		return fmt.Errorf("parse response template: %w", err)
	}
	if err := t.Execute(w, resp); err != nil {
		return fmt.Errorf("render response: %w", err)
	}
	return nil
}

const historyTmpl = `{{- range .}}
{{.Timestamp.Format "2006-01-02 15:04:05"}}  {{.SessionID}}{{if .UserID}}  user={{.UserID}}{{end}}
  Q: {{.Query}}
  A: {{oneline .Response}}
{{- else}}
No chat log entries.
{{- end}}
`

// WriteHistory renders chat-log entries in the given format.
func WriteHistory(w io.Writer, entries []*storage.ChatLogEntry, format Format) error {
	if format == FormatJSON {
		if entries == nil {
			entries = []*storage.ChatLogEntry{}
		}
		return WriteJSON(w, entries)
	}

	funcs := template.FuncMap{
		"oneline": func(s string) string { return truncate(strings.Join(strings.Fields(s), " "), 160) },
	}
	t, err := template.New("history").Funcs(funcs).Parse(historyTmpl)
	if err != nil {
		return fmt.Errorf("parse history template: %w", err)
	}
	if err := t.Execute(w, entries); err != nil {
		return fmt.Errorf("render history: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
