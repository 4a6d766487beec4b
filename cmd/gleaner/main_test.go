package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FranksOps/gleaner/internal/corpus"
	"github.com/FranksOps/gleaner/internal/search"
)

func writeConfig(t *testing.T) (cfgPath, corpusPath string) {
	t.Helper()
	dir := t.TempDir()
	corpusPath = filepath.Join(dir, "prompts.csv")
	cfgPath = filepath.Join(dir, "gleaner.yaml")
	content := "corpus:\n  path: " + corpusPath + "\n" +
		"chatlog:\n  backend: json\n  path: " + filepath.Join(dir, "chat.jsonl") + "\n" +
		"log:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, corpusPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCorpusCommand(t *testing.T) {
	cfgPath, corpusPath := writeConfig(t)

	if _, err := run(t, "corpus", "--config", cfgPath); !errors.Is(err, corpus.ErrCorpusUnavailable) {
		t.Fatalf("err = %v, want ErrCorpusUnavailable", err)
	}

	if err := corpus.NewFile(corpusPath).Write([]string{"Solar eclipse visible", "with, comma"}); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "corpus", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Prompt\nSolar eclipse visible\n\"with, comma\"\n" {
		t.Errorf("corpus output = %q", out)
	}

	out, err = run(t, "corpus", "--config", cfgPath, "--phrases")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Solar eclipse visible\nwith, comma\n" {
		t.Errorf("phrases output = %q", out)
	}
}

func TestSearchCommand_ShortQuery(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	if _, err := run(t, "search", "--config", cfgPath, "ab"); !errors.Is(err, search.ErrQueryTooShort) {
		t.Fatalf("err = %v, want ErrQueryTooShort", err)
	}
}

func TestSearchCommand_BadFormat(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	if _, err := run(t, "search", "--config", cfgPath, "-o", "xml", "solar eclipse"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
}

func TestHistoryCommand_Empty(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	out, err := run(t, "history", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No chat log entries.") {
		t.Errorf("history output = %q", out)
	}
}

func TestRootCommand_BadLogLevel(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	if _, err := run(t, "corpus", "--config", cfgPath, "--log-level", "loud"); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}
