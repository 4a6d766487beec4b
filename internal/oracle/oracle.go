// Package oracle wraps text-completion backends used for relevance judgments
// and phrase reduction.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrUnavailable wraps every backend failure.
var ErrUnavailable = errors.New("oracle unavailable")

const (
	BackendNone   = "none"
	BackendOllama = "ollama"
	BackendOpenAI = "openai"

	DefaultTimeout = 30 * time.Second
)

// Oracle completes a single prompt.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config selects and tunes a backend.
type Config struct {
	Backend     string
	Model       string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	Temperature float32
}

// New builds the configured backend. Backend "" or "none" returns a nil
// Oracle and no error.
func New(cfg Config, logger *slog.Logger) (Oracle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendNone:
		return nil, nil
	case BackendOllama:
		o, err := NewOllama(cfg, logger)
		if err != nil {
			return nil, err
		}
		return o, nil
	case BackendOpenAI:
		o, err := NewOpenAI(cfg, logger)
		if err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, fmt.Errorf("oracle: unknown backend %q", cfg.Backend)
}

func unavailable(backend string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, backend, err)
}
