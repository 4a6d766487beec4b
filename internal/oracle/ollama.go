package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/gleaner/internal/metrics"
	ollama "github.com/ollama/ollama/api"
)

// Ollama completes prompts against a local Ollama server.
type Ollama struct {
	client      *ollama.Client
	model       string
	timeout     time.Duration
	temperature float32
	logger      *slog.Logger
}

// NewOllama connects to cfg.BaseURL, or to OLLAMA_HOST when it is empty.
func NewOllama(cfg Config, logger *slog.Logger) (*Ollama, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("oracle: ollama requires a model")
	}

	var client *ollama.Client
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("oracle: invalid ollama url: %w", err)
		}
		client = ollama.NewClient(base, http.DefaultClient)
	} else {
		var err error
		client, err = ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
	}

	return &Ollama{
		client:      client,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Complete runs a non-streaming generate call.
func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	stream := false
	req := &ollama.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": o.temperature,
		},
	}

	var b strings.Builder
	err := o.client.Generate(ctx, req, func(res ollama.GenerateResponse) error {
		b.WriteString(res.Response)
		return nil
	})
	metrics.OracleRequests.WithLabelValues(BackendOllama, metrics.Outcome(err)).Inc()
	if err != nil {
		o.logger.Warn("ollama generate failed", "model", o.model, "err", err)
		return "", unavailable(BackendOllama, err)
	}

	return b.String(), nil
}
