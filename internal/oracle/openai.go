package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/gleaner/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI completes prompts through an OpenAI-compatible chat endpoint.
type OpenAI struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	temperature float32
	logger      *slog.Logger
}

// NewOpenAI builds a client for cfg.BaseURL, or the public API when empty.
func NewOpenAI(cfg Config, logger *slog.Logger) (*OpenAI, error) {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	} else if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle: openai requires an api key")
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Complete sends prompt as a single user message.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("empty choices")
	}
	metrics.OracleRequests.WithLabelValues(BackendOpenAI, metrics.Outcome(err)).Inc()
	if err != nil {
		o.logger.Warn("chat completion failed", "model", o.model, "err", err)
		return "", unavailable(BackendOpenAI, err)
	}

	return resp.Choices[0].Message.Content, nil
}
