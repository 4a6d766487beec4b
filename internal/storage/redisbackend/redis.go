// Package redisbackend appends the chat log to a Redis stream.
package redisbackend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/gleaner/internal/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "gleaner:chatlog"

var _ storage.Backend = (*redisBackend)(nil)

// Config locates the stream.
type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen trims the stream approximately; zero keeps everything.
	MaxLen int64
}

type redisBackend struct {
	client *redis.Client
	stream string
	maxLen int64
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (storage.Backend, error) {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &redisBackend{client: client, stream: cfg.Stream, maxLen: cfg.MaxLen}, nil
}

func (b *redisBackend) Append(ctx context.Context, entry *storage.ChatLogEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"entry": raw},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}

	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

func (b *redisBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.ChatLogEntry, error) {
	msgs, err := b.client.XRange(ctx, b.stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("xrange: %w", err)
	}

	var matched []*storage.ChatLogEntry
	for _, msg := range msgs {
		raw, ok := msg.Values["entry"].(string)
		if !ok {
			continue
		}
		var e storage.ChatLogEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", msg.ID, err)
		}
		if filter.Match(&e) {
			matched = append(matched, &e)
		}
	}

	return filter.Window(matched), nil
}

func (b *redisBackend) Close() error {
	return b.client.Close()
}
