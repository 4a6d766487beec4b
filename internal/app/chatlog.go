package app

import (
	"context"
	"fmt"

	"github.com/FranksOps/gleaner/internal/config"
	"github.com/FranksOps/gleaner/internal/storage"
	"github.com/FranksOps/gleaner/internal/storage/csvbackend"
	"github.com/FranksOps/gleaner/internal/storage/jsonbackend"
	"github.com/FranksOps/gleaner/internal/storage/postgres"
	"github.com/FranksOps/gleaner/internal/storage/redisbackend"
	"github.com/FranksOps/gleaner/internal/storage/sqlite"
)

// OpenChatLog opens the configured chat-log sink. The "none" backend
// returns a nil Backend, which disables logging.
func OpenChatLog(ctx context.Context, cfg config.ChatLogConfig) (storage.Backend, error) {
	var (
		b   storage.Backend
		err error
	)
	switch cfg.Backend {
	case config.ChatLogNone:
		return nil, nil
	case config.ChatLogMemory:
		return storage.NewMemory(), nil
	case config.ChatLogJSON:
		b, err = jsonbackend.New(cfg.Path)
	case config.ChatLogCSV:
		b, err = csvbackend.New(cfg.Path)
	case config.ChatLogSQLite:
		b, err = sqlite.New(cfg.DSN)
	case config.ChatLogPostgres:
		b, err = postgres.New(ctx, cfg.DSN)
	case config.ChatLogRedis:
		b, err = redisbackend.New(ctx, redisbackend.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			MaxLen:   cfg.RedisMaxLen,
		})
	default:
		return nil, fmt.Errorf("unsupported chat log backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s chat log: %w", cfg.Backend, err)
	}
	return b, nil
}
