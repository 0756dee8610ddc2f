package persistence

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/transfer-verification-engine/internal/config"
)

func TestNewRedis_Unreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewRedis(context.Background(), logger, &config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.ErrorContains(t, err, "failed to ping Redis")
}

// redis.NewClient dials lazily, so Close works without a server
func TestRedis_Accessors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	r := &Redis{logger: logger, client: client}

	assert.Equal(t, client, r.Client())
	assert.NoError(t, r.Close())
}
