// Package presence mirrors the set of connected clients into Redis so
// operators and sibling services can see who is online. The in-process
// registry stays the source of truth; everything here is best-effort.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peerdrop/signaling/config"
)

const (
	peersKey = "signaling:peers"

	// A stale mirror entry disappears on its own if the process dies
	// without cleaning up.
	peersTTL = 24 * time.Hour
)

type Tracker struct {
	rdb *redis.Client
	log *zap.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(cfg config.RedisConfig, log *zap.Logger) (*Tracker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Tracker{rdb: rdb, log: log}, nil
}

// ClientConnected records id in the online set. Mirror failures are
// logged, never surfaced; a Redis blip must not reject a connection.
func (t *Tracker) ClientConnected(ctx context.Context, id string) {
	if err := t.rdb.SAdd(ctx, peersKey, id).Err(); err != nil {
		t.log.Warn("presence mirror add failed", zap.String("clientId", id), zap.Error(err))
		return
	}
	t.rdb.Expire(ctx, peersKey, peersTTL)
}

// ClientDisconnected removes id from the online set.
func (t *Tracker) ClientDisconnected(ctx context.Context, id string) {
	if err := t.rdb.SRem(ctx, peersKey, id).Err(); err != nil {
		t.log.Warn("presence mirror remove failed", zap.String("clientId", id), zap.Error(err))
	}
}

func (t *Tracker) Close() error {
	return t.rdb.Close()
}
