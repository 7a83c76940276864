// Package cache provides a Redis-backed projection of the latest
// analysis snapshot per symbol, read by the API layer. Writes are
// best-effort: a dead Redis degrades reads to the database, never the
// engine.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"trading-signal-bot/config"
	"trading-signal-bot/internal/scoring"
)

const (
	snapshotKeyFormat = "snapshot:%s"
	snapshotTTL       = 30 * time.Minute
)

// SnapshotCache stores the latest per-symbol snapshot in Redis.
type SnapshotCache struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewSnapshotCache connects to Redis. A failed initial ping is logged
// but not fatal; the cache keeps trying on use.
func NewSnapshotCache(cfg config.RedisConfig, log zerolog.Logger) *SnapshotCache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	sc := &SnapshotCache{
		client: client,
		log:    log.With().Str("component", "snapshot_cache").Logger(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		sc.log.Warn().Err(err).Msg("initial redis connection failed, running degraded")
	}

	return sc
}

// Set stores the snapshot for its symbol.
func (sc *SnapshotCache) Set(ctx context.Context, snap *scoring.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	key := fmt.Sprintf(snapshotKeyFormat, snap.Symbol)
	if err := sc.client.Set(ctx, key, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("caching snapshot: %w", err)
	}
	return nil
}

// Get returns the cached snapshot for a symbol, or (nil, nil) on a miss.
func (sc *SnapshotCache) Get(ctx context.Context, symbol string) (*scoring.Snapshot, error) {
	key := fmt.Sprintf(snapshotKeyFormat, symbol)
	data, err := sc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached snapshot: %w", err)
	}

	var snap scoring.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling cached snapshot: %w", err)
	}
	return &snap, nil
}

// Close releases the Redis connection.
func (sc *SnapshotCache) Close() error {
	return sc.client.Close()
}
