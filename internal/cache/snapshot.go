package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/muj89/usdt-p2p-moniter/internal/market"
)

// SnapshotCache keeps the most recently composed snapshot per
// asset/fiat pair so web requests landing between ingest ticks do not
// each hit the marketplace.
type SnapshotCache interface {
	Get(ctx context.Context, asset, fiat string) (*market.AssetSnapshot, bool, error)
	Set(ctx context.Context, snap market.AssetSnapshot) error
	Close() error
}

type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSnapshotCache builds a cache keyed by asset/fiat.
func NewRedisSnapshotCache(addr, password string, db int, ttl time.Duration, prefix string) (SnapshotCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if prefix == "" {
		prefix = "latest_snapshot"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisSnapshotCache{client: client, ttl: ttl, prefix: prefix}, nil
}

// Disabled returns a no-op cache for deployments without redis.
func Disabled() SnapshotCache {
	return (*redisSnapshotCache)(nil)
}

func (c *redisSnapshotCache) key(asset, fiat string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, asset, fiat)
}

func (c *redisSnapshotCache) Get(ctx context.Context, asset, fiat string) (*market.AssetSnapshot, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.key(asset, fiat)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap market.AssetSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

func (c *redisSnapshotCache) Set(ctx context.Context, snap market.AssetSnapshot) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(snap.Asset, snap.Fiat), payload, c.ttl).Err()
}

func (c *redisSnapshotCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
