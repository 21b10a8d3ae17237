package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// RedisMirror fans a Cache's quotes out to Redis so other processes can
// read the same market data without sharing memory. It is a mirror, not
// the source of truth: the in-process Cache always answers reads; the
// mirror write is best-effort and never blocks the caller.
//
// A nil *RedisMirror is safe to call every method on (mirrors
// internal/market/redis_cache.go's nil-receiver graceful degradation in
// the teacher repo), so callers can wire it unconditionally and only pay
// for Redis when a client is configured.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror builds a mirror. If client is nil, returns nil.
func NewRedisMirror(client *redis.Client, ttl time.Duration) *RedisMirror {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 2 * DefaultStalenessWindow
	}
	return &RedisMirror{client: client, ttl: ttl}
}

// Publish mirrors a batch of quotes to Redis, logging (never returning)
// failures, since a mirror-write failure must not affect detection.
func (m *RedisMirror) Publish(ctx context.Context, quotes []core.Quote) {
	if m == nil || m.client == nil {
		return
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	pipe := m.client.Pipeline()
	for i := range quotes {
		q := quotes[i]
		data, err := json.Marshal(q)
		if err != nil {
			log.Warn().Err(err).Str("key", q.Key()).Msg("failed to marshal quote for redis mirror")
			continue
		}
		pipe.Set(cacheCtx, m.buildKey(q.Key()), data, m.ttl)
	}
	if _, err := pipe.Exec(cacheCtx); err != nil {
		log.Warn().Err(err).Msg("redis mirror pipeline exec failed")
	}
}

// Get reads a mirrored quote back from Redis, used by a second process
// that does not own the authoritative in-process Cache.
func (m *RedisMirror) Get(ctx context.Context, symbol, venue string) (*core.Quote, bool) {
	if m == nil || m.client == nil {
		return nil, false
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	raw, err := m.client.Get(cacheCtx, m.buildKey(core.CacheKey(symbol, venue))).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Msg("redis mirror get error - treating as miss")
		}
		return nil, false
	}

	var q core.Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		log.Warn().Err(err).Msg("failed to unmarshal mirrored quote")
		return nil, false
	}
	return &q, true
}

// Health checks Redis reachability.
func (m *RedisMirror) Health(ctx context.Context) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("redis mirror not configured")
	}
	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.client.Ping(cacheCtx).Err(); err != nil {
		return fmt.Errorf("redis mirror unhealthy: %w", err)
	}
	return nil
}

func (m *RedisMirror) buildKey(key string) string {
	return fmt.Sprintf("arbctl:quote:%s", key)
}
