package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGate is a Gate backed by Redis, for sharing rate-limit state across
// process restarts and horizontally scaled collectors. It reimplements the
// same Acquire contract as Gate but keeps lastRequest/remaining/reset in
// Redis keys scoped per endpoint instead of an in-process map.
type RedisGate struct {
	client      *redis.Client
	prefix      string
	minInterval time.Duration
}

// NewRedisGate wraps client. Keys are namespaced under prefix (e.g.
// "sentinel:rategate:").
func NewRedisGate(client *redis.Client, prefix string, minInterval time.Duration) *RedisGate {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &RedisGate{client: client, prefix: prefix, minInterval: minInterval}
}

func (g *RedisGate) lastKey(endpoint string) string  { return fmt.Sprintf("%s%s:last", g.prefix, endpoint) }
func (g *RedisGate) remKey(endpoint string) string   { return fmt.Sprintf("%s%s:remaining", g.prefix, endpoint) }
func (g *RedisGate) resetKey(endpoint string) string { return fmt.Sprintf("%s%s:reset", g.prefix, endpoint) }

// Acquire mirrors Gate.Acquire, backed by Redis GET/SET so multiple
// processes sharing the same Redis instance observe one admission state
// per endpoint.
func (g *RedisGate) Acquire(ctx context.Context, endpoint string, now time.Time) (Result, error) {
	remStr, err := g.client.Get(ctx, g.remKey(endpoint)).Result()
	if err != nil && err != redis.Nil {
		return Result{}, fmt.Errorf("ratelimit: redis get remaining: %w", err)
	}
	if remStr == "0" {
		resetStr, err := g.client.Get(ctx, g.resetKey(endpoint)).Result()
		if err == nil {
			resetAt, parseErr := time.Parse(time.RFC3339Nano, resetStr)
			if parseErr == nil {
				if !now.Before(resetAt) {
					g.client.Set(ctx, g.remKey(endpoint), -1, 0)
					return Result{Decision: Grant}, nil
				}
				return Result{Decision: Wait, WaitFor: resetAt.Sub(now), ResetTime: resetAt}, nil
			}
		}
	}

	lastStr, err := g.client.Get(ctx, g.lastKey(endpoint)).Result()
	if err == nil {
		last, parseErr := time.Parse(time.RFC3339Nano, lastStr)
		if parseErr == nil {
			elapsed := now.Sub(last)
			if elapsed < g.minInterval {
				return Result{Decision: Wait, WaitFor: g.minInterval - elapsed}, nil
			}
		}
	}

	if err := g.client.Set(ctx, g.lastKey(endpoint), now.Format(time.RFC3339Nano), 0).Err(); err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis set last: %w", err)
	}
	return Result{Decision: Grant}, nil
}

// UpdateFromHeaders records limit/remaining/reset into Redis.
func (g *RedisGate) UpdateFromHeaders(ctx context.Context, endpoint string, limit, remaining int, reset time.Time) error {
	pipe := g.client.TxPipeline()
	pipe.Set(ctx, g.remKey(endpoint), remaining, 0)
	pipe.Set(ctx, g.resetKey(endpoint), reset.Format(time.RFC3339Nano), 0)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("ratelimit: redis update from headers: %w", err)
	}
	return nil
}
