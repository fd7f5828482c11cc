package ratelimit

import (
	"context"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	redisPrefix  = "modulehub:ratelimit:"
	redisTimeout = 250 * time.Millisecond
)

// Redis shares counters between API replicas. It fails open: a Redis error
// allows the call and is logged.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis connects to addr and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{client: client, logger: logger}, nil
}

// Allow implements Limiter.
func (r *Redis) Allow(key string, limit int, span time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if span <= 0 {
		span = defaultWindow
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	redisKey := redisPrefix + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		r.logError("incr", err)
		return Decision{Allowed: true}
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, redisKey, span).Err(); err != nil {
			r.logError("pexpire", err)
		}
	}
	remaining, err := r.client.PTTL(ctx, redisKey).Result()
	if err != nil || remaining <= 0 {
		remaining = span
	}
	return Decision{Allowed: int(count) <= limit, Count: int(count), Reset: time.Now().Add(remaining)}
}

// Close releases the Redis connection pool.
func (r *Redis) Close() {
	_ = r.client.Close()
}

func (r *Redis) logError(op string, err error) {
	if r.logger != nil {
		r.logger.Error("redis rate limiter error", "op", op, "error", err)
	}
}
