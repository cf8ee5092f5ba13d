package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "tabiji:ratelimit:"

// redisCounter is the slice of the go-redis client the limiter needs.
// Narrowed so tests can stub it without a live server.
type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLimiter counts requests in fixed one-minute windows using a
// shared INCR-with-TTL key, so every replica enforces the same budget.
type RedisLimiter struct {
	counter redisCounter
	rpm     int
	window  time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisLimiter builds a limiter allowing rpm requests per minute per
// client against an already-connected Redis client.
func NewRedisLimiter(client *redis.Client, rpm int, logger *zap.Logger) *RedisLimiter {
	return newRedisLimiterWithCounter(client, rpm, logger)
}

func newRedisLimiterWithCounter(counter redisCounter, rpm int, logger *zap.Logger) *RedisLimiter {
	if rpm < 1 {
		rpm = 1
	}
	return &RedisLimiter{
		counter: counter,
		rpm:     rpm,
		window:  time.Minute,
		logger:  logger,
		now:     time.Now,
	}
}

// NewRedisLimiterFromURL dials Redis from a connection URL such as
// redis://localhost:6379/0 and verifies connectivity before handing
// back a limiter.
func NewRedisLimiterFromURL(ctx context.Context, url string, rpm int, logger *zap.Logger) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	return NewRedisLimiter(client, rpm, logger), nil
}

// Allow increments the client's window counter and compares it against
// the budget. Errors are returned to the caller, which fails open.
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	key := redisKeyPrefix + clientID

	count, err := l.counter.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis incr: %w", err)
	}

	// The first hit of a window owns the expiry, so the window slides as
	// a whole rather than per request.
	if count == 1 {
		if err := l.counter.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("Failed to set rate limit window expiry",
				zap.String("key", key), zap.Error(err))
		}
	}

	ttl, err := l.counter.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = l.window
	}

	decision := Decision{
		Limit: l.rpm,
		Reset: l.now().Add(ttl),
	}
	if count > int64(l.rpm) {
		decision.RetryAfter = ttl
		return decision, nil
	}

	decision.Allowed = true
	decision.Remaining = l.rpm - int(count)
	return decision, nil
}
