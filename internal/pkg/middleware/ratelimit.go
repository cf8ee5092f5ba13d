package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tabiji-app/tabiji/internal/observability/metrics"
)

// clientIdleTimeout is how long a client may stay quiet before its
// bucket is dropped from memory.
const clientIdleTimeout = 10 * time.Minute

// Decision is the outcome of a rate limit check, carrying everything the
// X-RateLimit response headers need.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	Reset      time.Time
}

// Limiter answers whether a client may issue another request right now.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, clientID string) (Decision, error)
}

// LocalLimiter enforces a per-client token bucket in process memory. It
// is the fallback when no shared Redis backend is configured, so each
// replica enforces its own budget independently.
type LocalLimiter struct {
	mu      sync.Mutex
	clients map[string]*localClient
	rpm     int
	logger  *zap.Logger
	now     func() time.Time
}

type localClient struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter builds a limiter allowing rpm requests per minute per
// client, with a burst of a full minute's budget.
func NewLocalLimiter(rpm int, logger *zap.Logger) *LocalLimiter {
	if rpm < 1 {
		rpm = 1
	}
	l := &LocalLimiter{
		clients: make(map[string]*localClient),
		rpm:     rpm,
		logger:  logger,
		now:     time.Now,
	}

	go l.evictIdle()

	return l
}

// Allow reserves one token from the client's bucket. It never returns an
// error; the in-process backend has no failure mode.
func (l *LocalLimiter) Allow(_ context.Context, clientID string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	client, ok := l.clients[clientID]
	if !ok {
		client = &localClient{
			bucket: rate.NewLimiter(rate.Limit(float64(l.rpm)/60.0), l.rpm),
		}
		l.clients[clientID] = client
	}
	client.lastSeen = now
	l.mu.Unlock()

	res := client.bucket.ReserveN(now, 1)
	if !res.OK() {
		return Decision{Limit: l.rpm, RetryAfter: time.Minute, Reset: now.Add(time.Minute)}, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		// Do not let a rejected request hold a future token.
		res.CancelAt(now)
		return Decision{
			Allowed:    false,
			Limit:      l.rpm,
			Remaining:  0,
			RetryAfter: delay,
			Reset:      now.Add(delay),
		}, nil
	}

	// Reset approximates a full bucket refill. The Redis backend reports
	// the exact window expiry instead.
	return Decision{
		Allowed:   true,
		Limit:     l.rpm,
		Remaining: int(client.bucket.TokensAt(now)),
		Reset:     now.Add(time.Minute),
	}, nil
}

// evictIdle drops buckets for clients that have gone quiet so the map
// does not grow without bound.
func (l *LocalLimiter) evictIdle() {
	ticker := time.NewTicker(clientIdleTimeout / 2)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := l.now().Add(-clientIdleTimeout)
		l.mu.Lock()
		for id, client := range l.clients {
			if client.lastSeen.Before(cutoff) {
				delete(l.clients, id)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit applies the limiter to every request, sets the X-RateLimit
// headers and rejects over-budget clients with 429. Buckets key by source
// IP. A broken limiter backend fails open: the API should not go down
// with Redis.
func RateLimit(limiter Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		decision, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			logger.Warn("Rate limiter unavailable, letting request through",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			metrics.Get().RateLimitRejectedTotal.Add(c.Request.Context(), 1)
			logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.Int("limit", decision.Limit))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded, slow down",
				"code":       "RATE_LIMIT_EXCEEDED",
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}
