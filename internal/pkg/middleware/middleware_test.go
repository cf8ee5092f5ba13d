package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestLocalLimiterBudget(t *testing.T) {
	l := NewLocalLimiter(2, zap.NewNop())
	fixed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	first, err := l.Allow(context.Background(), "client-a")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 2, first.Limit)
	assert.Equal(t, 1, first.Remaining)

	second, err := l.Allow(context.Background(), "client-a")
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	third, err := l.Allow(context.Background(), "client-a")
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Equal(t, 0, third.Remaining)
	// One token regenerates in 30s at 2 rpm.
	assert.InDelta(t, 30, third.RetryAfter.Seconds(), 0.01)
	assert.Equal(t, fixed.Add(third.RetryAfter), third.Reset)
}

func TestLocalLimiterIsolatesClients(t *testing.T) {
	l := NewLocalLimiter(1, zap.NewNop())
	fixed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	got, err := l.Allow(context.Background(), "client-a")
	require.NoError(t, err)
	assert.True(t, got.Allowed)

	got, err = l.Allow(context.Background(), "client-a")
	require.NoError(t, err)
	assert.False(t, got.Allowed)

	got, err = l.Allow(context.Background(), "client-b")
	require.NoError(t, err)
	assert.True(t, got.Allowed, "client-b has its own bucket")
}

type fakeCounter struct {
	count      int64
	incrErr    error
	ttl        time.Duration
	ttlErr     error
	expireKeys []string
}

func (f *fakeCounter) Incr(_ context.Context, _ string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.count++
	return redis.NewIntResult(f.count, nil)
}

func (f *fakeCounter) Expire(_ context.Context, key string, _ time.Duration) *redis.BoolCmd {
	f.expireKeys = append(f.expireKeys, key)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) TTL(_ context.Context, _ string) *redis.DurationCmd {
	if f.ttlErr != nil {
		return redis.NewDurationResult(0, f.ttlErr)
	}
	return redis.NewDurationResult(f.ttl, nil)
}

func TestRedisLimiterWindow(t *testing.T) {
	counter := &fakeCounter{ttl: 42 * time.Second}
	l := newRedisLimiterWithCounter(counter, 2, zap.NewNop())
	fixed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	first, err := l.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)
	assert.Equal(t, fixed.Add(42*time.Second), first.Reset)

	second, err := l.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	third, err := l.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Equal(t, 42*time.Second, third.RetryAfter)

	// Only the first hit of the window sets the expiry.
	assert.Equal(t, []string{redisKeyPrefix + "203.0.113.9"}, counter.expireKeys)
}

func TestRedisLimiterTTLFallsBackToFullWindow(t *testing.T) {
	counter := &fakeCounter{ttlErr: errors.New("ttl broken")}
	l := newRedisLimiterWithCounter(counter, 5, zap.NewNop())
	fixed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	got, err := l.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, got.Allowed)
	assert.Equal(t, fixed.Add(time.Minute), got.Reset)
}

func TestRedisLimiterSurfacesIncrErrors(t *testing.T) {
	counter := &fakeCounter{incrErr: errors.New("connection refused")}
	l := newRedisLimiterWithCounter(counter, 5, zap.NewNop())

	_, err := l.Allow(context.Background(), "203.0.113.9")
	assert.Error(t, err)
}

func TestRateLimitMiddlewareHeaders(t *testing.T) {
	r := newRouter(RateLimit(NewLocalLimiter(1, zap.NewNop()), zap.NewNop()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Contains(t, w.Body.String(), "retryAfter")
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("backend down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newRouter(RateLimit(erroringLimiter{}, zap.NewNop()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitKeysByClientIP(t *testing.T) {
	r := newRouter(RateLimit(NewLocalLimiter(1, zap.NewNop()), zap.NewNop()))

	// Exhaust one address's bucket.
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.7:1235"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// A different address rides its own bucket.
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.8:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func authEchoRouter(cfg AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(cfg, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userId":        c.GetString("user_id"),
			"authenticated": c.GetBool("authenticated"),
		})
	})
	return r
}

func TestAuthDisabledTreatsEveryoneAsAnonymous(t *testing.T) {
	r := authEchoRouter(AuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId": "anonymous", "authenticated": false}`, w.Body.String())
}

func TestAuthOptionalValidToken(t *testing.T) {
	cfg := AuthConfig{SecretKey: "test-secret", TokenExpiration: time.Hour}
	token, err := GenerateToken(cfg, "user-42", "traveler@example.com")
	require.NoError(t, err)

	r := authEchoRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId": "user-42", "authenticated": true}`, w.Body.String())
}

func TestAuthOptionalBadTokenFallsBackToAnonymous(t *testing.T) {
	cfg := AuthConfig{SecretKey: "test-secret", TokenExpiration: time.Hour}

	wrongSecret, err := GenerateToken(AuthConfig{SecretKey: "other-secret", TokenExpiration: time.Hour}, "user-42", "")
	require.NoError(t, err)

	expiredCfg := cfg
	expiredCfg.TokenExpiration = -time.Hour
	expired, err := GenerateToken(expiredCfg, "user-42", "")
	require.NoError(t, err)

	r := authEchoRouter(cfg)
	for name, header := range map[string]string{
		"wrong secret": "Bearer " + wrongSecret,
		"malformed":    "Token abc",
		"not a jwt":    "Bearer not.a.jwt",
		"expired":      "Bearer " + expired,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"userId": "anonymous", "authenticated": false}`, w.Body.String())
		})
	}
}

func TestAuthRequired(t *testing.T) {
	cfg := AuthConfig{SecretKey: "test-secret", TokenExpiration: time.Hour, Required: true}
	token, err := GenerateToken(cfg, "user-42", "")
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Basic dXNlcjpwdw==", http.StatusUnauthorized},
		{"invalid token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	r := authEchoRouter(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestBodyLimitWrapsChunkedBodies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1 // undeclared length, as in chunked transfer
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBodyLimitAllowsSmallBodies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.String(http.StatusOK, string(body))
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("hello"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
}

func TestRequestIDGeneratesUUID(t *testing.T) {
	var seen string
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	echoed := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, echoed)
	assert.Equal(t, seen, echoed)
	_, err := uuid.Parse(echoed)
	assert.NoError(t, err)
}

func TestRequestIDKeepsCallerSupplied(t *testing.T) {
	r := newRouter(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "trace-me-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "trace-me-123", w.Header().Get(RequestIDHeader))
}

func TestSecurityHeaders(t *testing.T) {
	r := newRouter(SecurityHeaders())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	h := w.Header()
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", h.Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", h.Get("Strict-Transport-Security"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", h.Get("Content-Security-Policy"))
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(CORS())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
