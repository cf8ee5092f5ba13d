package server

import (
	"context"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tabiji-app/tabiji/internal/app/domain/location"
	"github.com/tabiji-app/tabiji/internal/app/domain/planner"
	"github.com/tabiji-app/tabiji/internal/pkg/config"
	"github.com/tabiji-app/tabiji/internal/pkg/middleware"
	"github.com/tabiji-app/tabiji/internal/pkg/oracle/routing"
	"github.com/tabiji-app/tabiji/internal/pkg/oracle/weather"
)

const serviceName = "tabiji-api"

// SetupRouter configures the Gin router: logging, tracing and hardening
// middleware, the health probes, and the API routes wired to services
// built on dbPool.
func SetupRouter(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(ginzap.GinzapWithConfig(logger, &ginzap.Config{
		UTC:        true,
		TimeFormat: time.RFC3339,
		SkipPaths:  []string{"/healthz", "/readyz"},
		Context:    zapContextFunc(),
	}))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	registerHealth(r, dbPool)

	h := setupDependencies(cfg, dbPool, logger)

	api := r.Group("/")
	api.Use(middleware.RateLimit(newLimiter(ctx, cfg, logger), logger))
	api.Use(middleware.BodyLimit(middleware.MaxBodyBytes))
	api.Use(middleware.Auth(middleware.AuthConfig{
		SecretKey:       cfg.Auth.SecretKey,
		TokenExpiration: 24 * time.Hour,
		Required:        cfg.Auth.Required,
	}, logger))

	api.POST("/itinerary/plan", h.planner.GeneratePlan)
	api.POST("/itinerary/availability", h.planner.CheckAvailability)
	api.POST("/itinerary/replacements", h.planner.SuggestReplacements)
	api.GET("/trips/:id", h.planner.GetTrip)
	api.GET("/locations", h.locations.ListLocations)
	api.GET("/locations/:id", h.locations.GetLocation)
	api.GET("/cities/:city/categories", h.locations.CategoryAvailability)

	return r
}

type apiHandlers struct {
	planner   *planner.Handler
	locations *location.Handler
}

// setupDependencies builds the repository, oracle and service graph the
// handlers sit on.
func setupDependencies(cfg *config.Config, dbPool *pgxpool.Pool, logger *zap.Logger) *apiHandlers {
	locationRepo := location.NewRepository(dbPool, logger)
	locationService := location.NewServiceImpl(locationRepo, logger)

	tripsRepo := planner.NewPostgresRepository(dbPool, logger)

	var primary routing.Oracle
	if cfg.Oracles.GoogleMapsAPIKey != "" {
		google, err := routing.NewGoogleOracle(cfg.Oracles.GoogleMapsAPIKey, logger)
		if err != nil {
			logger.Warn("Google routing oracle unavailable, using distance estimates", zap.Error(err))
		} else {
			primary = google
		}
	}
	travel := routing.NewChain(primary, logger)
	forecasts := weather.NewOpenMeteoWithBaseURL(cfg.Oracles.WeatherAPIURL, logger)

	enricher := planner.NewEnricher(travel, forecasts, logger)
	plannerService := planner.NewService(locationRepo, tripsRepo, enricher, planner.ServiceConfig{
		CacheCapacity:      cfg.Planner.CacheCapacity,
		CacheTTL:           cfg.Planner.CacheTTL,
		GenerationDeadline: cfg.Planner.GenerationDeadline,
	}, logger)

	return &apiHandlers{
		planner:   planner.NewHandler(plannerService, logger),
		locations: location.NewHandler(locationService, logger),
	}
}

// newLimiter prefers the Redis counter so replicas share one budget, and
// falls back to per-process token buckets when Redis is absent or down.
func newLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) middleware.Limiter {
	rpm := cfg.RateLimit.RequestsPerMinute
	if cfg.Repositories.Redis.URL != "" {
		limiter, err := middleware.NewRedisLimiterFromURL(ctx, cfg.Repositories.Redis.URL, rpm, logger)
		if err != nil {
			logger.Warn("Redis rate limiter unavailable, falling back to in-process limits", zap.Error(err))
		} else {
			logger.Info("Rate limiting via Redis", zap.Int("rpm", rpm))
			return limiter
		}
	}
	return middleware.NewLocalLimiter(rpm, logger)
}

// registerHealth mounts the probes outside the rate limited API group so
// orchestrators are never throttled away from them.
func registerHealth(r *gin.Engine, dbPool *pgxpool.Pool) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := dbPool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "store unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}

// zapContextFunc enriches access logs with the request id and the OTEL
// trace identifiers so one request can be followed across logs and spans.
func zapContextFunc() ginzap.Fn {
	return func(c *gin.Context) []zapcore.Field {
		fields := []zapcore.Field{}

		if requestID := middleware.GetRequestID(c); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}

		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
			fields = append(fields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}

		return fields
	}
}
