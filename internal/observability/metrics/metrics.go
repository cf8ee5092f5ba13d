package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Fields are public so they can be recorded from other packages.
type AppMetrics struct {
	PlansGeneratedTotal     metric.Int64Counter
	PlanGenerationDuration  metric.Float64Histogram
	PlanCacheHitsTotal      metric.Int64Counter
	PlanCacheMissesTotal    metric.Int64Counter
	PlanCacheEvictionsTotal metric.Int64Counter
	SingleflightSharedTotal metric.Int64Counter
	RateLimitRejectedTotal  metric.Int64Counter
	OracleFallbacksTotal    metric.Int64Counter
	ValidationIssuesTotal   metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments exactly once,
// using the Meter from the globally configured MeterProvider. Before the
// provider is configured the global one is a no-op, so recording is always
// safe.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("tabiji")
		var err error
		m := &AppMetrics{}

		m.PlansGeneratedTotal, err = meter.Int64Counter(
			"plans_generated_total",
			metric.WithDescription("Total number of itineraries built (cache misses that ran the pipeline)"),
			metric.WithUnit("{plan}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plans_generated_total: %v", err)
		}

		m.PlanGenerationDuration, err = meter.Float64Histogram(
			"plan_generation_duration_seconds",
			metric.WithDescription("Duration of full itinerary builds in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_generation_duration_seconds: %v", err)
		}

		m.PlanCacheHitsTotal, err = meter.Int64Counter(
			"plan_cache_hits_total",
			metric.WithDescription("Plan requests answered from the fingerprint cache"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_cache_hits_total: %v", err)
		}

		m.PlanCacheMissesTotal, err = meter.Int64Counter(
			"plan_cache_misses_total",
			metric.WithDescription("Plan requests that missed the fingerprint cache"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_cache_misses_total: %v", err)
		}

		m.PlanCacheEvictionsTotal, err = meter.Int64Counter(
			"plan_cache_evictions_total",
			metric.WithDescription("Plans evicted from the cache by capacity or TTL"),
			metric.WithUnit("{plan}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_cache_evictions_total: %v", err)
		}

		m.SingleflightSharedTotal, err = meter.Int64Counter(
			"singleflight_shared_total",
			metric.WithDescription("Plan requests that attached to an in-flight identical build"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create singleflight_shared_total: %v", err)
		}

		m.RateLimitRejectedTotal, err = meter.Int64Counter(
			"rate_limit_rejected_total",
			metric.WithDescription("Requests rejected with 429 by the rate limiter"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create rate_limit_rejected_total: %v", err)
		}

		m.OracleFallbacksTotal, err = meter.Int64Counter(
			"oracle_fallbacks_total",
			metric.WithDescription("Routing estimates served by the straight-line fallback"),
			metric.WithUnit("{estimate}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create oracle_fallbacks_total: %v", err)
		}

		m.ValidationIssuesTotal, err = meter.Int64Counter(
			"validation_issues_total",
			metric.WithDescription("Issues flagged by post-generation validation"),
			metric.WithUnit("{issue}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create validation_issues_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global AppMetrics instance, initializing it on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
