package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/observability"
	"github.com/tabiji-app/tabiji/internal/observability/metrics"
)

// ObservabilityShutdownFunc is returned by InitObservability and flushes
// the telemetry pipeline.
type ObservabilityShutdownFunc func(context.Context) error

// InitObservability starts the OpenTelemetry providers, the Prometheus
// listener and the application metrics singleton.
func InitObservability(serviceName, metricsAddr string, logger *zap.Logger) (ObservabilityShutdownFunc, error) {
	otelShutdown, err := observability.InitOtelProviders(serviceName, metricsAddr, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics.InitAppMetrics()
	logger.Info("Observability initialized", zap.String("metrics_endpoint", metricsAddr+"/metrics"))

	return ObservabilityShutdownFunc(otelShutdown), nil
}
