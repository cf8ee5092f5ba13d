package routing

import (
	"context"

	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/models"
	"github.com/tabiji-app/tabiji/internal/observability/metrics"
)

var _ Oracle = (*Chain)(nil)

// Chain asks the primary oracle first and estimates on any failure. With a
// nil primary the chain is estimate-only, the shape it takes when no API key
// is configured.
type Chain struct {
	primary  Oracle
	fallback Oracle
	logger   *zap.Logger
}

func NewChain(primary Oracle, logger *zap.Logger) *Chain {
	return &Chain{
		primary:  primary,
		fallback: NewFallbackOracle(),
		logger:   logger,
	}
}

func (c *Chain) Estimate(ctx context.Context, origin, dest models.Coordinates, mode Mode) (models.TravelLeg, error) {
	if c.primary != nil {
		leg, err := c.primary.Estimate(ctx, origin, dest, mode)
		if err == nil {
			return leg, nil
		}
		c.logger.Warn("routing oracle failed, falling back to straight-line estimate",
			zap.String("mode", string(mode)),
			zap.Error(err))
	}

	metrics.Get().OracleFallbacksTotal.Add(ctx, 1)
	return c.fallback.Estimate(ctx, origin, dest, mode)
}
