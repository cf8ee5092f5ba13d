package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"github.com/tabiji-app/tabiji/internal/app/models"
)

const legCacheTTL = 15 * time.Minute

var _ Oracle = (*GoogleOracle)(nil)

// GoogleOracle answers leg estimates from the Distance Matrix API. Results
// are memoized briefly since the packer asks for the same hops for every
// concurrent identical request.
type GoogleOracle struct {
	client *maps.Client
	logger *zap.Logger
	cache  *cache.Cache
}

func NewGoogleOracle(apiKey string, logger *zap.Logger) (*GoogleOracle, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleOracle{
		client: client,
		logger: logger,
		cache:  cache.New(legCacheTTL, 5*time.Minute),
	}, nil
}

// newGoogleOracleWithClient backs tests that point the SDK at a fake server.
func newGoogleOracleWithClient(client *maps.Client, logger *zap.Logger) *GoogleOracle {
	return &GoogleOracle{
		client: client,
		logger: logger,
		cache:  cache.New(legCacheTTL, 5*time.Minute),
	}
}

func (g *GoogleOracle) Estimate(ctx context.Context, origin, dest models.Coordinates, mode Mode) (models.TravelLeg, error) {
	cacheKey := legCacheKey(origin, dest, mode)
	if cached, found := g.cache.Get(cacheKey); found {
		if leg, ok := cached.(models.TravelLeg); ok {
			return leg, nil
		}
	}

	resp, err := g.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{coordString(origin)},
		Destinations: []string{coordString(dest)},
		Mode:         travelMode(mode),
		Units:        maps.UnitsMetric,
	})
	if err != nil {
		return models.TravelLeg{}, fmt.Errorf("distance matrix request failed: %w", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return models.TravelLeg{}, errors.New("distance matrix returned no elements")
	}

	elem := resp.Rows[0].Elements[0]
	if elem.Status != "OK" {
		return models.TravelLeg{}, fmt.Errorf("distance matrix element status: %s", elem.Status)
	}

	leg := models.TravelLeg{
		Mode:            string(mode),
		DurationMinutes: int(math.Round(elem.Duration.Minutes())),
		DistanceMeters:  elem.Distance.Meters,
	}
	g.cache.Set(cacheKey, leg, cache.DefaultExpiration)
	return leg, nil
}

func travelMode(mode Mode) maps.Mode {
	switch mode {
	case ModeWalking:
		return maps.TravelModeWalking
	case ModeTransit:
		return maps.TravelModeTransit
	case ModeCycling:
		return maps.TravelModeBicycling
	default:
		return maps.TravelModeDriving
	}
}

func coordString(c models.Coordinates) string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

func legCacheKey(origin, dest models.Coordinates, mode Mode) string {
	return fmt.Sprintf("leg_%s_%s_%s", mode, coordString(origin), coordString(dest))
}
