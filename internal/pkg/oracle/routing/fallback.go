package routing

import (
	"context"
	"math"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
	"github.com/tabiji-app/tabiji/internal/app/models"
)

// fallbackSpeedKmh are the assumed speeds when no routing provider answers.
var fallbackSpeedKmh = map[Mode]float64{
	ModeWalking: 4.5,
	ModeCycling: 15,
	ModeTransit: 25,
	ModeDriving: 35,
}

var _ Oracle = (*FallbackOracle)(nil)

// FallbackOracle estimates legs from straight-line distance and a flat speed
// per mode. It never fails, which makes it the safe tail of every chain.
type FallbackOracle struct{}

func NewFallbackOracle() *FallbackOracle { return &FallbackOracle{} }

func (f *FallbackOracle) Estimate(_ context.Context, origin, dest models.Coordinates, mode Mode) (models.TravelLeg, error) {
	km := geo.HaversineKm(origin.Latitude, origin.Longitude, dest.Latitude, dest.Longitude)

	speed, ok := fallbackSpeedKmh[mode]
	if !ok {
		mode = ModeTransit
		speed = fallbackSpeedKmh[ModeTransit]
	}

	minutes := int(math.Round(km / speed * 60))
	if minutes == 0 && km > 0 {
		minutes = 1
	}
	return models.TravelLeg{
		Mode:            string(mode),
		DurationMinutes: minutes,
		DistanceMeters:  int(math.Round(km * 1000)),
	}, nil
}
