// Package routing estimates travel legs between itinerary stops. A Google
// Distance Matrix oracle answers when an API key is configured; a
// straight-line estimator answers otherwise, so plan generation works with
// no network and no credentials at all.
package routing

import (
	"context"

	"github.com/tabiji-app/tabiji/internal/app/models"
)

// Mode is a travel mode in wire form.
type Mode string

const (
	ModeWalking Mode = "walking"
	ModeDriving Mode = "driving"
	ModeTransit Mode = "transit"
	ModeCycling Mode = "cycling"
)

// Oracle estimates one travel leg between two points.
type Oracle interface {
	Estimate(ctx context.Context, origin, dest models.Coordinates, mode Mode) (models.TravelLeg, error)
}

// ModeForDistance picks the mode the planner asks for between two stops.
// Short hops are walked; everything longer rides transit, which in Japan
// covers both city subways and shinkansen legs between cities.
func ModeForDistance(km float64) Mode {
	if km <= 2.0 {
		return ModeWalking
	}
	return ModeTransit
}
