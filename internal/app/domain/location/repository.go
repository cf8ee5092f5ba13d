// Package location serves the immutable Japan location catalog: lookup by
// id, filtered listings, and operating hours evaluation.
package location

import (
	"context"

	"github.com/tabiji-app/tabiji/internal/app/models"
)

// Repository reads the location catalog. Implementations must apply the
// canonical ordering "rating desc nulls last, review count desc nulls last,
// id asc" so listings are stable for a fixed catalog snapshot.
type Repository interface {
	// GetByID returns models.ErrNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*models.Location, error)

	// ListByIDs returns the locations that exist, in the order of ids.
	// Unknown ids are skipped, not an error.
	ListByIDs(ctx context.Context, ids []string) ([]models.Location, error)

	// ListByFilter returns at most filter.Limit locations. OpenNow and
	// Radius constraints are applied after the SQL page, so a page can
	// come back shorter than Limit even when more rows match.
	ListByFilter(ctx context.Context, filter models.LocationFilter) ([]models.Location, error)

	// CountByCityAndCategory reports how many locations each category has
	// in a city. Categories with no locations are absent from the map.
	CountByCityAndCategory(ctx context.Context, city string) (map[string]int, error)
}
