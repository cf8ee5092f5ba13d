package location

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
	"github.com/tabiji-app/tabiji/internal/app/models"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is a catalog held in memory. It backs tests and local
// runs without Postgres, and mirrors the SQL ordering exactly.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]models.Location
	now  func() time.Time
}

func NewMemoryRepository(locs ...models.Location) *MemoryRepository {
	m := &MemoryRepository{
		byID: make(map[string]models.Location, len(locs)),
		now:  time.Now,
	}
	m.Seed(locs...)
	return m
}

// Seed inserts or replaces locations by id.
func (m *MemoryRepository) Seed(locs ...models.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, loc := range locs {
		m.byID[loc.ID] = loc
	}
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*models.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loc, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, models.ErrNotFound)
	}
	return &loc, nil
}

func (m *MemoryRepository) ListByIDs(_ context.Context, ids []string) ([]models.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Location, 0, len(ids))
	for _, id := range ids {
		if loc, ok := m.byID[id]; ok {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (m *MemoryRepository) ListByFilter(_ context.Context, filter models.LocationFilter) ([]models.Location, error) {
	m.mu.RLock()
	locs := make([]models.Location, 0, len(m.byID))
	for _, loc := range m.byID {
		if filter.Region != "" && loc.Region != filter.Region {
			continue
		}
		if filter.City != "" && loc.City != filter.City {
			continue
		}
		if filter.Category != "" && loc.Category != filter.Category {
			continue
		}
		locs = append(locs, loc)
	}
	m.mu.RUnlock()

	SortByRank(locs)

	if filter.Radius != nil {
		kept := locs[:0]
		for _, loc := range locs {
			if loc.Coordinates == nil {
				continue
			}
			km := geo.HaversineKm(
				filter.Radius.Center.Latitude, filter.Radius.Center.Longitude,
				loc.Coordinates.Latitude, loc.Coordinates.Longitude,
			)
			if km <= filter.Radius.Km {
				kept = append(kept, loc)
			}
		}
		locs = kept
	}
	if filter.OpenNow {
		kept := locs[:0]
		for _, loc := range locs {
			if OpenAt(loc.OperatingHours, m.now()) {
				kept = append(kept, loc)
			}
		}
		locs = kept
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(locs) {
			return nil, nil
		}
		locs = locs[filter.Offset:]
	}
	if filter.Limit > 0 && len(locs) > filter.Limit {
		locs = locs[:filter.Limit]
	}
	return locs, nil
}

func (m *MemoryRepository) CountByCityAndCategory(_ context.Context, city string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, loc := range m.byID {
		if loc.City == city {
			counts[loc.Category]++
		}
	}
	return counts, nil
}

// SortByRank orders locations by rating desc nulls last, review count desc
// nulls last, id asc. This is the catalog's canonical listing order.
func SortByRank(locs []models.Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		a, b := locs[i], locs[j]

		switch {
		case a.Rating != nil && b.Rating == nil:
			return true
		case a.Rating == nil && b.Rating != nil:
			return false
		case a.Rating != nil && b.Rating != nil && *a.Rating != *b.Rating:
			return *a.Rating > *b.Rating
		}

		switch {
		case a.ReviewCount != nil && b.ReviewCount == nil:
			return true
		case a.ReviewCount == nil && b.ReviewCount != nil:
			return false
		case a.ReviewCount != nil && b.ReviewCount != nil && *a.ReviewCount != *b.ReviewCount:
			return *a.ReviewCount > *b.ReviewCount
		}

		return a.ID < b.ID
	})
}
