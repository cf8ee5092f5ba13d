package location

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/models"
)

var _ Service = (*ServiceImpl)(nil)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service defines the business logic contract for catalog reads.
type Service interface {
	GetLocation(ctx context.Context, id string) (*models.Location, error)
	ListLocations(ctx context.Context, filter models.LocationFilter) ([]models.Location, error)
	CategoryAvailability(ctx context.Context, city string) (map[string]int, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	cache  *cache.Cache
}

func NewServiceImpl(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(time.Hour, 10*time.Minute),
	}
}

func (s *ServiceImpl) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	ctx, span := otel.Tracer("LocationService").Start(ctx, "GetLocation", trace.WithAttributes(
		attribute.String("location.id", id),
	))
	defer span.End()

	cacheKey := "location_" + id
	if cached, found := s.cache.Get(cacheKey); found {
		if loc, ok := cached.(*models.Location); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return loc, nil
		}
	}

	loc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get location")
		return nil, err
	}

	s.cache.Set(cacheKey, loc, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "location retrieved")
	return loc, nil
}

func (s *ServiceImpl) ListLocations(ctx context.Context, filter models.LocationFilter) ([]models.Location, error) {
	ctx, span := otel.Tracer("LocationService").Start(ctx, "ListLocations")
	defer span.End()

	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	locs, err := s.repo.ListByFilter(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list locations")
		return nil, err
	}

	span.SetAttributes(attribute.Int("locations.count", len(locs)))
	span.SetStatus(codes.Ok, "locations listed")
	return locs, nil
}

func (s *ServiceImpl) CategoryAvailability(ctx context.Context, city string) (map[string]int, error) {
	ctx, span := otel.Tracer("LocationService").Start(ctx, "CategoryAvailability", trace.WithAttributes(
		attribute.String("city", city),
	))
	defer span.End()

	cacheKey := fmt.Sprintf("category_counts_%s", city)
	if cached, found := s.cache.Get(cacheKey); found {
		if counts, ok := cached.(map[string]int); ok {
			return counts, nil
		}
	}

	counts, err := s.repo.CountByCityAndCategory(ctx, city)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count categories")
		return nil, err
	}

	s.cache.Set(cacheKey, counts, 5*time.Minute)
	span.SetStatus(codes.Ok, "category availability computed")
	return counts, nil
}
