package location

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
	"github.com/tabiji-app/tabiji/internal/app/models"
	database "github.com/tabiji-app/tabiji/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var locationColumns = []string{
	"id", "name", "category", "city", "prefecture", "region",
	"lat", "lng", "rating", "review_count", "operating_hours",
	"price_level", "tags", "recommended_visit_minutes", "place_id",
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.Querier
	now    func() time.Time
}

func NewRepository(pgpool database.Querier, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
		now:    time.Now,
	}
}

// storeErr tags an infrastructure failure with the store-unavailable
// sentinel so callers can tell a dead backend from a bug.
func storeErr(err error, msg string) error {
	return errors.Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err), msg)
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id string) (*models.Location, error) {
	ctx, span := otel.Tracer("LocationRepository").Start(ctx, "GetByID", trace.WithAttributes(
		attribute.String("location.id", id),
	))
	defer span.End()

	sqlStr, args, err := psql.Select(locationColumns...).
		From("locations").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build location query")
	}

	row := r.pgpool.QueryRow(ctx, sqlStr, args...)
	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "location not found")
			return nil, fmt.Errorf("location %s: %w", id, models.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query location")
		return nil, storeErr(err, "failed to query location")
	}

	span.SetStatus(codes.Ok, "location found")
	return loc, nil
}

func (r *RepositoryImpl) ListByIDs(ctx context.Context, ids []string) ([]models.Location, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sqlStr, args, err := psql.Select(locationColumns...).
		From("locations").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build locations query")
	}

	rows, err := r.pgpool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, storeErr(err, "failed to query locations by ids")
	}
	defer rows.Close()

	byID := make(map[string]models.Location, len(ids))
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan location row")
		}
		byID[loc.ID] = *loc
	}
	if err = rows.Err(); err != nil {
		return nil, storeErr(err, "error iterating location rows")
	}

	// Preserve caller order, skip unknown ids.
	out := make([]models.Location, 0, len(byID))
	for _, id := range ids {
		if loc, ok := byID[id]; ok {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (r *RepositoryImpl) ListByFilter(ctx context.Context, filter models.LocationFilter) ([]models.Location, error) {
	ctx, span := otel.Tracer("LocationRepository").Start(ctx, "ListByFilter", trace.WithAttributes(
		attribute.String("filter.region", filter.Region),
		attribute.String("filter.city", filter.City),
		attribute.String("filter.category", filter.Category),
		attribute.Bool("filter.open_now", filter.OpenNow),
	))
	defer span.End()

	// OpenNow and Radius cannot be expressed in the catalog schema alone,
	// so they run after the scan. Paging then has to run after them too.
	postFilter := filter.OpenNow || filter.Radius != nil

	qb := psql.Select(locationColumns...).From("locations")
	if filter.Region != "" {
		qb = qb.Where(sq.Eq{"region": filter.Region})
	}
	if filter.City != "" {
		qb = qb.Where(sq.Eq{"city": filter.City})
	}
	if filter.Category != "" {
		qb = qb.Where(sq.Eq{"category": filter.Category})
	}
	qb = qb.OrderBy("rating DESC NULLS LAST", "review_count DESC NULLS LAST", "id ASC")

	if !postFilter {
		if filter.Limit > 0 {
			qb = qb.Limit(uint64(filter.Limit))
		}
		if filter.Offset > 0 {
			qb = qb.Offset(uint64(filter.Offset))
		}
	}

	sqlStr, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build locations query")
	}

	rows, err := r.pgpool.Query(ctx, sqlStr, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query locations")
		return nil, storeErr(err, "failed to query locations")
	}
	defer rows.Close()

	var locs []models.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan location row")
		}
		locs = append(locs, *loc)
	}
	if err = rows.Err(); err != nil {
		return nil, storeErr(err, "error iterating location rows")
	}

	if postFilter {
		locs = applyPostFilters(locs, filter, r.now())
	}

	span.SetAttributes(attribute.Int("locations.count", len(locs)))
	span.SetStatus(codes.Ok, "locations listed")
	return locs, nil
}

func (r *RepositoryImpl) CountByCityAndCategory(ctx context.Context, city string) (map[string]int, error) {
	query := `SELECT category, COUNT(*) FROM locations WHERE city = $1 GROUP BY category`

	rows, err := r.pgpool.Query(ctx, query, city)
	if err != nil {
		return nil, storeErr(err, "failed to count locations by category")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan category count row")
		}
		counts[category] = n
	}
	if err = rows.Err(); err != nil {
		return nil, storeErr(err, "error iterating category count rows")
	}
	return counts, nil
}

// applyPostFilters runs the constraints the SQL layer cannot, then pages.
// Order is preserved so pages stay deterministic.
func applyPostFilters(locs []models.Location, filter models.LocationFilter, now time.Time) []models.Location {
	filtered := locs[:0]
	for _, loc := range locs {
		if filter.Radius != nil {
			if loc.Coordinates == nil {
				continue
			}
			km := geo.HaversineKm(
				filter.Radius.Center.Latitude, filter.Radius.Center.Longitude,
				loc.Coordinates.Latitude, loc.Coordinates.Longitude,
			)
			if km > filter.Radius.Km {
				continue
			}
		}
		if filter.OpenNow && !OpenAt(loc.OperatingHours, now) {
			continue
		}
		filtered = append(filtered, loc)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(filtered) {
			return nil
		}
		filtered = filtered[filter.Offset:]
	}
	if filter.Limit > 0 && len(filtered) > filter.Limit {
		filtered = filtered[:filter.Limit]
	}
	return filtered
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*models.Location, error) {
	var (
		loc          models.Location
		prefecture   *string
		lat, lng     *float64
		reviewCount  *int
		hoursRaw     []byte
		priceLevel   *int
		visitMinutes *int
		placeID      *string
	)

	err := row.Scan(
		&loc.ID, &loc.Name, &loc.Category, &loc.City, &prefecture, &loc.Region,
		&lat, &lng, &loc.Rating, &reviewCount, &hoursRaw,
		&priceLevel, &loc.Tags, &visitMinutes, &placeID,
	)
	if err != nil {
		return nil, err
	}

	if prefecture != nil {
		loc.Prefecture = *prefecture
	}
	if lat != nil && lng != nil {
		loc.Coordinates = &models.Coordinates{Latitude: *lat, Longitude: *lng}
	}
	loc.ReviewCount = reviewCount
	loc.PriceLevel = priceLevel
	loc.RecommendedVisitMinutes = visitMinutes
	if placeID != nil {
		loc.PlaceID = *placeID
	}
	if len(hoursRaw) > 0 {
		var hours models.OperatingHours
		if err := json.Unmarshal(hoursRaw, &hours); err != nil {
			return nil, errors.Wrapf(err, "failed to decode operating hours for %s", loc.ID)
		}
		loc.OperatingHours = &hours
	}

	return &loc, nil
}
