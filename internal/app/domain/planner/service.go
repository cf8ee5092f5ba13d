package planner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
	"github.com/tabiji-app/tabiji/internal/app/domain/location"
	"github.com/tabiji-app/tabiji/internal/app/domain/scoring"
	"github.com/tabiji-app/tabiji/internal/app/models"
	"github.com/tabiji-app/tabiji/internal/observability/metrics"
	"github.com/tabiji-app/tabiji/internal/pkg/cache"
)

// tripIDPattern bounds caller-supplied trip ids; the trips table enforces
// the same shape.
var tripIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,255}$`)

const (
	dateLayout  = "2006-01-02"
	maxTripDays = 30

	// cityPoolLimit caps the candidates loaded per city. thinPoolFloor is
	// the size below which the pool widens to a radius ring around the
	// city center.
	cityPoolLimit    = 200
	thinPoolFloor    = 12
	thinPoolRadiusKm = 40

	replacementLimit = 5

	defaultCacheCapacity = 1024
	defaultCacheTTL      = 24 * time.Hour
	defaultDeadline      = 25 * time.Second
)

// Service is the planner's public surface.
type Service interface {
	// GeneratePlan builds or serves a cached plan. The bool reports a
	// cache hit.
	GeneratePlan(ctx context.Context, req models.PlanRequest) (*models.PlanResponse, bool, error)

	// CheckAvailability answers best-effort open/closed per location id.
	CheckAvailability(ctx context.Context, req models.AvailabilityRequest) ([]models.AvailabilityResult, error)

	// SuggestReplacements ranks substitutes for one slot of one day.
	SuggestReplacements(ctx context.Context, req models.ReplacementRequest) ([]models.ReplacementCandidate, error)

	// GetTrip loads a persisted trip by id.
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
}

// PlanEntry is the unit stored in the fingerprint cache. The trip carries
// the itinerary and its build-time validation; intros are cached alongside
// so a hit replays the identical response body.
type PlanEntry struct {
	Trip      models.Trip `json:"trip"`
	DayIntros []string    `json:"dayIntros"`
}

// ServiceConfig tunes the generator. Zero values fall back to production
// defaults so tests can pass an empty struct.
type ServiceConfig struct {
	CacheCapacity      int
	CacheTTL           time.Duration
	GenerationDeadline time.Duration
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger    *zap.Logger
	locations location.Repository
	trips     Repository
	packer    *Packer
	enricher  *Enricher
	planCache *cache.LRUCache[PlanEntry]
	group     singleflight.Group
	deadline  time.Duration
	now       func() time.Time
}

func NewService(locations location.Repository, trips Repository, enricher *Enricher, cfg ServiceConfig, logger *zap.Logger) *ServiceImpl {
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = defaultCacheCapacity
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.GenerationDeadline <= 0 {
		cfg.GenerationDeadline = defaultDeadline
	}

	planCache := cache.NewLRUCache[PlanEntry](cfg.CacheCapacity, cfg.CacheTTL, "plans", func(string) {
		metrics.Get().PlanCacheEvictionsTotal.Add(context.Background(), 1)
	}, logger)

	return &ServiceImpl{
		logger:    logger,
		locations: locations,
		trips:     trips,
		packer:    NewPacker(logger),
		enricher:  enricher,
		planCache: planCache,
		deadline:  cfg.GenerationDeadline,
		now:       time.Now,
	}
}

// GeneratePlan normalizes the request, then serves from the fingerprint
// cache, an in-flight identical build, or a fresh pipeline run, in that
// order. Personalized requests (saved ids or content context) skip both
// the cache and the flight group: their output belongs to one traveler.
// A caller waiting on a peer's build wakes on its own deadline without
// tearing the build down.
func (s *ServiceImpl) GeneratePlan(ctx context.Context, req models.PlanRequest) (*models.PlanResponse, bool, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "GeneratePlan")
	defer span.End()

	norm, err := s.normalize(req)
	if err != nil {
		span.SetStatus(codes.Error, "invalid plan request")
		return nil, false, err
	}

	personalized := len(norm.SavedIDs) > 0 || norm.ContentContext != ""
	fingerprint := cache.Fingerprint(norm)
	span.SetAttributes(
		attribute.String("plan.fingerprint", fingerprint),
		attribute.Bool("plan.personalized", personalized),
		attribute.Int("plan.duration_days", norm.Duration),
	)

	if personalized {
		entry, err := s.buildPlan(ctx, norm, fingerprint)
		if err != nil {
			span.RecordError(err)
			return nil, false, err
		}
		return s.respond(ctx, *entry), false, nil
	}

	if entry, ok := s.planCache.Get(fingerprint); ok {
		metrics.Get().PlanCacheHitsTotal.Add(ctx, 1)
		s.logger.Debug("Plan served from cache", zap.String("fingerprint", fingerprint))
		return s.respond(ctx, entry), true, nil
	}
	metrics.Get().PlanCacheMissesTotal.Add(ctx, 1)

	ch := s.group.DoChan(fingerprint, func() (any, error) {
		entry, err := s.buildPlan(ctx, norm, fingerprint)
		if err != nil {
			return nil, err
		}
		if ctx.Err() == nil {
			s.planCache.Set(fingerprint, *entry)
		}
		return *entry, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		// Waking on our own deadline leaves the build running for the
		// remaining waiters.
		span.RecordError(ctx.Err())
		return nil, false, s.buildErr(ctx, ctx.Err())
	}

	if res.Shared {
		metrics.Get().SingleflightSharedTotal.Add(ctx, 1)
	}
	if res.Err != nil {
		s.group.Forget(fingerprint)
		// A follower inherits the leader's failure even when the leader
		// died on its own canceled context. Retry once on ours.
		if res.Shared && ctx.Err() == nil {
			entry, rerr := s.buildPlan(ctx, norm, fingerprint)
			if rerr != nil {
				span.RecordError(rerr)
				return nil, false, rerr
			}
			s.planCache.Set(fingerprint, *entry)
			return s.respond(ctx, *entry), false, nil
		}
		span.RecordError(res.Err)
		return nil, false, res.Err
	}

	return s.respond(ctx, res.Val.(PlanEntry)), false, nil
}

func (s *ServiceImpl) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	return s.trips.GetTrip(ctx, id)
}

// normalize merges the envelope into the builder data and canonicalizes
// every field the fingerprint hashes. City and interest order are kept as
// sent; order is part of the plan's identity.
func (s *ServiceImpl) normalize(req models.PlanRequest) (models.TripRequest, error) {
	norm := req.BuilderData

	// Envelope-level fields win over builder data.
	if req.TripID != "" {
		norm.TripID = req.TripID
	}
	if len(req.SavedIDs) > 0 {
		norm.SavedIDs = req.SavedIDs
	}

	if norm.TripID != "" && !tripIDPattern.MatchString(norm.TripID) {
		return norm, fmt.Errorf("tripId must match [A-Za-z0-9._-]{1,255}: %w", models.ErrValidation)
	}
	if norm.Duration < 1 || norm.Duration > maxTripDays {
		return norm, fmt.Errorf("duration must be between 1 and %d days: %w", maxTripDays, models.ErrValidation)
	}
	if norm.StartDate != "" {
		if _, err := time.Parse(dateLayout, norm.StartDate); err != nil {
			return norm, fmt.Errorf("startDate must be YYYY-MM-DD: %w", models.ErrValidation)
		}
	}

	cities := make([]string, 0, len(norm.Cities))
	for _, raw := range norm.Cities {
		if id := geo.NormalizeCity(raw, ""); id != "" {
			cities = append(cities, id)
		}
	}
	// Regions stand in for cities when none were picked directly.
	if len(cities) == 0 {
		for _, region := range norm.Regions {
			cities = append(cities, geo.PrimaryCities(strings.ToLower(strings.TrimSpace(region)))...)
		}
	}
	if len(cities) == 0 {
		return norm, fmt.Errorf("at least one city or known region is required: %w", models.ErrValidation)
	}
	norm.Cities = cities

	if norm.Pace == "" {
		norm.Pace = models.PaceBalanced
	}
	return norm, nil
}

// buildPlan runs the full pipeline under the generation deadline:
// sequence cities, pack days, attach travel legs, write intros, validate,
// persist. Persistence failures degrade to a warning.
func (s *ServiceImpl) buildPlan(parent context.Context, req models.TripRequest, fingerprint string) (*PlanEntry, error) {
	ctx, cancel := context.WithTimeout(parent, s.deadline)
	defer cancel()

	ctx, span := otel.Tracer("PlannerService").Start(ctx, "buildPlan")
	defer span.End()
	start := s.now()

	assignments := SequenceCities(req.Cities, req.Duration)
	if len(assignments) == 0 {
		return nil, fmt.Errorf("no days could be scheduled: %w", models.ErrValidation)
	}

	var startDate *time.Time
	if req.StartDate != "" {
		parsed, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("startDate must be YYYY-MM-DD: %w", models.ErrValidation)
		}
		startDate = &parsed
	}

	// Saved picks join their city pools so the scorer's boost can pin them.
	saved, err := s.locations.ListByIDs(ctx, req.SavedIDs)
	if err != nil {
		return nil, s.buildErr(ctx, fmt.Errorf("failed to load saved locations: %w", err))
	}
	savedByCity := make(map[string][]models.Location)
	for _, loc := range saved {
		savedByCity[loc.City] = append(savedByCity[loc.City], loc)
	}

	pools := make(map[string][]models.Location)
	poolFor := func(city string) ([]models.Location, error) {
		if pool, ok := pools[city]; ok {
			return pool, nil
		}
		pool, err := s.cityPool(ctx, city)
		if err != nil {
			return nil, err
		}
		pool = mergeByID(pool, savedByCity[city])
		pools[city] = pool
		return pool, nil
	}

	used := make(map[string]struct{})
	savedSet := scoring.IDSet(req.SavedIDs)
	byID := make(map[string]models.Location)
	days := make([]models.Day, 0, len(assignments))

	for i, assignment := range assignments {
		if err := ctx.Err(); err != nil {
			return nil, s.buildErr(ctx, err)
		}
		pool, err := poolFor(assignment.City)
		if err != nil {
			return nil, s.buildErr(ctx, err)
		}
		for _, loc := range pool {
			byID[loc.ID] = loc
		}

		dctx := DayContext{
			City:      assignment.City,
			DayIndex:  i,
			Interests: req.Interests,
			Pace:      req.Pace,
			Budget:    req.Budget,
			Party:     req.Party,
			SavedIDs:  savedSet,
			UsedIDs:   used,
		}
		if startDate != nil {
			date := startDate.AddDate(0, 0, i)
			dctx.Date = &date
		}

		day := s.packer.PackDay(pool, dctx)
		day.CityTransition = assignment.Transition
		if startDate != nil {
			day.Date = startDate.AddDate(0, 0, i).Format(dateLayout)
		}
		days = append(days, day)
	}

	it := models.Itinerary{Days: days}

	if err := s.enricher.AttachTravelLegs(ctx, &it, byID); err != nil {
		return nil, s.buildErr(ctx, err)
	}
	intros := s.enricher.BuildDayIntros(ctx, it, byID)

	validation := Validate(&it, byID)
	if n := len(validation.Issues); n > 0 {
		metrics.Get().ValidationIssuesTotal.Add(ctx, int64(n))
	}

	tripID := req.TripID
	if tripID == "" {
		tripID = uuid.NewString()
	}
	trip := models.Trip{ID: tripID, Itinerary: it, Validation: validation}

	// Persistence is best effort; a storage hiccup must not kill the plan.
	if err := s.trips.SaveTrip(ctx, &trip, fingerprint); err != nil {
		s.logger.Warn("Failed to persist trip",
			zap.String("trip_id", tripID),
			zap.Error(err))
	}

	elapsed := s.now().Sub(start)
	metrics.Get().PlansGeneratedTotal.Add(ctx, 1)
	metrics.Get().PlanGenerationDuration.Record(ctx, elapsed.Seconds())
	s.logger.Info("Plan generated",
		zap.String("trip_id", tripID),
		zap.String("fingerprint", fingerprint),
		zap.Int("days", len(days)),
		zap.Duration("elapsed", elapsed))

	return &PlanEntry{Trip: trip, DayIntros: intros}, nil
}

// buildErr converts a deadline blowout into the sentinel the handler maps
// to 504; anything else passes through.
func (s *ServiceImpl) buildErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("plan generation exceeded its deadline: %w", models.ErrTimeout)
	}
	return err
}

// respond assembles the wire response. The itinerary validation is re-run
// against the current catalog so the report reflects the plan as served;
// if the catalog read fails the build-time report stands in.
func (s *ServiceImpl) respond(ctx context.Context, entry PlanEntry) *models.PlanResponse {
	resp := &models.PlanResponse{
		Trip:                entry.Trip,
		Itinerary:           entry.Trip.Itinerary,
		DayIntros:           entry.DayIntros,
		Validation:          entry.Trip.Validation,
		ItineraryValidation: entry.Trip.Validation,
	}
	if byID, err := s.locationIndex(ctx, entry.Trip.Itinerary); err == nil {
		resp.ItineraryValidation = Validate(&entry.Trip.Itinerary, byID)
	} else {
		s.logger.Debug("Revalidation skipped, serving build-time report", zap.Error(err))
	}
	return resp
}

func (s *ServiceImpl) locationIndex(ctx context.Context, it models.Itinerary) (map[string]models.Location, error) {
	locs, err := s.locations.ListByIDs(ctx, it.PlaceIDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Location, len(locs))
	for _, loc := range locs {
		byID[loc.ID] = loc
	}
	return byID, nil
}

// cityPool loads the ranked candidate list for one city, widening to a
// radius ring around the city center when the direct listing is thin.
func (s *ServiceImpl) cityPool(ctx context.Context, city string) ([]models.Location, error) {
	pool, err := s.locations.ListByFilter(ctx, models.LocationFilter{City: city, Limit: cityPoolLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool for %s: %w", city, err)
	}
	if len(pool) >= thinPoolFloor {
		return pool, nil
	}

	center, ok := geo.CityCenter(city)
	if !ok {
		return pool, nil
	}
	ring, err := s.locations.ListByFilter(ctx, models.LocationFilter{
		Radius: &models.RadiusFilter{
			Center: models.Coordinates{Latitude: center.Lat, Longitude: center.Lng},
			Km:     thinPoolRadiusKm,
		},
		Limit: cityPoolLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to widen candidate pool for %s: %w", city, err)
	}
	s.logger.Debug("Candidate pool widened around city center",
		zap.String("city", city),
		zap.Int("direct", len(pool)),
		zap.Int("ring", len(ring)))
	return mergeByID(pool, ring), nil
}

func (s *ServiceImpl) CheckAvailability(ctx context.Context, req models.AvailabilityRequest) ([]models.AvailabilityResult, error) {
	if len(req.ActivityIDs) == 0 {
		return []models.AvailabilityResult{}, nil
	}

	at := s.now()
	if req.At != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			return nil, fmt.Errorf("at must be an RFC3339 timestamp: %w", models.ErrValidation)
		}
		at = parsed
	}

	locs, err := s.locations.ListByIDs(ctx, req.ActivityIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	byID := make(map[string]models.Location, len(locs))
	for _, loc := range locs {
		byID[loc.ID] = loc
	}

	results := make([]models.AvailabilityResult, 0, len(req.ActivityIDs))
	for _, id := range req.ActivityIDs {
		loc, ok := byID[id]
		switch {
		case !ok:
			results = append(results, models.AvailabilityResult{ID: id, Open: false, Reason: "location not found"})
		case loc.OperatingHours == nil:
			results = append(results, models.AvailabilityResult{ID: id, Open: true, Reason: "hours unknown"})
		case location.OpenAt(loc.OperatingHours, at):
			results = append(results, models.AvailabilityResult{ID: id, Open: true})
		default:
			results = append(results, models.AvailabilityResult{ID: id, Open: false, Reason: "closed at the requested time"})
		}
	}
	return results, nil
}

func (s *ServiceImpl) SuggestReplacements(ctx context.Context, req models.ReplacementRequest) ([]models.ReplacementCandidate, error) {
	city := geo.NormalizeCity(req.City, "")
	if city == "" {
		return nil, fmt.Errorf("city is required: %w", models.ErrValidation)
	}
	if _, ok := slotStarts[req.TimeOfDay]; !ok {
		return nil, fmt.Errorf("timeOfDay must be morning, afternoon or evening: %w", models.ErrValidation)
	}
	if req.DayIndex < 0 {
		return nil, fmt.Errorf("dayIndex must not be negative: %w", models.ErrValidation)
	}

	pool, err := s.cityPool(ctx, city)
	if err != nil {
		return nil, err
	}

	// Dated trips narrow the pool to candidates open in the slot window.
	if req.BuilderData.StartDate != "" {
		if start, err := time.Parse(dateLayout, req.BuilderData.StartDate); err == nil {
			day := start.AddDate(0, 0, req.DayIndex)
			startMin := slotStarts[req.TimeOfDay]
			filtered := make([]models.Location, 0, len(pool))
			for _, loc := range pool {
				if location.OpenDuring(loc.OperatingHours, day.Weekday(), startMin, startMin+defaultVisitMinutes) {
					filtered = append(filtered, loc)
				}
			}
			pool = filtered
		}
	}

	ranked := scoring.Rank(pool, scoring.Context{
		Interests: req.BuilderData.Interests,
		Pace:      req.BuilderData.Pace,
		Budget:    req.BuilderData.Budget,
		Party:     req.BuilderData.Party,
		City:      city,
		SavedIDs:  scoring.IDSet(req.BuilderData.SavedIDs),
		PlacedIDs: scoring.IDSet(req.ExcludeIDs),
	})
	if len(ranked) > replacementLimit {
		ranked = ranked[:replacementLimit]
	}

	out := make([]models.ReplacementCandidate, 0, len(ranked))
	for _, sc := range ranked {
		out = append(out, models.ReplacementCandidate{
			Location: sc.Location,
			Score:    sc.Result.Value,
			Reasons:  sc.Result.Reasons,
		})
	}
	return out, nil
}

// mergeByID appends extras that are not already present, keeping base order.
func mergeByID(base, extras []models.Location) []models.Location {
	if len(extras) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base))
	for _, loc := range base {
		seen[loc.ID] = struct{}{}
	}
	for _, loc := range extras {
		if _, dup := seen[loc.ID]; dup {
			continue
		}
		seen[loc.ID] = struct{}{}
		base = append(base, loc)
	}
	return base
}
