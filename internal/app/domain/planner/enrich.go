package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
	"github.com/tabiji-app/tabiji/internal/app/models"
	"github.com/tabiji-app/tabiji/internal/pkg/oracle/routing"
	"github.com/tabiji-app/tabiji/internal/pkg/oracle/weather"
)

// legConcurrency bounds parallel oracle calls per enrichment pass.
const legConcurrency = 4

// categoryTips holds one practical line per category. A day's intro
// carries at most one tip, picked by the day's dominant category.
var categoryTips = map[string]string{
	models.CategoryCulture:    "Temples and shrines open early; beat the tour groups by arriving before 09:00.",
	models.CategoryFood:       "The famous counters queue hardest at noon; eat early or late and walk right in.",
	models.CategoryNature:     "Check the last bus back from the trailhead before heading out; rural lines stop early.",
	models.CategoryShopping:   "Most shops open at 10:00 and close by 20:00; tax-free counters want your passport.",
	models.CategoryAttraction: "Timed-entry tickets sell out on weekends; book the morning slot ahead.",
	models.CategoryHotel:      "Check-in starts around 15:00, but the front desk will hold bags all day.",
}

// Enricher decorates a packed itinerary with travel legs and day intros.
// Routing failures degrade to straight-line estimates inside the oracle
// chain; weather failures just drop the forecast sentence.
type Enricher struct {
	router  routing.Oracle
	weather weather.Oracle
	logger  *zap.Logger
}

func NewEnricher(router routing.Oracle, weatherOracle weather.Oracle, logger *zap.Logger) *Enricher {
	return &Enricher{
		router:  router,
		weather: weatherOracle,
		logger:  logger,
	}
}

type hop struct {
	day       int
	act       int
	origin    models.Coordinates
	dest      models.Coordinates
	departure string
}

// AttachTravelLegs asks the routing oracle for every place-to-place hop
// and stores the result on the later activity. Hops are independent, so
// they run in parallel under one bounded errgroup. On a transition day
// the first activity carries the inter-city leg from the previous day's
// last stop.
func (e *Enricher) AttachTravelLegs(ctx context.Context, it *models.Itinerary, byID map[string]models.Location) error {
	if e.router == nil {
		return nil
	}

	var hops []hop
	for d := range it.Days {
		prev := -1
		for a := range it.Days[d].Activities {
			act := it.Days[d].Activities[a]
			if !act.IsPlace() {
				continue
			}
			cur, ok := placeCoords(act.ID, byID)
			if ok {
				if prev >= 0 {
					if origin, ok := placeCoords(it.Days[d].Activities[prev].ID, byID); ok {
						hops = append(hops, hop{
							day:       d,
							act:       a,
							origin:    origin,
							dest:      cur,
							departure: it.Days[d].Activities[prev].EndTime,
						})
					}
				} else if d > 0 && it.Days[d].CityTransition {
					if last, ok := lastPlaceCoords(it.Days[d-1], byID); ok {
						hops = append(hops, hop{day: d, act: a, origin: last, dest: cur})
					}
				}
			}
			prev = a
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(legConcurrency)
	for _, h := range hops {
		g.Go(func() error {
			km := geo.HaversineKm(h.origin.Latitude, h.origin.Longitude, h.dest.Latitude, h.dest.Longitude)
			leg, err := e.router.Estimate(gctx, h.origin, h.dest, routing.ModeForDistance(km))
			if err != nil {
				return fmt.Errorf("travel leg day %d: %w", h.day+1, err)
			}
			if h.departure != "" {
				leg.DepartureTime = h.departure
			}
			it.Days[h.day].Activities[h.act].TravelFromPrevious = &leg
			return nil
		})
	}
	return g.Wait()
}

// BuildDayIntros writes one deterministic intro line per day from the
// city, the dominant category, the forecast when available, and a
// category tip. Weather lookups run in parallel and never fail the plan.
func (e *Enricher) BuildDayIntros(ctx context.Context, it models.Itinerary, byID map[string]models.Location) []string {
	forecasts := make([]*weather.DaySummary, len(it.Days))
	if e.weather != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(legConcurrency)
		for i := range it.Days {
			if it.Days[i].Date == "" {
				continue
			}
			date, err := time.Parse("2006-01-02", it.Days[i].Date)
			if err != nil {
				continue
			}
			city := it.Days[i].CityID
			g.Go(func() error {
				summary, err := e.weather.Forecast(gctx, city, date)
				if err != nil {
					e.logger.Debug("Weather forecast unavailable",
						zap.String("city", city),
						zap.String("date", it.Days[i].Date),
						zap.Error(err))
					return nil
				}
				forecasts[i] = &summary
				return nil
			})
		}
		_ = g.Wait()
	}

	intros := make([]string, len(it.Days))
	for i, day := range it.Days {
		intros[i] = dayIntro(i, day, byID, forecasts[i])
	}
	return intros
}

func dayIntro(index int, day models.Day, byID map[string]models.Location, fc *weather.DaySummary) string {
	city := geo.DisplayName(day.CityID)
	dominant := dominantCategory(day, byID)

	var b strings.Builder
	if dominant == "" {
		fmt.Fprintf(&b, "Day %d in %s is wide open; wander wherever the streets pull you.", index+1, city)
	} else {
		fmt.Fprintf(&b, "Day %d in %s leans into %s.", index+1, city, dominant)
	}
	if day.CityTransition {
		b.WriteString(" You change cities this morning, so travel light and drop bags first.")
	}
	if fc != nil {
		fmt.Fprintf(&b, " Forecast: %s, %.0f to %.0f°C, %d%% chance of rain.",
			fc.Summary, fc.TempMinC, fc.TempMaxC, fc.PrecipProbability)
	}
	if tip, ok := categoryTips[dominant]; ok {
		b.WriteString(" ")
		b.WriteString(tip)
	}
	return b.String()
}

// dominantCategory returns the most common category among the day's
// places, earliest placed winning ties.
func dominantCategory(day models.Day, byID map[string]models.Location) string {
	counts := make(map[string]int)
	var order []string
	for _, act := range day.Activities {
		if !act.IsPlace() {
			continue
		}
		loc, ok := byID[act.ID]
		if !ok {
			continue
		}
		if counts[loc.Category] == 0 {
			order = append(order, loc.Category)
		}
		counts[loc.Category]++
	}

	best, bestN := "", 0
	for _, category := range order {
		if counts[category] > bestN {
			best, bestN = category, counts[category]
		}
	}
	return best
}

func placeCoords(id string, byID map[string]models.Location) (models.Coordinates, bool) {
	loc, ok := byID[id]
	if !ok || loc.Coordinates == nil {
		return models.Coordinates{}, false
	}
	return *loc.Coordinates, true
}

func lastPlaceCoords(day models.Day, byID map[string]models.Location) (models.Coordinates, bool) {
	for i := len(day.Activities) - 1; i >= 0; i-- {
		if day.Activities[i].IsPlace() {
			return placeCoords(day.Activities[i].ID, byID)
		}
	}
	return models.Coordinates{}, false
}
