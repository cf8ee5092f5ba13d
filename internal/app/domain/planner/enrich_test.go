package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/models"
	"github.com/tabiji-app/tabiji/internal/pkg/oracle/routing"
	"github.com/tabiji-app/tabiji/internal/pkg/oracle/weather"
)

type recordingOracle struct {
	mu    sync.Mutex
	modes []routing.Mode
	err   error
}

func (r *recordingOracle) Estimate(_ context.Context, _, _ models.Coordinates, mode routing.Mode) (models.TravelLeg, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return models.TravelLeg{}, r.err
	}
	r.modes = append(r.modes, mode)
	return models.TravelLeg{Mode: string(mode), DurationMinutes: 12, DistanceMeters: 1500}, nil
}

type stubWeather struct {
	mu        sync.Mutex
	summaries map[string]weather.DaySummary
	calls     int
}

func (s *stubWeather) Forecast(_ context.Context, city string, date time.Time) (weather.DaySummary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if sum, ok := s.summaries[city+"|"+date.Format("2006-01-02")]; ok {
		return sum, nil
	}
	return weather.DaySummary{}, errors.New("upstream unavailable")
}

func placedAct(slot, id, start, end string) models.Activity {
	return models.Activity{
		Kind:      models.ActivityPlace,
		TimeOfDay: slot,
		ID:        id,
		StartTime: start,
		EndTime:   end,
	}
}

func locAt(id, category string, lat, lng float64) models.Location {
	return models.Location{
		ID:          id,
		Name:        id,
		Category:    category,
		City:        "tokyo",
		Region:      "kanto",
		Coordinates: &models.Coordinates{Latitude: lat, Longitude: lng},
	}
}

func TestAttachTravelLegsWithinDay(t *testing.T) {
	oracle := &recordingOracle{}
	enricher := NewEnricher(oracle, nil, zap.NewNop())

	byID := indexLocs(
		locAt("a", models.CategoryCulture, 35.6800, 139.7600),
		locAt("b", models.CategoryFood, 35.6890, 139.7600),   // ~1 km north
		locAt("c", models.CategoryNature, 35.6980, 139.7600), // ~1 km further
	)
	it := &models.Itinerary{Days: []models.Day{
		{CityID: "tokyo", Activities: []models.Activity{
			placedAct(models.SlotMorning, "a", "09:00", "10:30"),
			placedAct(models.SlotAfternoon, "b", "12:30", "14:00"),
			placedAct(models.SlotEvening, "c", "18:00", "19:30"),
		}},
	}}

	require.NoError(t, enricher.AttachTravelLegs(context.Background(), it, byID))

	acts := it.Days[0].Activities
	assert.Nil(t, acts[0].TravelFromPrevious)

	require.NotNil(t, acts[1].TravelFromPrevious)
	assert.Equal(t, "walking", acts[1].TravelFromPrevious.Mode)
	assert.Equal(t, "10:30", acts[1].TravelFromPrevious.DepartureTime)

	require.NotNil(t, acts[2].TravelFromPrevious)
	assert.Equal(t, "14:00", acts[2].TravelFromPrevious.DepartureTime)
}

func TestAttachTravelLegsPicksTransitForLongHops(t *testing.T) {
	oracle := &recordingOracle{}
	enricher := NewEnricher(oracle, nil, zap.NewNop())

	byID := indexLocs(
		locAt("a", models.CategoryCulture, 35.6800, 139.7600),
		locAt("b", models.CategoryFood, 35.7300, 139.7600), // ~5.5 km away
	)
	it := &models.Itinerary{Days: []models.Day{
		{CityID: "tokyo", Activities: []models.Activity{
			placedAct(models.SlotMorning, "a", "09:00", "10:30"),
			placedAct(models.SlotAfternoon, "b", "12:30", "14:00"),
		}},
	}}

	require.NoError(t, enricher.AttachTravelLegs(context.Background(), it, byID))

	require.Len(t, oracle.modes, 1)
	assert.Equal(t, routing.ModeTransit, oracle.modes[0])
	require.NotNil(t, it.Days[0].Activities[1].TravelFromPrevious)
	assert.Equal(t, "transit", it.Days[0].Activities[1].TravelFromPrevious.Mode)
}

func TestAttachTravelLegsOnTransitionDay(t *testing.T) {
	oracle := &recordingOracle{}
	enricher := NewEnricher(oracle, nil, zap.NewNop())

	kyotoStop := locAt("kyoto-temple", models.CategoryCulture, 35.0116, 135.7681)
	kyotoStop.City = "kyoto"
	kyotoStop.Region = "kansai"
	osakaStop := locAt("osaka-market", models.CategoryFood, 34.6937, 135.5023)
	osakaStop.City = "osaka"
	osakaStop.Region = "kansai"

	byID := indexLocs(kyotoStop, osakaStop)
	it := &models.Itinerary{Days: []models.Day{
		{CityID: "kyoto", Activities: []models.Activity{
			placedAct(models.SlotMorning, "kyoto-temple", "09:00", "10:30"),
		}},
		{CityID: "osaka", CityTransition: true, Activities: []models.Activity{
			placedAct(models.SlotMorning, "osaka-market", "09:00", "10:30"),
		}},
	}}

	require.NoError(t, enricher.AttachTravelLegs(context.Background(), it, byID))

	leg := it.Days[1].Activities[0].TravelFromPrevious
	require.NotNil(t, leg)
	// Inter-city legs ride transit and carry no same-day departure.
	assert.Equal(t, "transit", leg.Mode)
	assert.Empty(t, leg.DepartureTime)
}

func TestAttachTravelLegsSkipsNotesAndUnlocated(t *testing.T) {
	oracle := &recordingOracle{}
	enricher := NewEnricher(oracle, nil, zap.NewNop())

	unlocated := models.Location{ID: "d", Name: "d", Category: models.CategoryFood, City: "tokyo", Region: "kanto"}
	byID := indexLocs(
		locAt("a", models.CategoryCulture, 35.6800, 139.7600),
		locAt("b", models.CategoryNature, 35.6890, 139.7600),
		unlocated,
	)
	it := &models.Itinerary{Days: []models.Day{
		{CityID: "tokyo", Activities: []models.Activity{
			placedAct(models.SlotMorning, "a", "09:00", "10:30"),
			{Kind: models.ActivityNote, TimeOfDay: models.SlotMorning, Text: "Free morning"},
			placedAct(models.SlotAfternoon, "b", "12:30", "14:00"),
			placedAct(models.SlotEvening, "d", "18:00", "19:30"),
		}},
	}}

	require.NoError(t, enricher.AttachTravelLegs(context.Background(), it, byID))

	acts := it.Days[0].Activities
	assert.Nil(t, acts[1].TravelFromPrevious, "notes never get legs")

	// The note does not break the chain between located places.
	require.NotNil(t, acts[2].TravelFromPrevious)
	assert.Equal(t, "10:30", acts[2].TravelFromPrevious.DepartureTime)

	assert.Nil(t, acts[3].TravelFromPrevious, "no leg without coordinates")
}

func TestAttachTravelLegsWithoutRouter(t *testing.T) {
	enricher := NewEnricher(nil, nil, zap.NewNop())
	it := &models.Itinerary{Days: []models.Day{
		{CityID: "tokyo", Activities: []models.Activity{
			placedAct(models.SlotMorning, "a", "09:00", "10:30"),
			placedAct(models.SlotAfternoon, "b", "12:30", "14:00"),
		}},
	}}

	require.NoError(t, enricher.AttachTravelLegs(context.Background(), it, indexLocs()))
	assert.Nil(t, it.Days[0].Activities[1].TravelFromPrevious)
}

func TestBuildDayIntrosDominantCategoryAndTip(t *testing.T) {
	enricher := NewEnricher(nil, nil, zap.NewNop())

	byID := indexLocs(
		catalogLoc("c-1", "Grand Art Museum", models.CategoryCulture),
		catalogLoc("c-2", "Old Castle Keep", models.CategoryCulture),
		catalogLoc("f-1", "Riverside Noodle Bar", models.CategoryFood),
	)
	it := models.Itinerary{Days: []models.Day{
		{CityID: "tokyo", Activities: []models.Activity{
			placeAct(models.SlotMorning, "c-1"),
			placeAct(models.SlotAfternoon, "f-1"),
			placeAct(models.SlotEvening, "c-2"),
		}},
	}}

	intros := enricher.BuildDayIntros(context.Background(), it, byID)

	require.Len(t, intros, 1)
	assert.Contains(t, intros[0], "Day 1 in Tokyo leans into culture.")
	assert.Contains(t, intros[0], "Temples and shrines open early")
}

func TestBuildDayIntrosTieGoesToEarliestPlaced(t *testing.T) {
	enricher := NewEnricher(nil, nil, zap.NewNop())

	byID := indexLocs(
		catalogLoc("f-1", "Riverside Noodle Bar", models.CategoryFood),
		catalogLoc("c-1", "Grand Art Museum", models.CategoryCulture),
	)
	it := models.Itinerary{Days: []models.Day{
		{CityID: "tokyo", Activities: []models.Activity{
			placeAct(models.SlotMorning, "f-1"),
			placeAct(models.SlotAfternoon, "c-1"),
		}},
	}}

	intros := enricher.BuildDayIntros(context.Background(), it, byID)

	require.Len(t, intros, 1)
	assert.Contains(t, intros[0], "leans into food")
}

func TestBuildDayIntrosEmptyDay(t *testing.T) {
	enricher := NewEnricher(nil, nil, zap.NewNop())

	it := models.Itinerary{Days: []models.Day{
		{CityID: "nara", Activities: []models.Activity{
			{Kind: models.ActivityNote, TimeOfDay: models.SlotMorning, Text: "Free morning"},
		}},
	}}

	intros := enricher.BuildDayIntros(context.Background(), it, indexLocs())

	require.Len(t, intros, 1)
	assert.Contains(t, intros[0], "Day 1 in Nara is wide open")
}

func TestBuildDayIntrosTransitionCallout(t *testing.T) {
	enricher := NewEnricher(nil, nil, zap.NewNop())

	byID := indexLocs(catalogLoc("c-1", "Grand Art Museum", models.CategoryCulture))
	it := models.Itinerary{Days: []models.Day{
		{CityID: "kyoto", Activities: []models.Activity{}},
		{CityID: "tokyo", CityTransition: true, Activities: []models.Activity{
			placeAct(models.SlotMorning, "c-1"),
		}},
	}}

	intros := enricher.BuildDayIntros(context.Background(), it, byID)

	require.Len(t, intros, 2)
	assert.NotContains(t, intros[0], "change cities")
	assert.Contains(t, intros[1], "You change cities this morning")
}

func TestBuildDayIntrosWeather(t *testing.T) {
	forecasts := &stubWeather{summaries: map[string]weather.DaySummary{
		"tokyo|2026-04-07": {
			City:              "tokyo",
			Date:              "2026-04-07",
			TempMinC:          8,
			TempMaxC:          14,
			PrecipProbability: 40,
			Summary:           "light rain",
		},
	}}
	enricher := NewEnricher(nil, forecasts, zap.NewNop())

	byID := indexLocs(catalogLoc("c-1", "Grand Art Museum", models.CategoryCulture))
	it := models.Itinerary{Days: []models.Day{
		{CityID: "tokyo", Date: "2026-04-07", Activities: []models.Activity{
			placeAct(models.SlotMorning, "c-1"),
		}},
		{CityID: "tokyo", Date: "2026-04-08", Activities: []models.Activity{
			placeAct(models.SlotAfternoon, "c-1"),
		}},
		{CityID: "tokyo", Activities: []models.Activity{}}, // undated
	}}

	intros := enricher.BuildDayIntros(context.Background(), it, byID)

	require.Len(t, intros, 3)
	assert.Contains(t, intros[0], "Forecast: light rain, 8 to 14°C, 40% chance of rain.")
	// A failed lookup drops the sentence, nothing else.
	assert.NotContains(t, intros[1], "Forecast:")
	assert.NotContains(t, intros[2], "Forecast:")
	// Undated days never ask for weather.
	assert.Equal(t, 2, forecasts.calls)
}
