// Package weather fetches one-day forecasts for itinerary days. Forecasts
// decorate the response only; any failure here leaves the plan intact.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
)

const (
	defaultBaseURL = "https://api.open-meteo.com/v1/forecast"
	forecastTTL    = 30 * time.Minute
	requestTimeout = 10 * time.Second
)

// DaySummary is a one-day forecast for a city.
type DaySummary struct {
	City              string  `json:"city"`
	Date              string  `json:"date"` // YYYY-MM-DD
	TempMinC          float64 `json:"tempMinC"`
	TempMaxC          float64 `json:"tempMaxC"`
	PrecipProbability int     `json:"precipProbabilityPct"`
	Summary           string  `json:"summary"`
}

// Oracle produces a forecast for one city on one date.
type Oracle interface {
	Forecast(ctx context.Context, city string, date time.Time) (DaySummary, error)
}

var _ Oracle = (*OpenMeteo)(nil)

// OpenMeteo is a keyless forecast client. City coordinates come from the
// geo city-center table, so only cities the catalog knows are forecastable.
type OpenMeteo struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	cache      *cache.Cache
}

func NewOpenMeteo(logger *zap.Logger) *OpenMeteo {
	return &OpenMeteo{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		cache:      cache.New(forecastTTL, 10*time.Minute),
	}
}

// NewOpenMeteoWithBaseURL points the client at a different forecast
// endpoint, e.g. a self-hosted instance. Empty falls back to the public API.
func NewOpenMeteoWithBaseURL(baseURL string, logger *zap.Logger) *OpenMeteo {
	o := NewOpenMeteo(logger)
	if baseURL != "" {
		o.baseURL = baseURL
	}
	return o
}

func (o *OpenMeteo) Forecast(ctx context.Context, city string, date time.Time) (DaySummary, error) {
	center, ok := geo.CityCenter(city)
	if !ok {
		return DaySummary{}, fmt.Errorf("no coordinates known for city %q", city)
	}

	day := date.Format("2006-01-02")
	cacheKey := fmt.Sprintf("weather_%s_%s", city, day)
	if cached, found := o.cache.Get(cacheKey); found {
		if summary, valid := cached.(DaySummary); valid {
			return summary, nil
		}
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", center.Lat))
	params.Set("longitude", fmt.Sprintf("%.4f", center.Lng))
	params.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	params.Set("timezone", "Asia/Tokyo")
	params.Set("start_date", day)
	params.Set("end_date", day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return DaySummary{}, fmt.Errorf("failed to create forecast request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return DaySummary{}, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DaySummary{}, fmt.Errorf("forecast request failed with status %d", resp.StatusCode)
	}

	var apiResp struct {
		Daily struct {
			Time        []string  `json:"time"`
			WeatherCode []int     `json:"weather_code"`
			TempMax     []float64 `json:"temperature_2m_max"`
			TempMin     []float64 `json:"temperature_2m_min"`
			PrecipProb  []int     `json:"precipitation_probability_max"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return DaySummary{}, fmt.Errorf("failed to decode forecast: %w", err)
	}
	if len(apiResp.Daily.Time) == 0 {
		return DaySummary{}, fmt.Errorf("forecast returned no days for %s", day)
	}

	summary := DaySummary{
		City: city,
		Date: apiResp.Daily.Time[0],
	}
	if len(apiResp.Daily.TempMin) > 0 {
		summary.TempMinC = apiResp.Daily.TempMin[0]
	}
	if len(apiResp.Daily.TempMax) > 0 {
		summary.TempMaxC = apiResp.Daily.TempMax[0]
	}
	if len(apiResp.Daily.PrecipProb) > 0 {
		summary.PrecipProbability = apiResp.Daily.PrecipProb[0]
	}
	if len(apiResp.Daily.WeatherCode) > 0 {
		summary.Summary = summaryForCode(apiResp.Daily.WeatherCode[0])
	}

	o.cache.Set(cacheKey, summary, cache.DefaultExpiration)
	return summary, nil
}

// summaryForCode flattens WMO weather codes into a short phrase.
func summaryForCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "mixed conditions"
	}
}
