package location

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/models"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryRepository(testCatalog()...)
	handler := NewHandler(NewServiceImpl(repo, zap.NewNop()), zap.NewNop())

	router := gin.New()
	router.GET("/locations", handler.ListLocations)
	router.GET("/locations/:id", handler.GetLocation)
	router.GET("/cities/:city/categories", handler.CategoryAvailability)
	return router
}

func TestHandlerGetLocation(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/locations/tokyo-senso-ji", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var loc models.Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loc))
	assert.Equal(t, "Senso-ji", loc.Name)
	assert.Equal(t, "kanto", loc.Region)
}

func TestHandlerGetLocationNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/locations/hidden-village", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"location not found"}`, w.Body.String())
}

func TestHandlerListLocations(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/locations?region=kansai&category=food", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var locs []models.Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &locs))
	require.Len(t, locs, 3)
	assert.Equal(t, "osaka-dotonbori", locs[0].ID, "rank order")
}

func TestHandlerListLocationsNormalizesCity(t *testing.T) {
	router := newTestRouter(t)

	// Ward and suffix forms resolve to the parent city.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/locations?city=Shibuya", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var tokyoLocs []models.Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokyoLocs))
	require.NotEmpty(t, tokyoLocs)
	assert.Equal(t, "tokyo", tokyoLocs[0].City)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/locations?city=Kyoto-shi", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var locs []models.Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &locs))
	require.NotEmpty(t, locs)
	for _, loc := range locs {
		assert.Equal(t, "kyoto", loc.City)
	}
}

func TestHandlerListLocationsValidation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		url  string
	}{
		{"unknown region", "/locations?region=narnia"},
		{"unknown category", "/locations?category=karaoke"},
		{"radius without coordinates", "/locations?radiusKm=5"},
		{"negative radius", "/locations?radiusKm=-2&lat=35&lng=135"},
		{"negative limit", "/locations?limit=-1"},
		{"malformed offset", "/locations?offset=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandlerCategoryAvailability(t *testing.T) {
	router := newTestRouter(t)

	// Suffix form resolves to the canonical city before counting.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cities/Kyoto-shi/categories", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"culture": 2, "food": 2}`, w.Body.String())
}

func TestHandlerCategoryAvailabilityUnknownCityIsEmpty(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cities/atlantis/categories", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestHandlerListLocationsEmptyResultIsArray(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/locations?region=okinawa", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}
