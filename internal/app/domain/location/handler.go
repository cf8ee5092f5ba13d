package location

import (
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
	"github.com/tabiji-app/tabiji/internal/app/models"
)

type Handler struct {
	locationService Service
	logger          *zap.Logger
}

func NewHandler(locationService Service, logger *zap.Logger) *Handler {
	return &Handler{
		locationService: locationService,
		logger:          logger,
	}
}

// GetLocation godoc
// @Summary Get a location by id
// @Tags locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 200 {object} models.Location
// @Failure 404 {object} map[string]string
// @Router /locations/{id} [get]
func (h *Handler) GetLocation(c *gin.Context) {
	id := c.Param("id")

	loc, err := h.locationService.GetLocation(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
			return
		}
		h.logger.Error("Failed to get location", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve location"})
		return
	}

	// The catalog is a slow-moving snapshot; let clients keep single
	// records for an hour.
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, loc)
}

// ListLocations godoc
// @Summary List catalog locations
// @Description Filter by region, city, category, open-now and radius
// @Tags locations
// @Produce json
// @Param region query string false "Region id, e.g. kansai"
// @Param city query string false "City name, normalized server-side"
// @Param category query string false "Category"
// @Param openNow query bool false "Only venues open right now"
// @Param limit query int false "Page size (max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Location
// @Failure 400 {object} map[string]string
// @Router /locations [get]
func (h *Handler) ListLocations(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	locs, err := h.locationService.ListLocations(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list locations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list locations"})
		return
	}
	if locs == nil {
		locs = []models.Location{}
	}

	c.JSON(http.StatusOK, locs)
}

// CategoryAvailability godoc
// @Summary Count venues per category in a city
// @Description Lets clients gauge how deep each interest's pool runs before requesting a plan
// @Tags locations
// @Produce json
// @Param city path string true "City name, normalized server-side"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Router /cities/{city}/categories [get]
func (h *Handler) CategoryAvailability(c *gin.Context) {
	city := geo.NormalizeCity(c.Param("city"), c.Query("prefecture"))
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}

	counts, err := h.locationService.CategoryAvailability(c.Request.Context(), city)
	if err != nil {
		h.logger.Error("Failed to count categories", zap.String("city", city), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count categories"})
		return
	}
	if counts == nil {
		counts = map[string]int{}
	}

	c.JSON(http.StatusOK, counts)
}

func parseListFilter(c *gin.Context) (models.LocationFilter, error) {
	var filter models.LocationFilter

	if region := c.Query("region"); region != "" {
		if !slices.Contains(geo.Regions, region) {
			return filter, errors.New("unknown region: " + region)
		}
		filter.Region = region
	}
	if city := c.Query("city"); city != "" {
		filter.City = geo.NormalizeCity(city, c.Query("prefecture"))
	}
	if category := c.Query("category"); category != "" {
		if !slices.Contains(models.ValidCategories, category) {
			return filter, errors.New("unknown category: " + category)
		}
		filter.Category = category
	}
	filter.OpenNow = c.Query("openNow") == "true"

	if radiusStr := c.Query("radiusKm"); radiusStr != "" {
		radiusKm, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || radiusKm <= 0 {
			return filter, errors.New("radiusKm must be a positive number")
		}
		lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
		lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
		if latErr != nil || lngErr != nil {
			return filter, errors.New("radiusKm requires lat and lng")
		}
		filter.Radius = &models.RadiusFilter{
			Center: models.Coordinates{Latitude: lat, Longitude: lng},
			Km:     radiusKm,
		}
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = offset
	}

	return filter, nil
}
