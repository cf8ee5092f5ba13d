package planner

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/models"
	"github.com/tabiji-app/tabiji/internal/pkg/middleware"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// GeneratePlan godoc
// @Summary Generate a multi-day itinerary
// @Description Builds a personalized plan; identical requests are served from cache
// @Tags itinerary
// @Accept json
// @Produce json
// @Param request body models.PlanRequest true "Trip parameters"
// @Success 200 {object} models.PlanResponse
// @Failure 400 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Failure 504 {object} map[string]string
// @Router /itinerary/plan [post]
func (h *Handler) GeneratePlan(c *gin.Context) {
	if c.ContentType() != "application/json" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "content type must be application/json",
			"code":  "BAD_REQUEST",
		})
		return
	}

	var req models.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
				"code":  "PAYLOAD_TOO_LARGE",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid plan request: " + err.Error(),
			"code":  "BAD_REQUEST",
		})
		return
	}

	resp, cacheHit, err := h.service.GeneratePlan(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Failed to generate plan")
		return
	}

	if cacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, resp)
}

// CheckAvailability godoc
// @Summary Check whether locations are open
// @Tags itinerary
// @Accept json
// @Produce json
// @Param request body models.AvailabilityRequest true "Location ids and optional instant"
// @Success 200 {array} models.AvailabilityResult
// @Failure 400 {object} map[string]string
// @Router /itinerary/availability [post]
func (h *Handler) CheckAvailability(c *gin.Context) {
	var req models.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid availability request: " + err.Error(),
			"code":  "BAD_REQUEST",
		})
		return
	}

	results, err := h.service.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Failed to check availability")
		return
	}
	c.JSON(http.StatusOK, results)
}

// SuggestReplacements godoc
// @Summary Suggest substitutes for one itinerary slot
// @Tags itinerary
// @Accept json
// @Produce json
// @Param request body models.ReplacementRequest true "Slot to refill"
// @Success 200 {array} models.ReplacementCandidate
// @Failure 400 {object} map[string]string
// @Router /itinerary/replacements [post]
func (h *Handler) SuggestReplacements(c *gin.Context) {
	var req models.ReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid replacement request: " + err.Error(),
			"code":  "BAD_REQUEST",
		})
		return
	}

	candidates, err := h.service.SuggestReplacements(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Failed to suggest replacements")
		return
	}
	if candidates == nil {
		candidates = []models.ReplacementCandidate{}
	}
	c.JSON(http.StatusOK, candidates)
}

// GetTrip godoc
// @Summary Fetch a persisted trip
// @Tags trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} models.Trip
// @Failure 404 {object} map[string]string
// @Router /trips/{id} [get]
func (h *Handler) GetTrip(c *gin.Context) {
	id := c.Param("id")

	trip, err := h.service.GetTrip(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found", "code": "NOT_FOUND"})
			return
		}
		h.respondError(c, err, "Failed to load trip")
		return
	}
	c.JSON(http.StatusOK, trip)
}

// respondError maps domain sentinels onto wire codes. Unrecognized errors
// log with the request id and turn into an opaque 500.
func (h *Handler) respondError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "BAD_REQUEST"})
	case errors.Is(err, models.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error": "plan generation timed out, try fewer days or cities",
			"code":  "GATEWAY_TIMEOUT",
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NOT_FOUND"})
	case errors.Is(err, models.ErrStoreUnavailable):
		h.logger.Warn(logMsg,
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "location catalog is temporarily unavailable",
			"code":  "STORE_UNAVAILABLE",
		})
	default:
		h.logger.Error(logMsg,
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "something went wrong on our side",
			"code":  "INTERNAL_ERROR",
		})
	}
}
