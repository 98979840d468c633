package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vitatrack/activity-engine/internal/adapters/handler/http/middleware"
	"github.com/vitatrack/activity-engine/internal/core/domain"
	"github.com/vitatrack/activity-engine/internal/core/services"
)

type SessionHandler struct {
	svc *services.SessionService
}

func NewSessionHandler(svc *services.SessionService) *SessionHandler {
	return &SessionHandler{
		svc: svc,
	}
}

type routePointRequest struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	AltitudeM float64   `json:"altitude_m"`
	Timestamp time.Time `json:"timestamp" binding:"required"`
}

type ingestSessionRequest struct {
	ExternalID string    `json:"external_id"`
	Source     string    `json:"source" binding:"required"`
	Type       string    `json:"type" binding:"required"`
	StartedAt  time.Time `json:"started_at" binding:"required"`
	EndedAt    time.Time `json:"ended_at" binding:"required"`

	DistanceKm     float64 `json:"distance_km"`
	Steps          int     `json:"steps"`
	Calories       float64 `json:"calories"`
	ActiveCalories float64 `json:"active_calories"`

	HeartRateMin    *int     `json:"heart_rate_min"`
	HeartRateAvg    *float64 `json:"heart_rate_avg"`
	HeartRateMax    *int     `json:"heart_rate_max"`
	AvgPaceSecPerKm *float64 `json:"avg_pace_sec_per_km"`
	AvgSpeedKmh     *float64 `json:"avg_speed_kmh"`

	ElevationGainM float64 `json:"elevation_gain_m"`
	ElevationLossM float64 `json:"elevation_loss_m"`

	Route []routePointRequest `json:"route"`
}

type updateSessionRequest struct {
	Type      string    `json:"type" binding:"required"`
	StartedAt time.Time `json:"started_at" binding:"required"`
	EndedAt   time.Time `json:"ended_at" binding:"required"`

	DistanceKm     float64 `json:"distance_km"`
	Steps          int     `json:"steps"`
	Calories       float64 `json:"calories"`
	ActiveCalories float64 `json:"active_calories"`

	HeartRateMin    *int     `json:"heart_rate_min"`
	HeartRateAvg    *float64 `json:"heart_rate_avg"`
	HeartRateMax    *int     `json:"heart_rate_max"`
	AvgPaceSecPerKm *float64 `json:"avg_pace_sec_per_km"`
	AvgSpeedKmh     *float64 `json:"avg_speed_kmh"`

	ElevationGainM float64 `json:"elevation_gain_m"`
	ElevationLossM float64 `json:"elevation_loss_m"`

	Route []routePointRequest `json:"route"`
}

func toRoute(points []routePointRequest) []domain.RoutePoint {
	if len(points) == 0 {
		return nil
	}
	route := make([]domain.RoutePoint, len(points))
	for i, p := range points {
		route[i] = domain.RoutePoint{
			Latitude:  p.Lat,
			Longitude: p.Lng,
			AltitudeM: p.AltitudeM,
			Timestamp: p.Timestamp,
		}
	}
	return route
}

func (h *SessionHandler) RegisterRoutes(router *gin.RouterGroup) {
	sessions := router.Group("/sessions")
	{
		sessions.POST("", h.Ingest)
		sessions.GET("", h.List)
		sessions.GET("/:id", h.Get)
		sessions.PUT("/:id", h.Update)
		sessions.DELETE("/:id", h.Delete)
		sessions.POST("/:id/restore", h.Restore)
	}
}

func (h *SessionHandler) Ingest(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	var req ingestSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.IngestSessionInput{
		ProfileID:       profileID,
		ExternalID:      req.ExternalID,
		Source:          req.Source,
		Type:            req.Type,
		StartedAt:       req.StartedAt,
		EndedAt:         req.EndedAt,
		DistanceKm:      req.DistanceKm,
		Steps:           req.Steps,
		Calories:        req.Calories,
		ActiveCalories:  req.ActiveCalories,
		HeartRateMin:    req.HeartRateMin,
		HeartRateAvg:    req.HeartRateAvg,
		HeartRateMax:    req.HeartRateMax,
		AvgPaceSecPerKm: req.AvgPaceSecPerKm,
		AvgSpeedKmh:     req.AvgSpeedKmh,
		ElevationGainM:  req.ElevationGainM,
		ElevationLossM:  req.ElevationLossM,
		Route:           toRoute(req.Route),
	}

	session, err := h.svc.Ingest(c.Request.Context(), input)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *SessionHandler) List(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")

	var from, to time.Time
	var err error

	if toStr == "" {
		to = time.Now().UTC()
	} else {
		to, err = time.Parse(domain.DayLayout, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to format, expected YYYY-MM-DD"})
			return
		}
		to = to.AddDate(0, 0, 1)
	}

	if fromStr == "" {
		from = to.AddDate(0, 0, -7)
	} else {
		from, err = time.Parse(domain.DayLayout, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from format, expected YYYY-MM-DD"})
			return
		}
	}

	if from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from cannot be after to"})
		return
	}

	list, err := h.svc.ListByRange(c.Request.Context(), profileID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *SessionHandler) Get(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	session, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), profileID)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Update(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.UpdateSessionInput{
		ID:              c.Param("id"),
		ProfileID:       profileID,
		Type:            req.Type,
		StartedAt:       req.StartedAt,
		EndedAt:         req.EndedAt,
		DistanceKm:      req.DistanceKm,
		Steps:           req.Steps,
		Calories:        req.Calories,
		ActiveCalories:  req.ActiveCalories,
		HeartRateMin:    req.HeartRateMin,
		HeartRateAvg:    req.HeartRateAvg,
		HeartRateMax:    req.HeartRateMax,
		AvgPaceSecPerKm: req.AvgPaceSecPerKm,
		AvgSpeedKmh:     req.AvgSpeedKmh,
		ElevationGainM:  req.ElevationGainM,
		ElevationLossM:  req.ElevationLossM,
		Route:           toRoute(req.Route),
	}

	session, err := h.svc.Update(c.Request.Context(), input)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	if err := h.svc.SoftDelete(c.Request.Context(), c.Param("id"), profileID); err != nil {
		handleSessionError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Restore(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	session, err := h.svc.Restore(c.Request.Context(), c.Param("id"), profileID)
	if err != nil {
		handleSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrSessionDeleted):
		c.JSON(http.StatusConflict, gin.H{"error": "session is deleted"})
	case errors.Is(err, domain.ErrInvalidActivityType),
		errors.Is(err, domain.ErrInvalidSource),
		errors.Is(err, domain.ErrInvalidTimeRange),
		errors.Is(err, domain.ErrNegativeMetric),
		errors.Is(err, domain.ErrSessionInvalidProfileID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
