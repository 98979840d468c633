package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitatrack/activity-engine/internal/adapters/handler/http/middleware"
	"github.com/vitatrack/activity-engine/internal/core/domain"
	"github.com/vitatrack/activity-engine/internal/core/services"
)

type GoalsHandler struct {
	svc *services.GoalsService
}

func NewGoalsHandler(svc *services.GoalsService) *GoalsHandler {
	return &GoalsHandler{svc: svc}
}

type updateGoalsRequest struct {
	DailyStepsTarget         *int     `json:"daily_steps_target"`
	DailyDistanceKmTarget    *float64 `json:"daily_distance_km_target"`
	DailyCaloriesTarget      *float64 `json:"daily_calories_target"`
	DailyActiveMinutesTarget *int     `json:"daily_active_minutes_target"`

	WeeklyStepsTarget      *int     `json:"weekly_steps_target"`
	WeeklyDistanceKmTarget *float64 `json:"weekly_distance_km_target"`
	WeeklyCaloriesTarget   *float64 `json:"weekly_calories_target"`

	PointsPerThousandSteps *float64 `json:"points_per_thousand_steps"`
	PointsPerKm            *float64 `json:"points_per_km"`
	PointsPerCalorie       *float64 `json:"points_per_calorie"`
}

func (h *GoalsHandler) RegisterRoutes(router *gin.RouterGroup) {
	goals := router.Group("/goals")
	{
		goals.GET("", h.Get)
		goals.PUT("", h.Update)
	}
}

func (h *GoalsHandler) Get(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	goals, err := h.svc.Get(c.Request.Context(), profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, goals)
}

func (h *GoalsHandler) Update(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	var req updateGoalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.UpdateGoalsInput{
		ProfileID:                profileID,
		DailyStepsTarget:         req.DailyStepsTarget,
		DailyDistanceKmTarget:    req.DailyDistanceKmTarget,
		DailyCaloriesTarget:      req.DailyCaloriesTarget,
		DailyActiveMinutesTarget: req.DailyActiveMinutesTarget,
		WeeklyStepsTarget:        req.WeeklyStepsTarget,
		WeeklyDistanceKmTarget:   req.WeeklyDistanceKmTarget,
		WeeklyCaloriesTarget:     req.WeeklyCaloriesTarget,
		PointsPerThousandSteps:   req.PointsPerThousandSteps,
		PointsPerKm:              req.PointsPerKm,
		PointsPerCalorie:         req.PointsPerCalorie,
	}

	goals, err := h.svc.Upsert(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidGoalValue) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, goals)
}
