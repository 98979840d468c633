package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vitatrack/activity-engine/internal/adapters/handler/http/middleware"
	"github.com/vitatrack/activity-engine/internal/core/domain"
	"github.com/vitatrack/activity-engine/internal/core/services"
	"github.com/vitatrack/activity-engine/internal/core/workers"
)

type SummaryHandler struct {
	svc     *services.RollupService
	rebuild *workers.RebuildWorker
}

func NewSummaryHandler(svc *services.RollupService, rebuild *workers.RebuildWorker) *SummaryHandler {
	return &SummaryHandler{
		svc:     svc,
		rebuild: rebuild,
	}
}

func (h *SummaryHandler) RegisterRoutes(router *gin.RouterGroup) {
	summaries := router.Group("/summaries")
	{
		summaries.GET("/weekly", h.Weekly)
		summaries.GET("/:date", h.Daily)
		summaries.POST("/rebuild", h.Rebuild)
	}
}

func (h *SummaryHandler) Daily(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	day := c.Param("date")
	if _, err := time.Parse(domain.DayLayout, day); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, expected YYYY-MM-DD"})
		return
	}

	summary, err := h.svc.SummaryForDay(c.Request.Context(), profileID, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *SummaryHandler) Weekly(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	weeks := services.DefaultRollupWeeks
	if weeksStr := c.Query("weeks"); weeksStr != "" {
		parsed, err := strconv.Atoi(weeksStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weeks must be a positive integer"})
			return
		}
		if parsed > services.MaxRollupWeeks {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weeks range too large, max 52 allowed"})
			return
		}
		weeks = parsed
	}

	stats, err := h.svc.Weekly(c.Request.Context(), profileID, weeks)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"weeks":     stats,
		"timestamp": time.Now().UTC(),
	})
}

// Rebuild queues a full recompute of every summary the profile owns. The
// heavy lifting happens in the background worker, the request returns as
// soon as the job is enqueued.
func (h *SummaryHandler) Rebuild(c *gin.Context) {
	profileID, ok := middleware.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile context missing"})
		return
	}

	h.rebuild.Enqueue(profileID)

	c.JSON(http.StatusAccepted, gin.H{"status": "rebuild queued"})
}
