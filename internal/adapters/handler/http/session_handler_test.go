package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/vitatrack/activity-engine/internal/adapters/handler/http"
	"github.com/vitatrack/activity-engine/internal/adapters/handler/http/middleware"
	"github.com/vitatrack/activity-engine/internal/adapters/repository"
	"github.com/vitatrack/activity-engine/internal/core/domain"
	"github.com/vitatrack/activity-engine/internal/core/services"
)

type fixture struct {
	router    *gin.Engine
	summaries *repository.InMemorySummaryRepository
	goals     *repository.InMemoryGoalsRepository
	sessions  *services.SessionService
}

// setupRouter wires real services onto in-memory storage and pins the
// authenticated profile, so handler tests exercise everything but the JWT
// check.
func setupRouter(profileID string) *fixture {
	gin.SetMode(gin.TestMode)

	sessionRepo := repository.NewInMemorySessionRepository()
	summaryRepo := repository.NewInMemorySummaryRepository()
	goalsRepo := repository.NewInMemoryGoalsRepository()
	tx := repository.NewInMemoryTransactor()

	streaks := services.NewStreakService(goalsRepo, tx)
	aggregator := services.NewAggregationService(sessionRepo, summaryRepo, goalsRepo, streaks)
	sessionSvc := services.NewSessionService(sessionRepo, goalsRepo, aggregator, tx)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextProfileIDKey, profileID)
		c.Next()
	})
	adapterHTTP.NewSessionHandler(sessionSvc).RegisterRoutes(r.Group("/api/v1"))

	return &fixture{
		router:    r,
		summaries: summaryRepo,
		goals:     goalsRepo,
		sessions:  sessionSvc,
	}
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const walkPayload = `{
	"external_id": "fitbit-1",
	"source": "fitbit",
	"type": "walk",
	"started_at": "2025-03-10T08:00:00Z",
	"ended_at": "2025-03-10T08:45:00Z",
	"steps": 5000,
	"distance_km": 3.0,
	"calories": 200
}`

func TestSessionHandler_Ingest(t *testing.T) {
	t.Run("Success: 201 with computed points", func(t *testing.T) {
		f := setupRouter("profile-1")

		w := doJSON(f.router, "POST", "/api/v1/sessions", walkPayload)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"points":130`)
		assert.Contains(t, w.Body.String(), `"id":`)
	})

	t.Run("Fail: 400 on missing required fields", func(t *testing.T) {
		f := setupRouter("profile-1")

		w := doJSON(f.router, "POST", "/api/v1/sessions", `{"source": "fitbit"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Fail: 400 on unknown activity type", func(t *testing.T) {
		f := setupRouter("profile-1")

		payload := `{
			"source": "fitbit",
			"type": "swimming",
			"started_at": "2025-03-10T08:00:00Z",
			"ended_at": "2025-03-10T08:45:00Z"
		}`
		w := doJSON(f.router, "POST", "/api/v1/sessions", payload)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid activity type")
	})

	t.Run("Success: Route payload produces splits", func(t *testing.T) {
		f := setupRouter("profile-1")

		payload := `{
			"source": "phone",
			"type": "run",
			"started_at": "2025-03-10T08:00:00Z",
			"ended_at": "2025-03-10T08:20:00Z",
			"distance_km": 2.0,
			"route": [
				{"lat": 45.0,    "lng": 9.0, "timestamp": "2025-03-10T08:00:00Z"},
				{"lat": 45.009,  "lng": 9.0, "timestamp": "2025-03-10T08:06:00Z"},
				{"lat": 45.018,  "lng": 9.0, "timestamp": "2025-03-10T08:13:00Z"}
			]
		}`
		w := doJSON(f.router, "POST", "/api/v1/sessions", payload)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Splits []domain.Split `json:"splits"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Splits)
	})
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	t.Run("Success: Get, delete, restore round trip", func(t *testing.T) {
		f := setupRouter("profile-1")

		created := doJSON(f.router, "POST", "/api/v1/sessions", walkPayload)
		require.Equal(t, http.StatusCreated, created.Code)

		var resp struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

		w := doJSON(f.router, "GET", "/api/v1/sessions/"+resp.ID, "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(f.router, "DELETE", "/api/v1/sessions/"+resp.ID, "")
		assert.Equal(t, http.StatusNoContent, w.Code)

		// Still visible after soft delete.
		w = doJSON(f.router, "GET", "/api/v1/sessions/"+resp.ID, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"deleted_at"`)

		w = doJSON(f.router, "POST", "/api/v1/sessions/"+resp.ID+"/restore", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), `"deleted_at"`)
	})

	t.Run("Fail: 404 on unknown session", func(t *testing.T) {
		f := setupRouter("profile-1")

		w := doJSON(f.router, "GET", "/api/v1/sessions/no-such-id", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Fail: 409 on editing a deleted session", func(t *testing.T) {
		f := setupRouter("profile-1")

		created := doJSON(f.router, "POST", "/api/v1/sessions", walkPayload)
		var resp struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

		doJSON(f.router, "DELETE", "/api/v1/sessions/"+resp.ID, "")

		update := `{
			"type": "walk",
			"started_at": "2025-03-10T08:00:00Z",
			"ended_at": "2025-03-10T09:00:00Z",
			"steps": 6000
		}`
		w := doJSON(f.router, "PUT", "/api/v1/sessions/"+resp.ID, update)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Security: 403 when the session belongs to another profile", func(t *testing.T) {
		f := setupRouter("profile-1")

		created := doJSON(f.router, "POST", "/api/v1/sessions", walkPayload)
		var resp struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

		// Same storage, different authenticated profile.
		other := gin.New()
		other.Use(func(c *gin.Context) {
			c.Set(middleware.ContextProfileIDKey, "profile-2")
			c.Next()
		})
		adapterHTTP.NewSessionHandler(f.sessions).RegisterRoutes(other.Group("/api/v1"))

		w := doJSON(other, "DELETE", "/api/v1/sessions/"+resp.ID, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestSessionHandler_List(t *testing.T) {
	t.Run("Success: Range filter returns the day's sessions", func(t *testing.T) {
		f := setupRouter("profile-1")

		require.Equal(t, http.StatusCreated,
			doJSON(f.router, "POST", "/api/v1/sessions", walkPayload).Code)

		w := doJSON(f.router, "GET", "/api/v1/sessions?from=2025-03-10&to=2025-03-10", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"steps":5000`)
	})

	t.Run("Success: Midnight after the to date stays out of the range", func(t *testing.T) {
		f := setupRouter("profile-1")

		nextMidnight := `{
			"external_id": "fitbit-2",
			"source": "fitbit",
			"type": "walk",
			"started_at": "2025-03-11T00:00:00Z",
			"ended_at": "2025-03-11T00:45:00Z",
			"steps": 7777,
			"distance_km": 3.0,
			"calories": 200
		}`
		require.Equal(t, http.StatusCreated,
			doJSON(f.router, "POST", "/api/v1/sessions", walkPayload).Code)
		require.Equal(t, http.StatusCreated,
			doJSON(f.router, "POST", "/api/v1/sessions", nextMidnight).Code)

		w := doJSON(f.router, "GET", "/api/v1/sessions?from=2025-03-10&to=2025-03-10", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"steps":5000`)
		assert.NotContains(t, w.Body.String(), `"steps":7777`)
	})

	t.Run("Fail: 400 on malformed range", func(t *testing.T) {
		f := setupRouter("profile-1")

		w := doJSON(f.router, "GET", "/api/v1/sessions?from=not-a-date", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Fail: 400 when from is after to", func(t *testing.T) {
		f := setupRouter("profile-1")

		w := doJSON(f.router, "GET", "/api/v1/sessions?from=2025-03-20&to=2025-03-10", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
