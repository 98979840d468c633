package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

func TestNewActivitySession(t *testing.T) {
	start := time.Date(2025, 6, 10, 7, 30, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	t.Run("Success: Should create session with derived duration and day", func(t *testing.T) {
		s, err := domain.NewActivitySession("profile-1", "W1", domain.SourceFitbit, domain.ActivityRun, start, end)
		require.NoError(t, err)

		assert.NotEmpty(t, s.ID)
		assert.Equal(t, 45*60, s.DurationSec)
		assert.Equal(t, "2025-06-10", s.Day())
		assert.Equal(t, -1, s.BestSplit)
		assert.True(t, s.Dedupable())
	})

	t.Run("Success: Manual source drops the external id", func(t *testing.T) {
		s, err := domain.NewActivitySession("profile-1", "ignored", domain.SourceManual, domain.ActivityWalk, start, end)
		require.NoError(t, err)

		assert.Empty(t, s.ExternalID)
		assert.False(t, s.Dedupable())
	})

	t.Run("Fail: Empty profile id", func(t *testing.T) {
		_, err := domain.NewActivitySession("", "W1", domain.SourceApp, domain.ActivityRun, start, end)
		assert.ErrorIs(t, err, domain.ErrSessionInvalidProfileID)
	})

	t.Run("Fail: Unknown activity type", func(t *testing.T) {
		_, err := domain.NewActivitySession("profile-1", "W1", domain.SourceApp, "swim", start, end)
		assert.ErrorIs(t, err, domain.ErrInvalidActivityType)
	})

	t.Run("Fail: Unknown source", func(t *testing.T) {
		_, err := domain.NewActivitySession("profile-1", "W1", "carrier-pigeon", domain.ActivityRun, start, end)
		assert.ErrorIs(t, err, domain.ErrInvalidSource)
	})

	t.Run("Fail: End before start", func(t *testing.T) {
		_, err := domain.NewActivitySession("profile-1", "W1", domain.SourceApp, domain.ActivityRun, end, start)
		assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
	})
}

func TestActivitySession_Validate(t *testing.T) {
	start := time.Date(2025, 6, 10, 7, 30, 0, 0, time.UTC)

	valid := func() *domain.ActivitySession {
		s, err := domain.NewActivitySession("profile-1", "W1", domain.SourceGarmin, domain.ActivityRun, start, start.Add(time.Hour))
		require.NoError(t, err)
		return s
	}

	t.Run("Success: Valid session passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Fail: Negative distance rejected at boundary", func(t *testing.T) {
		s := valid()
		s.DistanceKm = -1
		assert.ErrorIs(t, s.Validate(), domain.ErrNegativeMetric)
	})

	t.Run("Fail: Negative steps rejected at boundary", func(t *testing.T) {
		s := valid()
		s.Steps = -100
		assert.ErrorIs(t, s.Validate(), domain.ErrNegativeMetric)
	})
}

func TestActivitySession_SoftDeleteRestore(t *testing.T) {
	start := time.Now().UTC().Add(-2 * time.Hour)
	s, err := domain.NewActivitySession("profile-1", "", domain.SourceManual, domain.ActivityWalk, start, start.Add(time.Hour))
	require.NoError(t, err)

	assert.False(t, s.IsDeleted())

	s.SoftDelete()
	require.True(t, s.IsDeleted())
	firstMark := *s.DeletedAt

	// Deleting again must not move the marker.
	s.SoftDelete()
	assert.Equal(t, firstMark, *s.DeletedAt)

	s.Restore()
	assert.False(t, s.IsDeleted())
}
