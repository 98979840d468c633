package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitatrack/activity-engine/internal/adapters/repository"
	"github.com/vitatrack/activity-engine/internal/core/domain"
	"github.com/vitatrack/activity-engine/internal/core/services"
)

func TestGoalsService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: Missing row reads as the system defaults", func(t *testing.T) {
		repo := repository.NewInMemoryGoalsRepository()
		svc := services.NewGoalsService(repo)

		goals, err := svc.Get(ctx, "profile-1")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultDailyStepsTarget, goals.DailyStepsTarget)
		assert.Equal(t, 1, goals.Level)

		// Reading defaults must not persist anything.
		_, err = repo.GetByProfileID(ctx, "profile-1")
		assert.ErrorIs(t, err, domain.ErrGoalsNotFound)
	})

	t.Run("Success: Stored row wins over defaults", func(t *testing.T) {
		repo := repository.NewInMemoryGoalsRepository()
		svc := services.NewGoalsService(repo)

		stored := domain.DefaultGoals("profile-1")
		stored.DailyStepsTarget = 12000
		require.NoError(t, repo.Create(ctx, stored))

		goals, err := svc.Get(ctx, "profile-1")
		require.NoError(t, err)
		assert.Equal(t, 12000, goals.DailyStepsTarget)
	})
}

func TestGoalsService_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: First customization creates the row on top of defaults", func(t *testing.T) {
		repo := repository.NewInMemoryGoalsRepository()
		svc := services.NewGoalsService(repo)

		goals, err := svc.Upsert(ctx, services.UpdateGoalsInput{
			ProfileID:        "profile-1",
			DailyStepsTarget: ptr(10000),
		})
		require.NoError(t, err)

		assert.Equal(t, 10000, goals.DailyStepsTarget)
		// Untouched fields keep their defaults.
		assert.InDelta(t, domain.DefaultDailyDistanceKmTarget, goals.DailyDistanceKmTarget, 0.001)

		stored, err := repo.GetByProfileID(ctx, "profile-1")
		require.NoError(t, err)
		assert.Equal(t, 10000, stored.DailyStepsTarget)
	})

	t.Run("Success: Partial patch leaves other fields alone", func(t *testing.T) {
		repo := repository.NewInMemoryGoalsRepository()
		svc := services.NewGoalsService(repo)

		_, err := svc.Upsert(ctx, services.UpdateGoalsInput{
			ProfileID:        "profile-1",
			DailyStepsTarget: ptr(10000),
		})
		require.NoError(t, err)

		goals, err := svc.Upsert(ctx, services.UpdateGoalsInput{
			ProfileID:   "profile-1",
			PointsPerKm: ptr(25.0),
		})
		require.NoError(t, err)

		assert.Equal(t, 10000, goals.DailyStepsTarget)
		assert.InDelta(t, 25.0, goals.PointsPerKm, 0.001)
	})

	t.Run("Success: Streak counters survive a goal edit", func(t *testing.T) {
		repo := repository.NewInMemoryGoalsRepository()
		svc := services.NewGoalsService(repo)

		stored := domain.DefaultGoals("profile-1")
		stored.CurrentStepStreak = 7
		stored.XP = 900
		require.NoError(t, repo.Create(ctx, stored))

		goals, err := svc.Upsert(ctx, services.UpdateGoalsInput{
			ProfileID:        "profile-1",
			DailyStepsTarget: ptr(6000),
		})
		require.NoError(t, err)

		assert.Equal(t, 7, goals.CurrentStepStreak)
		assert.Equal(t, 900, goals.XP)
	})

	t.Run("Fail: Negative targets are rejected", func(t *testing.T) {
		repo := repository.NewInMemoryGoalsRepository()
		svc := services.NewGoalsService(repo)

		_, err := svc.Upsert(ctx, services.UpdateGoalsInput{
			ProfileID:        "profile-1",
			DailyStepsTarget: ptr(-100),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidGoalValue)
	})
}
