package services

import (
	"context"
	"errors"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

// GoalsService owns the goal configuration endpoint. Reads fall back to the
// system defaults without persisting anything; the row is only created when
// the profile first customizes goals.
type GoalsService struct {
	repo domain.GoalsRepository
}

func NewGoalsService(repo domain.GoalsRepository) *GoalsService {
	return &GoalsService{repo: repo}
}

// UpdateGoalsInput carries the customizable fields. Nil means keep the
// current (or default) value.
type UpdateGoalsInput struct {
	ProfileID string

	DailyStepsTarget         *int
	DailyDistanceKmTarget    *float64
	DailyCaloriesTarget      *float64
	DailyActiveMinutesTarget *int

	WeeklyStepsTarget      *int
	WeeklyDistanceKmTarget *float64
	WeeklyCaloriesTarget   *float64

	PointsPerThousandSteps *float64
	PointsPerKm            *float64
	PointsPerCalorie       *float64
}

func (s *GoalsService) Get(ctx context.Context, profileID string) (*domain.ActivityGoals, error) {
	goals, err := s.repo.GetByProfileID(ctx, profileID)
	if errors.Is(err, domain.ErrGoalsNotFound) {
		return domain.DefaultGoals(profileID), nil
	}
	if err != nil {
		return nil, err
	}
	return goals, nil
}

// Upsert creates or updates the profile's goals row. Weight changes never
// rewrite points already stored on historical sessions.
func (s *GoalsService) Upsert(ctx context.Context, input UpdateGoalsInput) (*domain.ActivityGoals, error) {
	goals, err := s.repo.GetByProfileID(ctx, input.ProfileID)
	if errors.Is(err, domain.ErrGoalsNotFound) {
		goals = domain.DefaultGoals(input.ProfileID)
		applyGoalsInput(goals, input)
		if err := goals.Validate(); err != nil {
			return nil, err
		}

		err = s.repo.Create(ctx, goals)
		if errors.Is(err, domain.ErrGoalsConflict) {
			// A concurrent first write won; retry as an update.
			goals, err = s.repo.GetByProfileID(ctx, input.ProfileID)
			if err != nil {
				return nil, err
			}
			applyGoalsInput(goals, input)
			if err := goals.Validate(); err != nil {
				return nil, err
			}
			if err := s.repo.Update(ctx, goals); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
		return goals, nil
	}
	if err != nil {
		return nil, err
	}

	applyGoalsInput(goals, input)
	if err := goals.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, goals); err != nil {
		return nil, err
	}
	return goals, nil
}

func applyGoalsInput(goals *domain.ActivityGoals, input UpdateGoalsInput) {
	if input.DailyStepsTarget != nil {
		goals.DailyStepsTarget = *input.DailyStepsTarget
	}
	if input.DailyDistanceKmTarget != nil {
		goals.DailyDistanceKmTarget = *input.DailyDistanceKmTarget
	}
	if input.DailyCaloriesTarget != nil {
		goals.DailyCaloriesTarget = *input.DailyCaloriesTarget
	}
	if input.DailyActiveMinutesTarget != nil {
		goals.DailyActiveMinutesTarget = *input.DailyActiveMinutesTarget
	}
	if input.WeeklyStepsTarget != nil {
		goals.WeeklyStepsTarget = *input.WeeklyStepsTarget
	}
	if input.WeeklyDistanceKmTarget != nil {
		goals.WeeklyDistanceKmTarget = *input.WeeklyDistanceKmTarget
	}
	if input.WeeklyCaloriesTarget != nil {
		goals.WeeklyCaloriesTarget = *input.WeeklyCaloriesTarget
	}
	if input.PointsPerThousandSteps != nil {
		goals.PointsPerThousandSteps = *input.PointsPerThousandSteps
	}
	if input.PointsPerKm != nil {
		goals.PointsPerKm = *input.PointsPerKm
	}
	if input.PointsPerCalorie != nil {
		goals.PointsPerCalorie = *input.PointsPerCalorie
	}
}
