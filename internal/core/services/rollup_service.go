package services

import (
	"context"
	"errors"
	"time"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

const (
	DefaultRollupWeeks = 4
	MaxRollupWeeks     = 52
)

// RollupService serves the weekly view. It is read-time only: every call
// derives fresh buckets from the summary rows in the window, so the rollup
// can never drift from the store.
type RollupService struct {
	summaries domain.SummaryRepository
	goals     domain.GoalsRepository
}

func NewRollupService(summaries domain.SummaryRepository, goals domain.GoalsRepository) *RollupService {
	return &RollupService{summaries: summaries, goals: goals}
}

// Weekly returns one bucket per ISO week (Monday start, UTC) for the
// trailing window, oldest first. Weeks without data appear as zero buckets.
func (s *RollupService) Weekly(ctx context.Context, profileID string, weeks int) ([]*domain.WeeklyStats, error) {
	if weeks <= 0 {
		weeks = DefaultRollupWeeks
	}
	if weeks > MaxRollupWeeks {
		weeks = MaxRollupWeeks
	}

	goals, err := s.goals.GetByProfileID(ctx, profileID)
	if errors.Is(err, domain.ErrGoalsNotFound) {
		goals = domain.DefaultGoals(profileID)
	} else if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	currentWeek := domain.WeekStart(now)
	windowStart := currentWeek.AddDate(0, 0, -7*(weeks-1))

	buckets := make(map[string]*domain.WeeklyStats, weeks)
	ordered := make([]*domain.WeeklyStats, 0, weeks)
	for i := 0; i < weeks; i++ {
		start := windowStart.AddDate(0, 0, 7*i)
		ws := &domain.WeeklyStats{
			WeekStart: start.Format(domain.DayLayout),
			WeekEnd:   start.AddDate(0, 0, 6).Format(domain.DayLayout),
		}
		buckets[ws.WeekStart] = ws
		ordered = append(ordered, ws)
	}

	summaries, err := s.summaries.ListByRange(ctx, profileID,
		windowStart.Format(domain.DayLayout), now.Format(domain.DayLayout))
	if err != nil {
		return nil, err
	}

	for _, day := range summaries {
		date, err := time.Parse(domain.DayLayout, day.Date)
		if err != nil {
			continue
		}

		ws, ok := buckets[domain.WeekStart(date).Format(domain.DayLayout)]
		if !ok {
			continue
		}

		ws.TotalSteps += day.TotalSteps
		ws.TotalDistanceKm += day.TotalDistanceKm
		ws.TotalCalories += day.TotalCalories
		ws.TotalPoints += day.TotalPoints
		ws.TotalDurationSec += day.TotalDurationSec
		ws.TotalActiveMinutes += day.TotalActiveMinutes

		if day.SessionCount > 0 {
			ws.ActiveDays++
		}
	}

	for _, ws := range ordered {
		if ws.ActiveDays > 0 {
			ws.AvgStepsPerDay = float64(ws.TotalSteps) / float64(ws.ActiveDays)
			ws.AvgDistanceKmPerDay = ws.TotalDistanceKm / float64(ws.ActiveDays)
			ws.AvgCaloriesPerDay = ws.TotalCalories / float64(ws.ActiveDays)
		}

		ws.StepsGoalPct = domain.GoalPct(float64(ws.TotalSteps), float64(goals.WeeklyStepsTarget))
		ws.DistanceGoalPct = domain.GoalPct(ws.TotalDistanceKm, goals.WeeklyDistanceKmTarget)
		ws.CaloriesGoalPct = domain.GoalPct(ws.TotalCalories, goals.WeeklyCaloriesTarget)
	}

	return ordered, nil
}

// SummaryForDay fetches one day's materialized summary. Days never written
// return an empty (all-zero) summary rather than an error, mirroring the
// decay-to-zero lifecycle.
func (s *RollupService) SummaryForDay(ctx context.Context, profileID, day string) (*domain.DailySummary, error) {
	summary, err := s.summaries.GetByDay(ctx, profileID, day)
	if errors.Is(err, domain.ErrSummaryNotFound) {
		return &domain.DailySummary{
			ProfileID: profileID,
			Date:      day,
			Sources:   []string{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}
