package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

// AggregationService keeps daily summaries consistent with the live session
// set. Every recompute is a full re-scan of the day, never an incremental
// delta, so any prior drift heals on the next write.
type AggregationService struct {
	sessions  domain.SessionRepository
	summaries domain.SummaryRepository
	goals     domain.GoalsRepository
	streaks   *StreakService
}

func NewAggregationService(
	sessions domain.SessionRepository,
	summaries domain.SummaryRepository,
	goals domain.GoalsRepository,
	streaks *StreakService,
) *AggregationService {
	return &AggregationService{
		sessions:  sessions,
		summaries: summaries,
		goals:     goals,
		streaks:   streaks,
	}
}

// RecomputeDay rebuilds the summary for one (profile, date) key from its
// live sessions, upserts it, and feeds the result to the streak tracker.
// An emptied day decays to an all-zero row; the row itself is never removed.
func (s *AggregationService) RecomputeDay(ctx context.Context, profileID, day string) (*domain.DailySummary, error) {
	prev, err := s.summaries.GetByDay(ctx, profileID, day)
	if err != nil && !errors.Is(err, domain.ErrSummaryNotFound) {
		return nil, err
	}

	sessions, err := s.sessions.ListLiveByDay(ctx, profileID, day)
	if err != nil {
		return nil, err
	}

	goals, err := s.goals.GetByProfileID(ctx, profileID)
	if errors.Is(err, domain.ErrGoalsNotFound) {
		goals = domain.DefaultGoals(profileID)
	} else if err != nil {
		return nil, err
	}

	summary := buildSummary(profileID, day, sessions, goals)

	prevPoints := 0
	if prev != nil {
		summary.ID = prev.ID
		summary.CreatedAt = prev.CreatedAt
		prevPoints = prev.TotalPoints
	}

	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return nil, err
	}

	if _, err := s.streaks.Update(ctx, profileID, day, summary, prevPoints); err != nil {
		return nil, err
	}

	return summary, nil
}

func buildSummary(profileID, day string, sessions []*domain.ActivitySession, goals *domain.ActivityGoals) *domain.DailySummary {
	now := time.Now().UTC()

	summary := &domain.DailySummary{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		Date:      day,
		Sources:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	var (
		hrSum, paceSum, speedSum       float64
		hrCount, paceCount, speedCount int
		sourceSet                      = make(map[string]bool)
	)

	for _, session := range sessions {
		summary.SessionCount++
		summary.TotalSteps += session.Steps
		summary.TotalDistanceKm += session.DistanceKm
		summary.TotalCalories += session.Calories
		summary.TotalPoints += session.Points
		summary.TotalDurationSec += session.DurationSec
		summary.TotalActiveMinutes += session.ActiveMinutes()

		switch session.Type {
		case domain.ActivityWalk:
			summary.WalkCount++
		case domain.ActivityRun:
			summary.RunCount++
		case domain.ActivityCommute:
			summary.CommuteCount++
		case domain.ActivityHike:
			summary.HikeCount++
		case domain.ActivityTreadmill:
			summary.TreadmillCount++
		}

		// Null metrics from partial syncs stay out of both sides of the
		// average.
		if session.HeartRateAvg != nil {
			hrSum += *session.HeartRateAvg
			hrCount++
		}
		if session.AvgPaceSecPerKm != nil {
			paceSum += *session.AvgPaceSecPerKm
			paceCount++

			if summary.BestPaceSecPerKm == nil || *session.AvgPaceSecPerKm < *summary.BestPaceSecPerKm {
				pace := *session.AvgPaceSecPerKm
				summary.BestPaceSecPerKm = &pace
			}
		}
		if session.AvgSpeedKmh != nil {
			speedSum += *session.AvgSpeedKmh
			speedCount++
		}

		if session.DistanceKm > summary.LongestDistanceKm {
			summary.LongestDistanceKm = session.DistanceKm
		}

		sourceSet[session.Source] = true
	}

	if hrCount > 0 {
		avg := hrSum / float64(hrCount)
		summary.AvgHeartRate = &avg
	}
	if paceCount > 0 {
		avg := paceSum / float64(paceCount)
		summary.AvgPaceSecPerKm = &avg
	}
	if speedCount > 0 {
		avg := speedSum / float64(speedCount)
		summary.AvgSpeedKmh = &avg
	}

	for src := range sourceSet {
		summary.Sources = append(summary.Sources, src)
	}
	sort.Strings(summary.Sources)

	summary.StepsGoalPct = domain.GoalPct(float64(summary.TotalSteps), float64(goals.DailyStepsTarget))
	summary.DistanceGoalPct = domain.GoalPct(summary.TotalDistanceKm, goals.DailyDistanceKmTarget)
	summary.CaloriesGoalPct = domain.GoalPct(summary.TotalCalories, goals.DailyCaloriesTarget)
	summary.ActiveMinutesGoalPct = domain.GoalPct(float64(summary.TotalActiveMinutes), float64(goals.DailyActiveMinutesTarget))

	return summary
}
