package services

import (
	"context"
	"errors"
	"time"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

// StreakService maintains the per-profile streak counters and the XP/level
// pair on the goals row. It runs after every daily recompute, inside the
// same transaction.
type StreakService struct {
	goals domain.GoalsRepository
	tx    domain.Transactor
}

func NewStreakService(goals domain.GoalsRepository, tx domain.Transactor) *StreakService {
	return &StreakService{goals: goals, tx: tx}
}

// Update applies the streak state machine and XP accrual for one recomputed
// day. prevPoints is the day's total before the recompute, so the XP delta
// stays correct under edits, soft deletes and out-of-order backfills.
func (s *StreakService) Update(ctx context.Context, profileID, day string, summary *domain.DailySummary, prevPoints int) (*domain.ActivityGoals, error) {
	// Writers for different days share this row; the profile lock makes the
	// read-modify-write below safe against a parallel recompute overwriting
	// the counters with stale absolutes.
	if err := s.tx.LockProfile(ctx, profileID); err != nil {
		return nil, err
	}

	goals, existed, err := s.loadOrDefault(ctx, profileID)
	if err != nil {
		return nil, err
	}

	apply(goals, day, summary, prevPoints)

	if existed {
		if err := s.goals.Update(ctx, goals); err != nil {
			return nil, err
		}
		return goals, nil
	}

	err = s.goals.Create(ctx, goals)
	if errors.Is(err, domain.ErrGoalsConflict) {
		// Lost the first-creation race; the other writer's row wins and we
		// retry as an update.
		goals, err = s.goals.GetByProfileID(ctx, profileID)
		if err != nil {
			return nil, err
		}
		apply(goals, day, summary, prevPoints)
		if err := s.goals.Update(ctx, goals); err != nil {
			return nil, err
		}
		return goals, nil
	}
	if err != nil {
		return nil, err
	}
	return goals, nil
}

func (s *StreakService) loadOrDefault(ctx context.Context, profileID string) (*domain.ActivityGoals, bool, error) {
	goals, err := s.goals.GetByProfileID(ctx, profileID)
	if errors.Is(err, domain.ErrGoalsNotFound) {
		return domain.DefaultGoals(profileID), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return goals, true, nil
}

func apply(goals *domain.ActivityGoals, day string, summary *domain.DailySummary, prevPoints int) {
	stepsMet := summary.TotalSteps >= goals.DailyStepsTarget && goals.DailyStepsTarget > 0
	activeMet := summary.TotalActiveMinutes >= goals.DailyActiveMinutesTarget && goals.DailyActiveMinutesTarget > 0

	goals.CurrentStepStreak = nextStreak(goals.CurrentStepStreak, goals.LastStreakDate, day, stepsMet)
	goals.CurrentActiveStreak = nextStreak(goals.CurrentActiveStreak, goals.LastStreakDate, day, activeMet)

	if goals.CurrentStepStreak > goals.LongestStepStreak {
		goals.LongestStepStreak = goals.CurrentStepStreak
	}
	if goals.CurrentActiveStreak > goals.LongestActiveStreak {
		goals.LongestActiveStreak = goals.CurrentActiveStreak
	}

	// The streak date only advances on qualifying days, so an unmet day
	// leaves room for a later write on the same date to still qualify.
	if (stepsMet || activeMet) && day > goals.LastStreakDate {
		goals.LastStreakDate = day
	}

	goals.XP += summary.TotalPoints - prevPoints
	if goals.XP < 0 {
		goals.XP = 0
	}
	goals.Level = domain.LevelForXP(goals.XP)

	goals.UpdatedAt = time.Now().UTC()
}

// nextStreak is the transition function for one streak kind. ISO day strings
// compare chronologically, so plain string comparison orders dates.
func nextStreak(current int, lastDay, day string, met bool) int {
	switch {
	case day < lastDay:
		// Backfill of an older date never rewrites streak history.
		return current
	case day == lastDay:
		// Same-day re-aggregation is a no-op.
		return current
	case day == nextDay(lastDay):
		if met {
			return current + 1
		}
		return 0
	default:
		// First qualifying day ever, or a gap.
		if met {
			return 1
		}
		return 0
	}
}

func nextDay(day string) string {
	if day == "" {
		return ""
	}
	t, err := time.Parse(domain.DayLayout, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(domain.DayLayout)
}
