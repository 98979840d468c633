package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrGoalsNotFound         = errors.New("activity goals not found")
	ErrGoalsConflict         = errors.New("activity goals already exist for profile")
	ErrGoalsInvalidProfileID = errors.New("invalid profile id")
	ErrInvalidGoalValue      = errors.New("goal targets and weights cannot be negative")
)

// PointWeights are the per-unit scoring weights applied when a session is
// written. Changing a profile's weights never rewrites historical sessions.
type PointWeights struct {
	PerThousandSteps float64 `json:"per_thousand_steps"`
	PerKm            float64 `json:"per_km"`
	PerCalorie       float64 `json:"per_calorie"`
}

// DefaultPointWeights apply to every profile without a stored goals row.
var DefaultPointWeights = PointWeights{
	PerThousandSteps: 10,
	PerKm:            20,
	PerCalorie:       0.1,
}

// System-wide default daily targets.
const (
	DefaultDailyStepsTarget         = 8000
	DefaultDailyDistanceKmTarget    = 5.0
	DefaultDailyCaloriesTarget      = 400.0
	DefaultDailyActiveMinutesTarget = 30
)

// ActivityGoals holds a profile's targets, point weights and gamification
// counters. At most one row exists per profile; a missing row means the
// system defaults apply.
type ActivityGoals struct {
	ID        string `json:"id" db:"id"`
	ProfileID string `json:"profile_id" db:"profile_id"`

	DailyStepsTarget         int     `json:"daily_steps_target" db:"daily_steps_target"`
	DailyDistanceKmTarget    float64 `json:"daily_distance_km_target" db:"daily_distance_km_target"`
	DailyCaloriesTarget      float64 `json:"daily_calories_target" db:"daily_calories_target"`
	DailyActiveMinutesTarget int     `json:"daily_active_minutes_target" db:"daily_active_minutes_target"`

	WeeklyStepsTarget      int     `json:"weekly_steps_target" db:"weekly_steps_target"`
	WeeklyDistanceKmTarget float64 `json:"weekly_distance_km_target" db:"weekly_distance_km_target"`
	WeeklyCaloriesTarget   float64 `json:"weekly_calories_target" db:"weekly_calories_target"`

	PointsPerThousandSteps float64 `json:"points_per_thousand_steps" db:"points_per_thousand_steps"`
	PointsPerKm            float64 `json:"points_per_km" db:"points_per_km"`
	PointsPerCalorie       float64 `json:"points_per_calorie" db:"points_per_calorie"`

	CurrentStepStreak   int    `json:"current_step_streak" db:"current_step_streak"`
	LongestStepStreak   int    `json:"longest_step_streak" db:"longest_step_streak"`
	CurrentActiveStreak int    `json:"current_active_streak" db:"current_active_streak"`
	LongestActiveStreak int    `json:"longest_active_streak" db:"longest_active_streak"`
	LastStreakDate      string `json:"last_streak_date,omitempty" db:"last_streak_date"`

	XP    int `json:"xp" db:"xp"`
	Level int `json:"level" db:"level"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultGoals builds the unstored default configuration for a profile. The
// row is only persisted once the profile customizes goals or the streak
// tracker first needs durable counters.
func DefaultGoals(profileID string) *ActivityGoals {
	now := time.Now().UTC()
	return &ActivityGoals{
		ID:                       uuid.NewString(),
		ProfileID:                profileID,
		DailyStepsTarget:         DefaultDailyStepsTarget,
		DailyDistanceKmTarget:    DefaultDailyDistanceKmTarget,
		DailyCaloriesTarget:      DefaultDailyCaloriesTarget,
		DailyActiveMinutesTarget: DefaultDailyActiveMinutesTarget,
		WeeklyStepsTarget:        DefaultDailyStepsTarget * 7,
		WeeklyDistanceKmTarget:   DefaultDailyDistanceKmTarget * 7,
		WeeklyCaloriesTarget:     DefaultDailyCaloriesTarget * 7,
		PointsPerThousandSteps:   DefaultPointWeights.PerThousandSteps,
		PointsPerKm:              DefaultPointWeights.PerKm,
		PointsPerCalorie:         DefaultPointWeights.PerCalorie,
		Level:                    1,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}

func (g *ActivityGoals) Validate() error {
	if g.ProfileID == "" {
		return ErrGoalsInvalidProfileID
	}
	if g.DailyStepsTarget < 0 || g.DailyDistanceKmTarget < 0 ||
		g.DailyCaloriesTarget < 0 || g.DailyActiveMinutesTarget < 0 ||
		g.WeeklyStepsTarget < 0 || g.WeeklyDistanceKmTarget < 0 ||
		g.WeeklyCaloriesTarget < 0 ||
		g.PointsPerThousandSteps < 0 || g.PointsPerKm < 0 || g.PointsPerCalorie < 0 {
		return ErrInvalidGoalValue
	}
	return nil
}

func (g *ActivityGoals) Weights() PointWeights {
	return PointWeights{
		PerThousandSteps: g.PointsPerThousandSteps,
		PerKm:            g.PointsPerKm,
		PerCalorie:       g.PointsPerCalorie,
	}
}

// Level thresholds on cumulative XP. Index i is the minimum XP for level i+1.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000, 15000, 20000}

// LevelForXP maps cumulative XP to a level. Recomputed from the total on
// every update so replayed updates always converge.
func LevelForXP(xp int) int {
	level := 1
	for i, min := range levelThresholds {
		if xp >= min {
			level = i + 1
		}
	}
	return level
}
