package domain

import "time"

// DailySummary is the derived per-(profile, date) aggregate. Every numeric
// total equals the corresponding sum over the profile's live sessions for
// that date; the aggregation engine rebuilds the whole row on every write.
type DailySummary struct {
	ID        string `json:"id" db:"id"`
	ProfileID string `json:"profile_id" db:"profile_id"`
	Date      string `json:"date" db:"summary_date"`

	SessionCount       int     `json:"session_count" db:"session_count"`
	TotalSteps         int     `json:"total_steps" db:"total_steps"`
	TotalDistanceKm    float64 `json:"total_distance_km" db:"total_distance_km"`
	TotalCalories      float64 `json:"total_calories" db:"total_calories"`
	TotalPoints        int     `json:"total_points" db:"total_points"`
	TotalDurationSec   int     `json:"total_duration_sec" db:"total_duration_sec"`
	TotalActiveMinutes int     `json:"total_active_minutes" db:"total_active_minutes"`

	WalkCount      int `json:"walk_count" db:"walk_count"`
	RunCount       int `json:"run_count" db:"run_count"`
	CommuteCount   int `json:"commute_count" db:"commute_count"`
	HikeCount      int `json:"hike_count" db:"hike_count"`
	TreadmillCount int `json:"treadmill_count" db:"treadmill_count"`

	// Averages are means over sessions that reported the field; sessions
	// with a null value are excluded from both sides of the division.
	AvgHeartRate    *float64 `json:"avg_heart_rate,omitempty" db:"avg_heart_rate"`
	AvgPaceSecPerKm *float64 `json:"avg_pace_sec_per_km,omitempty" db:"avg_pace_sec_per_km"`
	AvgSpeedKmh     *float64 `json:"avg_speed_kmh,omitempty" db:"avg_speed_kmh"`

	BestPaceSecPerKm  *float64 `json:"best_pace_sec_per_km,omitempty" db:"best_pace_sec_per_km"`
	LongestDistanceKm float64  `json:"longest_distance_km" db:"longest_distance_km"`

	// Goal progress in whole percent, floored at zero, uncapped above 100.
	StepsGoalPct         int `json:"steps_goal_pct" db:"steps_goal_pct"`
	DistanceGoalPct      int `json:"distance_goal_pct" db:"distance_goal_pct"`
	CaloriesGoalPct      int `json:"calories_goal_pct" db:"calories_goal_pct"`
	ActiveMinutesGoalPct int `json:"active_minutes_goal_pct" db:"active_minutes_goal_pct"`

	Sources []string `json:"sources" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GoalPct computes a progress percentage, clamped at zero, never capped.
func GoalPct(total, target float64) int {
	if target <= 0 {
		return 0
	}
	pct := int(100 * total / target)
	if pct < 0 {
		return 0
	}
	return pct
}
