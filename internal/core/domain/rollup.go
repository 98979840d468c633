package domain

import "time"

// WeeklyStats is one bucket of the weekly rollup. It is never persisted:
// every read derives it fresh from the daily summary rows in the window.
type WeeklyStats struct {
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`

	TotalSteps         int     `json:"total_steps"`
	TotalDistanceKm    float64 `json:"total_distance_km"`
	TotalCalories      float64 `json:"total_calories"`
	TotalPoints        int     `json:"total_points"`
	TotalDurationSec   int     `json:"total_duration_sec"`
	TotalActiveMinutes int     `json:"total_active_minutes"`

	// ActiveDays counts days with at least one live session.
	ActiveDays int `json:"active_days"`

	AvgStepsPerDay      float64 `json:"avg_steps_per_day"`
	AvgDistanceKmPerDay float64 `json:"avg_distance_km_per_day"`
	AvgCaloriesPerDay   float64 `json:"avg_calories_per_day"`

	StepsGoalPct    int `json:"steps_goal_pct"`
	DistanceGoalPct int `json:"distance_goal_pct"`
	CaloriesGoalPct int `json:"calories_goal_pct"`
}

// WeekStart truncates a date to the Monday (UTC) opening its ISO week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
