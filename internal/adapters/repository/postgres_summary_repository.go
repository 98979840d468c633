package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

type PostgresSummaryRepository struct {
	db *sqlx.DB
}

func NewPostgresSummaryRepository(db *sqlx.DB) *PostgresSummaryRepository {
	return &PostgresSummaryRepository{db: db}
}

const summaryColumns = `
	id, profile_id, summary_date,
	session_count, total_steps, total_distance_km, total_calories,
	total_points, total_duration_sec, total_active_minutes,
	walk_count, run_count, commute_count, hike_count, treadmill_count,
	avg_heart_rate, avg_pace_sec_per_km, avg_speed_kmh,
	best_pace_sec_per_km, longest_distance_km,
	steps_goal_pct, distance_goal_pct, calories_goal_pct, active_minutes_goal_pct,
	sources, created_at, updated_at`

func (r *PostgresSummaryRepository) scanRow(row scannable) (*domain.DailySummary, error) {
	var s domain.DailySummary
	var sourcesJSON []byte
	var date time.Time

	err := row.Scan(
		&s.ID, &s.ProfileID, &date,
		&s.SessionCount, &s.TotalSteps, &s.TotalDistanceKm, &s.TotalCalories,
		&s.TotalPoints, &s.TotalDurationSec, &s.TotalActiveMinutes,
		&s.WalkCount, &s.RunCount, &s.CommuteCount, &s.HikeCount, &s.TreadmillCount,
		&s.AvgHeartRate, &s.AvgPaceSecPerKm, &s.AvgSpeedKmh,
		&s.BestPaceSecPerKm, &s.LongestDistanceKm,
		&s.StepsGoalPct, &s.DistanceGoalPct, &s.CaloriesGoalPct, &s.ActiveMinutesGoalPct,
		&sourcesJSON, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Date = date.UTC().Format(domain.DayLayout)

	s.Sources = []string{}
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &s.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
	}

	return &s, nil
}

// Upsert replaces the whole row for the (profile, date) key. A recompute of
// an emptied day writes zero totals rather than deleting anything.
func (r *PostgresSummaryRepository) Upsert(ctx context.Context, s *domain.DailySummary) error {
	sourcesJSON, err := json.Marshal(s.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	query := `
		INSERT INTO daily_summaries (
			id, profile_id, summary_date,
			session_count, total_steps, total_distance_km, total_calories,
			total_points, total_duration_sec, total_active_minutes,
			walk_count, run_count, commute_count, hike_count, treadmill_count,
			avg_heart_rate, avg_pace_sec_per_km, avg_speed_kmh,
			best_pace_sec_per_km, longest_distance_km,
			steps_goal_pct, distance_goal_pct, calories_goal_pct, active_minutes_goal_pct,
			sources, created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18,
			$19, $20,
			$21, $22, $23, $24,
			$25, $26, $27
		)
		ON CONFLICT (profile_id, summary_date) DO UPDATE SET
			session_count = EXCLUDED.session_count,
			total_steps = EXCLUDED.total_steps,
			total_distance_km = EXCLUDED.total_distance_km,
			total_calories = EXCLUDED.total_calories,
			total_points = EXCLUDED.total_points,
			total_duration_sec = EXCLUDED.total_duration_sec,
			total_active_minutes = EXCLUDED.total_active_minutes,
			walk_count = EXCLUDED.walk_count,
			run_count = EXCLUDED.run_count,
			commute_count = EXCLUDED.commute_count,
			hike_count = EXCLUDED.hike_count,
			treadmill_count = EXCLUDED.treadmill_count,
			avg_heart_rate = EXCLUDED.avg_heart_rate,
			avg_pace_sec_per_km = EXCLUDED.avg_pace_sec_per_km,
			avg_speed_kmh = EXCLUDED.avg_speed_kmh,
			best_pace_sec_per_km = EXCLUDED.best_pace_sec_per_km,
			longest_distance_km = EXCLUDED.longest_distance_km,
			steps_goal_pct = EXCLUDED.steps_goal_pct,
			distance_goal_pct = EXCLUDED.distance_goal_pct,
			calories_goal_pct = EXCLUDED.calories_goal_pct,
			active_minutes_goal_pct = EXCLUDED.active_minutes_goal_pct,
			sources = EXCLUDED.sources,
			updated_at = EXCLUDED.updated_at`

	_, err = querier(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.ProfileID, s.Date,
		s.SessionCount, s.TotalSteps, s.TotalDistanceKm, s.TotalCalories,
		s.TotalPoints, s.TotalDurationSec, s.TotalActiveMinutes,
		s.WalkCount, s.RunCount, s.CommuteCount, s.HikeCount, s.TreadmillCount,
		s.AvgHeartRate, s.AvgPaceSecPerKm, s.AvgSpeedKmh,
		s.BestPaceSecPerKm, s.LongestDistanceKm,
		s.StepsGoalPct, s.DistanceGoalPct, s.CaloriesGoalPct, s.ActiveMinutesGoalPct,
		sourcesJSON, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily summary: %w", err)
	}
	return nil
}

func (r *PostgresSummaryRepository) GetByDay(ctx context.Context, profileID, day string) (*domain.DailySummary, error) {
	query := `
		SELECT ` + summaryColumns + ` FROM daily_summaries
		WHERE profile_id = $1 AND summary_date = $2::date`

	row := querier(ctx, r.db).QueryRowxContext(ctx, query, profileID, day)

	s, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSummaryNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return s, nil
}

func (r *PostgresSummaryRepository) ListByRange(ctx context.Context, profileID, fromDay, toDay string) ([]*domain.DailySummary, error) {
	query := `
		SELECT ` + summaryColumns + ` FROM daily_summaries
		WHERE profile_id = $1
		  AND summary_date >= $2::date
		  AND summary_date <= $3::date
		ORDER BY summary_date ASC`

	rows, err := querier(ctx, r.db).QueryxContext(ctx, query, profileID, fromDay, toDay)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.DailySummary
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
