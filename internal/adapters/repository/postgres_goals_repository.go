package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

type PostgresGoalsRepository struct {
	db *sqlx.DB
}

func NewPostgresGoalsRepository(db *sqlx.DB) *PostgresGoalsRepository {
	return &PostgresGoalsRepository{db: db}
}

const goalsColumns = `
	id, profile_id,
	daily_steps_target, daily_distance_km_target, daily_calories_target, daily_active_minutes_target,
	weekly_steps_target, weekly_distance_km_target, weekly_calories_target,
	points_per_thousand_steps, points_per_km, points_per_calorie,
	current_step_streak, longest_step_streak,
	current_active_streak, longest_active_streak, last_streak_date,
	xp, level, created_at, updated_at`

func (r *PostgresGoalsRepository) scanRow(row scannable) (*domain.ActivityGoals, error) {
	var g domain.ActivityGoals
	var lastStreak *time.Time

	err := row.Scan(
		&g.ID, &g.ProfileID,
		&g.DailyStepsTarget, &g.DailyDistanceKmTarget, &g.DailyCaloriesTarget, &g.DailyActiveMinutesTarget,
		&g.WeeklyStepsTarget, &g.WeeklyDistanceKmTarget, &g.WeeklyCaloriesTarget,
		&g.PointsPerThousandSteps, &g.PointsPerKm, &g.PointsPerCalorie,
		&g.CurrentStepStreak, &g.LongestStepStreak,
		&g.CurrentActiveStreak, &g.LongestActiveStreak, &lastStreak,
		&g.XP, &g.Level, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastStreak != nil {
		g.LastStreakDate = lastStreak.UTC().Format(domain.DayLayout)
	}

	return &g, nil
}

func nullableDay(day string) interface{} {
	if day == "" {
		return nil
	}
	return day
}

func (r *PostgresGoalsRepository) Create(ctx context.Context, g *domain.ActivityGoals) error {
	query := `
		INSERT INTO activity_goals (
			id, profile_id,
			daily_steps_target, daily_distance_km_target, daily_calories_target, daily_active_minutes_target,
			weekly_steps_target, weekly_distance_km_target, weekly_calories_target,
			points_per_thousand_steps, points_per_km, points_per_calorie,
			current_step_streak, longest_step_streak,
			current_active_streak, longest_active_streak, last_streak_date,
			xp, level, created_at, updated_at
		) VALUES (
			$1, $2,
			$3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12,
			$13, $14,
			$15, $16, $17,
			$18, $19, $20, $21
		)`

	_, err := querier(ctx, r.db).ExecContext(ctx, query,
		g.ID, g.ProfileID,
		g.DailyStepsTarget, g.DailyDistanceKmTarget, g.DailyCaloriesTarget, g.DailyActiveMinutesTarget,
		g.WeeklyStepsTarget, g.WeeklyDistanceKmTarget, g.WeeklyCaloriesTarget,
		g.PointsPerThousandSteps, g.PointsPerKm, g.PointsPerCalorie,
		g.CurrentStepStreak, g.LongestStepStreak,
		g.CurrentActiveStreak, g.LongestActiveStreak, nullableDay(g.LastStreakDate),
		g.XP, g.Level, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				// One row per profile; the loser of a first-creation race
				// retries as an update.
				return domain.ErrGoalsConflict
			}
			if pqErr.Code == "23503" {
				return errors.New("referenced health profile does not exist")
			}
		}
		return fmt.Errorf("failed to insert goals: %w", err)
	}
	return nil
}

func (r *PostgresGoalsRepository) Update(ctx context.Context, g *domain.ActivityGoals) error {
	query := `
		UPDATE activity_goals SET
			daily_steps_target=$1, daily_distance_km_target=$2,
			daily_calories_target=$3, daily_active_minutes_target=$4,
			weekly_steps_target=$5, weekly_distance_km_target=$6, weekly_calories_target=$7,
			points_per_thousand_steps=$8, points_per_km=$9, points_per_calorie=$10,
			current_step_streak=$11, longest_step_streak=$12,
			current_active_streak=$13, longest_active_streak=$14, last_streak_date=$15,
			xp=$16, level=$17, updated_at=$18
		WHERE profile_id=$19`

	res, err := querier(ctx, r.db).ExecContext(ctx, query,
		g.DailyStepsTarget, g.DailyDistanceKmTarget,
		g.DailyCaloriesTarget, g.DailyActiveMinutesTarget,
		g.WeeklyStepsTarget, g.WeeklyDistanceKmTarget, g.WeeklyCaloriesTarget,
		g.PointsPerThousandSteps, g.PointsPerKm, g.PointsPerCalorie,
		g.CurrentStepStreak, g.LongestStepStreak,
		g.CurrentActiveStreak, g.LongestActiveStreak, nullableDay(g.LastStreakDate),
		g.XP, g.Level, g.UpdatedAt,
		g.ProfileID,
	)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrGoalsNotFound
	}
	return nil
}

func (r *PostgresGoalsRepository) GetByProfileID(ctx context.Context, profileID string) (*domain.ActivityGoals, error) {
	query := `SELECT ` + goalsColumns + ` FROM activity_goals WHERE profile_id = $1`

	row := querier(ctx, r.db).QueryRowxContext(ctx, query, profileID)

	g, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGoalsNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return g, nil
}
