package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vitatrack/activity-engine/internal/core/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

const sessionColumns = `
	id, profile_id, external_id, source, type,
	started_at, ended_at, duration_sec,
	distance_km, steps, calories, active_calories,
	heart_rate_min, heart_rate_avg, heart_rate_max,
	avg_pace_sec_per_km, avg_speed_kmh,
	elevation_gain_m, elevation_loss_m,
	route, splits, best_split, worst_split, points,
	created_at, updated_at, deleted_at`

func (r *PostgresSessionRepository) scanRow(row scannable) (*domain.ActivitySession, error) {
	var s domain.ActivitySession
	var routeJSON, splitsJSON []byte

	err := row.Scan(
		&s.ID, &s.ProfileID, &s.ExternalID, &s.Source, &s.Type,
		&s.StartedAt, &s.EndedAt, &s.DurationSec,
		&s.DistanceKm, &s.Steps, &s.Calories, &s.ActiveCalories,
		&s.HeartRateMin, &s.HeartRateAvg, &s.HeartRateMax,
		&s.AvgPaceSecPerKm, &s.AvgSpeedKmh,
		&s.ElevationGainM, &s.ElevationLossM,
		&routeJSON, &splitsJSON, &s.BestSplit, &s.WorstSplit, &s.Points,
		&s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(routeJSON) > 0 {
		if err := json.Unmarshal(routeJSON, &s.Route); err != nil {
			return nil, fmt.Errorf("failed to unmarshal route: %w", err)
		}
	}
	if len(splitsJSON) > 0 {
		if err := json.Unmarshal(splitsJSON, &s.Splits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal splits: %w", err)
		}
	}

	return &s, nil
}

func (r *PostgresSessionRepository) Create(ctx context.Context, s *domain.ActivitySession) error {
	routeJSON, err := json.Marshal(s.Route)
	if err != nil {
		return fmt.Errorf("failed to marshal route: %w", err)
	}
	splitsJSON, err := json.Marshal(s.Splits)
	if err != nil {
		return fmt.Errorf("failed to marshal splits: %w", err)
	}

	query := `
		INSERT INTO activity_sessions (
			id, profile_id, external_id, source, type,
			started_at, ended_at, duration_sec,
			distance_km, steps, calories, active_calories,
			heart_rate_min, heart_rate_avg, heart_rate_max,
			avg_pace_sec_per_km, avg_speed_kmh,
			elevation_gain_m, elevation_loss_m,
			route, splits, best_split, worst_split, points,
			created_at, updated_at, deleted_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15,
			$16, $17,
			$18, $19,
			$20, $21, $22, $23, $24,
			$25, $26, $27
		)`

	_, err = querier(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.ProfileID, s.ExternalID, s.Source, s.Type,
		s.StartedAt, s.EndedAt, s.DurationSec,
		s.DistanceKm, s.Steps, s.Calories, s.ActiveCalories,
		s.HeartRateMin, s.HeartRateAvg, s.HeartRateMax,
		s.AvgPaceSecPerKm, s.AvgSpeedKmh,
		s.ElevationGainM, s.ElevationLossM,
		routeJSON, splitsJSON, s.BestSplit, s.WorstSplit, s.Points,
		s.CreatedAt, s.UpdatedAt, s.DeletedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" {
				return errors.New("referenced health profile does not exist")
			}
			if pqErr.Code == "23505" {
				return domain.ErrSessionConflict
			}
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) Update(ctx context.Context, s *domain.ActivitySession) error {
	routeJSON, err := json.Marshal(s.Route)
	if err != nil {
		return fmt.Errorf("failed to marshal route: %w", err)
	}
	splitsJSON, err := json.Marshal(s.Splits)
	if err != nil {
		return fmt.Errorf("failed to marshal splits: %w", err)
	}

	query := `
		UPDATE activity_sessions SET
			type=$1, started_at=$2, ended_at=$3, duration_sec=$4,
			distance_km=$5, steps=$6, calories=$7, active_calories=$8,
			heart_rate_min=$9, heart_rate_avg=$10, heart_rate_max=$11,
			avg_pace_sec_per_km=$12, avg_speed_kmh=$13,
			elevation_gain_m=$14, elevation_loss_m=$15,
			route=$16, splits=$17, best_split=$18, worst_split=$19, points=$20,
			updated_at=$21, deleted_at=$22
		WHERE id=$23`

	res, err := querier(ctx, r.db).ExecContext(ctx, query,
		s.Type, s.StartedAt, s.EndedAt, s.DurationSec,
		s.DistanceKm, s.Steps, s.Calories, s.ActiveCalories,
		s.HeartRateMin, s.HeartRateAvg, s.HeartRateMax,
		s.AvgPaceSecPerKm, s.AvgSpeedKmh,
		s.ElevationGainM, s.ElevationLossM,
		routeJSON, splitsJSON, s.BestSplit, s.WorstSplit, s.Points,
		s.UpdatedAt, s.DeletedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id string) (*domain.ActivitySession, error) {
	// Soft-deleted rows stay readable for audit.
	query := `SELECT ` + sessionColumns + ` FROM activity_sessions WHERE id = $1`

	row := querier(ctx, r.db).QueryRowxContext(ctx, query, id)

	s, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) FindByDedupeKey(ctx context.Context, profileID, externalID, source string) (*domain.ActivitySession, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM activity_sessions
		WHERE profile_id = $1 AND external_id = $2 AND source = $3
		LIMIT 1`

	row := querier(ctx, r.db).QueryRowxContext(ctx, query, profileID, externalID, source)

	s, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) ListLiveByDay(ctx context.Context, profileID, day string) ([]*domain.ActivitySession, error) {
	dayStart, err := time.Parse(domain.DayLayout, day)
	if err != nil {
		return nil, fmt.Errorf("invalid day %q: %w", day, err)
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT ` + sessionColumns + ` FROM activity_sessions
		WHERE profile_id = $1
		  AND started_at >= $2
		  AND started_at < $3
		  AND deleted_at IS NULL
		ORDER BY started_at ASC`

	return r.list(ctx, query, profileID, dayStart, dayEnd)
}

func (r *PostgresSessionRepository) ListByRange(ctx context.Context, profileID string, from, to time.Time) ([]*domain.ActivitySession, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM activity_sessions
		WHERE profile_id = $1
		  AND started_at >= $2
		  AND started_at < $3
		  AND deleted_at IS NULL
		ORDER BY started_at DESC`

	return r.list(ctx, query, profileID, from, to)
}

func (r *PostgresSessionRepository) ListDays(ctx context.Context, profileID string) ([]string, error) {
	query := `
		SELECT DISTINCT to_char(started_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day
		FROM activity_sessions
		WHERE profile_id = $1
		ORDER BY day ASC`

	days := []string{}
	if err := querier(ctx, r.db).SelectContext(ctx, &days, query, profileID); err != nil {
		return nil, fmt.Errorf("list days query error: %w", err)
	}
	return days, nil
}

func (r *PostgresSessionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.ActivitySession, error) {
	rows, err := querier(ctx, r.db).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.ActivitySession
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
