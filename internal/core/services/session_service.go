package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

// SessionService is the write path for activity sessions. Every mutation and
// the recompute of the day(s) it touches commit as one transaction, so no
// reader ever observes a session whose summary has not caught up.
type SessionService struct {
	repo       domain.SessionRepository
	goals      domain.GoalsRepository
	aggregator *AggregationService
	tx         domain.Transactor
}

func NewSessionService(
	repo domain.SessionRepository,
	goals domain.GoalsRepository,
	aggregator *AggregationService,
	tx domain.Transactor,
) *SessionService {
	return &SessionService{
		repo:       repo,
		goals:      goals,
		aggregator: aggregator,
		tx:         tx,
	}
}

type IngestSessionInput struct {
	ProfileID  string
	ExternalID string
	Source     string
	Type       string
	StartedAt  time.Time
	EndedAt    time.Time

	DistanceKm     float64
	Steps          int
	Calories       float64
	ActiveCalories float64

	HeartRateMin    *int
	HeartRateAvg    *float64
	HeartRateMax    *int
	AvgPaceSecPerKm *float64
	AvgSpeedKmh     *float64

	ElevationGainM float64
	ElevationLossM float64

	Route []domain.RoutePoint
}

type UpdateSessionInput struct {
	ID        string
	ProfileID string

	Type      string
	StartedAt time.Time
	EndedAt   time.Time

	DistanceKm     float64
	Steps          int
	Calories       float64
	ActiveCalories float64

	HeartRateMin    *int
	HeartRateAvg    *float64
	HeartRateMax    *int
	AvgPaceSecPerKm *float64
	AvgSpeedKmh     *float64

	ElevationGainM float64
	ElevationLossM float64

	Route []domain.RoutePoint
}

// Ingest stores a new session, or updates the existing one when the
// (profile, external id, source) key has been imported before. A repeated
// import is never an error.
func (s *SessionService) Ingest(ctx context.Context, input IngestSessionInput) (*domain.ActivitySession, error) {
	session, err := domain.NewActivitySession(input.ProfileID, input.ExternalID, input.Source, input.Type, input.StartedAt, input.EndedAt)
	if err != nil {
		return nil, err
	}

	session.DistanceKm = input.DistanceKm
	session.Steps = input.Steps
	session.Calories = input.Calories
	session.ActiveCalories = input.ActiveCalories
	session.HeartRateMin = input.HeartRateMin
	session.HeartRateAvg = input.HeartRateAvg
	session.HeartRateMax = input.HeartRateMax
	session.AvgPaceSecPerKm = input.AvgPaceSecPerKm
	session.AvgSpeedKmh = input.AvgSpeedKmh
	session.ElevationGainM = input.ElevationGainM
	session.ElevationLossM = input.ElevationLossM
	session.Route = input.Route

	if err := s.enrich(ctx, session); err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}

	var stored *domain.ActivitySession

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		day := session.Day()

		var existing *domain.ActivitySession
		if session.Dedupable() {
			found, err := s.repo.FindByDedupeKey(ctx, session.ProfileID, session.ExternalID, session.Source)
			if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			existing = found
		}

		days := []string{day}
		if existing != nil && existing.Day() != day {
			days = append(days, existing.Day())
		}
		if err := s.lockDays(ctx, session.ProfileID, days); err != nil {
			return err
		}

		if existing == nil {
			err := s.repo.Create(ctx, session)
			if err == nil {
				stored = session
				return s.recomputeDays(ctx, session.ProfileID, days)
			}
			if !errors.Is(err, domain.ErrSessionConflict) {
				return err
			}
			// Lost an import race for the same key; update the winner's row.
			existing, err = s.repo.FindByDedupeKey(ctx, session.ProfileID, session.ExternalID, session.Source)
			if err != nil {
				return err
			}
			if d := existing.Day(); d != day {
				if err := s.tx.LockDay(ctx, session.ProfileID, d); err != nil {
					return err
				}
				days = append(days, d)
			}
		}

		copyMetrics(existing, session)

		if err := s.repo.Update(ctx, existing); err != nil {
			return err
		}
		stored = existing

		return s.recomputeDays(ctx, session.ProfileID, days)
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// Update edits a session's metrics. If the edit moves the session to a
// different date, both the old and new day recompute.
func (s *SessionService) Update(ctx context.Context, input UpdateSessionInput) (*domain.ActivitySession, error) {
	session, err := s.GetByID(ctx, input.ID, input.ProfileID)
	if err != nil {
		return nil, err
	}
	if session.IsDeleted() {
		return nil, domain.ErrSessionDeleted
	}

	oldDay := session.Day()

	if input.Type != "" {
		session.Type = input.Type
	}
	if !input.StartedAt.IsZero() {
		session.StartedAt = input.StartedAt.UTC()
	}
	if !input.EndedAt.IsZero() {
		session.EndedAt = input.EndedAt.UTC()
	}
	session.DurationSec = int(session.EndedAt.Sub(session.StartedAt).Seconds())
	session.DistanceKm = input.DistanceKm
	session.Steps = input.Steps
	session.Calories = input.Calories
	session.ActiveCalories = input.ActiveCalories
	session.HeartRateMin = input.HeartRateMin
	session.HeartRateAvg = input.HeartRateAvg
	session.HeartRateMax = input.HeartRateMax
	session.AvgPaceSecPerKm = input.AvgPaceSecPerKm
	session.AvgSpeedKmh = input.AvgSpeedKmh
	session.ElevationGainM = input.ElevationGainM
	session.ElevationLossM = input.ElevationLossM
	if input.Route != nil {
		session.Route = input.Route
	}
	session.UpdatedAt = time.Now().UTC()

	if err := s.enrich(ctx, session); err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}

	newDay := session.Day()

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		days := []string{oldDay}
		if newDay != oldDay {
			days = append(days, newDay)
		}
		if err := s.lockDays(ctx, session.ProfileID, days); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, session); err != nil {
			return err
		}

		return s.recomputeDays(ctx, session.ProfileID, days)
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// SoftDelete marks a session deleted and pulls its contribution out of the
// day's summary. The row stays queryable for audit.
func (s *SessionService) SoftDelete(ctx context.Context, id, profileID string) error {
	session, err := s.GetByID(ctx, id, profileID)
	if err != nil {
		return err
	}
	if session.IsDeleted() {
		return nil
	}

	session.SoftDelete()

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		day := session.Day()
		if err := s.tx.LockDay(ctx, session.ProfileID, day); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, session); err != nil {
			return err
		}
		return s.recomputeDays(ctx, session.ProfileID, []string{day})
	})
}

// Restore clears a session's soft-delete marker and puts its contribution
// back into the day's summary.
func (s *SessionService) Restore(ctx context.Context, id, profileID string) (*domain.ActivitySession, error) {
	session, err := s.GetByID(ctx, id, profileID)
	if err != nil {
		return nil, err
	}
	if !session.IsDeleted() {
		return session, nil
	}

	session.Restore()

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		day := session.Day()
		if err := s.tx.LockDay(ctx, session.ProfileID, day); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, session); err != nil {
			return err
		}
		return s.recomputeDays(ctx, session.ProfileID, []string{day})
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (s *SessionService) GetByID(ctx context.Context, id, profileID string) (*domain.ActivitySession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.ProfileID != profileID {
		return nil, domain.ErrUnauthorized
	}
	return session, nil
}

func (s *SessionService) ListByRange(ctx context.Context, profileID string, from, to time.Time) ([]*domain.ActivitySession, error) {
	return s.repo.ListByRange(ctx, profileID, from, to)
}

// lockDays takes the per-day locks in sorted key order. Two writers touching
// the same pair of days in opposite order would otherwise deadlock.
func (s *SessionService) lockDays(ctx context.Context, profileID string, days []string) error {
	sorted := append([]string(nil), days...)
	sort.Strings(sorted)
	for _, day := range sorted {
		if err := s.tx.LockDay(ctx, profileID, day); err != nil {
			return err
		}
	}
	return nil
}

func (s *SessionService) recomputeDays(ctx context.Context, profileID string, days []string) error {
	for _, day := range days {
		if _, err := s.aggregator.RecomputeDay(ctx, profileID, day); err != nil {
			return err
		}
	}
	return nil
}

// enrich derives the stored write-time fields: per-km splits from the route,
// best/worst split indices, missing pace/speed, and the session's points
// under the profile's current weights.
func (s *SessionService) enrich(ctx context.Context, session *domain.ActivitySession) error {
	session.Splits = domain.ComputeSplits(session.Route)
	session.BestSplit, session.WorstSplit = domain.BestWorstSplit(session.Splits)

	if session.AvgPaceSecPerKm == nil && session.DistanceKm > 0 && session.DurationSec > 0 {
		pace := float64(session.DurationSec) / session.DistanceKm
		session.AvgPaceSecPerKm = &pace
	}
	if session.AvgSpeedKmh == nil && session.DurationSec > 0 {
		speed := session.DistanceKm / (float64(session.DurationSec) / 3600)
		session.AvgSpeedKmh = &speed
	}

	weights := domain.DefaultPointWeights
	goals, err := s.goals.GetByProfileID(ctx, session.ProfileID)
	if err == nil {
		weights = goals.Weights()
	} else if !errors.Is(err, domain.ErrGoalsNotFound) {
		return err
	}

	session.Points = domain.ComputePoints(session.Steps, session.DistanceKm, session.Calories, weights)
	return nil
}

// copyMetrics carries a re-import's fields onto the stored session while
// preserving its identity and audit trail.
func copyMetrics(dst, src *domain.ActivitySession) {
	dst.Type = src.Type
	dst.StartedAt = src.StartedAt
	dst.EndedAt = src.EndedAt
	dst.DurationSec = src.DurationSec
	dst.DistanceKm = src.DistanceKm
	dst.Steps = src.Steps
	dst.Calories = src.Calories
	dst.ActiveCalories = src.ActiveCalories
	dst.HeartRateMin = src.HeartRateMin
	dst.HeartRateAvg = src.HeartRateAvg
	dst.HeartRateMax = src.HeartRateMax
	dst.AvgPaceSecPerKm = src.AvgPaceSecPerKm
	dst.AvgSpeedKmh = src.AvgSpeedKmh
	dst.ElevationGainM = src.ElevationGainM
	dst.ElevationLossM = src.ElevationLossM
	dst.Route = src.Route
	dst.Splits = src.Splits
	dst.BestSplit = src.BestSplit
	dst.WorstSplit = src.WorstSplit
	dst.Points = src.Points
	dst.UpdatedAt = time.Now().UTC()
}
