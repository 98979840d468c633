package domain

import "context"

type GoalsRepository interface {
	// Create persists a first goals row for a profile. A concurrent second
	// creation hits the one-row-per-profile constraint and returns
	// ErrGoalsConflict; callers retry as an update.
	Create(ctx context.Context, goals *ActivityGoals) error

	// Update rewrites the profile's goals row.
	Update(ctx context.Context, goals *ActivityGoals) error

	// GetByProfileID returns ErrGoalsNotFound for profiles that never
	// customized goals; callers fall back to the system defaults.
	GetByProfileID(ctx context.Context, profileID string) (*ActivityGoals, error)
}
