package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("activity session not found")
	ErrSessionConflict = errors.New("session with this import key already exists")
	ErrUnauthorized    = errors.New("unauthorized access to resource")
)

type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *ActivitySession) error

	// Update rewrites a session's mutable fields, including its soft-delete
	// marker.
	Update(ctx context.Context, session *ActivitySession) error

	// GetByID retrieves a session by id, soft-deleted ones included so the
	// record stays queryable for audit.
	GetByID(ctx context.Context, id string) (*ActivitySession, error)

	// FindByDedupeKey looks a session up by (profile, external id, source).
	// Returns ErrSessionNotFound when no import with that key exists.
	FindByDedupeKey(ctx context.Context, profileID, externalID, source string) (*ActivitySession, error)

	// ListLiveByDay returns the non-deleted sessions whose start timestamp
	// falls on the given UTC date. This is the aggregation engine's scan.
	ListLiveByDay(ctx context.Context, profileID, day string) ([]*ActivitySession, error)

	// ListByRange returns live sessions started within the half-open
	// interval [from, to). Callers pass an exclusive upper bound, so a
	// date range of full days ends at midnight of the following day.
	ListByRange(ctx context.Context, profileID string, from, to time.Time) ([]*ActivitySession, error)

	// ListDays returns the distinct UTC dates carrying at least one session
	// for the profile, deleted ones included. Used by the rebuild worker.
	ListDays(ctx context.Context, profileID string) ([]string, error)
}

// Transactor runs a function inside a storage transaction. LockDay takes the
// per-(profile, date) exclusive lock that serializes concurrent writers on
// the same summary key. LockProfile guards the shared goals row: writers on
// different days update the same streak/XP counters, so the read-modify-write
// needs its own serialization. Both locks are only meaningful inside InTx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockDay(ctx context.Context, profileID, day string) error
	LockProfile(ctx context.Context, profileID string) error
}
