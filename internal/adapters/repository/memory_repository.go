package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

type InMemorySessionRepository struct {
	store map[string]*domain.ActivitySession

	mu sync.RWMutex
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		store: make(map[string]*domain.ActivitySession),
	}
}

func (r *InMemorySessionRepository) Create(ctx context.Context, session *domain.ActivitySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *session
	r.store[session.ID] = &clone
	return nil
}

func (r *InMemorySessionRepository) Update(ctx context.Context, session *domain.ActivitySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}

	clone := *session
	r.store[session.ID] = &clone
	return nil
}

func (r *InMemorySessionRepository) GetByID(ctx context.Context, id string) (*domain.ActivitySession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.store[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	clone := *session
	return &clone, nil
}

func (r *InMemorySessionRepository) FindByDedupeKey(ctx context.Context, profileID, externalID, source string) (*domain.ActivitySession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.store {
		if s.ProfileID == profileID && s.ExternalID == externalID && s.Source == source {
			clone := *s
			return &clone, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (r *InMemorySessionRepository) ListLiveByDay(ctx context.Context, profileID, day string) ([]*domain.ActivitySession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*domain.ActivitySession
	for _, s := range r.store {
		if s.ProfileID == profileID && s.Day() == day && !s.IsDeleted() {
			clone := *s
			sessions = append(sessions, &clone)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})

	return sessions, nil
}

func (r *InMemorySessionRepository) ListByRange(ctx context.Context, profileID string, from, to time.Time) ([]*domain.ActivitySession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*domain.ActivitySession
	for _, s := range r.store {
		if s.ProfileID != profileID || s.IsDeleted() {
			continue
		}
		if s.StartedAt.Before(from) || !s.StartedAt.Before(to) {
			continue
		}
		clone := *s
		sessions = append(sessions, &clone)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})

	return sessions, nil
}

func (r *InMemorySessionRepository) ListDays(ctx context.Context, profileID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var days []string
	for _, s := range r.store {
		if s.ProfileID != profileID {
			continue
		}
		if day := s.Day(); !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}

	sort.Strings(days)
	return days, nil
}

type InMemorySummaryRepository struct {
	store map[string]*domain.DailySummary // keyed profileID + "|" + date

	mu sync.RWMutex
}

func NewInMemorySummaryRepository() *InMemorySummaryRepository {
	return &InMemorySummaryRepository{
		store: make(map[string]*domain.DailySummary),
	}
}

func summaryKey(profileID, day string) string {
	return profileID + "|" + day
}

func (r *InMemorySummaryRepository) Upsert(ctx context.Context, summary *domain.DailySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *summary
	r.store[summaryKey(summary.ProfileID, summary.Date)] = &clone
	return nil
}

func (r *InMemorySummaryRepository) GetByDay(ctx context.Context, profileID, day string) (*domain.DailySummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary, ok := r.store[summaryKey(profileID, day)]
	if !ok {
		return nil, domain.ErrSummaryNotFound
	}

	clone := *summary
	return &clone, nil
}

func (r *InMemorySummaryRepository) ListByRange(ctx context.Context, profileID, fromDay, toDay string) ([]*domain.DailySummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var summaries []*domain.DailySummary
	for _, s := range r.store {
		if s.ProfileID == profileID && s.Date >= fromDay && s.Date <= toDay {
			clone := *s
			summaries = append(summaries, &clone)
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date < summaries[j].Date
	})

	return summaries, nil
}

type InMemoryGoalsRepository struct {
	store map[string]*domain.ActivityGoals // keyed by profile id

	mu sync.RWMutex
}

func NewInMemoryGoalsRepository() *InMemoryGoalsRepository {
	return &InMemoryGoalsRepository{
		store: make(map[string]*domain.ActivityGoals),
	}
}

func (r *InMemoryGoalsRepository) Create(ctx context.Context, goals *domain.ActivityGoals) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[goals.ProfileID]; ok {
		return domain.ErrGoalsConflict
	}

	clone := *goals
	r.store[goals.ProfileID] = &clone
	return nil
}

func (r *InMemoryGoalsRepository) Update(ctx context.Context, goals *domain.ActivityGoals) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[goals.ProfileID]; !ok {
		return domain.ErrGoalsNotFound
	}

	clone := *goals
	r.store[goals.ProfileID] = &clone
	return nil
}

func (r *InMemoryGoalsRepository) GetByProfileID(ctx context.Context, profileID string) (*domain.ActivityGoals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	goals, ok := r.store[profileID]
	if !ok {
		return nil, domain.ErrGoalsNotFound
	}

	clone := *goals
	return &clone, nil
}

// InMemoryTransactor serializes every "transaction" behind one mutex. Good
// enough for unit tests; per-day lock granularity only matters on Postgres.
type InMemoryTransactor struct {
	mu sync.Mutex
}

func NewInMemoryTransactor() *InMemoryTransactor {
	return &InMemoryTransactor{}
}

func (t *InMemoryTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txCtxKey{}).(*txState); ok {
		return fn(ctx)
	}

	t.mu.Lock()
	state := &txState{}
	err := fn(context.WithValue(ctx, txCtxKey{}, state))
	t.mu.Unlock()
	if err != nil {
		return err
	}
	for _, hook := range state.afterCommit {
		hook()
	}
	return nil
}

func (t *InMemoryTransactor) LockDay(ctx context.Context, profileID, day string) error {
	return nil
}

func (t *InMemoryTransactor) LockProfile(ctx context.Context, profileID string) error {
	return nil
}
