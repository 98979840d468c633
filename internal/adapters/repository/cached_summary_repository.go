package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

var _ domain.SummaryRepository = (*CachedSummaryRepository)(nil)

const summaryCacheTTL = 15 * time.Minute

// CachedSummaryRepository is a read-through Redis cache in front of the
// summary store. Dashboards hammer today's summary; writes invalidate the
// day's key so readers never see a stale aggregate past the upsert.
type CachedSummaryRepository struct {
	next  domain.SummaryRepository
	cache *redis.Client
}

func NewCachedSummaryRepository(next domain.SummaryRepository, cache *redis.Client) *CachedSummaryRepository {
	return &CachedSummaryRepository{
		next:  next,
		cache: cache,
	}
}

func (r *CachedSummaryRepository) cacheKey(profileID, day string) string {
	return fmt.Sprintf("summary:%s:%s", profileID, day)
}

func (r *CachedSummaryRepository) invalidate(ctx context.Context, profileID, day string) {
	if err := r.cache.Del(ctx, r.cacheKey(profileID, day)).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate summary %s/%s: %v", profileID, day, err)
	}
}

func (r *CachedSummaryRepository) Upsert(ctx context.Context, summary *domain.DailySummary) error {
	if err := r.next.Upsert(ctx, summary); err != nil {
		return err
	}
	// Deleting before the enclosing transaction commits would let a racing
	// reader re-cache the pre-commit row for the full TTL.
	profileID, day := summary.ProfileID, summary.Date
	AfterCommit(ctx, func() {
		r.invalidate(context.WithoutCancel(ctx), profileID, day)
	})
	return nil
}

func (r *CachedSummaryRepository) GetByDay(ctx context.Context, profileID, day string) (*domain.DailySummary, error) {
	key := r.cacheKey(profileID, day)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var summary domain.DailySummary
		if err := json.Unmarshal([]byte(val), &summary); err == nil {
			return &summary, nil
		}

		log.Printf("[CACHE] Corrupted summary data for %s/%s, cleaning up key", profileID, day)
		r.cache.Del(ctx, key)
	} else if err != redis.Nil {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	summary, err := r.next.GetByDay(ctx, profileID, day)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(summary); err == nil {
		if setErr := r.cache.Set(ctx, key, data, summaryCacheTTL).Err(); setErr != nil {
			log.Printf("[CACHE] Redis set error: %v", setErr)
		}
	}

	return summary, nil
}

func (r *CachedSummaryRepository) ListByRange(ctx context.Context, profileID, fromDay, toDay string) ([]*domain.DailySummary, error) {
	return r.next.ListByRange(ctx, profileID, fromDay, toDay)
}
