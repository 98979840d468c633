package domain

import (
	"context"
	"errors"
)

var ErrSummaryNotFound = errors.New("daily summary not found")

type SummaryRepository interface {
	// Upsert inserts or fully replaces the summary row for the session's
	// (profile, date) key. Summary rows are never deleted; a day whose last
	// session disappears is rewritten to all-zero totals.
	Upsert(ctx context.Context, summary *DailySummary) error

	// GetByDay fetches the summary for one (profile, date) key.
	GetByDay(ctx context.Context, profileID, day string) (*DailySummary, error)

	// ListByRange returns summaries with date in [fromDay, toDay], ordered
	// by date ascending.
	ListByRange(ctx context.Context, profileID, fromDay, toDay string) ([]*DailySummary, error)
}
