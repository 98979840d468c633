package workers

import (
	"context"
	"log"

	"github.com/vitatrack/activity-engine/internal/core/domain"
)

type SessionRepository interface {
	ListDays(ctx context.Context, profileID string) ([]string, error)
}

type Aggregator interface {
	RecomputeDay(ctx context.Context, profileID, day string) (*domain.DailySummary, error)
}

type RebuildJob struct {
	ProfileID string
}

// RebuildWorker re-derives a profile's entire summary history in the
// background: one transaction per day, same locks as the write path. It
// backs the admin rebuild endpoint after bulk imports; normal writes never
// go through here.
type RebuildWorker struct {
	sessions   SessionRepository
	aggregator Aggregator
	tx         domain.Transactor
	jobs       chan RebuildJob
}

func NewRebuildWorker(sessions SessionRepository, aggregator Aggregator, tx domain.Transactor) *RebuildWorker {
	return &RebuildWorker{
		sessions:   sessions,
		aggregator: aggregator,
		tx:         tx,
		jobs:       make(chan RebuildJob, 100),
	}
}

func (w *RebuildWorker) Start(ctx context.Context) {
	go func() {
		log.Println("Rebuild Worker started in background...")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Println("Rebuild Worker shutting down...")
				return
			}
		}
	}()
}

func (w *RebuildWorker) Enqueue(profileID string) {
	select {
	case w.jobs <- RebuildJob{ProfileID: profileID}:
	default:
		log.Printf("Rebuild Worker queue full! Dropping job for profile %s", profileID)
	}
}

func (w *RebuildWorker) processJob(ctx context.Context, job RebuildJob) {
	days, err := w.sessions.ListDays(ctx, job.ProfileID)
	if err != nil {
		log.Printf("Worker Error listing days for %s: %v", job.ProfileID, err)
		return
	}

	rebuilt := 0
	for _, day := range days {
		err := w.tx.InTx(ctx, func(ctx context.Context) error {
			if err := w.tx.LockDay(ctx, job.ProfileID, day); err != nil {
				return err
			}
			_, err := w.aggregator.RecomputeDay(ctx, job.ProfileID, day)
			return err
		})
		if err != nil {
			log.Printf("Worker Failed to rebuild %s/%s: %v", job.ProfileID, day, err)
			continue
		}
		rebuilt++
	}

	log.Printf("Rebuild finished for %s: %d/%d days", job.ProfileID, rebuilt, len(days))
}
