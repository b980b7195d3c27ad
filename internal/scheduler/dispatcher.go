package scheduler

import (
	"context"
	"time"

	"catalog_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultDispatchInterval = 5 * time.Second
	// Jobs younger than dispatchGrace are left to the API's own enqueue.
	dispatchGrace = 30 * time.Second
	dispatchBatch = 50
)

// PendingJobStore hands out jobs whose task never reached the queue.
type PendingJobStore interface {
	ClaimUnenqueued(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error)
	ClearEnqueued(ctx context.Context, id uuid.UUID) error
}

// JobEnqueuer queues an extraction task.
type JobEnqueuer interface {
	EnqueueCatalogExtraction(ctx context.Context, jobID uuid.UUID) error
}

// PendingJobDispatcher re-queues jobs whose enqueue failed at submission time.
type PendingJobDispatcher struct {
	repo     PendingJobStore
	enqueuer JobEnqueuer
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

func NewPendingJobDispatcher(repo PendingJobStore, enqueuer JobEnqueuer, log *logger.Logger, interval time.Duration) *PendingJobDispatcher {
	if interval <= 0 {
		interval = defaultDispatchInterval
	}
	return &PendingJobDispatcher{
		repo:     repo,
		enqueuer: enqueuer,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

func (d *PendingJobDispatcher) Run(ctx context.Context) {
	if d == nil || d.repo == nil || d.enqueuer == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatch(ctx)
	}
}

func (d *PendingJobDispatcher) dispatch(ctx context.Context) {
	ids, err := d.repo.ClaimUnenqueued(ctx, d.now().Add(-dispatchGrace), dispatchBatch)
	if err != nil {
		d.log.Warn("pending job claim failed", "error", err)
		return
	}

	for _, id := range ids {
		if err := d.enqueuer.EnqueueCatalogExtraction(ctx, id); err != nil {
			d.log.Warn("pending job enqueue failed", "job_id", id, "error", err)
			if clearErr := d.repo.ClearEnqueued(ctx, id); clearErr != nil {
				d.log.Error("failed to release pending job claim", "job_id", id, "error", clearErr)
			}
			continue
		}
		d.log.Info("pending job enqueued", "job_id", id)
	}
}
