package scheduler

import (
	"context"
	"time"

	"catalog_backend/internal/catalogjobs/repository"
	"catalog_backend/platform/logger"
)

const (
	defaultJobCleanupInterval    = time.Hour
	defaultCompletedJobRetention = 14 * 24 * time.Hour
	defaultFailedJobRetention    = 30 * 24 * time.Hour
)

// JobPruner deletes finished jobs and reports the objects they referenced.
type JobPruner interface {
	DeleteFinishedBefore(ctx context.Context, completedBefore, failedBefore time.Time) ([]repository.JobObjects, error)
}

// ObjectRemover deletes stored objects.
type ObjectRemover interface {
	DeleteObject(ctx context.Context, bucket, fileKey string) error
}

// JobBuckets names where uploads and results of a job are stored.
type JobBuckets struct {
	Catalogs string
	Results  string
}

// JobCleanup periodically removes old finished extraction jobs and their
// stored catalog and result.
type JobCleanup struct {
	repo               JobPruner
	objects            ObjectRemover
	buckets            JobBuckets
	log                *logger.Logger
	interval           time.Duration
	completedRetention time.Duration
	failedRetention    time.Duration
	now                func() time.Time
}

func NewJobCleanup(repo JobPruner, objects ObjectRemover, buckets JobBuckets, log *logger.Logger, interval, completedRetention, failedRetention time.Duration) *JobCleanup {
	if interval <= 0 {
		interval = defaultJobCleanupInterval
	}
	if completedRetention <= 0 {
		completedRetention = defaultCompletedJobRetention
	}
	if failedRetention <= 0 {
		failedRetention = defaultFailedJobRetention
	}

	return &JobCleanup{
		repo:               repo,
		objects:            objects,
		buckets:            buckets,
		log:                log,
		interval:           interval,
		completedRetention: completedRetention,
		failedRetention:    failedRetention,
		now:                time.Now,
	}
}

func (c *JobCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *JobCleanup) cleanup(ctx context.Context) {
	now := c.now()
	completedBefore := now.Add(-c.completedRetention)
	failedBefore := now.Add(-c.failedRetention)

	deleted, err := c.repo.DeleteFinishedBefore(ctx, completedBefore, failedBefore)
	if err != nil {
		c.log.Warn("extraction job cleanup failed", "error", err)
		return
	}
	if len(deleted) == 0 {
		return
	}

	removed := 0
	for _, job := range deleted {
		removed += c.removeObject(ctx, c.buckets.Catalogs, job.SourceKey)
		if job.ResultKey != nil {
			removed += c.removeObject(ctx, c.buckets.Results, *job.ResultKey)
		}
	}

	c.log.Info("extraction job cleanup deleted finished jobs", "deleted", len(deleted), "objects_removed", removed)
}

func (c *JobCleanup) removeObject(ctx context.Context, bucket, key string) int {
	if c.objects == nil || key == "" {
		return 0
	}
	if err := c.objects.DeleteObject(ctx, bucket, key); err != nil {
		c.log.Warn("failed to remove extraction job object", "bucket", bucket, "key", key, "error", err)
		return 0
	}
	return 1
}
