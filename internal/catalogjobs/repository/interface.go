package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one asynchronous catalog extraction.
type Job struct {
	ID            uuid.UUID
	Status        string
	FileName      string
	SourceKey     string
	BatchSize     int
	PageCount     int
	BatchCount    int
	EmptyBatches  int
	FailedBatches int
	ProductCount  int
	ResultKey     *string
	ErrorMessage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	EnqueuedAt    *time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// Finished reports whether the job reached a terminal state.
func (j Job) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// CreateJobParams holds the fields of a new pending job.
type CreateJobParams struct {
	ID        uuid.UUID
	FileName  string
	SourceKey string
	BatchSize int
}

// CompleteJobParams holds the outcome of a successful run.
type CompleteJobParams struct {
	ID            uuid.UUID
	PageCount     int
	BatchCount    int
	EmptyBatches  int
	FailedBatches int
	ProductCount  int
	ResultKey     string
}

// JobObjects names the stored objects of a deleted job.
type JobObjects struct {
	SourceKey string
	ResultKey *string
}

// Repository is the persistence contract for extraction jobs.
type Repository interface {
	Create(ctx context.Context, params CreateJobParams) (Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (Job, error)
	MarkEnqueued(ctx context.Context, id uuid.UUID) error
	ClaimUnenqueued(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error)
	ClearEnqueued(ctx context.Context, id uuid.UUID) error
	MarkRunning(ctx context.Context, id uuid.UUID) (Job, error)
	MarkCompleted(ctx context.Context, params CompleteJobParams) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	ReleaseInterrupted(ctx context.Context, id uuid.UUID) error
	DeleteFinishedBefore(ctx context.Context, completedBefore, failedBefore time.Time) ([]JobObjects, error)
}
