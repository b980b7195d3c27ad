package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"catalog_backend/platform/apperr"
)

const jobNotFoundMessage = "extraction job not found"

const jobColumns = `id, status, file_name, source_key, batch_size, page_count, batch_count,
	empty_batches, failed_batches, product_count, result_key, error_message,
	created_at, updated_at, enqueued_at, started_at, finished_at`

// Repo implements the extraction job repository on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new job repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanJob(row pgx.Row) (Job, error) {
	var job Job
	err := row.Scan(
		&job.ID, &job.Status, &job.FileName, &job.SourceKey, &job.BatchSize, &job.PageCount, &job.BatchCount,
		&job.EmptyBatches, &job.FailedBatches, &job.ProductCount, &job.ResultKey, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.EnqueuedAt, &job.StartedAt, &job.FinishedAt,
	)
	return job, err
}

// Create inserts a pending job.
func (r *Repo) Create(ctx context.Context, params CreateJobParams) (Job, error) {
	query := `
		INSERT INTO catalog_extraction_jobs (id, status, file_name, source_key, batch_size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + jobColumns

	job, err := scanJob(r.pool.QueryRow(ctx, query,
		params.ID, StatusPending, params.FileName, params.SourceKey, params.BatchSize,
	))
	if err != nil {
		return Job{}, fmt.Errorf("create extraction job: %w", err)
	}
	return job, nil
}

// GetByID retrieves a job.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM catalog_extraction_jobs WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.NotFound(jobNotFoundMessage)
		}
		return Job{}, fmt.Errorf("get extraction job: %w", err)
	}
	return job, nil
}

// MarkEnqueued records that the job task reached the queue.
func (r *Repo) MarkEnqueued(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE catalog_extraction_jobs SET enqueued_at = now(), updated_at = now() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark extraction job enqueued: %w", err)
	}
	return nil
}

// ClaimUnenqueued marks up to limit pending jobs created before olderThan
// that never reached the queue as enqueued, and returns their ids.
func (r *Repo) ClaimUnenqueued(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		UPDATE catalog_extraction_jobs
		SET enqueued_at = now(), updated_at = now()
		WHERE id IN (
			SELECT id FROM catalog_extraction_jobs
			WHERE status = $1 AND enqueued_at IS NULL AND created_at < $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`

	rows, err := r.pool.Query(ctx, query, StatusPending, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("claim unenqueued jobs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan claimed jobs: %w", err)
	}
	return ids, nil
}

// ClearEnqueued releases a claim so the job is picked up again later.
func (r *Repo) ClearEnqueued(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE catalog_extraction_jobs SET enqueued_at = NULL, updated_at = now() WHERE id = $1 AND status = $2`
	if _, err := r.pool.Exec(ctx, query, id, StatusPending); err != nil {
		return fmt.Errorf("clear extraction job claim: %w", err)
	}
	return nil
}

// MarkRunning moves a pending or interrupted job to running.
func (r *Repo) MarkRunning(ctx context.Context, id uuid.UUID) (Job, error) {
	query := `
		UPDATE catalog_extraction_jobs
		SET status = $2, started_at = now(), updated_at = now(), error_message = NULL
		WHERE id = $1 AND status IN ($3, $2)
		RETURNING ` + jobColumns

	job, err := scanJob(r.pool.QueryRow(ctx, query, id, StatusRunning, StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("extraction job is not pending").WithOp("jobs.MarkRunning")
		}
		return Job{}, fmt.Errorf("mark extraction job running: %w", err)
	}
	return job, nil
}

// MarkCompleted stores the run outcome.
func (r *Repo) MarkCompleted(ctx context.Context, params CompleteJobParams) error {
	query := `
		UPDATE catalog_extraction_jobs
		SET status = $2, page_count = $3, batch_count = $4, empty_batches = $5,
			failed_batches = $6, product_count = $7, result_key = $8,
			finished_at = now(), updated_at = now()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, params.ID, StatusCompleted, params.PageCount, params.BatchCount,
		params.EmptyBatches, params.FailedBatches, params.ProductCount, params.ResultKey)
	if err != nil {
		return fmt.Errorf("mark extraction job completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(jobNotFoundMessage)
	}
	return nil
}

// MarkFailed stores the failure message.
func (r *Repo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE catalog_extraction_jobs
		SET status = $2, error_message = $3, finished_at = now(), updated_at = now()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, StatusFailed, message)
	if err != nil {
		return fmt.Errorf("mark extraction job failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(jobNotFoundMessage)
	}
	return nil
}

// ReleaseInterrupted puts a running job back to pending and unclaimed so the
// dispatcher queues it again.
func (r *Repo) ReleaseInterrupted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE catalog_extraction_jobs
		SET status = $2, started_at = NULL, enqueued_at = NULL, updated_at = now()
		WHERE id = $1 AND status = $3`

	if _, err := r.pool.Exec(ctx, query, id, StatusPending, StatusRunning); err != nil {
		return fmt.Errorf("release interrupted extraction job: %w", err)
	}
	return nil
}

// DeleteFinishedBefore removes completed and failed jobs past their retention
// and returns the object keys they referenced.
func (r *Repo) DeleteFinishedBefore(ctx context.Context, completedBefore, failedBefore time.Time) ([]JobObjects, error) {
	query := `
		DELETE FROM catalog_extraction_jobs
		WHERE (status = $1 AND finished_at < $2)
		   OR (status = $3 AND finished_at < $4)
		RETURNING source_key, result_key`

	rows, err := r.pool.Query(ctx, query, StatusCompleted, completedBefore, StatusFailed, failedBefore)
	if err != nil {
		return nil, fmt.Errorf("delete finished extraction jobs: %w", err)
	}
	objects, err := pgx.CollectRows(rows, pgx.RowToStructByPos[JobObjects])
	if err != nil {
		return nil, fmt.Errorf("scan deleted extraction jobs: %w", err)
	}
	return objects, nil
}
