package scheduler

import (
	"context"
	"errors"
	"fmt"

	"catalog_backend/platform/config"
	"catalog_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// JobProcessor runs one extraction job.
type JobProcessor interface {
	Process(ctx context.Context, jobID uuid.UUID) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor JobProcessor
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor JobProcessor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		processor: processor,
		log:       log,
	}

	mux.HandleFunc(TaskCatalogExtract, w.handleCatalogExtract)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("extraction worker failed to start", "error", err)
		return
	}
	w.log.Info("extraction worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("extraction worker stopped")
}

func (w *Worker) handleCatalogExtract(ctx context.Context, task *asynq.Task) error {
	jobID, err := ParseCatalogExtractPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := w.processor.Process(ctx, jobID); err != nil {
		// A cancelled run leaves the job pending and unclaimed. Finishing the
		// task frees its id so the dispatcher can queue the job again.
		if errors.Is(ctx.Err(), context.Canceled) {
			w.log.Warn("extraction task interrupted; job left for the dispatcher", "job_id", jobID, "error", err)
			return nil
		}
		return err
	}
	return nil
}
