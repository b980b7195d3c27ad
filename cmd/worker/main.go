package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"catalog_backend/internal/adapters/storage"
	jobsrepo "catalog_backend/internal/catalogjobs/repository"
	jobsservice "catalog_backend/internal/catalogjobs/service"
	"catalog_backend/internal/extraction"
	"catalog_backend/internal/scheduler"
	"catalog_backend/platform/ai/gemini"
	"catalog_backend/platform/config"
	"catalog_backend/platform/db"
	"catalog_backend/platform/logger"
	"catalog_backend/platform/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	if !cfg.IsCatalogJobsEnabled() {
		log.Error("DATABASE_URL, REDIS_URL and MINIO_ENDPOINT are required by the extraction worker")
		os.Exit(1)
	}
	if err := cfg.RequireGemini(); err != nil {
		log.Error("generative model not configured", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, log)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	for _, bucket := range []string{cfg.GetMinioBucketCatalogs(), cfg.GetMinioBucketResults()} {
		if err := withRetry(ctx, log, "ensure "+bucket+" bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
	}

	model, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:       cfg.GetGoogleAPIKey(),
		Model:        cfg.GetGeminiModel(),
		PollInterval: cfg.GetGeminiFilePollInterval(),
		ReadyTimeout: cfg.GetGeminiFileReadyTimeout(),
		Logger:       log,
	})
	if err != nil {
		log.Error("failed to initialize gemini client", "error", err)
		panic("failed to initialize gemini client: " + err.Error())
	}

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize job queue client", "error", err)
		panic("failed to initialize job queue client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	runner := extraction.NewBatchRunner(
		extraction.NewExtractor(model, log, m),
		extraction.BatchOptions{
			BatchSize:   cfg.GetCatalogBatchSize(),
			Concurrency: cfg.GetCatalogBatchConcurrency(),
			TempDir:     cfg.GetCatalogTempDir(),
		},
		log,
		m,
	)

	repo := jobsrepo.New(pool)
	svc := jobsservice.New(
		repo,
		storageSvc,
		queue,
		runner,
		jobsservice.Buckets{Catalogs: cfg.GetMinioBucketCatalogs(), Results: cfg.GetMinioBucketResults()},
		cfg.GetCatalogBatchSize(),
		cfg.GetCatalogTempDir(),
		log,
		m,
	)

	worker, err := scheduler.NewWorker(cfg, svc, log)
	if err != nil {
		log.Error("failed to initialize extraction worker", "error", err)
		panic("failed to initialize extraction worker: " + err.Error())
	}

	dispatcher := scheduler.NewPendingJobDispatcher(repo, queue, log, cfg.GetJobDispatchInterval())
	cleanup := scheduler.NewJobCleanup(
		repo,
		storageSvc,
		scheduler.JobBuckets{Catalogs: cfg.GetMinioBucketCatalogs(), Results: cfg.GetMinioBucketResults()},
		log,
		cfg.GetJobCleanupInterval(),
		cfg.GetJobCompletedRetention(),
		cfg.GetJobFailedRetention(),
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		serveMetrics(ctx, cfg.GetWorkerMetricsAddr(), m, log)
	}()

	log.Info("extraction worker running", "queue", cfg.GetAsynqQueueName(), "concurrency", cfg.GetAsynqConcurrency())
	worker.Run(ctx)
	stop()
	wg.Wait()
}

// serveMetrics exposes the worker's Prometheus registry until ctx ends. An
// empty addr disables it.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log *logger.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("worker metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("worker metrics server stopped", "error", err)
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
