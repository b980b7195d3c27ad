package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog_backend/internal/adapters/storage"
	"catalog_backend/internal/catalogjobs"
	jobsrepo "catalog_backend/internal/catalogjobs/repository"
	jobsservice "catalog_backend/internal/catalogjobs/service"
	apphttp "catalog_backend/internal/http"
	"catalog_backend/internal/http/router"
	"catalog_backend/internal/marketplace"
	"catalog_backend/internal/pricing"
	pricingservice "catalog_backend/internal/pricing/service"
	"catalog_backend/internal/scheduler"
	"catalog_backend/platform/ai/gemini"
	"catalog_backend/platform/config"
	"catalog_backend/platform/db"
	"catalog_backend/platform/httpkit"
	"catalog_backend/platform/logger"
	"catalog_backend/platform/metrics"
	"catalog_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

// unavailableRewriter answers every rewrite with the reason the model client
// could not be built, so the endpoint reports it as a 500.
type unavailableRewriter struct {
	err error
}

func (r unavailableRewriter) Rewrite(context.Context, string) (string, error) {
	return "", r.err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	m := metrics.New()
	val := validator.New()

	rewriter := newRewriter(ctx, cfg, log)
	searcher := marketplace.New(marketplace.Options{
		BaseURL: cfg.GetMLAPIBaseURL(),
		SiteID:  cfg.GetMLSiteID(),
		Timeout: cfg.GetUpstreamTimeout(),
	}, log, m)
	if cfg.GetMLAccessToken() == "" {
		log.Warn("ML_ACCESS_TOKEN not configured; /analisar-produto will answer 500")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	pricingSvc := pricingservice.New(rewriter, searcher, pricingservice.Options{
		AccessToken: cfg.GetMLAccessToken(),
		SearchLimit: cfg.GetMLSearchLimit(),
	}, log, m)
	limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.GetRateLimitRPS()), cfg.GetRateLimitBurst(), log)
	modules := []apphttp.Module{pricing.NewModule(pricingSvc, limiter)}

	var health apphttp.HealthChecker
	if cfg.IsCatalogJobsEnabled() {
		jobsModule, pool, closeJobs := initCatalogJobs(ctx, cfg, log, val, m)
		defer closeJobs()
		defer pool.Close()
		modules = append(modules, jobsModule)
		health = db.NewPoolAdapter(pool)
	} else {
		log.Warn("DATABASE_URL, REDIS_URL or MINIO_ENDPOINT not configured; catalog extraction jobs disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  health,
		Metrics: m.Handler(),
		Modules: modules,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newRewriter(ctx context.Context, cfg *config.Config, log *logger.Logger) pricingservice.QueryRewriter {
	if err := cfg.RequireGemini(); err != nil {
		log.Warn("generative model not configured; product analysis will fail", "error", err)
		return unavailableRewriter{err: err}
	}
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:       cfg.GetGoogleAPIKey(),
		Model:        cfg.GetGeminiModel(),
		PollInterval: cfg.GetGeminiFilePollInterval(),
		ReadyTimeout: cfg.GetGeminiFileReadyTimeout(),
		Logger:       log,
	})
	if err != nil {
		log.Error("failed to initialize gemini client", "error", err)
		return unavailableRewriter{err: err}
	}
	rewriter := pricingservice.QueryRewriter(pricingservice.NewModelRewriter(client))
	if size := cfg.GetRewriteCacheSize(); size > 0 {
		cached, err := pricingservice.NewCachedRewriter(rewriter, size)
		if err != nil {
			log.Error("failed to initialize rewrite cache", "error", err)
			return rewriter
		}
		return cached
	}
	return rewriter
}

// initCatalogJobs wires the extraction job endpoints. Jobs are processed by
// cmd/worker; the API only stores, enqueues and reports them.
func initCatalogJobs(ctx context.Context, cfg *config.Config, log *logger.Logger, val *validator.Validator, m *metrics.Metrics) (*catalogjobs.Module, *pgxpool.Pool, func()) {
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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, log)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	ensureBucket(ctx, log, storageSvc, "catalogs", cfg.GetMinioBucketCatalogs())
	ensureBucket(ctx, log, storageSvc, "catalog-results", cfg.GetMinioBucketResults())
	log.Info(
		"storage service initialized",
		"catalogsBucket", cfg.GetMinioBucketCatalogs(),
		"resultsBucket", cfg.GetMinioBucketResults(),
	)

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize job queue client", "error", err)
		panic("failed to initialize job queue client: " + err.Error())
	}

	svc := jobsservice.New(
		jobsrepo.New(pool),
		storageSvc,
		queue,
		nil,
		jobsservice.Buckets{Catalogs: cfg.GetMinioBucketCatalogs(), Results: cfg.GetMinioBucketResults()},
		cfg.GetCatalogBatchSize(),
		cfg.GetCatalogTempDir(),
		log,
		m,
	)

	return catalogjobs.NewModule(svc, val), pool, func() {
		_ = queue.Close()
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
