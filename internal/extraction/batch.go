package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"catalog_backend/internal/catalogpdf"
	"catalog_backend/platform/logger"
	"catalog_backend/platform/metrics"

	"golang.org/x/sync/errgroup"
)

// PageSource is a paginated document that can materialise page ranges.
type PageSource interface {
	PageCount() int
	WriteBatch(b catalogpdf.Batch, outPath string) error
}

// BatchOptions configures a BatchRunner.
type BatchOptions struct {
	// BatchSize is the number of pages per model request.
	BatchSize int
	// Concurrency bounds how many batches are in flight. 1 keeps processing
	// strictly sequential.
	Concurrency int
	// TempDir receives the per-batch PDF files.
	TempDir string
}

// RunResult is the Master Product List plus bookkeeping.
type RunResult struct {
	Products      []Product
	Pages         int
	Batches       int
	EmptyBatches  int
	FailedBatches int
}

// BatchRunner splits a catalog into page batches and extracts each one.
type BatchRunner struct {
	extractor *Extractor
	opts      BatchOptions
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewBatchRunner creates a runner. Zero options fall back to defaults.
func NewBatchRunner(extractor *Extractor, opts BatchOptions, log *logger.Logger, m *metrics.Metrics) *BatchRunner {
	if opts.BatchSize < 1 {
		opts.BatchSize = catalogpdf.DefaultBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &BatchRunner{extractor: extractor, opts: opts, log: log, metrics: m}
}

type batchOutcome struct {
	products []Product
	err      error
}

// Run processes every batch of src and concatenates the records in batch
// order. A batch that fails or returns nothing contributes zero records; only
// cancellation of ctx aborts the run.
func (r *BatchRunner) Run(ctx context.Context, src PageSource) (*RunResult, error) {
	pages := src.PageCount()
	batches, err := catalogpdf.PlanBatches(pages, r.opts.BatchSize)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.opts.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	r.log.Info("catalog split into batches", "pages", pages, "batch_size", r.opts.BatchSize, "batches", len(batches), "concurrency", r.opts.Concurrency)

	outcomes := make([]batchOutcome, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, b := range batches {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			products, err := r.processBatch(gctx, src, b)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			outcomes[i] = batchOutcome{products: products, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &RunResult{Pages: pages, Batches: len(batches), Products: []Product{}}
	for _, outcome := range outcomes {
		switch {
		case outcome.err != nil:
			result.FailedBatches++
		case len(outcome.products) == 0:
			result.EmptyBatches++
		}
		result.Products = append(result.Products, outcome.products...)
	}

	r.log.Info("catalog extraction finished",
		"products", len(result.Products),
		"batches", result.Batches,
		"empty_batches", result.EmptyBatches,
		"failed_batches", result.FailedBatches,
	)
	return result, nil
}

// RunFile opens the PDF at path and runs it. Non-zero fields of override
// replace the runner's options for this run only.
func (r *BatchRunner) RunFile(ctx context.Context, path string, override BatchOptions) (*RunResult, error) {
	doc, err := catalogpdf.Open(path)
	if err != nil {
		return nil, err
	}
	return r.withOptions(override).Run(ctx, doc)
}

func (r *BatchRunner) withOptions(override BatchOptions) *BatchRunner {
	opts := r.opts
	if override.BatchSize > 0 {
		opts.BatchSize = override.BatchSize
	}
	if override.Concurrency > 0 {
		opts.Concurrency = override.Concurrency
	}
	if override.TempDir != "" {
		opts.TempDir = override.TempDir
	}
	return &BatchRunner{extractor: r.extractor, opts: opts, log: r.log, metrics: r.metrics}
}

// processBatch owns the batch temp file: it is removed on every return path.
func (r *BatchRunner) processBatch(ctx context.Context, src PageSource, b catalogpdf.Batch) (products []Product, err error) {
	tempPath := filepath.Join(r.opts.TempDir, b.TempFileName())
	defer r.removeTemp(tempPath)

	defer func() {
		r.log.BatchProcessed(b.Index, b.FirstPage, b.LastPage, len(products), err)
		switch {
		case err != nil:
			r.metrics.IncBatch(metrics.OutcomeError, 0)
		case len(products) == 0:
			r.metrics.IncBatch(metrics.OutcomeEmpty, 0)
		default:
			r.metrics.IncBatch(metrics.OutcomeOK, len(products))
		}
	}()

	if err := src.WriteBatch(b, tempPath); err != nil {
		return nil, err
	}

	result, err := r.extractor.ExtractFile(ctx, tempPath, fmt.Sprintf("Lote %d", b.Index), BatchPrompt)
	if err != nil {
		return nil, fmt.Errorf("batch %d: %w", b.Index, err)
	}
	if result.ParseErr != nil {
		r.log.Warn("batch answer could not be parsed", "batch", b.Index, "error", result.ParseErr)
	}
	return result.Products, nil
}

func (r *BatchRunner) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.Warn("failed to remove batch file", "path", path, "error", err)
	}
}
