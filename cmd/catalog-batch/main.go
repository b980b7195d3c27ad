// Command catalog-batch splits a large catalog PDF into page batches, extracts
// each batch and writes the concatenated Master Product List.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalog_backend/internal/catalogpdf"
	"catalog_backend/internal/extraction"
	"catalog_backend/platform/ai/gemini"
	"catalog_backend/platform/config"
	"catalog_backend/platform/logger"

	"github.com/spf13/cobra"
)

type batchFlags struct {
	pdfPath     string
	outputPath  string
	tempDir     string
	batchSize   int
	concurrency int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	flags := batchFlags{
		pdfPath:     cfg.GetCatalogPDFPath(),
		outputPath:  cfg.GetCatalogBatchOutputPath(),
		tempDir:     cfg.GetCatalogTempDir(),
		batchSize:   cfg.GetCatalogBatchSize(),
		concurrency: cfg.GetCatalogBatchConcurrency(),
	}

	cmd := &cobra.Command{
		Use:           "catalog-batch",
		Short:         "Extract products from a large catalog PDF in page batches",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd.Context(), cfg, log, flags)
		},
	}
	cmd.Flags().StringVar(&flags.pdfPath, "pdf", flags.pdfPath, "catalog PDF to process")
	cmd.Flags().StringVarP(&flags.outputPath, "output", "o", flags.outputPath, "where to write the master product list")
	cmd.Flags().StringVar(&flags.tempDir, "temp-dir", flags.tempDir, "directory for the per-batch PDF files")
	cmd.Flags().IntVarP(&flags.batchSize, "batch-size", "b", flags.batchSize, "pages per model request")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "c", flags.concurrency, "batches processed at the same time")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("batch extraction cancelled; nothing written")
		} else {
			log.Error("batch extraction failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func runBatch(ctx context.Context, cfg *config.Config, log *logger.Logger, flags batchFlags) error {
	if err := cfg.RequireGemini(); err != nil {
		return err
	}
	if flags.batchSize < 1 {
		return fmt.Errorf("batch size must be a positive integer")
	}

	doc, err := catalogpdf.Open(flags.pdfPath)
	if err != nil {
		return err
	}
	log.Info("catalog loaded", "path", doc.Path(), "pages", doc.PageCount())

	model, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:       cfg.GetGoogleAPIKey(),
		Model:        cfg.GetGeminiModel(),
		PollInterval: cfg.GetGeminiFilePollInterval(),
		ReadyTimeout: cfg.GetGeminiFileReadyTimeout(),
		Logger:       log,
	})
	if err != nil {
		return err
	}

	runner := extraction.NewBatchRunner(
		extraction.NewExtractor(model, log, nil),
		extraction.BatchOptions{
			BatchSize:   flags.batchSize,
			Concurrency: flags.concurrency,
			TempDir:     flags.tempDir,
		},
		log,
		nil,
	)

	result, err := runner.Run(ctx, doc)
	if err != nil {
		return err
	}

	if err := extraction.WriteProducts(flags.outputPath, result.Products); err != nil {
		return err
	}

	log.Info("master product list saved",
		"path", flags.outputPath,
		"products", len(result.Products),
		"pages", result.Pages,
		"batches", result.Batches,
		"empty_batches", result.EmptyBatches,
		"failed_batches", result.FailedBatches,
	)
	return nil
}
