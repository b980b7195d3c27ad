// Command catalog-extract sends a whole catalog PDF to the model in a single
// request and writes the extracted product list.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalog_backend/internal/extraction"
	"catalog_backend/platform/ai/gemini"
	"catalog_backend/platform/config"
	"catalog_backend/platform/logger"

	"github.com/spf13/cobra"
)

const previewRunes = 500

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	pdfPath := cfg.GetCatalogPDFPath()
	outputPath := cfg.GetCatalogOutputPath()

	cmd := &cobra.Command{
		Use:           "catalog-extract",
		Short:         "Extract products from a catalog PDF in a single model request",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd, cfg, log, pdfPath, outputPath)
		},
	}
	cmd.Flags().StringVar(&pdfPath, "pdf", pdfPath, "catalog PDF to process")
	cmd.Flags().StringVarP(&outputPath, "output", "o", outputPath, "where to write the product list")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("extraction cancelled")
		} else {
			log.Error("extraction failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func runExtract(cmd *cobra.Command, cfg *config.Config, log *logger.Logger, pdfPath, outputPath string) error {
	ctx := cmd.Context()

	if err := cfg.RequireGemini(); err != nil {
		return err
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return fmt.Errorf("catalog PDF not found: %w", err)
	}

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

	log.Info("starting single-pass extraction", "path", pdfPath, "model", cfg.GetGeminiModel())

	result, err := extraction.NewExtractor(model, log, nil).ExtractDocument(ctx, pdfPath)
	if err != nil {
		return err
	}

	if result.ParseErr != nil {
		rawPath, err := extraction.WriteRaw(outputPath, result.Cleaned)
		if err != nil {
			return fmt.Errorf("keep raw model answer: %w", err)
		}
		log.Warn("model answer kept as text", "path", rawPath)
	}

	if err := extraction.WriteProducts(outputPath, result.Products); err != nil {
		return err
	}

	log.Info("catalog extracted", "path", outputPath, "products", len(result.Products))
	fmt.Fprintln(cmd.OutOrStdout(), preview(result.Cleaned, previewRunes))
	return nil
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
