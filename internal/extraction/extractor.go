package extraction

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"catalog_backend/platform/ai/gemini"
	"catalog_backend/platform/logger"
	"catalog_backend/platform/metrics"
)

// MIMETypePDF is the content type of every uploaded catalog.
const MIMETypePDF = "application/pdf"

// DocumentModel is the subset of the model client used for extraction.
type DocumentModel interface {
	UploadFile(ctx context.Context, r io.Reader, mimeType, displayName string) (*gemini.File, error)
	Generate(ctx context.Context, prompt string, file *gemini.File) (string, error)
	DeleteFile(ctx context.Context, name string) error
}

// Result is the outcome of extracting one document or batch.
type Result struct {
	// Cleaned is the model answer with code fences removed.
	Cleaned string
	// Products is empty when the answer could not be parsed.
	Products []Product
	// ParseErr explains why Products is empty despite a model answer.
	ParseErr error
}

// Extractor runs the upload → ask → parse contract against one PDF file.
type Extractor struct {
	model   DocumentModel
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewExtractor creates an extractor. metrics may be nil.
func NewExtractor(model DocumentModel, log *logger.Logger, m *metrics.Metrics) *Extractor {
	return &Extractor{model: model, log: log, metrics: m}
}

// ExtractFile uploads the PDF at path, asks the model to list its products and
// parses the answer. Transport failures are returned as errors; a malformed
// answer is not an error, it yields zero products with ParseErr set.
func (e *Extractor) ExtractFile(ctx context.Context, path, displayName, prompt string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	started := time.Now()
	file, err := e.model.UploadFile(ctx, f, MIMETypePDF, displayName)
	if err != nil {
		return nil, err
	}
	e.log.Debug("file uploaded", "name", file.Name, "uri", file.URI, "display_name", displayName)

	defer func() {
		if err := e.model.DeleteFile(context.WithoutCancel(ctx), file.Name); err != nil {
			e.log.Warn("failed to delete uploaded file", "name", file.Name, "error", err)
		}
	}()

	answer, err := e.model.Generate(ctx, prompt, file)
	e.metrics.ObserveUpstream("gemini", time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}

	result := &Result{Cleaned: CleanResponse(answer)}
	products, parseErr := ParseProducts(result.Cleaned)
	if parseErr != nil {
		result.ParseErr = parseErr
		result.Products = []Product{}
		return result, nil
	}

	result.Products = products
	return result, nil
}

// ExtractDocument processes a whole catalog in a single request.
func (e *Extractor) ExtractDocument(ctx context.Context, path string) (*Result, error) {
	result, err := e.ExtractFile(ctx, path, "Catalogo Fornecedor", DocumentPrompt)
	if err != nil {
		e.metrics.IncBatch(metrics.OutcomeError, 0)
		return nil, err
	}

	switch {
	case result.ParseErr != nil:
		e.metrics.IncBatch(metrics.OutcomeInvalid, 0)
		e.log.Warn("model answer could not be parsed", "error", result.ParseErr)
	case len(result.Products) == 0:
		e.metrics.IncBatch(metrics.OutcomeEmpty, 0)
	default:
		e.metrics.IncBatch(metrics.OutcomeOK, len(result.Products))
	}
	return result, nil
}
