package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"catalog_backend/internal/adapters/storage"
	"catalog_backend/internal/catalogjobs/repository"
	"catalog_backend/internal/catalogjobs/transport"
	"catalog_backend/internal/extraction"
	"catalog_backend/platform/apperr"
	"catalog_backend/platform/logger"
	"catalog_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	sourceFileName = "catalogo.pdf"
	resultFileName = "catalogo_completo.json"
	resultMIMEType = "application/json"
	maxBatchSize   = 50
)

// ErrInterrupted wraps a Process error caused by cancellation. The job is back
// to pending and will be queued again.
var ErrInterrupted = errors.New("extraction job interrupted")

// ObjectStore is the storage subset used by extraction jobs.
type ObjectStore interface {
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error)
	DeleteObject(ctx context.Context, bucket, fileKey string) error
	ValidateContentType(contentType string) error
	ValidateFileSize(sizeBytes int64) error
}

// Enqueuer hands a job to the background worker.
type Enqueuer interface {
	EnqueueCatalogExtraction(ctx context.Context, jobID uuid.UUID) error
}

// CatalogExtractor runs the batched extraction over a local PDF.
type CatalogExtractor interface {
	RunFile(ctx context.Context, path string, override extraction.BatchOptions) (*extraction.RunResult, error)
}

// Buckets names the storage buckets for uploads and results.
type Buckets struct {
	Catalogs string
	Results  string
}

// SubmitInput is an uploaded catalog.
type SubmitInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
	BatchSize   int
}

// Service manages asynchronous extraction jobs.
type Service struct {
	repo      repository.Repository
	store     ObjectStore
	enqueuer  Enqueuer
	extractor CatalogExtractor
	buckets   Buckets
	tempRoot  string
	batchSize int
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// New creates the job service. enqueuer may be nil on the worker side and
// extractor may be nil on the API side.
func New(repo repository.Repository, store ObjectStore, enqueuer Enqueuer, extractor CatalogExtractor, buckets Buckets, defaultBatchSize int, tempRoot string, log *logger.Logger, m *metrics.Metrics) *Service {
	if defaultBatchSize < 1 {
		defaultBatchSize = 3
	}
	return &Service{
		repo:      repo,
		store:     store,
		enqueuer:  enqueuer,
		extractor: extractor,
		buckets:   buckets,
		tempRoot:  tempRoot,
		batchSize: defaultBatchSize,
		log:       log,
		metrics:   m,
	}
}

// Submit stores the uploaded PDF, records a pending job and enqueues it.
// A failed enqueue is not fatal: the job stays unclaimed and the worker's
// dispatcher picks it up.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*transport.JobResponse, error) {
	if err := s.store.ValidateContentType(in.ContentType); err != nil {
		return nil, apperr.Validation(err.Error()).WithOp("jobs.Submit")
	}
	if err := s.store.ValidateFileSize(in.Size); err != nil {
		return nil, apperr.Validation(err.Error()).WithOp("jobs.Submit")
	}
	if err := checkPDFHeader(in.Body); err != nil {
		return nil, err
	}

	batchSize := in.BatchSize
	if batchSize == 0 {
		batchSize = s.batchSize
	}
	if batchSize < 1 || batchSize > maxBatchSize {
		return nil, apperr.Validation(fmt.Sprintf("tamanho_lote must be between 1 and %d", maxBatchSize)).WithOp("jobs.Submit")
	}

	id := uuid.New()
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		fileName = sourceFileName
	}

	key, err := s.store.UploadFile(ctx, s.buckets.Catalogs, id.String(), fileName, extraction.MIMETypePDF, in.Body, in.Size)
	if err != nil {
		return nil, fmt.Errorf("store catalog: %w", err)
	}

	job, err := s.repo.Create(ctx, repository.CreateJobParams{
		ID:        id,
		FileName:  fileName,
		SourceKey: key,
		BatchSize: batchSize,
	})
	if err != nil {
		if delErr := s.store.DeleteObject(context.WithoutCancel(ctx), s.buckets.Catalogs, key); delErr != nil {
			s.log.WithContext(ctx).Warn("failed to remove orphaned upload", "key", key, "error", delErr)
		}
		return nil, err
	}

	log := s.log.WithContext(ctx).With("job_id", id.String())
	if err := s.enqueuer.EnqueueCatalogExtraction(ctx, id); err != nil {
		log.Warn("enqueue failed; job left for dispatcher", "error", err)
	} else if err := s.repo.MarkEnqueued(ctx, id); err != nil {
		log.Warn("failed to record enqueue", "error", err)
	}
	log.Info("extraction job submitted", "file", fileName, "batch_size", batchSize, "size", in.Size)

	return s.toResponse(ctx, job), nil
}

// Get returns the current state of a job.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*transport.JobResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, job), nil
}

// OpenResult streams the Master Product List of a completed job.
// The caller closes the reader.
func (s *Service) OpenResult(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != repository.StatusCompleted || job.ResultKey == nil {
		return nil, apperr.Conflict(fmt.Sprintf("extraction job is %s", job.Status)).WithOp("jobs.OpenResult")
	}
	return s.store.DownloadFile(ctx, s.buckets.Results, *job.ResultKey)
}

// Process runs one job end to end. It is called by the worker.
func (s *Service) Process(ctx context.Context, id uuid.UUID) (err error) {
	ctx = context.WithValue(ctx, logger.JobIDKey, id.String())
	log := s.log.WithContext(ctx)

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Finished() {
		log.Info("extraction job already finished", "status", current.Status)
		return nil
	}

	job, err := s.repo.MarkRunning(ctx, id)
	if err != nil {
		return err
	}
	log.Info("extraction job started", "file", job.FileName, "batch_size", job.BatchSize)

	defer func() {
		if err == nil {
			s.metrics.IncJob(repository.StatusCompleted)
			return
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			if relErr := s.repo.ReleaseInterrupted(context.WithoutCancel(ctx), id); relErr != nil {
				log.Error("failed to release interrupted extraction job", "error", relErr)
			}
			log.Warn("extraction job interrupted; released for another run", "error", err)
			err = fmt.Errorf("%w: %w", ErrInterrupted, err)
			return
		}
		s.metrics.IncJob(repository.StatusFailed)
		if markErr := s.repo.MarkFailed(context.WithoutCancel(ctx), id, err.Error()); markErr != nil {
			log.Error("failed to mark extraction job failed", "error", markErr)
		}
		log.Error("extraction job failed", "error", err)
	}()

	workDir, err := os.MkdirTemp(s.tempRoot, "catalog-job-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warn("failed to remove work dir", "path", workDir, "error", rmErr)
		}
	}()

	pdfPath := filepath.Join(workDir, sourceFileName)
	if err := s.download(ctx, job.SourceKey, pdfPath); err != nil {
		return err
	}

	result, err := s.extractor.RunFile(ctx, pdfPath, extraction.BatchOptions{
		BatchSize: job.BatchSize,
		TempDir:   workDir,
	})
	if err != nil {
		return fmt.Errorf("extract catalog: %w", err)
	}

	data, err := extraction.MarshalProducts(result.Products)
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}
	resultKey, err := s.store.UploadFile(ctx, s.buckets.Results, id.String(), resultFileName, resultMIMEType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	if err := s.repo.MarkCompleted(ctx, repository.CompleteJobParams{
		ID:            id,
		PageCount:     result.Pages,
		BatchCount:    result.Batches,
		EmptyBatches:  result.EmptyBatches,
		FailedBatches: result.FailedBatches,
		ProductCount:  len(result.Products),
		ResultKey:     resultKey,
	}); err != nil {
		return err
	}

	log.Info("extraction job completed", "products", len(result.Products), "batches", result.Batches, "result_key", resultKey)
	return nil
}

func (s *Service) download(ctx context.Context, key, dest string) error {
	src, err := s.store.DownloadFile(ctx, s.buckets.Catalogs, key)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("download catalog: %w", err)
	}
	return out.Close()
}

func (s *Service) toResponse(ctx context.Context, job repository.Job) *transport.JobResponse {
	resp := &transport.JobResponse{
		ID:            job.ID.String(),
		Status:        job.Status,
		Arquivo:       job.FileName,
		TamanhoLote:   job.BatchSize,
		Paginas:       job.PageCount,
		Lotes:         job.BatchCount,
		LotesVazios:   job.EmptyBatches,
		LotesComFalha: job.FailedBatches,
		TotalProdutos: job.ProductCount,
		CriadoEm:      job.CreatedAt,
		IniciadoEm:    job.StartedAt,
		FinalizadoEm:  job.FinishedAt,
	}
	if job.ErrorMessage != nil {
		resp.Erro = *job.ErrorMessage
	}
	if job.Status == repository.StatusCompleted && job.ResultKey != nil {
		presigned, err := s.store.GenerateDownloadURL(ctx, s.buckets.Results, *job.ResultKey)
		if err != nil {
			s.log.WithContext(ctx).Warn("failed to presign result", "job_id", job.ID, "error", err)
		} else {
			resp.ResultadoURL = presigned.URL
		}
	}
	return resp
}

func checkPDFHeader(body io.ReadSeeker) error {
	head := make([]byte, 1024)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read upload: %w", err)
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload: %w", err)
	}
	if !storage.LooksLikePDF(head[:n]) {
		return apperr.Validation("arquivo is not a PDF").WithOp("jobs.Submit")
	}
	return nil
}
