package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"catalog_backend/internal/catalogpdf"
	"catalog_backend/platform/ai/gemini"
	"catalog_backend/platform/logger"
)

// fakePages writes the batch range as the file body so the fake model can
// tell batches apart.
type fakePages struct {
	pages    int
	failWith map[int]error
}

func (f *fakePages) PageCount() int { return f.pages }

func (f *fakePages) WriteBatch(b catalogpdf.Batch, outPath string) error {
	if err := f.failWith[b.Index]; err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte(fmt.Sprintf("%d-%d", b.FirstPage, b.LastPage)), 0o644)
}

// fakeModel answers per uploaded body. Bodies missing from answers get a
// product named after the page range.
type fakeModel struct {
	mu       sync.Mutex
	answers  map[string]string
	errors   map[string]error
	delays   map[string]time.Duration
	uploaded []string
	deleted  []string
}

func (m *fakeModel) UploadFile(_ context.Context, r io.Reader, mimeType, displayName string) (*gemini.File, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if mimeType != MIMETypePDF {
		return nil, fmt.Errorf("unexpected mime type %s", mimeType)
	}
	m.mu.Lock()
	m.uploaded = append(m.uploaded, displayName)
	m.mu.Unlock()
	return &gemini.File{Name: string(body), URI: "uri://" + string(body), MIMEType: mimeType}, nil
}

func (m *fakeModel) Generate(ctx context.Context, _ string, file *gemini.File) (string, error) {
	if d := m.delays[file.Name]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := m.errors[file.Name]; err != nil {
		return "", err
	}
	if answer, ok := m.answers[file.Name]; ok {
		return answer, nil
	}
	return fmt.Sprintf("```json\n[{\"nome do produto\": %q}]\n```", file.Name), nil
}

func (m *fakeModel) DeleteFile(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, name)
	return nil
}

func newTestRunner(model DocumentModel, size, concurrency int, dir string) *BatchRunner {
	log := logger.Discard()
	return NewBatchRunner(NewExtractor(model, log, nil), BatchOptions{
		BatchSize:   size,
		Concurrency: concurrency,
		TempDir:     dir,
	}, log, nil)
}

func productNames(products []Product) []string {
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name()
	}
	return names
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "temp_lote_*.pdf"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no temp files left, found %v", matches)
	}
}

func TestBatchRunner_ConcatenatesInBatchOrder(t *testing.T) {
	dir := t.TempDir()
	model := &fakeModel{}

	result, err := newTestRunner(model, 3, 1, dir).Run(context.Background(), &fakePages{pages: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := strings.Join(productNames(result.Products), ",")
	if got != "1-3,4-6,7-8" {
		t.Fatalf("unexpected order %s", got)
	}
	if result.Batches != 3 || result.Pages != 8 {
		t.Fatalf("expected 3 batches over 8 pages, got %d over %d", result.Batches, result.Pages)
	}
	if len(model.deleted) != 3 {
		t.Fatalf("expected 3 remote deletions, got %d", len(model.deleted))
	}
	if model.uploaded[0] != "Lote 1" {
		t.Fatalf("unexpected display name %q", model.uploaded[0])
	}
	assertNoTempFiles(t, dir)
}

func TestBatchRunner_ParallelKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	model := &fakeModel{
		delays: map[string]time.Duration{
			"1-2": 40 * time.Millisecond,
			"3-4": 20 * time.Millisecond,
		},
	}

	result, err := newTestRunner(model, 2, 4, dir).Run(context.Background(), &fakePages{pages: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := strings.Join(productNames(result.Products), ",")
	if got != "1-2,3-4,5-6,7-7" {
		t.Fatalf("unexpected order %s", got)
	}
	assertNoTempFiles(t, dir)
}

func TestBatchRunner_BadBatchesContributeNothing(t *testing.T) {
	dir := t.TempDir()
	model := &fakeModel{
		answers: map[string]string{
			"4-6": "Não há produtos nestas páginas.",
			"7-9": "[{\"nome do produto\": \"quebrado\",}]",
		},
		errors: map[string]error{
			"10-12": errors.New("quota exceeded"),
		},
	}
	pages := &fakePages{pages: 15, failWith: map[int]error{5: errors.New("pdf write failed")}}

	result, err := newTestRunner(model, 3, 1, dir).Run(context.Background(), pages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := strings.Join(productNames(result.Products), ",")
	if got != "1-3" {
		t.Fatalf("expected only batch 1 records, got %s", got)
	}
	if result.FailedBatches != 2 {
		t.Fatalf("expected 2 failed batches, got %d", result.FailedBatches)
	}
	if result.EmptyBatches != 2 {
		t.Fatalf("expected 2 empty batches, got %d", result.EmptyBatches)
	}
	assertNoTempFiles(t, dir)
}

func TestBatchRunner_CancelledRunStillCleansUp(t *testing.T) {
	dir := t.TempDir()
	model := &fakeModel{delays: map[string]time.Duration{"1-1": time.Second}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestRunner(model, 1, 1, dir).Run(ctx, &fakePages{pages: 3})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	assertNoTempFiles(t, dir)
}

func TestBatchRunner_EmptyDocument(t *testing.T) {
	result, err := newTestRunner(&fakeModel{}, 3, 1, t.TempDir()).Run(context.Background(), &fakePages{pages: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Batches != 0 || len(result.Products) != 0 {
		t.Fatalf("expected nothing to process, got %+v", result)
	}
}

func TestExtractor_ExtractDocumentKeepsUnparseableAnswer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalogo.pdf")
	if err := os.WriteFile(path, []byte("whole"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	model := &fakeModel{answers: map[string]string{"whole": "```json\nsem produtos\n```"}}

	result, err := NewExtractor(model, logger.Discard(), nil).ExtractDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ParseErr == nil {
		t.Fatalf("expected parse error")
	}
	if result.Cleaned != "sem produtos" {
		t.Fatalf("unexpected cleaned answer %q", result.Cleaned)
	}
	if len(result.Products) != 0 {
		t.Fatalf("expected no products, got %d", len(result.Products))
	}
	if len(model.deleted) != 1 || model.deleted[0] != "whole" {
		t.Fatalf("expected uploaded file to be deleted, got %v", model.deleted)
	}
}

func TestWriteProducts_WritesIndentedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "catalogo.json")
	products := []Product{{FieldName: "Par de Meias"}}

	if err := WriteProducts(path, products); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "[\n  {\n    \"nome do produto\": \"Par de Meias\"\n  }\n]"
	if string(data) != want {
		t.Fatalf("unexpected output:\n%s", data)
	}
}
