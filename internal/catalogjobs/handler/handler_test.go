package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"catalog_backend/internal/adapters/storage"
	"catalog_backend/internal/catalogjobs/repository"
	"catalog_backend/internal/catalogjobs/service"
	"catalog_backend/internal/catalogjobs/transport"
	"catalog_backend/platform/apperr"
	"catalog_backend/platform/logger"
	"catalog_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const basePath = "/catalogos/extracoes"

var testPDF = []byte("%PDF-1.4\n%%EOF\n")

type stubRepo struct {
	jobs map[uuid.UUID]repository.Job
}

func (r *stubRepo) Create(_ context.Context, p repository.CreateJobParams) (repository.Job, error) {
	job := repository.Job{ID: p.ID, Status: repository.StatusPending, FileName: p.FileName, SourceKey: p.SourceKey, BatchSize: p.BatchSize}
	r.jobs[p.ID] = job
	return job, nil
}

func (r *stubRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return repository.Job{}, apperr.NotFound("extraction job not found")
	}
	return job, nil
}

func (r *stubRepo) MarkEnqueued(context.Context, uuid.UUID) error { return nil }

func (r *stubRepo) ClaimUnenqueued(context.Context, time.Time, int) ([]uuid.UUID, error) {
	return nil, nil
}

func (r *stubRepo) ClearEnqueued(context.Context, uuid.UUID) error { return nil }

func (r *stubRepo) MarkRunning(context.Context, uuid.UUID) (repository.Job, error) {
	return repository.Job{}, errors.New("not used")
}

func (r *stubRepo) MarkCompleted(context.Context, repository.CompleteJobParams) error { return nil }

func (r *stubRepo) MarkFailed(context.Context, uuid.UUID, string) error { return nil }

func (r *stubRepo) ReleaseInterrupted(context.Context, uuid.UUID) error { return nil }

func (r *stubRepo) DeleteFinishedBefore(context.Context, time.Time, time.Time) ([]repository.JobObjects, error) {
	return nil, nil
}

type stubStore struct {
	objects map[string][]byte
}

func (s *stubStore) UploadFile(_ context.Context, bucket, folder, fileName, _ string, reader io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	key := storage.ObjectKey(folder, fileName, "test")
	s.objects[bucket+"/"+key] = data
	return key, nil
}

func (s *stubStore) DownloadFile(_ context.Context, bucket, fileKey string) (io.ReadCloser, error) {
	data, ok := s.objects[bucket+"/"+fileKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *stubStore) GenerateDownloadURL(_ context.Context, bucket, fileKey string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "http://minio.test/" + bucket + "/" + fileKey, FileKey: fileKey}, nil
}

func (s *stubStore) DeleteObject(_ context.Context, bucket, fileKey string) error {
	delete(s.objects, bucket+"/"+fileKey)
	return nil
}

func (s *stubStore) ValidateContentType(contentType string) error {
	return storage.ValidateContentType(contentType)
}

func (s *stubStore) ValidateFileSize(size int64) error {
	return storage.ValidateFileSize(size, 1<<20)
}

type stubEnqueuer struct{}

func (stubEnqueuer) EnqueueCatalogExtraction(context.Context, uuid.UUID) error { return nil }

type testEnv struct {
	engine *gin.Engine
	repo   *stubRepo
	store  *stubStore
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		repo:  &stubRepo{jobs: map[uuid.UUID]repository.Job{}},
		store: &stubStore{objects: map[string][]byte{}},
	}
	svc := service.New(env.repo, env.store, stubEnqueuer{}, nil, service.Buckets{Catalogs: "catalogs", Results: "results"}, 3, "", logger.Discard(), nil)
	env.engine = gin.New()
	New(svc, validator.New()).RegisterRoutes(env.engine.Group(basePath))
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, contentType string, body []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if body != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="arquivo"; filename="catalogo.pdf"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(body); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, basePath, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmit_Accepted(t *testing.T) {
	env := newTestEnv()

	rec := env.do(uploadRequest(t, "application/pdf", testPDF, map[string]string{"tamanho_lote": "5"}))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var job transport.JobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Status != repository.StatusPending || job.TamanhoLote != 5 || job.Arquivo != "catalogo.pdf" {
		t.Fatalf("unexpected job %+v", job)
	}
	if len(env.store.objects) != 1 {
		t.Fatalf("expected the upload to be stored, got %d objects", len(env.store.objects))
	}
}

func TestSubmit_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
	}{
		{"missing file", func(t *testing.T) *http.Request { return uploadRequest(t, "", nil, nil) }, http.StatusBadRequest},
		{"batch size out of range", func(t *testing.T) *http.Request {
			return uploadRequest(t, "application/pdf", testPDF, map[string]string{"tamanho_lote": "51"})
		}, http.StatusBadRequest},
		{"not a pdf", func(t *testing.T) *http.Request { return uploadRequest(t, "image/png", []byte("\x89PNG"), nil) }, http.StatusBadRequest},
	}
	for _, tc := range cases {
		env := newTestEnv()
		rec := env.do(tc.req(t))
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, rec.Code, rec.Body.String())
		}
		if len(env.store.objects) != 0 {
			t.Fatalf("%s: expected nothing stored", tc.name)
		}
	}
}

func TestGet_StatusCodes(t *testing.T) {
	env := newTestEnv()

	if rec := env.do(httptest.NewRequest(http.MethodGet, basePath+"/not-a-uuid", nil)); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
	if rec := env.do(httptest.NewRequest(http.MethodGet, basePath+"/"+uuid.NewString(), nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestResult_StreamsCompletedJob(t *testing.T) {
	env := newTestEnv()
	id := uuid.New()
	key := id.String() + "/catalogo_completo.json"
	env.repo.jobs[id] = repository.Job{ID: id, Status: repository.StatusCompleted, ResultKey: &key}
	env.store.objects["results/"+key] = []byte(`[{"nome":"Panela"}]`)

	rec := env.do(httptest.NewRequest(http.MethodGet, basePath+"/"+id.String()+"/resultado", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `[{"nome":"Panela"}]` {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="catalogo_completo.json"` {
		t.Fatalf("unexpected disposition %q", got)
	}
}

func TestResult_PendingJobConflicts(t *testing.T) {
	env := newTestEnv()
	id := uuid.New()
	env.repo.jobs[id] = repository.Job{ID: id, Status: repository.StatusRunning}

	rec := env.do(httptest.NewRequest(http.MethodGet, basePath+"/"+id.String()+"/resultado", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
