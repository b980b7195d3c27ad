package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"catalog_backend/internal/catalogjobs/repository"
	"catalog_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakePendingStore struct {
	claimed   []uuid.UUID
	olderThan time.Time
	cleared   []uuid.UUID
}

func (s *fakePendingStore) ClaimUnenqueued(_ context.Context, olderThan time.Time, _ int) ([]uuid.UUID, error) {
	s.olderThan = olderThan
	return s.claimed, nil
}

func (s *fakePendingStore) ClearEnqueued(_ context.Context, id uuid.UUID) error {
	s.cleared = append(s.cleared, id)
	return nil
}

type fakeEnqueuer struct {
	failFor map[uuid.UUID]bool
	queued  []uuid.UUID
}

func (e *fakeEnqueuer) EnqueueCatalogExtraction(_ context.Context, id uuid.UUID) error {
	if e.failFor[id] {
		return errors.New("redis unavailable")
	}
	e.queued = append(e.queued, id)
	return nil
}

func TestPendingJobDispatcher_ReleasesFailedClaims(t *testing.T) {
	ok, failing := uuid.New(), uuid.New()
	store := &fakePendingStore{claimed: []uuid.UUID{ok, failing}}
	enqueuer := &fakeEnqueuer{failFor: map[uuid.UUID]bool{failing: true}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d := NewPendingJobDispatcher(store, enqueuer, logger.Discard(), time.Second)
	d.now = func() time.Time { return now }
	d.dispatch(context.Background())

	if len(enqueuer.queued) != 1 || enqueuer.queued[0] != ok {
		t.Fatalf("unexpected queued jobs %v", enqueuer.queued)
	}
	if len(store.cleared) != 1 || store.cleared[0] != failing {
		t.Fatalf("expected failing claim to be released, got %v", store.cleared)
	}
	if !store.olderThan.Equal(now.Add(-dispatchGrace)) {
		t.Fatalf("unexpected cutoff %v", store.olderThan)
	}
}

type fakePruner struct {
	completedBefore time.Time
	failedBefore    time.Time
	deleted         []repository.JobObjects
}

func (p *fakePruner) DeleteFinishedBefore(_ context.Context, completedBefore, failedBefore time.Time) ([]repository.JobObjects, error) {
	p.completedBefore, p.failedBefore = completedBefore, failedBefore
	return p.deleted, nil
}

type fakeRemover struct {
	removed []string
	failFor string
}

func (r *fakeRemover) DeleteObject(_ context.Context, bucket, fileKey string) error {
	if fileKey == r.failFor {
		return errors.New("minio unavailable")
	}
	r.removed = append(r.removed, bucket+"/"+fileKey)
	return nil
}

var testBuckets = JobBuckets{Catalogs: "catalogs", Results: "results"}

func TestJobCleanup_UsesRetentionPerStatus(t *testing.T) {
	pruner := &fakePruner{}
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	c := NewJobCleanup(pruner, &fakeRemover{}, testBuckets, logger.Discard(), 0, 0, 0)
	c.now = func() time.Time { return now }
	c.cleanup(context.Background())

	if !pruner.completedBefore.Equal(now.Add(-defaultCompletedJobRetention)) {
		t.Fatalf("unexpected completed cutoff %v", pruner.completedBefore)
	}
	if !pruner.failedBefore.Equal(now.Add(-defaultFailedJobRetention)) {
		t.Fatalf("unexpected failed cutoff %v", pruner.failedBefore)
	}
}

func TestJobCleanup_RemovesStoredObjects(t *testing.T) {
	result := "job-a/catalogo_completo_x.json"
	pruner := &fakePruner{deleted: []repository.JobObjects{
		{SourceKey: "job-a/catalogo_x.pdf", ResultKey: &result},
		{SourceKey: "job-b/broken.pdf"},
		{SourceKey: "job-c/catalogo_y.pdf"},
	}}
	remover := &fakeRemover{failFor: "job-b/broken.pdf"}

	c := NewJobCleanup(pruner, remover, testBuckets, logger.Discard(), 0, 0, 0)
	c.cleanup(context.Background())

	want := []string{
		"catalogs/job-a/catalogo_x.pdf",
		"results/job-a/catalogo_completo_x.json",
		"catalogs/job-c/catalogo_y.pdf",
	}
	if len(remover.removed) != len(want) {
		t.Fatalf("expected %v, got %v", want, remover.removed)
	}
	for i := range want {
		if remover.removed[i] != want[i] {
			t.Fatalf("object %d: expected %s, got %s", i, want[i], remover.removed[i])
		}
	}
}

func TestParseCatalogExtractPayload(t *testing.T) {
	id := uuid.New()
	task, err := NewCatalogExtractTask(id)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskCatalogExtract {
		t.Fatalf("unexpected task type %q", task.Type())
	}
	got, err := ParseCatalogExtractPayload(task)
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}

	if _, err := ParseCatalogExtractPayload(asynq.NewTask(TaskCatalogExtract, []byte(`{"jobId":"nope"}`))); err == nil {
		t.Fatalf("expected invalid id to be rejected")
	}
}

type recordingProcessor struct {
	got uuid.UUID
}

func (p *recordingProcessor) Process(_ context.Context, id uuid.UUID) error {
	p.got = id
	return nil
}

func TestWorker_HandleCatalogExtract(t *testing.T) {
	processor := &recordingProcessor{}
	w := &Worker{processor: processor, log: logger.Discard()}

	if err := w.handleCatalogExtract(context.Background(), asynq.NewTask(TaskCatalogExtract, []byte("{"))); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected malformed payload to skip retry, got %v", err)
	}

	id := uuid.New()
	task, _ := NewCatalogExtractTask(id)
	if err := w.handleCatalogExtract(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processor.got != id {
		t.Fatalf("expected processor to receive %s, got %s", id, processor.got)
	}
}

type failingProcessor struct {
	err error
}

func (p failingProcessor) Process(context.Context, uuid.UUID) error {
	return p.err
}

func TestWorker_InterruptedTaskIsReleased(t *testing.T) {
	task, _ := NewCatalogExtractTask(uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &Worker{processor: failingProcessor{err: context.Canceled}, log: logger.Discard()}
	if err := w.handleCatalogExtract(ctx, task); err != nil {
		t.Fatalf("expected interrupted task to finish cleanly, got %v", err)
	}

	w = &Worker{processor: failingProcessor{err: errors.New("model unavailable")}, log: logger.Discard()}
	if err := w.handleCatalogExtract(context.Background(), task); err == nil {
		t.Fatalf("expected a real failure to be returned")
	}
}
