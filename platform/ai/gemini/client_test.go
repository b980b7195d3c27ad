package gemini

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"catalog_backend/platform/logger"
)

func TestDiscardUpload_LogsDeleteFailure(t *testing.T) {
	var out bytes.Buffer
	log := logger.NewWithWriter("production", &out)

	var deleted string
	del := func(_ context.Context, name string) error {
		deleted = name
		return errors.New("permission denied")
	}

	discardUpload(context.Background(), del, "files/stuck", log)

	if deleted != "files/stuck" {
		t.Fatalf("expected files/stuck to be deleted, got %q", deleted)
	}
	logged := out.String()
	if !strings.Contains(logged, "failed to delete unusable upload") || !strings.Contains(logged, "files/stuck") || !strings.Contains(logged, "permission denied") {
		t.Fatalf("expected delete failure to be logged, got %q", logged)
	}
}

func TestDiscardUpload_QuietOnSuccess(t *testing.T) {
	var out bytes.Buffer
	log := logger.NewWithWriter("production", &out)

	discardUpload(context.Background(), func(context.Context, string) error { return nil }, "files/a", log)

	if out.Len() != 0 {
		t.Fatalf("expected nothing logged, got %q", out.String())
	}
}
