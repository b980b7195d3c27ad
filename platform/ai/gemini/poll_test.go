package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"
)

func TestWaitUntilActive_ReturnsImmediatelyWhenActive(t *testing.T) {
	calls := 0
	get := func(context.Context, string) (*genai.File, error) {
		calls++
		return nil, errors.New("should not poll")
	}

	file, err := waitUntilActive(context.Background(), get, &genai.File{Name: "files/a", State: genai.FileStateActive}, time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Name != "files/a" {
		t.Fatalf("expected files/a, got %s", file.Name)
	}
	if calls != 0 {
		t.Fatalf("expected no polls, got %d", calls)
	}
}

func TestWaitUntilActive_PollsUntilActive(t *testing.T) {
	states := []genai.FileState{genai.FileStateProcessing, genai.FileStateProcessing, genai.FileStateActive}
	calls := 0
	get := func(_ context.Context, name string) (*genai.File, error) {
		state := states[calls]
		calls++
		return &genai.File{Name: name, URI: "https://files/" + name, State: state}, nil
	}

	file, err := waitUntilActive(context.Background(), get, &genai.File{Name: "files/b", State: genai.FileStateProcessing}, time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 polls, got %d", calls)
	}
	if file.URI != "https://files/files/b" {
		t.Fatalf("unexpected uri %q", file.URI)
	}
}

func TestWaitUntilActive_FailedState(t *testing.T) {
	get := func(_ context.Context, name string) (*genai.File, error) {
		return &genai.File{Name: name, State: genai.FileStateFailed, Error: &genai.FileStatus{Message: "corrupt pdf"}}, nil
	}

	_, err := waitUntilActive(context.Background(), get, &genai.File{Name: "files/c", State: genai.FileStateProcessing}, time.Millisecond, time.Second)
	if err == nil {
		t.Fatalf("expected error for failed file")
	}
}

func TestWaitUntilActive_Timeout(t *testing.T) {
	get := func(_ context.Context, name string) (*genai.File, error) {
		return &genai.File{Name: name, State: genai.FileStateProcessing}, nil
	}

	_, err := waitUntilActive(context.Background(), get, &genai.File{Name: "files/d", State: genai.FileStateProcessing}, 5*time.Millisecond, 30*time.Millisecond)
	if !errors.Is(err, ErrFileNotReady) {
		t.Fatalf("expected ErrFileNotReady, got %v", err)
	}
}

func TestWaitUntilActive_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	get := func(_ context.Context, name string) (*genai.File, error) {
		return &genai.File{Name: name, State: genai.FileStateProcessing}, nil
	}

	_, err := waitUntilActive(ctx, get, &genai.File{Name: "files/e", State: genai.FileStateProcessing}, time.Second, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
