package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// ErrFileNotReady is returned when an upload does not become ACTIVE in time.
var ErrFileNotReady = errors.New("gemini: file not ready")

type fileGetter func(ctx context.Context, name string) (*genai.File, error)

// waitUntilActive polls the file state until it is ACTIVE.
// Files that are already ACTIVE (or report no state at all, as small uploads
// sometimes do) return immediately without a poll.
func waitUntilActive(ctx context.Context, get fileGetter, file *genai.File, interval, timeout time.Duration) (*genai.File, error) {
	if file == nil {
		return nil, fmt.Errorf("gemini: upload returned no file")
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	current := file
	for {
		switch current.State {
		case genai.FileStateActive, genai.FileStateUnspecified, "":
			return current, nil
		case genai.FileStateFailed:
			msg := "processing failed"
			if current.Error != nil && current.Error.Message != "" {
				msg = current.Error.Message
			}
			return nil, fmt.Errorf("gemini: file %s: %s", current.Name, msg)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s still %s after %s", ErrFileNotReady, current.Name, current.State, timeout)
		case <-ticker.C:
		}

		next, err := get(ctx, current.Name)
		if err != nil {
			return nil, fmt.Errorf("gemini: poll %s: %w", current.Name, err)
		}
		current = next
	}
}
