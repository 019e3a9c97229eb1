package fs

import (
	"context"
	"fmt"
	"os"
	"time"
)

// WaitForFile polls until filePath exists and is non-empty, backing off
// exponentially (capped at 500ms). It gives up after maxWait or when ctx is
// done.
func WaitForFile(ctx context.Context, filePath string, maxWait time.Duration) error {
	start := time.Now()
	attempt := 0
	baseDelay := 50 * time.Millisecond

	for {
		if info, err := os.Stat(filePath); err == nil && info.Size() > 0 {
			return nil
		}

		if time.Since(start) >= maxWait {
			return fmt.Errorf("timeout waiting for file %s after %v", filePath, maxWait)
		}

		delay := baseDelay * time.Duration(1<<attempt)
		if delay > 500*time.Millisecond {
			delay = 500 * time.Millisecond
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if attempt < 10 {
			attempt++
		}
	}
}

// WaitForRemoval polls until filePath no longer exists.
func WaitForRemoval(ctx context.Context, filePath string, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	for {
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for %s to be removed after %v", filePath, maxWait)
		}
		t := time.NewTimer(50 * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
