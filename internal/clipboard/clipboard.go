// Package clipboard copies secrets to the system clipboard and clears them
// again after a timeout.
package clipboard

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

// backend is swapped out in tests
var (
	writeAll = clipboard.WriteAll
	readAll  = clipboard.ReadAll
)

// Copy copies text to the clipboard
func Copy(text string) error {
	if err := writeAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// CopyWithTimeout copies text to the clipboard and blocks until timeout
// elapses or ctx is done, then clears the clipboard if it still holds text.
func CopyWithTimeout(ctx context.Context, text string, timeout time.Duration) error {
	if err := Copy(text); err != nil {
		return err
	}
	return ClearAfter(ctx, text, timeout)
}

// ClearAfter waits for timeout or ctx, then clears the clipboard if it still
// holds text. A zero timeout returns at once without clearing.
func ClearAfter(ctx context.Context, text string, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	return clearIfUnchanged(text)
}

func clearIfUnchanged(text string) error {
	current, err := readAll()
	if err != nil {
		return fmt.Errorf("failed to read clipboard: %w", err)
	}
	if current != text {
		return nil
	}
	return Clear()
}

// IsAvailable returns true if clipboard functionality is available
func IsAvailable() bool {
	if clipboard.Unsupported {
		return false
	}
	_, err := readAll()
	return err == nil
}

// Clear clears the clipboard
func Clear() error {
	if err := writeAll(""); err != nil {
		return fmt.Errorf("failed to clear clipboard: %w", err)
	}
	return nil
}

// System is the system clipboard.
type System struct{}

// Available reports whether the system clipboard can be used.
func (System) Available() bool { return IsAvailable() }

// Copy copies text to the system clipboard.
func (System) Copy(text string) error { return Copy(text) }

// ClearAfter clears the system clipboard after timeout.
func (System) ClearAfter(ctx context.Context, text string, timeout time.Duration) error {
	return ClearAfter(ctx, text, timeout)
}
