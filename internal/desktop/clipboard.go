// Package desktop adapts the host clipboard and default browser.
package desktop

import (
	"errors"
	"fmt"

	"cfsubmit/internal/logging"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnsupported is returned when no clipboard utility exists on
// the host (xclip, xsel or wl-copy on Linux).
var ErrClipboardUnsupported = errors.New("clipboard not supported on this host")

// Clipboard replaces the system clipboard text.
type Clipboard interface {
	SetText(text string) error
}

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// clipboardUnsupported reports the library's startup availability check.
var clipboardUnsupported = func() bool { return clipboard.Unsupported }

// SystemClipboard writes through atotto/clipboard.
type SystemClipboard struct{}

// SetText replaces the clipboard contents with text.
func (SystemClipboard) SetText(text string) error {
	if clipboardUnsupported() {
		logging.DesktopWarn("Clipboard unsupported on this host")
		return ErrClipboardUnsupported
	}
	if err := clipboardWriteAll(text); err != nil {
		logging.DesktopWarn("Clipboard write failed: %v", err)
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	logging.Desktop("Clipboard set (%d bytes)", len(text))
	return nil
}

// Available reports whether a clipboard backend was found.
func (SystemClipboard) Available() bool {
	return !clipboardUnsupported()
}
