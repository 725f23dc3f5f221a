package desktop

import (
	"io"

	"cfsubmit/internal/logging"

	"github.com/pkg/browser"
)

// BrowserLauncher opens a URL in the default browser and reports whether the
// launch succeeded.
type BrowserLauncher interface {
	OpenURL(url string) bool
}

var openURL = browser.OpenURL

func init() {
	// xdg-open and friends chatter on the terminal otherwise.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// SystemBrowser launches through pkg/browser.
type SystemBrowser struct{}

// OpenURL opens url and returns false if no opener could be started.
func (SystemBrowser) OpenURL(url string) bool {
	if url == "" {
		return false
	}
	if err := openURL(url); err != nil {
		logging.DesktopWarn("Browser launch failed for %s: %v", url, err)
		return false
	}
	logging.Desktop("Browser launched: %s", url)
	return true
}
