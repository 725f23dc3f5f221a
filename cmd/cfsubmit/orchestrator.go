package main

import (
	"io"

	"cfsubmit/internal/desktop"
	"cfsubmit/internal/notify"
	"cfsubmit/internal/submit"
	"cfsubmit/internal/tactile"
)

// Collaborator constructors, replaced in tests.
var (
	newClipboard = func() desktop.Clipboard { return desktop.SystemClipboard{} }
	newBrowser   = func() desktop.BrowserLauncher { return desktop.SystemBrowser{} }
	newSpawner   = func() tactile.Spawner { return tactile.NewExecSpawner() }
)

// buildOrchestrator wires config and system services into an Orchestrator.
// Toasts go to stderr when enabled; every notification is also logged.
func buildOrchestrator(stderr io.Writer) (*submit.Orchestrator, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts := submit.OptionsFromConfig(c)
	opts.Clipboard = newClipboard()
	opts.Browser = newBrowser()
	opts.Spawner = newSpawner()
	opts.Notifier = notify.NewFanout(
		notify.Log{Logger: logger.Named("notify")},
		notify.Gate(c.Notifications.ShowToasts, notify.NewTerminal(stderr)),
	)
	return submit.NewOrchestrator(opts), nil
}
