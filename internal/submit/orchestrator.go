// Package submit runs one browser-based submission: read the source, put it
// on the clipboard, open the judge's submit page and hand off to keystroke
// automation. Clipboard and browser come first so the user can always finish
// by hand if automation fails.
package submit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"cfsubmit/internal/config"
	"cfsubmit/internal/desktop"
	"cfsubmit/internal/logging"
	"cfsubmit/internal/notify"
	"cfsubmit/internal/problem"
	"cfsubmit/internal/tactile"
)

var (
	// ErrFileRead means the source file could not be read. Nothing else ran.
	ErrFileRead = errors.New("failed to read source file")

	// ErrEmptySource means the source file holds only whitespace. Nothing else ran.
	ErrEmptySource = errors.New("source file is empty")

	// ErrBrowserLaunch means the submit page could not be opened. The
	// clipboard was already set; automation did not run.
	ErrBrowserLaunch = errors.New("failed to open browser")
)

// Notification bodies.
const (
	BodyOpened          = "Copied & Opened Browser"
	BodyBrowserFailed   = "Failed to open browser"
	BodySubmitted       = "Submitted! Check verdict"
	BodyCheckBrowser    = "Check browser"
	BodyManual          = "Paste & Submit manually"
	BodyReadFailed      = "Failed to read source file"
	BodyEmptySource     = "Source file is empty"
	BodyClipboardFailed = "Could not copy code to clipboard"
)

// slowSubmit flags a Submit whose synchronous part (read, clipboard,
// browser launch) stalled.
const slowSubmit = 3 * time.Second

// DefaultTitle is used when the URL was not recognized.
const DefaultTitle = "CF Submit"

// Request is a single submission.
type Request struct {
	SourcePath string
	ProblemURL string
}

// Result describes what a successful Submit did.
type Result struct {
	// Reference is nil when the URL did not parse.
	Reference *problem.Reference
	Target    problem.SubmitTarget

	// JobID identifies the automation job, empty if none was started.
	JobID string

	// AutomationStarted is true only when a process is running for JobID.
	// Unsupported platforms and spawn failures leave it false.
	AutomationStarted bool

	// ClipboardErr is set when the clipboard write failed. The submission
	// still went ahead.
	ClipboardErr error
}

// Options configures an Orchestrator. Nil collaborators get system defaults,
// and the zero value automates on the host platform with default timing.
type Options struct {
	Clipboard desktop.Clipboard
	Browser   desktop.BrowserLauncher
	Notifier  notify.Notifier
	Spawner   tactile.Spawner

	Platform tactile.Platform
	Timing   tactile.Timing

	// DisableAutomation stops after the browser launch and advises a
	// manual paste.
	DisableAutomation bool
	AutomationTimeout time.Duration
	RequireProblemRef bool
}

// OptionsFromConfig maps configuration onto Options. Collaborators are left
// for the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Platform:          tactile.ParsePlatform(cfg.Automation.Platform, runtime.GOOS),
		Timing:            cfg.GetTiming(),
		DisableAutomation: !cfg.Automation.Enabled,
		AutomationTimeout: cfg.GetAutomationTimeout(),
		RequireProblemRef: cfg.Automation.RequireProblemRef,
	}
}

// Orchestrator sequences submissions and owns the automation dispatcher.
type Orchestrator struct {
	opts       Options
	dispatcher *tactile.Dispatcher
	readFile   func(string) ([]byte, error)
}

// NewOrchestrator creates an Orchestrator. Call Close when done.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Clipboard == nil {
		opts.Clipboard = desktop.SystemClipboard{}
	}
	if opts.Browser == nil {
		opts.Browser = desktop.SystemBrowser{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop
	}
	if opts.Spawner == nil {
		opts.Spawner = tactile.NewExecSpawner()
	}
	if opts.Platform == "" {
		opts.Platform = tactile.PlatformFromGOOS(runtime.GOOS)
	}
	if opts.Timing == (tactile.Timing{}) {
		opts.Timing = tactile.DefaultTiming()
	}

	o := &Orchestrator{opts: opts, readFile: os.ReadFile}
	o.dispatcher = tactile.NewDispatcher(opts.Spawner, o.onOutcome)
	return o
}

// Dispatcher exposes the automation slot, mainly so one-shot callers can
// wait for the job.
func (o *Orchestrator) Dispatcher() *tactile.Dispatcher {
	return o.dispatcher
}

// Submit runs the submission flow. Only the three sentinel errors are
// returned; automation problems arrive later as notifications.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Result, error) {
	timer := logging.StartTimer(logging.CategorySubmit, "Submit")
	defer timer.StopWithThreshold(slowSubmit)

	logging.Submit("Preparing browser submission...")
	logging.SubmitDebug("source=%s url=%s", req.SourcePath, req.ProblemURL)

	res := &Result{}
	title := DefaultTitle
	if ref, ok := problem.Parse(req.ProblemURL); ok {
		res.Reference = &ref
		title = ref.String()
	} else {
		logging.SubmitWarn("URL not recognized as a problem page: %s", req.ProblemURL)
	}

	data, err := o.readFile(req.SourcePath)
	if err != nil {
		logging.SubmitError("Failed to read source file: %s: %v", req.SourcePath, err)
		o.notify(notify.LevelError, title, BodyReadFailed)
		return nil, fmt.Errorf("%w: %s: %w", ErrFileRead, req.SourcePath, err)
	}
	source := string(data)
	if strings.TrimSpace(source) == "" {
		logging.SubmitError("Source file is empty: %s", req.SourcePath)
		o.notify(notify.LevelError, title, BodyEmptySource)
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, req.SourcePath)
	}

	if err := o.opts.Clipboard.SetText(source); err != nil {
		res.ClipboardErr = err
		logging.SubmitWarn("Clipboard write failed, continuing: %v", err)
		o.notify(notify.LevelWarn, title, BodyClipboardFailed)
	} else {
		logging.Submit("Code copied to clipboard.")
	}

	res.Target = problem.BuildSubmitTarget(req.ProblemURL, res.Reference)
	if res.Target.Degraded {
		logging.SubmitWarn("Submit target degraded to %s", res.Target.CanonicalURL)
	}

	if !o.opts.Browser.OpenURL(res.Target.CanonicalURL) {
		logging.SubmitError("Failed to open browser.")
		o.notify(notify.LevelError, title, BodyBrowserFailed)
		return res, fmt.Errorf("%w: %s", ErrBrowserLaunch, res.Target.CanonicalURL)
	}
	logging.Submit("Browser opened to: %s", res.Target.CanonicalURL)
	o.notify(notify.LevelInfo, title, BodyOpened)

	switch {
	case o.opts.DisableAutomation:
		logging.Submit("Automation disabled, leaving submission to the user")
		o.notify(notify.LevelWarn, title, BodyManual)
		return res, nil
	case o.opts.RequireProblemRef && res.Reference == nil:
		logging.Submit("Automation skipped: URL is not a recognized problem page")
		o.notify(notify.LevelWarn, title, BodyManual)
		return res, nil
	}

	strategy := tactile.SelectStrategy(o.opts.Platform, o.opts.Timing)
	strategy.Command.Timeout = o.opts.AutomationTimeout
	strategy.Label = title

	jobID, live, err := o.dispatcher.Start(ctx, strategy)
	if err != nil {
		// Closed dispatcher: the user still has clipboard and browser.
		logging.SubmitWarn("Automation not started: %v", err)
		o.notify(notify.LevelWarn, title, BodyManual)
		return res, nil
	}
	res.JobID = jobID
	res.AutomationStarted = live
	return res, nil
}

// onOutcome turns an automation outcome into a notification.
func (o *Orchestrator) onOutcome(out tactile.Outcome) {
	title := out.Label
	if title == "" {
		title = DefaultTitle
	}

	switch {
	case out.State == tactile.StateSucceeded:
		o.notify(notify.LevelInfo, title, BodySubmitted)
	case out.State == tactile.StateUnsupported, out.Reason == tactile.ReasonToolMissing:
		o.notify(notify.LevelWarn, title, BodyManual)
	default:
		logging.SubmitWarn("Automation job %s warned: %s", out.JobID, out.Reason)
		o.notify(notify.LevelWarn, title, BodyCheckBrowser)
	}
}

func (o *Orchestrator) notify(level notify.Level, title, body string) {
	o.opts.Notifier.Notify(notify.Notification{Level: level, Title: title, Body: body})
}

// Wait blocks until the current automation job, if any, has reported.
func (o *Orchestrator) Wait(ctx context.Context) error {
	return o.dispatcher.Wait(ctx)
}

// Close kills any running automation.
func (o *Orchestrator) Close() error {
	return o.dispatcher.Close()
}
