package tactile

import (
	"context"
	"strings"
	"sync"

	"cfsubmit/internal/logging"

	"github.com/google/uuid"
)

// OutcomeFunc receives the result of every job. It is called from the job's
// own goroutine for process completions, and from Start for outcomes that
// need no process (unsupported platform, spawn failure).
type OutcomeFunc func(Outcome)

// Dispatcher owns at most one live automation job. A new Start terminates
// the previous job before spawning; completions from superseded jobs are
// dropped by comparing job ids.
type Dispatcher struct {
	// startMu serializes Start and Close so terminate-then-replace is atomic
	// with respect to other callers.
	startMu sync.Mutex

	mu      sync.Mutex
	state   State
	current *job
	closed  bool

	// last is the most recent job to leave current through completion. It
	// stays here until its done channel closes so Wait and Close can block
	// on a report that is still running.
	last *job

	spawner   Spawner
	onOutcome OutcomeFunc
	newID     func() string
}

type job struct {
	id       string
	platform Platform
	label    string
	proc     Process
	cancel   context.CancelFunc

	// exited is closed once the process has been reaped.
	exited chan struct{}

	// done is closed after the outcome has been handled (reported or dropped).
	done chan struct{}
}

// NewDispatcher creates a dispatcher that spawns through spawner and reports
// to onOutcome. A nil onOutcome discards outcomes.
func NewDispatcher(spawner Spawner, onOutcome OutcomeFunc) *Dispatcher {
	if onOutcome == nil {
		onOutcome = func(Outcome) {}
	}
	return &Dispatcher{
		state:     StateIdle,
		spawner:   spawner,
		onOutcome: onOutcome,
		newID:     uuid.NewString,
	}
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// CurrentJobID returns the id of the live job, or "" when idle.
func (d *Dispatcher) CurrentJobID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ""
	}
	return d.current.id
}

// Start runs strategy as the new live job and returns its id, and whether a
// process is now running for it. Any previous job is killed and reaped
// first. Unsupported strategies and spawn failures are reported through the
// OutcomeFunc before Start returns with live false; they are not errors. The
// only error is ErrDispatcherClosed.
func (d *Dispatcher) Start(ctx context.Context, strategy Strategy) (jobID string, live bool, err error) {
	d.startMu.Lock()
	defer d.startMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", false, ErrDispatcherClosed
	}
	prev := d.current
	d.current = nil
	d.state = StateSpawning
	d.mu.Unlock()

	if prev != nil {
		logging.Tactile("Superseding automation job %s", prev.id)
		prev.terminate()
		<-prev.done
	}

	id := d.newID()

	if !strategy.Supported() {
		logging.Tactile("No automation strategy for platform %s (job %s)", strategy.Platform, id)
		d.finish(Outcome{
			JobID:    id,
			Platform: strategy.Platform,
			State:    StateUnsupported,
			Reason:   ReasonPlatformUnsupported,
			Label:    strategy.Label,
		})
		return id, false, nil
	}

	// The job must outlive the caller's request, so only values are taken
	// from ctx; cancellation is owned by the dispatcher.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	proc, err := d.spawner.Spawn(jobCtx, strategy.Command)
	if err != nil {
		cancel()
		logging.TactileWarn("Automation job %s failed to spawn: %v", id, err)
		d.finish(Outcome{
			JobID:    id,
			Platform: strategy.Platform,
			State:    StateWarned,
			Reason:   ReasonSpawnError,
			Err:      err,
			Label:    strategy.Label,
		})
		return id, false, nil
	}

	j := &job{
		id:       id,
		platform: strategy.Platform,
		label:    strategy.Label,
		proc:     proc,
		cancel:   cancel,
		exited:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	d.mu.Lock()
	d.current = j
	d.state = StateRunning
	d.mu.Unlock()

	logging.Tactile("Automation job %s running: %s (pid=%d)", id, strategy.Command.CommandString(), proc.Pid())
	go d.watch(j)
	return id, true, nil
}

// watch waits for the process and hands the result to complete.
func (d *Dispatcher) watch(j *job) {
	defer close(j.done)
	exit := j.proc.Wait()
	close(j.exited)
	j.cancel()
	d.complete(j, exit)
}

// complete transitions on a job's exit. Completions for jobs that are no
// longer current are ignored.
func (d *Dispatcher) complete(j *job, exit Exit) {
	outcome := classify(j, exit)

	d.mu.Lock()
	if d.current != j {
		d.mu.Unlock()
		logging.TactileDebug("Ignoring completion of superseded job %s (exit=%d)", j.id, exit.ExitCode)
		return
	}
	d.current = nil
	d.last = j
	d.state = outcome.State
	d.mu.Unlock()

	logging.Get(logging.CategoryTactile).With("job", j.id).Info("Automation job finished: state=%s reason=%s exit=%d duration=%s",
		outcome.State, outcome.Reason, exit.ExitCode, exit.Duration())
	d.report(outcome)
}

func classify(j *job, exit Exit) Outcome {
	outcome := Outcome{JobID: j.id, Platform: j.platform, Label: j.label, Exit: &exit}
	switch {
	case exit.Killed:
		outcome.State = StateWarned
		outcome.Reason = ReasonTimeout
	case exit.Err != nil:
		outcome.State = StateWarned
		outcome.Reason = ReasonSpawnError
		outcome.Err = exit.Err
	case exit.ExitCode != 0:
		outcome.State = StateWarned
		outcome.Reason = ReasonExitNonZero
	case strings.Contains(exit.Output, ToolMissingMarker):
		outcome.State = StateWarned
		outcome.Reason = ReasonToolMissing
	default:
		outcome.State = StateSucceeded
	}
	return outcome
}

// finish records the terminal state of a job that never had a process.
// Only Start calls it, under startMu.
func (d *Dispatcher) finish(outcome Outcome) {
	d.mu.Lock()
	d.state = outcome.State
	d.mu.Unlock()
	d.report(outcome)
}

// report hands the outcome over and returns to Idle unless a newer job has
// started meanwhile.
func (d *Dispatcher) report(outcome Outcome) {
	d.onOutcome(outcome)

	d.mu.Lock()
	if d.current == nil && d.state == outcome.State {
		d.state = StateIdle
	}
	d.mu.Unlock()
}

// terminate kills the job's process and waits until it has been reaped.
func (j *job) terminate() {
	j.cancel()
	<-j.exited
}

// Wait blocks until the live job, if any, has completed and been reported.
// A job whose process has exited but whose outcome is still being reported
// counts as live.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	j := d.current
	if j == nil {
		j = d.last
	}
	d.mu.Unlock()
	if j == nil {
		return nil
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close kills any live job and rejects further Starts. It is safe to call
// more than once.
func (d *Dispatcher) Close() error {
	d.startMu.Lock()
	defer d.startMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	j := d.current
	last := d.last
	d.current = nil
	d.state = StateIdle
	d.mu.Unlock()

	if j != nil {
		logging.Tactile("Closing dispatcher, terminating job %s", j.id)
		j.terminate()
		<-j.done
	}
	if last != nil {
		<-last.done
	}
	return nil
}
