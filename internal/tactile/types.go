// Package tactile is the motor layer of cfsubmit: it turns a platform into a
// keystroke automation strategy and runs that strategy as an external process
// against the browser tab that was just opened.
//
// Design Principles:
//   - Best-effort only: the keystroke sequence is a layout heuristic, and any
//     failure degrades to "finish manually", never to a hard error
//   - One live job per Dispatcher: a new Start terminates the previous process
//   - Cross-platform: macOS, Linux and Windows strategies, everything else unsupported
//   - No orphans: processes run in their own group and are killed on teardown
package tactile

import (
	"errors"
	"strconv"
	"time"
)

// Platform is the host family a strategy is written for.
type Platform string

const (
	PlatformMac         Platform = "darwin"
	PlatformLinux       Platform = "linux"
	PlatformWindows     Platform = "windows"
	PlatformUnsupported Platform = "unsupported"
)

// Command is one external process invocation.
type Command struct {
	// Binary is the interpreter to run (osascript, sh, powershell).
	Binary string `json:"binary"`

	// Arguments are the interpreter arguments, including the script body.
	Arguments []string `json:"arguments"`

	// Environment variables to set (in KEY=VALUE format), merged with the
	// spawner's allowed environment.
	Environment []string `json:"environment,omitempty"`

	// Timeout bounds the whole run. Zero means the spawner default.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// CommandString returns the command line for logs. Script bodies are long,
// so only the interpreter and the number of arguments are shown.
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " (" + strconv.Itoa(len(c.Arguments)) + " args)"
}

// Exit is what a finished process reports.
type Exit struct {
	// ExitCode is the process exit status (-1 if not available).
	ExitCode int `json:"exit_code"`

	// Output is the captured stdout+stderr, possibly truncated.
	Output string `json:"output"`

	// Err is set when the process could not be waited on normally or was
	// killed. A plain nonzero exit leaves Err nil.
	Err error `json:"-"`

	// Killed indicates the process was terminated by cancellation or timeout.
	Killed bool `json:"killed"`

	// KillReason explains why the process was killed.
	KillReason string `json:"kill_reason,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is how long the process ran.
func (e Exit) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// State is the dispatcher lifecycle state.
type State string

const (
	StateIdle        State = "idle"
	StateSpawning    State = "spawning"
	StateRunning     State = "running"
	StateSucceeded   State = "succeeded"
	StateWarned      State = "warned"
	StateUnsupported State = "unsupported"
)

// Reason refines a Warned or Unsupported outcome.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonSpawnError          Reason = "spawn_error"
	ReasonExitNonZero         Reason = "exit_nonzero"
	ReasonTimeout             Reason = "timeout"
	ReasonToolMissing         Reason = "keystroke_tool_missing"
	ReasonPlatformUnsupported Reason = "platform_unsupported"
)

// Outcome is delivered exactly once per started job.
type Outcome struct {
	JobID    string   `json:"job_id"`
	Platform Platform `json:"platform"`
	State    State    `json:"state"`
	Reason   Reason   `json:"reason,omitempty"`
	Exit     *Exit    `json:"exit,omitempty"`
	Label    string   `json:"label,omitempty"`

	// Err carries the spawn error for ReasonSpawnError.
	Err error `json:"-"`
}

// ErrDispatcherClosed is returned by Start after Close.
var ErrDispatcherClosed = errors.New("automation dispatcher is closed")

// SpawnConfig configures the exec-backed spawner.
type SpawnConfig struct {
	// DefaultTimeout applies when Command.Timeout is zero.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// MaxOutputBytes caps output capture.
	MaxOutputBytes int64 `json:"max_output_bytes"`

	// WaitDelay bounds how long Wait keeps reading output after a kill.
	WaitDelay time.Duration `json:"wait_delay"`

	// AllowedEnvironment lists environment variables to pass through.
	// Keystroke tools need the display and session variables.
	AllowedEnvironment []string `json:"allowed_environment"`
}

// DefaultSpawnConfig returns sensible defaults.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		DefaultTimeout: 45 * time.Second,
		MaxOutputBytes: 64 * 1024,
		WaitDelay:      2 * time.Second,
		AllowedEnvironment: []string{
			"PATH", "HOME", "USER", "LANG", "LC_ALL",
			"DISPLAY", "XAUTHORITY", "WAYLAND_DISPLAY", "XDG_RUNTIME_DIR", "DBUS_SESSION_BUS_ADDRESS",
			"SystemRoot", "USERPROFILE", "TEMP", "TMP", "windir",
		},
	}
}
