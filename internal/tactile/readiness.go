package tactile

import (
	"os/exec"
)

// lookPath is a package-level variable to allow mocking in tests.
var lookPath = exec.LookPath

// Readiness reports whether a strategy can actually run on this host.
type Readiness struct {
	Strategy Strategy `json:"strategy"`

	InterpreterPath  string `json:"interpreter_path,omitempty"`
	InterpreterFound bool   `json:"interpreter_found"`

	ToolPath  string `json:"tool_path,omitempty"`
	ToolFound bool   `json:"tool_found"`
}

// Ready is true when the interpreter exists and any required keystroke tool
// is installed.
func (r Readiness) Ready() bool {
	if !r.Strategy.Supported() || !r.InterpreterFound {
		return false
	}
	return r.Strategy.Tool == "" || r.ToolFound
}

// CheckStrategy looks up the strategy's interpreter and tool on PATH. It
// never runs them.
func CheckStrategy(s Strategy) Readiness {
	r := Readiness{Strategy: s}
	if !s.Supported() {
		return r
	}
	if path, err := lookPath(s.Command.Binary); err == nil {
		r.InterpreterPath = path
		r.InterpreterFound = true
	}
	if s.Tool != "" {
		if path, err := lookPath(s.Tool); err == nil {
			r.ToolPath = path
			r.ToolFound = true
		}
	}
	return r
}
