package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"cfsubmit/internal/logging"
)

// Process is a started automation process.
type Process interface {
	// Pid is the OS process id, for logs.
	Pid() int

	// Wait blocks until the process exits and reports how it ended.
	// It must be called exactly once.
	Wait() Exit
}

// Spawner starts processes. Cancelling ctx must terminate the process.
type Spawner interface {
	Spawn(ctx context.Context, cmd Command) (Process, error)
}

// ExecSpawner starts commands directly on the host using os/exec.
type ExecSpawner struct {
	config SpawnConfig
}

// NewExecSpawner creates a spawner with default config.
func NewExecSpawner() *ExecSpawner {
	return NewExecSpawnerWithConfig(DefaultSpawnConfig())
}

// NewExecSpawnerWithConfig creates a spawner with custom config.
func NewExecSpawnerWithConfig(config SpawnConfig) *ExecSpawner {
	logging.TactileDebug("Creating ExecSpawner: timeout=%s, maxOutput=%d bytes",
		config.DefaultTimeout, config.MaxOutputBytes)
	return &ExecSpawner{config: config}
}

// Validate checks if a command can be started.
func (s *ExecSpawner) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	return nil
}

// Spawn starts cmd in its own process group and returns without waiting.
// The process is killed, group included, when ctx is done or the timeout
// elapses.
func (s *ExecSpawner) Spawn(ctx context.Context, cmd Command) (Process, error) {
	if err := s.Validate(cmd); err != nil {
		return nil, err
	}

	timeout := s.config.DefaultTimeout
	if cmd.Timeout > 0 {
		timeout = cmd.Timeout
	}

	var execCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		execCtx, cancel = context.WithCancel(ctx)
	}

	c := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	c.Env = s.buildEnvironment(cmd.Environment)
	setupProcessGroup(c)
	c.Cancel = func() error { return killProcessGroup(c) }
	c.WaitDelay = s.config.WaitDelay

	var out bytes.Buffer
	lw := &limitedWriter{w: &out, max: s.config.MaxOutputBytes}
	c.Stdout = lw
	c.Stderr = lw

	startedAt := time.Now()
	if err := c.Start(); err != nil {
		cancel()
		logging.TactileWarn("Failed to start %s: %v", cmd.CommandString(), err)
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Binary, err)
	}
	logging.TactileDebug("Started %s (pid=%d, timeout=%s)", cmd.CommandString(), c.Process.Pid, timeout)

	return &execProcess{
		cmd:       c,
		ctx:       execCtx,
		cancel:    cancel,
		out:       &out,
		writer:    lw,
		timeout:   timeout,
		startedAt: startedAt,
	}, nil
}

// buildEnvironment creates the environment variable list.
func (s *ExecSpawner) buildEnvironment(cmdEnv []string) []string {
	env := make([]string, 0, len(s.config.AllowedEnvironment)+len(cmdEnv))
	for _, key := range s.config.AllowedEnvironment {
		if val := os.Getenv(key); val != "" {
			env = append(env, fmt.Sprintf("%s=%s", key, val))
		}
	}
	return append(env, cmdEnv...)
}

type execProcess struct {
	cmd       *exec.Cmd
	ctx       context.Context
	cancel    context.CancelFunc
	out       *bytes.Buffer
	writer    *limitedWriter
	timeout   time.Duration
	startedAt time.Time
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() Exit {
	defer p.cancel()

	err := p.cmd.Wait()
	exit := Exit{
		ExitCode:   -1,
		Output:     p.out.String(),
		StartedAt:  p.startedAt,
		FinishedAt: time.Now(),
	}
	if p.writer.truncated {
		logging.TactileWarn("Automation output truncated: %d bytes discarded", p.writer.discarded)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		exit.ExitCode = 0
	case errors.Is(p.ctx.Err(), context.DeadlineExceeded):
		exit.Killed = true
		exit.KillReason = fmt.Sprintf("timeout after %s", p.timeout)
		exit.Err = err
	case errors.Is(p.ctx.Err(), context.Canceled):
		exit.Killed = true
		exit.KillReason = "context canceled"
		exit.Err = err
	case errors.As(err, &exitErr):
		exit.ExitCode = exitErr.ExitCode()
	default:
		exit.Err = err
	}
	return exit
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.max <= 0 {
		return lw.w.Write(p)
	}

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil // Pretend we wrote it
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // Original length avoids "short write" errors
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
