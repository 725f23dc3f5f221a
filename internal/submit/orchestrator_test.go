package submit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cfsubmit/internal/config"
	"cfsubmit/internal/notify"
	"cfsubmit/internal/tactile"
)

type fakeClipboard struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (c *fakeClipboard) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return c.err
}

type fakeBrowser struct {
	mu   sync.Mutex
	urls []string
	fail bool
}

func (b *fakeBrowser) OpenURL(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.urls = append(b.urls, url)
	return !b.fail
}

type notifications struct {
	mu  sync.Mutex
	got []notify.Notification
	ch  chan notify.Notification
}

func newNotifications() *notifications {
	return &notifications{ch: make(chan notify.Notification, 32)}
}

func (n *notifications) Notify(note notify.Notification) {
	n.mu.Lock()
	n.got = append(n.got, note)
	n.mu.Unlock()
	n.ch <- note
}

func (n *notifications) all() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.got...)
}

func (n *notifications) bodies() []string {
	var out []string
	for _, note := range n.all() {
		out = append(out, note.Body)
	}
	return out
}

// waitFor drains notifications until one with body arrives.
func (n *notifications) waitFor(t *testing.T, body string) notify.Notification {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case note := <-n.ch:
			if note.Body == body {
				return note
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q, got %v", body, n.bodies())
			return notify.Notification{}
		}
	}
}

// scriptedProcess exits with a preset result or when killed.
type scriptedProcess struct {
	ctx  context.Context
	exit tactile.Exit
}

func (p *scriptedProcess) Pid() int { return 4242 }

func (p *scriptedProcess) Wait() tactile.Exit {
	if p.exit.Killed {
		<-p.ctx.Done()
	}
	return p.exit
}

type scriptedSpawner struct {
	mu       sync.Mutex
	commands []tactile.Command
	exit     tactile.Exit
	err      error
}

func (s *scriptedSpawner) Spawn(ctx context.Context, cmd tactile.Command) (tactile.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	if s.err != nil {
		return nil, s.err
	}
	return &scriptedProcess{ctx: ctx, exit: s.exit}, nil
}

func (s *scriptedSpawner) spawned() []tactile.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tactile.Command(nil), s.commands...)
}

type harness struct {
	clipboard *fakeClipboard
	browser   *fakeBrowser
	notes     *notifications
	spawner   *scriptedSpawner
	orch      *Orchestrator
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		clipboard: &fakeClipboard{},
		browser:   &fakeBrowser{},
		notes:     newNotifications(),
		spawner:   &scriptedSpawner{},
	}
	opts := Options{
		Clipboard:         h.clipboard,
		Browser:           h.browser,
		Notifier:          h.notes,
		Spawner:           h.spawner,
		Platform:          tactile.PlatformLinux,
		AutomationTimeout: 30 * time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.orch = NewOrchestrator(opts)
	t.Cleanup(func() { _ = h.orch.Close() })
	return h
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.cpp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSubmit_HappyPath(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, nil)

	src := writeSource(t, "int main() { return 0; }\n")
	res, err := h.orch.Submit(context.Background(), Request{
		SourcePath: src,
		ProblemURL: "https://codeforces.com/contest/1500/problem/C1",
	})
	require.NoError(t, err)

	require.NotNil(t, res.Reference)
	assert.Equal(t, "1500", res.Reference.ContestID)
	assert.Equal(t, "https://codeforces.com/contest/1500/submit/C1", res.Target.CanonicalURL)
	assert.True(t, res.AutomationStarted)
	assert.NotEmpty(t, res.JobID)
	assert.NoError(t, res.ClipboardErr)

	assert.Equal(t, []string{"int main() { return 0; }\n"}, h.clipboard.texts)
	assert.Equal(t, []string{"https://codeforces.com/contest/1500/submit/C1"}, h.browser.urls)

	note := h.notes.waitFor(t, BodySubmitted)
	assert.Equal(t, "Contest 1500 Problem C1", note.Title)
	assert.Equal(t, notify.LevelInfo, note.Level)
	require.NoError(t, h.orch.Wait(context.Background()))

	assert.Equal(t, []string{BodyOpened, BodySubmitted}, h.notes.bodies())

	cmds := h.spawner.spawned()
	require.Len(t, cmds, 1)
	assert.Equal(t, "sh", cmds[0].Binary)
	assert.Equal(t, 30*time.Second, cmds[0].Timeout)
}

func TestSubmit_MissingFileHasNoSideEffects(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, nil)

	_, err := h.orch.Submit(context.Background(), Request{
		SourcePath: filepath.Join(t.TempDir(), "missing.cpp"),
		ProblemURL: "https://codeforces.com/contest/1/problem/A",
	})
	assert.ErrorIs(t, err, ErrFileRead)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Empty(t, h.clipboard.texts)
	assert.Empty(t, h.browser.urls)
	assert.Empty(t, h.spawner.spawned())
	notes := h.notes.all()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelError, notes[0].Level)
	assert.Equal(t, "Contest 1 Problem A", notes[0].Title)
}

func TestSubmit_WhitespaceFileHasNoSideEffects(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, nil)

	_, err := h.orch.Submit(context.Background(), Request{
		SourcePath: writeSource(t, " \n\t\r\n"),
		ProblemURL: "https://codeforces.com/contest/1/problem/A",
	})
	assert.ErrorIs(t, err, ErrEmptySource)
	assert.Empty(t, h.clipboard.texts)
	assert.Empty(t, h.browser.urls)
	assert.Empty(t, h.spawner.spawned())
	assert.Equal(t, []string{BodyEmptySource}, h.notes.bodies())
}

func TestSubmit_BrowserFailureSkipsAutomation(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, nil)
	h.browser.fail = true

	res, err := h.orch.Submit(context.Background(), Request{
		SourcePath: writeSource(t, "x"),
		ProblemURL: "https://codeforces.com/problemset/problem/4/A",
	})
	assert.ErrorIs(t, err, ErrBrowserLaunch)
	require.NotNil(t, res)
	assert.Equal(t, "https://codeforces.com/contest/4/submit/A", res.Target.CanonicalURL)

	assert.Equal(t, []string{"x"}, h.clipboard.texts, "clipboard is set before the browser")
	assert.Empty(t, h.spawner.spawned())
	assert.Equal(t, []string{BodyBrowserFailed}, h.notes.bodies())
}

func TestSubmit_UnsupportedPlatformAdvisesOnce(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, func(o *Options) { o.Platform = tactile.PlatformUnsupported })

	res, err := h.orch.Submit(context.Background(), Request{
		SourcePath: writeSource(t, "code"),
		ProblemURL: "https://codeforces.com/gym/102345/problem/B",
	})
	require.NoError(t, err)
	assert.False(t, res.AutomationStarted)

	assert.Equal(t, []string{"code"}, h.clipboard.texts)
	assert.Equal(t, []string{"https://codeforces.com/gym/102345/submit/B"}, h.browser.urls)
	assert.Empty(t, h.spawner.spawned())
	assert.Equal(t, []string{BodyOpened, BodyManual}, h.notes.bodies())
}

func TestSubmit_UnparsedURLStillAutomatesByDefault(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, nil)

	res, err := h.orch.Submit(context.Background(), Request{
		SourcePath: writeSource(t, "code"),
		ProblemURL: "https://example.org/problem/X?ref=1",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Reference)
	assert.True(t, res.Target.Degraded)
	assert.Equal(t, "https://example.org/submit", res.Target.CanonicalURL)
	assert.True(t, res.AutomationStarted)

	note := h.notes.waitFor(t, BodySubmitted)
	assert.Equal(t, DefaultTitle, note.Title)
}

func TestSubmit_RequireProblemRefSkipsAutomation(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, func(o *Options) { o.RequireProblemRef = true })

	res, err := h.orch.Submit(context.Background(), Request{
		SourcePath: writeSource(t, "code"),
		ProblemURL: "https://example.org/problem/X",
	})
	require.NoError(t, err)
	assert.False(t, res.AutomationStarted)
	assert.Empty(t, h.spawner.spawned())
	assert.Equal(t, []string{BodyOpened, BodyManual}, h.notes.bodies())
}

func TestSubmit_AutomationDisabled(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, func(o *Options) { o.DisableAutomation = true })

	_, err := h.orch.Submit(context.Background(), Request{
		SourcePath: writeSource(t, "code"),
		ProblemURL: "https://codeforces.com/contest/1/problem/A",
	})
	require.NoError(t, err)
	assert.Empty(t, h.spawner.spawned())
	assert.Equal(t, []string{BodyOpened, BodyManual}, h.notes.bodies())
}

func TestSubmit_ClipboardErrorContinues(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, nil)
	h.clipboard.err = errors.New("no xclip")

	res, err := h.orch.Submit(context.Background(), Request{
		SourcePath: writeSource(t, "code"),
		ProblemURL: "https://codeforces.com/contest/1/problem/A",
	})
	require.NoError(t, err)
	assert.EqualError(t, res.ClipboardErr, "no xclip")
	assert.Len(t, h.browser.urls, 1)
	h.notes.waitFor(t, BodySubmitted)
	assert.Equal(t, BodyClipboardFailed, h.notes.all()[0].Body)
}

func TestSubmit_AutomationOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		exit  tactile.Exit
		err   error
		body  string
		level notify.Level
	}{
		{"nonzero exit", tactile.Exit{ExitCode: 1}, nil, BodyCheckBrowser, notify.LevelWarn},
		{"spawn error", tactile.Exit{}, errors.New("exec: not found"), BodyCheckBrowser, notify.LevelWarn},
		{"tool missing", tactile.Exit{Output: tactile.ToolMissingMarker}, nil, BodyManual, notify.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)
			h := newHarness(t, nil)
			h.spawner.exit = tt.exit
			h.spawner.err = tt.err

			res, err := h.orch.Submit(context.Background(), Request{
				SourcePath: writeSource(t, "code"),
				ProblemURL: "https://codeforces.com/contest/1/problem/A",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.err == nil, res.AutomationStarted, "a failed spawn leaves no running automation")

			note := h.notes.waitFor(t, tt.body)
			assert.Equal(t, tt.level, note.Level)
			assert.Equal(t, "Contest 1 Problem A", note.Title)
			require.NoError(t, h.orch.Wait(context.Background()))
		})
	}
}

func TestSubmit_ResubmitSupersedesRunningJob(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, nil)
	// Processes hang until killed.
	h.spawner.exit = tactile.Exit{ExitCode: -1, Killed: true, KillReason: "context canceled"}

	req := Request{
		SourcePath: writeSource(t, "code"),
		ProblemURL: "https://codeforces.com/contest/1/problem/A",
	}
	first, err := h.orch.Submit(context.Background(), req)
	require.NoError(t, err)
	second, err := h.orch.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.JobID, second.JobID)
	assert.Equal(t, second.JobID, h.orch.Dispatcher().CurrentJobID())
	assert.Len(t, h.spawner.spawned(), 2)

	require.NoError(t, h.orch.Close())
	assert.Equal(t, []string{BodyOpened, BodyOpened}, h.notes.bodies(), "killed jobs do not report")
}

func TestSubmit_AfterCloseFallsBackToManual(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, nil)
	require.NoError(t, h.orch.Close())

	res, err := h.orch.Submit(context.Background(), Request{
		SourcePath: writeSource(t, "code"),
		ProblemURL: "https://codeforces.com/contest/1/problem/A",
	})
	require.NoError(t, err)
	assert.False(t, res.AutomationStarted)
	assert.Equal(t, []string{BodyOpened, BodyManual}, h.notes.bodies())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Automation.Platform = "windows"
	cfg.Automation.Timeout = "12s"
	cfg.Automation.RequireProblemRef = true

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, tactile.PlatformWindows, opts.Platform)
	assert.Equal(t, 12*time.Second, opts.AutomationTimeout)
	assert.False(t, opts.DisableAutomation)

	cfg.Automation.Enabled = false
	assert.True(t, OptionsFromConfig(cfg).DisableAutomation)
	assert.True(t, opts.RequireProblemRef)
	assert.Equal(t, tactile.DefaultTiming(), opts.Timing)
}

func TestNewOrchestrator_ZeroOptionsAutomate(t *testing.T) {
	defer goleak.VerifyNone(t)

	spawner := &scriptedSpawner{}
	orch := NewOrchestrator(Options{
		Clipboard: &fakeClipboard{},
		Browser:   &fakeBrowser{},
		Spawner:   spawner,
		Platform:  tactile.PlatformLinux,
	})
	defer orch.Close()

	path := filepath.Join(t.TempDir(), "a.cpp")
	require.NoError(t, os.WriteFile(path, []byte("code"), 0644))

	res, err := orch.Submit(context.Background(), Request{
		SourcePath: path,
		ProblemURL: "https://codeforces.com/contest/1/problem/A",
	})
	require.NoError(t, err)
	assert.True(t, res.AutomationStarted)
	assert.Len(t, spawner.spawned(), 1)
	require.NoError(t, orch.Wait(context.Background()))
}
