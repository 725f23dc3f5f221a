package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cfsubmit/internal/submit"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var submitNoWait bool

// waitGrace is added to the automation timeout when waiting for a job, so
// the spawner's own deadline fires first.
const waitGrace = 5 * time.Second

// submitCmd runs one submission.
var submitCmd = &cobra.Command{
	Use:   "submit <source-file> <problem-url>",
	Short: "Copy the source, open the submit page and automate the paste",
	Long: `Reads the source file, copies it to the clipboard, opens the submit page
derived from the problem URL, and runs the platform's keystroke automation.

Examples:
  cfsubmit submit a.cpp https://codeforces.com/contest/1500/problem/C1
  cfsubmit submit b.py https://codeforces.com/problemset/problem/4/A`,
	Args: cobra.ExactArgs(2),
	RunE: runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := buildOrchestrator(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer orch.Close()

	req := submit.Request{SourcePath: args[0], ProblemURL: args[1]}
	logger.Debug("submitting", zap.String("source", req.SourcePath), zap.String("url", req.ProblemURL))

	res, err := orch.Submit(ctx, req)
	if err != nil {
		logger.Error("submission failed", zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Opened %s\n", res.Target.CanonicalURL)
	if res.ClipboardErr != nil {
		fmt.Fprintf(out, "Clipboard unavailable (%v): copy the file by hand\n", res.ClipboardErr)
	}

	if !res.AutomationStarted || submitNoWait {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.GetAutomationTimeout()+waitGrace)
	defer cancel()
	if err := orch.Wait(waitCtx); err != nil {
		// Interrupted or overdue: Close kills the job. The page is open
		// either way.
		logger.Warn("automation did not finish", zap.String("job", res.JobID), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintln(out, "Automation still running at deadline, stopped it")
		}
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
