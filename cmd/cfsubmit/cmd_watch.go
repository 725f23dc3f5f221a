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
	"cfsubmit/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchDebounce time.Duration
	watchInitial  bool
)

// watchCmd resubmits on every save. A new save supersedes automation that is
// still running for the previous one.
var watchCmd = &cobra.Command{
	Use:   "watch <source-file> <problem-url>",
	Short: "Resubmit every time the source file is saved",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := buildOrchestrator(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer orch.Close()

	req := submit.Request{SourcePath: args[0], ProblemURL: args[1]}
	out := cmd.OutOrStdout()

	resubmit := func(ctx context.Context) {
		res, err := orch.Submit(ctx, req)
		switch {
		case errors.Is(err, submit.ErrEmptySource), errors.Is(err, submit.ErrFileRead):
			// Mid-save states; the next event retries.
			logger.Warn("skipping save", zap.Error(err))
		case err != nil:
			logger.Error("submission failed", zap.Error(err))
		default:
			fmt.Fprintf(out, "Opened %s\n", res.Target.CanonicalURL)
		}
	}

	sw, err := watch.New(req.SourcePath, watchDebounce, resubmit)
	if err != nil {
		return err
	}

	if watchInitial {
		resubmit(ctx)
	}
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", req.SourcePath)
	return sw.Run(ctx)
}
