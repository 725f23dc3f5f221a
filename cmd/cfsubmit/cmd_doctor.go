package main

import (
	"fmt"
	"runtime"

	"cfsubmit/internal/desktop"
	"cfsubmit/internal/tactile"

	"github.com/spf13/cobra"
)

// clipboardAvailable is a package-level variable to allow mocking in tests.
var clipboardAvailable = desktop.SystemClipboard{}.Available

// doctorCmd reports what automation would do on this host without doing it.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check clipboard and keystroke automation support on this host",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	platform := tactile.ParsePlatform(c.Automation.Platform, runtime.GOOS)
	ready := tactile.CheckStrategy(tactile.SelectStrategy(platform, c.GetTiming()))

	fmt.Fprintf(out, "Platform:    %s (%s/%s)\n", platform, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "Clipboard:   %s\n", yesNo(clipboardAvailable()))
	fmt.Fprintf(out, "Automation:  %s\n", enabled(c.Automation.Enabled))
	fmt.Fprintf(out, "Toasts:      %s\n", enabled(c.Notifications.ShowToasts))

	if !ready.Strategy.Supported() {
		fmt.Fprintln(out, "Strategy:    none, paste and submit manually")
		return nil
	}
	fmt.Fprintf(out, "Interpreter: %s %s\n", ready.Strategy.Command.Binary, found(ready.InterpreterFound, ready.InterpreterPath))
	if ready.Strategy.Tool != "" {
		fmt.Fprintf(out, "Keystrokes:  %s %s\n", ready.Strategy.Tool, found(ready.ToolFound, ready.ToolPath))
	}
	fmt.Fprintf(out, "Timeout:     %s\n", c.GetAutomationTimeout())
	fmt.Fprintf(out, "Ready:       %s\n", yesNo(ready.Ready()))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func found(ok bool, path string) string {
	if ok {
		return "(" + path + ")"
	}
	return "(not found)"
}
