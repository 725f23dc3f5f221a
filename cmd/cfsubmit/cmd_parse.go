package main

import (
	"fmt"

	"cfsubmit/internal/problem"

	"github.com/spf13/cobra"
)

// parseCmd shows how a URL is understood without touching the desktop.
var parseCmd = &cobra.Command{
	Use:   "parse <problem-url>",
	Short: "Show the problem reference and submit page for a URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	url := args[0]
	out := cmd.OutOrStdout()

	ref, ok := problem.Parse(url)
	var refPtr *problem.Reference
	if ok {
		refPtr = &ref
		fmt.Fprintf(out, "Kind:    %s\n", ref.Kind)
		fmt.Fprintf(out, "Contest: %s\n", ref.ContestID)
		fmt.Fprintf(out, "Problem: %s\n", ref.Index)
	} else {
		fmt.Fprintln(out, "Kind:    unrecognized")
	}

	target := problem.BuildSubmitTarget(url, refPtr)
	fmt.Fprintf(out, "Submit:  %s\n", target.CanonicalURL)
	if target.Degraded {
		fmt.Fprintln(out, "Note:    best-effort rewrite, the problem may need selecting by hand")
	}
	return nil
}
