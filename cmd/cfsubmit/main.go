package main

import (
	"fmt"
	"os"

	"cfsubmit/internal/config"
	"cfsubmit/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is the tool version reported by `cfsubmit version`.
const Version = "1.0.0"

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Loaded by PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cfsubmit",
	Short: "cfsubmit - submit a local solution through the judge's web page",
	Long: `cfsubmit copies a solution file to the clipboard, opens the judge's
submit page for the problem you are viewing, and then drives the keyboard to
paste the code and press submit.

No judge API or account credentials are used. If automation cannot run, the
code is already on the clipboard and the page is open: paste and submit.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if _, err := loadConfig(); err != nil {
			return err
		}
		return nil
	},
}

// shutdown flushes both log layers. It runs after Execute whatever the
// outcome, since cobra skips post-run hooks when RunE fails.
func shutdown() {
	logging.CloseAll()
	if logger != nil {
		_ = logger.Sync()
	}
}

// resolveWorkspace returns --workspace or the nearest directory holding
// .cfsubmit.
func resolveWorkspace() (string, error) {
	if workspace != "" {
		return workspace, nil
	}
	return config.FindWorkspaceRoot()
}

// loadConfig loads and validates configuration once, then initializes the
// categorized file logs.
func loadConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	ws, err := resolveWorkspace()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath(ws)
	}

	loaded, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := logging.Initialize(ws, logging.Options{
		DebugMode:  loaded.Logging.DebugMode || verbose,
		Categories: loaded.Logging.Categories,
		Level:      loaded.Logging.Level,
		JSONFormat: loaded.Logging.Format == "json",
	}); err != nil {
		// File logs are diagnostics only.
		logger.Warn("failed to initialize file logging", zap.Error(err))
	}
	logging.Boot("Config loaded from %s (workspace %s)", path, ws)
	logging.BootDebug("Automation: enabled=%v platform=%q timeout=%s require_problem_ref=%v",
		loaded.Automation.Enabled, loaded.Automation.Platform, loaded.GetAutomationTimeout(), loaded.Automation.RequireProblemRef)

	cfg = loaded
	return cfg, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: nearest with .cfsubmit, else current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.cfsubmit/config.yaml)")

	// Submit flags
	submitCmd.Flags().BoolVar(&submitNoWait, "no-wait", false, "Return as soon as automation has started")

	// Watch flags
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period after a save before resubmitting (default 500ms)")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "Submit once immediately on start")

	// Add commands to root
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	err := rootCmd.Execute()
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
