package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskaudit/taskaudit/internal/config"
)

// Exit codes. A verification or fix run that produces a report exits 0
// even when tasks failed to verify; 1 means the input was too malformed
// to audit safely; 2 means a configuration or usage error.
const (
	exitOK     = 0
	exitInput  = 1
	exitConfig = 2
)

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func inputErr(err error) error  { return &exitError{code: exitInput, err: err} }
func configErr(err error) error { return &exitError{code: exitConfig, err: err} }

var (
	flagConfig  string
	flagRoot    string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "taskaudit",
	Short: "Evidence verification and naming remediation for task documents",
	Long: `Taskaudit audits whether a task document's evidence hooks are backed
by real repository content, and repairs evidence paths that broke when
files were renamed or moved.

Evidence hooks are lines of the form:

  evidence: code path=src/login.ts contains="function login"

A checked box is never trusted: only probed evidence decides whether a
task counts as verified. Broken paths are repaired by a staged fuzzy
search over the repository, and fixes are previewed before any write.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps errors to process exit codes.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var xerr *exitError
		if errors.As(err, &xerr) {
			os.Exit(xerr.code)
		}
		os.Exit(exitConfig)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file (overrides discovery)")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "Repository root to probe (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration for the run.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		cfg, err := config.LoadFromPath(flagConfig)
		if err != nil {
			return nil, configErr(err)
		}
		return cfg, nil
	}
	start, err := os.Getwd()
	if err != nil {
		return nil, configErr(fmt.Errorf("get working directory: %w", err))
	}
	cfg, err := config.Load(start)
	if err != nil {
		return nil, configErr(err)
	}
	return cfg, nil
}

// resolveRoot returns the repository root evidence is probed against.
func resolveRoot() (string, error) {
	if flagRoot != "" {
		return flagRoot, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", configErr(fmt.Errorf("get working directory: %w", err))
	}
	return wd, nil
}

// newLogger builds the run logger. Logs go to stderr so stdout stays
// clean for report output.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if flagVerbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Encoding = "console"
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
