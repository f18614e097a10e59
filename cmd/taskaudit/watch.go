package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskaudit/taskaudit/internal/probe"
	"github.com/taskaudit/taskaudit/internal/report"
	"github.com/taskaudit/taskaudit/internal/score"
	"github.com/taskaudit/taskaudit/internal/taskdoc"
	"github.com/taskaudit/taskaudit/internal/verify"
	"github.com/taskaudit/taskaudit/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <tasks.md>",
	Short: "Re-verify the task document whenever it changes",
	Long: `Watch runs an initial verification and then re-runs it every time
the task document is saved. Output is the human-readable report; stop
with Ctrl-C.

Examples:
  taskaudit watch TASKS.md
  taskaudit watch TASKS.md --debounce 1s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before re-verifying")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root, err := resolveRoot()
	if err != nil {
		return err
	}

	logger := newLogger()
	defer logger.Sync()

	p, err := probe.New(root, cfg.Limits, logger)
	if err != nil {
		return configErr(fmt.Errorf("open repository root: %w", err))
	}
	verifier := verify.New(score.New(p, logger), cfg.Verify, logger)

	docPath := args[0]
	runOnce := func() {
		doc, err := taskdoc.Load(docPath)
		if err != nil {
			logger.Error("load task document", zap.Error(err))
			return
		}
		tasks, timedOut, err := verifier.Verify(cmd.Context(), doc)
		if err != nil {
			logger.Error("verify", zap.Error(err))
			return
		}
		rep := &report.Report{
			RunID:       uuid.New().String()[:8],
			GeneratedAt: time.Now().UTC(),
			Document:    doc.Path,
			Root:        p.Root(),
			TimedOut:    timedOut,
			Tasks:       tasks,
		}
		rep.Tally()
		rep.WriteHuman(os.Stdout)
	}

	runOnce()
	err = watch.Run(cmd.Context(), docPath, watchDebounce, logger, runOnce)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
