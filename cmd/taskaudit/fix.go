package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskaudit/taskaudit/internal/config"
	"github.com/taskaudit/taskaudit/internal/history"
	"github.com/taskaudit/taskaudit/internal/patch"
	"github.com/taskaudit/taskaudit/internal/probe"
	"github.com/taskaudit/taskaudit/internal/remediate"
	"github.com/taskaudit/taskaudit/internal/report"
	"github.com/taskaudit/taskaudit/internal/search"
	"github.com/taskaudit/taskaudit/internal/taskdoc"
)

var (
	fixApply bool
	fixJSON  bool
	fixYAML  bool
)

var fixCmd = &cobra.Command{
	Use:   "fix <tasks.md>",
	Short: "Repair evidence paths broken by renames and moves",
	Long: `Fix finds evidence hooks whose path no longer resolves and searches
the repository for the file's new location, scoring candidates by
filename, shared keywords, directory proximity and extension.

One clear candidate becomes an automatic rewrite of the path token on
the evidence line; near-tied candidates are listed for manual review;
paths with no plausible replacement are reported unresolved.

By default fix only previews. Nothing is written without --apply, and
an applied fix rewrites only the matched path token, leaving the rest
of the document byte-identical.

Examples:
  taskaudit fix TASKS.md           # Preview the remediation plan
  taskaudit fix TASKS.md --apply   # Rewrite clear fixes in place
  taskaudit fix TASKS.md --yaml    # Emit the plan as a YAML artifact`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&fixApply, "apply", false, "Apply automatic fixes to the document")
	fixCmd.Flags().BoolVar(&fixJSON, "json", false, "Output the plan in JSON format")
	fixCmd.Flags().BoolVar(&fixYAML, "yaml", false, "Output the plan in YAML format")
}

func runFix(cmd *cobra.Command, args []string) error {
	if fixJSON && fixYAML {
		return configErr(fmt.Errorf("--json and --yaml are mutually exclusive"))
	}

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

	doc, err := taskdoc.Load(args[0])
	if err != nil {
		return inputErr(err)
	}

	p, err := probe.New(root, cfg.Limits, logger)
	if err != nil {
		return configErr(fmt.Errorf("open repository root: %w", err))
	}

	aliases, err := loadAliases()
	if err != nil {
		return configErr(err)
	}

	engine := search.NewEngine(p, cfg.Similarity, cfg.Search, aliases, logger)
	planner := remediate.NewPlanner(p, engine, cfg.Search.TieMargin, logger)

	plan, err := planner.Plan(cmd.Context(), doc)
	if err != nil {
		return inputErr(err)
	}

	if fixApply {
		edits := remediate.BuildEdits(plan)
		if len(edits) > 0 {
			res, err := patch.NewApplier(logger).Apply(doc.Path, edits)
			if err != nil {
				return inputErr(fmt.Errorf("apply fixes: %w", err))
			}
			for _, c := range res.Conflicts {
				logger.Warn("fix skipped",
					zap.String("task", c.TaskID),
					zap.Int("line", c.Line),
					zap.String("reason", c.Reason))
			}
		}
	}

	if err := journalFixRun(cfg, plan); err != nil {
		logger.Warn("journal run: " + err.Error())
	}

	switch {
	case fixJSON:
		return report.WritePlanJSON(os.Stdout, plan)
	case fixYAML:
		return report.WritePlanYAML(os.Stdout, plan)
	default:
		return report.WriteRemediationHuman(os.Stdout, plan, fixApply)
	}
}

// loadAliases reads the related-package table from the project config
// file, if one exists.
func loadAliases() (*search.AliasTable, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	path := flagConfig
	if path == "" {
		path = config.FindProjectConfig(wd)
	}
	if path == "" {
		return search.NewAliasTable(nil), nil
	}
	return search.LoadAliasFile(path)
}

func journalFixRun(cfg *config.Config, plan *remediate.Plan) error {
	if !cfg.History.Enabled {
		return nil
	}
	path := cfg.History.Path
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		path = history.ProjectPath(wd)
	}
	db, err := history.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.AppendRun(history.Record{
		RunID:       plan.RunID,
		Kind:        history.KindFix,
		Document:    plan.Document,
		GeneratedAt: plan.GeneratedAt,
		Fixes:       len(plan.Fixes()),
		Reviews:     len(plan.Reviews()),
		Unresolved:  len(plan.Unresolved()),
	})
}
