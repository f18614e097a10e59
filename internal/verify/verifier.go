// Package verify runs the evidence verification pipeline: every task in
// the document is probed concurrently, each hook scored, and the per-hook
// results aggregated into a task status. The checkbox state in the
// document is never trusted; only probed evidence decides the status.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taskaudit/taskaudit/internal/config"
	"github.com/taskaudit/taskaudit/internal/score"
	"github.com/taskaudit/taskaudit/internal/taskdoc"
	"github.com/taskaudit/taskaudit/pkg/models"
)

// Verifier verifies one task document against a repository root.
type Verifier struct {
	scorer *score.Scorer
	cfg    config.VerifyConfig
	logger *zap.Logger
}

// New creates a Verifier.
func New(scorer *score.Scorer, cfg config.VerifyConfig, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Verifier{scorer: scorer, cfg: cfg, logger: logger}
}

// Verify evaluates every task in the document and returns the records with
// Results, Status and Confidence populated. The returned bool reports
// whether the run budget expired; tasks the budget cut off are marked
// needs_manual rather than dropped. The error is non-nil only when the
// caller's context was cancelled.
func (v *Verifier) Verify(ctx context.Context, doc *taskdoc.Document) ([]models.TaskRecord, bool, error) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if v.cfg.RunBudget > 0 {
		runCtx, cancel = context.WithTimeout(ctx, v.cfg.RunBudget)
	}
	defer cancel()

	tasks := make([]models.TaskRecord, len(doc.Tasks))
	copy(tasks, doc.Tasks)

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(v.cfg.Workers)
	for i := range tasks {
		g.Go(func() error {
			v.verifyTask(gctx, &tasks[i])
			return nil
		})
	}
	// Workers never return errors; cut-off tasks are marked, not failed.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("verification cancelled: %w", err)
	}

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	if timedOut {
		v.logger.Warn("run budget expired",
			zap.Duration("budget", v.cfg.RunBudget),
			zap.Duration("elapsed", time.Since(start)))
	}

	return tasks, timedOut, nil
}

// verifyTask scores every hook on the task and aggregates the status.
func (v *Verifier) verifyTask(ctx context.Context, t *models.TaskRecord) {
	if len(t.Evidence) == 0 {
		t.Status = models.StatusMissingHooks
		t.Confidence = models.ConfidenceLow
		t.SuggestedHooks = missingHookSuggestions()
		return
	}

	t.Results = make([]models.VerificationResult, len(t.Evidence))
	for i, h := range t.Evidence {
		if ctx.Err() != nil {
			t.Results[i] = models.VerificationResult{
				Scope:      models.ScopeNeedsManual,
				Confidence: models.ConfidenceLow,
				Detail:     "run budget expired before this hook was probed",
			}
			continue
		}
		t.Results[i] = v.scorer.Evaluate(ctx, h)
	}

	v.aggregate(t)
}

// aggregate folds the per-hook results into a task status and confidence.
// Invalid scope outranks everything; one structurally unverifiable hook
// makes the whole task needs_manual; verified requires every hook matched
// at the confidence bar.
func (v *Verifier) aggregate(t *models.TaskRecord) {
	var hasInvalid, hasManual bool
	allMatched := true
	weakest := models.ConfidenceHigh

	for _, r := range t.Results {
		switch r.Scope {
		case models.ScopeInvalid, models.ScopeInvalidScope:
			hasInvalid = true
		case models.ScopeNeedsManual:
			hasManual = true
		}
		if !r.Matched {
			allMatched = false
		}
		if weakest.AtLeast(r.Confidence) {
			weakest = r.Confidence
		}
	}
	t.Confidence = weakest

	bar := models.ConfidenceHigh
	if v.cfg.AllowMedium {
		bar = models.ConfidenceMedium
	}

	switch {
	case hasInvalid:
		t.Status = models.StatusInvalidScope
	case hasManual:
		t.Status = models.StatusNeedsManual
	case allMatched && weakest.AtLeast(bar):
		t.Status = models.StatusVerified
	default:
		t.Status = models.StatusNotVerified
	}
	t.Verified = t.Status == models.StatusVerified
	if !t.Verified {
		t.SuggestedHooks = strengthenSuggestions(t)
	}
}

// missingHookSuggestions offers one template per hook family for a task
// with no evidence lines at all.
func missingHookSuggestions() []string {
	return []string{
		`evidence: code path=<relative/file> symbol=<identifier>`,
		`evidence: test path=<relative/test-file> contains=<case name>`,
		`evidence: docs path=<relative/doc.md> heading=<section>`,
	}
}

// strengthenSuggestions proposes a stronger matcher for each hook that
// fell short of the confidence bar, including existence-only hooks that
// matched but capped at medium.
func strengthenSuggestions(t *models.TaskRecord) []string {
	var out []string
	for i, h := range t.Evidence {
		if i < len(t.Results) && t.Results[i].Matched &&
			t.Results[i].Confidence == models.ConfidenceHigh {
			continue
		}
		if h.Path() == "" {
			continue
		}
		var tmpl string
		switch h.Type {
		case models.HookTypeCode:
			tmpl = fmt.Sprintf("evidence: code path=%s symbol=<identifier>", h.Path())
		case models.HookTypeTest:
			tmpl = fmt.Sprintf("evidence: test path=%s contains=<case name>", h.Path())
		case models.HookTypeDocs:
			tmpl = fmt.Sprintf("evidence: docs path=%s heading=<section>", h.Path())
		case models.HookTypeUi:
			tmpl = fmt.Sprintf("evidence: ui path=%s selector=<css selector> contains=<visible text>", h.Path())
		default:
			continue
		}
		out = append(out, tmpl)
	}
	return out
}
