// Package remediate decides what to do about evidence hooks whose path no
// longer resolves: repair them automatically when the candidate search
// produced one clear replacement, or hand near-tied candidates to a human.
// Decisions are produced fresh each run and are never applied without an
// explicit apply request.
package remediate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskaudit/taskaudit/internal/probe"
	"github.com/taskaudit/taskaudit/internal/search"
	"github.com/taskaudit/taskaudit/internal/taskdoc"
	"github.com/taskaudit/taskaudit/pkg/models"
)

// Issue identifies one broken evidence path.
type Issue struct {
	// TaskID is the owning task.
	TaskID string `json:"task_id"`
	// Title is the owning task's title.
	Title string `json:"title"`
	// OldPath is the evidence path that no longer resolves.
	OldPath string `json:"old_path"`
	// Line is the document line carrying the hook.
	Line int `json:"line"`
	// Raw is the hook line as read during planning; the applier verifies
	// it is still on disk before editing.
	Raw string `json:"-"`
}

// Outcome is the planner's result for one broken path: an automatic fix,
// a manual review, or (when Decision is nil) an unresolved naming issue.
type Outcome struct {
	Issue Issue `json:"issue"`
	// Decision is nil when no candidate qualified.
	Decision *models.RemediationDecision `json:"decision,omitempty"`
	// StagesScanned records how far the candidate search went.
	StagesScanned []string `json:"stages_scanned"`
}

// Plan is the remediation plan for one task document.
type Plan struct {
	// RunID identifies this planning run.
	RunID string `json:"run_id"`
	// GeneratedAt is when the plan was produced.
	GeneratedAt time.Time `json:"generated_at"`
	// Document is the task document the plan targets.
	Document string `json:"document"`
	// Outcomes holds one entry per broken evidence path, in document
	// order.
	Outcomes []Outcome `json:"outcomes"`
}

// Fixes returns the outcomes that carry an automatic fix.
func (p *Plan) Fixes() []Outcome {
	var out []Outcome
	for _, o := range p.Outcomes {
		if o.Decision != nil && o.Decision.Fix != nil {
			out = append(out, o)
		}
	}
	return out
}

// Reviews returns the outcomes that need a manual decision.
func (p *Plan) Reviews() []Outcome {
	var out []Outcome
	for _, o := range p.Outcomes {
		if o.Decision != nil && o.Decision.Review != nil {
			out = append(out, o)
		}
	}
	return out
}

// Unresolved returns the outcomes with no qualifying candidate.
func (p *Plan) Unresolved() []Outcome {
	var out []Outcome
	for _, o := range p.Outcomes {
		if o.Decision == nil {
			out = append(out, o)
		}
	}
	return out
}

// Planner builds remediation plans.
type Planner struct {
	probe     *probe.Probe
	engine    *search.Engine
	tieMargin float64
	logger    *zap.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(p *probe.Probe, engine *search.Engine, tieMargin float64, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{probe: p, engine: engine, tieMargin: tieMargin, logger: logger}
}

// Plan scans the document for evidence hooks whose path does not resolve
// and produces exactly one decision (or unresolved outcome) per task that
// requires remediation. When a task carries several broken hooks, the
// first one in document order is planned and the rest are reported
// unresolved, so one run never stacks multiple rewrites on one task.
func (pl *Planner) Plan(ctx context.Context, doc *taskdoc.Document) (*Plan, error) {
	plan := &Plan{
		RunID:       uuid.New().String()[:8],
		GeneratedAt: time.Now().UTC(),
		Document:    doc.Path,
	}

	for _, task := range doc.Tasks {
		decided := false
		for _, h := range task.Evidence {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if h.ParseErr != "" || !h.Type.Valid() {
				continue
			}
			path := h.Path()
			if path == "" {
				continue
			}

			exists, err := pl.probe.PathExists(ctx, path)
			if err != nil {
				// Out-of-scope paths are a verification finding, not a
				// remediation target.
				continue
			}
			if exists {
				continue
			}

			issue := Issue{
				TaskID:  task.ID,
				Title:   task.Title,
				OldPath: path,
				Line:    h.Line,
				Raw:     h.Raw,
			}

			if decided {
				plan.Outcomes = append(plan.Outcomes, Outcome{Issue: issue})
				continue
			}

			outcome, err := pl.decide(ctx, issue)
			if err != nil {
				return nil, err
			}
			plan.Outcomes = append(plan.Outcomes, outcome)
			decided = true
		}
	}

	return plan, nil
}

// decide runs the candidate search for one issue and applies the decision
// rule: one clear qualifying candidate -> AutoFix; two or more within the
// tie margin -> ManualReview; none -> unresolved.
func (pl *Planner) decide(ctx context.Context, issue Issue) (Outcome, error) {
	res, err := pl.engine.FindCandidates(ctx, issue.OldPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("search candidates for %s: %w", issue.OldPath, err)
	}

	out := Outcome{Issue: issue, StagesScanned: res.StagesScanned}

	switch {
	case len(res.Candidates) == 0:
		pl.logger.Info("no replacement candidate",
			zap.String("task", issue.TaskID),
			zap.String("path", issue.OldPath))

	case len(res.Candidates) == 1 ||
		res.Candidates[0].Score-res.Candidates[1].Score > pl.tieMargin:
		best := res.Candidates[0]
		out.Decision = &models.RemediationDecision{
			Fix: &models.AutoFix{
				TaskID:  issue.TaskID,
				OldPath: issue.OldPath,
				NewPath: best.Path,
				Band:    best.Band,
			},
		}

	default:
		out.Decision = &models.RemediationDecision{
			Review: &models.ManualReview{
				TaskID:     issue.TaskID,
				OldPath:    issue.OldPath,
				Candidates: res.Candidates,
			},
		}
	}

	return out, nil
}
