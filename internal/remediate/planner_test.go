package remediate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/taskaudit/taskaudit/internal/config"
	"github.com/taskaudit/taskaudit/internal/patch"
	"github.com/taskaudit/taskaudit/internal/probe"
	"github.com/taskaudit/taskaudit/internal/search"
	"github.com/taskaudit/taskaudit/internal/taskdoc"
	"github.com/taskaudit/taskaudit/pkg/models"
)

type fixture struct {
	planner *Planner
	applier *patch.Applier
	docPath string
	root    string
}

func newFixture(t *testing.T, docContent string, repoFiles []string) *fixture {
	t.Helper()
	root := t.TempDir()
	for _, rel := range repoFiles {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("content\n"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	docPath := filepath.Join(t.TempDir(), "TASKS.md")
	if err := os.WriteFile(docPath, []byte(docContent), 0644); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	cfg := config.Default()
	p, err := probe.New(root, cfg.Limits, nil)
	if err != nil {
		t.Fatalf("probe.New() error = %v", err)
	}
	engine := search.NewEngine(p, cfg.Similarity, cfg.Search, nil, nil)

	return &fixture{
		planner: NewPlanner(p, engine, cfg.Search.TieMargin, nil),
		applier: patch.NewApplier(nil),
		docPath: docPath,
		root:    root,
	}
}

func (f *fixture) plan(t *testing.T) *Plan {
	t.Helper()
	doc, err := taskdoc.Load(f.docPath)
	if err != nil {
		t.Fatalf("load doc: %v", err)
	}
	plan, err := f.planner.Plan(context.Background(), doc)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	return plan
}

func TestPlan_AutoFix(t *testing.T) {
	f := newFixture(t,
		"- [x] T1: util work\n  evidence: code path=pkg/a/src/x.util.ts\n",
		[]string{"pkg/a/src/x.ts", "pkg/a/src/unrelated.md"})

	plan := f.plan(t)

	fixes := plan.Fixes()
	if len(fixes) != 1 {
		t.Fatalf("got %d fixes, want 1 (outcomes: %+v)", len(fixes), plan.Outcomes)
	}
	fix := fixes[0].Decision.Fix
	if fix.OldPath != "pkg/a/src/x.util.ts" || fix.NewPath != "pkg/a/src/x.ts" {
		t.Errorf("fix = %+v", fix)
	}
	if fix.TaskID != "T1" {
		t.Errorf("TaskID = %q, want T1", fix.TaskID)
	}
	if !fix.Band.AtLeast(models.BandMedium) {
		t.Errorf("band = %q, want at least MEDIUM", fix.Band)
	}
}

func TestPlan_ManualReviewOnTie(t *testing.T) {
	f := newFixture(t,
		"- [ ] T2: store work\n  evidence: code path=pkg/a/x.ts\n",
		[]string{"pkg/a/x.v1.ts", "pkg/a/x.v2.ts"})

	plan := f.plan(t)

	if len(plan.Fixes()) != 0 {
		t.Error("tied candidates must not produce an automatic fix")
	}
	reviews := plan.Reviews()
	if len(reviews) != 1 {
		t.Fatalf("got %d reviews, want 1", len(reviews))
	}
	review := reviews[0].Decision.Review
	if len(review.Candidates) != 2 {
		t.Fatalf("review carries %d candidates, want 2", len(review.Candidates))
	}
	if review.Candidates[0].Score < review.Candidates[1].Score {
		t.Error("review candidates must be ranked by score")
	}
}

func TestPlan_Unresolved(t *testing.T) {
	f := newFixture(t,
		"- [ ] T3: ghost\n  evidence: code path=pkg/gone/never.ts\n",
		[]string{"totally/else/zzz.c"})

	plan := f.plan(t)

	if len(plan.Unresolved()) != 1 {
		t.Fatalf("got %d unresolved, want 1", len(plan.Unresolved()))
	}
	if len(plan.Fixes()) != 0 || len(plan.Reviews()) != 0 {
		t.Error("no decision should be emitted without qualifying candidates")
	}
}

func TestPlan_ResolvedPathsSkipped(t *testing.T) {
	f := newFixture(t,
		"- [x] T4: fine\n  evidence: code path=pkg/a/ok.ts\n",
		[]string{"pkg/a/ok.ts"})

	plan := f.plan(t)

	if len(plan.Outcomes) != 0 {
		t.Errorf("resolved paths need no remediation, got %+v", plan.Outcomes)
	}
}

func TestPlan_OneDecisionPerTask(t *testing.T) {
	f := newFixture(t,
		"- [x] T5: double\n"+
			"  evidence: code path=pkg/a/first.gone.ts\n"+
			"  evidence: test path=pkg/a/second.gone.ts\n",
		[]string{"pkg/a/first.ts", "pkg/a/second.ts"})

	plan := f.plan(t)

	decided := 0
	for _, o := range plan.Outcomes {
		if o.Decision != nil {
			decided++
		}
	}
	if decided != 1 {
		t.Errorf("got %d decisions for one task, want exactly 1", decided)
	}
	if len(plan.Outcomes) != 2 {
		t.Errorf("both broken hooks must appear in the plan, got %d", len(plan.Outcomes))
	}
}

func TestApplyThenReplanIsIdempotent(t *testing.T) {
	f := newFixture(t,
		"- [x] T1: util work\n  evidence: code path=pkg/a/src/x.util.ts symbol=content\n",
		[]string{"pkg/a/src/x.ts"})

	plan := f.plan(t)
	edits := BuildEdits(plan)
	if len(edits) != 1 {
		t.Fatalf("got %d edits, want 1", len(edits))
	}

	res, err := f.applier.Apply(f.docPath, edits)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(res.Applied) != 1 || len(res.Conflicts) != 0 {
		t.Fatalf("Apply() = %+v", res)
	}

	// The rewritten document now points at the real file.
	doc, err := taskdoc.Load(f.docPath)
	if err != nil {
		t.Fatalf("reload doc: %v", err)
	}
	if got := doc.Tasks[0].Evidence[0].Path(); got != "pkg/a/src/x.ts" {
		t.Errorf("rewritten path = %q, want pkg/a/src/x.ts", got)
	}

	// Re-running the whole pipeline produces zero further edits.
	replan := f.plan(t)
	if edits := BuildEdits(replan); len(edits) != 0 {
		t.Errorf("replan produced %d edits, want 0", len(edits))
	}
}
