package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/taskaudit/taskaudit/internal/remediate"
	"github.com/taskaudit/taskaudit/pkg/models"
)

func sampleReport() *Report {
	r := &Report{
		RunID:       "ab12cd34",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Document:    "TASKS.md",
		Root:        "/repo",
		Tasks: []models.TaskRecord{
			{
				ID:         "T001",
				Title:      "Implement login",
				Verified:   true,
				Status:     models.StatusVerified,
				Confidence: models.ConfidenceHigh,
				Evidence: []models.EvidenceHook{
					{Type: models.HookTypeCode, Matchers: map[models.MatcherKey]string{models.MatcherPath: "src/login.ts"}},
				},
				Results: []models.VerificationResult{
					{Matched: true, Scope: models.ScopeOK, Confidence: models.ConfidenceHigh, Excerpt: "function login()"},
				},
			},
			{
				ID:     "T002",
				Title:  "Write docs",
				Status: models.StatusMissingHooks,
			},
			{
				ID:         "T003",
				Title:      "Fix flaky test",
				Status:     models.StatusNotVerified,
				Confidence: models.ConfidenceLow,
			},
		},
	}
	r.Tally()
	return r
}

func TestTally(t *testing.T) {
	r := sampleReport()
	want := Totals{Tasks: 3, Verified: 1, NotVerified: 1, MissingHooks: 1}
	if diff := cmp.Diff(want, r.Totals); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(r.Totals, got.Totals); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
	if len(got.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(got.Tasks))
	}
	if got.Tasks[0].Status != models.StatusVerified {
		t.Errorf("task status = %s, want %s", got.Tasks[0].Status, models.StatusVerified)
	}
	if !strings.Contains(buf.String(), `"verified": true`) {
		t.Error("per-task JSON should expose a verified boolean")
	}
	if !got.Tasks[0].Verified || got.Tasks[2].Verified {
		t.Errorf("verified flags = %v, %v; want true, false", got.Tasks[0].Verified, got.Tasks[2].Verified)
	}
}

func TestWriteHumanListsEveryTask(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	if err := r.WriteHuman(&buf); err != nil {
		t.Fatalf("WriteHuman: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"T001", "T002", "T003", "Implement login", "src/login.ts", "ab12cd34"} {
		if !strings.Contains(out, want) {
			t.Errorf("human report missing %q:\n%s", want, out)
		}
	}
}

func samplePlan() *remediate.Plan {
	return &remediate.Plan{
		RunID:       "ef56ab78",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Document:    "TASKS.md",
		Outcomes: []remediate.Outcome{
			{
				Issue: remediate.Issue{TaskID: "T001", OldPath: "src/old.ts", Line: 4},
				Decision: &models.RemediationDecision{
					Fix: &models.AutoFix{TaskID: "T001", OldPath: "src/old.ts", NewPath: "src/new.ts", Band: models.BandHigh},
				},
			},
			{
				Issue: remediate.Issue{TaskID: "T002", OldPath: "lib/x.ts", Line: 9},
				Decision: &models.RemediationDecision{
					Review: &models.ManualReview{
						TaskID:  "T002",
						OldPath: "lib/x.ts",
						Candidates: []models.SimilarityCandidate{
							{Path: "lib/x.v1.ts", Score: 0.72, Band: models.BandHigh},
							{Path: "lib/x.v2.ts", Score: 0.71, Band: models.BandHigh},
						},
					},
				},
			},
			{
				Issue: remediate.Issue{TaskID: "T003", OldPath: "gone/forever.ts", Line: 14},
			},
		},
	}
}

func TestWritePlanJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlanJSON(&buf, samplePlan()); err != nil {
		t.Fatalf("WritePlanJSON: %v", err)
	}

	var got planArtifact
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Fixes) != 1 || got.Fixes[0].NewPath != "src/new.ts" {
		t.Errorf("fixes = %+v", got.Fixes)
	}
	if len(got.Reviews) != 1 || len(got.Reviews[0].Candidates) != 2 {
		t.Errorf("reviews = %+v", got.Reviews)
	}
	if len(got.Unresolved) != 1 || got.Unresolved[0].OldPath != "gone/forever.ts" {
		t.Errorf("unresolved = %+v", got.Unresolved)
	}
}

func TestWritePlanYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlanYAML(&buf, samplePlan()); err != nil {
		t.Fatalf("WritePlanYAML: %v", err)
	}

	var got planArtifact
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(buildPlanArtifact(samplePlan()), got); diff != "" {
		t.Errorf("yaml round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRemediationHumanCoversAllOutcomes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRemediationHuman(&buf, samplePlan(), false); err != nil {
		t.Fatalf("WriteRemediationHuman: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"would rewrite", "src/new.ts", "ambiguous", "lib/x.v1.ts", "no plausible replacement", "gone/forever.ts"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan rendering missing %q:\n%s", want, out)
		}
	}
}
