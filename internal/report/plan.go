package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/taskaudit/taskaudit/internal/remediate"
)

// planArtifact is the serialized shape of a remediation plan. YAML and
// JSON renderings share it so both artifacts carry the same fields.
type planArtifact struct {
	RunID       string       `json:"run_id" yaml:"run_id"`
	GeneratedAt string       `json:"generated_at" yaml:"generated_at"`
	Document    string       `json:"document" yaml:"document"`
	Fixes       []planFix    `json:"fixes" yaml:"fixes"`
	Reviews     []planReview `json:"reviews" yaml:"reviews"`
	Unresolved  []planIssue  `json:"unresolved" yaml:"unresolved"`
}

type planFix struct {
	TaskID  string `json:"task_id" yaml:"task_id"`
	OldPath string `json:"old_path" yaml:"old_path"`
	NewPath string `json:"new_path" yaml:"new_path"`
	Band    string `json:"band" yaml:"band"`
}

type planReview struct {
	TaskID     string          `json:"task_id" yaml:"task_id"`
	OldPath    string          `json:"old_path" yaml:"old_path"`
	Candidates []planCandidate `json:"candidates" yaml:"candidates"`
}

type planCandidate struct {
	Path  string  `json:"path" yaml:"path"`
	Score float64 `json:"score" yaml:"score"`
	Band  string  `json:"band" yaml:"band"`
}

type planIssue struct {
	TaskID  string `json:"task_id" yaml:"task_id"`
	OldPath string `json:"old_path" yaml:"old_path"`
	Line    int    `json:"line" yaml:"line"`
}

func buildPlanArtifact(plan *remediate.Plan) planArtifact {
	a := planArtifact{
		RunID:       plan.RunID,
		GeneratedAt: plan.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		Document:    plan.Document,
		Fixes:       []planFix{},
		Reviews:     []planReview{},
		Unresolved:  []planIssue{},
	}

	for _, o := range plan.Fixes() {
		fix := o.Decision.Fix
		a.Fixes = append(a.Fixes, planFix{
			TaskID:  fix.TaskID,
			OldPath: fix.OldPath,
			NewPath: fix.NewPath,
			Band:    string(fix.Band),
		})
	}

	for _, o := range plan.Reviews() {
		review := o.Decision.Review
		pr := planReview{TaskID: review.TaskID, OldPath: review.OldPath}
		for _, c := range review.Candidates {
			pr.Candidates = append(pr.Candidates, planCandidate{
				Path:  c.Path,
				Score: c.Score,
				Band:  string(c.Band),
			})
		}
		a.Reviews = append(a.Reviews, pr)
	}

	for _, o := range plan.Unresolved() {
		a.Unresolved = append(a.Unresolved, planIssue{
			TaskID:  o.Issue.TaskID,
			OldPath: o.Issue.OldPath,
			Line:    o.Issue.Line,
		})
	}

	return a
}

// WritePlanJSON writes the remediation plan as indented JSON.
func WritePlanJSON(w io.Writer, plan *remediate.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(buildPlanArtifact(plan)); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return nil
}

// WritePlanYAML writes the remediation plan as a YAML artifact, suitable
// for committing next to the task document.
func WritePlanYAML(w io.Writer, plan *remediate.Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(buildPlanArtifact(plan)); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}
