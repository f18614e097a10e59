// Package report holds the verification and remediation report models and
// their renderings. The structured (JSON) form is canonical; the colored
// human rendering presents exactly the same data.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/taskaudit/taskaudit/pkg/models"
)

// Totals aggregates task outcomes for one verification run.
type Totals struct {
	// Tasks is the number of task entries parsed from the document.
	Tasks int `json:"tasks"`
	// Verified counts tasks whose evidence met the confidence bar.
	Verified int `json:"verified"`
	// NotVerified counts tasks with unmet evidence.
	NotVerified int `json:"not_verified"`
	// Manual counts tasks needing manual review.
	Manual int `json:"manual"`
	// MissingHooks counts tasks with no evidence lines.
	MissingHooks int `json:"missing_hooks"`
	// InvalidScope counts tasks with malformed or out-of-root hooks.
	InvalidScope int `json:"invalid_scope"`
}

// Report is the canonical verification report for one run. Every parsed
// task appears in Tasks; no task is ever dropped from the output.
type Report struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`
	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`
	// Document is the task document that was audited.
	Document string `json:"document"`
	// Root is the repository root evidence was probed against.
	Root string `json:"root"`
	// TimedOut is true when the run budget expired before every task was
	// probed; unprocessed tasks are marked needs_manual, not dropped.
	TimedOut bool `json:"timed_out,omitempty"`
	// Totals aggregates the per-task statuses.
	Totals Totals `json:"totals"`
	// Tasks lists every task with its evidence results.
	Tasks []models.TaskRecord `json:"tasks"`
}

// Tally recomputes Totals from the task list.
func (r *Report) Tally() {
	t := Totals{Tasks: len(r.Tasks)}
	for _, task := range r.Tasks {
		switch task.Status {
		case models.StatusVerified:
			t.Verified++
		case models.StatusNotVerified:
			t.NotVerified++
		case models.StatusNeedsManual:
			t.Manual++
		case models.StatusMissingHooks:
			t.MissingHooks++
		case models.StatusInvalidScope:
			t.InvalidScope++
		}
	}
	r.Totals = t
}

// WriteJSON writes the canonical machine-parseable rendering.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
