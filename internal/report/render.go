package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/taskaudit/taskaudit/internal/remediate"
	"github.com/taskaudit/taskaudit/pkg/models"
)

// WriteHuman writes the human-readable rendering of the verification
// report. It presents the same data as WriteJSON.
func (r *Report) WriteHuman(w io.Writer) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "=== Evidence Verification Report (run %s) ===\n", r.RunID)
	fmt.Fprintf(w, "Document: %s\n", r.Document)
	fmt.Fprintf(w, "Root:     %s\n", r.Root)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Tasks: %d  verified: %d  not verified: %d  manual: %d  missing hooks: %d  invalid scope: %d\n",
		r.Totals.Tasks, r.Totals.Verified, r.Totals.NotVerified,
		r.Totals.Manual, r.Totals.MissingHooks, r.Totals.InvalidScope)
	if r.TimedOut {
		color.New(color.FgYellow).Fprintln(w, "⚠ run budget expired; unprocessed tasks are marked needs_manual")
	}
	fmt.Fprintln(w)

	for _, task := range r.Tasks {
		symbol, attr := statusGlyph(task.Status)
		color.New(attr).Fprintf(w, "%s ", symbol)
		fmt.Fprintf(w, "[%s] %s (%s, confidence %s)\n", task.ID, task.Title, task.Status, task.Confidence)

		for i, h := range task.Evidence {
			detail := ""
			if i < len(task.Results) {
				res := task.Results[i]
				if res.Detail != "" {
					detail = " - " + res.Detail
				} else if res.Excerpt != "" {
					detail = " - " + res.Excerpt
				}
			}
			fmt.Fprintf(w, "    %s: %s%s\n", h.Type, h.Path(), detail)
		}

		for _, s := range task.SuggestedHooks {
			fmt.Fprintf(w, "    suggest: %s\n", s)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WriteRemediationHuman writes the human rendering of a remediation plan.
// Every broken path appears: fixes, manual reviews, and unresolved issues.
func WriteRemediationHuman(w io.Writer, plan *remediate.Plan, applied bool) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "=== Naming Remediation Plan (run %s) ===\n", plan.RunID)
	fmt.Fprintf(w, "Document: %s\n", plan.Document)
	fmt.Fprintln(w)

	if len(plan.Outcomes) == 0 {
		color.New(color.FgGreen).Fprintln(w, "✓ every evidence path resolves; nothing to do")
		return nil
	}

	verb := "would rewrite"
	if applied {
		verb = "rewrote"
	}

	for _, o := range plan.Fixes() {
		fix := o.Decision.Fix
		color.New(color.FgGreen).Fprintf(w, "✓ ")
		fmt.Fprintf(w, "[%s] %s %s → %s (%s)\n", fix.TaskID, verb, fix.OldPath, fix.NewPath, fix.Band)
	}

	for _, o := range plan.Reviews() {
		review := o.Decision.Review
		color.New(color.FgYellow).Fprintf(w, "⚠ ")
		fmt.Fprintf(w, "[%s] %s is ambiguous; pick one:\n", review.TaskID, review.OldPath)
		for i, c := range review.Candidates {
			fmt.Fprintf(w, "    %d. %s (score %.2f, %s)\n", i+1, c.Path, c.Score, c.Band)
		}
	}

	for _, o := range plan.Unresolved() {
		color.New(color.FgRed).Fprintf(w, "✗ ")
		fmt.Fprintf(w, "[%s] no plausible replacement found for %s\n", o.Issue.TaskID, o.Issue.OldPath)
	}

	fmt.Fprintln(w)
	return nil
}

// statusGlyph maps a task status onto its symbol and color.
func statusGlyph(s models.TaskStatus) (string, color.Attribute) {
	switch s {
	case models.StatusVerified:
		return "✓", color.FgGreen
	case models.StatusNeedsManual:
		return "⚠", color.FgYellow
	case models.StatusMissingHooks:
		return "∅", color.FgYellow
	case models.StatusInvalidScope:
		return "✗", color.FgRed
	default:
		return "✗", color.FgRed
	}
}
