package remediate

import (
	"github.com/taskaudit/taskaudit/internal/patch"
	"github.com/taskaudit/taskaudit/pkg/models"
)

// BuildEdits converts the plan's automatic fixes into line-scoped patch
// edits. Manual reviews and unresolved issues produce no edits.
func BuildEdits(plan *Plan) []patch.Edit {
	var edits []patch.Edit
	for _, o := range plan.Fixes() {
		fix := o.Decision.Fix
		edits = append(edits, patch.Edit{
			TaskID:       fix.TaskID,
			Line:         o.Issue.Line,
			ExpectedLine: o.Issue.Raw,
			Key:          models.MatcherPath,
			OldValue:     fix.OldPath,
			NewValue:     fix.NewPath,
		})
	}
	return edits
}
