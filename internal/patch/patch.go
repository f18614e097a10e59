// Package patch applies remediation decisions to a task document as
// line-scoped edits. An edit rewrites only the matcher value token of one
// evidence hook on one line, verifies the on-disk text still matches what
// the planner saw, and writes atomically. Apply runs are serialized per
// document with an exclusive lock file so concurrent invocations cannot
// interleave writes.
package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskaudit/taskaudit/pkg/models"
)

// ConflictError means the document changed between planning and applying:
// the targeted line no longer carries the expected text. It aborts the one
// edit it names; other edits in the same batch proceed.
type ConflictError struct {
	// TaskID is the task whose edit conflicted.
	TaskID string
	// Line is the 1-based document line.
	Line int
	// Reason explains the mismatch.
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("patch conflict for task %s at line %d: %s", e.TaskID, e.Line, e.Reason)
}

// Edit is one line-scoped rewrite of a matcher value.
type Edit struct {
	// TaskID is the task the edit belongs to.
	TaskID string `json:"task_id"`
	// Line is the 1-based line number to rewrite.
	Line int `json:"line"`
	// ExpectedLine is the exact line text the planner read. The applier
	// refuses the edit if the on-disk line differs.
	ExpectedLine string `json:"-"`
	// Key is the matcher whose value is rewritten.
	Key models.MatcherKey `json:"key"`
	// OldValue is the current matcher value.
	OldValue string `json:"old_value"`
	// NewValue is the replacement matcher value.
	NewValue string `json:"new_value"`
}

// Result reports what a preview or apply pass did.
type Result struct {
	// Applied holds the edits that went through (or, in preview mode,
	// would go through).
	Applied []Edit `json:"applied"`
	// Conflicts holds the per-edit failures. Conflicts never abort the
	// rest of the batch.
	Conflicts []ConflictError `json:"conflicts"`
	// Content is the resulting document content. In preview mode nothing
	// is written; in apply mode this is what was written.
	Content string `json:"-"`
}

// Applier rewrites task documents.
type Applier struct {
	logger *zap.Logger
}

// NewApplier creates an Applier.
func NewApplier(logger *zap.Logger) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{logger: logger}
}

// Preview computes the edits against the document without touching
// storage.
func (a *Applier) Preview(docPath string, edits []Edit) (*Result, error) {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("read task document: %w", err)
	}
	res := a.applyToContent(string(data), edits)
	return res, nil
}

// Apply performs the edits and writes the document atomically
// (write-temp-then-rename). The whole operation holds an exclusive lock
// file next to the document; a second Apply against the same document
// blocks until the first finishes or times out.
func (a *Applier) Apply(docPath string, edits []Edit) (*Result, error) {
	unlock, err := acquireLock(docPath, 5*time.Second)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("read task document: %w", err)
	}

	res := a.applyToContent(string(data), edits)
	if len(res.Applied) == 0 {
		// Nothing to write; reapplying an already-fixed document is a
		// no-op, not an error.
		return res, nil
	}

	if err := writeAtomic(docPath, []byte(res.Content)); err != nil {
		return nil, fmt.Errorf("write task document: %w", err)
	}

	a.logger.Info("applied remediation edits",
		zap.String("document", docPath),
		zap.Int("edits", len(res.Applied)),
		zap.Int("conflicts", len(res.Conflicts)))

	return res, nil
}

// applyToContent applies each edit to its line, collecting per-edit
// conflicts instead of failing the batch.
func (a *Applier) applyToContent(content string, edits []Edit) *Result {
	hadTrailingNewline := strings.HasSuffix(content, "\n")
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	res := &Result{}

	for _, e := range edits {
		if e.Line < 1 || e.Line > len(lines) {
			res.Conflicts = append(res.Conflicts, ConflictError{
				TaskID: e.TaskID, Line: e.Line,
				Reason: "line no longer exists",
			})
			continue
		}

		line := lines[e.Line-1]
		if line != e.ExpectedLine {
			res.Conflicts = append(res.Conflicts, ConflictError{
				TaskID: e.TaskID, Line: e.Line,
				Reason: "document changed since planning",
			})
			continue
		}

		newLine, ok := rewriteValue(line, e.Key, e.OldValue, e.NewValue)
		if !ok {
			res.Conflicts = append(res.Conflicts, ConflictError{
				TaskID: e.TaskID, Line: e.Line,
				Reason: fmt.Sprintf("%s=%s not found on line", e.Key, e.OldValue),
			})
			continue
		}

		lines[e.Line-1] = newLine
		res.Applied = append(res.Applied, e)
	}

	res.Content = strings.Join(lines, "\n")
	if hadTrailingNewline {
		res.Content += "\n"
	}
	return res
}

// rewriteValue replaces the key=old token with key=new, preserving quoting
// style. Only the first occurrence is rewritten; the edit is scoped to one
// matcher token, never a whole-line substitution.
func rewriteValue(line string, key models.MatcherKey, oldValue, newValue string) (string, bool) {
	plain := string(key) + "=" + oldValue
	quoted := string(key) + `="` + oldValue + `"`

	if strings.Contains(line, quoted) {
		replacement := string(key) + `="` + newValue + `"`
		return strings.Replace(line, quoted, replacement, 1), true
	}
	if strings.Contains(line, plain) {
		replacement := string(key) + "=" + newValue
		if strings.ContainsAny(newValue, " \t") {
			replacement = string(key) + `="` + newValue + `"`
		}
		return strings.Replace(line, plain, replacement, 1), true
	}
	return "", false
}

// acquireLock takes an exclusive lock file next to the document, retrying
// until the timeout. The returned func releases the lock.
func acquireLock(docPath string, timeout time.Duration) (func(), error) {
	lockPath := docPath + ".lock"
	deadline := time.Now().Add(timeout)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire document lock: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("document %s is locked by another apply run", docPath)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// writeAtomic writes data to path via a temp file and rename so a crash
// mid-write cannot leave a truncated document.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if info, err := os.Stat(path); err == nil {
		os.Chmod(tmpName, info.Mode())
	}

	return os.Rename(tmpName, path)
}
