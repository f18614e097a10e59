// Package taskdoc parses task documents into TaskRecords.
//
// A task document is a markdown-flavored task list. Task entries are
// checkbox lines:
//
//	- [ ] T101: Add login endpoint
//	- [x] T102: Wire session store
//	      evidence: code path=src/session.go symbol=NewStore
//
// Evidence lines belong to the nearest task entry above them. The checkbox
// state is parsed but never trusted as verification.
package taskdoc

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/taskaudit/taskaudit/internal/hook"
	"github.com/taskaudit/taskaudit/pkg/models"
)

// taskLinePattern matches a checkbox task entry with an optional identifier.
var taskLinePattern = regexp.MustCompile(`^\s*[-*]\s*\[( |x|X)\]\s*(?:([A-Za-z0-9][A-Za-z0-9_.-]*):\s+)?(.+)$`)

// Document is one parsed task document. Lines are retained verbatim so the
// patch applier can address edits by line number.
type Document struct {
	// Path is where the document was read from.
	Path string
	// Lines holds the document's lines without trailing newlines.
	Lines []string
	// Tasks holds the parsed task records in document order.
	Tasks []models.TaskRecord
}

// Load reads and parses the task document at path.
// A missing or unreadable document is a run-fatal error; malformed evidence
// lines inside it are not.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task document: %w", err)
	}
	doc := Parse(string(data))
	doc.Path = path
	return doc, nil
}

// Parse parses task-document content. It never fails: lines that match
// neither the task nor the evidence grammar are ignored, and malformed
// evidence lines are attached to their task with ParseErr set.
func Parse(content string) *Document {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	doc := &Document{Lines: lines}

	seen := map[string]int{}
	var current *models.TaskRecord

	flush := func() {
		if current != nil {
			doc.Tasks = append(doc.Tasks, *current)
			current = nil
		}
	}

	for i, line := range lines {
		lineNum := i + 1

		if m := taskLinePattern.FindStringSubmatch(line); m != nil && !hook.IsEvidenceLine(line) {
			flush()
			id := m[2]
			if id == "" {
				id = fmt.Sprintf("T%03d", len(doc.Tasks)+1)
			}
			// Duplicate identifiers get a disambiguating suffix so every
			// record stays addressable in the report.
			if n := seen[id]; n > 0 {
				seen[id] = n + 1
				id = fmt.Sprintf("%s.%d", id, n+1)
			} else {
				seen[id] = 1
			}
			current = &models.TaskRecord{
				ID:      id,
				Title:   strings.TrimSpace(m[3]),
				Checked: m[1] == "x" || m[1] == "X",
				Line:    lineNum,
			}
			continue
		}

		if hook.IsEvidenceLine(line) {
			if current == nil {
				// An orphan evidence line has no task to attach to; skip it.
				continue
			}
			current.Evidence = append(current.Evidence, hook.Parse(line, lineNum))
		}
	}
	flush()

	return doc
}

// TaskByID returns the task with the given ID, or nil.
func (d *Document) TaskByID(id string) *models.TaskRecord {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i]
		}
	}
	return nil
}

// Content reassembles the document's lines with trailing newline.
func (d *Document) Content() string {
	return strings.Join(d.Lines, "\n") + "\n"
}
