package taskdoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/taskaudit/taskaudit/pkg/models"
)

const sampleDoc = `# Sprint 12 tasks

- [x] T101: Add login endpoint
      evidence: code path=src/auth/login.go symbol=HandleLogin
      evidence: test path=src/auth/login_test.go contains=TestHandleLogin
- [ ] T102: Write operator guide
      evidence: docs path=docs/ops.md heading="Runbook"
- [ ] T103: Spike on caching

Some prose in between that is not a task.

- [x] Clean up CI scripts
`

func TestParse(t *testing.T) {
	doc := Parse(sampleDoc)

	if len(doc.Tasks) != 4 {
		t.Fatalf("parsed %d tasks, want 4", len(doc.Tasks))
	}

	t101 := doc.Tasks[0]
	if t101.ID != "T101" {
		t.Errorf("task 0 ID = %q, want T101", t101.ID)
	}
	if !t101.Checked {
		t.Error("T101 should be checked")
	}
	if t101.Title != "Add login endpoint" {
		t.Errorf("T101 title = %q", t101.Title)
	}
	if len(t101.Evidence) != 2 {
		t.Fatalf("T101 has %d evidence hooks, want 2", len(t101.Evidence))
	}
	if t101.Evidence[0].Type != models.HookTypeCode {
		t.Errorf("first hook type = %q, want code", t101.Evidence[0].Type)
	}
	if t101.Evidence[1].Type != models.HookTypeTest {
		t.Errorf("second hook type = %q, want test", t101.Evidence[1].Type)
	}
	if t101.Line != 3 {
		t.Errorf("T101 line = %d, want 3", t101.Line)
	}
	if t101.Evidence[0].Line != 4 {
		t.Errorf("first hook line = %d, want 4", t101.Evidence[0].Line)
	}

	t102 := doc.Tasks[1]
	if got := t102.Evidence[0].Matchers[models.MatcherHeading]; got != "Runbook" {
		t.Errorf("T102 heading = %q, want Runbook", got)
	}

	if len(doc.Tasks[2].Evidence) != 0 {
		t.Errorf("T103 should have no evidence hooks")
	}

	// Task without an explicit identifier gets a generated one.
	if doc.Tasks[3].ID != "T004" {
		t.Errorf("generated ID = %q, want T004", doc.Tasks[3].ID)
	}
}

func TestParse_DuplicateIDs(t *testing.T) {
	doc := Parse("- [ ] T1: first\n- [ ] T1: second\n")

	if doc.Tasks[0].ID != "T1" {
		t.Errorf("first ID = %q, want T1", doc.Tasks[0].ID)
	}
	if doc.Tasks[1].ID != "T1.2" {
		t.Errorf("second ID = %q, want T1.2", doc.Tasks[1].ID)
	}
}

func TestParse_OrphanEvidenceIgnored(t *testing.T) {
	doc := Parse("evidence: code path=a.go\n- [ ] T1: task\n")

	if len(doc.Tasks) != 1 {
		t.Fatalf("parsed %d tasks, want 1", len(doc.Tasks))
	}
	if len(doc.Tasks[0].Evidence) != 0 {
		t.Error("orphan evidence should not attach to a later task")
	}
}

func TestParse_MalformedEvidenceAttaches(t *testing.T) {
	doc := Parse("- [ ] T1: task\n  evidence: code path=\"a.go\n")

	if len(doc.Tasks) != 1 || len(doc.Tasks[0].Evidence) != 1 {
		t.Fatal("malformed evidence should still attach to its task")
	}
	if doc.Tasks[0].Evidence[0].ParseErr == "" {
		t.Error("expected ParseErr on malformed hook")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TASKS.md")
	if err := os.WriteFile(path, []byte(sampleDoc), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Path != path {
		t.Errorf("Path = %q, want %q", doc.Path, path)
	}
	if len(doc.Tasks) != 4 {
		t.Errorf("parsed %d tasks, want 4", len(doc.Tasks))
	}

	if _, err := Load(filepath.Join(dir, "absent.md")); err == nil {
		t.Error("Load() of missing document should fail")
	}
}

func TestContent_RoundTrip(t *testing.T) {
	doc := Parse(sampleDoc)
	if doc.Content() != sampleDoc {
		t.Error("Content() should reproduce the original document")
	}
}
