package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskaudit/taskaudit/pkg/models"
)

const doc = `- [x] T1: login
  evidence: code path=src/old.ts symbol=Login
- [ ] T2: guide
  evidence: docs path="docs/old guide.md" heading=Intro
`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "TASKS.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestPreview_DoesNotWrite(t *testing.T) {
	path := writeDoc(t, doc)
	a := NewApplier(nil)

	res, err := a.Preview(path, []Edit{{
		TaskID:       "T1",
		Line:         2,
		ExpectedLine: "  evidence: code path=src/old.ts symbol=Login",
		Key:          models.MatcherPath,
		OldValue:     "src/old.ts",
		NewValue:     "src/new.ts",
	}})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(res.Applied) != 1 {
		t.Fatalf("Applied = %d, want 1", len(res.Applied))
	}
	if !strings.Contains(res.Content, "path=src/new.ts") {
		t.Error("preview content should carry the rewritten path")
	}

	// Storage untouched.
	data, _ := os.ReadFile(path)
	if string(data) != doc {
		t.Error("Preview() must not modify the document")
	}
}

func TestApply_RewritesOnlyTheToken(t *testing.T) {
	path := writeDoc(t, doc)
	a := NewApplier(nil)

	res, err := a.Apply(path, []Edit{{
		TaskID:       "T1",
		Line:         2,
		ExpectedLine: "  evidence: code path=src/old.ts symbol=Login",
		Key:          models.MatcherPath,
		OldValue:     "src/old.ts",
		NewValue:     "src/new.ts",
	}})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(res.Applied) != 1 || len(res.Conflicts) != 0 {
		t.Fatalf("result = %+v", res)
	}

	data, _ := os.ReadFile(path)
	got := string(data)
	if !strings.Contains(got, "  evidence: code path=src/new.ts symbol=Login") {
		t.Errorf("document after apply:\n%s", got)
	}
	// Neighboring lines untouched.
	if !strings.Contains(got, `path="docs/old guide.md"`) {
		t.Error("unrelated evidence line was modified")
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("trailing newline lost")
	}
}

func TestApply_QuotedValue(t *testing.T) {
	path := writeDoc(t, doc)
	a := NewApplier(nil)

	res, err := a.Apply(path, []Edit{{
		TaskID:       "T2",
		Line:         4,
		ExpectedLine: `  evidence: docs path="docs/old guide.md" heading=Intro`,
		Key:          models.MatcherPath,
		OldValue:     "docs/old guide.md",
		NewValue:     "docs/new guide.md",
	}})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(res.Applied) != 1 {
		t.Fatalf("result = %+v", res)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `path="docs/new guide.md"`) {
		t.Errorf("quoting style not preserved:\n%s", data)
	}
}

func TestApply_ConflictLeavesOtherEditsIntact(t *testing.T) {
	path := writeDoc(t, doc)
	a := NewApplier(nil)

	edits := []Edit{
		{
			TaskID:       "T1",
			Line:         2,
			ExpectedLine: "  evidence: code path=src/WRONG.ts symbol=Login", // stale
			Key:          models.MatcherPath,
			OldValue:     "src/WRONG.ts",
			NewValue:     "src/new.ts",
		},
		{
			TaskID:       "T2",
			Line:         4,
			ExpectedLine: `  evidence: docs path="docs/old guide.md" heading=Intro`,
			Key:          models.MatcherPath,
			OldValue:     "docs/old guide.md",
			NewValue:     "docs/current.md",
		},
	}

	res, err := a.Apply(path, edits)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("Conflicts = %d, want 1", len(res.Conflicts))
	}
	if res.Conflicts[0].TaskID != "T1" {
		t.Errorf("conflict task = %q, want T1", res.Conflicts[0].TaskID)
	}
	if len(res.Applied) != 1 || res.Applied[0].TaskID != "T2" {
		t.Errorf("the clean edit must still apply, got %+v", res.Applied)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `path="docs/current.md"`) {
		t.Error("clean edit missing from document")
	}
	if !strings.Contains(string(data), "path=src/old.ts") {
		t.Error("conflicted line must stay untouched")
	}
}

func TestApply_LineVanished(t *testing.T) {
	path := writeDoc(t, doc)
	a := NewApplier(nil)

	res, err := a.Apply(path, []Edit{{
		TaskID: "T9", Line: 99,
		ExpectedLine: "whatever",
		Key:          models.MatcherPath,
		OldValue:     "a", NewValue: "b",
	}})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Errorf("Conflicts = %d, want 1", len(res.Conflicts))
	}
}

func TestApply_SerializedByLock(t *testing.T) {
	path := writeDoc(t, doc)
	a := NewApplier(nil)

	// Simulate a concurrent apply run holding the lock.
	lockPath := path + ".lock"
	if err := os.WriteFile(lockPath, []byte("1\n"), 0644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := a.Apply(path, nil)
		done <- err
	}()

	// Release the lock; the blocked apply should then proceed.
	os.Remove(lockPath)
	if err := <-done; err != nil {
		t.Errorf("Apply() after lock release error = %v", err)
	}
}

func TestRewriteValue(t *testing.T) {
	tests := []struct {
		name string
		line string
		old  string
		new  string
		want string
		ok   bool
	}{
		{
			"plain token",
			"evidence: code path=a.ts symbol=X",
			"a.ts", "b.ts",
			"evidence: code path=b.ts symbol=X", true,
		},
		{
			"quoted token stays quoted",
			`evidence: docs path="a b.md"`,
			"a b.md", "c d.md",
			`evidence: docs path="c d.md"`, true,
		},
		{
			"new value with space gains quotes",
			"evidence: docs path=a.md",
			"a.md", "x y.md",
			`evidence: docs path="x y.md"`, true,
		},
		{
			"value absent",
			"evidence: code path=a.ts",
			"z.ts", "b.ts",
			"", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := rewriteValue(tt.line, models.MatcherPath, tt.old, tt.new)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("rewriteValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
