package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writePlanFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing plan fixture: %v", err)
	}
	return path
}

func TestLoadPlan_AppliesDefaultOutputs(t *testing.T) {
	path := writePlanFile(t, `
input: in.docx
operations:
  - kind: accept_all
`)
	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if plan.CleanOut != "clean.docx" {
		t.Errorf("CleanOut = %q, want clean.docx", plan.CleanOut)
	}
	if plan.RedlineOut != "redline.docx" {
		t.Errorf("RedlineOut = %q, want redline.docx", plan.RedlineOut)
	}
	if len(plan.Operations) != 1 || plan.Operations[0].Kind != OpAcceptAll {
		t.Errorf("unexpected operations: %+v", plan.Operations)
	}
}

func TestLoadPlan_MissingInputErrors(t *testing.T) {
	path := writePlanFile(t, `
operations:
  - kind: accept_all
`)
	if _, err := LoadPlan(path); err == nil {
		t.Fatal("expected an error for a plan missing \"input\"")
	}
}

func TestLoadPlan_UnknownOperationKindErrors(t *testing.T) {
	path := writePlanFile(t, `
input: in.docx
operations:
  - kind: not_a_real_operation
`)
	if _, err := LoadPlan(path); err == nil {
		t.Fatal("expected an error for an unknown operation kind")
	}
}

func TestLoadPlan_ReplaceRangeRequiresValidBounds(t *testing.T) {
	path := writePlanFile(t, `
input: in.docx
operations:
  - kind: replace_range
    start: 10
    end: 5
`)
	if _, err := LoadPlan(path); err == nil {
		t.Fatal("expected an error when end < start")
	}
}

func TestLoadPlan_AddCommentRequiresAuthor(t *testing.T) {
	path := writePlanFile(t, `
input: in.docx
operations:
  - kind: add_comment
    text: "a note"
`)
	if _, err := LoadPlan(path); err == nil {
		t.Fatal("expected an error when add_comment is missing author")
	}
}

func TestLoadPlan_NonexistentFileErrors(t *testing.T) {
	if _, err := LoadPlan("/nonexistent/plan.yaml"); err == nil {
		t.Fatal("expected an error for a nonexistent plan file")
	}
}
