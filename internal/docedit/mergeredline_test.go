package docedit

import (
	"testing"

	"github.com/vortex/safedocx/internal/oxml"
)

func TestMergeRuns_CoalescesIdenticalFormatting(t *testing.T) {
	p := newParagraph(newRun("Hello "), newRun("World"))
	removed := MergeRuns(p)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	runs := ParagraphRuns(p)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run after merge, got %d", len(runs))
	}
	if runs[0].Text != "Hello World" {
		t.Errorf("merged text = %q, want %q", runs[0].Text, "Hello World")
	}
}

func TestMergeRuns_DoesNotMergeDifferentFormatting(t *testing.T) {
	p := newParagraph(newRun("plain "), newRunBold("bold"))
	removed := MergeRuns(p)
	if removed != 0 {
		t.Errorf("removed = %d, want 0 (different rPr must not merge)", removed)
	}
	if len(ParagraphRuns(p)) != 2 {
		t.Errorf("expected 2 runs to remain distinct")
	}
}

func TestMergeRuns_BarrierBlocksMerge(t *testing.T) {
	a := newRun("before")
	bookmark := oxml.NewElement("w:bookmarkStart")
	a.AddChild(bookmark)
	b := newRun("after")
	p := newParagraph(a, b)

	removed := MergeRuns(p)
	if removed != 0 {
		t.Errorf("removed = %d, want 0 (bookmarkStart child is a barrier)", removed)
	}
}

func TestMergeRuns_StripsProofErrAndRsid(t *testing.T) {
	p := oxml.NewElement("w:p")
	run := newRun("text")
	run.CreateAttr("w:rsidR", "00112233")
	p.AddChild(run)
	proof := oxml.NewElement("w:proofErr")
	oxml.SetAttr(proof, "w:type", "spellStart")
	p.AddChild(proof)

	MergeRuns(p)

	if oxml.FindChild(p, "w:proofErr") != nil {
		t.Errorf("expected w:proofErr to be stripped")
	}
	for _, a := range run.Attr {
		if a.Space == "w" && a.Key == "rsidR" {
			t.Errorf("expected rsidR attribute to be stripped")
		}
	}
}

func TestMergeRuns_DoesNotCrossWrapperBoundary(t *testing.T) {
	p := oxml.NewElement("w:p")
	ins := oxml.NewElement("w:ins")
	oxml.SetAttr(ins, "w:author", "alice")
	ins.AddChild(newRun("inserted"))
	p.AddChild(ins)
	p.AddChild(newRun("inserted")) // plain run, same text/rPr but not in the wrapper

	removed := MergeRuns(p)
	if removed != 0 {
		t.Errorf("removed = %d, want 0 (wrapper boundary must block merge)", removed)
	}
}

func TestSimplifyRedlines_MergesAdjacentSameAuthorWrappers(t *testing.T) {
	p := oxml.NewElement("w:p")
	a := oxml.NewElement("w:ins")
	oxml.SetAttr(a, "w:author", "alice")
	a.AddChild(newRun("one"))
	b := oxml.NewElement("w:ins")
	oxml.SetAttr(b, "w:author", "alice")
	b.AddChild(newRun("two"))
	p.AddChild(a)
	p.AddChild(b)

	removed := SimplifyRedlines(p)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	wrappers := oxml.FindAllChildren(p, "w:ins")
	if len(wrappers) != 1 {
		t.Fatalf("expected 1 surviving w:ins, got %d", len(wrappers))
	}
	if len(wrappers[0].ChildElements()) != 2 {
		t.Errorf("expected merged wrapper to carry both runs, got %d children", len(wrappers[0].ChildElements()))
	}
}

func TestSimplifyRedlines_DoesNotMergeDifferentAuthors(t *testing.T) {
	p := oxml.NewElement("w:p")
	a := oxml.NewElement("w:ins")
	oxml.SetAttr(a, "w:author", "alice")
	a.AddChild(newRun("one"))
	b := oxml.NewElement("w:ins")
	oxml.SetAttr(b, "w:author", "bob")
	b.AddChild(newRun("two"))
	p.AddChild(a)
	p.AddChild(b)

	removed := SimplifyRedlines(p)
	if removed != 0 {
		t.Errorf("removed = %d, want 0 (different authors must not merge)", removed)
	}
}

func TestSimplifyRedlines_DoesNotMergeDifferentWrapperKind(t *testing.T) {
	p := oxml.NewElement("w:p")
	ins := oxml.NewElement("w:ins")
	oxml.SetAttr(ins, "w:author", "alice")
	ins.AddChild(newRun("one"))
	del := oxml.NewElement("w:del")
	oxml.SetAttr(del, "w:author", "alice")
	del.AddChild(newRun("two"))
	p.AddChild(ins)
	p.AddChild(del)

	removed := SimplifyRedlines(p)
	if removed != 0 {
		t.Errorf("removed = %d, want 0 (ins must not merge with del)", removed)
	}
}
