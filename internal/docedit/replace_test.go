package docedit

import (
	"testing"

	"github.com/vortex/safedocx/internal/oxml"
)

func TestReplaceParagraphTextRange_WithinSingleRun(t *testing.T) {
	p := newParagraph(newRun("Hello World"))
	err := ReplaceParagraphTextRange(p, 6, 11, []ReplacementPart{{Text: "Go"}})
	if err != nil {
		t.Fatalf("ReplaceParagraphTextRange: %v", err)
	}
	if got := ParagraphText(p); got != "Hello Go" {
		t.Errorf("text = %q, want %q", got, "Hello Go")
	}
}

func TestReplaceParagraphTextRange_AcrossTwoRuns(t *testing.T) {
	p := newParagraph(newRun("Hel"), newRun("lo World"))
	err := ReplaceParagraphTextRange(p, 0, 5, []ReplacementPart{{Text: "Hi"}})
	if err != nil {
		t.Fatalf("ReplaceParagraphTextRange: %v", err)
	}
	if got := ParagraphText(p); got != "Hi World" {
		t.Errorf("text = %q, want %q", got, "Hi World")
	}
}

func TestReplaceParagraphTextRange_PreservesFormattingOutsideRange(t *testing.T) {
	p := newParagraph(newRunBold("Bold"), newRun(" plain"))
	err := ReplaceParagraphTextRange(p, 4, 10, []ReplacementPart{{Text: " text"}})
	if err != nil {
		t.Fatalf("ReplaceParagraphTextRange: %v", err)
	}
	runs := ParagraphRuns(p)
	if len(runs) < 1 {
		t.Fatal("expected at least one surviving run")
	}
	if runRPr(runs[0].Run) == nil {
		t.Errorf("expected the bold run's formatting to survive untouched")
	}
	if got := ParagraphText(p); got != "Bold text" {
		t.Errorf("text = %q, want %q", got, "Bold text")
	}
}

func TestReplaceParagraphTextRange_InsertionAtPoint(t *testing.T) {
	p := newParagraph(newRun("AC"))
	err := ReplaceParagraphTextRange(p, 1, 1, []ReplacementPart{{Text: "B"}})
	if err != nil {
		t.Fatalf("ReplaceParagraphTextRange: %v", err)
	}
	if got := ParagraphText(p); got != "ABC" {
		t.Errorf("text = %q, want %q", got, "ABC")
	}
}

func TestReplaceParagraphTextRange_EmptyParagraphPureInsertion(t *testing.T) {
	p := newParagraph()
	err := ReplaceParagraphTextRange(p, 0, 0, []ReplacementPart{{Text: "new text"}})
	if err != nil {
		t.Fatalf("ReplaceParagraphTextRange: %v", err)
	}
	if got := ParagraphText(p); got != "new text" {
		t.Errorf("text = %q, want %q", got, "new text")
	}
}

func TestReplaceParagraphTextRange_OutOfBoundsErrors(t *testing.T) {
	p := newParagraph(newRun("short"))
	err := ReplaceParagraphTextRange(p, 0, 100, []ReplacementPart{{Text: "x"}})
	if err == nil {
		t.Fatal("expected an out-of-bounds error")
	}
}

func TestReplaceParagraphTextRange_MultiplePartsProduceMultipleRuns(t *testing.T) {
	p := newParagraph(newRun("Hello World"))
	err := ReplaceParagraphTextRange(p, 6, 11, []ReplacementPart{
		{Text: "Go", Props: &RunPropOverride{Bold: boolPtr(true)}},
		{Text: "lang"},
	})
	if err != nil {
		t.Fatalf("ReplaceParagraphTextRange: %v", err)
	}
	if got := ParagraphText(p); got != "Hello Golang" {
		t.Errorf("text = %q, want %q", got, "Hello Golang")
	}
	runs := ParagraphRuns(p)
	if len(runs) != 3 { // "Hello ", "Go", "lang"
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
}

func boolPtr(b bool) *bool { return &b }

func TestPickTemplateRun_LargestOverlapEarliestTie(t *testing.T) {
	p := newParagraph(newRun("aa"), newRun("bb"), newRun("cc"))
	spans := paragraphSpans(p)
	// Range [1,5) overlaps span0 by 1 ([1,2)), span1 fully by 2 ([2,4)),
	// span2 by 1 ([4,5)) — span1 has the largest overlap.
	got := pickTemplateRun(spans, 1, 5)
	if got != spans[1].run {
		t.Errorf("expected the run with the largest overlap to be picked")
	}
}

func TestRunText_CountsFixedAtomsConsistentlyWithSplitRun(t *testing.T) {
	r := oxml.NewElement("w:r")
	r.AddChild(newTextElement("AB"))
	r.AddChild(oxml.NewElement("w:noBreakHyphen"))
	r.AddChild(newTextElement("CD"))
	p := newParagraph(r)

	if got := ParagraphText(p); got != "AB-CD" {
		t.Fatalf("text = %q, want %q", got, "AB-CD")
	}

	// Offset 3 sits between the hyphen (visible position 2) and 'C'
	// (position 3): replacing [3,4) must touch only 'C', proving splitRun's
	// position accounting (atomLength) agrees with RunText's rendering of
	// w:noBreakHyphen as one visible character rather than zero.
	if err := ReplaceParagraphTextRange(p, 3, 4, []ReplacementPart{{Text: "X"}}); err != nil {
		t.Fatalf("ReplaceParagraphTextRange: %v", err)
	}
	if got := ParagraphText(p); got != "AB-XD" {
		t.Errorf("text = %q, want %q", got, "AB-XD")
	}
}

func TestIsEmptyRun(t *testing.T) {
	empty := newRun("")
	if !isEmptyRun(empty) {
		t.Errorf("expected an empty-text run to be considered empty")
	}
	nonEmpty := newRun("x")
	if isEmptyRun(nonEmpty) {
		t.Errorf("expected a non-empty-text run to not be considered empty")
	}
}
