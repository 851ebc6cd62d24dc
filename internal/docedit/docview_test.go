package docedit

import (
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// newStyle builds a <w:style w:styleId="id"> with an optional basedOn, name,
// pPr (alignment) and rPr (bold toggle) for style-chain tests.
func newStyle(id, name, basedOn string, jc string, bold *bool) *etree.Element {
	s := oxml.NewElement("w:style")
	oxml.SetAttr(s, "w:styleId", id)
	if name != "" {
		n := oxml.NewElement("w:name")
		oxml.SetAttr(n, "w:val", name)
		s.AddChild(n)
	}
	if basedOn != "" {
		b := oxml.NewElement("w:basedOn")
		oxml.SetAttr(b, "w:val", basedOn)
		s.AddChild(b)
	}
	if jc != "" {
		pPr := oxml.NewElement("w:pPr")
		j := oxml.NewElement("w:jc")
		oxml.SetAttr(j, "w:val", jc)
		pPr.AddChild(j)
		s.AddChild(pPr)
	}
	if bold != nil {
		rPr := oxml.NewElement("w:rPr")
		b := oxml.NewElement("w:b")
		if !*bold {
			oxml.SetAttr(b, "w:val", "false")
		}
		rPr.AddChild(b)
		s.AddChild(rPr)
	}
	return s
}

func newStylesRoot(styles ...*etree.Element) *etree.Element {
	root := oxml.NewElement("w:styles")
	for _, s := range styles {
		root.AddChild(s)
	}
	return root
}

func withPStyle(p *etree.Element, styleID string) *etree.Element {
	pPr := oxml.NewElement("w:pPr")
	ps := oxml.NewElement("w:pStyle")
	oxml.SetAttr(ps, "w:val", styleID)
	pPr.AddChild(ps)
	p.InsertChildAt(0, pPr)
	return p
}

func TestResolveParagraphFormat_DirectOverridesStyle(t *testing.T) {
	styles := ParseStyles(newStylesRoot(newStyle("Body", "Body Text", "", "left", nil)))
	p := withPStyle(newParagraph(newRun("text")), "Body")

	pPr := oxml.FindChild(p, "w:pPr")
	jc := oxml.NewElement("w:jc")
	oxml.SetAttr(jc, "w:val", "right")
	pPr.AddChild(jc)

	got := styles.ResolveParagraphFormat(p)
	if got.Alignment != "right" {
		t.Errorf("Alignment = %q, want right (direct pPr/jc wins over style)", got.Alignment)
	}
}

func TestResolveParagraphFormat_FallsBackToStyleChain(t *testing.T) {
	styles := ParseStyles(newStylesRoot(
		newStyle("Base", "Base", "", "center", nil),
		newStyle("Body", "Body Text", "Base", "", nil),
	))
	p := withPStyle(newParagraph(newRun("text")), "Body")

	got := styles.ResolveParagraphFormat(p)
	if got.Alignment != "center" {
		t.Errorf("Alignment = %q, want center (inherited from basedOn chain)", got.Alignment)
	}
}

func TestStyleModel_ChainDetectsCycles(t *testing.T) {
	styles := ParseStyles(newStylesRoot(
		newStyle("A", "A", "B", "", nil),
		newStyle("B", "B", "A", "", nil),
	))
	chain := styles.chain("A")
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2 (cycle must not loop forever)", len(chain))
	}
}

func TestResolveRunFormat_DirectRPrWins(t *testing.T) {
	styles := ParseStyles(newStylesRoot())
	run := newRunBold("text")
	p := newParagraph(run)

	got := styles.ResolveRunFormat(p, run)
	if got.Bold != ToggleOn {
		t.Errorf("Bold = %v, want ToggleOn", got.Bold)
	}
	if got.Italic != ToggleUnset {
		t.Errorf("Italic = %v, want ToggleUnset", got.Italic)
	}
}

func TestResolveRunFormat_InheritsFromRStyleChain(t *testing.T) {
	trueVal := true
	styles := ParseStyles(newStylesRoot(newStyle("Strong", "Strong", "", "", &trueVal)))
	run := oxml.NewElement("w:r")
	rPr := oxml.NewElement("w:rPr")
	rStyle := oxml.NewElement("w:rStyle")
	oxml.SetAttr(rStyle, "w:val", "Strong")
	rPr.AddChild(rStyle)
	run.AddChild(rPr)
	run.AddChild(newTextElement("text"))
	p := newParagraph(run)

	got := styles.ResolveRunFormat(p, run)
	if got.Bold != ToggleOn {
		t.Errorf("Bold = %v, want ToggleOn via rStyle chain", got.Bold)
	}
}

func TestResolveRunFormat_InheritsFromParagraphStyleRPr(t *testing.T) {
	trueVal := true
	styles := ParseStyles(newStylesRoot(newStyle("Heading1", "heading 1", "", "", &trueVal)))
	run := newRun("text")
	p := withPStyle(newParagraph(run), "Heading1")

	got := styles.ResolveRunFormat(p, run)
	if got.Bold != ToggleOn {
		t.Errorf("Bold = %v, want ToggleOn via paragraph style's rPr", got.Bold)
	}
}

func TestDetectHeader_RunInPrefix(t *testing.T) {
	styles := ParseStyles(newStylesRoot())
	p := newParagraph(newRunBold("Section One."), newRun(" body text follows"))

	header, suppressed := DetectHeader(p, styles)
	if header != "Section One." {
		t.Errorf("header = %q, want %q", header, "Section One.")
	}
	if suppressed != len([]rune("Section One.")) {
		t.Errorf("suppressedLen = %d, want %d", suppressed, len([]rune("Section One.")))
	}
}

func TestDetectHeader_PatternFallback(t *testing.T) {
	styles := ParseStyles(newStylesRoot())
	p := newParagraph(newRun("Definitions."))

	header, _ := DetectHeader(p, styles)
	if header != "Definitions" {
		t.Errorf("header = %q, want %q", header, "Definitions")
	}
}

func TestDetectHeader_NoMatchReturnsEmpty(t *testing.T) {
	styles := ParseStyles(newStylesRoot())
	p := newParagraph(newRun("this is an ordinary lowercase sentence with no header shape."))

	header, suppressed := DetectHeader(p, styles)
	if header != "" || suppressed != 0 {
		t.Errorf("expected no header, got %q/%d", header, suppressed)
	}
}

func TestComputeBaseline_FindsDominantTuple(t *testing.T) {
	styles := ParseStyles(newStylesRoot())
	p1 := newParagraph(newRun("plain text plain text plain"))
	p2 := newParagraph(newRunBold("short"))
	paragraphs := []*etree.Element{p1, p2}

	baseline := ComputeBaseline(paragraphs, nil, styles)
	if baseline.Bold {
		t.Errorf("expected the non-bold tuple to dominate")
	}
	if !baseline.Dominant {
		t.Errorf("expected Dominant=true given the large plain-text majority")
	}
}

func TestEmitFormattingTags_WrapsDeviationFromBaseline(t *testing.T) {
	styles := ParseStyles(newStylesRoot())
	p := newParagraph(newRun("plain text here plain text"), newRunBold("emphasis"))
	baseline := ComputeBaseline([]*etree.Element{p}, nil, styles)

	out := EmitFormattingTags(p, baseline, true, styles, nil)
	if !strings.Contains(out, "<b>emphasis</b>") {
		t.Errorf("expected a <b> tag around the bold deviation, got %q", out)
	}
	if strings.Contains(out, "<b>plain") {
		t.Errorf("expected the dominant (plain) run to carry no tag, got %q", out)
	}
}

func TestEmitFormattingTags_SkipsTagsWhenEmitFalse(t *testing.T) {
	styles := ParseStyles(newStylesRoot())
	p := newParagraph(newRunBold("emphasis"))
	baseline := ComputeBaseline([]*etree.Element{p}, nil, styles)

	out := EmitFormattingTags(p, baseline, false, styles, nil)
	if strings.Contains(out, "<b>") {
		t.Errorf("expected no tags when emit=false, got %q", out)
	}
	if out != "emphasis" {
		t.Errorf("out = %q, want plain text %q", out, "emphasis")
	}
}

func withIndent(p *etree.Element, leftTwips, firstLineTwips string) *etree.Element {
	pPr := oxml.FindChild(p, "w:pPr")
	if pPr == nil {
		pPr = oxml.NewElement("w:pPr")
		p.InsertChildAt(0, pPr)
	}
	ind := oxml.NewElement("w:ind")
	if leftTwips != "" {
		oxml.SetAttr(ind, "w:left", leftTwips)
	}
	if firstLineTwips != "" {
		oxml.SetAttr(ind, "w:firstLine", firstLineTwips)
	}
	pPr.AddChild(ind)
	return p
}

func TestResolveIndents_DirectPPr(t *testing.T) {
	styles := ParseStyles(newStylesRoot())
	p := withIndent(newParagraph(newRun("text")), "720", "360")

	got := styles.ResolveIndents(p)
	if got.LeftPt != 36.0 {
		t.Errorf("LeftPt = %v, want 36.0", got.LeftPt)
	}
	if got.FirstLinePt != 18.0 {
		t.Errorf("FirstLinePt = %v, want 18.0", got.FirstLinePt)
	}
}

func TestResolveIndents_FallsBackToStyleChain(t *testing.T) {
	base := newStyle("Base", "Base", "", "", nil)
	ind := oxml.NewElement("w:ind")
	oxml.SetAttr(ind, "w:left", "240")
	pPr := oxml.NewElement("w:pPr")
	pPr.AddChild(ind)
	base.AddChild(pPr)
	styles := ParseStyles(newStylesRoot(base))

	p := withPStyle(newParagraph(newRun("text")), "Base")
	got := styles.ResolveIndents(p)
	if got.LeftPt != 12.0 {
		t.Errorf("LeftPt = %v, want 12.0 (inherited from style chain)", got.LeftPt)
	}
}

func TestResolveIndents_HangingIsNegativeFirstLine(t *testing.T) {
	styles := ParseStyles(newStylesRoot())
	pPr := oxml.NewElement("w:pPr")
	ind := oxml.NewElement("w:ind")
	oxml.SetAttr(ind, "w:hanging", "200")
	pPr.AddChild(ind)
	p := newParagraph(newRun("text"))
	p.InsertChildAt(0, pPr)

	got := styles.ResolveIndents(p)
	if got.FirstLinePt != -10.0 {
		t.Errorf("FirstLinePt = %v, want -10.0", got.FirstLinePt)
	}
}

func TestGroupByFingerprint_AssignsListItemAndBodyIDs(t *testing.T) {
	styles := ParseStyles(newStylesRoot())

	listP := newParagraph(newRun("item one"))
	pPr := oxml.NewElement("w:pPr")
	numPr := oxml.NewElement("w:numPr")
	numID := oxml.NewElement("w:numId")
	oxml.SetAttr(numID, "w:val", "1")
	numPr.AddChild(numID)
	ilvl := oxml.NewElement("w:ilvl")
	oxml.SetAttr(ilvl, "w:val", "0")
	numPr.AddChild(ilvl)
	pPr.AddChild(numPr)
	listP.InsertChildAt(0, pPr)

	bodyP := newParagraph(newRun("ordinary paragraph"))

	groups := GroupByFingerprint([]*etree.Element{listP, bodyP}, styles)
	if len(groups) != 2 {
		t.Fatalf("expected 2 fingerprint groups, got %d", len(groups))
	}
	var sawListItem, sawBody bool
	for _, g := range groups {
		if g.ID == "list_item" {
			sawListItem = true
		}
		if g.ID == "body" {
			sawBody = true
		}
	}
	if !sawListItem || !sawBody {
		t.Errorf("expected list_item and body groups, got %+v", groups)
	}
}

func TestGroupByFingerprint_DisambiguatesDuplicateSemanticIDs(t *testing.T) {
	styles := ParseStyles(newStylesRoot(
		newStyle("Quote1", "Quote One", "", "", nil),
		newStyle("Quote2", "Quote Two", "", "", nil),
	))
	p1 := withPStyle(newParagraph(newRun("a quote")), "Quote1")
	p2 := withPStyle(newParagraph(newRun("another quote")), "Quote2")

	groups := GroupByFingerprint([]*etree.Element{p1, p2}, styles)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	ids := map[string]bool{}
	for _, g := range groups {
		ids[g.ID] = true
	}
	if !ids["quote"] || !ids["quote_1"] {
		t.Errorf("expected disambiguated ids quote/quote_1, got %+v", ids)
	}
}
