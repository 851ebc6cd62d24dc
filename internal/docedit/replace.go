package docedit

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// RunPropOverride names the formatting deltas a caller can request on a
// newly-inserted run (spec §4.4 "addRunProps?").
type RunPropOverride struct {
	Bold           *bool
	Italic         *bool
	Underline      *bool
	Highlight      string // non-empty sets w:highlight val
	ClearHighlight bool
}

// ReplacementPart is one formatted segment of a replacement (spec §4.4:
// "either a literal string or a sequence of formatted parts").
type ReplacementPart struct {
	Text        string
	TemplateRun *etree.Element // overrides the picked template run, if set
	Props       *RunPropOverride
}

// splitRun splits run at the given visible-character offset, returning
// (left, right) siblings that together reproduce run's original content.
// Both sides keep a copy of run's <w:rPr>. The split offset's element lands
// on the right side when it falls exactly on an element boundary (spec §4.4
// "Tie-break rule").
func splitRun(run *etree.Element, offset int) (left, right *etree.Element) {
	left = oxml.NewElement("w:r")
	right = oxml.NewElement("w:r")
	if rPr := runRPr(run); rPr != nil {
		left.AddChild(rPr.Copy())
		right.AddChild(rPr.Copy())
	}

	pos := 0
	for _, c := range run.ChildElements() {
		if c.Space == "w" && c.Tag == "rPr" {
			continue
		}
		n, isFixed := atomLength(c)
		if n < 0 {
			// Non-content child (e.g. a bookmark or comment reference
			// nested inside a run) stays with the left side.
			left.AddChild(c.Copy())
			continue
		}
		start, end := pos, pos+n
		switch {
		case end <= offset:
			left.AddChild(c.Copy())
		case start >= offset:
			right.AddChild(c.Copy())
		default:
			// offset falls strictly inside a <w:t>; fixed atoms are
			// unit-length so this branch never applies to them.
			if !isFixed {
				text := []rune(directText(c))
				cut := offset - start
				left.AddChild(newTextElement(string(text[:cut])))
				right.AddChild(newTextElement(string(text[cut:])))
			}
		}
		pos += n
	}
	return left, right
}

// atomLength returns the visible-character length of a run child (0 for
// empty <w:t>, 1 for fixed atoms, -1 for non-content children), and whether
// it's a fixed (unsplittable) atom. Delegates the fixed-atom set to
// atomText (text.go) so RunText and splitRun never disagree on which
// children count as visible characters.
func atomLength(c *etree.Element) (int, bool) {
	if c.Space != "w" {
		return -1, false
	}
	if c.Tag == "t" {
		return len([]rune(directText(c))), false
	}
	if text, ok := atomText(c); ok {
		return len([]rune(text)), true
	}
	return -1, false
}

// newTextElement builds a <w:t> with xml:space="preserve" when its content
// has leading/trailing whitespace, or is empty (spec §9, grounded on the
// teacher's ensurePreserveSpace).
func newTextElement(text string) *etree.Element {
	t := oxml.NewElement("w:t")
	t.SetText(text)
	if text == "" || strings.TrimSpace(text) != text {
		t.CreateAttr("xml:space", "preserve")
	}
	return t
}

// isEmptyRun reports whether run carries no visible content (used to prune
// leftover runs after splitting/removal — spec §4.4 step 7).
func isEmptyRun(run *etree.Element) bool {
	for _, c := range run.ChildElements() {
		if c.Space == "w" && c.Tag == "rPr" {
			continue
		}
		n, fixed := atomLength(c)
		if n != 0 || fixed {
			return false
		}
		if n < 0 {
			return false
		}
	}
	return true
}

// buildReplacementRun constructs a new <w:r> carrying part's text, cloning
// templateRun's <w:rPr> and applying any overrides in part.Props.
func buildReplacementRun(templateRun *etree.Element, part ReplacementPart) *etree.Element {
	src := templateRun
	if part.TemplateRun != nil {
		src = part.TemplateRun
	}
	run := oxml.NewElement("w:r")
	var rPr *etree.Element
	if src != nil {
		if srcRPr := runRPr(src); srcRPr != nil {
			rPr = srcRPr.Copy()
		}
	}
	if part.Props != nil {
		rPr = applyRunPropOverride(rPr, part.Props)
	}
	if rPr != nil {
		run.AddChild(rPr)
	}
	if part.Text != "" {
		run.AddChild(newTextElement(part.Text))
	}
	return run
}

// applyRunPropOverride mutates (or creates) rPr to reflect the requested
// overrides, returning the (possibly newly-created) element.
func applyRunPropOverride(rPr *etree.Element, o *RunPropOverride) *etree.Element {
	if rPr == nil {
		rPr = oxml.NewElement("w:rPr")
	}
	setToggle := func(tag string, v *bool) {
		if existing := oxml.FindChild(rPr, "w:"+tag); existing != nil {
			rPr.RemoveChild(existing)
		}
		if v == nil {
			return
		}
		el := oxml.NewElement("w:" + tag)
		if !*v {
			oxml.SetAttr(el, "w:val", "0")
		}
		rPr.AddChild(el)
	}
	setToggle("b", o.Bold)
	setToggle("i", o.Italic)
	setToggle("u", o.Underline)

	if o.ClearHighlight {
		if hl := oxml.FindChild(rPr, "w:highlight"); hl != nil {
			rPr.RemoveChild(hl)
		}
	} else if o.Highlight != "" {
		hl := oxml.FindChild(rPr, "w:highlight")
		if hl == nil {
			hl = oxml.NewElement("w:highlight")
			rPr.AddChild(hl)
		}
		oxml.SetAttr(hl, "w:val", o.Highlight)
	}
	return rPr
}

// mapRangeToRuns locates the runs and within-run offsets spanning visible
// range [start,end) of paragraph p (spec §4.4 step 1).
func mapRangeToRuns(p *etree.Element, start, end int) (startRunIdx, startOffset, endRunIdx, endOffset int, err error) {
	spans := paragraphSpans(p)
	total := 0
	if len(spans) > 0 {
		total = spans[len(spans)-1].end
	}
	if start < 0 || end < start || end > total {
		return 0, 0, 0, 0, NewInvalidArgumentError(
			"docedit: range [%d,%d) out of bounds for paragraph of length %d", start, end, total)
	}

	locate := func(offset int) (int, int) {
		for i, s := range spans {
			if offset < s.end || (offset == s.end && i == len(spans)-1) {
				return i, offset - s.start
			}
		}
		return len(spans) - 1, spans[len(spans)-1].end - spans[len(spans)-1].start
	}
	si, so := locate(start)
	ei, eo := locate(end)

	// A field-result run that the span only partially touches, combined with
	// the span crossing run boundaries, is unsupported (spec §4.4 step 2).
	if si != ei {
		for i := si; i <= ei; i++ {
			if spans[i].isFieldResult {
				return 0, 0, 0, 0, NewUnsupportedEditError(
					"docedit: replacement range spans a field-result run")
			}
		}
	}
	return si, so, ei, eo, nil
}

// ReplaceParagraphTextRange replaces the visible characters [start,end) of
// paragraph p with parts, following the text-atom splice algorithm of
// spec §4.4.
func ReplaceParagraphTextRange(p *etree.Element, start, end int, parts []ReplacementPart) error {
	spans := paragraphSpans(p)
	if len(spans) == 0 && start == 0 && end == 0 {
		// Empty paragraph, pure insertion: nothing to split, just append.
		for _, part := range parts {
			p.AddChild(buildReplacementRun(nil, part))
		}
		return nil
	}

	si, so, ei, eo, err := mapRangeToRuns(p, start, end)
	if err != nil {
		return err
	}

	startRun := spans[si].run
	endRun := spans[ei].run

	parent := startRun.Parent()
	if endRun.Parent() != parent {
		return NewUnsafeContainerError(
			"docedit: replacement range crosses a container boundary (hyperlink or structured content)")
	}

	// Step 3: pick template run by largest overlap, ties earliest.
	templateRun := pickTemplateRun(spans, start, end)

	startLen := spans[si].end - spans[si].start
	endLen := spans[ei].end - spans[ei].start

	// Step 4: split boundary runs, keeping only what survives outside
	// [start,end). leftKeep holds [0,so) of startRun; rightKeep holds
	// [eo,endLen) of endRun. When si==ei these two splits happen against the
	// same original run, so the second split operates on the intermediate
	// right-hand half of the first split.
	var leftKeep, rightKeep *etree.Element
	if si == ei {
		if so > 0 {
			l, r := splitRun(startRun, so)
			leftKeep = l
			if eo < startLen {
				_, rightKeep = splitRun(r, eo-so)
			}
		} else if eo < endLen {
			_, rightKeep = splitRun(startRun, eo)
		}
	} else {
		if so > 0 {
			leftKeep, _ = splitRun(startRun, so)
		}
		if eo < endLen {
			_, rightKeep = splitRun(endRun, eo)
		}
	}

	// Record the splice position before mutating the tree.
	insertIdx := oxml.Index(parent, startRun)

	// Remove every original run covering the range.
	if si != ei {
		for i := si; i <= ei; i++ {
			if r := spans[i].run; r.Parent() != nil {
				r.Parent().RemoveChild(r)
			}
		}
	} else {
		parent.RemoveChild(startRun)
	}

	newRuns := make([]*etree.Element, 0, len(parts))
	for _, part := range parts {
		newRuns = append(newRuns, buildReplacementRun(templateRun, part))
	}

	spliced := make([]*etree.Element, 0, len(newRuns)+2)
	if leftKeep != nil {
		spliced = append(spliced, leftKeep)
	}
	spliced = append(spliced, newRuns...)
	if rightKeep != nil {
		spliced = append(spliced, rightKeep)
	}
	for i, el := range spliced {
		parent.InsertChildAt(insertIdx+i, el)
	}

	// Step 7: remove empty runs left behind.
	for _, r := range []*etree.Element{leftKeep, rightKeep} {
		if r != nil && isEmptyRun(r) {
			if pr := r.Parent(); pr != nil {
				pr.RemoveChild(r)
			}
		}
	}
	return nil
}

// pickTemplateRun returns the run with the largest visible-character overlap
// with [start,end), breaking ties by earliest run (spec §4.4 step 3).
func pickTemplateRun(spans []runOffsetSpan, start, end int) *etree.Element {
	var best *etree.Element
	bestOverlap := -1
	for _, s := range spans {
		lo, hi := s.start, s.end
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		overlap := hi - lo
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = s.run
		}
	}
	return best
}
