package docedit

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// barrierTags are direct run-element children that stop run merging from
// crossing them (spec §4.3 "Barriers").
var barrierTags = map[string]bool{
	"fldChar": true, "instrText": true,
	"bookmarkStart": true, "bookmarkEnd": true,
	"commentRangeStart": true, "commentRangeEnd": true,
}

var trackedWrapperTags = map[string]bool{
	"ins": true, "del": true, "moveFrom": true, "moveTo": true,
}

// canonicalRPr serializes a <w:rPr> element (or nil) into a comparable
// string, for same-formatting detection during run merging. Attribute and
// child order is preserved as written — formatting XML is emitted
// canonically by every writer this package deals with, so byte-for-byte
// comparison of the serialized subtree is sufficient and avoids writing a
// full structural equality routine.
func canonicalRPr(rPr *etree.Element) string {
	if rPr == nil {
		return ""
	}
	doc := etree.NewDocument()
	doc.SetRoot(rPr.Copy())
	b, err := doc.WriteToBytes()
	if err != nil {
		return rPr.Tag
	}
	return string(b)
}

// runRPr returns run's direct <w:rPr> child, or nil.
func runRPr(run *etree.Element) *etree.Element {
	return oxml.FindChild(run, "w:rPr")
}

// hasBarrierChild reports whether run contains any direct child that is a
// merge barrier (spec §4.3).
func hasBarrierChild(run *etree.Element) bool {
	for _, c := range run.ChildElements() {
		if c.Space == "w" && barrierTags[c.Tag] {
			return true
		}
	}
	return false
}

// stripRsidAttrs removes every rsid* attribute from el and its descendants.
func stripRsidAttrs(el *etree.Element) {
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		var keep []etree.Attr
		for _, a := range e.Attr {
			if a.Space == "w" && strings.HasPrefix(a.Key, "rsid") {
				continue
			}
			keep = append(keep, a)
		}
		e.Attr = keep
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(el)
}

// removeProofErr deletes every <w:proofErr> descendant of p.
func removeProofErr(p *etree.Element) {
	var toRemove []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if c.Space == "w" && c.Tag == "proofErr" {
				toRemove = append(toRemove, c)
				continue
			}
			walk(c)
		}
	}
	walk(p)
	for _, e := range toRemove {
		if parent := e.Parent(); parent != nil {
			parent.RemoveChild(e)
		}
	}
}

// MergeRuns normalizes paragraph p: strips <w:proofErr> and rsid* attributes,
// then coalesces adjacent same-parent <w:r> runs whose <w:rPr> serializes
// identically, neither side containing a barrier child, and both sides in
// the same wrapper group (spec §4.3). Returns the number of runs removed by
// merging.
func MergeRuns(p *etree.Element) int {
	removeProofErr(p)
	stripRsidAttrs(p)

	removed := 0
	// Merging happens within each distinct parent element (the paragraph
	// itself, or inside a hyperlink/ins/del wrapper) independently — a run's
	// siblings are always its literal XML siblings, so two runs inside
	// different wrappers (or one inside a wrapper and one outside) are never
	// adjacent in the first place. We still collect per-parent so unrelated
	// containers (e.g. two different hyperlinks) don't interact.
	parents := collectRunParents(p)
	for _, parent := range parents {
		removed += mergeRunsInParent(parent)
	}
	return removed
}

// collectRunParents returns every element that has at least one direct
// <w:r> child, found anywhere under p (paragraph itself, hyperlinks, and
// tracked-change wrappers).
func collectRunParents(p *etree.Element) []*etree.Element {
	var out []*etree.Element
	seen := make(map[*etree.Element]bool)
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		hasRun := false
		for _, c := range e.ChildElements() {
			if c.Space == "w" && c.Tag == "r" {
				hasRun = true
			}
		}
		if hasRun && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(p)
	return out
}

// mergeRunsInParent coalesces adjacent <w:r> children of parent that share
// identical formatting and carry no barrier.
func mergeRunsInParent(parent *etree.Element) int {
	removed := 0
	for {
		merged := false
		children := parent.ChildElements()
		for i := 0; i+1 < len(children); i++ {
			a, b := children[i], children[i+1]
			if !(a.Space == "w" && a.Tag == "r" && b.Space == "w" && b.Tag == "r") {
				continue
			}
			if hasBarrierChild(a) || hasBarrierChild(b) {
				continue
			}
			if canonicalRPr(runRPr(a)) != canonicalRPr(runRPr(b)) {
				continue
			}
			// Move all of b's non-rPr children onto the end of a.
			for _, bc := range b.ChildElements() {
				if bc.Space == "w" && bc.Tag == "rPr" {
					continue
				}
				b.RemoveChild(bc)
				a.AddChild(bc)
			}
			parent.RemoveChild(b)
			removed++
			merged = true
			break
		}
		if !merged {
			break
		}
	}
	return removed
}

// isWhitespaceOnly reports whether el's direct text content (if any) is
// entirely whitespace and it has no child elements — i.e. it's a "spacer"
// that doesn't block redline simplification.
func isWhitespaceOnly(el *etree.Element) bool {
	if len(el.ChildElements()) > 0 {
		return false
	}
	return strings.TrimSpace(directText(el)) == ""
}

// SimplifyRedlines coalesces adjacent tracked-change wrappers in paragraph p
// whose localName and w:author match, tolerating pure-whitespace text nodes
// between them (spec §4.3 "Simplify redlines"). Merging moves the right
// wrapper's children into the left and deletes the right wrapper. Returns
// the number of wrappers removed.
func SimplifyRedlines(p *etree.Element) int {
	removed := 0
	for {
		merged := false
		children := p.ChildElements()
		for i := 0; i < len(children); i++ {
			a := children[i]
			if a.Space != "w" || !trackedWrapperTags[a.Tag] {
				continue
			}
			// Find the next sibling element, skipping whitespace-only
			// non-element tokens (handled naturally since ChildElements only
			// returns elements — whitespace-only text nodes between them are
			// simply not elements and are skipped by construction).
			if i+1 >= len(children) {
				continue
			}
			b := children[i+1]
			if b.Space != "w" || b.Tag != a.Tag {
				continue
			}
			authorA, _ := oxml.Attr(a, "w:author")
			authorB, _ := oxml.Attr(b, "w:author")
			if authorA != authorB {
				continue
			}
			for _, bc := range b.ChildElements() {
				b.RemoveChild(bc)
				a.AddChild(bc)
			}
			p.RemoveChild(b)
			removed++
			merged = true
			break
		}
		if !merged {
			break
		}
	}
	return removed
}
