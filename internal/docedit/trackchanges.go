package docedit

import (
	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// prChangeTags are the six *PrChange variants covering run, paragraph,
// section, table, row, and cell property changes (spec §4.5 Phase D).
var prChangeTags = map[string]bool{
	"rPrChange": true, "pPrChange": true, "sectPrChange": true,
	"tblPrChange": true, "trPrChange": true, "tcPrChange": true,
}

// moveRangeMarkerTags bound a moved range (spec §4.5 Phase B/C).
var moveRangeMarkerTags = map[string]bool{
	"moveFromRangeStart": true, "moveFromRangeEnd": true,
	"moveToRangeStart": true, "moveToRangeEnd": true,
}

// TransformResult counts what an Accept/Reject pass processed (spec §4.5).
type TransformResult struct {
	ParagraphsRemoved int
	Insertions        int
	Deletions         int
	MovesResolved     int
	PropertyChanges   int
}

// paragraphPPrRPr returns p's <w:pPr>/<w:rPr> element, or nil.
func paragraphPPrRPr(p *etree.Element) *etree.Element {
	pPr := oxml.FindChild(p, "w:pPr")
	if pPr == nil {
		return nil
	}
	return oxml.FindChild(pPr, "w:rPr")
}

// hasParagraphMarkerWrapper reports whether p's pPr/rPr contains a direct
// child of tag (w:ins or w:del) — the paragraph-level insert/delete marker.
func hasParagraphMarkerWrapper(p *etree.Element, tag string) bool {
	rPr := paragraphPPrRPr(p)
	if rPr == nil {
		return false
	}
	return oxml.FindChild(rPr, "w:"+tag) != nil
}

// onlyContentIsWrapped reports whether every direct content-bearing child of
// p (everything except w:pPr) lives inside a wrapper whose tag is in allowed,
// with range markers (bookmark/comment-range/proofErr) not counting as
// content.
func onlyContentIsWrapped(p *etree.Element, allowed map[string]bool) bool {
	found := false
	for _, c := range p.ChildElements() {
		if c.Space != "w" {
			continue
		}
		if c.Tag == "pPr" {
			continue
		}
		if isRangeMarkerTag(c.Tag) {
			continue
		}
		if !allowed[c.Tag] {
			return false
		}
		found = true
	}
	return found
}

func isRangeMarkerTag(tag string) bool {
	switch tag {
	case "bookmarkStart", "bookmarkEnd", "commentRangeStart", "commentRangeEnd", "proofErr":
		return true
	}
	return moveRangeMarkerTags[tag]
}

// unwrapGlobally finds every element with the given tag anywhere under root
// (excluding ones nested in pPr/rPr, which are paragraph markers, not
// content wrappers), promotes its children into its parent in its place, and
// removes the wrapper. Processes deepest-first so nested wrappers of the
// same tag resolve correctly. Returns the count unwrapped.
func unwrapGlobally(root *etree.Element, tag string) int {
	var wrappers []*etree.Element
	var walk func(*etree.Element, bool)
	walk = func(el *etree.Element, insideRPr bool) {
		for _, c := range el.ChildElements() {
			nextInsideRPr := insideRPr || (c.Space == "w" && c.Tag == "rPr")
			walk(c, nextInsideRPr)
			if c.Space == "w" && c.Tag == tag && !insideRPr {
				wrappers = append(wrappers, c)
			}
		}
	}
	walk(root, false)

	for _, w := range wrappers {
		parent := w.Parent()
		if parent == nil {
			continue
		}
		idx := oxml.Index(parent, w)
		children := w.ChildElements()
		for i, c := range children {
			w.RemoveChild(c)
			parent.InsertChildAt(idx+i, c)
		}
		parent.RemoveChild(w)
	}
	return len(wrappers)
}

// removeGlobally deletes every element with the given tag anywhere under
// root (not nested in pPr/rPr). Returns the count removed.
func removeGlobally(root *etree.Element, tag string) int {
	var targets []*etree.Element
	var walk func(*etree.Element, bool)
	walk = func(el *etree.Element, insideRPr bool) {
		for _, c := range el.ChildElements() {
			nextInsideRPr := insideRPr || (c.Space == "w" && c.Tag == "rPr")
			if c.Space == "w" && c.Tag == tag && !insideRPr {
				targets = append(targets, c)
				continue
			}
			walk(c, nextInsideRPr)
		}
	}
	walk(root, false)
	for _, t := range targets {
		if parent := t.Parent(); parent != nil {
			parent.RemoveChild(t)
		}
	}
	return len(targets)
}

// stripParagraphMarker removes w:ins/w:del children of p's pPr/rPr (spec
// §4.5 Phase E).
func stripParagraphMarker(p *etree.Element) {
	rPr := paragraphPPrRPr(p)
	if rPr == nil {
		return
	}
	for _, tag := range []string{"ins", "del"} {
		if c := oxml.FindChild(rPr, "w:"+tag); c != nil {
			rPr.RemoveChild(c)
		}
	}
}

// stripRsidDel removes every w:rsidDel attribute under root.
func stripRsidDel(root *etree.Element) {
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		oxml.RemoveAttr(el, "w:rsidDel")
		for _, c := range el.ChildElements() {
			walk(c)
		}
	}
	walk(root)
}

// removeAllPrChanges removes every *PrChange element found under root,
// including those inside w:rPr, counting them (spec §4.5 Accept Phase D).
func removeAllPrChanges(root *etree.Element) int {
	var targets []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if c.Space == "w" && prChangeTags[c.Tag] {
				targets = append(targets, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	for _, t := range targets {
		if parent := t.Parent(); parent != nil {
			parent.RemoveChild(t)
		}
	}
	return len(targets)
}

// AcceptTrackChanges applies the Accept transform to root in place (spec
// §4.5). root is typically the w:body element.
func AcceptTrackChanges(root *etree.Element) TransformResult {
	var result TransformResult

	// Phase A: collect paragraphs to remove.
	var toRemove []*etree.Element
	for _, p := range AllParagraphs(root) {
		if hasParagraphMarkerWrapper(p, "del") {
			toRemove = append(toRemove, p)
			continue
		}
		if onlyContentIsWrapped(p, map[string]bool{"del": true, "moveFrom": true}) {
			toRemove = append(toRemove, p)
		}
	}

	// Phase B: remove w:del, w:moveFrom, and move range markers globally.
	result.Deletions += removeGlobally(root, "del")
	result.MovesResolved += removeGlobally(root, "moveFrom")
	for tag := range moveRangeMarkerTags {
		removeGlobally(root, tag)
	}

	// Phase C: unwrap w:ins and w:moveTo globally, deepest-first.
	result.Insertions += unwrapGlobally(root, "ins")
	result.MovesResolved += unwrapGlobally(root, "moveTo")

	// Phase D: remove every *PrChange element.
	result.PropertyChanges += removeAllPrChanges(root)

	// Phase E: cleanup.
	for _, p := range toRemove {
		if parent := p.Parent(); parent != nil {
			parent.RemoveChild(p)
		}
	}
	result.ParagraphsRemoved = len(toRemove)
	for _, p := range AllParagraphs(root) {
		stripParagraphMarker(p)
	}
	stripRsidDel(root)

	return result
}

// relocateBookmarks moves any bookmarkStart/bookmarkEnd that sits adjacent
// to (sibling-style) or inside candidate onto target, preferring target to
// be the next surviving paragraph, falling back to the previous (spec §4.5
// Reject Phase B).
func relocateBookmarks(candidate, target *etree.Element) {
	parent := candidate.Parent()
	if parent == nil {
		return
	}
	idx := oxml.Index(parent, candidate)
	var siblingMarks []*etree.Element
	for i := idx - 1; i >= 0; i-- {
		c, ok := parent.Child[i].(*etree.Element)
		if !ok {
			continue
		}
		if c.Space == "w" && (c.Tag == "bookmarkStart" || c.Tag == "bookmarkEnd") {
			siblingMarks = append(siblingMarks, c)
			continue
		}
		break
	}
	for i := idx + 1; i < len(parent.Child); i++ {
		c, ok := parent.Child[i].(*etree.Element)
		if !ok {
			continue
		}
		if c.Space == "w" && (c.Tag == "bookmarkStart" || c.Tag == "bookmarkEnd") {
			siblingMarks = append(siblingMarks, c)
			continue
		}
		break
	}
	var innerMarks []*etree.Element
	for _, c := range candidate.ChildElements() {
		if c.Space == "w" && (c.Tag == "bookmarkStart" || c.Tag == "bookmarkEnd") {
			innerMarks = append(innerMarks, c)
		}
	}

	if target == nil {
		return
	}
	for _, m := range append(siblingMarks, innerMarks...) {
		if p := m.Parent(); p != nil {
			p.RemoveChild(m)
		}
		target.InsertChildAt(0, m)
	}
}

// RejectTrackChanges applies the Reject transform to root in place (spec
// §4.5).
func RejectTrackChanges(root *etree.Element) TransformResult {
	var result TransformResult

	paragraphs := AllParagraphs(root)
	var toRemove []*etree.Element
	removeSet := make(map[*etree.Element]bool)
	for _, p := range paragraphs {
		if hasParagraphMarkerWrapper(p, "ins") {
			toRemove = append(toRemove, p)
			removeSet[p] = true
			continue
		}
		if onlyContentIsWrapped(p, map[string]bool{"ins": true, "moveTo": true}) {
			toRemove = append(toRemove, p)
			removeSet[p] = true
		}
	}

	// Phase B: relocate bookmarks on removed paragraphs before removal,
	// preferring the next surviving paragraph, falling back to the previous.
	for _, p := range toRemove {
		var target *etree.Element
		found := false
		for _, cand := range paragraphs {
			if cand == p {
				found = true
				continue
			}
			if !found || removeSet[cand] {
				continue
			}
			target = cand
			break
		}
		if target == nil {
			for i := len(paragraphs) - 1; i >= 0; i-- {
				cand := paragraphs[i]
				if cand == p {
					break
				}
				if removeSet[cand] {
					continue
				}
				target = cand
				break
			}
		}
		relocateBookmarks(p, target)
	}

	// Phase C: remove w:ins, w:moveTo and their move range markers.
	result.Insertions += removeGlobally(root, "ins")
	result.MovesResolved += removeGlobally(root, "moveTo")
	for tag := range moveRangeMarkerTags {
		removeGlobally(root, tag)
	}

	// Phase D: unwrap w:del, renaming delText to t.
	renameDelTextToText(root)
	result.Deletions += unwrapGlobally(root, "del")

	// Phase E: unwrap w:moveFrom.
	result.MovesResolved += unwrapGlobally(root, "moveFrom")

	// Phase F: restore original properties from *PrChange elements.
	result.PropertyChanges += restorePrChanges(root)

	// Phase G: cleanup.
	for _, p := range toRemove {
		if parent := p.Parent(); parent != nil {
			parent.RemoveChild(p)
		}
	}
	result.ParagraphsRemoved = len(toRemove)
	for _, p := range AllParagraphs(root) {
		stripParagraphMarker(p)
	}
	stripRsidDel(root)

	return result
}

// renameDelTextToText renames every w:delText element under root to w:t,
// preserving xml:space, in place ahead of the del-unwrap pass.
func renameDelTextToText(root *etree.Element) {
	var targets []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if c.Space == "w" && c.Tag == "delText" {
				targets = append(targets, c)
			}
			walk(c)
		}
	}
	walk(root)
	for _, t := range targets {
		t.Tag = "t"
	}
}

// prChangeContainerTag maps a *PrChange tag to the property-container tag it
// guards (spec §4.5 Reject Phase F).
var prChangeContainerTag = map[string]string{
	"rPrChange": "rPr", "pPrChange": "pPr", "sectPrChange": "sectPr",
	"tblPrChange": "tblPr", "trPrChange": "trPr", "tcPrChange": "tcPr",
}

// restorePrChanges replaces each *PrChange's enclosing property container
// with the original properties stored inside the change element, or removes
// the container entirely if the stored properties are empty.
func restorePrChanges(root *etree.Element) int {
	count := 0
	for prTag, containerTag := range prChangeContainerTag {
		var changes []*etree.Element
		var walk func(*etree.Element)
		walk = func(el *etree.Element) {
			for _, c := range el.ChildElements() {
				if c.Space == "w" && c.Tag == prTag {
					changes = append(changes, c)
				}
				walk(c)
			}
		}
		walk(root)

		for _, change := range changes {
			container := change.Parent()
			if container == nil || container.Tag != containerTag {
				continue
			}
			grandparent := container.Parent()
			if grandparent == nil {
				continue
			}
			idx := oxml.Index(grandparent, container)

			// The original properties live as the *PrChange's own child
			// element matching containerTag (e.g. <w:rPrChange><w:rPr>...).
			original := oxml.FindChild(change, "w:"+containerTag)
			grandparent.RemoveChild(container)
			if original != nil && len(original.ChildElements()) > 0 {
				restored := original.Copy()
				restored.Space, restored.Tag = "w", containerTag
				grandparent.InsertChildAt(idx, restored)
			}
			count++
		}
	}
	return count
}
