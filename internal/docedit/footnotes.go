package docedit

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/opc"
	"github.com/vortex/safedocx/internal/oxml"
)

// reservedFootnoteIDs are the two entries every footnotes.xml must carry
// (spec §4.8 "Part bootstrap").
var reservedFootnoteIDs = map[int]bool{-1: true, 0: true}

// BootstrapFootnoteParts ensures word/footnotes.xml exists with the two
// reserved entries, registering the content type and relationship (spec
// §4.8 "Part bootstrap"). Idempotent.
func BootstrapFootnoteParts(pkg *opc.OpcPackage) error {
	part, created, err := ensurePart(pkg, footnotesTarget)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	root := part.Element()
	appendFootnoteEntry(root, -1, "separator", nil)
	appendFootnoteEntry(root, 0, "continuationSeparator", nil)
	return nil
}

// appendFootnoteEntry appends a <w:footnote> with the given id and pType
// (separator/continuationSeparator), or a body built from bodyParts for a
// real footnote.
func appendFootnoteEntry(root *etree.Element, id int, pType string, bodyParts []*etree.Element) {
	fn := oxml.NewElement("w:footnote")
	oxml.SetAttr(fn, "w:id", strconv.Itoa(id))
	if pType != "" {
		oxml.SetAttr(fn, "w:type", pType)
	}
	if pType != "" {
		p := oxml.NewElement("w:p")
		p.AddChild(oxml.NewElement("w:r"))
		fn.AddChild(p)
	}
	for _, p := range bodyParts {
		fn.AddChild(p)
	}
	root.AddChild(fn)
}

// FootnoteDisplayNumbers computes the footnoteId -> displayNumber map for
// body, assigning 1..N by first-seen document order, skipping reserved IDs
// (spec §4.8 "Display numbering").
func FootnoteDisplayNumbers(body *etree.Element) map[int]int {
	out := make(map[int]int)
	next := 1
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if c.Space == "w" && c.Tag == "footnoteReference" {
				if v, ok := oxml.Attr(c, "w:id"); ok {
					if id, err := parseIntSafe(v); err == nil && !reservedFootnoteIDs[id] {
						if _, seen := out[id]; !seen {
							out[id] = next
							next++
						}
					}
				}
			}
			walk(c)
		}
	}
	walk(body)
	return out
}

// nextFootnoteID returns the running-maximum-plus-one w:id across
// footnotes.xml.
func nextFootnoteID(footnotesRoot *etree.Element) int {
	max := 0
	for _, c := range footnotesRoot.ChildElements() {
		if c.Space != "w" || c.Tag != "footnote" {
			continue
		}
		if v, ok := oxml.Attr(c, "w:id"); ok {
			if n, err := parseIntSafe(v); err == nil && n > max {
				max = n
			}
		}
	}
	return max + 1
}

// AddFootnote inserts a footnote reference into paragraph p, optionally
// positioned right after the first occurrence of afterText (resolved via
// unique-substring matching), and appends the footnote body (spec §4.8
// "Add").
func AddFootnote(pkg *opc.OpcPackage, p *etree.Element, text, afterText string) (int, error) {
	if err := BootstrapFootnoteParts(pkg); err != nil {
		return 0, err
	}
	part, _, err := ensurePart(pkg, footnotesTarget)
	if err != nil {
		return 0, err
	}
	footnotesRoot := part.Element()
	id := nextFootnoteID(footnotesRoot)

	refRun := oxml.NewElement("w:r")
	refRPr := oxml.NewElement("w:rPr")
	refStyle := oxml.NewElement("w:rStyle")
	oxml.SetAttr(refStyle, "w:val", "FootnoteReference")
	refRPr.AddChild(refStyle)
	refRun.AddChild(refRPr)
	ref := oxml.NewElement("w:footnoteReference")
	oxml.SetAttr(ref, "w:id", strconv.Itoa(id))
	refRun.AddChild(ref)

	if afterText == "" {
		p.AddChild(refRun)
	} else {
		if err := insertRunAfterAnchor(p, afterText, refRun); err != nil {
			return 0, err
		}
	}

	bodyP := oxml.NewElement("w:p")
	pPr := oxml.NewElement("w:pPr")
	pStyle := oxml.NewElement("w:pStyle")
	oxml.SetAttr(pStyle, "w:val", "FootnoteText")
	pPr.AddChild(pStyle)
	bodyP.AddChild(pPr)

	refMarkRun := oxml.NewElement("w:r")
	refMarkRPr := oxml.NewElement("w:rPr")
	refMarkStyle := oxml.NewElement("w:rStyle")
	oxml.SetAttr(refMarkStyle, "w:val", "FootnoteReference")
	refMarkRPr.AddChild(refMarkStyle)
	refMarkRun.AddChild(refMarkRPr)
	refMarkRun.AddChild(oxml.NewElement("w:footnoteRef"))
	bodyP.AddChild(refMarkRun)

	spaceRun := oxml.NewElement("w:r")
	spaceRun.AddChild(newTextElement(" "))
	bodyP.AddChild(spaceRun)

	textRun := oxml.NewElement("w:r")
	textRun.AddChild(newTextElement(text))
	bodyP.AddChild(textRun)

	fn := oxml.NewElement("w:footnote")
	oxml.SetAttr(fn, "w:id", strconv.Itoa(id))
	fn.AddChild(bodyP)
	footnotesRoot.AddChild(fn)

	return id, nil
}

// insertRunAfterAnchor locates anchorText in p's visible text via
// unique-substring matching and inserts run immediately after the run
// covering the match's end offset, splitting that run if necessary.
func insertRunAfterAnchor(p *etree.Element, anchorText string, run *etree.Element) error {
	full := ParagraphText(p)
	m := FindUniqueSubstring(full, anchorText)
	switch m.Status {
	case MatchNotFound:
		return NewInvalidArgumentError("docedit: anchor text not found")
	case MatchMultiple:
		return NewInvalidArgumentError("docedit: anchor text is not unique")
	}

	spans := paragraphSpans(p)
	offset := m.End
	for _, s := range spans {
		if offset <= s.end {
			within := offset - s.start
			runLen := s.end - s.start
			parent := s.run.Parent()
			if within == runLen {
				idx := oxml.Index(parent, s.run)
				parent.InsertChildAt(idx+1, run)
				return nil
			}
			left, right := splitRun(s.run, within)
			idx := oxml.Index(parent, s.run)
			parent.InsertChildAt(idx, left)
			parent.InsertChildAt(idx+1, run)
			parent.InsertChildAt(idx+2, right)
			parent.RemoveChild(s.run)
			return nil
		}
	}
	return NewInvalidArgumentError("docedit: anchor resolved outside paragraph bounds")
}

// UpdateFootnoteText replaces the text of footnote id's body, keeping only
// the reference-mark run (spec §4.8 "Update text").
func UpdateFootnoteText(pkg *opc.OpcPackage, id int, newText string) error {
	part, ok := pkg.PartByName(footnotesTarget.name)
	if !ok {
		return NewInvalidArgumentError("docedit: footnotes part not present")
	}
	xp := part.(*opc.XmlPart)
	root := xp.Element()

	var target *etree.Element
	for _, c := range root.ChildElements() {
		if c.Space == "w" && c.Tag == "footnote" {
			if v, _ := oxml.Attr(c, "w:id"); v == strconv.Itoa(id) {
				target = c
				break
			}
		}
	}
	if target == nil {
		return NewInvalidArgumentError("docedit: footnote %d not found", id)
	}
	firstP := oxml.FindChild(target, "w:p")
	if firstP == nil {
		return NewInvalidArgumentError("docedit: footnote %d has no body paragraph", id)
	}

	var toRemove []*etree.Element
	for _, r := range firstP.ChildElements() {
		if r.Space == "w" && r.Tag == "r" {
			if oxml.FindChild(r, "w:footnoteRef") != nil {
				continue
			}
			toRemove = append(toRemove, r)
		}
	}
	for _, r := range toRemove {
		firstP.RemoveChild(r)
	}

	spaceRun := oxml.NewElement("w:r")
	spaceRun.AddChild(newTextElement(" "))
	firstP.AddChild(spaceRun)

	textRun := oxml.NewElement("w:r")
	textRun.AddChild(newTextElement(newText))
	firstP.AddChild(textRun)

	return nil
}

// DeleteFootnote removes footnote id's entry from footnotes.xml and every
// w:footnoteReference[@id=id] from body (spec §4.8 "Delete").
func DeleteFootnote(pkg *opc.OpcPackage, id int) error {
	part, ok := pkg.PartByName(footnotesTarget.name)
	if !ok {
		return nil
	}
	xp := part.(*opc.XmlPart)
	root := xp.Element()
	for _, c := range root.ChildElements() {
		if c.Space == "w" && c.Tag == "footnote" {
			if v, _ := oxml.Attr(c, "w:id"); v == strconv.Itoa(id) {
				root.RemoveChild(c)
				break
			}
		}
	}

	body, err := documentBody(pkg)
	if err != nil {
		return err
	}
	var refRuns []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if c.Space == "w" && c.Tag == "r" {
				if ref := oxml.FindChild(c, "w:footnoteReference"); ref != nil {
					if v, _ := oxml.Attr(ref, "w:id"); v == strconv.Itoa(id) {
						ref.Parent().RemoveChild(ref)
						if isEmptyRun(c) {
							refRuns = append(refRuns, c)
						}
						continue
					}
				}
			}
			walk(c)
		}
	}
	walk(body)
	for _, r := range refRuns {
		if p := r.Parent(); p != nil {
			p.RemoveChild(r)
		}
	}
	return nil
}
