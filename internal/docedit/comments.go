package docedit

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/opc"
	"github.com/vortex/safedocx/internal/oxml"
)

// CommentRecord is one comment, read back from comments.xml/commentsExtended.xml
// (spec §4.7 "Read").
type CommentRecord struct {
	ID                  int
	ParaID              string
	ParentParaID        string
	Author              string
	Initials            string
	Date                string
	Text                string
	AnchoredParagraphID string
	Children            []*CommentRecord
}

// BootstrapCommentParts ensures word/comments.xml, word/commentsExtended.xml,
// and word/people.xml exist with their relationships registered (spec §4.7
// "Bootstrap"). Idempotent.
func BootstrapCommentParts(pkg *opc.OpcPackage) error {
	for _, t := range []partRelTarget{commentsTarget, commentsExtTarget, peopleTarget} {
		if _, _, err := ensurePart(pkg, t); err != nil {
			return err
		}
	}
	return nil
}

// newParaID generates an 8-hex-digit paraId (spec §4.7 "Add root comment").
func newParaID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// AddRootComment anchors a new comment to the visible-text range [start,end)
// of paragraph p (spec §4.7 "Add root comment").
func AddRootComment(pkg *opc.OpcPackage, p *etree.Element, start, end int, author, text, initials string, clock Clock) (int, error) {
	if err := BootstrapCommentParts(pkg); err != nil {
		return 0, err
	}
	commentsPart, _, err := ensurePart(pkg, commentsTarget)
	if err != nil {
		return 0, err
	}
	peoplePart, _, err := ensurePart(pkg, peopleTarget)
	if err != nil {
		return 0, err
	}

	commentsRoot := commentsPart.Element()
	id := maxAttrInt(commentsRoot, "w:id") + 1
	paraID := newParaID()

	si, _, ei, _, err := mapRangeToRuns(p, start, end)
	if err != nil {
		return 0, err
	}
	spans := paragraphSpans(p)
	startRun := spans[si].run
	endRun := spans[ei].run

	startParent := startRun.Parent()
	startIdx := oxml.Index(startParent, startRun)
	rangeStart := oxml.NewElement("w:commentRangeStart")
	oxml.SetAttr(rangeStart, "w:id", strconv.Itoa(id))
	startParent.InsertChildAt(startIdx, rangeStart)

	endParent := endRun.Parent()
	endIdx := oxml.Index(endParent, endRun)
	rangeEnd := oxml.NewElement("w:commentRangeEnd")
	oxml.SetAttr(rangeEnd, "w:id", strconv.Itoa(id))
	endParent.InsertChildAt(endIdx+1, rangeEnd)

	refRun := oxml.NewElement("w:r")
	refRPr := oxml.NewElement("w:rPr")
	refStyle := oxml.NewElement("w:rStyle")
	oxml.SetAttr(refStyle, "w:val", "CommentReference")
	refRPr.AddChild(refStyle)
	refRun.AddChild(refRPr)
	ref := oxml.NewElement("w:commentReference")
	oxml.SetAttr(ref, "w:id", strconv.Itoa(id))
	refRun.AddChild(ref)
	endParent.InsertChildAt(endIdx+2, refRun)

	appendCommentElement(commentsRoot, id, paraID, author, initials, text, clock)
	ensurePersonInPeople(peoplePart.Element(), author)

	return id, nil
}

// AddReply appends a reply to the comment whose body paragraph carries
// parentParaID, linking the two via commentsExtended.xml (spec §4.7 "Add
// reply").
func AddReply(pkg *opc.OpcPackage, parentParaID, author, text, initials string, clock Clock) (int, error) {
	if err := BootstrapCommentParts(pkg); err != nil {
		return 0, err
	}
	commentsPart, _, err := ensurePart(pkg, commentsTarget)
	if err != nil {
		return 0, err
	}
	peoplePart, _, err := ensurePart(pkg, peopleTarget)
	if err != nil {
		return 0, err
	}
	extPart, _, err := ensurePart(pkg, commentsExtTarget)
	if err != nil {
		return 0, err
	}

	commentsRoot := commentsPart.Element()
	id := maxAttrInt(commentsRoot, "w:id") + 1
	childParaID := newParaID()

	appendCommentElement(commentsRoot, id, childParaID, author, initials, text, clock)
	ensurePersonInPeople(peoplePart.Element(), author)

	extRoot := extPart.Element()
	ensureCommentExEntry(extRoot, parentParaID, "")
	ensureCommentExEntry(extRoot, childParaID, parentParaID)

	return id, nil
}

func appendCommentElement(commentsRoot *etree.Element, id int, paraID, author, initials, text string, clock Clock) {
	c := oxml.NewElement("w:comment")
	oxml.SetAttr(c, "w:id", strconv.Itoa(id))
	oxml.SetAttr(c, "w:author", author)
	if initials != "" {
		oxml.SetAttr(c, "w:initials", initials)
	}
	oxml.SetAttr(c, "w:date", ISO8601(clock.Now()))

	p := oxml.NewElement("w:p")
	oxml.SetAttr(p, "w14:paraId", paraID)
	annotRun := oxml.NewElement("w:r")
	annotRun.AddChild(oxml.NewElement("w:annotationRef"))
	p.AddChild(annotRun)
	textRun := oxml.NewElement("w:r")
	textRun.AddChild(newTextElement(text))
	p.AddChild(textRun)
	c.AddChild(p)

	commentsRoot.AddChild(c)
}

func ensurePersonInPeople(peopleRoot *etree.Element, author string) {
	for _, c := range peopleRoot.ChildElements() {
		if c.Space == "w15" && c.Tag == "person" {
			if v, _ := oxml.Attr(c, "w15:author"); v == author {
				return
			}
		}
	}
	person := oxml.NewElement("w15:person")
	oxml.SetAttr(person, "w15:author", author)
	presence := oxml.NewElement("w15:presenceInfo")
	oxml.SetAttr(presence, "w15:providerId", "None")
	oxml.SetAttr(presence, "w15:userId", author)
	person.AddChild(presence)
	peopleRoot.AddChild(person)
}

func ensureCommentExEntry(extRoot *etree.Element, paraID, parentParaID string) {
	for _, c := range extRoot.ChildElements() {
		if c.Space == "w15" && c.Tag == "commentEx" {
			if v, _ := oxml.Attr(c, "w15:paraId"); v == paraID {
				if parentParaID != "" {
					oxml.SetAttr(c, "w15:paraIdParent", parentParaID)
				}
				return
			}
		}
	}
	entry := oxml.NewElement("w15:commentEx")
	oxml.SetAttr(entry, "w15:paraId", paraID)
	if parentParaID != "" {
		oxml.SetAttr(entry, "w15:paraIdParent", parentParaID)
	}
	oxml.SetAttr(entry, "w15:done", "0")
	extRoot.AddChild(entry)
}

// commentParentMap builds a paraId -> parentParaId map from
// commentsExtended.xml.
func commentParentMap(extRoot *etree.Element) map[string]string {
	m := make(map[string]string)
	if extRoot == nil {
		return m
	}
	for _, c := range extRoot.ChildElements() {
		if c.Space != "w15" || c.Tag != "commentEx" {
			continue
		}
		paraID, _ := oxml.Attr(c, "w15:paraId")
		parent, _ := oxml.Attr(c, "w15:paraIdParent")
		if paraID != "" && parent != "" {
			m[paraID] = parent
		}
	}
	return m
}

// anchoredParagraphID walks up from a w:commentRangeStart with the given id
// in body to the enclosing paragraph and returns its bookmark id (spec §4.7
// "Read").
func anchoredParagraphID(body *etree.Element, commentID int) string {
	var found string
	var walk func(*etree.Element, *etree.Element)
	walk = func(el, enclosingParagraph *etree.Element) {
		if found != "" {
			return
		}
		cur := enclosingParagraph
		if el.Space == "w" && el.Tag == "p" {
			cur = el
		}
		if el.Space == "w" && el.Tag == "commentRangeStart" {
			if v, _ := oxml.Attr(el, "w:id"); v == strconv.Itoa(commentID) {
				if cur != nil {
					found = GetParagraphBookmarkID(cur)
				}
				return
			}
		}
		for _, c := range el.ChildElements() {
			walk(c, cur)
			if found != "" {
				return
			}
		}
	}
	walk(body, nil)
	return found
}

// ReadComments builds the full comment tree for pkg (spec §4.7 "Read").
func ReadComments(pkg *opc.OpcPackage) ([]*CommentRecord, error) {
	commentsPartRaw, ok := pkg.PartByName(commentsTarget.name)
	if !ok {
		return nil, nil
	}
	commentsPart, ok := commentsPartRaw.(*opc.XmlPart)
	if !ok {
		return nil, NewInvalidArgumentError("docedit: comments part is not XML")
	}
	commentsRoot := commentsPart.Element()

	var extRoot *etree.Element
	if extPartRaw, ok := pkg.PartByName(commentsExtTarget.name); ok {
		if extPart, ok := extPartRaw.(*opc.XmlPart); ok {
			extRoot = extPart.Element()
		}
	}
	parentOf := commentParentMap(extRoot)

	body, err := documentBody(pkg)
	if err != nil {
		return nil, err
	}

	byParaID := make(map[string]*CommentRecord)
	var order []string
	for _, c := range commentsRoot.ChildElements() {
		if c.Space != "w" || c.Tag != "comment" {
			continue
		}
		idStr, _ := oxml.Attr(c, "w:id")
		id, _ := strconv.Atoi(idStr)
		author, _ := oxml.Attr(c, "w:author")
		initials, _ := oxml.Attr(c, "w:initials")
		date, _ := oxml.Attr(c, "w:date")
		var paraID, text string
		if p := oxml.FindChild(c, "w:p"); p != nil {
			paraID, _ = oxml.Attr(p, "w14:paraId")
			text = ParagraphText(p)
		}
		rec := &CommentRecord{
			ID: id, ParaID: paraID, Author: author, Initials: initials, Date: date, Text: text,
			ParentParaID:        parentOf[paraID],
			AnchoredParagraphID: anchoredParagraphID(body, id),
		}
		byParaID[paraID] = rec
		order = append(order, paraID)
	}

	var roots []*CommentRecord
	for _, paraID := range order {
		rec := byParaID[paraID]
		if parent, ok := byParaID[rec.ParentParaID]; ok {
			parent.Children = append(parent.Children, rec)
			continue
		}
		roots = append(roots, rec)
	}
	return roots, nil
}

// DeleteCommentCascading removes the comment with paraID and every comment
// that (transitively) replies to it (spec §4.7 "Delete (cascading)").
func DeleteCommentCascading(pkg *opc.OpcPackage, paraID string) (int, error) {
	commentsPartRaw, ok := pkg.PartByName(commentsTarget.name)
	if !ok {
		return 0, nil
	}
	commentsPart := commentsPartRaw.(*opc.XmlPart)
	commentsRoot := commentsPart.Element()

	var extRoot *etree.Element
	if extPartRaw, ok := pkg.PartByName(commentsExtTarget.name); ok {
		extPart := extPartRaw.(*opc.XmlPart)
		extRoot = extPart.Element()
	}

	// Build children-by-parent adjacency for BFS.
	children := make(map[string][]string)
	if extRoot != nil {
		for _, c := range extRoot.ChildElements() {
			if c.Space != "w15" || c.Tag != "commentEx" {
				continue
			}
			pid, _ := oxml.Attr(c, "w15:paraId")
			parent, _ := oxml.Attr(c, "w15:paraIdParent")
			if parent != "" {
				children[parent] = append(children[parent], pid)
			}
		}
	}

	toDelete := make(map[string]bool)
	queue := []string{paraID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if toDelete[cur] {
			continue
		}
		toDelete[cur] = true
		queue = append(queue, children[cur]...)
	}

	// Map paraId -> w:id for the affected comments, before removing elements.
	idsToRemove := make(map[int]bool)
	var commentEls []*etree.Element
	for _, c := range commentsRoot.ChildElements() {
		if c.Space != "w" || c.Tag != "comment" {
			continue
		}
		p := oxml.FindChild(c, "w:p")
		if p == nil {
			continue
		}
		pid, _ := oxml.Attr(p, "w14:paraId")
		if toDelete[pid] {
			commentEls = append(commentEls, c)
			idStr, _ := oxml.Attr(c, "w:id")
			if n, err := parseIntSafe(idStr); err == nil {
				idsToRemove[n] = true
			}
		}
	}
	for _, c := range commentEls {
		commentsRoot.RemoveChild(c)
	}

	if extRoot != nil {
		var extEls []*etree.Element
		for _, c := range extRoot.ChildElements() {
			if c.Space != "w15" || c.Tag != "commentEx" {
				continue
			}
			pid, _ := oxml.Attr(c, "w15:paraId")
			if toDelete[pid] {
				extEls = append(extEls, c)
			}
		}
		for _, c := range extEls {
			extRoot.RemoveChild(c)
		}
	}

	body, err := documentBody(pkg)
	if err != nil {
		return 0, err
	}
	removeCommentMarkersFromBody(body, idsToRemove)

	return len(commentEls), nil
}

// removeCommentMarkersFromBody removes every commentRangeStart/End and
// commentReference whose id is in ids, pruning the enclosing run of a
// commentReference if it then carries no visible content.
func removeCommentMarkersFromBody(body *etree.Element, ids map[int]bool) {
	var rangeMarkers []*etree.Element
	var refRuns []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if c.Space == "w" && (c.Tag == "commentRangeStart" || c.Tag == "commentRangeEnd") {
				if idMatches(c, ids) {
					rangeMarkers = append(rangeMarkers, c)
				}
				continue
			}
			if c.Space == "w" && c.Tag == "r" {
				if ref := oxml.FindChild(c, "w:commentReference"); ref != nil && idMatches(ref, ids) {
					ref.Parent().RemoveChild(ref)
					if isEmptyRun(c) {
						refRuns = append(refRuns, c)
					}
					continue
				}
			}
			walk(c)
		}
	}
	walk(body)
	for _, m := range rangeMarkers {
		if p := m.Parent(); p != nil {
			p.RemoveChild(m)
		}
	}
	for _, r := range refRuns {
		if p := r.Parent(); p != nil {
			p.RemoveChild(r)
		}
	}
}

func idMatches(el *etree.Element, ids map[int]bool) bool {
	v, ok := oxml.Attr(el, "w:id")
	if !ok {
		return false
	}
	n, err := parseIntSafe(v)
	return err == nil && ids[n]
}
