package docedit

import (
	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// RevisionKind names the revision-entry categories spec §4.6 enumerates.
type RevisionKind string

const (
	RevisionInsert       RevisionKind = "INSERT"
	RevisionDelete       RevisionKind = "DELETE"
	RevisionMoveFrom     RevisionKind = "MOVE_FROM"
	RevisionMoveTo       RevisionKind = "MOVE_TO"
	RevisionFormatChange RevisionKind = "FORMAT_CHANGE"
)

// Revision is one tracked-change entry attached to a paragraph (spec §4.6).
type Revision struct {
	Kind     RevisionKind
	Author   string
	Date     string
	ParaID   string
	Comments []CommentRecord
}

// ParagraphChange is one paragraph-level diff entry in an extract-revisions
// page (spec §4.6).
type ParagraphChange struct {
	ParaID     string
	BeforeText string
	AfterText  string
	Revisions  []Revision
}

// RevisionPage is a paginated slice of a document's tracked changes.
type RevisionPage struct {
	Changes      []ParagraphChange
	TotalChanges int
	HasMore      bool
}

// wrapperKindTags maps the four revision-wrapper element tags to their kind,
// excluding FORMAT_CHANGE (handled separately from *PrChange elements).
var wrapperKindTags = map[string]RevisionKind{
	"ins": RevisionInsert, "del": RevisionDelete,
	"moveFrom": RevisionMoveFrom, "moveTo": RevisionMoveTo,
}

// paragraphHasRevisions reports whether p carries any revision wrapper or
// *PrChange, anywhere except inside pPr/rPr markers.
func paragraphHasRevisions(p *etree.Element) bool {
	found := false
	var walk func(*etree.Element, bool)
	walk = func(el *etree.Element, insideRPr bool) {
		if found {
			return
		}
		for _, c := range el.ChildElements() {
			nextInsideRPr := insideRPr || (c.Space == "w" && c.Tag == "rPr")
			if c.Space == "w" {
				if (wrapperKindTags[c.Tag] != "" && !insideRPr) || prChangeTags[c.Tag] {
					found = true
					return
				}
			}
			walk(c, nextInsideRPr)
			if found {
				return
			}
		}
	}
	walk(p, false)
	return found
}

// enumerateParagraphRevisions scans p for revision wrappers (excluding any
// nested in pPr/rPr) and *PrChange elements (wherever they sit), returning
// one Revision entry per instance (spec §4.6 step 2).
func enumerateParagraphRevisions(p *etree.Element) []Revision {
	var out []Revision
	var walk func(*etree.Element, bool)
	walk = func(el *etree.Element, insideRPr bool) {
		for _, c := range el.ChildElements() {
			nextInsideRPr := insideRPr || (c.Space == "w" && c.Tag == "rPr")
			if c.Space == "w" {
				if kind, ok := wrapperKindTags[c.Tag]; ok && !insideRPr {
					author, _ := oxml.Attr(c, "w:author")
					date, _ := oxml.Attr(c, "w:date")
					out = append(out, Revision{Kind: kind, Author: author, Date: date})
				} else if prChangeTags[c.Tag] {
					author, _ := oxml.Attr(c, "w:author")
					date, _ := oxml.Attr(c, "w:date")
					out = append(out, Revision{Kind: RevisionFormatChange, Author: author, Date: date})
				}
			}
			walk(c, nextInsideRPr)
		}
	}
	walk(p, false)
	return out
}

// paragraphIsEntirelyInserted reports whether every content-bearing child of
// p lives inside w:ins/w:moveTo (spec §4.6 "entirely inserted").
func paragraphIsEntirelyInserted(p *etree.Element) bool {
	return onlyContentIsWrapped(p, map[string]bool{"ins": true, "moveTo": true}) ||
		hasParagraphMarkerWrapper(p, "ins")
}

// paragraphIsEntirelyDeleted reports whether every content-bearing child of
// p lives inside w:del/w:moveFrom (spec §4.6 "entirely deleted").
func paragraphIsEntirelyDeleted(p *etree.Element) bool {
	return onlyContentIsWrapped(p, map[string]bool{"del": true, "moveFrom": true}) ||
		hasParagraphMarkerWrapper(p, "del")
}

// ExtractRevisions computes a paginated view of root's tracked changes (spec
// §4.6). comments, if non-nil, supplies the comment lookup by anchored
// paragraph id for step 2's "attach comments" rule.
func ExtractRevisions(root *etree.Element, offset, limit int, commentsByParaID map[string][]CommentRecord) RevisionPage {
	// Step 1: dual clone + independent transform.
	acceptedRoot := root.Copy()
	AcceptTrackChanges(acceptedRoot)
	rejectedRoot := root.Copy()
	RejectTrackChanges(rejectedRoot)

	acceptedByID := make(map[string]*etree.Element)
	for _, p := range AllParagraphs(acceptedRoot) {
		if id := GetParagraphBookmarkID(p); id != "" {
			acceptedByID[id] = p
		}
	}
	rejectedByID := make(map[string]*etree.Element)
	for _, p := range AllParagraphs(rejectedRoot) {
		if id := GetParagraphBookmarkID(p); id != "" {
			rejectedByID[id] = p
		}
	}

	var all []ParagraphChange
	for _, p := range AllParagraphs(root) {
		if !paragraphHasRevisions(p) {
			continue
		}
		id := GetParagraphBookmarkID(p)
		if id == "" {
			continue
		}

		beforeText := ""
		if !paragraphIsEntirelyInserted(p) {
			if rp, ok := rejectedByID[id]; ok {
				beforeText = ParagraphText(rp)
			}
		}
		afterText := ""
		if !paragraphIsEntirelyDeleted(p) {
			if ap, ok := acceptedByID[id]; ok {
				afterText = ParagraphText(ap)
			}
		}

		revisions := enumerateParagraphRevisions(p)

		// Step 3: skip paragraphs with no net change and no revisions.
		if beforeText == "" && afterText == "" && len(revisions) == 0 {
			continue
		}

		if commentsByParaID != nil {
			for i := range revisions {
				revisions[i].Comments = commentsByParaID[id]
			}
		}

		all = append(all, ParagraphChange{
			ParaID:     id,
			BeforeText: beforeText,
			AfterText:  afterText,
			Revisions:  revisions,
		})
	}

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	page := all[offset:end]

	return RevisionPage{
		Changes:      page,
		TotalChanges: total,
		HasMore:      offset+limit < total,
	}
}
