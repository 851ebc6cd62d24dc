package docedit

import (
	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// ValidationCode enumerates the warning kinds the validator produces (spec
// §4.12).
type ValidationCode string

const (
	OrphanedBookmarkStart  ValidationCode = "ORPHANED_BOOKMARK_START"
	OrphanedBookmarkEnd    ValidationCode = "ORPHANED_BOOKMARK_END"
	MalformedTrackedChange ValidationCode = "MALFORMED_TRACKED_CHANGE"
	EmptyTrackedChange     ValidationCode = "EMPTY_TRACKED_CHANGE"
	UnmatchedFieldBegin    ValidationCode = "UNMATCHED_FIELD_BEGIN"
	UnmatchedFieldEnd      ValidationCode = "UNMATCHED_FIELD_END"
)

// ValidationWarning is one finding from a Validate pass.
type ValidationWarning struct {
	Code    ValidationCode
	Element *etree.Element
	Detail  string
}

// Validate runs a non-destructive, read-only pass over root, producing
// warnings for orphaned bookmarks, malformed or empty tracked-change
// wrappers, and unmatched field-code delimiters (spec §4.12). The tree is
// walked iteratively with an explicit stack, mirroring the teacher's
// OpcPackage.IterParts (spec §9 "Iterative DFS, not recursion").
func Validate(root *etree.Element) []ValidationWarning {
	var warnings []ValidationWarning

	bookmarkStarts := make(map[string]*etree.Element)
	bookmarkEnds := make(map[string]*etree.Element)
	var fieldBegins []*etree.Element
	var fieldEnds []*etree.Element

	stack := []*etree.Element{root}
	for len(stack) > 0 {
		n := len(stack) - 1
		el := stack[n]
		stack = stack[:n]

		children := el.ChildElements()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}

		if el.Space != "w" {
			continue
		}
		switch el.Tag {
		case "bookmarkStart":
			if id, ok := oxml.Attr(el, "w:id"); ok {
				bookmarkStarts[id] = el
			}
		case "bookmarkEnd":
			if id, ok := oxml.Attr(el, "w:id"); ok {
				bookmarkEnds[id] = el
			}
		case "ins", "del", "moveFrom", "moveTo":
			warnings = append(warnings, validateTrackedWrapper(el)...)
		case "fldChar":
			if v, _ := oxml.Attr(el, "w:fldCharType"); v == "begin" {
				fieldBegins = append(fieldBegins, el)
			} else if v == "end" {
				fieldEnds = append(fieldEnds, el)
			}
		}
	}

	for id, el := range bookmarkStarts {
		if _, ok := bookmarkEnds[id]; !ok {
			warnings = append(warnings, ValidationWarning{
				Code: OrphanedBookmarkStart, Element: el, Detail: "bookmarkStart id=" + id + " has no matching bookmarkEnd",
			})
		}
	}
	for id, el := range bookmarkEnds {
		if _, ok := bookmarkStarts[id]; !ok {
			warnings = append(warnings, ValidationWarning{
				Code: OrphanedBookmarkEnd, Element: el, Detail: "bookmarkEnd id=" + id + " has no matching bookmarkStart",
			})
		}
	}

	if len(fieldBegins) != len(fieldEnds) {
		unmatched := fieldBegins
		code := UnmatchedFieldBegin
		if len(fieldEnds) > len(fieldBegins) {
			unmatched = fieldEnds
			code = UnmatchedFieldEnd
		}
		for _, el := range unmatched {
			warnings = append(warnings, ValidationWarning{Code: code, Element: el, Detail: "field-code delimiter count mismatch"})
		}
	}

	return warnings
}

// validateTrackedWrapper checks one ins/del/moveFrom/moveTo wrapper for a
// missing id/author/date, or no content (spec §4.12).
func validateTrackedWrapper(w *etree.Element) []ValidationWarning {
	var out []ValidationWarning
	_, hasID := oxml.Attr(w, "w:id")
	_, hasAuthor := oxml.Attr(w, "w:author")
	_, hasDate := oxml.Attr(w, "w:date")
	if !hasID || !hasAuthor || !hasDate {
		out = append(out, ValidationWarning{
			Code: MalformedTrackedChange, Element: w,
			Detail: "missing required attribute (id/author/date)",
		})
	}
	if len(w.ChildElements()) == 0 {
		out = append(out, ValidationWarning{Code: EmptyTrackedChange, Element: w, Detail: "tracked-change wrapper has no content"})
	}
	return out
}
