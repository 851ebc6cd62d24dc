package docedit

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// fieldState is the three-state field-code machine (spec §4.1, §9 "Field-code
// state machine" — represented explicitly, never inferred from position).
type fieldState int

const (
	fieldOutside fieldState = iota
	fieldInCode
	fieldInResult
)

// TextRun is the visible-text projection of one <w:r> element (spec §4.1).
type TextRun struct {
	Run           *etree.Element
	Text          string
	IsFieldResult bool
}

// RunText walks the direct children of run, driving the field-code state
// machine, and returns the run's visible text plus whether any child was
// seen while IN_RESULT.
func RunText(run *etree.Element) (string, bool) {
	var sb strings.Builder
	state := fieldOutside
	isFieldResult := false

	for _, child := range run.ChildElements() {
		if child.Space != "w" {
			continue
		}
		switch child.Tag {
		case "fldChar":
			switch oxml.AttrOr(child, "w:fldCharType", "") {
			case "begin":
				state = fieldInCode
			case "separate":
				state = fieldInResult
			case "end":
				state = fieldOutside
			}
		case "t":
			if state == fieldInResult {
				isFieldResult = true
			}
			sb.WriteString(directText(child))
		case "instrText":
			// Suppressed while IN_CODE; field codes are never visible.
			// (If encountered outside a begin/end pair we still suppress it —
			// instrText only ever carries field-code source.)
		default:
			if text, ok := atomText(child); ok {
				sb.WriteString(text)
			}
		}
	}
	return sb.String(), isFieldResult
}

// atomText returns the visible-text contribution of a fixed-length run atom
// (spec §4.1's w:tab/w:br, plus the w:cr/w:noBreakHyphen/w:ptab atoms
// splitRun's atomLength also treats as unit-length), and whether c is such
// an atom at all. This is the single source of truth for visible-length
// accounting shared between RunText and atomLength — they must agree, since
// ReplaceParagraphTextRange's offsets are computed by the former and
// consumed by the latter.
func atomText(c *etree.Element) (string, bool) {
	if c.Space != "w" {
		return "", false
	}
	switch c.Tag {
	case "tab", "ptab":
		return "\t", true
	case "cr":
		return "\n", true
	case "br":
		if v, _ := oxml.Attr(c, "w:type"); v != "" && v != "textWrapping" {
			return "", false
		}
		return "\n", true
	case "noBreakHyphen":
		return "-", true
	default:
		return "", false
	}
}

// directText returns only the direct text child of elem (spec §9
// "Non-recursive textContent" — never the DOM's recursive accumulator).
func directText(elem *etree.Element) string {
	var sb strings.Builder
	for _, tok := range elem.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
		}
	}
	return sb.String()
}

// ParagraphRuns returns the TextRun projection of every <w:r> that is a
// direct child of p, in document order (spec §4.1).
func ParagraphRuns(p *etree.Element) []TextRun {
	var out []TextRun
	for _, child := range p.ChildElements() {
		if child.Space != "w" || child.Tag != "r" {
			continue
		}
		text, isFieldResult := RunText(child)
		out = append(out, TextRun{Run: child, Text: text, IsFieldResult: isFieldResult})
	}
	return out
}

// ParagraphText is the concatenation of every run's visible text, in
// document order (spec §4.1).
func ParagraphText(p *etree.Element) string {
	var sb strings.Builder
	for _, tr := range ParagraphRuns(p) {
		sb.WriteString(tr.Text)
	}
	return sb.String()
}

// runOffsetSpan is one run's position within a paragraph's visible text.
type runOffsetSpan struct {
	run           *etree.Element
	start, end    int // visible-character offsets, half-open [start,end)
	isFieldResult bool
}

// paragraphSpans returns the visible-character span of each run in p.
func paragraphSpans(p *etree.Element) []runOffsetSpan {
	runs := ParagraphRuns(p)
	spans := make([]runOffsetSpan, 0, len(runs))
	pos := 0
	for _, tr := range runs {
		n := len([]rune(tr.Text))
		spans = append(spans, runOffsetSpan{run: tr.Run, start: pos, end: pos + n, isFieldResult: tr.IsFieldResult})
		pos += n
	}
	return spans
}
