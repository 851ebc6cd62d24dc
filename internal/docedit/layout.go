package docedit

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// ParagraphSpacing names the spacing attributes a caller may set (spec §4.11).
// Values are twips (dxa). A nil field leaves that attribute untouched.
type ParagraphSpacing struct {
	Before   *int
	After    *int
	Line     *int
	LineRule string // auto, exact, atLeast; ignored when Line is nil
}

// TableRowHeight names the row-height attributes a caller may set (spec §4.11).
type TableRowHeight struct {
	Val   int
	HRule string // auto, exact, atLeast
}

// TableCellPadding names the four cell-margin sides a caller may set (spec
// §4.11). A nil field leaves that side untouched.
type TableCellPadding struct {
	Top, Bottom, Left, Right *int
}

// LayoutResult reports what a layout mutation touched (spec §4.11: "return a
// count of affected elements plus lists of missing targets").
type LayoutResult struct {
	Affected int
	Missing  []*etree.Element
}

// SetParagraphSpacing applies spacing to each of paragraphs, creating at most
// the minimum required <w:pPr>/<w:spacing> elements (spec §4.11).
func SetParagraphSpacing(paragraphs []*etree.Element, s ParagraphSpacing) LayoutResult {
	var res LayoutResult
	for _, p := range paragraphs {
		if p == nil {
			res.Missing = append(res.Missing, p)
			continue
		}
		pPr := oxml.FindChild(p, "w:pPr")
		if pPr == nil {
			pPr = oxml.NewElement("w:pPr")
			p.InsertChildAt(0, pPr)
		}
		spacing := oxml.FindChild(pPr, "w:spacing")
		if spacing == nil {
			spacing = oxml.NewElement("w:spacing")
			pPr.AddChild(spacing)
		}
		if s.Before != nil {
			oxml.SetAttr(spacing, "w:before", strconv.Itoa(*s.Before))
		}
		if s.After != nil {
			oxml.SetAttr(spacing, "w:after", strconv.Itoa(*s.After))
		}
		if s.Line != nil {
			oxml.SetAttr(spacing, "w:line", strconv.Itoa(*s.Line))
			if s.LineRule != "" {
				oxml.SetAttr(spacing, "w:lineRule", s.LineRule)
			}
		}
		res.Affected++
	}
	return res
}

// SetTableRowHeight applies a height to each of rows (<w:tr>), creating at
// most the minimum required <w:trPr>/<w:trHeight> elements (spec §4.11).
func SetTableRowHeight(rows []*etree.Element, h TableRowHeight) LayoutResult {
	var res LayoutResult
	for _, tr := range rows {
		if tr == nil || tr.Tag != "tr" {
			res.Missing = append(res.Missing, tr)
			continue
		}
		trPr := oxml.FindChild(tr, "w:trPr")
		if trPr == nil {
			trPr = oxml.NewElement("w:trPr")
			tr.InsertChildAt(0, trPr)
		}
		trHeight := oxml.FindChild(trPr, "w:trHeight")
		if trHeight == nil {
			trHeight = oxml.NewElement("w:trHeight")
			trPr.AddChild(trHeight)
		}
		oxml.SetAttr(trHeight, "w:val", strconv.Itoa(h.Val))
		if h.HRule != "" {
			oxml.SetAttr(trHeight, "w:hRule", h.HRule)
		}
		res.Affected++
	}
	return res
}

// SetTableCellPadding applies margins to each of cells (<w:tc>), creating at
// most the minimum required <w:tcPr>/<w:tcMar>/<w:top|bottom|left|right>
// elements (spec §4.11).
func SetTableCellPadding(cells []*etree.Element, pad TableCellPadding) LayoutResult {
	var res LayoutResult
	sides := []struct {
		tag string
		val *int
	}{
		{"top", pad.Top}, {"bottom", pad.Bottom}, {"left", pad.Left}, {"right", pad.Right},
	}
	for _, tc := range cells {
		if tc == nil || tc.Tag != "tc" {
			res.Missing = append(res.Missing, tc)
			continue
		}
		tcPr := oxml.FindChild(tc, "w:tcPr")
		if tcPr == nil {
			tcPr = oxml.NewElement("w:tcPr")
			tc.InsertChildAt(0, tcPr)
		}
		anySide := false
		for _, side := range sides {
			if side.val == nil {
				continue
			}
			anySide = true
			tcMar := oxml.FindChild(tcPr, "w:tcMar")
			if tcMar == nil {
				tcMar = oxml.NewElement("w:tcMar")
				tcPr.AddChild(tcMar)
			}
			el := oxml.FindChild(tcMar, "w:"+side.tag)
			if el == nil {
				el = oxml.NewElement("w:" + side.tag)
				tcMar.AddChild(el)
			}
			oxml.SetAttr(el, "w:w", strconv.Itoa(*side.val))
			oxml.SetAttr(el, "w:type", "dxa")
		}
		if anySide {
			res.Affected++
		}
	}
	return res
}

