package docedit

import (
	"sort"

	"github.com/beevik/etree"
)

// ListMetadata carries the raw numbering-level descriptor backing a
// paragraph's list_label, nil for non-list paragraphs (spec §4.10
// "Numbering resolver").
type ListMetadata struct {
	NumFmt  string `json:"num_fmt"`
	LvlText string `json:"lvl_text"`
}

// NumberingRef is the paragraph's numbering reference (spec §3 "Document
// view node": numbering:{num_id,ilvl,is_auto_numbered}).
type NumberingRef struct {
	NumID          int  `json:"num_id"`
	Ilvl           int  `json:"ilvl"`
	IsAutoNumbered bool `json:"is_auto_numbered"`
}

// ParagraphIndents is a paragraph's effective indentation in points (spec §3
// "Document view node": paragraph_indents_pt).
type ParagraphIndents struct {
	LeftPt      float64 `json:"left_pt"`
	FirstLinePt float64 `json:"first_line_pt"`
}

// DocumentViewNode is the stable, style-classified paragraph projection
// spec §3 "Document view node" mandates. id equals the paragraph's _bk_*
// name.
type DocumentViewNode struct {
	ID                 string           `json:"id"`
	ListLabel          string           `json:"list_label,omitempty"`
	Header             string           `json:"header,omitempty"`
	Style              string           `json:"style"`
	TaggedText         string           `json:"tagged_text"`
	CleanText          string           `json:"clean_text"`
	ListMetadata       *ListMetadata    `json:"list_metadata,omitempty"`
	StyleFingerprint   StyleFingerprint `json:"style_fingerprint"`
	ParagraphStyleID   string           `json:"paragraph_style_id,omitempty"`
	ParagraphAlignment string           `json:"paragraph_alignment,omitempty"`
	ParagraphIndentsPt ParagraphIndents `json:"paragraph_indents_pt"`
	Numbering          NumberingRef     `json:"numbering"`
	HeaderFormatting   []string         `json:"header_formatting,omitempty"`
	BodyRunFormatting  []string         `json:"body_run_formatting,omitempty"`
}

// DocumentViewOptions configures BuildDocumentView.
type DocumentViewOptions struct {
	// EmitFormattingTags turns on tagged_text's baseline-deviation tags
	// (spec §4.10 "Formatting-tag emission"); off by default.
	EmitFormattingTags bool
	// HyperlinkTargets maps a w:hyperlink's r:id to its resolved URL.
	HyperlinkTargets map[string]string
}

// BuildDocumentView assembles the document-view node for every paragraph,
// orchestrating the numbering resolver, style model, header detector, and
// formatting-tag emitter behind one stable projection (spec §4.10
// "Document view", §3 "Document view node").
func BuildDocumentView(paragraphs []*etree.Element, styles *StyleModel, numbering *NumberingResolver, opts DocumentViewOptions) []DocumentViewNode {
	headerLens := make(map[*etree.Element]int, len(paragraphs))
	headerText := make(map[*etree.Element]string, len(paragraphs))
	for _, p := range paragraphs {
		h, n := DetectHeader(p, styles)
		headerText[p] = h
		headerLens[p] = n
	}
	baseline := ComputeBaseline(paragraphs, headerLens, styles)

	groups := GroupByFingerprint(paragraphs, styles)
	groupID := make(map[*etree.Element]string, len(paragraphs))
	for _, g := range groups {
		for _, m := range g.Members {
			groupID[m] = g.ID
		}
	}

	nodes := make([]DocumentViewNode, 0, len(paragraphs))
	for _, p := range paragraphs {
		fp := computeFingerprint(p, styles)
		suppressedLen := headerLens[p]

		var listLabel string
		var listMeta *ListMetadata
		isAuto := false
		if fp.NumID >= 0 && fp.Ilvl >= 0 {
			if label, ok := numbering.Next(fp.NumID, fp.Ilvl); ok {
				listLabel = label
			}
			if lvl, ok := numbering.levelFor(fp.NumID, fp.Ilvl); ok {
				listMeta = &ListMetadata{NumFmt: lvl.numFmt, LvlText: lvl.lvlText}
				isAuto = lvl.numFmt != "bullet" && lvl.numFmt != "none"
			}
		}

		bodyP := p
		if suppressedLen > 0 {
			bodyP = p.Copy()
			_ = ReplaceParagraphTextRange(bodyP, 0, suppressedLen, nil)
		}
		cleanText := ParagraphText(bodyP)
		taggedText := EmitFormattingTags(bodyP, baseline, opts.EmitFormattingTags, styles, opts.HyperlinkTargets)

		headerTags, bodyTags := splitFormattingTags(p, suppressedLen, baseline, styles)

		nodes = append(nodes, DocumentViewNode{
			ID:                 GetParagraphBookmarkID(p),
			ListLabel:          listLabel,
			Header:             headerText[p],
			Style:              groupID[p],
			TaggedText:         taggedText,
			CleanText:          cleanText,
			ListMetadata:       listMeta,
			StyleFingerprint:   fp,
			ParagraphStyleID:   fp.StyleID,
			ParagraphAlignment: fp.Alignment,
			ParagraphIndentsPt: ParagraphIndents{LeftPt: fp.LeftIndentPt, FirstLinePt: fp.FirstLineIndentPt},
			Numbering:          NumberingRef{NumID: fp.NumID, Ilvl: fp.Ilvl, IsAutoNumbered: isAuto},
			HeaderFormatting:   headerTags,
			BodyRunFormatting:  bodyTags,
		})
	}
	return nodes
}

// splitFormattingTags partitions the baseline-deviation tags of p's runs
// into the suppressed header prefix (the first suppressedLen visible
// characters) and the remaining body, deduplicated and sorted for a stable
// projection.
func splitFormattingTags(p *etree.Element, suppressedLen int, baseline BaselineFormat, styles *StyleModel) (headerTags, bodyTags []string) {
	headerSet := make(map[string]bool)
	bodySet := make(map[string]bool)
	pos := 0
	for _, tr := range ParagraphRuns(p) {
		n := len([]rune(tr.Text))
		f := styles.ResolveRunFormat(p, tr.Run)
		set := bodySet
		if pos < suppressedLen {
			set = headerSet
		}
		for _, tag := range runTagDelta(f, baseline) {
			set[tag] = true
		}
		pos += n
	}
	return sortedTagSet(headerSet), sortedTagSet(bodySet)
}

func sortedTagSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
