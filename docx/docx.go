package docx

import (
	"io"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/docedit"
)

// Re-exported types so callers never need to import internal/docedit
// directly (spec §2 package layout: "docx/ Public facade re-exporting
// internal/docedit's Document type and the editing operations").
type (
	ReplacementPart   = docedit.ReplacementPart
	RunPropOverride   = docedit.RunPropOverride
	TransformResult   = docedit.TransformResult
	Revision          = docedit.Revision
	RevisionKind      = docedit.RevisionKind
	RevisionPage      = docedit.RevisionPage
	ParagraphChange   = docedit.ParagraphChange
	CommentRecord     = docedit.CommentRecord
	ValidationWarning = docedit.ValidationWarning
	ValidationCode    = docedit.ValidationCode
	Clock             = docedit.Clock
	DocumentViewNode  = docedit.DocumentViewNode
	StyleFingerprint  = docedit.StyleFingerprint
	ListMetadata      = docedit.ListMetadata
	NumberingRef      = docedit.NumberingRef
	ParagraphIndents  = docedit.ParagraphIndents
)

// Re-exported revision kind constants (spec §4.6).
const (
	RevisionInsert       = docedit.RevisionInsert
	RevisionDelete       = docedit.RevisionDelete
	RevisionMoveFrom     = docedit.RevisionMoveFrom
	RevisionMoveTo       = docedit.RevisionMoveTo
	RevisionFormatChange = docedit.RevisionFormatChange
)

// Document wraps an opened .docx package and exposes the editing operations
// of spec.md §4 without requiring callers to import internal/docedit.
type Document struct {
	inner *docedit.Document
}

// Open creates a Document from an io.ReaderAt, using the system clock for
// revision/comment timestamps.
func Open(r io.ReaderAt, size int64) (*Document, error) {
	inner, err := docedit.Open(r, size, docedit.SystemClock{})
	if err != nil {
		return nil, err
	}
	return &Document{inner: inner}, nil
}

// OpenFile creates a Document from a file path.
func OpenFile(path string) (*Document, error) {
	inner, err := docedit.OpenFile(path, docedit.SystemClock{})
	if err != nil {
		return nil, err
	}
	return &Document{inner: inner}, nil
}

// OpenBytes creates a Document from an in-memory byte slice.
func OpenBytes(data []byte) (*Document, error) {
	inner, err := docedit.OpenBytes(data, docedit.SystemClock{})
	if err != nil {
		return nil, err
	}
	return &Document{inner: inner}, nil
}

// Paragraphs returns every paragraph in the document, in document order.
func (d *Document) Paragraphs() ([]*etree.Element, error) {
	return d.inner.Paragraphs()
}

// ParagraphByBookmark resolves a "_bk_*" id to its paragraph.
func (d *Document) ParagraphByBookmark(bookmarkID string) (*etree.Element, error) {
	return d.inner.ParagraphByBookmark(bookmarkID)
}

// ReplaceRange replaces paragraph p's visible-character range [start,end)
// with parts.
func (d *Document) ReplaceRange(p *etree.Element, start, end int, parts []ReplacementPart) error {
	return d.inner.ReplaceRange(p, start, end, parts)
}

// AcceptAll accepts every tracked change in the document.
func (d *Document) AcceptAll() (TransformResult, error) {
	return d.inner.AcceptAll()
}

// RejectAll rejects every tracked change in the document.
func (d *Document) RejectAll() (TransformResult, error) {
	return d.inner.RejectAll()
}

// ExtractRevisions returns a page of paragraph-level tracked changes.
func (d *Document) ExtractRevisions(offset, limit int) (RevisionPage, error) {
	return d.inner.ExtractRevisions(offset, limit)
}

// AddComment anchors a root comment on paragraph p's visible range
// [start,end).
func (d *Document) AddComment(p *etree.Element, start, end int, author, text, initials string) (int, error) {
	return d.inner.AddComment(p, start, end, author, text, initials)
}

// AddReply threads a reply under parentParaID.
func (d *Document) AddReply(parentParaID, author, text, initials string) (int, error) {
	return d.inner.AddReply(parentParaID, author, text, initials)
}

// DeleteComment cascades a comment delete.
func (d *Document) DeleteComment(paraID string) (int, error) {
	return d.inner.DeleteComment(paraID)
}

// AddFootnote inserts a footnote reference and body.
func (d *Document) AddFootnote(p *etree.Element, text, afterText string) (int, error) {
	return d.inner.AddFootnote(p, text, afterText)
}

// UpdateFootnote replaces footnote id's text.
func (d *Document) UpdateFootnote(id int, text string) error {
	return d.inner.UpdateFootnote(id, text)
}

// DeleteFootnote removes footnote id and every reference to it.
func (d *Document) DeleteFootnote(id int) error {
	return d.inner.DeleteFootnote(id)
}

// Validate runs the read-only warning pass.
func (d *Document) Validate() ([]ValidationWarning, error) {
	return d.inner.Validate()
}

// DocumentView builds the stable, style-classified paragraph projection.
// emitFormattingTags turns on tagged_text's baseline-deviation tags.
func (d *Document) DocumentView(emitFormattingTags bool) ([]DocumentViewNode, error) {
	return d.inner.DocumentView(emitFormattingTags)
}

// Save finalizes the package to w: bookmark cleanup (unless
// preserveBookmarks), then ZIP write.
func (d *Document) Save(w io.Writer, preserveBookmarks bool) error {
	return d.inner.Save(w, preserveBookmarks)
}

// SaveToBytes finalizes the package into an in-memory buffer.
func (d *Document) SaveToBytes(preserveBookmarks bool) ([]byte, error) {
	return d.inner.SaveToBytes(preserveBookmarks)
}
