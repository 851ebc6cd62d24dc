// Package docedit is not safe for concurrent use: a *Document must be
// mutated by a single goroutine at a time. Independent Document instances
// may be used concurrently (spec §5 "Scheduling model", grounded on the
// teacher's pkg/docx/doc.go package comment).
package docedit

import (
	"io"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/opc"
)

// Document owns one opened WordprocessingML package and every editing
// operation in this package operates against it. It is the single point of
// ordering enforcement described in spec §5: run merge/simplify and
// bookmark allocation happen once, at Open; bookmark cleanup happens once,
// at Save, unless preservation is requested.
type Document struct {
	pkg   *opc.OpcPackage
	clock Clock
}

// Open reads a .docx package from r (size bytes long), normalizes it (run
// merge, redline simplify, bookmark allocation — spec §5 ordering rules (a)
// and (b)), and returns a ready-to-edit Document.
func Open(r io.ReaderAt, size int64, clock Clock) (*Document, error) {
	pkg, err := opc.Open(r, size, opc.NewPartFactory())
	if err != nil {
		return nil, NewInvalidArgumentError("docedit: failed to open package: %v", err)
	}
	d := &Document{pkg: pkg, clock: clock}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenFile reads a .docx package from path.
func OpenFile(path string, clock Clock) (*Document, error) {
	pkg, err := opc.OpenFile(path, opc.NewPartFactory())
	if err != nil {
		return nil, NewInvalidArgumentError("docedit: failed to open package %q: %v", path, err)
	}
	d := &Document{pkg: pkg, clock: clock}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenBytes reads a .docx package from an in-memory buffer.
func OpenBytes(data []byte, clock Clock) (*Document, error) {
	pkg, err := opc.OpenBytes(data, opc.NewPartFactory())
	if err != nil {
		return nil, NewInvalidArgumentError("docedit: failed to open package: %v", err)
	}
	d := &Document{pkg: pkg, clock: clock}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	return d, nil
}

// normalize runs merge/simplify over every paragraph, then allocates
// bookmarks — spec §5 ordering rules (a) "bookmark allocation strictly
// precedes any edit that references _bk_* ids" and (b) "run merge and
// redline simplify run before bookmark allocation".
func (d *Document) normalize() error {
	body, err := documentBody(d.pkg)
	if err != nil {
		return err
	}
	for _, p := range AllParagraphs(body) {
		MergeRuns(p)
		SimplifyRedlines(p)
	}
	if _, err := InsertParagraphBookmarks(body); err != nil {
		return err
	}
	return nil
}

// Body returns the document's <w:body> element for callers that need direct
// DOM access (e.g. locating a paragraph by bookmark id before calling a
// Document method).
func (d *Document) Body() (*etree.Element, error) {
	return documentBody(d.pkg)
}

// Paragraphs returns every paragraph in the document, in document order.
func (d *Document) Paragraphs() ([]*etree.Element, error) {
	body, err := documentBody(d.pkg)
	if err != nil {
		return nil, err
	}
	return AllParagraphs(body), nil
}

// ParagraphByBookmark resolves a "_bk_*" id to its paragraph.
func (d *Document) ParagraphByBookmark(bookmarkID string) (*etree.Element, error) {
	body, err := documentBody(d.pkg)
	if err != nil {
		return nil, err
	}
	p := FindParagraphByBookmarkID(body, bookmarkID)
	if p == nil {
		return nil, NewInvalidArgumentError("docedit: no paragraph for bookmark %q", bookmarkID)
	}
	return p, nil
}

// ReplaceRange replaces paragraph p's visible-character range [start,end)
// with parts (spec §4.4).
func (d *Document) ReplaceRange(p *etree.Element, start, end int, parts []ReplacementPart) error {
	if err := ReplaceParagraphTextRange(p, start, end, parts); err != nil {
		return err
	}
	MergeRuns(p)
	return nil
}

// AcceptAll accepts every tracked change in the document (spec §4.5).
func (d *Document) AcceptAll() (TransformResult, error) {
	body, err := documentBody(d.pkg)
	if err != nil {
		return TransformResult{}, err
	}
	return AcceptTrackChanges(body), nil
}

// RejectAll rejects every tracked change in the document (spec §4.5).
func (d *Document) RejectAll() (TransformResult, error) {
	body, err := documentBody(d.pkg)
	if err != nil {
		return TransformResult{}, err
	}
	return RejectTrackChanges(body), nil
}

// ExtractRevisions returns a page of paragraph-level tracked changes (spec
// §4.6).
func (d *Document) ExtractRevisions(offset, limit int) (RevisionPage, error) {
	body, err := documentBody(d.pkg)
	if err != nil {
		return RevisionPage{}, err
	}
	comments, err := ReadComments(d.pkg)
	if err != nil {
		comments = nil
	}
	byParaID := make(map[string][]CommentRecord)
	for _, c := range comments {
		byParaID[c.AnchoredParagraphID] = append(byParaID[c.AnchoredParagraphID], *c)
	}
	return ExtractRevisions(body, offset, limit, byParaID), nil
}

// AddComment anchors a root comment on paragraph p's visible range
// [start,end) (spec §4.7).
func (d *Document) AddComment(p *etree.Element, start, end int, author, text, initials string) (int, error) {
	if err := BootstrapCommentParts(d.pkg); err != nil {
		return 0, err
	}
	return AddRootComment(d.pkg, p, start, end, author, text, initials, d.clock)
}

// AddReply threads a reply under parentParaID (spec §4.7).
func (d *Document) AddReply(parentParaID, author, text, initials string) (int, error) {
	return AddReply(d.pkg, parentParaID, author, text, initials, d.clock)
}

// DeleteComment cascades a comment delete (spec §4.7).
func (d *Document) DeleteComment(paraID string) (int, error) {
	return DeleteCommentCascading(d.pkg, paraID)
}

// AddFootnote inserts a footnote reference after afterText in p (or at the
// end of p when afterText is empty), and appends its body (spec §4.8).
func (d *Document) AddFootnote(p *etree.Element, text, afterText string) (int, error) {
	return AddFootnote(d.pkg, p, text, afterText)
}

// UpdateFootnote replaces footnote id's text (spec §4.8).
func (d *Document) UpdateFootnote(id int, text string) error {
	return UpdateFootnoteText(d.pkg, id, text)
}

// DeleteFootnote removes footnote id and every reference to it (spec §4.8).
func (d *Document) DeleteFootnote(id int) error {
	return DeleteFootnote(d.pkg, id)
}

// DocumentView builds the stable, style-classified paragraph projection
// (spec §4.10 "Document view", §3 "Document view node"). emitFormattingTags
// turns on tagged_text's baseline-deviation tags; off by default.
func (d *Document) DocumentView(emitFormattingTags bool) ([]DocumentViewNode, error) {
	body, err := documentBody(d.pkg)
	if err != nil {
		return nil, err
	}
	hyperlinks, err := hyperlinkTargets(d.pkg)
	if err != nil {
		return nil, err
	}
	opts := DocumentViewOptions{EmitFormattingTags: emitFormattingTags, HyperlinkTargets: hyperlinks}
	return BuildDocumentView(AllParagraphs(body), stylesModel(d.pkg), numberingResolverFor(d.pkg), opts), nil
}

// Validate runs the read-only warning pass (spec §4.12). Per spec §5
// ordering rule (c), callers should call this immediately before Save.
func (d *Document) Validate() ([]ValidationWarning, error) {
	body, err := documentBody(d.pkg)
	if err != nil {
		return nil, err
	}
	return Validate(body), nil
}

// Save finalizes the package: bookmark cleanup (unless preserveBookmarks),
// then ZIP write (spec §5 ordering rule (d)).
func (d *Document) Save(w io.Writer, preserveBookmarks bool) error {
	if !preserveBookmarks {
		body, err := documentBody(d.pkg)
		if err != nil {
			return err
		}
		CleanupInternalBookmarks(body)
	}
	return d.pkg.Save(w)
}

// SaveToBytes finalizes the package into an in-memory buffer.
func (d *Document) SaveToBytes(preserveBookmarks bool) ([]byte, error) {
	if !preserveBookmarks {
		body, err := documentBody(d.pkg)
		if err != nil {
			return nil, err
		}
		CleanupInternalBookmarks(body)
	}
	return d.pkg.SaveToBytes()
}
