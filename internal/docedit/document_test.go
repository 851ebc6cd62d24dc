package docedit

import (
	"bytes"
	"testing"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// newTestDocument wraps body in a Document the way Open would, but without
// requiring a real .docx ZIP fixture: the package is built directly (as
// newTestPackage does) and normalize() is run explicitly, matching what Open
// does once opc.Open has parsed the ZIP.
func newTestDocument(t *testing.T, body *etree.Element) *Document {
	t.Helper()
	pkg := newTestPackage(body)
	d := &Document{pkg: pkg, clock: testClock}
	if err := d.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return d
}

func TestDocument_ParagraphsAndBookmarkLookup(t *testing.T) {
	p1 := newParagraph(newRun("first"))
	p2 := newParagraph(newRun("second"))
	d := newTestDocument(t, newBody(p1, p2))

	paragraphs, err := d.Paragraphs()
	if err != nil {
		t.Fatalf("Paragraphs: %v", err)
	}
	if len(paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paragraphs))
	}

	bookmarkID := GetParagraphBookmarkID(paragraphs[0])
	if bookmarkID == "" {
		t.Fatal("expected normalize() to have allocated a bookmark for every paragraph")
	}
	found, err := d.ParagraphByBookmark(bookmarkID)
	if err != nil {
		t.Fatalf("ParagraphByBookmark: %v", err)
	}
	if found != paragraphs[0] {
		t.Errorf("ParagraphByBookmark resolved the wrong paragraph")
	}

	if _, err := d.ParagraphByBookmark("_bk_doesnotexist"); err == nil {
		t.Error("expected an error for an unknown bookmark id")
	}
}

func TestDocument_NormalizeMergesRunsBeforeBookmarking(t *testing.T) {
	p := newParagraph(newRun("Hello "), newRun("World"))
	d := newTestDocument(t, newBody(p))

	paragraphs, err := d.Paragraphs()
	if err != nil {
		t.Fatalf("Paragraphs: %v", err)
	}
	if len(ParagraphRuns(paragraphs[0])) != 1 {
		t.Errorf("expected adjacent identical runs to be merged by normalize(), got %d runs",
			len(ParagraphRuns(paragraphs[0])))
	}
	if ParagraphText(paragraphs[0]) != "Hello World" {
		t.Errorf("text = %q, want %q", ParagraphText(paragraphs[0]), "Hello World")
	}
}

func TestDocument_ReplaceRangeMergesResultingRuns(t *testing.T) {
	p := newParagraph(newRun("Hello World"))
	d := newTestDocument(t, newBody(p))

	err := d.ReplaceRange(p, 6, 11, []ReplacementPart{{Text: "Go"}, {Text: "lang"}})
	if err != nil {
		t.Fatalf("ReplaceRange: %v", err)
	}
	if ParagraphText(p) != "Hello Golang" {
		t.Errorf("text = %q, want %q", ParagraphText(p), "Hello Golang")
	}
}

func TestDocument_AcceptAll(t *testing.T) {
	p := newParagraph(newRun("keep "), wrapRun("ins", "alice", newRun("inserted")))
	d := newTestDocument(t, newBody(p))

	result, err := d.AcceptAll()
	if err != nil {
		t.Fatalf("AcceptAll: %v", err)
	}
	if result.Insertions != 1 {
		t.Errorf("Insertions = %d, want 1", result.Insertions)
	}
	if ParagraphText(p) != "keep inserted" {
		t.Errorf("text = %q, want %q", ParagraphText(p), "keep inserted")
	}
}

func TestDocument_RejectAll(t *testing.T) {
	p := newParagraph(newRun("keep "), wrapRun("ins", "alice", newRun("inserted")))
	d := newTestDocument(t, newBody(p))

	if _, err := d.RejectAll(); err != nil {
		t.Fatalf("RejectAll: %v", err)
	}
	if ParagraphText(p) != "keep " {
		t.Errorf("text = %q, want %q", ParagraphText(p), "keep ")
	}
}

func TestDocument_CommentLifecycle(t *testing.T) {
	p := newParagraph(newRun("Hello World"))
	d := newTestDocument(t, newBody(p))

	if _, err := d.AddComment(p, 0, 5, "alice", "a note", ""); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	revisions, err := d.ExtractRevisions(0, 10)
	if err != nil {
		t.Fatalf("ExtractRevisions: %v", err)
	}
	_ = revisions

	commentsRoot := xmlPartRoot(t, d.pkg, commentsTarget.name)
	rootComment := oxml.FindChild(commentsRoot, "w:comment")
	if rootComment == nil {
		t.Fatal("expected a w:comment element after AddComment")
	}
	rootParaID, _ := oxml.Attr(oxml.FindChild(rootComment, "w:p"), "w14:paraId")

	replyID, err := d.AddReply(rootParaID, "bob", "a reply", "")
	if err != nil {
		t.Fatalf("AddReply: %v", err)
	}
	if replyID == 0 {
		t.Errorf("expected a nonzero reply id")
	}

	deleted, err := d.DeleteComment(rootParaID)
	if err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2 (root + reply)", deleted)
	}
}

func TestDocument_FootnoteLifecycle(t *testing.T) {
	p := newParagraph(newRun("Hello World"))
	d := newTestDocument(t, newBody(p))

	id, err := d.AddFootnote(p, "a note", "")
	if err != nil {
		t.Fatalf("AddFootnote: %v", err)
	}
	if err := d.UpdateFootnote(id, "updated note"); err != nil {
		t.Fatalf("UpdateFootnote: %v", err)
	}
	if err := d.DeleteFootnote(id); err != nil {
		t.Fatalf("DeleteFootnote: %v", err)
	}
}

func TestDocument_Validate(t *testing.T) {
	p := newParagraph(newRun("clean paragraph"))
	d := newTestDocument(t, newBody(p))

	warnings, err := d.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings for a clean document, got %+v", warnings)
	}
}

func TestDocument_SaveToBytesCleansUpBookmarksByDefault(t *testing.T) {
	p := newParagraph(newRun("text"))
	d := newTestDocument(t, newBody(p))

	if GetParagraphBookmarkID(p) == "" {
		t.Fatal("expected normalize() to have allocated a bookmark")
	}

	data, err := d.SaveToBytes(false)
	if err != nil {
		t.Fatalf("SaveToBytes: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected a non-empty ZIP payload")
	}
	if GetParagraphBookmarkID(p) != "" {
		t.Errorf("expected bookmarks to be cleaned up when preserveBookmarks=false")
	}
}

func TestDocument_SavePreservesBookmarksWhenRequested(t *testing.T) {
	p := newParagraph(newRun("text"))
	d := newTestDocument(t, newBody(p))

	var buf bytes.Buffer
	if err := d.Save(&buf, true); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a non-empty ZIP payload")
	}
	if GetParagraphBookmarkID(p) == "" {
		t.Errorf("expected bookmarks to survive when preserveBookmarks=true")
	}
}
