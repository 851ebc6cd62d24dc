package docedit

import (
	"testing"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

func TestExtractRevisions_BuildsBeforeAfterAndKind(t *testing.T) {
	p := newParagraph(newRun("keep "), wrapRun("ins", "alice", newRun("inserted")))
	body := newBody(p)
	if _, err := InsertParagraphBookmarks(body); err != nil {
		t.Fatalf("InsertParagraphBookmarks: %v", err)
	}

	page := ExtractRevisions(body, 0, 10, nil)
	if page.TotalChanges != 1 {
		t.Fatalf("TotalChanges = %d, want 1", page.TotalChanges)
	}
	change := page.Changes[0]
	if change.BeforeText != "keep " {
		t.Errorf("BeforeText = %q, want %q", change.BeforeText, "keep ")
	}
	if change.AfterText != "keep inserted" {
		t.Errorf("AfterText = %q, want %q", change.AfterText, "keep inserted")
	}
	if len(change.Revisions) != 1 || change.Revisions[0].Kind != RevisionInsert {
		t.Fatalf("unexpected revisions: %+v", change.Revisions)
	}
	if change.Revisions[0].Author != "alice" {
		t.Errorf("Author = %q, want alice", change.Revisions[0].Author)
	}
}

func TestExtractRevisions_SkipsParagraphsWithoutRevisions(t *testing.T) {
	p := newParagraph(newRun("plain"))
	body := newBody(p)
	if _, err := InsertParagraphBookmarks(body); err != nil {
		t.Fatalf("InsertParagraphBookmarks: %v", err)
	}

	page := ExtractRevisions(body, 0, 10, nil)
	if page.TotalChanges != 0 {
		t.Errorf("TotalChanges = %d, want 0", page.TotalChanges)
	}
}

func TestExtractRevisions_EntirelyDeletedParagraphHasNoAfterText(t *testing.T) {
	p := oxml.NewElement("w:p")
	p.AddChild(wrapRun("del", "alice", newDelRun("gone")))
	body := newBody(p)
	if _, err := InsertParagraphBookmarks(body); err != nil {
		t.Fatalf("InsertParagraphBookmarks: %v", err)
	}

	page := ExtractRevisions(body, 0, 10, nil)
	if page.TotalChanges != 1 {
		t.Fatalf("TotalChanges = %d, want 1", page.TotalChanges)
	}
	if page.Changes[0].AfterText != "" {
		t.Errorf("AfterText = %q, want empty for an entirely deleted paragraph", page.Changes[0].AfterText)
	}
	if page.Changes[0].BeforeText != "gone" {
		t.Errorf("BeforeText = %q, want %q", page.Changes[0].BeforeText, "gone")
	}
}

func TestExtractRevisions_PaginatesAndReportsHasMore(t *testing.T) {
	var paragraphs []*etree.Element
	for i := 0; i < 3; i++ {
		paragraphs = append(paragraphs, newParagraph(newRun("keep"), wrapRun("ins", "alice", newRun("x"))))
	}
	body := newBody(paragraphs...)
	if _, err := InsertParagraphBookmarks(body); err != nil {
		t.Fatalf("InsertParagraphBookmarks: %v", err)
	}

	page := ExtractRevisions(body, 0, 2, nil)
	if page.TotalChanges != 3 {
		t.Fatalf("TotalChanges = %d, want 3", page.TotalChanges)
	}
	if len(page.Changes) != 2 {
		t.Errorf("len(Changes) = %d, want 2", len(page.Changes))
	}
	if !page.HasMore {
		t.Errorf("expected HasMore=true with 3 total changes and a page size of 2")
	}

	last := ExtractRevisions(body, 2, 2, nil)
	if len(last.Changes) != 1 {
		t.Errorf("len(Changes) = %d, want 1 for the final page", len(last.Changes))
	}
	if last.HasMore {
		t.Errorf("expected HasMore=false on the final page")
	}
}

func TestExtractRevisions_AttachesCommentsByParagraphID(t *testing.T) {
	p := newParagraph(newRun("keep "), wrapRun("ins", "alice", newRun("inserted")))
	body := newBody(p)
	if _, err := InsertParagraphBookmarks(body); err != nil {
		t.Fatalf("InsertParagraphBookmarks: %v", err)
	}
	id := GetParagraphBookmarkID(p)

	comments := map[string][]CommentRecord{
		id: {{Author: "bob", Text: "a note"}},
	}
	page := ExtractRevisions(body, 0, 10, comments)
	if len(page.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(page.Changes))
	}
	if len(page.Changes[0].Revisions[0].Comments) != 1 {
		t.Fatalf("expected the revision to carry 1 attached comment")
	}
	if page.Changes[0].Revisions[0].Comments[0].Author != "bob" {
		t.Errorf("comment author = %q, want bob", page.Changes[0].Revisions[0].Comments[0].Author)
	}
}
