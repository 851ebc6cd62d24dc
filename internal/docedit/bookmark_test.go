package docedit

import (
	"strings"
	"testing"

	"github.com/vortex/safedocx/internal/oxml"
)

func TestNormalizeText(t *testing.T) {
	if got := normalizeText("  Hello   World  "); got != "hello world" {
		t.Errorf("normalizeText() = %q, want %q", got, "hello world")
	}
}

func TestBookmarkName_Deterministic(t *testing.T) {
	a := bookmarkName("same seed", 0)
	b := bookmarkName("same seed", 0)
	if a != b {
		t.Errorf("bookmarkName is not deterministic: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, BookmarkPrefix) {
		t.Errorf("bookmarkName() = %q, want prefix %q", a, BookmarkPrefix)
	}
}

func TestBookmarkName_SaltChangesOutput(t *testing.T) {
	a := bookmarkName("same seed", 0)
	b := bookmarkName("same seed", 1)
	if a == b {
		t.Errorf("expected different salts to produce different names")
	}
}

func TestInsertParagraphBookmarks_AllocatesDistinctIDs(t *testing.T) {
	body := newBody(
		newParagraph(newRun("first paragraph")),
		newParagraph(newRun("second paragraph")),
		newParagraph(newRun("third paragraph")),
	)
	n, err := InsertParagraphBookmarks(body)
	if err != nil {
		t.Fatalf("InsertParagraphBookmarks: %v", err)
	}
	if n != 3 {
		t.Fatalf("allocated = %d, want 3", n)
	}

	paragraphs := AllParagraphs(body)
	seen := make(map[string]bool)
	for _, p := range paragraphs {
		id := GetParagraphBookmarkID(p)
		if id == "" {
			t.Errorf("paragraph %q has no bookmark id", ParagraphText(p))
			continue
		}
		if seen[id] {
			t.Errorf("duplicate bookmark id %q", id)
		}
		seen[id] = true
	}
}

func TestInsertParagraphBookmarks_IdempotentOnSecondPass(t *testing.T) {
	body := newBody(newParagraph(newRun("only paragraph")))
	if _, err := InsertParagraphBookmarks(body); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	n, err := InsertParagraphBookmarks(body)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if n != 0 {
		t.Errorf("second pass allocated = %d, want 0 (already bookmarked)", n)
	}
}

func TestFindParagraphByBookmarkID_RoundTrip(t *testing.T) {
	body := newBody(
		newParagraph(newRun("alpha")),
		newParagraph(newRun("beta")),
	)
	if _, err := InsertParagraphBookmarks(body); err != nil {
		t.Fatalf("InsertParagraphBookmarks: %v", err)
	}
	paragraphs := AllParagraphs(body)
	id := GetParagraphBookmarkID(paragraphs[1])
	found := FindParagraphByBookmarkID(body, id)
	if found != paragraphs[1] {
		t.Errorf("FindParagraphByBookmarkID did not resolve back to the original paragraph")
	}
}

func TestCleanupInternalBookmarks_RemovesAllocatedPairs(t *testing.T) {
	body := newBody(newParagraph(newRun("text")))
	allocated, err := InsertParagraphBookmarks(body)
	if err != nil || allocated != 1 {
		t.Fatalf("setup: allocated=%d err=%v", allocated, err)
	}
	removed := CleanupInternalBookmarks(body)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if n := len(oxml.FindAllChildren(body, "w:bookmarkStart")); n != 0 {
		t.Errorf("expected no bookmarkStart left, found %d", n)
	}
}

func TestCleanupInternalBookmarks_PreservesUserBookmarks(t *testing.T) {
	body := newBody(newParagraph(newRun("text")))
	start := oxml.NewElement("w:bookmarkStart")
	oxml.SetAttr(start, "w:id", "99")
	oxml.SetAttr(start, "w:name", "UserDefinedBookmark")
	end := oxml.NewElement("w:bookmarkEnd")
	oxml.SetAttr(end, "w:id", "99")
	body.InsertChildAt(0, start)
	body.AddChild(end)

	removed := CleanupInternalBookmarks(body)
	if removed != 0 {
		t.Errorf("removed = %d, want 0 (user bookmark must survive)", removed)
	}
	if oxml.FindChild(body, "w:bookmarkStart") == nil {
		t.Errorf("user bookmarkStart was removed")
	}
}

func TestAllParagraphs_WalksIntoTableCells(t *testing.T) {
	tc := oxml.NewElement("w:tc")
	tc.AddChild(newParagraph(newRun("in cell")))
	tr := oxml.NewElement("w:tr")
	tr.AddChild(tc)
	tbl := oxml.NewElement("w:tbl")
	tbl.AddChild(tr)
	body := oxml.NewElement("w:body")
	body.AddChild(newParagraph(newRun("before table")))
	body.AddChild(tbl)
	body.AddChild(newParagraph(newRun("after table")))

	paragraphs := AllParagraphs(body)
	if len(paragraphs) != 3 {
		t.Fatalf("found %d paragraphs, want 3", len(paragraphs))
	}
	if ParagraphText(paragraphs[1]) != "in cell" {
		t.Errorf("paragraph 1 = %q, want %q", ParagraphText(paragraphs[1]), "in cell")
	}
}
