package docedit

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// BookmarkPrefix is the prefix of every internally-allocated paragraph
// bookmark name (spec §3 Bookmark identity).
const BookmarkPrefix = "_bk_"

// editPrefix marks transient session bookmarks cleaned up alongside _bk_*
// (spec §4.2 cleanupInternalBookmarks).
const editPrefix = "edit-"

// AllParagraphs returns every <w:p> reachable from root, in document order,
// including paragraphs nested inside table cells (spec §4.6: "walk every
// paragraph (including those inside w:tc)"). Traversal is a recursive
// depth-first walk, one call level per element nesting level.
func AllParagraphs(root *etree.Element) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if child.Space == "w" && child.Tag == "p" {
				out = append(out, child)
				// A paragraph's own descendants (e.g. inside an sdt) are not
				// separately walked for nested <w:p> — OOXML paragraphs don't
				// nest paragraphs directly.
				continue
			}
			walk(child)
		}
	}
	walk(root)
	return out
}

// ancestorPath builds a ">"-joined signature of el's ancestor tag names from
// root down to (but excluding) el itself, for use in the bookmark fallback
// seed (spec §4.2).
func ancestorPath(root, el *etree.Element) string {
	var chain []string
	cur := el.Parent()
	for cur != nil && cur != root.Parent() {
		tag := cur.Tag
		if cur.Space != "" {
			tag = cur.Space + ":" + cur.Tag
		}
		chain = append(chain, tag)
		if cur == root {
			break
		}
		cur = cur.Parent()
	}
	// Reverse so it reads root-to-leaf.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return strings.Join(chain, ">")
}

// normalizeText collapses whitespace and lowercases, the N(x) function of
// spec §4.2.
func normalizeText(s string) string {
	fields := strings.Fields(s)
	return strings.ToLower(strings.Join(fields, " "))
}

// paraIntrinsicID returns the w14:paraId attribute of p, if present.
func paraIntrinsicID(p *etree.Element) (string, bool) {
	for _, a := range p.Attr {
		if a.Space == "w14" && a.Key == "paraId" {
			return a.Value, true
		}
	}
	return "", false
}

// bookmarkSeed computes the deterministic seed string for paragraph p, given
// its neighbors in document order and the document root (spec §4.2).
func bookmarkSeed(root, p, prev, next *etree.Element) string {
	if id, ok := paraIntrinsicID(p); ok {
		return "intrinsic:w14:" + strings.ToLower(id)
	}
	selfText := ""
	if p != nil {
		selfText = ParagraphText(p)
	}
	prevText, nextText := "", ""
	if prev != nil {
		prevText = ParagraphText(prev)
	}
	if next != nil {
		nextText = ParagraphText(next)
	}
	return fmt.Sprintf("fallback:text=%s|prev=%s|next=%s|ancestors=%s",
		normalizeText(selfText), normalizeText(prevText), normalizeText(nextText), ancestorPath(root, p))
}

// bookmarkName hashes seed (optionally salted) into a "_bk_<12 hex>" name.
func bookmarkName(seed string, salt int) string {
	s := seed
	if salt > 0 {
		s = seed + "|salt:" + strconv.Itoa(salt)
	}
	sum := sha1.Sum([]byte(s))
	return BookmarkPrefix + hex.EncodeToString(sum[:])[:12]
}

// maxBookmarkSalt is the retry budget before ID_ALLOCATION_EXHAUSTED (spec §4.2).
const maxBookmarkSalt = 10000

// nextBookmarkID returns the running-maximum-plus-one numeric w:id for
// bookmarks in root.
func nextBookmarkID(root *etree.Element) int {
	max := 0
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		if el.Space == "w" && (el.Tag == "bookmarkStart" || el.Tag == "bookmarkEnd") {
			if v, ok := oxml.Attr(el, "w:id"); ok {
				if n, err := strconv.Atoi(v); err == nil && n > max {
					max = n
				}
			}
		}
		for _, c := range el.ChildElements() {
			walk(c)
		}
	}
	walk(root)
	return max + 1
}

// existingBookmarkNames collects every bookmarkStart name already present in
// root, for collision detection during allocation.
func existingBookmarkNames(root *etree.Element) map[string]bool {
	names := make(map[string]bool)
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		if el.Space == "w" && el.Tag == "bookmarkStart" {
			if v, ok := oxml.Attr(el, "w:name"); ok {
				names[v] = true
			}
		}
		for _, c := range el.ChildElements() {
			walk(c)
		}
	}
	walk(root)
	return names
}

// GetParagraphBookmarkID returns p's "_bk_*" id if one straddles it (sibling
// style, supporting stacked bookmarks) or lives inside it, else "".
// Spec §4.2 "Lookup".
func GetParagraphBookmarkID(p *etree.Element) string {
	// Search prior siblings back across adjacent bookmarkStart nodes,
	// stopping at the previous paragraph.
	parent := p.Parent()
	if parent != nil {
		idx := oxml.Index(parent, p)
		for i := idx - 1; i >= 0; i-- {
			c, ok := parent.Child[i].(*etree.Element)
			if !ok {
				continue
			}
			if c.Space == "w" && c.Tag == "bookmarkStart" {
				if name, ok := oxml.Attr(c, "w:name"); ok && strings.HasPrefix(name, BookmarkPrefix) {
					return name
				}
				continue
			}
			if c.Space == "w" && c.Tag == "p" {
				break
			}
			// Other siblings (bookmarkEnd of an earlier pair, etc.) don't
			// block the stacked-bookmark search.
		}
	}
	// Fall back to any _bk_* bookmarkStart inside the paragraph.
	var found string
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		if found != "" {
			return
		}
		for _, c := range el.ChildElements() {
			if c.Space == "w" && c.Tag == "bookmarkStart" {
				if name, ok := oxml.Attr(c, "w:name"); ok && strings.HasPrefix(name, BookmarkPrefix) {
					found = name
					return
				}
			}
			walk(c)
			if found != "" {
				return
			}
		}
	}
	walk(p)
	return found
}

// FindParagraphByBookmarkID scans root's paragraphs and returns the first
// whose bookmark id matches name, or nil (spec §4.2).
func FindParagraphByBookmarkID(root *etree.Element, name string) *etree.Element {
	for _, p := range AllParagraphs(root) {
		if GetParagraphBookmarkID(p) == name {
			return p
		}
	}
	return nil
}

// InsertParagraphBookmarks scans every paragraph in root and allocates a
// deterministic "_bk_*" bookmark for any paragraph that doesn't already have
// one (spec §4.2 "Allocation"). Bookmarks are inserted sibling-style
// (<bookmarkStart/> <p/> <bookmarkEnd/>) to avoid structural surgery inside
// tables. Returns the number of bookmarks allocated.
func InsertParagraphBookmarks(root *etree.Element) (int, error) {
	paragraphs := AllParagraphs(root)
	existing := existingBookmarkNames(root)
	nextID := nextBookmarkID(root)
	allocated := 0

	for i, p := range paragraphs {
		if GetParagraphBookmarkID(p) != "" {
			continue
		}
		var prev, next *etree.Element
		if i > 0 {
			prev = paragraphs[i-1]
		}
		if i < len(paragraphs)-1 {
			next = paragraphs[i+1]
		}
		seed := bookmarkSeed(root, p, prev, next)

		var name string
		ok := false
		for salt := 0; salt <= maxBookmarkSalt; salt++ {
			candidate := bookmarkName(seed, salt)
			if !existing[candidate] {
				name = candidate
				ok = true
				break
			}
		}
		if !ok {
			return allocated, NewIDAllocationExhaustedError(
				"docedit: exhausted %d salt retries allocating a bookmark for paragraph %d", maxBookmarkSalt, i)
		}

		parent := p.Parent()
		if parent == nil {
			continue
		}
		idx := oxml.Index(parent, p)

		start := oxml.NewElement("w:bookmarkStart")
		oxml.SetAttr(start, "w:id", strconv.Itoa(nextID))
		oxml.SetAttr(start, "w:name", name)
		end := oxml.NewElement("w:bookmarkEnd")
		oxml.SetAttr(end, "w:id", strconv.Itoa(nextID))

		parent.InsertChildAt(idx, start)
		parent.InsertChildAt(idx+2, end)

		existing[name] = true
		nextID++
		allocated++
	}
	return allocated, nil
}

// CleanupInternalBookmarks removes every "_bk_*" and "edit-*" bookmark pair
// (matched by w:id) from root (spec §4.2 "Cleanup"). Returns the number of
// pairs removed.
func CleanupInternalBookmarks(root *etree.Element) int {
	type pair struct{ start, end *etree.Element }
	byID := make(map[string]*pair)
	var order []string

	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if c.Space == "w" && (c.Tag == "bookmarkStart" || c.Tag == "bookmarkEnd") {
				id, _ := oxml.Attr(c, "w:id")
				p, ok := byID[id]
				if !ok {
					p = &pair{}
					byID[id] = p
					order = append(order, id)
				}
				if c.Tag == "bookmarkStart" {
					name, _ := oxml.Attr(c, "w:name")
					if strings.HasPrefix(name, BookmarkPrefix) || strings.HasPrefix(name, editPrefix) {
						p.start = c
					}
				} else {
					p.end = c
				}
			}
			walk(c)
		}
	}
	walk(root)

	removed := 0
	for _, id := range order {
		p := byID[id]
		if p.start == nil {
			continue
		}
		if parent := p.start.Parent(); parent != nil {
			parent.RemoveChild(p.start)
		}
		if p.end != nil {
			if parent := p.end.Parent(); parent != nil {
				parent.RemoveChild(p.end)
			}
		}
		removed++
	}
	return removed
}
