package oxml

import "github.com/beevik/etree"

// NewElement creates a detached element from a namespace-prefixed tag, e.g.
// NewElement("w:r"). It never resolves or writes xmlns declarations itself —
// namespaces are declared once on a part's root element (internal/docedit's
// part bootstrap writes them for the parts it creates), exactly as real .docx
// parts do.
func NewElement(nsptag string) *etree.Element {
	return etree.NewElement(nsptag)
}

// ChildrenNS returns el's direct child elements whose namespace prefix is ns.
func ChildrenNS(el *etree.Element, ns string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Space == ns {
			out = append(out, c)
		}
	}
	return out
}

// FindChild returns el's first direct child matching the namespace-prefixed
// tag, or nil.
func FindChild(el *etree.Element, nsptag string) *etree.Element {
	prefix, local := Split(nsptag)
	for _, c := range el.ChildElements() {
		if c.Space == prefix && c.Tag == local {
			return c
		}
	}
	return nil
}

// FindAllChildren returns all direct children matching the namespace-prefixed tag.
func FindAllChildren(el *etree.Element, nsptag string) []*etree.Element {
	prefix, local := Split(nsptag)
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Space == prefix && c.Tag == local {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns the value of a namespace-prefixed attribute ("w:val"), and
// whether it was present.
func Attr(el *etree.Element, nsptag string) (string, bool) {
	prefix, local := Split(nsptag)
	for _, a := range el.Attr {
		if a.Space == prefix && a.Key == local {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the value of a namespace-prefixed attribute, or fallback.
func AttrOr(el *etree.Element, nsptag, fallback string) string {
	if v, ok := Attr(el, nsptag); ok {
		return v
	}
	return fallback
}

// SetAttr sets a namespace-prefixed attribute value, creating it if absent.
func SetAttr(el *etree.Element, nsptag, val string) {
	prefix, local := Split(nsptag)
	el.CreateAttr(prefix+":"+local, val)
}

// RemoveAttr removes a namespace-prefixed attribute if present.
func RemoveAttr(el *etree.Element, nsptag string) {
	prefix, local := Split(nsptag)
	el.RemoveAttr(prefix + ":" + local)
}

// HasChildTag reports whether el has any direct child with the given
// namespace-prefixed tag.
func HasChildTag(el *etree.Element, nsptag string) bool {
	return FindChild(el, nsptag) != nil
}

// Index returns the index of child within parent's Child slice, or -1.
func Index(parent, child *etree.Element) int {
	for i, c := range parent.Child {
		if e, ok := c.(*etree.Element); ok && e == child {
			return i
		}
	}
	return -1
}
