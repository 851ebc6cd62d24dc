package opc

import (
	"path"
	"strings"
)

// PackURI is a part name within an OPC package, always beginning with "/"
// (e.g. "/word/document.xml").
type PackURI string

// PackageURI is the pseudo-partname used for package-level relationships
// (the root ".rels" at the package root).
const PackageURI PackURI = "/"

// BaseURI returns the directory containing this part, used as the base for
// resolving relative relationship targets from its .rels file.
func (pn PackURI) BaseURI() string {
	if pn == PackageURI {
		return "/"
	}
	dir := path.Dir(string(pn))
	if dir == "." {
		dir = "/"
	}
	return dir
}

// RelsURI returns the partname of this part's .rels file, e.g.
// "/word/document.xml" → "/word/_rels/document.xml.rels".
func (pn PackURI) RelsURI() PackURI {
	if pn == PackageURI {
		return "/_rels/.rels"
	}
	dir := path.Dir(string(pn))
	base := path.Base(string(pn))
	if dir == "." || dir == "/" {
		return PackURI("/_rels/" + base + ".rels")
	}
	return PackURI(dir + "/_rels/" + base + ".rels")
}

// Ext returns the filename extension (without the dot), e.g. "xml".
func (pn PackURI) Ext() string {
	ext := path.Ext(string(pn))
	return strings.TrimPrefix(ext, ".")
}

// MemberName returns the ZIP member name for this part (no leading "/").
func (pn PackURI) MemberName() string {
	return strings.TrimPrefix(string(pn), "/")
}

// FromRelRef resolves a relationship's TargetRef (which may be relative or
// absolute) against baseURI into an absolute PackURI.
func FromRelRef(baseURI, targetRef string) PackURI {
	if strings.HasPrefix(targetRef, "/") {
		return PackURI(path.Clean(targetRef))
	}
	joined := path.Join(baseURI, targetRef)
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return PackURI(path.Clean(joined))
}
