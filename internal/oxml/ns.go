// Package oxml provides namespace-aware XML element construction for
// Office Open XML WordprocessingML documents, on top of github.com/beevik/etree.
package oxml

import (
	"fmt"
	"strings"
)

// Nsmap maps namespace prefixes to their URIs, per spec §6.
var Nsmap = map[string]string{
	"w":    "http://schemas.openxmlformats.org/wordprocessingml/2006/main",
	"w14":  "http://schemas.microsoft.com/office/word/2010/wordml",
	"w15":  "http://schemas.microsoft.com/office/word/2012/wordml",
	"r":    "http://schemas.openxmlformats.org/officeDocument/2006/relationships",
	"xml":  "http://www.w3.org/XML/1998/namespace",
	"mc":   "http://schemas.openxmlformats.org/markup-compatibility/2006",
	"pkgrel": "http://schemas.openxmlformats.org/package/2006/relationships",
	"ct":   "http://schemas.openxmlformats.org/package/2006/content-types",
}

// Pfxmap is the reverse mapping of URI → prefix.
var Pfxmap map[string]string

func init() {
	Pfxmap = make(map[string]string, len(Nsmap))
	for pfx, uri := range Nsmap {
		Pfxmap[uri] = pfx
	}
}

// RelTypeHyperlink is the relationship type for a hyperlink (spec §6).
const RelTypeHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"

// Split parses a namespace-prefixed tag ("w:p") into its prefix and local
// name. Tags with no prefix are returned with an empty prefix.
func Split(tag string) (prefix, local string) {
	prefix, local, ok := strings.Cut(tag, ":")
	if !ok {
		return "", tag
	}
	return prefix, local
}

// URI returns the namespace URI registered for prefix, or "" if unknown.
func URI(prefix string) string {
	return Nsmap[prefix]
}

// Is reports whether the namespace prefix space and local name tag match the
// prefixed tag ("w:p").
func Is(space, tag, nsptag string) bool {
	prefix, local := Split(nsptag)
	return space == prefix && tag == local
}

// MustURI returns the namespace URI for prefix, panicking on an unknown
// prefix. Use only with compile-time-known prefixes.
func MustURI(prefix string) string {
	uri, ok := Nsmap[prefix]
	if !ok {
		panic(fmt.Sprintf("oxml: unknown namespace prefix %q", prefix))
	}
	return uri
}
