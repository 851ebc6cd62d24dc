package opc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Content types consumed/emitted by this module (spec §6).
const (
	CTContentTypesXml = "application/vnd.openxmlformats-package.content-types+xml"
	CTRelationships   = "application/vnd.openxmlformats-package.relationships+xml"

	CTWmlDocumentMain = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	CTWmlStyles       = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	CTWmlNumbering    = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	CTWmlComments     = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
	CTWmlCommentsExt  = "application/vnd.openxmlformats-officedocument.wordprocessingml.commentsExtended+xml"
	CTWmlPeople       = "application/vnd.openxmlformats-officedocument.wordprocessingml.people+xml"
	CTWmlFootnotes    = "application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml"
)

// Relationship types consumed/emitted by this module.
const (
	RTOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RTStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RTNumbering      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	RTComments       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	RTCommentsExt    = "http://schemas.microsoft.com/office/2011/relationships/commentsExtended"
	RTPeople         = "http://schemas.microsoft.com/office/2011/relationships/people"
	RTFootnotes      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footnotes"
	RTHyperlink      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
)

// ContentTypeMap resolves a part name to its declared content type, parsed
// from [Content_Types].xml ([Default] extension rules plus [Override] exact
// partname rules — Override always wins).
type ContentTypeMap struct {
	defaults  map[string]string // extension (lowercase, no dot) -> content type
	overrides map[PackURI]string
}

// ParseContentTypes parses a [Content_Types].xml blob.
func ParseContentTypes(blob []byte) (*ContentTypeMap, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(blob); err != nil {
		return nil, fmt.Errorf("opc: parsing [Content_Types].xml: %w", err)
	}
	ct := &ContentTypeMap{
		defaults:  make(map[string]string),
		overrides: make(map[PackURI]string),
	}
	root := doc.Root()
	if root == nil {
		return ct, nil
	}
	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "Default":
			ext := strings.ToLower(child.SelectAttrValue("Extension", ""))
			ct.defaults[ext] = child.SelectAttrValue("ContentType", "")
		case "Override":
			pn := PackURI(child.SelectAttrValue("PartName", ""))
			ct.overrides[pn] = child.SelectAttrValue("ContentType", "")
		}
	}
	return ct, nil
}

// NewContentTypeMap returns an empty map with the standard defaults
// bootstrapped (rels + xml).
func NewContentTypeMap() *ContentTypeMap {
	return &ContentTypeMap{
		defaults: map[string]string{
			"rels": CTRelationships,
			"xml":  "application/xml",
		},
		overrides: make(map[PackURI]string),
	}
}

// ContentType returns the content type for partname, checking overrides
// first, then the default extension rule.
func (c *ContentTypeMap) ContentType(partname PackURI) (string, error) {
	if ct, ok := c.overrides[partname]; ok {
		return ct, nil
	}
	ext := strings.ToLower(partname.Ext())
	if ct, ok := c.defaults[ext]; ok {
		return ct, nil
	}
	return "", fmt.Errorf("opc: no content type declared for %q", partname)
}

// SetOverride registers (or replaces) an explicit content-type override for
// partname.
func (c *ContentTypeMap) SetOverride(partname PackURI, contentType string) {
	c.overrides[partname] = contentType
}

// HasOverride reports whether partname has an explicit Override entry.
func (c *ContentTypeMap) HasOverride(partname PackURI) bool {
	_, ok := c.overrides[partname]
	return ok
}

// Serialize renders the content-type map as [Content_Types].xml bytes.
// Entries are emitted in sorted order for deterministic output.
func (c *ContentTypeMap) Serialize() ([]byte, error) {
	doc := newXmlDoc()
	root := doc.CreateElement("Types")
	root.CreateAttr("xmlns", "http://schemas.openxmlformats.org/package/2006/content-types")

	exts := make([]string, 0, len(c.defaults))
	for ext := range c.defaults {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		d := root.CreateElement("Default")
		d.CreateAttr("Extension", ext)
		d.CreateAttr("ContentType", c.defaults[ext])
	}

	pns := make([]string, 0, len(c.overrides))
	for pn := range c.overrides {
		pns = append(pns, string(pn))
	}
	sort.Strings(pns)
	for _, pn := range pns {
		o := root.CreateElement("Override")
		o.CreateAttr("PartName", pn)
		o.CreateAttr("ContentType", c.overrides[PackURI(pn)])
	}

	return doc.WriteToBytes()
}
