package opc

import (
	"fmt"

	"github.com/beevik/etree"
)

// Part represents a named member of an OPC package.
type Part interface {
	PartName() PackURI
	ContentType() string
	Blob() ([]byte, error)
	Rels() *Relationships
	SetRels(rels *Relationships)
	BeforeMarshal()
	AfterUnmarshal()
}

// BasePart is the default binary-blob implementation of Part.
type BasePart struct {
	partName    PackURI
	contentType string
	blob        []byte
	rels        *Relationships
	pkg         *OpcPackage
}

// NewBasePart creates a new BasePart.
func NewBasePart(partName PackURI, contentType string, blob []byte, pkg *OpcPackage) *BasePart {
	return &BasePart{
		partName:    partName,
		contentType: contentType,
		blob:        blob,
		pkg:         pkg,
		rels:        NewRelationships(partName.BaseURI()),
	}
}

func (p *BasePart) PartName() PackURI           { return p.partName }
func (p *BasePart) ContentType() string         { return p.contentType }
func (p *BasePart) Blob() ([]byte, error)       { return p.blob, nil }
func (p *BasePart) Rels() *Relationships        { return p.rels }
func (p *BasePart) SetRels(rels *Relationships) { p.rels = rels }
func (p *BasePart) Package() *OpcPackage        { return p.pkg }
func (p *BasePart) BeforeMarshal()              {}
func (p *BasePart) AfterUnmarshal()             {}

// SetPartName updates the part name.
func (p *BasePart) SetPartName(pn PackURI) { p.partName = pn }

// SetBlob replaces the blob.
func (p *BasePart) SetBlob(blob []byte) { p.blob = blob }

// xmlProcInst is the standard XML declaration for OPC parts.
const xmlProcInst = `version="1.0" encoding="UTF-8" standalone="yes"`

// XmlPart extends BasePart with a parsed XML document. Internally it stores
// the owning *etree.Document rather than a bare *etree.Element so Blob() can
// serialize the tree directly without re-parenting into a temporary Document
// on every call.
type XmlPart struct {
	BasePart
	doc *etree.Document
}

func newXmlDoc() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlProcInst)
	doc.WriteSettings.CanonicalEndTags = true
	return doc
}

func ensureProcInst(doc *etree.Document) {
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			pi.Inst = xmlProcInst
			return
		}
	}
	pi := &etree.ProcInst{Target: "xml", Inst: xmlProcInst}
	doc.Child = append([]etree.Token{pi}, doc.Child...)
}

// NewXmlPart creates an XmlPart by parsing the blob as XML.
func NewXmlPart(partName PackURI, contentType string, blob []byte, pkg *OpcPackage) (*XmlPart, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	doc.WriteSettings.CanonicalEndTags = true
	if err := doc.ReadFromBytes(blob); err != nil {
		return nil, fmt.Errorf("opc: parsing XML part %q: %w", partName, err)
	}
	ensureProcInst(doc)
	return &XmlPart{
		BasePart: *NewBasePart(partName, contentType, nil, pkg),
		doc:      doc,
	}, nil
}

// NewXmlPartFromElement creates an XmlPart from an existing element, adopting
// it into a new Document (detaching it from any previous parent).
func NewXmlPartFromElement(partName PackURI, contentType string, element *etree.Element, pkg *OpcPackage) *XmlPart {
	doc := newXmlDoc()
	doc.SetRoot(element)
	return &XmlPart{
		BasePart: *NewBasePart(partName, contentType, nil, pkg),
		doc:      doc,
	}
}

// Element returns the root XML element, or nil if the document is empty.
func (p *XmlPart) Element() *etree.Element {
	if p.doc == nil {
		return nil
	}
	return p.doc.Root()
}

// SetElement replaces the root XML element.
func (p *XmlPart) SetElement(el *etree.Element) {
	if p.doc == nil {
		p.doc = newXmlDoc()
	}
	p.doc.SetRoot(el)
}

// Blob serializes the XML document to bytes with a standard XML declaration.
func (p *XmlPart) Blob() ([]byte, error) {
	if p.doc == nil || p.doc.Root() == nil {
		return nil, nil
	}
	b, err := p.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("opc: serializing XML part %q: %w", p.partName, err)
	}
	return escapeAttrWhitespace(b), nil
}

// escapeAttrWhitespace re-encodes literal \n, \r, \t inside XML attribute
// values to character references (&#10; &#13; &#9;). etree decodes these on
// read but writes them back as literal characters, and per XML's
// attribute-value normalization rules a subsequent parse would collapse them
// to spaces, corrupting round-tripped data (e.g. multi-line VML text).
func escapeAttrWhitespace(b []byte) []byte {
	hasSpecial := false
	for _, c := range b {
		if c == '\n' || c == '\r' || c == '\t' {
			hasSpecial = true
			break
		}
	}
	if !hasSpecial {
		return b
	}

	out := make([]byte, 0, len(b)+64)
	inTag := false
	var quote byte

	for _, c := range b {
		if !inTag {
			if c == '<' {
				inTag = true
				quote = 0
			}
			out = append(out, c)
			continue
		}
		if quote == 0 {
			switch c {
			case '>':
				inTag = false
				out = append(out, c)
			case '"', '\'':
				quote = c
				out = append(out, c)
			default:
				out = append(out, c)
			}
			continue
		}
		if c == quote {
			quote = 0
			out = append(out, c)
			continue
		}
		switch c {
		case '\n':
			out = append(out, []byte("&#10;")...)
		case '\r':
			out = append(out, []byte("&#13;")...)
		case '\t':
			out = append(out, []byte("&#9;")...)
		default:
			out = append(out, c)
		}
	}
	return out
}

// PartConstructor builds a Part from serialized data.
type PartConstructor func(partName PackURI, contentType, relType string, blob []byte, pkg *OpcPackage) (Part, error)

// PartFactory maps content types to Part constructors.
type PartFactory struct {
	constructors map[string]PartConstructor
}

// NewPartFactory creates a PartFactory pre-registered for every content
// type this module reads as XML (spec §3 Package parts).
func NewPartFactory() *PartFactory {
	f := &PartFactory{constructors: make(map[string]PartConstructor)}
	xmlCtor := func(partName PackURI, contentType, relType string, blob []byte, pkg *OpcPackage) (Part, error) {
		return NewXmlPart(partName, contentType, blob, pkg)
	}
	for _, ct := range []string{
		CTWmlDocumentMain, CTWmlStyles, CTWmlNumbering,
		CTWmlComments, CTWmlCommentsExt, CTWmlPeople, CTWmlFootnotes,
	} {
		f.Register(ct, xmlCtor)
	}
	return f
}

// Register maps a content type to a constructor.
func (f *PartFactory) Register(contentType string, ctor PartConstructor) {
	f.constructors[contentType] = ctor
}

// New creates a Part using the registered constructors, falling back to
// BasePart for anything unrecognized (images, settings.xml, etc. pass
// through untouched).
func (f *PartFactory) New(partName PackURI, contentType, relType string, blob []byte, pkg *OpcPackage) (Part, error) {
	if ctor, ok := f.constructors[contentType]; ok {
		return ctor(partName, contentType, relType, blob, pkg)
	}
	return NewBasePart(partName, contentType, blob, pkg), nil
}
