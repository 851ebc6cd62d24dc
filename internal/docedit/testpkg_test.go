package docedit

import (
	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/opc"
	"github.com/vortex/safedocx/internal/oxml"
)

// newTestPackage builds a minimal in-memory OpcPackage with a main document
// part wrapping body as <w:body>, suitable for exercising comment/footnote
// operations that read/write auxiliary parts without a real .docx fixture.
func newTestPackage(body *etree.Element) *opc.OpcPackage {
	pkg := opc.NewOpcPackage(nil)

	doc := oxml.NewElement("w:document")
	doc.AddChild(body)
	docPart := opc.NewXmlPartFromElement("/word/document.xml", opc.CTWmlDocumentMain, doc, pkg)
	pkg.AddPart(docPart)
	pkg.RelateTo(docPart, opc.RTOfficeDocument)

	return pkg
}
