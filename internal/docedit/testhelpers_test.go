package docedit

import (
	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// newRun builds a <w:r> carrying a single <w:t> with text.
func newRun(text string) *etree.Element {
	r := oxml.NewElement("w:r")
	r.AddChild(newTextElement(text))
	return r
}

// newRunProps builds a <w:r> with the given text and a <w:rPr> carrying a
// bold toggle, so adjacent-run tests can exercise formatting equality.
func newRunBold(text string) *etree.Element {
	r := oxml.NewElement("w:r")
	rPr := oxml.NewElement("w:rPr")
	rPr.AddChild(oxml.NewElement("w:b"))
	r.AddChild(rPr)
	r.AddChild(newTextElement(text))
	return r
}

// newParagraph builds a <w:p> containing the given runs, in order.
func newParagraph(runs ...*etree.Element) *etree.Element {
	p := oxml.NewElement("w:p")
	for _, r := range runs {
		p.AddChild(r)
	}
	return p
}

// newBody wraps paragraphs in a <w:body>.
func newBody(paragraphs ...*etree.Element) *etree.Element {
	body := oxml.NewElement("w:body")
	for _, p := range paragraphs {
		body.AddChild(p)
	}
	return body
}
