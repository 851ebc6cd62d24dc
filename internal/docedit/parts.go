package docedit

import (
	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/opc"
	"github.com/vortex/safedocx/internal/oxml"
)

// documentPartName is the conventional location of the main document part
// (spec §3 Package parts).
const documentPartName = opc.PackURI("/word/document.xml")

// partRelTarget names a bootstrap-able auxiliary part by its package-relative
// location, content type, relationship type, and root element tag.
type partRelTarget struct {
	name    opc.PackURI
	ct      string
	relType string
	rootTag string
	xmlns   map[string]string
}

var (
	commentsTarget = partRelTarget{
		name: "/word/comments.xml", ct: opc.CTWmlComments, relType: opc.RTComments,
		rootTag: "w:comments",
	}
	commentsExtTarget = partRelTarget{
		name: "/word/commentsExtended.xml", ct: opc.CTWmlCommentsExt, relType: opc.RTCommentsExt,
		rootTag: "w15:commentsEx",
	}
	peopleTarget = partRelTarget{
		name: "/word/people.xml", ct: opc.CTWmlPeople, relType: opc.RTPeople,
		rootTag: "w15:people",
	}
	footnotesTarget = partRelTarget{
		name: "/word/footnotes.xml", ct: opc.CTWmlFootnotes, relType: opc.RTFootnotes,
		rootTag: "w:footnotes",
	}
)

// documentElement returns the main document part's root <w:document> element.
func documentElement(pkg *opc.OpcPackage) (*etree.Element, error) {
	part, err := pkg.MainDocumentPart()
	if err != nil {
		return nil, NewInvalidArgumentError("docedit: no main document part: %v", err)
	}
	xp, ok := part.(*opc.XmlPart)
	if !ok {
		return nil, NewInvalidArgumentError("docedit: main document part is not XML")
	}
	return xp.Element(), nil
}

// documentBody returns the <w:body> child of the main document element.
func documentBody(pkg *opc.OpcPackage) (*etree.Element, error) {
	doc, err := documentElement(pkg)
	if err != nil {
		return nil, err
	}
	body := oxml.FindChild(doc, "w:body")
	if body == nil {
		return nil, NewInvalidArgumentError("docedit: document has no w:body")
	}
	return body, nil
}

// ensurePart returns target's part, creating and registering it (with a
// bare root element and a fresh package relationship) if it doesn't already
// exist. Returns the part and whether it was newly created.
func ensurePart(pkg *opc.OpcPackage, target partRelTarget) (*opc.XmlPart, bool, error) {
	if existing, ok := pkg.PartByName(target.name); ok {
		xp, ok := existing.(*opc.XmlPart)
		if !ok {
			return nil, false, NewInvalidArgumentError("docedit: part %q is not XML", target.name)
		}
		return xp, false, nil
	}

	root := oxml.NewElement(target.rootTag)
	for prefix, uri := range target.xmlns {
		root.CreateAttr("xmlns:"+prefix, uri)
	}
	xp := opc.NewXmlPartFromElement(target.name, target.ct, root, pkg)
	pkg.AddPart(xp)
	pkg.RelateTo(xp, target.relType)
	return xp, true, nil
}

// init sets the namespace declarations each bootstrap-able part needs on its
// root element (spec §4.7/§4.8 "idempotent bootstrap").
func init() {
	commentsTarget.xmlns = map[string]string{
		"w": oxml.Nsmap["w"],
	}
	commentsExtTarget.xmlns = map[string]string{
		"w15": oxml.Nsmap["w15"],
	}
	peopleTarget.xmlns = map[string]string{
		"w15": oxml.Nsmap["w15"],
	}
	footnotesTarget.xmlns = map[string]string{
		"w": oxml.Nsmap["w"],
	}
}

// stylesModel parses the optional word/styles.xml part, returning an empty
// StyleModel when absent (spec §7 "missing optional parts on read return
// empty results").
func stylesModel(pkg *opc.OpcPackage) *StyleModel {
	if part, ok := pkg.PartByName("/word/styles.xml"); ok {
		if xp, ok := part.(*opc.XmlPart); ok {
			return ParseStyles(xp.Element())
		}
	}
	return ParseStyles(nil)
}

// numberingResolverFor parses the optional word/numbering.xml part, returning
// an empty NumberingResolver when absent.
func numberingResolverFor(pkg *opc.OpcPackage) *NumberingResolver {
	if part, ok := pkg.PartByName("/word/numbering.xml"); ok {
		if xp, ok := part.(*opc.XmlPart); ok {
			return ParseNumbering(xp.Element())
		}
	}
	return ParseNumbering(nil)
}

// hyperlinkTargets maps the main document part's hyperlink relationship ids
// to their (external) target URLs (spec §4.10 "Formatting-tag emission":
// "resolved via the relationships map").
func hyperlinkTargets(pkg *opc.OpcPackage) (map[string]string, error) {
	part, err := pkg.MainDocumentPart()
	if err != nil {
		return nil, NewInvalidArgumentError("docedit: no main document part: %v", err)
	}
	out := make(map[string]string)
	rels := part.Rels()
	if rels == nil {
		return out, nil
	}
	for _, rel := range rels.All() {
		if rel.RelType == opc.RTHyperlink {
			out[rel.RID] = rel.TargetRef
		}
	}
	return out, nil
}

// maxAttrInt scans every direct child of root for the given attribute and
// returns the maximum integer value found (0 if none).
func maxAttrInt(root *etree.Element, attr string) int {
	max := 0
	for _, c := range root.ChildElements() {
		if v, ok := oxml.Attr(c, attr); ok {
			if n, err := parseIntSafe(v); err == nil && n > max {
				max = n
			}
		}
	}
	return max
}

func parseIntSafe(s string) (int, error) {
	n := 0
	neg := false
	if len(s) == 0 {
		return 0, NewInvalidArgumentError("docedit: empty integer attribute")
	}
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0, NewInvalidArgumentError("docedit: not an integer: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
