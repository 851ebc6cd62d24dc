package docedit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

// --- Numbering resolver (spec §4.10 "Numbering resolver") ---

// numLevel is one parsed <w:lvl> definition.
type numLevel struct {
	start   int
	numFmt  string
	lvlText string
	suff    string
}

// NumberingResolver renders list labels from numbering.xml, maintaining the
// stateful per-(numId,ilvl) counters spec §4.10 describes.
type NumberingResolver struct {
	abstractLevels map[int]map[int]numLevel // abstractNumId -> ilvl -> level
	numToAbstract  map[int]int               // numId -> abstractNumId
	overrides      map[int]map[int]numLevel  // numId -> ilvl -> lvlOverride level (merged)
	startOverrides map[int]map[int]int       // numId -> ilvl -> startOverride val
	counters       map[int]map[int]int       // numId -> ilvl -> current count
	seen           map[int]map[int]bool      // numId -> ilvl -> has been rendered before
}

// ParseNumbering parses a numbering.xml root element.
func ParseNumbering(root *etree.Element) *NumberingResolver {
	r := &NumberingResolver{
		abstractLevels: make(map[int]map[int]numLevel),
		numToAbstract:  make(map[int]int),
		overrides:      make(map[int]map[int]numLevel),
		startOverrides: make(map[int]map[int]int),
		counters:       make(map[int]map[int]int),
		seen:           make(map[int]map[int]bool),
	}
	if root == nil {
		return r
	}
	for _, an := range root.ChildElements() {
		if an.Space != "w" || an.Tag != "abstractNum" {
			continue
		}
		idStr, _ := oxml.Attr(an, "w:abstractNumId")
		id, err := parseIntSafe(idStr)
		if err != nil {
			continue
		}
		levels := make(map[int]numLevel)
		for _, lvl := range an.ChildElements() {
			if lvl.Space != "w" || lvl.Tag != "lvl" {
				continue
			}
			ilvlStr, _ := oxml.Attr(lvl, "w:ilvl")
			ilvl, err := parseIntSafe(ilvlStr)
			if err != nil {
				continue
			}
			levels[ilvl] = parseLvlElement(lvl)
		}
		r.abstractLevels[id] = levels
	}
	for _, n := range root.ChildElements() {
		if n.Space != "w" || n.Tag != "num" {
			continue
		}
		numIDStr, _ := oxml.Attr(n, "w:numId")
		numID, err := parseIntSafe(numIDStr)
		if err != nil {
			continue
		}
		if an := oxml.FindChild(n, "w:abstractNumId"); an != nil {
			if v, ok := oxml.Attr(an, "w:val"); ok {
				if absID, err := parseIntSafe(v); err == nil {
					r.numToAbstract[numID] = absID
				}
			}
		}
		for _, lvlOverride := range n.ChildElements() {
			if lvlOverride.Space != "w" || lvlOverride.Tag != "lvlOverride" {
				continue
			}
			ilvlStr, _ := oxml.Attr(lvlOverride, "w:ilvl")
			ilvl, err := parseIntSafe(ilvlStr)
			if err != nil {
				continue
			}
			if so := oxml.FindChild(lvlOverride, "w:startOverride"); so != nil {
				if v, ok := oxml.Attr(so, "w:val"); ok {
					if startVal, err := parseIntSafe(v); err == nil {
						if r.startOverrides[numID] == nil {
							r.startOverrides[numID] = make(map[int]int)
						}
						r.startOverrides[numID][ilvl] = startVal
					}
				}
			}
			if lvl := oxml.FindChild(lvlOverride, "w:lvl"); lvl != nil {
				if r.overrides[numID] == nil {
					r.overrides[numID] = make(map[int]numLevel)
				}
				r.overrides[numID][ilvl] = parseLvlElement(lvl)
			}
		}
	}
	return r
}

func parseLvlElement(lvl *etree.Element) numLevel {
	nl := numLevel{start: 1, numFmt: "decimal", suff: "tab"}
	if start := oxml.FindChild(lvl, "w:start"); start != nil {
		if v, ok := oxml.Attr(start, "w:val"); ok {
			if n, err := parseIntSafe(v); err == nil {
				nl.start = n
			}
		}
	}
	if numFmt := oxml.FindChild(lvl, "w:numFmt"); numFmt != nil {
		if v, ok := oxml.Attr(numFmt, "w:val"); ok {
			nl.numFmt = v
		}
	}
	if lvlText := oxml.FindChild(lvl, "w:lvlText"); lvlText != nil {
		if v, ok := oxml.Attr(lvlText, "w:val"); ok {
			nl.lvlText = v
		}
	}
	if suff := oxml.FindChild(lvl, "w:suff"); suff != nil {
		if v, ok := oxml.Attr(suff, "w:val"); ok {
			nl.suff = v
		}
	}
	return nl
}

// levelFor resolves the effective numLevel for (numId, ilvl), applying any
// lvlOverride.
func (r *NumberingResolver) levelFor(numID, ilvl int) (numLevel, bool) {
	if ov, ok := r.overrides[numID]; ok {
		if lvl, ok := ov[ilvl]; ok {
			return lvl, true
		}
	}
	absID, ok := r.numToAbstract[numID]
	if !ok {
		return numLevel{}, false
	}
	levels, ok := r.abstractLevels[absID]
	if !ok {
		return numLevel{}, false
	}
	lvl, ok := levels[ilvl]
	return lvl, ok
}

func (r *NumberingResolver) startFor(numID, ilvl int, lvl numLevel) int {
	if so, ok := r.startOverrides[numID]; ok {
		if v, ok := so[ilvl]; ok {
			return v
		}
	}
	return lvl.start
}

// Next advances the counter for (numId, ilvl) and returns the rendered label
// (spec §4.10 "Numbering resolver").
func (r *NumberingResolver) Next(numID, ilvl int) (string, bool) {
	lvl, ok := r.levelFor(numID, ilvl)
	if !ok {
		return "", false
	}
	if r.counters[numID] == nil {
		r.counters[numID] = make(map[int]int)
		r.seen[numID] = make(map[int]bool)
	}
	if !r.seen[numID][ilvl] {
		r.counters[numID][ilvl] = r.startFor(numID, ilvl, lvl)
		r.seen[numID][ilvl] = true
	} else {
		r.counters[numID][ilvl]++
	}
	for deeper := ilvl + 1; ; deeper++ {
		if _, ok := r.levelFor(numID, deeper); !ok {
			break
		}
		dl, _ := r.levelFor(numID, deeper)
		r.counters[numID][deeper] = r.startFor(numID, deeper, dl) - 1
		r.seen[numID][deeper] = false
	}

	return renderLvlText(lvl.lvlText, func(level int) string {
		if v, ok := r.counters[numID][level]; ok {
			fmtLvl, ok := r.levelFor(numID, level)
			if !ok {
				return strconv.Itoa(v)
			}
			return formatCounter(v, fmtLvl.numFmt)
		}
		return ""
	}), true
}

// renderLvlText substitutes each "%n" (1-based level number) in lvlText with
// counterAt(n-1).
func renderLvlText(lvlText string, counterAt func(level int) string) string {
	var sb strings.Builder
	i := 0
	for i < len(lvlText) {
		if lvlText[i] == '%' && i+1 < len(lvlText) && lvlText[i+1] >= '1' && lvlText[i+1] <= '9' {
			n := int(lvlText[i+1] - '0')
			sb.WriteString(counterAt(n - 1))
			i += 2
			continue
		}
		sb.WriteByte(lvlText[i])
		i++
	}
	return sb.String()
}

// formatCounter renders a counter value per numFmt: decimal, lowerLetter,
// upperLetter, lowerRoman, upperRoman, bullet, none.
func formatCounter(v int, numFmt string) string {
	switch numFmt {
	case "decimal":
		return strconv.Itoa(v)
	case "lowerLetter":
		return base26Letters(v, false)
	case "upperLetter":
		return base26Letters(v, true)
	case "lowerRoman":
		return strings.ToLower(toRoman(v))
	case "upperRoman":
		return toRoman(v)
	case "bullet":
		return "•"
	case "none":
		return ""
	default:
		return strconv.Itoa(v)
	}
}

// base26Letters renders v (1-based) as Excel-style base-26 letters (1->a,
// 26->z, 27->aa, ...).
func base26Letters(v int, upper bool) string {
	if v < 1 {
		return ""
	}
	var letters []byte
	for v > 0 {
		v--
		letters = append([]byte{byte('a' + v%26)}, letters...)
		v /= 26
	}
	s := string(letters)
	if upper {
		return strings.ToUpper(s)
	}
	return s
}

var romanTable = []struct {
	val int
	sym string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func toRoman(v int) string {
	if v <= 0 {
		return ""
	}
	var sb strings.Builder
	for _, r := range romanTable {
		for v >= r.val {
			sb.WriteString(r.sym)
			v -= r.val
		}
	}
	return sb.String()
}

// --- Style model (spec §4.10 "Style model") ---

// StyleDef is one parsed <w:style> entry.
type StyleDef struct {
	ID       string
	Name     string
	BasedOn  string
	PPr      *etree.Element
	RPr      *etree.Element
	IsDocDef bool
}

// StyleModel resolves paragraph/run formatting through the basedOn chain
// (spec §4.10 "Style model").
type StyleModel struct {
	styles map[string]StyleDef
}

// ParseStyles parses a styles.xml root element.
func ParseStyles(root *etree.Element) *StyleModel {
	m := &StyleModel{styles: make(map[string]StyleDef)}
	if root == nil {
		return m
	}
	for _, s := range root.ChildElements() {
		if s.Space != "w" || s.Tag != "style" {
			continue
		}
		id, _ := oxml.Attr(s, "w:styleId")
		def := StyleDef{ID: id}
		if name := oxml.FindChild(s, "w:name"); name != nil {
			def.Name, _ = oxml.Attr(name, "w:val")
		}
		if basedOn := oxml.FindChild(s, "w:basedOn"); basedOn != nil {
			def.BasedOn, _ = oxml.Attr(basedOn, "w:val")
		}
		def.PPr = oxml.FindChild(s, "w:pPr")
		def.RPr = oxml.FindChild(s, "w:rPr")
		m.styles[id] = def
	}
	return m
}

// chain walks basedOn from styleID, with cycle detection, returning defs
// from most-specific to least-specific.
func (m *StyleModel) chain(styleID string) []StyleDef {
	var out []StyleDef
	visited := make(map[string]bool)
	id := styleID
	for id != "" && !visited[id] {
		visited[id] = true
		def, ok := m.styles[id]
		if !ok {
			break
		}
		out = append(out, def)
		id = def.BasedOn
	}
	return out
}

// ResolvedParagraphFormat is a paragraph's effective paragraph-level
// formatting; it feeds the alignment of the style fingerprint.
type ResolvedParagraphFormat struct {
	Alignment string
}

// ResolveParagraphFormat resolves p's effective alignment: direct pPr/jc,
// else the paragraph-style chain's jc (spec §4.10 "Style model").
func (m *StyleModel) ResolveParagraphFormat(p *etree.Element) ResolvedParagraphFormat {
	pPr := oxml.FindChild(p, "w:pPr")
	if pPr != nil {
		if jc := oxml.FindChild(pPr, "w:jc"); jc != nil {
			if v, ok := oxml.Attr(jc, "w:val"); ok {
				return ResolvedParagraphFormat{Alignment: v}
			}
		}
	}
	styleID := paragraphStyleID(pPr)
	for _, def := range m.chain(styleID) {
		if def.PPr == nil {
			continue
		}
		if jc := oxml.FindChild(def.PPr, "w:jc"); jc != nil {
			if v, ok := oxml.Attr(jc, "w:val"); ok {
				return ResolvedParagraphFormat{Alignment: v}
			}
		}
	}
	return ResolvedParagraphFormat{}
}

func paragraphStyleID(pPr *etree.Element) string {
	if pPr == nil {
		return ""
	}
	if ps := oxml.FindChild(pPr, "w:pStyle"); ps != nil {
		v, _ := oxml.Attr(ps, "w:val")
		return v
	}
	return ""
}

// ResolvedIndents is the effective left/first-line indentation of a
// paragraph, in points (spec §3 "Style fingerprint").
type ResolvedIndents struct {
	LeftPt      float64
	FirstLinePt float64
}

// ResolveIndents resolves p's effective w:ind: direct pPr/w:ind, else the
// paragraph-style chain's pPr/w:ind (spec §4.10 "Style model", same
// direct-then-chain priority as ResolveParagraphFormat).
func (m *StyleModel) ResolveIndents(p *etree.Element) ResolvedIndents {
	pPr := oxml.FindChild(p, "w:pPr")
	if pPr != nil {
		if ind := oxml.FindChild(pPr, "w:ind"); ind != nil {
			return indentsFromElement(ind)
		}
	}
	for _, def := range m.chain(paragraphStyleID(pPr)) {
		if def.PPr == nil {
			continue
		}
		if ind := oxml.FindChild(def.PPr, "w:ind"); ind != nil {
			return indentsFromElement(ind)
		}
	}
	return ResolvedIndents{}
}

// indentsFromElement converts a <w:ind> element's twentieths-of-a-point
// (twips) attributes to points, rounded to one decimal (spec §3's
// "left_indent_pt (1 decimal)"). w:hanging is a negative first-line indent.
func indentsFromElement(ind *etree.Element) ResolvedIndents {
	var out ResolvedIndents
	if v, ok := oxml.Attr(ind, "w:left"); ok {
		out.LeftPt = twipsToPoints(v)
	} else if v, ok := oxml.Attr(ind, "w:start"); ok {
		out.LeftPt = twipsToPoints(v)
	}
	if v, ok := oxml.Attr(ind, "w:firstLine"); ok {
		out.FirstLinePt = twipsToPoints(v)
	} else if v, ok := oxml.Attr(ind, "w:hanging"); ok {
		out.FirstLinePt = -twipsToPoints(v)
	}
	return out
}

func twipsToPoints(v string) float64 {
	n, err := parseIntSafe(v)
	if err != nil {
		return 0
	}
	return math.Round(float64(n)/20*10) / 10
}

// RunToggle is a tri-state boolean: unset, explicitly true, explicitly false.
type RunToggle int

const (
	ToggleUnset RunToggle = iota
	ToggleOn
	ToggleOff
)

// ResolvedRunFormat is the effective character formatting of one run.
type ResolvedRunFormat struct {
	Bold      RunToggle
	Italic    RunToggle
	Underline RunToggle
	Highlight string
}

func resolveToggle(rPr *etree.Element, tag string) RunToggle {
	if rPr == nil {
		return ToggleUnset
	}
	el := oxml.FindChild(rPr, "w:"+tag)
	if el == nil {
		return ToggleUnset
	}
	v, _ := oxml.Attr(el, "w:val")
	if oxml.ParseBoolAttrExplicit(v, true) {
		return ToggleOn
	}
	return ToggleOff
}

// ResolveRunFormat resolves run's effective formatting: direct rPr -> rStyle
// chain -> paragraph's default rPr -> paragraph-style chain rPr (spec §4.10
// "Style model").
func (m *StyleModel) ResolveRunFormat(p, run *etree.Element) ResolvedRunFormat {
	var out ResolvedRunFormat
	var layers []*etree.Element

	rPr := runRPr(run)
	if rPr != nil {
		layers = append(layers, rPr)
		if rStyle := oxml.FindChild(rPr, "w:rStyle"); rStyle != nil {
			if v, ok := oxml.Attr(rStyle, "w:val"); ok {
				for _, def := range m.chain(v) {
					if def.RPr != nil {
						layers = append(layers, def.RPr)
					}
				}
			}
		}
	}
	pPr := oxml.FindChild(p, "w:pPr")
	if pPr != nil {
		if defRPr := oxml.FindChild(pPr, "w:rPr"); defRPr != nil {
			layers = append(layers, defRPr)
		}
	}
	for _, def := range m.chain(paragraphStyleID(pPr)) {
		if def.RPr != nil {
			layers = append(layers, def.RPr)
		}
	}

	for _, layer := range layers {
		if out.Bold == ToggleUnset {
			out.Bold = resolveToggle(layer, "b")
		}
		if out.Italic == ToggleUnset {
			out.Italic = resolveToggle(layer, "i")
		}
		if out.Underline == ToggleUnset {
			out.Underline = resolveToggle(layer, "u")
		}
		if out.Highlight == "" {
			if hl := oxml.FindChild(layer, "w:highlight"); hl != nil {
				out.Highlight, _ = oxml.Attr(hl, "w:val")
			}
		}
	}
	return out
}

// --- Header detection (spec §4.10 "Header detection") ---

var headerPatternRe = regexp.MustCompile(`^([A-Z][\w/&'-]*(?: [A-Z][\w/&'-]*){0,4})[.:]\s*$`)
var headerShortTitleRe = regexp.MustCompile(`^([A-Z][A-Za-z0-9]*(?: [A-Z][A-Za-z0-9]*){0,4})$`)

// DetectHeader implements spec §4.10's two-strategy header detection: the
// run-in prefix first, falling back to a pattern match over the plain text.
// Returns the header text and the rune length of the body's leading
// suppressed prefix (0 if no header detected).
func DetectHeader(p *etree.Element, styles *StyleModel) (header string, suppressedLen int) {
	runs := ParagraphRuns(p)
	prefixLen := 0
	for _, tr := range runs {
		fmtInfo := styles.ResolveRunFormat(p, tr.Run)
		emphasized := fmtInfo.Bold == ToggleOn || fmtInfo.Underline == ToggleOn
		if !emphasized {
			break
		}
		prefixLen += len([]rune(tr.Text))
	}
	if prefixLen > 0 {
		full := []rune(ParagraphText(p))
		if prefixLen <= len(full) {
			prefix := strings.TrimSpace(string(full[:prefixLen]))
			if prefix != "" {
				last := prefix[len(prefix)-1]
				if last == '.' || last == ':' || last == '-' {
					return prefix, prefixLen
				}
			}
		}
	}

	text := strings.TrimSpace(ParagraphText(p))
	if m := headerPatternRe.FindStringSubmatch(text); m != nil {
		return m[1], len([]rune(m[0]))
	}
	if m := headerShortTitleRe.FindStringSubmatch(text); m != nil && len(strings.Fields(m[1])) <= 5 {
		return m[1], len([]rune(m[0]))
	}
	return "", 0
}

// --- Formatting-tag emission (spec §4.10 "Formatting-tag emission") ---

// BaselineFormat is the document-wide modal (bold, italic, underline) tuple.
type BaselineFormat struct {
	Bold, Italic, Underline bool
	Dominant                bool // true when the tuple covers >=60% of body chars
}

// ComputeBaseline scans every non-header body run and returns the formatting
// tuple covering the largest share of characters, flagging Dominant when
// that share is >=60% (spec §4.10).
func ComputeBaseline(paragraphs []*etree.Element, headerLens map[*etree.Element]int, styles *StyleModel) BaselineFormat {
	type tuple struct{ b, i, u bool }
	counts := make(map[tuple]int)
	total := 0

	for _, p := range paragraphs {
		skip := headerLens[p]
		pos := 0
		for _, tr := range ParagraphRuns(p) {
			n := len([]rune(tr.Text))
			if pos < skip {
				consume := skip - pos
				if consume >= n {
					pos += n
					continue
				}
				pos += n
				n -= consume
			} else {
				pos += n
			}
			f := styles.ResolveRunFormat(p, tr.Run)
			t := tuple{f.Bold == ToggleOn, f.Italic == ToggleOn, f.Underline == ToggleOn}
			counts[t] += n
			total += n
		}
	}

	var best tuple
	bestCount := -1
	for t, c := range counts {
		if c > bestCount {
			bestCount = c
			best = t
		}
	}
	dominant := total > 0 && float64(bestCount)/float64(total) >= 0.6
	return BaselineFormat{Bold: best.b, Italic: best.i, Underline: best.u, Dominant: dominant}
}

// runTagDelta computes the open/close tag names for run's formatting
// relative to baseline (spec §4.10: "deviation from the baseline" when
// Dominant, else absolute tags).
func runTagDelta(f ResolvedRunFormat, baseline BaselineFormat) []string {
	var tags []string
	addIf := func(effective, base bool, tag string) {
		if baseline.Dominant {
			if effective != base {
				tags = append(tags, tag)
			}
			return
		}
		if effective {
			tags = append(tags, tag)
		}
	}
	addIf(f.Bold == ToggleOn, baseline.Bold, "b")
	addIf(f.Italic == ToggleOn, baseline.Italic, "i")
	addIf(f.Underline == ToggleOn, baseline.Underline, "u")
	return tags
}

// definitionRe matches a quoted term followed by a definition verb (spec
// §4.10 "Definition spans").
var definitionRe = regexp.MustCompile(`["“]([^"”]+)["”]\s+(means|has the meaning)\b`)

// EmitFormattingTags renders paragraph p's runs as inline-tagged text (spec
// §4.10 "Formatting-tag emission"). hyperlinkTargets maps a w:hyperlink's
// r:id to its resolved URL.
func EmitFormattingTags(p *etree.Element, baseline BaselineFormat, emit bool, styles *StyleModel, hyperlinkTargets map[string]string) string {
	var sb strings.Builder
	for _, child := range p.ChildElements() {
		if child.Space != "w" {
			continue
		}
		switch child.Tag {
		case "r":
			sb.WriteString(renderRunTagged(p, child, baseline, emit, styles))
		case "hyperlink":
			href := ""
			if rid, ok := oxml.Attr(child, "r:id"); ok {
				href = hyperlinkTargets[rid]
			}
			var inner strings.Builder
			for _, r := range child.ChildElements() {
				if r.Space == "w" && r.Tag == "r" {
					inner.WriteString(renderRunTagged(p, r, baseline, emit, styles))
				}
			}
			if href != "" {
				sb.WriteString(fmt.Sprintf(`<a href="%s">%s</a>`, href, inner.String()))
			} else {
				sb.WriteString(inner.String())
			}
		}
	}
	out := sb.String()
	out = collapseAdjacentTags(out)
	out = interleaveDefinitions(out)
	return out
}

func renderRunTagged(p, run *etree.Element, baseline BaselineFormat, emit bool, styles *StyleModel) string {
	text, _ := RunText(run)
	if text == "" {
		return ""
	}
	f := styles.ResolveRunFormat(p, run)
	var open, close strings.Builder
	if emit {
		tags := runTagDelta(f, baseline)
		for _, t := range tags {
			open.WriteString("<" + t + ">")
		}
		for i := len(tags) - 1; i >= 0; i-- {
			close.WriteString("</" + tags[i] + ">")
		}
	}
	body := text
	if f.Highlight != "" {
		body = "<highlighting>" + body + "</highlighting>"
	}
	return open.String() + body + close.String()
}

// collapseAdjacentTags removes adjacent </x><x> pairs of the same tag.
func collapseAdjacentTags(s string) string {
	for _, tag := range []string{"b", "i", "u"} {
		s = strings.ReplaceAll(s, "</"+tag+"><"+tag+">", "")
	}
	return s
}

// interleaveDefinitions rewrites each definitionRe match in the already
// tagged string s as "<definition>term</definition> verb", dropping the
// surrounding quote characters. It does not close or reopen any formatting
// tags around the definition span; tags already present in s are left where
// they are.
func interleaveDefinitions(s string) string {
	return definitionRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := definitionRe.FindStringSubmatch(m)
		if sub == nil {
			return m
		}
		return "<definition>" + sub[1] + "</definition> " + sub[2]
	})
}

// --- Style fingerprint (spec §4.10 "Style fingerprint -> id") ---

// StyleFingerprint identifies a group of paragraphs sharing the same
// rendered shape: style, list position, alignment, and indentation (spec §3
// "Style fingerprint").
type StyleFingerprint struct {
	StyleID           string  `json:"style_id"`
	NumID             int     `json:"num_id"`
	Ilvl              int     `json:"ilvl"`
	Alignment         string  `json:"alignment"`
	LeftIndentPt      float64 `json:"left_indent_pt"`
	FirstLineIndentPt float64 `json:"first_line_indent_pt"`
}

func (f StyleFingerprint) key() string {
	return fmt.Sprintf("%s|%d|%d|%s|%.1f|%.1f",
		f.StyleID, f.NumID, f.Ilvl, f.Alignment, f.LeftIndentPt, f.FirstLineIndentPt)
}

// FingerprintGroup is one distinct paragraph-shape group (spec §4.10).
type FingerprintGroup struct {
	ID        string
	Count     int
	Example   *etree.Element
	Alignment string
	Members   []*etree.Element
}

// paragraphListPosition reads a paragraph's w:pPr/w:numPr/{numId,ilvl},
// returning (-1,-1) when p carries no numbering reference.
func paragraphListPosition(pPr *etree.Element) (numID, ilvl int) {
	numID, ilvl = -1, -1
	if pPr == nil {
		return
	}
	numPr := oxml.FindChild(pPr, "w:numPr")
	if numPr == nil {
		return
	}
	if n := oxml.FindChild(numPr, "w:numId"); n != nil {
		if v, ok := oxml.Attr(n, "w:val"); ok {
			numID, _ = parseIntSafe(v)
		}
	}
	if lv := oxml.FindChild(numPr, "w:ilvl"); lv != nil {
		if v, ok := oxml.Attr(lv, "w:val"); ok {
			ilvl, _ = parseIntSafe(v)
		}
	}
	return
}

// computeFingerprint builds p's StyleFingerprint (spec §3), shared by
// GroupByFingerprint and the document-view orchestrator so both classify
// paragraphs identically.
func computeFingerprint(p *etree.Element, styles *StyleModel) StyleFingerprint {
	pPr := oxml.FindChild(p, "w:pPr")
	numID, ilvl := paragraphListPosition(pPr)
	indents := styles.ResolveIndents(p)
	return StyleFingerprint{
		StyleID:           paragraphStyleID(pPr),
		NumID:             numID,
		Ilvl:              ilvl,
		Alignment:         styles.ResolveParagraphFormat(p).Alignment,
		LeftIndentPt:      indents.LeftPt,
		FirstLineIndentPt: indents.FirstLinePt,
	}
}

// semanticIDHints maps a style-name substring (lowercased) to a semantic id.
var semanticIDHints = []struct {
	substr string
	id     string
}{
	{"title", "title"},
	{"heading", "heading"},
	{"quote", "quote"},
}

// GroupByFingerprint groups paragraphs by rendered shape and assigns each
// group a semantic id: "list_item" for any paragraph with a numbering
// reference, else the first style-name hint (title, heading, quote) found in
// the style's name, else "body". Duplicates get numeric suffixes (spec
// §4.10). List level and label type do not affect the id.
func GroupByFingerprint(paragraphs []*etree.Element, styles *StyleModel) []FingerprintGroup {
	order := []string{}
	buckets := make(map[string]*fingerprintBucket)

	for _, p := range paragraphs {
		fp := computeFingerprint(p, styles)
		key := fp.key()
		b, ok := buckets[key]
		if !ok {
			styleName := ""
			if def, ok := styles.styles[fp.StyleID]; ok {
				styleName = strings.ToLower(def.Name)
			}
			b = &fingerprintBucket{fp: fp, styleID: fp.StyleID, styleNm: styleName}
			buckets[key] = b
			order = append(order, key)
		}
		b.members = append(b.members, p)
	}

	idCounts := make(map[string]int)
	var groups []FingerprintGroup
	for _, key := range order {
		b := buckets[key]
		baseID := semanticIDFor(b)
		id := baseID
		if idCounts[baseID] > 0 {
			id = fmt.Sprintf("%s_%d", baseID, idCounts[baseID])
		}
		idCounts[baseID]++
		median := b.members[len(b.members)/2]
		groups = append(groups, FingerprintGroup{
			ID: id, Count: len(b.members), Example: median, Alignment: b.fp.Alignment,
			Members: b.members,
		})
	}
	return groups
}

// fingerprintBucket accumulates the paragraphs sharing one StyleFingerprint.
type fingerprintBucket struct {
	fp      StyleFingerprint
	members []*etree.Element
	styleID string
	styleNm string
}

func semanticIDFor(b *fingerprintBucket) string {
	if b.fp.NumID >= 0 {
		return "list_item"
	}
	for _, hint := range semanticIDHints {
		if strings.Contains(b.styleNm, hint.substr) {
			return hint.id
		}
	}
	return "body"
}
