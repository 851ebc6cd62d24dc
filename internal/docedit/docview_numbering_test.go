package docedit

import (
	"testing"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/internal/oxml"
)

func TestBase26Letters(t *testing.T) {
	cases := map[int]string{1: "a", 2: "b", 26: "z", 27: "aa", 28: "ab", 52: "az", 53: "ba"}
	for v, want := range cases {
		if got := base26Letters(v, false); got != want {
			t.Errorf("base26Letters(%d) = %q, want %q", v, got, want)
		}
	}
	if got := base26Letters(1, true); got != "A" {
		t.Errorf("base26Letters(1, upper) = %q, want A", got)
	}
}

func TestToRoman(t *testing.T) {
	cases := map[int]string{1: "I", 4: "IV", 9: "IX", 14: "XIV", 40: "XL", 1994: "MCMXCIV"}
	for v, want := range cases {
		if got := toRoman(v); got != want {
			t.Errorf("toRoman(%d) = %q, want %q", v, got, want)
		}
	}
}

func TestFormatCounter(t *testing.T) {
	if got := formatCounter(3, "decimal"); got != "3" {
		t.Errorf("decimal: got %q", got)
	}
	if got := formatCounter(1, "lowerLetter"); got != "a" {
		t.Errorf("lowerLetter: got %q", got)
	}
	if got := formatCounter(3, "upperRoman"); got != "III" {
		t.Errorf("upperRoman: got %q", got)
	}
	if got := formatCounter(1, "bullet"); got != "•" {
		t.Errorf("bullet: got %q", got)
	}
}

func TestRenderLvlText_Substitution(t *testing.T) {
	counters := map[int]string{0: "1", 1: "a"}
	got := renderLvlText("%1.%2)", func(level int) string { return counters[level] })
	if got != "1.a)" {
		t.Errorf("renderLvlText() = %q, want %q", got, "1.a)")
	}
}

// buildNumberingRoot builds a minimal <w:numbering> tree: one abstractNum
// with two levels (ilvl 0 decimal, ilvl 1 lowerLetter), and one <w:num>
// pointing at it.
func buildNumberingRoot() *etree.Element {
	root := oxml.NewElement("w:numbering")

	abstract := oxml.NewElement("w:abstractNum")
	oxml.SetAttr(abstract, "w:abstractNumId", "0")

	lvl0 := oxml.NewElement("w:lvl")
	oxml.SetAttr(lvl0, "w:ilvl", "0")
	start0 := oxml.NewElement("w:start")
	oxml.SetAttr(start0, "w:val", "1")
	lvl0.AddChild(start0)
	fmt0 := oxml.NewElement("w:numFmt")
	oxml.SetAttr(fmt0, "w:val", "decimal")
	lvl0.AddChild(fmt0)
	text0 := oxml.NewElement("w:lvlText")
	oxml.SetAttr(text0, "w:val", "%1.")
	lvl0.AddChild(text0)
	abstract.AddChild(lvl0)

	lvl1 := oxml.NewElement("w:lvl")
	oxml.SetAttr(lvl1, "w:ilvl", "1")
	start1 := oxml.NewElement("w:start")
	oxml.SetAttr(start1, "w:val", "1")
	lvl1.AddChild(start1)
	fmt1 := oxml.NewElement("w:numFmt")
	oxml.SetAttr(fmt1, "w:val", "lowerLetter")
	lvl1.AddChild(fmt1)
	text1 := oxml.NewElement("w:lvlText")
	oxml.SetAttr(text1, "w:val", "%2)")
	lvl1.AddChild(text1)
	abstract.AddChild(lvl1)

	root.AddChild(abstract)

	num := oxml.NewElement("w:num")
	oxml.SetAttr(num, "w:numId", "1")
	absRef := oxml.NewElement("w:abstractNumId")
	oxml.SetAttr(absRef, "w:val", "0")
	num.AddChild(absRef)
	root.AddChild(num)

	return root
}

func TestNumberingResolver_SequentialAdvance(t *testing.T) {
	r := ParseNumbering(buildNumberingRoot())
	first, ok := r.Next(1, 0)
	if !ok || first != "1." {
		t.Fatalf("first label = %q ok=%v, want \"1.\"", first, ok)
	}
	second, ok := r.Next(1, 0)
	if !ok || second != "2." {
		t.Fatalf("second label = %q ok=%v, want \"2.\"", second, ok)
	}
}

func TestNumberingResolver_DeeperLevelResetsOnParentAdvance(t *testing.T) {
	r := ParseNumbering(buildNumberingRoot())
	r.Next(1, 0)         // "1."
	a, _ := r.Next(1, 1) // "a)"
	b, _ := r.Next(1, 1) // "b)"
	r.Next(1, 0)         // "2." — must reset ilvl 1 back to start
	c, _ := r.Next(1, 1) // "a)" again

	if a != "a)" || b != "b)" {
		t.Fatalf("nested sequence = %q, %q, want a), b)", a, b)
	}
	if c != "a)" {
		t.Errorf("after parent advance, nested counter = %q, want reset to a)", c)
	}
}

func TestNumberingResolver_UnknownNumIDReturnsFalse(t *testing.T) {
	r := ParseNumbering(buildNumberingRoot())
	_, ok := r.Next(999, 0)
	if ok {
		t.Errorf("expected ok=false for an unknown numId")
	}
}
