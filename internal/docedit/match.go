package docedit

import "strings"

// MatchStatus is the outcome of a unique-substring resolution (spec §4.9).
type MatchStatus int

const (
	MatchNotFound MatchStatus = iota
	MatchUnique
	MatchMultiple
)

// MatchResult reports where needle was found in the original haystack.
type MatchResult struct {
	Status      MatchStatus
	Start       int // rune offset into the ORIGINAL haystack, half-open
	End         int
	MatchedText string
	Mode        string
}

// matchMode is one progressively-looser transform pipeline, named per spec §4.9.
type matchMode struct {
	name      string
	transform func([]rune) ([]rune, []int) // returns transformed runes + mapping back to original index
}

var matchModes = []matchMode{
	{"exact", identityTransform},
	{"quote_normalized", normalizeQuotesTransform},
	{"flexible_whitespace", flexibleWhitespaceTransform},
	{"quote_optional", quoteOptionalTransform},
}

// identityTransform is the no-op mapping used by the "exact" mode.
func identityTransform(in []rune) ([]rune, []int) {
	idx := make([]int, len(in))
	for i := range in {
		idx[i] = i
	}
	return in, idx
}

// normalizeSmartQuote maps one typographic quote rune to its ASCII equivalent,
// or returns r unchanged.
func normalizeSmartQuote(r rune) rune {
	switch r {
	case '‘', '’', '‚', '‛':
		return '\''
	case '“', '”', '„', '‟':
		return '"'
	default:
		return r
	}
}

// normalizeQuotesTransform maps smart quotes to ASCII, 1:1 per rune.
func normalizeQuotesTransform(in []rune) ([]rune, []int) {
	out := make([]rune, len(in))
	idx := make([]int, len(in))
	for i, r := range in {
		out[i] = normalizeSmartQuote(r)
		idx[i] = i
	}
	return out, idx
}

// flexibleWhitespaceTransform applies quote normalization, then collapses
// every maximal run of whitespace to a single space.
func flexibleWhitespaceTransform(in []rune) ([]rune, []int) {
	quoted, _ := normalizeQuotesTransform(in)
	var out []rune
	var idx []int
	inWS := false
	for i, r := range quoted {
		if isMatchWhitespace(r) {
			if inWS {
				continue
			}
			out = append(out, ' ')
			idx = append(idx, i)
			inWS = true
			continue
		}
		inWS = false
		out = append(out, r)
		idx = append(idx, i)
	}
	return out, idx
}

func isMatchWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', ' ':
		return true
	default:
		return false
	}
}

// quoteOptionalTransform applies flexible whitespace, then strips quote
// characters entirely.
func quoteOptionalTransform(in []rune) ([]rune, []int) {
	ws, wsIdx := flexibleWhitespaceTransform(in)
	var out []rune
	var idx []int
	for i, r := range ws {
		if r == '\'' || r == '"' {
			continue
		}
		out = append(out, r)
		idx = append(idx, wsIdx[i])
	}
	return out, idx
}

// countNonOverlapping finds every non-overlapping occurrence of needle in
// haystack (both already rune slices), returning the start index (in the
// transformed haystack) of each.
func countNonOverlapping(haystack, needle []rune) []int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return nil
	}
	var hits []int
	i := 0
	for i+len(needle) <= len(haystack) {
		if runesEqual(haystack[i:i+len(needle)], needle) {
			hits = append(hits, i)
			i += len(needle)
			continue
		}
		i++
	}
	return hits
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FindUniqueSubstring resolves needle against haystack using the four modes
// of spec §4.9, in order, returning the first mode with exactly one match.
func FindUniqueSubstring(haystack, needle string) MatchResult {
	if needle == "" {
		return MatchResult{Status: MatchNotFound}
	}
	hRunes := []rune(haystack)

	for _, mode := range matchModes {
		hT, hIdx := mode.transform(hRunes)
		nT, _ := mode.transform([]rune(needle))
		hits := countNonOverlapping(hT, nT)
		switch len(hits) {
		case 0:
			continue
		case 1:
			start := hIdx[hits[0]]
			var end int
			lastTIdx := hits[0] + len(nT) - 1
			if lastTIdx < len(hIdx) {
				end = hIdx[lastTIdx] + 1
			} else {
				end = len(hRunes)
			}
			return MatchResult{
				Status:      MatchUnique,
				Start:       start,
				End:         end,
				MatchedText: string(hRunes[start:end]),
				Mode:        mode.name,
			}
		default:
			return MatchResult{Status: MatchMultiple, Mode: mode.name}
		}
	}
	return MatchResult{Status: MatchNotFound}
}

// normalizeQuotesString is a convenience string-level wrapper, used by
// callers that only need display-level quote normalization (not matching).
func normalizeQuotesString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		sb.WriteRune(normalizeSmartQuote(r))
	}
	return sb.String()
}
