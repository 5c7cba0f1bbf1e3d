// Package normalize canonicalizes page text and citation quotes so the
// matcher compares like with like. The same transform is applied to both
// sides; a Mapping additionally records, for every normalized byte, the
// byte range of the source text that produced it.
package normalize

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// mark is one normalized rune plus the source byte range it came from.
// Inserted runes (spaces added by spacing rules) carry start == end.
type mark struct {
	r          rune
	start, end int
}

// cp1252 mojibake: UTF-8 punctuation decoded as Windows-1252 shows up in
// extracted text as "â€" followed by one telltale rune.
var mojibakeTriples = map[rune]rune{
	'“': '–', // 0x93: en dash
	'”': '—', // 0x94: em dash
	'˜': '‘', // 0x98: left single quote
	'™': '’', // 0x99: right single quote
	'œ': '“', // 0x9C: left double quote
	'\u009d': '”', // 0x9D: right double quote
	'¦': '…', // 0xA6: ellipsis
}

func foldQuoteDash(r rune) rune {
	switch r {
	case '‘', '’', '‚', '‛', '‹', '›', '`', '´':
		return '\''
	case '“', '”', '„', '‟', '«', '»':
		return '"'
	case '‐', '‑', '‒', '–', '—', '―',
		'−', '﹘', '﹣', '－':
		return '-'
	}
	return r
}

func decode(s string) []mark {
	out := make([]mark, 0, utf8.RuneCountInString(s))
	for i, r := range s {
		out = append(out, mark{r: r, start: i, end: i + utf8.RuneLen(r)})
	}
	return out
}

// fold repairs mojibake, unifies quote and dash variants, strips format and
// control runes, and applies NFKD with combining marks dropped. Ligatures
// expand to their letters and diacritics fall away; every rune produced by a
// decomposition inherits the source range of the rune that decomposed.
func fold(in []mark) []mark {
	out := make([]mark, 0, len(in))
	for i := 0; i < len(in); i++ {
		m := in[i]
		if m.r == 'â' && i+2 < len(in) && in[i+1].r == '€' {
			if rep, ok := mojibakeTriples[in[i+2].r]; ok {
				m = mark{r: rep, start: m.start, end: in[i+2].end}
				i += 2
			}
		}
		m.r = foldQuoteDash(m.r)
		if unicode.Is(unicode.Cf, m.r) || (unicode.IsControl(m.r) && !unicode.IsSpace(m.r)) {
			continue
		}
		for _, fr := range norm.NFKD.String(string(m.r)) {
			if unicode.Is(unicode.Mn, fr) {
				continue
			}
			out = append(out, mark{r: foldQuoteDash(fr), start: m.start, end: m.end})
		}
	}
	return out
}

// collapse turns every whitespace run into a single space spanning the run.
func collapse(in []mark) []mark {
	out := make([]mark, 0, len(in))
	i := 0
	for i < len(in) {
		if !unicode.IsSpace(in[i].r) {
			out = append(out, in[i])
			i++
			continue
		}
		j := i
		for j < len(in) && unicode.IsSpace(in[j].r) {
			j++
		}
		out = append(out, mark{r: ' ', start: in[i].start, end: in[j-1].end})
		i = j
	}
	return out
}

// dashClusters reduces any run of spaces and hyphens containing at least one
// hyphen to a single bare hyphen, so "word- break", "word -break" and
// "word--break" all converge before wrap repair runs.
func dashClusters(in []mark) []mark {
	out := make([]mark, 0, len(in))
	i := 0
	for i < len(in) {
		if in[i].r != '-' && in[i].r != ' ' {
			out = append(out, in[i])
			i++
			continue
		}
		j, dash := i, false
		for j < len(in) && (in[j].r == '-' || in[j].r == ' ') {
			if in[j].r == '-' {
				dash = true
			}
			j++
		}
		if dash {
			out = append(out, mark{r: '-', start: in[i].start, end: in[j-1].end})
		} else {
			out = append(out, in[i:j]...)
		}
		i = j
	}
	return out
}

// joinWraps drops a hyphen between two letters. This rejoins words the page
// layout split across lines and flattens tight compounds the same way on the
// quote and page side. Digit ranges like 2023-2024 keep their hyphen.
func joinWraps(in []mark) []mark {
	out := make([]mark, 0, len(in))
	for i, m := range in {
		if m.r == '-' && len(out) > 0 && unicode.IsLetter(out[len(out)-1].r) &&
			i+1 < len(in) && unicode.IsLetter(in[i+1].r) {
			continue
		}
		out = append(out, m)
	}
	return out
}

const (
	noSpaceBefore = ",.;:!?)]}"
	noSpaceAfter  = "([{"
	spaceAfter    = ",.;:!?"
)

// spacing drops spaces that hug punctuation and inserts one after sentence
// punctuation when a letter follows directly. Digits are left alone so 3.14
// and 1,000 survive.
func spacing(in []mark) []mark {
	out := make([]mark, 0, len(in)+8)
	for i, m := range in {
		if m.r == ' ' {
			if i+1 < len(in) && strings.ContainsRune(noSpaceBefore, in[i+1].r) {
				continue
			}
			if len(out) > 0 && strings.ContainsRune(noSpaceAfter, out[len(out)-1].r) {
				continue
			}
		}
		out = append(out, m)
		if strings.ContainsRune(spaceAfter, m.r) && i+1 < len(in) && unicode.IsLetter(in[i+1].r) {
			out = append(out, mark{r: ' ', start: m.end, end: m.end})
		}
	}
	return out
}

// splitCamel inserts a space at every lowercase-to-uppercase transition,
// which unsticks words PDF extraction glued together across style changes.
func splitCamel(in []mark) []mark {
	out := make([]mark, 0, len(in)+8)
	for _, m := range in {
		if len(out) > 0 && unicode.IsLower(out[len(out)-1].r) && unicode.IsUpper(m.r) {
			out = append(out, mark{r: ' ', start: m.start, end: m.start})
		}
		out = append(out, m)
	}
	return out
}

func trim(in []mark) []mark {
	for len(in) > 0 && in[0].r == ' ' {
		in = in[1:]
	}
	for len(in) > 0 && in[len(in)-1].r == ' ' {
		in = in[:len(in)-1]
	}
	return in
}

func transform(s string) []mark {
	return trim(splitCamel(spacing(joinWraps(dashClusters(collapse(fold(decode(s))))))))
}

// String returns the canonical form of s. The transform is idempotent:
// String(String(s)) == String(s).
func String(s string) string {
	marks := transform(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, m := range marks {
		b.WriteRune(m.r)
	}
	return b.String()
}

// Mapping is the bidirectional correspondence between a source string and
// its canonical form. Offsets on both sides are byte offsets.
type Mapping struct {
	norm     string
	srcLen   int
	srcStart []int
	srcEnd   []int
}

// NewMapping normalizes s and keeps per-byte provenance. The normalized text
// it reports is always identical to String(s).
func NewMapping(s string) *Mapping {
	marks := transform(s)
	var b strings.Builder
	b.Grow(len(s))
	starts := make([]int, 0, len(s))
	ends := make([]int, 0, len(s))
	for _, m := range marks {
		n, _ := b.WriteRune(m.r)
		for k := 0; k < n; k++ {
			starts = append(starts, m.start)
			ends = append(ends, m.end)
		}
	}
	return &Mapping{norm: b.String(), srcLen: len(s), srcStart: starts, srcEnd: ends}
}

// Normalized returns the canonical text the offsets on the normalized side
// refer to.
func (m *Mapping) Normalized() string { return m.norm }

// ToOriginal maps the normalized byte range [start, end) back to the source
// string. Collapsed whitespace widens to the run it replaced; runes the
// transform inserted contribute only a zero-width anchor, so a range made
// entirely of insertions comes back empty at its anchor point. ok is false
// when the range does not lie within the normalized text.
func (m *Mapping) ToOriginal(start, end int) (origStart, origEnd int, ok bool) {
	if start < 0 || end > len(m.norm) || start > end {
		return 0, 0, false
	}
	if start == end {
		if start == len(m.norm) {
			return m.srcLen, m.srcLen, true
		}
		return m.srcStart[start], m.srcStart[start], true
	}
	i := start
	for i < end && m.srcStart[i] == m.srcEnd[i] {
		i++
	}
	if i == end {
		return m.srcStart[start], m.srcStart[start], true
	}
	j := end - 1
	for j > i && m.srcStart[j] == m.srcEnd[j] {
		j--
	}
	return m.srcStart[i], m.srcEnd[j], true
}

// ToNormalized returns the position in the normalized text corresponding to
// the source byte offset off, or the nearest following position when off
// falls inside a dropped rune.
func (m *Mapping) ToNormalized(off int) int {
	k := sort.Search(len(m.srcStart), func(k int) bool { return m.srcEnd[k] > off })
	if k == len(m.srcStart) {
		return len(m.norm)
	}
	return k
}
