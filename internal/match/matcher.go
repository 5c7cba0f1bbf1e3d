// Package match locates citation quotes inside extracted page text. A quote
// runs through an ordered list of strategies, strictest first; the first
// strategy that produces spans wins. A quote that survives every strategy is
// a silent miss, not an error.
package match

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/docanchor/docanchor/internal/normalize"
	"github.com/docanchor/docanchor/internal/pagetext"
)

// Method identifies the strategy that anchored a quote.
type Method int

const (
	MethodNone Method = iota
	MethodExact
	MethodFlexible
	MethodWordWindow
	MethodSentence
	MethodWordFallback
)

func (m Method) String() string {
	switch m {
	case MethodExact:
		return "exact"
	case MethodFlexible:
		return "flexible"
	case MethodWordWindow:
		return "word_window"
	case MethodSentence:
		return "sentence"
	case MethodWordFallback:
		return "word_fallback"
	default:
		return "none"
	}
}

// Result is the outcome of matching one quote against one page. Spans are
// byte ranges into the page's original linear text, ordered left to right.
type Result struct {
	Spans  []pagetext.Span
	Method Method
}

// Matched reports whether the quote was anchored anywhere on the page.
func (r Result) Matched() bool { return r.Method != MethodNone && len(r.Spans) > 0 }

// word is a token of normalized text with its byte offsets there.
type word struct {
	lower      string
	start, end int
}

// Page is the per-page precomputation shared by every quote matched against
// the same text.
type Page struct {
	text    string
	mapping *normalize.Mapping
	words   []word
}

// NewPage prepares page text for matching.
func NewPage(text string) *Page {
	m := normalize.NewMapping(text)
	return &Page{text: text, mapping: m, words: splitWords(m.Normalized())}
}

func (p *Page) span(normStart, normEnd int) (pagetext.Span, bool) {
	s, e, ok := p.mapping.ToOriginal(normStart, normEnd)
	if !ok || e <= s {
		return pagetext.Span{}, false
	}
	return pagetext.Span{Start: s, End: e}, true
}

type quoteCtx struct {
	norm  string
	words []word
	runes int
}

func newQuoteCtx(quote string) *quoteCtx {
	n := normalize.String(quote)
	return &quoteCtx{norm: n, words: splitWords(n), runes: utf8.RuneCountInString(n)}
}

type tier struct {
	method Method
	phrase bool // skipped for quotes below MinPhraseChars
	fn     func(*Matcher, *quoteCtx, *Page) []pagetext.Span
}

// Matcher anchors quotes using a fixed strategy order and a Tuning.
type Matcher struct {
	tuning Tuning
	tiers  []tier
}

// New returns a Matcher with the given tuning.
func New(t Tuning) *Matcher {
	return &Matcher{
		tuning: t,
		tiers: []tier{
			{MethodExact, true, (*Matcher).exactNormalized},
			{MethodFlexible, true, (*Matcher).flexiblePhrase},
			{MethodWordWindow, true, (*Matcher).wordWindow},
			{MethodSentence, true, (*Matcher).sentencePrefix},
			{MethodWordFallback, false, (*Matcher).wordFallback},
		},
	}
}

// Match runs the strategies in order and returns the first one that anchors
// the quote. Quotes below MinQuoteChars never match; quotes below
// MinPhraseChars go straight to the per-word fallback.
func (m *Matcher) Match(quote string, page *Page) Result {
	q := newQuoteCtx(quote)
	if q.runes < m.tuning.MinQuoteChars {
		return Result{Method: MethodNone}
	}
	phrase := q.runes >= m.tuning.MinPhraseChars
	for _, t := range m.tiers {
		if t.phrase && !phrase {
			continue
		}
		if spans := t.fn(m, q, page); len(spans) > 0 {
			return Result{Spans: spans, Method: t.method}
		}
	}
	return Result{Method: MethodNone}
}

// exactNormalized finds the normalized quote verbatim in the normalized page
// text and maps the hit back to original offsets.
func (m *Matcher) exactNormalized(q *quoteCtx, p *Page) []pagetext.Span {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(q.norm))
	if err != nil {
		return nil
	}
	loc := re.FindStringIndex(p.mapping.Normalized())
	if loc == nil {
		return nil
	}
	s, ok := p.span(loc[0], loc[1])
	if !ok {
		return nil
	}
	return []pagetext.Span{s}
}

// flexiblePhrase joins the quote's words with a whitespace-and-punctuation
// bridge and searches the original page text, so quotes survive commas,
// quotes and line breaks the model dropped or invented.
func (m *Matcher) flexiblePhrase(q *quoteCtx, p *Page) []pagetext.Span {
	if len(q.words) == 0 {
		return nil
	}
	parts := make([]string, len(q.words))
	for i, w := range q.words {
		parts[i] = regexp.QuoteMeta(w.lower)
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(parts, `[\s\p{P}]*`))
	if err != nil {
		return nil
	}
	loc := re.FindStringIndex(p.text)
	if loc == nil {
		return nil
	}
	return []pagetext.Span{{Start: loc[0], End: loc[1]}}
}

// wordWindow slides the quote's significant words over the page's word
// sequence and accepts the first window scoring at or above the threshold.
// Exact word hits score 1, substring hits score the partial weight.
func (m *Matcher) wordWindow(q *quoteCtx, p *Page) []pagetext.Span {
	qw := filterWords(q.words, m.tuning.FuzzyWordMinLen)
	pw := filterWords(p.words, m.tuning.FuzzyWordMinLen)
	n := len(qw)
	if n == 0 || len(pw) < n {
		return nil
	}
	// epsilon absorbs float noise at exactly-threshold windows
	need := m.tuning.FuzzyWindowThreshold*float64(n) - 1e-9
	for i := 0; i+n <= len(pw); i++ {
		score := 0.0
		for k := 0; k < n; k++ {
			pv, qv := pw[i+k].lower, qw[k].lower
			switch {
			case pv == qv:
				score++
			case strings.Contains(pv, qv) || strings.Contains(qv, pv):
				score += m.tuning.FuzzyPartialWeight
			}
		}
		if score >= need {
			if s, ok := p.span(pw[i].start, pw[i+n-1].end); ok {
				return []pagetext.Span{s}
			}
		}
	}
	return nil
}

// sentencePrefix anchors very long quotes by their leading sentences: the
// first significant words of a sentence, in order, with anything short of a
// sentence boundary allowed between them.
func (m *Matcher) sentencePrefix(q *quoteCtx, p *Page) []pagetext.Span {
	if q.runes <= m.tuning.SentenceTierMinChars {
		return nil
	}
	tried := 0
	for _, sent := range splitSentences(q.norm) {
		if utf8.RuneCountInString(sent) <= m.tuning.SentenceMinChars {
			continue
		}
		if tried >= m.tuning.SentencesTried {
			break
		}
		tried++

		words := filterWords(splitWords(sent), m.tuning.SentenceWordMinLen)
		if len(words) > m.tuning.SentencePrefixWords {
			words = words[:m.tuning.SentencePrefixWords]
		}
		if len(words) < 2 {
			continue
		}
		parts := make([]string, len(words))
		for i, w := range words {
			parts[i] = regexp.QuoteMeta(w.lower)
		}
		re, err := regexp.Compile(`(?i)` + strings.Join(parts, `[^.!?]*?`))
		if err != nil {
			continue
		}
		if loc := re.FindStringIndex(p.text); loc != nil {
			return []pagetext.Span{{Start: loc[0], End: loc[1]}}
		}
	}
	return nil
}

// wordFallback highlights every whole-word occurrence of the quote's leading
// significant words. Over-highlighting is accepted; it beats nothing.
func (m *Matcher) wordFallback(q *quoteCtx, p *Page) []pagetext.Span {
	words := filterWords(q.words, m.tuning.FallbackWordMinLen)
	if len(words) > m.tuning.FallbackMaxWords {
		words = words[:m.tuning.FallbackMaxWords]
	}
	norm := p.mapping.Normalized()
	seen := make(map[string]bool, len(words))
	var spans []pagetext.Span
	for _, w := range words {
		if seen[w.lower] {
			continue
		}
		seen[w.lower] = true
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(w.lower) + `\b`)
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(norm, -1) {
			if s, ok := p.span(loc[0], loc[1]); ok {
				spans = append(spans, s)
			}
		}
	}
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return mergeSpans(spans)
}

func mergeSpans(in []pagetext.Span) []pagetext.Span {
	out := in[:1]
	for _, s := range in[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func filterWords(ws []word, minLen int) []word {
	var out []word
	for _, w := range ws {
		if utf8.RuneCountInString(w.lower) > minLen {
			out = append(out, w)
		}
	}
	return out
}

// splitWords tokenizes normalized text on spaces and trims punctuation and
// symbol runes from token edges. Interior punctuation like apostrophes stays.
func splitWords(s string) []word {
	var out []word
	flush := func(a, b int) {
		for a < b {
			r, n := utf8.DecodeRuneInString(s[a:b])
			if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
				break
			}
			a += n
		}
		for a < b {
			r, n := utf8.DecodeLastRuneInString(s[a:b])
			if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
				break
			}
			b -= n
		}
		if a < b {
			out = append(out, word{lower: strings.ToLower(s[a:b]), start: a, end: b})
		}
	}
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			if start >= 0 {
				flush(start, i)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		flush(start, len(s))
	}
	return out
}

// splitSentences cuts on runs of sentence punctuation, keeping the
// punctuation with the sentence it ends.
func splitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '.' || c == '!' || c == '?' {
			j := i
			for j+1 < len(s) && (s[j+1] == '.' || s[j+1] == '!' || s[j+1] == '?') {
				j++
			}
			if sent := strings.TrimSpace(s[start : j+1]); sent != "" {
				out = append(out, sent)
			}
			start = j + 1
			i = j
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
