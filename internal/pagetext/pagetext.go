// Package pagetext turns positioned text runs from a rendered PDF page into
// a single linear string suitable for matching and copying, while keeping
// enough bookkeeping to map any byte range of that string back to run
// geometry.
package pagetext

import "strings"

// Span is a half-open byte range [Start, End) into a page's linear text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Run is one positioned piece of text on a page. Coordinates are PDF user
// space: X left edge, Y baseline, origin bottom-left.
type Run struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	FontSize float64 `json:"font_size"`
	Font     string  `json:"font,omitempty"`
}

// PageText is the extraction result for one page. Text is the deterministic
// linearization of Runs; RunSpans[i] is the byte range Runs[i].Text occupies
// inside Text, so offsets found by the matcher resolve to geometry without
// re-searching.
type PageText struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	Runs       []Run  `json:"runs,omitempty"`
	RunSpans   []Span `json:"run_spans,omitempty"`
}

// Extractor holds the layout heuristics for linearization. The defaults work
// for common body text; documents with unusual leading or tracking may need
// different values.
type Extractor struct {
	// LineBreakYTolerance is the baseline delta above which two runs are
	// considered separate lines.
	LineBreakYTolerance float64
	// SameLineYTolerance is the baseline delta below which two runs share a
	// visual line for word-gap purposes.
	SameLineYTolerance float64
	// WordGapThreshold is the horizontal gap, on a shared line, that implies
	// a space the page never encoded as a glyph.
	WordGapThreshold float64
}

// NewExtractor returns an Extractor with the default heuristics.
func NewExtractor() *Extractor {
	return &Extractor{
		LineBreakYTolerance: 5.0,
		SameLineYTolerance:  2.0,
		WordGapThreshold:    5.0,
	}
}

// Linearize assembles runs into the page's linear text. Runs are taken in
// the order given; a baseline jump becomes a newline, a horizontal gap on a
// shared line becomes a space, and empty runs are dropped entirely.
func (e *Extractor) Linearize(pageNumber int, runs []Run) PageText {
	pt := PageText{PageNumber: pageNumber}

	var b strings.Builder
	var kept []Run
	var spans []Span
	var prev *Run

	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if prev != nil {
			dy := abs(prev.Y - r.Y)
			switch {
			case dy > e.LineBreakYTolerance:
				b.WriteByte('\n')
			case dy < e.SameLineYTolerance:
				gap := r.X - (prev.X + prev.W)
				if gap > e.WordGapThreshold &&
					!strings.HasSuffix(prev.Text, " ") && !strings.HasPrefix(r.Text, " ") {
					b.WriteByte(' ')
				}
			}
		}
		start := b.Len()
		b.WriteString(r.Text)
		spans = append(spans, Span{Start: start, End: b.Len()})
		kept = append(kept, r)
		rr := r
		prev = &rr
	}

	raw := b.String()
	lead := len(raw) - len(strings.TrimLeft(raw, " \n"))
	pt.Text = strings.TrimRight(raw[lead:], " \n")
	for i := range spans {
		spans[i].Start = clamp(spans[i].Start-lead, 0, len(pt.Text))
		spans[i].End = clamp(spans[i].End-lead, 0, len(pt.Text))
	}
	pt.Runs = kept
	pt.RunSpans = spans
	return pt
}

// RunCoverage reports how much of one run a span covers. Fractions are byte
// proportions of the run's text, which approximates glyph position well
// enough for highlight boxes.
type RunCoverage struct {
	Index     int
	StartFrac float64
	EndFrac   float64
}

// SpanRuns returns the runs the span [s.Start, s.End) touches, with the
// covered fraction of each.
func (p PageText) SpanRuns(s Span) []RunCoverage {
	var out []RunCoverage
	for i, rs := range p.RunSpans {
		if rs.End <= rs.Start {
			continue
		}
		lo := max(s.Start, rs.Start)
		hi := min(s.End, rs.End)
		if hi <= lo {
			continue
		}
		n := float64(rs.End - rs.Start)
		out = append(out, RunCoverage{
			Index:     i,
			StartFrac: float64(lo-rs.Start) / n,
			EndFrac:   float64(hi-rs.Start) / n,
		})
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
