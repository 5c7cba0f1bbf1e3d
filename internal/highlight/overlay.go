// Package highlight turns matcher output into render artifacts: one overlay
// per anchored citation, an inline HTML text layer for flow rendering, and
// an annotated single-page PDF export.
package highlight

import (
	"github.com/docanchor/docanchor/internal/answer"
	"github.com/docanchor/docanchor/internal/match"
	"github.com/docanchor/docanchor/internal/pagetext"
)

// Overlay marks where one citation landed on one page. CitationIndex is the
// citation's position in the answer's citation list, so two citations with
// identical text stay distinct overlays and stay independently addressable.
type Overlay struct {
	CitationIndex int             `json:"citation_index"`
	Page          int             `json:"page"`
	Method        string          `json:"method"`
	Spans         []pagetext.Span `json:"spans"`
	Rects         []pagetext.Rect `json:"rects,omitempty"`
}

// Build anchors every usable citation against one page's text. It is pure:
// the same inputs produce the same overlays, and callers installing the
// result replace any previous slice wholesale, never append to it.
// Citations for other pages, citations with no quote text, and quotes the
// matcher cannot place produce no overlay; a miss is silent, not an error.
func Build(pt pagetext.PageText, vp pagetext.Viewport, citations []answer.Citation, m *match.Matcher) []Overlay {
	if pt.Text == "" || len(citations) == 0 {
		return nil
	}
	page := match.NewPage(pt.Text)
	var overlays []Overlay
	for i, c := range citations {
		if !c.Usable() || c.Page != pt.PageNumber {
			continue
		}
		res := m.Match(c.QuoteText(), page)
		if !res.Matched() {
			continue
		}
		o := Overlay{
			CitationIndex: i,
			Page:          pt.PageNumber,
			Method:        res.Method.String(),
			Spans:         res.Spans,
		}
		for _, s := range res.Spans {
			o.Rects = append(o.Rects, pt.SpanRects(vp, s)...)
		}
		overlays = append(overlays, o)
	}
	return overlays
}
