package highlight

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/docanchor/docanchor/internal/pagetext"
)

// TextLayerHTML renders the page text as inline markup with every overlay
// span wrapped in a <mark>. Overlapping spans are flattened into boundary
// segments, so marks never nest; a segment covered by several citations
// lists all their indices space-separated in data-citation, which keeps
// [data-citation~="N"] selectors working for each of them. The markup adds
// nothing around the text itself, so it flows, selects and copies exactly
// like the bare text.
func TextLayerHTML(pt pagetext.PageText, overlays []Overlay) string {
	text := pt.Text
	if text == "" {
		return ""
	}

	openAt := make(map[int][]int)
	closeAt := make(map[int][]int)
	bounds := []int{0, len(text)}
	for _, o := range overlays {
		for _, s := range o.Spans {
			start, end := clamp(s.Start, 0, len(text)), clamp(s.End, 0, len(text))
			if end <= start {
				continue
			}
			openAt[start] = append(openAt[start], o.CitationIndex)
			closeAt[end] = append(closeAt[end], o.CitationIndex)
			bounds = append(bounds, start, end)
		}
	}
	sort.Ints(bounds)
	bounds = dedupe(bounds)

	// active counts, per citation index, how many of its spans cover the
	// current segment. Counts rather than booleans so a citation whose spans
	// touch do not close early.
	active := make(map[int]int)
	var b strings.Builder
	b.Grow(len(text) + 48*len(overlays))
	for i := 0; i+1 < len(bounds); i++ {
		p, q := bounds[i], bounds[i+1]
		for _, idx := range closeAt[p] {
			active[idx]--
			if active[idx] <= 0 {
				delete(active, idx)
			}
		}
		for _, idx := range openAt[p] {
			active[idx]++
		}
		seg := html.EscapeString(text[p:q])
		if len(active) == 0 {
			b.WriteString(seg)
			continue
		}
		idxs := make([]int, 0, len(active))
		for idx := range active {
			idxs = append(idxs, idx)
		}
		sort.Ints(idxs)
		b.WriteString(`<mark data-citation="`)
		for j, idx := range idxs {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.Itoa(idx))
		}
		b.WriteString(`">`)
		b.WriteString(seg)
		b.WriteString(`</mark>`)
	}
	return b.String()
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for _, v := range sorted {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return out
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
