package highlight

import (
	"reflect"
	"testing"

	"github.com/docanchor/docanchor/internal/answer"
	"github.com/docanchor/docanchor/internal/match"
	"github.com/docanchor/docanchor/internal/pagetext"
)

func contractPage() pagetext.PageText {
	runs := []pagetext.Run{
		{Text: "The parties agree that the", X: 72, Y: 700, W: 130, FontSize: 11},
		{Text: "contract renews annually.", X: 72, Y: 685, W: 122, FontSize: 11},
	}
	return pagetext.NewExtractor().Linearize(2, runs)
}

func testViewport() pagetext.Viewport {
	return pagetext.Viewport{Scale: 1.5, PageWidth: 612, PageHeight: 792}
}

func TestBuild_AnchorsUsableCitationsOnPage(t *testing.T) {
	pt := contractPage()
	m := match.New(match.DefaultTuning())
	citations := []answer.Citation{
		{Page: 2, Quote: "parties agree that"},
		{Page: 3, Quote: "parties agree that"}, // other page
		{Page: 2},                              // no quote text
		{Page: 2, Quote: "zz qq"},              // nothing anchorable
	}

	overlays := Build(pt, testViewport(), citations, m)
	if len(overlays) != 1 {
		t.Fatalf("got %d overlays, want 1: %+v", len(overlays), overlays)
	}
	o := overlays[0]
	if o.CitationIndex != 0 || o.Page != 2 {
		t.Errorf("overlay identity = (index %d, page %d), want (index 0, page 2)", o.CitationIndex, o.Page)
	}
	if o.Method != "exact" {
		t.Errorf("method = %q, want %q", o.Method, "exact")
	}
	if len(o.Spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(o.Spans))
	}
	if got := pt.Text[o.Spans[0].Start:o.Spans[0].End]; got != "parties agree that" {
		t.Errorf("span text = %q, want %q", got, "parties agree that")
	}
	if len(o.Rects) == 0 {
		t.Error("overlay has no rectangles")
	}
}

func TestBuild_IsPure(t *testing.T) {
	pt := contractPage()
	m := match.New(match.DefaultTuning())
	citations := []answer.Citation{
		{Page: 2, Quote: "contract renews annually"},
	}
	vp := testViewport()

	first := Build(pt, vp, citations, m)
	second := Build(pt, vp, citations, m)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated builds differ:\n first: %+v\nsecond: %+v", first, second)
	}
}

func TestBuild_OverlappingCitationsStayDistinct(t *testing.T) {
	pt := contractPage()
	m := match.New(match.DefaultTuning())
	citations := []answer.Citation{
		{Page: 2, Quote: "parties agree that the"},
		{Page: 2, Quote: "agree that the contract"},
	}

	overlays := Build(pt, testViewport(), citations, m)
	if len(overlays) != 2 {
		t.Fatalf("got %d overlays, want 2: %+v", len(overlays), overlays)
	}
	if overlays[0].CitationIndex != 0 || overlays[1].CitationIndex != 1 {
		t.Errorf("citation indices = %d, %d, want 0, 1",
			overlays[0].CitationIndex, overlays[1].CitationIndex)
	}
	a, b := overlays[0].Spans[0], overlays[1].Spans[0]
	if a.Start >= b.End || b.Start >= a.End {
		t.Errorf("spans %+v and %+v should overlap", a, b)
	}
}

func TestBuild_EmptyPage(t *testing.T) {
	m := match.New(match.DefaultTuning())
	citations := []answer.Citation{{Page: 1, Quote: "anything at all"}}

	if got := Build(pagetext.PageText{PageNumber: 1}, testViewport(), citations, m); got != nil {
		t.Errorf("Build on empty page = %+v, want nil", got)
	}
	if got := Build(contractPage(), testViewport(), nil, m); got != nil {
		t.Errorf("Build with no citations = %+v, want nil", got)
	}
}
