package highlight

import (
	"bytes"
	"testing"

	"github.com/docanchor/docanchor/internal/answer"
	"github.com/docanchor/docanchor/internal/match"
	"github.com/docanchor/docanchor/internal/pagetext"
)

func TestExportPage_WritesAnnotatedPDF(t *testing.T) {
	pt := contractPage()
	m := match.New(match.DefaultTuning())
	citations := []answer.Citation{
		{Page: 2, Quote: "contract renews annually"},
	}
	vp := testViewport()
	overlays := Build(pt, vp, citations, m)
	if len(overlays) != 1 {
		t.Fatalf("got %d overlays, want 1", len(overlays))
	}

	out, err := ExportPage(pt, vp, overlays, "Service Agreement")
	if err != nil {
		t.Fatalf("ExportPage: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", out[:min(len(out), 16)])
	}
	if len(out) < 500 {
		t.Errorf("output suspiciously small: %d bytes", len(out))
	}
}

func TestExportPage_NoOverlays(t *testing.T) {
	pt := contractPage()

	out, err := ExportPage(pt, testViewport(), nil, "")
	if err != nil {
		t.Fatalf("ExportPage: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Error("output does not start with a PDF header")
	}
}

func TestExportPage_RejectsEmptyViewport(t *testing.T) {
	if _, err := ExportPage(contractPage(), pagetext.Viewport{}, nil, ""); err == nil {
		t.Fatal("expected an error for a zero-size viewport")
	}
}
