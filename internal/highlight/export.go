package highlight

import (
	"bytes"
	"fmt"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/docanchor/docanchor/internal/pagetext"
)

const (
	exportFont        = "Helvetica"
	exportBaseSize    = 10.0
	highlightAlpha    = 0.35
	marginTagSize     = 6.5
	citationLayerName = "Citations"
)

// ExportPage renders one page's extracted text and citation highlights into
// a standalone single-page PDF. Geometry reuses the overlay rectangles, so
// the export shows exactly what the viewer highlights.
func ExportPage(pt pagetext.PageText, vp pagetext.Viewport, overlays []Overlay, title string) ([]byte, error) {
	w := vp.PageWidth * vp.Scale
	h := vp.PageHeight * vp.Scale
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("page %d: viewport has no area", pt.PageNumber)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	if title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
	pdf.SetFont(exportFont, "", exportBaseSize)
	pdf.SetTextColor(0, 0, 0)

	for _, run := range pt.Runs {
		drawRun(pdf, run, vp)
	}

	// Highlights live on their own optional-content layer so PDF viewers
	// can toggle them.
	layer := pdf.AddLayer(citationLayerName, true)
	pdf.BeginLayer(layer)
	pdf.SetAlpha(highlightAlpha, "Multiply")
	pdf.SetFillColor(255, 230, 0)
	for _, o := range overlays {
		for _, r := range o.Rects {
			pdf.Rect(r.Left, r.Top, r.Width, r.Height, "F")
		}
	}
	pdf.SetAlpha(1.0, "Normal")
	drawMarginTags(pdf, overlays)
	pdf.EndLayer()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render page %d pdf: %w", pt.PageNumber, err)
	}
	return buf.Bytes(), nil
}

// drawRun places one text run at its screen position. The font is scaled so
// the rendered string spans the same width the run had on the source page,
// which keeps highlight rectangles aligned with the glyphs under them.
func drawRun(pdf *fpdf.Fpdf, run pagetext.Run, vp pagetext.Viewport) {
	if run.Text == "" {
		return
	}
	latin1, err := charmap.ISO8859_1.NewEncoder().String(run.Text)
	if err != nil {
		latin1 = run.Text // glyphs outside Latin-1 render approximately
	}

	size := run.FontSize * vp.Scale
	if size <= 0 {
		size = exportBaseSize
	}
	pdf.SetFontSize(size)
	if w := run.W * vp.Scale; w > 0 {
		if sw := pdf.GetStringWidth(latin1); sw > 0 {
			pdf.SetFontSize(size * w / sw)
		}
	}

	// Run coordinates carry the baseline, which is also what fpdf.Text
	// expects, so no ascent adjustment is needed.
	x, y := vp.ToScreen(run.X, run.Y)
	pdf.Text(x, y, latin1)
	pdf.SetFontSize(exportBaseSize)
}

// drawMarginTags writes each overlay's display number beside its first
// rectangle. Numbers are 1-based to match the answer's citation markers.
func drawMarginTags(pdf *fpdf.Fpdf, overlays []Overlay) {
	pdf.SetFontSize(marginTagSize)
	pdf.SetTextColor(128, 96, 0)
	for _, o := range overlays {
		if len(o.Rects) == 0 {
			continue
		}
		r := o.Rects[0]
		pdf.Text(2, r.Top+r.Height*0.75, fmt.Sprintf("[%d]", o.CitationIndex+1))
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFontSize(exportBaseSize)
}
