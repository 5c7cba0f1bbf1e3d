package pdfdoc

import (
	"math"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/docanchor/docanchor/internal/pagetext"
)

const (
	// Glyphs whose baselines sit within this delta belong to one visual row.
	rowYTolerance = 3.0
	// A horizontal gap above this many ems starts a new run (column gutter).
	columnGapEms = 3.0
	// A gap above this fraction of an em is a word break the page encoded
	// as pen movement instead of a space glyph.
	wordGapEms = 0.125
	// Floor for the word-break gap so tiny fonts don't split on kerning.
	minWordGap = 1.0

	fallbackFontSize = 10.0
)

// assembleRuns turns the parser's per-glyph text elements into line-level
// runs: glyphs are bucketed into rows by baseline, ordered by X, and merged
// left to right with spaces restored at word-sized gaps.
func assembleRuns(texts []pdflib.Text) []pagetext.Run {
	clean := make([]pdflib.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return nil
	}

	sort.SliceStable(clean, func(i, j int) bool {
		if clean[i].Y != clean[j].Y {
			return clean[i].Y > clean[j].Y // top of page first
		}
		return clean[i].X < clean[j].X
	})

	var rows [][]pdflib.Text
	row := []pdflib.Text{clean[0]}
	for _, t := range clean[1:] {
		if math.Abs(t.Y-row[0].Y) <= rowYTolerance {
			row = append(row, t)
			continue
		}
		rows = append(rows, row)
		row = []pdflib.Text{t}
	}
	rows = append(rows, row)

	var runs []pagetext.Run
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		runs = append(runs, rowRuns(row)...)
	}
	return runs
}

func rowRuns(row []pdflib.Text) []pagetext.Run {
	var out []pagetext.Run
	var b strings.Builder
	start, last := row[0], row[0]
	b.WriteString(row[0].S)

	flush := func() {
		if b.Len() > 0 {
			out = append(out, pagetext.Run{
				Text:     b.String(),
				X:        start.X,
				Y:        start.Y,
				W:        last.X + last.W - start.X,
				FontSize: start.FontSize,
				Font:     start.Font,
			})
		}
		b.Reset()
	}

	for _, t := range row[1:] {
		fs := last.FontSize
		if fs <= 0 {
			fs = fallbackFontSize
		}
		gap := t.X - (last.X + last.W)
		switch {
		case gap > columnGapEms*fs:
			flush()
			start = t
		case gap > math.Max(wordGapEms*fs, minWordGap):
			if !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(t.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		last = t
	}
	flush()
	return out
}
