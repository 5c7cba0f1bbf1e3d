package pagetext

import "sort"

// Font box ratios used when sizing highlight rectangles around a baseline.
// Values follow Helvetica metrics and are close enough for other body fonts.
const (
	ascentRatio  = 0.718
	descentRatio = 0.207

	// Runs whose baselines differ by no more than this are drawn as one
	// highlight line.
	lineGroupYTolerance = 2.0

	fallbackFontSize = 10.0
)

// Viewport converts PDF user space (origin bottom-left, Y up) into screen
// space (origin top-left, Y down) at a zoom scale.
type Viewport struct {
	Scale      float64 `json:"scale"`
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`
}

// ToScreen maps a PDF-space point to screen space.
func (v Viewport) ToScreen(x, y float64) (sx, sy float64) {
	return x * v.Scale, (v.PageHeight - y) * v.Scale
}

// Rect is a screen-space rectangle.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SpanRects converts a byte range of the page text into screen rectangles,
// one per visual line the range touches. Partial run coverage narrows the
// rectangle proportionally.
func (p PageText) SpanRects(v Viewport, s Span) []Rect {
	cov := p.SpanRuns(s)
	if len(cov) == 0 {
		return nil
	}

	type box struct {
		y                      float64 // baseline, PDF space
		left, right, top, bott float64 // PDF space
	}
	boxes := make([]box, 0, len(cov))
	for _, c := range cov {
		r := p.Runs[c.Index]
		fs := r.FontSize
		if fs <= 0 {
			fs = fallbackFontSize
		}
		boxes = append(boxes, box{
			y:     r.Y,
			left:  r.X + c.StartFrac*r.W,
			right: r.X + c.EndFrac*r.W,
			top:   r.Y + ascentRatio*fs,
			bott:  r.Y - descentRatio*fs,
		})
	}
	sort.SliceStable(boxes, func(i, j int) bool {
		if boxes[i].y != boxes[j].y {
			return boxes[i].y > boxes[j].y // top of page first
		}
		return boxes[i].left < boxes[j].left
	})

	var rects []Rect
	i := 0
	for i < len(boxes) {
		line := boxes[i]
		j := i + 1
		for j < len(boxes) && abs(boxes[j].y-line.y) <= lineGroupYTolerance {
			b := boxes[j]
			if b.left < line.left {
				line.left = b.left
			}
			if b.right > line.right {
				line.right = b.right
			}
			if b.top > line.top {
				line.top = b.top
			}
			if b.bott < line.bott {
				line.bott = b.bott
			}
			j++
		}
		left, top := v.ToScreen(line.left, line.top)
		rects = append(rects, Rect{
			Left:   left,
			Top:    top,
			Width:  (line.right - line.left) * v.Scale,
			Height: (line.top - line.bott) * v.Scale,
		})
		i = j
	}
	return rects
}
