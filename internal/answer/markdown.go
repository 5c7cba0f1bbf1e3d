package answer

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// RenderMarkdown converts the backend's markdown answer to HTML for the
// answer panel. Citation markers like [1] pass through untouched; the panel
// wires them to scroll-to-citation clicks.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
