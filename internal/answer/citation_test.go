package answer

import (
	"strings"
	"testing"
)

func TestCitation_QuoteTextPrefersQuote(t *testing.T) {
	c := Citation{Page: 1, Quote: "the quote", ContentPreview: "the preview"}
	if got := c.QuoteText(); got != "the quote" {
		t.Errorf("QuoteText() = %q, want the quote", got)
	}

	c = Citation{Page: 1, ContentPreview: "  the preview  "}
	if got := c.QuoteText(); got != "the preview" {
		t.Errorf("QuoteText() = %q, want trimmed preview", got)
	}
}

func TestCitation_Usable(t *testing.T) {
	tests := []struct {
		name string
		c    Citation
		want bool
	}{
		{"quote and page", Citation{Page: 2, Quote: "text"}, true},
		{"preview only", Citation{Page: 1, ContentPreview: "text"}, true},
		{"no text at all", Citation{Page: 1}, false},
		{"whitespace quote", Citation{Page: 1, Quote: "   "}, false},
		{"page zero", Citation{Page: 0, Quote: "text"}, false},
		{"negative page", Citation{Page: -1, Quote: "text"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Usable(); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderMarkdown_BasicFormatting(t *testing.T) {
	html, err := RenderMarkdown("The **term** is five years [1].\n\n- item one\n- item two\n")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	for _, want := range []string{"<strong>term</strong>", "[1]", "<li>item one</li>"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered html %q missing %q", html, want)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	html, err := RenderMarkdown("")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if html != "" {
		t.Errorf("rendered html = %q, want empty", html)
	}
}
