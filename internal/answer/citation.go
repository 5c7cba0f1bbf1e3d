// Package answer talks to the external question-answering backend and
// carries its response shape: an answer string plus the citations the
// viewer must anchor in the rendered document.
package answer

import "strings"

// Citation is one unit of evidence returned by the answering backend. The
// quote (or, failing that, the content preview) is the passage the viewer
// locates on the cited page. Title, author and file name are display-only.
type Citation struct {
	Page           int    `json:"page"`
	Quote          string `json:"quote,omitempty"`
	ContentPreview string `json:"content_preview,omitempty"`
	Title          string `json:"title,omitempty"`
	Author         string `json:"author,omitempty"`
	FileName       string `json:"file_name,omitempty"`
}

// QuoteText returns the passage to locate, preferring the quote over the
// content preview.
func (c Citation) QuoteText() string {
	if q := strings.TrimSpace(c.Quote); q != "" {
		return q
	}
	return strings.TrimSpace(c.ContentPreview)
}

// Usable reports whether the citation can be anchored at all: it needs a
// valid 1-based page and some quote text. Unusable citations are skipped,
// never treated as errors.
func (c Citation) Usable() bool {
	return c.Page >= 1 && c.QuoteText() != ""
}

// Response is the answering backend's reply to one question.
type Response struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"cited_pages_metadata"`
	CaseID    string     `json:"case_id,omitempty"`
	DocID     string     `json:"doc_id,omitempty"`
}
