// Package viewer holds the per-session state machine: one open document,
// one current page, the latest answer's citations, and the generation
// bookkeeping that keeps slow rebuilds from clobbering newer state.
package viewer

import (
	"github.com/docanchor/docanchor/internal/pagetext"
	"github.com/docanchor/docanchor/internal/pdfdoc"
)

// Document is the document surface a session needs. pdfdoc.Document is the
// production implementation; tests substitute synthetic ones.
type Document interface {
	PageCount() int
	Metadata() pdfdoc.Metadata
	Bytes() []byte
	PageRuns(pageNumber int) ([]pagetext.Run, pdfdoc.PageSize, error)
	PlainText(pageNumber int) (string, error)
	Close() error
}

// OpenFunc parses uploaded bytes into a Document.
type OpenFunc func(data []byte, filename string) (Document, error)

// OpenPDF is the production opener.
func OpenPDF(data []byte, filename string) (Document, error) {
	return pdfdoc.Open(data, filename)
}
