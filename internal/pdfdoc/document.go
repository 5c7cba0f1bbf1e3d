// Package pdfdoc wraps a parsed PDF behind an explicitly opened and
// explicitly closed handle. A viewer session owns at most one Document at a
// time and must close it before opening the next.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/docanchor/docanchor/internal/pagetext"
)

// ErrClosed is returned by operations on a disposed Document.
var ErrClosed = errors.New("document is closed")

// Metadata is the display information read from the PDF trailer.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Filename string `json:"filename"`
}

// PageSize is a page's media box dimensions in PDF points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document is an open PDF. It keeps the original bytes so they can be
// re-sent to the answering backend and re-rendered for export.
type Document struct {
	data   []byte
	reader *pdflib.Reader
	meta   Metadata
	pages  int
	closed atomic.Bool
}

// Open parses a PDF from memory. The returned Document stays valid until
// Close; a parse failure returns no handle at all.
func Open(data []byte, filename string) (*Document, error) {
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	pages := reader.NumPage()
	if pages < 1 {
		return nil, errors.New("pdf has no pages")
	}
	meta := readMetadata(reader)
	meta.Filename = filename
	return &Document{data: data, reader: reader, meta: meta, pages: pages}, nil
}

// Close marks the document disposed. Operations started afterwards fail
// with ErrClosed; operations already in flight finish on their own snapshot.
func (d *Document) Close() error {
	d.closed.Store(true)
	return nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.pages }

// Metadata returns the trailer metadata plus the upload filename.
func (d *Document) Metadata() Metadata { return d.meta }

// Bytes returns the original file contents.
func (d *Document) Bytes() []byte { return d.data }

// PageRuns extracts the positioned text runs of one page, 1-based. A
// failure here is scoped to the page: the document and its other pages stay
// usable.
func (d *Document) PageRuns(pageNumber int) (runs []pagetext.Run, size PageSize, err error) {
	if d.closed.Load() {
		return nil, PageSize{}, ErrClosed
	}
	if pageNumber < 1 || pageNumber > d.pages {
		return nil, PageSize{}, fmt.Errorf("page %d out of range [1, %d]", pageNumber, d.pages)
	}
	// The underlying parser panics on malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render page %d: %v", pageNumber, r)
		}
	}()

	page := d.reader.Page(pageNumber)
	if page.V.IsNull() {
		return nil, PageSize{}, fmt.Errorf("page %d not present", pageNumber)
	}
	size = pageSize(page)
	runs = assembleRuns(page.Content().Text)
	return runs, size, nil
}

// PlainText returns the parser's own linearization of a page. It is the
// copy fallback for pages whose runs come back empty.
func (d *Document) PlainText(pageNumber int) (text string, err error) {
	if d.closed.Load() {
		return "", ErrClosed
	}
	if pageNumber < 1 || pageNumber > d.pages {
		return "", fmt.Errorf("page %d out of range [1, %d]", pageNumber, d.pages)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract page %d text: %v", pageNumber, r)
		}
	}()

	page := d.reader.Page(pageNumber)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d not present", pageNumber)
	}
	return page.GetPlainText(nil)
}

func readMetadata(reader *pdflib.Reader) (m Metadata) {
	// Trailer walking panics on some malformed documents; metadata is
	// display-only, so fall back to empty fields.
	defer func() { _ = recover() }()
	trailer := reader.Trailer()
	if trailer.IsNull() {
		return m
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return m
	}
	if title := info.Key("Title"); !title.IsNull() {
		m.Title = title.Text()
	}
	if author := info.Key("Author"); !author.IsNull() {
		m.Author = author.Text()
	}
	return m
}

// pageSize reads the page MediaBox, walking up Parent nodes when the page
// inherits it. US Letter is the fallback for documents that omit it.
func pageSize(page pdflib.Page) PageSize {
	box := page.V.Key("MediaBox")
	v := page.V
	for box.IsNull() {
		v = v.Key("Parent")
		if v.IsNull() {
			break
		}
		box = v.Key("MediaBox")
	}
	if box.IsNull() || box.Len() < 4 {
		return PageSize{Width: 612, Height: 792}
	}
	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()
	return PageSize{Width: x1 - x0, Height: y1 - y0}
}
