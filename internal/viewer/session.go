package viewer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/docanchor/docanchor/internal/answer"
	"github.com/docanchor/docanchor/internal/highlight"
	"github.com/docanchor/docanchor/internal/match"
	"github.com/docanchor/docanchor/internal/pagetext"
)

// State is the session lifecycle phase.
type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// ErrStale reports that a computed view was discarded because the session
// moved on (new document, page, scale or answer) while the computation ran.
// Callers re-request the current view.
var ErrStale = errors.New("view superseded")

// ErrNoDocument is returned by operations that need an open document.
var ErrNoDocument = errors.New("no document loaded")

// ErrInvalidSelection marks selection offsets that do not fit the current
// page's text.
var ErrInvalidSelection = errors.New("selection out of range")

// View is one fully rendered page: linear text with run geometry, the
// viewport it was rendered for, the citation overlays and the HTML text
// layer built from them.
type View struct {
	PageText pagetext.PageText   `json:"-"`
	Viewport pagetext.Viewport   `json:"viewport"`
	Overlays []highlight.Overlay `json:"highlights"`
	HTML     string              `json:"text_layer_html"`
}

// Session is one viewer's state. All fields are guarded by mu; rendering
// itself runs outside the lock and re-validates against gen before its
// result is installed.
type Session struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time

	state   State
	lastErr string

	doc   Document
	page  int
	scale float64

	answerText string
	answerHTML string
	caseID     string
	citations  []answer.Citation

	// view caches the current page's render; current marks it valid.
	view    *View
	current bool

	// pageErrs records pages whose render failed. Re-requesting the page
	// retries; other pages stay navigable.
	pageErrs map[int]string

	// gen is bumped by every state change that invalidates the view.
	gen       uint64
	updatedAt time.Time

	extractor *pagetext.Extractor
	matcher   *match.Matcher
}

func newSession(id string, scale float64, ex *pagetext.Extractor, m *match.Matcher) *Session {
	if scale <= 0 {
		scale = 1.0
	}
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		state:     StateEmpty,
		page:      1,
		scale:     scale,
		pageErrs:  make(map[int]string),
		updatedAt: now,
		extractor: ex,
		matcher:   m,
	}
}

// OpenDocument installs doc as the session's document, disposing any
// previous one first. The session takes ownership; answer state is cleared
// because citations never carry across documents.
func (s *Session) OpenDocument(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil {
		s.doc.Close()
	}
	s.doc = doc
	s.page = 1
	s.answerText = ""
	s.answerHTML = ""
	s.caseID = ""
	s.citations = nil
	s.view = nil
	s.current = false
	s.pageErrs = make(map[int]string)
	s.lastErr = ""
	if doc != nil {
		s.state = StateReady
	} else {
		s.state = StateEmpty
	}
	s.gen++
	s.updatedAt = time.Now()
}

// GoToPage navigates to a 1-based page. Navigating to the current page is a
// no-op and keeps the cached view.
func (s *Session) GoToPage(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	if n < 1 || n > s.doc.PageCount() {
		return fmt.Errorf("page %d out of range [1, %d]", n, s.doc.PageCount())
	}
	if n == s.page {
		return nil
	}
	s.page = n
	s.view = nil
	s.current = false
	s.gen++
	s.updatedAt = time.Now()
	return nil
}

// SetScale changes the render scale for subsequent views.
func (s *Session) SetScale(scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("scale must be positive, got %g", scale)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if scale == s.scale {
		return nil
	}
	s.scale = scale
	s.view = nil
	s.current = false
	s.gen++
	s.updatedAt = time.Now()
	return nil
}

// SetAnswer replaces the session's answer and citation list wholesale.
// Highlight state is recomputed from scratch on the next view, never
// patched.
func (s *Session) SetAnswer(resp *answer.Response, answerHTML string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answerText = resp.Answer
	s.answerHTML = answerHTML
	s.citations = append([]answer.Citation(nil), resp.Citations...)
	if resp.CaseID != "" {
		s.caseID = resp.CaseID
	}
	s.view = nil
	s.current = false
	s.gen++
	s.updatedAt = time.Now()
}

// CaseID returns the conversation id assigned by the answering backend, or
// empty before the first answer.
func (s *Session) CaseID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caseID
}

// DocumentBytes returns the uploaded file and its name for re-sending to
// the answering backend.
func (s *Session) DocumentBytes() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, "", ErrNoDocument
	}
	return s.doc.Bytes(), s.doc.Metadata().Filename, nil
}

// LastActive returns the time of the last state change.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// CurrentView returns the rendered current page, rebuilding it when the
// cache is invalid. The rebuild runs without the lock: the session snapshot
// is taken under the lock, extraction and matching run free, and the result
// is installed only if the generation still matches. A superseded result is
// discarded with ErrStale and never overwrites newer state.
func (s *Session) CurrentView() (*View, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return nil, ErrNoDocument
	}
	if s.current && s.view != nil {
		v := s.view
		s.mu.Unlock()
		return v, nil
	}
	gen := s.gen
	doc := s.doc
	page := s.page
	scale := s.scale
	citations := s.citations
	s.state = StateLoading
	s.mu.Unlock()

	view, rerr := s.render(doc, page, scale, citations)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, ErrStale
	}
	s.updatedAt = time.Now()
	if rerr != nil {
		s.state = StateError
		s.lastErr = rerr.Error()
		s.pageErrs[page] = rerr.Error()
		return nil, rerr
	}
	delete(s.pageErrs, page)
	s.view = view
	s.current = true
	s.state = StateReady
	s.lastErr = ""
	return view, nil
}

// render computes a View from a consistent snapshot of session state. It
// holds no locks and touches no session fields that mutate.
func (s *Session) render(doc Document, page int, scale float64, citations []answer.Citation) (*View, error) {
	runs, size, err := doc.PageRuns(page)
	if err != nil {
		return nil, err
	}
	pt := s.extractor.Linearize(page, runs)
	vp := pagetext.Viewport{Scale: scale, PageWidth: size.Width, PageHeight: size.Height}
	overlays := highlight.Build(pt, vp, citations, s.matcher)
	return &View{
		PageText: pt,
		Viewport: vp,
		Overlays: overlays,
		HTML:     highlight.TextLayerHTML(pt, overlays),
	}, nil
}

// Target tells a client where to scroll for one citation.
type Target struct {
	CitationIndex int             `json:"citation_index"`
	Page          int             `json:"page"`
	PageChanged   bool            `json:"page_changed"`
	OverlayIndex  int             `json:"overlay_index"`
	Spans         []pagetext.Span `json:"spans,omitempty"`
	Rect          *pagetext.Rect  `json:"rect,omitempty"`
	Flash         bool            `json:"flash"`
}

// ScrollTarget navigates to the cited page when needed, renders it, and
// locates the citation's overlay. Citations are addressed by list position,
// so two citations with identical text resolve independently. A citation the
// matcher could not anchor, or whose page lies outside the document, yields
// OverlayIndex -1 with no flash rather than an error.
func (s *Session) ScrollTarget(citationIndex int) (*Target, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return nil, ErrNoDocument
	}
	if citationIndex < 0 || citationIndex >= len(s.citations) {
		n := len(s.citations)
		s.mu.Unlock()
		return nil, fmt.Errorf("citation index %d out of range [0, %d)", citationIndex, n)
	}
	c := s.citations[citationIndex]
	curPage := s.page
	s.mu.Unlock()

	t := &Target{CitationIndex: citationIndex, Page: c.Page, OverlayIndex: -1}
	if c.Page < 1 {
		t.Page = curPage
		return t, nil
	}
	if c.Page != curPage {
		if err := s.GoToPage(c.Page); err != nil {
			t.Page = curPage
			return t, nil
		}
		t.PageChanged = true
	}
	view, err := s.CurrentView()
	if err != nil {
		return nil, err
	}
	for i, o := range view.Overlays {
		if o.CitationIndex == citationIndex {
			t.OverlayIndex = i
			t.Spans = o.Spans
			if len(o.Rects) > 0 {
				r := o.Rects[0]
				t.Rect = &r
			}
			t.Flash = true
			break
		}
	}
	return t, nil
}

// CopyAll returns the current page's extracted text, falling back to the
// parser's own linearization when run extraction produced nothing.
func (s *Session) CopyAll() (string, error) {
	view, err := s.CurrentView()
	if err != nil {
		return "", err
	}
	if view.PageText.Text != "" {
		return view.PageText.Text, nil
	}
	s.mu.Lock()
	doc, page := s.doc, s.page
	s.mu.Unlock()
	if doc == nil {
		return "", ErrNoDocument
	}
	return doc.PlainText(page)
}

// CopySelection returns text[start:end) of the current page's linear text.
// Offsets are validated against that text, not clamped: the selection model
// and the text it selects from are the same string.
func (s *Session) CopySelection(start, end int) (string, error) {
	view, err := s.CurrentView()
	if err != nil {
		return "", err
	}
	text := view.PageText.Text
	if start < 0 || end > len(text) || start > end {
		return "", fmt.Errorf("selection [%d, %d) outside [0, %d]: %w", start, end, len(text), ErrInvalidSelection)
	}
	return text[start:end], nil
}

// Close disposes the session's document.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil {
		s.doc.Close()
		s.doc = nil
	}
	s.view = nil
	s.current = false
	s.state = StateEmpty
	s.gen++
	s.updatedAt = time.Now()
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID         string            `json:"session_id"`
	State      State             `json:"state"`
	Error      string            `json:"error,omitempty"`
	Page       int               `json:"page"`
	PageCount  int               `json:"page_count"`
	Scale      float64           `json:"scale"`
	Title      string            `json:"title,omitempty"`
	Author     string            `json:"author,omitempty"`
	Filename   string            `json:"filename,omitempty"`
	Answer     string            `json:"answer,omitempty"`
	AnswerHTML string            `json:"answer_html,omitempty"`
	CaseID     string            `json:"case_id,omitempty"`
	Citations  []answer.Citation `json:"citations"`
	PageErrors map[int]string    `json:"page_errors,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.ID,
		State:      s.state,
		Error:      s.lastErr,
		Page:       s.page,
		Scale:      s.scale,
		Answer:     s.answerText,
		AnswerHTML: s.answerHTML,
		CaseID:     s.caseID,
		Citations:  append([]answer.Citation{}, s.citations...),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.updatedAt,
	}
	if s.doc != nil {
		snap.PageCount = s.doc.PageCount()
		m := s.doc.Metadata()
		snap.Title, snap.Author, snap.Filename = m.Title, m.Author, m.Filename
	}
	if len(s.pageErrs) > 0 {
		snap.PageErrors = make(map[int]string, len(s.pageErrs))
		for page, msg := range s.pageErrs {
			snap.PageErrors[page] = msg
		}
	}
	return snap
}
