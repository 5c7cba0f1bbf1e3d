package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/docanchor/docanchor/internal/highlight"
	"github.com/docanchor/docanchor/internal/viewer"
)

func (s *Server) handleSetPage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	var req struct {
		Page  int      `json:"page"`
		Scale *float64 `json:"scale,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Scale != nil {
		if err := sess.SetScale(*req.Scale); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Page != 0 {
		if err := sess.GoToPage(req.Page); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "pageNumber"))
	if err != nil {
		jsonError(w, "invalid page number", http.StatusBadRequest)
		return
	}
	if err := sess.GoToPage(page); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := s.view(sess)
	if err != nil {
		jsonFailure(w, fmt.Sprintf("page %d failed to render: %v", page, err), http.StatusServiceUnavailable, true)
		return
	}

	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"page_number":     view.PageText.PageNumber,
		"page_count":      snap.PageCount,
		"text":            view.PageText.Text,
		"runs":            view.PageText.Runs,
		"viewport":        view.Viewport,
		"highlights":      overlaysOrEmpty(view.Overlays),
		"text_layer_html": view.HTML,
	})
}

func (s *Server) handleScrollTo(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	var req struct {
		CitationIndex int `json:"citation_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	snap := sess.Snapshot()
	if req.CitationIndex < 0 || req.CitationIndex >= len(snap.Citations) {
		jsonError(w, fmt.Sprintf("citation index %d out of range [0, %d)",
			req.CitationIndex, len(snap.Citations)), http.StatusBadRequest)
		return
	}

	target, err := sess.ScrollTarget(req.CitationIndex)
	if errors.Is(err, viewer.ErrStale) {
		target, err = sess.ScrollTarget(req.CitationIndex)
	}
	if err != nil {
		jsonFailure(w, err.Error(), http.StatusServiceUnavailable, true)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (s *Server) handleCopyAll(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	text, err := sess.CopyAll()
	if errors.Is(err, viewer.ErrStale) {
		text, err = sess.CopyAll()
	}
	if err != nil {
		jsonFailure(w, "copy failed: "+err.Error(), http.StatusServiceUnavailable, true)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(text))
}

func (s *Server) handleCopySelection(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	start, err1 := strconv.Atoi(r.URL.Query().Get("start"))
	end, err2 := strconv.Atoi(r.URL.Query().Get("end"))
	if err1 != nil || err2 != nil {
		jsonError(w, "start and end query parameters must be integers", http.StatusBadRequest)
		return
	}

	text, err := sess.CopySelection(start, end)
	if errors.Is(err, viewer.ErrStale) {
		text, err = sess.CopySelection(start, end)
	}
	if err != nil {
		if errors.Is(err, viewer.ErrInvalidSelection) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		jsonFailure(w, "copy failed: "+err.Error(), http.StatusServiceUnavailable, true)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(text))
}

func (s *Server) handleExportPage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "pageNumber"))
	if err != nil {
		jsonError(w, "invalid page number", http.StatusBadRequest)
		return
	}
	if err := sess.GoToPage(page); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := s.view(sess)
	if err != nil {
		jsonFailure(w, fmt.Sprintf("page %d failed to render: %v", page, err), http.StatusServiceUnavailable, true)
		return
	}

	snap := sess.Snapshot()
	title := snap.Title
	if title == "" {
		title = snap.Filename
	}
	out, err := highlight.ExportPage(view.PageText, view.Viewport, view.Overlays, title)
	if err != nil {
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exportFilename(snap.Filename, page)))
	w.Write(out)
}

func exportFilename(source string, page int) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "page"
	}
	return fmt.Sprintf("%s-p%d-annotated.pdf", base, page)
}
