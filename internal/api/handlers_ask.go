package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/docanchor/docanchor/internal/answer"
	"github.com/docanchor/docanchor/internal/highlight"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	// The first question carries the document; once the backend assigns a
	// case id the conversation continues by reference.
	ask := answer.AskRequest{Question: req.Question, CaseID: sess.CaseID()}
	if ask.CaseID == "" {
		data, filename, err := sess.DocumentBytes()
		if err != nil {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		ask.FileData = data
		ask.FileName = filename
	}

	resp, err := s.backend.AskWithRetry(r.Context(), ask)
	if err != nil {
		s.log.Warn("ask failed", "session_id", sess.ID, "error", err)
		jsonFailure(w, "answering backend: "+err.Error(), http.StatusBadGateway, answer.IsRetryable(err))
		return
	}

	answerHTML, err := answer.RenderMarkdown(resp.Answer)
	if err != nil {
		s.log.Warn("markdown render failed", "session_id", sess.ID, "error", err)
		answerHTML = ""
	}
	sess.SetAnswer(resp, answerHTML)

	snap := sess.Snapshot()
	payload := map[string]any{
		"answer":      snap.Answer,
		"answer_html": snap.AnswerHTML,
		"citations":   snap.Citations,
		"case_id":     snap.CaseID,
		"page":        snap.Page,
	}

	// Rebuild the current page's highlights for the response. A page render
	// failure does not void the answer; the client re-requests the page.
	if view, verr := s.view(sess); verr != nil {
		payload["page_error"] = verr.Error()
	} else {
		payload["highlights"] = overlaysOrEmpty(view.Overlays)
	}
	writeJSON(w, http.StatusOK, payload)
}

func overlaysOrEmpty(overlays []highlight.Overlay) []highlight.Overlay {
	if overlays == nil {
		return []highlight.Overlay{}
	}
	return overlays
}
