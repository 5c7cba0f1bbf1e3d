package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docanchor/docanchor/internal/answer"
	"github.com/docanchor/docanchor/internal/config"
	"github.com/docanchor/docanchor/internal/viewer"
)

// Server is the HTTP API server for docanchor.
type Server struct {
	router   chi.Router
	sessions *viewer.Store
	backend  *answer.Client
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *viewer.Store, backend *answer.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: sessions,
		backend:  backend,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// API endpoints. Bearer auth applies only when a key is configured;
	// main warns loudly when it is not.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/sessions", s.handleCreateSession)
		r.Get("/api/sessions/{sessionID}", s.handleGetSession)
		r.Delete("/api/sessions/{sessionID}", s.handleDeleteSession)

		r.Post("/api/sessions/{sessionID}/ask", s.handleAsk)
		r.Put("/api/sessions/{sessionID}/page", s.handleSetPage)
		r.Get("/api/sessions/{sessionID}/pages/{pageNumber}", s.handleGetPage)
		r.Get("/api/sessions/{sessionID}/pages/{pageNumber}/export.pdf", s.handleExportPage)
		r.Post("/api/sessions/{sessionID}/scroll-to", s.handleScrollTo)
		r.Get("/api/sessions/{sessionID}/text", s.handleCopyAll)
		r.Get("/api/sessions/{sessionID}/selection", s.handleCopySelection)

		r.Get("/api/stats/backend", s.handleBackendStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// session resolves the session from the URL, answering 404 when it is gone.
// Callers return immediately on nil.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *viewer.Session {
	sess := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
	}
	return sess
}

// view renders the session's current page, re-requesting once when a
// concurrent state change discarded the first result.
func (s *Server) view(sess *viewer.Session) (*viewer.View, error) {
	view, err := sess.CurrentView()
	if errors.Is(err, viewer.ErrStale) {
		view, err = sess.CurrentView()
	}
	return view, err
}
