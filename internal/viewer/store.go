package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docanchor/docanchor/internal/match"
	"github.com/docanchor/docanchor/internal/pagetext"
)

const janitorInterval = 5 * time.Minute

// Store is a thread-safe session registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl          time.Duration
	defaultScale float64
	open         OpenFunc
	extractor    *pagetext.Extractor
	matcher      *match.Matcher
	log          *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStore creates a session registry. Sessions idle longer than ttl are
// evicted once Start has launched the janitor.
func NewStore(ttl time.Duration, defaultScale float64, open OpenFunc, ex *pagetext.Extractor, m *match.Matcher, log *slog.Logger) *Store {
	return &Store{
		sessions:     make(map[string]*Session),
		ttl:          ttl,
		defaultScale: defaultScale,
		open:         open,
		extractor:    ex,
		matcher:      m,
		log:          log,
	}
}

// Create opens the uploaded document and registers a new session owning it.
func (st *Store) Create(data []byte, filename string) (*Session, error) {
	doc, err := st.open(data, filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	s := newSession(newSessionID(), st.defaultScale, st.extractor, st.matcher)
	s.OpenDocument(doc)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	st.log.Info("session created", "session_id", s.ID, "filename", filename, "pages", doc.PageCount())
	return s, nil
}

// Get returns a session by ID, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[id]
}

// Delete closes the session's document and forgets the session. It reports
// whether the session existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if s == nil {
		return false
	}
	s.Close()
	return true
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Start launches the TTL janitor.
func (st *Store) Start(ctx context.Context) {
	jctx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-jctx.Done():
				return
			case <-ticker.C:
				if n := st.Cleanup(); n > 0 {
					st.log.Info("evicted idle sessions", "count", n)
				}
			}
		}
	}()
}

// Cleanup disposes sessions idle longer than the TTL and reports how many.
func (st *Store) Cleanup() int {
	cutoff := time.Now().Add(-st.ttl)

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Stop halts the janitor and disposes every session.
func (st *Store) Stop() {
	if st.cancel != nil {
		st.cancel()
	}
	st.wg.Wait()

	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
