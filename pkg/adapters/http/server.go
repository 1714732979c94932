// Package http exposes undo sessions and stored histories over a small JSON API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hopsan/hopsan-sub008/internal/logging"
	"github.com/Hopsan/hopsan-sub008/pkg/adapters/memory"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
	"github.com/Hopsan/hopsan-sub008/pkg/session"
	"github.com/Hopsan/hopsan-sub008/pkg/undo"
)

// Server serves session and history requests backed by a session manager.
type Server struct {
	Sessions *session.Manager
	Version  string

	newDocument func(documentID string) ports.Document
	gatherer    prometheus.Gatherer
	logger      *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts /metrics for gatherer.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithDocumentFactory sets how POST /sessions/{id} obtains the document it binds the
// stack to. The default is an empty in-memory document.
func WithDocumentFactory(fn func(documentID string) ports.Document) Option {
	return func(s *Server) {
		s.newDocument = fn
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.Version = version
	}
}

// NewHandler creates the HTTP handler for sessions.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	server := &Server{
		Sessions: sessions,
		Version:  "dev",
		newDocument: func(string) ports.Document {
			return memory.NewDocument()
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/sessions", server.ListSessions)
	r.Get("/sessions/{id}", server.GetSession)
	r.Post("/sessions/{id}", server.OpenSession)
	r.Delete("/sessions/{id}", server.CloseSession)
	r.Post("/sessions/{id}/undo", server.Undo)
	r.Post("/sessions/{id}/redo", server.Redo)
	r.Post("/sessions/{id}/save", server.SaveSession)
	r.Get("/histories", server.ListHistories)
	r.Get("/histories/{id}", server.GetHistory)
	r.Delete("/histories/{id}", server.DeleteHistory)
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "undolog-http",
		"version": s.Version,
	})
}

// ListSessions handles the GET /sessions request: documents currently open in this process.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Sessions.OpenIDs()})
}

// SessionView is the live state of an open undo stack.
type SessionView struct {
	DocumentID string       `json:"document_id"`
	Position   int          `json:"position"`
	Enabled    bool         `json:"enabled"`
	CanUndo    bool         `json:"can_undo"`
	CanRedo    bool         `json:"can_redo"`
	Entries    []undo.Entry `json:"entries"`
}

func viewOf(sess *session.Session) SessionView {
	return SessionView{
		DocumentID: sess.ID,
		Position:   sess.Stack.Position(),
		Enabled:    sess.Stack.Enabled(),
		CanUndo:    sess.Stack.CanUndo(),
		CanRedo:    sess.Stack.CanRedo(),
		Entries:    sess.Stack.Entries(),
	}
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, "GetSession", nil)
}

// OpenSession handles the POST /sessions/{id} request. The stored history, if any, is
// restored onto a document from the factory; an already open session is returned as is.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	sess, err := s.Sessions.Open(r.Context(), id, s.newDocument(id))
	if err != nil {
		s.fail(w, "OpenSession", err)
		return
	}
	var view SessionView
	err = s.Sessions.Do(r.Context(), sess.ID, func(sess *session.Session) error {
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		s.fail(w, "OpenSession", err)
		return
	}
	s.logger.Info("session opened", "document_id", id, "position", view.Position)
	s.writeJSON(w, http.StatusOK, view)
}

// CloseSession handles the DELETE /sessions/{id} request. The history is saved first.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	if err := s.Sessions.Close(r.Context(), id); err != nil {
		s.fail(w, "CloseSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Undo handles the POST /sessions/{id}/undo request.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, "Undo", (*undo.Stack).Undo)
}

// Redo handles the POST /sessions/{id}/redo request.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, "Redo", (*undo.Stack).Redo)
}

// SaveSession handles the POST /sessions/{id}/save request.
func (s *Server) SaveSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	if err := s.Sessions.Save(r.Context(), id); err != nil {
		s.fail(w, "SaveSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// step runs fn on the stack of an open session, if fn is set, and responds with the
// resulting view.
func (s *Server) step(w http.ResponseWriter, r *http.Request, op string, fn func(*undo.Stack) error) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	var view SessionView
	err := s.Sessions.Do(r.Context(), id, func(sess *session.Session) error {
		if fn != nil {
			if err := fn(sess.Stack); err != nil {
				return err
			}
		}
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		s.fail(w, op, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// ListHistories handles the GET /histories request.
func (s *Server) ListHistories(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "ListHistories", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"histories": ids})
}

// GetHistory handles the GET /histories/{id} request.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	h, err := s.Sessions.Store().Load(r.Context(), id)
	if err != nil {
		s.fail(w, "GetHistory", err)
		return
	}
	s.writeJSON(w, http.StatusOK, h.Summary())
}

// DeleteHistory handles the DELETE /histories/{id} request. An open session for the
// document is dropped as well.
func (s *Server) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	if err := s.Sessions.Discard(r.Context(), id); err != nil {
		s.fail(w, "DeleteHistory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) documentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err == nil {
		err = session.ValidateDocumentID(id)
	}
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document id"})
		s.logger.Warn("rejected document id", "size", len(id), "err", err)
		return "", false
	}
	return id, true
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrHistoryNotFound), errors.Is(err, session.ErrNotOpen):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCorruptHistory):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrMissingReference):
		// The stack has already cleared itself; the session stays open and empty.
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Debug(op+" rejected", "error", err, "status", status)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
