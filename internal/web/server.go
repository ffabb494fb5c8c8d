// Package web serves the review and card management JSON API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/leitbox/internal/assets"
	"github.com/conorfennell/leitbox/internal/deck"
	"github.com/conorfennell/leitbox/internal/domain"
	"github.com/conorfennell/leitbox/internal/session"
	"github.com/conorfennell/leitbox/internal/stats"
)

// maxUploadBytes bounds the in-memory part of a multipart card form.
const maxUploadBytes = 32 << 20

var validate = validator.New()

// Server holds the dependencies for the HTTP server.
type Server struct {
	deck     *deck.Service
	sessions *session.Store
	images   *assets.Store
	router   chi.Router
}

// NewServer creates and configures a new server.
func NewServer(d *deck.Service, sessions *session.Store, images *assets.Store) *Server {
	s := &Server{
		deck:     d,
		sessions: sessions,
		images:   images,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/deck", s.handleGetDeck())
	s.router.Get("/boxes", s.handleGetBoxes())
	s.router.Get("/stats", s.handleGetStats())

	s.router.Route("/sessions", func(r chi.Router) {
		r.Post("/{mode}", s.handleStartSession())
		r.Get("/{id}", s.handleGetSession())
		r.Post("/{id}/reveal", s.handleReveal())
		r.Post("/{id}/answer", s.handleAnswer())
		r.Post("/{id}/cards/{cardID}/mark", s.handleSessionMark())
		r.Put("/{id}/cards/{cardID}", s.handleSessionUpdate())
		r.Delete("/{id}/cards/{cardID}", s.handleSessionDelete())
	})

	s.router.Route("/cards", func(r chi.Router) {
		r.Get("/", s.handleListCards())
		r.Post("/", s.handleCreateCard())
		r.Get("/{id}", s.handleGetCard())
		r.Put("/{id}", s.handleUpdateCard())
		r.Delete("/{id}", s.handleDeleteCard())
		r.Post("/{id}/mark", s.handleMarkCard())
	})

	s.router.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.FS(s.images.FS()))))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError maps err to a status code. Server-side failures are logged
// and hidden from the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	}
	respondJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	var invalid validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrValidation), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrFinished),
		errors.Is(err, session.ErrNotRevealed),
		errors.Is(err, session.ErrCardMismatch):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleGetDeck reports how many cards are due and marked.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		due, marked, err := s.deck.Counts()
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"today":      s.deck.Today().String(),
			"due_count":  due,
			"marked":     marked,
			"has_due":    due > 0,
			"has_marked": marked > 0,
		})
	}
}

func (s *Server) handleGetBoxes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boxes, err := s.deck.Boxes()
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, boxes)
	}
}

func (s *Server) handleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := s.deck.All()
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, stats.Compute(all, s.deck.MaxBox(), s.deck.Today()))
	}
}
