package web

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/leitbox/internal/domain"
	"github.com/conorfennell/leitbox/internal/leitner"
	"github.com/conorfennell/leitbox/internal/session"
)

// faceView is one face as the client renders it. URL is set for images.
type faceView struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	URL   string `json:"url,omitempty"`
}

func newFaceView(f domain.FaceContent) faceView {
	v := faceView{Kind: f.Kind.String(), Value: f.Value}
	switch {
	case f.IsRemote():
		v.URL = f.Value
	case f.IsImage():
		v.URL = "/images/" + filepath.Base(f.Value)
	}
	return v
}

type resultView struct {
	Outcome string `json:"outcome"`
	Box     int    `json:"box"`
	Message string `json:"message"`
}

type sessionView struct {
	ID       string       `json:"id"`
	Mode     session.Mode `json:"mode"`
	Position int          `json:"position"`
	Total    int          `json:"total"`
	Done     bool         `json:"done"`
	Revealed bool         `json:"revealed"`
	Card     *domain.Card `json:"card,omitempty"`
	Question *faceView    `json:"question,omitempty"`
	Answer   *faceView    `json:"answer,omitempty"`
	Result   *resultView  `json:"result,omitempty"`
}

func newSessionView(id string, sess session.Session) sessionView {
	pos, total := sess.Progress()
	v := sessionView{
		ID:       id,
		Mode:     sess.Mode,
		Position: pos,
		Total:    total,
		Done:     sess.Done(),
		Revealed: sess.Revealed,
	}
	card, err := sess.Current()
	if err != nil {
		return v
	}
	q := newFaceView(card.Question())
	v.Card = &card
	v.Question = &q
	if sess.Revealed {
		a := newFaceView(card.Answer())
		v.Answer = &a
	}
	return v
}

type answerRequest struct {
	Result string `validate:"required,oneof=correct incorrect pass"`
}

func (s *Server) handleStartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, ok := session.ParseMode(chi.URLParam(r, "mode"))
		if !ok {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "mode must be daily or marked"})
			return
		}
		sess, err := s.deck.Start(mode)
		if err != nil {
			respondError(w, r, err)
			return
		}
		id := session.NewID()
		if err := s.sessions.Save(id, sess); err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, newSessionView(id, sess))
	}
}

// withSession loads the checkpoint named in the URL, runs step and saves the
// session it returns.
func (s *Server) withSession(step func(r *http.Request, sess session.Session, view *sessionView) (session.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := s.sessions.Load(id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		var extra sessionView
		next, err := step(r, sess, &extra)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if err := s.sessions.Save(id, next); err != nil {
			respondError(w, r, err)
			return
		}
		view := newSessionView(id, next)
		view.Result = extra.Result
		respondJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := s.sessions.Load(id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, newSessionView(id, sess))
	}
}

func (s *Server) handleReveal() http.HandlerFunc {
	return s.withSession(func(r *http.Request, sess session.Session, _ *sessionView) (session.Session, error) {
		return sess.Reveal()
	})
}

// handleAnswer grades the current card (correct or incorrect) or passes it.
func (s *Server) handleAnswer() http.HandlerFunc {
	return s.withSession(func(r *http.Request, sess session.Session, view *sessionView) (session.Session, error) {
		req := answerRequest{Result: r.FormValue("result")}
		if err := validate.Struct(req); err != nil {
			return sess, err
		}
		if req.Result == "pass" {
			return s.deck.Pass(sess)
		}
		res, next, err := s.deck.Answer(sess, req.Result == "correct")
		if err != nil {
			return sess, err
		}
		view.Result = newResultView(res)
		return next, nil
	})
}

func newResultView(res leitner.Result) *resultView {
	return &resultView{Outcome: res.Outcome.String(), Box: res.Box, Message: res.Message}
}

func (s *Server) handleSessionMark() http.HandlerFunc {
	return s.withSession(func(r *http.Request, sess session.Session, _ *sessionView) (session.Session, error) {
		_, next, err := s.deck.ToggleMarkInSession(sess, chi.URLParam(r, "cardID"))
		return next, err
	})
}

func (s *Server) handleSessionUpdate() http.HandlerFunc {
	return s.withSession(func(r *http.Request, sess session.Session, _ *sessionView) (session.Session, error) {
		id := chi.URLParam(r, "cardID")
		form, cleanup, err := parseEditForm(r)
		if err != nil {
			return sess, err
		}
		defer cleanup()
		_, next, err := s.deck.UpdateInSession(sess, id, form)
		return next, err
	})
}

func (s *Server) handleSessionDelete() http.HandlerFunc {
	return s.withSession(func(r *http.Request, sess session.Session, _ *sessionView) (session.Session, error) {
		return s.deck.DeleteInSession(sess, chi.URLParam(r, "cardID"))
	})
}
