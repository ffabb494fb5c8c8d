package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/leitbox/internal/deck"
	"github.com/conorfennell/leitbox/internal/domain"
)

type listQuery struct {
	Query  string
	Box    int `validate:"gte=0"`
	Marked bool
	Limit  int `validate:"gte=0,lte=100"`
}

func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		lq := listQuery{Query: q.Get("q")}
		var err error
		if lq.Box, err = intParam(q.Get("box"), 0); err != nil {
			respondError(w, r, err)
			return
		}
		if lq.Limit, err = intParam(q.Get("limit"), 0); err != nil {
			respondError(w, r, err)
			return
		}
		lq.Marked, _ = strconv.ParseBool(q.Get("marked"))
		if err := validate.Struct(lq); err != nil {
			respondError(w, r, err)
			return
		}

		cards, err := s.deck.List(deck.Filter{Query: lq.Query, Box: lq.Box, MarkedOnly: lq.Marked, Limit: lq.Limit})
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, cards)
	}
}

// handleCreateCard accepts a multipart or urlencoded form with
// {recto,verso}_{text,url,upload} fields and an optional box (default 1).
func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseForm(r); err != nil {
			respondError(w, r, err)
			return
		}
		box, err := intParam(r.FormValue("box"), 1)
		if err != nil {
			respondError(w, r, err)
			return
		}
		recto, closeRecto, err := faceForm(r, "recto")
		if err != nil {
			respondError(w, r, err)
			return
		}
		defer closeRecto()
		verso, closeVerso, err := faceForm(r, "verso")
		if err != nil {
			respondError(w, r, err)
			return
		}
		defer closeVerso()

		card, err := s.deck.Create(recto, verso, box)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, card)
	}
}

func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.deck.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, card)
	}
}

// handleUpdateCard replaces box and faces. A missing box keeps the current one.
func (s *Server) handleUpdateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		form, cleanup, err := parseEditForm(r)
		if err != nil {
			respondError(w, r, err)
			return
		}
		defer cleanup()

		card, err := s.deck.Update(id, form)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, card)
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.deck.Delete(chi.URLParam(r, "id")); err != nil {
			respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleMarkCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.deck.ToggleMark(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, card)
	}
}

func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxUploadBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func intParam(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", domain.ErrValidation, raw)
	}
	return n, nil
}

// faceForm reads the text, url and upload fields of one face. The returned
// func closes the uploaded file.
func faceForm(r *http.Request, face string) (deck.FaceForm, func(), error) {
	form := deck.FaceForm{
		Text: r.FormValue(face + "_text"),
		URL:  r.FormValue(face + "_url"),
	}
	file, header, err := r.FormFile(face + "_upload")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return form, func() {}, nil
	case err != nil:
		return form, func() {}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	form.Upload = &deck.Upload{Filename: header.Filename, Body: file}
	return form, func() { file.Close() }, nil
}

// parseEditForm reads a card edit. Without a box field the card keeps its
// current box.
func parseEditForm(r *http.Request) (deck.EditForm, func(), error) {
	noop := func() {}
	if err := parseForm(r); err != nil {
		return deck.EditForm{}, noop, err
	}
	box, err := intParam(r.FormValue("box"), 0)
	if err != nil {
		return deck.EditForm{}, noop, err
	}
	if box < 1 && strings.TrimSpace(r.FormValue("box")) != "" {
		return deck.EditForm{}, noop, fmt.Errorf("%w: %d", domain.ErrBoxOutOfRange, box)
	}

	recto, closeRecto, err := faceForm(r, "recto")
	if err != nil {
		return deck.EditForm{}, noop, err
	}
	verso, closeVerso, err := faceForm(r, "verso")
	if err != nil {
		closeRecto()
		return deck.EditForm{}, noop, err
	}
	cleanup := func() {
		closeRecto()
		closeVerso()
	}
	return deck.EditForm{Box: box, Recto: recto, Verso: verso}, cleanup, nil
}
