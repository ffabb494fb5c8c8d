package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/leitbox/internal/assets"
	"github.com/conorfennell/leitbox/internal/deck"
	"github.com/conorfennell/leitbox/internal/domain"
	"github.com/conorfennell/leitbox/internal/leitner"
	"github.com/conorfennell/leitbox/internal/lifecycle"
	"github.com/conorfennell/leitbox/internal/session"
	"github.com/conorfennell/leitbox/internal/storage"
)

type fixture struct {
	server *Server
	repo   *storage.JSONRepository
	images *assets.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	images, err := assets.NewStore(filepath.Join(root, "images"))
	require.NoError(t, err)
	sessions, err := session.NewStore(filepath.Join(root, "sessions"))
	require.NoError(t, err)
	repo := storage.NewJSONRepository(filepath.Join(root, "cards.json"))

	manager := lifecycle.NewManager(domain.DefaultMaxBox, images)
	manager.Now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local) }
	svc := deck.NewService(repo, leitner.DefaultParams(), manager, images)

	return &fixture{server: NewServer(svc, sessions, images), repo: repo, images: images}
}

func (f *fixture) seed(t *testing.T, cards ...domain.Card) {
	t.Helper()
	require.NoError(t, f.repo.SaveAll(cards))
}

func (f *fixture) do(t *testing.T, method, target string, body *strings.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) postForm(t *testing.T, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, target, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func dueCard(id string) domain.Card {
	return domain.Card{
		ID:             id,
		Box:            1,
		CreationDate:   domain.MustParseDate("2024-03-01"),
		NextReviewDate: domain.MustParseDate("2024-03-09"),
		CurrentFace:    domain.Recto,
		Recto:          domain.Text("hund"),
		Verso:          domain.Text("dog"),
	}
}

func TestReviewFlow(t *testing.T) {
	f := newFixture(t)
	f.seed(t, dueCard("c1"))

	rec := f.do(t, http.MethodPost, "/sessions/daily", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[sessionView](t, rec)
	assert.Equal(t, 1, view.Total)
	require.NotNil(t, view.Question)
	assert.Equal(t, "hund", view.Question.Value)
	assert.Nil(t, view.Answer)

	answer := url.Values{"result": {"correct"}}
	rec = f.postForm(t, "/sessions/"+view.ID+"/answer", answer)
	assert.Equal(t, http.StatusConflict, rec.Code, "answer before reveal")

	rec = f.do(t, http.MethodPost, "/sessions/"+view.ID+"/reveal", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	revealed := decode[sessionView](t, rec)
	require.NotNil(t, revealed.Answer)
	assert.Equal(t, "dog", revealed.Answer.Value)

	rec = f.postForm(t, "/sessions/"+view.ID+"/answer", answer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[sessionView](t, rec)
	assert.True(t, done.Done)
	require.NotNil(t, done.Result)
	assert.Equal(t, "success", done.Result.Outcome)
	assert.Equal(t, "Well done! Box 2.", done.Result.Message)

	cards, err := f.repo.ListAll()
	require.NoError(t, err)
	assert.Equal(t, 2, cards[0].Box)
	assert.Equal(t, "2024-03-12", cards[0].NextReviewDate.String())
	assert.Equal(t, domain.Verso, cards[0].CurrentFace)

	rec = f.postForm(t, "/sessions/"+view.ID+"/answer", url.Values{"result": {"pass"}})
	assert.Equal(t, http.StatusConflict, rec.Code, "session finished")
}

func TestAnswerValidation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, dueCard("c1"))

	view := decode[sessionView](t, f.do(t, http.MethodPost, "/sessions/daily", nil, ""))
	rec := f.postForm(t, "/sessions/"+view.ID+"/answer", url.Values{"result": {"maybe"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.postForm(t, "/sessions/"+view.ID+"/answer", url.Values{"result": {"pass"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[sessionView](t, rec).Done)
}

func TestSessionErrors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/sessions/weekly", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/sessions/not-a-session", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/sessions/"+session.NewID(), nil, "").Code)
}

func TestSessionDeleteAndMark(t *testing.T) {
	f := newFixture(t)
	first, second := dueCard("c1"), dueCard("c2")
	second.Recto = domain.Text("katze")
	f.seed(t, first, second)

	view := decode[sessionView](t, f.do(t, http.MethodPost, "/sessions/daily", nil, ""))
	current := view.Card.ID

	rec := f.do(t, http.MethodPost, "/sessions/"+view.ID+"/cards/"+current+"/mark", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[sessionView](t, rec).Card.Marked)

	rec = f.do(t, http.MethodDelete, "/sessions/"+view.ID+"/cards/"+current, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	after := decode[sessionView](t, rec)
	assert.Equal(t, 1, after.Total)
	assert.NotEqual(t, current, after.Card.ID)

	cards, err := f.repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestCreateCardMultipart(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("recto_upload", "flag.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("verso_text", "France"))
	require.NoError(t, mw.WriteField("box", "3"))
	require.NoError(t, mw.Close())

	rec := f.do(t, http.MethodPost, "/cards", strings.NewReader(body.String()), mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	card := decode[domain.Card](t, rec)
	assert.Equal(t, 3, card.Box)
	assert.True(t, card.Recto.IsImage())
	assert.Equal(t, "2024-03-13", card.NextReviewDate.String())

	rec = f.do(t, http.MethodGet, "/images/"+filepath.Base(card.Recto.Value), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
}

func TestCreateCardRejectsEmptyFace(t *testing.T) {
	f := newFixture(t)

	rec := f.postForm(t, "/cards", url.Values{"recto_text": {"only a question"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.postForm(t, "/cards", url.Values{"recto_text": {"q"}, "verso_text": {"a"}, "box": {"61"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCardManagement(t *testing.T) {
	f := newFixture(t)
	card := dueCard("c1")
	card.Box = 4
	card.LastReviewedDate = ptr(domain.MustParseDate("2024-03-05"))
	f.seed(t, card)

	rec := f.do(t, http.MethodGet, "/cards?q=HUN", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Card](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/cards?limit=500", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/cards/missing", nil, "").Code)

	edit := url.Values{"recto_text": {"der Hund"}, "verso_text": {"the dog"}}
	rec = f.do(t, http.MethodPut, "/cards/c1", strings.NewReader(edit.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Card](t, rec)
	assert.Equal(t, 4, updated.Box, "box kept when omitted")
	assert.Equal(t, "der Hund", updated.Recto.Value)
	assert.Equal(t, "2024-03-09", updated.NextReviewDate.String())

	edit.Set("box", "0")
	rec = f.do(t, http.MethodPut, "/cards/c1", strings.NewReader(edit.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "explicit zero box is not a keep")

	rec = f.do(t, http.MethodPost, "/cards/c1/mark", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.Card](t, rec).Marked)

	rec = f.do(t, http.MethodGet, "/boxes", nil, "")
	assert.Equal(t, []int{4}, decode[[]int](t, rec))

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/cards/c1", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/cards/c1", nil, "").Code)
}

func TestDeckAndStats(t *testing.T) {
	f := newFixture(t)
	f.seed(t, dueCard("c1"))

	rec := f.do(t, http.MethodGet, "/deck", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[map[string]interface{}](t, rec)
	assert.Equal(t, float64(1), summary["due_count"])
	assert.Equal(t, "2024-03-10", summary["today"])

	rec = f.do(t, http.MethodGet, "/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[map[string]interface{}](t, rec)
	assert.Equal(t, float64(1), st["total"])
	assert.Equal(t, float64(1), st["due_today"])
}

func ptr[T any](v T) *T { return &v }
