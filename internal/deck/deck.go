// Package deck runs every user action as one load-all, mutate, save-all
// cycle over the card repository.
package deck

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/conorfennell/leitbox/internal/domain"
	"github.com/conorfennell/leitbox/internal/leitner"
	"github.com/conorfennell/leitbox/internal/lifecycle"
	"github.com/conorfennell/leitbox/internal/session"
	"github.com/conorfennell/leitbox/internal/storage"
)

// DefaultListLimit caps List results when the filter sets no limit.
const DefaultListLimit = 100

// ImageStore saves uploaded images and removes local ones.
type ImageStore interface {
	SaveUpload(filename string, r io.Reader) (string, error)
	DeleteImageFile(ref string) error
}

// Upload is an image file sent with a form.
type Upload struct {
	Filename string
	Body     io.Reader
}

// FaceForm is the raw input for one face. Upload beats URL beats Text.
type FaceForm struct {
	Text   string
	URL    string
	Upload *Upload
}

func (f FaceForm) hasContent() bool {
	return f.Upload != nil || !domain.Image(f.URL).IsEmpty() || !domain.Text(f.Text).IsEmpty()
}

// EditForm is a manual edit of a card.
type EditForm struct {
	Box   int // 0 keeps the current box
	Recto FaceForm
	Verso FaceForm
}

// Filter narrows List.
type Filter struct {
	Query      string // case-insensitive match on text faces
	Box        int    // 0 for any box
	MarkedOnly bool
	Limit      int
}

// Service is the entry point for review and card management.
type Service struct {
	repo   storage.Repository
	sched  *leitner.Params
	cards  *lifecycle.Manager
	images ImageStore
	now    func() time.Time
}

// NewService wires the service. The lifecycle manager's clock is used for
// review timestamps too.
func NewService(repo storage.Repository, sched *leitner.Params, cards *lifecycle.Manager, images ImageStore) *Service {
	now := cards.Now
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, sched: sched, cards: cards, images: images, now: now}
}

// Today is the current calendar day.
func (s *Service) Today() domain.Date {
	return domain.DateOf(s.now())
}

// MaxBox is the highest box of the scheduler.
func (s *Service) MaxBox() int {
	return s.sched.MaxBox
}

// All returns the whole collection.
func (s *Service) All() ([]domain.Card, error) {
	return s.repo.ListAll()
}

// StartDaily opens a session over today's due cards.
func (s *Service) StartDaily() (session.Session, error) {
	all, err := s.repo.ListAll()
	if err != nil {
		return session.Session{}, err
	}
	return session.Start(session.Daily, s.sched.DailyDue(all, s.Today())), nil
}

// StartMarked opens a session over the marked cards.
func (s *Service) StartMarked() (session.Session, error) {
	all, err := s.repo.ListAll()
	if err != nil {
		return session.Session{}, err
	}
	return session.Start(session.Marked, s.sched.Marked(all)), nil
}

// Start opens a session in the given mode.
func (s *Service) Start(mode session.Mode) (session.Session, error) {
	if mode == session.Marked {
		return s.StartMarked()
	}
	return s.StartDaily()
}

// Counts returns how many cards are due today and how many are marked.
func (s *Service) Counts() (due, marked int, err error) {
	all, err := s.repo.ListAll()
	if err != nil {
		return 0, 0, err
	}
	today := s.Today()
	for _, c := range all {
		if c.DueOnOrBefore(today) {
			due++
		}
		if c.Marked {
			marked++
		}
	}
	return due, marked, nil
}

// Answer grades the current card of sess, reschedules it, saves the
// collection and advances the session.
func (s *Service) Answer(sess session.Session, correct bool) (leitner.Result, session.Session, error) {
	cur, err := sess.Current()
	if err != nil {
		return leitner.Result{}, sess, err
	}
	if !sess.Revealed {
		return leitner.Result{}, sess, session.ErrNotRevealed
	}

	all, err := s.repo.ListAll()
	if err != nil {
		return leitner.Result{}, sess, err
	}
	idx, err := storage.FindByID(all, cur.ID)
	if err != nil {
		return leitner.Result{}, sess, err
	}

	card := &all[idx]
	res := s.sched.ApplyAnswer(card, correct)
	s.sched.FinalizeReview(card, s.now())

	if err := s.repo.SaveAll(all); err != nil {
		return leitner.Result{}, sess, err
	}
	slog.Info("Card answered", "card_id", card.ID, "outcome", res.Outcome, "box", card.Box, "next_review", card.NextReviewDate)

	next, err := sess.Answered(*card)
	return res, next, err
}

// Pass skips the current card. The repository is not touched.
func (s *Service) Pass(sess session.Session) (session.Session, error) {
	return sess.Passed()
}

// Create stores a new card in box initialBox.
func (s *Service) Create(recto, verso FaceForm, initialBox int) (domain.Card, error) {
	if !recto.hasContent() || !verso.hasContent() {
		return domain.Card{}, domain.ErrFaceEmpty
	}
	if err := domain.ValidateBox(initialBox, s.sched.MaxBox); err != nil {
		return domain.Card{}, err
	}

	rectoIn, versoIn, saved, err := s.storeUploads(recto, verso)
	if err != nil {
		return domain.Card{}, err
	}
	card, err := s.cards.CreateCard(rectoIn.Resolve(), versoIn.Resolve(), initialBox)
	if err != nil {
		s.discard(saved)
		return domain.Card{}, err
	}

	all, err := s.repo.ListAll()
	if err != nil {
		s.discard(saved)
		return domain.Card{}, err
	}
	all = append(all, card)
	if err := s.repo.SaveAll(all); err != nil {
		s.discard(saved)
		return domain.Card{}, err
	}
	slog.Info("Card created", "card_id", card.ID, "box", card.Box)
	return card, nil
}

// Get returns one card.
func (s *Service) Get(id string) (domain.Card, error) {
	all, err := s.repo.ListAll()
	if err != nil {
		return domain.Card{}, err
	}
	idx, err := storage.FindByID(all, id)
	if err != nil {
		return domain.Card{}, err
	}
	return all[idx], nil
}

// List returns the cards matching f in collection order.
func (s *Service) List(f Filter) ([]domain.Card, error) {
	all, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))

	out := []domain.Card{}
	for _, c := range all {
		if f.Box != 0 && c.Box != f.Box {
			continue
		}
		if f.MarkedOnly && !c.Marked {
			continue
		}
		if q != "" && !matches(c, q) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func matches(c domain.Card, q string) bool {
	for _, face := range []domain.FaceContent{c.Recto, c.Verso} {
		if face.IsText() && strings.Contains(strings.ToLower(face.Value), q) {
			return true
		}
	}
	return false
}

// Boxes returns the distinct box numbers in use, ascending.
func (s *Service) Boxes() ([]int, error) {
	all, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	boxes := []int{}
	for _, c := range all {
		if !seen[c.Box] {
			seen[c.Box] = true
			boxes = append(boxes, c.Box)
		}
	}
	sort.Ints(boxes)
	return boxes, nil
}

// ToggleMark flips the marked flag of a card.
func (s *Service) ToggleMark(id string) (domain.Card, error) {
	all, err := s.repo.ListAll()
	if err != nil {
		return domain.Card{}, err
	}
	idx, err := storage.FindByID(all, id)
	if err != nil {
		return domain.Card{}, err
	}
	all[idx].Marked = !all[idx].Marked
	if err := s.repo.SaveAll(all); err != nil {
		return domain.Card{}, err
	}
	return all[idx], nil
}

// Delete removes a card after deleting its local images.
func (s *Service) Delete(id string) error {
	all, err := s.repo.ListAll()
	if err != nil {
		return err
	}
	idx, err := storage.FindByID(all, id)
	if err != nil {
		return err
	}
	if err := s.cards.DeleteCardAssets(all[idx]); err != nil {
		return err
	}
	all = slices.Delete(all, idx, idx+1)
	if err := s.repo.SaveAll(all); err != nil {
		return err
	}
	slog.Info("Card deleted", "card_id", id)
	return nil
}

// Update applies a manual edit: new box and faces, then a reschedule anchored
// on the card's history. Images the edit replaces are deleted once the
// collection is saved.
func (s *Service) Update(id string, form EditForm) (domain.Card, error) {
	if !form.Recto.hasContent() || !form.Verso.hasContent() {
		return domain.Card{}, domain.ErrFaceEmpty
	}
	if form.Box != 0 {
		if err := domain.ValidateBox(form.Box, s.sched.MaxBox); err != nil {
			return domain.Card{}, err
		}
	}

	all, err := s.repo.ListAll()
	if err != nil {
		return domain.Card{}, err
	}
	idx, err := storage.FindByID(all, id)
	if err != nil {
		return domain.Card{}, err
	}

	recto, verso, saved, err := s.storeUploads(form.Recto, form.Verso)
	if err != nil {
		return domain.Card{}, err
	}
	edit := lifecycle.Edit{Box: form.Box, Recto: recto, Verso: verso}
	replaced, err := s.cards.ApplyEdit(&all[idx], edit)
	if err != nil {
		s.discard(saved)
		return domain.Card{}, err
	}
	if err := s.repo.SaveAll(all); err != nil {
		s.discard(saved)
		return domain.Card{}, err
	}
	s.discard(replaced)
	slog.Info("Card updated", "card_id", id, "box", all[idx].Box, "next_review", all[idx].NextReviewDate)
	return all[idx], nil
}

// ToggleMarkInSession flips the mark and refreshes the card in sess.
func (s *Service) ToggleMarkInSession(sess session.Session, id string) (domain.Card, session.Session, error) {
	card, err := s.ToggleMark(id)
	if err != nil {
		return domain.Card{}, sess, err
	}
	return card, sess.Replace(card), nil
}

// DeleteInSession deletes the card and drops it from sess.
func (s *Service) DeleteInSession(sess session.Session, id string) (session.Session, error) {
	if err := s.Delete(id); err != nil {
		return sess, err
	}
	return sess.Remove(id), nil
}

// UpdateInSession edits the card and refreshes it in sess.
func (s *Service) UpdateInSession(sess session.Session, id string, form EditForm) (domain.Card, session.Session, error) {
	card, err := s.Update(id, form)
	if err != nil {
		return domain.Card{}, sess, err
	}
	return card, sess.Replace(card), nil
}

func (s *Service) storeUploads(recto, verso FaceForm) (lifecycle.FaceInput, lifecycle.FaceInput, []string, error) {
	var saved []string
	toInput := func(f FaceForm) (lifecycle.FaceInput, error) {
		in := lifecycle.FaceInput{URL: f.URL, Text: f.Text}
		if f.Upload == nil {
			return in, nil
		}
		path, err := s.images.SaveUpload(f.Upload.Filename, f.Upload.Body)
		if err != nil {
			return in, fmt.Errorf("failed to store upload %s: %w", f.Upload.Filename, err)
		}
		saved = append(saved, path)
		in.UploadedPath = path
		return in, nil
	}

	r, err := toInput(recto)
	if err != nil {
		return r, r, nil, err
	}
	v, err := toInput(verso)
	if err != nil {
		s.discard(saved)
		return r, v, nil, err
	}
	return r, v, saved, nil
}

func (s *Service) discard(paths []string) {
	for _, p := range paths {
		if err := s.images.DeleteImageFile(p); err != nil {
			slog.Warn("Failed to delete image", "path", p, "error", err)
		}
	}
}
