package lifecycle

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/leitbox/internal/domain"
	"github.com/conorfennell/leitbox/internal/leitner"
)

// AssetRemover deletes locally owned image files. It must ignore remote URLs,
// empty refs and files that are already gone.
type AssetRemover interface {
	DeleteImageFile(ref string) error
}

// FaceInput is what an editor supplies for one face. When several fields are
// set the first non-empty of UploadedPath, URL and Text wins.
type FaceInput struct {
	UploadedPath string
	URL          string
	Text         string
}

// Resolve picks the content by precedence upload > URL > text.
func (in FaceInput) Resolve() domain.FaceContent {
	if c := domain.Image(in.UploadedPath); !c.IsEmpty() {
		return c
	}
	if c := domain.Image(in.URL); !c.IsEmpty() {
		return c
	}
	return domain.Text(in.Text)
}

// Edit is a manual change from the management screen.
type Edit struct {
	Box   int // 0 keeps the current box
	Recto FaceInput
	Verso FaceInput
}

// Manager creates, edits and retires cards.
type Manager struct {
	MaxBox int
	Assets AssetRemover
	Now    func() time.Time
}

// NewManager returns a Manager reading the wall clock.
func NewManager(maxBox int, assets AssetRemover) *Manager {
	return &Manager{MaxBox: maxBox, Assets: assets, Now: time.Now}
}

func (m *Manager) today() domain.Date {
	return domain.DateOf(m.Now())
}

// CreateCard builds a new card due initialBox days from today.
func (m *Manager) CreateCard(recto, verso domain.FaceContent, initialBox int) (domain.Card, error) {
	if err := domain.ValidateFaces(recto, verso); err != nil {
		return domain.Card{}, err
	}
	if err := domain.ValidateBox(initialBox, m.MaxBox); err != nil {
		return domain.Card{}, err
	}

	today := m.today()
	return domain.Card{
		ID:             uuid.NewString(),
		Box:            initialBox,
		CreationDate:   today,
		NextReviewDate: leitner.NextDueDate(today, initialBox),
		CurrentFace:    domain.Recto,
		Recto:          recto,
		Verso:          verso,
	}, nil
}

// RecalcNextReview reschedules after a manual edit. The anchor is the last
// review, or the creation day for a card never answered; never the edit day.
func (m *Manager) RecalcNextReview(card *domain.Card) {
	base := card.CreationDate
	if card.LastReviewedDate != nil && !card.LastReviewedDate.IsZero() {
		base = *card.LastReviewedDate
	}
	if base.IsZero() {
		base = m.today()
	}
	card.NextReviewDate = leitner.NextDueDate(base, card.Box)
}

// ApplyEdit validates the whole edit, then sets the box and both faces and
// reschedules. A zero Box keeps the current box. Nothing is changed when
// validation fails.
//
// Local images replaced by the edit are returned, not deleted: the caller
// removes them once the edited collection is saved.
func (m *Manager) ApplyEdit(card *domain.Card, edit Edit) (replaced []string, err error) {
	recto, verso := edit.Recto.Resolve(), edit.Verso.Resolve()
	if err := domain.ValidateFaces(recto, verso); err != nil {
		return nil, err
	}
	box := edit.Box
	if box == 0 {
		box = card.Box
	}
	if err := domain.ValidateBox(box, m.MaxBox); err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst  *domain.FaceContent
		next domain.FaceContent
	}{{&card.Recto, recto}, {&card.Verso, verso}} {
		if old := f.dst.LocalPath(); old != "" && old != f.next.Value {
			replaced = append(replaced, old)
		}
		*f.dst = f.next
	}
	card.Box = box
	m.RecalcNextReview(card)
	return replaced, nil
}

// DeleteCardAssets removes the card's local images. Call it before dropping
// the card from the collection.
func (m *Manager) DeleteCardAssets(card domain.Card) error {
	for _, face := range []domain.FaceContent{card.Recto, card.Verso} {
		if !face.IsImage() {
			continue
		}
		if err := m.Assets.DeleteImageFile(face.Value); err != nil {
			return fmt.Errorf("failed to delete assets of card %s: %w", card.ID, err)
		}
	}
	return nil
}
