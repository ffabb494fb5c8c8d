package domain

import (
	"encoding/json"
	"fmt"
)

// DefaultMaxBox is the highest box a card can reach unless configured otherwise.
const DefaultMaxBox = 60

// Face names one side of a card.
type Face string

const (
	Recto Face = "recto"
	Verso Face = "verso"
)

// Card is a two-sided flashcard and its Leitner scheduling state.
// CurrentFace is the side asked as the question in the next session.
type Card struct {
	ID               string
	Box              int
	CreationDate     Date
	NextReviewDate   Date
	LastReviewedDate *Date
	CurrentFace      Face
	Recto            FaceContent
	Verso            FaceContent
	Marked           bool
}

// ToggleFace swaps which side is asked next.
func (c *Card) ToggleFace() {
	if c.CurrentFace == Verso {
		c.CurrentFace = Recto
		return
	}
	c.CurrentFace = Verso
}

// DueOnOrBefore reports whether the card's next review falls on or before day.
func (c Card) DueOnOrBefore(day Date) bool {
	return !c.NextReviewDate.After(day)
}

// Content returns the content of the given side.
func (c Card) Content(f Face) FaceContent {
	if f == Verso {
		return c.Verso
	}
	return c.Recto
}

// Question is the side shown first in a session.
func (c Card) Question() FaceContent { return c.Content(c.CurrentFace) }

// Answer is the side revealed after the question.
func (c Card) Answer() FaceContent {
	if c.CurrentFace == Verso {
		return c.Recto
	}
	return c.Verso
}

// Validate checks the box range and that both faces carry content.
func (c Card) Validate(maxBox int) error {
	if err := ValidateBox(c.Box, maxBox); err != nil {
		return err
	}
	return ValidateFaces(c.Recto, c.Verso)
}

// ValidateFaces rejects a card whose recto or verso is empty.
func ValidateFaces(recto, verso FaceContent) error {
	if recto.IsEmpty() || verso.IsEmpty() {
		return ErrFaceEmpty
	}
	return nil
}

// ValidateBox rejects a box outside [1, maxBox].
func ValidateBox(box, maxBox int) error {
	if box < 1 || box > maxBox {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrBoxOutOfRange, box, maxBox)
	}
	return nil
}

// Record is the persisted shape of a card. Fields are declared in key order
// so encoded files stay sorted and diff cleanly.
type Record struct {
	Box              int     `json:"box"`
	CreationDate     Date    `json:"creation_date"`
	CurrentFace      Face    `json:"current_face"`
	ID               string  `json:"id"`
	LastReviewedDate *Date   `json:"last_reviewed_date"`
	Marked           bool    `json:"marked"`
	NextReviewDate   Date    `json:"next_review_date"`
	RectoPath        *string `json:"recto_path"`
	RectoText        *string `json:"recto_text"`
	VersoPath        *string `json:"verso_path"`
	VersoText        *string `json:"verso_text"`
}

// Record flattens the card into its persisted columns.
func (c Card) Record() Record {
	return Record{
		Box:              c.Box,
		CreationDate:     c.CreationDate,
		CurrentFace:      c.CurrentFace,
		ID:               c.ID,
		LastReviewedDate: c.LastReviewedDate,
		Marked:           c.Marked,
		NextReviewDate:   c.NextReviewDate,
		RectoPath:        c.Recto.pathPtr(),
		RectoText:        c.Recto.textPtr(),
		VersoPath:        c.Verso.pathPtr(),
		VersoText:        c.Verso.textPtr(),
	}
}

// FromRecord rebuilds a card. Records written before current_face existed
// start on the recto.
func FromRecord(r Record) Card {
	face := r.CurrentFace
	if face != Verso {
		face = Recto
	}
	return Card{
		ID:               r.ID,
		Box:              r.Box,
		CreationDate:     r.CreationDate,
		NextReviewDate:   r.NextReviewDate,
		LastReviewedDate: r.LastReviewedDate,
		CurrentFace:      face,
		Recto:            contentFromRecord(r.RectoText, r.RectoPath),
		Verso:            contentFromRecord(r.VersoText, r.VersoPath),
		Marked:           r.Marked,
	}
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Record())
}

func (c *Card) UnmarshalJSON(b []byte) error {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	*c = FromRecord(r)
	return nil
}
