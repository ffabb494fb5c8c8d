package leitner

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/conorfennell/leitbox/internal/domain"
)

// Outcome is the category of an answered review.
type Outcome int

const (
	Success Outcome = iota + 1
	Setback
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Setback:
		return "setback"
	default:
		return "unknown"
	}
}

// Result describes an answered review to the user.
type Result struct {
	Outcome Outcome
	Box     int
	Message string
}

// Params holds the scheduler settings.
type Params struct {
	MaxBox int // highest box; also the longest interval in days
}

// DefaultParams returns the sixty-box scheme.
func DefaultParams() *Params {
	return &Params{MaxBox: domain.DefaultMaxBox}
}

// DailyDue returns the cards whose next review is on or before today, in
// random order. The order is reshuffled on every call.
func (p *Params) DailyDue(cards []domain.Card, today domain.Date) []domain.Card {
	due := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		if c.DueOnOrBefore(today) {
			due = append(due, c)
		}
	}
	shuffle(due)
	return due
}

// Marked returns the marked cards in random order.
func (p *Params) Marked(cards []domain.Card) []domain.Card {
	marked := make([]domain.Card, 0)
	for _, c := range cards {
		if c.Marked {
			marked = append(marked, c)
		}
	}
	shuffle(marked)
	return marked
}

func shuffle(cards []domain.Card) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// ApplyAnswer moves the card one box up on a correct answer and one box
// down otherwise, clamped to [1, MaxBox]. Dates and face are left to
// FinalizeReview.
func (p *Params) ApplyAnswer(card *domain.Card, correct bool) Result {
	if correct {
		card.Box = p.clamp(card.Box + 1)
		return Result{
			Outcome: Success,
			Box:     card.Box,
			Message: fmt.Sprintf("Well done! Box %d.", card.Box),
		}
	}
	card.Box = p.clamp(card.Box - 1)
	return Result{
		Outcome: Setback,
		Box:     card.Box,
		Message: fmt.Sprintf("Incorrect. Box %d.", card.Box),
	}
}

// clamp keeps box in [1, MaxBox]. A card stored above a lowered MaxBox
// lands on MaxBox whatever the answer.
func (p *Params) clamp(box int) int {
	return min(p.MaxBox, max(1, box))
}

// FinalizeReview stamps the review day, schedules the next review box days
// later and flips the face asked next time. Call it after ApplyAnswer so the
// new box drives the interval.
func (p *Params) FinalizeReview(card *domain.Card, reviewedAt time.Time) {
	day := domain.DateOf(reviewedAt)
	card.LastReviewedDate = &day
	card.NextReviewDate = NextDueDate(day, card.Box)
	card.ToggleFace()
}

// NextDueDate is the day a card in box becomes due again when anchored on base.
func NextDueDate(base domain.Date, box int) domain.Date {
	return base.AddDays(box)
}
