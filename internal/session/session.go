// Package session sequences a selected list of cards through a review:
// show the question, reveal the answer, then answer or pass and advance.
//
// A Session is a plain value. Every transition returns the next Session and
// leaves its receiver untouched, so callers can checkpoint any step.
package session

import (
	"errors"
	"slices"

	"github.com/conorfennell/leitbox/internal/domain"
)

var (
	// ErrFinished is returned by transitions on a session with no card left.
	ErrFinished = errors.New("review session finished")

	// ErrNotRevealed is returned when answering before the answer was shown.
	ErrNotRevealed = errors.New("answer not revealed yet")

	// ErrCardMismatch is returned when an answer targets a card other than the current one.
	ErrCardMismatch = errors.New("card is not the current card")
)

// Mode names how the cards were selected.
type Mode string

const (
	Daily  Mode = "daily"
	Marked Mode = "marked"
)

// ParseMode accepts "daily" or "marked".
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case Daily, Marked:
		return Mode(s), true
	default:
		return "", false
	}
}

// Session is the ephemeral state of one review run.
type Session struct {
	Mode     Mode          `json:"mode"`
	Cards    []domain.Card `json:"cards"`
	Cursor   int           `json:"index"`
	Revealed bool          `json:"show_answer"`
}

// Start begins a session over cards in the given order.
func Start(mode Mode, cards []domain.Card) Session {
	return Session{Mode: mode, Cards: slices.Clone(cards)}
}

// Done reports whether every card was answered or passed.
func (s Session) Done() bool {
	return s.Cursor >= len(s.Cards)
}

// Current returns the card under the cursor.
func (s Session) Current() (domain.Card, error) {
	if s.Done() {
		return domain.Card{}, ErrFinished
	}
	return s.Cards[s.Cursor], nil
}

// Progress returns the 1-based position of the current card and the total.
func (s Session) Progress() (position, total int) {
	total = len(s.Cards)
	return min(s.Cursor+1, total), total
}

// Reveal shows the answer of the current card.
func (s Session) Reveal() (Session, error) {
	if s.Done() {
		return s, ErrFinished
	}
	next := s.clone()
	next.Revealed = true
	return next, nil
}

// Answered records the card returned by the scheduler for the current
// position and advances. The answer must have been revealed.
func (s Session) Answered(updated domain.Card) (Session, error) {
	if s.Done() {
		return s, ErrFinished
	}
	if !s.Revealed {
		return s, ErrNotRevealed
	}
	if s.Cards[s.Cursor].ID != updated.ID {
		return s, ErrCardMismatch
	}
	next := s.clone()
	next.Cards[next.Cursor] = updated
	next.Cursor++
	next.Revealed = false
	return next, nil
}

// Passed skips the current card without any change to it.
func (s Session) Passed() (Session, error) {
	if s.Done() {
		return s, ErrFinished
	}
	next := s.clone()
	next.Cursor++
	next.Revealed = false
	return next, nil
}

// Replace refreshes a card held by the session, for example after it was
// marked or edited. Unknown ids are ignored.
func (s Session) Replace(card domain.Card) Session {
	next := s.clone()
	for i := range next.Cards {
		if next.Cards[i].ID == card.ID {
			next.Cards[i] = card
		}
	}
	return next
}

// Remove drops a deleted card. Removing the current card shows the next one
// in its place; removing an earlier card keeps the cursor on the same card.
func (s Session) Remove(id string) Session {
	next := s.clone()
	idx := slices.IndexFunc(next.Cards, func(c domain.Card) bool { return c.ID == id })
	if idx < 0 {
		return next
	}
	next.Cards = slices.Delete(next.Cards, idx, idx+1)
	switch {
	case idx < next.Cursor:
		next.Cursor--
	case idx == next.Cursor:
		next.Revealed = false
	}
	return next
}

func (s Session) clone() Session {
	s.Cards = slices.Clone(s.Cards)
	return s
}
