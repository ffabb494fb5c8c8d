package leitner

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/leitbox/internal/domain"
)

func textCard(id string, box int, next string) domain.Card {
	return domain.Card{
		ID:             id,
		Box:            box,
		CreationDate:   domain.MustParseDate("2024-01-01"),
		NextReviewDate: domain.MustParseDate(next),
		CurrentFace:    domain.Recto,
		Recto:          domain.Text("q " + id),
		Verso:          domain.Text("a " + id),
	}
}

func TestApplyAnswer(t *testing.T) {
	params := DefaultParams()

	testCases := []struct {
		name        string
		box         int
		correct     bool
		wantBox     int
		wantOutcome Outcome
	}{
		{"correct moves up", 3, true, 4, Success},
		{"incorrect moves down", 3, false, 2, Setback},
		{"correct at max is clamped", 60, true, 60, Success},
		{"incorrect at one is clamped", 1, false, 1, Setback},
		{"59 reaches max", 59, true, 60, Success},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			card := textCard("c", tc.box, "2024-01-02")
			res := params.ApplyAnswer(&card, tc.correct)

			assert.Equal(t, tc.wantBox, card.Box)
			assert.Equal(t, tc.wantBox, res.Box)
			assert.Equal(t, tc.wantOutcome, res.Outcome)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestBoxStaysInRange(t *testing.T) {
	params := &Params{MaxBox: 7}
	rng := rand.New(rand.NewSource(1))
	card := textCard("c", 1, "2024-01-02")

	for i := 0; i < 1000; i++ {
		params.ApplyAnswer(&card, rng.Intn(3) > 0)
		require.GreaterOrEqual(t, card.Box, 1)
		require.LessOrEqual(t, card.Box, params.MaxBox)
	}
}

func TestApplyAnswerAboveLoweredMaxBox(t *testing.T) {
	params := &Params{MaxBox: 30}

	for _, correct := range []bool{true, false} {
		card := textCard("c", 60, "2024-01-02")
		res := params.ApplyAnswer(&card, correct)

		assert.Equal(t, 30, card.Box, "correct=%v", correct)
		assert.Equal(t, 30, res.Box, "correct=%v", correct)
	}
}

func TestFinalizeReview(t *testing.T) {
	params := DefaultParams()

	t.Run("uses the post-answer box", func(t *testing.T) {
		card := textCard("c", 1, "2024-01-02")
		reviewedAt := time.Date(2024, 1, 2, 18, 30, 0, 0, time.UTC)

		params.ApplyAnswer(&card, true)
		params.FinalizeReview(&card, reviewedAt)

		assert.Equal(t, 2, card.Box)
		require.NotNil(t, card.LastReviewedDate)
		assert.Equal(t, "2024-01-02", card.LastReviewedDate.String())
		assert.Equal(t, "2024-01-04", card.NextReviewDate.String())
		assert.Equal(t, domain.Verso, card.CurrentFace)
	})

	t.Run("flips the face on a setback too", func(t *testing.T) {
		card := textCard("c", 1, "2024-01-02")
		reviewedAt := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

		params.ApplyAnswer(&card, false)
		params.FinalizeReview(&card, reviewedAt)

		assert.Equal(t, 1, card.Box)
		assert.Equal(t, "2024-03-11", card.NextReviewDate.String())
		assert.Equal(t, domain.Verso, card.CurrentFace)
	})

	t.Run("clamped at max box", func(t *testing.T) {
		card := textCard("c", 59, "2024-01-02")
		reviewedAt := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

		params.ApplyAnswer(&card, true)
		params.FinalizeReview(&card, reviewedAt)
		assert.Equal(t, 60, card.Box)

		params.ApplyAnswer(&card, true)
		params.FinalizeReview(&card, reviewedAt)
		assert.Equal(t, 60, card.Box)
		assert.Equal(t, domain.DateOf(reviewedAt).AddDays(60), card.NextReviewDate)
		assert.Equal(t, domain.Recto, card.CurrentFace)
	})

	t.Run("next review is last review plus box", func(t *testing.T) {
		for box := 1; box <= params.MaxBox; box++ {
			card := textCard("c", box, "2024-01-02")
			params.ApplyAnswer(&card, box%2 == 0)
			params.FinalizeReview(&card, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
			assert.True(t, card.LastReviewedDate.AddDays(card.Box).Equal(card.NextReviewDate))
		}
	})
}

func TestDailyDue(t *testing.T) {
	params := DefaultParams()

	t.Run("due on the day", func(t *testing.T) {
		cards := []domain.Card{textCard("a", 1, "2024-01-01")}

		due := params.DailyDue(cards, domain.MustParseDate("2024-01-01"))
		require.Len(t, due, 1)
		assert.Equal(t, "a", due[0].ID)

		assert.Empty(t, params.DailyDue(cards, domain.MustParseDate("2023-12-31")))
	})

	t.Run("returns exactly the due subset", func(t *testing.T) {
		cards := []domain.Card{
			textCard("past", 1, "2023-11-01"),
			textCard("today", 1, "2024-01-10"),
			textCard("future", 1, "2024-01-11"),
		}

		due := params.DailyDue(cards, domain.MustParseDate("2024-01-10"))
		ids := []string{}
		for _, c := range due {
			ids = append(ids, c.ID)
		}
		assert.ElementsMatch(t, []string{"past", "today"}, ids)
	})

	t.Run("empty input", func(t *testing.T) {
		due := params.DailyDue(nil, domain.MustParseDate("2024-01-10"))
		assert.NotNil(t, due)
		assert.Empty(t, due)
	})

	t.Run("does not touch the input order", func(t *testing.T) {
		cards := []domain.Card{textCard("a", 1, "2024-01-01"), textCard("b", 1, "2024-01-01")}
		params.DailyDue(cards, domain.MustParseDate("2024-01-10"))
		assert.Equal(t, "a", cards[0].ID)
	})
}

func TestDailyDueIsShuffled(t *testing.T) {
	params := DefaultParams()
	var cards []domain.Card
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		cards = append(cards, textCard(id, 1, "2024-01-01"))
	}

	firsts := map[string]bool{}
	for i := 0; i < 200; i++ {
		due := params.DailyDue(cards, domain.MustParseDate("2024-01-01"))
		firsts[due[0].ID] = true
	}
	// 200 draws over 8 cards: a single first card would mean no shuffle.
	assert.Greater(t, len(firsts), 1)
}

func TestMarked(t *testing.T) {
	params := DefaultParams()
	a := textCard("a", 1, "2030-01-01")
	a.Marked = true
	b := textCard("b", 5, "2020-01-01")
	c := textCard("c", 9, "2030-01-01")
	c.Marked = true

	marked := params.Marked([]domain.Card{a, b, c})
	ids := []string{}
	for _, m := range marked {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)

	assert.Empty(t, params.Marked([]domain.Card{b}))
}
