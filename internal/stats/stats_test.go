package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conorfennell/leitbox/internal/domain"
)

func card(box int, created, next string, marked bool) domain.Card {
	return domain.Card{
		Box:            box,
		CreationDate:   domain.MustParseDate(created),
		NextReviewDate: domain.MustParseDate(next),
		Marked:         marked,
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, 60, domain.MustParseDate("2024-01-01"))
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.Mastery)
	assert.NotNil(t, s.Boxes)
	assert.Empty(t, s.Workload)
}

func TestCompute(t *testing.T) {
	cards := []domain.Card{
		card(1, "2024-01-01", "2024-01-02", false),
		card(30, "2024-01-01", "2024-02-15", true),
		card(20, "2024-01-03", "2024-01-10", false),
		card(1, "2024-01-05", "2024-01-02", false),
	}

	s := Compute(cards, 60, domain.MustParseDate("2024-01-09"))

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.DueToday)
	assert.Equal(t, 1, s.Marked)
	assert.InDelta(t, 52.0/240.0*100, s.Mastery, 1e-9)
	assert.InDelta(t, 50.0, s.LongTermRatio, 1e-9)
	assert.Equal(t, []BoxCount{{1, 2}, {20, 1}, {30, 1}}, s.Boxes)
	assert.Equal(t, []DateCount{{"2024-01-01", 2}, {"2024-01-03", 3}, {"2024-01-05", 4}}, s.Timeline)
	assert.Equal(t, []DateCount{{"2024-01-02", 2}, {"2024-01-10", 1}, {"2024-02-15", 1}}, s.Workload)
}

func TestWorkloadIsCapped(t *testing.T) {
	var cards []domain.Card
	start := domain.MustParseDate("2024-01-01")
	for i := 0; i < 45; i++ {
		cards = append(cards, domain.Card{Box: 1, CreationDate: start, NextReviewDate: start.AddDays(i)})
	}
	s := Compute(cards, 60, start)
	assert.Len(t, s.Workload, WorkloadDays)
	assert.Equal(t, "2024-01-01", s.Workload[0].Date)
}
