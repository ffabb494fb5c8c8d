package stats

import (
	"sort"

	"github.com/conorfennell/leitbox/internal/domain"
)

// LongTermBox is the first box counted as long-term memory.
const LongTermBox = 20

// WorkloadDays caps how many upcoming review dates Workload lists.
const WorkloadDays = 30

// BoxCount is the number of cards in one box.
type BoxCount struct {
	Box   int `json:"box"`
	Count int `json:"count"`
}

// DateCount is a number of cards attached to a day.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Summary is the dashboard view of a collection.
type Summary struct {
	Total         int         `json:"total"`
	DueToday      int         `json:"due_today"`
	Marked        int         `json:"marked"`
	Mastery       float64     `json:"mastery"`         // percent of the maximum possible box sum
	LongTermRatio float64     `json:"long_term_ratio"` // percent of cards at LongTermBox or above
	Boxes         []BoxCount  `json:"boxes"`
	Timeline      []DateCount `json:"timeline"` // cumulative cards by creation date
	Workload      []DateCount `json:"workload"` // cards per upcoming review date
}

// Compute summarizes cards as of today.
func Compute(cards []domain.Card, maxBox int, today domain.Date) Summary {
	s := Summary{
		Total:    len(cards),
		Boxes:    []BoxCount{},
		Timeline: []DateCount{},
		Workload: []DateCount{},
	}
	if len(cards) == 0 {
		return s
	}

	boxSum, longTerm := 0, 0
	perBox := map[int]int{}
	created := map[string]int{}
	upcoming := map[string]int{}
	for _, c := range cards {
		boxSum += c.Box
		perBox[c.Box]++
		if c.Box >= LongTermBox {
			longTerm++
		}
		if c.DueOnOrBefore(today) {
			s.DueToday++
		}
		if c.Marked {
			s.Marked++
		}
		if !c.CreationDate.IsZero() {
			created[c.CreationDate.String()]++
		}
		if !c.NextReviewDate.IsZero() {
			upcoming[c.NextReviewDate.String()]++
		}
	}

	s.Mastery = float64(boxSum) / float64(len(cards)*maxBox) * 100
	s.LongTermRatio = float64(longTerm) / float64(len(cards)) * 100

	for box, n := range perBox {
		s.Boxes = append(s.Boxes, BoxCount{Box: box, Count: n})
	}
	sort.Slice(s.Boxes, func(i, j int) bool { return s.Boxes[i].Box < s.Boxes[j].Box })

	running := 0
	for _, day := range sortedKeys(created) {
		running += created[day]
		s.Timeline = append(s.Timeline, DateCount{Date: day, Count: running})
	}

	for _, day := range sortedKeys(upcoming) {
		if len(s.Workload) == WorkloadDays {
			break
		}
		s.Workload = append(s.Workload, DateCount{Date: day, Count: upcoming[day]})
	}
	return s
}

// Dates are YYYY-MM-DD, so string order is date order.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
