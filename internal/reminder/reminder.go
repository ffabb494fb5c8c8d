// Package reminder runs the daily housekeeping job of a serving instance.
package reminder

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// SessionTTL is how long an untouched session checkpoint is kept.
const SessionTTL = 24 * time.Hour

// DueCounter reports how many cards are due today and how many are marked.
type DueCounter interface {
	Counts() (due, marked int, err error)
}

// Pruner removes session checkpoints last written before cutoff.
type Pruner interface {
	Prune(cutoff time.Time) (int, error)
}

// Scheduler logs the due count and prunes stale sessions once a day.
type Scheduler struct {
	scheduler *gocron.Scheduler
	deck      DueCounter
	sessions  Pruner
	now       func() time.Time
}

// New creates a scheduler running at the local time at ("HH:MM").
func New(at string, deck DueCounter, sessions Pruner) (*Scheduler, error) {
	s := &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		deck:      deck,
		sessions:  sessions,
		now:       time.Now,
	}
	if _, err := s.scheduler.Every(1).Day().At(at).Do(s.Run); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder at %q: %w", at, err)
	}
	return s, nil
}

// Start runs the job in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
	_, next := s.scheduler.NextRun()
	slog.Info("Reminder scheduled", "next_run", next)
}

// Stop terminates the scheduled job.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Run performs one reminder pass.
func (s *Scheduler) Run() {
	due, marked, err := s.deck.Counts()
	if err != nil {
		slog.Error("Failed to count due cards", "error", err)
	} else if due > 0 {
		slog.Info("Cards due for review", "due", due, "marked", marked)
	} else {
		slog.Info("No cards due today", "marked", marked)
	}

	pruned, err := s.sessions.Prune(s.now().Add(-SessionTTL))
	if err != nil {
		slog.Error("Failed to prune review sessions", "error", err)
		return
	}
	if pruned > 0 {
		slog.Info("Pruned stale review sessions", "count", pruned)
	}
}
