package storage

import (
	"fmt"

	"github.com/conorfennell/leitbox/internal/domain"
)

// Repository loads and saves the whole card collection as one unit. There is
// no per-card write: callers load everything, change what they need and save
// everything back. Two concurrent writers would lose one side's changes,
// which is accepted for a single user.
type Repository interface {
	ListAll() ([]domain.Card, error)
	SaveAll(cards []domain.Card) error
	Close() error
}

// Config selects and locates the backing store.
type Config struct {
	Driver     string // "json" or "sqlite"
	CardsFile  string
	SQLitePath string
}

// Open returns the repository for cfg.Driver.
func Open(cfg Config) (Repository, error) {
	switch cfg.Driver {
	case "", "json":
		return NewJSONRepository(cfg.CardsFile), nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// FindByID returns the index of the card with id.
func FindByID(cards []domain.Card, id string) (int, error) {
	for i := range cards {
		if cards[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}
