package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no checkpoint exists for a session id.
var ErrNotFound = errors.New("review session not found")

// Store checkpoints sessions as one JSON file each, so a review survives a
// restart of the server.
type Store struct {
	Dir string
}

// NewStore creates the checkpoint directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}
	return &Store{Dir: dir}, nil
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

func (st *Store) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return filepath.Join(st.Dir, id+".json"), nil
}

// Save writes the checkpoint for id.
func (st *Store) Save(id string, s Session) error {
	p, err := st.path(id)
	if err != nil {
		return err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return fmt.Errorf("failed to write session %s: %w", id, err)
	}
	return nil
}

// Load reads the checkpoint for id.
func (st *Store) Load(id string) (Session, error) {
	p, err := st.path(id)
	if err != nil {
		return Session{}, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return s, nil
}

// Delete removes the checkpoint for id. Deleting a missing one is fine.
func (st *Store) Delete(id string) error {
	p, err := st.path(id)
	if err != nil {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Prune removes checkpoints last written before cutoff and returns how many
// were removed.
func (st *Store) Prune(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(st.Dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(st.Dir, e.Name())); err != nil {
				slog.Warn("Failed to prune session", "file", e.Name(), "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}
