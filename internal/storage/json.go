package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/conorfennell/leitbox/internal/domain"
)

// JSONRepository keeps the collection as one indented JSON array.
type JSONRepository struct {
	path string
}

func NewJSONRepository(path string) *JSONRepository {
	return &JSONRepository{path: path}
}

// ListAll reads the file. A missing file is an empty collection, and so is a
// malformed one, which is logged.
func (r *JSONRepository) ListAll() ([]domain.Card, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Card{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cards file %s: %w", r.path, err)
	}

	var cards []domain.Card
	if err := json.Unmarshal(b, &cards); err != nil {
		slog.Warn("Cards file is malformed, treating as empty", "path", r.path, "error", err)
		return []domain.Card{}, nil
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	return cards, nil
}

// SaveAll writes the collection to a temporary file and renames it over the
// previous one.
func (r *JSONRepository) SaveAll(cards []domain.Card) error {
	if cards == nil {
		cards = []domain.Card{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(cards); err != nil {
		return fmt.Errorf("failed to encode cards: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".cards-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cards: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace cards file %s: %w", r.path, err)
	}
	return nil
}

func (r *JSONRepository) Close() error { return nil }
