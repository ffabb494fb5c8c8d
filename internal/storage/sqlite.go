package storage

import (
	"database/sql"
	"fmt"

	"github.com/conorfennell/leitbox/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// SQLiteRepository stores the collection in a SQLite table.
type SQLiteRepository struct {
	conn *sql.DB
}

// OpenSQLite opens the database and ensures the schema is up to date.
func OpenSQLite(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteRepository{conn: db}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.conn.Close()
}

// ListAll returns every card in saved order.
func (r *SQLiteRepository) ListAll() ([]domain.Card, error) {
	rows, err := r.conn.Query(`
		SELECT id, box, creation_date, next_review_date, last_reviewed_date, current_face,
		       recto_text, recto_path, verso_text, verso_path, marked
		FROM cards ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		var (
			rec                  domain.Record
			created, next        string
			lastReviewed         sql.NullString
			face                 string
			rectoText, rectoPath sql.NullString
			versoText, versoPath sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Box,
			&created,
			&next,
			&lastReviewed,
			&face,
			&rectoText,
			&rectoPath,
			&versoText,
			&versoPath,
			&rec.Marked,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}

		if err := rec.CreationDate.UnmarshalText([]byte(created)); err != nil {
			return nil, fmt.Errorf("card %s: %w", rec.ID, err)
		}
		if err := rec.NextReviewDate.UnmarshalText([]byte(next)); err != nil {
			return nil, fmt.Errorf("card %s: %w", rec.ID, err)
		}
		if lastReviewed.Valid && lastReviewed.String != "" {
			d, err := domain.ParseDate(lastReviewed.String)
			if err != nil {
				return nil, fmt.Errorf("card %s: %w", rec.ID, err)
			}
			rec.LastReviewedDate = &d
		}
		rec.CurrentFace = domain.Face(face)
		rec.RectoText = nullToPtr(rectoText)
		rec.RectoPath = nullToPtr(rectoPath)
		rec.VersoText = nullToPtr(versoText)
		rec.VersoPath = nullToPtr(versoPath)

		cards = append(cards, domain.FromRecord(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card rows: %w", err)
	}
	return cards, nil
}

// SaveAll replaces the table content with cards inside one transaction.
func (r *SQLiteRepository) SaveAll(cards []domain.Card) error {
	tx, err := r.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cards`); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO cards (id, position, box, creation_date, next_review_date, last_reviewed_date,
		                   current_face, recto_text, recto_path, verso_text, verso_path, marked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, card := range cards {
		rec := card.Record()
		var lastReviewed sql.NullString
		if rec.LastReviewedDate != nil {
			lastReviewed = sql.NullString{String: rec.LastReviewedDate.String(), Valid: true}
		}
		if _, err := stmt.Exec(
			rec.ID,
			i,
			rec.Box,
			rec.CreationDate.String(),
			rec.NextReviewDate.String(),
			lastReviewed,
			string(rec.CurrentFace),
			ptrToNull(rec.RectoText),
			ptrToNull(rec.RectoPath),
			ptrToNull(rec.VersoText),
			ptrToNull(rec.VersoPath),
			rec.Marked,
		); err != nil {
			return fmt.Errorf("failed to insert card %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cards: %w", err)
	}
	return nil
}

func nullToPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func ptrToNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
