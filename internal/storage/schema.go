package storage

const schema = `
-- One row per card; the table is rewritten as a whole on every save.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    box INTEGER NOT NULL,
    creation_date TEXT NOT NULL,
    next_review_date TEXT NOT NULL,
    last_reviewed_date TEXT,
    current_face TEXT NOT NULL DEFAULT 'recto',
    recto_text TEXT,
    recto_path TEXT,
    verso_text TEXT,
    verso_path TEXT,
    marked INTEGER NOT NULL DEFAULT 0
);
`
