// Package sqlite persists document records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
	"github.com/cognicore/uniscrape/pkg/uniscrape/metrics"
	"github.com/cognicore/uniscrape/pkg/uniscrape/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store on SQLite.
type Store struct {
	db  *sql.DB
	ids *store.IDs
	now func() time.Time
}

// Open opens a SQLite database with WAL mode enabled and creates the
// schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, ids: store.NewIDs(), now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	title TEXT,
	date TEXT,
	institution TEXT,
	language TEXT,
	type TEXT,
	metrics TEXT,
	content TEXT NOT NULL,
	stored_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source);
CREATE INDEX IF NOT EXISTS idx_documents_institution ON documents(institution);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Append implements store.Store.
func (s *Store) Append(ctx context.Context, r store.Record) (string, error) {
	var metricsJSON []byte
	if r.Metadata.Metrics != nil {
		var err error
		if metricsJSON, err = json.Marshal(r.Metadata.Metrics); err != nil {
			return "", err
		}
	}

	now := s.now()
	id := s.ids.New(now)
	const stmt = `
INSERT INTO documents (id, source, title, date, institution, language, type, metrics, content, stored_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	m := r.Metadata
	_, err := s.db.ExecContext(ctx, stmt,
		id, m.Source, m.Title, m.Date, m.Institution, m.Language, m.Type,
		nullString(metricsJSON), r.Content, now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert document %s: %w", m.Source, err)
	}
	return id, nil
}

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (store.Record, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT source, title, date, institution, language, type, metrics, content
FROM documents WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, fmt.Errorf("document %s: %w", id, internalerr.ErrNotFound)
	}
	return r, err
}

// BySource returns all records stored for a provenance, oldest first.
func (s *Store) BySource(ctx context.Context, source string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT source, title, date, institution, language, type, metrics, content
FROM documents WHERE source = ? ORDER BY id`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (store.Record, error) {
	var (
		r           store.Record
		title       sql.NullString
		date        sql.NullString
		institution sql.NullString
		language    sql.NullString
		typ         sql.NullString
		metricsJSON sql.NullString
	)
	err := sc.Scan(&r.Metadata.Source, &title, &date, &institution, &language, &typ, &metricsJSON, &r.Content)
	if err != nil {
		return store.Record{}, err
	}
	r.Metadata.Title = title.String
	r.Metadata.Date = date.String
	r.Metadata.Institution = institution.String
	r.Metadata.Language = language.String
	r.Metadata.Type = typ.String
	if metricsJSON.Valid && metricsJSON.String != "" {
		var m metrics.Metrics
		if err := json.Unmarshal([]byte(metricsJSON.String), &m); err != nil {
			return store.Record{}, fmt.Errorf("decode metrics: %w", err)
		}
		r.Metadata.Metrics = &m
	}
	return r, nil
}

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
