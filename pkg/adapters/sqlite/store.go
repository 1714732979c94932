package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
)

// Store implements ports.HistoryStore on a single-file SQLite database.
//
// Each history is one row in histories plus one row per post in posts; record lists are
// stored as JSON. A save replaces all posts of the document in one transaction.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path. ":memory:" gives a private
// in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables(ctx context.Context) error {
	histories := `
		CREATE TABLE IF NOT EXISTS histories (
			document_id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			encoding TEXT NOT NULL DEFAULT '',
			sealed TEXT NOT NULL DEFAULT '',
			saved_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, histories); err != nil {
		return fmt.Errorf("failed to create histories table: %w", err)
	}

	posts := `
		CREATE TABLE IF NOT EXISTS posts (
			document_id TEXT NOT NULL REFERENCES histories(document_id) ON DELETE CASCADE,
			number INTEGER NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			records TEXT NOT NULL,
			PRIMARY KEY (document_id, number)
		)
	`
	if _, err := s.db.ExecContext(ctx, posts); err != nil {
		return fmt.Errorf("failed to create posts table: %w", err)
	}
	return nil
}

// Save replaces the stored history of a document.
func (s *Store) Save(ctx context.Context, documentID string, history *domain.History) error {
	if documentID == "" {
		return fmt.Errorf("documentID cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	savedAt := history.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO histories (document_id, position, encoding, sealed, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			position = excluded.position,
			encoding = excluded.encoding,
			sealed = excluded.sealed,
			saved_at = excluded.saved_at
	`, documentID, history.Position(), history.Encoding, history.Sealed, savedAt)
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to clear posts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO posts (document_id, number, label, records) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare post insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range history.Posts {
		records := p.Records
		if records == nil {
			records = []domain.RecordEntry{}
		}
		data, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to marshal post %d: %w", p.Number, err)
		}
		if _, err := stmt.ExecContext(ctx, documentID, p.Number, p.Type, string(data)); err != nil {
			return fmt.Errorf("failed to save post %d: %w", p.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

// Load reads a history with its posts in number order. The stored position must match
// the number of the last post, otherwise the rows were changed behind the store's back.
func (s *Store) Load(ctx context.Context, documentID string) (*domain.History, error) {
	history := &domain.History{DocumentID: documentID}

	var position int
	row := s.db.QueryRowContext(ctx,
		"SELECT position, encoding, sealed, saved_at FROM histories WHERE document_id = ?", documentID)
	if err := row.Scan(&position, &history.Encoding, &history.Sealed, &history.SavedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT number, label, records FROM posts WHERE document_id = ? ORDER BY number", documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p    domain.PostEntry
			data string
		)
		if err := rows.Scan(&p.Number, &p.Type, &data); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &p.Records); err != nil {
			return nil, fmt.Errorf("%w: post %d: %v", domain.ErrCorruptHistory, p.Number, err)
		}
		if len(p.Records) == 0 {
			p.Records = nil
		}
		history.Posts = append(history.Posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	if got := history.Position(); got != position {
		return nil, fmt.Errorf("%w: %s: stored position %d, last post %d", domain.ErrCorruptHistory, documentID, position, got)
	}
	return history, nil
}

// Delete removes a history; its posts go with it.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM histories WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// List returns every stored document ID, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT document_id FROM histories ORDER BY document_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list histories: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
