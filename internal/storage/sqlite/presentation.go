// Package sqlite stores presentations in a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

// PresentationStore implements storage.Store on SQLite.
type PresentationStore struct {
	db  *sql.DB
	now func() time.Time
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and its tables.
// ":memory:" gives a private in-memory database.
func Open(path string, logger *slog.Logger) (*PresentationStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("presentation database ready", "path", path)
	return &PresentationStore{db: db, now: time.Now, log: logger.With("store", "sqlite")}, nil
}

func createTables(db *sql.DB) error {
	createPresentations := `
	CREATE TABLE IF NOT EXISTS presentations (
		id TEXT NOT NULL,
		filename TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(createPresentations); err != nil {
		return fmt.Errorf("failed to create presentations table: %w", err)
	}

	createIndex := `CREATE INDEX IF NOT EXISTS idx_presentations_created ON presentations(created_at);`
	if _, err := db.Exec(createIndex); err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}
	return nil
}

// List returns every presentation, newest first.
func (s *PresentationStore) List(ctx context.Context) ([]models.PresentationSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, filename, type, created_at FROM presentations ORDER BY created_at DESC, filename ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list presentations: %w", err)
	}
	defer rows.Close()

	list := []models.PresentationSummary{}
	for rows.Next() {
		var p models.PresentationSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Filename, &p.Type, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan presentation row: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Get returns the presentation stored under filename.
func (s *PresentationStore) Get(ctx context.Context, filename string) (*models.Presentation, error) {
	return get(ctx, s.db, filename)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q querier, filename string) (*models.Presentation, error) {
	var (
		p       models.Presentation
		content string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, filename, type, content, created_at, updated_at FROM presentations WHERE filename = ?`,
		filename,
	).Scan(&p.ID, &p.Name, &p.Filename, &p.Type, &content, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presentation %s: %w", filename, err)
	}
	p.Content = []byte(content)
	return &p, nil
}

// Save upserts a presentation inside one transaction.
func (s *PresentationStore) Save(ctx context.Context, name, filename string, typ models.PresentationType, content []byte) (*models.Presentation, error) {
	key, _, err := storage.Key(name, filename, typ)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := get(ctx, tx, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	p, err := storage.Prepare(existing, name, filename, typ, content, s.now())
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO presentations (id, filename, name, type, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			content = excluded.content,
			updated_at = excluded.updated_at`,
		p.ID, p.Filename, p.Name, p.Type, string(p.Content), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save presentation %s: %w", p.Filename, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit presentation %s: %w", p.Filename, err)
	}

	s.log.Debug("presentation saved", "filename", p.Filename)
	return p, nil
}

// Delete removes the presentation stored under filename.
func (s *PresentationStore) Delete(ctx context.Context, filename string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presentations WHERE filename = ?`, filename)
	if err != nil {
		return fmt.Errorf("failed to delete presentation %s: %w", filename, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *PresentationStore) Close() error {
	return s.db.Close()
}
