// Package postgres stores presentations in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS presentations (
		id UUID NOT NULL,
		filename TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	listSQL   = `SELECT id, name, filename, type, created_at FROM presentations ORDER BY created_at DESC, filename ASC`
	getSQL    = `SELECT id, name, filename, type, content, created_at, updated_at FROM presentations WHERE filename = $1`
	lockSQL   = getSQL + ` FOR UPDATE`
	upsertSQL = `INSERT INTO presentations (id, filename, name, type, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (filename) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at`
	deleteSQL = `DELETE FROM presentations WHERE filename = $1`
)

// PresentationStore implements storage.Store on PostgreSQL.
type PresentationStore struct {
	db  *sql.DB
	now func() time.Time
	log *slog.Logger
}

// Open connects to PostgreSQL using a DSN and ensures the schema exists.
func Open(ctx context.Context, dataSourceName string, logger *slog.Logger) (*PresentationStore, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := New(db, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info("connected to PostgreSQL")
	return s, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, logger *slog.Logger) *PresentationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresentationStore{db: db, now: time.Now, log: logger.With("store", "postgres")}
}

// Migrate creates the presentations table if it is missing.
func (s *PresentationStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create presentations table: %w", err)
	}
	return nil
}

// List returns every presentation, newest first.
func (s *PresentationStore) List(ctx context.Context) ([]models.PresentationSummary, error) {
	rows, err := s.db.QueryContext(ctx, listSQL)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate presentation rows: %w", err)
	}
	return list, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanOne(ctx context.Context, q querier, query, filename string) (*models.Presentation, error) {
	var (
		p       models.Presentation
		content string
	)
	err := q.QueryRowContext(ctx, query, filename).Scan(
		&p.ID, &p.Name, &p.Filename, &p.Type, &content, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presentation %s: %w", filename, err)
	}
	p.Content = []byte(content)
	return &p, nil
}

// Get returns the presentation stored under filename.
func (s *PresentationStore) Get(ctx context.Context, filename string) (*models.Presentation, error) {
	return scanOne(ctx, s.db, getSQL, filename)
}

// Save upserts a presentation. The existing row is locked so concurrent
// saves of one filename keep its id and creation time.
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

	existing, err := scanOne(ctx, tx, lockSQL, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	p, err := storage.Prepare(existing, name, filename, typ, content, s.now())
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, upsertSQL,
		p.ID, p.Filename, p.Name, string(p.Type), string(p.Content), p.CreatedAt, p.UpdatedAt,
	); err != nil {
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
	result, err := s.db.ExecContext(ctx, deleteSQL, filename)
	if err != nil {
		return fmt.Errorf("failed to delete presentation %s: %w", filename, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *PresentationStore) Close() error {
	return s.db.Close()
}
