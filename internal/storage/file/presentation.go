// Package file stores presentations as .deck and .md files in a directory,
// with a JSON index holding names, ids and creation times.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

const indexName = "presentations.json"

type indexEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PresentationStore keeps one file per presentation under dir. Files copied
// into dir by hand show up too, named after their filename.
type PresentationStore struct {
	mu    sync.RWMutex
	dir   string
	index map[string]indexEntry // filename -> metadata
	now   func() time.Time
	log   *slog.Logger
}

// NewPresentationStore opens (creating if needed) a presentations directory.
func NewPresentationStore(dir string, logger *slog.Logger) (*PresentationStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create presentations directory: %w", err)
	}
	s := &PresentationStore{
		dir:   dir,
		index: make(map[string]indexEntry),
		now:   time.Now,
		log:   logger.With("store", "file", "dir", dir),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PresentationStore) load() error {
	data, err := os.ReadFile(filepath.Join(s.dir, indexName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read presentation index: %w", err)
	}
	if err := json.Unmarshal(data, &s.index); err != nil {
		// A corrupt index only loses names and ids; the files are still listed.
		s.log.Warn("ignoring unreadable presentation index", "err", err)
		s.index = make(map[string]indexEntry)
	}
	return nil
}

// List returns every .deck and .md file in the directory, newest first.
func (s *PresentationStore) List(ctx context.Context) ([]models.PresentationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read presentations directory: %w", err)
	}
	list := make([]models.PresentationSummary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !storage.ValidFilename(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		list = append(list, s.record(e.Name(), info).Summary())
	}
	storage.SortNewestFirst(list)
	return list, nil
}

// record combines index metadata with file info for a presentation file.
func (s *PresentationStore) record(filename string, info fs.FileInfo) *models.Presentation {
	typ, _ := models.TypeFromFilename(filename)
	p := &models.Presentation{
		Filename: filename,
		Type:     typ,
	}
	if entry, ok := s.index[filename]; ok {
		p.ID, p.Name, p.CreatedAt, p.UpdatedAt = entry.ID, entry.Name, entry.CreatedAt, entry.UpdatedAt
		return p
	}
	p.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(filename)).String()
	p.Name = strings.TrimSuffix(filename, filepath.Ext(filename))
	p.CreatedAt = info.ModTime().UTC()
	p.UpdatedAt = p.CreatedAt
	return p
}

// Get reads a presentation file.
func (s *PresentationStore) Get(ctx context.Context, filename string) (*models.Presentation, error) {
	if !storage.ValidFilename(filename) {
		return nil, storage.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := filepath.Join(s.dir, filename)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	p := s.record(filename, info)
	p.Content = content
	return p, nil
}

// Save writes the presentation file and its index entry atomically.
func (s *PresentationStore) Save(ctx context.Context, name, filename string, typ models.PresentationType, content []byte) (*models.Presentation, error) {
	key, _, err := storage.Key(name, filename, typ)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *models.Presentation
	if info, err := os.Stat(filepath.Join(s.dir, key)); err == nil {
		existing = s.record(key, info)
	}
	p, err := storage.Prepare(existing, name, filename, typ, content, s.now())
	if err != nil {
		return nil, err
	}

	if err := writeAtomic(filepath.Join(s.dir, p.Filename), p.Content); err != nil {
		return nil, err
	}
	s.index[p.Filename] = indexEntry{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
	if err := s.writeIndex(); err != nil {
		return nil, err
	}

	s.log.Debug("presentation saved", "filename", p.Filename)
	return p, nil
}

// Delete removes the presentation file and its index entry.
func (s *PresentationStore) Delete(ctx context.Context, filename string) error {
	if !storage.ValidFilename(filename) {
		return storage.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", filename, err)
	}
	if _, ok := s.index[filename]; ok {
		delete(s.index, filename)
		return s.writeIndex()
	}
	return nil
}

// writeIndex must be called with the lock held.
func (s *PresentationStore) writeIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal presentation index: %w", err)
	}
	return writeAtomic(filepath.Join(s.dir, indexName), data)
}

// writeAtomic writes to a temp file, syncs it and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
