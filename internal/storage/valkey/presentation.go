// Package valkey stores presentations in Valkey (or Redis): one JSON value
// per presentation plus a set of known filenames.
package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

type record struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Filename  string                  `json:"filename"`
	Type      models.PresentationType `json:"type"`
	Content   string                  `json:"content"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

func (r record) presentation() *models.Presentation {
	return &models.Presentation{
		ID:        r.ID,
		Name:      r.Name,
		Filename:  r.Filename,
		Type:      r.Type,
		Content:   []byte(r.Content),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// PresentationStore implements storage.Store on Valkey.
type PresentationStore struct {
	client valkey.Client
	prefix string
	// saveMu serializes read-modify-write saves from this process.
	saveMu sync.Mutex
	now    func() time.Time
	log    *slog.Logger
}

// Open connects to the Valkey server at addr. Keys are namespaced by prefix.
func Open(addr, prefix string, logger *slog.Logger) (*PresentationStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:   []string{addr},
		DisableCache:  true,
		ClientSetInfo: valkey.DisableClientSetInfo,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", addr, err)
	}
	return New(client, prefix, logger), nil
}

// New wraps an existing client.
func New(client valkey.Client, prefix string, logger *slog.Logger) *PresentationStore {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "scenyx:"
	}
	return &PresentationStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
		log:    logger.With("store", "valkey"),
	}
}

func (s *PresentationStore) indexKey() string { return s.prefix + "presentations" }

func (s *PresentationStore) key(filename string) string {
	return s.prefix + "presentation:" + filename
}

// List returns every indexed presentation, newest first.
func (s *PresentationStore) List(ctx context.Context) ([]models.PresentationSummary, error) {
	filenames, err := s.client.Do(ctx, s.client.B().Smembers().Key(s.indexKey()).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list presentations: %w", err)
	}

	list := make([]models.PresentationSummary, 0, len(filenames))
	if len(filenames) == 0 {
		return list, nil
	}
	cmds := make(valkey.Commands, 0, len(filenames))
	for _, f := range filenames {
		cmds = append(cmds, s.client.B().Get().Key(s.key(f)).Build())
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		r, err := decode(res)
		if valkey.IsValkeyNil(err) {
			// Indexed but deleted concurrently.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read presentation %s: %w", filenames[i], err)
		}
		list = append(list, r.presentation().Summary())
	}
	storage.SortNewestFirst(list)
	return list, nil
}

func decode(res valkey.ValkeyResult) (record, error) {
	var r record
	raw, err := res.ToString()
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return r, fmt.Errorf("corrupt presentation record: %w", err)
	}
	return r, nil
}

// Get returns the presentation stored under filename.
func (s *PresentationStore) Get(ctx context.Context, filename string) (*models.Presentation, error) {
	r, err := decode(s.client.Do(ctx, s.client.B().Get().Key(s.key(filename)).Build()))
	if valkey.IsValkeyNil(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presentation %s: %w", filename, err)
	}
	return r.presentation(), nil
}

// Save upserts a presentation and adds it to the index.
func (s *PresentationStore) Save(ctx context.Context, name, filename string, typ models.PresentationType, content []byte) (*models.Presentation, error) {
	key, _, err := storage.Key(name, filename, typ)
	if err != nil {
		return nil, err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	existing, err := s.Get(ctx, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	p, err := storage.Prepare(existing, name, filename, typ, content, s.now())
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(record{
		ID:        p.ID,
		Name:      p.Name,
		Filename:  p.Filename,
		Type:      p.Type,
		Content:   string(p.Content),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode presentation %s: %w", p.Filename, err)
	}

	for _, res := range s.client.DoMulti(ctx,
		s.client.B().Set().Key(s.key(p.Filename)).Value(string(raw)).Build(),
		s.client.B().Sadd().Key(s.indexKey()).Member(p.Filename).Build(),
	) {
		if err := res.Error(); err != nil {
			return nil, fmt.Errorf("failed to save presentation %s: %w", p.Filename, err)
		}
	}

	s.log.Debug("presentation saved", "filename", p.Filename)
	return p, nil
}

// Delete removes the presentation and its index entry.
func (s *PresentationStore) Delete(ctx context.Context, filename string) error {
	results := s.client.DoMulti(ctx,
		s.client.B().Del().Key(s.key(filename)).Build(),
		s.client.B().Srem().Key(s.indexKey()).Member(filename).Build(),
	)
	deleted, err := results[0].AsInt64()
	if err != nil {
		return fmt.Errorf("failed to delete presentation %s: %w", filename, err)
	}
	if err := results[1].Error(); err != nil {
		return fmt.Errorf("failed to unindex presentation %s: %w", filename, err)
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the client.
func (s *PresentationStore) Close() {
	s.client.Close()
}
