package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

// PresentationStore keeps presentations in memory. Contents are lost when
// the process exits.
type PresentationStore struct {
	mu            sync.RWMutex                    // guards presentations
	presentations map[string]*models.Presentation // filename -> record
	now           func() time.Time
	log           *slog.Logger
}

// NewPresentationStore creates an empty store.
func NewPresentationStore(logger *slog.Logger) *PresentationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresentationStore{
		presentations: make(map[string]*models.Presentation),
		now:           time.Now,
		log:           logger.With("store", "memory"),
	}
}

// List returns every presentation, newest first.
func (s *PresentationStore) List(ctx context.Context) ([]models.PresentationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.PresentationSummary, 0, len(s.presentations))
	for _, p := range s.presentations {
		list = append(list, p.Summary())
	}
	storage.SortNewestFirst(list)
	return list, nil
}

// Get returns a copy of the presentation stored under filename.
func (s *PresentationStore) Get(ctx context.Context, filename string) (*models.Presentation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.presentations[filename]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(p), nil
}

// Save upserts a presentation by its sanitized filename.
func (s *PresentationStore) Save(ctx context.Context, name, filename string, typ models.PresentationType, content []byte) (*models.Presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, _, err := storage.Key(name, filename, typ)
	if err != nil {
		return nil, err
	}
	p, err := storage.Prepare(s.presentations[key], name, filename, typ, content, s.now())
	if err != nil {
		return nil, err
	}
	s.presentations[p.Filename] = p

	s.log.Debug("presentation saved", "filename", p.Filename, "id", p.ID)
	return clone(p), nil
}

// Delete removes the presentation stored under filename.
func (s *PresentationStore) Delete(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.presentations[filename]; !ok {
		return storage.ErrNotFound
	}
	delete(s.presentations, filename)
	s.log.Debug("presentation deleted", "filename", filename)
	return nil
}

func clone(p *models.Presentation) *models.Presentation {
	out := *p
	out.Content = append([]byte(nil), p.Content...)
	return &out
}
