package memory

import (
	"testing"

	"github.com/Vasu1712/scenyx-present/internal/storage"
	"github.com/Vasu1712/scenyx-present/internal/storage/storagetest"
)

func TestPresentationStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return NewPresentationStore(nil)
	})
}
