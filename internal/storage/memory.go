package storage

import (
	"context"
	"sync"

	"Luanshi/server/internal/models"
)

// MemoryStore keeps encoded rows in process. Loads decode a fresh copy, so
// callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*models.SaveSlot
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*models.SaveSlot)}
}

func (s *MemoryStore) Load(ctx context.Context, slot string) (*models.Save, error) {
	s.mu.RLock()
	row, ok := s.rows[slot]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSlotNotFound
	}
	return models.DecodeSave([]byte(row.Blob))
}

func (s *MemoryStore) Save(ctx context.Context, save *models.Save) error {
	if err := checkSave(save); err != nil {
		return err
	}
	row, err := models.NewSaveSlot(save)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[save.Slot] = row
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]SlotSummary, error) {
	s.mu.RLock()
	list := make([]SlotSummary, 0, len(s.rows))
	for _, row := range s.rows {
		list = append(list, summarize(row))
	}
	s.mu.RUnlock()

	sortSummaries(list)
	return list, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
