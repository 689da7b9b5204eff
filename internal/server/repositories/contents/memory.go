package contents

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/server/models"
)

// MemoryRepository keeps content metadata in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]models.Content
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]models.Content)}
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, c *models.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[c.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	}
	r.items[c.ID] = *c
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]models.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Content, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
