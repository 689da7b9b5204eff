package grants

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/server/models"
)

// MemoryRepository is an in-process access ledger. It is used when no
// database is configured and loses all grants on restart.
type MemoryRepository struct {
	mu      sync.Mutex
	entries map[string]models.Grant
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]models.Grant)}
}

func (r *MemoryRepository) TryGrant(ctx context.Context, proof, contentID string, now time.Time) (models.Grant, Outcome, error) {
	if err := ctx.Err(); err != nil {
		return models.Grant{}, 0, err
	}

	digest := common.ProofDigest(proof)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[digest]; ok {
		return existing, outcomeFor(existing, contentID), nil
	}

	g := models.Grant{ProofDigest: digest, ContentID: contentID, GrantedAt: now.UTC()}
	r.entries[digest] = g
	return g, NewGrant, nil
}

func (r *MemoryRepository) Lookup(ctx context.Context, proof string) (*models.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.entries[common.ProofDigest(proof)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &g, nil
}

func (r *MemoryRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, g := range r.entries {
		if g.GrantedAt.Before(cutoff) {
			delete(r.entries, k)
			n++
		}
	}
	return n, nil
}
