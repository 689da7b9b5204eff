// Package blobstore persists EncryptedBlobs. The store only ever sees
// ciphertext; keys are derived per request and never written here.
package blobstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/cryptox"
)

type Store interface {
	Put(ctx context.Context, key string, blob *cryptox.EncryptedBlob) error
	// Get returns the blob stored under key, or common.ErrorNotFound.
	Get(ctx context.Context, key string) (*cryptox.EncryptedBlob, error)
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]cryptox.EncryptedBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]cryptox.EncryptedBlob)}
}

func (m *MemoryStore) Put(ctx context.Context, key string, blob *cryptox.EncryptedBlob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = cloneBlob(*blob)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*cryptox.EncryptedBlob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := cloneBlob(b)
	return &c, nil
}

func cloneBlob(b cryptox.EncryptedBlob) cryptox.EncryptedBlob {
	return cryptox.EncryptedBlob{
		Ciphertext:     append([]byte(nil), b.Ciphertext...),
		IV:             append([]byte(nil), b.IV...),
		KeyFingerprint: append([]byte(nil), b.KeyFingerprint...),
		AlgorithmID:    b.AlgorithmID,
	}
}
