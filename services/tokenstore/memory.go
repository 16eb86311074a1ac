package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/schooloffice/core"
)

var NowFunc = time.Now // mockable

type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time // {token ID: expiry}
}

var _ core.TokenBlacklist = (*memoryBlacklist)(nil) // interface compliance check

func NewMemoryBlacklist() *memoryBlacklist {
	return &memoryBlacklist{revoked: make(map[string]time.Time)}
}

func (bl *memoryBlacklist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := NowFunc()

	bl.mu.Lock()
	defer bl.mu.Unlock()

	for id, exp := range bl.revoked {
		if !now.Before(exp) {
			delete(bl.revoked, id)
		}
	}
	bl.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (bl *memoryBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	exp, ok := bl.revoked[tokenID]
	return ok && NowFunc().Before(exp), nil
}
