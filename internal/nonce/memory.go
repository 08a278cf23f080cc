package nonce

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryBackend guarda los nonces en go-cache. La expiración del cache (la
// retención que pasa Store) solo libera memoria; la vigencia la decide Store.
type MemoryBackend struct {
	mu sync.Mutex
	c  *gocache.Cache
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{c: gocache.New(DefaultRetention, 10*time.Minute)}
}

func (m *MemoryBackend) Get(_ context.Context, address string) (Entry, bool, error) {
	v, ok := m.c.Get(address)
	if !ok {
		return Entry{}, false, nil
	}
	return v.(Entry), true, nil
}

func (m *MemoryBackend) Put(_ context.Context, e Entry, keep time.Duration) error {
	m.c.Set(e.Address, e, keep)
	return nil
}

func (m *MemoryBackend) Take(_ context.Context, address string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(address)
	if !ok {
		return Entry{}, false, nil
	}
	m.c.Delete(address)
	return v.(Entry), true, nil
}
