package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory. Entries are stored without
// expiration: whether an entry is still usable is decided at read time by
// the freshness policy, not by the store.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	if val, found := m.cache.Get(key); found {
		return val.(Entry), true, nil
	}
	return Entry{}, false, nil
}

func (m *MemoryStore) Put(_ context.Context, entry Entry) (Entry, error) {
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Millisecond)
	m.cache.Set(entry.Key, entry, gocache.NoExpiration)
	return entry, nil
}

func (m *MemoryStore) Purge(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}
