package results

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxEntries = 1000
	DefaultTTL        = 24 * time.Hour
)

// MemoryStore keeps at most maxEntries records, each for at most ttl. The
// least recently used record is evicted first.
type MemoryStore struct {
	cache *expirable.LRU[string, *Record]
}

func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: expirable.NewLRU[string, *Record](maxEntries, nil, ttl)}
}

func (s *MemoryStore) Put(ctx context.Context, sessionID string, r *Record) error {
	if err := prepare(sessionID, r); err != nil {
		return err
	}
	s.cache.Add(sessionID, r.clone())
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	r, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, ErrNotFound
	}
	return r.clone(), nil
}

// Len reports the number of live records.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
