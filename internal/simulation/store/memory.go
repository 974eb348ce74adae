package store

import (
	"context"
	"time"

	"github.com/smallbiznis/paystub/internal/cache"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/simulation/domain"
)

// MemoryStore keeps sessions in process. Sessions do not survive restarts
// and are not shared between replicas.
type MemoryStore struct {
	items cache.Cache[string, domain.Session]
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{items: cache.NewTTLCacheWithClock[string, domain.Session](clk)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	session, ok := s.items.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryStore) Save(_ context.Context, session domain.Session, ttl time.Duration) error {
	s.items.Set(session.ID, session, ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.items.Delete(id)
	return nil
}
