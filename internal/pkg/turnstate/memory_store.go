// internal/pkg/turnstate/memory_store.go
package turnstate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a single-process Store for tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	flows map[string]*Flow
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seen:  make(map[string]time.Time),
		flows: make(map[string]*Flow),
		now:   time.Now,
	}
}

func (s *MemoryStore) FirstDelivery(_ context.Context, tenantID, phone, text string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupKey(tenantID, phone, text)
	now := s.now()
	if exp, ok := s.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.seen[key] = now.Add(window)
	return true, nil
}

func (s *MemoryStore) Flow(_ context.Context, tenantID, phone string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flows[flowKey(tenantID, phone)], nil
}

func (s *MemoryStore) SetFlow(_ context.Context, tenantID, phone string, f *Flow, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[flowKey(tenantID, phone)] = f
	return nil
}

func (s *MemoryStore) ClearFlow(_ context.Context, tenantID, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, flowKey(tenantID, phone))
	return nil
}
