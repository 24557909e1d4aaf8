package memory

import (
	"context"
	"sync"

	"skillswap/internal/app/middleware"
)

// IdempotencyStore keeps replayable command results for the process lifetime.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]middleware.IdempotencyRecord)}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

// Save keeps the first record stored under a key.
func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[rec.Key]; !exists {
		s.items[rec.Key] = rec
	}
	return nil
}

// Inbox remembers consumed message ids per consumer.
type Inbox struct {
	mu       sync.Mutex
	consumer string
	seen     map[string]struct{}
}

func NewInbox(consumer string) *Inbox {
	return &Inbox{consumer: consumer, seen: make(map[string]struct{})}
}

// Seen records eventID and reports whether it was already recorded.
func (i *Inbox) Seen(_ context.Context, eventID string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[eventID]; ok {
		return true, nil
	}
	i.seen[eventID] = struct{}{}
	return false, nil
}

func (i *Inbox) Forget(_ context.Context, eventID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen, eventID)
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
