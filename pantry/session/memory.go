// pantry/session/memory.go
package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Suitable for development and
// single-instance deployments; use RedisStore when running more than one.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*SessionData
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a memory store that sweeps expired sessions every
// cleanupInterval (10 minutes when zero).
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	s := &MemoryStore{
		sessions: make(map[string]*SessionData),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go s.cleanup(cleanupInterval)
	return s
}

// Load retrieves session data by ID.
func (s *MemoryStore) Load(ctx context.Context, id string) (*SessionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(data.ExpiresAt) {
		return nil, ErrExpired
	}
	return copySessionData(data), nil
}

// Save stores a copy of data.
func (s *MemoryStore) Save(ctx context.Context, data *SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[data.ID] = copySessionData(data)
	return nil
}

// Delete removes a session by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
	return nil
}

// Size returns the number of stored sessions.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	defer close(s.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, data := range s.sessions {
		if now.After(data.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}

// copySessionData copies the top-level map; nested slices are replaced
// wholesale by callers, never mutated in place.
func copySessionData(data *SessionData) *SessionData {
	dataCopy := make(map[string]any, len(data.Data))
	for k, v := range data.Data {
		dataCopy[k] = v
	}
	return &SessionData{
		ID:        data.ID,
		Data:      dataCopy,
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}
