package reportstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/barstock/backend/internal/domain"
)

// storedReport is a serialized report with its expiration
type storedReport struct {
	data       []byte
	expiration time.Time
}

// MemoryStore is a thread-safe in-memory report store with TTL support
type MemoryStore struct {
	data  map[string]storedReport
	ttl   time.Duration
	mutex sync.RWMutex
	done  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a new in-memory report store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	store := &MemoryStore{
		data: make(map[string]storedReport),
		ttl:  ttl,
		done: make(chan struct{}),
	}

	// Start cleanup goroutine to remove expired entries every 10 minutes
	go store.cleanupExpired(10 * time.Minute)

	return store
}

// Save stores a copy of the report. Reports are serialized to JSON the same
// way the redis store does, so later changes to result are not visible.
func (s *MemoryStore) Save(ctx context.Context, result *domain.ImportResult) error {
	if result == nil || result.ID == "" {
		return domain.ErrInvalidRequest
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[result.ID] = storedReport{
		data:       data,
		expiration: time.Now().Add(s.ttl),
	}
	return nil
}

// Get retrieves a report by run id
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.ImportResult, error) {
	s.mutex.RLock()
	item, exists := s.data[id]
	s.mutex.RUnlock()

	if !exists || time.Now().After(item.expiration) {
		return nil, domain.ErrReportNotFound
	}

	var result domain.ImportResult
	if err := json.Unmarshal(item.data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Size returns the current number of stored reports
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// cleanupExpired removes expired reports periodically
func (s *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.removeExpired(time.Now())
		}
	}
}

func (s *MemoryStore) removeExpired(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for id, item := range s.data {
		if now.After(item.expiration) {
			delete(s.data, id)
		}
	}
}
