package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/forecast-telemetry/internal/weather"
)

var (
	// ErrNotFound is returned when no batch of the requested kind is stored.
	ErrNotFound = errors.New("no batches stored")
)

// batchHistory holds time-ordered batches of one kind.
type batchHistory struct {
	batches []weather.Batch
}

// MemoryStore is a concurrency-safe in-memory history of published batches.
// It implements weather.Publisher.
type MemoryStore struct {
	mu sync.RWMutex

	// key: batch kind
	data map[weather.BatchKind]*batchHistory

	// retention configuration
	maxHistory int           // max number of batches per kind
	maxAge     time.Duration // optional max age for batches

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[weather.BatchKind]*batchHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Publish stores the batch.
func (s *MemoryStore) Publish(_ context.Context, batch weather.Batch) error {
	s.SaveBatch(batch)
	return nil
}

// SaveBatch appends a batch and enforces retention. The latest batch of each
// kind is always kept.
func (s *MemoryStore) SaveBatch(batch weather.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[batch.Kind]
	if !ok {
		history = &batchHistory{}
		s.data[batch.Kind] = history
	}

	history.batches = append(history.batches, batch)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.batches) > s.maxHistory {
		over := len(history.batches) - s.maxHistory
		history.batches = history.batches[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.batches)-1; i++ {
			if !history.batches[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.batches = history.batches[i:]
	}
}

// Latest returns the most recent batch of a kind.
func (s *MemoryStore) Latest(kind weather.BatchKind) (weather.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[kind]
	if !ok || len(history.batches) == 0 {
		return weather.Batch{}, ErrNotFound
	}
	return history.batches[len(history.batches)-1], nil
}

// Range returns all batches of a kind stamped between from and to (inclusive).
func (s *MemoryStore) Range(kind weather.BatchKind, from, to time.Time) ([]weather.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[kind]
	if !ok || len(history.batches) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.Batch
	for _, b := range history.batches {
		if !b.Timestamp.Before(from) && !b.Timestamp.After(to) {
			result = append(result, b)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
