package memory

import (
	"context"
	"sort"
	"sync"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal // keyed by signal_id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.Signal),
	}
}

// Upsert inserts the signal or replaces the stored row when the incoming
// signal is at least as fresh as the stored one.
func (s *SignalStore) Upsert(_ context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.data[sig.SignalID]; exists {
		if sig.LastUpdatedMs < existing.LastUpdatedMs {
			return nil
		}
	}

	// Store a copy to prevent external mutation
	signalCopy := *sig
	s.data[sig.SignalID] = &signalCopy
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, signalID string) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	signalCopy := *sig
	return &signalCopy, nil
}

// GetByType retrieves all signals of a given type, ordered by first_detected ASC.
func (s *SignalStore) GetByType(_ context.Context, signalType domain.SignalType) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if sig.Type == signalType {
			signalCopy := *sig
			result = append(result, &signalCopy)
		}
	}

	sortByFirstDetected(result)
	return result, nil
}

// GetByTimeRange retrieves signals first detected within [start, end] (inclusive).
func (s *SignalStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if sig.FirstDetectedMs >= start && sig.FirstDetectedMs <= end {
			signalCopy := *sig
			result = append(result, &signalCopy)
		}
	}

	sortByFirstDetected(result)
	return result, nil
}

// GetTopByStrength retrieves the strongest signals, ordered by strength DESC.
func (s *SignalStore) GetTopByStrength(_ context.Context, limit int) ([]*domain.Signal, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Signal, 0, len(s.data))
	for _, sig := range s.data {
		signalCopy := *sig
		result = append(result, &signalCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Strength != result[j].Strength {
			return result[i].Strength > result[j].Strength
		}
		return result[i].SignalID < result[j].SignalID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// sortByFirstDetected orders signals by first_detected ASC with id tiebreak.
func sortByFirstDetected(signals []*domain.Signal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].FirstDetectedMs != signals[j].FirstDetectedMs {
			return signals[i].FirstDetectedMs < signals[j].FirstDetectedMs
		}
		return signals[i].SignalID < signals[j].SignalID
	})
}

// Verify interface compliance at compile time.
var _ storage.SignalStore = (*SignalStore)(nil)
