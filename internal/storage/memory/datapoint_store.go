package memory

import (
	"context"
	"sort"
	"sync"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// DataPointStore is an in-memory implementation of storage.DataPointStore.
type DataPointStore struct {
	mu   sync.RWMutex
	data []*domain.DataPoint
}

// NewDataPointStore creates a new in-memory data point store.
func NewDataPointStore() *DataPointStore {
	return &DataPointStore{}
}

// InsertBulk archives a batch of data points.
func (s *DataPointStore) InsertBulk(_ context.Context, points []*domain.DataPoint) error {
	for _, p := range points {
		if p == nil || p.Source == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		pointCopy := *p
		s.data = append(s.data, &pointCopy)
	}
	return nil
}

// GetBySource retrieves all points from a source, ordered by timestamp ASC.
func (s *DataPointStore) GetBySource(_ context.Context, source string) ([]*domain.DataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DataPoint
	for _, p := range s.data {
		if p.Source == source {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sortByTimestamp(result)
	return result, nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive).
func (s *DataPointStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.DataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DataPoint
	for _, p := range s.data {
		if p.TimestampMs >= start && p.TimestampMs <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sortByTimestamp(result)
	return result, nil
}

// sortByTimestamp orders points by timestamp ASC.
func sortByTimestamp(points []*domain.DataPoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})
}

// Verify interface compliance at compile time.
var _ storage.DataPointStore = (*DataPointStore)(nil)
