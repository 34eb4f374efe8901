package storage

import (
	"context"

	"signal-lab/internal/domain"
)

// SignalStore provides access to emitted signal storage. Signal ids are
// deterministic, so the same underlying phenomenon detected across windows
// maps to one row; Upsert folds repeat detections into the stored signal.
type SignalStore interface {
	// Upsert inserts the signal or, if signal_id already exists, replaces
	// the stored row when the incoming signal carries a newer last_updated.
	Upsert(ctx context.Context, s *domain.Signal) error

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, signalID string) (*domain.Signal, error)

	// GetByType retrieves all signals of a given type, ordered by first_detected ASC.
	GetByType(ctx context.Context, signalType domain.SignalType) ([]*domain.Signal, error)

	// GetByTimeRange retrieves signals first detected within [start, end]
	// (inclusive), ordered by first_detected ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Signal, error)

	// GetTopByStrength retrieves the strongest signals, ordered by strength DESC.
	GetTopByStrength(ctx context.Context, limit int) ([]*domain.Signal, error)
}

// DataPointStore provides access to the raw data point archive.
type DataPointStore interface {
	// InsertBulk archives a batch of data points.
	InsertBulk(ctx context.Context, points []*domain.DataPoint) error

	// GetBySource retrieves all points from a source, ordered by timestamp ASC.
	GetBySource(ctx context.Context, source string) ([]*domain.DataPoint, error)

	// GetByTimeRange retrieves points within [start, end] (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DataPoint, error)
}
