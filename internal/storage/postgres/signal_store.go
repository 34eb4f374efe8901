package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
//
// Scalar columns carry the fields queries filter and sort on; sources,
// metadata and context are stored as JSONB documents.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const signalColumns = `
	signal_id, signal_type, strength, confidence, trajectory,
	first_detected_ms, last_updated_ms, sources, metadata, context
`

// Upsert inserts the signal or replaces the stored row when the incoming
// signal is at least as fresh. A stale write (older last_updated_ms) is a
// no-op, so replayed windows cannot regress stored signals.
func (s *SignalStore) Upsert(ctx context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	sources, err := json.Marshal(sig.Sources)
	if err != nil {
		return fmt.Errorf("marshal signal sources: %w", err)
	}
	metadata, err := json.Marshal(sig.Metadata)
	if err != nil {
		return fmt.Errorf("marshal signal metadata: %w", err)
	}
	sigContext, err := json.Marshal(sig.Context)
	if err != nil {
		return fmt.Errorf("marshal signal context: %w", err)
	}

	query := `
		INSERT INTO signals (
			signal_id, signal_type, strength, confidence, trajectory,
			first_detected_ms, last_updated_ms, sources, metadata, context
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (signal_id) DO UPDATE SET
			signal_type = EXCLUDED.signal_type,
			strength = EXCLUDED.strength,
			confidence = EXCLUDED.confidence,
			trajectory = EXCLUDED.trajectory,
			first_detected_ms = LEAST(signals.first_detected_ms, EXCLUDED.first_detected_ms),
			last_updated_ms = EXCLUDED.last_updated_ms,
			sources = EXCLUDED.sources,
			metadata = EXCLUDED.metadata,
			context = EXCLUDED.context
		WHERE signals.last_updated_ms <= EXCLUDED.last_updated_ms
	`

	_, err = s.pool.Exec(ctx, query,
		sig.SignalID,
		string(sig.Type),
		sig.Strength,
		sig.Confidence,
		string(sig.Trajectory),
		sig.FirstDetectedMs,
		sig.LastUpdatedMs,
		sources,
		metadata,
		sigContext,
	)
	if err != nil {
		return fmt.Errorf("upsert signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, signalID string) (*domain.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE signal_id = $1`

	row := s.pool.QueryRow(ctx, query, signalID)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return sig, nil
}

// GetByType retrieves all signals of a given type, ordered by first_detected ASC.
func (s *SignalStore) GetByType(ctx context.Context, signalType domain.SignalType) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE signal_type = $1
		ORDER BY first_detected_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(signalType))
	if err != nil {
		return nil, fmt.Errorf("get signals by type: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetByTimeRange retrieves signals first detected within [start, end] (inclusive).
func (s *SignalStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE first_detected_ms >= $1 AND first_detected_ms <= $2
		ORDER BY first_detected_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get signals by time range: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetTopByStrength retrieves the strongest signals, ordered by strength DESC.
func (s *SignalStore) GetTopByStrength(ctx context.Context, limit int) ([]*domain.Signal, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + signalColumns + `
		FROM signals
		ORDER BY strength DESC, signal_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get top signals by strength: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// scanSignal scans a single row into a Signal.
func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var sig domain.Signal
	var typeStr, trajectoryStr string
	var sources, metadata, sigContext []byte

	err := row.Scan(
		&sig.SignalID,
		&typeStr,
		&sig.Strength,
		&sig.Confidence,
		&trajectoryStr,
		&sig.FirstDetectedMs,
		&sig.LastUpdatedMs,
		&sources,
		&metadata,
		&sigContext,
	)
	if err != nil {
		return nil, err
	}

	sig.Type = domain.SignalType(typeStr)
	sig.Trajectory = domain.Trajectory(trajectoryStr)
	if err := json.Unmarshal(sources, &sig.Sources); err != nil {
		return nil, fmt.Errorf("unmarshal signal sources: %w", err)
	}
	if err := json.Unmarshal(metadata, &sig.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal signal metadata: %w", err)
	}
	if err := json.Unmarshal(sigContext, &sig.Context); err != nil {
		return nil, fmt.Errorf("unmarshal signal context: %w", err)
	}
	return &sig, nil
}

// scanSignals scans multiple rows into a slice of Signal.
func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	var signals []*domain.Signal

	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
