package clickhouse

import (
	"context"
	"fmt"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// DataPointStore implements storage.DataPointStore using ClickHouse.
//
// The archive is append-only. Entities are stored as parallel arrays since
// nested structures complicate batch inserts without buying anything for
// the scan-heavy read patterns here.
type DataPointStore struct {
	conn *Conn
}

// NewDataPointStore creates a new DataPointStore.
func NewDataPointStore(conn *Conn) *DataPointStore {
	return &DataPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DataPointStore = (*DataPointStore)(nil)

// InsertBulk archives a batch of data points.
func (s *DataPointStore) InsertBulk(ctx context.Context, points []*domain.DataPoint) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if p == nil || p.Source == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO data_points (
			timestamp_ms, source, value, volume, sentiment, velocity,
			keywords, entity_types, entity_names, entity_relevances,
			geography, industries
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		entityTypes, entityNames, entityRelevances := splitEntities(p.Entities)
		err = batch.Append(
			p.TimestampMs, p.Source, p.Value,
			p.Volume, p.Sentiment, p.Velocity,
			emptyIfNil(p.Keywords),
			entityTypes, entityNames, entityRelevances,
			emptyIfNil(p.Geography), emptyIfNil(p.Industries),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySource retrieves all points from a source, ordered by timestamp ASC.
func (s *DataPointStore) GetBySource(ctx context.Context, source string) ([]*domain.DataPoint, error) {
	query := `
		SELECT timestamp_ms, source, value, volume, sentiment, velocity,
		       keywords, entity_types, entity_names, entity_relevances,
		       geography, industries
		FROM data_points
		WHERE source = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("query by source: %w", err)
	}
	defer rows.Close()

	return scanDataPoints(rows)
}

// GetByTimeRange retrieves points within [start, end] (inclusive).
func (s *DataPointStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DataPoint, error) {
	query := `
		SELECT timestamp_ms, source, value, volume, sentiment, velocity,
		       keywords, entity_types, entity_names, entity_relevances,
		       geography, industries
		FROM data_points
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanDataPoints(rows)
}

// scanDataPoints scans multiple rows.
func scanDataPoints(rows chRows) ([]*domain.DataPoint, error) {
	var points []*domain.DataPoint

	for rows.Next() {
		var p domain.DataPoint
		var keywords, entityTypes, entityNames, geography, industries []string
		var entityRelevances []float64

		err := rows.Scan(
			&p.TimestampMs, &p.Source, &p.Value,
			&p.Volume, &p.Sentiment, &p.Velocity,
			&keywords, &entityTypes, &entityNames, &entityRelevances,
			&geography, &industries,
		)
		if err != nil {
			return nil, fmt.Errorf("scan data point row: %w", err)
		}

		p.Keywords = nilIfEmpty(keywords)
		p.Entities = joinEntities(entityTypes, entityNames, entityRelevances)
		p.Geography = nilIfEmpty(geography)
		p.Industries = nilIfEmpty(industries)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data point rows: %w", err)
	}

	return points, nil
}

// splitEntities decomposes entities into the parallel column arrays.
func splitEntities(entities []domain.Entity) ([]string, []string, []float64) {
	types := make([]string, len(entities))
	names := make([]string, len(entities))
	relevances := make([]float64, len(entities))
	for i, e := range entities {
		types[i] = string(e.Type)
		names[i] = e.Name
		relevances[i] = e.Relevance
	}
	return types, names, relevances
}

// joinEntities recomposes entities from the parallel column arrays.
func joinEntities(types, names []string, relevances []float64) []domain.Entity {
	if len(names) == 0 {
		return nil
	}
	entities := make([]domain.Entity, len(names))
	for i := range names {
		entities[i] = domain.Entity{
			Type:      domain.EntityType(types[i]),
			Name:      names[i],
			Relevance: relevances[i],
		}
	}
	return entities
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}
