package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

func TestDataPointStore_InsertBulkAndGetBySource(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDataPointStore(conn)
	ctx := context.Background()

	points := []*domain.DataPoint{
		{
			TimestampMs: 1700000060000,
			Source:      "news-feed",
			Value:       ptr(101.5),
			Volume:      42,
			Sentiment:   0.3,
			Velocity:    5.5,
			Keywords:    []string{"robotics", "automation"},
			Entities: []domain.Entity{
				{Type: domain.EntityCompany, Name: "Acme Corp", Relevance: 0.9},
				{Type: domain.EntityTechnology, Name: "cobots", Relevance: 0.7},
			},
			Geography:  []string{"EU"},
			Industries: []string{"manufacturing"},
		},
		{
			TimestampMs: 1700000000000,
			Source:      "news-feed",
			Volume:      10,
			Sentiment:   -0.1,
		},
		{
			TimestampMs: 1700000030000,
			Source:      "patent-db",
			Volume:      3,
		},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	retrieved, err := store.GetBySource(ctx, "news-feed")
	require.NoError(t, err)
	require.Len(t, retrieved, 2)

	// Ordered by timestamp ASC
	assert.Equal(t, int64(1700000000000), retrieved[0].TimestampMs)
	assert.Equal(t, int64(1700000060000), retrieved[1].TimestampMs)

	rich := retrieved[1]
	require.NotNil(t, rich.Value)
	assert.Equal(t, 101.5, *rich.Value)
	assert.Equal(t, []string{"robotics", "automation"}, rich.Keywords)
	assert.Equal(t, points[0].Entities, rich.Entities)
	assert.Equal(t, []string{"EU"}, rich.Geography)
	assert.Equal(t, []string{"manufacturing"}, rich.Industries)

	sparse := retrieved[0]
	assert.Nil(t, sparse.Value)
	assert.Nil(t, sparse.Keywords)
	assert.Nil(t, sparse.Entities)
}

func TestDataPointStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDataPointStore(conn)
	ctx := context.Background()

	points := []*domain.DataPoint{
		{TimestampMs: 1700000000000, Source: "a"},
		{TimestampMs: 1700000060000, Source: "b"},
		{TimestampMs: 1700000120000, Source: "c"},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	retrieved, err := store.GetByTimeRange(ctx, 1700000000000, 1700000060000)
	require.NoError(t, err)
	require.Len(t, retrieved, 2)
	assert.Equal(t, "a", retrieved[0].Source)
	assert.Equal(t, "b", retrieved[1].Source)
}

func TestDataPointStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDataPointStore(conn)
	ctx := context.Background()

	assert.NoError(t, store.InsertBulk(ctx, nil))
}

func TestDataPointStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDataPointStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.DataPoint{{TimestampMs: 1700000000000}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

// ptr is a helper to create pointers for test values
func ptr[T any](v T) *T {
	return &v
}
