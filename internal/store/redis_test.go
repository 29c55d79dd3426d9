package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"CycleDCA/internal/model"
)

func setupRedis(t *testing.T) *RedisStore {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	s, err := NewRedisStore(ctx, host+":"+port.Port(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()
	s := setupRedis(t)
	key := SeriesKey("BTC", model.ResolutionDaily)

	_, err := s.LoadSeries(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSeries(ctx, &Entry{Key: key, Series: series(60000, 61000), UpdatedAt: at}))
	e, err := s.LoadSeries(ctx, key)
	require.NoError(t, err)
	assert.True(t, at.Equal(e.UpdatedAt))
	require.Len(t, e.Series, 2)
	assert.Equal(t, 61000.0, e.Series[1].Price)

	require.NoError(t, s.RecordUpsert(ctx, "BTC", &UpsertRecord{Date: "2024-05-01", Price: 61000, Action: model.ActionCreated, RecordedAt: at}))
	hist, err := s.UpsertHistory(ctx, "BTC", 5)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "2024-05-01", hist[0].Date)

	require.NoError(t, s.DeleteSeries(ctx, key))
	_, err = s.LoadSeries(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}
