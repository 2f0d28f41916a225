//go:build e2e
// +build e2e

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T, ctx context.Context) (*Redis, func()) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	store, err := NewRedis(fmt.Sprintf("redis://%s:%s", host, port.Port()))
	require.NoError(t, err, "failed to create redis store")

	cleanup := func() {
		_ = store.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return store, cleanup
}

func TestRedisStore_E2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, cleanup := setupRedis(t, ctx)
	defer cleanup()

	_, err := store.Get(ctx, KeyData)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyData, []byte(`{}`)))

	value, err := store.Get(ctx, KeyData)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(value))
}

func TestRedisStore_Watch_E2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, cleanup := setupRedis(t, ctx)
	defer cleanup()

	// A second connection plays the other browser view.
	host := store.client.Options().Addr
	other, err := NewRedis("redis://" + host)
	require.NoError(t, err)
	defer other.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	ch, err := store.Watch(watchCtx, KeyData)
	require.NoError(t, err)

	require.NoError(t, other.Set(ctx, KeyData, []byte("v1")))

	select {
	case got := <-ch:
		assert.Equal(t, "v1", string(got))
	case <-time.After(10 * time.Second):
		t.Fatal("no change delivered across connections")
	}

	stopWatch()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(10 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
