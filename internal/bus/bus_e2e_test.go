//go:build e2e
// +build e2e

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupNATS(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForListeningPort("4222/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start nats container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return fmt.Sprintf("nats://%s:%s", host, port.Port()), cleanup
}

func TestRequestReply_E2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url, cleanup := setupNATS(t, ctx)
	defer cleanup()

	responder, err := Connect(url)
	require.NoError(t, err)
	defer responder.Close()

	err = responder.Handle(ActionFetchPlaceInfo, "background", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var in struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(payload, &in))
		return map[string]string{"fetched": in.URL}, nil
	})
	require.NoError(t, err)

	caller, err := Connect(url)
	require.NoError(t, err)
	defer caller.Close()

	var out struct {
		Fetched string `json:"fetched"`
	}
	err = caller.Request(ctx, ActionFetchPlaceInfo, map[string]string{"url": "https://map.naver.com/x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "https://map.naver.com/x", out.Fetched)
}

func TestRequestHandlerError_E2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url, cleanup := setupNATS(t, ctx)
	defer cleanup()

	responder, err := Connect(url)
	require.NoError(t, err)
	defer responder.Close()

	err = responder.Handle(ActionAddPlace, "background", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return nil, fmt.Errorf("duplicate place: 100")
	})
	require.NoError(t, err)

	caller, err := Connect(url)
	require.NoError(t, err)
	defer caller.Close()

	err = caller.Request(ctx, ActionAddPlace, map[string]string{"id": "100"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate place")
}

// Handlers in distinct queue groups each see every request; handlers
// sharing a group split them.
func TestQueueGroupIsolation_E2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url, cleanup := setupNATS(t, ctx)
	defer cleanup()

	viewA, err := Connect(url)
	require.NoError(t, err)
	defer viewA.Close()

	viewB, err := Connect(url)
	require.NoError(t, err)
	defer viewB.Close()

	var hitsA, hitsB atomic.Int32
	err = viewA.Handle(ActionGetCurrentPlaceData, "view-a", func(ctx context.Context, payload json.RawMessage) (any, error) {
		hitsA.Add(1)
		return map[string]string{"view": "a"}, nil
	})
	require.NoError(t, err)
	err = viewB.Handle(ActionGetCurrentPlaceData, "view-b", func(ctx context.Context, payload json.RawMessage) (any, error) {
		hitsB.Add(1)
		return map[string]string{"view": "b"}, nil
	})
	require.NoError(t, err)

	caller, err := Connect(url)
	require.NoError(t, err)
	defer caller.Close()

	err = caller.Request(ctx, ActionGetCurrentPlaceData, nil, nil)
	require.NoError(t, err)

	// Both views handled the request, not just the reply winner.
	require.Eventually(t, func() bool {
		return hitsA.Load() == 1 && hitsB.Load() == 1
	}, 5*time.Second, 50*time.Millisecond)
}
