//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client, err := NewClient(ctx, Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_JSONRoundTripAndMiss(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	type payload struct {
		LegalName string `json:"legal_name"`
	}
	var got payload
	found, err := client.GetJSON(ctx, "gstin:missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.SetJSON(ctx, "gstin:27AAPFU0939F1ZV", payload{LegalName: "ACME"}, time.Minute))
	found, err = client.GetJSON(ctx, "gstin:27AAPFU0939F1ZV", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ACME", got.LegalName)
}

func TestClient_LockerIsExclusive(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	lock, err := client.Locker().Obtain(ctx, "lock:test", 5*time.Second, nil)
	require.NoError(t, err)

	_, err = client.Locker().Obtain(ctx, "lock:test", 5*time.Second, nil)
	assert.ErrorIs(t, err, redislock.ErrNotObtained)

	require.NoError(t, lock.Release(ctx))
	again, err := client.Locker().Obtain(ctx, "lock:test", 5*time.Second, nil)
	require.NoError(t, err)
	_ = again.Release(ctx)
}
