//go:build integration

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedis_RoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	r, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	// Given: an empty cache
	_, ok, err := r.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// When: a vector is stored
	require.NoError(t, r.Set(ctx, "k", []float32{0.25, -0.5}))

	// Then: it comes back unchanged with a TTL
	got, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{0.25, -0.5}, got)

	ttl, err := r.client.TTL(ctx, keyPrefix+"k").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}
