package cache

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	vec := []float32{0, 1, -1, 0.5, math.MaxFloat32, float32(math.Inf(-1))}

	b := encode(vec)
	assert.Len(t, b, 4*len(vec))
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, b[4:8], "1.0 is little-endian")

	got, err := decode(b)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestDecode_RejectsTruncated(t *testing.T) {
	_, err := decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestConnect_EmptyURLIsDisabled(t *testing.T) {
	r, err := Connect(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "http://not-redis")
	assert.Error(t, err)
}

func TestWithTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() { _ = client.Close() }()

	assert.Equal(t, DefaultTTL, NewRedis(client, WithTTL(0)).ttl)
	assert.Equal(t, time.Hour, NewRedis(client, WithTTL(time.Hour)).ttl)
}
