package embed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCachedEmbedder_ImplementsEmbedder(t *testing.T) {
	var _ Embedder = NewCachedEmbedder(newMockEmbedder(8), 10)
}

func TestCachedEmbedder_Embed_CachesByTextAndTask(t *testing.T) {
	// Given: a cached embedder
	inner := newMockEmbedder(8)
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	// When: embedding the same text twice as a query, once as a document
	v1, err := c.Embed(ctx, "fotball i bergen", RetrievalQuery)
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "fotball i bergen", RetrievalQuery)
	require.NoError(t, err)
	_, err = c.Embed(ctx, "fotball i bergen", RetrievalDocument)
	require.NoError(t, err)

	// Then: the repeated query hits the cache, the document does not
	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(2), inner.embedCalls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestCachedEmbedder_Embed_ErrorsAreNotCached(t *testing.T) {
	inner := newMockEmbedder(8)
	inner.err = errors.New("quota")
	c := NewCachedEmbedder(inner, 10)

	_, err := c.Embed(context.Background(), "x", RetrievalQuery)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCachedEmbedder_EmbedBatch_OnlyMissesReachInner(t *testing.T) {
	inner := newMockEmbedder(8)
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := c.Embed(ctx, "b", RetrievalDocument)
	require.NoError(t, err)

	got, err := c.EmbedBatch(ctx, []string{"a", "b", "ccc"}, RetrievalDocument)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, inner.vector("b"), got[1])
	assert.Equal(t, inner.vector("ccc"), got[2])
	assert.Equal(t, []int{2}, inner.batchSizes)

	_, err = c.EmbedBatch(ctx, []string{"a", "ccc"}, RetrievalDocument)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.batchCalls.Load(), "fully cached batch must not call inner")
}

func TestCachedEmbedder_SecondLevel(t *testing.T) {
	// Given: two processes sharing one second-level cache
	shared := newMapSecondLevel()
	innerA := newMockEmbedder(8)
	innerB := newMockEmbedder(8)
	a := NewCachedEmbedder(innerA, 10, WithSecondLevel(shared))
	b := NewCachedEmbedder(innerB, 10, WithSecondLevel(shared))
	ctx := context.Background()

	// When: the first embeds a query and the second asks for it
	va, err := a.Embed(ctx, "kor", RetrievalQuery)
	require.NoError(t, err)
	vb, err := b.Embed(ctx, "kor", RetrievalQuery)
	require.NoError(t, err)

	// Then: the second is served from the shared level
	assert.Equal(t, va, vb)
	assert.Equal(t, int64(0), innerB.embedCalls.Load())
	assert.Equal(t, 1, shared.sets)
}

func TestCachedEmbedder_SecondLevelFailureIsAMiss(t *testing.T) {
	shared := newMapSecondLevel()
	shared.failGet = errors.New("connection refused")
	inner := newMockEmbedder(8)
	c := NewCachedEmbedder(inner, 10, WithSecondLevel(shared), WithCacheLogger(quietLogger()))

	_, err := c.Embed(context.Background(), "kor", RetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
}

func TestCachedEmbedder_SecondLevelWrongDimensionIsAMiss(t *testing.T) {
	shared := newMapSecondLevel()
	inner := newMockEmbedder(8)
	c := NewCachedEmbedder(inner, 10, WithSecondLevel(shared))
	shared.data[c.cacheKey("kor", RetrievalQuery)] = []float32{1, 2}

	vec, err := c.Embed(context.Background(), "kor", RetrievalQuery)
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestCachedEmbedder_KeyIncludesModel(t *testing.T) {
	a := NewCachedEmbedder(&mockEmbedder{dimensions: 4, modelName: "m1"}, 1)
	b := NewCachedEmbedder(&mockEmbedder{dimensions: 4, modelName: "m2"}, 1)
	assert.NotEqual(t, a.cacheKey("x", RetrievalQuery), b.cacheKey("x", RetrievalQuery))
	assert.Len(t, a.cacheKey("x", RetrievalQuery), 64)
}
