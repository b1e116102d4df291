package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultEmbeddingCacheSize is the default number of embeddings kept in
// memory. At 768 dimensions that is about 3MB.
const DefaultEmbeddingCacheSize = 1000

// SecondLevel is a shared cache consulted after the in-process LRU, such as
// Redis. Errors are logged and treated as misses.
type SecondLevel interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// CachedEmbedder wraps an Embedder with an LRU and an optional second level.
type CachedEmbedder struct {
	inner  Embedder
	cache  *lru.Cache[string, []float32]
	second SecondLevel
	logger *slog.Logger
}

// CacheOption configures a CachedEmbedder.
type CacheOption func(*CachedEmbedder)

// WithSecondLevel adds a shared cache behind the LRU.
func WithSecondLevel(s SecondLevel) CacheOption {
	return func(c *CachedEmbedder) { c.second = s }
}

// WithCacheLogger sets the logger used for second-level failures.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *CachedEmbedder) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCachedEmbedder wraps inner. A non-positive size uses the default.
func NewCachedEmbedder(inner Embedder, cacheSize int, opts ...CacheOption) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	c := &CachedEmbedder{
		inner:  inner,
		cache:  cache,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cacheKey is sha256 over model, task and text.
func (c *CachedEmbedder) cacheKey(text string, task TaskType) string {
	combined := c.inner.ModelName() + "\x00" + string(task) + "\x00" + text
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	if vec, ok := c.cache.Get(key); ok {
		return vec, true
	}
	if c.second == nil {
		return nil, false
	}

	vec, ok, err := c.second.Get(ctx, key)
	if err != nil {
		c.logger.Warn("embedding cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok || len(vec) != c.inner.Dimensions() {
		return nil, false
	}
	c.cache.Add(key, vec)
	return vec, true
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	c.cache.Add(key, vec)
	if c.second == nil {
		return
	}
	if err := c.second.Set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache write failed", slog.String("error", err.Error()))
	}
}

// Embed returns a cached embedding if available, otherwise computes and
// caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	key := c.cacheKey(text, task)
	if vec, ok := c.lookup(ctx, key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text, task)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, vec)
	return vec, nil
}

// EmbedBatch checks each text separately and sends only the misses to the
// inner embedder, in one batch.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	uncachedIndices := make([]int, 0, len(texts))
	uncachedTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.lookup(ctx, c.cacheKey(text, task)); ok {
			results[i] = vec
		} else {
			uncachedIndices = append(uncachedIndices, i)
			uncachedTexts = append(uncachedTexts, text)
		}
	}

	if len(uncachedTexts) == 0 {
		return results, nil
	}

	newEmbeddings, err := c.inner.EmbedBatch(ctx, uncachedTexts, task)
	if err != nil {
		return nil, err
	}

	for j, idx := range uncachedIndices {
		results[idx] = newEmbeddings[j]
		c.store(ctx, c.cacheKey(texts[idx], task), newEmbeddings[j])
	}
	return results, nil
}

// Dimensions returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName returns the inner embedder's model.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Close closes the inner embedder.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }

// Inner returns the wrapped embedder.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }

// Len returns the number of in-process entries.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }
