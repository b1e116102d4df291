// Package embed turns text into vectors for semantic retrieval. Queries and
// documents are embedded with different task types so that short questions
// land near the longer descriptions they are asking about.
package embed

import (
	"context"
	"math"
	"time"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

const (
	// DefaultDimensions matches text-embedding-004.
	DefaultDimensions = 768

	// DefaultBatchSize is the largest number of texts sent in one request.
	DefaultBatchSize = 100

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 30 * time.Second

	// MaxInputRunes truncates overly long documents before embedding.
	MaxInputRunes = 8000
)

// TaskType tells the model what the vector will be used for.
type TaskType string

const (
	RetrievalQuery    TaskType = "RETRIEVAL_QUERY"
	RetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)

	// EmbedBatch generates embeddings for texts, in order.
	EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// normalizeVector scales v to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// truncate cuts text to MaxInputRunes.
func truncate(text string) string {
	if len(text) <= MaxInputRunes {
		return text
	}
	r := []rune(text)
	if len(r) <= MaxInputRunes {
		return text
	}
	return string(r[:MaxInputRunes])
}

// chunks splits texts into consecutive slices of at most size elements.
func chunks(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		out = append(out, texts[start:min(start+size, len(texts))])
	}
	return out
}

// retryPolicy fills in the default backoff when rc is unset and stops
// retrying once ctx is done or retryable reports a permanent failure.
func retryPolicy(ctx context.Context, rc ferrors.RetryConfig, retryable func(error) bool) ferrors.RetryConfig {
	if rc.InitialDelay == 0 && rc.MaxRetries == 0 {
		rc = ferrors.DefaultRetryConfig()
	}
	rc.ShouldRetry = func(err error) bool {
		return ctx.Err() == nil && retryable(err)
	}
	return rc
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
