package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

// DefaultOpenAIModel is used when OpenAIConfig.Model is empty.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
	// Retry defaults to the errors package backoff when zero.
	Retry ferrors.RetryConfig
}

// OpenAIEmbedder embeds text through any OpenAI-compatible endpoint.
// The API has no task types; queries and documents embed the same way.
type OpenAIEmbedder struct {
	client *openai.Client
	cfg    OpenAIConfig

	mu     sync.RWMutex
	closed bool
}

// NewOpenAIEmbedder creates the client. The key is required.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ferrors.New(ferrors.ErrCodeMissingSecret, "openai api key is not set", nil).
			WithSuggestion("Set OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

// Embed generates the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of at most BatchSize.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string, _ TaskType) ([][]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ferrors.New(ferrors.ErrCodeEmbeddingFailed, "embedder is closed", nil)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for _, batch := range chunks(texts, e.cfg.BatchSize) {
		vecs, err := e.embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = truncate(t)
	}

	req := openai.EmbeddingRequest{
		Input:      input,
		Model:      openai.EmbeddingModel(e.cfg.Model),
		Dimensions: e.cfg.Dimensions,
	}

	retry := retryPolicy(ctx, e.cfg.Retry, openAIRetryable)

	resp, err := ferrors.RetryWithResult(ctx, retry, func() (openai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(ctx, req)
	})
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeEmbeddingFailed, "openai embed", err).
			WithDetail("model", e.cfg.Model)
	}
	if len(resp.Data) != len(texts) {
		return nil, ferrors.New(ferrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts)), nil)
	}

	// Data carries its own index; order is not guaranteed.
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, ferrors.New(ferrors.ErrCodeEmbeddingFailed, "openai embedding index out of range", nil)
		}
		if len(d.Embedding) != e.cfg.Dimensions {
			return nil, ferrors.New(ferrors.ErrCodeDimensionMismatch, "openai embedding has wrong dimension", nil).
				WithDetail("want", fmt.Sprint(e.cfg.Dimensions)).
				WithDetail("got", fmt.Sprint(len(d.Embedding)))
		}
		vecs[d.Index] = normalizeVector(d.Embedding)
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.cfg.Dimensions }

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string { return e.cfg.Model }

// Close marks the embedder closed.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func openAIRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}
