package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

// DefaultGeminiModel is the Gemini embedding model used for the collection.
const DefaultGeminiModel = "text-embedding-004"

// GeminiConfig configures GeminiEmbedder.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	// Retry defaults to the errors package backoff when zero.
	Retry ferrors.RetryConfig
}

// GeminiEmbedder embeds text with the Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
	cfg    GeminiConfig

	mu     sync.RWMutex
	closed bool
}

// NewGeminiEmbedder creates a Gemini client. The key is required.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ferrors.New(ferrors.ErrCodeMissingSecret, "gemini api key is not set", nil).
			WithSuggestion("Set GOOGLE_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeEmbeddingFailed, "create gemini client", err)
	}
	return &GeminiEmbedder{client: client, cfg: cfg}, nil
}

// Embed generates the embedding for a single text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of at most BatchSize.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
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
		vecs, err := e.embed(ctx, batch, task)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *GeminiEmbedder) embed(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(truncate(t), genai.RoleUser)
	}

	dims := int32(e.cfg.Dimensions)
	cfg := &genai.EmbedContentConfig{
		TaskType:             string(task),
		OutputDimensionality: &dims,
	}

	retry := retryPolicy(ctx, e.cfg.Retry, geminiRetryable)

	resp, err := ferrors.RetryWithResult(ctx, retry, func() (*genai.EmbedContentResponse, error) {
		return e.client.Models.EmbedContent(ctx, e.cfg.Model, contents, cfg)
	})
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeEmbeddingFailed, "gemini embed", err).
			WithDetail("model", e.cfg.Model)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, ferrors.New(ferrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts)), nil)
	}

	vecs := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.cfg.Dimensions {
			return nil, ferrors.New(ferrors.ErrCodeDimensionMismatch, "gemini embedding has wrong dimension", nil).
				WithDetail("want", fmt.Sprint(e.cfg.Dimensions))
		}
		vecs[i] = normalizeVector(emb.Values)
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *GeminiEmbedder) Dimensions() int { return e.cfg.Dimensions }

// ModelName returns the model identifier.
func (e *GeminiEmbedder) ModelName() string { return e.cfg.Model }

// Close marks the embedder closed. The genai client holds no resources.
func (e *GeminiEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func geminiRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	return true
}
