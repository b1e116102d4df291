package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderGemini uses the Gemini API (the default; the collection was
	// built with text-embedding-004).
	ProviderGemini ProviderType = "gemini"

	// ProviderOpenAI uses an OpenAI-compatible endpoint.
	ProviderOpenAI ProviderType = "openai"
)

// ParseProvider maps a config value to a provider. Empty means Gemini.
func ParseProvider(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gemini", "google":
		return ProviderGemini, nil
	case "openai":
		return ProviderOpenAI, nil
	default:
		return "", ferrors.ConfigError(fmt.Sprintf("unknown embeddings provider %q", s), nil).
			WithSuggestion("Use gemini or openai")
	}
}

// Config selects and tunes the embedder built by NewEmbedder.
type Config struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	APIKey     string
	BaseURL    string
	BatchSize  int

	// CacheSize <= 0 uses DefaultEmbeddingCacheSize; DisableCache skips the
	// cache entirely.
	CacheSize    int
	DisableCache bool
	SecondLevel  SecondLevel
	Logger       *slog.Logger
}

// NewEmbedder builds the configured provider wrapped in a CachedEmbedder.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	var (
		embedder Embedder
		err      error
	)

	switch cfg.Provider {
	case ProviderGemini, "":
		embedder, err = NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			BaseURL:    cfg.BaseURL,
		})
	case ProviderOpenAI:
		embedder, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
	default:
		_, err = ParseProvider(string(cfg.Provider))
	}
	if err != nil {
		return nil, err
	}

	if cfg.DisableCache {
		return embedder, nil
	}

	opts := []CacheOption{WithCacheLogger(cfg.Logger)}
	if cfg.SecondLevel != nil {
		opts = append(opts, WithSecondLevel(cfg.SecondLevel))
	}
	return NewCachedEmbedder(embedder, cfg.CacheSize, opts...), nil
}
