package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/lukketsvane/frivillig-db/pkg/version"
)

// DefaultHostedBaseURL is the OpenAI API root.
const DefaultHostedBaseURL = "https://api.openai.com/v1"

// MinQueryRunes is the shortest query worth sending.
const MinQueryRunes = 2

// uuidPattern finds an organization id inside free text.
var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// HostedConfig configures the hosted vector-store search client.
type HostedConfig struct {
	BaseURL       string
	APIKey        string
	VectorStoreID string
	Timeout       time.Duration
	RetryMax      int
	// HTTPClient replaces the underlying transport client, mainly for tests.
	HTTPClient *http.Client
}

// Hosted searches a file-search vector store over HTTP. Documents in the
// store are free text; the organization id is recovered from the text.
type Hosted struct {
	client *retryablehttp.Client
	cfg    HostedConfig
	logger *slog.Logger
}

// NewHosted creates the client.
func NewHosted(cfg HostedConfig, logger *slog.Logger) *Hosted {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHostedBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	if cfg.HTTPClient != nil {
		shared := *cfg.HTTPClient
		client.HTTPClient = &shared
	}
	client.HTTPClient.Timeout = cfg.Timeout

	return &Hosted{
		client: client,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "hosted_vector")),
	}
}

// Name identifies the backend in logs and metrics.
func (h *Hosted) Name() string { return "hosted" }

// Configured reports whether a key and store id are set.
func (h *Hosted) Configured() bool {
	return h.cfg.APIKey != "" && h.cfg.VectorStoreID != ""
}

// Available is Configured; the API has no cheap existence check.
func (h *Hosted) Available(context.Context) bool { return h.Configured() }

type hostedRequest struct {
	Query         string `json:"query"`
	MaxNumResults int    `json:"max_num_results"`
}

type hostedResponse struct {
	Data []struct {
		FileID     string         `json:"file_id"`
		Score      float64        `json:"score"`
		Attributes map[string]any `json:"attributes"`
		Content    []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// SearchVectorStore returns up to limit hits for query. Queries shorter than
// MinQueryRunes, an unconfigured client and every failure return no hits.
// A hit whose text carries no UUID has an empty ID.
func (h *Hosted) SearchVectorStore(ctx context.Context, query string, limit int) []Hit {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryRunes {
		h.logger.Debug("query too short for vector search", slog.String("query", query))
		return []Hit{}
	}
	if !h.Configured() {
		h.logger.Debug("hosted vector store not configured")
		return []Hit{}
	}
	if limit <= 0 {
		limit = 10
	}

	hits, err := h.search(ctx, query, limit)
	if err != nil {
		h.logger.Error("hosted vector search failed", slog.String("error", err.Error()))
		return []Hit{}
	}
	return hits
}

func (h *Hosted) search(ctx context.Context, query string, limit int) ([]Hit, error) {
	body, err := json.Marshal(hostedRequest{Query: query, MaxNumResults: min(limit, 50)})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/vector_stores/%s/search", h.cfg.BaseURL, h.cfg.VectorStoreID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("vector store returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out hostedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode vector store response: %w", err)
	}

	hits := make([]Hit, 0, len(out.Data))
	for _, d := range out.Data {
		texts := make([]string, 0, len(d.Content))
		for _, c := range d.Content {
			if c.Text != "" {
				texts = append(texts, c.Text)
			}
		}
		content := strings.Join(texts, "\n")

		id := uuidPattern.FindString(content)
		if id == "" {
			if s, ok := d.Attributes["id"].(string); ok {
				id = uuidPattern.FindString(s)
			}
		}
		hits = append(hits, Hit{ID: strings.ToLower(id), Score: d.Score, Content: content})
	}

	h.logger.Debug("hosted vector search", slog.Int("hits", len(hits)))
	return hits, nil
}
