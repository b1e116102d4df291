package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/lukketsvane/frivillig-db/pkg/version"
)

// maxShardBytes bounds a single shard download.
const maxShardBytes = 256 << 20

// Source yields the raw bytes of one shard.
type Source interface {
	Name() string
	Shard(ctx context.Context, index int) ([]byte, error)
}

// ShardName returns the file name of shard index (1-based).
func ShardName(index int) string {
	return fmt.Sprintf("organizations_part_%d.json", index)
}

// DirSource reads shards from a local directory.
type DirSource struct {
	Dir string
}

func (s DirSource) Name() string { return "dir:" + s.Dir }

func (s DirSource) Shard(ctx context.Context, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.Dir, ShardName(index)))
}

// HTTPSource fetches shards from a raw-content base URL.
type HTTPSource struct {
	baseURL string
	client  *retryablehttp.Client
}

// HTTPOptions configures an HTTPSource.
type HTTPOptions struct {
	Timeout    time.Duration
	RetryMax   int
	RetryWait  time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewHTTPSource creates a source that GETs {baseURL}/{ShardName(i)}.
func NewHTTPSource(baseURL string, opts HTTPOptions) *HTTPSource {
	client := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		shared := *opts.HTTPClient
		client.HTTPClient = &shared
	}
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	client.RetryMax = opts.RetryMax
	if opts.RetryWait > 0 {
		client.RetryWaitMin = opts.RetryWait
		client.RetryWaitMax = 4 * opts.RetryWait
	}
	if opts.Logger != nil {
		client.Logger = opts.Logger
	} else {
		client.Logger = nil
	}

	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *HTTPSource) Name() string { return "http:" + s.baseURL }

func (s *HTTPSource) Shard(ctx context.Context, index int) ([]byte, error) {
	url := s.baseURL + "/" + ShardName(index)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxShardBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}
