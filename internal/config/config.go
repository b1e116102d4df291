// Package config loads frivillig-db configuration.
//
// Precedence, lowest first:
//  1. Defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/frivillig/config.yaml)
//  3. Project config (frivillig.yaml or frivillig.yml, or an explicit path)
//  4. Environment variables
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/logging"
)

// Vector providers.
const (
	VectorQdrant = "qdrant"
	VectorHosted = "hosted"
	VectorLocal  = "local"
	VectorNone   = "none"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultCorpusURL is where the published shards live when no local copy exists.
const DefaultCorpusURL = "https://raw.githubusercontent.com/lukketsvane/frivillig-db.iverfinne.no/refs/heads/main/public/db"

// Config is the complete configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Vector     VectorConfig     `yaml:"vector"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Cache      CacheConfig      `yaml:"cache"`
	Search     SearchConfig     `yaml:"search"`
	Logging    logging.Config   `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// DefaultLimit applies when a request has no limit parameter.
	DefaultLimit int `yaml:"default_limit"`
	// MaxLimit is the largest accepted limit; larger values are rejected.
	MaxLimit int `yaml:"max_limit"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	URL          string `yaml:"url"`
	SQLitePath   string `yaml:"sqlite_path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	// ConnectRetries bounds retries of the initial ping.
	ConnectRetries int `yaml:"connect_retries"`
}

// CorpusConfig configures the flat-file corpus.
type CorpusConfig struct {
	Dir           string        `yaml:"dir"`
	BaseURL       string        `yaml:"base_url"`
	Shards        int           `yaml:"shards"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	HTTPRetries   int           `yaml:"http_retries"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// VectorConfig configures semantic retrieval.
type VectorConfig struct {
	Provider string        `yaml:"provider"`
	Qdrant   QdrantConfig  `yaml:"qdrant"`
	Hosted   HostedConfig  `yaml:"hosted"`
	Local    LocalConfig   `yaml:"local"`
	Breaker  BreakerConfig `yaml:"breaker"`
}

type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// HostedConfig points at an OpenAI-compatible vector store search endpoint.
type HostedConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	VectorStoreID string `yaml:"vector_store_id"`
}

type LocalConfig struct {
	Path string `yaml:"path"`
}

// BreakerConfig tunes the circuit breaker around the vector service.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// EmbeddingsConfig configures the query and document embedder.
type EmbeddingsConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	Size     int           `yaml:"size"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// SearchConfig tunes the search chain.
type SearchConfig struct {
	DefaultLimit        int           `yaml:"default_limit"`
	VectorFetchLimit    int           `yaml:"vector_fetch_limit"`
	RelationalOverFetch int           `yaml:"relational_over_fetch"`
	BackendTimeout      time.Duration `yaml:"backend_timeout"`
	TieEpsilon          EpsilonConfig `yaml:"tie_epsilon"`
	Boosts              []BoostConfig `yaml:"boosts"`
}

// EpsilonConfig holds the score band per vector backend inside which
// geography decides the order.
type EpsilonConfig struct {
	Qdrant float64 `yaml:"qdrant"`
	Hosted float64 `yaml:"hosted"`
	Local  float64 `yaml:"local"`
}

// For returns the epsilon configured for a vector provider.
func (e EpsilonConfig) For(provider string) float64 {
	switch provider {
	case VectorHosted:
		return e.Hosted
	case VectorLocal:
		return e.Local
	default:
		return e.Qdrant
	}
}

// BoostConfig adds Weight to lexical matches on navn when the query
// contains Keyword.
type BoostConfig struct {
	Keyword string `yaml:"keyword"`
	Weight  int    `yaml:"weight"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	logCfg := logging.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			DefaultLimit:      20,
			MaxLimit:          100,
		},
		Database: DatabaseConfig{
			Driver:         DriverPostgres,
			SQLitePath:     "frivillig.db",
			MaxOpenConns:   10,
			ConnectRetries: 3,
		},
		Corpus: CorpusConfig{
			Dir:           filepath.Join("public", "db"),
			BaseURL:       DefaultCorpusURL,
			Shards:        9,
			HTTPTimeout:   30 * time.Second,
			HTTPRetries:   3,
			WatchDebounce: 500 * time.Millisecond,
		},
		Vector: VectorConfig{
			Provider: VectorQdrant,
			Qdrant: QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				Collection: "frivillig_orgs",
			},
			Hosted: HostedConfig{
				BaseURL: "https://api.openai.com/v1",
			},
			Local: LocalConfig{
				Path: filepath.Join(".frivillig", "vectors.hnsw"),
			},
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		Embeddings: EmbeddingsConfig{
			Provider:    "gemini",
			Model:       "text-embedding-004",
			Dimensions:  768,
			BatchSize:   100,
			Concurrency: 4,
		},
		Cache: CacheConfig{
			Size: 1000,
			TTL:  24 * time.Hour,
		},
		Search: SearchConfig{
			DefaultLimit:        5,
			VectorFetchLimit:    30,
			RelationalOverFetch: 100,
			BackendTimeout:      5 * time.Second,
			TieEpsilon:          EpsilonConfig{Qdrant: 0.05, Hosted: 0.05, Local: 0.05},
			Boosts:              []BoostConfig{{Keyword: "design", Weight: 5}},
		},
		Logging: logCfg,
	}
}

// GetUserConfigPath follows the XDG base directory layout.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "frivillig", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "frivillig", "config.yaml")
	}
	return filepath.Join(home, ".config", "frivillig", "config.yaml")
}

// Load builds the effective configuration. explicit, when set, replaces
// the project file lookup in dir and must exist.
func Load(dir, explicit string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	switch {
	case explicit != "":
		if !fileExists(explicit) {
			return nil, ferrors.New(ferrors.ErrCodeConfigNotFound, "config file not found: "+explicit, os.ErrNotExist).
				WithSuggestion("run 'frivillig config init' or drop --config")
		}
		if err := cfg.loadYAML(explicit); err != nil {
			return nil, err
		}
	default:
		for _, name := range []string{"frivillig.yaml", "frivillig.yml"} {
			if p := filepath.Join(dir, name); fileExists(p) {
				if err := cfg.loadYAML(p); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	setString(&c.Server.Addr, other.Server.Addr)
	setDuration(&c.Server.ReadHeaderTimeout, other.Server.ReadHeaderTimeout)
	setDuration(&c.Server.ShutdownTimeout, other.Server.ShutdownTimeout)
	setInt(&c.Server.DefaultLimit, other.Server.DefaultLimit)
	setInt(&c.Server.MaxLimit, other.Server.MaxLimit)

	setString(&c.Database.Driver, other.Database.Driver)
	setString(&c.Database.URL, other.Database.URL)
	setString(&c.Database.SQLitePath, other.Database.SQLitePath)
	setInt(&c.Database.MaxOpenConns, other.Database.MaxOpenConns)
	setInt(&c.Database.ConnectRetries, other.Database.ConnectRetries)

	setString(&c.Corpus.Dir, other.Corpus.Dir)
	setString(&c.Corpus.BaseURL, other.Corpus.BaseURL)
	setInt(&c.Corpus.Shards, other.Corpus.Shards)
	setDuration(&c.Corpus.HTTPTimeout, other.Corpus.HTTPTimeout)
	setInt(&c.Corpus.HTTPRetries, other.Corpus.HTTPRetries)
	setDuration(&c.Corpus.WatchDebounce, other.Corpus.WatchDebounce)
	if other.Corpus.Watch {
		c.Corpus.Watch = true
	}

	setString(&c.Vector.Provider, other.Vector.Provider)
	setString(&c.Vector.Qdrant.Host, other.Vector.Qdrant.Host)
	setInt(&c.Vector.Qdrant.Port, other.Vector.Qdrant.Port)
	setString(&c.Vector.Qdrant.APIKey, other.Vector.Qdrant.APIKey)
	setString(&c.Vector.Qdrant.Collection, other.Vector.Qdrant.Collection)
	if other.Vector.Qdrant.UseTLS {
		c.Vector.Qdrant.UseTLS = true
	}
	setString(&c.Vector.Hosted.BaseURL, other.Vector.Hosted.BaseURL)
	setString(&c.Vector.Hosted.APIKey, other.Vector.Hosted.APIKey)
	setString(&c.Vector.Hosted.VectorStoreID, other.Vector.Hosted.VectorStoreID)
	setString(&c.Vector.Local.Path, other.Vector.Local.Path)
	if other.Vector.Breaker.MaxFailures != 0 {
		c.Vector.Breaker.MaxFailures = other.Vector.Breaker.MaxFailures
	}
	setDuration(&c.Vector.Breaker.OpenTimeout, other.Vector.Breaker.OpenTimeout)

	setString(&c.Embeddings.Provider, other.Embeddings.Provider)
	setString(&c.Embeddings.Model, other.Embeddings.Model)
	setInt(&c.Embeddings.Dimensions, other.Embeddings.Dimensions)
	setString(&c.Embeddings.APIKey, other.Embeddings.APIKey)
	setString(&c.Embeddings.BaseURL, other.Embeddings.BaseURL)
	setInt(&c.Embeddings.BatchSize, other.Embeddings.BatchSize)
	setInt(&c.Embeddings.Concurrency, other.Embeddings.Concurrency)

	setInt(&c.Cache.Size, other.Cache.Size)
	setString(&c.Cache.RedisURL, other.Cache.RedisURL)
	setDuration(&c.Cache.TTL, other.Cache.TTL)

	setInt(&c.Search.DefaultLimit, other.Search.DefaultLimit)
	setInt(&c.Search.VectorFetchLimit, other.Search.VectorFetchLimit)
	setInt(&c.Search.RelationalOverFetch, other.Search.RelationalOverFetch)
	setDuration(&c.Search.BackendTimeout, other.Search.BackendTimeout)
	setFloat(&c.Search.TieEpsilon.Qdrant, other.Search.TieEpsilon.Qdrant)
	setFloat(&c.Search.TieEpsilon.Hosted, other.Search.TieEpsilon.Hosted)
	setFloat(&c.Search.TieEpsilon.Local, other.Search.TieEpsilon.Local)
	if other.Search.Boosts != nil {
		c.Search.Boosts = other.Search.Boosts
	}

	setString(&c.Logging.Level, other.Logging.Level)
	setString(&c.Logging.Format, other.Logging.Format)
	setString(&c.Logging.FilePath, other.Logging.FilePath)
	setInt(&c.Logging.MaxSizeMB, other.Logging.MaxSizeMB)
	setInt(&c.Logging.MaxFiles, other.Logging.MaxFiles)
}

// applyEnvOverrides applies FRIVILLIG_* variables and the conventional
// provider variables.
func (c *Config) applyEnvOverrides() {
	envString(&c.Server.Addr, "FRIVILLIG_ADDR")
	envString(&c.Logging.Level, "FRIVILLIG_LOG_LEVEL")
	envString(&c.Logging.Format, "FRIVILLIG_LOG_FORMAT")

	envString(&c.Database.Driver, "FRIVILLIG_DB_DRIVER")
	envString(&c.Database.URL, "DATABASE_URL")
	envString(&c.Database.SQLitePath, "FRIVILLIG_SQLITE_PATH")

	envString(&c.Corpus.Dir, "FRIVILLIG_CORPUS_DIR")
	envString(&c.Corpus.BaseURL, "FRIVILLIG_CORPUS_URL")
	if v := os.Getenv("FRIVILLIG_CORPUS_WATCH"); v != "" {
		c.Corpus.Watch = parseBool(v)
	}

	envString(&c.Vector.Provider, "FRIVILLIG_VECTOR_PROVIDER")
	envString(&c.Vector.Qdrant.Host, "QDRANT_HOST")
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Vector.Qdrant.Port = p
		}
	}
	envString(&c.Vector.Qdrant.APIKey, "QDRANT_API_KEY")
	envString(&c.Vector.Qdrant.Collection, "FRIVILLIG_QDRANT_COLLECTION")
	envString(&c.Vector.Hosted.VectorStoreID, "FRIVILLIG_VECTOR_STORE_ID")
	envString(&c.Vector.Hosted.APIKey, "OPENAI_API_KEY")
	envString(&c.Vector.Local.Path, "FRIVILLIG_LOCAL_INDEX")

	envString(&c.Embeddings.Provider, "FRIVILLIG_EMBEDDINGS_PROVIDER")
	envString(&c.Embeddings.Model, "FRIVILLIG_EMBEDDINGS_MODEL")
	envString(&c.Embeddings.BaseURL, "OPENAI_BASE_URL")
	switch c.Embeddings.Provider {
	case "gemini":
		envString(&c.Embeddings.APIKey, "GOOGLE_API_KEY")
	case "openai":
		envString(&c.Embeddings.APIKey, "OPENAI_API_KEY")
	}

	envString(&c.Cache.RedisURL, "REDIS_URL")

	// Explicit zero is allowed here: it disables geographic tie-breaking.
	if v := os.Getenv("FRIVILLIG_TIE_EPSILON"); v != "" {
		if e, err := parseFloat64(v); err == nil && e >= 0 && e <= 1 {
			c.Search.TieEpsilon = EpsilonConfig{Qdrant: e, Hosted: e, Local: e}
		}
	}
	if v := os.Getenv("FRIVILLIG_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Search.BackendTimeout = d
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite', got %q", c.Database.Driver)
	}

	switch c.Vector.Provider {
	case VectorQdrant, VectorHosted, VectorLocal, VectorNone:
	default:
		return fmt.Errorf("vector.provider must be 'qdrant', 'hosted', 'local' or 'none', got %q", c.Vector.Provider)
	}

	switch c.Embeddings.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("embeddings.provider must be 'gemini' or 'openai', got %q", c.Embeddings.Provider)
	}

	if c.Server.MaxLimit < 1 || c.Server.MaxLimit > 100 {
		return fmt.Errorf("server.max_limit must be between 1 and 100, got %d", c.Server.MaxLimit)
	}
	if c.Server.DefaultLimit < 1 || c.Server.DefaultLimit > c.Server.MaxLimit {
		return fmt.Errorf("server.default_limit must be between 1 and %d, got %d", c.Server.MaxLimit, c.Server.DefaultLimit)
	}
	if c.Corpus.Shards < 1 {
		return fmt.Errorf("corpus.shards must be positive, got %d", c.Corpus.Shards)
	}
	if c.Search.RelationalOverFetch < 1 || c.Search.RelationalOverFetch > 100 {
		return fmt.Errorf("search.relational_over_fetch must be between 1 and 100, got %d", c.Search.RelationalOverFetch)
	}
	if c.Search.VectorFetchLimit < 1 {
		return fmt.Errorf("search.vector_fetch_limit must be positive, got %d", c.Search.VectorFetchLimit)
	}
	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	for name, e := range map[string]float64{
		"qdrant": c.Search.TieEpsilon.Qdrant,
		"hosted": c.Search.TieEpsilon.Hosted,
		"local":  c.Search.TieEpsilon.Local,
	} {
		if e < 0 || e > 1 {
			return fmt.Errorf("search.tie_epsilon.%s must be between 0 and 1, got %f", name, e)
		}
	}
	if c.Embeddings.BatchSize < 1 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn' or 'error', got %q", c.Logging.Level)
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Search.Boosts = append([]BoostConfig(nil), c.Search.Boosts...)
	mask(&out.Database.URL)
	mask(&out.Vector.Qdrant.APIKey)
	mask(&out.Vector.Hosted.APIKey)
	mask(&out.Embeddings.APIKey)
	mask(&out.Cache.RedisURL)
	return &out
}

// WriteYAML writes the configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

func mask(s *string) {
	if *s != "" {
		*s = "********"
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
