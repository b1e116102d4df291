package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

// isolate points the user config lookup at an empty directory and clears
// the environment variables Load reads.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"FRIVILLIG_ADDR", "FRIVILLIG_LOG_LEVEL", "FRIVILLIG_DB_DRIVER", "DATABASE_URL",
		"FRIVILLIG_VECTOR_PROVIDER", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_API_KEY",
		"GOOGLE_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL", "REDIS_URL",
		"FRIVILLIG_TIE_EPSILON", "FRIVILLIG_BACKEND_TIMEOUT", "FRIVILLIG_EMBEDDINGS_PROVIDER",
		"FRIVILLIG_CORPUS_WATCH",
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 20, cfg.Server.DefaultLimit)
	assert.Equal(t, 100, cfg.Server.MaxLimit)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, filepath.Join("public", "db"), cfg.Corpus.Dir)
	assert.Equal(t, DefaultCorpusURL, cfg.Corpus.BaseURL)
	assert.Equal(t, 9, cfg.Corpus.Shards)
	assert.Equal(t, VectorQdrant, cfg.Vector.Provider)
	assert.Equal(t, 6334, cfg.Vector.Qdrant.Port)
	assert.Equal(t, "frivillig_orgs", cfg.Vector.Qdrant.Collection)
	assert.Equal(t, "text-embedding-004", cfg.Embeddings.Model)
	assert.Equal(t, 768, cfg.Embeddings.Dimensions)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 30, cfg.Search.VectorFetchLimit)
	assert.Equal(t, 100, cfg.Search.RelationalOverFetch)
	assert.Equal(t, 5*time.Second, cfg.Search.BackendTimeout)
	assert.Equal(t, 0.05, cfg.Search.TieEpsilon.Qdrant)
	assert.Equal(t, []BoostConfig{{Keyword: "design", Weight: 5}}, cfg.Search.Boosts)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	// Given: a project file that changes a few settings
	isolate(t)
	dir := t.TempDir()
	yml := `
server:
  addr: ":9090"
database:
  driver: sqlite
  sqlite_path: dev.db
vector:
  provider: local
search:
  backend_timeout: 2s
  tie_epsilon:
    hosted: 0.1
  boosts:
    - keyword: musikk
      weight: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frivillig.yaml"), []byte(yml), 0o644))

	// When: loading
	cfg, err := Load(dir, "")
	require.NoError(t, err)

	// Then: set values win and untouched ones keep their defaults
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "dev.db", cfg.Database.SQLitePath)
	assert.Equal(t, VectorLocal, cfg.Vector.Provider)
	assert.Equal(t, 2*time.Second, cfg.Search.BackendTimeout)
	assert.Equal(t, 0.1, cfg.Search.TieEpsilon.Hosted)
	assert.Equal(t, 0.05, cfg.Search.TieEpsilon.Qdrant)
	assert.Equal(t, []BoostConfig{{Keyword: "musikk", Weight: 7}}, cfg.Search.Boosts)
	assert.Equal(t, 9, cfg.Corpus.Shards)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frivillig.yml"), []byte("corpus:\n  shards: 3\n"), 0o644))

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Corpus.Shards)
}

func TestLoad_UserConfigBelowProjectConfig(t *testing.T) {
	// Given: a user file and a project file setting the same key
	isolate(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "frivillig"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "frivillig", "config.yaml"),
		[]byte("server:\n  addr: \":7000\"\ncorpus:\n  shards: 4\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frivillig.yaml"), []byte("server:\n  addr: \":7001\"\n"), 0o644))

	// When: loading
	cfg, err := Load(dir, "")
	require.NoError(t, err)

	// Then: the project file wins, the user file still applies elsewhere
	assert.Equal(t, ":7001", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Corpus.Shards)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	isolate(t)

	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, ferrors.ErrCodeConfigNotFound, ferrors.GetCode(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	// Given: a project file and environment variables
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frivillig.yaml"), []byte("vector:\n  qdrant:\n    host: filehost\n"), 0o644))
	t.Setenv("QDRANT_HOST", "envhost")
	t.Setenv("QDRANT_PORT", "7334")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/frivillig")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("FRIVILLIG_TIE_EPSILON", "0")
	t.Setenv("FRIVILLIG_BACKEND_TIMEOUT", "750ms")

	// When: loading
	cfg, err := Load(dir, "")
	require.NoError(t, err)

	// Then: the environment wins, including an explicit zero epsilon
	assert.Equal(t, "envhost", cfg.Vector.Qdrant.Host)
	assert.Equal(t, 7334, cfg.Vector.Qdrant.Port)
	assert.Equal(t, "postgres://u:p@db/frivillig", cfg.Database.URL)
	assert.Equal(t, "g-key", cfg.Embeddings.APIKey)
	assert.Equal(t, EpsilonConfig{}, cfg.Search.TieEpsilon)
	assert.Equal(t, 750*time.Millisecond, cfg.Search.BackendTimeout)
}

func TestLoad_OpenAIKeyFollowsProvider(t *testing.T) {
	isolate(t)
	t.Setenv("FRIVILLIG_EMBEDDINGS_PROVIDER", "openai")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "o-key", cfg.Embeddings.APIKey)
	assert.Equal(t, "o-key", cfg.Vector.Hosted.APIKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frivillig.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := Load(dir, "")

	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"bad vector provider", func(c *Config) { c.Vector.Provider = "pinecone" }, "vector.provider"},
		{"bad embeddings provider", func(c *Config) { c.Embeddings.Provider = "ollama" }, "embeddings.provider"},
		{"max limit above 100", func(c *Config) { c.Server.MaxLimit = 101 }, "server.max_limit"},
		{"default above max", func(c *Config) { c.Server.DefaultLimit = 150 }, "server.default_limit"},
		{"no shards", func(c *Config) { c.Corpus.Shards = 0 }, "corpus.shards"},
		{"over-fetch above 100", func(c *Config) { c.Search.RelationalOverFetch = 250 }, "search.relational_over_fetch"},
		{"negative epsilon", func(c *Config) { c.Search.TieEpsilon.Local = -0.1 }, "search.tie_epsilon.local"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestEpsilonConfig_For(t *testing.T) {
	e := EpsilonConfig{Qdrant: 0.01, Hosted: 0.02, Local: 0.03}
	assert.Equal(t, 0.01, e.For(VectorQdrant))
	assert.Equal(t, 0.02, e.For(VectorHosted))
	assert.Equal(t, 0.03, e.For(VectorLocal))
}

func TestRedacted_MasksSecretsOnly(t *testing.T) {
	// Given: a configuration with secrets
	cfg := NewConfig()
	cfg.Database.URL = "postgres://u:secret@db/x"
	cfg.Embeddings.APIKey = "g-key"

	// When: rendering the redacted copy
	var buf bytes.Buffer
	require.NoError(t, cfg.Redacted().WriteYAML(&buf))

	// Then: secrets are masked and the original is unchanged
	assert.NotContains(t, buf.String(), "secret")
	assert.NotContains(t, buf.String(), "g-key")
	assert.Contains(t, buf.String(), "frivillig_orgs")
	assert.Equal(t, "g-key", cfg.Embeddings.APIKey)
}
