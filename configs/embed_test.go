package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukketsvane/frivillig-db/internal/config"
)

func TestProjectConfigTemplate_MatchesDefaults(t *testing.T) {
	// Given: the template written as a project config
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frivillig.yaml"), []byte(ProjectConfigTemplate), 0o644))

	// When: loading it
	cfg, err := config.Load(dir, "")

	// Then: it is valid and repeats the built-in defaults
	require.NoError(t, err)
	def := config.NewConfig()
	assert.Equal(t, def.Server.Addr, cfg.Server.Addr)
	assert.Equal(t, def.Corpus.Shards, cfg.Corpus.Shards)
	assert.Equal(t, def.Vector.Qdrant.Port, cfg.Vector.Qdrant.Port)
	assert.Equal(t, def.Vector.Qdrant.Collection, cfg.Vector.Qdrant.Collection)
	assert.Equal(t, def.Embeddings.Dimensions, cfg.Embeddings.Dimensions)
	assert.Equal(t, def.Search.TieEpsilon, cfg.Search.TieEpsilon)
	assert.Equal(t, def.Search.Boosts, cfg.Search.Boosts)
	assert.Equal(t, def.Search.BackendTimeout, cfg.Search.BackendTimeout)
}
