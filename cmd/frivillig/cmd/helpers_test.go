package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testShard = `[
  {
    "id": "8f14e45f-ceea-467f-a8f5-7d2b3c4e5f60",
    "organisasjonsnummer": "971234567",
    "navn": "Bergen Sjakklubb",
    "aktivitet": "Sjakk for alle aldrar",
    "forretningsadresse_kommune": "BERGEN",
    "forretningsadresse_poststed": "BERGEN",
    "forretningsadresse_postnummer": "5003",
    "fylke": "VESTLAND",
    "registrert_i_frivillighetsregisteret": true
  },
  {
    "id": "2b1f5c3e-8d4a-4e6b-9c7d-0a1b2c3d4e5f",
    "organisasjonsnummer": "987654321",
    "navn": "Oslo Sjakkselskap",
    "aktivitet": "Sjakkturneringar og kurs",
    "forretningsadresse_kommune": "OSLO",
    "forretningsadresse_poststed": "OSLO",
    "forretningsadresse_postnummer": "0150",
    "fylke": "OSLO",
    "registrert_i_frivillighetsregisteret": true
  },
  {
    "id": "c0ffee00-1234-4abc-8def-567890abcdef",
    "organisasjonsnummer": "912345678",
    "navn": "Bergen Mannskor",
    "aktivitet": "Kor og song",
    "forretningsadresse_kommune": "BERGEN",
    "forretningsadresse_poststed": "BERGEN",
    "forretningsadresse_postnummer": "5020",
    "fylke": "VESTLAND",
    "registrert_i_frivillighetsregisteret": true
  }
]`

// setupWorkspace creates a working directory with one corpus shard, a
// SQLite database path and a project config, and isolates the command from
// the caller's environment.
func setupWorkspace(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, key := range []string{
		"DATABASE_URL", "FRIVILLIG_DB_DRIVER", "FRIVILLIG_SQLITE_PATH",
		"FRIVILLIG_CORPUS_DIR", "FRIVILLIG_CORPUS_URL", "FRIVILLIG_CORPUS_WATCH",
		"FRIVILLIG_VECTOR_PROVIDER", "FRIVILLIG_LOG_LEVEL", "REDIS_URL",
	} {
		t.Setenv(key, "")
	}

	shards := filepath.Join(dir, "db")
	require.NoError(t, os.MkdirAll(shards, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(shards, "organizations_part_1.json"), []byte(testShard), 0o644))

	cfg := "database:\n" +
		"  driver: sqlite\n" +
		"  sqlite_path: " + filepath.Join(dir, "frivillig.db") + "\n" +
		"corpus:\n" +
		"  dir: " + shards + "\n" +
		"  shards: 1\n" +
		"vector:\n" +
		"  provider: none\n" +
		"logging:\n" +
		"  file: " + filepath.Join(dir, "cli.log") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frivillig.yaml"), []byte(cfg), 0o644))

	t.Chdir(dir)
	return dir
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}
