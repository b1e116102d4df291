package corpus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

func TestDecodeShard(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{"bare array", `[{"navn":"A"},{"navn":"B"}]`, 2, false},
		{"wrapped", `{"organizations":[{"navn":"A"}]}`, 1, false},
		{"wrapped without key", `{"other":[]}`, 0, false},
		{"empty array", `[]`, 0, false},
		{"scalar", `"nope"`, 0, true},
		{"truncated", `[{"navn":"A"`, 0, true},
		{"empty", ``, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orgs, err := decodeShard([]byte(tt.data))
			if tt.wantErr {
				assert.Equal(t, ferrors.ErrCodeShardCorrupt, ferrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, orgs, tt.want)
		})
	}
}

func TestLoader_LoadAll_ConcatenatesInShardOrder(t *testing.T) {
	// Given: three shards, shard 2 only available from the fallback source
	local := &mapSource{name: "local", shards: map[int]string{
		1: `[{"organisasjonsnummer":"100000001","navn":"En"}]`,
		3: `{"organizations":[{"organisasjonsnummer":"100000003","navn":"Tre"}]}`,
	}}
	remote := &mapSource{name: "remote", shards: map[int]string{
		2: `[{"organisasjonsnummer":"100000002","navn":"To"}]`,
		3: `[{"organisasjonsnummer":"999999999","navn":"Never used"}]`,
	}}

	// When: loading
	orgs, report := NewLoader(3, discardLogger(), local, remote).LoadAll(context.Background())

	// Then: local wins where present and order follows shard numbers
	require.Len(t, orgs, 3)
	assert.Equal(t, "En", orgs[0].Navn)
	assert.Equal(t, "To", orgs[1].Navn)
	assert.Equal(t, "Tre", orgs[2].Navn)
	assert.Equal(t, 3, report.ShardsLoaded)
	assert.Equal(t, 0, report.ShardsFailed)
	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestLoader_LoadAll_CorruptLocalFallsBackToRemote(t *testing.T) {
	local := &mapSource{name: "local", shards: map[int]string{1: `[{"navn":`}}
	remote := &mapSource{name: "remote", shards: map[int]string{1: `[{"navn":"Fra nett"}]`}}

	orgs, report := NewLoader(1, discardLogger(), local, remote).LoadAll(context.Background())

	require.Len(t, orgs, 1)
	assert.Equal(t, "Fra nett", orgs[0].Navn)
	assert.Equal(t, 1, report.ShardsLoaded)
}

func TestLoader_LoadAll_AllShardsFailReturnsEmpty(t *testing.T) {
	// Given: nine shards unavailable from both sources
	local := &mapSource{name: "local"}
	remote := &mapSource{name: "remote"}

	// When: loading
	orgs, report := NewLoader(DefaultShardCount, discardLogger(), local, remote).LoadAll(context.Background())

	// Then: an empty corpus, not a failure
	assert.NotNil(t, orgs)
	assert.Empty(t, orgs)
	assert.Equal(t, 0, report.ShardsLoaded)
	assert.Equal(t, 9, report.ShardsFailed)
	assert.Equal(t, int32(9), local.calls.Load())
	assert.Equal(t, int32(9), remote.calls.Load())
}

func TestDirSource_ReadsShardFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "organizations_part_4.json"), []byte(`[]`), 0o644))

	data, err := DirSource{Dir: dir}.Shard(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = DirSource{Dir: dir}.Shard(context.Background(), 5)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHTTPSource_FetchesShard(t *testing.T) {
	// Given: a server publishing shard 1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public/db/organizations_part_1.json" {
			http.NotFound(w, r)
			return
		}
		if !strings.HasPrefix(r.UserAgent(), "frivillig-db/") {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`[{"navn":"Fjernlag"}]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/public/db/", HTTPOptions{Timeout: time.Second})

	// When: fetching an existing and a missing shard
	data, err := src.Shard(context.Background(), 1)
	_, missingErr := src.Shard(context.Background(), 2)

	// Then: the first succeeds and the 404 is an error
	require.NoError(t, err)
	assert.JSONEq(t, `[{"navn":"Fjernlag"}]`, string(data))
	assert.ErrorContains(t, missingErr, "unexpected status 404")
}

func TestNewHTTPSource_LeavesCallerClientUntouched(t *testing.T) {
	shared := &http.Client{}

	src := NewHTTPSource("https://shards.example", HTTPOptions{Timeout: 2 * time.Second, HTTPClient: shared})

	assert.Zero(t, shared.Timeout)
	assert.Equal(t, 2*time.Second, src.client.HTTPClient.Timeout)
	assert.NotSame(t, shared, src.client.HTTPClient)
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, HTTPOptions{RetryMax: 2, RetryWait: time.Millisecond})

	data, err := src.Shard(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.Equal(t, int32(2), hits.Load())
}
