package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukketsvane/frivillig-db/internal/corpus"
	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/search"
)

func decodeResult(t *testing.T, out string) search.Result {
	t.Helper()
	var res search.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return res
}

func names(orgs []organization.Organization) []string {
	out := make([]string, len(orgs))
	for i := range orgs {
		out[i] = orgs[i].Navn
	}
	return out
}

func TestSearchCmd_LexicalPrefersCallerKommune(t *testing.T) {
	// Given: two chess clubs, one in the caller's kommune
	setupWorkspace(t)

	// When: searching the corpus from Oslo
	out, err := execute(t, "search", "sjakk", "--mode", "lexical", "--kommune", "OSLO", "--json")

	// Then: the Oslo club comes first and the lexical backend answered
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, "lexical", res.Backend)
	require.NotEmpty(t, res.Organizations)
	assert.Equal(t, "Oslo Sjakkselskap", res.Organizations[0].Navn)
	assert.Contains(t, names(res.Organizations), "Bergen Sjakklubb")
}

func TestSearchCmd_RelationalAfterSeed(t *testing.T) {
	// Given: a seeded SQLite database
	setupWorkspace(t)
	_, err := execute(t, "db", "seed")
	require.NoError(t, err)

	// When: searching the database from Bergen
	out, err := execute(t, "search", "sjakk", "--mode", "relational", "--kommune", "BERGEN", "--json")

	// Then: both chess clubs match, Bergen first
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, "relational", res.Backend)
	assert.Equal(t, []string{"Bergen Sjakklubb", "Oslo Sjakkselskap"}, names(res.Organizations))
}

func TestSearchCmd_HybridFallsBackWithoutVector(t *testing.T) {
	// Given: vector search disabled and an empty database
	setupWorkspace(t)
	_, err := execute(t, "db", "init")
	require.NoError(t, err)

	// When: searching in hybrid mode
	out, err := execute(t, "search", "mannskor", "--json")

	// Then: the relational backend answers, even with no rows
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, "relational", res.Backend)
	assert.Empty(t, res.Organizations)
}

func TestSearchCmd_PlainTable(t *testing.T) {
	setupWorkspace(t)

	out, err := execute(t, "search", "kor", "--mode", "lexical", "--plain")

	require.NoError(t, err)
	assert.Contains(t, out, "Bergen Mannskor")
	assert.Contains(t, out, "lexical")
}

func TestSearchCmd_UnknownMode(t *testing.T) {
	setupWorkspace(t)

	_, err := execute(t, "search", "kor", "--mode", "fuzzy")

	require.Error(t, err)
	assert.Equal(t, ferrors.ErrCodeInvalidInput, ferrors.GetCode(err))
}

func TestSearchCmd_LimitOutOfRange(t *testing.T) {
	for _, limit := range []string{"-1", "101"} {
		t.Run(limit, func(t *testing.T) {
			setupWorkspace(t)

			_, err := execute(t, "search", "kor", "--mode", "lexical", "--limit", limit)

			require.Error(t, err)
			assert.Equal(t, ferrors.ErrCodeInvalidLimit, ferrors.GetCode(err))
			assert.Equal(t, ferrors.CategoryValidation, ferrors.GetCategory(err))
		})
	}
}

func TestGetCmd(t *testing.T) {
	t.Run("registry number served from corpus", func(t *testing.T) {
		setupWorkspace(t)

		out, err := execute(t, "get", "971234567", "--json")

		require.NoError(t, err)
		var org organization.Organization
		require.NoError(t, json.Unmarshal([]byte(out), &org))
		assert.Equal(t, "Bergen Sjakklubb", org.Navn)
	})

	t.Run("uuid from database", func(t *testing.T) {
		setupWorkspace(t)
		_, err := execute(t, "db", "seed")
		require.NoError(t, err)

		out, err := execute(t, "get", "2b1f5c3e-8d4a-4e6b-9c7d-0a1b2c3d4e5f")

		require.NoError(t, err)
		assert.Contains(t, out, "Oslo Sjakkselskap")
	})

	t.Run("malformed reference", func(t *testing.T) {
		setupWorkspace(t)

		_, err := execute(t, "get", "12345")

		require.Error(t, err)
		assert.Equal(t, ferrors.ErrCodeInvalidRef, ferrors.GetCode(err))
	})

	t.Run("unknown organization", func(t *testing.T) {
		setupWorkspace(t)
		_, err := execute(t, "db", "init")
		require.NoError(t, err)

		_, err = execute(t, "get", "111111111")

		require.Error(t, err)
		assert.Equal(t, ferrors.ErrCodeNotFound, ferrors.GetCode(err))
	})
}

func TestKommunerCmd(t *testing.T) {
	setupWorkspace(t)
	_, err := execute(t, "db", "seed")
	require.NoError(t, err)

	out, err := execute(t, "kommuner", "--json")

	require.NoError(t, err)
	var kommuner []string
	require.NoError(t, json.Unmarshal([]byte(out), &kommuner))
	assert.ElementsMatch(t, []string{"BERGEN", "OSLO"}, kommuner)
}

func TestDBSeed_Rerun(t *testing.T) {
	// Given: a seeded database
	setupWorkspace(t)
	_, err := execute(t, "db", "seed")
	require.NoError(t, err)

	// When: seeding again
	out, err := execute(t, "db", "seed")

	// Then: it succeeds and reports every record
	require.NoError(t, err)
	assert.Contains(t, out, "of 3 organizations")
}

func TestCorpusStatsCmd(t *testing.T) {
	setupWorkspace(t)

	out, err := execute(t, "corpus", "stats", "--json")

	require.NoError(t, err)
	var stats corpus.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.True(t, stats.Loaded)
	assert.Equal(t, 3, stats.Organizations)
	assert.Equal(t, 1, stats.ShardsLoaded)
}

func TestIngestCmd_RejectsHostedTarget(t *testing.T) {
	setupWorkspace(t)

	_, err := execute(t, "ingest", "--target", "hosted")

	require.Error(t, err)
	assert.Equal(t, ferrors.ErrCodeInvalidInput, ferrors.GetCode(err))
}

func TestDoctorCmd_DegradedWithoutVector(t *testing.T) {
	// Given: a reachable SQLite database and vector search disabled
	setupWorkspace(t)

	// When: running the dependency check
	out, err := execute(t, "doctor", "--json")

	// Then: the database passes and the report is degraded, not failed
	require.NoError(t, err)
	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "degraded", report.Status)
	require.NotEmpty(t, report.Checks)
	assert.Equal(t, "database", report.Checks[0].Name)
	assert.Equal(t, "pass", report.Checks[0].Status)
}
