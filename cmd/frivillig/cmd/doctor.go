package cmd

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		jsonOut bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that dependencies are reachable",
		Long: `Check the database, corpus shards, vector service, Redis cache and
local index directory with the current configuration.

Exits non-zero when a required dependency (the database or write access)
fails. Optional dependencies only warn: searches fall back without them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), jsonOut, verbose)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check timings")

	return cmd
}

func runDoctor(ctx context.Context, out io.Writer, jsonOut, verbose bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup, err := commandLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := newApp(ctx, cfg, logger, appOptions{mode: modeHybrid})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var db, redis preflight.Pinger
	if a.store != nil {
		db = a.store.Ping
	}
	if a.redis != nil {
		redis = a.redis.Health
	}
	var vec preflight.Availability
	if a.vector != nil {
		vec = a.vector
	}

	indexDir := filepath.Dir(cfg.Vector.Local.Path)
	checker := preflight.New(
		preflight.WithOutput(out),
		preflight.WithVerbose(verbose),
		preflight.WithTimeout(cfg.Search.BackendTimeout),
		preflight.WithCheck(preflight.DatabaseCheck(db)),
		preflight.WithCheck(preflight.CorpusCheck(a.corpus)),
		preflight.WithCheck(preflight.VectorCheck(vec)),
		preflight.WithCheck(preflight.RedisCheck(redis)),
		preflight.WithCheck(preflight.WriteAccessCheck(indexDir)),
		preflight.WithCheck(preflight.DiskSpaceCheck(indexDir)),
	)
	results := checker.RunAll(ctx)

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"status": checker.SummaryStatus(results),
			"checks": results,
		}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return ferrors.New(ferrors.ErrCodeDatabaseUnavailable, "required dependency check failed", nil).
			WithSuggestion("Run 'frivillig doctor --verbose' and fix the failed checks")
	}
	return nil
}
