package cmd

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect the flat-file corpus",
		Long: `Inspect the flat-file corpus: the organizations_part_N.json shards
read from corpus.dir, or from corpus.base_url when a shard is missing locally.`,
	}

	cmd.AddCommand(newCorpusStatsCmd())

	return cmd
}

func newCorpusStatsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Load every shard and report what was found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCorpusStats(cmd.Context(), cmd.OutOrStdout(), jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")

	return cmd
}

func runCorpusStats(ctx context.Context, out io.Writer, jsonOut bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup, err := commandLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	_, cache := newCorpus(cfg, logger, nil)
	orgs := cache.Get(ctx)
	stats := cache.Stats()

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			return err
		}
	} else {
		searchable := 0
		for i := range orgs {
			if orgs[i].Searchable() {
				searchable++
			}
		}
		p := newPrinter(out)
		p.KeyValue("Organizations", stats.Organizations)
		p.KeyValue("Searchable", searchable)
		p.KeyValue("Shards loaded", stats.ShardsLoaded)
		p.KeyValue("Shards failed", stats.ShardsFailed)
		p.KeyValue("Load time", stats.LoadDuration.Round(time.Millisecond))
	}

	if !stats.Loaded {
		return ferrors.New(ferrors.ErrCodeShardUnavailable, "no corpus shard could be loaded", nil).
			WithSuggestion("Check corpus.dir or corpus.base_url")
	}
	return nil
}
