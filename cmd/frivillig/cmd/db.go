package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/store"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the relational database",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBSeedCmd())

	return cmd
}

func newDBInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the organizations schema",
		Long: `Create the organizations table, the kommune to fylke mapping and the
organizations_with_fylke view. Existing objects are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDBInit(cmd.Context(), cmd.OutOrStdout(), false)
		},
	}
}

func newDBSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the schema and load the corpus into it",
		Long: `Create the schema, then insert every corpus record. Records already
present (same id) are kept as they are.`,
		Example: `  # Local development database
  FRIVILLIG_DB_DRIVER=sqlite frivillig db seed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDBInit(cmd.Context(), cmd.OutOrStdout(), true)
		},
	}
}

func runDBInit(ctx context.Context, out io.Writer, seed bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup, err := commandLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	p := newPrinter(out)
	if err := store.InitSchema(ctx, st.DB(), st.Dialect()); err != nil {
		return err
	}
	p.Success("Schema ready (%s)", st.Dialect().Name())
	if !seed {
		return nil
	}

	loader, _ := newCorpus(cfg, logger, nil)
	orgs, report := loader.LoadAll(ctx)
	if report.ShardsLoaded == 0 {
		return ferrors.New(ferrors.ErrCodeShardUnavailable, "no corpus shard could be loaded", nil).
			WithSuggestion("Check corpus.dir or corpus.base_url")
	}
	if report.ShardsFailed > 0 {
		p.Warning("%d of %d shards failed to load", report.ShardsFailed, report.ShardsFailed+report.ShardsLoaded)
	}

	n, err := store.InsertOrganizations(ctx, st.DB(), st.Dialect(), orgs)
	if err != nil {
		return err
	}
	p.Success("Inserted %d of %d organizations", n, len(orgs))
	return nil
}
