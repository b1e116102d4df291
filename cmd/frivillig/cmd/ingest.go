package cmd

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lukketsvane/frivillig-db/internal/config"
	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/ingest"
	"github.com/lukketsvane/frivillig-db/internal/ui"
	"github.com/lukketsvane/frivillig-db/internal/vector"
)

// ingestOptions holds CLI flags for ingest.
type ingestOptions struct {
	target      string
	batchSize   int
	concurrency int
	jsonOut     bool
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed the corpus into the vector collection",
		Long: `Embed every searchable corpus record and write it to the vector
collection: Qdrant, or the local HNSW index file.

Each document reads "Organisasjon: ... Hovedaktivitet: ... Formål: ..."
and carries the record's fields as payload. Points are keyed by the
organization id, so running ingest again replaces earlier vectors.`,
		Example: `  frivillig ingest
  frivillig ingest --target local --batch-size 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.target, "target", "", "Vector target: qdrant or local (default vector.provider)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Documents per embed call (default embeddings.batch_size)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Batches in flight (default embeddings.concurrency)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output the report as JSON")

	return cmd
}

func runIngest(ctx context.Context, out io.Writer, opts ingestOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup, err := commandLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	target := opts.target
	if target == "" {
		target = cfg.Vector.Provider
	}
	if target != config.VectorQdrant && target != config.VectorLocal {
		return ferrors.ValidationError("ingest writes to qdrant or local, got "+target, nil).
			WithSuggestion("Use --target qdrant or --target local")
	}
	if opts.batchSize <= 0 {
		opts.batchSize = cfg.Embeddings.BatchSize
	}
	if opts.concurrency <= 0 {
		opts.concurrency = cfg.Embeddings.Concurrency
	}

	lock := ingest.NewFileLock(filepath.Dir(cfg.Vector.Local.Path))
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	a := &app{cfg: cfg, logger: logger}
	defer func() { _ = a.Close() }()

	e, err := a.newEmbedder(ctx)
	if err != nil {
		return err
	}

	var (
		sink  ingest.Sink
		local *vector.LocalIndex
	)
	switch target {
	case config.VectorLocal:
		if fileExists(cfg.Vector.Local.Path) {
			local, err = vector.LoadLocalIndex(cfg.Vector.Local.Path, nil, logger)
			if err != nil {
				return err
			}
		} else {
			local = vector.NewLocalIndex(e.Dimensions(), nil, logger)
		}
		a.closers = append(a.closers, local.Close)
		sink = local
	default:
		q, err := a.newQdrant(e)
		if err != nil {
			return err
		}
		sink = q
	}

	loader, _ := newCorpus(cfg, logger, nil)
	printer := newPrinter(out, ui.WithForcePlain(opts.jsonOut))
	var progress *ui.Progress
	if !opts.jsonOut {
		progress = printer.NewProgress("Embedding")
	}

	pipelineOpts := []ingest.Option{
		ingest.WithBatchSize(opts.batchSize),
		ingest.WithConcurrency(opts.concurrency),
		ingest.WithLogger(logger),
	}
	if progress != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithProgress(progress.Update))
	}

	report, runErr := ingest.NewPipeline(loader, e, sink, pipelineOpts...).Run(ctx)
	if progress != nil {
		progress.Done()
	}

	if local != nil && report.Written > 0 {
		if err := local.Save(cfg.Vector.Local.Path); err != nil {
			return ferrors.New(ferrors.ErrCodeIndexCorrupt, "failed to save local index", err).
				WithDetail("path", cfg.Vector.Local.Path)
		}
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printer.KeyValue("Loaded", report.Loaded)
		printer.KeyValue("Skipped", report.Skipped)
		printer.KeyValue("Written", report.Written)
		printer.KeyValue("Batches", report.Batches)
		printer.KeyValue("Duration", report.Duration.Round(time.Millisecond))
		if report.ShardsFailed > 0 {
			printer.Warning("%d shards failed to load", report.ShardsFailed)
		}
		if runErr == nil {
			printer.Success("Ingested %d organizations into %s", report.Written, target)
		}
	}
	return runErr
}
