package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lukketsvane/frivillig-db/internal/api"
	"github.com/lukketsvane/frivillig-db/internal/logging"
	"github.com/lukketsvane/frivillig-db/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search API",
		Long: `Run the HTTP API: /search, /recommendations, /organizations/{ref},
/kommuner, /healthz, /metrics and the /admin endpoints.

The relational database is required. Vector search is used when
configured and reachable; otherwise recommendations fall back to the
database and the flat-file corpus.`,
		Example: `  frivillig serve
  frivillig serve --addr :9090
  DATABASE_URL=postgres://localhost/frivillig frivillig serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger := slog.Default()
	if !debugMode {
		l, cleanup, err := logging.Setup(cfg.Logging)
		if err != nil {
			return err
		}
		defer cleanup()
		logger = l
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{mode: modeHybrid, requireStore: true, metrics: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(ctx, cfg.Server, api.NewRouter(a.apiDeps()), logger)
	})
	if cfg.Corpus.Watch && cfg.Corpus.Dir != "" {
		w := watcher.New(cfg.Corpus.Dir, cfg.Corpus.WatchDebounce, a.corpus, logger)
		g.Go(func() error { return w.Run(ctx) })
	}

	// Warm the corpus so the first lexical fallback does not pay for it.
	g.Go(func() error {
		a.corpus.Get(ctx)
		return nil
	})

	return g.Wait()
}
