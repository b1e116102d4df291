package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lukketsvane/frivillig-db/internal/api"
	"github.com/lukketsvane/frivillig-db/internal/cache"
	"github.com/lukketsvane/frivillig-db/internal/config"
	"github.com/lukketsvane/frivillig-db/internal/corpus"
	"github.com/lukketsvane/frivillig-db/internal/embed"
	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/search"
	"github.com/lukketsvane/frivillig-db/internal/store"
	"github.com/lukketsvane/frivillig-db/internal/telemetry"
	"github.com/lukketsvane/frivillig-db/internal/vector"
)

// Search modes selectable from the CLI.
const (
	modeHybrid     = "hybrid"
	modeVector     = "vector"
	modeRelational = "relational"
	modeLexical    = "lexical"
)

// wantStore reports whether mode needs the relational store.
func wantStore(mode string) bool { return mode != modeLexical }

// app holds the services wired for one command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *store.Store
	redis   *cache.Redis
	loader  *corpus.Loader
	corpus  *corpus.Cache
	vector  api.VectorStatus
	engine  *search.Engine
	lookup  *search.Lookup
	metrics *telemetry.Metrics
	stats   *telemetry.QueryStats

	closers []func() error
}

// appOptions selects what newApp wires.
type appOptions struct {
	mode string
	// requireStore fails startup when the database is unreachable instead
	// of running without the relational backend.
	requireStore bool
	metrics      bool
}

// newApp wires store, corpus, vector retrieval and the search engine.
// Optional parts that fail to start are logged and left out so the
// engine can still fall back to what remains.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	if opts.mode == "" {
		opts.mode = modeHybrid
	}
	a := &app{cfg: cfg, logger: logger}

	if opts.metrics {
		a.metrics = telemetry.NewMetrics()
		a.stats = telemetry.NewQueryStats(telemetry.DefaultQueryStatsConfig())
	}

	if wantStore(opts.mode) {
		st, err := openStore(ctx, cfg, logger)
		switch {
		case err != nil && opts.requireStore:
			return nil, err
		case err != nil:
			logger.Warn("relational store unavailable, continuing without it", ferrors.LogAttrs(err)...)
		default:
			a.store = st
			a.closers = append(a.closers, st.Close)
		}
	}

	var hook func(corpus.Stats)
	if a.metrics != nil {
		m := a.metrics
		hook = func(s corpus.Stats) { m.SetCorpus(s.Organizations, s.ShardsLoaded, s.ShardsFailed) }
	}
	a.loader, a.corpus = newCorpus(cfg, logger, hook)

	var backends []search.Backend
	if opts.mode == modeHybrid || opts.mode == modeVector {
		vb, status, err := a.newVectorBackend(ctx)
		if err != nil {
			logger.Warn("vector search unavailable, continuing without it", ferrors.LogAttrs(err)...)
		} else if vb != nil {
			backends = append(backends, vb)
			a.vector = status
		}
	}
	if a.store != nil && (opts.mode == modeHybrid || opts.mode == modeRelational) {
		backends = append(backends, &search.RelationalBackend{Store: a.store})
	}
	if opts.mode == modeHybrid || opts.mode == modeLexical {
		backends = append(backends, &search.LexicalBackend{Scorer: corpus.NewScorer(a.corpus, boosts(cfg))})
	}

	engineOpts := []search.EngineOption{
		search.WithBackendTimeout(cfg.Search.BackendTimeout),
		search.WithLogger(logger),
	}
	if a.metrics != nil {
		engineOpts = append(engineOpts, search.WithRecorder(a.metrics))
	}
	a.engine = search.NewEngine(backends, engineOpts...)

	if a.store != nil {
		a.lookup = search.NewLookup(a.corpus, a.store, logger)
	} else {
		a.lookup = search.NewLookup(a.corpus, nil, logger)
	}

	logger.Info("search engine ready",
		slog.String("mode", opts.mode),
		slog.Any("backends", a.engine.Backends()))
	return a, nil
}

// Close releases everything opened by newApp, last opened first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// requireStoreFor returns the store or a storage error naming the command.
func (a *app) requireStoreFor(what string) (*store.Store, error) {
	if a.store == nil {
		return nil, ferrors.StorageError(what+" needs the relational database", nil).
			WithSuggestion("Check database.driver and DATABASE_URL, or use --mode lexical")
	}
	return a.store, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	var opts []store.Option
	opts = append(opts, store.WithOverFetch(cfg.Search.RelationalOverFetch), store.WithLogger(logger))

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := store.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store.New(db, store.SQLite, opts...), nil
	default:
		if cfg.Database.URL == "" {
			return nil, ferrors.ConfigError("database.url is empty", nil).
				WithSuggestion("Set DATABASE_URL or use database.driver: sqlite")
		}
		db, err := store.OpenPostgres(ctx, cfg.Database.URL, store.PostgresOptions{
			MaxOpenConns:   cfg.Database.MaxOpenConns,
			ConnectRetries: cfg.Database.ConnectRetries,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return store.New(db, store.Postgres, opts...), nil
	}
}

func newCorpus(cfg *config.Config, logger *slog.Logger, hook func(corpus.Stats)) (*corpus.Loader, *corpus.Cache) {
	var sources []corpus.Source
	if cfg.Corpus.Dir != "" {
		sources = append(sources, corpus.DirSource{Dir: cfg.Corpus.Dir})
	}
	if cfg.Corpus.BaseURL != "" {
		sources = append(sources, corpus.NewHTTPSource(cfg.Corpus.BaseURL, corpus.HTTPOptions{
			Timeout:  cfg.Corpus.HTTPTimeout,
			RetryMax: cfg.Corpus.HTTPRetries,
			Logger:   logger,
		}))
	}
	loader := corpus.NewLoader(cfg.Corpus.Shards, logger, sources...)

	opts := []corpus.CacheOption{corpus.WithLogger(logger)}
	if hook != nil {
		opts = append(opts, corpus.WithLoadHook(hook))
	}
	return loader, corpus.NewCache(loader, opts...)
}

func boosts(cfg *config.Config) []corpus.Boost {
	out := make([]corpus.Boost, 0, len(cfg.Search.Boosts))
	for _, b := range cfg.Search.Boosts {
		out = append(out, corpus.Boost{Keyword: b.Keyword, Weight: b.Weight})
	}
	return out
}

// newEmbedder builds the configured embedder with Redis as second-level
// cache when cache.redis_url is set. A Redis that cannot be reached is
// skipped.
func (a *app) newEmbedder(ctx context.Context) (embed.Embedder, error) {
	cfg := a.cfg
	provider, err := embed.ParseProvider(cfg.Embeddings.Provider)
	if err != nil {
		return nil, ferrors.ConfigError(err.Error(), err)
	}

	ecfg := embed.Config{
		Provider:   provider,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		APIKey:     cfg.Embeddings.APIKey,
		BaseURL:    cfg.Embeddings.BaseURL,
		BatchSize:  cfg.Embeddings.BatchSize,
		CacheSize:  cfg.Cache.Size,
		Logger:     a.logger,
	}

	redis, err := cache.Connect(ctx, cfg.Cache.RedisURL, cache.WithTTL(cfg.Cache.TTL))
	switch {
	case err != nil:
		a.logger.Warn("redis embedding cache unavailable", ferrors.LogAttrs(err)...)
	case redis != nil:
		ecfg.SecondLevel = redis
		a.redis = redis
		a.closers = append(a.closers, redis.Close)
	}

	e, err := embed.NewEmbedder(ctx, ecfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, e.Close)
	return e, nil
}

// newVectorBackend builds the configured vector retriever. It returns a
// nil backend when vector.provider is none or the relational store, which
// resolves hits to records, is missing.
func (a *app) newVectorBackend(ctx context.Context) (search.Backend, api.VectorStatus, error) {
	cfg := a.cfg
	if cfg.Vector.Provider == config.VectorNone {
		return nil, nil, nil
	}
	if a.store == nil {
		return nil, nil, ferrors.StorageError("vector hits cannot be resolved without the relational store", nil)
	}

	var (
		retriever search.Retriever
		status    api.VectorStatus
	)
	switch cfg.Vector.Provider {
	case config.VectorHosted:
		h := vector.NewHosted(vector.HostedConfig{
			BaseURL:       cfg.Vector.Hosted.BaseURL,
			APIKey:        cfg.Vector.Hosted.APIKey,
			VectorStoreID: cfg.Vector.Hosted.VectorStoreID,
			Timeout:       cfg.Search.BackendTimeout,
		}, a.logger)
		if !h.Configured() {
			return nil, nil, ferrors.ConfigError("hosted vector store is not configured", nil).
				WithSuggestion("Set FRIVILLIG_VECTOR_STORE_ID and OPENAI_API_KEY")
		}
		retriever, status = search.FromStoreSearcher(h), h

	case config.VectorLocal:
		e, err := a.newEmbedder(ctx)
		if err != nil {
			return nil, nil, err
		}
		idx, err := vector.LoadLocalIndex(cfg.Vector.Local.Path, e, a.logger)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, idx.Close)
		retriever, status = search.FromProfileSearcher(idx), idx

	default:
		e, err := a.newEmbedder(ctx)
		if err != nil {
			return nil, nil, err
		}
		q, err := a.newQdrant(e)
		if err != nil {
			return nil, nil, err
		}
		retriever, status = search.FromProfileSearcher(q), q
	}

	return &search.VectorBackend{
		Retriever:  retriever,
		Fetcher:    a.store,
		TieEpsilon: cfg.Search.TieEpsilon.For(cfg.Vector.Provider),
		FetchLimit: cfg.Search.VectorFetchLimit,
	}, status, nil
}

func (a *app) newQdrant(e vector.QueryEmbedder) (*vector.Qdrant, error) {
	cfg := a.cfg
	q, err := vector.NewQdrant(vector.QdrantConfig{
		Host:        cfg.Vector.Qdrant.Host,
		Port:        cfg.Vector.Qdrant.Port,
		APIKey:      cfg.Vector.Qdrant.APIKey,
		UseTLS:      cfg.Vector.Qdrant.UseTLS,
		Collection:  cfg.Vector.Qdrant.Collection,
		MaxFailures: cfg.Vector.Breaker.MaxFailures,
		OpenTimeout: cfg.Vector.Breaker.OpenTimeout,
	}, e, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, q.Close)
	return q, nil
}

// apiDeps returns the HTTP handler dependencies.
func (a *app) apiDeps() api.Deps {
	deps := api.Deps{
		Store:        a.store,
		Engine:       a.engine,
		Lookup:       a.lookup,
		Corpus:       a.corpus,
		Metrics:      a.metrics,
		Stats:        a.stats,
		Logger:       a.logger,
		DefaultLimit: a.cfg.Server.DefaultLimit,
		MaxLimit:     a.cfg.Server.MaxLimit,
	}
	if a.vector != nil {
		deps.Vector = a.vector
	}
	return deps
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func modeError(mode string) error {
	return ferrors.ValidationError(fmt.Sprintf("unknown search mode %q", mode), nil).
		WithSuggestion("Use one of: hybrid, vector, relational, lexical")
}
