// Package ingest embeds the flat-file corpus and writes the vectors to a
// vector collection, either Qdrant or the local HNSW index.
package ingest

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lukketsvane/frivillig-db/internal/corpus"
	"github.com/lukketsvane/frivillig-db/internal/embed"
	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/vector"
)

const (
	DefaultBatchSize   = embed.DefaultBatchSize
	DefaultConcurrency = 4
)

// Source loads the corpus. *corpus.Loader implements it.
type Source interface {
	LoadAll(ctx context.Context) ([]organization.Organization, corpus.LoadReport)
}

// Embedder embeds document batches. Every embed.Embedder implements it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, task embed.TaskType) ([][]float32, error)
	Dimensions() int
}

// Sink stores vectors. *vector.Qdrant and *vector.LocalIndex implement it.
type Sink interface {
	EnsureCollection(ctx context.Context, dimensions int) error
	Upsert(ctx context.Context, points []vector.Point) error
}

// Report summarizes one run.
type Report struct {
	Loaded       int           `json:"loaded"`
	Skipped      int           `json:"skipped"`
	Written      int           `json:"written"`
	Batches      int           `json:"batches"`
	ShardsFailed int           `json:"shards_failed"`
	Duration     time.Duration `json:"duration"`
}

// Pipeline runs load, embed and upsert.
type Pipeline struct {
	source      Source
	embedder    Embedder
	sink        Sink
	batchSize   int
	concurrency int
	progress    func(written, total int)
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets how many documents go into one embed and upsert call.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithConcurrency bounds the batches in flight.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithProgress is called after each written batch. Calls may come from
// several goroutines.
func WithProgress(fn func(written, total int)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline.
func NewPipeline(source Source, embedder Embedder, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:      source,
		embedder:    embedder,
		sink:        sink,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "ingest"))
	return p
}

type document struct {
	id      string
	text    string
	payload vector.Payload
}

// Run ingests the whole corpus. The first failing batch cancels the rest
// and the error is returned with the partial report.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := time.Now()

	orgs, load := p.source.LoadAll(ctx)
	report := Report{Loaded: len(orgs), ShardsFailed: load.ShardsFailed}
	if len(orgs) == 0 {
		report.Duration = time.Since(start)
		return report, ferrors.New(ferrors.ErrCodeIngestFailed, "corpus is empty", nil).
			WithDetail("shards_failed", strconv.Itoa(load.ShardsFailed))
	}

	docs := p.documents(orgs)
	report.Skipped = len(orgs) - len(docs)

	if err := p.sink.EnsureCollection(ctx, p.embedder.Dimensions()); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	p.logger.Info("ingestion started",
		slog.Int("documents", len(docs)),
		slog.Int("skipped", report.Skipped),
		slog.Int("batch_size", p.batchSize),
		slog.Int("concurrency", p.concurrency))

	var written, batches atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := 0; i < len(docs); i += p.batchSize {
		batch := docs[i:min(i+p.batchSize, len(docs))]
		first := i
		g.Go(func() error {
			if err := p.writeBatch(gctx, batch); err != nil {
				return ferrors.New(ferrors.ErrCodeIngestFailed, "ingest batch", err).
					WithDetail("first", strconv.Itoa(first)).
					WithDetail("size", strconv.Itoa(len(batch)))
			}
			n := written.Add(int64(len(batch)))
			batches.Add(1)
			if p.progress != nil {
				p.progress(int(n), len(docs))
			}
			return nil
		})
	}
	err := g.Wait()

	report.Written = int(written.Load())
	report.Batches = int(batches.Load())
	report.Duration = time.Since(start)

	if err != nil {
		p.logger.Error("ingestion failed", append(ferrors.LogAttrs(err), "written", report.Written)...)
		return report, err
	}
	p.logger.Info("ingestion complete",
		slog.Int("written", report.Written),
		slog.Int("batches", report.Batches),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// documents keeps searchable records whose id is a UUID and whose text is
// not empty. Point ids must be UUIDs.
func (p *Pipeline) documents(orgs []organization.Organization) []document {
	docs := make([]document, 0, len(orgs))
	for i := range orgs {
		org := &orgs[i]
		if !org.Searchable() {
			continue
		}
		id, err := uuid.Parse(org.ID)
		if err != nil {
			p.logger.Debug("skipping record without uuid", slog.String("id", org.ID), slog.String("navn", org.Navn))
			continue
		}
		text := DocumentText(org)
		if text == "" {
			continue
		}
		docs = append(docs, document{id: id.String(), text: text, payload: vector.PayloadFor(org)})
	}
	return docs
}

func (p *Pipeline) writeBatch(ctx context.Context, batch []document) error {
	texts := make([]string, len(batch))
	for i, d := range batch {
		texts[i] = d.text
	}

	vecs, err := p.embedder.EmbedBatch(ctx, texts, embed.RetrievalDocument)
	if err != nil {
		return err
	}
	if len(vecs) != len(batch) {
		return ferrors.New(ferrors.ErrCodeEmbeddingFailed, "embedder returned wrong number of vectors", nil).
			WithDetail("want", strconv.Itoa(len(batch))).
			WithDetail("got", strconv.Itoa(len(vecs)))
	}

	points := make([]vector.Point, len(batch))
	for i, d := range batch {
		points[i] = vector.Point{ID: d.id, Vector: vecs[i], Payload: d.payload}
	}
	return p.sink.Upsert(ctx, points)
}
