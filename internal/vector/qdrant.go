package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/sony/gobreaker"

	"github.com/lukketsvane/frivillig-db/internal/embed"
	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
)

const (
	// DefaultCollection is the collection built by ingestion.
	DefaultCollection = "frivillig_orgs"

	// DefaultQdrantLimit applies when SearchOrganizations gets limit <= 0.
	DefaultQdrantLimit = 15

	defaultQdrantPort = 6334
)

// QueryEmbedder embeds query text.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string, task embed.TaskType) ([]float32, error)
}

// qdrantAPI is the subset of *qdrant.Client used here.
type qdrantAPI interface {
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Close() error
}

// QdrantConfig configures the Qdrant client.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string

	// Breaker opens after MaxFailures consecutive failures and stays open
	// for OpenTimeout.
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Qdrant searches the self-hosted collection.
type Qdrant struct {
	api        qdrantAPI
	embedder   QueryEmbedder
	collection string
	addr       string
	cb         *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewQdrant creates a gRPC client. No connection is made until first use.
func NewQdrant(cfg QdrantConfig, embedder QueryEmbedder, logger *slog.Logger) (*Qdrant, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = defaultQdrantPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, ferrors.UpstreamError("create qdrant client", err).
			WithDetail("host", cfg.Host)
	}
	return newQdrant(client, cfg, embedder, logger), nil
}

func newQdrant(api qdrantAPI, cfg QdrantConfig, embedder QueryEmbedder, logger *slog.Logger) *Qdrant {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	logger = logger.With(slog.String("component", "qdrant"))
	q := &Qdrant{
		api:        api,
		embedder:   embedder,
		collection: cfg.Collection,
		addr:       cfg.Host + ":" + strconv.Itoa(cfg.Port),
		logger:     logger,
	}

	maxFailures := cfg.MaxFailures
	q.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "qdrant",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a Qdrant failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return q
}

// Name identifies the backend in logs and metrics.
func (q *Qdrant) Name() string { return "qdrant" }

// SearchOrganizations embeds query (enriched with profile interests) and
// returns up to limit hits. When the profile has a kommune, only points in
// that kommune are considered. Errors are logged and yield no hits.
func (q *Qdrant) SearchOrganizations(ctx context.Context, query string, profile *organization.Profile, limit int) []Hit {
	hits, err := q.search(ctx, query, profile, limit)
	if err != nil {
		q.logError(err)
		return []Hit{}
	}
	return hits
}

// SearchVectors searches with an optional kommune restriction.
func (q *Qdrant) SearchVectors(ctx context.Context, query, location string, limit int) []Hit {
	var profile *organization.Profile
	if location != "" {
		profile = &organization.Profile{LocationKommune: location}
	}
	if limit <= 0 {
		limit = 10
	}
	return q.SearchOrganizations(ctx, query, profile, limit)
}

func (q *Qdrant) search(ctx context.Context, query string, profile *organization.Profile, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultQdrantLimit
	}

	text := EnrichQuery(query, profile)
	if text == "" {
		return []Hit{}, nil
	}

	vec, err := q.embedder.Embed(ctx, text, embed.RetrievalQuery)
	if err != nil {
		return nil, err
	}

	req := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vec...),
		WithPayload:    qdrant.NewWithPayload(true),
		Limit:          qdrant.PtrOf(uint64(limit)),
	}
	if kommune := kommuneFilter(profile); kommune != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("kommune", kommune)},
		}
	}

	res, err := q.cb.Execute(func() (interface{}, error) {
		return q.api.Query(ctx, req)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, ferrors.New(ferrors.ErrCodeCircuitOpen, "qdrant circuit open", err).WithDetail("addr", q.addr)
	case err != nil:
		return nil, ferrors.UpstreamError("qdrant query failed", err).WithDetail("addr", q.addr)
	}

	points := res.([]*qdrant.ScoredPoint)
	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, hitFromPoint(p))
	}
	q.logger.Debug("qdrant search",
		slog.Int("hits", len(hits)),
		slog.Int("limit", limit),
		slog.Bool("kommune_filter", req.Filter != nil))
	return hits, nil
}

func (q *Qdrant) logError(err error) {
	switch {
	case ferrors.GetCode(err) == ferrors.ErrCodeCircuitOpen:
		q.logger.Warn("qdrant search skipped, circuit open", slog.String("addr", q.addr))
	case strings.Contains(err.Error(), "connection refused"):
		q.logger.Error(fmt.Sprintf("connection refused - is Qdrant running on %s?", q.addr),
			slog.String("error", err.Error()))
	default:
		q.logger.Error("qdrant search failed", ferrors.LogAttrs(err)...)
	}
}

func hitFromPoint(p *qdrant.ScoredPoint) Hit {
	payload := payloadFromFields(func(key string) string {
		return valueString(p.GetPayload()[key])
	})
	id := p.GetId().GetUuid()
	if id == "" {
		id = payload.ID
	}
	return Hit{
		ID:      organization.CanonicalID(id),
		Score:   float64(p.GetScore()),
		Content: payload.Beskrivelse,
		Payload: payload,
	}
}

// valueString renders string and integer payload values; postnummer was
// written as a number by older ingestion runs.
func valueString(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(k.IntegerValue, 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(k.DoubleValue, 'f', -1, 64)
	default:
		return ""
	}
}

// Available reports whether the collection exists.
func (q *Qdrant) Available(ctx context.Context) bool {
	ok, err := q.api.CollectionExists(ctx, q.collection)
	if err != nil {
		q.logger.Warn("qdrant availability check failed",
			slog.String("addr", q.addr),
			slog.String("error", err.Error()))
		return false
	}
	return ok
}

// EnsureCollection creates the collection with cosine distance when it is
// missing.
func (q *Qdrant) EnsureCollection(ctx context.Context, dimensions int) error {
	exists, err := q.api.CollectionExists(ctx, q.collection)
	if err != nil {
		return ferrors.UpstreamError("check qdrant collection", err).WithDetail("addr", q.addr)
	}
	if exists {
		return nil
	}

	err = q.api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return ferrors.UpstreamError("create qdrant collection", err).WithDetail("collection", q.collection)
	}
	q.logger.Info("created collection",
		slog.String("collection", q.collection),
		slog.Int("dimensions", dimensions))
	return nil
}

// Point is one vector to write.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Upsert writes points and waits for the write to be applied.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := make(map[string]any, 14)
		for k, v := range p.Payload.fields() {
			payload[k] = v
		}
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := q.api.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return ferrors.UpstreamError("upsert qdrant points", err).
			WithDetail("collection", q.collection).
			WithDetail("points", strconv.Itoa(len(points)))
	}
	return nil
}

// Close closes the gRPC connection.
func (q *Qdrant) Close() error {
	return q.api.Close()
}
