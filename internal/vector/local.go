package vector

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"github.com/lukketsvane/frivillig-db/internal/embed"
	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// ErrIndexClosed is returned by a closed LocalIndex.
var ErrIndexClosed = errors.New("local index is closed")

// LocalIndex is an in-process HNSW graph of organization vectors with
// their payloads, persisted next to a gob metadata file.
type LocalIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimensions int
	embedder   QueryEmbedder
	logger     *slog.Logger

	// Replacing an id orphans its old node instead of deleting it:
	// coder/hnsw breaks when the last node is deleted.
	idMap    map[string]uint64
	keyMap   map[uint64]string
	payloads map[string]Payload
	nextKey  uint64

	closed bool
}

type localMetadata struct {
	IDMap      map[string]uint64
	Payloads   map[string]Payload
	NextKey    uint64
	Dimensions int
}

// NewLocalIndex creates an empty index. embedder may be nil when the
// index is only written.
func NewLocalIndex(dimensions int, embedder QueryEmbedder, logger *slog.Logger) *LocalIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalIndex{
		graph:      newGraph(),
		dimensions: dimensions,
		embedder:   embedder,
		logger:     logger.With(slog.String("component", "local_index")),
		idMap:      make(map[string]uint64),
		keyMap:     make(map[uint64]string),
		payloads:   make(map[string]Payload),
	}
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return g
}

// Name identifies the backend in logs and metrics.
func (x *LocalIndex) Name() string { return "local" }

// Add inserts or replaces points.
func (x *LocalIndex) Add(_ context.Context, points []Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return ErrIndexClosed
	}

	for _, p := range points {
		if len(p.Vector) != x.dimensions {
			return ferrors.New(ferrors.ErrCodeDimensionMismatch, "vector has wrong dimension", nil).
				WithDetail("want", fmt.Sprint(x.dimensions)).
				WithDetail("got", fmt.Sprint(len(p.Vector)))
		}
	}

	for _, p := range points {
		if old, exists := x.idMap[p.ID]; exists {
			delete(x.keyMap, old)
		}

		key := x.nextKey
		x.nextKey++

		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		normalizeInPlace(vec)

		x.graph.Add(hnsw.MakeNode(key, vec))
		x.idMap[p.ID] = key
		x.keyMap[key] = p.ID
		x.payloads[p.ID] = p.Payload
	}
	return nil
}

// Upsert is Add; it lets LocalIndex stand in for Qdrant during ingestion.
func (x *LocalIndex) Upsert(ctx context.Context, points []Point) error {
	return x.Add(ctx, points)
}

// EnsureCollection checks that dimensions match the index.
func (x *LocalIndex) EnsureCollection(_ context.Context, dimensions int) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if dimensions != x.dimensions {
		return ferrors.New(ferrors.ErrCodeDimensionMismatch, "embedder and local index dimensions differ", nil).
			WithDetail("index", fmt.Sprint(x.dimensions)).
			WithDetail("embedder", fmt.Sprint(dimensions))
	}
	return nil
}

// SearchVector returns the k nearest points to vec. Score is cosine
// similarity.
func (x *LocalIndex) SearchVector(vec []float32, k int, kommune string) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, ErrIndexClosed
	}
	if len(vec) != x.dimensions {
		return nil, ferrors.New(ferrors.ErrCodeDimensionMismatch, "query has wrong dimension", nil)
	}
	if x.graph.Len() == 0 || k <= 0 {
		return []Hit{}, nil
	}

	query := make([]float32, len(vec))
	copy(query, vec)
	normalizeInPlace(query)

	// HNSW cannot filter during the walk; widen the candidate set and filter
	// afterwards. Orphaned nodes also take up result slots.
	fetch := k
	if kommune != "" {
		fetch = k * 10
	}
	fetch = min(fetch+x.graph.Len()-len(x.keyMap), x.graph.Len())

	nodes := x.graph.Search(query, fetch)
	hits := make([]Hit, 0, min(len(nodes), k))
	for _, node := range nodes {
		id, ok := x.keyMap[node.Key]
		if !ok {
			continue
		}
		payload := x.payloads[id]
		if kommune != "" && !strings.EqualFold(payload.Kommune, kommune) {
			continue
		}
		hits = append(hits, Hit{
			ID:      id,
			Score:   1 - float64(x.graph.Distance(query, node.Value)),
			Content: payload.Beskrivelse,
			Payload: payload,
		})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// SearchOrganizations embeds the enriched query and searches the graph.
// Errors are logged and yield no hits.
func (x *LocalIndex) SearchOrganizations(ctx context.Context, query string, profile *organization.Profile, limit int) []Hit {
	if limit <= 0 {
		limit = DefaultQdrantLimit
	}
	text := EnrichQuery(query, profile)
	if text == "" || x.embedder == nil {
		return []Hit{}
	}

	vec, err := x.embedder.Embed(ctx, text, embed.RetrievalQuery)
	if err != nil {
		x.logger.Error("local index embed failed", ferrors.LogAttrs(err)...)
		return []Hit{}
	}

	hits, err := x.SearchVector(vec, limit, kommuneFilter(profile))
	if err != nil {
		x.logger.Error("local index search failed", ferrors.LogAttrs(err)...)
		return []Hit{}
	}
	return hits
}

// Available reports whether the index holds any points.
func (x *LocalIndex) Available(context.Context) bool {
	return x.Count() > 0
}

// Count returns the number of live points.
func (x *LocalIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return 0
	}
	return len(x.idMap)
}

// Save writes the graph to path and the metadata to path+".meta", each via
// a temp file and rename.
func (x *LocalIndex) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return ErrIndexClosed
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	if err := writeAtomic(path, x.graph.Export); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	meta := localMetadata{
		IDMap:      x.idMap,
		Payloads:   x.payloads,
		NextKey:    x.nextKey,
		Dimensions: x.dimensions,
	}
	err := writeAtomic(path+".meta", func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(meta)
	})
	if err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadLocalIndex reads an index written by Save.
func LoadLocalIndex(path string, embedder QueryEmbedder, logger *slog.Logger) (*LocalIndex, error) {
	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeIndexCorrupt, "open local index metadata", err).
			WithSuggestion("Run: frivillig ingest --target local")
	}
	defer metaFile.Close()

	var meta localMetadata
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return nil, ferrors.New(ferrors.ErrCodeIndexCorrupt, "decode local index metadata", err)
	}

	x := NewLocalIndex(meta.Dimensions, embedder, logger)
	x.idMap = meta.IDMap
	x.payloads = meta.Payloads
	x.nextKey = meta.NextKey
	for id, key := range x.idMap {
		x.keyMap[key] = id
	}
	if x.payloads == nil {
		x.payloads = make(map[string]Payload)
	}

	graphFile, err := os.Open(path)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeIndexCorrupt, "open local index", err)
	}
	defer graphFile.Close()

	// Import needs an io.ByteReader.
	if err := x.graph.Import(bufio.NewReader(graphFile)); err != nil {
		return nil, ferrors.New(ferrors.ErrCodeIndexCorrupt, "import local index", err)
	}
	return x, nil
}

// Close releases the graph.
func (x *LocalIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	x.graph = nil
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
