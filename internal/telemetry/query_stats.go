package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a coarse latency class.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one answered recommendation search.
type QueryEvent struct {
	Query       string
	Backend     string
	ResultCount int
	Latency     time.Duration
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a buffer; capacity <= 0 means 100.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the items oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the number of items held.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// ExtractTerms lowercases query and keeps words of at least three runes.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryStatsSnapshot is a copy of the collected statistics.
type QueryStatsSnapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	BackendCounts       map[string]int64        `json:"backend_counts"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries without results.
func (s *QueryStatsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryStatsConfig sizes the collectors.
type QueryStatsConfig struct {
	TopTermsCapacity      int
	ZeroResultsCapacity   int
	RecentQueriesCapacity int
}

// DefaultQueryStatsConfig returns the defaults.
func DefaultQueryStatsConfig() QueryStatsConfig {
	return QueryStatsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
	}
}

// QueryStats keeps in-memory aggregates of recent searches: which backend
// answered, popular terms, queries without results and repeats. Safe for
// concurrent use; a nil *QueryStats ignores Record.
type QueryStats struct {
	mu sync.Mutex

	backends        map[string]int64
	latencies       map[LatencyBucket]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	recentQueries   *lru.Cache[string, struct{}]
	totalQueries    int64
	zeroResultCount int64
	repeatCount     int64
	startTime       time.Time
}

// NewQueryStats creates a collector.
func NewQueryStats(cfg QueryStatsConfig) *QueryStats {
	def := DefaultQueryStatsConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	// lru.New only fails for a non-positive size.
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryStats{
		backends:      make(map[string]int64),
		latencies:     make(map[LatencyBucket]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		recentQueries: recent,
		startTime:     time.Now(),
	}
}

// Record adds one search.
func (q *QueryStats) Record(e QueryEvent) {
	if q == nil {
		return
	}
	query := strings.TrimSpace(e.Query)
	backend := e.Backend
	if backend == "" {
		backend = "none"
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.totalQueries++
	q.backends[backend]++
	q.latencies[LatencyToBucket(e.Latency)]++

	for _, term := range ExtractTerms(query) {
		count, _ := q.topTerms.Get(term)
		q.topTerms.Add(term, count+1)
	}

	if e.ResultCount == 0 {
		q.zeroResultCount++
		if query != "" {
			q.zeroResults.Add(query)
		}
	}

	if query != "" {
		sum := sha256.Sum256([]byte(strings.ToLower(query)))
		key := hex.EncodeToString(sum[:])
		if q.recentQueries.Contains(key) {
			q.repeatCount++
		}
		q.recentQueries.Add(key, struct{}{})
	}
}

// Snapshot returns a copy of the statistics. TopTerms holds at most n
// terms, most frequent first.
func (q *QueryStats) Snapshot(n int) QueryStatsSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := QueryStatsSnapshot{
		TotalQueries:        q.totalQueries,
		ZeroResultCount:     q.zeroResultCount,
		ExactRepeatCount:    q.repeatCount,
		BackendCounts:       make(map[string]int64, len(q.backends)),
		LatencyDistribution: make(map[LatencyBucket]int64, len(q.latencies)),
		ZeroResultQueries:   q.zeroResults.Items(),
		Since:               q.startTime,
	}
	for k, v := range q.backends {
		s.BackendCounts[k] = v
	}
	for k, v := range q.latencies {
		s.LatencyDistribution[k] = v
	}

	terms := make([]TermCount, 0, q.topTerms.Len())
	for _, term := range q.topTerms.Keys() {
		if count, ok := q.topTerms.Peek(term); ok {
			terms = append(terms, TermCount{Term: term, Count: count})
		}
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	s.TopTerms = terms
	return s
}
