package corpus

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

const loadKey = "corpus"

// AllLoader loads the complete corpus. *Loader implements it.
type AllLoader interface {
	LoadAll(ctx context.Context) ([]organization.Organization, LoadReport)
}

// Stats describes the cached snapshot.
type Stats struct {
	Loaded        bool          `json:"loaded"`
	Organizations int           `json:"organizations"`
	ShardsLoaded  int           `json:"shards_loaded"`
	ShardsFailed  int           `json:"shards_failed"`
	LoadDuration  time.Duration `json:"load_duration"`
	LoadedAt      time.Time     `json:"loaded_at"`
}

// Cache holds the process-wide corpus snapshot. Concurrent first callers
// share a single load. A snapshot is never mutated after it is published;
// Invalidate and reloads swap the whole slice.
type Cache struct {
	loader AllLoader
	logger *slog.Logger
	onLoad func(Stats)

	group singleflight.Group

	mu      sync.RWMutex
	orgs    []organization.Organization
	byOrgnr map[string]int
	stats   Stats
	gen     uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLoadHook calls fn after every completed load, e.g. to update metrics.
func WithLoadHook(fn func(Stats)) CacheOption {
	return func(c *Cache) { c.onLoad = fn }
}

// WithLogger sets the cache logger.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// NewCache creates an empty cache; nothing is loaded until the first Get.
func NewCache(loader AllLoader, opts ...CacheOption) *Cache {
	c := &Cache{loader: loader, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the snapshot, loading it on first use. Callers must treat the
// returned slice as read-only.
//
// A load in which every shard failed is returned but not kept, so the next
// call tries again.
func (c *Cache) Get(ctx context.Context) []organization.Organization {
	c.mu.RLock()
	if c.stats.Loaded {
		orgs := c.orgs
		c.mu.RUnlock()
		return orgs
	}
	gen := c.gen
	c.mu.RUnlock()

	ch := c.group.DoChan(loadKey, func() (any, error) {
		// The load outlives any single caller's cancellation.
		orgs, report := c.loader.LoadAll(context.WithoutCancel(ctx))
		c.publish(gen, orgs, report)
		return orgs, nil
	})

	select {
	case res := <-ch:
		orgs, _ := res.Val.([]organization.Organization)
		return orgs
	case <-ctx.Done():
		return nil
	}
}

func (c *Cache) publish(gen uint64, orgs []organization.Organization, report LoadReport) {
	stats := Stats{
		Loaded:        report.ShardsLoaded > 0,
		Organizations: len(orgs),
		ShardsLoaded:  report.ShardsLoaded,
		ShardsFailed:  report.ShardsFailed,
		LoadDuration:  report.Duration,
		LoadedAt:      time.Now(),
	}

	c.mu.Lock()
	if gen != c.gen {
		// invalidated while loading
		c.mu.Unlock()
		return
	}
	if stats.Loaded {
		index := make(map[string]int, len(orgs))
		for i := range orgs {
			if nr := strings.TrimSpace(orgs[i].Organisasjonsnummer); nr != "" {
				if _, dup := index[nr]; !dup {
					index[nr] = i
				}
			}
		}
		c.orgs = orgs
		c.byOrgnr = index
		c.stats = stats
	} else {
		c.logger.Warn("corpus load produced no shards; will retry on next use")
	}
	c.mu.Unlock()

	if c.onLoad != nil {
		c.onLoad(stats)
	}
}

// Invalidate drops the snapshot. Readers holding the old slice keep it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.orgs = nil
	c.byOrgnr = nil
	c.stats = Stats{}
	c.gen++
	c.mu.Unlock()

	c.group.Forget(loadKey)
	c.logger.Info("corpus cache invalidated")
}

// Stats returns the current snapshot statistics without loading.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// FindByRegistryNumber returns the first record with the given
// organisasjonsnummer, loading the corpus if needed.
func (c *Cache) FindByRegistryNumber(ctx context.Context, orgnr string) (*organization.Organization, bool) {
	orgs := c.Get(ctx)
	orgnr = strings.TrimSpace(orgnr)

	c.mu.RLock()
	i, ok := c.byOrgnr[orgnr]
	indexed := c.byOrgnr != nil
	c.mu.RUnlock()

	if indexed {
		if !ok || i >= len(orgs) || orgs[i].Organisasjonsnummer != orgnr {
			return nil, false
		}
		org := orgs[i]
		return &org, true
	}

	// unpublished load: scan
	for i := range orgs {
		if orgs[i].Organisasjonsnummer == orgnr {
			org := orgs[i]
			return &org, true
		}
	}
	return nil, false
}
