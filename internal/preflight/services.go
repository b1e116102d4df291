package preflight

import (
	"context"
	"fmt"

	"github.com/lukketsvane/frivillig-db/internal/corpus"
	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// Pinger checks one dependency, for example (*store.Store).Ping or
// (*cache.Redis).Health.
type Pinger func(ctx context.Context) error

// DatabaseCheck pings the relational store. The API cannot serve without it.
func DatabaseCheck(ping Pinger) Check {
	return Check{
		Name:     "database",
		Required: true,
		Run: func(ctx context.Context) (CheckStatus, string) {
			if ping == nil {
				return StatusFail, "not configured"
			}
			if err := ping(ctx); err != nil {
				return StatusFail, err.Error()
			}
			return StatusPass, "OK"
		},
	}
}

// RedisCheck pings the second-level embedding cache. A nil pinger means
// Redis is not configured.
func RedisCheck(health Pinger) Check {
	return Check{
		Name: "redis",
		Run: func(ctx context.Context) (CheckStatus, string) {
			if health == nil {
				return StatusPass, "not configured"
			}
			if err := health(ctx); err != nil {
				return StatusWarn, "unreachable, embeddings are cached in memory only: " + err.Error()
			}
			return StatusPass, "OK"
		},
	}
}

// Availability reports whether a vector backend can answer.
type Availability interface {
	Name() string
	Available(ctx context.Context) bool
}

// VectorCheck checks the vector backend. Without it recommendations fall
// back to the database, so failure only warns.
func VectorCheck(p Availability) Check {
	return Check{
		Name: "vector",
		Run: func(ctx context.Context) (CheckStatus, string) {
			if p == nil {
				return StatusWarn, "disabled"
			}
			if !p.Available(ctx) {
				return StatusWarn, p.Name() + " unavailable"
			}
			return StatusPass, p.Name() + " OK"
		},
	}
}

// CorpusLoader loads the corpus snapshot. *corpus.Cache implements it.
type CorpusLoader interface {
	Get(ctx context.Context) []organization.Organization
	Stats() corpus.Stats
}

// CorpusCheck loads every shard. The corpus only backs the last fallback,
// so missing shards warn.
func CorpusCheck(c CorpusLoader) Check {
	return Check{
		Name: "corpus",
		Run: func(ctx context.Context) (CheckStatus, string) {
			c.Get(ctx)
			s := c.Stats()
			msg := fmt.Sprintf("%d organizations from %d shards", s.Organizations, s.ShardsLoaded)
			switch {
			case !s.Loaded:
				return StatusWarn, "no shard could be loaded"
			case s.ShardsFailed > 0:
				return StatusWarn, fmt.Sprintf("%s, %d failed", msg, s.ShardsFailed)
			}
			return StatusPass, msg
		},
	}
}
