package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// DefaultShardCount is the number of published shards.
const DefaultShardCount = 9

// shardConcurrency bounds parallel shard reads.
const shardConcurrency = 3

var errUnknownShardShape = ferrors.New(ferrors.ErrCodeShardCorrupt,
	"shard is neither an array nor an object with organizations", nil)

// LoadReport describes one LoadAll run.
type LoadReport struct {
	ShardsLoaded int
	ShardsFailed int
	Duration     time.Duration
}

// Loader reads every shard, trying its sources in order for each one.
type Loader struct {
	sources []Source
	shards  int
	logger  *slog.Logger
}

// NewLoader creates a loader for shards 1..shards.
func NewLoader(shards int, logger *slog.Logger, sources ...Source) *Loader {
	if shards <= 0 {
		shards = DefaultShardCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{sources: sources, shards: shards, logger: logger}
}

// LoadAll returns the concatenation of every shard that could be read, in
// shard order. Unreadable shards are logged and skipped, so the result may be
// partial or empty but never an error.
func (l *Loader) LoadAll(ctx context.Context) ([]organization.Organization, LoadReport) {
	start := time.Now()
	parts := make([][]organization.Organization, l.shards)
	ok := make([]bool, l.shards)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(shardConcurrency)
	for i := range l.shards {
		g.Go(func() error {
			orgs, err := l.loadShard(gctx, i+1)
			if err != nil {
				l.logger.Warn("shard unavailable from every source",
					slog.Int("shard", i+1),
					slog.String("error", err.Error()))
				return nil
			}
			parts[i] = orgs
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var report LoadReport
	total := 0
	for i := range parts {
		if ok[i] {
			report.ShardsLoaded++
		} else {
			report.ShardsFailed++
		}
		total += len(parts[i])
	}

	all := make([]organization.Organization, 0, total)
	for _, p := range parts {
		all = append(all, p...)
	}
	report.Duration = time.Since(start)

	l.logger.Info("corpus loaded",
		slog.Int("organizations", len(all)),
		slog.Int("shards_loaded", report.ShardsLoaded),
		slog.Int("shards_failed", report.ShardsFailed),
		slog.Int64("duration_ms", report.Duration.Milliseconds()))
	return all, report
}

func (l *Loader) loadShard(ctx context.Context, index int) ([]organization.Organization, error) {
	lastErr := errors.New("no sources configured")
	for _, src := range l.sources {
		data, err := src.Shard(ctx, index)
		if err != nil {
			l.logger.Debug("shard source failed",
				slog.Int("shard", index),
				slog.String("source", src.Name()),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}

		orgs, err := decodeShard(data)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", src.Name(), err)
			continue
		}
		l.logger.Debug("shard loaded",
			slog.Int("shard", index),
			slog.String("source", src.Name()),
			slog.Int("organizations", len(orgs)))
		return orgs, nil
	}
	return nil, lastErr
}

// decodeShard accepts a bare array or {"organizations": [...]}.
func decodeShard(data []byte) ([]organization.Organization, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errUnknownShardShape
	}

	switch data[0] {
	case '[':
		var orgs []organization.Organization
		if err := json.Unmarshal(data, &orgs); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeShardCorrupt, "decode shard", err)
		}
		return orgs, nil
	case '{':
		var wrapped struct {
			Organizations []organization.Organization `json:"organizations"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeShardCorrupt, "decode shard", err)
		}
		return wrapped.Organizations, nil
	default:
		return nil, errUnknownShardShape
	}
}
