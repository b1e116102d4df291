package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// DefaultBackendTimeout bounds each backend call.
const DefaultBackendTimeout = 5 * time.Second

// Outcomes reported to a Recorder.
const (
	OutcomeOK        = "ok"
	OutcomeEmpty     = "empty"
	OutcomeNoMatch   = "no_candidates"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
	OutcomeExhausted = "exhausted"
)

// Recorder observes backend calls. *telemetry.Metrics implements it.
type Recorder interface {
	ObserveBackend(backend, outcome string, d time.Duration)
	ObserveFallback(from string)
}

// Engine walks its backends in order until one answers.
type Engine struct {
	backends   []Backend
	relational int
	timeout    time.Duration
	recorder   Recorder
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithBackendTimeout sets the per-backend deadline. Zero or less keeps the
// default.
func WithBackendTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over an ordered backend list. Nil backends
// are skipped, so an unconfigured vector client can be passed as nil.
// Requests without any text start at the first *RelationalBackend.
func NewEngine(backends []Backend, opts ...EngineOption) *Engine {
	e := &Engine{
		relational: -1,
		timeout:    DefaultBackendTimeout,
		logger:     slog.Default(),
	}
	for _, b := range backends {
		if b == nil || isNilBackend(b) {
			continue
		}
		if _, ok := b.(*RelationalBackend); ok && e.relational < 0 {
			e.relational = len(e.backends)
		}
		e.backends = append(e.backends, b)
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "search"))
	return e
}

func isNilBackend(b Backend) bool {
	switch v := b.(type) {
	case *VectorBackend:
		return v == nil || v.Retriever == nil || v.Fetcher == nil
	case *RelationalBackend:
		return v == nil || v.Store == nil
	case *LexicalBackend:
		return v == nil || v.Scorer == nil
	}
	return false
}

// Backends returns the backend names in walk order.
func (e *Engine) Backends() []string {
	names := make([]string, len(e.backends))
	for i, b := range e.backends {
		names[i] = b.Name()
	}
	return names
}

// Search never fails. When every backend fails the result is empty and
// Result.Backend is "".
func (e *Engine) Search(ctx context.Context, req Request) Result {
	start := 0
	if !req.HasText() && e.relational >= 0 {
		start = e.relational
	}

	res := Result{Organizations: []organization.Organization{}}
	for _, b := range e.backends[start:] {
		if ctx.Err() != nil {
			break
		}

		orgs, err := e.call(ctx, b, req)
		if err == nil {
			if orgs == nil {
				orgs = []organization.Organization{}
			}
			res.Organizations = orgs
			res.Backend = b.Name()
			return res
		}

		res.Fallbacks = append(res.Fallbacks, b.Name())
		if e.recorder != nil {
			e.recorder.ObserveFallback(b.Name())
		}
	}

	e.logger.Warn("all search backends failed", slog.Any("tried", res.Fallbacks))
	if e.recorder != nil {
		e.recorder.ObserveBackend("none", OutcomeExhausted, 0)
	}
	return res
}

func (e *Engine) call(ctx context.Context, b Backend, req Request) (orgs []organization.Organization, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("search backend panicked",
				slog.String("backend", b.Name()),
				slog.Any("panic", r))
			orgs, err = nil, errors.New("backend panicked")
		}
		e.observe(b.Name(), orgs, err, time.Since(started))
	}()

	orgs, err = b.Search(ctx, req)
	if err == nil && ctx.Err() != nil {
		// An answer produced after the deadline may be truncated.
		err = ctx.Err()
	}
	return orgs, err
}

func (e *Engine) observe(name string, orgs []organization.Organization, err error, d time.Duration) {
	outcome := OutcomeOK
	switch {
	case errors.Is(err, ErrNoCandidates):
		outcome = OutcomeNoMatch
		e.logger.Debug("vector search gave no candidates",
			slog.String("backend", name),
			slog.String("reason", err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeTimeout
		e.logger.Warn("search backend timed out",
			slog.String("backend", name),
			slog.Duration("timeout", e.timeout))
	case err != nil:
		outcome = OutcomeError
		e.logger.Error("search backend failed",
			append([]any{slog.String("backend", name)}, ferrors.LogAttrs(err)...)...)
	case len(orgs) == 0:
		outcome = OutcomeEmpty
	}

	e.logger.Debug("search backend finished",
		slog.String("backend", name),
		slog.String("outcome", outcome),
		slog.Int("results", len(orgs)),
		slog.Duration("duration", d))
	if e.recorder != nil {
		e.recorder.ObserveBackend(name, outcome, d)
	}
}
