package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

var errMissing = errors.New("missing")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mapSource serves shards from memory and counts calls.
type mapSource struct {
	name   string
	shards map[int]string
	calls  atomic.Int32
}

func (s *mapSource) Name() string { return s.name }

func (s *mapSource) Shard(_ context.Context, index int) ([]byte, error) {
	s.calls.Add(1)
	data, ok := s.shards[index]
	if !ok {
		return nil, fmt.Errorf("shard %d: %w", index, errMissing)
	}
	return []byte(data), nil
}

// countingLoader returns a fixed corpus and counts loads.
type countingLoader struct {
	mu     sync.Mutex
	orgs   []organization.Organization
	report LoadReport
	loads  atomic.Int32
	gate   chan struct{}
}

func (l *countingLoader) LoadAll(context.Context) ([]organization.Organization, LoadReport) {
	l.loads.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.orgs, l.report
}

// staticCorpus implements Corpus.
type staticCorpus []organization.Organization

func (c staticCorpus) Get(context.Context) []organization.Organization { return c }

func org(orgnr, navn string) organization.Organization {
	return organization.Organization{
		ID:                                 "id-" + orgnr,
		Organisasjonsnummer:                orgnr,
		Navn:                               navn,
		RegistrertIFrivillighetsregisteret: true,
	}
}
