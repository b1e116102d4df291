package search

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/vector"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func org(id, navn, postnummer, kommune, fylke string) organization.Organization {
	return organization.Organization{
		ID:                                 id,
		Navn:                               navn,
		ForretningsadressePostnummer:       postnummer,
		ForretningsadresseKommune:          kommune,
		Fylke:                              fylke,
		RegistrertIFrivillighetsregisteret: true,
	}
}

func ids(orgs []organization.Organization) []string {
	out := make([]string, len(orgs))
	for i, o := range orgs {
		out[i] = o.ID
	}
	return out
}

type fakeBackend struct {
	name  string
	orgs  []organization.Organization
	err   error
	delay time.Duration
	panic bool

	mu    sync.Mutex
	calls []Request
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Search(ctx context.Context, req Request) ([]organization.Organization, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.panic {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.orgs, f.err
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRetriever struct {
	hits []vector.Hit

	text    string
	profile *organization.Profile
	limit   int
	calls   int
}

func (f *fakeRetriever) Name() string { return "fake" }

func (f *fakeRetriever) Retrieve(_ context.Context, text string, profile *organization.Profile, limit int) []vector.Hit {
	f.calls++
	f.text, f.profile, f.limit = text, profile, limit
	return f.hits
}

type fakeFetcher struct {
	orgs []organization.Organization
	err  error
	ids  []string
}

func (f *fakeFetcher) FetchByIDs(_ context.Context, ids []string) ([]organization.Organization, error) {
	f.ids = ids
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []organization.Organization
	for _, o := range f.orgs {
		if want[o.ID] && o.RegistrertIFrivillighetsregisteret {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	outcomes  map[string]string
	fallbacks []string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{outcomes: map[string]string{}}
}

func (f *fakeRecorder) ObserveBackend(backend, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[backend] = outcome
}

func (f *fakeRecorder) ObserveFallback(from string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks = append(f.fallbacks, from)
}
