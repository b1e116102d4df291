package search

import (
	"context"
	"fmt"

	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/vector"
)

// DefaultFetchLimit is how many vector candidates are requested before
// ranking.
const DefaultFetchLimit = 30

// Retriever returns scored vector candidates. Failures come back as no hits.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, text string, profile *organization.Profile, limit int) []vector.Hit
}

// ProfileSearcher is implemented by *vector.Qdrant and *vector.LocalIndex.
type ProfileSearcher interface {
	Name() string
	SearchOrganizations(ctx context.Context, query string, profile *organization.Profile, limit int) []vector.Hit
}

// StoreSearcher is implemented by *vector.Hosted.
type StoreSearcher interface {
	Name() string
	SearchVectorStore(ctx context.Context, query string, limit int) []vector.Hit
}

// FromProfileSearcher adapts a profile-aware vector client.
func FromProfileSearcher(s ProfileSearcher) Retriever { return profileRetriever{s} }

// FromStoreSearcher adapts a hosted vector store. The profile is not used.
func FromStoreSearcher(s StoreSearcher) Retriever { return storeRetriever{s} }

type profileRetriever struct{ s ProfileSearcher }

func (r profileRetriever) Name() string { return r.s.Name() }

func (r profileRetriever) Retrieve(ctx context.Context, text string, profile *organization.Profile, limit int) []vector.Hit {
	return r.s.SearchOrganizations(ctx, text, profile, limit)
}

type storeRetriever struct{ s StoreSearcher }

func (r storeRetriever) Name() string { return r.s.Name() }

func (r storeRetriever) Retrieve(ctx context.Context, text string, _ *organization.Profile, limit int) []vector.Hit {
	return r.s.SearchVectorStore(ctx, text, limit)
}

// Fetcher loads full records for vector ids. *store.Store implements it.
type Fetcher interface {
	FetchByIDs(ctx context.Context, ids []string) ([]organization.Organization, error)
}

// VectorBackend retrieves candidates from a vector client, loads the
// records from the relational store and ranks them by score with a
// geographic tie-break.
type VectorBackend struct {
	Retriever  Retriever
	Fetcher    Fetcher
	TieEpsilon float64
	FetchLimit int
}

// Name is "vector/" plus the retriever name.
func (b *VectorBackend) Name() string { return "vector/" + b.Retriever.Name() }

// Search returns ErrNoCandidates, wrapped with the reason, whenever the
// vector path has nothing to rank.
func (b *VectorBackend) Search(ctx context.Context, req Request) ([]organization.Organization, error) {
	text := req.Text()
	if shortText(text) {
		return nil, fmt.Errorf("search text %q too short: %w", text, ErrNoCandidates)
	}

	fetchLimit := b.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = DefaultFetchLimit
	}

	hits := b.Retriever.Retrieve(ctx, text, req.Profile, fetchLimit)
	if len(hits) == 0 {
		return nil, fmt.Errorf("zero hits: %w", ErrNoCandidates)
	}

	ids := vector.ExtractIDs(hits)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids in %d hits: %w", len(hits), ErrNoCandidates)
	}

	orgs, err := b.Fetcher.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch %d records: %v: %w", len(ids), err, ErrNoCandidates)
	}
	if len(orgs) == 0 {
		return nil, fmt.Errorf("no searchable records for %d ids: %w", len(ids), ErrNoCandidates)
	}

	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		id := h.OrgID()
		if _, seen := scores[id]; !seen {
			scores[id] = h.Score
		}
	}

	RankByScore(orgs, scores, req.userLocation(), b.TieEpsilon)

	if limit := req.limit(); len(orgs) > limit {
		orgs = orgs[:limit]
	}
	return orgs, nil
}
