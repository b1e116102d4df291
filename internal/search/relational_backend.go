package search

import (
	"context"

	"github.com/lukketsvane/frivillig-db/internal/corpus"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/store"
)

// OrganizationSearcher runs the relational search. *store.Store implements it.
type OrganizationSearcher interface {
	SearchOrganizations(ctx context.Context, p store.Params) ([]organization.Organization, error)
}

// RelationalBackend searches the relational store by query and location and
// orders by proximity to the caller.
type RelationalBackend struct {
	Store OrganizationSearcher
}

// Name is "relational".
func (b *RelationalBackend) Name() string { return "relational" }

// Search passes the raw query, not the synthesized text: interests and age
// group are not columns.
func (b *RelationalBackend) Search(ctx context.Context, req Request) ([]organization.Organization, error) {
	return b.Store.SearchOrganizations(ctx, store.Params{
		Query:    req.Query,
		Location: req.Location,
		User:     req.userLocation(),
		Limit:    req.limit(),
	})
}

// LexicalSearcher scores the flat-file corpus. *corpus.Scorer implements it.
type LexicalSearcher interface {
	Search(ctx context.Context, q corpus.LexicalQuery) []organization.Organization
}

// LexicalBackend scans the flat-file corpus.
type LexicalBackend struct {
	Scorer LexicalSearcher
}

// Name is "lexical".
func (b *LexicalBackend) Name() string { return "lexical" }

// Search never fails; an unavailable corpus scores nothing.
func (b *LexicalBackend) Search(ctx context.Context, req Request) ([]organization.Organization, error) {
	return b.Scorer.Search(ctx, corpus.LexicalQuery{
		Query:    req.Text(),
		Location: req.Location,
		User:     req.userLocation(),
		Limit:    req.limit(),
	}), nil
}
