package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/store"
)

type mapFinder map[string]organization.Organization

func (m mapFinder) FindByRegistryNumber(_ context.Context, orgnr string) (*organization.Organization, bool) {
	o, ok := m[orgnr]
	if !ok {
		return nil, false
	}
	return &o, true
}

func TestLookup_RegistryNumberPrefersCorpus(t *testing.T) {
	// Given: the corpus knows 971000001 under a different name
	st := newSQLiteStore(t)
	finder := mapFinder{"971000001": {ID: "corpus", Navn: "Bergen Kor (fil)", Organisasjonsnummer: "971000001"}}
	l := NewLookup(finder, st, discardLogger())

	// When: looking up by registry number
	got, err := l.Get(context.Background(), "971000001")

	// Then: the corpus record is returned
	require.NoError(t, err)
	assert.Equal(t, "corpus", got.ID)
}

func TestLookup_FallsBackToStore(t *testing.T) {
	st := newSQLiteStore(t)
	l := NewLookup(mapFinder{}, st, discardLogger())

	byOrgnr, err := l.Get(context.Background(), "971000002")
	require.NoError(t, err)
	byID, err := l.Get(context.Background(), "22222222-2222-4222-8222-222222222222")
	require.NoError(t, err)

	assert.Equal(t, "Oslo Kor", byOrgnr.Navn)
	assert.Equal(t, byOrgnr.Navn, byID.Navn)
}

func TestLookup_Errors(t *testing.T) {
	l := NewLookup(nil, newSQLiteStore(t), discardLogger())
	ctx := context.Background()

	_, err := l.Get(ctx, "12345")
	assert.ErrorIs(t, err, organization.ErrInvalidRef)

	_, err = l.Get(ctx, "999999999")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = l.Get(ctx, "55555555-5555-4555-8555-555555555555")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = l.Get(ctx, "971000004")
	assert.ErrorIs(t, err, store.ErrNotFound, "unregistered records are not served by the store")

	_, err = NewLookup(nil, nil, nil).Get(ctx, "971000001")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
