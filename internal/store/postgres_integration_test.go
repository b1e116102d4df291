//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("frivillig"),
		tcpostgres.WithUsername("frivillig"),
		tcpostgres.WithPassword("frivillig"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := OpenPostgres(ctx, dsn, PostgresOptions{MaxOpenConns: 4, ConnectRetries: 5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, InitSchema(ctx, db, Postgres))
	_, err = InsertOrganizations(ctx, db, Postgres, fixture())
	require.NoError(t, err)

	return New(db, Postgres)
}

func TestPostgres_SearchMatchesSQLite(t *testing.T) {
	pg := newPostgresStore(t)
	lite := newTestStore(t)
	ctx := context.Background()

	for _, p := range []Params{
		{Query: "sjakk", Limit: 10},
		{Fylke: "vestland", Sort: SortName, Order: OrderAsc},
		{Sort: SortFounded, Order: OrderAsc},
		{OnlyWithWebsite: true},
	} {
		want, err := lite.Search(ctx, p)
		require.NoError(t, err)
		got, err := pg.Search(ctx, p)
		require.NoError(t, err)

		assert.Equal(t, want.Total, got.Total)
		assert.Equal(t, ids(want.Organizations), ids(got.Organizations))
	}
}

func TestPostgres_AddressArraysAreNormalized(t *testing.T) {
	pg := newPostgresStore(t)

	org, err := pg.GetByID(context.Background(), "11111111-1111-4111-8111-111111111111")
	require.NoError(t, err)

	assert.Equal(t, organization.AddressLines{"Strandgaten 1"}, org.ForretningsadresseAdresse)
	assert.Equal(t, organization.AddressLines{}, org.PostadresseAdresse)
	assert.Equal(t, "1990-05-01", org.Stiftelsesdato)
}
