package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortName, ParseSort("navn"))
	assert.Equal(t, SortName, ParseSort(" Name "))
	assert.Equal(t, SortFounded, ParseSort("stiftelsesdato"))
	assert.Equal(t, SortRegistered, ParseSort("registreringsdato_frivillighetsregisteret"))
	assert.Equal(t, SortRelevance, ParseSort("drop table"))
	assert.Equal(t, SortRelevance, ParseSort(""))
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, OrderAsc, ParseOrder("ASC"))
	assert.Equal(t, OrderDesc, ParseOrder("asc;"))
	assert.Equal(t, OrderDesc, ParseOrder(""))
}

func TestBuildSearch_MandatoryFiltersOnly(t *testing.T) {
	q, args := BuildSearch(Postgres, Params{})

	assert.Contains(t, q, "FROM organizations_with_fylke WHERE registrert_i_frivillighetsregisteret = TRUE AND navn IS NOT NULL")
	assert.Contains(t, q, "ORDER BY navn ASC, id ASC LIMIT $1 OFFSET $2")
	assert.Equal(t, []any{DefaultLimit, 0}, args)
}

func TestBuildSearch_QueryIsBoundAndEscaped(t *testing.T) {
	// Given: a query carrying LIKE metacharacters and a quote
	p := Params{Query: ` 50%_rabatt\' `, Limit: 10}

	// When: building for postgres
	q, args := BuildSearch(Postgres, p)

	// Then: the value never appears in the SQL and is escaped in every bind
	assert.NotContains(t, q, "rabatt")
	assert.Contains(t, q, `navn ILIKE $1 ESCAPE '\' OR aktivitet ILIKE $2 ESCAPE '\' OR vedtektsfestet_formaal ILIKE $3 ESCAPE '\'`)
	for _, a := range args[:6] {
		assert.Equal(t, `%50\%\_rabatt\\'%`, a)
	}
	// Relevance ranking binds its own copies after the filters.
	assert.Contains(t, q, "CASE WHEN navn ILIKE $4 ESCAPE '\\' THEN 100 ELSE 0 END")
	assert.Contains(t, q, ") DESC, navn ASC, id ASC LIMIT $7 OFFSET $8")
	assert.Equal(t, 10, args[6])
}

func TestBuildSearch_AllFilters(t *testing.T) {
	p := Params{
		Location:          "bergen",
		Fylke:             "Vestland",
		Kommune:           "Bergen",
		Poststed:          "Bergen",
		Postnummer:        "5003",
		Naeringskode:      "idrett",
		Organisasjonsform: "forening",
		OnlyWithWebsite:   true,
		OnlyWithEmail:     true,
		IDs:               []string{"a", "b"},
		Sort:              SortFounded,
		Order:             OrderAsc,
		Limit:             25,
		Offset:            50,
	}

	q, args := BuildSearch(Postgres, p)

	for _, frag := range []string{
		"forretningsadresse_poststed ILIKE $1",
		"forretningsadresse_kommune ILIKE $2",
		"fylke ILIKE $3",
		"fylke ILIKE $4",
		"forretningsadresse_kommune ILIKE $5",
		"forretningsadresse_poststed ILIKE $6",
		"naeringskode1_beskrivelse ILIKE $7",
		"organisasjonsform_beskrivelse ILIKE $8",
		"forretningsadresse_postnummer = $9",
		"hjemmeside IS NOT NULL",
		"epost IS NOT NULL",
		"id::text IN ($10, $11)",
		"ORDER BY stiftelsesdato ASC NULLS LAST, navn ASC, id ASC",
		"LIMIT $12 OFFSET $13",
	} {
		assert.Contains(t, q, frag)
	}
	assert.Len(t, args, 13)
	assert.Equal(t, "5003", args[8])
	assert.Equal(t, 50, args[12])
}

func TestBuildSearch_SQLitePlaceholders(t *testing.T) {
	q, args := BuildSearch(SQLite, Params{Query: "kor", Sort: SortName})

	assert.Contains(t, q, `lower(navn) LIKE lower(?) ESCAPE '\'`)
	assert.Contains(t, q, "registrert_i_frivillighetsregisteret = 1")
	assert.Contains(t, q, "ORDER BY navn DESC, id ASC")
	assert.NotContains(t, q, "$")
	assert.Equal(t, strings.Count(q, "?"), len(args))
}

func TestBuildCount_MatchesSearchFilters(t *testing.T) {
	p := Params{Query: "kor", Kommune: "Oslo", Limit: 5, Offset: 10}

	count, countArgs := BuildCount(Postgres, p)
	search, searchArgs := BuildSearch(Postgres, p)

	assert.True(t, strings.HasPrefix(count, "SELECT COUNT(*) FROM organizations_with_fylke WHERE "))
	where := strings.TrimPrefix(count, "SELECT COUNT(*) FROM organizations_with_fylke")
	assert.Contains(t, search, where)
	assert.Equal(t, searchArgs[:len(countArgs)], countArgs)
	assert.NotContains(t, count, "LIMIT")
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%kor%", likePattern("kor"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b\\c%`, likePattern(`a_b\c`))
}
