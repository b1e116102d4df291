package corpus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

func navnOf(orgs []organization.Organization) []string {
	out := make([]string, len(orgs))
	for i, o := range orgs {
		out[i] = o.Navn
	}
	return out
}

func TestScorer_NameMatchOutranksActivityMatch(t *testing.T) {
	// Given: one record matching on aktivitet and one on navn
	byActivity := org("100000001", "Nærmiljølaget")
	byActivity.Aktivitet = "Idrett for barn"
	byName := org("100000002", "Bygdøy Idrettslag")

	scorer := NewScorer(staticCorpus{byActivity, byName}, nil)

	// When: searching for "idrett"
	got := scorer.Search(context.Background(), LexicalQuery{Query: "idrett"})

	// Then: the name match ranks first, 100 against 50 points
	assert.Equal(t, []string{"Bygdøy Idrettslag", "Nærmiljølaget"}, navnOf(got))
	assert.Equal(t, 100, scorer.Score(&byName, LexicalQuery{Query: "idrett"}))
	assert.Equal(t, 50, scorer.Score(&byActivity, LexicalQuery{Query: "idrett"}))
}

func TestScorer_Score_Weights(t *testing.T) {
	o := organization.Organization{
		Organisasjonsnummer:                "100000001",
		Navn:                               "Bergen Korps",
		Aktivitet:                          "Korps og musikk",
		VedtektsfestetFormaal:              "Fremme korpsmusikk",
		ForretningsadressePoststed:         "BERGEN",
		ForretningsadresseKommune:          "BERGEN",
		ForretningsadressePostnummer:       "5003",
		Fylke:                              "VESTLAND",
		RegistrertIFrivillighetsregisteret: true,
	}
	scorer := NewScorer(nil, []Boost{})

	tests := []struct {
		name string
		q    LexicalQuery
		want int
	}{
		{"all text fields", LexicalQuery{Query: "KORPS"}, 100 + 50 + 30},
		{"location poststed and kommune", LexicalQuery{Location: "bergen"}, 40 + 35},
		{"location fylke", LexicalQuery{Location: "vest"}, 25},
		{"proximity all", LexicalQuery{User: organization.Location{Postnummer: "5003", Kommune: "Bergen", Fylke: "Vestland"}}, 40 + 30 + 20},
		{"no match", LexicalQuery{Query: "sjakk"}, 0},
		{"empty query contributes nothing", LexicalQuery{Query: "  "}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scorer.Score(&o, tt.q))
		})
	}
}

func TestScorer_Boosts(t *testing.T) {
	o := org("100000001", "Designforeningen")

	withDefault := NewScorer(nil, nil)
	assert.Equal(t, 105, withDefault.Score(&o, LexicalQuery{Query: "design"}))

	custom := NewScorer(nil, []Boost{{Keyword: " Forening ", Weight: 7}})
	assert.Equal(t, 107, custom.Score(&o, LexicalQuery{Query: "foreningen"}))
	assert.Equal(t, 100, custom.Score(&o, LexicalQuery{Query: "design"}))
}

func TestScorer_SkipsNonCandidates(t *testing.T) {
	noOrgnr := org("", "Idrettslag uten nummer")
	unregistered := org("100000001", "Idrettslag utenfor registeret")
	unregistered.RegistrertIFrivillighetsregisteret = false

	scorer := NewScorer(staticCorpus{noOrgnr, unregistered}, nil)

	assert.Empty(t, scorer.Search(context.Background(), LexicalQuery{Query: "idrett"}))
}

func TestScorer_Search_StableAndLimited(t *testing.T) {
	// Given: seven equally scored records
	var corpus staticCorpus
	for _, n := range []string{"Kor 1", "Kor 2", "Kor 3", "Kor 4", "Kor 5", "Kor 6", "Kor 7"} {
		corpus = append(corpus, org("10000000"+n[len(n)-1:], n))
	}
	scorer := NewScorer(corpus, nil)

	// When: searching with the default and an explicit limit
	def := scorer.Search(context.Background(), LexicalQuery{Query: "kor"})
	three := scorer.Search(context.Background(), LexicalQuery{Query: "kor", Limit: 3})

	// Then: corpus order is kept and the result is truncated
	assert.Equal(t, []string{"Kor 1", "Kor 2", "Kor 3", "Kor 4", "Kor 5"}, navnOf(def))
	require.Len(t, three, 3)
	assert.Equal(t, "Kor 3", three[2].Navn)
}

func TestScorer_Search_ProximityBreaksEqualText(t *testing.T) {
	oslo := org("100000001", "Sjakklubben Oslo")
	oslo.ForretningsadresseKommune = "OSLO"
	bergen := org("100000002", "Sjakklubben Bergen")
	bergen.ForretningsadresseKommune = "BERGEN"

	scorer := NewScorer(staticCorpus{oslo, bergen}, nil)
	got := scorer.Search(context.Background(), LexicalQuery{
		Query: "sjakk",
		User:  organization.Location{Kommune: "Bergen"},
	})

	assert.Equal(t, []string{"Sjakklubben Bergen", "Sjakklubben Oslo"}, navnOf(got))
}
