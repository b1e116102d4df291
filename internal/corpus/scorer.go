package corpus

import (
	"context"
	"slices"
	"strings"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// Match weights.
const (
	weightNavn      = 100
	weightAktivitet = 50
	weightFormaal   = 30

	weightLocationPoststed = 40
	weightLocationKommune  = 35
	weightLocationFylke    = 25

	weightNearFylke      = 20
	weightNearKommune    = 30
	weightNearPostnummer = 40
)

// DefaultLexicalLimit applies when LexicalQuery.Limit is not positive.
const DefaultLexicalLimit = 5

// Boost adds Weight to a name match when the query contains Keyword.
type Boost struct {
	Keyword string
	Weight  int
}

// DefaultBoosts are applied when NewScorer receives nil.
var DefaultBoosts = []Boost{{Keyword: "design", Weight: 5}}

// LexicalQuery is a flat-file search request.
type LexicalQuery struct {
	Query    string
	Location string
	User     organization.Location
	Limit    int
}

// Corpus provides the records to scan. *Cache implements it.
type Corpus interface {
	Get(ctx context.Context) []organization.Organization
}

// Scorer ranks corpus records by weighted substring matches.
type Scorer struct {
	corpus Corpus
	boosts []Boost
}

// NewScorer creates a scorer. A nil boosts slice selects DefaultBoosts; an
// empty one disables boosting.
func NewScorer(c Corpus, boosts []Boost) *Scorer {
	if boosts == nil {
		boosts = DefaultBoosts
	}
	normalized := make([]Boost, 0, len(boosts))
	for _, b := range boosts {
		if kw := strings.ToLower(strings.TrimSpace(b.Keyword)); kw != "" {
			normalized = append(normalized, Boost{Keyword: kw, Weight: b.Weight})
		}
	}
	return &Scorer{corpus: c, boosts: normalized}
}

// Search scores every record with an organisasjonsnummer, drops zero scores
// and returns the best Limit records. Equal scores keep corpus order.
func (s *Scorer) Search(ctx context.Context, q LexicalQuery) []organization.Organization {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLexicalLimit
	}
	pq := prepare(q)

	type scored struct {
		idx   int
		score int
	}
	orgs := s.corpus.Get(ctx)
	var hits []scored
	for i := range orgs {
		if score := s.score(&orgs[i], pq); score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}

	slices.SortStableFunc(hits, func(a, b scored) int { return b.score - a.score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]organization.Organization, len(hits))
	for i, h := range hits {
		out[i] = orgs[h.idx]
	}
	return out
}

// Score returns the lexical score of org for q, or 0 when org is not a
// candidate.
func (s *Scorer) Score(org *organization.Organization, q LexicalQuery) int {
	return s.score(org, prepare(q))
}

type preparedQuery struct {
	query    string
	location string
	user     organization.Location
}

func prepare(q LexicalQuery) preparedQuery {
	return preparedQuery{
		query:    strings.ToLower(strings.TrimSpace(q.Query)),
		location: strings.ToLower(strings.TrimSpace(q.Location)),
		user: organization.Location{
			Postnummer: strings.TrimSpace(q.User.Postnummer),
			Kommune:    strings.TrimSpace(q.User.Kommune),
			Fylke:      strings.TrimSpace(q.User.Fylke),
		},
	}
}

func (s *Scorer) score(org *organization.Organization, q preparedQuery) int {
	if strings.TrimSpace(org.Organisasjonsnummer) == "" || !org.RegistrertIFrivillighetsregisteret {
		return 0
	}

	score := 0
	if q.query != "" {
		if contains(org.Navn, q.query) {
			score += weightNavn
			for _, b := range s.boosts {
				if strings.Contains(q.query, b.Keyword) {
					score += b.Weight
				}
			}
		}
		if contains(org.Aktivitet, q.query) {
			score += weightAktivitet
		}
		if contains(org.VedtektsfestetFormaal, q.query) {
			score += weightFormaal
		}
	}

	if q.location != "" {
		if contains(org.ForretningsadressePoststed, q.location) {
			score += weightLocationPoststed
		}
		if contains(org.ForretningsadresseKommune, q.location) {
			score += weightLocationKommune
		}
		if contains(org.Fylke, q.location) {
			score += weightLocationFylke
		}
	}

	if q.user.Fylke != "" && strings.EqualFold(q.user.Fylke, strings.TrimSpace(org.Fylke)) {
		score += weightNearFylke
	}
	if q.user.Kommune != "" && strings.EqualFold(q.user.Kommune, strings.TrimSpace(org.ForretningsadresseKommune)) {
		score += weightNearKommune
	}
	if q.user.Postnummer != "" && q.user.Postnummer == strings.TrimSpace(org.ForretningsadressePostnummer) {
		score += weightNearPostnummer
	}
	return score
}

// contains reports whether lowered needle occurs in field, ignoring case.
func contains(field, needle string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), needle)
}
