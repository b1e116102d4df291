package store

import (
	"strings"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// View is the relation every query reads.
const View = "organizations_with_fylke"

// DefaultLimit applies when Params.Limit is not positive.
const DefaultLimit = 20

// MaxOverFetch caps the geographic over-fetch.
const MaxOverFetch = 100

// SortField selects the ORDER BY.
type SortField string

const (
	SortRelevance  SortField = "relevance"
	SortName       SortField = "name"
	SortFounded    SortField = "stiftelsesdato"
	SortRegistered SortField = "registreringsdato_frivillighetsregisteret"
)

// ParseSort maps a request value to a SortField; unknown values are relevance.
func ParseSort(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "navn":
		return SortName
	case "stiftelsesdato":
		return SortFounded
	case "registreringsdato_frivillighetsregisteret", "registreringsdato":
		return SortRegistered
	default:
		return SortRelevance
	}
}

// Order is the sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder returns OrderAsc for "asc" and OrderDesc otherwise.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), "asc") {
		return OrderAsc
	}
	return OrderDesc
}

// Params is a structured search request.
type Params struct {
	Query    string
	Location string

	Fylke             string
	Kommune           string
	Poststed          string
	Postnummer        string
	Naeringskode      string
	Organisasjonsform string

	// Organisasjonsnummer is an exact match, used for lookups.
	Organisasjonsnummer string
	IDs                 []string

	OnlyWithWebsite bool
	OnlyWithEmail   bool

	Sort   SortField
	Order  Order
	Limit  int
	Offset int

	// User triggers geographic re-ranking in SearchOrganizations.
	User organization.Location
}

var columns = []string{
	"id",
	"organisasjonsnummer",
	"navn",
	"aktivitet",
	"vedtektsfestet_formaal",
	"forretningsadresse_poststed",
	"forretningsadresse_kommune",
	"forretningsadresse_postnummer",
	"forretningsadresse_adresse",
	"postadresse_poststed",
	"postadresse_postnummer",
	"postadresse_adresse",
	"fylke",
	"hjemmeside",
	"epost",
	"telefon",
	"mobiltelefon",
	"registrert_i_frivillighetsregisteret",
	"naeringskode1_beskrivelse",
	"naeringskode2_beskrivelse",
	"naeringskode3_beskrivelse",
	"organisasjonsform_beskrivelse",
	"antall_ansatte",
	"stiftelsesdato",
	"registreringsdato_frivillighetsregisteret",
}

func selectList(d Dialect) string {
	exprs := make([]string, len(columns))
	for i, c := range columns {
		switch c {
		case "forretningsadresse_adresse", "postadresse_adresse":
			exprs[i] = d.JSONText(c) + " AS " + c
		case "id", "organisasjonsnummer", "stiftelsesdato", "registreringsdato_frivillighetsregisteret":
			exprs[i] = d.Text(c) + " AS " + c
		default:
			exprs[i] = c
		}
	}
	return strings.Join(exprs, ", ")
}

type builder struct {
	d     Dialect
	where []string
	args  []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *builder) ilike(col, value string) string {
	return b.d.ILike(col, b.bind(likePattern(value)))
}

func (b *builder) filters(p Params) {
	b.where = append(b.where,
		"registrert_i_frivillighetsregisteret = "+b.d.True(),
		"navn IS NOT NULL")

	if q := strings.TrimSpace(p.Query); q != "" {
		b.where = append(b.where, "("+
			b.ilike("navn", q)+" OR "+
			b.ilike("aktivitet", q)+" OR "+
			b.ilike("vedtektsfestet_formaal", q)+")")
	}
	if l := strings.TrimSpace(p.Location); l != "" {
		b.where = append(b.where, "("+
			b.ilike("forretningsadresse_poststed", l)+" OR "+
			b.ilike("forretningsadresse_kommune", l)+" OR "+
			b.ilike("fylke", l)+")")
	}

	for _, f := range []struct{ col, value string }{
		{"fylke", p.Fylke},
		{"forretningsadresse_kommune", p.Kommune},
		{"forretningsadresse_poststed", p.Poststed},
		{"naeringskode1_beskrivelse", p.Naeringskode},
		{"organisasjonsform_beskrivelse", p.Organisasjonsform},
	} {
		if v := strings.TrimSpace(f.value); v != "" {
			b.where = append(b.where, b.ilike(f.col, v))
		}
	}

	if v := strings.TrimSpace(p.Postnummer); v != "" {
		b.where = append(b.where, "forretningsadresse_postnummer = "+b.bind(v))
	}
	if v := strings.TrimSpace(p.Organisasjonsnummer); v != "" {
		b.where = append(b.where, b.d.Text("organisasjonsnummer")+" = "+b.bind(v))
	}
	if p.OnlyWithWebsite {
		b.where = append(b.where, "hjemmeside IS NOT NULL")
	}
	if p.OnlyWithEmail {
		b.where = append(b.where, "epost IS NOT NULL")
	}
	if len(p.IDs) > 0 {
		ph := make([]string, len(p.IDs))
		for i, id := range p.IDs {
			ph[i] = b.bind(id)
		}
		b.where = append(b.where, b.d.Text("id")+" IN ("+strings.Join(ph, ", ")+")")
	}
}

func (b *builder) orderBy(p Params) string {
	dir := "DESC"
	if p.Order == OrderAsc {
		dir = "ASC"
	}

	switch p.Sort {
	case SortName:
		return "navn " + dir + ", id ASC"
	case SortFounded, SortRegistered:
		return string(p.Sort) + " " + dir + " NULLS LAST, navn ASC, id ASC"
	default:
		q := strings.TrimSpace(p.Query)
		if q == "" {
			return "navn ASC, id ASC"
		}
		score := "(CASE WHEN " + b.ilike("navn", q) + " THEN 100 ELSE 0 END + " +
			"CASE WHEN " + b.ilike("aktivitet", q) + " THEN 50 ELSE 0 END + " +
			"CASE WHEN " + b.ilike("vedtektsfestet_formaal", q) + " THEN 30 ELSE 0 END)"
		return score + " " + dir + ", navn ASC, id ASC"
	}
}

// BuildSearch renders the page query for p.
func BuildSearch(d Dialect, p Params) (string, []any) {
	b := &builder{d: d}
	b.filters(p)
	order := b.orderBy(p)

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := max(p.Offset, 0)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList(d))
	sb.WriteString(" FROM ")
	sb.WriteString(View)
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(b.where, " AND "))
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)
	sb.WriteString(" LIMIT ")
	sb.WriteString(b.bind(limit))
	sb.WriteString(" OFFSET ")
	sb.WriteString(b.bind(offset))
	return sb.String(), b.args
}

// BuildCount renders the exact count for the filters in p.
func BuildCount(d Dialect, p Params) (string, []any) {
	b := &builder{d: d}
	b.filters(p)
	return "SELECT COUNT(*) FROM " + View + " WHERE " + strings.Join(b.where, " AND "), b.args
}

// BuildKommuner renders the distinct kommune list of searchable rows.
func BuildKommuner(d Dialect) string {
	return "SELECT DISTINCT forretningsadresse_kommune FROM " + View +
		" WHERE registrert_i_frivillighetsregisteret = " + d.True() +
		" AND navn IS NOT NULL AND forretningsadresse_kommune IS NOT NULL" +
		" ORDER BY forretningsadresse_kommune"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps v for a substring match with LIKE metacharacters escaped.
func likePattern(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}
