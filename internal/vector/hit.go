// Package vector talks to the semantic retrieval backends: a self-hosted
// Qdrant collection, a hosted vector-store search API and an on-disk HNSW
// index. Every backend returns scored Hits; failures are logged and come
// back as an empty result so callers can fall through to another strategy.
package vector

import (
	"strings"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// MaxProfileInterests is how many profile interests enrich a query.
const MaxProfileInterests = 3

// Payload is the organization summary stored next to each vector.
type Payload struct {
	ID                    string `json:"id"`
	Navn                  string `json:"navn"`
	Kommune               string `json:"kommune"`
	Fylke                 string `json:"fylke"`
	Beskrivelse           string `json:"beskrivelse"`
	Aktivitet             string `json:"aktivitet"`
	VedtektsfestetFormaal string `json:"vedtektsfestet_formaal"`
	Poststed              string `json:"poststed"`
	Postnummer            string `json:"postnummer"`
	Hjemmeside            string `json:"hjemmeside"`
	Telefon               string `json:"telefon"`
	Epost                 string `json:"epost"`
	Organisasjonsform     string `json:"organisasjonsform"`
	Naeringskode          string `json:"naeringskode"`
}

// PayloadFor builds the payload written at ingestion time.
func PayloadFor(org *organization.Organization) Payload {
	beskrivelse := org.Aktivitet
	if beskrivelse == "" {
		beskrivelse = org.VedtektsfestetFormaal
	}
	return Payload{
		ID:                    organization.CanonicalID(org.ID),
		Navn:                  org.Navn,
		Kommune:               org.ForretningsadresseKommune,
		Fylke:                 org.Fylke,
		Beskrivelse:           beskrivelse,
		Aktivitet:             org.Aktivitet,
		VedtektsfestetFormaal: org.VedtektsfestetFormaal,
		Poststed:              org.ForretningsadressePoststed,
		Postnummer:            org.ForretningsadressePostnummer,
		Hjemmeside:            org.Hjemmeside,
		Telefon:               org.Telefon,
		Epost:                 org.Epost,
		Organisasjonsform:     org.OrganisasjonsformBeskrivelse,
		Naeringskode:          org.Naeringskode1Beskrivelse,
	}
}

// Organization maps a payload onto the shared record. Fields the payload
// does not carry stay empty; addresses are empty lists.
func (p Payload) Organization() organization.Organization {
	return organization.Organization{
		ID:                                 p.ID,
		Navn:                               p.Navn,
		OrganisasjonsformBeskrivelse:       p.Organisasjonsform,
		Naeringskode1Beskrivelse:           p.Naeringskode,
		Aktivitet:                          p.Aktivitet,
		VedtektsfestetFormaal:              p.VedtektsfestetFormaal,
		ForretningsadressePoststed:         p.Poststed,
		ForretningsadresseKommune:          p.Kommune,
		ForretningsadressePostnummer:       p.Postnummer,
		ForretningsadresseAdresse:          organization.AddressLines{},
		PostadresseAdresse:                 organization.AddressLines{},
		Fylke:                              p.Fylke,
		Hjemmeside:                         p.Hjemmeside,
		Epost:                              p.Epost,
		Telefon:                            p.Telefon,
		RegistrertIFrivillighetsregisteret: true,
	}
}

// fields lists the payload as string pairs for backends that store maps.
func (p Payload) fields() map[string]string {
	return map[string]string{
		"id":                     p.ID,
		"navn":                   p.Navn,
		"kommune":                p.Kommune,
		"fylke":                  p.Fylke,
		"beskrivelse":            p.Beskrivelse,
		"aktivitet":              p.Aktivitet,
		"vedtektsfestet_formaal": p.VedtektsfestetFormaal,
		"poststed":               p.Poststed,
		"postnummer":             p.Postnummer,
		"hjemmeside":             p.Hjemmeside,
		"telefon":                p.Telefon,
		"epost":                  p.Epost,
		"organisasjonsform":      p.Organisasjonsform,
		"naeringskode":           p.Naeringskode,
	}
}

func payloadFromFields(get func(key string) string) Payload {
	return Payload{
		ID:                    get("id"),
		Navn:                  get("navn"),
		Kommune:               get("kommune"),
		Fylke:                 get("fylke"),
		Beskrivelse:           get("beskrivelse"),
		Aktivitet:             get("aktivitet"),
		VedtektsfestetFormaal: get("vedtektsfestet_formaal"),
		Poststed:              get("poststed"),
		Postnummer:            get("postnummer"),
		Hjemmeside:            get("hjemmeside"),
		Telefon:               get("telefon"),
		Epost:                 get("epost"),
		Organisasjonsform:     get("organisasjonsform"),
		Naeringskode:          get("naeringskode"),
	}
}

// Hit is one scored candidate. Scores are only comparable within a backend.
type Hit struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
	Payload Payload `json:"payload"`
}

// OrgID is the canonical organization id of the hit, taken from the hit id
// or, failing that, the payload.
func (h Hit) OrgID() string {
	id := h.ID
	if id == "" {
		id = h.Payload.ID
	}
	return organization.CanonicalID(id)
}

// ExtractIDs returns the non-empty canonical hit ids in hit order, without
// duplicates.
func ExtractIDs(hits []Hit) []string {
	ids := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		id := h.OrgID()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// EnrichQuery appends up to MaxProfileInterests profile interests to query.
func EnrichQuery(query string, profile *organization.Profile) string {
	parts := make([]string, 0, 1+MaxProfileInterests)
	if q := strings.TrimSpace(query); q != "" {
		parts = append(parts, q)
	}
	parts = append(parts, profile.TopInterests(MaxProfileInterests)...)
	return strings.Join(parts, " ")
}

// kommuneFilter returns the normalized kommune a profile restricts to.
func kommuneFilter(profile *organization.Profile) string {
	if profile == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(profile.LocationKommune))
}
