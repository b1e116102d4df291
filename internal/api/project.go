package api

import "github.com/lukketsvane/frivillig-db/internal/organization"

// record is one organization as returned by the API.
type record map[string]any

// project selects the fields for a response item. Empty strings are
// rendered as null.
func project(org *organization.Organization, contact, detailed bool) record {
	r := record{
		"id":                            org.ID,
		"navn":                          org.Navn,
		"organisasjonsform_beskrivelse": null(org.OrganisasjonsformBeskrivelse),
		"naeringskode1_beskrivelse":     null(org.Naeringskode1Beskrivelse),
		"aktivitet":                     null(org.Aktivitet),
		"vedtektsfestet_formaal":        null(org.VedtektsfestetFormaal),
		"forretningsadresse_poststed":   null(org.ForretningsadressePoststed),
		"forretningsadresse_kommune":    null(org.ForretningsadresseKommune),
		"forretningsadresse_postnummer": null(org.ForretningsadressePostnummer),
		"forretningsadresse_adresse":    lines(org.ForretningsadresseAdresse),
		"fylke":                         null(org.Fylke),
		"slug":                          organization.Slug(org.Navn),
	}
	if contact {
		r["hjemmeside"] = null(org.Hjemmeside)
		r["epost"] = null(org.Epost)
		r["telefon"] = null(org.Telefon)
	}
	if detailed {
		r["organisasjonsnummer"] = null(org.Organisasjonsnummer)
		r["naeringskode2_beskrivelse"] = null(org.Naeringskode2Beskrivelse)
		r["naeringskode3_beskrivelse"] = null(org.Naeringskode3Beskrivelse)
		r["mobiltelefon"] = null(org.Mobiltelefon)
		r["antall_ansatte"] = org.AntallAnsatte
		r["stiftelsesdato"] = null(org.Stiftelsesdato)
		r["registreringsdato_frivillighetsregisteret"] = null(org.RegistreringsdatoFrivillighetsregisteret)
		r["postadresse_poststed"] = null(org.PostadressePoststed)
		r["postadresse_postnummer"] = null(org.PostadressePostnummer)
		r["postadresse_adresse"] = lines(org.PostadresseAdresse)
	}
	return r
}

func projectAll(orgs []organization.Organization, contact, detailed bool) []record {
	out := make([]record, len(orgs))
	for i := range orgs {
		out[i] = project(&orgs[i], contact, detailed)
	}
	return out
}

func null(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func lines(a organization.AddressLines) organization.AddressLines {
	if a == nil {
		return organization.AddressLines{}
	}
	return a
}
