// Package organization defines the organization record served by every
// search path, together with the small value types shared between them:
// registry references, caller locations, profiles and display slugs.
package organization

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Organization is one row of the organizations_with_fylke view.
// JSON names match the column names so records decode directly from the
// flat-file corpus and encode unchanged for API clients.
type Organization struct {
	ID                    string `json:"id"`
	Organisasjonsnummer   string `json:"organisasjonsnummer,omitempty"`
	Navn                  string `json:"navn"`
	Aktivitet             string `json:"aktivitet,omitempty"`
	VedtektsfestetFormaal string `json:"vedtektsfestet_formaal,omitempty"`

	ForretningsadressePoststed   string       `json:"forretningsadresse_poststed,omitempty"`
	ForretningsadresseKommune    string       `json:"forretningsadresse_kommune,omitempty"`
	ForretningsadressePostnummer string       `json:"forretningsadresse_postnummer,omitempty"`
	ForretningsadresseAdresse    AddressLines `json:"forretningsadresse_adresse"`

	PostadressePoststed   string       `json:"postadresse_poststed,omitempty"`
	PostadressePostnummer string       `json:"postadresse_postnummer,omitempty"`
	PostadresseAdresse    AddressLines `json:"postadresse_adresse"`

	// Fylke only exists on the view; the base table does not carry it.
	Fylke string `json:"fylke,omitempty"`

	Hjemmeside   string `json:"hjemmeside,omitempty"`
	Epost        string `json:"epost,omitempty"`
	Telefon      string `json:"telefon,omitempty"`
	Mobiltelefon string `json:"mobiltelefon,omitempty"`

	RegistrertIFrivillighetsregisteret bool `json:"registrert_i_frivillighetsregisteret"`

	Naeringskode1Beskrivelse     string `json:"naeringskode1_beskrivelse,omitempty"`
	Naeringskode2Beskrivelse     string `json:"naeringskode2_beskrivelse,omitempty"`
	Naeringskode3Beskrivelse     string `json:"naeringskode3_beskrivelse,omitempty"`
	OrganisasjonsformBeskrivelse string `json:"organisasjonsform_beskrivelse,omitempty"`

	AntallAnsatte                            *int   `json:"antall_ansatte,omitempty"`
	Stiftelsesdato                           string `json:"stiftelsesdato,omitempty"`
	RegistreringsdatoFrivillighetsregisteret string `json:"registreringsdato_frivillighetsregisteret,omitempty"`
}

// Searchable reports whether the record may appear in any search result.
func (o *Organization) Searchable() bool {
	return o.RegistrertIFrivillighetsregisteret && strings.TrimSpace(o.Navn) != ""
}

// UnmarshalJSON decodes a record leniently. Corpus shards are exported from
// several tools, so scalar fields may arrive as strings, numbers or null and
// the region may be stored as forretningsadresse_fylke instead of fylke.
// A record without the registry flag is treated as registered because the
// shards are exports of the registry itself.
func (o *Organization) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string { return rawString(raw[key]) }

	*o = Organization{
		ID:                           str("id"),
		Organisasjonsnummer:          str("organisasjonsnummer"),
		Navn:                         str("navn"),
		Aktivitet:                    str("aktivitet"),
		VedtektsfestetFormaal:        str("vedtektsfestet_formaal"),
		ForretningsadressePoststed:   str("forretningsadresse_poststed"),
		ForretningsadresseKommune:    str("forretningsadresse_kommune"),
		ForretningsadressePostnummer: str("forretningsadresse_postnummer"),
		ForretningsadresseAdresse:    ParseAddress(raw["forretningsadresse_adresse"]),
		PostadressePoststed:          str("postadresse_poststed"),
		PostadressePostnummer:        str("postadresse_postnummer"),
		PostadresseAdresse:           ParseAddress(raw["postadresse_adresse"]),
		Fylke:                        str("fylke"),
		Hjemmeside:                   str("hjemmeside"),
		Epost:                        str("epost"),
		Telefon:                      str("telefon"),
		Mobiltelefon:                 str("mobiltelefon"),
		Naeringskode1Beskrivelse:     str("naeringskode1_beskrivelse"),
		Naeringskode2Beskrivelse:     str("naeringskode2_beskrivelse"),
		Naeringskode3Beskrivelse:     str("naeringskode3_beskrivelse"),
		OrganisasjonsformBeskrivelse: str("organisasjonsform_beskrivelse"),
		AntallAnsatte:                rawInt(raw["antall_ansatte"]),
		Stiftelsesdato:               str("stiftelsesdato"),

		RegistreringsdatoFrivillighetsregisteret: str("registreringsdato_frivillighetsregisteret"),
	}
	if o.Fylke == "" {
		o.Fylke = str("forretningsadresse_fylke")
	}

	o.RegistrertIFrivillighetsregisteret = true
	if flag, ok := raw["registrert_i_frivillighetsregisteret"]; ok {
		o.RegistrertIFrivillighetsregisteret = rawBool(flag)
	}
	return nil
}

// rawString renders a JSON scalar as a trimmed string. Objects and arrays
// are not scalars and yield "".
func rawString(msg json.RawMessage) string {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
		return ""
	}
	switch msg[0] {
	case '"':
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{', '[':
		return ""
	default:
		return string(msg)
	}
}

func rawBool(msg json.RawMessage) bool {
	switch strings.ToLower(rawString(msg)) {
	case "true", "1", "ja", "yes":
		return true
	default:
		return false
	}
}

func rawInt(msg json.RawMessage) *int {
	s := rawString(msg)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

// Text returns the descriptive text used for matching and embedding:
// activity and statutory purpose, in that order.
func (o *Organization) Text() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(o.Aktivitet); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(o.VedtektsfestetFormaal); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
