package ingest

import (
	"strings"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// DocumentText is the text embedded for one organization. Empty parts are
// left out; a record with nothing to say yields "".
func DocumentText(org *organization.Organization) string {
	parts := make([]string, 0, 4)
	if s := strings.TrimSpace(org.Navn); s != "" {
		parts = append(parts, "Organisasjon: "+s)
	}
	if s := strings.TrimSpace(org.Aktivitet); s != "" {
		parts = append(parts, "Hovedaktivitet: "+s)
	}
	if s := strings.TrimSpace(org.VedtektsfestetFormaal); s != "" {
		parts = append(parts, "Formål: "+s)
	}

	var kategori []string
	for _, k := range []string{org.Naeringskode1Beskrivelse, org.Naeringskode2Beskrivelse, org.Naeringskode3Beskrivelse} {
		if k = strings.TrimSpace(k); k != "" {
			kategori = append(kategori, k)
		}
	}
	if len(kategori) > 0 {
		parts = append(parts, "Kategori: "+strings.Join(kategori, ", "))
	}

	return strings.Join(parts, ". ")
}
