package mcp

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// MaxDescriptionRunes bounds aktivitet and formål in search output.
const MaxDescriptionRunes = 200

// DefaultSiteURL is where organization pages are published.
const DefaultSiteURL = "https://frivillig-db.iverfinne.no"

// OrganizationURL returns the public page for org, by slug when the name
// yields one and by id otherwise.
func OrganizationURL(siteURL string, org *organization.Organization) string {
	ident := organization.Slug(org.Navn)
	if ident == "" {
		ident = org.ID
	}
	return strings.TrimRight(siteURL, "/") + "/organisasjon/" + ident
}

// ToOrganizationOutput converts a record for the client. maxRunes of zero
// leaves descriptions whole.
func ToOrganizationOutput(siteURL string, org *organization.Organization, maxRunes int) OrganizationOutput {
	if org == nil {
		return OrganizationOutput{}
	}
	return OrganizationOutput{
		ID:                  org.ID,
		Organisasjonsnummer: org.Organisasjonsnummer,
		Navn:                org.Navn,
		Slug:                organization.Slug(org.Navn),
		URL:                 OrganizationURL(siteURL, org),
		Aktivitet:           truncate(org.Aktivitet, maxRunes),
		Formaal:             truncate(org.VedtektsfestetFormaal, maxRunes),
		Poststed:            org.ForretningsadressePoststed,
		Kommune:             org.ForretningsadresseKommune,
		Fylke:               org.Fylke,
		Adresse:             org.ForretningsadresseAdresse,
		Hjemmeside:          org.Hjemmeside,
		Epost:               org.Epost,
		Telefon:             org.Telefon,
	}
}

// FormatSearchResults formats organizations as markdown cards.
func FormatSearchResults(siteURL, query string, orgs []organization.Organization) string {
	if len(orgs) == 0 {
		return fmt.Sprintf("Fann ingen organisasjonar for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Organisasjonar for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Fann %d treff\n\n", len(orgs))

	for i := range orgs {
		formatCard(&sb, i+1, siteURL, &orgs[i])
	}
	return sb.String()
}

func formatCard(sb *strings.Builder, num int, siteURL string, org *organization.Organization) {
	fmt.Fprintf(sb, "### %d. [%s](%s)\n\n", num, org.Navn, OrganizationURL(siteURL, org))

	if org.Aktivitet != "" {
		fmt.Fprintf(sb, "**Om organisasjonen:** %s\n\n", truncate(org.Aktivitet, MaxDescriptionRunes))
	}
	if org.VedtektsfestetFormaal != "" {
		fmt.Fprintf(sb, "**Formål:** %s\n\n", truncate(org.VedtektsfestetFormaal, MaxDescriptionRunes))
	}

	if place := placeLine(org); place != "" {
		fmt.Fprintf(sb, "**Plassering:** %s\n\n", place)
	}

	var contact []string
	for _, c := range []string{org.Hjemmeside, org.Epost, org.Telefon} {
		if c != "" {
			contact = append(contact, c)
		}
	}
	if len(contact) > 0 {
		fmt.Fprintf(sb, "**Kontakt:** %s\n\n", strings.Join(contact, " | "))
	}
	sb.WriteString("---\n\n")
}

func placeLine(org *organization.Organization) string {
	if org.ForretningsadressePoststed == "" {
		return ""
	}
	place := org.ForretningsadressePoststed
	if len(org.ForretningsadresseAdresse) > 0 && org.ForretningsadressePostnummer != "" {
		place = fmt.Sprintf("%s, %s %s", org.ForretningsadresseAdresse.String(),
			org.ForretningsadressePostnummer, org.ForretningsadressePoststed)
	}
	if org.Fylke != "" {
		place += " (" + org.Fylke + ")"
	}
	return place
}

// truncate cuts text to max runes and marks the cut with an ellipsis.
func truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
