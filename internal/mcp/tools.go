package mcp

import (
	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// SearchInput defines the input schema for the search_organizations tool.
type SearchInput struct {
	Query          string `json:"query" jsonschema:"what the user wants to do, e.g. 'synge i kor' or 'fotball for barn'"`
	UserPostnummer string `json:"user_postnummer,omitempty" jsonschema:"the user's 4-digit postal code, ranks nearby organizations first"`
	UserKommune    string `json:"user_kommune,omitempty" jsonschema:"the user's municipality, e.g. Bergen"`
	UserFylke      string `json:"user_fylke,omitempty" jsonschema:"the user's county, e.g. Vestland"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
}

func (in SearchInput) location() organization.Location {
	return organization.Location{
		Postnummer: in.UserPostnummer,
		Kommune:    in.UserKommune,
		Fylke:      in.UserFylke,
	}
}

// SearchOutput defines the output schema for the search_organizations tool.
type SearchOutput struct {
	Organizations []OrganizationOutput `json:"organizations" jsonschema:"matching organizations, best first"`
	Backend       string               `json:"backend" jsonschema:"the search backend that answered"`
}

// OrganizationOutput is one organization as shown to the client.
type OrganizationOutput struct {
	ID                  string   `json:"id"`
	Organisasjonsnummer string   `json:"organisasjonsnummer,omitempty"`
	Navn                string   `json:"navn"`
	Slug                string   `json:"slug"`
	URL                 string   `json:"url" jsonschema:"public page for the organization"`
	Aktivitet           string   `json:"aktivitet,omitempty"`
	Formaal             string   `json:"vedtektsfestet_formaal,omitempty"`
	Poststed            string   `json:"poststed,omitempty"`
	Kommune             string   `json:"kommune,omitempty"`
	Fylke               string   `json:"fylke,omitempty"`
	Adresse             []string `json:"adresse,omitempty"`
	Hjemmeside          string   `json:"hjemmeside,omitempty"`
	Epost               string   `json:"epost,omitempty"`
	Telefon             string   `json:"telefon,omitempty"`
}

// GetOrganizationInput defines the input schema for the get_organization tool.
type GetOrganizationInput struct {
	Ref string `json:"ref" jsonschema:"organization UUID or 9-digit organisasjonsnummer"`
}

// GetOrganizationOutput defines the output schema for the get_organization tool.
type GetOrganizationOutput struct {
	Organization OrganizationOutput `json:"organization"`
}

// ListKommunerInput defines the input schema for the list_kommuner tool (no parameters).
type ListKommunerInput struct{}

// ListKommunerOutput defines the output schema for the list_kommuner tool.
type ListKommunerOutput struct {
	Kommuner []string `json:"kommuner" jsonschema:"distinct municipalities, alphabetical"`
}
