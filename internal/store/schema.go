package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// Schema for development and tests. The production database is managed
// elsewhere; only the view's column set has to match.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		organisasjonsnummer TEXT,
		navn TEXT,
		aktivitet TEXT,
		vedtektsfestet_formaal TEXT,
		forretningsadresse_poststed TEXT,
		forretningsadresse_kommune TEXT,
		forretningsadresse_postnummer TEXT,
		forretningsadresse_adresse TEXT,
		postadresse_poststed TEXT,
		postadresse_postnummer TEXT,
		postadresse_adresse TEXT,
		hjemmeside TEXT,
		epost TEXT,
		telefon TEXT,
		mobiltelefon TEXT,
		registrert_i_frivillighetsregisteret INTEGER NOT NULL DEFAULT 1,
		naeringskode1_beskrivelse TEXT,
		naeringskode2_beskrivelse TEXT,
		naeringskode3_beskrivelse TEXT,
		organisasjonsform_beskrivelse TEXT,
		antall_ansatte INTEGER,
		stiftelsesdato TEXT,
		registreringsdato_frivillighetsregisteret TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_organizations_orgnr ON organizations(organisasjonsnummer)`,
	`CREATE TABLE IF NOT EXISTS kommune_fylke (
		kommune TEXT PRIMARY KEY,
		fylke TEXT NOT NULL
	)`,
	`CREATE VIEW IF NOT EXISTS organizations_with_fylke AS
		SELECT o.*, kf.fylke AS fylke
		FROM organizations o
		LEFT JOIN kommune_fylke kf ON upper(o.forretningsadresse_kommune) = kf.kommune`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id UUID PRIMARY KEY,
		organisasjonsnummer TEXT,
		navn TEXT,
		aktivitet TEXT,
		vedtektsfestet_formaal TEXT,
		forretningsadresse_poststed TEXT,
		forretningsadresse_kommune TEXT,
		forretningsadresse_postnummer TEXT,
		forretningsadresse_adresse TEXT[],
		postadresse_poststed TEXT,
		postadresse_postnummer TEXT,
		postadresse_adresse TEXT[],
		hjemmeside TEXT,
		epost TEXT,
		telefon TEXT,
		mobiltelefon TEXT,
		registrert_i_frivillighetsregisteret BOOLEAN NOT NULL DEFAULT TRUE,
		naeringskode1_beskrivelse TEXT,
		naeringskode2_beskrivelse TEXT,
		naeringskode3_beskrivelse TEXT,
		organisasjonsform_beskrivelse TEXT,
		antall_ansatte INTEGER,
		stiftelsesdato DATE,
		registreringsdato_frivillighetsregisteret DATE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_organizations_orgnr ON organizations(organisasjonsnummer)`,
	`CREATE TABLE IF NOT EXISTS kommune_fylke (
		kommune TEXT PRIMARY KEY,
		fylke TEXT NOT NULL
	)`,
	`CREATE OR REPLACE VIEW organizations_with_fylke AS
		SELECT o.*, kf.fylke AS fylke
		FROM organizations o
		LEFT JOIN kommune_fylke kf ON upper(o.forretningsadresse_kommune) = kf.kommune`,
}

// InitSchema creates the organizations table, the kommune to fylke mapping
// and the view the store reads.
func InitSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts := sqliteSchema
	if d == Postgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return ferrors.New(ferrors.ErrCodeQueryFailed, "initialize schema", err)
		}
	}
	return nil
}

var insertColumns = []string{
	"id", "organisasjonsnummer", "navn", "aktivitet", "vedtektsfestet_formaal",
	"forretningsadresse_poststed", "forretningsadresse_kommune",
	"forretningsadresse_postnummer", "forretningsadresse_adresse",
	"postadresse_poststed", "postadresse_postnummer", "postadresse_adresse",
	"hjemmeside", "epost", "telefon", "mobiltelefon",
	"registrert_i_frivillighetsregisteret",
	"naeringskode1_beskrivelse", "naeringskode2_beskrivelse",
	"naeringskode3_beskrivelse", "organisasjonsform_beskrivelse",
	"antall_ansatte", "stiftelsesdato", "registreringsdato_frivillighetsregisteret",
}

// InsertOrganizations upserts orgs in one transaction. A record's fylke is
// stored in kommune_fylke under its upper-cased kommune; the first mapping
// seen for a kommune wins.
func InsertOrganizations(ctx context.Context, db *sql.DB, d Dialect, orgs []organization.Organization) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, ferrors.New(ferrors.ErrCodeQueryFailed, "begin insert", err)
	}
	defer func() { _ = tx.Rollback() }()

	ph := make([]string, len(insertColumns))
	for i := range ph {
		ph[i] = d.Placeholder(i + 1)
	}
	orgStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO organizations (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING",
		strings.Join(insertColumns, ", "), strings.Join(ph, ", ")))
	if err != nil {
		return 0, ferrors.New(ferrors.ErrCodeQueryFailed, "prepare insert", err)
	}
	defer orgStmt.Close()

	fylkeStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO kommune_fylke (kommune, fylke) VALUES (%s, %s) ON CONFLICT (kommune) DO NOTHING",
		d.Placeholder(1), d.Placeholder(2)))
	if err != nil {
		return 0, ferrors.New(ferrors.ErrCodeQueryFailed, "prepare insert", err)
	}
	defer fylkeStmt.Close()

	n := 0
	for i := range orgs {
		o := &orgs[i]
		if o.ID == "" {
			continue
		}
		if _, err := orgStmt.ExecContext(ctx, insertArgs(d, o)...); err != nil {
			return n, ferrors.New(ferrors.ErrCodeQueryFailed, "insert organization", err).
				WithDetail("id", o.ID)
		}
		n++

		if o.Fylke != "" && o.ForretningsadresseKommune != "" {
			kommune := strings.ToUpper(o.ForretningsadresseKommune)
			if _, err := fylkeStmt.ExecContext(ctx, kommune, o.Fylke); err != nil {
				return n, ferrors.New(ferrors.ErrCodeQueryFailed, "insert kommune mapping", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, ferrors.New(ferrors.ErrCodeQueryFailed, "commit insert", err)
	}
	return n, nil
}

func insertArgs(d Dialect, o *organization.Organization) []any {
	var ansatte any
	if o.AntallAnsatte != nil {
		ansatte = *o.AntallAnsatte
	}
	return []any{
		o.ID, nullable(o.Organisasjonsnummer), o.Navn,
		nullable(o.Aktivitet), nullable(o.VedtektsfestetFormaal),
		nullable(o.ForretningsadressePoststed), nullable(o.ForretningsadresseKommune),
		nullable(o.ForretningsadressePostnummer), addressArg(d, o.ForretningsadresseAdresse),
		nullable(o.PostadressePoststed), nullable(o.PostadressePostnummer),
		addressArg(d, o.PostadresseAdresse),
		nullable(o.Hjemmeside), nullable(o.Epost), nullable(o.Telefon), nullable(o.Mobiltelefon),
		o.RegistrertIFrivillighetsregisteret,
		nullable(o.Naeringskode1Beskrivelse), nullable(o.Naeringskode2Beskrivelse),
		nullable(o.Naeringskode3Beskrivelse), nullable(o.OrganisasjonsformBeskrivelse),
		ansatte, nullable(o.Stiftelsesdato), nullable(o.RegistreringsdatoFrivillighetsregisteret),
	}
}

// nullable maps "" to NULL so IS NOT NULL filters mean "has a value".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func addressArg(d Dialect, lines organization.AddressLines) any {
	if len(lines) == 0 {
		return nil
	}
	if d == Postgres {
		return pq.Array([]string(lines))
	}
	b, _ := json.Marshal([]string(lines))
	return string(b)
}
