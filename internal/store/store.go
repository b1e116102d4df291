// Package store reads organizations from the relational database through
// the organizations_with_fylke view. PostgreSQL is the production engine;
// SQLite serves local development and tests.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// ErrNotFound is returned by single-record lookups that match nothing.
var ErrNotFound = errors.New("organization not found")

// Page is one page of a structured search.
type Page struct {
	Organizations []organization.Organization `json:"organizations"`
	// Total counts every match, not only this page.
	Total int `json:"total"`
}

// Store runs parameterized queries against the organizations view.
type Store struct {
	db        *sql.DB
	dialect   Dialect
	overFetch int
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithOverFetch sets how many rows SearchOrganizations reads before
// geographic re-ranking. Values are clamped to [1, MaxOverFetch].
func WithOverFetch(n int) Option {
	return func(s *Store) {
		s.overFetch = min(max(n, 1), MaxOverFetch)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps an open database.
func New(db *sql.DB, d Dialect, opts ...Option) *Store {
	s := &Store{
		db:        db,
		dialect:   d,
		overFetch: MaxOverFetch,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ferrors.New(ferrors.ErrCodeDatabaseUnavailable, "database unreachable", err)
	}
	return nil
}

// Search returns one page of organizations matching p plus the exact total.
// The count and the page run concurrently.
func (s *Store) Search(ctx context.Context, p Params) (*Page, error) {
	var (
		rows  []organization.Organization
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.query(gctx, p)
		return err
	})
	g.Go(func() error {
		q, args := BuildCount(s.dialect, p)
		if err := s.db.QueryRowContext(gctx, q, args...).Scan(&total); err != nil {
			return ferrors.New(ferrors.ErrCodeQueryFailed, "count organizations", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Page{Organizations: rows, Total: total}, nil
}

// SearchOrganizations returns up to p.Limit matches. When p.User is set it
// reads a wider candidate window, orders it by proximity to the user and
// truncates.
func (s *Store) SearchOrganizations(ctx context.Context, p Params) ([]organization.Organization, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if p.User.IsZero() {
		p.Limit = limit
		return s.query(ctx, p)
	}

	p.Limit = min(MaxOverFetch, max(s.overFetch, limit))
	p.Offset = 0
	orgs, err := s.query(ctx, p)
	if err != nil {
		return nil, err
	}

	organization.SortByProximity(orgs, p.User)
	if len(orgs) > limit {
		orgs = orgs[:limit]
	}
	return orgs, nil
}

// FetchByIDs returns searchable organizations whose id is in ids. Values
// that are not UUIDs are dropped; the result is in view order, not ids order.
func (s *Store) FetchByIDs(ctx context.Context, ids []string) ([]organization.Organization, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		if v := u.String(); !slices.Contains(valid, v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return []organization.Organization{}, nil
	}

	return s.query(ctx, Params{IDs: valid, Sort: SortName, Order: OrderAsc, Limit: len(valid)})
}

// GetByID returns the searchable organization with the given id.
func (s *Store) GetByID(ctx context.Context, id string) (*organization.Organization, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.one(ctx, Params{IDs: []string{u.String()}, Limit: 1})
}

// GetByRegistryNumber returns the searchable organization with the given
// organisasjonsnummer.
func (s *Store) GetByRegistryNumber(ctx context.Context, orgnr string) (*organization.Organization, error) {
	return s.one(ctx, Params{Organisasjonsnummer: orgnr, Limit: 1})
}

// Get resolves a parsed reference.
func (s *Store) Get(ctx context.Context, ref organization.Ref) (*organization.Organization, error) {
	switch ref.Kind {
	case organization.RefID:
		return s.GetByID(ctx, ref.Value)
	case organization.RefRegistryNumber:
		return s.GetByRegistryNumber(ctx, ref.Value)
	default:
		return nil, ErrNotFound
	}
}

// UniqueKommuner lists the distinct kommune names of searchable rows.
func (s *Store) UniqueKommuner(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, BuildKommuner(s.dialect))
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeQueryFailed, "list kommuner", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var k sql.NullString
		if err := rows.Scan(&k); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeQueryFailed, "scan kommune", err)
		}
		if k.Valid && k.String != "" {
			out = append(out, k.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.New(ferrors.ErrCodeQueryFailed, "list kommuner", err)
	}
	return out, nil
}

func (s *Store) one(ctx context.Context, p Params) (*organization.Organization, error) {
	orgs, err := s.query(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, ErrNotFound
	}
	return &orgs[0], nil
}

func (s *Store) query(ctx context.Context, p Params) ([]organization.Organization, error) {
	q, args := BuildSearch(s.dialect, p)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logger.Debug("organization query failed", "dialect", s.dialect.Name(), "error", err)
		return nil, ferrors.New(ferrors.ErrCodeQueryFailed, "search organizations", err)
	}
	defer rows.Close()

	out := []organization.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, ferrors.New(ferrors.ErrCodeQueryFailed, "scan organization", err)
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.New(ferrors.ErrCodeQueryFailed, "search organizations", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanOrganization reads one row in the order of columns.
func scanOrganization(sc scanner) (organization.Organization, error) {
	var (
		org organization.Organization

		orgnr, aktivitet, formaal                       sql.NullString
		fPoststed, fKommune, fPostnummer, fAdresse      sql.NullString
		pPoststed, pPostnummer, pAdresse, fylke         sql.NullString
		hjemmeside, epost, telefon, mobil               sql.NullString
		nk1, nk2, nk3, orgform, stiftet, registreringsd sql.NullString
		registrert                                      sql.NullBool
		ansatte                                         sql.NullInt64
	)

	err := sc.Scan(
		&org.ID, &orgnr, &org.Navn, &aktivitet, &formaal,
		&fPoststed, &fKommune, &fPostnummer, &fAdresse,
		&pPoststed, &pPostnummer, &pAdresse,
		&fylke, &hjemmeside, &epost, &telefon, &mobil,
		&registrert, &nk1, &nk2, &nk3, &orgform,
		&ansatte, &stiftet, &registreringsd,
	)
	if err != nil {
		return org, fmt.Errorf("scan: %w", err)
	}

	org.Organisasjonsnummer = orgnr.String
	org.Aktivitet = aktivitet.String
	org.VedtektsfestetFormaal = formaal.String
	org.ForretningsadressePoststed = fPoststed.String
	org.ForretningsadresseKommune = fKommune.String
	org.ForretningsadressePostnummer = fPostnummer.String
	org.ForretningsadresseAdresse = organization.ParseAddress([]byte(fAdresse.String))
	org.PostadressePoststed = pPoststed.String
	org.PostadressePostnummer = pPostnummer.String
	org.PostadresseAdresse = organization.ParseAddress([]byte(pAdresse.String))
	org.Fylke = fylke.String
	org.Hjemmeside = hjemmeside.String
	org.Epost = epost.String
	org.Telefon = telefon.String
	org.Mobiltelefon = mobil.String
	org.RegistrertIFrivillighetsregisteret = registrert.Bool
	org.Naeringskode1Beskrivelse = nk1.String
	org.Naeringskode2Beskrivelse = nk2.String
	org.Naeringskode3Beskrivelse = nk3.String
	org.OrganisasjonsformBeskrivelse = orgform.String
	org.Stiftelsesdato = dateOnly(stiftet.String)
	org.RegistreringsdatoFrivillighetsregisteret = dateOnly(registreringsd.String)
	if ansatte.Valid {
		n := int(ansatte.Int64)
		org.AntallAnsatte = &n
	}
	return org, nil
}

// dateOnly trims a timestamp rendering down to YYYY-MM-DD.
func dateOnly(s string) string {
	if len(s) > 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return s
}
