package search

import (
	"context"
	"log/slog"

	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/store"
)

// RecordFinder finds a corpus record by registry number. *corpus.Cache
// implements it.
type RecordFinder interface {
	FindByRegistryNumber(ctx context.Context, orgnr string) (*organization.Organization, bool)
}

// RecordStore resolves references against the relational store.
// *store.Store implements it.
type RecordStore interface {
	GetByID(ctx context.Context, id string) (*organization.Organization, error)
	GetByRegistryNumber(ctx context.Context, orgnr string) (*organization.Organization, error)
}

// Lookup resolves an id or organisasjonsnummer to one organization.
type Lookup struct {
	corpus RecordFinder
	store  RecordStore
	logger *slog.Logger
}

// NewLookup creates a Lookup. corpus may be nil.
func NewLookup(corpus RecordFinder, st RecordStore, logger *slog.Logger) *Lookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{
		corpus: corpus,
		store:  st,
		logger: logger.With(slog.String("component", "lookup")),
	}
}

// Get returns organization.ErrInvalidRef for malformed input and
// store.ErrNotFound for misses. Registry numbers are looked up in the
// corpus first.
func (l *Lookup) Get(ctx context.Context, ref string) (*organization.Organization, error) {
	parsed, err := organization.ParseRef(ref)
	if err != nil {
		return nil, err
	}

	switch parsed.Kind {
	case organization.RefRegistryNumber:
		if l.corpus != nil {
			if org, ok := l.corpus.FindByRegistryNumber(ctx, parsed.Value); ok {
				l.logger.Debug("lookup served from corpus", slog.String("orgnr", parsed.Value))
				return org, nil
			}
		}
		if l.store == nil {
			return nil, store.ErrNotFound
		}
		return l.store.GetByRegistryNumber(ctx, parsed.Value)
	default:
		if l.store == nil {
			return nil, store.ErrNotFound
		}
		return l.store.GetByID(ctx, parsed.Value)
	}
}
