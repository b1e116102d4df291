package organization

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidRef is returned when a value is neither a registry number nor
// an organization id.
var ErrInvalidRef = errors.New("invalid organization reference")

// RefKind tells which identifier space a Ref belongs to.
type RefKind int

const (
	// RefID is the internal UUID primary key.
	RefID RefKind = iota + 1
	// RefRegistryNumber is the 9-digit organisasjonsnummer.
	RefRegistryNumber
)

// String returns a short label for logs.
func (k RefKind) String() string {
	switch k {
	case RefID:
		return "id"
	case RefRegistryNumber:
		return "organisasjonsnummer"
	default:
		return "unknown"
	}
}

// Ref identifies one organization in exactly one identifier space.
// Build it with ParseRef; the two spaces never overlap.
type Ref struct {
	Kind  RefKind
	Value string
}

func (r Ref) String() string {
	return r.Kind.String() + ":" + r.Value
}

var registryNumberPattern = regexp.MustCompile(`^\d{9}$`)

// ParseRef classifies s by shape. UUIDs are returned in canonical lowercase.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if registryNumberPattern.MatchString(s) {
		return Ref{Kind: RefRegistryNumber, Value: s}, nil
	}
	if len(s) == 36 {
		if id, err := uuid.Parse(s); err == nil {
			return Ref{Kind: RefID, Value: id.String()}, nil
		}
	}
	return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
}

// CanonicalID returns the lowercase hyphenated form of a UUID id. Values
// that are not UUIDs are returned trimmed but otherwise unchanged.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}
