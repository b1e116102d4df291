// Package search ranks organizations for recommendation requests. An Engine
// walks an ordered list of backends (vector, relational, lexical) and the
// first backend that answers without error decides the result; a failing
// backend only moves the walk along.
package search

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// MinTextRunes is the shortest search text sent to a vector backend.
const MinTextRunes = 2

// DefaultLimit applies when Request.Limit is not positive.
const DefaultLimit = 5

// ErrNoCandidates means the vector path produced nothing to rank.
var ErrNoCandidates = errors.New("no vector candidates")

// Request is one recommendation search.
type Request struct {
	Query     string
	Interests []string
	AgeGroup  string
	Location  string

	// User is the caller's location for geographic ordering. When zero,
	// the profile location is used.
	User    organization.Location
	Profile *organization.Profile
	Limit   int
}

// Text returns the raw query when set, otherwise the non-empty interests,
// age group and location joined by spaces.
func (r Request) Text() string {
	if q := strings.TrimSpace(r.Query); q != "" {
		return q
	}
	parts := make([]string, 0, len(r.Interests)+2)
	for _, in := range r.Interests {
		if in = strings.TrimSpace(in); in != "" {
			parts = append(parts, in)
		}
	}
	for _, s := range []string{r.AgeGroup, r.Location} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// HasText reports whether the request carries any free text.
func (r Request) HasText() bool {
	return r.Text() != ""
}

func (r Request) limit() int {
	if r.Limit <= 0 {
		return DefaultLimit
	}
	return r.Limit
}

func (r Request) userLocation() organization.Location {
	if !r.User.IsZero() {
		return r.User
	}
	return r.Profile.Location()
}

func shortText(text string) bool {
	return utf8.RuneCountInString(text) < MinTextRunes
}

// Backend is one retrieval strategy.
type Backend interface {
	Name() string
	Search(ctx context.Context, req Request) ([]organization.Organization, error)
}

// Result is an Engine answer.
type Result struct {
	Organizations []organization.Organization `json:"organizations"`
	// Backend names who answered; empty when every backend failed.
	Backend   string   `json:"backend"`
	Fallbacks []string `json:"fallbacks,omitempty"`
}
