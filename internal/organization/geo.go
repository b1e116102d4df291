package organization

import (
	"slices"
	"strings"
)

// Geographic priority tiers, lowest sorts first.
const (
	TierPostnummer = 1
	TierKommune    = 2
	TierFylke      = 3
	TierOther      = 4
)

// Location is where the caller is. Any field may be empty.
type Location struct {
	Postnummer string
	Kommune    string
	Fylke      string
}

// IsZero reports whether no location granularity is set.
func (l Location) IsZero() bool {
	return strings.TrimSpace(l.Postnummer) == "" &&
		strings.TrimSpace(l.Kommune) == "" &&
		strings.TrimSpace(l.Fylke) == ""
}

// Tier returns the geographic priority of org relative to l.
func (l Location) Tier(org *Organization) int {
	if p := strings.TrimSpace(l.Postnummer); p != "" && p == strings.TrimSpace(org.ForretningsadressePostnummer) {
		return TierPostnummer
	}
	if sameName(l.Kommune, org.ForretningsadresseKommune) {
		return TierKommune
	}
	if sameName(l.Fylke, org.Fylke) {
		return TierFylke
	}
	return TierOther
}

// SortByProximity stable-sorts orgs by Tier. A zero location keeps the
// input order.
func SortByProximity(orgs []Organization, l Location) {
	if l.IsZero() {
		return
	}
	slices.SortStableFunc(orgs, func(a, b Organization) int {
		return l.Tier(&a) - l.Tier(&b)
	})
}

// sameName compares place names case-insensitively; registry data is upper
// case while callers type mixed case.
func sameName(want, got string) bool {
	want = strings.TrimSpace(want)
	return want != "" && strings.EqualFold(want, strings.TrimSpace(got))
}
