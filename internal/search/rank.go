package search

import (
	"cmp"
	"math"
	"slices"

	"github.com/lukketsvane/frivillig-db/internal/organization"
)

// VectorScoreTieEpsilon is the default score band inside which two vector
// candidates count as tied. Near-equal similarity is noise; geography is
// the more reliable secondary signal.
const VectorScoreTieEpsilon = 0.05

// RankByScore orders orgs by score descending. scores is keyed by
// canonical id. Candidates whose scores differ by at most epsilon are
// ordered by geographic tier relative to loc instead. The sort is stable.
func RankByScore(orgs []organization.Organization, scores map[string]float64, loc organization.Location, epsilon float64) {
	tiers := make(map[string]int, len(orgs))
	byID := make(map[string]float64, len(orgs))
	for i := range orgs {
		tiers[orgs[i].ID] = loc.Tier(&orgs[i])
		byID[orgs[i].ID] = scores[organization.CanonicalID(orgs[i].ID)]
	}

	slices.SortStableFunc(orgs, func(a, b organization.Organization) int {
		sa, sb := byID[a.ID], byID[b.ID]
		if math.Abs(sa-sb) <= epsilon {
			return cmp.Compare(tiers[a.ID], tiers[b.ID])
		}
		return cmp.Compare(sb, sa)
	})
}
