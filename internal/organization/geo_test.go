package organization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func geoOrg(id, postnummer, kommune, fylke string) Organization {
	return Organization{
		ID:                           id,
		ForretningsadressePostnummer: postnummer,
		ForretningsadresseKommune:    kommune,
		Fylke:                        fylke,
	}
}

func TestLocation_Tier(t *testing.T) {
	loc := Location{Postnummer: "5003", Kommune: "Bergen", Fylke: "Vestland"}

	tests := []struct {
		name string
		org  Organization
		want int
	}{
		{"postnummer", geoOrg("a", "5003", "BERGEN", "VESTLAND"), TierPostnummer},
		{"kommune case-insensitive", geoOrg("b", "5020", "BERGEN", "VESTLAND"), TierKommune},
		{"fylke", geoOrg("c", "5700", "VOSS", "vestland"), TierFylke},
		{"other", geoOrg("d", "0150", "OSLO", "OSLO"), TierOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loc.Tier(&tt.org))
		})
	}
}

func TestLocation_Tier_EmptyFieldsNeverMatch(t *testing.T) {
	org := geoOrg("a", "", "", "")
	assert.Equal(t, TierOther, Location{}.Tier(&org))
}

func TestSortByProximity_PostnummerFirstTiesPreserved(t *testing.T) {
	// Given: records in corpus order, two of them in the caller's postnummer
	orgs := []Organization{
		geoOrg("other-1", "0150", "OSLO", "OSLO"),
		geoOrg("post-1", "5003", "BERGEN", "VESTLAND"),
		geoOrg("kommune-1", "5020", "BERGEN", "VESTLAND"),
		geoOrg("other-2", "9008", "TROMSØ", "TROMS"),
		geoOrg("post-2", "5003", "BERGEN", "VESTLAND"),
	}

	// When: sorting by proximity
	SortByProximity(orgs, Location{Postnummer: "5003", Kommune: "Bergen"})

	// Then: postnummer matches come first, then kommune, ties keep their order
	ids := make([]string, len(orgs))
	for i, o := range orgs {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"post-1", "post-2", "kommune-1", "other-1", "other-2"}, ids)
}

func TestSortByProximity_ZeroLocationKeepsOrder(t *testing.T) {
	orgs := []Organization{geoOrg("b", "", "", ""), geoOrg("a", "", "", "")}
	SortByProximity(orgs, Location{})
	assert.Equal(t, "b", orgs[0].ID)
}

func TestProfile_TopInterests(t *testing.T) {
	p := &Profile{Interests: []string{"fotball", " ", "musikk", "natur", "kor"}}
	assert.Equal(t, []string{"fotball", "musikk", "natur"}, p.TopInterests(3))

	var nilProfile *Profile
	assert.Nil(t, nilProfile.TopInterests(3))
	assert.Equal(t, Location{}, nilProfile.Location())
}
